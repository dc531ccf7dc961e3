package generators

import (
	"fmt"
	"strings"

	"github.com/IvanVnn/icerpc-csharp/internal/codeblock"
	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

// Lambda parameters are numbered by nesting depth so inner lambdas never
// shadow outer ones.
func nested(name string, depth int) string {
	if depth == 0 {
		return name
	}
	return fmt.Sprintf("%s%d", name, depth)
}

// extensionCall calls an enum codec extension method. Extensions in another
// namespace are invoked statically so no using directive is needed.
func (g *generator) extensionCall(e grammar.Entity, class, method, receiver string, args ...string) string {
	qualified := g.qualify(e.Scope(), e.EntityName()+class)
	if !strings.HasPrefix(qualified, "global::") {
		return fmt.Sprintf("%s.%s(%s)", receiver, method, strings.Join(args, ", "))
	}
	all := append([]string{"ref " + receiver}, args...)
	return fmt.Sprintf("%s.%s(%s)", qualified, method, strings.Join(all, ", "))
}

// encodeExpr returns a C# expression that encodes value, of the non-optional
// type t, with the encoder variable enc.
func (g *generator) encodeExpr(t grammar.TypeRef, value, enc string, depth int) string {
	switch t.Kind {
	case grammar.TypePrimitive:
		if t.Primitive == grammar.AnyClass {
			return fmt.Sprintf("%s.EncodeClass(%s)", enc, value)
		}
		suffix, ok := codecSuffix[t.Primitive]
		if !ok {
			g.fail("no encoder for primitive %q", t.Primitive)
		}
		return fmt.Sprintf("%s.Encode%s(%s)", enc, suffix, value)

	case grammar.TypeSequence:
		elem := *t.Element
		method := "EncodeSequence"
		if elem.Optional {
			method = "EncodeSequenceOfOptionals"
		}
		return fmt.Sprintf("%s.%s(\n%s,\n%s)", enc, method,
			indentArg(value), indentArg(g.encodeLambda(elem.AsRequired(), depth+1)))

	case grammar.TypeDictionary:
		val := *t.Element
		method := "EncodeDictionary"
		if val.Optional {
			method = "EncodeDictionaryWithOptionalValueType"
		}
		return fmt.Sprintf("%s.%s(\n%s,\n%s,\n%s)", enc, method,
			indentArg(value),
			indentArg(g.encodeLambda(*t.Key, depth+1)),
			indentArg(g.encodeLambda(val.AsRequired(), depth+1)))

	case grammar.TypeNamed:
		e := g.lookup(t.Name)
		switch e.Kind() {
		case grammar.KindStruct:
			return fmt.Sprintf("%s.Encode(ref %s)", value, enc)
		case grammar.KindClass:
			return fmt.Sprintf("%s.EncodeClass(%s)", enc, value)
		case grammar.KindException:
			return fmt.Sprintf("%s.EncodeException(%s)", enc, value)
		case grammar.KindEnum:
			return g.extensionCall(e, "SliceEncoderExtensions", "Encode"+e.EntityName(), enc, value)
		case grammar.KindInterface:
			return fmt.Sprintf("%s.EncodeServiceAddress(%s.ServiceAddress)", enc, value)
		}
	}
	g.fail("cannot encode type %s", t)
	return ""
}

func (g *generator) encodeLambda(t grammar.TypeRef, depth int) string {
	enc, value := nested("encoder", depth), nested("value", depth)
	return fmt.Sprintf("(ref SliceEncoder %s, %s %s) => %s", enc, g.csType(t), value, g.encodeExpr(t, value, enc, depth))
}

// decodeExpr returns a C# expression that decodes a value of the
// non-optional type t with the decoder variable dec.
func (g *generator) decodeExpr(t grammar.TypeRef, dec string, depth int) string {
	switch t.Kind {
	case grammar.TypePrimitive:
		if t.Primitive == grammar.AnyClass {
			return fmt.Sprintf("%s.DecodeClass<SliceClass>()", dec)
		}
		suffix, ok := codecSuffix[t.Primitive]
		if !ok {
			g.fail("no decoder for primitive %q", t.Primitive)
		}
		return fmt.Sprintf("%s.Decode%s()", dec, suffix)

	case grammar.TypeSequence:
		elem := *t.Element
		method := "DecodeSequence"
		if elem.Optional {
			method = "DecodeSequenceOfOptionals"
		}
		return fmt.Sprintf("%s.%s(\n%s)", dec, method, indentArg(g.decodeLambda(elem.AsRequired(), depth+1)))

	case grammar.TypeDictionary:
		val := *t.Element
		method := "DecodeDictionary"
		if val.Optional {
			method = "DecodeDictionaryWithOptionalValueType"
		}
		return fmt.Sprintf("%s.%s(\n%s,\n%s,\n%s)", dec, method,
			indentArg(fmt.Sprintf("%s => new %s(%s)", nested("count", depth+1), g.csDecodedType(t), nested("count", depth+1))),
			indentArg(g.decodeLambda(*t.Key, depth+1)),
			indentArg(g.decodeEntryLambda(val.AsRequired(), depth+1)))

	case grammar.TypeNamed:
		e := g.lookup(t.Name)
		switch e.Kind() {
		case grammar.KindStruct:
			return fmt.Sprintf("new %s(ref %s)", g.entityType(e), dec)
		case grammar.KindClass:
			return fmt.Sprintf("%s.DecodeClass<%s>()", dec, g.entityType(e))
		case grammar.KindException:
			return fmt.Sprintf("%s.DecodeException<%s>()", dec, g.entityType(e))
		case grammar.KindEnum:
			return g.extensionCall(e, "SliceDecoderExtensions", "Decode"+e.EntityName(), dec)
		case grammar.KindInterface:
			return fmt.Sprintf("%s.DecodeProxy<%s>()", dec, g.entityType(e))
		}
	}
	g.fail("cannot decode type %s", t)
	return ""
}

func (g *generator) decodeLambda(t grammar.TypeRef, depth int) string {
	dec := nested("decoder", depth)
	return fmt.Sprintf("(ref SliceDecoder %s) => %s", dec, g.decodeExpr(t, dec, depth))
}

// decodeEntryLambda is decodeLambda for a dictionary value. Collection
// values are cast to their declared type so that the lambda's return type
// matches the dictionary's value type argument.
func (g *generator) decodeEntryLambda(t grammar.TypeRef, depth int) string {
	if t.Kind != grammar.TypeSequence && t.Kind != grammar.TypeDictionary {
		return g.decodeLambda(t, depth)
	}
	dec := nested("decoder", depth)
	return fmt.Sprintf("(ref SliceDecoder %s) => (%s)%s", dec, g.csType(t), g.decodeExpr(t, dec, depth))
}

// indentArg indents a call argument that may span several lines.
func indentArg(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = codeblock.Indentation + l
	}
	return strings.Join(lines, "\n")
}
