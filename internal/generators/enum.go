package generators

import (
	"fmt"
	"strings"

	"github.com/IvanVnn/icerpc-csharp/internal/codeblock"
	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

// generateEnum emits the C# enum, an As<Name> conversion that validates raw
// values, and Slice encoder/decoder extension methods.
func (g *generator) generateEnum(e *grammar.Enum) string {
	underlying := grammar.VarInt32
	if e.Underlying != nil {
		underlying = *e.Underlying
	}
	if !underlying.IsIntegral() {
		g.fail("enum underlying type %q is not integral", underlying)
	}
	if len(e.Enumerators) == 0 && !e.Unchecked {
		g.fail("checked enum has no enumerators")
	}
	lo, hi := underlying.Range()
	for _, en := range e.Enumerators {
		if en.Value < lo || (en.Value > 0 && uint64(en.Value) > hi) {
			g.fail("enumerator %s = %d does not fit %s", en.Name, en.Value, underlying)
		}
	}

	name := escapeKeyword(e.Name)
	csUnderlying := csPrimitives[underlying]

	decl := codeblock.New()
	for _, en := range e.Enumerators {
		writeDoc(decl, en.Doc)
		decl.Writeln(fmt.Sprintf("%s = %d,", escapeKeyword(en.Name), en.Value))
	}
	enum := codeblock.New()
	writeDoc(enum, e.Doc)
	enum.Write(codeblock.Braced(fmt.Sprintf("public enum %s : %s", name, csUnderlying), decl))

	var conversion string
	if e.Unchecked {
		conversion = fmt.Sprintf("(%s)value", name)
	} else {
		conversion = fmt.Sprintf("%s\n    ? (%s)value\n    : throw new global::System.IO.InvalidDataException($\"invalid enumerator value '{value}' for %s\")",
			enumValidation(e, underlying), name, name)
	}
	intExt := codeblock.New()
	if !e.Unchecked && !contiguous(e.Enumerators) {
		intExt.AddBlock(fmt.Sprintf(
			"private static readonly global::System.Collections.Generic.HashSet<%s> _enumeratorValues =\n    new global::System.Collections.Generic.HashSet<%s> { %s };",
			csUnderlying, csUnderlying, enumeratorValues(e.Enumerators)))
	}
	intExt.AddBlock(fmt.Sprintf(
		"/// <summary>Converts a <see cref=\"%s\" /> into the corresponding <see cref=\"%s\" /> enumerator.</summary>\n"+
			"public static %s As%s(this %s value) =>\n%s;",
		csUnderlying, name, name, e.Name, csUnderlying, codeblock.Indent(conversion)))

	encodeExt := fmt.Sprintf(
		"/// <summary>Encodes a <see cref=\"%s\" /> enum.</summary>\n"+
			"public static void Encode%s(this ref SliceEncoder encoder, %s value) =>\n    encoder.Encode%s((%s)value);",
		name, e.Name, name, codecSuffix[underlying], csUnderlying)
	decodeExt := fmt.Sprintf(
		"/// <summary>Decodes a <see cref=\"%s\" /> enum.</summary>\n"+
			"public static %s Decode%s(this ref SliceDecoder decoder) =>\n    %sIntExtensions.As%s(decoder.Decode%s());",
		name, name, e.Name, e.Name, e.Name, codecSuffix[underlying])

	out := codeblock.New()
	out.AddBlock(enum)
	out.AddBlock(codeblock.Braced(fmt.Sprintf("public static class %sIntExtensions", e.Name), intExt))
	out.AddBlock(codeblock.Braced(fmt.Sprintf("public static class %sSliceEncoderExtensions", e.Name), encodeExt))
	out.AddBlock(codeblock.Braced(fmt.Sprintf("public static class %sSliceDecoderExtensions", e.Name), decodeExt))
	return out.String()
}

// enumValidation is the C# condition accepting exactly the enumerator values.
func enumValidation(e *grammar.Enum, underlying grammar.Primitive) string {
	if contiguous(e.Enumerators) {
		lo, hi := valueBounds(e.Enumerators)
		if typeMin, _ := underlying.Range(); lo == typeMin {
			return fmt.Sprintf("value <= %d", hi)
		}
		return fmt.Sprintf("value >= %d && value <= %d", lo, hi)
	}
	return "_enumeratorValues.Contains(value)"
}

func valueBounds(enumerators []grammar.Enumerator) (lo, hi int64) {
	lo, hi = enumerators[0].Value, enumerators[0].Value
	for _, en := range enumerators[1:] {
		lo = min(lo, en.Value)
		hi = max(hi, en.Value)
	}
	return lo, hi
}

// contiguous reports whether the enumerator values form a gap-free range.
func contiguous(enumerators []grammar.Enumerator) bool {
	if len(enumerators) == 0 {
		return false
	}
	lo, hi := valueBounds(enumerators)
	seen := make(map[int64]bool, len(enumerators))
	for _, en := range enumerators {
		seen[en.Value] = true
	}
	return hi-lo+1 == int64(len(seen))
}

func enumeratorValues(enumerators []grammar.Enumerator) string {
	vals := make([]string, len(enumerators))
	for i, en := range enumerators {
		vals[i] = fmt.Sprint(en.Value)
	}
	return strings.Join(vals, ", ")
}
