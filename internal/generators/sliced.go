package generators

import (
	"fmt"
	"strings"

	"github.com/IvanVnn/icerpc-csharp/internal/codeblock"
	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

// Classes and exceptions are encoded as slices, one per inheritance level.
// EncodeCore and DecodeCore chain to the base first, so slices are always
// written and read from the root down to the most derived type.

func (g *generator) generateClass(c *grammar.Class) string {
	return g.generateSliced(c, c.Base, c.Fields, c.CompactID, "SliceClass")
}

func (g *generator) generateException(e *grammar.Exception) string {
	return g.generateSliced(e, e.Base, e.Fields, nil, "SliceException")
}

func (g *generator) generateSliced(e grammar.Entity, base string, fields []grammar.Member, compactID *uint32, root string) string {
	chain, err := g.defs.BaseChain(e)
	if err != nil {
		g.fail("%v", err)
	}
	var baseFields []grammar.Member
	for _, level := range chain[:len(chain)-1] {
		baseFields = append(baseFields, grammar.FieldsOf(level)...)
	}
	allFields := append(append([]grammar.Member(nil), baseFields...), fields...)

	name := escapeKeyword(e.EntityName())
	isException := e.Kind() == grammar.KindException
	parent := root
	if base != "" {
		parent = g.entityType(g.lookup(base))
	}

	body := codeblock.New()
	body.AddBlock(g.fieldDeclarations(fields, true))

	if isException {
		body.AddBlock(g.exceptionConstructors(name, allFields, fields, baseFields))
	} else {
		body.AddBlock(g.classConstructors(name, allFields, fields, baseFields))
	}

	typeID := grammar.TypeID(e)
	start := fmt.Sprintf("encoder.StartSlice(%q);", typeID)
	if compactID != nil {
		start = fmt.Sprintf("encoder.StartSlice(%q, compactId: %d);", typeID, *compactID)
	}

	decode := codeblock.New()
	if base != "" {
		decode.Writeln("base.DecodeCore(ref decoder);")
	}
	decode.Writeln("decoder.StartSlice();")
	decode.Write(g.decodeMembers(fields, assignThis, true).String())
	decode.Writeln("")
	decode.Writeln("decoder.EndSlice();")

	encode := codeblock.New()
	if base != "" {
		encode.Writeln("base.EncodeCore(ref encoder);")
	}
	encode.Writeln(start)
	encode.Write(g.encodeMembers(fields, "encoder", thisProperty, true).String())
	encode.Writeln("")
	encode.Writeln("encoder.EndSlice();")

	body.AddBlock("/// <inheritdoc/>\n" + codeblock.Braced("protected override void DecodeCore(ref SliceDecoder decoder)", decode))
	body.AddBlock("/// <inheritdoc/>\n" + codeblock.Braced("protected override void EncodeCore(ref SliceEncoder encoder)", encode))

	out := codeblock.New()
	writeDoc(out, e.Documentation())
	out.Writeln(fmt.Sprintf("[SliceTypeId(%q)]", typeID))
	if compactID != nil {
		out.Writeln(fmt.Sprintf("[CompactSliceTypeId(%d)]", *compactID))
	}
	out.Write(codeblock.Braced(fmt.Sprintf("public partial class %s : %s", name, parent), body))
	return out.String()
}

func (g *generator) classConstructors(name string, allFields, fields, baseFields []grammar.Member) *codeblock.Block {
	b := codeblock.New()
	if len(allFields) > 0 {
		header := fmt.Sprintf("public %s(%s)", name, g.parameterList(allFields))
		if len(baseFields) > 0 {
			header += fmt.Sprintf("\n    : base(%s)", argumentList(baseFields))
		}
		b.AddBlock(fmt.Sprintf("/// <summary>Constructs a new instance of <see cref=\"%s\" />.</summary>\n", name) +
			codeblock.Braced(header, assignFields(fields)))
	}
	b.AddBlock(fmt.Sprintf("/// <summary>Constructs a new instance of <see cref=\"%s\" /> for decoding.</summary>\n", name) +
		codeblock.Braced(fmt.Sprintf("public %s()", name), ""))
	return b
}

func (g *generator) exceptionConstructors(name string, allFields, fields, baseFields []grammar.Member) *codeblock.Block {
	const trailing = "string? message = null, global::System.Exception? innerException = null"
	params := trailing
	if len(allFields) > 0 {
		params = g.parameterList(allFields) + ", " + trailing
	}
	baseArgs := "message, innerException"
	if len(baseFields) > 0 {
		baseArgs = argumentList(baseFields) + ", " + baseArgs
	}

	b := codeblock.New()
	b.AddBlock(fmt.Sprintf("/// <summary>Constructs a new instance of <see cref=\"%s\" />.</summary>\n", name) +
		codeblock.Braced(fmt.Sprintf("public %s(%s)\n    : base(%s)", name, params, baseArgs), assignFields(fields)))
	if len(allFields) > 0 {
		b.AddBlock(fmt.Sprintf("/// <summary>Constructs a new instance of <see cref=\"%s\" /> for decoding.</summary>\n", name) +
			codeblock.Braced(fmt.Sprintf("public %s()", name), ""))
	}
	return b
}

// argumentList renders "a, b" for members passed as constructor arguments.
func argumentList(members []grammar.Member) string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = parameterName(m.Name)
	}
	return strings.Join(names, ", ")
}
