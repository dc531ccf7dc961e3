package generators

import (
	"fmt"
	"sort"

	"github.com/IvanVnn/icerpc-csharp/internal/codeblock"
	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

// Member layout shared by structs, class and exception slices, and operation
// parameter lists:
//
//  1. one bit sequence covering every non-tagged optional member
//  2. non-tagged members in declaration order
//  3. tagged members in tag order, each as tag + size + payload
//  4. the tag-end marker, unless the container is compact

func splitMembers(members []grammar.Member) (plain, tagged []grammar.Member, optionals int) {
	for _, m := range members {
		if m.IsTagged() {
			tagged = append(tagged, m)
			continue
		}
		plain = append(plain, m)
		if m.Type.Optional {
			optionals++
		}
	}
	sort.SliceStable(tagged, func(i, j int) bool { return *tagged[i].Tag < *tagged[j].Tag })
	return plain, tagged, optionals
}

// encodeMembers writes the statements encoding members with the variable
// encoder. access returns the C# expression holding a member's value.
func (g *generator) encodeMembers(members []grammar.Member, encoder string, access func(grammar.Member) string, terminated bool) *codeblock.Block {
	plain, tagged, optionals := splitMembers(members)
	bits := escapeName(members, "bitSequenceWriter")
	b := codeblock.New()

	if optionals > 0 {
		b.Writeln(fmt.Sprintf("var %s = %s.GetBitSequenceWriter(%d);", bits, encoder, optionals))
	}
	for _, m := range plain {
		value := access(m)
		if !m.Type.Optional {
			b.Writeln(g.encodeExpr(m.Type, value, encoder, 0) + ";")
			continue
		}
		local := camelCase(m.Name) + "_"
		b.Writeln(fmt.Sprintf("%s.Write(%s is not null);", bits, value))
		b.Writeln(codeblock.Braced(
			fmt.Sprintf("if (%s is {} %s)", value, local),
			g.encodeExpr(m.Type.AsRequired(), local, encoder, 0)+";"))
	}
	for _, m := range tagged {
		if !m.Type.Optional {
			g.fail("tagged member %q must be optional", m.Name)
		}
		value := access(m)
		local := camelCase(m.Name) + "_"
		b.Writeln(codeblock.Braced(
			fmt.Sprintf("if (%s is {} %s)", value, local),
			fmt.Sprintf("%s.EncodeTagged(\n%s,\n%s,\n%s);",
				encoder,
				indentArg(fmt.Sprint(*m.Tag)),
				indentArg(local),
				indentArg(g.encodeLambda(m.Type.AsRequired(), 1)))))
	}
	if terminated {
		b.Writeln(encoder + ".EncodeVarInt32(Slice2Definitions.TagEndMarker);")
	}
	return b
}

// decodeMembers writes the statements decoding members with the variable
// "decoder". assign returns the left-hand side receiving a member, e.g.
// "this.X = " or "var sliceP_x = ".
func (g *generator) decodeMembers(members []grammar.Member, assign func(grammar.Member) string, terminated bool) *codeblock.Block {
	plain, tagged, optionals := splitMembers(members)
	b := codeblock.New()

	if optionals > 0 {
		b.Writeln(fmt.Sprintf("var bitSequenceReader = decoder.GetBitSequenceReader(%d);", optionals))
	}
	for _, m := range plain {
		if !m.Type.Optional {
			b.Writeln(assign(m) + g.decodeExpr(m.Type, "decoder", 0) + ";")
			continue
		}
		b.Writeln(fmt.Sprintf("%sbitSequenceReader.Read()\n%s\n%s;",
			assign(m),
			indentArg("? "+g.decodeExpr(m.Type.AsRequired(), "decoder", 0)),
			indentArg(": null")))
	}
	for _, m := range tagged {
		b.Writeln(fmt.Sprintf("%sdecoder.DecodeTagged(\n%s,\n%s);",
			assign(m),
			indentArg(fmt.Sprint(*m.Tag)),
			indentArg(fmt.Sprintf("(ref SliceDecoder decoder1) => (%s)%s",
				g.csType(m.Type), g.decodeExpr(m.Type.AsRequired(), "decoder1", 1)))))
	}
	if terminated {
		b.Writeln("decoder.SkipTagged();")
	}
	return b
}

// fieldDeclarations declares one property per field.
func (g *generator) fieldDeclarations(fields []grammar.Member, initialize bool) *codeblock.Block {
	b := codeblock.New()
	for _, f := range fields {
		decl := codeblock.New()
		writeDoc(decl, f.Doc)
		line := fmt.Sprintf("public %s %s { get; set; }", g.csType(f.Type), propertyName(f.Name))
		if initialize && !f.Type.Optional && !g.isValueType(f.Type) {
			line += " = default!;"
		}
		decl.Writeln(line)
		b.AddBlock(decl)
	}
	return b
}

// assignFields copies constructor parameters into properties.
func assignFields(fields []grammar.Member) *codeblock.Block {
	b := codeblock.New()
	for _, f := range fields {
		b.Writeln(fmt.Sprintf("this.%s = %s;", propertyName(f.Name), parameterName(f.Name)))
	}
	return b
}

func thisProperty(m grammar.Member) string {
	return "this." + propertyName(m.Name)
}

func assignThis(m grammar.Member) string {
	return "this." + propertyName(m.Name) + " = "
}

// parameterList renders "T1 a, T2 b" for members.
func (g *generator) parameterList(members []grammar.Member) string {
	var s string
	for i, m := range members {
		if i > 0 {
			s += ", "
		}
		s += g.csType(m.Type) + " " + parameterName(m.Name)
	}
	return s
}

// writeDoc emits a /// summary for doc, if any.
func writeDoc(b *codeblock.Block, doc string) {
	if doc == "" {
		return
	}
	b.Writeln("/// <summary>" + doc + "</summary>")
}
