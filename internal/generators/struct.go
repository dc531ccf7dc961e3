package generators

import (
	"fmt"

	"github.com/IvanVnn/icerpc-csharp/internal/codeblock"
	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

// generateStruct emits a record struct with one property per field, an
// all-fields constructor, a decoding constructor and an Encode method.
func (g *generator) generateStruct(s *grammar.Struct) string {
	if s.Compact {
		for _, f := range s.Fields {
			if f.IsTagged() {
				g.fail("compact struct cannot have tagged field %q", f.Name)
			}
		}
	}
	name := escapeKeyword(s.Name)

	body := codeblock.New()
	body.AddBlock(g.fieldDeclarations(s.Fields, false))

	if len(s.Fields) > 0 {
		ctor := codeblock.New()
		ctor.Writeln(fmt.Sprintf("/// <summary>Constructs a new instance of <see cref=\"%s\" />.</summary>", name))
		ctor.Write(codeblock.Braced(
			fmt.Sprintf("public %s(%s)", name, g.parameterList(s.Fields)),
			assignFields(s.Fields)))
		body.AddBlock(ctor)
	}

	decode := codeblock.New()
	decode.Writeln(fmt.Sprintf("/// <summary>Constructs a new instance of <see cref=\"%s\" /> and decodes its fields from a Slice decoder.</summary>", name))
	decode.Writeln("/// <param name=\"decoder\">The Slice decoder.</param>")
	decode.Write(codeblock.Braced(
		fmt.Sprintf("public %s(ref SliceDecoder decoder)", name),
		g.decodeMembers(s.Fields, assignThis, !s.Compact)))
	body.AddBlock(decode)

	encode := codeblock.New()
	encode.Writeln("/// <summary>Encodes the fields of this struct with a Slice encoder.</summary>")
	encode.Writeln("/// <param name=\"encoder\">The Slice encoder.</param>")
	encode.Write(codeblock.Braced(
		"public readonly void Encode(ref SliceEncoder encoder)",
		g.encodeMembers(s.Fields, "encoder", thisProperty, !s.Compact)))
	body.AddBlock(encode)

	out := codeblock.New()
	writeDoc(out, s.Doc)
	out.Write(codeblock.Braced("public partial record struct "+name, body))
	return out.String()
}
