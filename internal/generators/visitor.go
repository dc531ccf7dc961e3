package generators

import (
	"fmt"

	"github.com/IvanVnn/icerpc-csharp/internal/codeblock"
	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

// visit walks the file's entities once, in declaration order, and appends
// the fragment of each selected generator to out. Data types are generated
// for the types unit; proxies then dispatchers for the interfaces unit.
func (g *generator) visit(forInterfaces bool, out *codeblock.Block) {
	for _, e := range g.file.Entities {
		g.entity = grammar.ScopedIdentifier(e)
		switch def := e.(type) {
		case *grammar.Struct:
			if !forInterfaces {
				out.AddBlock(g.generateStruct(def))
			}
		case *grammar.Class:
			if !forInterfaces {
				out.AddBlock(g.generateClass(def))
			}
		case *grammar.Exception:
			if !forInterfaces {
				out.AddBlock(g.generateException(def))
			}
		case *grammar.Enum:
			if !forInterfaces {
				out.AddBlock(g.generateEnum(def))
			}
		case *grammar.Interface:
			if forInterfaces {
				out.AddBlock(g.generateProxy(def))
				out.AddBlock(g.generateDispatch(def))
			}
		default:
			panic(fmt.Sprintf("generators: unhandled entity type %T", e))
		}
	}
	g.entity = ""
}
