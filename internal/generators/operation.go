package generators

import (
	"fmt"
	"sort"
	"strings"

	"github.com/IvanVnn/icerpc-csharp/internal/codeblock"
	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

const (
	csTask              = "global::System.Threading.Tasks.Task"
	csValueTask         = "global::System.Threading.Tasks.ValueTask"
	csCancellationToken = "global::System.Threading.CancellationToken"
	csFeatureCollection = "global::IceRpc.Features.IFeatureCollection"
	csPipeReader        = "global::System.IO.Pipelines.PipeReader"
	csPipe              = "global::System.IO.Pipelines.Pipe"
	csIncomingRequest   = "global::IceRpc.IncomingRequest"
	csIncomingResponse  = "global::IceRpc.IncomingResponse"
	csOutgoingRequest   = "global::IceRpc.OutgoingRequest"
	csOutgoingResponse  = "global::IceRpc.OutgoingResponse"
	csDispatchException = "global::IceRpc.DispatchException"
	csNotImplemented    = "global::IceRpc.StatusCode.NotImplemented"
	decodedParamPrefix  = "sliceP_"
)

// mergedOperations returns the operation set of an interface including
// every base's operations, or fails.
func (g *generator) mergedOperations(i *grammar.Interface) []*grammar.Operation {
	ops, err := g.defs.AllOperations(i)
	if err != nil {
		g.fail("%v", err)
	}
	return ops
}

// tupleOrSingle renders the C# type carrying members: "" for none, the
// member type for one, a named tuple otherwise.
func (g *generator) tupleOrSingle(members []grammar.Member, decoded bool) string {
	typeOf := g.csType
	if decoded {
		typeOf = g.csDecodedType
	}
	switch len(members) {
	case 0:
		return ""
	case 1:
		return typeOf(members[0].Type)
	}
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = typeOf(m.Type) + " " + pascalCase(m.Name)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// taskOf wraps a result type in a task type; void results use the bare task.
func taskOf(task, result string) string {
	if result == "" {
		return task
	}
	return task + "<" + result + ">"
}

// paramLines renders one parameter per line for multi-line signatures.
func paramLines(params []string) string {
	return indentArg(strings.Join(params, ",\n"))
}

func (g *generator) memberParams(members []grammar.Member) []string {
	params := make([]string, len(members))
	for i, m := range members {
		params[i] = g.csType(m.Type) + " " + parameterName(m.Name)
	}
	return params
}

// encodePayloadMethod emits a static method encoding members into a new
// payload, as used by Request.Encode<Op> on proxies and Response.Encode<Op>
// on services.
func (g *generator) encodePayloadMethod(op *grammar.Operation, members []grammar.Member, what string) string {
	options := escapeName(members, "encodeOptions")
	pipe := escapeName(members, "pipe_")
	encoder := escapeName(members, "encoder")
	params := append(g.memberParams(members), "SliceEncodeOptions? "+options+" = null")

	body := codeblock.New()
	body.Writeln(fmt.Sprintf("var %s = new %s(", pipe, csPipe))
	body.Writeln(indentArg(options + "?.PipeOptions ?? SliceEncodeOptions.Default.PipeOptions);"))
	body.Writeln(fmt.Sprintf("var %s = new SliceEncoder(%s.Writer);", encoder, pipe))
	body.AddBlock(g.encodeMembers(members, encoder, func(m grammar.Member) string { return parameterName(m.Name) }, true))
	body.AddBlock(fmt.Sprintf("%s.Writer.Complete();\nreturn %s.Reader;", pipe, pipe))

	return fmt.Sprintf("/// <summary>Encodes the %s of operation <c>%s</c> into a payload.</summary>\n", what, op.Name) +
		codeblock.Braced(
			fmt.Sprintf("public static %s Encode%s(\n%s)", csPipeReader, pascalCase(op.Name), paramLines(params)),
			body)
}

// decodePayloadLambda emits a payload decoder lambda: decode members into
// locals, skip unknown tagged members and return them.
func (g *generator) decodePayloadLambda(members []grammar.Member) string {
	body := g.decodeMembers(members, func(m grammar.Member) string {
		return "var " + localName(decodedParamPrefix, m.Name) + " = "
	}, true)
	switch len(members) {
	case 0:
	case 1:
		body.Writeln("return " + localName(decodedParamPrefix, members[0].Name) + ";")
	default:
		locals := make([]string, len(members))
		for i, m := range members {
			locals[i] = localName(decodedParamPrefix, m.Name)
		}
		body.Writeln("return (" + strings.Join(locals, ", ") + ");")
	}
	return codeblock.Braced("(ref SliceDecoder decoder) =>", body)
}

// checkParameterNames fails when two parameters of op map to the same C#
// name, e.g. "max_size" and "maxSize".
func (g *generator) checkParameterNames(op *grammar.Operation) {
	for _, members := range [][]grammar.Member{op.Inputs(), op.Outputs()} {
		seen := make(map[string]string, len(members))
		for _, m := range members {
			name := camelCase(m.Name)
			if prev, ok := seen[name]; ok {
				g.fail("parameters %q and %q of operation %q both map to C# name %q", prev, m.Name, op.Name, name)
			}
			seen[name] = m.Name
		}
	}
}

// raisesInCatchOrder returns the raises-list, most derived exceptions first,
// so that no catch clause is shadowed by an earlier one.
func (g *generator) raisesInCatchOrder(op *grammar.Operation) []grammar.Entity {
	var excs []grammar.Entity
	depth := make(map[grammar.Entity]int)
	for _, id := range op.Raises {
		e := g.lookup(id)
		if e.Kind() != grammar.KindException {
			g.fail("operation %q raises %q, which is a %s", op.Name, id, e.Kind())
		}
		chain, err := g.defs.BaseChain(e)
		if err != nil {
			g.fail("%v", err)
		}
		depth[e] = len(chain)
		excs = append(excs, e)
	}
	sort.SliceStable(excs, func(i, j int) bool { return depth[excs[i]] > depth[excs[j]] })
	return excs
}

// baseInterfaces returns every interface i inherits from, transitively, in
// depth-first declaration order without duplicates.
func (g *generator) baseInterfaces(i *grammar.Interface) []*grammar.Interface {
	var out []*grammar.Interface
	seen := make(map[string]bool)
	var walk func(*grammar.Interface)
	walk = func(cur *grammar.Interface) {
		for _, id := range cur.Bases {
			base, ok := g.lookup(id).(*grammar.Interface)
			if !ok {
				g.fail("base %q of %s is not an interface", id, cur.Name)
			}
			key := grammar.ScopedIdentifier(base)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, base)
			walk(base)
		}
	}
	walk(i)
	return out
}
