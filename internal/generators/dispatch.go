package generators

import (
	"fmt"
	"strings"

	"github.com/IvanVnn/icerpc-csharp/internal/codeblock"
	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

// generateDispatch emits the server side of an interface: the I<Name>Service
// interface with one abstract hook and one handler per own operation, and a
// <Name>ServiceDispatcher that routes requests over the merged operation set.
// Unknown operation names fail with DispatchException(NotImplemented).
func (g *generator) generateDispatch(i *grammar.Interface) string {
	out := codeblock.New()
	out.AddBlock(g.serviceInterface(i))
	out.AddBlock(g.serviceDispatcher(i, g.mergedOperations(i)))
	return out.String()
}

func serviceName(name string) string {
	return "I" + name + "Service"
}

func (g *generator) serviceInterface(i *grammar.Interface) string {
	header := "public partial interface " + serviceName(i.Name)
	if len(i.Bases) > 0 {
		names := make([]string, len(i.Bases))
		for k, id := range i.Bases {
			base := g.lookup(id)
			names[k] = g.qualify(base.Scope(), serviceName(base.EntityName()))
		}
		header += " : " + strings.Join(names, ", ")
	}

	request := codeblock.New()
	response := codeblock.New()
	for _, op := range i.Operations {
		request.AddBlock(g.requestDecodeMethod(op))
		response.AddBlock(g.encodePayloadMethod(op, op.Outputs(), "return value"))
	}

	// Nested classes of a derived interface hide those of its bases.
	modifiers := "public static "
	for _, base := range g.baseInterfaces(i) {
		if len(base.Operations) > 0 {
			modifiers += "new "
			break
		}
	}
	body := codeblock.New()
	if len(i.Operations) > 0 {
		body.AddBlock("/// <summary>Provides static methods that decode request payloads.</summary>\n" +
			codeblock.Braced(modifiers+"class Request", request))
		body.AddBlock("/// <summary>Provides static methods that encode return values into response payloads.</summary>\n" +
			codeblock.Braced(modifiers+"class Response", response))
	}
	for _, op := range i.Operations {
		body.AddBlock(g.serviceHook(op))
	}
	for _, op := range i.Operations {
		body.AddBlock(g.operationHandler(i, op))
	}

	out := codeblock.New()
	writeDoc(out, i.Doc)
	out.Writeln(fmt.Sprintf("[SliceTypeId(%q)]", grammar.TypeID(i)))
	out.Write(codeblock.Braced(header, body))
	return out.String()
}

func (g *generator) requestDecodeMethod(op *grammar.Operation) string {
	inputs := op.Inputs()
	params := paramLines([]string{
		csIncomingRequest + " request",
		csCancellationToken + " cancellationToken",
	})
	signature := fmt.Sprintf("public static %s Decode%sAsync(\n%s) =>",
		taskOf(csValueTask, g.tupleOrSingle(inputs, true)), pascalCase(op.Name), params)

	var call string
	if len(inputs) == 0 {
		call = "request.DecodeEmptyArgsAsync(cancellationToken);"
	} else {
		call = fmt.Sprintf("request.DecodeArgsAsync(\n%s,\n%s);",
			indentArg(g.decodePayloadLambda(inputs)), indentArg("cancellationToken"))
	}
	return fmt.Sprintf("/// <summary>Decodes the arguments of operation <c>%s</c>.</summary>\n", op.Name) +
		signature + "\n" + codeblock.Indent(call)
}

// serviceHook is the method the application implements for an operation.
func (g *generator) serviceHook(op *grammar.Operation) string {
	inputs := op.Inputs()
	params := make([]string, 0, len(inputs)+2)
	for _, m := range inputs {
		params = append(params, g.csDecodedType(m.Type)+" "+parameterName(m.Name))
	}
	params = append(params,
		csFeatureCollection+" "+escapeName(inputs, "features"),
		csCancellationToken+" "+escapeName(inputs, "cancellationToken"))

	b := codeblock.New()
	writeDoc(b, op.Doc)
	b.Write(fmt.Sprintf("%s %s(\n%s);",
		taskOf(csValueTask, g.tupleOrSingle(op.Outputs(), false)), operationMethod(op.Name), paramLines(params)))
	return b.String()
}

func handlerName(op *grammar.Operation) string {
	return "SliceD" + operationMethod(op.Name)
}

// operationHandler decodes the arguments, calls the hook and encodes the
// result. Only exceptions from the raises-list become application-error
// responses; anything else propagates to the dispatch pipeline.
func (g *generator) operationHandler(i *grammar.Interface, op *grammar.Operation) string {
	inputs, outputs := op.Inputs(), op.Outputs()

	body := codeblock.New()
	if !op.Idempotent {
		body.Writeln("request.CheckNonIdempotent();")
	}

	decodeCall := fmt.Sprintf("await Request.Decode%sAsync(request, cancellationToken).ConfigureAwait(false);", pascalCase(op.Name))
	var args []string
	switch len(inputs) {
	case 0:
		body.Writeln(decodeCall)
	case 1:
		local := localName(decodedParamPrefix, inputs[0].Name)
		body.Writeln("var " + local + " = " + decodeCall)
		args = append(args, local)
	default:
		body.Writeln("var args = " + decodeCall)
		for _, m := range inputs {
			args = append(args, "args."+pascalCase(m.Name))
		}
	}
	args = append(args, "request.Features", "cancellationToken")

	call := fmt.Sprintf("target.%s(%s).ConfigureAwait(false);", operationMethod(op.Name), strings.Join(args, ", "))
	invoke := codeblock.New()
	var encodeArgs []string
	switch len(outputs) {
	case 0:
		invoke.Writeln("await " + call)
	case 1:
		invoke.Writeln("var returnValue = await " + call)
		encodeArgs = append(encodeArgs, "returnValue")
	default:
		invoke.Writeln("var returnValue = await " + call)
		for _, m := range outputs {
			encodeArgs = append(encodeArgs, "returnValue."+pascalCase(m.Name))
		}
	}
	encodeArgs = append(encodeArgs, "request.GetSliceEncodeOptions()")
	invoke.Write(codeblock.Braced(
		"return new "+csOutgoingResponse+"(request)",
		fmt.Sprintf("Payload = Response.Encode%s(%s),", pascalCase(op.Name), strings.Join(encodeArgs, ", "))) + ";")

	raises := g.raisesInCatchOrder(op)
	if len(raises) == 0 {
		body.AddBlock(invoke)
	} else {
		tryCatch := codeblock.New()
		tryCatch.Writeln(codeblock.Braced("try", invoke))
		for _, ex := range raises {
			tryCatch.Writeln(codeblock.Braced(
				fmt.Sprintf("catch (%s exception)", g.entityType(ex)),
				"return request.CreateSliceExceptionResponse(exception);"))
		}
		body.AddBlock(tryCatch)
	}

	params := paramLines([]string{
		serviceName(i.Name) + " target",
		csIncomingRequest + " request",
		csCancellationToken + " cancellationToken",
	})
	return fmt.Sprintf("[SliceOperation(%q)]\n", op.Name) +
		codeblock.Braced(
			fmt.Sprintf("public static async %s %s(\n%s)", taskOf(csValueTask, csOutgoingResponse), handlerName(op), params),
			body)
}

// serviceDispatcher routes a request to the handler of the operation it
// names. Inherited operations are routed to the handler declared by the base
// service interface.
func (g *generator) serviceDispatcher(i *grammar.Interface, ops []*grammar.Operation) string {
	arms := codeblock.New()
	for _, op := range ops {
		declaring := g.lookup(op.Interface)
		owner := g.qualify(declaring.Scope(), serviceName(declaring.EntityName()))
		arms.Writeln(fmt.Sprintf("%q => %s.%s(target, request, cancellationToken),", op.Name, owner, handlerName(op)))
	}
	arms.Writeln(fmt.Sprintf("_ => throw new %s(%s),", csDispatchException, csNotImplemented))

	params := paramLines([]string{
		serviceName(i.Name) + " target",
		csIncomingRequest + " request",
		csCancellationToken + " cancellationToken = default",
	})
	method := fmt.Sprintf("/// <summary>Dispatches a request to the operation it names.</summary>\n"+
		"public static %s DispatchAsync(\n%s) =>\n%s",
		taskOf(csValueTask, csOutgoingResponse), params,
		codeblock.Indent(codeblock.Braced("request.Operation switch", arms)+";"))

	return fmt.Sprintf("/// <summary>Routes requests to an implementation of <see cref=\"%s\" />.</summary>\n", serviceName(i.Name)) +
		codeblock.Braced(fmt.Sprintf("public static class %sServiceDispatcher", i.Name), method)
}
