package generators

import (
	"fmt"
	"strings"

	"github.com/IvanVnn/icerpc-csharp/internal/codeblock"
	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

// generateProxy emits the client side of an interface: the I<Name> client
// interface declaring the interface's own operations, and the <Name>Proxy
// record struct implementing the merged operation set over an IInvoker.
func (g *generator) generateProxy(i *grammar.Interface) string {
	for _, op := range i.Operations {
		g.checkParameterNames(op)
	}
	ops := g.mergedOperations(i)
	bases := g.baseInterfaces(i)

	out := codeblock.New()
	out.AddBlock(g.clientInterface(i))
	out.AddBlock(g.proxyStruct(i, ops, bases))
	return out.String()
}

func (g *generator) clientInterface(i *grammar.Interface) string {
	header := "public partial interface I" + i.Name
	if len(i.Bases) > 0 {
		names := make([]string, len(i.Bases))
		for k, id := range i.Bases {
			base := g.lookup(id)
			names[k] = g.qualify(base.Scope(), "I"+base.EntityName())
		}
		header += " : " + strings.Join(names, ", ")
	}

	body := codeblock.New()
	for _, op := range i.Operations {
		decl := codeblock.New()
		writeDoc(decl, op.Doc)
		decl.Write(g.proxyMethodSignature(op) + ";")
		body.AddBlock(decl)
	}

	out := codeblock.New()
	writeDoc(out, i.Doc)
	out.Writeln(fmt.Sprintf("[SliceTypeId(%q)]", grammar.TypeID(i)))
	out.Write(codeblock.Braced(header, body))
	return out.String()
}

func (g *generator) proxyMethodSignature(op *grammar.Operation) string {
	inputs := op.Inputs()
	params := append(g.memberParams(inputs),
		csFeatureCollection+"? "+escapeName(inputs, "features")+" = null",
		csCancellationToken+" "+escapeName(inputs, "cancellationToken")+" = default")
	result := taskOf(csTask, g.tupleOrSingle(op.Outputs(), true))
	return fmt.Sprintf("%s %s(\n%s)", result, operationMethod(op.Name), paramLines(params))
}

func (g *generator) proxyStruct(i *grammar.Interface, ops []*grammar.Operation, bases []*grammar.Interface) string {
	name := i.Name + "Proxy"
	path := "/" + grammar.NamespaceOf(grammar.ScopedIdentifier(i))

	body := codeblock.New()
	body.AddBlock(fmt.Sprintf(
		"/// <summary>Gets the default service path for services that implement Slice interface <c>%s</c>.</summary>\n"+
			"public const string DefaultServicePath = %q;", i.Name, path))
	body.AddBlock("private static readonly global::IceRpc.ServiceAddress _defaultServiceAddress =\n" +
		"    new(global::IceRpc.Protocol.IceRpc) { Path = DefaultServicePath };")
	body.AddBlock("/// <summary>Gets or initializes the encode options, used to customize the encoding of payloads.</summary>\n" +
		"public SliceEncodeOptions? EncodeOptions { get; init; }")
	body.AddBlock("/// <summary>Gets or initializes the invoker of this proxy.</summary>\n" +
		"public required global::IceRpc.IInvoker Invoker { get; init; }")
	body.AddBlock("/// <summary>Gets or initializes the address of the remote service.</summary>\n" +
		"public global::IceRpc.ServiceAddress ServiceAddress { get; init; } = _defaultServiceAddress;")

	for _, base := range bases {
		baseType := g.entityType(base)
		body.AddBlock(fmt.Sprintf(
			"/// <summary>Provides an implicit conversion to <see cref=\"%s\" />.</summary>\n"+
				"public static implicit operator %s(%s proxy) =>\n"+
				"    new() { EncodeOptions = proxy.EncodeOptions, Invoker = proxy.Invoker, ServiceAddress = proxy.ServiceAddress };",
			baseType, baseType, name))
	}

	request := codeblock.New()
	response := codeblock.New()
	for _, op := range ops {
		request.AddBlock(g.encodePayloadMethod(op, op.Inputs(), "arguments"))
		response.AddBlock(g.responseDecodeMethod(op, name))
	}
	body.AddBlock("/// <summary>Provides static methods that encode operation arguments into request payloads.</summary>\n" +
		codeblock.Braced("public static class Request", request))
	body.AddBlock("/// <summary>Provides static methods that decode response payloads.</summary>\n" +
		codeblock.Braced("public static class Response", response))

	for _, op := range ops {
		body.AddBlock(g.proxyMethod(op))
	}

	interfaces := []string{"I" + i.Name, "IProxy"}
	out := codeblock.New()
	out.Writeln(fmt.Sprintf("/// <summary>Implements <see cref=\"I%s\" /> by making invocations on a remote IceRPC service.</summary>", i.Name))
	out.Write(codeblock.Braced(
		fmt.Sprintf("public readonly partial record struct %s : %s", name, strings.Join(interfaces, ", ")),
		body))
	return out.String()
}

func (g *generator) responseDecodeMethod(op *grammar.Operation, proxyName string) string {
	outputs := op.Outputs()
	result := g.tupleOrSingle(outputs, true)
	params := paramLines([]string{
		csIncomingResponse + " response",
		csOutgoingRequest + " request",
		proxyName + " sender",
		csCancellationToken + " cancellationToken",
	})
	signature := fmt.Sprintf("public static %s Decode%sAsync(\n%s) =>",
		taskOf(csValueTask, result), pascalCase(op.Name), params)

	var call string
	if len(outputs) == 0 {
		call = "response.DecodeVoidReturnValueAsync(request, sender, cancellationToken);"
	} else {
		call = fmt.Sprintf("response.DecodeReturnValueAsync(\n%s,\n%s,\n%s,\n%s);",
			indentArg("request"), indentArg("sender"),
			indentArg(g.decodePayloadLambda(outputs)), indentArg("cancellationToken"))
	}
	return fmt.Sprintf("/// <summary>Decodes the response payload of operation <c>%s</c>.</summary>\n", op.Name) +
		signature + "\n" + codeblock.Indent(call)
}

func (g *generator) proxyMethod(op *grammar.Operation) string {
	inputs := op.Inputs()
	args := make([]string, 0, len(inputs)+1)
	for _, m := range inputs {
		args = append(args, parameterName(m.Name))
	}
	args = append(args, escapeName(inputs, "encodeOptions")+": EncodeOptions")

	invoke := []string{
		fmt.Sprintf("%q", op.Name),
		fmt.Sprintf("payload: Request.Encode%s(%s)", pascalCase(op.Name), strings.Join(args, ", ")),
		"payloadContinuation: null",
		fmt.Sprintf("Response.Decode%sAsync", pascalCase(op.Name)),
		escapeName(inputs, "features"),
	}
	if op.Idempotent {
		invoke = append(invoke, "idempotent: true")
	}
	invoke = append(invoke, "cancellationToken: "+escapeName(inputs, "cancellationToken"))

	return "/// <inheritdoc/>\n" +
		"public " + g.proxyMethodSignature(op) + " =>\n" +
		codeblock.Indent(fmt.Sprintf("this.InvokeOperationAsync(\n%s);", paramLines(invoke)))
}
