package generators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
	"github.com/IvanVnn/icerpc-csharp/internal/testutil"
)

func TestClientInterfaces(t *testing.T) {
	code := generate(t, testutil.GreeterFile(), true)

	assert.Contains(t, code, "/// <summary>Greets people.</summary>\n[SliceTypeId(\"::Hello::Greeter\")]\npublic partial interface IGreeter\n")
	assert.Contains(t, code, "public partial interface ILoudGreeter : IGreeter\n")
	assert.Contains(t, code, "global::System.Threading.Tasks.Task<string> GreetAsync(\n"+
		"        string name,\n"+
		"        global::IceRpc.Features.IFeatureCollection? features = null,\n"+
		"        global::System.Threading.CancellationToken cancellationToken = default);")
	// No return value and no out parameters: an acknowledgement only.
	assert.Contains(t, code, "global::System.Threading.Tasks.Task PingAsync(\n")
	// Return value plus out parameter: a named tuple.
	assert.Contains(t, code, "global::System.Threading.Tasks.Task<(int ReturnValue, string Echo)> ShoutAsync(\n")
}

func TestProxyStruct(t *testing.T) {
	code := generate(t, testutil.GreeterFile(), true)
	proxy := section(t, code, "public readonly partial record struct GreeterProxy")

	assert.Contains(t, proxy, "public readonly partial record struct GreeterProxy : IGreeter, IProxy")
	assert.Contains(t, proxy, "public const string DefaultServicePath = \"/Hello.Greeter\";")
	assert.Contains(t, proxy, "public static global::System.IO.Pipelines.PipeReader EncodeGreet(\n")
	assert.Contains(t, proxy, "encoder.EncodeString(name);")
	assert.Contains(t, proxy, "response.DecodeReturnValueAsync(")
	assert.Contains(t, proxy, "response.DecodeVoidReturnValueAsync(request, sender, cancellationToken);")
	assert.Contains(t, proxy, "this.InvokeOperationAsync(\n"+
		"            \"greet\",\n"+
		"            payload: Request.EncodeGreet(name, encodeOptions: EncodeOptions),\n"+
		"            payloadContinuation: null,\n"+
		"            Response.DecodeGreetAsync,\n"+
		"            features,\n"+
		"            cancellationToken: cancellationToken);")
	assert.Contains(t, proxy, "            idempotent: true,\n")
	assert.NotContains(t, proxy, "ShoutAsync")
}

func TestDerivedProxyImplementsMergedOperations(t *testing.T) {
	code := generate(t, testutil.GreeterFile(), true)
	proxy := section(t, code, "public readonly partial record struct LoudGreeterProxy")

	greet := strings.Index(proxy, "public global::System.Threading.Tasks.Task<string> GreetAsync(")
	ping := strings.Index(proxy, "public global::System.Threading.Tasks.Task PingAsync(")
	shout := strings.Index(proxy, "public global::System.Threading.Tasks.Task<(int ReturnValue, string Echo)> ShoutAsync(")
	require.True(t, greet >= 0 && ping >= 0 && shout >= 0)
	assert.Less(t, greet, ping)
	assert.Less(t, ping, shout)

	assert.Contains(t, proxy, "public static implicit operator GreeterProxy(LoudGreeterProxy proxy) =>")
	assert.Contains(t, proxy, "return (sliceP_returnValue, sliceP_echo);")
}

func TestServiceInterface(t *testing.T) {
	code := generate(t, testutil.GreeterFile(), true)
	service := section(t, code, "public partial interface IGreeterService")

	assert.Contains(t, service, "global::System.Threading.Tasks.ValueTask<string> GreetAsync(\n"+
		"        string name,\n"+
		"        global::IceRpc.Features.IFeatureCollection features,\n"+
		"        global::System.Threading.CancellationToken cancellationToken);")
	assert.Contains(t, service, "request.DecodeArgsAsync(")
	assert.Contains(t, service, "request.DecodeEmptyArgsAsync(cancellationToken);")
	assert.Contains(t, service, "[SliceOperation(\"greet\")]\n    public static async global::System.Threading.Tasks.ValueTask<global::IceRpc.OutgoingResponse> SliceDGreetAsync(")
	assert.Contains(t, service, "var sliceP_name = await Request.DecodeGreetAsync(request, cancellationToken).ConfigureAwait(false);")
	assert.Contains(t, service, "var returnValue = await target.GreetAsync(sliceP_name, request.Features, cancellationToken).ConfigureAwait(false);")
	assert.Contains(t, service, "catch (GreetingError exception)\n        {\n            return request.CreateSliceExceptionResponse(exception);\n        }")
	assert.Equal(t, 1, strings.Count(service, "request.CheckNonIdempotent();"), "only greet is non-idempotent")
	assert.Contains(t, service, "public static class Request\n")
	assert.NotContains(t, service, "ShoutAsync")
}

func TestDerivedServiceHandlesOwnOperations(t *testing.T) {
	code := generate(t, testutil.GreeterFile(), true)
	service := section(t, code, "public partial interface ILoudGreeterService")

	assert.Contains(t, service, "public partial interface ILoudGreeterService : IGreeterService\n")
	assert.Contains(t, service, "public static new class Request\n")
	assert.Contains(t, service, "public static new class Response\n")
	assert.Contains(t, service, "global::System.Threading.Tasks.ValueTask<(int ReturnValue, string Echo)> ShoutAsync(")
	assert.Contains(t, service, "var args = await Request.DecodeShoutAsync(request, cancellationToken).ConfigureAwait(false);")
	assert.Contains(t, service, "target.ShoutAsync(args.Message, args.Times, request.Features, cancellationToken)")
	assert.Contains(t, service, "Payload = Response.EncodeShout(returnValue.ReturnValue, returnValue.Echo, request.GetSliceEncodeOptions()),")
	assert.NotContains(t, service, "SliceDGreetAsync")
	assert.NotContains(t, service, "catch (")
}

func TestDispatcherRoutesMergedSet(t *testing.T) {
	code := generate(t, testutil.GreeterFile(), true)
	dispatcher := section(t, code, "public static class LoudGreeterServiceDispatcher")

	assert.Contains(t, dispatcher, "request.Operation switch\n"+
		"        {\n"+
		"            \"greet\" => IGreeterService.SliceDGreetAsync(target, request, cancellationToken),\n"+
		"            \"ping\" => IGreeterService.SliceDPingAsync(target, request, cancellationToken),\n"+
		"            \"shout\" => ILoudGreeterService.SliceDShoutAsync(target, request, cancellationToken),\n"+
		"            _ => throw new global::IceRpc.DispatchException(global::IceRpc.StatusCode.NotImplemented),\n"+
		"        };")
}

func TestCatchClausesPutDerivedExceptionsFirst(t *testing.T) {
	str := grammar.PrimitiveOf(grammar.String)
	file := &grammar.File{
		Filename: "store",
		Module:   &grammar.Module{Name: "Store"},
		Entities: []grammar.Entity{
			&grammar.Exception{Definition: grammar.Definition{Name: "StoreError", Module: "Store"}},
			&grammar.Exception{Definition: grammar.Definition{Name: "NotFound", Module: "Store"}, Base: "Store::StoreError"},
			&grammar.Interface{
				Definition: grammar.Definition{Name: "Shelf", Module: "Store"},
				Operations: []*grammar.Operation{{
					Name:       "take",
					Interface:  "Store::Shelf",
					Parameters: []grammar.Parameter{{Member: grammar.Member{Name: "item", Type: str}}},
					Raises:     []string{"Store::StoreError", "Store::NotFound"},
				}},
			},
		},
	}
	code, err := GenerateFile(file, grammar.MustDefinitions(file), true, DefaultOptions())
	require.NoError(t, err)

	derived := strings.Index(code, "catch (NotFound exception)")
	base := strings.Index(code, "catch (StoreError exception)")
	require.True(t, derived >= 0 && base >= 0)
	assert.Less(t, derived, base)
}

func TestRaisesMustNameExceptions(t *testing.T) {
	file := &grammar.File{
		Filename: "bad",
		Module:   &grammar.Module{Name: "Bad"},
		Entities: []grammar.Entity{
			&grammar.Struct{Definition: grammar.Definition{Name: "NotAnError", Module: "Bad"}},
			&grammar.Interface{
				Definition: grammar.Definition{Name: "Svc", Module: "Bad"},
				Operations: []*grammar.Operation{{Name: "op", Interface: "Bad::Svc", Raises: []string{"Bad::NotAnError"}}},
			},
		},
	}
	_, err := GenerateFile(file, grammar.MustDefinitions(file), true, DefaultOptions())
	require.Error(t, err)
	assert.True(t, IsGenerateError(err))
}

func TestParameterNamesDoNotClashWithGeneratedNames(t *testing.T) {
	str := grammar.PrimitiveOf(grammar.String)
	file := &grammar.File{
		Filename: "mail",
		Module:   &grammar.Module{Name: "Mail"},
		Entities: []grammar.Entity{
			&grammar.Interface{
				Definition: grammar.Definition{Name: "Outbox", Module: "Mail"},
				Operations: []*grammar.Operation{
					{
						Name:      "send",
						Interface: "Mail::Outbox",
						Parameters: []grammar.Parameter{
							{Member: grammar.Member{Name: "encoder", Type: str}},
							{Member: grammar.Member{Name: "features", Type: str}},
						},
					},
					{
						Name:       "store",
						Interface:  "Mail::Outbox",
						Parameters: []grammar.Parameter{{Member: grammar.Member{Name: "encoder", Type: str.AsOptional()}}},
					},
				},
			},
		},
	}
	code, err := GenerateFile(file, grammar.MustDefinitions(file), true, DefaultOptions())
	require.NoError(t, err)

	assert.Contains(t, code, "global::System.Threading.Tasks.Task SendAsync(\n"+
		"        string encoder,\n"+
		"        string features,\n"+
		"        global::IceRpc.Features.IFeatureCollection? features_ = null,\n"+
		"        global::System.Threading.CancellationToken cancellationToken = default);")
	assert.Contains(t, code, "var encoder_ = new SliceEncoder(pipe_.Writer);")
	assert.Contains(t, code, "encoder_.EncodeString(encoder);")
	assert.Contains(t, code, "encoder_.EncodeString(features);")
	assert.Contains(t, code, "encoder_.EncodeVarInt32(Slice2Definitions.TagEndMarker);")
	assert.Contains(t, code, "payload: Request.EncodeSend(encoder, features, encodeOptions: EncodeOptions),")
	assert.Contains(t, code, "            features_,\n")

	// The optional value is bound to encoder_, so the encoder moves on.
	assert.Contains(t, code, "var encoder__ = new SliceEncoder(pipe_.Writer);")
	assert.Contains(t, code, "var bitSequenceWriter = encoder__.GetBitSequenceWriter(1);")
	assert.Contains(t, code, "if (encoder is {} encoder_)")
	assert.Contains(t, code, "encoder__.EncodeString(encoder_);")

	service := section(t, code, "public partial interface IOutboxService")
	assert.Contains(t, service, "        string features,\n"+
		"        global::IceRpc.Features.IFeatureCollection features_,\n"+
		"        global::System.Threading.CancellationToken cancellationToken);")
}

func TestParameterNamesMustStayDistinctInCSharp(t *testing.T) {
	i32 := grammar.PrimitiveOf(grammar.Int32)
	file := &grammar.File{
		Filename: "shapes",
		Module:   &grammar.Module{Name: "Shapes"},
		Entities: []grammar.Entity{
			&grammar.Interface{
				Definition: grammar.Definition{Name: "Canvas", Module: "Shapes"},
				Operations: []*grammar.Operation{{
					Name:      "resize",
					Interface: "Shapes::Canvas",
					Parameters: []grammar.Parameter{
						{Member: grammar.Member{Name: "max_size", Type: i32}},
						{Member: grammar.Member{Name: "maxSize", Type: i32}},
					},
				}},
			},
		},
	}
	_, err := GenerateFile(file, grammar.MustDefinitions(file), true, DefaultOptions())
	require.Error(t, err)
	assert.True(t, IsGenerateError(err))
	assert.Contains(t, err.Error(), `both map to C# name "maxSize"`)
}

func TestDiamondInheritance(t *testing.T) {
	op := func(name, iface string) *grammar.Operation {
		return &grammar.Operation{Name: name, Interface: "Shapes::" + iface}
	}
	iface := func(name string, op *grammar.Operation, bases ...string) *grammar.Interface {
		return &grammar.Interface{
			Definition: grammar.Definition{Name: name, Module: "Shapes"},
			Bases:      bases,
			Operations: []*grammar.Operation{op},
		}
	}
	file := &grammar.File{
		Filename: "shapes",
		Module:   &grammar.Module{Name: "Shapes"},
		Entities: []grammar.Entity{
			iface("Base", op("ping", "Base")),
			iface("Left", op("left", "Left"), "Shapes::Base"),
			iface("Right", op("right", "Right"), "Shapes::Base"),
			iface("Bottom", op("bottom", "Bottom"), "Shapes::Left", "Shapes::Right"),
		},
	}
	code, err := GenerateFile(file, grammar.MustDefinitions(file), true, DefaultOptions())
	require.NoError(t, err)

	assert.Contains(t, code, "public partial interface IBottom : ILeft, IRight\n")

	proxy := section(t, code, "public readonly partial record struct BottomProxy")
	for _, base := range []string{"LeftProxy", "RightProxy", "BaseProxy"} {
		assert.Equal(t, 1, strings.Count(proxy, "public static implicit operator "+base+"(BottomProxy proxy)"), base)
	}
	assert.Equal(t, 1, strings.Count(proxy, "public global::System.Threading.Tasks.Task PingAsync("))

	service := section(t, code, "public partial interface IBottomService")
	assert.Contains(t, service, "public partial interface IBottomService : ILeftService, IRightService\n")
	assert.Contains(t, service, "public static new class Request\n")
	assert.Contains(t, service, "public static new class Response\n")
	assert.Contains(t, section(t, code, "public partial interface IBaseService"), "public static class Request\n")

	dispatcher := section(t, code, "public static class BottomServiceDispatcher")
	assert.Equal(t, 1, strings.Count(dispatcher, "\"ping\" => IBaseService.SliceDPingAsync(target, request, cancellationToken),"))
	assert.Contains(t, dispatcher, "\"left\" => ILeftService.SliceDLeftAsync(")
	assert.Contains(t, dispatcher, "\"right\" => IRightService.SliceDRightAsync(")
	assert.Contains(t, dispatcher, "\"bottom\" => IBottomService.SliceDBottomAsync(")
	assert.Equal(t, 5, strings.Count(dispatcher, " => "))
}
