// Package generators turns validated Slice definitions into C# source.
//
// GenerateFile is the entry point. It writes the file preamble, then walks the
// file's entities once in declaration order and hands each one to the
// generator for its kind:
//
//   - struct, class, exception and enum generators run for the types unit
//     (<file>.cs)
//   - proxy and dispatch generators run for the interfaces unit
//     (<file>.IceRpc.cs)
//
// Every generator returns a self-contained fragment; fragments are joined by
// codeblock.Block with one blank line between them. Generation is a pure
// function of the file, the definitions arena and the options, so files can
// be generated concurrently.
//
// The generated code targets the IceRPC C# runtime (SliceEncoder,
// SliceDecoder, IInvoker, IncomingRequest). Encoding rules match
// internal/codec, which is used by the tests as an executable reference.
package generators
