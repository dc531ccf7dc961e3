// Package frontend turns Slice definitions authored as CUE files into the
// grammar syntax tree consumed by the generators.
//
// One CUE file describes one Slice file:
//
//	module: "Example::Hello"
//	definitions: [
//		{struct: "Point", compact: true, fields: [{name: "x", type: "int32"}, {name: "y", type: "int32"}]},
//		{interface: "Greeter", operations: [{name: "greet", params: [{name: "name", type: "string"}], returns: "string"}]},
//	]
//
// Loading happens in two passes. CompileFile reads a single CUE value and
// records type and entity references exactly as written. Validate then builds
// the definitions arena, resolves every reference to a scoped identifier and
// runs the semantic checks the generators rely on (unique names and tags,
// acyclic inheritance, no conflicting inherited operations). The generators
// only ever see validated input.
package frontend
