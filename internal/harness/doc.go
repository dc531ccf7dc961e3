// Package harness runs conformance scenarios against Slice definitions.
//
// A scenario names CUE definition files and a list of cases. These files are
// loaded and validated with the front end; each case then exercises the
// reference codec over the resulting definitions, the same layouts the
// generated C# implements.
//
// # Scenario Format
//
//	name: zoo
//	description: "Class slicing and dispatch"
//	specs:
//	  - zoo.cue
//	cases:
//	  - name: point survives a round trip
//	    kind: roundtrip
//	    type: Geometry::Point
//	    value: {x: 1, y: -2}
//	    expect: {encoded: "01000000feffffff"}
//	  - name: dog relayed by a peer that only knows animals
//	    kind: slicing
//	    type: Zoo::Animal
//	    value: {$type: Zoo::Dog, name: Rex, breed: Lab}
//	    hide: [Zoo::Dog]
//	    expect: {type_id: "::Zoo::Animal", unknown_slices: 1}
//	  - name: out of range color
//	    kind: enum
//	    type: Paint::Color
//	    raw: 7
//	    expect: {error: invalid_enum_value}
//	  - name: greet
//	    kind: dispatch
//	    interface: Hello::Greeter
//	    operation: greet
//	    args: {name: Ann}
//	    handler: {returns: {returnValue: "hello Ann"}}
//	    expect: {status: Ok, results: {returnValue: "hello Ann"}}
//
// # Case Kinds
//
//   - roundtrip: encode, decode and re-encode a value; the bytes and the value
//     must survive unchanged
//   - slicing: relay a class or exception through a peer that does not know
//     the hidden derived types; the relayed bytes must equal the original
//   - enum: decode a raw integer as an enum
//   - dispatch: invoke an operation through a proxy and a dispatcher whose
//     handler is scripted by the case
//
// Named types in cases are fully qualified. Expected maps use subset
// semantics and compare values in the plain form described by Plain.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/zoo.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors() {
//	    log.Println(msg)
//	}
//
// In tests, RunWithGolden also compares the generated C# units against
// goldie fixtures under testdata/golden.
package harness
