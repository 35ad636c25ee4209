// Package witbindgen generates Go guest bindings for WebAssembly components.
//
// Given the interfaces of a WIT world, the generator produces the canonical
// ABI glue that moves values between Go and the component boundary:
// lowering host values into flat core parameters, lifting flat results back
// into host values, and the memory layout both sides agree on.
//
// # Architecture Overview
//
// The module is organized into packages with distinct responsibilities:
//
//	wit-bindgen-go/      Root package documentation
//	├── abi/             Canonical ABI machine: flattening, signatures and
//	│                    the per-function instruction stream
//	├── layout/          Size, alignment and field offset calculation
//	├── codegen/         Go source emission over the abi.Backend contract
//	└── errors/          Structured error types for generation failures
//
// # Quick Start
//
// Generate bindings for a world:
//
//	files, err := codegen.Generate(codegen.DefaultOpts(), imports, exports)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, name := range files.Names() {
//	    // files[name] holds the final source text
//	}
//
// # Canonical ABI Support
//
// The full WIT type system crosses the boundary:
//
//   - Primitives: bool, u8-u64, s8-s64, f32, f64, char, string
//   - Compound: list<T>, option<T>, result<T, E>, tuple<...>
//   - Named: record, variant, enum, flags
//   - Resources: own and borrow handles on both sides of the boundary
//
// Functions with more than 16 flat parameters spill through a pointer;
// functions whose results do not fit one core value return through a
// caller- or callee-owned return area, released by the post-return call.
//
// # Determinism
//
// Generation is a pure function of its input: the same world produces
// byte-identical output on every run. Fresh names, extern declarations and
// helper emission all derive from the input order alone.
package witbindgen
