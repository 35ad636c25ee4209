// Package codegen emits Go guest bindings from the abi instruction stream.
//
// Generator accumulates one world: each Interface call declares the
// interface's types and wraps its functions, imports as typed Go functions
// over //go:wasmimport externs, exports as //go:wasmexport wrappers
// dispatching to a user-registered implementation. Finish assembles the
// fragments, the deduplicated externs and the shared helper types into the
// output file set.
//
// Output is deterministic: identical inputs in identical order produce
// byte-identical files.
package codegen
