// Package abi implements the canonical ABI translation machine.
//
// The package is split along the boundary between what is universal and
// what is target-specific. Flattening, signatures, layout-driven loads and
// stores, and the order of instructions are fixed by the canonical ABI and
// computed here once. Everything a target language decides, statement
// syntax, naming, cleanup idioms, lives behind the Backend interface.
//
// Call walks one function's type structure and feeds a Backend a linear
// instruction stream over a symbolic operand stack. Imports lower host
// arguments into core values, invoke the core function, and lift the
// results back; exports run the same protocol mirrored. Composite types
// (variants, options, results, non-canonical lists) surround their
// structural instruction with blocks, one per case or loop body, delimited
// by PushBlock/FinishBlock so the backend can capture each arm's statements
// separately.
//
// The stream for a given function and direction depends only on the type
// graph, so a deterministic backend produces byte-identical output on every
// run.
package abi
