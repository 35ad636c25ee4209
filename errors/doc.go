// Package errors provides structured error types for the binding generator.
//
// Every error carries a Phase (which stage of generation failed), a Kind
// (what category of failure), the function being translated, and the type
// path within it. Generation is deterministic, so a failure is always
// reproducible from the same input; there are no retries.
//
// A malformed function fails generation for that function only. Callers
// collect per-function errors and continue with the remaining functions.
package errors
