package abi

import (
	"go.bytecodealliance.org/wit"

	"github.com/dicej/wit-bindgen-go/layout"
)

// Backend consumes one function's instruction stream and emits target
// statements. O is the backend's operand representation: a symbolic handle
// to an already-emitted expression, produced by one instruction and consumed
// in order by later instructions.
//
// A Backend instance translates exactly one function: Call drives it from
// start to the single Return, then it is discarded.
type Backend[O any] interface {
	// Emit translates one instruction. operands holds the instruction's
	// inputs in production order; the returned slice holds its outputs.
	Emit(inst Instruction, operands []O) ([]O, error)

	// PushBlock saves the current statement buffer and allocates fresh
	// element/base names for a nested block (one variant case, one option
	// arm, or one list element body).
	PushBlock()

	// FinishBlock pops the block scope, flushes cleanup deferred inside it,
	// and records the block body together with the operands it produced for
	// the structural instruction that follows.
	FinishBlock(results []O) error

	// ReturnPointer yields an operand addressing size bytes of scratch
	// memory with the given alignment. Import-side areas may be
	// call-scoped; export-side areas must stay valid until post-return.
	ReturnPointer(size, align uint32) (O, error)

	// Sizes exposes the layout calculator for the type graph being
	// translated.
	Sizes() *layout.Calculator

	// IsListCanonical reports whether a list of element may be bulk-copied
	// instead of translated per element.
	IsListCanonical(element wit.Type) bool
}
