package codegen

import (
	"fmt"
	"sort"
	"strings"
)

// renderHelpers appends the shared runtime support types the generated code
// referenced. Each helper is emitted at most once per output file, in a
// fixed order, so repeated runs and unrelated interface permutations
// produce the same text.
func (g *Generator) renderHelpers(b *strings.Builder) {
	if g.needsOption {
		b.WriteString(optionHelper)
	}
	if g.needsResult {
		b.WriteString(resultHelper)
	}

	arities := make([]int, 0, len(g.tupleArities))
	for n := range g.tupleArities {
		arities = append(arities, n)
	}
	sort.Ints(arities)
	for _, n := range arities {
		writeTupleHelper(b, n)
	}

	if g.needsPinned {
		b.WriteString(pinHelper)
	}
	if g.needsRealloc {
		b.WriteString(reallocHelper)
	}
	if g.needsExportArea {
		words := (g.exportAreaSize + 7) / 8
		if words == 0 {
			words = 1
		}
		fmt.Fprintf(b, "// exportReturnArea backs indirect export results until the\n")
		fmt.Fprintf(b, "// post-return call. Sized for the largest exported result.\n")
		fmt.Fprintf(b, "var exportReturnArea [%d]uint64\n\n", words)
	}
	if g.needsRepTable {
		b.WriteString(repTableHelper)
	}
}

const optionHelper = `// Option is a value that may be absent.
type Option[T any] struct {
	isSome bool
	value  T
}

func Some[T any](v T) Option[T] {
	return Option[T]{isSome: true, value: v}
}

func None[T any]() Option[T] {
	return Option[T]{}
}

func (o Option[T]) IsSome() bool {
	return o.isSome
}

// Value returns the contained value; the zero value when absent.
func (o Option[T]) Value() T {
	return o.value
}

`

const resultHelper = `// Result holds either a success or an error payload.
type Result[Ok, Err any] struct {
	isErr bool
	ok    Ok
	err   Err
}

func OK[Ok, Err any](v Ok) Result[Ok, Err] {
	return Result[Ok, Err]{ok: v}
}

func Err[Ok, Err any](v Err) Result[Ok, Err] {
	return Result[Ok, Err]{isErr: true, err: v}
}

func (r Result[Ok, Err]) IsErr() bool {
	return r.isErr
}

func (r Result[Ok, Err]) OK() Ok {
	return r.ok
}

func (r Result[Ok, Err]) Err() Err {
	return r.err
}

`

const pinHelper = `// pinned parks buffers whose addresses have been handed to the host.
// resetPins runs from post-return, once the host is done with them.
var pinned []any

func pin(v any) {
	pinned = append(pinned, v)
}

func resetPins() {
	pinned = pinned[:0]
}

`

const reallocHelper = `// cabi_realloc serves the host's canonical allocations while it lowers
// data into linear memory. Word-sized backing keeps the result aligned for
// every payload type; the buffer stays pinned until the next post-return
// reset, so host-written contents remain valid across the lift.
//
//go:wasmexport cabi_realloc
func wasmexport_cabi_realloc(ptr, oldSize, align, newSize uintptr) uintptr {
	if newSize == 0 {
		return align
	}
	buf := make([]uint64, (newSize+7)/8)
	out := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	if ptr != 0 && oldSize > 0 {
		copy(unsafe.Slice((*byte)(unsafe.Pointer(out)), oldSize),
			unsafe.Slice((*byte)(unsafe.Pointer(ptr)), oldSize))
	}
	pin(buf)
	return out
}

`

const repTableHelper = `// repTable maps the integer reps handed to the canonical ABI back to the
// implementation values of one exported resource type.
type repTable[T any] struct {
	entries map[int32]T
	next    int32
}

func newRepTable[T any]() *repTable[T] {
	return &repTable[T]{entries: make(map[int32]T)}
}

func (t *repTable[T]) add(v T) int32 {
	rep := t.next
	t.next++
	t.entries[rep] = v
	return rep
}

func (t *repTable[T]) get(rep int32) T {
	v, ok := t.entries[rep]
	if !ok {
		panic("unknown resource rep")
	}
	return v
}

func (t *repTable[T]) remove(rep int32) T {
	v, ok := t.entries[rep]
	if !ok {
		panic("unknown resource rep")
	}
	delete(t.entries, rep)
	return v
}

`

func writeTupleHelper(b *strings.Builder, n int) {
	if n == 0 {
		b.WriteString("type Tuple0 struct{}\n\n")
		return
	}
	params := make([]string, n)
	for i := range params {
		params[i] = fmt.Sprintf("T%d", i)
	}
	fmt.Fprintf(b, "type Tuple%d[%s any] struct {\n", n, strings.Join(params, ", "))
	for i := range params {
		fmt.Fprintf(b, "\tF%d T%d\n", i, i)
	}
	b.WriteString("}\n\n")
}
