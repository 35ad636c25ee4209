package abi

import (
	"go.bytecodealliance.org/wit"

	"github.com/dicej/wit-bindgen-go/errors"
)

// WasmType is a core WebAssembly value type. Pointer and Length are
// distinguished from I32 so backends can render addresses and lengths
// differently, but on wasm32 all three occupy an i32 slot.
type WasmType uint8

const (
	I32 WasmType = iota
	I64
	F32
	F64
	Pointer
	Length
)

func (t WasmType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Pointer:
		return "ptr"
	case Length:
		return "len"
	default:
		return "unknown"
	}
}

// Primitive register budget of the canonical ABI: a signature with more flat
// parameters spills them to memory, and a result with more than one flat
// value returns through a return area.
const (
	MaxFlatParams  = 16
	MaxFlatResults = 1
)

// Signature is the flattened core signature of a function.
type Signature struct {
	Params  []WasmType
	Results []WasmType

	// IndirectParams means the flat parameters exceeded MaxFlatParams and
	// are passed through a single pointer to a caller-prepared area.
	IndirectParams bool

	// RetPtr means the flat results exceeded MaxFlatResults and travel
	// through a return area: callers of imports pass a trailing pointer,
	// exports return a pointer into a process-scoped area.
	RetPtr bool
}

// Flatten appends the flat core types of t to out and returns the result.
func Flatten(t wit.Type, out []WasmType) []WasmType {
	switch t := t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return append(out, I32)
	case wit.U64, wit.S64:
		return append(out, I64)
	case wit.F32:
		return append(out, F32)
	case wit.F64:
		return append(out, F64)
	case wit.String:
		return append(out, Pointer, Length)
	case *wit.TypeDef:
		switch kind := t.Kind.(type) {
		case *wit.Record:
			for _, f := range kind.Fields {
				out = Flatten(f.Type, out)
			}
			return out
		case *wit.Tuple:
			for _, elem := range kind.Types {
				out = Flatten(elem, out)
			}
			return out
		case *wit.List:
			return append(out, Pointer, Length)
		case *wit.Enum:
			return append(out, I32)
		case *wit.Flags:
			words := 1
			if len(kind.Flags) > 32 {
				words = (len(kind.Flags) + 31) / 32
			}
			for i := 0; i < words; i++ {
				out = append(out, I32)
			}
			return out
		case *wit.Option:
			return flattenCases(out, nil, kind.Type)
		case *wit.Result:
			return flattenCases(out, kind.OK, kind.Err)
		case *wit.Variant:
			types := make([]wit.Type, len(kind.Cases))
			for i, c := range kind.Cases {
				types[i] = c.Type
			}
			return flattenCases(out, types...)
		case *wit.Own, *wit.Borrow:
			return append(out, I32)
		case wit.Type:
			return Flatten(kind, out)
		}
	}
	return out
}

// flattenCases flattens a discriminated union: an i32 discriminant followed
// by the join of every case's flat types, so every case fills identical
// output positions.
func flattenCases(out []WasmType, cases ...wit.Type) []WasmType {
	out = append(out, I32)
	var joined []WasmType
	for _, c := range cases {
		if c == nil {
			continue
		}
		flat := Flatten(c, nil)
		for i, ft := range flat {
			if i < len(joined) {
				joined[i] = join(joined[i], ft)
			} else {
				joined = append(joined, ft)
			}
		}
	}
	return append(out, joined...)
}

// join picks the single core type able to carry both a and b without
// altering bit patterns.
func join(a, b WasmType) WasmType {
	if a == b {
		return a
	}
	an, bn := normalize(a), normalize(b)
	if an == bn {
		return an
	}
	if (an == I32 && bn == F32) || (an == F32 && bn == I32) {
		return I32
	}
	return I64
}

// normalize folds the pointer-sized aliases into i32 (wasm32 only).
func normalize(t WasmType) WasmType {
	if t == Pointer || t == Length {
		return I32
	}
	return t
}

// FlatCount returns the number of flat core values t occupies.
func FlatCount(t wit.Type) int {
	return len(Flatten(t, nil))
}

// WasmSignature computes the flat core signature of f for the given
// direction, applying the parameter-spill and return-area rules.
func WasmSignature(dir Direction, f *Function) (Signature, error) {
	if len(f.Results) > 1 {
		// Named multi-value results are rejected at the input contract.
		return Signature{}, errors.Arity(errors.PhaseFlatten, f.Name,
			"multi-value named results are not supported")
	}

	var sig Signature
	for _, p := range f.Params {
		sig.Params = Flatten(p.Type, sig.Params)
	}
	if len(sig.Params) > MaxFlatParams {
		sig.Params = []WasmType{Pointer}
		sig.IndirectParams = true
	}

	for _, r := range f.Results {
		sig.Results = Flatten(r.Type, sig.Results)
	}
	if len(sig.Results) > MaxFlatResults {
		sig.RetPtr = true
		sig.Results = nil
		if dir == Import {
			sig.Params = append(sig.Params, Pointer)
		} else {
			sig.Results = []WasmType{Pointer}
		}
	}

	return sig, nil
}

// Bitcast is a bit-pattern-preserving conversion between core types, used to
// move variant payloads through the joined slot representation.
type Bitcast uint8

const (
	BitcastNone Bitcast = iota
	I32ToI64
	I64ToI32
	F32ToI32
	I32ToF32
	F32ToI64
	I64ToF32
	F64ToI64
	I64ToF64
)

// BitcastBetween returns the cast carrying a value of type from inside a
// slot of type to.
func BitcastBetween(from, to WasmType) Bitcast {
	from, to = normalize(from), normalize(to)
	if from == to {
		return BitcastNone
	}
	switch {
	case from == I32 && to == I64:
		return I32ToI64
	case from == I64 && to == I32:
		return I64ToI32
	case from == F32 && to == I32:
		return F32ToI32
	case from == I32 && to == F32:
		return I32ToF32
	case from == F32 && to == I64:
		return F32ToI64
	case from == I64 && to == F32:
		return I64ToF32
	case from == F64 && to == I64:
		return F64ToI64
	case from == I64 && to == F64:
		return I64ToF64
	default:
		return BitcastNone
	}
}
