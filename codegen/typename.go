package codegen

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/dicej/wit-bindgen-go/abi"
	"github.com/dicej/wit-bindgen-go/errors"
	"github.com/dicej/wit-bindgen-go/layout"
)

// typeName returns the Go type used for a WIT type in generated signatures
// and struct fields. Named type definitions use their declared name;
// anonymous options, results, tuples and lists use the shared generic
// helpers, which are marked for emission as a side effect.
func (g *Generator) typeName(t wit.Type) string {
	switch t := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "uint8"
	case wit.S8:
		return "int8"
	case wit.U16:
		return "uint16"
	case wit.S16:
		return "int16"
	case wit.U32:
		return "uint32"
	case wit.S32:
		return "int32"
	case wit.U64:
		return "uint64"
	case wit.S64:
		return "int64"
	case wit.F32:
		return "float32"
	case wit.F64:
		return "float64"
	case wit.Char:
		return "rune"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		return g.typeDefName(t)
	default:
		return "any"
	}
}

func (g *Generator) typeDefName(t *wit.TypeDef) string {
	if _, _, handle := abi.HandleInfo(t); t.Name != nil && !handle {
		return goName(*t.Name)
	}

	switch kind := t.Kind.(type) {
	case *wit.Option:
		g.needsOption = true
		return fmt.Sprintf("Option[%s]", g.typeName(kind.Type))
	case *wit.Result:
		g.needsResult = true
		return fmt.Sprintf("Result[%s, %s]", g.payloadTypeName(kind.OK), g.payloadTypeName(kind.Err))
	case *wit.Tuple:
		return g.tupleTypeName(kind)
	case *wit.List:
		return "[]" + g.typeName(kind.Type)
	case *wit.Own:
		return "*" + g.resourceTypeName(kind.Type)
	case *wit.Borrow:
		return "*" + g.resourceTypeName(kind.Type)
	case wit.Type:
		return g.typeName(kind)
	default:
		if t.Name != nil {
			return goName(*t.Name)
		}
		// A resolver-valid graph names every record, variant, enum and
		// flags definition; anything else fails loudly at Finish.
		g.errs = append(g.errs, errors.Unsupported(errors.PhaseEmit,
			fmt.Sprintf("unnamed %T definition", t.Kind)))
		return "any"
	}
}

// payloadTypeName maps an absent result payload to the empty struct.
func (g *Generator) payloadTypeName(t wit.Type) string {
	if t == nil {
		return "struct{}"
	}
	return g.typeName(t)
}

func (g *Generator) tupleTypeName(t *wit.Tuple) string {
	n := len(t.Types)
	g.noteTupleArity(n)
	if n == 0 {
		return "Tuple0"
	}
	parts := make([]string, n)
	for i, typ := range t.Types {
		parts[i] = g.typeName(typ)
	}
	return fmt.Sprintf("Tuple%d[%s]", n, strings.Join(parts, ", "))
}

// resourceTypeName names the handle wrapper struct for a resource. The
// resolver guarantees resources carry names.
func (g *Generator) resourceTypeName(res *wit.TypeDef) string {
	if res != nil && res.Name != nil {
		return goName(*res.Name)
	}
	return "Resource"
}

// enumRepr picks the Go integer type matching the enum's discriminant width.
func enumRepr(numCases int) string {
	switch layout.DiscriminantSize(numCases) {
	case 1:
		return "uint8"
	case 2:
		return "uint16"
	default:
		return "uint32"
	}
}

// flagsRepr picks the Go representation for a flags type: a sized unsigned
// integer up to 32 members, a word array above.
func flagsRepr(f *wit.Flags) string {
	switch n := len(f.Flags); {
	case n <= 8:
		return "uint8"
	case n <= 16:
		return "uint16"
	case n <= 32:
		return "uint32"
	default:
		return fmt.Sprintf("[%d]uint32", layout.FlagsWords(f))
	}
}

// coreType maps a flat core type to the Go type used in extern signatures
// and generated wrapper bodies.
func coreType(t abi.WasmType) string {
	switch t {
	case abi.I64:
		return "int64"
	case abi.F32:
		return "float32"
	case abi.F64:
		return "float64"
	case abi.Pointer, abi.Length:
		return "uintptr"
	default:
		return "int32"
	}
}
