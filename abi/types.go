package abi

import (
	"strings"

	"go.bytecodealliance.org/wit"
)

// Direction distinguishes functions the module calls out to (imports) from
// functions the module provides (exports). The direction decides which side
// of a signature is lowered and which is lifted.
type Direction int

const (
	Import Direction = iota
	Export
)

func (d Direction) String() string {
	if d == Export {
		return "export"
	}
	return "import"
}

// FunctionKind describes the calling convention of a function. Methods,
// statics and constructors are scoped to one resource type.
type FunctionKind int

const (
	Freestanding FunctionKind = iota
	Method
	Static
	Constructor
)

// Param is one named, typed parameter or result.
type Param struct {
	Name string
	Type wit.Type
}

// Function is a single function crossing the module boundary.
//
// Name is the full WIT name as it appears in the interface, including the
// bracketed kind prefix for resource functions ("[method]blob.read",
// "[constructor]blob"). Resource is set for non-freestanding kinds.
type Function struct {
	Name     string
	Kind     FunctionKind
	Resource *wit.TypeDef
	Params   []Param
	Results  []Param
}

// ItemName returns the bare function name without the resource prefix:
// "[method]blob.read" -> "read", "[constructor]blob" -> "blob".
func (f *Function) ItemName() string {
	name := f.Name
	if i := strings.IndexByte(name, ']'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// CoreExportName derives the stable core symbol for an export. It is a pure
// function of the interface module name and the function name, so repeated
// runs always link identically. Root-world functions use the bare name.
func (f *Function) CoreExportName(module string) string {
	if module == "" {
		return f.Name
	}
	return module + "#" + f.Name
}

// PostReturnName derives the post-return cleanup symbol from the export
// symbol name.
func PostReturnName(coreExportName string) string {
	return "cabi_post_" + coreExportName
}

// Interface is one imported or exported interface of a world: an ordered set
// of functions plus the type definitions they mention. Module is the core
// module name used for linking ("docs:adder/add@0.1.0"); it is empty for
// functions declared directly in the world.
type Interface struct {
	Name      string
	Module    string
	Functions []*Function
	TypeDefs  []TypeDefEntry
}

// TypeDefEntry pairs a type definition with its declared name. Anonymous
// types reachable from function signatures are not listed; they are named
// structurally during emission.
type TypeDefEntry struct {
	Name string
	Type *wit.TypeDef
}

// Dealias follows type aliases to the underlying type definition.
func Dealias(t *wit.TypeDef) *wit.TypeDef {
	for {
		inner, ok := t.Kind.(*wit.TypeDef)
		if !ok {
			return t
		}
		t = inner
	}
}

// HandleInfo extracts the resource type behind an own/borrow handle, if t is
// a handle type.
func HandleInfo(t wit.Type) (res *wit.TypeDef, own, ok bool) {
	td, isDef := t.(*wit.TypeDef)
	if !isDef {
		return nil, false, false
	}
	switch kind := Dealias(td).Kind.(type) {
	case *wit.Own:
		return kind.Type, true, true
	case *wit.Borrow:
		return kind.Type, false, true
	default:
		return nil, false, false
	}
}
