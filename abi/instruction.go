package abi

import "go.bytecodealliance.org/wit"

// Instruction is one abstract operation in a function's translation stream.
// Instructions are pure data: they carry offsets, types and shapes but no
// target-language text. A backend turns each instruction into target
// statements, consuming operands produced by earlier instructions.
type Instruction interface {
	isInstruction()
}

// GetArg pushes the nth wrapper argument. Produces 1 operand.
type GetArg struct {
	Nth int
}

// I32Const pushes a constant i32 (variant discriminants). Produces 1.
type I32Const struct {
	Val int32
}

// ConstZero pushes one zero value per entry in Types, filling unused flat
// slots of a variant case. Produces len(Types).
type ConstZero struct {
	Types []WasmType
}

// Bitcasts reinterprets operands into the joined slot types of a variant,
// preserving bit patterns. Consumes and produces len(Casts).
type Bitcasts struct {
	Casts []Bitcast
}

// LoadKind selects the width and extension of a memory load.
type LoadKind uint8

const (
	LoadI32 LoadKind = iota
	LoadU8
	LoadS8
	LoadU16
	LoadS16
	LoadI64
	LoadF32
	LoadF64
	LoadPointer
	LoadLength
)

// Load reads from memory at operand-address + Offset. Consumes 1, produces 1.
type Load struct {
	Kind   LoadKind
	Offset uint32
}

// StoreKind selects the width of a memory store.
type StoreKind uint8

const (
	StoreI32 StoreKind = iota
	StoreI8
	StoreI16
	StoreI64
	StoreF32
	StoreF64
	StorePointer
	StoreLength
)

// Store writes operand 0 to address operand 1 + Offset. Consumes 2.
type Store struct {
	Kind   StoreKind
	Offset uint32
}

// CoreFrom lowers one host primitive into its core representation: bool to
// 0/1, char to an unsigned code point, sized integers widened or
// reinterpreted without altering the bit pattern. Consumes 1, produces 1.
type CoreFrom struct {
	Type wit.Type
}

// FromCore lifts one core value back into a host primitive, narrowing where
// the type requires it. Consumes 1, produces 1.
type FromCore struct {
	Type wit.Type
}

// RecordLower projects a record into its fields in declaration order.
// Consumes 1, produces len(Record.Fields).
type RecordLower struct {
	Record *wit.Record
	Type   *wit.TypeDef
	Name   string
}

// RecordLift reconstructs a record from lifted fields in declaration order.
// Consumes len(Record.Fields), produces 1.
type RecordLift struct {
	Record *wit.Record
	Type   *wit.TypeDef
	Name   string
}

// TupleLower projects a tuple into its elements. Consumes 1, produces
// len(Tuple.Types).
type TupleLower struct {
	Tuple *wit.Tuple
	Type  *wit.TypeDef
}

// TupleLift reconstructs a tuple. Consumes len(Tuple.Types), produces 1.
type TupleLift struct {
	Tuple *wit.Tuple
	Type  *wit.TypeDef
}

// FlagsLower packs a flags value into 32-bit words: one word for up to 32
// members, otherwise bit 32 becomes bit 0 of word 1. Consumes 1, produces
// the word count.
type FlagsLower struct {
	Flags *wit.Flags
	Type  *wit.TypeDef
	Name  string
}

// FlagsLift reassembles the exact bit pattern from the packed words.
// Consumes the word count, produces 1.
type FlagsLift struct {
	Flags *wit.Flags
	Type  *wit.TypeDef
	Name  string
}

// EnumLower converts an enum to its discriminant. Consumes 1, produces 1.
type EnumLower struct {
	Enum *wit.Enum
	Type *wit.TypeDef
	Name string
}

// EnumLift converts a discriminant back to the enum; an out-of-range value
// is a fatal decode error in generated code. Consumes 1, produces 1.
type EnumLift struct {
	Enum *wit.Enum
	Type *wit.TypeDef
	Name string
}

// VariantPayloadName names the payload binding available inside the
// following case block. Produces 1.
type VariantPayloadName struct{}

// VariantLower dispatches on the runtime tag to one preceding case Block.
// Every block fills the same Results slots, so all cases contribute
// identical output positions; Results is empty when the blocks store
// through memory instead. Consumes 1, produces len(Results).
type VariantLower struct {
	Variant *wit.Variant
	Type    *wit.TypeDef
	Name    string
	Results []WasmType
}

// VariantLift reconstructs a variant by discriminant dispatch over the
// preceding case Blocks. Consumes 1 (the discriminant), produces 1.
type VariantLift struct {
	Variant *wit.Variant
	Type    *wit.TypeDef
	Name    string
}

// OptionLower is the two-arm specialization of VariantLower: the none arm
// zero-fills the same slots the some arm lowers into. Consumes 1, produces
// len(Results).
type OptionLower struct {
	Payload wit.Type
	Type    *wit.TypeDef
	Results []WasmType
}

// OptionLift reconstructs an option from discriminant 0/1; any other value
// is fatal. Consumes 1, produces 1.
type OptionLift struct {
	Payload wit.Type
	Type    *wit.TypeDef
}

// ResultLower lowers a result through its ok/err Blocks. Consumes 1,
// produces len(Results).
type ResultLower struct {
	Result  *wit.Result
	Type    *wit.TypeDef
	Results []WasmType
}

// ResultLift reconstructs a result from discriminant 0/1. Consumes 1,
// produces 1.
type ResultLift struct {
	Result *wit.Result
	Type   *wit.TypeDef
}

// ListCanonLower bulk-copies a primitive-element list, pinning the buffer
// for the duration of the call when no realloc transfers ownership.
// Consumes 1, produces 2 (ptr, len).
type ListCanonLower struct {
	Element wit.Type
	Realloc bool
}

// ListCanonLift bulk-copies a primitive-element list out of memory.
// Consumes 2, produces 1.
type ListCanonLift struct {
	Element wit.Type
}

// ListLower loops the preceding element Block over the list, writing each
// translated element at base + index*elementSize. Consumes 1, produces 2.
type ListLower struct {
	Element wit.Type
	Realloc bool
}

// ListLift loops the preceding element Block over length, re-deriving each
// address and appending results in order. Consumes 2, produces 1.
type ListLift struct {
	Element wit.Type
}

// StringLower encodes a string to UTF-8 and passes it as ptr+len.
// Consumes 1, produces 2.
type StringLower struct {
	Realloc bool
}

// StringLift decodes UTF-8 from ptr+len. Consumes 2, produces 1.
type StringLift struct{}

// IterElem pushes the current element of the enclosing list Block.
// Produces 1.
type IterElem struct {
	Element wit.Type
}

// IterBasePointer pushes the current base address of the enclosing list
// Block. Produces 1.
type IterBasePointer struct{}

// HandleLower lowers a resource handle to its external handle number.
// Lowering an owned handle on the declaring side clears the local reference;
// a borrowed handle stays valid. Consumes 1, produces 1.
type HandleLower struct {
	Resource *wit.TypeDef
	Own      bool
}

// HandleLift reconstructs a resource from an external handle number,
// removing (owned) or looking up (borrowed) the rep-table entry on the
// exposing side. Consumes 1, produces 1.
type HandleLift struct {
	Resource *wit.TypeDef
	Own      bool
}

// CallWasm invokes the boundary entry point with the flat operands.
// Consumes len(Sig.Params), produces len(Sig.Results) (0 or 1).
type CallWasm struct {
	Module string
	Name   string
	Sig    Signature
}

// CallInterface invokes the host implementation with the lifted operands,
// honoring the method/static/constructor convention, then flushes deferred
// resource-drop obligations. Consumes len(Func.Params), produces
// len(Func.Results).
type CallInterface struct {
	Func *Function
}

// Return terminates the stream, returning Amt operands. Exactly one Return
// ends every stream.
type Return struct {
	Amt  int
	Func *Function
}

// Malloc is unused by this generator and is a generation-time hard stop.
type Malloc struct {
	Size  uint32
	Align uint32
}

// GuestDeallocate and friends free guest-owned memory after an export call
// returns. The reference convention leaves this unimplemented; backends must
// fail generation rather than silently skip them.
type GuestDeallocate struct {
	Size  uint32
	Align uint32
}

type GuestDeallocateString struct{}

type GuestDeallocateList struct {
	Element wit.Type
}

type GuestDeallocateVariant struct {
	Blocks int
}

func (GetArg) isInstruction()                 {}
func (I32Const) isInstruction()               {}
func (ConstZero) isInstruction()              {}
func (Bitcasts) isInstruction()               {}
func (Load) isInstruction()                   {}
func (Store) isInstruction()                  {}
func (CoreFrom) isInstruction()               {}
func (FromCore) isInstruction()               {}
func (RecordLower) isInstruction()            {}
func (RecordLift) isInstruction()             {}
func (TupleLower) isInstruction()             {}
func (TupleLift) isInstruction()              {}
func (FlagsLower) isInstruction()             {}
func (FlagsLift) isInstruction()              {}
func (EnumLower) isInstruction()              {}
func (EnumLift) isInstruction()               {}
func (VariantPayloadName) isInstruction()     {}
func (VariantLower) isInstruction()           {}
func (VariantLift) isInstruction()            {}
func (OptionLower) isInstruction()            {}
func (OptionLift) isInstruction()             {}
func (ResultLower) isInstruction()            {}
func (ResultLift) isInstruction()             {}
func (ListCanonLower) isInstruction()         {}
func (ListCanonLift) isInstruction()          {}
func (ListLower) isInstruction()              {}
func (ListLift) isInstruction()               {}
func (StringLower) isInstruction()            {}
func (StringLift) isInstruction()             {}
func (IterElem) isInstruction()               {}
func (IterBasePointer) isInstruction()        {}
func (HandleLower) isInstruction()            {}
func (HandleLift) isInstruction()             {}
func (CallWasm) isInstruction()               {}
func (CallInterface) isInstruction()          {}
func (Return) isInstruction()                 {}
func (Malloc) isInstruction()                 {}
func (GuestDeallocate) isInstruction()        {}
func (GuestDeallocateString) isInstruction()  {}
func (GuestDeallocateList) isInstruction()    {}
func (GuestDeallocateVariant) isInstruction() {}
