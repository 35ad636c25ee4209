package abi

import (
	"testing"

	"go.bytecodealliance.org/wit"

	"github.com/dicej/wit-bindgen-go/layout"
)

// recordingBackend captures the instruction stream and produces synthetic
// operands so the driver's stack accounting can be checked end to end.
type recordingBackend struct {
	sizes  *layout.Calculator
	insts  []Instruction
	counts []int

	pushed   int
	finished int
	areas    [][2]uint32
	next     int
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{sizes: layout.NewCalculator()}
}

func (b *recordingBackend) Emit(inst Instruction, operands []int) ([]int, error) {
	b.insts = append(b.insts, inst)
	b.counts = append(b.counts, len(operands))

	out := make([]int, resultCount(inst))
	for i := range out {
		b.next++
		out[i] = b.next
	}
	return out, nil
}

func (b *recordingBackend) PushBlock() { b.pushed++ }

func (b *recordingBackend) FinishBlock(results []int) error {
	b.finished++
	return nil
}

func (b *recordingBackend) ReturnPointer(size, align uint32) (int, error) {
	b.areas = append(b.areas, [2]uint32{size, align})
	b.next++
	return b.next, nil
}

func (b *recordingBackend) Sizes() *layout.Calculator { return b.sizes }

func (b *recordingBackend) IsListCanonical(element wit.Type) bool {
	switch element.(type) {
	case wit.U8, wit.U16, wit.U32, wit.U64, wit.S8, wit.S16, wit.S32, wit.S64,
		wit.F32, wit.F64:
		return true
	}
	return false
}

func resultCount(inst Instruction) int {
	switch inst := inst.(type) {
	case GetArg, I32Const, Load, CoreFrom, FromCore, RecordLift, TupleLift,
		FlagsLift, EnumLower, EnumLift, VariantPayloadName, VariantLift,
		OptionLift, ResultLift, ListCanonLift, ListLift, StringLift,
		IterElem, IterBasePointer, HandleLower, HandleLift:
		return 1
	case ConstZero:
		return len(inst.Types)
	case Bitcasts:
		return len(inst.Casts)
	case RecordLower:
		return len(inst.Record.Fields)
	case TupleLower:
		return len(inst.Tuple.Types)
	case FlagsLower:
		if len(inst.Flags.Flags) > 32 {
			return layout.FlagsWords(inst.Flags)
		}
		return 1
	case VariantLower:
		return len(inst.Results)
	case OptionLower:
		return len(inst.Results)
	case ResultLower:
		return len(inst.Results)
	case ListCanonLower, ListLower, StringLower:
		return 2
	case CallWasm:
		return len(inst.Sig.Results)
	case CallInterface:
		return len(inst.Func.Results)
	default:
		return 0
	}
}

func countReturns(insts []Instruction) int {
	n := 0
	for _, inst := range insts {
		if _, ok := inst.(Return); ok {
			n++
		}
	}
	return n
}

func TestCallImportScalar(t *testing.T) {
	f := &Function{
		Name: "add",
		Params: []Param{
			{Name: "x", Type: wit.U32{}},
			{Name: "y", Type: wit.U32{}},
		},
		Results: []Param{{Type: wit.U32{}}},
	}

	b := newRecordingBackend()
	if err := Call[int](b, Import, "docs:adder/add@0.1.0", f); err != nil {
		t.Fatalf("Call: %v", err)
	}

	if b.pushed != 0 || b.finished != 0 {
		t.Errorf("scalar call opened %d/%d blocks, want none", b.pushed, b.finished)
	}
	if len(b.areas) != 0 {
		t.Errorf("scalar call allocated return areas: %v", b.areas)
	}
	if countReturns(b.insts) != 1 {
		t.Fatalf("stream has %d Return instructions, want 1", countReturns(b.insts))
	}

	// arg0 lower, arg1 lower, call, lift, return
	var kinds []string
	for _, inst := range b.insts {
		switch inst.(type) {
		case GetArg:
			kinds = append(kinds, "arg")
		case CoreFrom:
			kinds = append(kinds, "lower")
		case CallWasm:
			kinds = append(kinds, "call")
		case FromCore:
			kinds = append(kinds, "lift")
		case Return:
			kinds = append(kinds, "return")
		default:
			t.Fatalf("unexpected instruction %T", inst)
		}
	}
	want := []string{"arg", "lower", "arg", "lower", "call", "lift", "return"}
	if len(kinds) != len(want) {
		t.Fatalf("stream = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("stream = %v, want %v", kinds, want)
		}
	}
}

func TestCallImportCallWasmArity(t *testing.T) {
	f := &Function{
		Name: "concat",
		Params: []Param{
			{Name: "a", Type: wit.String{}},
			{Name: "b", Type: wit.String{}},
		},
	}

	b := newRecordingBackend()
	if err := Call[int](b, Import, "m", f); err != nil {
		t.Fatalf("Call: %v", err)
	}

	for i, inst := range b.insts {
		if cw, ok := inst.(CallWasm); ok {
			if len(cw.Sig.Params) != 4 {
				t.Errorf("core signature has %d params, want 4", len(cw.Sig.Params))
			}
			if b.counts[i] != 4 {
				t.Errorf("CallWasm consumed %d operands, want 4", b.counts[i])
			}
		}
	}
}

func TestCallExportOptionRecord(t *testing.T) {
	record := &wit.TypeDef{
		Kind: &wit.Record{
			Fields: []wit.Field{
				{Name: "x", Type: wit.U32{}},
				{Name: "y", Type: wit.U32{}},
			},
		},
	}
	option := &wit.TypeDef{Kind: &wit.Option{Type: record}}

	f := &Function{
		Name:    "find",
		Params:  []Param{{Name: "name", Type: wit.String{}}},
		Results: []Param{{Type: option}},
	}

	b := newRecordingBackend()
	if err := Call[int](b, Export, "m", f); err != nil {
		t.Fatalf("Call: %v", err)
	}

	// the result does not fit one core value, so it goes through the
	// return area: disc byte, payload at 4, 12 bytes total
	if len(b.areas) != 1 {
		t.Fatalf("return areas = %v, want exactly one", b.areas)
	}
	if b.areas[0] != [2]uint32{12, 4} {
		t.Errorf("return area = %v, want {12 4}", b.areas[0])
	}

	// one block per option arm
	if b.pushed != 2 || b.finished != 2 {
		t.Errorf("blocks = %d/%d, want 2/2", b.pushed, b.finished)
	}

	var sawLift, sawCall, sawOption bool
	for _, inst := range b.insts {
		switch inst := inst.(type) {
		case StringLift:
			sawLift = true
		case CallInterface:
			sawCall = true
		case OptionLower:
			sawOption = true
			if len(inst.Results) != 0 {
				t.Errorf("memory-path OptionLower carries flat results: %v", inst.Results)
			}
		}
	}
	if !sawLift || !sawCall || !sawOption {
		t.Errorf("stream missing stages: lift=%v call=%v option=%v", sawLift, sawCall, sawOption)
	}
	if countReturns(b.insts) != 1 {
		t.Errorf("stream has %d Return instructions, want 1", countReturns(b.insts))
	}
}

func TestCallImportSpilledParams(t *testing.T) {
	params := make([]Param, 17)
	for i := range params {
		params[i] = Param{Name: "p", Type: wit.U32{}}
	}
	f := &Function{Name: "wide", Params: params}

	b := newRecordingBackend()
	if err := Call[int](b, Import, "m", f); err != nil {
		t.Fatalf("Call: %v", err)
	}

	// 17 u32 at aligned offsets
	if len(b.areas) != 1 || b.areas[0] != [2]uint32{68, 4} {
		t.Fatalf("spill area = %v, want [{68 4}]", b.areas)
	}

	stores := 0
	for i, inst := range b.insts {
		if _, ok := inst.(Store); ok {
			stores++
		}
		if cw, ok := inst.(CallWasm); ok {
			if len(cw.Sig.Params) != 1 {
				t.Errorf("spilled core call has %d params, want 1", len(cw.Sig.Params))
			}
			if b.counts[i] != 1 {
				t.Errorf("CallWasm consumed %d operands, want 1", b.counts[i])
			}
		}
	}
	if stores != 17 {
		t.Errorf("spill wrote %d stores, want 17", stores)
	}
}

func TestCallVariantBlocksPerCase(t *testing.T) {
	variant := &wit.TypeDef{
		Kind: &wit.Variant{
			Cases: []wit.Case{
				{Name: "a", Type: wit.U32{}},
				{Name: "b", Type: wit.F64{}},
				{Name: "c"},
			},
		},
	}
	f := &Function{
		Name:   "send",
		Params: []Param{{Name: "v", Type: variant}},
	}

	b := newRecordingBackend()
	if err := Call[int](b, Import, "m", f); err != nil {
		t.Fatalf("Call: %v", err)
	}

	if b.pushed != 3 || b.finished != 3 {
		t.Errorf("blocks = %d/%d, want one per case", b.pushed, b.finished)
	}

	for i, inst := range b.insts {
		if vl, ok := inst.(VariantLower); ok {
			// disc + joined payload slot
			if len(vl.Results) != 2 {
				t.Errorf("joined flat types = %v, want 2 slots", vl.Results)
			}
			if b.counts[i] != 1 {
				t.Errorf("VariantLower consumed %d operands, want 1", b.counts[i])
			}
		}
	}
}

func TestCallRejectsMultiResults(t *testing.T) {
	f := &Function{
		Name: "bad",
		Results: []Param{
			{Name: "a", Type: wit.U32{}},
			{Name: "b", Type: wit.U32{}},
		},
	}

	b := newRecordingBackend()
	if err := Call[int](b, Import, "m", f); err == nil {
		t.Fatal("multi-value named results must fail")
	}
	if len(b.insts) != 0 {
		t.Errorf("failed function still emitted %d instructions", len(b.insts))
	}
}

func TestCallGeneralListBlocks(t *testing.T) {
	str := wit.String{}
	list := &wit.TypeDef{Kind: &wit.List{Type: str}}
	f := &Function{
		Name:   "send-all",
		Params: []Param{{Name: "items", Type: list}},
	}

	b := newRecordingBackend()
	if err := Call[int](b, Import, "m", f); err != nil {
		t.Fatalf("Call: %v", err)
	}

	// one block for the element body
	if b.pushed != 1 || b.finished != 1 {
		t.Errorf("blocks = %d/%d, want 1/1", b.pushed, b.finished)
	}

	var sawIterElem, sawBase, sawListLower, sawCanon bool
	for _, inst := range b.insts {
		switch inst.(type) {
		case IterElem:
			sawIterElem = true
		case IterBasePointer:
			sawBase = true
		case ListLower:
			sawListLower = true
		case ListCanonLower:
			sawCanon = true
		}
	}
	if !sawIterElem || !sawBase || !sawListLower {
		t.Errorf("list stream missing stages: elem=%v base=%v lower=%v",
			sawIterElem, sawBase, sawListLower)
	}
	if sawCanon {
		t.Error("list<string> must not take the canonical path")
	}
}

func TestCallCanonicalList(t *testing.T) {
	list := &wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}}
	f := &Function{
		Name:   "write",
		Params: []Param{{Name: "data", Type: list}},
	}

	b := newRecordingBackend()
	if err := Call[int](b, Import, "m", f); err != nil {
		t.Fatalf("Call: %v", err)
	}

	if b.pushed != 0 {
		t.Errorf("canonical list opened %d blocks, want none", b.pushed)
	}
	found := false
	for _, inst := range b.insts {
		if _, ok := inst.(ListCanonLower); ok {
			found = true
		}
	}
	if !found {
		t.Error("list<u8> must take the canonical path")
	}
}
