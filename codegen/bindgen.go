package codegen

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/dicej/wit-bindgen-go/abi"
	"github.com/dicej/wit-bindgen-go/errors"
	"github.com/dicej/wit-bindgen-go/layout"
)

// funcGen translates one function's instruction stream into Go statements.
// Operands are Go expressions, usually single locals produced by earlier
// statements. One funcGen translates exactly one function and is then
// discarded; only the monotone accumulators on Generator survive it.
type funcGen struct {
	g      *Generator
	dir    abi.Direction
	iface  *abi.Interface
	f      *abi.Function
	locals *nameSet
	params []string

	src    *strings.Builder
	frames []*blockFrame
	blocks []block

	// cleanup runs after the core call, before return. Import side only;
	// export-side pins live until post-return.
	cleanup []string

	// keepVar holds block-scoped buffers that must survive the core call;
	// declared at function scope the first time a block needs it.
	keepVar string

	// drops are flushed right after the interface call completes.
	drops []string

	// pinned is set when this function parks buffers until post-return.
	pinned bool
}

// blockFrame is the saved state of an enclosing statement buffer while a
// nested block is being translated.
type blockFrame struct {
	saved   *strings.Builder
	cleanup []string
	payload string
	element string
	base    string
}

// block is one finished nested body plus the operands it produced.
type block struct {
	body    string
	results []string
	payload string
	element string
	base    string
}

func newFuncGen(g *Generator, dir abi.Direction, iface *abi.Interface, f *abi.Function) *funcGen {
	return &funcGen{
		g:      g,
		dir:    dir,
		iface:  iface,
		f:      f,
		locals: newNameSet(),
		src:    &strings.Builder{},
	}
}

func (f *funcGen) Sizes() *layout.Calculator { return f.g.sizes }

// IsListCanonical reports element types whose guest representation matches
// the canonical byte layout, so the whole list moves as one copy. bool and
// char are excluded: their lifted values carry validity constraints a raw
// copy would bypass.
func (f *funcGen) IsListCanonical(element wit.Type) bool {
	switch element.(type) {
	case wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32,
		wit.U64, wit.S64, wit.F32, wit.F64:
		return true
	}
	return false
}

func (f *funcGen) PushBlock() {
	f.frames = append(f.frames, &blockFrame{saved: f.src, cleanup: f.cleanup})
	f.src = &strings.Builder{}
	f.cleanup = nil
}

func (f *funcGen) FinishBlock(results []string) error {
	if len(f.frames) == 0 {
		return errors.InvalidData(errors.PhaseEmit, nil, "unbalanced block end")
	}
	frame := f.frames[len(f.frames)-1]
	f.frames = f.frames[:len(f.frames)-1]

	// Cleanup never accumulates inside a block: deferKeepAlive parks
	// block-scoped operands in the function-level holder, whose own
	// KeepAlive is attached to the outermost frame.
	f.blocks = append(f.blocks, block{
		body:    f.src.String(),
		results: results,
		payload: frame.payload,
		element: frame.element,
		base:    frame.base,
	})
	f.src = frame.saved
	f.cleanup = append(frame.cleanup, f.cleanup...)
	return nil
}

func (f *funcGen) ReturnPointer(size, align uint32) (string, error) {
	if align > 8 {
		return "", errors.Overflow(errors.PhaseEmit,
			fmt.Sprintf("return area alignment %d exceeds 8", align), nil)
	}
	if f.dir == abi.Export {
		f.g.noteExportReturnArea(size, align)
		f.g.needsUnsafe = true
		return "uintptr(unsafe.Pointer(&exportReturnArea))", nil
	}

	words := (size + 7) / 8
	if words == 0 {
		words = 1
	}
	area := f.locals.tmp("area")
	ptr := f.locals.tmp("ptr")
	f.g.needsUnsafe = true
	f.stmtf("var %s [%d]uint64", area, words)
	f.stmtf("%s := uintptr(unsafe.Pointer(&%s))", ptr, area)
	return ptr, nil
}

func (f *funcGen) Emit(inst abi.Instruction, operands []string) ([]string, error) {
	switch inst := inst.(type) {
	case abi.GetArg:
		return []string{f.params[inst.Nth]}, nil

	case abi.I32Const:
		return []string{fmt.Sprintf("%d", inst.Val)}, nil

	case abi.ConstZero:
		zeros := make([]string, len(inst.Types))
		for i := range inst.Types {
			zeros[i] = "0"
		}
		return zeros, nil

	case abi.Bitcasts:
		out := make([]string, len(operands))
		for i, op := range operands {
			expr, err := f.castExpr(inst.Casts[i], op)
			if err != nil {
				return nil, err
			}
			out[i] = expr
		}
		return out, nil

	case abi.Load:
		return f.emitLoad(inst, operands[0])

	case abi.Store:
		return nil, f.emitStore(inst, operands[0], operands[1])

	case abi.CoreFrom:
		return f.emitCoreFrom(inst.Type, operands[0])

	case abi.FromCore:
		return f.emitFromCore(inst.Type, operands[0])

	case abi.RecordLower:
		v := f.bind(operands[0])
		out := make([]string, len(inst.Record.Fields))
		for i, field := range inst.Record.Fields {
			out[i] = v + "." + goName(field.Name)
		}
		return out, nil

	case abi.RecordLift:
		name := f.locals.tmp("rec")
		parts := make([]string, len(inst.Record.Fields))
		for i, field := range inst.Record.Fields {
			parts[i] = goName(field.Name) + ": " + operands[i]
		}
		f.stmtf("%s := %s{%s}", name, f.g.typeDefName(inst.Type), strings.Join(parts, ", "))
		return []string{name}, nil

	case abi.TupleLower:
		v := f.bind(operands[0])
		out := make([]string, len(inst.Tuple.Types))
		for i := range inst.Tuple.Types {
			out[i] = fmt.Sprintf("%s.F%d", v, i)
		}
		return out, nil

	case abi.TupleLift:
		name := f.locals.tmp("tup")
		parts := make([]string, len(operands))
		for i, op := range operands {
			parts[i] = fmt.Sprintf("F%d: %s", i, op)
		}
		f.stmtf("%s := %s{%s}", name, f.g.tupleTypeName(inst.Tuple), strings.Join(parts, ", "))
		return []string{name}, nil

	case abi.FlagsLower:
		if len(inst.Flags.Flags) <= 32 {
			return []string{fmt.Sprintf("int32(%s)", operands[0])}, nil
		}
		v := f.bind(operands[0])
		out := make([]string, layout.FlagsWords(inst.Flags))
		for i := range out {
			out[i] = fmt.Sprintf("int32(%s[%d])", v, i)
		}
		return out, nil

	case abi.FlagsLift:
		typeName := f.g.typeDefName(inst.Type)
		if len(inst.Flags.Flags) <= 32 {
			return []string{fmt.Sprintf("%s(%s)", typeName, operands[0])}, nil
		}
		parts := make([]string, len(operands))
		for i, op := range operands {
			parts[i] = fmt.Sprintf("uint32(%s)", op)
		}
		name := f.locals.tmp("flags")
		f.stmtf("%s := %s{%s}", name, typeName, strings.Join(parts, ", "))
		return []string{name}, nil

	case abi.EnumLower:
		return []string{fmt.Sprintf("int32(%s)", operands[0])}, nil

	case abi.EnumLift:
		op := f.bind(operands[0])
		f.stmtf("if uint32(%s) >= %d {", op, len(inst.Enum.Cases))
		f.stmtf("\tpanic(\"invalid %s discriminant\")", witName(inst.Type, "enum"))
		f.stmtf("}")
		return []string{fmt.Sprintf("%s(%s)", f.g.typeDefName(inst.Type), op)}, nil

	case abi.VariantPayloadName:
		name := f.locals.tmp("payload")
		f.currentFrame().payload = name
		return []string{name}, nil

	case abi.VariantLower:
		return f.emitVariantLower(inst, operands[0])

	case abi.VariantLift:
		return f.emitVariantLift(inst, operands[0])

	case abi.OptionLower:
		return f.emitOptionLower(inst, operands[0])

	case abi.OptionLift:
		return f.emitOptionLift(inst, operands[0])

	case abi.ResultLower:
		return f.emitResultLower(inst, operands[0])

	case abi.ResultLift:
		return f.emitResultLift(inst, operands[0])

	case abi.ListCanonLower:
		return f.emitCanonLower(operands[0], "unsafe.SliceData", inst.Realloc)

	case abi.ListCanonLift:
		return f.emitCanonLift(inst.Element, operands[0], operands[1])

	case abi.ListLower:
		return f.emitListLower(inst, operands[0])

	case abi.ListLift:
		return f.emitListLift(inst, operands[0], operands[1])

	case abi.StringLower:
		return f.emitCanonLower(operands[0], "unsafe.StringData", inst.Realloc)

	case abi.StringLift:
		name := f.locals.tmp("str")
		f.g.needsUnsafe = true
		f.g.noteRealloc()
		f.stmtf("%s := string(unsafe.Slice((*byte)(unsafe.Pointer(%s)), %s))",
			name, operands[0], operands[1])
		return []string{name}, nil

	case abi.IterElem:
		name := f.locals.tmp("elem")
		f.currentFrame().element = name
		return []string{name}, nil

	case abi.IterBasePointer:
		name := f.locals.tmp("base")
		f.currentFrame().base = name
		return []string{name}, nil

	case abi.HandleLower:
		return f.emitHandleLower(inst, operands[0])

	case abi.HandleLift:
		return f.emitHandleLift(inst, operands[0])

	case abi.CallWasm:
		return f.emitCallWasm(inst, operands)

	case abi.CallInterface:
		return f.emitCallInterface(inst, operands)

	case abi.Return:
		return nil, f.emitReturn(operands)

	case abi.Malloc:
		return nil, errors.Unsupported(errors.PhaseEmit, "guest-side malloc")
	case abi.GuestDeallocate, abi.GuestDeallocateString,
		abi.GuestDeallocateList, abi.GuestDeallocateVariant:
		return nil, errors.Unsupported(errors.PhaseEmit, "guest deallocation")

	default:
		return nil, errors.Unsupported(errors.PhaseEmit,
			fmt.Sprintf("instruction %T", inst))
	}
}

// deferKeepAlive keeps op reachable until the core call completes. At
// function scope the KeepAlive statement is deferred directly. Inside a
// block the operand's local goes out of scope when the block does, so the
// value is parked in a function-level holder and the holder is kept alive
// instead; one holder serves every block of the function.
func (f *funcGen) deferKeepAlive(op string) {
	f.g.needsRuntime = true
	if len(f.frames) == 0 {
		f.cleanup = append(f.cleanup, fmt.Sprintf("runtime.KeepAlive(%s)", op))
		return
	}
	if f.keepVar == "" {
		f.keepVar = f.locals.tmp("keep")
		fmt.Fprintf(f.frames[0].saved, "var %s []any\n", f.keepVar)
		f.frames[0].cleanup = append(f.frames[0].cleanup,
			fmt.Sprintf("runtime.KeepAlive(%s)", f.keepVar))
	}
	f.stmtf("%s = append(%s, %s)", f.keepVar, f.keepVar, op)
}

// bind pins an operand expression to a local so it can be referenced more
// than once. Bare identifiers pass through.
func (f *funcGen) bind(op string) string {
	if isIdent(op) {
		return op
	}
	name := f.locals.tmp("v")
	f.stmtf("%s := %s", name, op)
	return name
}

func (f *funcGen) currentFrame() *blockFrame {
	return f.frames[len(f.frames)-1]
}

func (f *funcGen) stmtf(format string, args ...any) {
	fmt.Fprintf(f.src, format+"\n", args...)
}

func (f *funcGen) popBlocks(n int) []block {
	out := f.blocks[len(f.blocks)-n:]
	f.blocks = f.blocks[:len(f.blocks)-n]
	return out
}

// spliceBody writes a finished block body at the given nesting depth.
func (f *funcGen) spliceBody(body string, depth int) {
	if body == "" {
		return
	}
	pad := strings.Repeat("\t", depth)
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		if line == "" {
			f.src.WriteString("\n")
			continue
		}
		f.src.WriteString(pad + line + "\n")
	}
}

func (f *funcGen) castExpr(cast abi.Bitcast, op string) (string, error) {
	switch cast {
	case abi.BitcastNone:
		return op, nil
	case abi.I32ToI64:
		return fmt.Sprintf("int64(%s)", op), nil
	case abi.I64ToI32:
		return fmt.Sprintf("int32(%s)", op), nil
	case abi.F32ToI32:
		f.g.needsMath = true
		return fmt.Sprintf("int32(math.Float32bits(%s))", op), nil
	case abi.I32ToF32:
		f.g.needsMath = true
		return fmt.Sprintf("math.Float32frombits(uint32(%s))", op), nil
	case abi.F32ToI64:
		f.g.needsMath = true
		return fmt.Sprintf("int64(math.Float32bits(%s))", op), nil
	case abi.I64ToF32:
		f.g.needsMath = true
		return fmt.Sprintf("math.Float32frombits(uint32(%s))", op), nil
	case abi.F64ToI64:
		f.g.needsMath = true
		return fmt.Sprintf("int64(math.Float64bits(%s))", op), nil
	case abi.I64ToF64:
		f.g.needsMath = true
		return fmt.Sprintf("math.Float64frombits(uint64(%s))", op), nil
	default:
		return "", errors.Unsupported(errors.PhaseEmit, "unknown bitcast")
	}
}

func (f *funcGen) emitLoad(inst abi.Load, addr string) ([]string, error) {
	f.g.needsUnsafe = true
	var expr string
	at := memAddr(addr, inst.Offset)
	switch inst.Kind {
	case abi.LoadU8:
		expr = fmt.Sprintf("int32(*(*uint8)(%s))", at)
	case abi.LoadS8:
		expr = fmt.Sprintf("int32(*(*int8)(%s))", at)
	case abi.LoadU16:
		expr = fmt.Sprintf("int32(*(*uint16)(%s))", at)
	case abi.LoadS16:
		expr = fmt.Sprintf("int32(*(*int16)(%s))", at)
	case abi.LoadI32:
		expr = fmt.Sprintf("*(*int32)(%s)", at)
	case abi.LoadI64:
		expr = fmt.Sprintf("*(*int64)(%s)", at)
	case abi.LoadF32:
		expr = fmt.Sprintf("*(*float32)(%s)", at)
	case abi.LoadF64:
		expr = fmt.Sprintf("*(*float64)(%s)", at)
	case abi.LoadPointer, abi.LoadLength:
		expr = fmt.Sprintf("uintptr(*(*uint32)(%s))", at)
	default:
		return nil, errors.Unsupported(errors.PhaseEmit, "unknown load kind")
	}
	name := f.locals.tmp("ld")
	f.stmtf("%s := %s", name, expr)
	return []string{name}, nil
}

func (f *funcGen) emitStore(inst abi.Store, value, addr string) error {
	f.g.needsUnsafe = true
	at := memAddr(addr, inst.Offset)
	switch inst.Kind {
	case abi.StoreI8:
		f.stmtf("*(*uint8)(%s) = uint8(%s)", at, value)
	case abi.StoreI16:
		f.stmtf("*(*uint16)(%s) = uint16(%s)", at, value)
	case abi.StoreI32:
		f.stmtf("*(*int32)(%s) = int32(%s)", at, value)
	case abi.StoreI64:
		f.stmtf("*(*int64)(%s) = int64(%s)", at, value)
	case abi.StoreF32:
		f.stmtf("*(*float32)(%s) = %s", at, value)
	case abi.StoreF64:
		f.stmtf("*(*float64)(%s) = %s", at, value)
	case abi.StorePointer, abi.StoreLength:
		f.stmtf("*(*uint32)(%s) = uint32(%s)", at, value)
	default:
		return errors.Unsupported(errors.PhaseEmit, "unknown store kind")
	}
	return nil
}

func memAddr(addr string, offset uint32) string {
	if offset == 0 {
		return fmt.Sprintf("unsafe.Pointer(%s)", addr)
	}
	return fmt.Sprintf("unsafe.Pointer(%s + %d)", addr, offset)
}

func (f *funcGen) emitCoreFrom(t wit.Type, op string) ([]string, error) {
	switch t.(type) {
	case wit.Bool:
		name := f.locals.tmp("b")
		f.stmtf("%s := int32(0)", name)
		f.stmtf("if %s {", op)
		f.stmtf("\t%s = 1", name)
		f.stmtf("}")
		return []string{name}, nil
	case wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return []string{fmt.Sprintf("int32(%s)", op)}, nil
	case wit.U64, wit.S64:
		return []string{fmt.Sprintf("int64(%s)", op)}, nil
	case wit.F32, wit.F64:
		return []string{op}, nil
	default:
		return nil, errors.Unsupported(errors.PhaseLower, "non-primitive core conversion")
	}
}

func (f *funcGen) emitFromCore(t wit.Type, op string) ([]string, error) {
	switch t.(type) {
	case wit.Bool:
		return []string{fmt.Sprintf("(%s != 0)", op)}, nil
	case wit.U8:
		return []string{fmt.Sprintf("uint8(%s)", op)}, nil
	case wit.S8:
		return []string{fmt.Sprintf("int8(%s)", op)}, nil
	case wit.U16:
		return []string{fmt.Sprintf("uint16(%s)", op)}, nil
	case wit.S16:
		return []string{fmt.Sprintf("int16(%s)", op)}, nil
	case wit.U32:
		return []string{fmt.Sprintf("uint32(%s)", op)}, nil
	case wit.S32:
		return []string{fmt.Sprintf("int32(%s)", op)}, nil
	case wit.U64:
		return []string{fmt.Sprintf("uint64(%s)", op)}, nil
	case wit.S64:
		return []string{fmt.Sprintf("int64(%s)", op)}, nil
	case wit.Char:
		return []string{fmt.Sprintf("rune(%s)", op)}, nil
	case wit.F32, wit.F64:
		return []string{op}, nil
	default:
		return nil, errors.Unsupported(errors.PhaseLift, "non-primitive core conversion")
	}
}

// emitVariantLower writes the per-case switch. Every case assigns the same
// joined result locals, so downstream instructions see one set of operands
// regardless of which case ran.
func (f *funcGen) emitVariantLower(inst abi.VariantLower, op string) ([]string, error) {
	blocks := f.popBlocks(len(inst.Variant.Cases))
	op = f.bind(op)

	results := f.declareResults(inst.Results)

	f.stmtf("switch %s.Tag {", op)
	for i, c := range inst.Variant.Cases {
		f.stmtf("case %d:", i)
		if c.Type != nil && blocks[i].payload != "" {
			f.stmtf("\t%s := %s.%s", blocks[i].payload, op, goName(c.Name))
		}
		f.spliceBody(blocks[i].body, 1)
		f.assignResults(results, blocks[i].results, 1)
	}
	f.stmtf("default:")
	f.stmtf("\tpanic(\"invalid %s discriminant\")", witName(inst.Type, "variant"))
	f.stmtf("}")
	return results, nil
}

func (f *funcGen) emitVariantLift(inst abi.VariantLift, tag string) ([]string, error) {
	blocks := f.popBlocks(len(inst.Variant.Cases))
	typeName := f.g.typeDefName(inst.Type)
	name := f.locals.tmp("variant")

	f.stmtf("var %s %s", name, typeName)
	f.stmtf("switch %s {", tag)
	for i, c := range inst.Variant.Cases {
		f.stmtf("case %d:", i)
		f.spliceBody(blocks[i].body, 1)
		ctor := typeName + goName(c.Name)
		if len(blocks[i].results) > 0 {
			f.stmtf("\t%s = %s(%s)", name, ctor, blocks[i].results[0])
		} else {
			f.stmtf("\t%s = %s()", name, ctor)
		}
	}
	f.stmtf("default:")
	f.stmtf("\tpanic(\"invalid %s discriminant\")", witName(inst.Type, "variant"))
	f.stmtf("}")
	return []string{name}, nil
}

func (f *funcGen) emitOptionLower(inst abi.OptionLower, op string) ([]string, error) {
	blocks := f.popBlocks(2)
	none, some := blocks[0], blocks[1]
	op = f.bind(op)

	results := f.declareResults(inst.Results)

	f.stmtf("if %s.IsSome() {", op)
	if some.payload != "" {
		f.stmtf("\t%s := %s.Value()", some.payload, op)
	}
	f.spliceBody(some.body, 1)
	f.assignResults(results, some.results, 1)
	f.stmtf("} else {")
	f.spliceBody(none.body, 1)
	f.assignResults(results, none.results, 1)
	f.stmtf("}")
	return results, nil
}

func (f *funcGen) emitOptionLift(inst abi.OptionLift, tag string) ([]string, error) {
	blocks := f.popBlocks(2)
	none, some := blocks[0], blocks[1]
	payloadType := f.g.typeName(inst.Payload)
	name := f.locals.tmp("opt")

	f.g.needsOption = true
	f.stmtf("var %s Option[%s]", name, payloadType)
	f.stmtf("switch %s {", tag)
	f.stmtf("case 0:")
	f.spliceBody(none.body, 1)
	f.stmtf("\t%s = None[%s]()", name, payloadType)
	f.stmtf("case 1:")
	f.spliceBody(some.body, 1)
	f.stmtf("\t%s = Some(%s)", name, some.results[0])
	f.stmtf("default:")
	f.stmtf("\tpanic(\"invalid option discriminant\")")
	f.stmtf("}")
	return []string{name}, nil
}

func (f *funcGen) emitResultLower(inst abi.ResultLower, op string) ([]string, error) {
	blocks := f.popBlocks(2)
	ok, errBlock := blocks[0], blocks[1]
	op = f.bind(op)

	results := f.declareResults(inst.Results)

	f.stmtf("if %s.IsErr() {", op)
	if errBlock.payload != "" {
		f.stmtf("\t%s := %s.Err()", errBlock.payload, op)
	}
	f.spliceBody(errBlock.body, 1)
	f.assignResults(results, errBlock.results, 1)
	f.stmtf("} else {")
	if ok.payload != "" {
		f.stmtf("\t%s := %s.OK()", ok.payload, op)
	}
	f.spliceBody(ok.body, 1)
	f.assignResults(results, ok.results, 1)
	f.stmtf("}")
	return results, nil
}

func (f *funcGen) emitResultLift(inst abi.ResultLift, tag string) ([]string, error) {
	blocks := f.popBlocks(2)
	ok, errBlock := blocks[0], blocks[1]
	okType := f.g.payloadTypeName(inst.Result.OK)
	errType := f.g.payloadTypeName(inst.Result.Err)
	name := f.locals.tmp("res")

	f.g.needsResult = true
	f.stmtf("var %s Result[%s, %s]", name, okType, errType)
	f.stmtf("switch %s {", tag)
	f.stmtf("case 0:")
	f.spliceBody(ok.body, 1)
	f.stmtf("\t%s = OK[%s, %s](%s)", name, okType, errType, blockValue(ok))
	f.stmtf("case 1:")
	f.spliceBody(errBlock.body, 1)
	f.stmtf("\t%s = Err[%s, %s](%s)", name, okType, errType, blockValue(errBlock))
	f.stmtf("default:")
	f.stmtf("\tpanic(\"invalid result discriminant\")")
	f.stmtf("}")
	return []string{name}, nil
}

// blockValue is the payload a lift block produced, or the empty struct for
// payload-less arms.
func blockValue(b block) string {
	if len(b.results) > 0 {
		return b.results[0]
	}
	return "struct{}{}"
}

// declareResults emits one typed local per joined flat slot. Nothing is
// declared on the memory path, where blocks store instead of producing.
func (f *funcGen) declareResults(types []abi.WasmType) []string {
	results := make([]string, len(types))
	for i, t := range types {
		results[i] = f.locals.tmp("lowered")
		f.stmtf("var %s %s", results[i], coreType(t))
	}
	return results
}

func (f *funcGen) assignResults(dst, src []string, depth int) {
	pad := strings.Repeat("\t", depth)
	for i := range dst {
		fmt.Fprintf(f.src, "%s%s = %s\n", pad, dst[i], src[i])
	}
}

// emitCanonLower produces the (pointer, length) pair for a string or
// canonical list without copying. Import-side buffers are kept alive until
// the call returns; export-side buffers are pinned until post-return.
func (f *funcGen) emitCanonLower(op, dataFn string, realloc bool) ([]string, error) {
	op = f.bind(op)
	ptr := f.locals.tmp("ptr")
	length := f.locals.tmp("len")
	f.g.needsUnsafe = true
	f.stmtf("%s := uintptr(unsafe.Pointer(%s(%s)))", ptr, dataFn, op)
	f.stmtf("%s := uintptr(len(%s))", length, op)
	if realloc {
		f.g.needsPinned = true
		f.pinned = true
		f.stmtf("pin(%s)", op)
	} else {
		f.deferKeepAlive(op)
	}
	return []string{ptr, length}, nil
}

func (f *funcGen) emitCanonLift(element wit.Type, ptr, length string) ([]string, error) {
	elemType := f.g.typeName(element)
	name := f.locals.tmp("lst")
	f.g.needsUnsafe = true
	f.g.noteRealloc()
	f.stmtf("%s := make([]%s, int(%s))", name, elemType, length)
	f.stmtf("copy(%s, unsafe.Slice((*%s)(unsafe.Pointer(%s)), int(%s)))",
		name, elemType, ptr, length)
	return []string{name}, nil
}

func (f *funcGen) emitListLower(inst abi.ListLower, op string) ([]string, error) {
	blocks := f.popBlocks(1)
	body := blocks[0]

	op = f.bind(op)
	elemSize := f.g.sizes.Size(inst.Element)

	length := f.locals.tmp("len")
	buf := f.locals.tmp("buf")
	ptr := f.locals.tmp("ptr")
	idx := f.locals.tmp("i")

	f.g.needsUnsafe = true
	f.stmtf("%s := len(%s)", length, op)
	// Word-sized backing keeps the buffer aligned for every element type.
	f.stmtf("%s := make([]uint64, (%s*%d+7)/8)", buf, length, elemSize)
	f.stmtf("var %s uintptr", ptr)
	f.stmtf("if %s > 0 {", length)
	f.stmtf("\t%s = uintptr(unsafe.Pointer(unsafe.SliceData(%s)))", ptr, buf)
	f.stmtf("}")
	f.stmtf("for %s := 0; %s < %s; %s++ {", idx, idx, length, idx)
	f.stmtf("\t%s := %s[%s]", body.element, op, idx)
	f.stmtf("\t%s := %s + uintptr(%s)*%d", body.base, ptr, idx, elemSize)
	f.spliceBody(body.body, 1)
	f.stmtf("}")
	if inst.Realloc {
		f.g.needsPinned = true
		f.pinned = true
		f.stmtf("pin(%s)", buf)
	} else {
		f.deferKeepAlive(buf)
	}
	return []string{ptr, fmt.Sprintf("uintptr(%s)", length)}, nil
}

func (f *funcGen) emitListLift(inst abi.ListLift, ptr, length string) ([]string, error) {
	blocks := f.popBlocks(1)
	body := blocks[0]

	elemType := f.g.typeName(inst.Element)
	elemSize := f.g.sizes.Size(inst.Element)
	name := f.locals.tmp("lst")
	idx := f.locals.tmp("i")

	f.g.noteRealloc()
	f.stmtf("%s := make([]%s, int(%s))", name, elemType, length)
	f.stmtf("for %s := range %s {", idx, name)
	f.stmtf("\t%s := %s + uintptr(%s)*%d", body.base, ptr, idx, elemSize)
	f.spliceBody(body.body, 1)
	f.stmtf("\t%s[%s] = %s", name, idx, body.results[0])
	f.stmtf("}")
	return []string{name}, nil
}

func (f *funcGen) emitHandleLower(inst abi.HandleLower, op string) ([]string, error) {
	res := f.g.resourceInfoFor(inst.Resource)
	if res != nil && res.exposed {
		if !inst.Own {
			return nil, errors.Unsupported(errors.PhaseLower,
				"borrowed handle of an exported resource passed outward")
		}
		name := f.locals.tmp("handle")
		f.stmtf("%s := %s(%s.add(%s))", name, res.newFn, res.tableVar, op)
		return []string{name}, nil
	}

	op = f.bind(op)
	if !inst.Own {
		return []string{op + ".handle"}, nil
	}
	// Ownership transfers across the boundary; the local wrapper must not
	// drop the handle afterwards.
	name := f.locals.tmp("handle")
	f.stmtf("%s := %s.handle", name, op)
	f.stmtf("%s.handle = -1", op)
	return []string{name}, nil
}

func (f *funcGen) emitHandleLift(inst abi.HandleLift, op string) ([]string, error) {
	res := f.g.resourceInfoFor(inst.Resource)
	if res != nil && res.exposed {
		name := f.locals.tmp("impl")
		if inst.Own {
			rep := f.locals.tmp("rep")
			f.stmtf("%s := %s(%s)", rep, res.repFn, op)
			f.stmtf("%s := %s.get(%s)", name, res.tableVar, rep)
			// The table entry is released once the interface call is done
			// with the value.
			f.drops = append(f.drops, fmt.Sprintf("%s.remove(%s)", res.tableVar, rep))
		} else {
			f.stmtf("%s := %s.get(%s)", name, res.tableVar, op)
		}
		return []string{name}, nil
	}

	name := f.locals.tmp("h")
	f.stmtf("%s := &%s{handle: %s}", name, f.g.resourceTypeName(inst.Resource), op)
	if !inst.Own && f.dir == abi.Export {
		// A borrow lent to this call occupies a handle-table slot that
		// must be vacated before the wrapper returns.
		f.drops = append(f.drops, name+".Drop()")
	}
	return []string{name}, nil
}

func (f *funcGen) emitCallWasm(inst abi.CallWasm, operands []string) ([]string, error) {
	extern := f.g.externFor(inst.Module, inst.Name, inst.Sig)
	call := fmt.Sprintf("%s(%s)", extern, strings.Join(operands, ", "))
	if len(inst.Sig.Results) == 0 {
		f.stmtf("%s", call)
		return nil, nil
	}
	name := f.locals.tmp("ret")
	f.stmtf("%s := %s", name, call)
	return []string{name}, nil
}

func (f *funcGen) emitCallInterface(inst abi.CallInterface, operands []string) ([]string, error) {
	fn := inst.Func
	var call string
	switch fn.Kind {
	case abi.Method:
		call = fmt.Sprintf("%s.%s(%s)",
			operands[0], goName(fn.ItemName()), strings.Join(operands[1:], ", "))
	case abi.Constructor:
		call = fmt.Sprintf("%s.New%s(%s)",
			f.g.implVar(f.iface), f.g.resourceTypeName(fn.Resource), strings.Join(operands, ", "))
	case abi.Static:
		call = fmt.Sprintf("%s.%s%s(%s)",
			f.g.implVar(f.iface), f.g.resourceTypeName(fn.Resource),
			goName(fn.ItemName()), strings.Join(operands, ", "))
	default:
		call = fmt.Sprintf("%s.%s(%s)",
			f.g.implVar(f.iface), goName(fn.Name), strings.Join(operands, ", "))
	}

	var results []string
	if len(fn.Results) > 0 {
		name := f.locals.tmp("result")
		f.stmtf("%s := %s", name, call)
		results = []string{name}
	} else {
		f.stmtf("%s", call)
	}

	for _, drop := range f.drops {
		f.stmtf("%s", drop)
	}
	f.drops = nil
	return results, nil
}

func (f *funcGen) emitReturn(operands []string) error {
	for _, c := range f.cleanup {
		f.stmtf("%s", c)
	}
	f.cleanup = nil

	switch len(operands) {
	case 0:
		f.stmtf("return")
	case 1:
		f.stmtf("return %s", operands[0])
	default:
		return errors.Arity(errors.PhaseEmit, f.f.Name, "multi-value core return")
	}
	return nil
}

func witName(t *wit.TypeDef, fallback string) string {
	if t != nil && t.Name != nil {
		return *t.Name
	}
	return fallback
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
