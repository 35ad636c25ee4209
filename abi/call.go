package abi

import (
	"go.bytecodealliance.org/wit"

	"github.com/dicej/wit-bindgen-go/errors"
	"github.com/dicej/wit-bindgen-go/layout"
)

// Call drives backend b through the complete instruction stream for one
// function: lower-every-parameter, CallWasm, lift-every-result for imports;
// lift-every-parameter, CallInterface, lower-every-result for exports.
// Exactly one Return terminates the stream.
//
// Every composite lower/lift is preceded by exactly the blocks it needs, one
// per variant case, option arm, result arm, or list-element body, each fully
// translated before the structural instruction that consumes it. Primitives
// produce no blocks.
func Call[O any](b Backend[O], dir Direction, module string, f *Function) error {
	sig, err := WasmSignature(dir, f)
	if err != nil {
		return err
	}

	c := &compiler[O]{b: b, dir: dir, f: f}
	if dir == Import {
		err = c.lowerArgsLiftResults(module, sig)
	} else {
		err = c.liftArgsLowerResults(sig)
	}
	if err != nil {
		return &errors.Error{
			Phase:    errors.PhaseLower,
			Kind:     errors.KindInvalidData,
			Function: f.Name,
			Cause:    err,
			Detail:   "translation failed; no output emitted for this function",
		}
	}
	return nil
}

// compiler owns the symbolic operand stack shared between the driver and the
// backend during one function's translation.
type compiler[O any] struct {
	b     Backend[O]
	dir   Direction
	f     *Function
	stack []O
}

func (c *compiler[O]) lowerArgsLiftResults(module string, sig Signature) error {
	if !sig.IndirectParams {
		for i, p := range c.f.Params {
			if err := c.emit(GetArg{Nth: i}, 0); err != nil {
				return err
			}
			if err := c.lower(p.Type); err != nil {
				return err
			}
		}
	} else {
		// Spill: store every lowered parameter into one scratch area and
		// pass its address as the sole core parameter.
		size, align, offsets := paramsLayout(c.b.Sizes(), c.f.Params)
		ptr, err := c.b.ReturnPointer(size, align)
		if err != nil {
			return err
		}
		for i, p := range c.f.Params {
			if err := c.emit(GetArg{Nth: i}, 0); err != nil {
				return err
			}
			if err := c.write(p.Type, ptr, offsets[i]); err != nil {
				return err
			}
		}
		c.push(ptr)
	}

	var retPtr O
	if sig.RetPtr {
		info := c.b.Sizes().Calculate(c.f.Results[0].Type)
		ptr, err := c.b.ReturnPointer(info.Size, info.Align)
		if err != nil {
			return err
		}
		retPtr = ptr
		c.push(ptr)
	}

	if err := c.emit(CallWasm{Module: module, Name: c.f.Name, Sig: sig}, len(sig.Params)); err != nil {
		return err
	}

	if sig.RetPtr {
		if err := c.read(c.f.Results[0].Type, retPtr, 0); err != nil {
			return err
		}
	} else {
		for _, r := range c.f.Results {
			if err := c.lift(r.Type); err != nil {
				return err
			}
		}
	}

	return c.emit(Return{Amt: len(c.f.Results), Func: c.f}, len(c.f.Results))
}

func (c *compiler[O]) liftArgsLowerResults(sig Signature) error {
	if !sig.IndirectParams {
		nth := 0
		for _, p := range c.f.Params {
			n := FlatCount(p.Type)
			for j := 0; j < n; j++ {
				if err := c.emit(GetArg{Nth: nth}, 0); err != nil {
					return err
				}
				nth++
			}
			if err := c.lift(p.Type); err != nil {
				return err
			}
		}
	} else {
		if err := c.emit(GetArg{Nth: 0}, 0); err != nil {
			return err
		}
		ptr := c.pop()
		_, _, offsets := paramsLayout(c.b.Sizes(), c.f.Params)
		for i, p := range c.f.Params {
			if err := c.read(p.Type, ptr, offsets[i]); err != nil {
				return err
			}
		}
	}

	if err := c.emit(CallInterface{Func: c.f}, len(c.f.Params)); err != nil {
		return err
	}

	if !sig.RetPtr {
		for _, r := range c.f.Results {
			if err := c.lower(r.Type); err != nil {
				return err
			}
		}
		return c.emit(Return{Amt: len(sig.Results), Func: c.f}, len(sig.Results))
	}

	// The export returns a pointer into the process-scoped return area,
	// which must stay valid until the post-return call.
	info := c.b.Sizes().Calculate(c.f.Results[0].Type)
	ptr, err := c.b.ReturnPointer(info.Size, info.Align)
	if err != nil {
		return err
	}
	if err := c.write(c.f.Results[0].Type, ptr, 0); err != nil {
		return err
	}
	c.push(ptr)
	return c.emit(Return{Amt: 1, Func: c.f}, 1)
}

// lower translates the host value on top of the stack into its flat core
// values.
func (c *compiler[O]) lower(t wit.Type) error {
	switch t := t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32,
		wit.U64, wit.S64, wit.F32, wit.F64, wit.Char:
		return c.emit(CoreFrom{Type: t}, 1)
	case wit.String:
		return c.emit(StringLower{Realloc: c.dir == Export}, 1)
	case *wit.TypeDef:
		return c.lowerTypeDef(t)
	default:
		return errors.Unsupported(errors.PhaseLower, "unknown type shape")
	}
}

func (c *compiler[O]) lowerTypeDef(t *wit.TypeDef) error {
	switch kind := t.Kind.(type) {
	case *wit.Record:
		if err := c.emit(RecordLower{Record: kind, Type: t, Name: name(t)}, 1); err != nil {
			return err
		}
		fields := c.popN(len(kind.Fields))
		for i, f := range kind.Fields {
			c.push(fields[i])
			if err := c.lower(f.Type); err != nil {
				return err
			}
		}
		return nil

	case *wit.Tuple:
		if err := c.emit(TupleLower{Tuple: kind, Type: t}, 1); err != nil {
			return err
		}
		elems := c.popN(len(kind.Types))
		for i, et := range kind.Types {
			c.push(elems[i])
			if err := c.lower(et); err != nil {
				return err
			}
		}
		return nil

	case *wit.Flags:
		return c.emit(FlagsLower{Flags: kind, Type: t, Name: name(t)}, 1)

	case *wit.Enum:
		return c.emit(EnumLower{Enum: kind, Type: t, Name: name(t)}, 1)

	case *wit.Variant:
		flat := Flatten(t, nil)
		if err := c.lowerVariantArms(variantCases(kind), flat); err != nil {
			return err
		}
		return c.emit(VariantLower{Variant: kind, Type: t, Name: name(t), Results: flat}, 1)

	case *wit.Option:
		flat := Flatten(t, nil)
		if err := c.lowerVariantArms([]caseType{{nil}, {kind.Type}}, flat); err != nil {
			return err
		}
		return c.emit(OptionLower{Payload: kind.Type, Type: t, Results: flat}, 1)

	case *wit.Result:
		flat := Flatten(t, nil)
		if err := c.lowerVariantArms([]caseType{{kind.OK}, {kind.Err}}, flat); err != nil {
			return err
		}
		return c.emit(ResultLower{Result: kind, Type: t, Results: flat}, 1)

	case *wit.List:
		if c.b.IsListCanonical(kind.Type) {
			return c.emit(ListCanonLower{Element: kind.Type, Realloc: c.dir == Export}, 1)
		}
		c.b.PushBlock()
		if err := c.emit(IterElem{Element: kind.Type}, 0); err != nil {
			return err
		}
		if err := c.emit(IterBasePointer{}, 0); err != nil {
			return err
		}
		base := c.pop()
		if err := c.write(kind.Type, base, 0); err != nil {
			return err
		}
		if err := c.finishBlock(0); err != nil {
			return err
		}
		return c.emit(ListLower{Element: kind.Type, Realloc: c.dir == Export}, 1)

	case *wit.Own:
		return c.emit(HandleLower{Resource: kind.Type, Own: true}, 1)

	case *wit.Borrow:
		return c.emit(HandleLower{Resource: kind.Type, Own: false}, 1)

	case wit.Type:
		return c.lower(kind)

	default:
		return errors.Unsupported(errors.PhaseLower, "unsupported type definition")
	}
}

// lowerVariantArms emits one block per case. Each block contributes the
// discriminant constant, then the case payload lowered and bitcast into the
// joined slot types, then zero values for any slots the case leaves unused,
// so every case fills identical output positions. flat includes the
// discriminant; pass nil to make blocks that store through memory instead.
func (c *compiler[O]) lowerVariantArms(cases []caseType, flat []WasmType) error {
	for i, cs := range cases {
		c.b.PushBlock()
		if err := c.emit(VariantPayloadName{}, 0); err != nil {
			return err
		}
		payload := c.pop()

		if err := c.emit(I32Const{Val: int32(i)}, 0); err != nil {
			return err
		}
		pushed := 1

		if cs.ty != nil {
			c.push(payload)
			if err := c.lower(cs.ty); err != nil {
				return err
			}

			caseFlat := Flatten(cs.ty, nil)
			casts := make([]Bitcast, len(caseFlat))
			for j, ft := range caseFlat {
				casts[j] = BitcastBetween(ft, flat[1+j])
			}
			if err := c.emit(Bitcasts{Casts: casts}, len(caseFlat)); err != nil {
				return err
			}
			pushed += len(caseFlat)
		}

		if pushed < len(flat) {
			if err := c.emit(ConstZero{Types: flat[pushed:]}, 0); err != nil {
				return err
			}
			pushed = len(flat)
		}

		if err := c.finishBlock(pushed); err != nil {
			return err
		}
	}
	return nil
}

// lift translates flat core values on the stack back into one host value.
func (c *compiler[O]) lift(t wit.Type) error {
	switch t := t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32,
		wit.U64, wit.S64, wit.F32, wit.F64, wit.Char:
		return c.emit(FromCore{Type: t}, 1)
	case wit.String:
		return c.emit(StringLift{}, 2)
	case *wit.TypeDef:
		return c.liftTypeDef(t)
	default:
		return errors.Unsupported(errors.PhaseLift, "unknown type shape")
	}
}

func (c *compiler[O]) liftTypeDef(t *wit.TypeDef) error {
	switch kind := t.Kind.(type) {
	case *wit.Record:
		args := c.popN(FlatCount(t))
		consumed := 0
		for _, f := range kind.Fields {
			n := FlatCount(f.Type)
			for _, a := range args[consumed : consumed+n] {
				c.push(a)
			}
			consumed += n
			if err := c.lift(f.Type); err != nil {
				return err
			}
		}
		return c.emit(RecordLift{Record: kind, Type: t, Name: name(t)}, len(kind.Fields))

	case *wit.Tuple:
		args := c.popN(FlatCount(t))
		consumed := 0
		for _, et := range kind.Types {
			n := FlatCount(et)
			for _, a := range args[consumed : consumed+n] {
				c.push(a)
			}
			consumed += n
			if err := c.lift(et); err != nil {
				return err
			}
		}
		return c.emit(TupleLift{Tuple: kind, Type: t}, len(kind.Types))

	case *wit.Flags:
		return c.emit(FlagsLift{Flags: kind, Type: t, Name: name(t)}, layout.FlagsWords(kind))

	case *wit.Enum:
		return c.emit(EnumLift{Enum: kind, Type: t, Name: name(t)}, 1)

	case *wit.Variant:
		if err := c.liftVariantArms(t, variantCases(kind)); err != nil {
			return err
		}
		return c.emit(VariantLift{Variant: kind, Type: t, Name: name(t)}, 1)

	case *wit.Option:
		if err := c.liftVariantArms(t, []caseType{{nil}, {kind.Type}}); err != nil {
			return err
		}
		return c.emit(OptionLift{Payload: kind.Type, Type: t}, 1)

	case *wit.Result:
		if err := c.liftVariantArms(t, []caseType{{kind.OK}, {kind.Err}}); err != nil {
			return err
		}
		return c.emit(ResultLift{Result: kind, Type: t}, 1)

	case *wit.List:
		if c.b.IsListCanonical(kind.Type) {
			return c.emit(ListCanonLift{Element: kind.Type}, 2)
		}
		c.b.PushBlock()
		if err := c.emit(IterBasePointer{}, 0); err != nil {
			return err
		}
		base := c.pop()
		if err := c.read(kind.Type, base, 0); err != nil {
			return err
		}
		if err := c.finishBlock(1); err != nil {
			return err
		}
		return c.emit(ListLift{Element: kind.Type}, 2)

	case *wit.Own:
		return c.emit(HandleLift{Resource: kind.Type, Own: true}, 1)

	case *wit.Borrow:
		return c.emit(HandleLift{Resource: kind.Type, Own: false}, 1)

	case wit.Type:
		return c.lift(kind)

	default:
		return errors.Unsupported(errors.PhaseLift, "unsupported type definition")
	}
}

// liftVariantArms consumes the flat representation (tag plus joined payload
// slots) and emits one block per case that bitcasts the payload slots back
// to the case's own flat types and lifts them. The discriminant stays on
// the stack for the structural lift instruction.
func (c *compiler[O]) liftVariantArms(t *wit.TypeDef, cases []caseType) error {
	flat := Flatten(t, nil)
	args := c.popN(len(flat))
	tag, payloadArgs := args[0], args[1:]
	payloadTypes := flat[1:]

	for _, cs := range cases {
		c.b.PushBlock()
		produced := 0
		if cs.ty != nil {
			caseFlat := Flatten(cs.ty, nil)
			casts := make([]Bitcast, len(caseFlat))
			for j, ft := range caseFlat {
				c.push(payloadArgs[j])
				casts[j] = BitcastBetween(payloadTypes[j], ft)
			}
			if err := c.emit(Bitcasts{Casts: casts}, len(caseFlat)); err != nil {
				return err
			}
			if err := c.lift(cs.ty); err != nil {
				return err
			}
			produced = 1
		}
		if err := c.finishBlock(produced); err != nil {
			return err
		}
	}

	c.push(tag)
	return nil
}

// write lowers the value on top of the stack and stores it at addr+offset.
func (c *compiler[O]) write(t wit.Type, addr O, offset uint32) error {
	switch t := t.(type) {
	case wit.Bool, wit.U8, wit.S8:
		return c.lowerAndStore(t, addr, Store{Kind: StoreI8, Offset: offset})
	case wit.U16, wit.S16:
		return c.lowerAndStore(t, addr, Store{Kind: StoreI16, Offset: offset})
	case wit.U32, wit.S32, wit.Char:
		return c.lowerAndStore(t, addr, Store{Kind: StoreI32, Offset: offset})
	case wit.U64, wit.S64:
		return c.lowerAndStore(t, addr, Store{Kind: StoreI64, Offset: offset})
	case wit.F32:
		return c.lowerAndStore(t, addr, Store{Kind: StoreF32, Offset: offset})
	case wit.F64:
		return c.lowerAndStore(t, addr, Store{Kind: StoreF64, Offset: offset})
	case wit.String:
		return c.writePtrLen(t, addr, offset)
	case *wit.TypeDef:
		return c.writeTypeDef(t, addr, offset)
	default:
		return errors.Unsupported(errors.PhaseLower, "unknown type shape")
	}
}

func (c *compiler[O]) writeTypeDef(t *wit.TypeDef, addr O, offset uint32) error {
	sizes := c.b.Sizes()
	switch kind := t.Kind.(type) {
	case *wit.Record:
		if err := c.emit(RecordLower{Record: kind, Type: t, Name: name(t)}, 1); err != nil {
			return err
		}
		fields := c.popN(len(kind.Fields))
		for i, f := range kind.Fields {
			c.push(fields[i])
			if err := c.write(f.Type, addr, offset+sizes.FieldOffset(t, f.Name)); err != nil {
				return err
			}
		}
		return nil

	case *wit.Tuple:
		if err := c.emit(TupleLower{Tuple: kind, Type: t}, 1); err != nil {
			return err
		}
		elems := c.popN(len(kind.Types))
		elemOffset := uint32(0)
		for i, et := range kind.Types {
			info := sizes.Calculate(et)
			elemOffset = layout.AlignTo(elemOffset, info.Align)
			c.push(elems[i])
			if err := c.write(et, addr, offset+elemOffset); err != nil {
				return err
			}
			elemOffset += info.Size
		}
		return nil

	case *wit.Flags:
		if err := c.emit(FlagsLower{Flags: kind, Type: t, Name: name(t)}, 1); err != nil {
			return err
		}
		return c.storeFlagWords(kind, addr, offset)

	case *wit.Enum:
		if err := c.emit(EnumLower{Enum: kind, Type: t, Name: name(t)}, 1); err != nil {
			return err
		}
		return c.storeDiscriminant(layout.DiscriminantSize(len(kind.Cases)), addr, offset)

	case *wit.Variant:
		disc := layout.DiscriminantSize(len(kind.Cases))
		payload := offset + sizes.PayloadOffset(disc, variantPayloads(kind))
		if err := c.writeVariantArms(variantCases(kind), disc, addr, offset, payload); err != nil {
			return err
		}
		return c.emit(VariantLower{Variant: kind, Type: t, Name: name(t)}, 1)

	case *wit.Option:
		payload := offset + sizes.PayloadOffset(1, []wit.Type{kind.Type})
		if err := c.writeVariantArms([]caseType{{nil}, {kind.Type}}, 1, addr, offset, payload); err != nil {
			return err
		}
		return c.emit(OptionLower{Payload: kind.Type, Type: t}, 1)

	case *wit.Result:
		payload := offset + sizes.PayloadOffset(1, []wit.Type{kind.OK, kind.Err})
		if err := c.writeVariantArms([]caseType{{kind.OK}, {kind.Err}}, 1, addr, offset, payload); err != nil {
			return err
		}
		return c.emit(ResultLower{Result: kind, Type: t}, 1)

	case *wit.List:
		return c.writePtrLen(t, addr, offset)

	case *wit.Own, *wit.Borrow:
		if err := c.lower(t); err != nil {
			return err
		}
		c.push(addr)
		return c.emit(Store{Kind: StoreI32, Offset: offset}, 2)

	case wit.Type:
		return c.write(kind, addr, offset)

	default:
		return errors.Unsupported(errors.PhaseLower, "unsupported type definition")
	}
}

// writeVariantArms stores the discriminant and the selected case's payload.
// The blocks produce no operands; repetition of the store sequence happens
// per case, all writing the same payload offset.
func (c *compiler[O]) writeVariantArms(cases []caseType, discSize uint32, addr O, offset, payloadOffset uint32) error {
	for i, cs := range cases {
		c.b.PushBlock()
		if err := c.emit(VariantPayloadName{}, 0); err != nil {
			return err
		}
		payload := c.pop()

		if err := c.emit(I32Const{Val: int32(i)}, 0); err != nil {
			return err
		}
		if err := c.storeDiscriminant(discSize, addr, offset); err != nil {
			return err
		}

		if cs.ty != nil {
			c.push(payload)
			if err := c.write(cs.ty, addr, payloadOffset); err != nil {
				return err
			}
		}

		if err := c.finishBlock(0); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler[O]) writePtrLen(t wit.Type, addr O, offset uint32) error {
	if err := c.lower(t); err != nil {
		return err
	}
	// stack: ptr, len
	length := c.pop()
	ptr := c.pop()

	c.push(length)
	c.push(addr)
	if err := c.emit(Store{Kind: StoreLength, Offset: offset + 4}, 2); err != nil {
		return err
	}
	c.push(ptr)
	c.push(addr)
	return c.emit(Store{Kind: StorePointer, Offset: offset}, 2)
}

func (c *compiler[O]) lowerAndStore(t wit.Type, addr O, st Store) error {
	if err := c.lower(t); err != nil {
		return err
	}
	c.push(addr)
	return c.emit(st, 2)
}

func (c *compiler[O]) storeDiscriminant(discSize uint32, addr O, offset uint32) error {
	kind := StoreI32
	switch discSize {
	case 1:
		kind = StoreI8
	case 2:
		kind = StoreI16
	}
	c.push(addr)
	return c.emit(Store{Kind: kind, Offset: offset}, 2)
}

// storeFlagWords writes the packed words produced by FlagsLower, narrow
// types at their layout width and wide flag sets one u32 word at a time.
func (c *compiler[O]) storeFlagWords(f *wit.Flags, addr O, offset uint32) error {
	if len(f.Flags) <= 32 {
		kind := StoreI32
		switch {
		case len(f.Flags) <= 8:
			kind = StoreI8
		case len(f.Flags) <= 16:
			kind = StoreI16
		}
		c.push(addr)
		return c.emit(Store{Kind: kind, Offset: offset}, 2)
	}

	words := c.popN(layout.FlagsWords(f))
	for i := len(words) - 1; i >= 0; i-- {
		c.push(words[i])
		c.push(addr)
		if err := c.emit(Store{Kind: StoreI32, Offset: offset + uint32(i)*4}, 2); err != nil {
			return err
		}
	}
	return nil
}

// read loads the value stored at addr+offset and lifts it onto the stack.
func (c *compiler[O]) read(t wit.Type, addr O, offset uint32) error {
	switch t := t.(type) {
	case wit.Bool, wit.U8:
		return c.loadAndLift(t, addr, Load{Kind: LoadU8, Offset: offset})
	case wit.S8:
		return c.loadAndLift(t, addr, Load{Kind: LoadS8, Offset: offset})
	case wit.U16:
		return c.loadAndLift(t, addr, Load{Kind: LoadU16, Offset: offset})
	case wit.S16:
		return c.loadAndLift(t, addr, Load{Kind: LoadS16, Offset: offset})
	case wit.U32, wit.S32, wit.Char:
		return c.loadAndLift(t, addr, Load{Kind: LoadI32, Offset: offset})
	case wit.U64, wit.S64:
		return c.loadAndLift(t, addr, Load{Kind: LoadI64, Offset: offset})
	case wit.F32:
		return c.loadAndLift(t, addr, Load{Kind: LoadF32, Offset: offset})
	case wit.F64:
		return c.loadAndLift(t, addr, Load{Kind: LoadF64, Offset: offset})
	case wit.String:
		return c.readPtrLen(t, addr, offset)
	case *wit.TypeDef:
		return c.readTypeDef(t, addr, offset)
	default:
		return errors.Unsupported(errors.PhaseLift, "unknown type shape")
	}
}

func (c *compiler[O]) readTypeDef(t *wit.TypeDef, addr O, offset uint32) error {
	sizes := c.b.Sizes()
	switch kind := t.Kind.(type) {
	case *wit.Record:
		for _, f := range kind.Fields {
			if err := c.read(f.Type, addr, offset+sizes.FieldOffset(t, f.Name)); err != nil {
				return err
			}
		}
		return c.emit(RecordLift{Record: kind, Type: t, Name: name(t)}, len(kind.Fields))

	case *wit.Tuple:
		elemOffset := uint32(0)
		for _, et := range kind.Types {
			info := sizes.Calculate(et)
			elemOffset = layout.AlignTo(elemOffset, info.Align)
			if err := c.read(et, addr, offset+elemOffset); err != nil {
				return err
			}
			elemOffset += info.Size
		}
		return c.emit(TupleLift{Tuple: kind, Type: t}, len(kind.Types))

	case *wit.Flags:
		if err := c.loadFlagWords(kind, addr, offset); err != nil {
			return err
		}
		return c.emit(FlagsLift{Flags: kind, Type: t, Name: name(t)}, layout.FlagsWords(kind))

	case *wit.Enum:
		if err := c.loadDiscriminant(layout.DiscriminantSize(len(kind.Cases)), addr, offset); err != nil {
			return err
		}
		return c.emit(EnumLift{Enum: kind, Type: t, Name: name(t)}, 1)

	case *wit.Variant:
		disc := layout.DiscriminantSize(len(kind.Cases))
		payload := offset + sizes.PayloadOffset(disc, variantPayloads(kind))
		if err := c.readVariantArms(variantCases(kind), disc, addr, offset, payload); err != nil {
			return err
		}
		return c.emit(VariantLift{Variant: kind, Type: t, Name: name(t)}, 1)

	case *wit.Option:
		payload := offset + sizes.PayloadOffset(1, []wit.Type{kind.Type})
		if err := c.readVariantArms([]caseType{{nil}, {kind.Type}}, 1, addr, offset, payload); err != nil {
			return err
		}
		return c.emit(OptionLift{Payload: kind.Type, Type: t}, 1)

	case *wit.Result:
		payload := offset + sizes.PayloadOffset(1, []wit.Type{kind.OK, kind.Err})
		if err := c.readVariantArms([]caseType{{kind.OK}, {kind.Err}}, 1, addr, offset, payload); err != nil {
			return err
		}
		return c.emit(ResultLift{Result: kind, Type: t}, 1)

	case *wit.List:
		return c.readPtrLen(t, addr, offset)

	case *wit.Own, *wit.Borrow:
		c.push(addr)
		if err := c.emit(Load{Kind: LoadI32, Offset: offset}, 1); err != nil {
			return err
		}
		return c.lift(t)

	case wit.Type:
		return c.read(kind, addr, offset)

	default:
		return errors.Unsupported(errors.PhaseLift, "unsupported type definition")
	}
}

func (c *compiler[O]) readVariantArms(cases []caseType, discSize uint32, addr O, offset, payloadOffset uint32) error {
	if err := c.loadDiscriminant(discSize, addr, offset); err != nil {
		return err
	}
	for _, cs := range cases {
		c.b.PushBlock()
		produced := 0
		if cs.ty != nil {
			if err := c.read(cs.ty, addr, payloadOffset); err != nil {
				return err
			}
			produced = 1
		}
		if err := c.finishBlock(produced); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler[O]) readPtrLen(t wit.Type, addr O, offset uint32) error {
	c.push(addr)
	if err := c.emit(Load{Kind: LoadPointer, Offset: offset}, 1); err != nil {
		return err
	}
	c.push(addr)
	if err := c.emit(Load{Kind: LoadLength, Offset: offset + 4}, 1); err != nil {
		return err
	}
	return c.lift(t)
}

func (c *compiler[O]) loadAndLift(t wit.Type, addr O, ld Load) error {
	c.push(addr)
	if err := c.emit(ld, 1); err != nil {
		return err
	}
	return c.lift(t)
}

func (c *compiler[O]) loadDiscriminant(discSize uint32, addr O, offset uint32) error {
	kind := LoadI32
	switch discSize {
	case 1:
		kind = LoadU8
	case 2:
		kind = LoadU16
	}
	c.push(addr)
	return c.emit(Load{Kind: kind, Offset: offset}, 1)
}

func (c *compiler[O]) loadFlagWords(f *wit.Flags, addr O, offset uint32) error {
	if len(f.Flags) <= 32 {
		kind := LoadI32
		switch {
		case len(f.Flags) <= 8:
			kind = LoadU8
		case len(f.Flags) <= 16:
			kind = LoadU16
		}
		c.push(addr)
		return c.emit(Load{Kind: kind, Offset: offset}, 1)
	}

	for i := 0; i < layout.FlagsWords(f); i++ {
		c.push(addr)
		if err := c.emit(Load{Kind: LoadI32, Offset: offset + uint32(i)*4}, 1); err != nil {
			return err
		}
	}
	return nil
}

// emit pops operands inputs, hands the instruction to the backend, and
// pushes whatever it produced.
func (c *compiler[O]) emit(inst Instruction, operands int) error {
	args := c.popN(operands)
	results, err := c.b.Emit(inst, args)
	if err != nil {
		return err
	}
	c.stack = append(c.stack, results...)
	return nil
}

func (c *compiler[O]) finishBlock(results int) error {
	return c.b.FinishBlock(c.popN(results))
}

func (c *compiler[O]) push(o O) {
	c.stack = append(c.stack, o)
}

func (c *compiler[O]) pop() O {
	o := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return o
}

func (c *compiler[O]) popN(n int) []O {
	out := make([]O, n)
	copy(out, c.stack[len(c.stack)-n:])
	c.stack = c.stack[:len(c.stack)-n]
	return out
}

type caseType struct {
	ty wit.Type
}

func variantCases(v *wit.Variant) []caseType {
	cases := make([]caseType, len(v.Cases))
	for i, cs := range v.Cases {
		cases[i] = caseType{cs.Type}
	}
	return cases
}

func variantPayloads(v *wit.Variant) []wit.Type {
	types := make([]wit.Type, len(v.Cases))
	for i, cs := range v.Cases {
		types[i] = cs.Type
	}
	return types
}

// paramsLayout computes the spill-area layout for a parameter list: each
// parameter at its aligned offset, exactly as a record of the same types.
func paramsLayout(sizes *layout.Calculator, params []Param) (size, align uint32, offsets []uint32) {
	align = 1
	offsets = make([]uint32, len(params))
	for i, p := range params {
		info := sizes.Calculate(p.Type)
		size = layout.AlignTo(size, info.Align)
		offsets[i] = size
		size += info.Size
		if info.Align > align {
			align = info.Align
		}
	}
	size = layout.AlignTo(size, align)
	return size, align, offsets
}

func name(t *wit.TypeDef) string {
	if t.Name != nil {
		return *t.Name
	}
	return ""
}
