package layout

import (
	"fortio.org/safecast"
	"go.bytecodealliance.org/wit"
)

// Info describes the canonical ABI memory layout of one type.
type Info struct {
	Size      uint32
	Align     uint32
	FieldOffs map[string]uint32 // record fields only
}

// Calculator computes canonical ABI sizes, alignments and field offsets.
// Results are cached per TypeDef; the type graph is immutable once built,
// so the cache never invalidates.
type Calculator struct {
	cache map[*wit.TypeDef]Info
}

func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[*wit.TypeDef]Info),
	}
}

func (c *Calculator) Calculate(t wit.Type) Info {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return Info{Size: 1, Align: 1}
	case wit.U16, wit.S16:
		return Info{Size: 2, Align: 2}
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return Info{Size: 4, Align: 4}
	case wit.U64, wit.S64, wit.F64:
		return Info{Size: 8, Align: 8}
	case wit.String:
		return Info{Size: 8, Align: 4} // [ptr: u32, len: u32]
	case *wit.TypeDef:
		return c.calculateTypeDef(typ)
	default:
		return Info{Size: 0, Align: 1}
	}
}

// Size is a convenience accessor for Calculate(t).Size.
func (c *Calculator) Size(t wit.Type) uint32 {
	return c.Calculate(t).Size
}

// Align is a convenience accessor for Calculate(t).Align.
func (c *Calculator) Align(t wit.Type) uint32 {
	return c.Calculate(t).Align
}

// FieldOffset returns the byte offset of a named record field.
func (c *Calculator) FieldOffset(t *wit.TypeDef, field string) uint32 {
	return c.calculateTypeDef(t).FieldOffs[field]
}

// PayloadOffset returns the offset of a variant/option/result payload:
// the discriminant size aligned up to the payload alignment.
func (c *Calculator) PayloadOffset(discSize uint32, cases []wit.Type) uint32 {
	maxAlign := uint32(1)
	for _, t := range cases {
		if t == nil {
			continue
		}
		if a := c.Align(t); a > maxAlign {
			maxAlign = a
		}
	}
	return AlignTo(discSize, maxAlign)
}

func (c *Calculator) calculateTypeDef(t *wit.TypeDef) Info {
	if cached, ok := c.cache[t]; ok {
		return cached
	}

	var info Info

	switch kind := t.Kind.(type) {
	case *wit.Record:
		info = c.calculateRecord(kind)
	case *wit.Variant:
		info = c.calculateCases(DiscriminantSize(len(kind.Cases)), variantTypes(kind))
	case *wit.Enum:
		size := DiscriminantSize(len(kind.Cases))
		info = Info{Size: size, Align: size}
	case *wit.List:
		info = Info{Size: 8, Align: 4}
	case *wit.Option:
		info = c.calculateCases(1, []wit.Type{nil, kind.Type})
	case *wit.Result:
		info = c.calculateCases(1, []wit.Type{kind.OK, kind.Err})
	case *wit.Tuple:
		info = c.calculateTuple(kind)
	case *wit.Flags:
		info = calculateFlags(kind)
	case *wit.Own, *wit.Borrow:
		info = Info{Size: 4, Align: 4}
	case wit.Type:
		info = c.Calculate(kind)
	default:
		info = Info{Size: 0, Align: 1}
	}

	c.cache[t] = info
	return info
}

func (c *Calculator) calculateRecord(r *wit.Record) Info {
	if len(r.Fields) == 0 {
		return Info{Size: 0, Align: 1}
	}

	fieldOffs := make(map[string]uint32)
	maxAlign := uint32(1)
	offset := uint32(0)

	for _, field := range r.Fields {
		fieldLayout := c.Calculate(field.Type)

		offset = AlignTo(offset, fieldLayout.Align)
		fieldOffs[field.Name] = offset

		if fieldLayout.Align > maxAlign {
			maxAlign = fieldLayout.Align
		}

		offset += fieldLayout.Size
	}

	return Info{
		Size:      AlignTo(offset, maxAlign),
		Align:     maxAlign,
		FieldOffs: fieldOffs,
	}
}

// calculateCases handles the shared variant/option/result shape:
// a discriminant followed by the largest payload, aligned to the
// maximum payload alignment.
func (c *Calculator) calculateCases(discSize uint32, cases []wit.Type) Info {
	maxAlign := discSize
	maxSize := uint32(0)

	for _, t := range cases {
		if t == nil {
			continue
		}
		caseLayout := c.Calculate(t)
		if caseLayout.Align > maxAlign {
			maxAlign = caseLayout.Align
		}
		if caseLayout.Size > maxSize {
			maxSize = caseLayout.Size
		}
	}

	payloadOffset := AlignTo(discSize, maxAlign)
	return Info{
		Size:  AlignTo(payloadOffset+maxSize, maxAlign),
		Align: maxAlign,
	}
}

func (c *Calculator) calculateTuple(t *wit.Tuple) Info {
	if len(t.Types) == 0 {
		return Info{Size: 0, Align: 1}
	}

	maxAlign := uint32(1)
	offset := uint32(0)

	for _, typ := range t.Types {
		elemLayout := c.Calculate(typ)
		offset = AlignTo(offset, elemLayout.Align)

		if elemLayout.Align > maxAlign {
			maxAlign = elemLayout.Align
		}

		offset += elemLayout.Size
	}

	return Info{
		Size:  AlignTo(offset, maxAlign),
		Align: maxAlign,
	}
}

func calculateFlags(f *wit.Flags) Info {
	numFlags := len(f.Flags)

	switch {
	case numFlags == 0:
		return Info{Size: 0, Align: 1}
	case numFlags <= 8:
		return Info{Size: 1, Align: 1}
	case numFlags <= 16:
		return Info{Size: 2, Align: 2}
	case numFlags <= 32:
		return Info{Size: 4, Align: 4}
	default:
		// one 32-bit word per started group of 32; bit 32 is bit 0 of word 1
		words, err := safecast.Conv[uint32]((numFlags + 31) / 32)
		if err != nil {
			// unreachable for any input the resolver accepts
			return Info{Size: 0, Align: 1}
		}
		return Info{Size: words * 4, Align: 4}
	}
}

// FlagsWords returns the number of 32-bit words the flat representation
// of a flags type occupies.
func FlagsWords(f *wit.Flags) int {
	if len(f.Flags) > 32 {
		return (len(f.Flags) + 31) / 32
	}
	return 1
}

// DiscriminantSize returns the byte width of a variant/enum discriminant:
// 1 byte for <=256 cases, 2 for <=65536, else 4.
func DiscriminantSize(numCases int) uint32 {
	switch {
	case numCases <= 256:
		return 1
	case numCases <= 65536:
		return 2
	default:
		return 4
	}
}

// AlignTo rounds offset up to the next multiple of align.
func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

func variantTypes(v *wit.Variant) []wit.Type {
	types := make([]wit.Type, len(v.Cases))
	for i, cs := range v.Cases {
		types[i] = cs.Type
	}
	return types
}
