package layout

import (
	"testing"

	"go.bytecodealliance.org/wit"
)

func TestCalculatePrimitives(t *testing.T) {
	tests := []struct {
		witType wit.Type
		name    string
		size    uint32
		align   uint32
	}{
		{wit.Bool{}, "bool", 1, 1},
		{wit.U8{}, "u8", 1, 1},
		{wit.S8{}, "s8", 1, 1},
		{wit.U16{}, "u16", 2, 2},
		{wit.S16{}, "s16", 2, 2},
		{wit.U32{}, "u32", 4, 4},
		{wit.S32{}, "s32", 4, 4},
		{wit.Char{}, "char", 4, 4},
		{wit.F32{}, "f32", 4, 4},
		{wit.U64{}, "u64", 8, 8},
		{wit.S64{}, "s64", 8, 8},
		{wit.F64{}, "f64", 8, 8},
		{wit.String{}, "string", 8, 4},
	}

	c := NewCalculator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := c.Calculate(tt.witType)
			if info.Size != tt.size || info.Align != tt.align {
				t.Errorf("Calculate(%s) = {%d, %d}, want {%d, %d}",
					tt.name, info.Size, info.Align, tt.size, tt.align)
			}
		})
	}
}

func TestCalculateRecord(t *testing.T) {
	record := &wit.TypeDef{
		Kind: &wit.Record{
			Fields: []wit.Field{
				{Name: "a", Type: wit.U8{}},
				{Name: "b", Type: wit.U32{}},
				{Name: "c", Type: wit.U16{}},
			},
		},
	}

	c := NewCalculator()
	info := c.Calculate(record)

	// a at 0, b padded to 4, c at 8, total padded to 12
	if info.Size != 12 || info.Align != 4 {
		t.Fatalf("record layout = {%d, %d}, want {12, 4}", info.Size, info.Align)
	}
	if off := c.FieldOffset(record, "b"); off != 4 {
		t.Errorf("FieldOffset(b) = %d, want 4", off)
	}
	if off := c.FieldOffset(record, "c"); off != 8 {
		t.Errorf("FieldOffset(c) = %d, want 8", off)
	}
}

func TestCalculateEmptyRecord(t *testing.T) {
	record := &wit.TypeDef{Kind: &wit.Record{}}

	info := NewCalculator().Calculate(record)
	if info.Size != 0 || info.Align != 1 {
		t.Errorf("empty record = {%d, %d}, want {0, 1}", info.Size, info.Align)
	}
}

func TestCalculateVariant(t *testing.T) {
	variant := &wit.TypeDef{
		Kind: &wit.Variant{
			Cases: []wit.Case{
				{Name: "a", Type: wit.U64{}},
				{Name: "b", Type: wit.U8{}},
				{Name: "c"},
			},
		},
	}

	info := NewCalculator().Calculate(variant)

	// discriminant 1 byte, payload at 8 (u64 alignment), 16 total
	if info.Size != 16 || info.Align != 8 {
		t.Errorf("variant layout = {%d, %d}, want {16, 8}", info.Size, info.Align)
	}
}

func TestCalculateOption(t *testing.T) {
	option := &wit.TypeDef{
		Kind: &wit.Option{Type: wit.U32{}},
	}

	info := NewCalculator().Calculate(option)
	if info.Size != 8 || info.Align != 4 {
		t.Errorf("option<u32> = {%d, %d}, want {8, 4}", info.Size, info.Align)
	}
}

func TestCalculateResult(t *testing.T) {
	result := &wit.TypeDef{
		Kind: &wit.Result{OK: wit.U64{}, Err: wit.String{}},
	}

	info := NewCalculator().Calculate(result)
	if info.Size != 16 || info.Align != 8 {
		t.Errorf("result<u64, string> = {%d, %d}, want {16, 8}", info.Size, info.Align)
	}
}

func TestCalculateTuple(t *testing.T) {
	tuple := &wit.TypeDef{
		Kind: &wit.Tuple{Types: []wit.Type{wit.U8{}, wit.U64{}, wit.U16{}}},
	}

	info := NewCalculator().Calculate(tuple)
	if info.Size != 24 || info.Align != 8 {
		t.Errorf("tuple layout = {%d, %d}, want {24, 8}", info.Size, info.Align)
	}
}

func TestCalculateFlags(t *testing.T) {
	makeFlags := func(n int) *wit.TypeDef {
		flags := make([]wit.Flag, n)
		for i := range flags {
			flags[i] = wit.Flag{Name: string(rune('a' + i%26))}
		}
		return &wit.TypeDef{Kind: &wit.Flags{Flags: flags}}
	}

	tests := []struct {
		name  string
		n     int
		size  uint32
		align uint32
	}{
		{"empty", 0, 0, 1},
		{"byte", 8, 1, 1},
		{"short", 16, 2, 2},
		{"word", 32, 4, 4},
		{"two-words", 33, 8, 4},
		{"three-words", 65, 12, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := NewCalculator().Calculate(makeFlags(tt.n))
			if info.Size != tt.size || info.Align != tt.align {
				t.Errorf("flags(%d) = {%d, %d}, want {%d, %d}",
					tt.n, info.Size, info.Align, tt.size, tt.align)
			}
		})
	}
}

func TestFlagsWords(t *testing.T) {
	makeFlags := func(n int) *wit.Flags {
		flags := make([]wit.Flag, n)
		return &wit.Flags{Flags: flags}
	}

	if got := FlagsWords(makeFlags(32)); got != 1 {
		t.Errorf("FlagsWords(32) = %d, want 1", got)
	}
	if got := FlagsWords(makeFlags(33)); got != 2 {
		t.Errorf("FlagsWords(33) = %d, want 2", got)
	}
	if got := FlagsWords(makeFlags(64)); got != 2 {
		t.Errorf("FlagsWords(64) = %d, want 2", got)
	}
	if got := FlagsWords(makeFlags(65)); got != 3 {
		t.Errorf("FlagsWords(65) = %d, want 3", got)
	}
}

func TestDiscriminantSize(t *testing.T) {
	tests := []struct {
		cases int
		want  uint32
	}{
		{1, 1},
		{256, 1},
		{257, 2},
		{65536, 2},
		{65537, 4},
	}

	for _, tt := range tests {
		if got := DiscriminantSize(tt.cases); got != tt.want {
			t.Errorf("DiscriminantSize(%d) = %d, want %d", tt.cases, got, tt.want)
		}
	}
}

func TestAlignTo(t *testing.T) {
	tests := []struct {
		offset, align, want uint32
	}{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{5, 8, 8},
		{13, 1, 13},
	}

	for _, tt := range tests {
		if got := AlignTo(tt.offset, tt.align); got != tt.want {
			t.Errorf("AlignTo(%d, %d) = %d, want %d", tt.offset, tt.align, got, tt.want)
		}
	}
}

func TestHandleLayout(t *testing.T) {
	own := &wit.TypeDef{Kind: &wit.Own{Type: nil}}
	borrow := &wit.TypeDef{Kind: &wit.Borrow{Type: nil}}

	c := NewCalculator()
	for _, td := range []*wit.TypeDef{own, borrow} {
		info := c.Calculate(td)
		if info.Size != 4 || info.Align != 4 {
			t.Errorf("handle layout = {%d, %d}, want {4, 4}", info.Size, info.Align)
		}
	}
}

func TestPayloadOffset(t *testing.T) {
	c := NewCalculator()

	if off := c.PayloadOffset(1, []wit.Type{wit.U64{}}); off != 8 {
		t.Errorf("PayloadOffset(1, u64) = %d, want 8", off)
	}
	if off := c.PayloadOffset(1, []wit.Type{wit.U8{}}); off != 1 {
		t.Errorf("PayloadOffset(1, u8) = %d, want 1", off)
	}
	if off := c.PayloadOffset(1, []wit.Type{nil, wit.U32{}}); off != 4 {
		t.Errorf("PayloadOffset(1, option u32) = %d, want 4", off)
	}
}

func TestCalculateCaching(t *testing.T) {
	record := &wit.TypeDef{
		Kind: &wit.Record{
			Fields: []wit.Field{{Name: "a", Type: wit.U32{}}},
		},
	}

	c := NewCalculator()
	first := c.Calculate(record)
	second := c.Calculate(record)
	if first.Size != second.Size || first.Align != second.Align {
		t.Errorf("cached result differs: %+v vs %+v", first, second)
	}
}
