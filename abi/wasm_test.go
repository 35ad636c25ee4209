package abi

import (
	"testing"

	"go.bytecodealliance.org/wit"
)

func TestFlattenPrimitives(t *testing.T) {
	tests := []struct {
		witType wit.Type
		name    string
		want    []WasmType
	}{
		{wit.Bool{}, "bool", []WasmType{I32}},
		{wit.U8{}, "u8", []WasmType{I32}},
		{wit.S32{}, "s32", []WasmType{I32}},
		{wit.U64{}, "u64", []WasmType{I64}},
		{wit.F32{}, "f32", []WasmType{F32}},
		{wit.F64{}, "f64", []WasmType{F64}},
		{wit.Char{}, "char", []WasmType{I32}},
		{wit.String{}, "string", []WasmType{Pointer, Length}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Flatten(tt.witType, nil)
			if !equalTypes(got, tt.want) {
				t.Errorf("Flatten(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestFlattenRecord(t *testing.T) {
	record := &wit.TypeDef{
		Kind: &wit.Record{
			Fields: []wit.Field{
				{Name: "a", Type: wit.U32{}},
				{Name: "b", Type: wit.String{}},
				{Name: "c", Type: wit.F64{}},
			},
		},
	}

	got := Flatten(record, nil)
	want := []WasmType{I32, Pointer, Length, F64}
	if !equalTypes(got, want) {
		t.Errorf("Flatten(record) = %v, want %v", got, want)
	}
}

func TestFlattenVariantJoins(t *testing.T) {
	// u32 and f32 payloads share one joined i32 slot; u64 and f64 join to
	// i64; i32 and f32 against i64/f64 widen to i64.
	variant := &wit.TypeDef{
		Kind: &wit.Variant{
			Cases: []wit.Case{
				{Name: "a", Type: wit.U32{}},
				{Name: "b", Type: wit.F32{}},
			},
		},
	}

	got := Flatten(variant, nil)
	want := []WasmType{I32, I32}
	if !equalTypes(got, want) {
		t.Errorf("Flatten(variant<u32|f32>) = %v, want %v", got, want)
	}

	wide := &wit.TypeDef{
		Kind: &wit.Variant{
			Cases: []wit.Case{
				{Name: "a", Type: wit.U32{}},
				{Name: "b", Type: wit.F64{}},
			},
		},
	}

	got = Flatten(wide, nil)
	want = []WasmType{I32, I64}
	if !equalTypes(got, want) {
		t.Errorf("Flatten(variant<u32|f64>) = %v, want %v", got, want)
	}
}

func TestFlattenFlagsWide(t *testing.T) {
	flags := make([]wit.Flag, 33)
	td := &wit.TypeDef{Kind: &wit.Flags{Flags: flags}}

	got := Flatten(td, nil)
	if len(got) != 2 || got[0] != I32 || got[1] != I32 {
		t.Errorf("Flatten(flags33) = %v, want [i32 i32]", got)
	}
}

func TestFlattenOption(t *testing.T) {
	option := &wit.TypeDef{Kind: &wit.Option{Type: wit.String{}}}

	got := Flatten(option, nil)
	want := []WasmType{I32, Pointer, Length}
	if !equalTypes(got, want) {
		t.Errorf("Flatten(option<string>) = %v, want %v", got, want)
	}
}

func TestWasmSignatureDirect(t *testing.T) {
	f := &Function{
		Name: "add",
		Params: []Param{
			{Name: "x", Type: wit.U32{}},
			{Name: "y", Type: wit.U32{}},
		},
		Results: []Param{{Name: "", Type: wit.U32{}}},
	}

	sig, err := WasmSignature(Import, f)
	if err != nil {
		t.Fatalf("WasmSignature: %v", err)
	}
	if sig.IndirectParams || sig.RetPtr {
		t.Errorf("direct signature flagged indirect: %+v", sig)
	}
	if len(sig.Params) != 2 || len(sig.Results) != 1 {
		t.Errorf("signature shape = %d params, %d results; want 2, 1", len(sig.Params), len(sig.Results))
	}
}

func TestWasmSignatureSpillsParams(t *testing.T) {
	params := make([]Param, 17)
	for i := range params {
		params[i] = Param{Name: "p", Type: wit.U32{}}
	}
	f := &Function{Name: "wide", Params: params}

	sig, err := WasmSignature(Import, f)
	if err != nil {
		t.Fatalf("WasmSignature: %v", err)
	}
	if !sig.IndirectParams {
		t.Fatal("17 flat params must spill")
	}
	if len(sig.Params) != 1 || sig.Params[0] != Pointer {
		t.Errorf("spilled params = %v, want [pointer]", sig.Params)
	}
}

func TestWasmSignatureBoundary(t *testing.T) {
	params := make([]Param, 16)
	for i := range params {
		params[i] = Param{Name: "p", Type: wit.U32{}}
	}
	f := &Function{Name: "exact", Params: params}

	sig, err := WasmSignature(Import, f)
	if err != nil {
		t.Fatalf("WasmSignature: %v", err)
	}
	if sig.IndirectParams {
		t.Error("exactly 16 flat params must stay direct")
	}
}

func TestWasmSignatureRetPtr(t *testing.T) {
	f := &Function{
		Name:    "get",
		Results: []Param{{Name: "", Type: wit.String{}}},
	}

	imp, err := WasmSignature(Import, f)
	if err != nil {
		t.Fatalf("WasmSignature(import): %v", err)
	}
	if !imp.RetPtr {
		t.Fatal("string result must use a return pointer")
	}
	if len(imp.Params) != 1 || imp.Params[0] != Pointer {
		t.Errorf("import retptr params = %v, want trailing pointer", imp.Params)
	}
	if len(imp.Results) != 0 {
		t.Errorf("import retptr results = %v, want none", imp.Results)
	}

	exp, err := WasmSignature(Export, f)
	if err != nil {
		t.Fatalf("WasmSignature(export): %v", err)
	}
	if !exp.RetPtr {
		t.Fatal("export must also use the return area")
	}
	if len(exp.Results) != 1 || exp.Results[0] != Pointer {
		t.Errorf("export retptr results = %v, want [pointer]", exp.Results)
	}
}

func TestWasmSignatureRejectsMultiResults(t *testing.T) {
	f := &Function{
		Name: "multi",
		Results: []Param{
			{Name: "a", Type: wit.U32{}},
			{Name: "b", Type: wit.U32{}},
		},
	}

	if _, err := WasmSignature(Import, f); err == nil {
		t.Fatal("multi-value named results must be rejected")
	}
}

func TestBitcastBetween(t *testing.T) {
	tests := []struct {
		from, to WasmType
		want     Bitcast
	}{
		{I32, I32, BitcastNone},
		{I32, I64, I32ToI64},
		{F32, I32, F32ToI32},
		{F32, I64, F32ToI64},
		{F64, I64, F64ToI64},
		{I64, F64, I64ToF64},
		{I64, I32, I64ToI32},
	}

	for _, tt := range tests {
		if got := BitcastBetween(tt.from, tt.to); got != tt.want {
			t.Errorf("BitcastBetween(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestItemName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"[method]blob.read", "read"},
		{"[static]blob.merge", "merge"},
		{"[constructor]blob", "blob"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		f := &Function{Name: tt.name}
		if got := f.ItemName(); got != tt.want {
			t.Errorf("ItemName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCoreExportName(t *testing.T) {
	f := &Function{Name: "add"}
	if got := f.CoreExportName("docs:adder/add@0.1.0"); got != "docs:adder/add@0.1.0#add" {
		t.Errorf("CoreExportName = %q", got)
	}
	if got := f.CoreExportName(""); got != "add" {
		t.Errorf("root-world CoreExportName = %q, want bare name", got)
	}
	if got := PostReturnName("m#f"); got != "cabi_post_m#f" {
		t.Errorf("PostReturnName = %q", got)
	}
}

func equalTypes(a, b []WasmType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
