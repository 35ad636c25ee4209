package codegen

import "testing"

func TestGoName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"blob", "Blob"},
		{"set-status-code", "SetStatusCode"},
		{"u32-list", "U32List"},
		{"a", "A"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := goName(tt.in); got != tt.want {
			t.Errorf("goName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGoLocalName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"blob", "blob"},
		{"set-status-code", "setStatusCode"},
		{"type", "type_"},
		{"interface", "interface_"},
		{"range", "range_"},
		{"", "_"},
	}

	for _, tt := range tests {
		if got := goLocalName(tt.in); got != tt.want {
			t.Errorf("goLocalName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNameSetReserve(t *testing.T) {
	ns := newNameSet()

	if got := ns.reserve("x"); got != "x" {
		t.Fatalf("first reserve = %q, want x", got)
	}
	second := ns.reserve("x")
	if second == "x" {
		t.Fatal("second reserve of x must rename")
	}
	third := ns.reserve("x")
	if third == second || third == "x" {
		t.Fatalf("third reserve collided: %q", third)
	}
}

func TestNameSetTmp(t *testing.T) {
	ns := newNameSet()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name := ns.tmp("ptr")
		if seen[name] {
			t.Fatalf("tmp repeated %q", name)
		}
		seen[name] = true
	}
}

func TestNameSetTmpAvoidsReserved(t *testing.T) {
	ns := newNameSet()
	ns.reserve("ptr1")
	if got := ns.tmp("ptr"); got == "ptr1" {
		t.Fatal("tmp returned a reserved name")
	}
}

func TestSanitize(t *testing.T) {
	if got := sanitize("docs:adder/add@0.1.0#add"); got != "docs_adder_add_0_1_0_add" {
		t.Errorf("sanitize = %q", got)
	}
}
