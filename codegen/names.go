package codegen

import (
	"fmt"
	"strings"
)

// WIT-kebab to Go identifier conversion.
// Consolidates name transformation logic used throughout the generator.

var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
}

// goName converts a kebab-case WIT name to an exported Go identifier.
// Examples:
//   - "set-status-code" -> "SetStatusCode"
//   - "blob" -> "Blob"
//   - "u32-list" -> "U32List"
func goName(kebab string) string {
	var b strings.Builder
	upper := true
	for i := 0; i < len(kebab); i++ {
		c := kebab[i]
		switch {
		case c == '-' || c == '.' || c == '_':
			upper = true
		case upper && c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
			upper = false
		default:
			b.WriteByte(c)
			upper = false
		}
	}
	return b.String()
}

// goLocalName converts a kebab-case WIT name to an unexported Go identifier,
// escaping Go keywords with a trailing underscore.
func goLocalName(kebab string) string {
	name := goName(kebab)
	if name == "" {
		return "_"
	}
	if name[0] >= 'A' && name[0] <= 'Z' {
		name = string(name[0]-'A'+'a') + name[1:]
	}
	if goKeywords[name] {
		name += "_"
	}
	return name
}

// nameSet hands out local variable names that never collide within one
// function body. Parameter names are reserved up front; temporaries get a
// numeric suffix on first conflict.
type nameSet struct {
	used map[string]int
}

func newNameSet() *nameSet {
	return &nameSet{used: make(map[string]int)}
}

// reserve claims name as-is if free, otherwise suffixes it.
func (n *nameSet) reserve(name string) string {
	if _, taken := n.used[name]; !taken {
		n.used[name] = 0
		return name
	}
	return n.tmp(name)
}

// tmp returns a fresh name derived from prefix. The counter is per-prefix,
// so streams of temporaries stay readable.
func (n *nameSet) tmp(prefix string) string {
	for {
		n.used[prefix]++
		candidate := fmt.Sprintf("%s%d", prefix, n.used[prefix])
		if _, taken := n.used[candidate]; !taken {
			n.used[candidate] = 0
			return candidate
		}
	}
}
