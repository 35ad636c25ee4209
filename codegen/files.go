package codegen

import "sort"

// Files is the in-memory output of one generation run, keyed by relative
// path. Contents are final formatted source; writing them out is the
// caller's business.
type Files map[string][]byte

// Names returns the output paths in sorted order.
func (f Files) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
