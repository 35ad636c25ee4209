// Package layout computes canonical ABI memory layouts for WIT types.
//
// Every composite layout is fully derived from its constituent layouts:
// records and tuples place fields in declaration order at aligned offsets,
// variants/options/results place the largest payload after the discriminant,
// and flags pick their width from the member count (1/2/4 bytes, or 32-bit
// words once more than 32 members are present).
//
// The calculator caches per TypeDef. The type graph is built once and is
// immutable afterwards, so cached entries stay valid for the lifetime of a
// generation run.
package layout
