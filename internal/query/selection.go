package query

import (
	"slices"

	"github.com/suminhong/diribon2gg/internal/catalog"
)

// Selection is an immutable set of selected category values. The zero value
// is the empty selection, which means "no restriction".
type Selection struct {
	values []string
	set    map[string]struct{}
}

// NewSelection returns a selection holding values. Duplicates collapse and
// the first-seen order is kept for display.
func NewSelection(values ...string) Selection {
	s := Selection{set: make(map[string]struct{}, len(values))}
	for _, v := range values {
		if _, dup := s.set[v]; dup {
			continue
		}
		s.set[v] = struct{}{}
		s.values = append(s.values, v)
	}
	return s
}

// SelectAll returns a selection holding every key of lookups.
func SelectAll(lookups []catalog.Lookup) Selection {
	keys := make([]string, len(lookups))
	for i, l := range lookups {
		keys[i] = l.Key()
	}
	return NewSelection(keys...)
}

// ClearAll returns the empty selection.
func ClearAll() Selection { return Selection{} }

// Len returns the number of selected values.
func (s Selection) Len() int { return len(s.values) }

// IsEmpty reports whether nothing is selected.
func (s Selection) IsEmpty() bool { return len(s.values) == 0 }

// Has reports whether v is selected.
func (s Selection) Has(v string) bool {
	_, ok := s.set[v]
	return ok
}

// Values returns the selected values in insertion order.
func (s Selection) Values() []string { return slices.Clone(s.values) }

// Toggle returns a copy of s with v added when absent or removed when present.
func (s Selection) Toggle(v string) Selection {
	if s.Has(v) {
		return NewSelection(slices.DeleteFunc(s.Values(), func(x string) bool { return x == v })...)
	}
	return NewSelection(append(s.Values(), v)...)
}

// IsComplete reports whether every key of a non-empty lookup table is
// selected, which is when the browse view offers "clear all" instead of
// "select all". Selected values outside the table do not count.
func (s Selection) IsComplete(lookups []catalog.Lookup) bool {
	if len(lookups) == 0 {
		return false
	}
	for _, l := range lookups {
		if !s.Has(l.Key()) {
			return false
		}
	}
	return true
}

// BulkToggle mirrors the "select all / clear all" control: while any lookup
// key is unselected it selects every key, otherwise it clears.
func (s Selection) BulkToggle(lookups []catalog.Lookup) Selection {
	if !s.IsComplete(lookups) {
		return SelectAll(lookups)
	}
	return ClearAll()
}
