package query

import (
	"fmt"
	"strings"

	"github.com/suminhong/diribon2gg/internal/catalog"
)

// SortField selects what a [SortKey] orders by.
type SortField string

const (
	// SortNameKR orders by the localised (Korean) name.
	SortNameKR SortField = "kr"

	// SortNameEN orders by the English name.
	SortNameEN SortField = "en"

	// SortRank orders by the position of a category value in its lookup
	// table, then by localised name ascending.
	SortRank SortField = "rank"
)

// SortKey is the single active ordering of a query.
type SortKey struct {
	Field SortField

	// Category is only meaningful for SortRank.
	Category catalog.Category

	Desc bool
}

// DefaultSort is the ordering a fresh browse view starts with.
var DefaultSort = SortKey{Field: SortNameKR}

// String renders the key in the form accepted by [ParseSortKey]:
// "kr_asc", "en_desc", "stage_asc", ...
func (k SortKey) String() string {
	dir := "asc"
	if k.Desc {
		dir = "desc"
	}
	if k.Field == SortRank {
		return string(k.Category) + "_" + dir
	}
	return string(k.Field) + "_" + dir
}

// Toggle mirrors the sort buttons: picking the active field flips its
// direction; picking another field starts it ascending.
func (k SortKey) Toggle(field SortField, c catalog.Category) SortKey {
	if k.Field == field && (field != SortRank || k.Category == c) {
		k.Desc = !k.Desc
		return k
	}
	next := SortKey{Field: field}
	if field == SortRank {
		next.Category = c
	}
	return next
}

// ParseSortKey parses "<field>_<asc|desc>" where field is "kr", "en" or a
// category name. An empty string yields [DefaultSort].
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return DefaultSort, nil
	}
	i := strings.LastIndexByte(s, '_')
	if i <= 0 {
		return SortKey{}, fmt.Errorf("query: invalid sort key %q", s)
	}
	field, dir := s[:i], s[i+1:]

	var k SortKey
	switch dir {
	case "asc":
	case "desc":
		k.Desc = true
	default:
		return SortKey{}, fmt.Errorf("query: invalid sort direction %q in %q", dir, s)
	}

	switch c := catalog.Category(field); {
	case field == string(SortNameKR):
		k.Field = SortNameKR
	case field == string(SortNameEN):
		k.Field = SortNameEN
	case c.IsValid():
		k.Field = SortRank
		k.Category = c
	default:
		return SortKey{}, fmt.Errorf("query: invalid sort field %q in %q", field, s)
	}
	return k, nil
}
