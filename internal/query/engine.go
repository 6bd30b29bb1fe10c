// Package query evaluates browse queries over a catalog snapshot: a
// case-insensitive free-text match, four category filters, and one sort key.
//
// Queries are plain values ([Params]) and evaluation is a pure function of the
// store and the params, so the same inputs always produce the same ordered
// output. The caller owns the current params and passes them on every call.
package query

import (
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/suminhong/diribon2gg/internal/catalog"
)

// Params is one immutable query. The zero value matches everything and sorts
// by localised name ascending.
type Params struct {
	// Text is matched case-insensitively as a substring of the localised or
	// English name. Empty matches everything.
	Text string

	// Filters holds one selection per category. A missing or empty selection
	// does not restrict.
	Filters map[catalog.Category]Selection

	// Sort is the active ordering. The zero value is [DefaultSort].
	Sort SortKey
}

// WithFilter returns a copy of p with the selection for c replaced.
func (p Params) WithFilter(c catalog.Category, s Selection) Params {
	filters := maps.Clone(p.Filters)
	if filters == nil {
		filters = make(map[catalog.Category]Selection, 1)
	}
	filters[c] = s
	p.Filters = filters
	return p
}

// WithText returns a copy of p with the search text replaced.
func (p Params) WithText(text string) Params {
	p.Text = text
	return p
}

// WithSort returns a copy of p with the sort key replaced.
func (p Params) WithSort(k SortKey) Params {
	p.Sort = k
	return p
}

// Filter returns the selection for c, empty when unset.
func (p Params) Filter(c catalog.Category) Selection {
	return p.Filters[c]
}

// Engine runs queries against a single store.
type Engine struct {
	store *catalog.Store
}

// NewEngine returns an Engine reading from store.
func NewEngine(store *catalog.Store) *Engine {
	return &Engine{store: store}
}

// Run filters the digimon table by p and orders the result by p.Sort.
func (e *Engine) Run(p Params) []catalog.Digimon {
	out := e.Filter(p)
	e.sort(out, p.Sort)
	return out
}

// Filter returns the digimon matching p in table order, without sorting.
func (e *Engine) Filter(p Params) []catalog.Digimon {
	needle := strings.ToLower(p.Text)
	out := []catalog.Digimon{}
	for _, d := range e.store.Digimons() {
		if matches(d, needle, p.Filters) {
			out = append(out, d)
		}
	}
	return out
}

// Matches reports whether d satisfies the text and category filters of p.
func Matches(d catalog.Digimon, p Params) bool {
	return matches(d, strings.ToLower(p.Text), p.Filters)
}

func matches(d catalog.Digimon, needle string, filters map[catalog.Category]Selection) bool {
	if needle != "" &&
		!strings.Contains(strings.ToLower(d.NameKR()), needle) &&
		!strings.Contains(strings.ToLower(d.NameEN()), needle) {
		return false
	}
	for c, sel := range filters {
		if sel.IsEmpty() {
			continue
		}
		if !sel.Has(d.Value(c)) {
			return false
		}
	}
	return true
}

// sort orders ds in place. It is stable: entries that compare equal keep the
// table order in both directions.
func (e *Engine) sort(ds []catalog.Digimon, key SortKey) {
	if key.Field == "" {
		key = DefaultSort
	}

	// Collators keep internal buffers and are not safe to share, so each run
	// gets its own.
	kr := collate.New(language.Korean)

	switch key.Field {
	case SortNameKR:
		slices.SortStableFunc(ds, func(a, b catalog.Digimon) int {
			if key.Desc {
				a, b = b, a
			}
			return kr.CompareString(a.NameKR(), b.NameKR())
		})

	case SortNameEN:
		en := collate.New(language.English)
		slices.SortStableFunc(ds, func(a, b catalog.Digimon) int {
			if key.Desc {
				a, b = b, a
			}
			return en.CompareString(a.NameEN(), b.NameEN())
		})

	case SortRank:
		ranks := e.ranks(key.Category)
		slices.SortStableFunc(ds, func(a, b catalog.Digimon) int {
			ra, rb := ranks[a.Value(key.Category)], ranks[b.Value(key.Category)]
			if ra != rb {
				if key.Desc {
					return rb - ra
				}
				return ra - rb
			}
			return kr.CompareString(a.NameKR(), b.NameKR())
		})
	}
}

// ranks maps each key of c's lookup table to its position. Values missing
// from the table read as rank 0 and therefore tie with the first entry.
func (e *Engine) ranks(c catalog.Category) map[string]int {
	lookups := e.store.Lookups(c)
	ranks := make(map[string]int, len(lookups))
	for i, l := range lookups {
		if _, dup := ranks[l.Key()]; !dup {
			ranks[l.Key()] = i
		}
	}
	return ranks
}
