// Package catalog holds one fetch cycle's worth of parsed reference data: the
// digimon table, the four categorical lookup tables, and the evolution edges.
//
// A [Store] is built once from parsed tables and never mutated. A new fetch
// produces a new Store (wrapped in a [Snapshot]) that callers swap in whole.
// All lookups are tolerant: a key that matches nothing yields ok == false,
// never an error, because the upstream data has known referential gaps.
package catalog

import (
	"encoding/json"

	"github.com/suminhong/diribon2gg/pkg/record"
)

// Table names as published upstream. Each table is served as <name>.csv.
const (
	TableDigimons   = "digimons"
	TableStages     = "stages"
	TableElements   = "elements"
	TableAttributes = "attributes"
	TableSpecies    = "species"
)

// EvolutionsFile is the JSON document holding the evolution edges.
const EvolutionsFile = "evolutions.json"

// Field names used by the digimon and lookup tables.
const (
	FieldNameEN = record.KeyField
	FieldNameKR = "name_kr"
	FieldColor  = "color"
)

// Category is one of the four categorical attributes of a digimon. Its string
// value is also the foreign-key column name on the digimon table.
type Category string

const (
	CategoryStage     Category = "stage"
	CategoryElement   Category = "element"
	CategoryAttribute Category = "attribute"
	CategorySpecies   Category = "species"
)

// Categories lists every category in the order the browse view presents its
// filters.
func Categories() []Category {
	return []Category{CategoryStage, CategorySpecies, CategoryElement, CategoryAttribute}
}

// IsValid reports whether c is a recognised category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryStage, CategoryElement, CategoryAttribute, CategorySpecies:
		return true
	}
	return false
}

// Table returns the name of the lookup table backing c, or "" for an unknown
// category.
func (c Category) Table() string {
	switch c {
	case CategoryStage:
		return TableStages
	case CategoryElement:
		return TableElements
	case CategoryAttribute:
		return TableAttributes
	case CategorySpecies:
		return TableSpecies
	}
	return ""
}

// Tables lists every CSV table a full catalog needs, lookups first.
func Tables() []string {
	return []string{TableStages, TableSpecies, TableElements, TableAttributes, TableDigimons}
}

// Digimon is a typed view over a row of the digimon table.
type Digimon struct {
	rec record.Record
}

// NewDigimon wraps a parsed record.
func NewDigimon(r record.Record) Digimon { return Digimon{rec: r} }

func (d Digimon) ID() string     { return d.rec.ID() }
func (d Digimon) NameEN() string { return d.rec.Get(FieldNameEN) }
func (d Digimon) NameKR() string { return d.rec.Get(FieldNameKR) }

// Value returns the foreign key the digimon holds for category c.
func (d Digimon) Value(c Category) string { return d.rec.Get(string(c)) }

// Record returns the underlying row.
func (d Digimon) Record() record.Record { return d.rec }

// IsZero reports whether d wraps no record.
func (d Digimon) IsZero() bool { return d.rec.IsZero() }

// MarshalJSON encodes the full underlying row.
func (d Digimon) MarshalJSON() ([]byte, error) { return json.Marshal(d.rec) }

// Lookup is a typed view over a row of a categorical lookup table.
type Lookup struct {
	rec record.Record
}

// NewLookup wraps a parsed record.
func NewLookup(r record.Record) Lookup { return Lookup{rec: r} }

// Key is the English name the digimon table references.
func (l Lookup) Key() string { return l.rec.Get(FieldNameEN) }

// Name is the localised display name.
func (l Lookup) Name() string { return l.rec.Get(FieldNameKR) }

// Color is the optional display colour; "" when the table has none.
func (l Lookup) Color() string { return l.rec.Get(FieldColor) }

// Record returns the underlying row.
func (l Lookup) Record() record.Record { return l.rec }

// Edge is one directed evolution from From to To. Requirements is never nil
// after decoding; an edge without requirements carries an empty slice.
type Edge struct {
	From         string   `json:"from"`
	To           string   `json:"to"`
	Requirements []string `json:"requirements"`
}
