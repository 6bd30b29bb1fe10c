// Package attribute joins a digimon's categorical foreign keys against the
// lookup tables to produce display-ready bindings.
//
// Joins are tolerant: a foreign key that matches no lookup row yields a nil
// binding rather than an error. Everything here is pure.
package attribute

import (
	"github.com/suminhong/diribon2gg/internal/catalog"
)

// Binding is one resolved category value.
type Binding struct {
	Category catalog.Category `json:"category"`
	Key      string           `json:"name_en"`
	Name     string           `json:"name_kr"`
	Color    string           `json:"color,omitempty"`
	Accent   string           `json:"accent"`
	Label    string           `json:"label"`
}

// Bindings holds up to four resolved categories. Unmatched categories are nil.
type Bindings struct {
	Stage     *Binding `json:"stage,omitempty"`
	Element   *Binding `json:"element,omitempty"`
	Attribute *Binding `json:"attribute,omitempty"`
	Species   *Binding `json:"species,omitempty"`
}

// labelSuffix is appended to the badge label of some categories.
var labelSuffix = map[catalog.Category]string{
	catalog.CategoryElement:   " 속성",
	catalog.CategoryAttribute: " 타입",
}

// Join resolves the four categories of d against store.
func Join(d catalog.Digimon, store *catalog.Store) Bindings {
	return Bindings{
		Stage:     bind(d, store, catalog.CategoryStage),
		Element:   bind(d, store, catalog.CategoryElement),
		Attribute: bind(d, store, catalog.CategoryAttribute),
		Species:   bind(d, store, catalog.CategorySpecies),
	}
}

// Bind resolves a single lookup row into a binding.
func Bind(c catalog.Category, l catalog.Lookup) *Binding {
	return &Binding{
		Category: c,
		Key:      l.Key(),
		Name:     l.Name(),
		Color:    l.Color(),
		Accent:   Accent(l.Color()),
		Label:    l.Name() + "(" + l.Key() + ")" + labelSuffix[c],
	}
}

func bind(d catalog.Digimon, store *catalog.Store, c catalog.Category) *Binding {
	l, ok := store.Lookup(c, d.Value(c))
	if !ok {
		return nil
	}
	return Bind(c, l)
}

// Get returns the binding for c, or nil.
func (b Bindings) Get(c catalog.Category) *Binding {
	switch c {
	case catalog.CategoryStage:
		return b.Stage
	case catalog.CategoryElement:
		return b.Element
	case catalog.CategoryAttribute:
		return b.Attribute
	case catalog.CategorySpecies:
		return b.Species
	}
	return nil
}

// List returns the resolved bindings in badge order (stage, element,
// attribute, species), skipping unmatched ones.
func (b Bindings) List() []Binding {
	out := make([]Binding, 0, 4)
	for _, p := range []*Binding{b.Stage, b.Element, b.Attribute, b.Species} {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}
