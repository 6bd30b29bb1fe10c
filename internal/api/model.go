package api

import (
	"time"

	"github.com/suminhong/diribon2gg/internal/attribute"
	"github.com/suminhong/diribon2gg/internal/browse"
	"github.com/suminhong/diribon2gg/internal/catalog"
	"github.com/suminhong/diribon2gg/internal/evolution"
	"github.com/suminhong/diribon2gg/internal/slug"
)

// ListItem is one row of the list view.
type ListItem struct {
	ID        string `json:"id"`
	NameKR    string `json:"name_kr"`
	NameEN    string `json:"name_en"`
	ImageName string `json:"image_name"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Filter describes one active category filter.
type Filter struct {
	Selected []string `json:"selected"`

	// Complete is true when every key of the lookup table is selected.
	Complete bool `json:"complete"`
}

// List is the response body of GET /api/digimon.
type List struct {
	Query     string                      `json:"q,omitempty"`
	Sort      string                      `json:"sort"`
	Filters   map[catalog.Category]Filter `json:"filters,omitempty"`
	Count     int                         `json:"count"`
	Items     []ListItem                  `json:"items"`
	FetchedAt time.Time                   `json:"fetched_at"`
}

// Neighbour is one evolution link in the detail view.
type Neighbour struct {
	ListItem
	Requirements []string `json:"requirements"`
}

// Detail is the response body of GET /api/digimon/{id}.
type Detail struct {
	ID           string              `json:"id"`
	NameKR       string              `json:"name_kr"`
	NameEN       string              `json:"name_en"`
	Fields       catalog.Digimon     `json:"fields"`
	Badges       []attribute.Binding `json:"badges"`
	ImageURL     string              `json:"image_url,omitempty"`
	ReferenceURL string              `json:"reference_url,omitempty"`
	EvolvesFrom  []Neighbour         `json:"evolves_from"`
	EvolvesTo    []Neighbour         `json:"evolves_to"`
	FetchedAt    time.Time           `json:"fetched_at"`
}

func newListItem(d catalog.Digimon, links slug.Links) ListItem {
	return ListItem{
		ID:        d.ID(),
		NameKR:    d.NameKR(),
		NameEN:    d.NameEN(),
		ImageName: slug.ImageName(d.NameEN()),
		ImageURL:  links.Image(d),
	}
}

func newList(lv *browse.ListView) List {
	out := List{
		Query:     lv.Params.Text,
		Sort:      lv.Params.Sort.String(),
		Count:     len(lv.Items),
		Items:     make([]ListItem, len(lv.Items)),
		FetchedAt: lv.FetchedAt,
	}
	for i, d := range lv.Items {
		out.Items[i] = newListItem(d, lv.Links)
	}
	for _, c := range catalog.Categories() {
		sel := lv.Params.Filter(c)
		if sel.IsEmpty() {
			continue
		}
		if out.Filters == nil {
			out.Filters = make(map[catalog.Category]Filter)
		}
		out.Filters[c] = Filter{
			Selected: sel.Values(),
			Complete: sel.IsComplete(lv.Store.Lookups(c)),
		}
	}
	return out
}

func newNeighbours(links []evolution.Link, l slug.Links) []Neighbour {
	out := make([]Neighbour, len(links))
	for i, n := range links {
		out[i] = Neighbour{ListItem: newListItem(n.Digimon, l), Requirements: n.Requirements}
	}
	return out
}

func newDetail(dv *browse.DetailView) Detail {
	return Detail{
		ID:           dv.Digimon.ID(),
		NameKR:       dv.Digimon.NameKR(),
		NameEN:       dv.Digimon.NameEN(),
		Fields:       dv.Digimon,
		Badges:       dv.Bindings.List(),
		ImageURL:     dv.ImageURL,
		ReferenceURL: dv.ReferenceURL,
		EvolvesFrom:  newNeighbours(dv.Neighbours.Predecessors, dv.Links),
		EvolvesTo:    newNeighbours(dv.Neighbours.Successors, dv.Links),
		FetchedAt:    dv.FetchedAt,
	}
}
