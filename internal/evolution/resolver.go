// Package evolution resolves the directed evolution relation into the
// immediate neighbours of a single digimon.
//
// Resolution is a pure function of the edge list and the digimon table:
//   - predecessors are the sources of edges pointing at the focal digimon,
//   - successors are the targets of edges leaving it.
//
// Edges whose far endpoint is missing from the digimon table are dropped.
// Edge order is preserved and duplicate edges produce duplicate links, each
// with its own requirements.
package evolution

import (
	"encoding/json"
	"fmt"

	"github.com/suminhong/diribon2gg/internal/catalog"
)

// Link is one resolved neighbour together with the requirements annotated on
// the edge that produced it.
type Link struct {
	Digimon      catalog.Digimon `json:"digimon"`
	Requirements []string        `json:"requirements"`
}

// Neighbours holds both sides of a resolution. Neither slice is ever nil.
type Neighbours struct {
	Predecessors []Link `json:"evolves_from"`
	Successors   []Link `json:"evolves_to"`
}

// Resolver resolves neighbours against a fixed store and edge list. It is
// read-only after construction and safe for concurrent use.
type Resolver struct {
	store *catalog.Store
	edges []catalog.Edge
}

// NewResolver returns a Resolver over edges joined against store.
func NewResolver(store *catalog.Store, edges []catalog.Edge) *Resolver {
	return &Resolver{store: store, edges: edges}
}

// Resolve returns the predecessors and successors of id.
func (r *Resolver) Resolve(id string) Neighbours {
	return Neighbours{
		Predecessors: r.Predecessors(id),
		Successors:   r.Successors(id),
	}
}

// Predecessors returns the digimon that evolve into id.
func (r *Resolver) Predecessors(id string) []Link {
	return r.collect(func(e catalog.Edge) (string, bool) {
		return e.From, e.To == id
	})
}

// Successors returns the digimon id evolves into.
func (r *Resolver) Successors(id string) []Link {
	return r.collect(func(e catalog.Edge) (string, bool) {
		return e.To, e.From == id
	})
}

// collect walks the edge list in order. pick reports the far endpoint of an
// edge and whether the edge touches the focal digimon on the wanted side.
func (r *Resolver) collect(pick func(catalog.Edge) (string, bool)) []Link {
	links := []Link{}
	for _, e := range r.edges {
		other, ok := pick(e)
		if !ok {
			continue
		}
		d, found := r.store.Digimon(other)
		if !found {
			continue
		}
		reqs := e.Requirements
		if reqs == nil {
			reqs = []string{}
		}
		links = append(links, Link{Digimon: d, Requirements: reqs})
	}
	return links
}

// Decode parses the evolutions document, a JSON array of
// {"from", "to", "requirements"} objects. Missing requirements decode as an
// empty slice.
func Decode(data []byte) ([]catalog.Edge, error) {
	var edges []catalog.Edge
	if err := json.Unmarshal(data, &edges); err != nil {
		return nil, fmt.Errorf("evolution: decode edges: %w", err)
	}
	if edges == nil {
		edges = []catalog.Edge{}
	}
	for i := range edges {
		if edges[i].Requirements == nil {
			edges[i].Requirements = []string{}
		}
	}
	return edges, nil
}
