package catalog

import (
	"slices"
	"time"

	"github.com/suminhong/diribon2gg/pkg/record"
)

// Store holds the parsed tables of a single fetch cycle. It has no mutation
// API and is safe for concurrent reads.
type Store struct {
	tables map[string][]record.Record

	// index maps table -> key -> position of the first record with that key,
	// so lookups keep first-match-wins semantics without a linear scan.
	index map[string]map[string]int
}

// New builds a Store from parsed tables keyed by table name. The map and the
// slices are copied; later changes by the caller do not leak in.
func New(tables map[string][]record.Record) *Store {
	s := &Store{
		tables: make(map[string][]record.Record, len(tables)),
		index:  make(map[string]map[string]int, len(tables)),
	}
	for name, recs := range tables {
		recs = slices.Clone(recs)
		idx := make(map[string]int, len(recs))
		for i, r := range recs {
			key := r.Get(record.KeyField)
			if _, seen := idx[key]; !seen {
				idx[key] = i
			}
		}
		s.tables[name] = recs
		s.index[name] = idx
	}
	return s
}

// Find returns the first record in table whose key field equals value.
func (s *Store) Find(table, value string) (record.Record, bool) {
	if s == nil {
		return record.Record{}, false
	}
	i, ok := s.index[table][value]
	if !ok {
		return record.Record{}, false
	}
	return s.tables[table][i], true
}

// All returns every record in table in source order. An unknown table yields
// an empty slice.
func (s *Store) All(table string) []record.Record {
	if s == nil {
		return []record.Record{}
	}
	recs, ok := s.tables[table]
	if !ok {
		return []record.Record{}
	}
	return slices.Clone(recs)
}

// Len returns the number of records in table.
func (s *Store) Len(table string) int {
	if s == nil {
		return 0
	}
	return len(s.tables[table])
}

// Digimon looks up a digimon by identifier.
func (s *Store) Digimon(id string) (Digimon, bool) {
	r, ok := s.Find(TableDigimons, id)
	if !ok {
		return Digimon{}, false
	}
	return NewDigimon(r), true
}

// Digimons returns the whole digimon table in source order.
func (s *Store) Digimons() []Digimon {
	recs := s.All(TableDigimons)
	out := make([]Digimon, len(recs))
	for i, r := range recs {
		out[i] = NewDigimon(r)
	}
	return out
}

// Lookups returns the lookup table for c in source order.
func (s *Store) Lookups(c Category) []Lookup {
	recs := s.All(c.Table())
	out := make([]Lookup, len(recs))
	for i, r := range recs {
		out[i] = NewLookup(r)
	}
	return out
}

// Lookup resolves key against the lookup table for c.
func (s *Store) Lookup(c Category, key string) (Lookup, bool) {
	r, ok := s.Find(c.Table(), key)
	if !ok {
		return Lookup{}, false
	}
	return NewLookup(r), true
}

// Keys returns the keys of the lookup table for c in source order.
func (s *Store) Keys(c Category) []string {
	lookups := s.Lookups(c)
	keys := make([]string, len(lookups))
	for i, l := range lookups {
		keys[i] = l.Key()
	}
	return keys
}

// Snapshot is the unit of replacement: everything one fetch cycle produced.
// Edges is nil when the cycle did not fetch the evolution relation.
type Snapshot struct {
	Store     *Store
	Edges     []Edge
	FetchedAt time.Time
}

// Records returns the total number of parsed rows across all tables.
func (s *Snapshot) Records() int {
	if s == nil || s.Store == nil {
		return 0
	}
	n := 0
	for _, recs := range s.Store.tables {
		n += len(recs)
	}
	return n
}
