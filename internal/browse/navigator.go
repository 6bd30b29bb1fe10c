// Package browse drives the two views of the catalog: the filtered list and
// the single-digimon detail.
//
// Every navigation runs a fresh fetch cycle. A [Navigator] remembers which
// navigation is the latest; when an older cycle finishes after a newer one
// has started, its result is discarded with [ErrSuperseded] and never
// replaces the current view.
package browse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/suminhong/diribon2gg/internal/attribute"
	"github.com/suminhong/diribon2gg/internal/catalog"
	"github.com/suminhong/diribon2gg/internal/evolution"
	"github.com/suminhong/diribon2gg/internal/observe"
	"github.com/suminhong/diribon2gg/internal/query"
	"github.com/suminhong/diribon2gg/internal/slug"
)

var (
	// ErrSuperseded is returned for a navigation that completed after a newer
	// one was requested on the same Navigator.
	ErrSuperseded = errors.New("browse: navigation superseded")

	// ErrUnavailable wraps the fetch failure that left a view unavailable.
	ErrUnavailable = errors.New("browse: view unavailable")
)

// Loader produces catalog snapshots. [source.Loader] implements it.
type Loader interface {
	LoadCatalog(ctx context.Context) (*catalog.Snapshot, error)
	LoadAll(ctx context.Context) (*catalog.Snapshot, error)
}

// Config holds what every Navigator shares.
type Config struct {
	Loader Loader

	// Links returns the current link templates. Nil yields empty URLs.
	Links func() slug.Links

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// ListView is a completed list navigation.
type ListView struct {
	Params    query.Params
	Items     []catalog.Digimon
	Store     *catalog.Store
	Links     slug.Links
	FetchedAt time.Time
}

// DetailView is a completed detail navigation. When Found is false only ID,
// Store and FetchedAt are set.
type DetailView struct {
	ID           string
	Found        bool
	Digimon      catalog.Digimon
	Bindings     attribute.Bindings
	Neighbours   evolution.Neighbours
	ImageURL     string
	ReferenceURL string
	Links        slug.Links
	Store        *catalog.Store
	FetchedAt    time.Time
}

// Navigator tracks one client's current view. It is safe for concurrent use.
type Navigator struct {
	cfg Config

	mu      sync.Mutex
	gen     uint64
	current View
}

// NewNavigator returns a Navigator in the idle state.
func NewNavigator(cfg Config) *Navigator {
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Links == nil {
		cfg.Links = func() slug.Links { return slug.Links{} }
	}
	return &Navigator{cfg: cfg}
}

// Current returns the view as of the latest navigation.
func (n *Navigator) Current() View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// List runs a list navigation: it fetches the digimon and lookup tables and
// evaluates p against them.
func (n *Navigator) List(ctx context.Context, p query.Params) (*ListView, error) {
	return n.ListWith(ctx, func(*catalog.Store) query.Params { return p })
}

// ListWith is [Navigator.List] for params that depend on the fetched lookup
// tables, such as a "select all" filter.
func (n *Navigator) ListWith(ctx context.Context, build func(*catalog.Store) query.Params) (*ListView, error) {
	gen := n.begin(KindList, "")

	snap, err := n.cfg.Loader.LoadCatalog(ctx)
	if err != nil {
		return nil, n.fail(ctx, gen, err)
	}

	p := build(snap.Store)
	if p.Sort.Field == "" {
		p.Sort = query.DefaultSort
	}
	start := time.Now()
	items := query.NewEngine(snap.Store).Run(p)
	n.cfg.Metrics.RecordQuery(ctx, p.Sort.String(), time.Since(start), len(items))

	lv := &ListView{
		Params:    p,
		Items:     items,
		Store:     snap.Store,
		Links:     n.cfg.Links(),
		FetchedAt: snap.FetchedAt,
	}
	if err := n.commit(gen, View{Kind: KindList, State: StateReady, List: lv}); err != nil {
		return nil, err
	}
	return lv, nil
}

// Detail runs a detail navigation for id. An unknown id is not an error: the
// returned view has Found == false.
func (n *Navigator) Detail(ctx context.Context, id string) (*DetailView, error) {
	gen := n.begin(KindDetail, id)

	snap, err := n.cfg.Loader.LoadAll(ctx)
	if err != nil {
		n.cfg.Metrics.RecordDetail(ctx, "unavailable")
		return nil, n.fail(ctx, gen, err)
	}

	links := n.cfg.Links()
	dv := &DetailView{ID: id, Links: links, Store: snap.Store, FetchedAt: snap.FetchedAt}
	if d, ok := snap.Store.Digimon(id); ok {
		dv.Found = true
		dv.Digimon = d
		dv.Bindings = attribute.Join(d, snap.Store)
		dv.Neighbours = evolution.NewResolver(snap.Store, snap.Edges).Resolve(id)
		dv.ImageURL = links.Image(d)
		dv.ReferenceURL = links.Reference(d)
	}

	if err := n.commit(gen, View{Kind: KindDetail, State: StateReady, ID: id, Detail: dv}); err != nil {
		n.cfg.Metrics.RecordDetail(ctx, "superseded")
		return nil, err
	}
	if dv.Found {
		n.cfg.Metrics.RecordDetail(ctx, "found")
	} else {
		n.cfg.Metrics.RecordDetail(ctx, "missing")
	}
	return dv, nil
}

// begin makes a new navigation the latest and shows it as loading.
func (n *Navigator) begin(kind Kind, id string) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gen++
	n.current = View{Kind: kind, State: StateLoading, ID: id}
	return n.gen
}

// commit installs v if gen is still the latest navigation.
func (n *Navigator) commit(gen uint64, v View) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if gen != n.gen {
		return ErrSuperseded
	}
	n.current = v
	return nil
}

// fail marks the view unavailable unless a newer navigation took over.
func (n *Navigator) fail(ctx context.Context, gen uint64, cause error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if gen != n.gen {
		return ErrSuperseded
	}
	n.current.State = StateUnavailable
	n.current.Err = cause.Error()
	observe.Logger(ctx).Warn("view unavailable",
		"kind", n.current.Kind.String(),
		"id", n.current.ID,
		"err", cause)
	return fmt.Errorf("%w: %w", ErrUnavailable, cause)
}
