package source

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/suminhong/diribon2gg/internal/catalog"
	"github.com/suminhong/diribon2gg/internal/evolution"
	"github.com/suminhong/diribon2gg/internal/observe"
	"github.com/suminhong/diribon2gg/pkg/record"
)

// CSVExt is appended to a table name to form its file name.
const CSVExt = ".csv"

// LoaderOption configures a [Loader].
type LoaderOption func(*Loader)

// WithLoaderMetrics records snapshot sizes into m instead of
// [observe.DefaultMetrics].
func WithLoaderMetrics(m *observe.Metrics) LoaderOption {
	return func(l *Loader) { l.metrics = m }
}

// WithClock overrides the time stamped on snapshots.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) { l.now = now }
}

// Loader runs one fetch cycle: every file a view needs is downloaded
// concurrently, and parsing starts only after all of them arrived. Any
// failure aborts the cycle with no partial snapshot.
type Loader struct {
	getter  Getter
	metrics *observe.Metrics
	now     func() time.Time
}

// NewLoader returns a Loader reading files through g.
func NewLoader(g Getter, opts ...LoaderOption) *Loader {
	l := &Loader{getter: g, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	if l.metrics == nil {
		l.metrics = observe.DefaultMetrics()
	}
	return l
}

// LoadCatalog fetches the digimon table and the four lookup tables. The
// returned snapshot has nil Edges.
func (l *Loader) LoadCatalog(ctx context.Context) (*catalog.Snapshot, error) {
	return l.load(ctx, false)
}

// LoadAll fetches everything LoadCatalog does plus the evolution relation.
func (l *Loader) LoadAll(ctx context.Context) (*catalog.Snapshot, error) {
	return l.load(ctx, true)
}

func (l *Loader) load(ctx context.Context, withEdges bool) (*catalog.Snapshot, error) {
	ctx, span := observe.StartSpan(ctx, "source.Load")
	defer span.End()

	names := catalog.Tables()
	raw := make([][]byte, len(names))
	var edgeData []byte

	eg, egCtx := errgroup.WithContext(ctx)
	for i, name := range names {
		eg.Go(func() error {
			body, err := l.getter.Fetch(egCtx, name+CSVExt)
			if err != nil {
				return fmt.Errorf("source: load %s: %w", name, err)
			}
			raw[i] = body
			return nil
		})
	}
	if withEdges {
		eg.Go(func() error {
			body, err := l.getter.Fetch(egCtx, catalog.EvolutionsFile)
			if err != nil {
				return fmt.Errorf("source: load %s: %w", catalog.EvolutionsFile, err)
			}
			edgeData = body
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var edges []catalog.Edge
	if withEdges {
		var err error
		if edges, err = evolution.Decode(edgeData); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("source: %w", err)
		}
	}

	tables := make(map[string][]record.Record, len(names))
	for i, name := range names {
		tables[name] = record.ParseBytes(raw[i])
		l.metrics.RecordSnapshot(ctx, name, len(tables[name]))
	}

	snap := &catalog.Snapshot{
		Store:     catalog.New(tables),
		Edges:     edges,
		FetchedAt: l.now(),
	}
	observe.Logger(ctx).Debug("snapshot loaded",
		"records", snap.Records(),
		"edges", len(edges),
		"with_edges", withEdges)
	return snap, nil
}
