// Package retention deletes all but the most recently modified entries of a
// directory.
package retention

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/dev-tams/dirkit/internal/fsutil"
	"github.com/dev-tams/dirkit/internal/listing"
	"github.com/dev-tams/dirkit/internal/logging"
	"github.com/dev-tams/dirkit/internal/metrics"
	"github.com/dev-tams/dirkit/internal/storage"
)

// Policy decides which listed entries survive. RetainCount newest entries are
// always kept; the Keep* fields add the newest entry of each of the most
// recent days, ISO weeks and months on top.
type Policy struct {
	RetainCount int
	KeepDaily   int
	KeepWeekly  int
	KeepMonthly int
}

func (p Policy) Validate() error {
	switch {
	case p.RetainCount < 0:
		return fsutil.InvalidArgument("retainCount")
	case p.KeepDaily < 0:
		return fsutil.InvalidArgument("keepDaily")
	case p.KeepWeekly < 0:
		return fsutil.InvalidArgument("keepWeekly")
	case p.KeepMonthly < 0:
		return fsutil.InvalidArgument("keepMonthly")
	}
	return nil
}

// Result lists the paths kept and the paths removed, newest first. In dry-run
// mode Deleted holds what would have been removed.
type Result struct {
	Kept    []string
	Deleted []string
	DryRun  bool
}

type Pruner struct {
	backend     storage.Backend
	lister      *listing.Lister
	logger      *zap.Logger
	concurrency int
	dryRun      bool
	metrics     *metrics.Metrics
	now         func() time.Time
}

type Option func(*Pruner)

func WithLogger(l *zap.Logger) Option { return func(p *Pruner) { p.logger = logging.OrNop(l) } }

// WithLister swaps the lister used to find candidates. It must read from the
// same backend.
func WithLister(l *listing.Lister) Option { return func(p *Pruner) { p.lister = l } }

// WithConcurrency caps in-flight deletions. Zero means one per entry.
func WithConcurrency(n int) Option { return func(p *Pruner) { p.concurrency = n } }

// WithDryRun reports what would be deleted without calling Remove.
func WithDryRun(dryRun bool) Option { return func(p *Pruner) { p.dryRun = dryRun } }

// WithMetrics records each run under the backend's name.
func WithMetrics(m *metrics.Metrics) Option { return func(p *Pruner) { p.metrics = m } }

func New(backend storage.Backend, opts ...Option) *Pruner {
	p := &Pruner{
		backend: backend,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.lister == nil {
		p.lister = listing.New(backend,
			listing.WithLogger(p.logger),
			listing.WithConcurrency(p.concurrency),
			listing.WithMetrics(p.metrics),
		)
	}
	return p
}

// Prune keeps the retainCount most recently modified entries of dir whose
// names match pattern and deletes the other matches. A nil pattern matches
// every entry.
func (p *Pruner) Prune(ctx context.Context, dir string, pattern listing.NamePattern, retainCount int) error {
	_, err := p.Apply(ctx, dir, listing.FilterSpec{Name: pattern}, Policy{RetainCount: retainCount})
	return err
}

// Apply lists dir through filter, newest first, and deletes every entry the
// policy does not keep. Deletions run concurrently and the first failure is
// returned; deletions already done are not undone.
func (p *Pruner) Apply(ctx context.Context, dir string, filter listing.FilterSpec, policy Policy) (Result, error) {
	if dir == "" {
		return Result{}, fsutil.InvalidArgument("path")
	}
	if err := policy.Validate(); err != nil {
		return Result{}, err
	}

	res, err := p.apply(ctx, dir, filter, policy)
	deleted := len(res.Deleted)
	if res.DryRun {
		deleted = 0
	}
	p.metrics.ObservePrune(p.backend.Name(), deleted, err, p.now())
	return res, err
}

func (p *Pruner) apply(ctx context.Context, dir string, filter listing.FilterSpec, policy Policy) (Result, error) {
	res := Result{DryRun: p.dryRun}

	entries, err := p.lister.Entries(ctx, dir, listing.Options{Filter: filter, Sort: listing.NewestFirst})
	if err != nil {
		return res, err
	}

	buckets := keepBuckets(entries, policy.KeepDaily, policy.KeepWeekly, policy.KeepMonthly)
	var doomed []string
	for i, e := range entries {
		if i < policy.RetainCount || buckets[e.Path] {
			res.Kept = append(res.Kept, e.Path)
			continue
		}
		doomed = append(doomed, e.Path)
	}
	if len(doomed) == 0 {
		return res, nil
	}

	if p.dryRun {
		for _, path := range doomed {
			p.logger.Info("would remove", zap.String("path", path))
		}
		res.Deleted = doomed
		return res, nil
	}

	p.logger.Debug("removing files", zap.String("path", dir), zap.Int("count", len(doomed)))
	removed, err := p.remove(ctx, doomed)
	res.Deleted = removed
	return res, err
}

func (p *Pruner) remove(ctx context.Context, paths []string) ([]string, error) {
	done := make([]bool, len(paths))

	wp := pool.New().WithErrors().WithContext(ctx).WithCancelOnError().WithFirstError()
	if p.concurrency > 0 {
		wp = wp.WithMaxGoroutines(p.concurrency)
	}
	for i, path := range paths {
		wp.Go(func(ctx context.Context) error {
			if err := p.backend.Remove(ctx, path); err != nil {
				return err
			}
			done[i] = true
			return nil
		})
	}
	err := wp.Wait()

	removed := make([]string, 0, len(paths))
	for i, ok := range done {
		if ok {
			removed = append(removed, paths[i])
		}
	}
	return removed, err
}
