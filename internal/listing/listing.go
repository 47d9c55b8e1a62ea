// Package listing reads a directory through a storage.Backend, attaches
// metadata to every entry, filters and sorts them.
package listing

import (
	"context"
	"slices"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/dev-tams/dirkit/internal/fsutil"
	"github.com/dev-tams/dirkit/internal/logging"
	"github.com/dev-tams/dirkit/internal/metrics"
	"github.com/dev-tams/dirkit/internal/storage"
)

// Entry is one directory member with the metadata the filters look at.
type Entry struct {
	Path      string
	IsSymlink bool
	Size      int64
	ModTime   time.Time
}

// Comparator orders two entries the way slices.SortFunc expects.
type Comparator func(a, b Entry) int

// NewestFirst is the default order: most recently modified first.
func NewestFirst(a, b Entry) int { return b.ModTime.Compare(a.ModTime) }

// OldestFirst reverses NewestFirst.
func OldestFirst(a, b Entry) int { return a.ModTime.Compare(b.ModTime) }

// Options selects which entries a single List call returns and in what order.
type Options struct {
	Filter FilterSpec
	// Sort defaults to NewestFirst.
	Sort Comparator
}

// Lister reads a directory through a storage.Backend. It is safe for
// concurrent use; each call reads the clock once.
type Lister struct {
	backend     storage.Backend
	logger      *zap.Logger
	now         func() time.Time
	concurrency int
	metrics     *metrics.Metrics
}

// Option configures a Lister.
type Option func(*Lister)

func WithLogger(l *zap.Logger) Option { return func(ls *Lister) { ls.logger = logging.OrNop(l) } }

// WithClock replaces time.Now as the reference for relative time bounds.
func WithClock(now func() time.Time) Option { return func(ls *Lister) { ls.now = now } }

// WithConcurrency caps in-flight metadata fetches. Zero means one per entry.
func WithConcurrency(n int) Option { return func(ls *Lister) { ls.concurrency = n } }

func WithMetrics(m *metrics.Metrics) Option { return func(ls *Lister) { ls.metrics = m } }

// New returns a Lister over backend with a no-op logger and time.Now.
func New(backend storage.Backend, opts ...Option) *Lister {
	l := &Lister{
		backend: backend,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Backend returns the storage the lister reads from.
func (l *Lister) Backend() storage.Backend { return l.backend }

// List returns the full paths of the entries under dir that pass the filter,
// in sort order.
func (l *Lister) List(ctx context.Context, dir string, opts Options) ([]string, error) {
	entries, err := l.Entries(ctx, dir, opts)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return paths, nil
}

// Entries is List without dropping the metadata.
func (l *Lister) Entries(ctx context.Context, dir string, opts Options) ([]Entry, error) {
	if dir == "" {
		return nil, fsutil.InvalidArgument("path")
	}
	start := time.Now()
	l.logger.Debug("sorting files based on date", zap.String("backend", l.backend.Name()), zap.String("path", dir))

	names, err := l.backend.ReadDirNames(ctx, dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		l.logger.Debug("no files found", zap.String("path", dir))
		return []Entry{}, nil
	}

	if opts.Filter.Name != nil {
		names = slices.DeleteFunc(names, func(name string) bool {
			return !opts.Filter.Name.MatchString(name)
		})
	}

	entries, err := l.stat(ctx, dir, names)
	if err != nil {
		return nil, err
	}

	now := l.now()
	entries = slices.DeleteFunc(entries, func(e Entry) bool {
		return !opts.Filter.keep(e, now)
	})

	sortFn := opts.Sort
	if sortFn == nil {
		sortFn = NewestFirst
	}
	slices.SortStableFunc(entries, sortFn)

	l.metrics.ObserveList(time.Since(start), len(entries))
	l.logger.Debug("successfully sorted files", zap.String("path", dir), zap.Int("count", len(entries)))
	return entries, nil
}

// stat fetches metadata for every name concurrently. The first failure
// cancels the rest and is returned alone.
func (l *Lister) stat(ctx context.Context, dir string, names []string) ([]Entry, error) {
	entries := make([]Entry, len(names))

	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError().WithFirstError()
	if l.concurrency > 0 {
		p = p.WithMaxGoroutines(l.concurrency)
	}
	for i, name := range names {
		path := l.backend.Join(dir, name)
		p.Go(func(ctx context.Context) error {
			info, err := l.backend.Lstat(ctx, path)
			if err != nil {
				return err
			}
			entries[i] = Entry{
				Path:      path,
				IsSymlink: info.IsSymlink,
				Size:      info.Size,
				ModTime:   info.ModTime,
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}
