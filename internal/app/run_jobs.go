package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dev-tams/dirkit/internal/config"
	"github.com/dev-tams/dirkit/internal/logging"
	"github.com/dev-tams/dirkit/internal/metrics"
	"github.com/dev-tams/dirkit/internal/notify"
	"github.com/dev-tams/dirkit/internal/retention"
)

const notificationTimeout = 5 * time.Second

type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// NewBackend defaults to the package-level NewBackend.
	NewBackend BackendFunc
}

func (o Options) withDefaults() Options {
	o.Logger = logging.OrNop(o.Logger)
	if o.NewBackend == nil {
		o.NewBackend = NewBackend
	}
	return o
}

type JobResult struct {
	Target   string
	Path     string
	Status   string
	Kept     []string
	Deleted  []string
	DryRun   bool
	Duration time.Duration
	Err      error
}

// RunJobs prunes every target once, in config order, and stops at the first
// target that fails. Each outcome is sent to the configured notifications.
func RunJobs(ctx context.Context, cfg *config.Config, opts Options) ([]JobResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	dispatcher, err := notify.NewDispatcher(cfg.Notifications)
	if err != nil {
		return nil, err
	}

	results := make([]JobResult, 0, len(cfg.Targets))
	for _, tg := range cfg.Targets {
		res := runTarget(ctx, cfg, tg, opts)
		results = append(results, res)
		notifyResult(ctx, dispatcher, res, opts.Logger)

		if res.Err != nil {
			return results, res.Err
		}
		opts.Logger.Info("prune ok",
			zap.String("target", res.Target),
			zap.String("path", res.Path),
			zap.Int("kept", len(res.Kept)),
			zap.Int("deleted", len(res.Deleted)),
			zap.Bool("dry_run", res.DryRun),
			zap.Duration("duration", res.Duration.Round(time.Millisecond)),
		)
	}
	return results, nil
}

func runTarget(ctx context.Context, cfg *config.Config, tg config.TargetConfig, opts Options) JobResult {
	started := time.Now()
	res := JobResult{Target: tg.Name, Path: tg.Path, DryRun: cfg.DryRun}

	fail := func(err error) JobResult {
		res.Status = notify.StatusFailure
		res.Duration = time.Since(started)
		res.Err = err
		return res
	}

	filter, err := tg.FilterSpec()
	if err != nil {
		opts.Metrics.ObservePrune(tg.Name, 0, err, time.Now())
		return fail(fmt.Errorf("target %s: %w", tg.Name, err))
	}

	backend, err := opts.NewBackend(ctx, tg)
	if err != nil {
		opts.Metrics.ObservePrune(tg.Name, 0, err, time.Now())
		return fail(err)
	}

	logger := opts.Logger.With(zap.String("target", tg.Name))
	pruner := retention.New(backend,
		retention.WithLogger(logger),
		retention.WithConcurrency(cfg.Concurrency),
		retention.WithDryRun(cfg.DryRun),
		retention.WithMetrics(opts.Metrics),
	)

	out, err := pruner.Apply(ctx, tg.Path, filter, tg.Policy())
	res.Kept = out.Kept
	res.Deleted = out.Deleted
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return fail(fmt.Errorf("prune timed out for %s: %w", tg.Name, ctx.Err()))
		case errors.Is(ctx.Err(), context.Canceled):
			return fail(fmt.Errorf("prune canceled for %s: %w", tg.Name, ctx.Err()))
		default:
			return fail(fmt.Errorf("prune failed for %s: %w", tg.Name, err))
		}
	}

	res.Status = notify.StatusSuccess
	res.Duration = time.Since(started)
	return res
}

func notifyResult(ctx context.Context, dispatcher *notify.Dispatcher, res JobResult, logger *zap.Logger) {
	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}

	event := notify.Event{
		Target:   res.Target,
		Status:   res.Status,
		Path:     res.Path,
		Deleted:  len(res.Deleted),
		Kept:     len(res.Kept),
		DryRun:   res.DryRun,
		Duration: res.Duration.Round(time.Millisecond).String(),
		Error:    errMsg,
	}

	notifyCtx, cancel := notificationContext(ctx)
	defer cancel()

	if err := dispatcher.Notify(notifyCtx, event); err != nil {
		logger.Warn("notification failed",
			zap.String("target", res.Target),
			zap.String("status", res.Status),
			zap.Error(err),
		)
	}
}

func notificationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), notificationTimeout)
	}
	return context.WithTimeout(context.WithoutCancel(ctx), notificationTimeout)
}
