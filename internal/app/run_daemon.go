package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dev-tams/dirkit/internal/config"
	"github.com/dev-tams/dirkit/internal/schedule"
)

type DaemonOptions struct {
	Options
	// RunTimeout bounds a single minute's worth of jobs. Zero means no limit.
	RunTimeout time.Duration
	// Reload delivers replacement configurations, e.g. from config.Watch.
	Reload <-chan *config.Config
	// Now and PollInterval exist for tests.
	Now          func() time.Time
	PollInterval time.Duration
}

type daemonJob struct {
	target   config.TargetConfig
	schedule schedule.Spec
}

func scheduledJobs(cfg *config.Config, logger *zap.Logger) ([]daemonJob, error) {
	jobs := make([]daemonJob, 0, len(cfg.Targets))
	for _, tg := range cfg.Targets {
		s := strings.TrimSpace(tg.Schedule)
		if s == "" {
			logger.Debug("daemon: target skipped (empty schedule)", zap.String("target", tg.Name))
			continue
		}

		spec, err := schedule.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("target %s: invalid schedule %q: %w", tg.Name, s, err)
		}
		jobs = append(jobs, daemonJob{target: tg, schedule: spec})
	}

	if len(jobs) == 0 {
		return nil, fmt.Errorf("daemon: no targets with a valid non-empty schedule")
	}
	return jobs, nil
}

// RunDaemon prunes each target whenever its schedule matches the current
// minute, until ctx is done. A failing target is logged and retried at its
// next due minute; a run exceeding RunTimeout stops the daemon.
func RunDaemon(ctx context.Context, cfg *config.Config, opts DaemonOptions) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts.Options = opts.Options.withDefaults()
	logger := opts.Logger
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}

	jobs, err := scheduledJobs(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("daemon started", zap.Int("targets", len(jobs)))
	logNextRuns(jobs, opts.Now().UTC(), logger)

	lastMinute := time.Time{}
	lastRunByTarget := make(map[string]time.Time, len(jobs))

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon: shutdown requested")
			return nil
		case next, ok := <-opts.Reload:
			if !ok {
				opts.Reload = nil
				continue
			}
			nextJobs, err := scheduledJobs(next, logger)
			if err != nil {
				logger.Warn("daemon: keeping previous config", zap.Error(err))
				continue
			}
			cfg, jobs = next, nextJobs
			logger.Info("daemon: config reloaded", zap.Int("targets", len(jobs)))
			logNextRuns(jobs, opts.Now().UTC(), logger)
			continue
		default:
		}

		now := opts.Now().UTC()
		currentMinute := now.Truncate(time.Minute)
		if currentMinute.Equal(lastMinute) {
			sleepUntilNextPoll(ctx, opts.PollInterval)
			continue
		}
		lastMinute = currentMinute

		due := make([]config.TargetConfig, 0, len(jobs))
		for _, job := range jobs {
			if !job.schedule.Matches(currentMinute) {
				continue
			}
			if lm, ok := lastRunByTarget[job.target.Name]; ok && lm.Equal(currentMinute) {
				continue
			}
			due = append(due, job.target)
		}

		if len(due) == 0 {
			continue
		}

		logger.Info("daemon: triggering prune jobs",
			zap.Int("jobs", len(due)),
			zap.Time("minute", currentMinute),
		)

		runCtx := ctx
		cancel := func() {}
		if opts.RunTimeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, opts.RunTimeout)
		}

		// Each due target runs on its own so one failure does not starve the rest.
		for _, tg := range due {
			runCfg := *cfg
			runCfg.Targets = []config.TargetConfig{tg}

			_, err := RunJobs(runCtx, &runCfg, opts.Options)
			lastRunByTarget[tg.Name] = currentMinute
			if err == nil {
				continue
			}
			if opts.RunTimeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				cancel()
				logger.Error("daemon: run timeout",
					zap.Duration("timeout", opts.RunTimeout),
					zap.Time("minute", currentMinute),
					zap.Int("jobs", len(due)),
				)
				return fmt.Errorf("daemon run timed out after %s", opts.RunTimeout)
			}
			if ctx.Err() != nil {
				break
			}
			logger.Error("daemon: prune failed", zap.String("target", tg.Name), zap.Error(err))
		}
		cancel()
	}
}

func logNextRuns(jobs []daemonJob, now time.Time, logger *zap.Logger) {
	for _, job := range jobs {
		if next, ok := job.schedule.Next(now); ok {
			logger.Debug("daemon: next run",
				zap.String("target", job.target.Name),
				zap.Stringer("schedule", job.schedule),
				zap.Time("at", next),
			)
		}
	}
}

func sleepUntilNextPoll(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
