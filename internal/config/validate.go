package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/dev-tams/dirkit/internal/fsutil"
	"github.com/dev-tams/dirkit/internal/listing"
	"github.com/dev-tams/dirkit/internal/schedule"
)

// ErrInvalid wraps every error returned by Validate.
var ErrInvalid = errors.New("invalid config")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func compileRegexp(pattern string) (listing.NamePattern, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &fsutil.ArgumentError{Name: "pattern", Reason: err.Error()}
	}
	return re, nil
}

// Validate checks every field it can without touching the filesystem. The
// error names the offending field.
func (c *Config) Validate() error {
	if c.Version == 0 {
		return invalid("version must be > 0")
	}
	if c.Concurrency < 0 {
		return invalid("concurrency must be >= 0")
	}

	names := map[string]struct{}{}
	for i, tg := range c.Targets {
		if tg.Name == "" {
			return invalid("targets[%d].name is required", i)
		}
		if _, ok := names[tg.Name]; ok {
			return invalid("targets[%d].name %q is a duplicate", i, tg.Name)
		}
		names[tg.Name] = struct{}{}

		if err := tg.validate(i); err != nil {
			return err
		}
	}

	for i, nt := range c.Notifications {
		if err := nt.validate(i); err != nil {
			return err
		}
	}
	return nil
}

func (t TargetConfig) validate(i int) error {
	switch t.Type {
	case "local":
	case "s3":
		if t.S3 == nil {
			return invalid("targets[%d].s3 is required for type s3", i)
		}
		if t.S3.Bucket == "" || t.S3.Region == "" {
			return invalid("targets[%d].s3.bucket and s3.region are required", i)
		}
	case "":
		return invalid("targets[%d].type is required (local or s3)", i)
	default:
		return invalid("targets[%d].type %q is unknown", i, t.Type)
	}

	if t.Path == "" {
		return invalid("targets[%d].path is required", i)
	}

	counts := []struct {
		field string
		v     int
	}{
		{"retain", t.Retain},
		{"keep_daily", t.KeepDaily},
		{"keep_weekly", t.KeepWeekly},
		{"keep_monthly", t.KeepMonthly},
	}
	for _, c := range counts {
		if c.v < 0 {
			return invalid("targets[%d].%s must be >= 0", i, c.field)
		}
	}

	if t.Pattern != "" && t.Glob != "" {
		return invalid("targets[%d]: pattern and glob are mutually exclusive", i)
	}
	if _, err := t.NamePattern(); err != nil {
		if t.Pattern != "" {
			return invalid("targets[%d].pattern: %v", i, err)
		}
		return invalid("targets[%d].glob: %v", i, err)
	}

	if _, err := listing.ParseTimeBound(t.Filter.ModifiedAfter); err != nil {
		return invalid("targets[%d].filter.modified_after: %v", i, err)
	}
	if _, err := listing.ParseTimeBound(t.Filter.ModifiedBefore); err != nil {
		return invalid("targets[%d].filter.modified_before: %v", i, err)
	}

	if t.Schedule != "" {
		if _, err := schedule.Parse(t.Schedule); err != nil {
			return invalid("targets[%d].schedule %q: %v", i, t.Schedule, err)
		}
	}
	return nil
}

var notifyEvents = []string{"success", "failure", "both"}

func (n NotificationConfig) validate(i int) error {
	switch strings.ToLower(strings.TrimSpace(n.Type)) {
	case "webhook":
		if n.Config.URL == "" {
			return invalid("notifications[%d].config.url is required for webhook", i)
		}
	case "email":
		if n.Config.SMTPHost == "" || n.Config.From == "" || n.Config.To == "" {
			return invalid("notifications[%d].config smtp_host, from and to are required for email", i)
		}
	default:
		return invalid("notifications[%d].type %q is unknown", i, n.Type)
	}

	if len(n.On) == 0 {
		return invalid("notifications[%d].on must include success, failure, or both", i)
	}
	for _, on := range n.On {
		if !slices.Contains(notifyEvents, strings.ToLower(strings.TrimSpace(on))) {
			return invalid("notifications[%d].on %q must be success, failure, or both", i, on)
		}
	}
	return nil
}
