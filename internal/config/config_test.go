package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
version: 1
concurrency: 4
logging:
  level: debug
targets:
  - name: app-logs
    type: local
    path: ${DIRKIT_TEST_ROOT}/logs
    pattern: '^app-.*\.log$'
    retain: 3
    keep_daily: 7
    schedule: "0 * * * *"
    filter:
      files: true
      exclude_empty: true
      modified_before: 720h
  - name: archive
    type: s3
    path: nightly
    glob: "*.tar.gz"
    s3:
      bucket: my-bucket
      region: eu-west-1
      access_key: $DIRKIT_TEST_AK
      secret_key: secret
notifications:
  - type: webhook
    on: [failure]
    config:
      url: https://example.invalid/hook
      headers:
        Authorization: Bearer ${DIRKIT_TEST_TOKEN}
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dirkit.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("DIRKIT_TEST_ROOT", "/srv")
	t.Setenv("DIRKIT_TEST_AK", "AKIA123")
	t.Setenv("DIRKIT_TEST_TOKEN", "tok")

	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Concurrency != 4 || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected top-level settings: %+v", cfg)
	}
	if len(cfg.Targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(cfg.Targets))
	}

	logs := cfg.Targets[0]
	if logs.Path != "/srv/logs" {
		t.Fatalf("path not expanded: %q", logs.Path)
	}
	if logs.Pattern != `^app-.*\.log$` {
		t.Fatalf("pattern should not be env-expanded: %q", logs.Pattern)
	}
	if logs.Retain != 3 || logs.KeepDaily != 7 {
		t.Fatalf("unexpected retention: %+v", logs)
	}
	if logs.Filter.Files == nil || !*logs.Filter.Files || logs.Filter.Symlinks != nil {
		t.Fatalf("unexpected type filter: %+v", logs.Filter)
	}

	s3 := cfg.Targets[1]
	if s3.S3 == nil || s3.S3.AccessKey != "AKIA123" {
		t.Fatalf("s3 access key not expanded: %+v", s3.S3)
	}

	if got := cfg.Notifications[0].Config.Headers["authorization"]; got != "Bearer tok" {
		t.Fatalf("header not expanded: %q", got)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("DIRKIT_DRY_RUN", "true")
	t.Setenv("DIRKIT_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfig(writeConfig(t, "version: 1\n"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.DryRun {
		t.Fatalf("expected DIRKIT_DRY_RUN to enable dry run")
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected logging level from env, got %q", cfg.Logging.Level)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTargetFilterSpec(t *testing.T) {
	yes := true
	tg := TargetConfig{
		Glob: "*.log",
		Filter: FilterConfig{
			Symlinks:       &yes,
			ExcludeEmpty:   true,
			ModifiedAfter:  "2024-01-02T00:00:00Z",
			ModifiedBefore: "10000",
		},
	}

	spec, err := tg.FilterSpec()
	if err != nil {
		t.Fatalf("FilterSpec: %v", err)
	}
	if spec.Name == nil || !spec.Name.MatchString("a.log") || spec.Name.MatchString("a.txt") {
		t.Fatalf("unexpected name pattern")
	}
	if spec.Type == nil || !spec.Type.Symlinks || spec.Type.Files {
		t.Fatalf("unexpected type filter: %+v", spec.Type)
	}
	if !spec.ExcludeEmpty {
		t.Fatalf("expected exclude empty")
	}
	if at, ok := spec.ModifiedAfter.Instant(); !ok || !at.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected modified_after: %v", spec.ModifiedAfter)
	}
	if w, ok := spec.ModifiedBefore.Window(); !ok || w != 10*time.Second {
		t.Fatalf("unexpected modified_before: %v", spec.ModifiedBefore)
	}
}

func TestTargetFilterSpecWithoutTypeFlags(t *testing.T) {
	spec, err := TargetConfig{}.FilterSpec()
	if err != nil {
		t.Fatalf("FilterSpec: %v", err)
	}
	if spec.Type != nil || spec.Name != nil {
		t.Fatalf("expected empty filter, got %+v", spec)
	}
}

func TestTargetPolicy(t *testing.T) {
	p := TargetConfig{Retain: 2, KeepDaily: 1, KeepWeekly: 3, KeepMonthly: 4}.Policy()
	if p.RetainCount != 2 || p.KeepDaily != 1 || p.KeepWeekly != 3 || p.KeepMonthly != 4 {
		t.Fatalf("unexpected policy: %+v", p)
	}
}
