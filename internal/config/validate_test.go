package config

import (
	"errors"
	"strings"
	"testing"
)

func baseValidConfig() *Config {
	return &Config{
		Version: 1,
		Targets: []TargetConfig{
			{
				Name:     "app-logs",
				Type:     "local",
				Path:     "/var/log/app",
				Pattern:  `^app-.*\.log$`,
				Retain:   5,
				Schedule: "*/5 * * * *",
			},
		},
	}
}

func expectInvalid(t *testing.T, cfg *Config, want string) {
	t.Helper()
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error containing %q, got nil", want)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got: %v", err)
	}
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error containing %q, got: %v", want, err)
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	cfg := baseValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
}

func TestValidateRequiresVersion(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Version = 0
	expectInvalid(t, cfg, "version")
}

func TestValidateRejectsInvalidSchedule(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Targets[0].Schedule = "61 * * * *"
	expectInvalid(t, cfg, "targets[0].schedule")
}

func TestValidateAllowsEmptySchedule(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Targets[0].Schedule = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error for empty schedule: %v", err)
	}
}

func TestValidateRejectsNegativeRetain(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Targets[0].Retain = -1
	expectInvalid(t, cfg, "targets[0].retain must be >= 0")
}

func TestValidateRejectsNegativeBucket(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Targets[0].KeepMonthly = -3
	expectInvalid(t, cfg, "targets[0].keep_monthly")
}

func TestValidateRejectsDuplicateNames(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Targets = append(cfg.Targets, cfg.Targets[0])
	expectInvalid(t, cfg, "targets[1].name")
}

func TestValidateRejectsUnknownType(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Targets[0].Type = "ftp"
	expectInvalid(t, cfg, `targets[0].type "ftp"`)
}

func TestValidateRequiresPath(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Targets[0].Path = ""
	expectInvalid(t, cfg, "targets[0].path")
}

func TestValidateRejectsBadPattern(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Targets[0].Pattern = "(unclosed"
	expectInvalid(t, cfg, "targets[0].pattern")
}

func TestValidateRejectsBadGlob(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Targets[0].Pattern = ""
	cfg.Targets[0].Glob = "[a-"
	expectInvalid(t, cfg, "targets[0].glob")
}

func TestValidateRejectsPatternAndGlob(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Targets[0].Glob = "*.log"
	expectInvalid(t, cfg, "mutually exclusive")
}

func TestValidateRejectsBadTimeBound(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Targets[0].Filter.ModifiedBefore = "yesterday-ish"
	expectInvalid(t, cfg, "targets[0].filter.modified_before")
}

func TestValidateS3RequiresBucketAndRegion(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Targets[0].Type = "s3"
	expectInvalid(t, cfg, "targets[0].s3")

	cfg.Targets[0].S3 = &S3Config{Bucket: "b"}
	expectInvalid(t, cfg, "s3.region")

	cfg.Targets[0].S3.Region = "eu-west-1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
}

func TestValidateNotifications(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Notifications = []NotificationConfig{{Type: "webhook", On: []string{"failure"}}}
	expectInvalid(t, cfg, "notifications[0].config.url")

	cfg.Notifications[0].Config.URL = "https://example.invalid/hook"
	cfg.Notifications[0].On = []string{"sometimes"}
	expectInvalid(t, cfg, "notifications[0].on")

	cfg.Notifications[0].On = []string{"both"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	cfg.Notifications[0].Type = "pager"
	expectInvalid(t, cfg, `notifications[0].type "pager"`)
}
