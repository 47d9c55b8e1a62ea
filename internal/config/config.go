package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dev-tams/dirkit/internal/listing"
	"github.com/dev-tams/dirkit/internal/retention"
)

type Config struct {
	Version       int                  `mapstructure:"version"`
	Concurrency   int                  `mapstructure:"concurrency"`
	DryRun        bool                 `mapstructure:"dry_run"`
	Logging       LoggingConfig        `mapstructure:"logging"`
	Metrics       MetricsConfig        `mapstructure:"metrics"`
	Targets       []TargetConfig       `mapstructure:"targets"`
	Notifications []NotificationConfig `mapstructure:"notifications"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// TargetConfig is one directory (or bucket prefix) to prune.
type TargetConfig struct {
	Name        string       `mapstructure:"name"`
	Type        string       `mapstructure:"type"`
	Path        string       `mapstructure:"path"`
	Pattern     string       `mapstructure:"pattern"`
	Glob        string       `mapstructure:"glob"`
	Retain      int          `mapstructure:"retain"`
	KeepDaily   int          `mapstructure:"keep_daily"`
	KeepWeekly  int          `mapstructure:"keep_weekly"`
	KeepMonthly int          `mapstructure:"keep_monthly"`
	Schedule    string       `mapstructure:"schedule"`
	Filter      FilterConfig `mapstructure:"filter"`
	S3          *S3Config    `mapstructure:"s3"`
}

type FilterConfig struct {
	// Leaving both Files and Symlinks out disables the type filter.
	Files          *bool  `mapstructure:"files"`
	Symlinks       *bool  `mapstructure:"symlinks"`
	ExcludeEmpty   bool   `mapstructure:"exclude_empty"`
	ModifiedAfter  string `mapstructure:"modified_after"`
	ModifiedBefore string `mapstructure:"modified_before"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type NotificationConfig struct {
	Type   string              `mapstructure:"type"`
	On     []string            `mapstructure:"on"`
	Config NotificationDetails `mapstructure:"config"`
}

type NotificationDetails struct {
	SMTPHost string            `mapstructure:"smtp_host"`
	SMTPPort int               `mapstructure:"smtp_port"`
	From     string            `mapstructure:"from"`
	To       string            `mapstructure:"to"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	URL      string            `mapstructure:"url"`
	Headers  map[string]string `mapstructure:"headers"`
}

// EnvPrefix scopes environment overrides, e.g. DIRKIT_DRY_RUN=true or
// DIRKIT_LOGGING_LEVEL=debug.
const EnvPrefix = "DIRKIT"

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("concurrency", 0)
	v.SetDefault("dry_run", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("metrics.listen", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the file at path and expands $VARS in every string.
// It does not validate; call Validate on the result.
func LoadConfig(path string) (*Config, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ExpandEnv(&cfg)

	return &cfg, nil
}

// Watch calls onChange with the re-read, validated configuration every time
// the file changes. Bad edits are logged and skipped.
func Watch(path string, logger *zap.Logger, onChange func(*Config)) error {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			logger.Warn("ignoring config change", zap.String("file", e.Name), zap.Error(err))
			return
		}
		logger.Info("config reloaded", zap.String("file", e.Name), zap.Stringer("op", e.Op))
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

func ExpandEnv(cfg *Config) {
	cfg.Logging.Level = os.ExpandEnv(cfg.Logging.Level)
	cfg.Metrics.Listen = os.ExpandEnv(cfg.Metrics.Listen)

	for i := range cfg.Targets {
		tg := &cfg.Targets[i]
		tg.Name = os.ExpandEnv(tg.Name)
		tg.Type = os.ExpandEnv(tg.Type)
		tg.Path = os.ExpandEnv(tg.Path)
		tg.Glob = os.ExpandEnv(tg.Glob)
		tg.Schedule = os.ExpandEnv(tg.Schedule)
		tg.Filter.ModifiedAfter = os.ExpandEnv(tg.Filter.ModifiedAfter)
		tg.Filter.ModifiedBefore = os.ExpandEnv(tg.Filter.ModifiedBefore)
		// Pattern is a regexp; "$" anchors must survive.
		if tg.S3 != nil {
			tg.S3.Bucket = os.ExpandEnv(tg.S3.Bucket)
			tg.S3.Region = os.ExpandEnv(tg.S3.Region)
			tg.S3.Prefix = os.ExpandEnv(tg.S3.Prefix)
			tg.S3.AccessKey = os.ExpandEnv(tg.S3.AccessKey)
			tg.S3.SecretKey = os.ExpandEnv(tg.S3.SecretKey)
		}
	}

	for i := range cfg.Notifications {
		nt := &cfg.Notifications[i]
		nt.Type = os.ExpandEnv(nt.Type)
		for j := range nt.On {
			nt.On[j] = os.ExpandEnv(nt.On[j])
		}
		nt.Config.SMTPHost = os.ExpandEnv(nt.Config.SMTPHost)
		nt.Config.From = os.ExpandEnv(nt.Config.From)
		nt.Config.To = os.ExpandEnv(nt.Config.To)
		nt.Config.Username = os.ExpandEnv(nt.Config.Username)
		nt.Config.Password = os.ExpandEnv(nt.Config.Password)
		nt.Config.URL = os.ExpandEnv(nt.Config.URL)
		for k, v := range nt.Config.Headers {
			nt.Config.Headers[k] = os.ExpandEnv(v)
		}
	}
}

// NamePattern compiles whichever of pattern or glob is set. Both empty
// yields nil, which matches everything.
func (t TargetConfig) NamePattern() (listing.NamePattern, error) {
	switch {
	case t.Pattern != "":
		return compileRegexp(t.Pattern)
	case t.Glob != "":
		return listing.Glob(t.Glob)
	default:
		return nil, nil
	}
}

func (t TargetConfig) FilterSpec() (listing.FilterSpec, error) {
	var spec listing.FilterSpec

	name, err := t.NamePattern()
	if err != nil {
		return spec, err
	}
	spec.Name = name

	if t.Filter.Files != nil || t.Filter.Symlinks != nil {
		spec.Type = &listing.TypeFilter{
			Files:    t.Filter.Files != nil && *t.Filter.Files,
			Symlinks: t.Filter.Symlinks != nil && *t.Filter.Symlinks,
		}
	}
	spec.ExcludeEmpty = t.Filter.ExcludeEmpty

	if spec.ModifiedAfter, err = listing.ParseTimeBound(t.Filter.ModifiedAfter); err != nil {
		return spec, err
	}
	if spec.ModifiedBefore, err = listing.ParseTimeBound(t.Filter.ModifiedBefore); err != nil {
		return spec, err
	}
	return spec, nil
}

func (t TargetConfig) Policy() retention.Policy {
	return retention.Policy{
		RetainCount: t.Retain,
		KeepDaily:   t.KeepDaily,
		KeepWeekly:  t.KeepWeekly,
		KeepMonthly: t.KeepMonthly,
	}
}
