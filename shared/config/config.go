package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/furisto/promptbuilder/shared"
)

const (
	FileName = "config.yaml"

	DefaultTimeout     = 60 * time.Second
	DefaultMaxAttempts = 1
	DefaultFeedback    = "formspree"
)

var (
	Providers     = []string{"openai", "anthropic", "gemini", "deepseek"}
	FeedbackSinks = []string{"formspree", "posthog"}
)

type Config struct {
	Provider    string          `yaml:"provider,omitempty"`
	Model       string          `yaml:"model,omitempty"`
	Temperature *float64        `yaml:"temperature,omitempty"`
	Timeout     time.Duration   `yaml:"timeout,omitempty"`
	Style       string          `yaml:"style,omitempty"`
	Retry       RetryConfig     `yaml:"retry,omitempty"`
	Feedback    FeedbackConfig  `yaml:"feedback,omitempty"`
	Analytics   AnalyticsConfig `yaml:"analytics,omitempty"`
	Export      ExportConfig    `yaml:"export,omitempty"`
	Sentry      SentryConfig    `yaml:"sentry,omitempty"`
}

type RetryConfig struct {
	MaxAttempts uint `yaml:"max_attempts,omitempty"`
}

type FeedbackConfig struct {
	Sink     string `yaml:"sink,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

type AnalyticsConfig struct {
	PostHogKey string `yaml:"posthog_key,omitempty"`
	Endpoint   string `yaml:"endpoint,omitempty"`
}

type ExportConfig struct {
	FontPath string `yaml:"font_path,omitempty"`
}

type SentryConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

// WithDefaults returns a copy with every unset value replaced by its default.
func (c Config) WithDefaults() Config {
	if c.Provider == "" {
		c.Provider = Providers[0]
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = DefaultMaxAttempts
	}
	if c.Feedback.Sink == "" {
		c.Feedback.Sink = DefaultFeedback
	}
	return c
}

type field struct {
	get   func(c *Config) string
	set   func(c *Config, v string) error
	unset func(c *Config)
}

var fields = map[string]field{
	"provider": {
		get: func(c *Config) string { return c.Provider },
		set: func(c *Config, v string) error {
			if !slices.Contains(Providers, v) {
				return fmt.Errorf("unsupported provider %q, must be one of %v", v, Providers)
			}
			c.Provider = v
			return nil
		},
		unset: func(c *Config) { c.Provider = "" },
	},
	"model": {
		get:   func(c *Config) string { return c.Model },
		set:   func(c *Config, v string) error { c.Model = v; return nil },
		unset: func(c *Config) { c.Model = "" },
	},
	"temperature": {
		get: func(c *Config) string {
			if c.Temperature == nil {
				return ""
			}
			return strconv.FormatFloat(*c.Temperature, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			t, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("temperature must be a number: %w", err)
			}
			if t < 0 || t > 2 {
				return fmt.Errorf("temperature must be between 0 and 2, got %v", t)
			}
			c.Temperature = &t
			return nil
		},
		unset: func(c *Config) { c.Temperature = nil },
	},
	"timeout": {
		get: func(c *Config) string {
			if c.Timeout == 0 {
				return ""
			}
			return c.Timeout.String()
		},
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("timeout must be a duration like 30s or 2m: %w", err)
			}
			if d <= 0 {
				return fmt.Errorf("timeout must be positive, got %s", d)
			}
			c.Timeout = d
			return nil
		},
		unset: func(c *Config) { c.Timeout = 0 },
	},
	"style": {
		get:   func(c *Config) string { return c.Style },
		set:   func(c *Config, v string) error { c.Style = v; return nil },
		unset: func(c *Config) { c.Style = "" },
	},
	"retry.max_attempts": {
		get: func(c *Config) string {
			if c.Retry.MaxAttempts == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Retry.MaxAttempts), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n == 0 {
				return fmt.Errorf("retry.max_attempts must be a positive integer, got %q", v)
			}
			c.Retry.MaxAttempts = uint(n)
			return nil
		},
		unset: func(c *Config) { c.Retry.MaxAttempts = 0 },
	},
	"feedback.sink": {
		get: func(c *Config) string { return c.Feedback.Sink },
		set: func(c *Config, v string) error {
			if !slices.Contains(FeedbackSinks, v) {
				return fmt.Errorf("unsupported feedback sink %q, must be one of %v", v, FeedbackSinks)
			}
			c.Feedback.Sink = v
			return nil
		},
		unset: func(c *Config) { c.Feedback.Sink = "" },
	},
	"feedback.endpoint": {
		get:   func(c *Config) string { return c.Feedback.Endpoint },
		set:   func(c *Config, v string) error { c.Feedback.Endpoint = v; return nil },
		unset: func(c *Config) { c.Feedback.Endpoint = "" },
	},
	"analytics.posthog_key": {
		get:   func(c *Config) string { return c.Analytics.PostHogKey },
		set:   func(c *Config, v string) error { c.Analytics.PostHogKey = v; return nil },
		unset: func(c *Config) { c.Analytics.PostHogKey = "" },
	},
	"analytics.endpoint": {
		get:   func(c *Config) string { return c.Analytics.Endpoint },
		set:   func(c *Config, v string) error { c.Analytics.Endpoint = v; return nil },
		unset: func(c *Config) { c.Analytics.Endpoint = "" },
	},
	"export.font_path": {
		get:   func(c *Config) string { return c.Export.FontPath },
		set:   func(c *Config, v string) error { c.Export.FontPath = v; return nil },
		unset: func(c *Config) { c.Export.FontPath = "" },
	},
	"sentry.dsn": {
		get:   func(c *Config) string { return c.Sentry.DSN },
		set:   func(c *Config, v string) error { c.Sentry.DSN = v; return nil },
		unset: func(c *Config) { c.Sentry.DSN = "" },
	},
}

// Keys lists every supported configuration key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown configuration key %q", e.Key)
}

func (e *UnknownKeyError) ErrorSource() shared.ErrorSource {
	return shared.ErrorSourceUser
}

type Store struct {
	fs     *afero.Afero
	path   string
	config Config
}

func NewStore(fs *afero.Afero, userInfo shared.UserInfo) (*Store, error) {
	configDir, err := userInfo.ConfigDir()
	if err != nil {
		return nil, err
	}

	store := &Store{
		fs:   fs,
		path: filepath.Join(configDir, FileName),
	}

	if err := store.load(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *Store) Path() string {
	return s.path
}

// Config returns the stored values without defaults applied.
func (s *Store) Config() Config {
	return s.config
}

func (s *Store) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", &UnknownKeyError{Key: key}
	}
	return f.get(&s.config), nil
}

func (s *Store) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return &UnknownKeyError{Key: key}
	}

	updated := s.config
	if err := f.set(&updated, value); err != nil {
		return shared.Wrap(shared.ErrorSourceUser, err, "invalid value for %s", key)
	}

	if err := s.save(updated); err != nil {
		return err
	}
	s.config = updated
	return nil
}

func (s *Store) Unset(key string) error {
	f, ok := fields[key]
	if !ok {
		return &UnknownKeyError{Key: key}
	}

	updated := s.config
	f.unset(&updated)

	if err := s.save(updated); err != nil {
		return err
	}
	s.config = updated
	return nil
}

// List returns all keys that currently hold a value.
func (s *Store) List() map[string]string {
	values := make(map[string]string)
	for key, f := range fields {
		if v := f.get(&s.config); v != "" {
			values[key] = v
		}
	}
	return values
}

func (s *Store) load() error {
	exists, err := s.fs.Exists(s.path)
	if err != nil {
		return shared.Wrap(shared.ErrorSourceSystem, err, "failed to stat %s", s.path)
	}
	if !exists {
		return nil
	}

	content, err := s.fs.ReadFile(s.path)
	if err != nil {
		return shared.Wrap(shared.ErrorSourceSystem, err, "failed to read %s", s.path)
	}

	if err := yaml.Unmarshal(content, &s.config); err != nil {
		return shared.Wrap(shared.ErrorSourceUser, err, "failed to parse %s", s.path)
	}

	return nil
}

func (s *Store) save(config Config) error {
	content, err := yaml.Marshal(config)
	if err != nil {
		return shared.Wrap(shared.ErrorSourceSystem, err, "failed to encode configuration")
	}

	if err := s.fs.WriteFile(s.path, content, 0600); err != nil {
		return shared.Wrap(shared.ErrorSourceSystem, err, "failed to write %s", s.path)
	}
	return nil
}
