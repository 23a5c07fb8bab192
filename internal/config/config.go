// Package config loads the vtree configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/roach88/vtree/internal/diff"
	"github.com/roach88/vtree/internal/families"
)

// Config is the top-level configuration.
type Config struct {
	// Root is the content directory served by watch.
	Root string `yaml:"root"`

	// Store is the SQLite snapshot database. Empty disables persistence.
	Store string `yaml:"store"`

	// Families is an optional CUE file declaring custom families.
	Families string `yaml:"families"`

	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`

	Diff   DiffConfig   `yaml:"diff"`
	Links  LinksConfig  `yaml:"links"`
	Watch  WatchConfig  `yaml:"watch"`
	Render RenderConfig `yaml:"render"`
}

// DiffConfig tunes reload decisions.
type DiffConfig struct {
	ReloadThreshold float64 `yaml:"reload_threshold" validate:"gt=0,lte=1"`

	// MaxOps caps patch size; 0 disables the cap. Unset means the default.
	MaxOps *int `yaml:"max_ops" validate:"omitempty,gte=0"`
}

// LinksConfig configures external link checking.
type LinksConfig struct {
	Check       bool          `yaml:"check"`
	Strict      bool          `yaml:"strict"`
	Concurrency int           `yaml:"concurrency" validate:"gte=1,lte=256"`
	Rate        float64       `yaml:"rate" validate:"gt=0"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	Debounce   time.Duration `yaml:"debounce" validate:"gte=0"`
	Extensions []string      `yaml:"extensions" validate:"min=1,dive,startswith=."`
}

// RenderConfig configures HTML output.
type RenderConfig struct {
	EmitIDs bool `yaml:"emit_ids"`
	Doctype bool `yaml:"doctype"`
}

var validate = validator.New()

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.defaults()
	return c
}

func (c *Config) defaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Diff.ReloadThreshold == 0 {
		c.Diff.ReloadThreshold = diff.DefaultReloadThreshold
	}
	if c.Diff.MaxOps == nil {
		n := diff.DefaultMaxOps
		c.Diff.MaxOps = &n
	}
	if c.Links.Concurrency == 0 {
		c.Links.Concurrency = families.DefaultCheckConcurrency
	}
	if c.Links.Rate == 0 {
		c.Links.Rate = float64(families.DefaultCheckRate)
	}
	if c.Links.Timeout == 0 {
		c.Links.Timeout = families.DefaultCheckTimeout
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = 100 * time.Millisecond
	}
	if len(c.Watch.Extensions) == 0 {
		c.Watch.Extensions = []string{".html", ".htm"}
	}
}

// Load reads and validates the file at path. An empty path yields Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes YAML, fills defaults and validates. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.defaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DiffOptions returns the diff tuning.
func (c *Config) DiffOptions() diff.Options {
	opts := diff.Options{ReloadThreshold: c.Diff.ReloadThreshold, MaxOps: diff.DefaultMaxOps}
	if c.Diff.MaxOps != nil {
		opts.MaxOps = *c.Diff.MaxOps
	}
	return opts
}

// LinkChecker builds the link checker described by the links section.
func (c *Config) LinkChecker(logger *slog.Logger) *families.LinkChecker {
	return families.NewLinkChecker(
		families.WithNetwork(c.Links.Check),
		families.WithStrict(c.Links.Strict),
		families.WithConcurrency(c.Links.Concurrency),
		families.WithRate(rate.Limit(c.Links.Rate), c.Links.Concurrency),
		families.WithHTTPClient(&http.Client{Timeout: c.Links.Timeout}),
		families.WithCheckerLogger(logger),
	)
}

// Registry returns the built-in families plus those declared in the
// Families file.
func (c *Config) Registry() (*families.Registry, error) {
	reg := families.Builtin()
	if c.Families == "" {
		return reg, nil
	}
	exts, err := families.LoadCUEFile(c.Families)
	if err != nil {
		return nil, err
	}
	if err := reg.RegisterAll(exts); err != nil {
		return nil, err
	}
	return reg, nil
}

// Level parses LogLevel.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
