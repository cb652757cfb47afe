// Package config loads the casctl configuration from HCL or YAML files.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/hashicorp-forge/casstore/pkg/casstorage"
)

const (
	DefaultLogLevel            = "info"
	DefaultManagedCountWarning = 1000
	DefaultMaxRetries          = 3
	DefaultInitialInterval     = "100ms"
	DefaultMaxInterval         = "2s"
)

// Config contains the casctl configuration.
type Config struct {
	// LogLevel is the level of the root logger: trace, debug, info, warn or
	// error.
	LogLevel string `hcl:"log_level,optional"`

	// LogFormat is either "standard" or "json".
	LogFormat string `hcl:"log_format,optional"`

	// Session configures the storage session manager.
	Session *SessionConfig `hcl:"session,block"`

	// Loader configures how failed document loads are retried.
	Loader *LoaderConfig `hcl:"loader,block"`
}

// SessionConfig configures the storage session manager.
type SessionConfig struct {
	// DisableCreatorStack disables recording the call stack that opened a
	// session.
	DisableCreatorStack bool `hcl:"disable_creator_stack,optional"`

	// ManagedCountWarning logs a warning once a session manages more
	// documents than this. Zero uses the default, negative disables the
	// warning.
	ManagedCountWarning int `hcl:"managed_count_warning,optional"`
}

// LoaderConfig configures the exponential backoff used by retrying document
// loads.
type LoaderConfig struct {
	// MaxRetries is the number of retries after the first failed load. It
	// defaults to 3 only if the loader block is omitted; zero disables
	// retries.
	MaxRetries      int    `hcl:"max_retries,optional"`
	InitialInterval string `hcl:"initial_interval,optional"`
	MaxInterval     string `hcl:"max_interval,optional"`
}

// NewConfig returns a configuration with all defaults applied.
func NewConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// LoadConfig reads the configuration file at path from fs. Files ending in
// .yaml or .yml are parsed as YAML, everything else as HCL. Defaults are
// applied before the result is validated.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("configuration file path is required")
	}

	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("error reading configuration file: %w", err)
	}

	c := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(src, c)
	default:
		// hclsimple picks the syntax from the file extension, so anything
		// that is not JSON is read as native HCL.
		filename := path
		if filepath.Ext(path) != ".json" {
			filename = strings.TrimSuffix(path, filepath.Ext(path)) + ".hcl"
		}
		err = hclsimple.Decode(filename, src, nil, c)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return c, nil
}

// decodeYAML decodes YAML into c using the same field names as the HCL
// representation.
func decodeYAML(src []byte, c *Config) error {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(src, &raw); err != nil {
		return err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "hcl",
		ErrorUnused: true,
		Result:      c,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = "standard"
	}

	if c.Session == nil {
		c.Session = &SessionConfig{}
	}
	if c.Session.ManagedCountWarning == 0 {
		c.Session.ManagedCountWarning = DefaultManagedCountWarning
	}

	if c.Loader == nil {
		c.Loader = &LoaderConfig{MaxRetries: DefaultMaxRetries}
	}
	if c.Loader.InitialInterval == "" {
		c.Loader.InitialInterval = DefaultInitialInterval
	}
	if c.Loader.MaxInterval == "" {
		c.Loader.MaxInterval = DefaultMaxInterval
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.LogLevel,
			validation.Required,
			validation.By(func(value interface{}) error {
				if hclog.LevelFromString(value.(string)) == hclog.NoLevel {
					return fmt.Errorf("unknown log level %q", value)
				}
				return nil
			}),
		),
		validation.Field(&c.LogFormat, validation.In("standard", "json")),
		validation.Field(&c.Session, validation.Required),
		validation.Field(&c.Loader, validation.Required),
	)
}

// Validate validates the loader configuration.
func (c LoaderConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxRetries, validation.Min(0)),
		validation.Field(&c.InitialInterval, validation.By(validateDuration)),
		validation.Field(&c.MaxInterval, validation.By(validateDuration)),
	)
}

func validateDuration(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("must be a duration like 250ms or 2s")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

// Logger builds the root logger described by the configuration.
func (c *Config) Logger(name string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(c.LogLevel),
		JSONFormat: c.LogFormat == "json",
	})
}

// ManagerConfig converts the session configuration into the configuration of
// a casstorage.Manager using logger.
func (c *Config) ManagerConfig(logger hclog.Logger) casstorage.ManagerConfig {
	cfg := casstorage.ManagerConfig{Logger: logger}
	if c.Session != nil {
		cfg.DisableCreatorStack = c.Session.DisableCreatorStack
		if c.Session.ManagedCountWarning > 0 {
			cfg.ManagedCountWarning = c.Session.ManagedCountWarning
		}
	}
	return cfg
}

// BackOff returns a new retry policy for document loads. Every call returns
// a fresh policy since backoff.BackOff values are stateful.
func (c *Config) BackOff() backoff.BackOff {
	lc := c.Loader
	if lc == nil {
		lc = &LoaderConfig{MaxRetries: DefaultMaxRetries}
	}

	b := backoff.NewExponentialBackOff()
	if d, err := time.ParseDuration(lc.InitialInterval); err == nil {
		b.InitialInterval = d
	}
	if d, err := time.ParseDuration(lc.MaxInterval); err == nil {
		b.MaxInterval = d
	}
	// Retries are bounded by count, not by elapsed time.
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithMaxRetries(b, uint64(lc.MaxRetries))
}
