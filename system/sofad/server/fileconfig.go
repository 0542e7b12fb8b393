package server

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/signadot/sofa/system/sofad/api"
	"github.com/signadot/sofa/system/sofad/storage"
	"github.com/signadot/sofa/system/sofad/storage/autoid"
)

// Config represents the sofa server configuration file structure.
// Sections left out of a file take their defaults.
type Config struct {
	HTTP       *HTTPConfig        `yaml:"http"`
	RPC        *RPCConfig         `yaml:"rpc"`
	Store      *StoreConfig       `yaml:"store"`
	IDs        *IDsConfig         `yaml:"ids"`
	Validators []*ValidatorConfig `yaml:"validators"`
}

type HTTPConfig struct {
	// Addr is the listen address. Empty disables the HTTP service.
	Addr string `yaml:"addr"`
	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes int64 `yaml:"maxBodyBytes"`
	// ShutdownTimeout bounds how long in-flight requests may take to
	// finish once serving stops.
	ShutdownTimeout api.Duration `yaml:"shutdownTimeout"`
}

type RPCConfig struct {
	// Addr is the listen address. Empty disables the JSON-RPC service.
	Addr string `yaml:"addr"`
}

// StoreConfig sets the retry policy of the store's mutation pipeline.
type StoreConfig struct {
	MaxRetries int          `yaml:"maxRetries"`
	Backoff    api.Duration `yaml:"backoff"`
	MaxBackoff api.Duration `yaml:"maxBackoff"`
}

type IDsConfig struct {
	// Algorithm is "random" or "sequential".
	Algorithm string `yaml:"algorithm"`
	// MaxUUIDs caps the count of a single uuids request.
	MaxUUIDs int `yaml:"maxUUIDs"`
}

// ValidatorConfig is a rule every document written to a matching
// database must satisfy.
type ValidatorConfig struct {
	Name string `yaml:"name"`
	// Databases is a glob over database names. Empty matches all.
	Databases string `yaml:"databases"`
	// Rule is a boolean expression over db, id, doc, old and deleted.
	Rule string `yaml:"rule"`
	// Message is the reason reported when Rule is false.
	Message string `yaml:"message"`
}

// LoadConfig loads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML configuration data and fills in defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.DisallowUnknownField()); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: &HTTPConfig{
			Addr:            "127.0.0.1:5984",
			MaxBodyBytes:    8 << 20,
			ShutdownTimeout: api.Duration(5 * time.Second),
		},
		RPC: &RPCConfig{
			Addr: "127.0.0.1:5985",
		},
		Store: &StoreConfig{
			MaxRetries: storage.DefaultRetryPolicy().MaxRetries,
		},
		IDs: &IDsConfig{
			Algorithm: autoid.RandomAlgorithm,
			MaxUUIDs:  1000,
		},
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.HTTP == nil {
		c.HTTP = def.HTTP
	}
	if c.HTTP.MaxBodyBytes == 0 {
		c.HTTP.MaxBodyBytes = def.HTTP.MaxBodyBytes
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = def.HTTP.ShutdownTimeout
	}
	if c.RPC == nil {
		c.RPC = def.RPC
	}
	if c.Store == nil {
		c.Store = def.Store
	}
	if c.IDs == nil {
		c.IDs = def.IDs
	}
	if c.IDs.Algorithm == "" {
		c.IDs.Algorithm = def.IDs.Algorithm
	}
	if c.IDs.MaxUUIDs == 0 {
		c.IDs.MaxUUIDs = def.IDs.MaxUUIDs
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.HTTP != nil && c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("http.maxBodyBytes must not be negative")
	}
	if c.Store != nil {
		if c.Store.Backoff < 0 || c.Store.MaxBackoff < 0 {
			return fmt.Errorf("store backoff must not be negative")
		}
	}
	if c.IDs != nil {
		if _, err := autoid.New(c.IDs.Algorithm); err != nil {
			return fmt.Errorf("ids.algorithm: %w", err)
		}
		if c.IDs.MaxUUIDs < 0 {
			return fmt.Errorf("ids.maxUUIDs must not be negative")
		}
	}
	for i, v := range c.Validators {
		if v.Databases != "" {
			if _, err := path.Match(v.Databases, ""); err != nil {
				return fmt.Errorf("validators[%d].databases %q: %w", i, v.Databases, err)
			}
		}
		if _, err := compileRule(v.Rule); err != nil {
			return fmt.Errorf("validators[%d] %s: %w", i, v.Name, err)
		}
	}
	return nil
}

// RetryPolicy returns the store retry policy c describes.
func (c *Config) RetryPolicy() storage.RetryPolicy {
	if c.Store == nil {
		return storage.DefaultRetryPolicy()
	}
	return storage.RetryPolicy{
		MaxRetries: c.Store.MaxRetries,
		Backoff:    time.Duration(c.Store.Backoff),
		MaxBackoff: time.Duration(c.Store.MaxBackoff),
	}
}
