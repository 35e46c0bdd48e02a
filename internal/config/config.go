// Package config loads uimigrate settings.
//
// Settings come from uimigrate.toml or uimigrate.yaml in the working
// directory (or an explicit --config path); the format is chosen by file
// extension. A missing default file is not an error: every field has a
// default. Environment variables from a .env file are loaded first so the
// transform API key can live there.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/uimigrate/pkg/errors"
)

// Default file names, searched in this order.
var DefaultFiles = []string{"uimigrate.toml", "uimigrate.yaml", "uimigrate.yml"}

const (
	defaultModel       = "gemini-2.5-flash"
	defaultAPIKeyEnv   = "GEMINI_API_KEY"
	defaultLedgerPath  = ".uimigrate/ledger.json"
	defaultLRUSize     = 512
	defaultCacheTTL    = 7 * 24 * time.Hour
	defaultRedisPrefix = "uimigrate:"
)

// Cache backends.
const (
	CacheFile   = "file"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Ledger backends.
const (
	LedgerFile  = "file"
	LedgerMongo = "mongo"
)

// Config is the complete settings tree.
type Config struct {
	Transform Transform `toml:"transform" yaml:"transform"`
	Pipeline  Pipeline  `toml:"pipeline" yaml:"pipeline"`
	Deps      Deps      `toml:"deps" yaml:"deps"`
	Cache     Cache     `toml:"cache" yaml:"cache"`
	Ledger    Ledger    `toml:"ledger" yaml:"ledger"`
	Batch     Batch     `toml:"batch" yaml:"batch"`

	// Source is the file the config was read from; empty for defaults.
	Source string `toml:"-" yaml:"-"`
}

// Transform configures the model client and its middleware.
type Transform struct {
	Model             string        `toml:"model" yaml:"model"`
	Temperature       float64       `toml:"temperature" yaml:"temperature"`
	APIKeyEnv         string        `toml:"api_key_env" yaml:"api_key_env"`
	RPS               float64       `toml:"rps" yaml:"rps"`
	Burst             int           `toml:"burst" yaml:"burst"`
	TransientAttempts int           `toml:"transient_attempts" yaml:"transient_attempts"`
	InitialDelay      time.Duration `toml:"initial_delay" yaml:"initial_delay"`
	MaxDelay          time.Duration `toml:"max_delay" yaml:"max_delay"`
}

// APIKey reads the key from the environment variable named by APIKeyEnv.
func (t Transform) APIKey() string {
	return os.Getenv(t.APIKeyEnv)
}

// Pipeline configures the quality gate.
type Pipeline struct {
	Threshold          float64 `toml:"threshold" yaml:"threshold"`
	MaxAttempts        int     `toml:"max_attempts" yaml:"max_attempts"`
	ProceedOnExhausted bool    `toml:"proceed_on_exhausted" yaml:"proceed_on_exhausted"`
	AngularVersion     string  `toml:"angular_version" yaml:"angular_version"`
	UIFramework        string  `toml:"ui_framework" yaml:"ui_framework"`
}

// Deps configures dependency resolution.
type Deps struct {
	MaxDepth      int      `toml:"max_depth" yaml:"max_depth"`
	SearchParents int      `toml:"search_parents" yaml:"search_parents"`
	Extension     string   `toml:"extension" yaml:"extension"`
	Ignore        []string `toml:"ignore" yaml:"ignore"`
	UseGitignore  bool     `toml:"use_gitignore" yaml:"use_gitignore"`
}

// Cache configures the transform response cache.
type Cache struct {
	Backend     string        `toml:"backend" yaml:"backend"`
	Dir         string        `toml:"dir" yaml:"dir"`
	RedisAddr   string        `toml:"redis_addr" yaml:"redis_addr"`
	RedisPrefix string        `toml:"redis_prefix" yaml:"redis_prefix"`
	LRUSize     int           `toml:"lru_size" yaml:"lru_size"`
	TTL         time.Duration `toml:"ttl" yaml:"ttl"`
}

// Ledger configures ledger persistence.
type Ledger struct {
	Backend       string `toml:"backend" yaml:"backend"`
	Path          string `toml:"path" yaml:"path"`
	MongoURI      string `toml:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database" yaml:"mongo_database"`
	Name          string `toml:"name" yaml:"name"`
}

// Batch configures the batch driver.
type Batch struct {
	Workers int `toml:"workers" yaml:"workers"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Transform: Transform{
			Model:             defaultModel,
			Temperature:       0.1,
			APIKeyEnv:         defaultAPIKeyEnv,
			RPS:               1,
			Burst:             1,
			TransientAttempts: 3,
			InitialDelay:      time.Second,
			MaxDelay:          30 * time.Second,
		},
		Pipeline: Pipeline{
			Threshold:      85,
			MaxAttempts:    3,
			AngularVersion: "21",
			UIFramework:    "AG-Grid",
		},
		Deps: Deps{
			MaxDepth:      5,
			SearchParents: 3,
			Extension:     ".js",
		},
		Cache: Cache{
			Backend:     CacheFile,
			RedisPrefix: defaultRedisPrefix,
			LRUSize:     defaultLRUSize,
			TTL:         defaultCacheTTL,
		},
		Ledger: Ledger{
			Backend: LedgerFile,
			Path:    defaultLedgerPath,
		},
		Batch: Batch{Workers: 1},
	}
}

// Load reads settings. An empty path searches DefaultFiles in dir and falls
// back to defaults when none exists; an explicit path must exist. The .env
// file in dir, if any, is loaded into the environment first without
// overriding variables that are already set.
func Load(dir, path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}

	cfg := Default()
	if path == "" {
		for _, name := range DefaultFiles {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound, "config file %s not found", path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := Decode(path, data, cfg); err != nil {
		return nil, err
	}
	cfg.Source = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses data into cfg using the format implied by name's
// extension. Fields absent from data keep their current values.
func Decode(name string, data []byte, cfg *Config) error {
	var err error
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".toml":
		_, err = toml.Decode(string(data), cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unsupported config format %q", ext)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", filepath.Base(name))
	}
	return nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "load %s", path)
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeInvalidConfig, format, args...)
	}
	switch {
	case c.Pipeline.Threshold < 0 || c.Pipeline.Threshold > 100:
		return invalid("pipeline.threshold must be within [0, 100], got %g", c.Pipeline.Threshold)
	case c.Pipeline.MaxAttempts < 1:
		return invalid("pipeline.max_attempts must be at least 1, got %d", c.Pipeline.MaxAttempts)
	case c.Transform.Temperature < 0 || c.Transform.Temperature > 2:
		return invalid("transform.temperature must be within [0, 2], got %g", c.Transform.Temperature)
	case c.Transform.RPS < 0:
		return invalid("transform.rps must not be negative")
	case c.Transform.TransientAttempts < 1:
		return invalid("transform.transient_attempts must be at least 1, got %d", c.Transform.TransientAttempts)
	case c.Deps.MaxDepth < 1:
		return invalid("deps.max_depth must be at least 1, got %d", c.Deps.MaxDepth)
	case c.Batch.Workers < 1:
		return invalid("batch.workers must be at least 1, got %d", c.Batch.Workers)
	case !slices.Contains([]string{CacheFile, CacheMemory, CacheRedis, CacheNone}, c.Cache.Backend):
		return invalid("cache.backend %q is not one of file, memory, redis, none", c.Cache.Backend)
	case c.Cache.Backend == CacheRedis && c.Cache.RedisAddr == "":
		return invalid("cache.redis_addr is required for the redis backend")
	case !slices.Contains([]string{LedgerFile, LedgerMongo}, c.Ledger.Backend):
		return invalid("ledger.backend %q is not one of file, mongo", c.Ledger.Backend)
	case c.Ledger.Backend == LedgerMongo && c.Ledger.MongoURI == "":
		return invalid("ledger.mongo_uri is required for the mongo backend")
	}
	return nil
}
