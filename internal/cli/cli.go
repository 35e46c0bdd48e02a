package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/uimigrate/internal/config"
	"github.com/matzehuels/uimigrate/pkg/buildinfo"
	"github.com/matzehuels/uimigrate/pkg/cache"
	"github.com/matzehuels/uimigrate/pkg/deps"
	"github.com/matzehuels/uimigrate/pkg/ledger"
	"github.com/matzehuels/uimigrate/pkg/retry"
	"github.com/matzehuels/uimigrate/pkg/transform"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "uimigrate"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is the --config flag; empty searches the working directory.
	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "uimigrate migrates ExtJS components to Angular",
		Long: `uimigrate migrates a tree of ExtJS component sources into an Angular
project layout. Each file runs through analysis, conversion and storage
phases gated by quality scoring; dependencies are discovered and migrated
along the way, and progress is kept in a resumable ledger.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: uimigrate.toml or uimigrate.yaml in the working directory)")

	root.AddCommand(c.migrateCommand())
	root.AddCommand(c.depsCommand())
	root.AddCommand(c.ledgerCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig loads settings once per process.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	cfg, err := config.Load(wd, c.configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Source != "" {
		c.Logger.Debug("config loaded", "file", cfg.Source)
	}
	c.cfg = cfg
	return cfg, nil
}

// =============================================================================
// Factories
// =============================================================================

// newCache opens the configured response cache.
func (c *CLI) newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheMemory:
		return cache.NewMemoryCache(cfg.Cache.LRUSize)
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			Prefix:   cfg.Cache.RedisPrefix,
		})
	}
	dir, err := cacheDir(cfg)
	if err != nil {
		c.Logger.Warn("cache disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newCapability builds the transform chain: cache, then retry, then rate
// limit, then the Gemini client. Cache hits skip the limiter.
func (c *CLI) newCapability(ctx context.Context, cfg *config.Config, store cache.Cache) (transform.Capability, error) {
	key := cfg.Transform.APIKey()
	if key == "" {
		return nil, fmt.Errorf("%s is not set (export it or add it to .env)", cfg.Transform.APIKeyEnv)
	}
	gemini, err := transform.NewGemini(ctx, transform.GeminiOptions{
		APIKey:      key,
		Model:       cfg.Transform.Model,
		Temperature: float32(cfg.Transform.Temperature),
	})
	if err != nil {
		return nil, err
	}
	return c.wrapCapability(cfg, gemini, store), nil
}

// wrapCapability applies the configured middleware to inner.
func (c *CLI) wrapCapability(cfg *config.Config, inner transform.Capability, store cache.Cache) transform.Capability {
	policy := retry.Policy{
		Attempts: cfg.Transform.TransientAttempts,
		Delay:    cfg.Transform.InitialDelay,
		MaxDelay: cfg.Transform.MaxDelay,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			c.Logger.Warn("transform call failed, retrying", "attempt", attempt, "wait", wait, "error", err)
		},
	}
	return transform.Chain(inner,
		transform.WithCache(store, responseKeyer(cfg), cfg.Cache.TTL),
		transform.WithRetry(policy),
		transform.WithRateLimit(cfg.Transform.RPS, cfg.Transform.Burst),
		transform.WithLogging(c.Logger),
	)
}

// responseKeyer scopes cached responses to the migration target, so changing
// the Angular version or grid library does not reuse stale output.
func responseKeyer(cfg *config.Config) cache.Keyer {
	prefix := fmt.Sprintf("angular%s:%s:", cfg.Pipeline.AngularVersion, strings.ToLower(cfg.Pipeline.UIFramework))
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), prefix)
}

// newResolver creates a dependency resolver rooted at baseDir.
func (c *CLI) newResolver(cfg *config.Config, baseDir string) (*deps.Resolver, error) {
	return deps.New(deps.Options{
		BaseDir:       baseDir,
		MaxDepth:      cfg.Deps.MaxDepth,
		Extension:     cfg.Deps.Extension,
		SearchParents: cfg.Deps.SearchParents,
		Ignore:        cfg.Deps.Ignore,
		Logger:        c.Logger,
	})
}

// openLedgerStore opens the configured ledger store. A non-empty path
// overrides the file backend's location.
func (c *CLI) openLedgerStore(ctx context.Context, cfg *config.Config, path string) (ledger.Store, error) {
	if cfg.Ledger.Backend == config.LedgerMongo {
		return ledger.NewMongoStore(ctx, ledger.MongoOptions{
			URI:      cfg.Ledger.MongoURI,
			Database: cfg.Ledger.MongoDatabase,
			Name:     cfg.Ledger.Name,
		})
	}
	if path == "" {
		path = cfg.Ledger.Path
	}
	return ledger.NewFileStore(path), nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, or the XDG default
// (~/.cache/uimigrate/).
func cacheDir(cfg *config.Config) (string, error) {
	if cfg != nil && cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
