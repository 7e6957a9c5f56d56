// Package cli implements the rastermill command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/rastermill/rastermill/pkg/buildinfo"
	"github.com/rastermill/rastermill/pkg/cache"
	apperrors "github.com/rastermill/rastermill/pkg/errors"
	"github.com/rastermill/rastermill/pkg/httputil"
	"github.com/rastermill/rastermill/pkg/layerstore"
	"github.com/rastermill/rastermill/pkg/project"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "rastermill"

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

	configPath string
	config     Config
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		config: DefaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "rastermill",
		Short:        "Rastermill evaluates dataflow graphs over tiled raster layers",
		Long:         `Rastermill runs projects: dataflow graphs whose nodes transform tiled raster grids. The engine schedules evaluation passes as the graph changes and sink nodes publish their grids to a layer store.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(c.resolveConfigPath())
			if err != nil {
				return err
			}
			c.config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a rastermill.toml config file")

	// Register all subcommands
	root.AddCommand(c.runCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// resolveConfigPath returns the --config value, or the default file name
// when one exists in the working directory.
func (c *CLI) resolveConfigPath() string {
	if c.configPath != "" {
		return c.configPath
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

// =============================================================================
// Backend Factories
// =============================================================================

// newResultCache builds the evaluation result cache selected by the
// config. A cache that cannot be set up degrades to the null cache only
// when that is safe; a misconfigured backend is an error.
func (c *CLI) newResultCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.config.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		rdb, err := c.dialRedis(ctx)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisCache(rdb), nil
	case "file", "":
		dir, err := c.resultCacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", c.config.Cache.Backend)
	}
}

// newLayerStore builds the layer store behind the sink save callback.
func (c *CLI) newLayerStore(ctx context.Context) (layerstore.Store, error) {
	switch c.config.Store.Backend {
	case "memory", "":
		return layerstore.NewMemoryStore(), nil
	case "redis":
		rdb, err := c.dialRedis(ctx)
		if err != nil {
			return nil, err
		}
		return layerstore.NewRedisStore(rdb, c.config.Store.Project), nil
	default:
		return nil, fmt.Errorf("unknown layer store backend %q", c.config.Store.Backend)
	}
}

// newProjectStore builds the project store used to resolve ID references.
func (c *CLI) newProjectStore(ctx context.Context) (project.Store, error) {
	switch c.config.Projects.Backend {
	case "file", "":
		return project.NewFileStore(c.config.Projects.Dir)
	case "mongo":
		return project.NewMongoStore(ctx, c.config.Mongo.URI, c.config.Mongo.Database)
	default:
		return nil, fmt.Errorf("unknown project store backend %q", c.config.Projects.Backend)
	}
}

// dialRedis connects to the configured Redis instance. The ping is
// retried with backoff so a backend still starting up does not fail the
// command immediately.
func (c *CLI) dialRedis(ctx context.Context) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: c.config.Redis.Addr})
	err := httputil.Retry(ctx, 3, 500*time.Millisecond, func() error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return &httputil.RetryableError{Err: err}
		}
		return nil
	})
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", c.config.Redis.Addr, err)
	}
	return rdb, nil
}

// =============================================================================
// Project Resolution
// =============================================================================

// loadProject resolves ref as a project file path first, then as a
// project ID in the configured project store.
func (c *CLI) loadProject(ctx context.Context, ref string) (*project.Project, error) {
	if _, err := os.Stat(ref); err == nil {
		return project.ReadFile(ref)
	}
	if err := apperrors.ValidateProjectID(ref); err != nil {
		return nil, err
	}
	store, err := c.newProjectStore(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Load(ctx, ref)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/rastermill/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// resultCacheDir returns the file cache directory, honoring the config
// override.
func (c *CLI) resultCacheDir() (string, error) {
	if c.config.Cache.Dir != "" {
		return c.config.Cache.Dir, nil
	}
	return cacheDir()
}
