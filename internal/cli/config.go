package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/rastermill/rastermill/pkg/engine"
	apperrors "github.com/rastermill/rastermill/pkg/errors"
)

// defaultConfigFile is picked up from the working directory when the
// --config flag is not given.
const defaultConfigFile = "rastermill.toml"

// Config is the rastermill.toml schema. A partial file only overrides the
// fields it names; everything else keeps its default.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Server   ServerConfig   `toml:"server"`
	Redis    RedisConfig    `toml:"redis"`
	Store    StoreConfig    `toml:"store"`
	Cache    CacheConfig    `toml:"cache"`
	Projects ProjectsConfig `toml:"projects"`
	Mongo    MongoConfig    `toml:"mongo"`
}

// EngineConfig tunes the evaluation scheduler.
type EngineConfig struct {
	// Mode is the initial trigger mode, "auto" or "manual".
	Mode string `toml:"mode"`
	// DebounceMs is the parameter-edit debounce delay in milliseconds.
	DebounceMs int `toml:"debounce_ms"`
}

// Debounce returns the debounce delay as a duration.
func (e EngineConfig) Debounce() time.Duration {
	return time.Duration(e.DebounceMs) * time.Millisecond
}

// ServerConfig tunes the HTTP API.
type ServerConfig struct {
	// Addr is the listen address, host optional (":8080").
	Addr string `toml:"addr"`
}

// RedisConfig locates the Redis instance shared by the redis layer store
// and the redis result cache.
type RedisConfig struct {
	Addr string `toml:"addr"`
}

// StoreConfig selects the layer store backend.
type StoreConfig struct {
	// Backend is "memory" or "redis".
	Backend string `toml:"backend"`
	// Project namespaces redis layer keys so multiple projects can share
	// one instance.
	Project string `toml:"project"`
}

// CacheConfig selects the evaluation result cache.
type CacheConfig struct {
	// Backend is "file", "redis" or "none".
	Backend string `toml:"backend"`
	// Dir overrides the default directory for the file backend.
	Dir string `toml:"dir"`
}

// ProjectsConfig selects the project store behind ID references.
type ProjectsConfig struct {
	// Backend is "file" or "mongo".
	Backend string `toml:"backend"`
	// Dir overrides the default directory for the file backend.
	Dir string `toml:"dir"`
}

// MongoConfig locates the MongoDB project store.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// DefaultConfig returns the configuration used when no file is present:
// auto mode with the engine's default debounce, in-memory layers, a file
// result cache and file project storage.
func DefaultConfig() Config {
	return Config{
		Engine: EngineConfig{
			Mode:       string(engine.ModeAuto),
			DebounceMs: int(engine.DefaultDebounce / time.Millisecond),
		},
		Server:   ServerConfig{Addr: ":8080"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Store:    StoreConfig{Backend: "memory", Project: "default"},
		Cache:    CacheConfig{Backend: "file"},
		Projects: ProjectsConfig{Backend: "file"},
		Mongo:    MongoConfig{URI: "mongodb://localhost:27017", Database: "rastermill"},
	}
}

// LoadConfig reads a TOML config file on top of the defaults. An empty
// path returns the defaults unchanged; a named file must exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := apperrors.ValidateMode(cfg.Engine.Mode); err != nil {
		return cfg, err
	}
	return cfg, nil
}
