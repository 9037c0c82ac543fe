// Package config loads elksvg profiles.
//
// A profile is a TOML file that fixes the render defaults, the cache backend
// and the HTTP service settings, so that the CLI and the service render the
// same document identically. Command-line flags override profile values.
//
//	styles = ["simple", "arrows"]
//	defs = ["arrow"]
//	edge_routing = "SPLINES"
//
//	[layout_options]
//	"elk.edgeRouting" = "POLYLINE"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "24h"
//
//	[server]
//	addr = ":8080"
//	max_body_bytes = 4194304
package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/elksvg/pkg/cache"
	"github.com/matzehuels/elksvg/pkg/elk"
	"github.com/matzehuels/elksvg/pkg/errors"
	"github.com/matzehuels/elksvg/pkg/pipeline"
	"github.com/matzehuels/elksvg/pkg/render"
)

const (
	// AppName is used for directories and display.
	AppName = "elksvg"

	// EnvPath names the profile path when no --config flag is given.
	EnvPath = "ELKSVG_CONFIG"

	// FileName is the profile looked up in the working directory.
	FileName = "elksvg.toml"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Server defaults.
const (
	DefaultAddr         = ":8080"
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 60 * time.Second
	DefaultMaxBodyBytes = 8 << 20
)

// =============================================================================
// Profile
// =============================================================================

// Config is a loaded profile.
type Config struct {
	Format         string            `toml:"format" validate:"omitempty,oneof=svg pdf png"`
	Scale          float64           `toml:"scale" validate:"gte=0"`
	Styles         []string          `toml:"styles" validate:"dive,style"`
	StylesheetFile string            `toml:"stylesheet_file"`
	Defs           []string          `toml:"defs" validate:"dive,def"`
	DefsFile       string            `toml:"defs_file"`
	EdgeRouting    string            `toml:"edge_routing" validate:"omitempty,routing"`
	LayoutOptions  elk.LayoutOptions `toml:"layout_options"`

	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`

	// Path is the file the profile was read from; empty for defaults.
	Path string `toml:"-"`
}

// CacheConfig selects and tunes the artifact cache.
type CacheConfig struct {
	Backend   string        `toml:"backend" validate:"oneof=file redis none"`
	Dir       string        `toml:"dir"`
	TTL       time.Duration `toml:"ttl" validate:"gte=0"`
	RedisAddr string        `toml:"redis_addr" validate:"required_if=Backend redis,omitempty,hostname_port"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr         string        `toml:"addr" validate:"required"`
	ReadTimeout  time.Duration `toml:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `toml:"write_timeout" validate:"gt=0"`
	MaxBodyBytes int64         `toml:"max_body_bytes" validate:"gt=0"`
}

// Default returns the profile used when no file is found.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{Backend: BackendFile},
		Server: ServerConfig{
			Addr:         DefaultAddr,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
	}
}

// =============================================================================
// Loading
// =============================================================================

// Load reads the profile at path. An empty path falls back to $ELKSVG_CONFIG
// and then to elksvg.toml in the working directory; if none exists the
// defaults are returned. An explicitly named file that does not exist is an
// error.
func Load(path string) (*Config, error) {
	explicit := true
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		explicit = false
		path = FileName
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return Default(), nil
	}
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "config file not found: %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config")
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes a profile over the defaults and validates it. Unknown keys
// are rejected so that typos do not silently fall back to defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			// Layout options are free-form.
			if len(k) > 0 && k[0] == "layout_options" {
				continue
			}
			keys = append(keys, k.String())
		}
		if len(keys) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// =============================================================================
// Validation
// =============================================================================

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("style", validateStyle)
	_ = validate.RegisterValidation("def", validateDef)
	_ = validate.RegisterValidation("routing", validateRouting)
}

func validateStyle(fl validator.FieldLevel) bool {
	_, err := render.Stylesheet(fl.Field().String())
	return err == nil
}

func validateDef(fl validator.FieldLevel) bool {
	_, err := render.Definitions(fl.Field().String())
	return err == nil
}

func validateRouting(fl validator.FieldLevel) bool {
	_, ok := render.ParseRoutingMode(fl.Field().String())
	return ok
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.New(errors.ErrCodeInvalidConfig,
				"invalid config: %s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid config")
	}
	return nil
}

// =============================================================================
// Derived Settings
// =============================================================================

// PipelineOptions returns the render options the profile describes.
// Stylesheet and definition files are read relative to the profile.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	opts := pipeline.Options{
		Format:        c.Format,
		Scale:         c.Scale,
		Styles:        c.Styles,
		DefNames:      c.Defs,
		LayoutOptions: c.LayoutOptions,
		EdgeRouting:   c.EdgeRouting,
	}
	var err error
	if c.StylesheetFile != "" {
		if opts.CSS, err = c.readFile(c.StylesheetFile); err != nil {
			return pipeline.Options{}, err
		}
	}
	if c.DefsFile != "" {
		if opts.Defs, err = c.readFile(c.DefsFile); err != nil {
			return pipeline.Options{}, err
		}
	}
	return opts, nil
}

// ResolvePath interprets a path from the profile relative to its directory.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Path == "" {
		return p
	}
	return filepath.Join(filepath.Dir(c.Path), p)
}

func (c *Config) readFile(p string) (string, error) {
	data, err := os.ReadFile(c.ResolvePath(p))
	if os.IsNotExist(err) {
		return "", errors.New(errors.ErrCodeFileNotFound, "file not found: %s", p)
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", p)
	}
	return string(data), nil
}

// CacheDir returns the file cache directory: the profile's cache.dir, or
// the XDG cache location (~/.cache/elksvg/).
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.ResolvePath(c.Cache.Dir), nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// OpenCache opens the configured cache backend. disabled forces a
// NullCache, as does the "none" backend.
func (c *Config) OpenCache(ctx context.Context, disabled bool) (cache.Cache, error) {
	if disabled {
		return cache.NewNullCache(), nil
	}
	switch c.Cache.Backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendRedis:
		rc, err := cache.NewRedisCache(ctx, c.Cache.RedisAddr)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "connect to redis at %s", c.Cache.RedisAddr)
		}
		return rc, nil
	default:
		dir, err := c.CacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open file cache")
		}
		return fc, nil
	}
}
