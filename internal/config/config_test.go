package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/matzehuels/elksvg/pkg/cache"
	"github.com/matzehuels/elksvg/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() should validate: %v", err)
	}
	if cfg.Cache.Backend != BackendFile {
		t.Errorf("Cache.Backend = %q, want file", cfg.Cache.Backend)
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
format = "png"
scale = 3.0
styles = ["simple", "arrows"]
defs = ["arrow"]
edge_routing = "splines"

[layout_options]
"elk.direction" = "RIGHT"
"elk.edgeRouting" = "POLYLINE"

[cache]
backend = "redis"
redis_addr = "localhost:6379"
ttl = "2h"

[server]
addr = ":9000"
read_timeout = "5s"
`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if cfg.Format != "png" || cfg.Scale != 3 {
		t.Errorf("Format, Scale = %q, %v", cfg.Format, cfg.Scale)
	}
	if len(cfg.Styles) != 2 || cfg.Styles[1] != "arrows" {
		t.Errorf("Styles = %v", cfg.Styles)
	}
	if v, _ := cfg.LayoutOptions.EdgeRouting(); v != "POLYLINE" {
		t.Errorf("layout edge routing = %q", v)
	}
	if cfg.Cache.TTL != 2*time.Hour {
		t.Errorf("Cache.TTL = %v, want 2h", cfg.Cache.TTL)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Server = %+v", cfg.Server)
	}
	// Unset keys keep their defaults.
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("Server.WriteTimeout = %v, want default", cfg.Server.WriteTimeout)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"syntax", `styles = [`},
		{"unknown key", `colour = "red"`},
		{"unknown style", `styles = ["neon"]`},
		{"unknown def", `defs = ["star"]`},
		{"bad routing", `edge_routing = "CURVY"`},
		{"bad format", `format = "gif"`},
		{"negative scale", `scale = -1.0`},
		{"bad backend", "[cache]\nbackend = \"memcached\""},
		{"redis without addr", "[cache]\nbackend = \"redis\""},
		{"empty addr", "[server]\naddr = \"\""},
		{"zero body limit", "[server]\nmax_body_bytes = 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Parse() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "profile.toml", `styles = ["centerLabels"]`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q, want %q", cfg.Path, path)
	}
	if len(cfg.Styles) != 1 {
		t.Errorf("Styles = %v", cfg.Styles)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "env.toml", `format = "pdf"`)
	t.Setenv(EnvPath, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Format != "pdf" {
		t.Errorf("Format = %q, want pdf", cfg.Format)
	}
}

func TestLoadFallsBackToDefault(t *testing.T) {
	t.Setenv(EnvPath, "")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Path != "" {
		t.Errorf("Path = %q, want empty", cfg.Path)
	}
}

func TestPipelineOptions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "theme.css", "rect { fill: red; }")
	writeFile(t, dir, "defs.svg", `<marker id="dot"/>`)
	path := writeFile(t, dir, "elksvg.toml", `
styles = ["simple"]
stylesheet_file = "theme.css"
defs_file = "defs.svg"
edge_routing = "SPLINES"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		t.Fatalf("PipelineOptions() error: %v", err)
	}
	if opts.CSS != "rect { fill: red; }" {
		t.Errorf("CSS = %q", opts.CSS)
	}
	if opts.Defs != `<marker id="dot"/>` {
		t.Errorf("Defs = %q", opts.Defs)
	}
	if opts.EdgeRouting != "SPLINES" {
		t.Errorf("EdgeRouting = %q", opts.EdgeRouting)
	}

	cfg.StylesheetFile = "missing.css"
	if _, err := cfg.PipelineOptions(); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing stylesheet error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestResolvePath(t *testing.T) {
	cfg := &Config{Path: "/etc/elksvg/elksvg.toml"}
	if got := cfg.ResolvePath("theme.css"); got != "/etc/elksvg/theme.css" {
		t.Errorf("ResolvePath(relative) = %q", got)
	}
	if got := cfg.ResolvePath("/abs/theme.css"); got != "/abs/theme.css" {
		t.Errorf("ResolvePath(absolute) = %q", got)
	}
	if got := (&Config{}).ResolvePath("theme.css"); got != "theme.css" {
		t.Errorf("ResolvePath without profile = %q", got)
	}
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	cfg := Default()
	dir, err := cfg.CacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/tmp/xdg", AppName) {
		t.Errorf("CacheDir() = %q", dir)
	}

	cfg.Cache.Dir = "/var/cache/elk"
	if dir, _ := cfg.CacheDir(); dir != "/var/cache/elk" {
		t.Errorf("CacheDir() with override = %q", dir)
	}
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()

	cfg := Default()
	cfg.Cache.Dir = t.TempDir()
	c, err := cfg.OpenCache(ctx, false)
	if err != nil {
		t.Fatalf("OpenCache(file) error: %v", err)
	}
	if _, ok := c.(*cache.FileCache); !ok {
		t.Errorf("file backend gave %T", c)
	}

	c, _ = cfg.OpenCache(ctx, true)
	if _, ok := c.(cache.NullCache); !ok {
		t.Errorf("disabled cache gave %T", c)
	}

	cfg.Cache.Backend = BackendNone
	c, _ = cfg.OpenCache(ctx, false)
	if _, ok := c.(cache.NullCache); !ok {
		t.Errorf("none backend gave %T", c)
	}

	mr := miniredis.RunT(t)
	cfg.Cache.Backend = BackendRedis
	cfg.Cache.RedisAddr = mr.Addr()
	c, err = cfg.OpenCache(ctx, false)
	if err != nil {
		t.Fatalf("OpenCache(redis) error: %v", err)
	}
	defer c.Close()
	if _, ok := c.(*cache.RedisCache); !ok {
		t.Errorf("redis backend gave %T", c)
	}
}
