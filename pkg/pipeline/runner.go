package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/elksvg/pkg/cache"
	"github.com/matzehuels/elksvg/pkg/elk"
	"github.com/matzehuels/elksvg/pkg/observability"
)

const keyTypeArtifact = "artifact"

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL is how long artifacts stay cached; zero means cache.TTLArtifact.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Render runs decode → render → convert on input with caching.
//
// The input is always decoded, so malformed documents fail even when an
// artifact for identical bytes is cached. Cache read failures are logged and
// treated as misses; write failures are retried for remote backends and then
// logged. Neither fails the render.
func (r *Runner) Render(ctx context.Context, input []byte, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := r.Logger.With("render", uuid.NewString()[:8])

	result := &Result{
		DocumentHash: cache.Hash(input),
		Format:       opts.Format,
	}

	// Stage 1: Decode
	start := time.Now()
	doc, err := Decode(ctx, input, opts)
	if err != nil {
		return nil, err
	}
	result.Document = doc
	result.Stats.DecodeTime = time.Since(start)
	result.Stats.NodeCount, result.Stats.EdgeCount = doc.Stats()

	logger.Debug("decoded document",
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"duration", result.Stats.DecodeTime)

	// Stage 2: Cache lookup
	key := r.Keyer.ArtifactKey(result.DocumentHash, opts.ArtifactKeyOpts())
	if !opts.Refresh {
		if data, hit := r.lookup(ctx, logger, key); hit {
			result.Artifact = data
			result.CacheHit = true
			logger.Info("served from cache", "format", opts.Format, "bytes", len(data))
			return result, nil
		}
	}

	// Stage 3: Render and convert
	artifact, times, err := renderTimed(ctx, doc, opts)
	if err != nil {
		return nil, err
	}
	result.Artifact = artifact
	result.Stats.RenderTime = times.render
	result.Stats.ConvertTime = times.convert

	logger.Info("rendered document",
		"format", opts.Format,
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"bytes", len(artifact),
		"duration", result.Stats.RenderTime+result.Stats.ConvertTime)

	r.store(ctx, logger, key, artifact)
	return result, nil
}

// RenderDocument renders an already decoded document without caching.
func (r *Runner) RenderDocument(ctx context.Context, doc *elk.Document, opts Options) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("render: nil document")
	}
	return Render(ctx, doc, opts)
}

func (r *Runner) lookup(ctx context.Context, logger *log.Logger, key string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		logger.Warn("cache read failed", "error", err)
		return nil, false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, keyTypeArtifact)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, keyTypeArtifact)
	return data, true
}

func (r *Runner) store(ctx context.Context, logger *log.Logger, key string, data []byte) {
	ttl := r.TTL
	if ttl == 0 {
		ttl = cache.TTLArtifact
	}
	err := cache.RetryWithBackoff(ctx, func() error {
		return r.Cache.Set(ctx, key, data, ttl)
	})
	if err != nil {
		logger.Warn("cache write failed", "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyTypeArtifact, len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
