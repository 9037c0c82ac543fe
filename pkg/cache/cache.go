// Package cache stores rendered artifacts keyed by their inputs.
//
// # Overview
//
// Rendering is deterministic: the same document rendered with the same
// options always yields the same bytes. The pipeline exploits this by keying
// artifacts on a hash of the input document plus the render options, and
// caching the result in one of several backends:
//
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for the HTTP service
//   - [NullCache]: caching disabled
//
// # Keys
//
// Keys are produced by a [Keyer] so that deployments can namespace them
// ([ScopedKeyer]):
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.ArtifactKey(cache.Hash(input), cache.ArtifactKeyOpts{Format: "svg"})
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiry. Get reports a miss as
// (nil, false, nil); errors are reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// TTLArtifact is how long rendered SVG/PDF/PNG output stays cached unless
// the profile says otherwise.
const TTLArtifact = 7 * 24 * time.Hour

// ArtifactKeyOpts are the render options that change the output bytes.
type ArtifactKeyOpts struct {
	Format      string   `json:"format"`
	Styles      []string `json:"styles,omitempty"`
	CSSHash     string   `json:"css_hash,omitempty"`
	DefsHash    string   `json:"defs_hash,omitempty"`
	EdgeRouting string   `json:"edge_routing,omitempty"`
	Scale       float64  `json:"scale,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// ArtifactKey identifies a rendered artifact of the document whose
	// content hash is docHash.
	ArtifactKey(docHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key scheme.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ArtifactKey returns "artifact:<hash(docHash, opts)>".
func (DefaultKeyer) ArtifactKey(docHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", docHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = DefaultKeyer{}
