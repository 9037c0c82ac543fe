// Package pipeline provides the decode → render → convert pipeline for elksvg.
//
// This package implements the complete pipeline that is used by the CLI
// (render, watch) and the HTTP service. By centralizing this logic, we ensure
// consistent behavior across all entry points and avoid code duplication.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Decode: Parse the laid-out ELK/KLay document (JSON or YAML)
//  2. Render: Resolve edge ownership and emit SVG (see pkg/render)
//  3. Convert: Optionally turn the SVG into PDF or PNG
//
// Rendered artifacts are cached, keyed on the input's content hash and every
// option that changes the output bytes.
//
// # Usage
//
// Create a Runner and render:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Format: "svg",
//	    Styles: []string{"simple", "arrows"},
//	}
//	result, err := runner.Render(ctx, input, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifact
package pipeline

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/elksvg/pkg/cache"
	"github.com/matzehuels/elksvg/pkg/elk"
	"github.com/matzehuels/elksvg/pkg/errors"
	"github.com/matzehuels/elksvg/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultFormat is the default output format.
	DefaultFormat = render.FormatSVG

	// DefaultScale is the PNG scale factor.
	DefaultScale = 2.0
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	render.FormatSVG: true,
	render.FormatPNG: true,
	render.FormatPDF: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Decode options
	InputFormat elk.InputFormat `json:"input_format,omitempty"`

	// Render options
	Format        string            `json:"format,omitempty"`
	Styles        []string          `json:"styles,omitempty"`
	CSS           string            `json:"css,omitempty"`  // Replaces Styles when set
	Defs          string            `json:"defs,omitempty"` // Replaces the default definitions when set
	DefNames      []string          `json:"def_names,omitempty"`
	LayoutOptions elk.LayoutOptions `json:"layout_options,omitempty"`
	EdgeRouting   string            `json:"edge_routing,omitempty"` // Overrides LayoutOptions
	Scale         float64           `json:"scale,omitempty"`
	Refresh       bool              `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Document is the decoded input.
	Document *elk.Document

	// DocumentHash is the content hash of the raw input.
	DocumentHash string

	// Format is the format of Artifact.
	Format string

	// Artifact is the rendered output.
	Artifact []byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheHit reports whether Artifact came from the cache.
	CacheHit bool
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount   int
	EdgeCount   int
	DecodeTime  time.Duration
	RenderTime  time.Duration
	ConvertTime time.Duration
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	return errors.ValidateFormat(format)
}

// ValidateStyles checks that every named stylesheet fragment exists.
func ValidateStyles(names []string) error {
	available := render.StyleNames()
	for _, name := range names {
		if !slices.Contains(available, name) {
			return errors.New(errors.ErrCodeInvalidConfig,
				"invalid style: %q (must be one of: %s)", name, strings.Join(available, ", "))
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.InputFormat == "" {
		o.InputFormat = elk.InputJSON
	}
	if o.InputFormat != elk.InputJSON && o.InputFormat != elk.InputYAML {
		return errors.New(errors.ErrCodeInvalidInput, "invalid input format: %q (must be json or yaml)", o.InputFormat)
	}
	if err := ValidateFormat(o.Format); err != nil {
		return err
	}
	if err := ValidateStyles(o.Styles); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// RenderConfig builds the renderer configuration these options describe.
func (o *Options) RenderConfig() (render.Config, error) {
	b := render.NewBuilder()
	switch {
	case o.CSS != "":
		b.Styles(o.CSS)
	case len(o.Styles) > 0:
		b.NamedStyles(o.Styles...)
	}
	switch {
	case o.Defs != "":
		b.Defs(o.Defs)
	case len(o.DefNames) > 0:
		b.NamedDefs(o.DefNames...)
	}
	if mode, ok := o.routingMode(); ok {
		b.Routing(mode)
	}
	return b.Build()
}

// routingMode resolves the global routing for both RenderConfig and the
// cache key: a recognized EdgeRouting token wins over the layout options,
// and unrecognized tokens count as unset.
func (o *Options) routingMode() (render.RoutingMode, bool) {
	if mode, ok := render.ParseRoutingMode(o.EdgeRouting); ok {
		return mode, true
	}
	if token, ok := o.LayoutOptions.EdgeRouting(); ok {
		return render.ParseRoutingMode(token)
	}
	return render.Straight, false
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts() cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{
		Format: o.Format,
		Styles: o.Styles,
	}
	if o.CSS != "" {
		opts.CSSHash = cache.Hash([]byte(o.CSS))
	}
	switch {
	case o.Defs != "":
		opts.DefsHash = cache.Hash([]byte(o.Defs))
	case len(o.DefNames) > 0:
		opts.DefsHash = "names:" + strings.Join(o.DefNames, ",")
	}
	// Unset renders the same as straight.
	mode, _ := o.routingMode()
	opts.EdgeRouting = mode.String()
	if o.Format == render.FormatPNG {
		opts.Scale = o.Scale
	}
	return opts
}
