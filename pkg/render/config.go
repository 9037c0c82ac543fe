package render

import (
	"strings"

	"github.com/matzehuels/elksvg/pkg/elk"
)

// Config is the renderer configuration: default stylesheet, default
// definitions and the global routing mode. A Config is an immutable value and
// may be shared between concurrent renders. Build one with [NewBuilder].
//
// The zero Config renders with an empty stylesheet, no definitions and
// straight edges.
type Config struct {
	stylesheet string
	defs       string
	routing    RoutingMode
	hasRouting bool
}

// DefaultConfig returns the configuration used when nothing is customized:
// the simple stylesheet, the arrow definition and no global routing mode.
func DefaultConfig() Config {
	cfg, _ := NewBuilder().Build()
	return cfg
}

// Stylesheet returns the CSS used when a document carries none.
func (c Config) Stylesheet() string { return c.stylesheet }

// Defs returns the definitions markup used when a document carries none.
func (c Config) Defs() string { return c.defs }

// Routing returns the global routing mode, if one was set.
func (c Config) Routing() (RoutingMode, bool) { return c.routing, c.hasRouting }

// Builder assembles a [Config]. Builder methods record the first error and
// become no-ops afterwards; Build reports it.
//
//	cfg, err := render.NewBuilder().
//	    NamedStyles(render.StyleSimple, render.StyleArrows).
//	    UsedLayoutOptions(opts).
//	    Build()
type Builder struct {
	cfg Config
	err error
}

// NewBuilder starts from the default stylesheet and definitions.
func NewBuilder() *Builder {
	b := &Builder{}
	b.cfg.stylesheet, b.err = Stylesheet()
	if b.err == nil {
		b.cfg.defs, b.err = Definitions()
	}
	return b
}

// Styles replaces the stylesheet with the given CSS texts, joined by newlines.
func (b *Builder) Styles(css ...string) *Builder {
	if b.err == nil {
		b.cfg.stylesheet = strings.Join(css, "\n")
	}
	return b
}

// NamedStyles replaces the stylesheet with named fragments (see [Stylesheet]).
func (b *Builder) NamedStyles(names ...string) *Builder {
	if b.err == nil {
		b.cfg.stylesheet, b.err = Stylesheet(names...)
	}
	return b
}

// Defs replaces the definitions with the given markup, joined by newlines.
func (b *Builder) Defs(defs ...string) *Builder {
	if b.err == nil {
		b.cfg.defs = strings.Join(defs, "\n")
	}
	return b
}

// NamedDefs replaces the definitions with named fragments (see [Definitions]).
func (b *Builder) NamedDefs(names ...string) *Builder {
	if b.err == nil {
		b.cfg.defs, b.err = Definitions(names...)
	}
	return b
}

// UsedLayoutOptions records the options the layout engine ran with. Only the
// edge routing option is consulted; it seeds the global routing mode.
// Unrecognized routing values leave the mode unchanged.
func (b *Builder) UsedLayoutOptions(opts elk.LayoutOptions) *Builder {
	if b.err != nil {
		return b
	}
	if token, ok := opts.EdgeRouting(); ok {
		b.EdgeRouting(token)
	}
	return b
}

// EdgeRouting sets the global routing mode from a layout engine token such
// as SPLINES or POLYLINE. Unrecognized tokens are ignored.
func (b *Builder) EdgeRouting(token string) *Builder {
	if b.err != nil {
		return b
	}
	if mode, ok := ParseRoutingMode(token); ok {
		b.cfg.routing = mode
		b.cfg.hasRouting = true
	}
	return b
}

// Routing sets the global routing mode directly.
func (b *Builder) Routing(mode RoutingMode) *Builder {
	if b.err == nil {
		b.cfg.routing = mode
		b.cfg.hasRouting = true
	}
	return b
}

// Build returns a snapshot of the configuration. Later builder calls do not
// affect configs already built.
func (b *Builder) Build() (Config, error) {
	if b.err != nil {
		return Config{}, b.err
	}
	return b.cfg, nil
}
