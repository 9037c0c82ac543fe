package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/elksvg/pkg/cache"
	"github.com/matzehuels/elksvg/pkg/elk"
	"github.com/matzehuels/elksvg/pkg/errors"
	"github.com/matzehuels/elksvg/pkg/observability"
	"github.com/matzehuels/elksvg/pkg/render"
)

const testDoc = `{
  "id": "root", "width": 200, "height": 100,
  "children": [
    {"id": "a", "x": 10, "y": 10, "width": 30, "height": 30},
    {"id": "b", "x": 150, "y": 10, "width": 30, "height": 30}
  ],
  "edges": [
    {"id": "e", "source": "a", "target": "b",
     "sourcePoint": {"x": 40, "y": 25},
     "bendPoints": [{"x": 80, "y": 25}, {"x": 110, "y": 25}],
     "targetPoint": {"x": 150, "y": 25}}
  ]
}`

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"json", true},
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateStyles(t *testing.T) {
	tests := []struct {
		styles  []string
		wantErr bool
	}{
		{nil, false},
		{[]string{"simple"}, false},
		{[]string{"simple", "arrows", "centerLabels"}, false},
		{[]string{"handdrawn"}, true},
		{[]string{"simple", ""}, true},
	}

	for _, tt := range tests {
		err := ValidateStyles(tt.styles)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateStyles(%v) error = %v, wantErr %v", tt.styles, err, tt.wantErr)
		}
	}
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	opts := Options{}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error: %v", err)
	}
	if opts.Format != DefaultFormat {
		t.Errorf("Format should be %s, got %s", DefaultFormat, opts.Format)
	}
	if opts.Scale != DefaultScale {
		t.Errorf("Scale should be %v, got %v", DefaultScale, opts.Scale)
	}
	if opts.InputFormat != elk.InputJSON {
		t.Errorf("InputFormat should be json, got %s", opts.InputFormat)
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discard logger")
	}

	// Second call should be idempotent
	opts.Format = "bogus"
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Errorf("Second validation should be a no-op: %v", err)
	}

	bad := Options{InputFormat: "toml"}
	if err := bad.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown input format error = %v, want INVALID_INPUT", err)
	}
}

func TestOptionsRenderConfig(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantCSS   string
		wantDefs  string
		wantMode  render.RoutingMode
		wantRoute bool
	}{
		{
			name:     "defaults",
			opts:     Options{},
			wantCSS:  "rect.port",
			wantDefs: `<marker id="arrow"`,
		},
		{
			name:    "named styles",
			opts:    Options{Styles: []string{"centerLabels"}},
			wantCSS: "text.center",
		},
		{
			name:     "css beats named styles",
			opts:     Options{Styles: []string{"centerLabels"}, CSS: "custom {}", Defs: "<custom/>"},
			wantCSS:  "custom {}",
			wantDefs: "<custom/>",
		},
		{
			name:      "layout options seed routing",
			opts:      Options{LayoutOptions: elk.LayoutOptions{"elk.edgeRouting": "SPLINES"}},
			wantMode:  render.Smooth,
			wantRoute: true,
		},
		{
			name: "explicit routing beats layout options",
			opts: Options{
				LayoutOptions: elk.LayoutOptions{"elk.edgeRouting": "SPLINES"},
				EdgeRouting:   "POLYLINE",
			},
			wantMode:  render.Straight,
			wantRoute: true,
		},
		{
			name: "unknown routing token defers to layout options",
			opts: Options{
				LayoutOptions: elk.LayoutOptions{"elk.edgeRouting": "SPLINES"},
				EdgeRouting:   "bogus",
			},
			wantMode:  render.Smooth,
			wantRoute: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.opts.RenderConfig()
			if err != nil {
				t.Fatalf("RenderConfig() error: %v", err)
			}
			if !strings.Contains(cfg.Stylesheet(), tt.wantCSS) {
				t.Errorf("Stylesheet() = %q, want it to contain %q", cfg.Stylesheet(), tt.wantCSS)
			}
			if !strings.Contains(cfg.Defs(), tt.wantDefs) {
				t.Errorf("Defs() = %q, want it to contain %q", cfg.Defs(), tt.wantDefs)
			}
			mode, ok := cfg.Routing()
			if mode != tt.wantMode || ok != tt.wantRoute {
				t.Errorf("Routing() = %v, %v; want %v, %v", mode, ok, tt.wantMode, tt.wantRoute)
			}
		})
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	keyer := cache.NewDefaultKeyer()
	key := func(o Options) string {
		if err := o.ValidateAndSetDefaults(); err != nil {
			t.Fatal(err)
		}
		return keyer.ArtifactKey("doc", o.ArtifactKeyOpts())
	}

	base := key(Options{})
	variants := map[string]Options{
		"format":  {Format: "pdf"},
		"styles":  {Styles: []string{"arrows"}},
		"css":     {CSS: "x {}"},
		"defs":    {Defs: "<g/>"},
		"routing": {EdgeRouting: "SPLINES"},
		"options": {LayoutOptions: elk.LayoutOptions{"edgeRouting": "SPLINES"}},
	}
	for name, o := range variants {
		if key(o) == base {
			t.Errorf("%s should change the artifact key", name)
		}
	}

	if key(Options{Scale: 3}) != base {
		t.Error("scale should not affect SVG keys")
	}
	if key(Options{Format: "png", Scale: 1}) == key(Options{Format: "png", Scale: 3}) {
		t.Error("scale should affect PNG keys")
	}
}

func TestArtifactKeyFollowsEffectiveRouting(t *testing.T) {
	keyer := cache.NewDefaultKeyer()
	key := func(o Options) string {
		if err := o.ValidateAndSetDefaults(); err != nil {
			t.Fatal(err)
		}
		return keyer.ArtifactKey("doc", o.ArtifactKeyOpts())
	}
	splines := elk.LayoutOptions{"elk.edgeRouting": "SPLINES"}
	polyline := elk.LayoutOptions{"elk.edgeRouting": "POLYLINE"}

	tests := []struct {
		name string
		a, b Options
		same bool
	}{
		{"unknown token falls back to layout options", Options{EdgeRouting: "bogus", LayoutOptions: splines}, Options{EdgeRouting: "bogus", LayoutOptions: polyline}, false},
		{"unknown token equals unset", Options{EdgeRouting: "bogus", LayoutOptions: splines}, Options{LayoutOptions: splines}, true},
		{"token case", Options{EdgeRouting: "splines"}, Options{EdgeRouting: "SPLINES"}, true},
		{"explicit token beats layout options", Options{EdgeRouting: "POLYLINE", LayoutOptions: splines}, Options{LayoutOptions: polyline}, true},
		{"orthogonal is straight", Options{EdgeRouting: "ORTHOGONAL"}, Options{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := key(tt.a) == key(tt.b); got != tt.same {
				t.Errorf("same key = %v, want %v", got, tt.same)
			}
		})
	}
}

func TestRunnerRenderUnknownRoutingToken(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, nil)
	defer runner.Close()

	smooth, err := runner.Render(ctx, []byte(testDoc), Options{
		EdgeRouting:   "bogus",
		LayoutOptions: elk.LayoutOptions{"elk.edgeRouting": "SPLINES"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(smooth.Artifact), "<path d=") {
		t.Fatalf("SPLINES render has no path:\n%s", smooth.Artifact)
	}

	straight, err := runner.Render(ctx, []byte(testDoc), Options{
		EdgeRouting:   "bogus",
		LayoutOptions: elk.LayoutOptions{"elk.edgeRouting": "POLYLINE"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if straight.CacheHit {
		t.Error("POLYLINE render was served from the SPLINES cache entry")
	}
	if !strings.Contains(string(straight.Artifact), "<polyline points=") {
		t.Errorf("POLYLINE render has no polyline:\n%s", straight.Artifact)
	}
}

func TestRunnerRenderCaches(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, nil)
	defer runner.Close()

	first, err := runner.Render(ctx, []byte(testDoc), Options{})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if first.CacheHit {
		t.Error("first render should miss the cache")
	}
	if !strings.HasPrefix(string(first.Artifact), "<svg") {
		t.Errorf("artifact is not SVG: %q", first.Artifact)
	}
	if first.Stats.NodeCount != 2 || first.Stats.EdgeCount != 1 {
		t.Errorf("Stats = %+v, want 2 nodes 1 edge", first.Stats)
	}
	if len(first.DocumentHash) != 64 {
		t.Errorf("DocumentHash = %q", first.DocumentHash)
	}

	second, err := runner.Render(ctx, []byte(testDoc), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit {
		t.Error("second render should hit the cache")
	}
	if string(second.Artifact) != string(first.Artifact) {
		t.Error("cached artifact differs from rendered one")
	}

	refreshed, err := runner.Render(ctx, []byte(testDoc), Options{Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.CacheHit {
		t.Error("refresh should bypass the cache")
	}

	smooth, err := runner.Render(ctx, []byte(testDoc), Options{EdgeRouting: "SPLINES"})
	if err != nil {
		t.Fatal(err)
	}
	if smooth.CacheHit {
		t.Error("different routing should not share a cache entry")
	}
	if !strings.Contains(string(smooth.Artifact), `<path d="M40 25 C80 25 110 25 150 25"`) {
		t.Errorf("smooth artifact missing path:\n%s", smooth.Artifact)
	}
}

func TestRunnerRenderYAML(t *testing.T) {
	input := `
id: root
children:
  - {id: a, width: 10, height: 10}
`
	runner := NewRunner(nil, nil, nil)
	res, err := runner.Render(context.Background(), []byte(input), Options{InputFormat: elk.InputYAML})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(string(res.Artifact), `<rect id="a" class="node" x="0" y="0" width="10" height="10"/>`) {
		t.Errorf("unexpected artifact:\n%s", res.Artifact)
	}
}

func TestRunnerRenderErrors(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
		opts  Options
		code  errors.Code
	}{
		{"bad json", `{`, Options{}, errors.ErrCodeInvalidInput},
		{"malformed graph", `{"id": "r", "edges": [{"id": "e", "source": "x", "target": "y"}]}`, Options{}, errors.ErrCodeMalformedGraph},
		{"bad format", testDoc, Options{Format: "gif"}, errors.ErrCodeInvalidFormat},
		{"bad style", testDoc, Options{Styles: []string{"neon"}}, errors.ErrCodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runner.Render(ctx, []byte(tt.input), tt.opts)
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestRunnerRenderDocument(t *testing.T) {
	doc, err := elk.ParseDocument([]byte(testDoc), elk.InputJSON)
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(nil, nil, nil)
	out, err := runner.RenderDocument(context.Background(), doc, Options{})
	if err != nil {
		t.Fatalf("RenderDocument() error: %v", err)
	}
	if !strings.Contains(string(out), `id="e"`) {
		t.Errorf("edge missing from output:\n%s", out)
	}
	if _, err := runner.RenderDocument(context.Background(), nil, Options{}); err == nil {
		t.Error("nil document should fail")
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	observability.NoopCacheHooks

	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) record(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) OnDecodeComplete(_ context.Context, format string, _ observability.DocumentStats, _ time.Duration, _ error) {
	h.record("decode:" + format)
}

func (h *recordingHooks) OnRenderComplete(_ context.Context, format string, s observability.DocumentStats, _ time.Duration, _ error) {
	h.record("render:" + format)
}

func (h *recordingHooks) OnCacheHit(context.Context, string)      { h.record("hit") }
func (h *recordingHooks) OnCacheMiss(context.Context, string)     { h.record("miss") }
func (h *recordingHooks) OnCacheSet(context.Context, string, int) { h.record("set") }

func TestRunnerEmitsHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, nil)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := runner.Render(ctx, []byte(testDoc), Options{}); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"decode:json", "miss", "render:svg", "set", "decode:json", "hit"}
	if strings.Join(hooks.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", hooks.events, want)
	}
}
