package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/elksvg/pkg/elk"
	"github.com/matzehuels/elksvg/pkg/observability"
	"github.com/matzehuels/elksvg/pkg/render"
)

// Decode parses the input document in opts.InputFormat.
func Decode(ctx context.Context, input []byte, opts Options) (*elk.Document, error) {
	start := time.Now()
	doc, err := elk.ParseDocument(input, opts.InputFormat)

	var stats observability.DocumentStats
	if doc != nil {
		stats.Nodes, stats.Edges = doc.Stats()
	}
	observability.Pipeline().OnDecodeComplete(ctx, string(opts.InputFormat), stats, time.Since(start), err)
	return doc, err
}

// Render renders doc to SVG and converts it to opts.Format.
// It bypasses the cache; see [Runner.Render] for the cached path.
func Render(ctx context.Context, doc *elk.Document, opts Options) ([]byte, error) {
	artifact, _, err := renderTimed(ctx, doc, opts)
	return artifact, err
}

type stageTimes struct {
	render  time.Duration
	convert time.Duration
}

func renderTimed(ctx context.Context, doc *elk.Document, opts Options) ([]byte, stageTimes, error) {
	var times stageTimes
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, times, err
	}
	cfg, err := opts.RenderConfig()
	if err != nil {
		return nil, times, err
	}

	var stats observability.DocumentStats
	stats.Nodes, stats.Edges = doc.Stats()
	hooks := observability.Pipeline()

	hooks.OnRenderStart(ctx, opts.Format)
	start := time.Now()
	svg, err := render.Render(doc, cfg)
	times.render = time.Since(start)
	hooks.OnRenderComplete(ctx, opts.Format, stats, times.render, err)
	if err != nil {
		return nil, times, err
	}

	if opts.Format == render.FormatSVG {
		return []byte(svg), times, nil
	}

	start = time.Now()
	out, err := render.Export(ctx, []byte(svg), opts.Format, opts.Scale)
	times.convert = time.Since(start)
	hooks.OnConvertComplete(ctx, opts.Format, len(out), times.convert, err)
	if err != nil {
		return nil, times, err
	}
	return out, times, nil
}
