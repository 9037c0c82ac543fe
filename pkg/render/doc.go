// Package render turns a laid-out ELK/KLay graph into an SVG document.
//
// # Overview
//
// Rendering is pure geometry-to-markup translation. No layout happens here:
// every position, size and bend point comes from the input document. The
// package provides:
//
//   - The containment index ([IndexContainment])
//   - Edge ownership resolution ([ResolveOwnership])
//   - Routing mode resolution ([CollectRoutingOverrides], [RoutingResolver])
//   - Path data generation ([PolylinePoints], [SmoothPath])
//   - The SVG emitter ([Render], [RenderTo])
//   - Format conversion (SVG to PDF/PNG, [Export])
//
// # Edge Ownership
//
// Edge coordinates are local to some container, but the input does not say
// which. The rule: if the target lies below the source in the tree, the edge
// lives in the source's frame; otherwise it lives in the frame of the
// source's parent. Each container then draws the edges it owns inside its own
// translated group, before its child nodes, so that nodes paint over edge
// ends.
//
// # Routing
//
// Owned edges are drawn as polylines ([Straight]) or curved paths ([Smooth]).
// A container's own edge routing option wins over the global mode in
// [Config], which in turn wins over the Straight default.
//
// # Configuration
//
// [Config] is immutable and safe to share. Build it once and render many
// documents with it:
//
//	cfg, err := render.NewBuilder().
//	    NamedStyles(render.StyleSimple, render.StyleArrows).
//	    UsedLayoutOptions(elk.LayoutOptions{"elk.edgeRouting": "SPLINES"}).
//	    Build()
//	svg, err := render.Render(doc, cfg)
//
// A document's own css and defs fields replace the configured ones for that
// document only.
//
// # Errors
//
// Unknown edge endpoints, duplicate node ids and edges leaving the root all
// fail with MALFORMED_GRAPH (see [errors.IsMalformedGraph]); nothing is
// rendered for such a document. Unrecognized routing tokens are not errors.
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg).
//
//	pdf, err := render.ToPDF(ctx, []byte(svg))
//	png, err := render.ToPNG(ctx, []byte(svg), 2.0)  // 2x scale
//
// The [outline] subpackage draws the containment and ownership structure of
// a document with Graphviz, for debugging layouts.
//
// [errors.IsMalformedGraph]: github.com/matzehuels/elksvg/pkg/errors.IsMalformedGraph
// [outline]: github.com/matzehuels/elksvg/pkg/render/outline
package render
