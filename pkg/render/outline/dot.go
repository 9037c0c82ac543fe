package outline

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/elksvg/pkg/elk"
	"github.com/matzehuels/elksvg/pkg/render"
)

// Options configures outline generation.
type Options struct {
	// Detailed adds geometry to node labels and the owning container to
	// edge labels. When false, only ids are shown.
	Detailed bool
}

// ToDOT converts a document to Graphviz DOT source. Containers become
// clusters holding their children; every edge is drawn between the nodes its
// endpoints resolve to, so port endpoints collapse onto their node.
//
// The document must be well formed; containment and ownership errors are
// returned unchanged.
func ToDOT(doc *elk.Document, opts Options) (string, error) {
	root := doc.Root()
	idx, err := render.IndexContainment(root)
	if err != nil {
		return "", err
	}
	own, err := render.ResolveOwnership(root, idx)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  compound=true;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	if root.ID != "" {
		fmt.Fprintf(&buf, "  label=%q;\n", root.ID)
	}
	buf.WriteString("\n")

	for i := range root.Children {
		writeNode(&buf, &root.Children[i], opts, "  ")
	}

	buf.WriteString("\n")
	for _, id := range idx.IDs() {
		edges, err := own.Edges(id)
		if err != nil {
			return "", err
		}
		for _, e := range edges {
			writeEdge(&buf, e, id, idx, opts)
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func writeNode(buf *bytes.Buffer, n *elk.Node, opts Options, indent string) {
	label := fmtLabel(n, opts.Detailed)
	if !n.IsContainer() {
		fmt.Fprintf(buf, "%s%q [label=%q];\n", indent, n.ID, label)
		return
	}

	fmt.Fprintf(buf, "%ssubgraph %q {\n", indent, "cluster_"+n.ID)
	inner := indent + "  "
	fmt.Fprintf(buf, "%slabel=%q;\n", inner, label)
	fmt.Fprintf(buf, "%sstyle=\"rounded,dashed\";\n", inner)
	// Edges may end on the container itself, so it needs a node of its own.
	fmt.Fprintf(buf, "%s%q [label=%q, shape=plaintext, style=\"\"];\n", inner, n.ID, n.ID)
	for i := range n.Children {
		writeNode(buf, &n.Children[i], opts, inner)
	}
	fmt.Fprintf(buf, "%s}\n", indent)
}

func writeEdge(buf *bytes.Buffer, e *elk.Edge, owner string, idx *render.Containment, opts Options) {
	from, _ := idx.Resolve(e.SourceID())
	to, _ := idx.Resolve(e.TargetID())

	var attrs []string
	label := e.ID
	if opts.Detailed {
		label = strings.TrimSpace(e.ID + "\nowner: " + owner)
	}
	if label != "" {
		attrs = append(attrs, fmt.Sprintf("label=%q", label))
	}

	fmt.Fprintf(buf, "  %q -> %q", from, to)
	if len(attrs) > 0 {
		fmt.Fprintf(buf, " [%s]", strings.Join(attrs, ", "))
	}
	buf.WriteString(";\n")
}

func fmtLabel(n *elk.Node, detailed bool) string {
	if !detailed {
		return n.ID
	}
	return fmt.Sprintf("%s\n%s,%s %sx%s", n.ID,
		strconv.FormatFloat(n.X, 'f', -1, 64), strconv.FormatFloat(n.Y, 'f', -1, 64),
		strconv.FormatFloat(n.Width, 'f', -1, 64), strconv.FormatFloat(n.Height, 'f', -1, 64))
}

// RenderSVG lays out DOT source with Graphviz and returns SVG. The result
// can be converted further with [render.Export].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// Render builds the outline of doc and renders it in format (svg, pdf or
// png).
func Render(ctx context.Context, doc *elk.Document, opts Options, format string, scale float64) ([]byte, error) {
	dot, err := ToDOT(doc, opts)
	if err != nil {
		return nil, err
	}
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.Export(ctx, svg, format, scale)
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-based root element with a plain
// one sized in user units.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
