package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/elksvg/pkg/elk"
)

// Default envelope size when the root carries none.
const (
	defaultWidth  = 100
	defaultHeight = 100
)

// Render converts a laid-out document to an SVG document.
//
// Containment, ownership and routing overrides are derived from doc on every
// call and discarded afterwards, so rendering the same document twice gives
// identical output. If the graph is malformed nothing is returned but the
// error.
func Render(doc *elk.Document, cfg Config) (string, error) {
	var buf bytes.Buffer
	if err := render(&buf, doc, cfg); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderTo renders doc like [Render] and writes the result to w. Nothing is
// written if the graph is malformed.
func RenderTo(w io.Writer, doc *elk.Document, cfg Config) error {
	var buf bytes.Buffer
	if err := render(&buf, doc, cfg); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func render(buf *bytes.Buffer, doc *elk.Document, cfg Config) error {
	root := doc.Root()
	idx, err := IndexContainment(root)
	if err != nil {
		return err
	}
	own, err := ResolveOwnership(root, idx)
	if err != nil {
		return err
	}
	r := svgRenderer{
		buf:     buf,
		own:     own,
		routing: NewRoutingResolver(CollectRoutingOverrides(root), cfg),
	}

	css, defs := cfg.Stylesheet(), cfg.Defs()
	if doc.CSS != "" {
		css = doc.CSS
	}
	if doc.Defs != "" {
		defs = doc.Defs
	}

	r.head(root)
	r.defs(css, defs)
	if err := r.graph(root); err != nil {
		return err
	}
	buf.WriteString("\n</svg>\n")
	return nil
}

type svgRenderer struct {
	buf     *bytes.Buffer
	own     Ownership
	routing RoutingResolver
}

// =============================================================================
// Envelope
// =============================================================================

func (r *svgRenderer) head(root *elk.Node) {
	w, h := root.Width, root.Height
	if w == 0 {
		w = defaultWidth
	}
	if h == 0 {
		h = defaultHeight
	}
	fmt.Fprintf(r.buf, `<svg version="1.1" xmlns="http://www.w3.org/2000/svg" width="%s" height="%s">`+"\n",
		formatNumber(w), formatNumber(h))
}

func (r *svgRenderer) defs(css, defs string) {
	r.buf.WriteString("<defs>\n")
	r.buf.WriteString("<style type=\"text/css\">\n<![CDATA[\n")
	r.buf.WriteString(css)
	r.buf.WriteString("\n]]>\n</style>\n")
	if defs != "" {
		r.buf.WriteString(defs)
		if defs[len(defs)-1] != '\n' {
			r.buf.WriteByte('\n')
		}
	}
	r.buf.WriteString("</defs>\n")
}

// =============================================================================
// Containers
// =============================================================================

// graph renders a container: its owned edges, its direct children as shapes,
// then its nested containers. Edges come first so that node shapes and ports
// paint over edge ends.
func (r *svgRenderer) graph(n *elk.Node) error {
	edges, err := r.own.Edges(n.ID)
	if err != nil {
		return err
	}
	r.openGroup("", n.X, n.Y)

	mode := r.routing.Mode(n.ID)
	for _, e := range edges {
		r.buf.WriteByte('\n')
		r.edge(e, mode)
	}
	for i := range n.Children {
		r.buf.WriteByte('\n')
		r.node(&n.Children[i])
	}
	for i := range n.Children {
		if !n.Children[i].IsContainer() {
			continue
		}
		r.buf.WriteByte('\n')
		if err := r.graph(&n.Children[i]); err != nil {
			return err
		}
	}

	r.buf.WriteString("\n</g>")
	return nil
}

func (r *svgRenderer) openGroup(class string, x, y float64) {
	r.buf.WriteString("<g")
	if class != "" {
		writeAttr(r.buf, "class", class)
	}
	fmt.Fprintf(r.buf, ` transform="translate(%s,%s)">`, formatNumber(x), formatNumber(y))
}

// =============================================================================
// Elements
// =============================================================================

func (r *svgRenderer) edge(e *elk.Edge, mode RoutingMode) {
	points := e.Points()
	if mode == Smooth {
		r.buf.WriteString("<path")
		writeAttr(r.buf, "d", SmoothPath(points))
	} else {
		r.buf.WriteString("<polyline")
		writeAttr(r.buf, "points", PolylinePoints(points))
	}
	writeIdentity(r.buf, e.ID, e.Class, "edge")
	writeStyle(r.buf, e.Style, e.Attributes)
	r.buf.WriteString("/>")

	for i := range e.Labels {
		r.buf.WriteByte('\n')
		r.label(&e.Labels[i])
	}
}

// node renders a child as a rect. Its ports and labels follow in a group
// translated to the node's origin, since they are positioned in its frame.
func (r *svgRenderer) node(n *elk.Node) {
	r.shape("rect", &n.Shape, "node")
	r.buf.WriteString("/>")
	if len(n.Ports) == 0 && len(n.Labels) == 0 {
		return
	}

	r.buf.WriteByte('\n')
	r.openGroup("", n.X, n.Y)
	for i := range n.Ports {
		r.buf.WriteByte('\n')
		r.port(&n.Ports[i])
	}
	for i := range n.Labels {
		r.buf.WriteByte('\n')
		r.label(&n.Labels[i])
	}
	r.buf.WriteString("\n</g>")
}

func (r *svgRenderer) port(p *elk.Port) {
	r.shape("rect", &p.Shape, "port")
	r.buf.WriteString("/>")
	if len(p.Labels) == 0 {
		return
	}

	r.buf.WriteByte('\n')
	r.openGroup("port", p.X, p.Y)
	for i := range p.Labels {
		r.buf.WriteByte('\n')
		r.label(&p.Labels[i])
	}
	r.buf.WriteString("\n</g>")
}

func (r *svgRenderer) label(l *elk.Label) {
	r.shape("text", &l.Shape, "")
	r.buf.WriteByte('>')
	r.buf.WriteString(html.EscapeString(l.Text))
	r.buf.WriteString("</text>")
}

// shape writes the opening tag of a positioned element, without closing it.
func (r *svgRenderer) shape(tag string, s *elk.Shape, role string) {
	r.buf.WriteString("<" + tag)
	writeIdentity(r.buf, s.ID, s.Class, role)
	writeAttr(r.buf, "x", formatNumber(s.X))
	writeAttr(r.buf, "y", formatNumber(s.Y))
	writeAttr(r.buf, "width", formatNumber(s.Width))
	writeAttr(r.buf, "height", formatNumber(s.Height))
	writeStyle(r.buf, s.Style, s.Attributes)
}

// =============================================================================
// Attributes
// =============================================================================

func writeAttr(buf *bytes.Buffer, key, value string) {
	fmt.Fprintf(buf, ` %s="%s"`, key, html.EscapeString(value))
}

// writeIdentity writes id and class. The class list is the element's own
// classes followed by its role, if any.
func writeIdentity(buf *bytes.Buffer, id string, class elk.ClassList, role string) {
	if id != "" {
		writeAttr(buf, "id", id)
	}
	classes := slices.Clone([]string(class))
	if role != "" {
		classes = append(classes, role)
	}
	if len(classes) > 0 {
		writeAttr(buf, "class", strings.Join(classes, " "))
	}
}

// writeStyle writes the style attribute and then the passthrough attributes
// in key order. Keys that are not valid attribute names are dropped.
func writeStyle(buf *bytes.Buffer, style string, attrs map[string]any) {
	if style != "" {
		writeAttr(buf, "style", style)
	}
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		if !isAttrName(k) {
			continue
		}
		writeAttr(buf, k, attrValue(attrs[k]))
	}
}

func attrValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return formatNumber(v)
	case float32:
		return formatNumber(float64(v))
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func isAttrName(k string) bool {
	if k == "" {
		return false
	}
	for i, c := range k {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == ':':
		case i > 0 && (c >= '0' && c <= '9' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}
