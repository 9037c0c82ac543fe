package elk

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Geometry
// =============================================================================

// Point is a coordinate in some container's local frame.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Shape holds the fields shared by nodes, ports and labels. Absent geometry
// decodes to zero, which is also how it renders.
type Shape struct {
	ID         string         `json:"id,omitempty" yaml:"id,omitempty"`
	X          float64        `json:"x,omitempty" yaml:"x,omitempty"`
	Y          float64        `json:"y,omitempty" yaml:"y,omitempty"`
	Width      float64        `json:"width,omitempty" yaml:"width,omitempty"`
	Height     float64        `json:"height,omitempty" yaml:"height,omitempty"`
	Style      string         `json:"style,omitempty" yaml:"style,omitempty"`
	Class      ClassList      `json:"class,omitempty" yaml:"class,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// =============================================================================
// Graph Elements
// =============================================================================

// Node is a graph node. A node with children is a container and defines a
// nested coordinate frame whose origin is the node's (X, Y).
type Node struct {
	Shape `yaml:",inline"`

	Children []Node  `json:"children,omitempty" yaml:"children,omitempty"`
	Ports    []Port  `json:"ports,omitempty" yaml:"ports,omitempty"`
	Labels   []Label `json:"labels,omitempty" yaml:"labels,omitempty"`
	Edges    []Edge  `json:"edges,omitempty" yaml:"edges,omitempty"`

	// Properties is the KLay spelling of layout options, LayoutOptions the
	// ELK one. Both are consulted by Option.
	Properties    LayoutOptions `json:"properties,omitempty" yaml:"properties,omitempty"`
	LayoutOptions LayoutOptions `json:"layoutOptions,omitempty" yaml:"layoutOptions,omitempty"`
}

// IsContainer reports whether n has at least one child.
func (n *Node) IsContainer() bool { return len(n.Children) > 0 }

// Option looks up a known layout option on the node, preferring
// LayoutOptions over Properties.
func (n *Node) Option(opt Option) (string, bool) {
	if v, ok := n.LayoutOptions.Lookup(opt); ok {
		return v, true
	}
	return n.Properties.Lookup(opt)
}

// Port is a connection point attached to exactly one node, positioned in
// that node's local frame.
type Port struct {
	Shape `yaml:",inline"`

	Labels     []Label       `json:"labels,omitempty" yaml:"labels,omitempty"`
	Properties LayoutOptions `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Label is a piece of text attached to a node, port or edge.
type Label struct {
	Shape `yaml:",inline"`

	Text string `json:"text" yaml:"text"`
}

// Section is one routed segment of an edge in the ELK format.
type Section struct {
	ID         string  `json:"id,omitempty" yaml:"id,omitempty"`
	StartPoint *Point  `json:"startPoint,omitempty" yaml:"startPoint,omitempty"`
	BendPoints []Point `json:"bendPoints,omitempty" yaml:"bendPoints,omitempty"`
	EndPoint   *Point  `json:"endPoint,omitempty" yaml:"endPoint,omitempty"`
}

// Edge connects two nodes. Its points are expressed in the frame of the
// container that owns it; which container that is gets derived at render
// time, it is not stored on the edge.
type Edge struct {
	ID         string         `json:"id,omitempty" yaml:"id,omitempty"`
	Source     string         `json:"source,omitempty" yaml:"source,omitempty"`
	SourcePort string         `json:"sourcePort,omitempty" yaml:"sourcePort,omitempty"`
	Target     string         `json:"target,omitempty" yaml:"target,omitempty"`
	TargetPort string         `json:"targetPort,omitempty" yaml:"targetPort,omitempty"`
	Sources    []string       `json:"sources,omitempty" yaml:"sources,omitempty"`
	Targets    []string       `json:"targets,omitempty" yaml:"targets,omitempty"`
	Style      string         `json:"style,omitempty" yaml:"style,omitempty"`
	Class      ClassList      `json:"class,omitempty" yaml:"class,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Labels     []Label        `json:"labels,omitempty" yaml:"labels,omitempty"`

	SourcePoint *Point    `json:"sourcePoint,omitempty" yaml:"sourcePoint,omitempty"`
	BendPoints  []Point   `json:"bendPoints,omitempty" yaml:"bendPoints,omitempty"`
	TargetPoint *Point    `json:"targetPoint,omitempty" yaml:"targetPoint,omitempty"`
	Sections    []Section `json:"sections,omitempty" yaml:"sections,omitempty"`
}

// SourceID returns the declared source, falling back to the first entry of
// the ELK extended Sources list.
func (e *Edge) SourceID() string {
	if e.Source != "" || len(e.Sources) == 0 {
		return e.Source
	}
	return e.Sources[0]
}

// TargetID returns the declared target, falling back to the first entry of
// the ELK extended Targets list.
func (e *Edge) TargetID() string {
	if e.Target != "" || len(e.Targets) == 0 {
		return e.Target
	}
	return e.Targets[0]
}

// Points returns the full ordered point list of the edge: source point, bend
// points, target point. Edges that only carry ELK sections contribute the
// concatenated section points instead.
func (e *Edge) Points() []Point {
	if e.SourcePoint == nil && e.TargetPoint == nil && len(e.BendPoints) == 0 {
		var pts []Point
		for _, s := range e.Sections {
			if s.StartPoint != nil {
				pts = append(pts, *s.StartPoint)
			}
			pts = append(pts, s.BendPoints...)
			if s.EndPoint != nil {
				pts = append(pts, *s.EndPoint)
			}
		}
		return pts
	}

	pts := make([]Point, 0, len(e.BendPoints)+2)
	if e.SourcePoint != nil {
		pts = append(pts, *e.SourcePoint)
	}
	pts = append(pts, e.BendPoints...)
	if e.TargetPoint != nil {
		pts = append(pts, *e.TargetPoint)
	}
	return pts
}

// =============================================================================
// Document
// =============================================================================

// Document is a laid-out graph ready for rendering: the root node plus
// document-level overrides for the stylesheet and definitions.
type Document struct {
	Node `yaml:",inline"`

	CSS  string `json:"css,omitempty" yaml:"css,omitempty"`
	Defs string `json:"defs,omitempty" yaml:"defs,omitempty"`
}

// Root returns the document's root node.
func (d *Document) Root() *Node { return &d.Node }

// Stats counts nodes (root excluded) and declared edges in the document.
func (d *Document) Stats() (nodes, edges int) {
	var walk func(n *Node)
	walk = func(n *Node) {
		edges += len(n.Edges)
		for i := range n.Children {
			nodes++
			walk(&n.Children[i])
		}
	}
	walk(&d.Node)
	return nodes, edges
}

// =============================================================================
// ClassList
// =============================================================================

// ClassList holds CSS class names. The input may spell it as a single string
// or as an array of strings.
type ClassList []string

// UnmarshalJSON accepts a string, an array of strings, or null.
func (c *ClassList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*c = classesFrom(single)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("class must be a string or an array of strings: %w", err)
	}
	*c = many
	return nil
}

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (c *ClassList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*c = classesFrom(single)
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*c = many
		return nil
	default:
		return fmt.Errorf("line %d: class must be a string or a list of strings", value.Line)
	}
}

func classesFrom(s string) ClassList {
	if s == "" {
		return nil
	}
	return ClassList{s}
}
