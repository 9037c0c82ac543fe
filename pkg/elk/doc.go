// Package elk defines the laid-out graph model consumed by the renderer.
//
// # Overview
//
// The types mirror the JSON graph format produced by the ELK and KLay layout
// engines: a tree of [Node] values, each carrying [Port], [Label] and [Edge]
// lists, with every position already computed. Nothing in this package does
// layout; it only describes and decodes the result.
//
// # Coordinate Frames
//
// A node with children is a container. Its children, ports and labels are
// positioned relative to the container's (x, y). Edge points are relative to
// whichever container owns the edge; ownership is not part of the input and
// is resolved by [github.com/matzehuels/elksvg/pkg/render].
//
// # Decoding
//
// Documents can be read as JSON or YAML:
//
//	doc, err := elk.ReadDocumentFile("graph.json")
//	doc, err := elk.ParseDocument(data, elk.InputYAML)
//
// The class field accepts either a string or an array of strings, as both
// spellings occur in the wild.
//
// # Layout Options
//
// Option maps ([LayoutOptions]) are looked up through a closed table of known
// options ([Option]) and the keys each one may appear under, so KLay's
// "de.cau.cs.kieler.edgeRouting" and ELK's "org.eclipse.elk.edgeRouting"
// resolve to the same [OptionEdgeRouting].
package elk
