// Package outline draws the structure of an ELK document as a Graphviz
// diagram.
//
// The outline ignores the document's coordinates. It shows which node
// contains which, and which edges connect them, laid out fresh by Graphviz.
// It is a debugging aid for layouts whose SVG rendering looks wrong: a
// missing edge or a misplaced child is easy to spot in the outline.
//
// # Usage
//
//	dot, err := outline.ToDOT(doc, outline.Options{Detailed: true})
//	svg, err := outline.RenderSVG(ctx, dot)
//
// [Render] does both steps and converts to PDF or PNG when asked.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package outline
