package render

import (
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/elksvg/pkg/errors"
)

// Stylesheet fragment names.
const (
	StyleSimple       = "simple"
	StyleArrows       = "arrows"
	StyleCenterLabels = "centerLabels"
)

// DefArrow is the name of the arrow-head marker definition that the arrows
// stylesheet refers to.
const DefArrow = "arrow"

var (
	defaultStyles = []string{StyleSimple}
	defaultDefs   = []string{DefArrow}
)

var styleFragments = map[string]string{
	StyleSimple: `rect {
  opacity: 0.8;
  fill: #6094CC;
  stroke-width: 1;
  stroke: #222222;
}
rect.port {
  opacity: 1;
  fill: #326CB2;
}
text {
  font-size: 10px;
  font-family: Sans-Serif;
  alignment-baseline: baseline;
  text-anchor: start;
}
g.port > text {
  font-size: 8px;
}
polyline {
  fill: none;
  stroke: black;
  stroke-width: 1;
}
path {
  fill: none;
  stroke: black;
  stroke-width: 1;
}`,

	StyleArrows: `polyline {
  marker-end: url(#arrow);
}
path {
  marker-end: url(#arrow);
}`,

	StyleCenterLabels: `text.center {
  alignment-baseline: middle;
  text-anchor: middle;
}`,
}

var defFragments = map[string]string{
	DefArrow: `<marker id="arrow" markerWidth="10" markerHeight="8" refX="10" refY="4" orient="auto" markerUnits="strokeWidth">
<path d="M0,0 L10,4 L0,8 z" fill="black"/>
</marker>`,
}

// Stylesheet joins the named stylesheet fragments in the given order.
// With no names it returns the default stylesheet.
func Stylesheet(names ...string) (string, error) {
	if len(names) == 0 {
		names = defaultStyles
	}
	return joinFragments("stylesheet", styleFragments, names)
}

// Definitions joins the named definition fragments in the given order.
// With no names it returns the default definitions.
func Definitions(names ...string) (string, error) {
	if len(names) == 0 {
		names = defaultDefs
	}
	return joinFragments("definition", defFragments, names)
}

// StyleNames lists the available stylesheet fragments.
func StyleNames() []string { return slices.Sorted(maps.Keys(styleFragments)) }

// DefNames lists the available definition fragments.
func DefNames() []string { return slices.Sorted(maps.Keys(defFragments)) }

func joinFragments(kind string, fragments map[string]string, names []string) (string, error) {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		f, ok := fragments[name]
		if !ok {
			return "", errors.New(errors.ErrCodeInvalidConfig,
				"unknown %s %q (available: %s)", kind, name, strings.Join(slices.Sorted(maps.Keys(fragments)), ", "))
		}
		parts = append(parts, f)
	}
	return strings.Join(parts, "\n"), nil
}
