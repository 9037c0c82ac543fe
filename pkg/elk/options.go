package elk

import (
	"fmt"
	"strings"
)

// LayoutOptions is the option map a layout engine attaches to a graph
// element, keyed by the engine's fully qualified option id.
type LayoutOptions map[string]any

// Option enumerates the layout options this renderer understands.
type Option int

const (
	// OptionEdgeRouting is the edge routing strategy
	// (POLYLINE, ORTHOGONAL, SPLINES).
	OptionEdgeRouting Option = iota
)

// String returns the canonical ELK id of the option.
func (o Option) String() string {
	if keys, ok := optionKeys[o]; ok {
		return keys[0]
	}
	return fmt.Sprintf("Option(%d)", int(o))
}

// optionKeys is the closed table of spellings each option may appear under.
// KLay and ELK use different namespaces for the same option; the short form
// is what hand-written documents tend to use.
var optionKeys = map[Option][]string{
	OptionEdgeRouting: {
		"org.eclipse.elk.edgeRouting",
		"elk.edgeRouting",
		"de.cau.cs.kieler.edgeRouting",
		"edgeRouting",
	},
}

// Keys returns every key under which opt is recognized.
func (o Option) Keys() []string {
	return append([]string(nil), optionKeys[o]...)
}

// Lookup returns the value of opt as a string. Keys are tried in table
// order; non-string and empty values count as absent.
func (lo LayoutOptions) Lookup(opt Option) (string, bool) {
	if lo == nil {
		return "", false
	}
	for _, key := range optionKeys[opt] {
		v, ok := lo[key]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, true
		}
	}
	return "", false
}

// EdgeRouting returns the edge routing token, if any.
func (lo LayoutOptions) EdgeRouting() (string, bool) {
	return lo.Lookup(OptionEdgeRouting)
}
