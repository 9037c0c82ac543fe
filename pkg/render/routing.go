package render

import (
	"strings"

	"github.com/matzehuels/elksvg/pkg/elk"
)

// RoutingMode selects how an edge's points are drawn.
type RoutingMode int

const (
	// Straight draws connected straight segments (a polyline).
	Straight RoutingMode = iota
	// Smooth draws a path of quadratic and cubic curves.
	Smooth
)

func (m RoutingMode) String() string {
	if m == Smooth {
		return "smooth"
	}
	return "straight"
}

// ParseRoutingMode maps a layout engine's edge routing token to a mode.
// SPLINES is smooth; POLYLINE and ORTHOGONAL are straight. Matching is
// case-insensitive. Unrecognized tokens report false and mean "no opinion".
func ParseRoutingMode(token string) (RoutingMode, bool) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "SPLINES":
		return Smooth, true
	case "POLYLINE", "ORTHOGONAL":
		return Straight, true
	default:
		return Straight, false
	}
}

// CollectRoutingOverrides walks the tree and records, for every node whose
// options name a recognized edge routing, the mode its owned edges use.
func CollectRoutingOverrides(root *elk.Node) map[string]RoutingMode {
	overrides := make(map[string]RoutingMode)
	var walk func(n *elk.Node)
	walk = func(n *elk.Node) {
		if token, ok := n.Option(elk.OptionEdgeRouting); ok {
			if mode, ok := ParseRoutingMode(token); ok {
				overrides[n.ID] = mode
			}
		}
		for i := range n.Children {
			walk(&n.Children[i])
		}
	}
	if root != nil {
		walk(root)
	}
	return overrides
}

// RoutingResolver answers which mode a container's edges use. The most
// specific setting wins: container override, then the configured global
// mode, then Straight.
type RoutingResolver struct {
	overrides map[string]RoutingMode
	global    RoutingMode
	hasGlobal bool
}

// NewRoutingResolver combines per-container overrides with cfg's global mode.
func NewRoutingResolver(overrides map[string]RoutingMode, cfg Config) RoutingResolver {
	global, ok := cfg.Routing()
	return RoutingResolver{overrides: overrides, global: global, hasGlobal: ok}
}

// Mode returns the routing mode for edges owned by containerID.
func (r RoutingResolver) Mode(containerID string) RoutingMode {
	if m, ok := r.overrides[containerID]; ok {
		return m
	}
	if r.hasGlobal {
		return r.global
	}
	return Straight
}
