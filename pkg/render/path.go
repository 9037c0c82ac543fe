package render

import (
	"strconv"
	"strings"

	"github.com/matzehuels/elksvg/pkg/elk"
)

// PolylinePoints formats points for a polyline's points attribute:
// "x,y" pairs separated by single spaces. No points yield "".
func PolylinePoints(points []elk.Point) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = formatNumber(p.X) + "," + formatNumber(p.Y)
	}
	return strings.Join(parts, " ")
}

// SmoothPath formats points as path data. The first point is a move-to; the
// rest are consumed from the second point on in strides of three: a single
// remaining point becomes a line-to, two a quadratic curve, three or more a
// cubic curve through the next three.
//
// The stride is three even when the line or quadratic branch consumed fewer
// points; both branches only fire on the final iteration, so no point is
// skipped.
func SmoothPath(points []elk.Point) string {
	if len(points) == 0 {
		return ""
	}
	cmds := []string{"M" + pair(points[0])}
	for i := 1; i < len(points); i += 3 {
		switch left := len(points) - i; {
		case left == 1:
			cmds = append(cmds, "L"+pair(points[i]))
		case left == 2:
			cmds = append(cmds, "Q"+pair(points[i])+" "+pair(points[i+1]))
		default:
			cmds = append(cmds, "C"+pair(points[i])+" "+pair(points[i+1])+" "+pair(points[i+2]))
		}
	}
	return strings.Join(cmds, " ")
}

func pair(p elk.Point) string {
	return formatNumber(p.X) + " " + formatNumber(p.Y)
}

// formatNumber writes the shortest decimal that round-trips v.
func formatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
