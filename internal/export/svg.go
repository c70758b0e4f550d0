package export

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/san-kum/barrace/internal/race"
)

// ViewBoxHeight crops the logical 600px surface to the visible chart.
const ViewBoxHeight = 560

// SceneToSVG renders one instant of playback as a standalone SVG document.
func SceneToSVG(sc race.Scene, f *race.Formatter) string {
	l := sc.Layout
	iw, ih := l.InnerWidth(), l.InnerHeight()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="100%%" height="100%%" viewBox="0 0 %.0f %d" preserveAspectRatio="xMidYMid meet" font-family="sans-serif">
<rect width="100%%" height="100%%" fill="#ffffff"/>
<g transform="translate(%s, %s)">
`, l.Width, ViewBoxHeight, num(l.Margin.Left), num(l.Margin.Top)))

	sb.WriteString(`<g class="x-axis" font-size="10" text-anchor="middle">` + "\n")
	for _, t := range sc.Ticks {
		sb.WriteString(fmt.Sprintf(`<g class="tick" transform="translate(%s, 0)"><line stroke="#ddd" y2="%s"/><text fill="#000" y="-9">%s</text></g>
`, num(t.X), num(ih), html.EscapeString(f.Tick(t.Value))))
	}
	sb.WriteString("</g>\n")

	sb.WriteString(fmt.Sprintf(`<text class="intervalLabel" x="%s" y="-20" font-size="22px" font-weight="bold">%s</text>
`, num(iw-100), html.EscapeString(sc.Interval)))

	for _, b := range sc.Bars {
		sb.WriteString(fmt.Sprintf(`<g class="bar" transform="translate(0, %s)" opacity="%s">
<rect width="%s" height="%s" fill="%s"/>
<text class="num" x="%s" y="%s" dy=".35em" font-size="12">%s</text>
<text class="label" x="-10" y="%s" dy=".35em" text-anchor="end" font-size="12">%s</text>
</g>
`,
			num(b.Y), num(b.Opacity),
			num(b.Width), num(b.Height), b.Color,
			num(b.Width+5), num(b.Height/2), html.EscapeString(f.Value(b.Value)),
			num(b.Height/2), html.EscapeString(b.Name)))
	}

	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// SeriesToSVG draws one entity's values across intervals as a polyline.
// NaN points break the line.
func SeriesToSVG(name string, labels []string, values []float64, width, height int, stroke string) string {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return ""
	}

	rng := hi - lo
	if rng == 0 {
		rng = 1
	}
	lo -= rng * 0.1
	hi += rng * 0.1
	rng = hi - lo

	const pad = 40.0
	w, h := float64(width)-2*pad, float64(height)-2*pad
	step := 0.0
	if len(values) > 1 {
		step = w / float64(len(values)-1)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">
<rect width="100%%" height="100%%" fill="#ffffff"/>
<text x="%s" y="24" font-size="16" font-weight="bold">%s</text>
<path fill="none" stroke="%s" stroke-width="2" d="`,
		width, height, width, height, num(pad), html.EscapeString(name), stroke))

	pen := false
	for i, v := range values {
		if math.IsNaN(v) {
			pen = false
			continue
		}
		x := pad + float64(i)*step
		y := pad + h - (v-lo)/rng*h
		if pen {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" M%.1f,%.1f", x, y))
			pen = true
		}
	}
	sb.WriteString(`"/>` + "\n")

	for i, label := range labels {
		if i >= len(values) {
			break
		}
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" font-size="9" text-anchor="middle">%s</text>
`, pad+float64(i)*step, float64(height)-pad/2, html.EscapeString(label)))
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

// num prints a coordinate without trailing zeros.
func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
