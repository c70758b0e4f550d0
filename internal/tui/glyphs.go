package tui

import (
	"math"
	"strings"

	"github.com/biter777/countries"
	"github.com/mattn/go-runewidth"
)

// eighths are the partial block glyphs from 1/8 to 7/8 of a cell.
var eighths = []rune{'▏', '▎', '▍', '▌', '▋', '▊', '▉'}

// Blocks renders a horizontal bar cols cells long at 1/8 cell resolution.
func Blocks(cols float64) string {
	if cols <= 0 || math.IsNaN(cols) {
		return ""
	}
	full := int(cols)
	rest := int(math.Round((cols - float64(full)) * 8))
	if rest == 8 {
		full++
		rest = 0
	}
	s := strings.Repeat("█", full)
	if rest > 0 {
		s += string(eighths[rest-1])
	}
	return s
}

// FitLabel truncates or right-aligns s to exactly width display columns.
func FitLabel(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillLeft(s, width)
}

// Badge returns the ISO 3166 alpha-2 code for a country name, or two
// spaces when the name is not a recognised country.
func Badge(name string) string {
	code := countries.ByName(name)
	if code == countries.Unknown {
		return "  "
	}
	return code.Alpha2()
}
