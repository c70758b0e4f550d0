package race

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders bar values with one decimal and locale grouping, e.g.
// 1234.5 as "1,234.5" for English.
type Formatter struct {
	p *message.Printer
}

// NewFormatter falls back to English for an unparsable locale.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Formatter{p: message.NewPrinter(tag)}
}

func (f *Formatter) Value(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return f.p.Sprintf("%.1f", v)
}

// Tick renders an axis tick; whole numbers drop the decimal.
func (f *Formatter) Tick(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return f.p.Sprintf("%d", int64(v))
	}
	return f.p.Sprintf("%g", v)
}
