package race

import "math"

var (
	e10 = math.Sqrt(50)
	e5  = math.Sqrt(10)
	e2  = math.Sqrt(2)
)

// Margin is the space around the inner plot area.
type Margin struct {
	Top, Right, Bottom, Left float64
}

// Layout is the logical coordinate space of a surface.
type Layout struct {
	Width, Height float64
	Margin        Margin
	Padding       float64
	Ticks         int
}

func DefaultLayout() Layout {
	return Layout{
		Width:   1000,
		Height:  600,
		Margin:  Margin{Top: 40, Right: 60, Bottom: 40, Left: 200},
		Padding: 0.2,
		Ticks:   5,
	}
}

func (l Layout) InnerWidth() float64  { return l.Width - l.Margin.Left - l.Margin.Right }
func (l Layout) InnerHeight() float64 { return l.Height - l.Margin.Top - l.Margin.Bottom }

// Linear maps a continuous domain onto a continuous range.
type Linear struct {
	D0, D1 float64
	R0, R1 float64
}

func NewLinear(r0, r1 float64) Linear {
	return Linear{D0: 0, D1: 1, R0: r0, R1: r1}
}

// WithDomain returns a copy of s over [d0, d1].
func (s Linear) WithDomain(d0, d1 float64) Linear {
	s.D0, s.D1 = d0, d1
	return s
}

// Scale maps v into the range. An empty or NaN domain maps everything to R0.
func (s Linear) Scale(v float64) float64 {
	span := s.D1 - s.D0
	if span == 0 || math.IsNaN(span) || math.IsInf(span, 0) || math.IsNaN(v) {
		return s.R0
	}
	return s.R0 + (v-s.D0)/span*(s.R1-s.R0)
}

// Ticks returns about count round values (1, 2 or 5 times a power of ten)
// inside the domain, ascending.
func (s Linear) Ticks(count int) []float64 {
	return Ticks(s.D0, s.D1, count)
}

// Ticks returns nicely rounded values spanning [start, stop].
func Ticks(start, stop float64, count int) []float64 {
	if count <= 0 || math.IsNaN(start) || math.IsNaN(stop) || math.IsInf(start, 0) || math.IsInf(stop, 0) {
		return nil
	}
	if start == stop {
		return []float64{start}
	}
	reverse := stop < start
	if reverse {
		start, stop = stop, start
	}

	i1, i2, inc := tickSpec(start, stop, count)
	if i2 < i1 {
		return nil
	}
	n := int(i2-i1) + 1
	ticks := make([]float64, n)
	for i := 0; i < n; i++ {
		if inc < 0 {
			ticks[i] = (i1 + float64(i)) / -inc
		} else {
			ticks[i] = (i1 + float64(i)) * inc
		}
	}
	if reverse {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			ticks[i], ticks[j] = ticks[j], ticks[i]
		}
	}
	return ticks
}

// tickSpec returns the first and last tick index and the increment. A
// negative increment encodes a fractional step as its reciprocal so that
// ticks stay exact decimals.
func tickSpec(start, stop float64, count int) (i1, i2, inc float64) {
	step := (stop - start) / float64(count)
	power := math.Floor(math.Log10(step))
	errRatio := step / math.Pow(10, power)
	factor := 1.0
	switch {
	case errRatio >= e10:
		factor = 10
	case errRatio >= e5:
		factor = 5
	case errRatio >= e2:
		factor = 2
	}

	if power < 0 {
		inc = math.Pow(10, -power) / factor
		i1 = math.Round(start * inc)
		i2 = math.Round(stop * inc)
		if i1/inc < start {
			i1++
		}
		if i2/inc > stop {
			i2--
		}
		return i1, i2, -inc
	}
	inc = math.Pow(10, power) * factor
	i1 = math.Round(start / inc)
	i2 = math.Round(stop / inc)
	if i1*inc < start {
		i1++
	}
	if i2*inc > stop {
		i2--
	}
	return i1, i2, inc
}

// Band divides a range into evenly spaced bands, one per domain key.
type Band struct {
	R0, R1       float64
	PaddingInner float64
	PaddingOuter float64
	Align        float64

	domain    []string
	index     map[string]int
	step      float64
	start     float64
	bandwidth float64
}

// NewBand returns a band scale over [r0, r1] with equal inner and outer
// padding, centred in the range.
func NewBand(r0, r1, padding float64) *Band {
	b := &Band{R0: r0, R1: r1, PaddingInner: padding, PaddingOuter: padding, Align: 0.5}
	b.SetDomain(nil)
	return b
}

// SetDomain replaces the ordered keys. Repeated keys keep their first slot.
func (b *Band) SetDomain(keys []string) {
	b.domain = b.domain[:0]
	b.index = make(map[string]int, len(keys))
	for _, k := range keys {
		if _, dup := b.index[k]; dup {
			continue
		}
		b.index[k] = len(b.domain)
		b.domain = append(b.domain, k)
	}
	b.rescale()
}

func (b *Band) rescale() {
	n := float64(len(b.domain))
	span := b.R1 - b.R0
	b.step = span / math.Max(1, n-b.PaddingInner+b.PaddingOuter*2)
	b.start = b.R0 + (span-b.step*(n-b.PaddingInner))*b.Align
	b.bandwidth = b.step * (1 - b.PaddingInner)
}

// Position returns the start of key's band.
func (b *Band) Position(key string) (float64, bool) {
	i, ok := b.index[key]
	if !ok {
		return 0, false
	}
	return b.start + b.step*float64(i), true
}

func (b *Band) Bandwidth() float64 { return b.bandwidth }
func (b *Band) Step() float64      { return b.step }
func (b *Band) Domain() []string   { return append([]string(nil), b.domain...) }
