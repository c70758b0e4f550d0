package race

import (
	"sort"
	"time"
)

// bar is the retained state of one drawn entity.
type bar struct {
	name    string
	color   string
	rank    int
	value   float64
	y       Tween
	width   Tween
	height  Tween
	opacity Tween
	label   Tween
	exiting bool
}

// BarState is a bar evaluated at the current transition progress.
type BarState struct {
	Name    string
	Color   string
	Rank    int
	Y       float64
	Width   float64
	Height  float64
	Opacity float64
	Value   float64
	Target  float64
	Exiting bool
}

// Tick is one axis gridline.
type Tick struct {
	Value float64
	X     float64
}

// Scene is everything a host needs to draw one instant of playback.
type Scene struct {
	Layout   Layout
	Index    int
	Interval string
	Progress float64
	AxisMax  float64
	Ticks    []Tick
	Bars     []BarState
}

// Surface is the drawing surface: bars keyed by entity name that persist
// across frames so hosts can animate them instead of redrawing.
type Surface struct {
	layout Layout
	colors *ColorScale
	x      Linear
	band   *Band

	bars  map[string]*bar
	order []string

	axis     Tween
	interval string
	index    int
	started  bool

	duration time.Duration
	elapsed  time.Duration
	detached bool
}

func newSurface(layout Layout, colors *ColorScale) *Surface {
	return &Surface{
		layout: layout,
		colors: colors,
		x:      NewLinear(0, layout.InnerWidth()),
		band:   NewBand(0, layout.InnerHeight(), layout.Padding),
		bars:   make(map[string]*bar),
		index:  -1,
	}
}

// progress returns the eased completion of the current transition.
func (s *Surface) progress() float64 {
	if s.duration <= 0 || s.elapsed >= s.duration {
		return 1
	}
	return EaseCubicInOut(float64(s.elapsed) / float64(s.duration))
}

// Apply joins frame against the bars on the surface and begins a transition
// of length d. Bars are matched by name: matches move from where they are
// currently drawn, new names enter from zero width and opacity, and names
// missing from frame fade out and are deleted when the transition ends.
// The interval label switches immediately.
func (s *Surface) Apply(frame Frame, d time.Duration) error {
	if s.detached {
		return ErrDetached
	}
	p := s.progress()

	top := frame.Max()
	s.x = s.x.WithDomain(0, top)
	s.band.SetDomain(frame.Names())
	bw := s.band.Bandwidth()

	if s.started {
		s.axis = s.axis.Retarget(p, top)
	} else {
		s.axis = Fixed(top)
	}

	present := make(map[string]bool, len(frame.Entries))
	for _, e := range frame.Entries {
		present[e.Name] = true
		y, _ := s.band.Position(e.Name)
		w := s.x.Scale(e.Value)

		b, ok := s.bars[e.Name]
		if !ok {
			b = &bar{
				name:    e.Name,
				color:   s.colors.Color(e.Name),
				y:       Fixed(y),
				width:   Tween{From: 0, To: w},
				height:  Fixed(bw),
				opacity: Tween{From: 0, To: 1},
				label:   Tween{From: 0, To: e.Value},
			}
			s.bars[e.Name] = b
			s.order = append(s.order, e.Name)
		} else {
			b.y = b.y.Retarget(p, y)
			b.width = b.width.Retarget(p, w)
			b.height = b.height.Retarget(p, bw)
			b.opacity = b.opacity.Retarget(p, 1)
			b.label = b.label.Retarget(p, e.Value)
			b.exiting = false
		}
		b.rank = e.Rank
		b.value = e.Value
	}

	for _, name := range s.order {
		if present[name] {
			continue
		}
		b := s.bars[name]
		b.y = Fixed(b.y.At(p))
		b.width = Fixed(b.width.At(p))
		b.height = Fixed(b.height.At(p))
		b.label = Fixed(b.label.At(p))
		b.opacity = b.opacity.Retarget(p, 0)
		b.exiting = true
	}

	s.interval = frame.Interval
	s.index = frame.Index
	s.started = true
	s.duration = d
	s.elapsed = 0
	if d <= 0 {
		s.settle()
	}
	return nil
}

// Advance moves the transition forward by dt and reports whether it has
// completed.
func (s *Surface) Advance(dt time.Duration) bool {
	if s.Done() {
		return true
	}
	s.elapsed += dt
	if s.elapsed >= s.duration {
		s.elapsed = s.duration
		s.settle()
		return true
	}
	return false
}

// Done reports whether no transition is in flight.
func (s *Surface) Done() bool {
	return s.elapsed >= s.duration
}

// settle removes exited bars and pins every tween at its target.
func (s *Surface) settle() {
	kept := s.order[:0]
	for _, name := range s.order {
		b := s.bars[name]
		if b.exiting {
			delete(s.bars, name)
			continue
		}
		b.y = Fixed(b.y.To)
		b.width = Fixed(b.width.To)
		b.height = Fixed(b.height.To)
		b.opacity = Fixed(b.opacity.To)
		b.label = Fixed(b.label.To)
		kept = append(kept, name)
	}
	s.order = kept
	s.axis = Fixed(s.axis.To)
}

// Has reports whether a bar for name is on the surface, exiting or not.
func (s *Surface) Has(name string) bool {
	_, ok := s.bars[name]
	return ok
}

// Len returns the number of bars on the surface, exiting ones included.
func (s *Surface) Len() int { return len(s.bars) }

// Detached reports whether a later mount replaced this surface.
func (s *Surface) Detached() bool { return s.detached }

// Scene evaluates the surface at the current progress. Bars are ordered
// top to bottom.
func (s *Surface) Scene() Scene {
	p := s.progress()
	sc := Scene{
		Layout:   s.layout,
		Index:    s.index,
		Interval: s.interval,
		Progress: p,
		AxisMax:  s.axis.At(p),
		Bars:     make([]BarState, 0, len(s.bars)),
	}

	axis := s.x.WithDomain(0, sc.AxisMax)
	for _, v := range Ticks(0, sc.AxisMax, s.layout.Ticks) {
		sc.Ticks = append(sc.Ticks, Tick{Value: v, X: axis.Scale(v)})
	}

	for _, name := range s.order {
		b := s.bars[name]
		sc.Bars = append(sc.Bars, BarState{
			Name:    b.name,
			Color:   b.color,
			Rank:    b.rank,
			Y:       b.y.At(p),
			Width:   b.width.At(p),
			Height:  b.height.At(p),
			Opacity: b.opacity.At(p),
			Value:   b.label.At(p),
			Target:  b.value,
			Exiting: b.exiting,
		})
	}
	sort.SliceStable(sc.Bars, func(i, j int) bool {
		return sc.Bars[i].Y < sc.Bars[j].Y
	})
	return sc
}
