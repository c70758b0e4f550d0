package race

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/barrace/internal/dataset"
)

const (
	DefaultTopN       = 18
	DefaultPeriod     = 2000 * time.Millisecond
	DefaultTransition = 1500 * time.Millisecond
)

// State is the playback lifecycle of a Session.
type State int

const (
	StateIdle State = iota
	StateInitializing
	StatePlaying
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StatePlaying:
		return "playing"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures a Session.
type Options struct {
	TopN       int
	Period     time.Duration
	Transition time.Duration
	Layout     Layout
	Palette    []string
}

func DefaultOptions() Options {
	return Options{
		TopN:       DefaultTopN,
		Period:     DefaultPeriod,
		Transition: DefaultTransition,
		Layout:     DefaultLayout(),
		Palette:    Paired,
	}
}

// Session plays one dataset on one container, frame by frame.
type Session struct {
	data      *dataset.Dataset
	opts      Options
	container *Container
	surface   *Surface
	colors    *ColorScale

	state      State
	index      int
	sinceFrame time.Duration
	ticks      int
	paused     bool
	frames     []Frame
	err        error
}

func NewSession(ds *dataset.Dataset, container *Container, opts Options) *Session {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	if opts.Transition <= 0 || opts.Transition > opts.Period {
		opts.Transition = opts.Period
	}
	if opts.Layout.Width == 0 {
		opts.Layout = DefaultLayout()
	}
	if len(opts.Palette) == 0 {
		opts.Palette = Paired
	}
	if container == nil {
		container = NewContainer("app")
	}
	return &Session{data: ds, opts: opts, container: container}
}

// Start initialises scales and colours, mounts a fresh surface and renders
// the first interval without delay. A dataset with nothing to draw stops
// the session and returns ErrNoData.
func (s *Session) Start() error {
	if s.state != StateIdle {
		return ErrStarted
	}
	s.state = StateInitializing

	var names []string
	if s.data != nil {
		names = s.data.Names()
	}
	s.colors = NewColorScale(s.opts.Palette, names)
	s.surface = s.container.Mount(s.opts.Layout, s.colors)

	if s.data == nil || len(s.data.Records) == 0 || len(s.data.Intervals) == 0 {
		s.state = StateStopped
		return ErrNoData
	}

	s.state = StatePlaying
	return s.begin(0)
}

func (s *Session) begin(i int) error {
	frame := NewFrame(s.data, i, s.opts.TopN)
	if err := s.surface.Apply(frame, s.opts.Transition); err != nil {
		s.state = StateStopped
		return err
	}
	s.index = i
	s.sinceFrame = 0
	s.frames = append(s.frames, frame)
	return nil
}

// Advance moves playback forward by dt. The timer fires once the current
// transition has finished and a full period has passed since the frame
// began; firing past the last interval stops the session for good. It
// reports whether the timer fired.
//
// Time past the period carries into the next frame so intervals keep a
// fixed cadence whatever the step size. A frame held back by a long
// transition starts fresh instead.
func (s *Session) Advance(dt time.Duration) bool {
	if s.state != StatePlaying || s.paused {
		return false
	}
	due := s.sinceFrame >= s.opts.Period
	s.surface.Advance(dt)
	s.sinceFrame += dt
	if !s.surface.Done() || s.sinceFrame < s.opts.Period {
		return false
	}

	carry := s.sinceFrame - s.opts.Period
	if due || carry >= s.opts.Period {
		carry = 0
	}

	s.ticks++
	next := s.index + 1
	if next >= len(s.data.Intervals) {
		s.state = StateStopped
		return true
	}
	if err := s.begin(next); err != nil {
		s.err = err
		return true
	}
	if carry > 0 {
		s.surface.Advance(carry)
		s.sinceFrame = carry
	}
	return true
}

// Run drives the session against the wall clock at fps, calling onFrame
// with every rendered scene. It returns nil once playback stops.
func (s *Session) Run(ctx context.Context, fps int, onFrame func(Scene)) error {
	if s.state == StateIdle {
		if err := s.Start(); err != nil {
			return err
		}
	}
	if fps <= 0 {
		fps = 30
	}

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	if onFrame != nil {
		onFrame(s.Scene())
	}
	last := time.Now()
	for s.state == StatePlaying {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Advance(now.Sub(last))
			last = now
			if onFrame != nil {
				onFrame(s.Scene())
			}
		}
	}
	return nil
}

// TogglePause freezes or resumes the clock. Stopped sessions stay stopped.
func (s *Session) TogglePause() bool {
	if s.state == StatePlaying {
		s.paused = !s.paused
	}
	return s.paused
}

// Scene returns the current drawable state.
func (s *Session) Scene() Scene {
	if s.surface == nil {
		return Scene{Layout: s.opts.Layout, Index: -1}
	}
	return s.surface.Scene()
}

func (s *Session) State() State        { return s.state }
func (s *Session) Paused() bool        { return s.paused }
func (s *Session) Index() int          { return s.index }
func (s *Session) Ticks() int          { return s.ticks }
func (s *Session) Options() Options    { return s.opts }
func (s *Session) Surface() *Surface   { return s.surface }
func (s *Session) Colors() *ColorScale { return s.colors }

// Err returns the error that stopped playback early, if any.
func (s *Session) Err() error { return s.err }

// Intervals returns the playback order.
func (s *Session) Intervals() []string {
	if s.data == nil {
		return nil
	}
	return s.data.Intervals
}

// Frames returns the snapshots rendered so far, in order.
func (s *Session) Frames() []Frame {
	return append([]Frame(nil), s.frames...)
}
