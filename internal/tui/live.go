package tui

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/san-kum/barrace/internal/race"
)

const (
	labelWidth  = 18
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	fadeColor  = color.New(color.FgHiBlack)
)

// LiveRenderer redraws a scene as plain text lines, clearing the screen
// between frames. Output is throttled to frameRate.
type LiveRenderer struct {
	out       io.Writer
	format    *race.Formatter
	width     int
	frameRate int
	badges    bool
	clear     bool
	lastFrame time.Time
}

// NewLiveRenderer draws bars up to width columns wide.
func NewLiveRenderer(out io.Writer, f *race.Formatter, width, frameRate int) *LiveRenderer {
	if width < 10 {
		width = 10
	}
	return &LiveRenderer{out: out, format: f, width: width, frameRate: frameRate, clear: true}
}

// WithBadges prefixes labels with ISO country codes.
func (r *LiveRenderer) WithBadges(on bool) *LiveRenderer {
	r.badges = on
	return r
}

// WithClear controls whether frames start by clearing the screen. Pipes
// and logs want it off.
func (r *LiveRenderer) WithClear(on bool) *LiveRenderer {
	r.clear = on
	return r
}

// OnFrame renders sc unless the previous frame was drawn too recently.
// Settled scenes are always drawn so the final state is never skipped.
func (r *LiveRenderer) OnFrame(sc race.Scene) {
	if r.frameRate > 0 && sc.Progress < 1 {
		if time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
			return
		}
	}
	r.lastFrame = time.Now()
	fmt.Fprint(r.out, r.Render(sc))
}

// Render returns the text of one frame.
func (r *LiveRenderer) Render(sc race.Scene) string {
	var b strings.Builder
	if r.clear {
		b.WriteString(clearScreen)
	}

	iw := sc.Layout.InnerWidth()
	cols := float64(r.width)
	scale := 0.0
	if iw > 0 {
		scale = cols / iw
	}

	pad := strings.Repeat(" ", labelWidth+1)
	b.WriteString(pad + titleColor.Sprint(sc.Interval) + "\n")
	b.WriteString(pad + r.axis(sc, scale) + "\n")

	for _, bar := range sc.Bars {
		if bar.Opacity <= 0 {
			continue
		}
		label := bar.Name
		if r.badges {
			label = Badge(bar.Name) + " " + label
		}
		line := FitLabel(label, labelWidth) + " " + Blocks(bar.Width*scale) + " " + r.format.Value(bar.Value)
		if bar.Exiting || bar.Opacity < 0.5 {
			line = fadeColor.Sprint(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// axis lays tick labels out along the bar columns.
func (r *LiveRenderer) axis(sc race.Scene, scale float64) string {
	line := []rune(strings.Repeat(" ", r.width+8))
	next := 0
	for _, t := range sc.Ticks {
		pos := int(math.Round(t.X * scale))
		if pos < next {
			continue
		}
		label := []rune(r.format.Tick(t.Value))
		if pos+len(label) > len(line) {
			break
		}
		copy(line[pos:], label)
		next = pos + len(label) + 1
	}
	return strings.TrimRight(string(line), " ")
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.out, showCursor) }
