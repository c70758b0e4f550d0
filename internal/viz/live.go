package viz

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/barrace/internal/dataset"
	"github.com/san-kum/barrace/internal/export"
	"github.com/san-kum/barrace/internal/race"
	"github.com/san-kum/barrace/internal/tui"
)

const (
	defaultWidth    = 120
	defaultHeight   = 30
	labelWidth      = 18
	valueWidth      = 12
	panelWidth      = 40
	historyCapacity = 600
)

var (
	chartStyle = lipgloss.NewStyle().Padding(1, 2)
	graphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// LoadedMsg carries a freshly loaded dataset into the event loop.
type LoadedMsg struct {
	Data *dataset.Dataset
	Err  error
}

type reloadMsg struct{}

// Loader re-reads the dataset when a reload is requested.
type Loader func() (*dataset.Dataset, error)

// Options configures the interactive player.
type Options struct {
	FPS     int
	Theme   string
	Locale  string
	Badges  bool
	GIFPath string

	// Loader and Reloads enable live reload: every signal on Reloads
	// re-runs Loader and restarts the race on the same container.
	Loader  Loader
	Reloads <-chan struct{}
}

// Model drives one race session from bubbletea ticks and draws it.
type Model struct {
	data      *dataset.Dataset
	container *race.Container
	session   *race.Session
	raceOpts  race.Options
	opts      Options
	format    *race.Formatter
	theme     Theme

	last          time.Time
	width, height int
	leaders       []float64
	showHelp      bool
	recording     bool
	raster        *export.Rasterizer
	frames        []*image.Paletted
	recorded      time.Duration
	status        string
	err           error
}

// NewModel mounts a session for ds and renders its first frame.
func NewModel(ds *dataset.Dataset, raceOpts race.Options, opts Options) Model {
	if opts.FPS <= 0 {
		opts.FPS = export.DefaultFPS
	}
	if opts.GIFPath == "" {
		opts.GIFPath = "race.gif"
	}
	m := Model{
		data:      ds,
		container: race.NewContainer("app"),
		raceOpts:  raceOpts,
		opts:      opts,
		format:    race.NewFormatter(opts.Locale),
		theme:     GetTheme(opts.Theme),
		width:     defaultWidth,
		height:    defaultHeight,
		leaders:   make([]float64, 0, historyCapacity),
	}
	m.restart()
	return m
}

func (m *Model) restart() {
	m.session = race.NewSession(m.data, m.container, m.raceOpts)
	m.err = m.session.Start()
	m.last = time.Time{}
	m.leaders = m.leaders[:0]
	m.recordLeader()
}

func (m *Model) recordLeader() {
	frames := m.session.Frames()
	if len(frames) == 0 || len(frames[len(frames)-1].Entries) == 0 {
		return
	}
	m.leaders = append(m.leaders, frames[len(frames)-1].Entries[0].Value)
	if len(m.leaders) > historyCapacity {
		m.leaders = m.leaders[1:]
	}
}

// Session returns the session currently on screen.
func (m Model) Session() *race.Session { return m.session }

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.opts.FPS), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func waitForReload(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return reloadMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), waitForReload(m.opts.Reloads))
}

// Update handles input events and advances playback.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.recording {
				m.saveGIF()
			}
			return m, tea.Quit
		case " ":
			m.session.TogglePause()
		case "r":
			m.restart()
			m.status = "restarted"
		case "t":
			m.theme = NextTheme(m.theme)
		case "b":
			m.opts.Badges = !m.opts.Badges
		case "g":
			if m.recording {
				m.saveGIF()
				m.recording = false
				m.frames = nil
			} else {
				m.recording = true
				m.raster = export.NewRasterizer(m.session.Options().Palette, 0.5)
				m.frames = make([]*image.Paletted, 0)
				m.recorded = 0
				m.status = "recording"
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		now := time.Time(msg)
		var dt time.Duration
		if !m.last.IsZero() {
			dt = now.Sub(m.last)
			if m.session.Advance(dt) {
				m.recordLeader()
			}
		}
		m.last = now
		if m.recording && !m.session.Paused() {
			m.capture(dt)
		}
		return m, m.tick()
	case reloadMsg:
		load := m.opts.Loader
		if load == nil {
			return m, waitForReload(m.opts.Reloads)
		}
		return m, tea.Batch(func() tea.Msg {
			ds, err := load()
			return LoadedMsg{Data: ds, Err: err}
		}, waitForReload(m.opts.Reloads))
	case LoadedMsg:
		if msg.Err != nil {
			m.status = "reload failed: " + msg.Err.Error()
			return m, nil
		}
		m.data = msg.Data
		m.restart()
		m.status = "reloaded"
	}
	return m, nil
}

// capture samples the scene at the GIF rate, which may be lower than the
// tick rate.
func (m *Model) capture(dt time.Duration) {
	m.recorded += dt
	step := time.Second / time.Duration(export.GIFRate(m.opts.FPS))
	if len(m.frames) > 0 && m.recorded < time.Duration(len(m.frames))*step {
		return
	}
	m.frames = append(m.frames, m.raster.Frame(m.session.Scene()))
}

func (m *Model) saveGIF() {
	if len(m.frames) == 0 {
		return
	}
	if err := export.EncodeGIFFile(m.opts.GIFPath, m.frames, export.GIFRate(m.opts.FPS)); err != nil {
		m.status = "gif: " + err.Error()
		return
	}
	m.status = fmt.Sprintf("saved %d frames to %s", len(m.frames), m.opts.GIFPath)
}

func (m Model) barColumns() int {
	cols := m.width - labelWidth - valueWidth - panelWidth - 8
	if cols < 20 {
		cols = 20
	}
	return cols
}

// View renders the chart and the side panel.
func (m Model) View() string {
	sc := m.session.Scene()
	chartView := chartStyle.Render(m.chart(sc))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, chartView, GlassPanel.Render(m.panel(sc)))
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume playback    ║
║  R        - Restart from the start   ║
║  Q        - Quit                     ║
║  T        - Cycle themes             ║
║  B        - Toggle country codes     ║
║  G        - Toggle GIF recording     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

func (m Model) chart(sc race.Scene) string {
	if m.err != nil {
		msg := m.err.Error()
		if errors.Is(m.err, race.ErrNoData) {
			msg = "nothing to draw: the dataset has no rows or no intervals"
		}
		return lipgloss.NewStyle().Foreground(m.theme.Muted).Render(msg)
	}

	cols := m.barColumns()
	scale := 0.0
	if iw := sc.Layout.InnerWidth(); iw > 0 {
		scale = float64(cols) / iw
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Accent)
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted)
	text := lipgloss.NewStyle().Foreground(m.theme.Text)

	var s strings.Builder
	pad := strings.Repeat(" ", labelWidth+1)
	s.WriteString(pad + title.Render(sc.Interval) + "\n")
	s.WriteString(pad + muted.Render(m.axis(sc, scale, cols)) + "\n")

	colors := m.session.Colors()
	for _, b := range sc.Bars {
		if b.Opacity <= 0 {
			continue
		}
		label := b.Name
		if m.opts.Badges {
			label = tui.Badge(b.Name) + " " + label
		}
		barStyle := lipgloss.NewStyle().Foreground(m.theme.BarColor(colors.Index(b.Name)))
		lineStyle := text
		if b.Exiting || b.Opacity < 0.5 {
			barStyle = barStyle.Faint(true)
			lineStyle = muted
		}
		s.WriteString(lineStyle.Render(tui.FitLabel(label, labelWidth)) + " " +
			barStyle.Render(tui.Blocks(b.Width*scale)) + " " +
			lineStyle.Render(m.format.Value(b.Value)) + "\n")
	}
	return s.String()
}

func (m Model) axis(sc race.Scene, scale float64, cols int) string {
	line := []rune(strings.Repeat(" ", cols+valueWidth))
	next := 0
	for _, t := range sc.Ticks {
		pos := int(t.X*scale + 0.5)
		if pos < next {
			continue
		}
		label := []rune(m.format.Tick(t.Value))
		if pos+len(label) > len(line) {
			break
		}
		copy(line[pos:], label)
		next = pos + len(label) + 1
	}
	return strings.TrimRight(string(line), " ")
}

func (m Model) panel(sc race.Scene) string {
	var s strings.Builder
	header := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Primary)
	s.WriteString(header.Render("BAR CHART RACE") + "\n")

	var status string
	switch {
	case m.recording:
		status = StatusRecording.Render("● REC")
	case m.session.State() == race.StateStopped:
		status = StatusStopped.Render("STOPPED")
	case m.session.Paused():
		status = StatusPaused.Render("PAUSED")
	default:
		status = StatusRunning.Render("PLAYING")
	}
	s.WriteString(status + "\n\n")

	total := len(m.session.Intervals())
	done := 0
	if total > 0 {
		done = m.session.Index() + 1
	}
	percent := 0.0
	if total > 0 {
		percent = float64(done) / float64(total)
	}
	s.WriteString(ProgressBar(percent, 28) + "\n")
	s.WriteString(MetricLabel.Render("Interval") + MetricValue.Render(fmt.Sprintf("%d/%d", done, total)) + "\n")
	s.WriteString(MetricLabel.Render("Timer") + MetricValue.Render(fmt.Sprintf("%d", m.session.Ticks())) + "\n")
	if len(sc.Bars) > 0 {
		lead := sc.Bars[0]
		s.WriteString(MetricLabel.Render("Leader") + MetricValue.Render(tui.FitLabel(lead.Name, 20)) + "\n")
	}
	s.WriteString(MetricLabel.Render("Theme") + MetricValue.Render(m.theme.Name) + "\n")

	if len(m.leaders) > 1 {
		chart := asciigraph.Plot(m.leaders, asciigraph.Height(4), asciigraph.Width(26), asciigraph.Caption("Leading value"))
		s.WriteString("\n" + graphStyle.Render(chart) + "\n")
	}

	if m.status != "" {
		s.WriteString("\n" + Subtle.Render(m.status) + "\n")
	}
	s.WriteString(helpStyle.Render(Separator(30) + "\n" + KeyHint.Render("SP:Pause R:Restart Q:Quit\nT:Theme  B:Codes  G:Record ?:Help")))
	return s.String()
}
