package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/san-kum/barrace/internal/automation"
	"github.com/san-kum/barrace/internal/config"
	"github.com/san-kum/barrace/internal/dataset"
	"github.com/san-kum/barrace/internal/export"
	"github.com/san-kum/barrace/internal/race"
	"github.com/san-kum/barrace/internal/storage"
	"github.com/san-kum/barrace/internal/tui"
	"github.com/san-kum/barrace/internal/viz"
)

var (
	configFile string
	preset     string
	dataDir    string
	logLevel   string
	topN       int
	period     time.Duration
	transition time.Duration
	decimal    string
	strict     bool
	theme      string
	locale     string
	// play
	plain     bool
	frameRate int
	watch     bool
	save      bool
	badges    bool
	gifPath   string
	termWidth int
	// export
	outDir string
	format string
	scale  float64
	// trend
	svgPath string
	// show
	jsonOut string
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	dimColor  = color.New(color.FgHiBlack)
)

// main registers the barrace commands and exits with status 1 when the
// selected command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "barrace",
		Short:         "animated bar chart race for interval datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&dataDir, "data", config.DefaultRunsDir, "run store directory")
	pf.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.IntVar(&topN, "top", config.DefaultTopN, "bars per frame")
	pf.DurationVar(&period, "period", config.DefaultPeriod, "time per interval")
	pf.DurationVar(&transition, "transition", config.DefaultTransition, "bar animation time")
	pf.StringVar(&decimal, "decimal", string(dataset.DecimalLocale), "decimal handling (locale, legacy)")
	pf.BoolVar(&strict, "strict", false, "fail on non-numeric fields")
	pf.StringVar(&theme, "theme", config.DefaultTheme, "colour theme")
	pf.StringVar(&locale, "locale", config.DefaultLocale, "number formatting locale")

	playCmd := &cobra.Command{
		Use:   "play [source]",
		Short: "play the race in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPlay,
	}
	playCmd.Flags().BoolVar(&plain, "plain", false, "plain text renderer for dumb terminals and pipes")
	playCmd.Flags().IntVar(&frameRate, "fps", config.DefaultFPS, "frame rate")
	playCmd.Flags().BoolVar(&watch, "watch", false, "restart when the source file changes")
	playCmd.Flags().BoolVar(&save, "save", false, "store the played frames as a run")
	playCmd.Flags().BoolVar(&badges, "badges", false, "show ISO country codes")
	playCmd.Flags().StringVar(&gifPath, "gif", "race.gif", "GIF path used by the record key")
	playCmd.Flags().IntVar(&termWidth, "width", 60, "bar columns for --plain")

	exportCmd := &cobra.Command{
		Use:   "export [source]",
		Short: "render the race to SVG frames or a GIF",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().StringVar(&outDir, "out", "frames", "output directory (svg) or file (gif)")
	exportCmd.Flags().StringVar(&format, "format", "svg", "output format (svg, gif)")
	exportCmd.Flags().IntVar(&frameRate, "fps", config.DefaultFPS, "frames per second")
	exportCmd.Flags().Float64Var(&scale, "scale", 0.5, "gif pixel scale")

	framesCmd := &cobra.Command{
		Use:   "frames [source]",
		Short: "print every top-N snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE:  printFrames,
	}

	intervalsCmd := &cobra.Command{
		Use:   "intervals [source]",
		Short: "print the playback order",
		Args:  cobra.MaximumNArgs(1),
		RunE:  printIntervals,
	}

	trendCmd := &cobra.Command{
		Use:   "trend [source] [name]",
		Short: "plot one entity across intervals",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  plotTrend,
	}
	trendCmd.Flags().StringVar(&svgPath, "svg", "", "also write the plot as SVG")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().StringVar(&jsonOut, "json", "", "write the run as JSON to this path (- for stdout)")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scripted list of exports",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(playCmd, exportCmd, framesCmd, intervalsCmd, trendCmd, listCmd, showCmd, batchCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// resolveConfig layers defaults, preset, config file and explicitly set
// flags, in that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" && !config.ApplyPreset(cfg, preset) {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}
	if configFile != "" {
		if err := config.Overlay(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("top") {
		cfg.Playback.TopN = topN
	}
	if flags.Changed("period") {
		cfg.Playback.Period = period
		if !flags.Changed("transition") && cfg.Playback.Transition > period {
			cfg.Playback.Transition = period
		}
	}
	if flags.Changed("transition") {
		cfg.Playback.Transition = transition
	}
	if flags.Changed("decimal") {
		cfg.Data.Decimal = decimal
	}
	if flags.Changed("strict") {
		cfg.Data.Strict = strict
	}
	if flags.Changed("theme") {
		cfg.Display.Theme = theme
	}
	if flags.Changed("locale") {
		cfg.Display.Locale = locale
	}
	if flags.Changed("fps") {
		cfg.Playback.FPS = frameRate
	}
	if flags.Changed("badges") {
		cfg.Display.CodeBadge = badges
	}
	if flags.Changed("data") || cfg.RunsDir == "" {
		cfg.RunsDir = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func sourceArg(cfg *config.Config, args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return cfg.Source
}

func newFetcher() *dataset.Fetcher {
	return dataset.DefaultFetcher().WithCache(5 * time.Minute).WithRateLimit(1)
}

func loadDataset(ctx context.Context, f *dataset.Fetcher, cfg *config.Config, source string) (*dataset.Dataset, error) {
	start := time.Now()
	ds, err := dataset.Load(ctx, f, source, cfg.DatasetOptions())
	if err != nil {
		slog.Error("load dataset", "source", source, "err", err)
		return nil, err
	}
	slog.Info("dataset loaded",
		"source", source,
		"records", len(ds.Records),
		"intervals", len(ds.Intervals),
		"elapsed", time.Since(start))
	return ds, nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	source := sourceArg(cfg, args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fetcher := newFetcher()
	ds, err := loadDataset(ctx, fetcher, cfg, source)
	if err != nil {
		return err
	}

	var frames []race.Frame
	if plain {
		session := race.NewSession(ds, nil, cfg.SessionOptions())
		r := tui.NewLiveRenderer(os.Stdout, race.NewFormatter(cfg.Display.Locale), termWidth, cfg.Playback.FPS).
			WithBadges(cfg.Display.CodeBadge)
		r.Start()
		err := session.Run(ctx, cfg.Playback.FPS, r.OnFrame)
		r.Stop()
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		frames = session.Frames()
	} else {
		opts := viz.Options{
			FPS:     cfg.Playback.FPS,
			Theme:   cfg.Display.Theme,
			Locale:  cfg.Display.Locale,
			Badges:  cfg.Display.CodeBadge,
			GIFPath: gifPath,
		}
		if watch {
			if dataset.IsRemote(source) {
				return fmt.Errorf("--watch needs a local file, got %s", source)
			}
			w, err := dataset.NewWatcher(source, 200*time.Millisecond)
			if err != nil {
				return err
			}
			defer w.Close()
			go w.Run(ctx)
			opts.Reloads = w.Changes()
			opts.Loader = func() (*dataset.Dataset, error) {
				return loadDataset(ctx, fetcher, cfg, source)
			}
		}

		p := tea.NewProgram(viz.NewModel(ds, cfg.SessionOptions(), opts), tea.WithAltScreen(), tea.WithContext(ctx))
		final, err := p.Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		if m, ok := final.(viz.Model); ok {
			frames = m.Session().Frames()
		}
	}

	if save {
		st := storage.New(cfg.RunsDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(source, cfg.SessionOptions(), frames)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", okColor.Sprint("saved run:"), runID)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	source := sourceArg(cfg, args)

	ds, err := loadDataset(context.Background(), newFetcher(), cfg, source)
	if err != nil {
		return err
	}

	session := race.NewSession(ds, nil, cfg.SessionOptions())
	start := time.Now()

	switch format {
	case "svg":
		n, err := export.WriteFrames(outDir, session, cfg.Playback.FPS, race.NewFormatter(cfg.Display.Locale))
		if err != nil {
			return err
		}
		fmt.Printf("%s %d frames to %s in %v\n", okColor.Sprint("wrote"), n, outDir, time.Since(start).Round(time.Millisecond))
	case "gif":
		path := outDir
		if filepath.Ext(path) != ".gif" {
			path = filepath.Join(path, "race.gif")
		}
		n, err := export.WriteGIFFile(path, session, cfg.Playback.FPS, scale)
		if err != nil {
			return err
		}
		fmt.Printf("%s %d frames to %s in %v\n", okColor.Sprint("wrote"), n, path, time.Since(start).Round(time.Millisecond))
	default:
		return fmt.Errorf("unknown format %q (svg, gif)", format)
	}
	return nil
}

func printFrames(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	ds, err := loadDataset(context.Background(), newFetcher(), cfg, sourceArg(cfg, args))
	if err != nil {
		return err
	}
	if len(ds.Intervals) == 0 || len(ds.Records) == 0 {
		fmt.Println(warnColor.Sprint("no data to show"))
		return nil
	}

	f := race.NewFormatter(cfg.Display.Locale)
	frames := make([]race.Frame, len(ds.Intervals))
	for i := range ds.Intervals {
		frames[i] = race.NewFrame(ds, i, cfg.Playback.TopN)
	}
	return renderFrameTable(frames, f)
}

func renderFrameTable(frames []race.Frame, f *race.Formatter) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Interval", "Rank", "Name", "Value"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, fr := range frames {
		for _, e := range fr.Entries {
			data = append(data, []string{fr.Interval, strconv.Itoa(e.Rank), e.Name, f.Value(e.Value)})
		}
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printIntervals(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	ds, err := loadDataset(context.Background(), newFetcher(), cfg, sourceArg(cfg, args))
	if err != nil {
		return err
	}

	f := race.NewFormatter(cfg.Display.Locale)
	for i, iv := range ds.Intervals {
		leader := dimColor.Sprint("-")
		if entries := race.TopN(ds.Records, iv, 1); len(entries) > 0 {
			leader = fmt.Sprintf("%s (%s)", entries[0].Name, f.Value(entries[0].Value))
		}
		fmt.Printf("%3d  %-12s %s\n", i+1, iv, leader)
	}
	return nil
}

func plotTrend(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	source, name := cfg.Source, args[0]
	if len(args) == 2 {
		source, name = args[0], args[1]
	}

	ds, err := loadDataset(context.Background(), newFetcher(), cfg, source)
	if err != nil {
		return err
	}
	series, ok := ds.Series(name)
	if !ok {
		return fmt.Errorf("no record named %q in %s", name, source)
	}

	plotted := make([]float64, 0, len(series))
	for _, v := range series {
		if !math.IsNaN(v) {
			plotted = append(plotted, v)
		}
	}
	if len(plotted) == 0 {
		return fmt.Errorf("no numeric values for %q", name)
	}

	fmt.Printf("%s %s\n", okColor.Sprint(name), dimColor.Sprintf("%s .. %s", ds.Intervals[0], ds.Intervals[len(ds.Intervals)-1]))
	if len(plotted) < len(series) {
		fmt.Println(warnColor.Sprintf("%d non-numeric intervals skipped", len(series)-len(plotted)))
	}
	fmt.Println(asciigraph.Plot(plotted,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(name+" per interval"),
	))

	if svgPath != "" {
		colors := race.NewColorScale(race.Palettes[cfg.Display.Theme], ds.Names())
		svg := export.SeriesToSVG(name, ds.Intervals, series, 800, 400, colors.Color(name))
		if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", okColor.Sprint("wrote"), svgPath)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	st := storage.New(cfg.RunsDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"ID", "Source", "Time", "Top", "Intervals", "Entities"})

	var data [][]string
	for _, run := range runs {
		data = append(data, []string{
			run.ID,
			run.Source,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.Itoa(run.TopN),
			strconv.Itoa(len(run.Intervals)),
			strconv.Itoa(run.Entities),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func showRun(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	runID := args[0]

	st := storage.New(cfg.RunsDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}

	switch jsonOut {
	case "":
	case "-":
		return storage.ExportJSON(os.Stdout, meta, frames)
	default:
		if err := storage.ExportJSONFile(jsonOut, meta, frames); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", okColor.Sprint("wrote"), jsonOut)
		return nil
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("source: %s\n", meta.Source)
	fmt.Printf("timing: %dms period, %dms transition, top %d\n", meta.PeriodMs, meta.TransitionMs, meta.TopN)
	fmt.Printf("frames: %d\n\n", len(frames))

	if len(frames) == 0 {
		return fmt.Errorf("no data to plot")
	}

	var leaders []string
	values := make([]float64, len(frames))
	for i, fr := range frames {
		values[i] = fr.Entries[0].Value
		leaders = append(leaders, fmt.Sprintf("%s: %s", fr.Interval, fr.Entries[0].Name))
	}
	fmt.Println(strings.Join(leaders, "\n"))
	fmt.Println()

	if len(values) > 1 {
		fmt.Println(asciigraph.Plot(values,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("leading value"),
		))
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if scenario.Name != "" {
		fmt.Printf("scenario: %s\n", scenario.Name)
	}
	results, err := automation.RunScenario(ctx, scenario, newFetcher(), cfg)
	for _, r := range results {
		fmt.Printf("%s %s -> %s (%d frames, %v)\n", okColor.Sprint("done"), r.Source, r.Out, r.Frames, r.Elapsed.Round(time.Millisecond))
	}
	return err
}
