package config

import (
	"fmt"
	"os"
	"time"

	"github.com/san-kum/barrace/internal/dataset"
	"github.com/san-kum/barrace/internal/race"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTopN       = 18
	DefaultPeriod     = 2000 * time.Millisecond
	DefaultTransition = 1500 * time.Millisecond
	DefaultFPS        = 30
	DefaultWidth      = 1000
	DefaultHeight     = 600
	DefaultTheme      = "paired"
	DefaultLocale     = "en"
	DefaultRunsDir    = "runs"
)

type Config struct {
	Source   string         `yaml:"source"`
	Data     DataConfig     `yaml:"data"`
	Playback PlaybackConfig `yaml:"playback"`
	Layout   LayoutConfig   `yaml:"layout"`
	Display  DisplayConfig  `yaml:"display"`
	RunsDir  string         `yaml:"runs_dir"`
}

type DataConfig struct {
	IDField    string `yaml:"id_field"`
	Delimiter  string `yaml:"delimiter"`
	Decimal    string `yaml:"decimal"`
	DecimalSep string `yaml:"decimal_sep"`
	Strict     bool   `yaml:"strict"`
}

type PlaybackConfig struct {
	TopN       int           `yaml:"top_n"`
	Period     time.Duration `yaml:"period"`
	Transition time.Duration `yaml:"transition"`
	FPS        int           `yaml:"fps"`
}

type LayoutConfig struct {
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	MarginLeft   float64 `yaml:"margin_left"`
	MarginRight  float64 `yaml:"margin_right"`
	MarginTop    float64 `yaml:"margin_top"`
	MarginBottom float64 `yaml:"margin_bottom"`
	Padding      float64 `yaml:"padding"`
	Ticks        int     `yaml:"ticks"`
}

type DisplayConfig struct {
	Theme     string `yaml:"theme"`
	Locale    string `yaml:"locale"`
	CodeBadge bool   `yaml:"code_badge"`
}

func DefaultConfig() *Config {
	return &Config{
		Source: "dataset.csv",
		Data: DataConfig{
			IDField:    dataset.DefaultIDField,
			Delimiter:  string(dataset.DefaultDelimiter),
			Decimal:    string(dataset.DecimalLocale),
			DecimalSep: string(dataset.DefaultDecimalSep),
		},
		Playback: PlaybackConfig{
			TopN:       DefaultTopN,
			Period:     DefaultPeriod,
			Transition: DefaultTransition,
			FPS:        DefaultFPS,
		},
		Layout: LayoutConfig{
			Width:        DefaultWidth,
			Height:       DefaultHeight,
			MarginLeft:   200,
			MarginRight:  60,
			MarginTop:    40,
			MarginBottom: 40,
			Padding:      0.2,
			Ticks:        5,
		},
		Display: DisplayConfig{
			Theme:  DefaultTheme,
			Locale: DefaultLocale,
		},
		RunsDir: DefaultRunsDir,
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := Overlay(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overlay reads path on top of cfg: keys present in the file win, the
// rest keep their current values.
func Overlay(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg.Validate()
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects values the renderer cannot work with.
func (c *Config) Validate() error {
	if c.Playback.TopN <= 0 {
		return fmt.Errorf("top_n must be positive, got %d", c.Playback.TopN)
	}
	if c.Playback.Period <= 0 {
		return fmt.Errorf("period must be positive, got %s", c.Playback.Period)
	}
	if c.Playback.Transition <= 0 || c.Playback.Transition > c.Playback.Period {
		return fmt.Errorf("transition must be in (0, period], got %s", c.Playback.Transition)
	}
	if c.Playback.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.Playback.FPS)
	}
	switch dataset.DecimalMode(c.Data.Decimal) {
	case dataset.DecimalLocale, dataset.DecimalLegacy:
	default:
		return fmt.Errorf("unknown decimal mode %q", c.Data.Decimal)
	}
	if len([]rune(c.Data.Delimiter)) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", c.Data.Delimiter)
	}
	if len([]rune(c.Data.DecimalSep)) != 1 {
		return fmt.Errorf("decimal_sep must be a single character, got %q", c.Data.DecimalSep)
	}
	if c.Data.DecimalSep == c.Data.Delimiter {
		return fmt.Errorf("decimal_sep and delimiter are both %q", c.Data.Delimiter)
	}
	// legacy rewrites every comma to a period before splitting rows
	if dataset.DecimalMode(c.Data.Decimal) == dataset.DecimalLegacy &&
		(c.Data.Delimiter == "," || c.Data.Delimiter == ".") {
		return fmt.Errorf("legacy decimal mode cannot split on %q", c.Data.Delimiter)
	}
	if _, ok := race.Palettes[c.Display.Theme]; !ok {
		return fmt.Errorf("unknown theme %q", c.Display.Theme)
	}
	if c.Layout.MarginLeft+c.Layout.MarginRight >= c.Layout.Width ||
		c.Layout.MarginTop+c.Layout.MarginBottom >= c.Layout.Height {
		return fmt.Errorf("margins leave no drawing area in %.0fx%.0f", c.Layout.Width, c.Layout.Height)
	}
	return nil
}

// DatasetOptions maps the data section onto loader options.
func (c *Config) DatasetOptions() dataset.Options {
	return dataset.Options{
		IDField:    c.Data.IDField,
		Delimiter:  firstRune(c.Data.Delimiter),
		Mode:       dataset.DecimalMode(c.Data.Decimal),
		DecimalSep: firstRune(c.Data.DecimalSep),
		Strict:     c.Data.Strict,
	}
}

// SessionOptions maps playback, layout and theme onto race options.
func (c *Config) SessionOptions() race.Options {
	return race.Options{
		TopN:       c.Playback.TopN,
		Period:     c.Playback.Period,
		Transition: c.Playback.Transition,
		Layout: race.Layout{
			Width:  c.Layout.Width,
			Height: c.Layout.Height,
			Margin: race.Margin{
				Top:    c.Layout.MarginTop,
				Right:  c.Layout.MarginRight,
				Bottom: c.Layout.MarginBottom,
				Left:   c.Layout.MarginLeft,
			},
			Padding: c.Layout.Padding,
			Ticks:   c.Layout.Ticks,
		},
		Palette: race.Palettes[c.Display.Theme],
	}
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
