package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/barrace/internal/config"
	"github.com/san-kum/barrace/internal/dataset"
	"github.com/san-kum/barrace/internal/export"
	"github.com/san-kum/barrace/internal/race"
)

// Scenario is a scripted list of exports run one after another.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep renders one source. Zero fields keep the base config.
type ScenarioStep struct {
	Source string  `yaml:"source"`
	Preset string  `yaml:"preset"`
	Format string  `yaml:"format"`
	Out    string  `yaml:"out"`
	TopN   int     `yaml:"top_n"`
	FPS    int     `yaml:"fps"`
	Theme  string  `yaml:"theme"`
	Scale  float64 `yaml:"scale"`
}

type StepResult struct {
	Source  string
	Out     string
	Frames  int
	Elapsed time.Duration
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	for i, step := range scenario.Steps {
		if step.Source == "" {
			return nil, fmt.Errorf("step %d: source is required", i+1)
		}
		switch step.Format {
		case "", "svg", "gif":
		default:
			return nil, fmt.Errorf("step %d: unknown format %q", i+1, step.Format)
		}
	}

	return &scenario, nil
}

// Config layers the step's preset and overrides on a copy of base.
func (s ScenarioStep) Config(base *config.Config) (*config.Config, error) {
	cfg := *base
	cfg.Source = s.Source
	if s.Preset != "" && !config.ApplyPreset(&cfg, s.Preset) {
		return nil, fmt.Errorf("unknown preset: %s", s.Preset)
	}
	if s.TopN > 0 {
		cfg.Playback.TopN = s.TopN
	}
	if s.FPS > 0 {
		cfg.Playback.FPS = s.FPS
	}
	if s.Theme != "" {
		cfg.Display.Theme = s.Theme
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s ScenarioStep) output() string {
	if s.Out != "" {
		return s.Out
	}
	name := filepath.Base(s.Source)
	name = name[:len(name)-len(filepath.Ext(name))]
	if s.Format == "gif" {
		return name + ".gif"
	}
	return name + "_frames"
}

// RunScenario executes all steps in a scenario, stopping at the first
// failure. Results of the steps that completed are returned either way.
func RunScenario(ctx context.Context, scenario *Scenario, f *dataset.Fetcher, base *config.Config) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		slog.Info("scenario step", "step", i+1, "of", len(scenario.Steps), "source", step.Source)

		cfg, err := step.Config(base)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		start := time.Now()
		ds, err := dataset.Load(ctx, f, step.Source, cfg.DatasetOptions())
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		session := race.NewSession(ds, nil, cfg.SessionOptions())
		out := step.output()
		n, err := render(session, step, cfg, out)
		if err != nil {
			return results, fmt.Errorf("step %d render: %w", i+1, err)
		}

		results = append(results, StepResult{
			Source:  step.Source,
			Out:     out,
			Frames:  n,
			Elapsed: time.Since(start),
		})
	}

	return results, nil
}

func render(s *race.Session, step ScenarioStep, cfg *config.Config, out string) (int, error) {
	if step.Format != "gif" {
		return export.WriteFrames(out, s, cfg.Playback.FPS, race.NewFormatter(cfg.Display.Locale))
	}

	scale := step.Scale
	if scale <= 0 {
		scale = 0.5
	}
	return export.WriteGIFFile(out, s, cfg.Playback.FPS, scale)
}
