package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/barrace/internal/config"
	"github.com/san-kum/barrace/internal/dataset"
)

const sampleCSV = "Country;1990-1995;1995-2000\nSweden;1;3\nNorway;2;1\nChad;0,5;2\n"

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "batch.yaml", `
name: nightly
steps:
  - source: a.csv
    preset: fast
  - source: b.csv
    format: gif
    scale: 0.25
`)

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "nightly", sc.Name)
	require.Len(t, sc.Steps, 2)
	assert.Equal(t, "fast", sc.Steps[0].Preset)
	assert.Equal(t, 0.25, sc.Steps[1].Scale)
	assert.Equal(t, "b.gif", sc.Steps[1].output())
	assert.Equal(t, "a_frames", sc.Steps[0].output())
}

func TestLoadScenarioRejectsBadSteps(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"empty":      "name: x\n",
		"no source":  "steps:\n  - preset: fast\n",
		"bad format": "steps:\n  - source: a.csv\n    format: mp4\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadScenario(writeFile(t, dir, "s.yaml", body))
			assert.Error(t, err)
		})
	}
}

func TestStepConfig(t *testing.T) {
	base := config.DefaultConfig()

	cfg, err := ScenarioStep{Source: "a.csv", Preset: "top10", Theme: "dark2", FPS: 12}.Config(base)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Playback.TopN)
	assert.Equal(t, "dark2", cfg.Display.Theme)
	assert.Equal(t, 12, cfg.Playback.FPS)
	assert.Equal(t, config.DefaultTopN, base.Playback.TopN, "base must not change")

	_, err = ScenarioStep{Source: "a.csv", Preset: "nope"}.Config(base)
	assert.Error(t, err)
	_, err = ScenarioStep{Source: "a.csv", Theme: "neon"}.Config(base)
	assert.Error(t, err)
}

func TestRunScenario(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "dataset.csv", sampleCSV)
	gifOut := filepath.Join(dir, "out", "race.gif")
	svgOut := filepath.Join(dir, "frames")

	sc := &Scenario{Steps: []ScenarioStep{
		{Source: src, Out: svgOut, FPS: 5, Preset: "fast"},
		{Source: src, Out: gifOut, Format: "gif", FPS: 5, Scale: 0.25, Preset: "fast"},
	}}

	results, err := RunScenario(context.Background(), sc, dataset.DefaultFetcher(), config.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, results, 2)

	frames, err := filepath.Glob(filepath.Join(svgOut, "frame_*.svg"))
	require.NoError(t, err)
	assert.Len(t, frames, results[0].Frames)
	assert.Greater(t, results[0].Frames, 1)

	assert.FileExists(t, gifOut)
	assert.Equal(t, results[0].Frames, results[1].Frames)
}

func TestRunScenarioStopsAtFailure(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "dataset.csv", sampleCSV)

	sc := &Scenario{Steps: []ScenarioStep{
		{Source: src, Out: filepath.Join(dir, "ok"), FPS: 5},
		{Source: filepath.Join(dir, "missing.csv"), Out: filepath.Join(dir, "bad")},
	}}

	results, err := RunScenario(context.Background(), sc, dataset.DefaultFetcher(), config.DefaultConfig())
	assert.ErrorIs(t, err, dataset.ErrFetch)
	assert.Len(t, results, 1)
}

func TestRunScenarioCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sc := &Scenario{Steps: []ScenarioStep{{Source: "a.csv"}}}
	results, err := RunScenario(ctx, sc, dataset.DefaultFetcher(), config.DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}
