package config

import (
	"sort"
	"time"
)

// Presets are partial overrides applied on top of DefaultConfig.
var Presets = map[string]func(*Config){
	"classic": func(c *Config) {
		c.Data.Decimal = "legacy"
	},
	"fast": func(c *Config) {
		c.Playback.Period = 800 * time.Millisecond
		c.Playback.Transition = 600 * time.Millisecond
	},
	"slow": func(c *Config) {
		c.Playback.Period = 4 * time.Second
		c.Playback.Transition = 3500 * time.Millisecond
	},
	"top10": func(c *Config) {
		c.Playback.TopN = 10
	},
	"smooth": func(c *Config) {
		c.Playback.FPS = 60
	},
	"english": func(c *Config) {
		c.Data.Delimiter = ","
		c.Data.DecimalSep = "."
	},
}

func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

// ApplyPreset overlays the named preset on cfg. It reports false for an
// unknown name.
func ApplyPreset(cfg *Config, name string) bool {
	apply, ok := Presets[name]
	if !ok {
		return false
	}
	apply(cfg)
	return true
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
