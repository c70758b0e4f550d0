package viz

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/barrace/internal/race"
)

// Theme pairs a bar palette with the colours of the surrounding chrome.
type Theme struct {
	Name    string
	Palette []string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
}

var (
	ThemePaired = Theme{
		Name:    "paired",
		Palette: race.Paired,
		Primary: lipgloss.Color("#1f78b4"),
		Accent:  lipgloss.Color("#ff7f00"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#888888"),
	}

	ThemeCategory10 = Theme{
		Name:    "category10",
		Palette: race.Category10,
		Primary: lipgloss.Color("#17becf"),
		Accent:  lipgloss.Color("#ff7f0e"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#7f7f7f"),
	}

	ThemeTableau10 = Theme{
		Name:    "tableau10",
		Palette: race.Tableau10,
		Primary: lipgloss.Color("#4e79a7"),
		Accent:  lipgloss.Color("#edc949"),
		Text:    lipgloss.Color("#f0f0f0"),
		Muted:   lipgloss.Color("#bab0ab"),
	}

	ThemeDark2 = Theme{
		Name:    "dark2",
		Palette: race.Dark2,
		Primary: lipgloss.Color("#1b9e77"),
		Accent:  lipgloss.Color("#e6ab02"),
		Text:    lipgloss.Color("#e0e0e0"),
		Muted:   lipgloss.Color("#666666"),
	}

	// All available themes
	Themes = []Theme{
		ThemePaired,
		ThemeCategory10,
		ThemeTableau10,
		ThemeDark2,
	}
)

// GetTheme returns a theme by name, falling back to paired.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemePaired
}

// NextTheme returns the theme after t, wrapping around.
func NextTheme(t Theme) Theme {
	for i, th := range Themes {
		if th.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

// ThemeNames returns list of available theme names
func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// BarColor maps a colour-scale slot onto the theme palette.
func (t Theme) BarColor(slot int) lipgloss.Color {
	if len(t.Palette) == 0 {
		return t.Text
	}
	return lipgloss.Color(t.Palette[slot%len(t.Palette)])
}
