package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the color scheme of the live viewer.
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Text    lipgloss.Color
	// Relaxed, Strained and Critical color edges by stress.
	Relaxed  lipgloss.Color
	Strained lipgloss.Color
	Critical lipgloss.Color
}

var (
	ThemeCyberpunk = Theme{
		Name:     "cyberpunk",
		Primary:  lipgloss.Color("#00ffff"),
		Muted:    lipgloss.Color("#666666"),
		Text:     lipgloss.Color("#ffffff"),
		Relaxed:  lipgloss.Color("#00ff00"),
		Strained: lipgloss.Color("#ff8800"),
		Critical: lipgloss.Color("#ff0000"),
	}

	ThemeRetroGreen = Theme{
		Name:     "retro",
		Primary:  lipgloss.Color("#00ff00"),
		Muted:    lipgloss.Color("#005500"),
		Text:     lipgloss.Color("#00ff00"),
		Relaxed:  lipgloss.Color("#88ff88"),
		Strained: lipgloss.Color("#ffff00"),
		Critical: lipgloss.Color("#ff0000"),
	}

	ThemeOcean = Theme{
		Name:     "ocean",
		Primary:  lipgloss.Color("#00a8cc"),
		Muted:    lipgloss.Color("#4488aa"),
		Text:     lipgloss.Color("#e0f0ff"),
		Relaxed:  lipgloss.Color("#00ff88"),
		Strained: lipgloss.Color("#ffcc00"),
		Critical: lipgloss.Color("#ff4444"),
	}

	Themes = []Theme{
		ThemeCyberpunk,
		ThemeRetroGreen,
		ThemeOcean,
	}
)

// GetTheme returns a theme by name, falling back to the first one.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

func (t Theme) stressStyles() [3]lipgloss.Style {
	return [3]lipgloss.Style{
		lipgloss.NewStyle().Foreground(t.Relaxed),
		lipgloss.NewStyle().Foreground(t.Strained),
		lipgloss.NewStyle().Foreground(t.Critical),
	}
}

// StressColor picks the edge color for a stress in [0, 1].
func (t Theme) StressColor(heat float64) lipgloss.Color {
	switch {
	case heat < 1.0/3:
		return t.Relaxed
	case heat < 2.0/3:
		return t.Strained
	default:
		return t.Critical
	}
}
