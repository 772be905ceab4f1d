package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the color scheme of the live view.
type Theme struct {
	Name   string
	Cell   lipgloss.Color
	Header lipgloss.Color
	Graph  lipgloss.Color
	Accent lipgloss.Color
	Muted  lipgloss.Color
}

var (
	ThemePhosphor = Theme{
		Name:   "phosphor",
		Cell:   lipgloss.Color("#00ff88"),
		Header: lipgloss.Color("86"),
		Graph:  lipgloss.Color("49"),
		Accent: lipgloss.Color("205"),
		Muted:  lipgloss.Color("240"),
	}

	ThemeOcean = Theme{
		Name:   "ocean",
		Cell:   lipgloss.Color("#00a8cc"),
		Header: lipgloss.Color("#e0f0ff"),
		Graph:  lipgloss.Color("#0077be"),
		Accent: lipgloss.Color("#ffd700"),
		Muted:  lipgloss.Color("#4488aa"),
	}

	ThemeMono = Theme{
		Name:   "mono",
		Cell:   lipgloss.Color("#ffffff"),
		Header: lipgloss.Color("#ffffff"),
		Graph:  lipgloss.Color("#cccccc"),
		Accent: lipgloss.Color("#0088ff"),
		Muted:  lipgloss.Color("#888888"),
	}

	Themes = []Theme{ThemePhosphor, ThemeOcean, ThemeMono}
)

// GetTheme returns a theme by name, the first theme for unknown names.
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

// next returns the theme after t, wrapping around.
func (t Theme) next() Theme {
	for i, th := range Themes {
		if th.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}
