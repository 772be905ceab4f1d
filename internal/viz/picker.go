package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/petrichorcode/pysic/internal/config"
)

var (
	cyan = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	dim  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

// Choice names one preset.
type Choice struct {
	System, Preset string
	Summary        string
}

func (c Choice) String() string { return c.System + "/" + c.Preset }

// Choices lists every preset with a one-line summary.
func Choices() []Choice {
	var out []Choice
	for _, system := range config.ListSystems() {
		for _, preset := range config.ListPresets(system) {
			cfg := config.GetPreset(system, preset)
			types := make([]string, 0, len(cfg.Potentials))
			for _, p := range cfg.Potentials {
				types = append(types, p.Type)
			}
			summary := fmt.Sprintf("%d atoms, %s", len(cfg.Atoms), strings.Join(types, "+"))
			if cfg.Coulomb != nil {
				summary += ", " + cfg.Coulomb.Method
			}
			out = append(out, Choice{System: system, Preset: preset, Summary: summary})
		}
	}
	return out
}

// Picker is a menu over presets. After the program ends, Selected reports
// the chosen preset, if any.
type Picker struct {
	choices  []Choice
	cursor   int
	selected bool
}

func NewPicker(choices []Choice) Picker {
	return Picker{choices: choices}
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.choices)-1 {
			p.cursor++
		}
	case "enter":
		if len(p.choices) > 0 {
			p.selected = true
			return p, tea.Quit
		}
	}
	return p, nil
}

func (p Picker) Selected() (Choice, bool) {
	if !p.selected {
		return Choice{}, false
	}
	return p.choices[p.cursor], true
}

func (p Picker) View() string {
	var b strings.Builder
	b.WriteString(cyan.Bold(true).Render("PYSIC PRESETS") + "\n\n")
	for i, c := range p.choices {
		line := fmt.Sprintf("%-16s %s", c.String(), dim.Render(c.Summary))
		if i == p.cursor {
			b.WriteString(cyan.Render("> ") + line + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	b.WriteString("\n" + KeyHint.Render("↑↓ move  enter select  q quit"))
	return b.String()
}

// Pick runs the picker and returns the chosen preset. ok is false when the
// user quit without choosing.
func Pick() (choice Choice, ok bool, err error) {
	final, err := tea.NewProgram(NewPicker(Choices())).Run()
	if err != nil {
		return Choice{}, false, err
	}
	choice, ok = final.(Picker).Selected()
	return choice, ok, nil
}
