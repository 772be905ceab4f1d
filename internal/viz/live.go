package viz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/md"
)

const (
	width           = 60
	height          = 20
	historyCapacity = 600
	stepsPerTick    = 4
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(48)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Snapshot is one frame of a run together with the structure after it.
type Snapshot struct {
	Frame     md.Frame
	Structure *atoms.Structure
}

// Start runs sim in its own goroutine. Frames are delivered on the first
// channel, which is closed after the run's error (nil on success) was sent on
// the second. A reader that stops receiving pauses the run; cancelling ctx
// ends it.
func Start(ctx context.Context, sim *md.Simulator, steps int) (<-chan Snapshot, <-chan error) {
	snaps := make(chan Snapshot, 1)
	done := make(chan error, 1)
	go func() {
		err := sim.RunWithCallback(ctx, steps, func(f md.Frame, st *atoms.Structure) bool {
			select {
			case snaps <- Snapshot{Frame: f, Structure: st}:
				return true
			case <-ctx.Done():
				return false
			}
		})
		done <- err
		close(snaps)
	}()
	return snaps, done
}

// Model is the live view of one MD run.
type Model struct {
	title      string
	totalSteps int
	snaps      <-chan Snapshot
	done       <-chan error
	cancel     context.CancelFunc

	running  bool
	finished bool
	showHelp bool
	err      error

	current *atoms.Structure
	frames  []md.Frame
	total   []float64
	kinetic []float64

	camera *Camera
	canvas *Canvas
	theme  Theme
}

func NewModel(title string, totalSteps int, snaps <-chan Snapshot, done <-chan error, cancel context.CancelFunc) Model {
	return Model{
		title:      title,
		totalSteps: totalSteps,
		snaps:      snaps,
		done:       done,
		cancel:     cancel,
		running:    true,
		total:      make([]float64, 0, historyCapacity),
		kinetic:    make([]float64, 0, historyCapacity),
		camera:     NewCamera(),
		canvas:     NewCanvas(width, height),
		theme:      Themes[0],
	}
}

// Frames returns every frame received so far.
func (m Model) Frames() []md.Frame { return m.frames }

// Err returns the error the run ended with.
func (m Model) Err() error { return m.err }

func (m Model) Finished() bool { return m.finished }

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "?":
			m.showHelp = !m.showHelp
		case "t":
			m.theme = m.theme.next()
		case "r":
			m.camera.Reset()
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		}
	case TickMsg:
		if m.running && !m.finished {
			m.pull()
		}
		return m, tick()
	}
	return m, nil
}

// pull takes up to stepsPerTick frames without blocking.
func (m *Model) pull() {
	for range stepsPerTick {
		select {
		case s, ok := <-m.snaps:
			if !ok {
				m.finish()
				return
			}
			m.record(s)
		default:
			return
		}
	}
}

func (m *Model) finish() {
	m.finished = true
	select {
	case err := <-m.done:
		m.err = err
	default:
	}
}

func (m *Model) record(s Snapshot) {
	m.frames = append(m.frames, s.Frame)
	m.current = s.Structure
	m.total = appendCapped(m.total, s.Frame.Total())
	m.kinetic = appendCapped(m.kinetic, s.Frame.Kinetic)
}

func appendCapped(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[1:]
	}
	return h
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return StatusFailed.Render("FAILED")
	case m.finished:
		return StatusRunning.Render("FINISHED")
	case !m.running:
		return StatusPaused.Render("PAUSED")
	}
	return StatusRunning.Render("RUNNING")
}

func (m Model) View() string {
	m.camera.Render(m.canvas, m.current)
	canvasView := canvasStyle.Foreground(m.theme.Cell).Render(m.canvas.String())

	var s strings.Builder
	header := lipgloss.NewStyle().Foreground(m.theme.Header).Bold(true)
	s.WriteString(header.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status() + "\n\n")

	var last md.Frame
	if n := len(m.frames); n > 0 {
		last = m.frames[n-1]
	}
	progress := 0.0
	if m.totalSteps > 0 {
		progress = float64(last.Step) / float64(m.totalSteps)
	}
	s.WriteString(ProgressBar(progress, 30) + fmt.Sprintf(" %d/%d\n\n", last.Step, m.totalSteps))

	if len(m.total) > 1 {
		chart := asciigraph.Plot(m.total, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption("Total energy"))
		s.WriteString(lipgloss.NewStyle().Foreground(m.theme.Graph).Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(MetricLabel.Render(label) + MetricValue.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.3f", last.Time))
	row("Kinetic", fmt.Sprintf("%.6f", last.Kinetic))
	row("Potential", fmt.Sprintf("%.6f", last.Potential))
	row("Total", fmt.Sprintf("%.6f", last.Total()))
	row("Drift", fmt.Sprintf("%.2e", m.drift()))
	if m.current != nil {
		row("Atoms", fmt.Sprintf("%d", m.current.Len()))
	}
	s.WriteString(MetricLabel.Render("Kinetic") + Sparkline(m.kinetic, 30) + "\n")
	if m.err != nil {
		s.WriteString("\n" + StatusFailed.Render(m.err.Error()) + "\n")
	}

	s.WriteString(helpStyle.Render("SP:Pause Q:Quit T:Theme ?:Help"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return KeyHint.Render(helpText) + "\n\n" + mainView
	}
	return mainView
}

const helpText = `Space  pause or resume the run
x/X    rotate about the horizontal axis
y/Y    rotate about the vertical axis
+/-    zoom
r      reset the view
t      cycle themes
q      stop the run and quit`

// drift is the relative change of the total energy since the first frame.
func (m Model) drift() float64 {
	if len(m.frames) < 2 {
		return 0
	}
	first := m.frames[0].Total()
	if first == 0 {
		return 0
	}
	return math.Abs(m.frames[len(m.frames)-1].Total()-first) / math.Abs(first)
}

// Run shows sim in the terminal until the run ends and the user quits, and
// returns the frames received. Quitting early is not an error.
func Run(ctx context.Context, sim *md.Simulator, steps int, title string) ([]md.Frame, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	snaps, done := Start(ctx, sim, steps)
	final, err := tea.NewProgram(NewModel(title, steps, snaps, done, cancel), tea.WithAltScreen()).Run()
	if err != nil {
		return nil, err
	}
	m := final.(Model)
	if err := m.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return m.Frames(), err
	}
	return m.Frames(), nil
}
