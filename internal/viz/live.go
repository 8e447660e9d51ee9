package viz

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/softsim/internal/config"
	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/vecmath"
)

const (
	defaultWidth    = 60
	defaultHeight   = 24
	statsWidth      = 42
	historyCapacity = 300
	frameRate       = 60

	// a frame that needs more ticks than this is dropped behind real time
	maxStepsPerFrame = 2000

	kickSpeed    = 1.0
	minTimeScale = 0.01
	maxTimeScale = 10.0
	timeScaleInc = 0.01
	minBoxSize   = 1.0
)

type TickMsg time.Time

// Model is the live viewer: one scene, the world built from it and the
// real-time pacing state.
type Model struct {
	scene         *config.Config
	world         *sim.World
	canvas        *Canvas
	running       bool
	timeScale     float64
	pending       float64
	behind        bool
	energyHistory []float64
	theme         int
	err           error
}

// NewModel builds the scene's world. The viewer starts paused.
func NewModel(scene *config.Config) (Model, error) {
	w, err := scene.Build()
	if err != nil {
		return Model{}, err
	}
	return Model{
		scene:         scene,
		world:         w,
		canvas:        NewCanvas(defaultWidth, defaultHeight),
		timeScale:     1,
		energyHistory: make([]float64, 0, historyCapacity),
	}, nil
}

func (m Model) World() *sim.World        { return m.world }
func (m Model) Running() bool            { return m.running }
func (m Model) TimeScale() float64       { return m.timeScale }
func (m Model) EnergyHistory() []float64 { return m.energyHistory }

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles keys, resizes and frame ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w, h := msg.Width-statsWidth-6, msg.Height-3
		if w > 10 && h > 5 {
			m.canvas = NewCanvas(w, h)
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "+", "=":
			if m.timeScale <= maxTimeScale-timeScaleInc {
				m.timeScale = round2(m.timeScale + timeScaleInc)
			}
		case "-", "_":
			if m.timeScale > minTimeScale {
				m.timeScale = round2(m.timeScale - timeScaleInc)
			}
		case "r":
			m.reset()
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
		case "up":
			m.kick(vecmath.New(0, -kickSpeed))
		case "down":
			m.kick(vecmath.New(0, kickSpeed))
		case "left":
			m.kick(vecmath.New(-kickSpeed, 0))
		case "right":
			m.kick(vecmath.New(kickSpeed, 0))
		case "[":
			m.resize(-1)
		case "]":
			m.resize(1)
		}
	case TickMsg:
		if m.running {
			m.advance(time.Second / frameRate)
		}
		return m, tick()
	}
	return m, nil
}

// advance runs as many ticks as timeScale seconds of simulation per
// wall-clock second require, carrying the fraction over to the next frame.
func (m *Model) advance(frame time.Duration) {
	m.pending += m.timeScale * frame.Seconds() / m.scene.Dt
	n := int(m.pending)
	m.pending -= float64(n)

	m.behind = n > maxStepsPerFrame
	if m.behind {
		n = maxStepsPerFrame
		m.pending = 0
	}

	for i := 0; i < n; i++ {
		m.world.AdvanceSimulation(m.scene.Dt)
	}
	if n > 0 {
		m.energyHistory = append(m.energyHistory, m.world.TotalEnergy())
		if len(m.energyHistory) > historyCapacity {
			m.energyHistory = m.energyHistory[1:]
		}
	}
}

func (m *Model) kick(v vecmath.Vec2) {
	if len(m.world.Bodies()) == 0 {
		return
	}
	m.world.Bodies()[0].AddVelocity(v)
}

func (m *Model) resize(delta float64) {
	p := m.world.Params()
	w, h := math.Max(p.Width+delta, minBoxSize), math.Max(p.Height+delta, minBoxSize)
	if err := m.world.SetBounds(w, h); err != nil {
		m.err = err
	}
}

// reset rebuilds the world from the scene.
func (m *Model) reset() {
	w, err := m.scene.Build()
	if err != nil {
		m.err = err
		return
	}
	log.Printf("viz: reset scene %q", m.scene.Name)
	m.world = w
	m.pending = 0
	m.behind = false
	m.energyHistory = m.energyHistory[:0]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// View renders the canvas next to the stats panel.
func (m Model) View() string {
	theme := Themes[m.theme]
	DrawSnapshot(m.canvas, m.world.Snapshot())
	canvasView := canvasStyle.Render(m.canvas.Render(theme.stressStyles()))

	var s strings.Builder
	title := m.scene.Name
	if title == "" {
		title = "scene"
	}
	s.WriteString(headerStyle(theme).Render(strings.ToUpper(title)) + "\n")

	switch {
	case !m.running:
		s.WriteString(statusPaused.Render("PAUSED [SPACE]"))
	case m.behind:
		s.WriteString(statusBehind.Render("BEHIND REAL TIME"))
	default:
		s.WriteString(statusRunning.Render("RUNNING"))
	}
	s.WriteString("\n\n")

	edges, torn := 0, m.world.TornEdges()
	for _, b := range m.world.Bodies() {
		edges += b.NumEdges()
	}
	p := m.world.Params()
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.world.Time()))
	row("Tick", fmt.Sprintf("%d", m.world.Ticks()))
	row("Time scale", fmt.Sprintf("%.2fx", m.timeScale))
	row("Box", fmt.Sprintf("%.0fm x %.0fm", p.Width, p.Height))
	row("Nodes", fmt.Sprintf("%d", m.world.NumNodes()))
	row("Edges", fmt.Sprintf("%d (%d torn)", edges, torn))
	row("Energy", fmt.Sprintf("%.4f", m.world.TotalEnergy()))

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(5), asciigraph.Width(statsWidth-12), asciigraph.Caption("Energy"))
		s.WriteString(graphStyle(theme).Render(chart) + "\n")
	}
	if m.err != nil {
		s.WriteString(statusBehind.Render(m.err.Error()) + "\n")
	}

	s.WriteString(helpStyle.Render("SP:Pause +/-:Speed R:Reset Q:Quit\n←↑↓→:Kick [ ]:Box T:Theme(" + theme.Name + ")"))

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
}
