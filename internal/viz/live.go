package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/dynsolve/internal/body"
	"github.com/san-kum/dynsolve/internal/dynamo"
	"github.com/san-kum/dynsolve/internal/joints"
	"github.com/san-kum/dynsolve/internal/sim"
	"github.com/san-kum/dynsolve/internal/springs"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	trailLength     = 120
	defaultScale    = 24
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(45)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type TickMsg time.Time

// Builder creates a fresh world. It is called once up front and again on
// every reset.
type Builder func() (*sim.World, error)

type point struct{ x, y int }

// Model steps a world on a timer and renders it.
type Model struct {
	build    Builder
	world    *sim.World
	title    string
	dt       float64
	canvas   *Canvas
	viewport Viewport
	trails   map[*body.Body][]point
	running  bool

	errorHistory  []float64
	energyHistory []float64
	history       []sim.Frame
	playHead      int

	lastErr  error
	showHelp bool
}

// NewModel builds the first world. A builder error is returned as is.
func NewModel(build Builder, dt float64, title string) (Model, error) {
	w, err := build()
	if err != nil {
		return Model{}, err
	}
	return Model{
		build:         build,
		world:         w,
		title:         title,
		dt:            dt,
		canvas:        NewCanvas(width, height),
		viewport:      Viewport{Scale: defaultScale},
		trails:        make(map[*body.Body][]point),
		running:       true,
		errorHistory:  make([]float64, 0, historyCapacity),
		energyHistory: make([]float64, 0, historyCapacity),
		history:       make([]sim.Frame, 0, historyCapacity),
		playHead:      -1,
	}, nil
}

func (m Model) World() *sim.World { return m.world }
func (m Model) Running() bool     { return m.running }
func (m Model) PlayHead() int     { return m.playHead }

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "+", "=":
			m.viewport.ZoomIn()
		case "-", "_":
			m.viewport.ZoomOut()
		case "?":
			m.showHelp = !m.showHelp
		case "t":
			NextTheme()
		}
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				m.step()
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		return m, tick()
	}
	return m, nil
}

// step advances the world and records its frame.
func (m *Model) step() {
	if errs := m.world.Step(m.dt); len(errs) > 0 {
		m.lastErr = errs[len(errs)-1]
	}

	frame := m.world.Snapshot()
	m.history = pushBounded(m.history, frame)

	maxErr := 0.0
	for _, e := range frame.Errors {
		if !math.IsNaN(e) {
			maxErr = max(maxErr, e)
		}
	}
	m.errorHistory = pushBounded(m.errorHistory, maxErr)

	energy := 0.0
	for _, b := range m.world.Bodies() {
		energy += b.KineticEnergy()
	}
	m.energyHistory = pushBounded(m.energyHistory, energy)

	for _, b := range m.world.Bodies() {
		x, y := m.viewport.Project(m.canvas, b.Position)
		trail := append(m.trails[b], point{x, y})
		if len(trail) > trailLength {
			trail = trail[1:]
		}
		m.trails[b] = trail
	}
}

func pushBounded[T any](s []T, v T) []T {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

// scrub changes the playback position in history.
func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

// reset rebuilds the world from the builder.
func (m *Model) reset() {
	w, err := m.build()
	if err != nil {
		m.lastErr = err
		return
	}
	m.world = w
	m.trails = make(map[*body.Body][]point)
	m.errorHistory = m.errorHistory[:0]
	m.energyHistory = m.energyHistory[:0]
	m.history = m.history[:0]
	m.playHead = -1
	m.lastErr = nil
}

// pose returns the body pose to draw: the live body, or the recorded frame
// while replaying. i indexes the world's recorded bodies.
func (m *Model) pose(i int, b *body.Body) (mgl64.Vec2, float64) {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		f := m.history[m.playHead]
		if i < len(f.Bodies) && !f.Bodies[i].Removed {
			return f.Bodies[i].Position, f.Bodies[i].Rotation
		}
	}
	return b.Position, b.Rotation
}

func (m *Model) draw() {
	m.canvas.Clear()

	recorded := m.world.RecordedBodies()
	index := make(map[*body.Body]int, len(recorded))
	for i, b := range recorded {
		index[b] = i
	}
	worldPoint := func(b *body.Body, local mgl64.Vec2) (int, int) {
		pos, rot := m.pose(index[b], b)
		return m.viewport.Project(m.canvas, pos.Add(mgl64.Rotate2D(rot).Mul2x1(local)))
	}

	for _, trail := range m.trails {
		for _, p := range trail {
			m.canvas.Set(p.x, p.y)
		}
	}

	for _, j := range m.world.Joints() {
		rj, ok := j.(*joints.FixedRevoluteJoint)
		if !ok || rj.Body() == nil {
			continue
		}
		ax, ay := m.viewport.Project(m.canvas, rj.Anchor())
		m.canvas.DrawCross(ax, ay, 2)
		if rj.Status() != dynamo.StatusActive {
			continue
		}
		bx, by := worldPoint(rj.Body(), rj.LocalAnchor())
		cx, cy := worldPoint(rj.Body(), mgl64.Vec2{})
		m.canvas.DrawLine(bx, by, cx, cy)
	}

	for _, c := range m.world.Controllers() {
		s, ok := c.(*springs.FixedLinearSpring)
		if !ok {
			continue
		}
		wx, wy := m.viewport.Project(m.canvas, s.WorldAttachPoint())
		m.canvas.DrawCross(wx, wy, 2)
		if s.Status() != dynamo.StatusActive {
			continue
		}
		bx, by := worldPoint(s.Body(), s.BodyAttachPoint())
		m.canvas.DrawDashed(wx, wy, bx, by, 2)
	}

	for _, b := range m.world.Bodies() {
		x, y := worldPoint(b, mgl64.Vec2{})
		m.canvas.DrawDisc(x, y, 2)
		hx, hy := worldPoint(b, mgl64.Vec2{0.3, 0})
		m.canvas.DrawLine(x, y, hx, hy)
	}
}

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Render(m.canvas.String()))

	status := "RUNNING"
	t := m.world.Time()
	if m.playHead >= 0 && m.playHead < len(m.history) {
		t = m.history[m.playHead].Time
		status = fmt.Sprintf("REPLAY (%.1fs)", t-m.world.Time())
	}
	if !m.running {
		status = "PAUSED"
		if m.playHead != -1 {
			status = fmt.Sprintf("REPLAY PAUSED (%.1fs)", t-m.world.Time())
		}
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(status + "\n\n")

	if len(m.errorHistory) > 1 {
		chart := asciigraph.Plot(m.errorHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Max constraint error"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(Row("Time", "%.2fs", t))
	s.WriteString(Row("Steps", "%d", m.world.StepCount()))
	s.WriteString(Row("Broken", "%d", m.world.Broken()))
	s.WriteString(Row("Arbiters", "%d", m.world.Arbiters().Len()))
	s.WriteString(MetricLabel.Render("Energy") + SparklineChart(m.energyHistory, 20) + "\n")

	s.WriteString("\nCONSTRAINTS\n")
	constraints := make([]dynamo.Constraint, 0, len(m.world.Joints())+len(m.world.Controllers()))
	for _, j := range m.world.Joints() {
		constraints = append(constraints, j)
	}
	for _, c := range m.world.Controllers() {
		constraints = append(constraints, c)
	}
	if len(constraints) == 0 {
		s.WriteString(Subtle.Render("  (none)") + "\n")
	}
	for i, c := range constraints {
		fmt.Fprintf(&s, "  %-2d %s %s %.4f\n", i,
			StatusStyle(c.Status()).Render(fmt.Sprintf("%-8s", c.Status())),
			LoadBar(c.Error(), c.Breakpoint(), 10),
			c.Error())
	}

	if m.lastErr != nil {
		s.WriteString("\n" + errStyle.Render(m.lastErr.Error()) + "\n")
	}

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\nT:Theme  +/-:Zoom ?:Help\n[ ]:Time-Travel"))
	statsView := statsStyle.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  R        - Rebuild the scene        ║
║  Q        - Quit                     ║
║  +/-      - Zoom in/out              ║
║  [        - Rewind (time travel)     ║
║  ]        - Forward (time travel)    ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

// RunLive opens the live view on a world built by build.
func RunLive(build Builder, dt float64, title string) error {
	m, err := NewModel(build, dt, title)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
