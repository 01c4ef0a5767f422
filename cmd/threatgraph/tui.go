package main

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dd0wney/cluso-threatgraph/pkg/engine"
	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
	"github.com/dd0wney/cluso-threatgraph/pkg/graph"
	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
	"github.com/spf13/cobra"
)

//go:embed demo_graph.yaml
var demoGraph []byte

// wheelDelta is the delta reported for one wheel notch
const wheelDelta = 100

// rows used above and below the canvas
const (
	headerRows = 2
	footerRows = 3
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

type keyMap struct {
	Fit     key.Binding
	Reset   key.Binding
	Next    key.Binding
	Clear   key.Binding
	ZoomIn  key.Binding
	ZoomOut key.Binding
	Pause   key.Binding
	Labels  key.Binding
	Help    key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Fit: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "fit view"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset view"),
	),
	Next: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "select next"),
	),
	Clear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear selection"),
	),
	ZoomIn: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "zoom in"),
	),
	ZoomOut: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "zoom out"),
	),
	Pause: key.NewBinding(
		key.WithKeys(" ", "space"),
		key.WithHelp("space", "pause"),
	),
	Labels: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "labels"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "more"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Fit, k.Next, k.Clear, k.Pause, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Fit, k.Reset, k.ZoomIn, k.ZoomOut},
		{k.Next, k.Clear, k.Labels},
		{k.Pause, k.Help, k.Quit},
	}
}

type tickMsg time.Time

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// model owns the engine; bubbletea calls Update from a single goroutine
type model struct {
	engine   *engine.Engine
	interval time.Duration
	frame    engine.Frame
	keys     keyMap
	help     help.Model
	width    int
	height   int
	paused   bool
	labels   bool
	pressed  bool
}

func newModel(e *engine.Engine, interval time.Duration) model {
	return model{
		engine:   e,
		interval: interval,
		frame:    e.Frame(),
		keys:     keys,
		help:     help.New(),
		labels:   true,
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd(m.interval)
}

func (m model) canvasSize() (int, int) {
	return max(m.width, 1), max(m.height-headerRows-footerRows, 1)
}

// screen converts a terminal cell to canvas pixels, addressing the cell centre
func (m model) screen(x, y int) (geometry.Vec2, bool) {
	cw, ch := m.canvasSize()
	cy := y - headerRows
	inside := x >= 0 && x < cw && cy >= 0 && cy < ch
	return geometry.V(float64(x)+0.5, float64(cy)+0.5), inside
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		cw, ch := m.canvasSize()
		m.engine.Resize(geometry.NewSurface(float64(cw), float64(ch)))
		m.frame = m.engine.Frame()

	case tickMsg:
		if m.paused {
			m.frame = m.engine.Frame()
		} else {
			m.frame = m.engine.Tick()
		}
		return m, tickCmd(m.interval)

	case tea.MouseMsg:
		m.handleMouse(msg)
		m.frame = m.engine.Frame()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Fit):
			m.engine.FitView(40)
		case key.Matches(msg, m.keys.Reset):
			m.engine.ResetView()
		case key.Matches(msg, m.keys.Next):
			m.selectNext()
		case key.Matches(msg, m.keys.Clear):
			m.engine.ClearSelection()
		case key.Matches(msg, m.keys.ZoomIn):
			m.zoom(-wheelDelta)
		case key.Matches(msg, m.keys.ZoomOut):
			m.zoom(wheelDelta)
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Labels):
			m.labels = !m.labels
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		m.frame = m.engine.Frame()
	}
	return m, nil
}

func (m *model) handleMouse(msg tea.MouseMsg) {
	p, inside := m.screen(msg.X, msg.Y)

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		if inside {
			m.engine.Wheel(p, -wheelDelta)
		}
	case msg.Button == tea.MouseButtonWheelDown:
		if inside {
			m.engine.Wheel(p, wheelDelta)
		}
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if inside {
			m.engine.PressAt(p)
			m.pressed = true
		}
	case msg.Action == tea.MouseActionMotion:
		if !m.pressed {
			return
		}
		if !inside {
			m.engine.Leave()
			m.pressed = false
			return
		}
		m.engine.Move(p)
	case msg.Action == tea.MouseActionRelease:
		if m.pressed {
			m.engine.Release()
			m.pressed = false
		}
	}
}

func (m *model) zoom(delta float64) {
	cw, ch := m.canvasSize()
	m.engine.Wheel(geometry.V(float64(cw)/2, float64(ch)/2), delta)
}

// selectNext walks the selection through the nodes in graph order
func (m *model) selectNext() {
	nodes := m.engine.Graph().Nodes
	if len(nodes) == 0 {
		return
	}
	current, _ := m.engine.Selected()
	next := 0
	for i, n := range nodes {
		if n.ID == current {
			next = (i + 1) % len(nodes)
			break
		}
	}
	_ = m.engine.Select(nodes[next].ID)
}

func (m model) View() string {
	if m.width == 0 {
		return "loading..."
	}
	cw, ch := m.canvasSize()
	f := m.frame

	var b strings.Builder
	state := "running"
	if m.paused {
		state = "paused"
	}
	b.WriteString(titleStyle.Render("threatgraph"))
	b.WriteString(statusStyle.Render(fmt.Sprintf("  tick %d · %d nodes · %d edges · %s · %s · zoom %.0f",
		f.Tick, len(f.Nodes), len(f.Edges), f.Mode, state, f.Viewport.Width)))
	b.WriteString("\n\n")

	c := newCanvas(cw, ch)
	c.draw(f, m.labels)
	b.WriteString(c.render())
	b.WriteString("\n")

	b.WriteString(m.legend())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m model) legend() string {
	parts := []string{}
	for _, t := range []graph.NodeType{graph.NodeTypeIP, graph.NodeTypeHoneypot, graph.NodeTypeTTP} {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Color())).
			Render(fmt.Sprintf("%c %s", glyphs[t], t)))
	}
	line := strings.Join(parts, "   ")

	if f := m.frame; f.Selected != "" {
		label := f.Selected
		if n, ok := f.Node(f.Selected); ok && n.Label != "" && n.Label != n.ID {
			label = fmt.Sprintf("%s (%s)", n.ID, n.Label)
		}
		line += "   " + selectedStyle.Render(fmt.Sprintf("%s · %d relevant", label, len(f.Relevant)))
	}
	return line
}

func tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Explore a graph interactively in the terminal",
		Long: "Runs the layout engine in the terminal. Drag nodes with the mouse,\n" +
			"drag the canvas to pan and scroll to zoom. Without a graph file a\n" +
			"small demo graph is shown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// the terminal is the UI; keep logs out of it
			logger := logging.NewLogger(io.Discard, logging.ErrorLevel, logging.FormatText)
			e, err := engine.New(cfg.Engine, engine.WithLogger(logger))
			if err != nil {
				return err
			}
			defer e.Close()

			if cfg.Graph.Path != "" {
				if err := loadGraph(e, cfg.Graph.Path); err != nil {
					return err
				}
			} else {
				set, err := graph.Decode(bytes.NewReader(demoGraph), graph.FormatYAML)
				if err != nil {
					return err
				}
				e.SetGraph(set.Nodes, set.Edges)
			}

			p := tea.NewProgram(newModel(e, cfg.Engine.FrameInterval()),
				tea.WithAltScreen(),
				tea.WithMouseCellMotion(),
				tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return err
			}
			return nil
		},
	}
}
