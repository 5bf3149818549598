package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/tiledb-go"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	arrayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	groupStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("#666666"))

	activeTabStyle = tabStyle.
			Foreground(lipgloss.Color("#FAFAFA")).
			Underline(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// header and footer lines around the detail viewport
const chromeHeight = 6

type modelState int

const (
	stateSelectObject modelState = iota
	stateShowDetail
)

type interactiveModel struct {
	err      error
	ctx      *tiledb.Context
	uri      string
	objects  []tiledb.Object
	panes    []pane
	view     viewport.Model
	selected int
	paneIdx  int
	width    int
	height   int
	loaded   bool
	state    modelState
}

func newInteractiveModel(ctx *tiledb.Context, uri string) *interactiveModel {
	return &interactiveModel{
		ctx:   ctx,
		uri:   uri,
		view:  viewport.New(80, 20),
		state: stateSelectObject,
	}
}

type loadedMsg struct {
	err     error
	objects []tiledb.Object
}

type detailMsg struct {
	err  error
	text string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadObjects
}

func (m *interactiveModel) loadObjects() tea.Msg {
	objects, err := listObjects(m.ctx, m.uri)
	return loadedMsg{objects: objects, err: err}
}

func (m *interactiveModel) loadDetail() tea.Msg {
	text, err := describe(m.ctx, m.objects[m.selected], m.panes[m.paneIdx])
	return detailMsg{text: text, err: err}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.view.Width = msg.Width
		m.view.Height = max(msg.Height-chromeHeight, 1)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectObject && m.selected > 0 {
				m.selected--
				return m, nil
			}

		case "down", "j":
			if m.state == stateSelectObject && m.selected < len(m.objects)-1 {
				m.selected++
				return m, nil
			}

		case "enter":
			if m.state == stateSelectObject && len(m.objects) > 0 {
				m.panes = panesFor(m.objects[m.selected].Type)
				m.paneIdx = 0
				m.state = stateShowDetail
				return m, m.loadDetail
			}

		case "tab", "right", "l":
			if m.state == stateShowDetail {
				m.paneIdx = (m.paneIdx + 1) % len(m.panes)
				return m, m.loadDetail
			}

		case "shift+tab", "left", "h":
			if m.state == stateShowDetail {
				m.paneIdx = (m.paneIdx + len(m.panes) - 1) % len(m.panes)
				return m, m.loadDetail
			}

		case "esc":
			if m.state == stateShowDetail {
				m.state = stateSelectObject
				m.err = nil
				return m, nil
			}
		}

	case loadedMsg:
		m.loaded = true
		m.err = msg.err
		m.objects = msg.objects

	case detailMsg:
		m.err = msg.err
		m.view.SetContent(msg.text)
		m.view.GotoTop()
	}

	if m.state == stateShowDetail {
		var cmd tea.Cmd
		m.view, cmd = m.view.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) View() string {
	if !m.loaded {
		return "Loading " + m.uri + "..."
	}
	if m.err != nil && m.state == stateSelectObject {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("TileDB Inspector"))
	b.WriteString(" ")
	b.WriteString(m.uri)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectObject:
		b.WriteString("Select an object:\n\n")
		for i, obj := range m.objects {
			line := m.formatObject(obj)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter inspect • q quit"))

	case stateShowDetail:
		obj := m.objects[m.selected]
		b.WriteString(m.formatObject(obj))
		b.WriteString("  ")
		for i, p := range m.panes {
			if i == m.paneIdx {
				b.WriteString(activeTabStyle.Render(string(p)))
			} else {
				b.WriteString(tabStyle.Render(string(p)))
			}
		}
		b.WriteString("\n\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(m.view.View())
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next pane • ↑/↓ scroll • esc back • q quit"))
	}
	return b.String()
}

func (m *interactiveModel) formatObject(obj tiledb.Object) string {
	rel := strings.TrimPrefix(strings.TrimPrefix(obj.URI, m.uri), "/")
	if rel == "" {
		rel = obj.URI
	}
	if obj.Type == tiledb.ObjectGroup {
		return groupStyle.Render("GROUP ") + rel
	}
	return arrayStyle.Render("ARRAY ") + rel
}

func runInteractive(ctx *tiledb.Context, uri string) error {
	p := tea.NewProgram(newInteractiveModel(ctx, uri), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
