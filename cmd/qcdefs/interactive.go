package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/qcvm-bridge/config"
	"github.com/wippyai/qcvm-bridge/progs"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// pageSize bounds how many definitions are drawn at once.
const pageSize = 20

type entry struct {
	def   progs.Definition
	space string
}

type modelState int

const (
	stateBrowse modelState = iota
	stateEdit
	stateShowResult
)

type interactiveModel struct {
	err      error
	cfg      *config.Config
	session  *session
	result   string
	entries  []entry
	visible  []int
	filter   textinput.Model
	value    textinput.Model
	selected int
	state    modelState
}

type loadedMsg struct {
	err     error
	session *session
}

func newInteractiveModel(cfg *config.Config) *interactiveModel {
	filter := textinput.New()
	filter.Placeholder = "filter"
	filter.Prompt = "/ "
	filter.Width = 40
	filter.Focus()

	value := textinput.New()
	value.Width = 40

	return &interactiveModel{cfg: cfg, filter: filter, value: value, state: stateBrowse}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.load, textinput.Blink)
}

func (m *interactiveModel) load() tea.Msg {
	s, err := open(context.Background(), m.cfg)
	return loadedMsg{session: s, err: err}
}

func (m *interactiveModel) applyFilter() {
	q := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for i, e := range m.entries {
		if q == "" || strings.Contains(strings.ToLower(e.def.Name), q) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *interactiveModel) current() (entry, bool) {
	if len(m.visible) == 0 {
		return entry{}, false
	}
	return m.entries[m.visible[m.selected]], true
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.session != nil {
				m.session.close(context.Background())
			}
			return m, tea.Quit

		case "up":
			if m.state == stateBrowse && m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down":
			if m.state == stateBrowse && m.selected < len(m.visible)-1 {
				m.selected++
			}
			return m, nil

		case "enter":
			switch m.state {
			case stateBrowse:
				e, ok := m.current()
				if !ok {
					return m, nil
				}
				m.value.Reset()
				m.value.Prompt = e.def.Name + " = "
				m.value.Placeholder = e.def.Type.Base().String()
				m.filter.Blur()
				m.value.Focus()
				m.state = stateEdit
				return m, nil

			case stateEdit:
				e, _ := m.current()
				m.result, m.err = m.store(e)
				m.value.Blur()
				m.state = stateShowResult
				return m, nil

			case stateShowResult:
				m.back()
				return m, nil
			}

		case "esc":
			if m.state != stateBrowse {
				m.back()
				return m, nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.session = msg.session
		refl := msg.session.inst.Reflection()
		for _, def := range sortedDefs(refl.Globals()) {
			m.entries = append(m.entries, entry{def: def, space: "global"})
		}
		for _, def := range sortedDefs(refl.Fields()) {
			m.entries = append(m.entries, entry{def: def, space: "field"})
		}
		m.applyFilter()
		return m, nil
	}

	var cmd tea.Cmd
	switch m.state {
	case stateBrowse:
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
	case stateEdit:
		m.value, cmd = m.value.Update(msg)
	}
	return m, cmd
}

func (m *interactiveModel) back() {
	m.state = stateBrowse
	m.result = ""
	m.err = nil
	m.value.Blur()
	m.filter.Focus()
}

// store parses the typed value into the selected global, or into entity 0
// for fields.
func (m *interactiveModel) store(e entry) (string, error) {
	ent := progs.EntityRef(-1)
	if e.space == "field" {
		ent = 0
	}
	return set(m.session.inst, e.def.Name, m.value.Value(), ent)
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+c to quit.", m.err))
	}
	if m.session == nil {
		return "Loading definitions..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("QC Definitions"))
	b.WriteString(" ")
	b.WriteString(m.cfg.ManifestPath())
	b.WriteString("\n\n")

	switch m.state {
	case stateBrowse:
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
		start := 0
		if m.selected >= pageSize {
			start = m.selected - pageSize + 1
		}
		end := min(start+pageSize, len(m.visible))
		for i := start; i < end; i++ {
			line := m.formatEntry(m.entries[m.visible[i]])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("\n%d of %d\n", len(m.visible), len(m.entries)))
		b.WriteString(helpStyle.Render("type to filter • ↑/↓ select • enter set value • ctrl+c quit"))

	case stateEdit:
		e, _ := m.current()
		b.WriteString(fmt.Sprintf("Set %s %s\n\n", e.space, nameStyle.Render(e.def.Name)))
		b.WriteString(m.value.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter store • esc back"))

	case stateShowResult:
		e, _ := m.current()
		b.WriteString(fmt.Sprintf("%s:\n\n", nameStyle.Render(e.def.Name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • ctrl+c quit"))
	}
	return b.String()
}

func (m *interactiveModel) formatEntry(e entry) string {
	return fmt.Sprintf("%-7s %s %s @%d",
		e.space, nameStyle.Render(e.def.Name), typeStyle.Render(e.def.Type.Base().String()), e.def.Offset)
}

func runInteractive(cfg *config.Config) error {
	p := tea.NewProgram(newInteractiveModel(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
