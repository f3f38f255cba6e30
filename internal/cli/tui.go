package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// rootModuleItem is the picker entry for the aggregator itself.
const rootModuleItem = "."

// ModuleListModel is the bubbletea model for picking a module out of a
// multi-module build.
type ModuleListModel struct {
	Modules  []string
	Cursor   int
	Selected string
	Height   int
	Offset   int
}

// NewModuleListModel creates a picker over the aggregator and its declared
// modules.
func NewModuleListModel(modules []string) ModuleListModel {
	items := append([]string{rootModuleItem}, modules...)
	return ModuleListModel{
		Modules: items,
		Height:  15,
	}
}

func (m ModuleListModel) Init() tea.Cmd {
	return nil
}

func (m ModuleListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Modules)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			m.Selected = m.Modules[m.Cursor]
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m ModuleListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Module"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Modules) {
		end = len(m.Modules)
	}

	for i := m.Offset; i < end; i++ {
		item := m.Modules[i]
		label := item
		if item == rootModuleItem {
			label = "(aggregator)"
		}

		cursor := "  "
		style := listNormalStyle
		if i == m.Cursor {
			cursor = "▸ "
			style = listSelectedStyle
		}
		b.WriteString(cursor + style.Render(label) + "\n")
	}

	return b.String()
}

// pickModule runs the interactive module picker and returns the chosen
// module path, or rootModuleItem for the aggregator itself.
func pickModule(modules []string) (string, error) {
	program := tea.NewProgram(NewModuleListModel(modules))
	final, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("module picker: %w", err)
	}
	model, ok := final.(ModuleListModel)
	if !ok || model.Selected == "" {
		return "", fmt.Errorf("no module selected")
	}
	return model.Selected, nil
}
