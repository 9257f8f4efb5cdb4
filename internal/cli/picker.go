package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// formatPicker is the bubbletea model for choosing an output format.
// Typing filters the list by substring.
type formatPicker struct {
	title    string
	choices  []string
	filter   string
	cursor   int
	offset   int
	height   int
	selected string
}

func newFormatPicker(title string, choices []string) formatPicker {
	return formatPicker{title: title, choices: choices, height: 12}
}

func (m formatPicker) visible() []string {
	if m.filter == "" {
		return m.choices
	}
	var out []string
	for _, c := range m.choices {
		if strings.Contains(c, m.filter) {
			out = append(out, c)
		}
	}
	return out
}

func (m formatPicker) Init() tea.Cmd { return nil }

func (m formatPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case tea.KeyDown:
			if m.cursor < len(m.visible())-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case tea.KeyEnter:
			if v := m.visible(); len(v) > 0 {
				m.selected = v[m.cursor]
				return m, tea.Quit
			}
		case tea.KeyBackspace:
			if m.filter != "" {
				m.filter = m.filter[:len(m.filter)-1]
				m.cursor, m.offset = 0, 0
			}
		case tea.KeyRunes:
			m.filter += string(msg.Runes)
			m.cursor, m.offset = 0, 0
		}
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m formatPicker) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  esc quit  type to filter"))
	b.WriteString("\n")
	if m.filter != "" {
		b.WriteString(StyleHighlight.Render("filter: " + m.filter))
	}
	b.WriteString("\n")

	v := m.visible()
	end := min(m.offset+m.height, len(v))
	for i := m.offset; i < end; i++ {
		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render("▸ " + v[i]))
		} else {
			b.WriteString(listNormalStyle.Render("  " + v[i]))
		}
		b.WriteString("\n")
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", min(m.cursor+1, len(v)), len(v))))
	return b.String()
}

// interactive reports whether a picker can be shown on in.
func interactive(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// pickFormat runs the picker and returns the chosen identifier, or "" if
// the user quit.
func pickFormat(in io.Reader, out io.Writer, title string, choices []string) (string, error) {
	p := tea.NewProgram(newFormatPicker(title, choices), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("format picker: %w", err)
	}
	fm, ok := final.(formatPicker)
	if !ok {
		return "", nil
	}
	return fm.selected, nil
}
