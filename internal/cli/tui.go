package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/uimigrate/pkg/ledger"
)

var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	listHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// FailedPickerModel - Interactive selection of failed units to retry
// =============================================================================

// FailedPickerModel is the bubbletea model behind "ledger retry -i".
type FailedPickerModel struct {
	Units     []ledger.FailedEntry
	Cursor    int
	Offset    int
	Height    int
	Chosen    map[int]bool
	Confirmed bool
	now       func() time.Time
}

// NewFailedPickerModel creates a picker with nothing selected.
func NewFailedPickerModel(units []ledger.FailedEntry) FailedPickerModel {
	return FailedPickerModel{
		Units:  units,
		Height: 15,
		Chosen: make(map[int]bool),
		now:    time.Now,
	}
}

// Selected returns the chosen paths in list order. It is empty unless the
// user confirmed.
func (m FailedPickerModel) Selected() []string {
	if !m.Confirmed {
		return nil
	}
	var out []string
	for i, u := range m.Units {
		if m.Chosen[i] {
			out = append(out, u.Path)
		}
	}
	return out
}

func (m FailedPickerModel) Init() tea.Cmd {
	return nil
}

func (m FailedPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Units)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case " ", "x":
			if len(m.Units) > 0 {
				m.Chosen[m.Cursor] = !m.Chosen[m.Cursor]
			}
		case "a":
			all := len(m.Chosen) < len(m.Units) || containsFalse(m.Chosen)
			for i := range m.Units {
				m.Chosen[i] = all
			}
		case "enter":
			if len(m.Units) > 0 && !anyTrue(m.Chosen) {
				m.Chosen[m.Cursor] = true
			}
			m.Confirmed = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m FailedPickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Retry Failed Units"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle  a all  ⏎ retry  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Units))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		u := m.Units[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		mark := "[ ]"
		if m.Chosen[i] {
			mark = "[x]"
		}
		rows = append(rows, []string{cursor + mark, u.FileName, truncate(u.Reason, 60), fmt.Sprint(u.RetryCount), m.ago(u.FailedAt)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Unit", "Reason", "Tries", "Failed").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return listHeaderStyle
			}
			idx := m.Offset + row
			style := lipgloss.NewStyle()
			if col >= 2 {
				style = style.Foreground(colorDim)
			}
			if m.Chosen[idx] && col < 2 {
				style = style.Foreground(colorGreen)
			}
			if idx == m.Cursor {
				style = style.Bold(true)
			}
			return style
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d] %d selected", m.Cursor+1, len(m.Units), countTrue(m.Chosen))))
	return b.String()
}

func (m FailedPickerModel) ago(t time.Time) string {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	diff := now().Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return t.Local().Format("Jan 2 15:04")
	}
}

// pickFailed runs the picker and returns the chosen paths.
func pickFailed(units []ledger.FailedEntry) ([]string, error) {
	final, err := tea.NewProgram(NewFailedPickerModel(units)).Run()
	if err != nil {
		return nil, err
	}
	return final.(FailedPickerModel).Selected(), nil
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func anyTrue(m map[int]bool) bool { return countTrue(m) > 0 }

func containsFalse(m map[int]bool) bool {
	for _, v := range m {
		if !v {
			return true
		}
	}
	return false
}

func countTrue(m map[int]bool) int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

// displayPath shortens path relative to the working directory when possible.
func displayPath(path string) string {
	if wd, err := filepath.Abs("."); err == nil {
		if rel, err := filepath.Rel(wd, path); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return path
}
