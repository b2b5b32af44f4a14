package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jarvis-nvidia/dm/internal/model"
	"github.com/jarvis-nvidia/dm/internal/panel"
)

// debugModel is the Bubble Tea model for a debug result panel.
type debugModel struct {
	result   *model.DebugResult
	language string
	emit     func(panel.Message) bool

	width    int
	height   int
	selected int
	scroll   int
	notice   panel.Notice
	showHelp bool
}

func newDebugModel(r *model.DebugResult, language string, emit func(panel.Message) bool) debugModel {
	return debugModel{result: r, language: language, emit: emit}
}

func (m debugModel) Init() tea.Cmd {
	return nil
}

func (m debugModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case contentMsg:
		if r, ok := msg.content.(*model.DebugResult); ok {
			m.result = r
			m.selected = 0
			m.scroll = 0
		}
		return m, nil

	case panel.Notice:
		m.notice = msg
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Down):
			if m.selected < len(m.result.Items)-1 {
				m.selected++
				m.scroll = 0
			}

		case key.Matches(msg, keys.Up):
			if m.selected > 0 {
				m.selected--
				m.scroll = 0
			}

		case key.Matches(msg, keys.Copy):
			if item := m.current(); item != nil {
				m.emit(panel.CopyToClipboard{ResultID: item.ID})
			}

		case key.Matches(msg, keys.Apply):
			if item := m.current(); item != nil && item.Solution != "" {
				m.emit(panel.ApplySolution{ResultID: item.ID})
			}

		case key.Matches(msg, keys.Suggest):
			if item := m.current(); item != nil {
				idx := int(msg.String()[0] - '1')
				if idx >= 0 && idx < len(item.Suggestions) {
					m.emit(panel.ApplySuggestion{ResultID: item.ID, Index: idx})
				}
			}

		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
		}
	}

	return m, nil
}

func (m *debugModel) current() *model.DebugItem {
	if m.selected < 0 || m.selected >= len(m.result.Items) {
		return nil
	}
	return &m.result.Items[m.selected]
}

func (m debugModel) View() string {
	if m.width == 0 {
		return "loading..."
	}

	if m.showHelp {
		return renderHelp("Debug", []key.Binding{
			keys.Up, keys.Down, keys.Apply, keys.Suggest, keys.Copy, keys.Help, keys.Quit,
		})
	}

	listWidth := m.width / 3
	detailWidth := m.width - listWidth - 6

	var list strings.Builder
	for i, item := range m.result.Items {
		label := fmt.Sprintf("%s %s", severityStyle(item.Severity).Render("●"), truncate(item.Title, listWidth-4))
		if i == m.selected {
			list.WriteString(itemSelectedStyle.Render(label))
		} else {
			list.WriteString(itemStyle.Render(label))
		}
		list.WriteString("\n")
	}

	var detail strings.Builder
	if item := m.current(); item != nil {
		detail.WriteString(detailHeaderStyle.Render(item.Title))
		detail.WriteString("\n")
		detail.WriteString(severityStyle(item.Severity).Render(strings.ToUpper(item.Severity)))
		detail.WriteString("\n\n")
		detail.WriteString(wrap(item.Description, detailWidth))
		if item.Code != "" {
			detail.WriteString("\n\n")
			detail.WriteString(sectionHeaderStyle.Render("Problem code"))
			detail.WriteString("\n")
			detail.WriteString(codeBlock(item.Code, m.language))
		}
		if item.Solution != "" {
			detail.WriteString("\n\n")
			detail.WriteString(sectionHeaderStyle.Render("Solution"))
			detail.WriteString("\n")
			detail.WriteString(codeBlock(item.Solution, m.language))
		}
		for i, sug := range item.Suggestions {
			detail.WriteString("\n\n")
			detail.WriteString(sectionHeaderStyle.Render(fmt.Sprintf("Suggestion %d: %s", i+1, sug.Description)))
			detail.WriteString("\n")
			detail.WriteString(codeBlock(sug.Code, m.language))
		}
	} else {
		detail.WriteString(severityInfoStyle.Render("No issues found."))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		listStyle.Width(listWidth).Height(m.height-3).Render(list.String()),
		detailStyle.Width(detailWidth).Height(m.height-3).Render(detail.String()),
	)

	return body + "\n" + m.statusBar()
}

func (m debugModel) statusBar() string {
	left := statusBarStyle.Render(fmt.Sprintf("issue %d/%d", m.selected+1, len(m.result.Items)))
	if m.notice.Text != "" {
		style := noticeStyle
		if m.notice.IsError {
			style = noticeErrorStyle
		}
		left += " " + style.Render(m.notice.Text)
	}
	help := helpBar([]key.Binding{keys.Apply, keys.Suggest, keys.Copy, keys.Help, keys.Quit})
	return left + "  " + help
}

func codeBlock(code, language string) string {
	return codeBlockStyle.Render(strings.Join(highlightCode(code, language), "\n"))
}

func renderHelp(title string, bindings []key.Binding) string {
	var b strings.Builder
	b.WriteString(detailHeaderStyle.Render(title + " · Keyboard Shortcuts"))
	b.WriteString("\n\n")
	for _, bind := range bindings {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			helpKeyStyle.Width(12).Render(bind.Help().Key),
			bind.Help().Desc,
		))
	}
	b.WriteString("\n")
	b.WriteString(helpBarStyle.Render("Press ? to close help"))
	return b.String()
}

func helpBar(bindings []key.Binding) string {
	var parts []string
	for _, b := range bindings {
		parts = append(parts, helpKeyStyle.Render(b.Help().Key)+" "+helpBarStyle.Render(b.Help().Desc))
	}
	return strings.Join(parts, helpBarStyle.Render(" · "))
}

func truncate(s string, width int) string {
	if width <= 3 || len(s) <= width {
		return s
	}
	return s[:width-1] + "…"
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	var b strings.Builder
	line := 0
	for _, word := range strings.Fields(s) {
		if line > 0 && line+len(word)+1 > width {
			b.WriteString("\n")
			line = 0
		} else if line > 0 {
			b.WriteString(" ")
			line++
		}
		b.WriteString(word)
		line += len(word)
	}
	return b.String()
}
