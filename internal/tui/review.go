package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jarvis-nvidia/dm/internal/editor"
	"github.com/jarvis-nvidia/dm/internal/model"
	"github.com/jarvis-nvidia/dm/internal/panel"
)

// reviewModel is the Bubble Tea model for a review result panel. Comments
// can be filtered to a single file; filtering is reported to the pipeline
// so it stays the source of truth for panel state.
type reviewModel struct {
	result *model.ReviewResult
	emit   func(panel.Message) bool

	files      []string
	fileFilter int // -1 = all files

	width    int
	height   int
	selected int
	notice   panel.Notice
	showHelp bool
}

func newReviewModel(r *model.ReviewResult, emit func(panel.Message) bool) reviewModel {
	return reviewModel{
		result:     r,
		emit:       emit,
		files:      r.Files(),
		fileFilter: -1,
	}
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

// visible returns the comments under the current file filter.
func (m reviewModel) visible() []model.ReviewComment {
	if m.fileFilter < 0 || m.fileFilter >= len(m.files) {
		return m.result.Comments
	}
	file := m.files[m.fileFilter]
	var out []model.ReviewComment
	for _, c := range m.result.Comments {
		if c.File == file {
			out = append(out, c)
		}
	}
	return out
}

func (m *reviewModel) current() *model.ReviewComment {
	visible := m.visible()
	if m.selected < 0 || m.selected >= len(visible) {
		return nil
	}
	return &visible[m.selected]
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case contentMsg:
		if r, ok := msg.content.(*model.ReviewResult); ok {
			m.result = r
			m.files = r.Files()
			m.fileFilter = -1
			m.selected = 0
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
			if m.selected < len(m.visible())-1 {
				m.selected++
			}

		case key.Matches(msg, keys.Up):
			if m.selected > 0 {
				m.selected--
			}

		case key.Matches(msg, keys.NextFile):
			if len(m.files) > 0 {
				m.fileFilter = (m.fileFilter + 1) % len(m.files)
				m.selected = 0
				m.emit(panel.SelectFile{File: m.files[m.fileFilter]})
			}

		case key.Matches(msg, keys.AllFiles):
			m.fileFilter = -1
			m.selected = 0
			m.emit(panel.SelectFile{File: ""})

		case key.Matches(msg, keys.Goto):
			if c := m.current(); c != nil {
				m.emit(panel.GotoLocation{File: c.File, Line: c.Line})
			}

		case key.Matches(msg, keys.Apply):
			if c := m.current(); c != nil && c.Fix != nil {
				m.emit(panel.ApplyFix{CommentID: c.ID})
			}

		case key.Matches(msg, keys.Copy):
			if c := m.current(); c != nil {
				m.emit(panel.CopyToClipboard{ResultID: c.ID})
			}

		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
		}
	}

	return m, nil
}

func (m reviewModel) View() string {
	if m.width == 0 {
		return "loading..."
	}

	if m.showHelp {
		return renderHelp("Code Review", []key.Binding{
			keys.Up, keys.Down, keys.NextFile, keys.AllFiles, keys.Goto, keys.Apply, keys.Copy, keys.Help, keys.Quit,
		})
	}

	listWidth := m.width * 2 / 5
	detailWidth := m.width - listWidth - 6

	var list strings.Builder
	list.WriteString(detailHeaderStyle.Render(m.summaryLine()))
	list.WriteString("\n")
	for i, c := range m.visible() {
		marker := " "
		if c.Fix != nil {
			marker = "+"
		}
		label := fmt.Sprintf("%s%s %s", severityStyle(c.Severity).Render("●"), marker,
			truncate(fmt.Sprintf("%s:%d %s", c.File, c.Line, c.Message), listWidth-6))
		if i == m.selected {
			list.WriteString(itemSelectedStyle.Render(label))
		} else {
			list.WriteString(itemStyle.Render(label))
		}
		list.WriteString("\n")
	}

	var detail strings.Builder
	if c := m.current(); c != nil {
		detail.WriteString(detailHeaderStyle.Render(fmt.Sprintf("%s:%d", c.File, c.Line)))
		detail.WriteString("\n")
		detail.WriteString(severityStyle(c.Severity).Render(strings.ToUpper(c.Severity)))
		detail.WriteString("\n\n")
		detail.WriteString(wrap(c.Message, detailWidth))
		if c.Fix != nil {
			detail.WriteString("\n\n")
			detail.WriteString(sectionHeaderStyle.Render("Suggested fix"))
			detail.WriteString("\n")
			detail.WriteString(codeBlock(c.Fix.Code, editor.LanguageForPath(c.File)))
		}
	} else {
		detail.WriteString(m.suggestionsView(detailWidth))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		listStyle.Width(listWidth).Height(m.height-3).Render(list.String()),
		detailStyle.Width(detailWidth).Height(m.height-3).Render(detail.String()),
	)

	return body + "\n" + m.statusBar()
}

func (m reviewModel) summaryLine() string {
	s := m.result.Summary
	scope := "all files"
	if m.fileFilter >= 0 && m.fileFilter < len(m.files) {
		scope = m.files[m.fileFilter]
	}
	return fmt.Sprintf("%d comments (%d errors, %d warnings) · %s", s.Total, s.Errors, s.Warnings, scope)
}

func (m reviewModel) suggestionsView(width int) string {
	var b strings.Builder
	sections := []struct {
		name  string
		items []string
	}{
		{"General", m.result.Suggestions.General},
		{"Performance", m.result.Suggestions.Performance},
		{"Security", m.result.Suggestions.Security},
	}
	for _, sec := range sections {
		if len(sec.items) == 0 {
			continue
		}
		b.WriteString(sectionHeaderStyle.Render(sec.name))
		b.WriteString("\n")
		for _, s := range sec.items {
			b.WriteString("  • ")
			b.WriteString(wrap(s, width-4))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return severityInfoStyle.Render("No comments.")
	}
	return b.String()
}

func (m reviewModel) statusBar() string {
	left := statusBarStyle.Render(fmt.Sprintf("comment %d/%d", m.selected+1, len(m.visible())))
	if m.notice.Text != "" {
		style := noticeStyle
		if m.notice.IsError {
			style = noticeErrorStyle
		}
		left += " " + style.Render(m.notice.Text)
	}
	help := helpBar([]key.Binding{keys.NextFile, keys.Goto, keys.Apply, keys.Copy, keys.Quit})
	return left + "  " + help
}
