// Package tui renders inference results as interactive terminal panels
// using Bubble Tea. Each surface owns one full-screen program; user actions
// are emitted back to the owning pipeline through the panel's message
// channel.
package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jarvis-nvidia/dm/internal/model"
	"github.com/jarvis-nvidia/dm/internal/panel"
)

// contentMsg delivers re-rendered content into a running program.
type contentMsg struct{ content any }

// Surface is a terminal panel surface. The program starts on the first
// Render and the panel is disposed when the user closes the view.
type Surface struct {
	panel *panel.Panel

	mu   sync.Mutex
	prog *tea.Program
	once sync.Once
}

// NewSurface creates a terminal surface for p.
func NewSurface(p *panel.Panel) *Surface {
	return &Surface{panel: p}
}

// Render draws the content, starting the program on first call. Later
// renders are pushed into the running program.
func (s *Surface) Render(content any) {
	started := false
	s.once.Do(func() {
		started = true
		m := s.modelFor(content)
		if m == nil {
			return
		}
		prog := tea.NewProgram(m, tea.WithAltScreen())
		s.mu.Lock()
		s.prog = prog
		s.mu.Unlock()
		go func() {
			_, _ = prog.Run()
			s.panel.Dispose()
		}()
	})
	if started {
		return
	}
	s.mu.Lock()
	prog := s.prog
	s.mu.Unlock()
	if prog != nil {
		prog.Send(contentMsg{content: content})
	}
}

// Post shows a panel.Notice in the status bar.
func (s *Surface) Post(msg any) bool {
	s.mu.Lock()
	prog := s.prog
	s.mu.Unlock()
	if prog == nil {
		return false
	}
	if n, ok := msg.(panel.Notice); ok {
		prog.Send(n)
		return true
	}
	return false
}

// Close quits the program.
func (s *Surface) Close() {
	s.mu.Lock()
	prog := s.prog
	s.prog = nil
	s.mu.Unlock()
	if prog != nil {
		prog.Quit()
	}
}

func (s *Surface) modelFor(content any) tea.Model {
	switch c := content.(type) {
	case *model.DebugResult:
		return newDebugModel(c, c.Language, s.panel.Emit)
	case *model.ReviewResult:
		return newReviewModel(c, s.panel.Emit)
	default:
		return nil
	}
}
