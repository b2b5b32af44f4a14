package panel

import (
	"sync"
	"testing"
	"time"
)

// fakeSurface records lifecycle calls for assertions.
type fakeSurface struct {
	mu      sync.Mutex
	renders []any
	posts   []any
	closed  bool
}

func (f *fakeSurface) Render(content any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders = append(f.renders, content)
}

func (f *fakeSurface) Post(msg any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, msg)
	return true
}

func (f *fakeSurface) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSurface) renderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.renders)
}

func newTestPanel(t *testing.T) (*Manager, *Panel, *fakeSurface) {
	t.Helper()
	surface := &fakeSurface{}
	m := NewManager(func(p *Panel) Surface { return surface })
	p := m.Create(ViewDebug, "test")
	return m, p, surface
}

func TestPanelLifecycle(t *testing.T) {
	m, p, surface := newTestPanel(t)

	if p.State() != Created {
		t.Errorf("initial state = %v, want Created", p.State())
	}
	if m.Open() != 1 {
		t.Errorf("Open() = %d, want 1", m.Open())
	}

	p.Render("content-1")
	if p.State() != Visible {
		t.Errorf("state after first render = %v, want Visible", p.State())
	}
	if surface.renderCount() != 1 {
		t.Errorf("renders = %d, want 1", surface.renderCount())
	}

	p.SetVisible(false)
	if p.State() != Hidden {
		t.Errorf("state = %v, want Hidden", p.State())
	}

	// Renders while hidden update the cached content without drawing.
	p.Render("content-2")
	if surface.renderCount() != 1 {
		t.Errorf("hidden panel rendered to surface")
	}

	// Restoring redraws the latest content without recomputation.
	p.SetVisible(true)
	if surface.renderCount() != 2 {
		t.Fatalf("renders = %d, want 2 after restore", surface.renderCount())
	}
	surface.mu.Lock()
	last := surface.renders[1]
	surface.mu.Unlock()
	if last != "content-2" {
		t.Errorf("restore redrew %v, want content-2", last)
	}

	p.Dispose()
	if p.State() != Disposed {
		t.Errorf("state = %v, want Disposed", p.State())
	}
	if !surface.closed {
		t.Error("surface not closed on dispose")
	}
	if m.Open() != 0 {
		t.Errorf("Open() = %d after dispose, want 0", m.Open())
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	_, p, _ := newTestPanel(t)
	p.Dispose()
	p.Dispose() // must not panic

	if p.PostMessage(Notice{Text: "x"}) {
		t.Error("PostMessage after dispose should report false")
	}
	p.Render("late") // silent no-op
	if p.Emit(CopyToClipboard{}) {
		t.Error("Emit after dispose should report false")
	}
}

func TestMessagesDeliveredInOrder(t *testing.T) {
	_, p, _ := newTestPanel(t)

	// Emitted before OnMessage: queued, not lost.
	p.Emit(ApplySuggestion{Index: 0})
	p.Emit(ApplySuggestion{Index: 1})

	got := make(chan int, 8)
	p.OnMessage(func(msg Message) {
		if m, ok := msg.(ApplySuggestion); ok {
			got <- m.Index
		}
	})
	p.Emit(ApplySuggestion{Index: 2})

	for want := 0; want < 3; want++ {
		select {
		case idx := <-got:
			if idx != want {
				t.Fatalf("message %d delivered out of order (got index %d)", want, idx)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", want)
		}
	}
	p.Dispose()
}

func TestWaitUnblocksOnDispose(t *testing.T) {
	_, p, _ := newTestPanel(t)

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()

	p.Dispose()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not unblock after Dispose")
	}
}

func TestDebugHandlerRejectsReviewMessages(t *testing.T) {
	h := DebugHandler{
		CopyToClipboard: func(CopyToClipboard) {},
		ApplySolution:   func(ApplySolution) {},
		ApplySuggestion: func(ApplySuggestion) {},
	}
	if err := h.Dispatch(CopyToClipboard{}); err != nil {
		t.Errorf("Dispatch(CopyToClipboard) = %v", err)
	}
	if err := h.Dispatch(ApplyFix{}); err == nil {
		t.Error("expected error dispatching a review message to the debug handler")
	}
}

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		kind    ViewKind
		raw     string
		want    Message
		wantErr bool
	}{
		{"debug copy", ViewDebug, `{"command":"copyToClipboard","result_id":"r1"}`, CopyToClipboard{ResultID: "r1"}, false},
		{"debug suggestion", ViewDebug, `{"command":"applySuggestion","result_id":"r1","index":2}`, ApplySuggestion{ResultID: "r1", Index: 2}, false},
		{"review goto", ViewReview, `{"command":"gotoLocation","file":"a.go","line":7}`, GotoLocation{File: "a.go", Line: 7}, false},
		{"review fix", ViewReview, `{"command":"applyFix","comment_id":"c9"}`, ApplyFix{CommentID: "c9"}, false},
		{"unknown command", ViewDebug, `{"command":"selectFile"}`, nil, true},
		{"document view", ViewDocument, `{"command":"copyToClipboard"}`, nil, true},
		{"bad json", ViewDebug, `{`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeMessage(tt.kind, []byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %#v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeMessage: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeMessage = %#v, want %#v", got, tt.want)
			}
		})
	}
}
