// Package panel manages interactive result surfaces and the message channel
// between a surface and the pipeline that owns it. One panel renders one
// result; panels are never shared across pipelines.
package panel

import (
	"sync"

	"github.com/google/uuid"
)

// ViewKind identifies what a panel renders.
type ViewKind string

const (
	ViewDebug    ViewKind = "debug"
	ViewReview   ViewKind = "review"
	ViewDocument ViewKind = "document"
)

// LifecycleState tracks a panel from creation to disposal. Disposed is
// terminal.
type LifecycleState int

const (
	Created LifecycleState = iota
	Visible
	Hidden
	Disposed
)

func (s LifecycleState) String() string {
	switch s {
	case Visible:
		return "visible"
	case Hidden:
		return "hidden"
	case Disposed:
		return "disposed"
	default:
		return "created"
	}
}

// Surface is a rendered target for one panel: the terminal UI, a browser
// tab, or a test double.
type Surface interface {
	// Render draws content. Called again with the same content when the
	// surface returns from Hidden to Visible.
	Render(content any)
	// Post delivers an outbound message to the surface; false when the
	// surface is gone.
	Post(msg any) bool
	// Close releases the surface.
	Close()
}

// SurfaceFactory builds the surface for a new panel. The surface delivers
// user interactions by calling p.Emit.
type SurfaceFactory func(p *Panel) Surface

// Manager creates panels and tracks the live ones.
type Manager struct {
	factory SurfaceFactory

	mu     sync.Mutex
	panels map[string]*Panel
}

// NewManager creates a Manager producing surfaces from factory.
func NewManager(factory SurfaceFactory) *Manager {
	return &Manager{factory: factory, panels: make(map[string]*Panel)}
}

// Create builds a panel in the Created state.
func (m *Manager) Create(kind ViewKind, title string) *Panel {
	p := &Panel{
		ID:    uuid.NewString(),
		Kind:  kind,
		Title: title,
		queue: make(chan Message, 256),
		done:  make(chan struct{}),
	}
	p.surface = m.factory(p)
	p.onDispose = func() {
		m.mu.Lock()
		delete(m.panels, p.ID)
		m.mu.Unlock()
	}
	m.mu.Lock()
	m.panels[p.ID] = p
	m.mu.Unlock()
	return p
}

// Open returns the number of live (not yet disposed) panels.
func (m *Manager) Open() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.panels)
}

// Panel is one interactive result surface with a private FIFO message
// channel back to its owning pipeline.
type Panel struct {
	ID    string
	Kind  ViewKind
	Title string

	surface   Surface
	onDispose func()

	mu      sync.Mutex
	state   LifecycleState
	content any

	queue    chan Message
	handler  func(Message)
	consume  sync.Once
	done     chan struct{}
	closeOne sync.Once
}

// State returns the current lifecycle state.
func (p *Panel) State() LifecycleState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Render draws content on the surface. The first render moves the panel to
// Visible. Rendering a disposed panel is a silent no-op.
func (p *Panel) Render(content any) {
	p.mu.Lock()
	if p.state == Disposed {
		p.mu.Unlock()
		return
	}
	p.content = content
	if p.state == Created {
		p.state = Visible
	}
	visible := p.state == Visible
	p.mu.Unlock()

	if visible {
		p.surface.Render(content)
	}
}

// SetVisible is driven by the surface when it is minimized or restored.
// Returning to Visible redraws the last rendered content; nothing is
// recomputed.
func (p *Panel) SetVisible(visible bool) {
	p.mu.Lock()
	if p.state == Disposed || p.state == Created {
		p.mu.Unlock()
		return
	}
	var redraw any
	if visible && p.state == Hidden {
		p.state = Visible
		redraw = p.content
	} else if !visible && p.state == Visible {
		p.state = Hidden
	}
	p.mu.Unlock()

	if redraw != nil {
		p.surface.Render(redraw)
	}
}

// PostMessage delivers an outbound message to the surface. It reports false
// after Dispose and never panics.
func (p *Panel) PostMessage(msg any) bool {
	p.mu.Lock()
	if p.state == Disposed {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()
	return p.surface.Post(msg)
}

// OnMessage registers the single consumer for inbound messages. Messages
// are delivered in emit order on a dedicated goroutine; messages emitted
// before OnMessage are queued, not lost.
func (p *Panel) OnMessage(handler func(Message)) {
	p.mu.Lock()
	p.handler = handler
	p.mu.Unlock()
	p.consume.Do(func() {
		go p.consumeLoop()
	})
}

// Emit enqueues an inbound message from the surface. It reports false when
// the panel is disposed or the queue is full.
func (p *Panel) Emit(msg Message) bool {
	p.mu.Lock()
	if p.state == Disposed {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()
	select {
	case p.queue <- msg:
		return true
	case <-p.done:
		return false
	default:
		return false
	}
}

// Dispose releases the surface and the message queue. It is idempotent;
// Render and PostMessage afterwards are no-ops.
func (p *Panel) Dispose() {
	p.mu.Lock()
	if p.state == Disposed {
		p.mu.Unlock()
		return
	}
	p.state = Disposed
	p.mu.Unlock()

	p.closeOne.Do(func() { close(p.done) })
	p.surface.Close()
	if p.onDispose != nil {
		p.onDispose()
	}
}

// Wait blocks until the panel is disposed.
func (p *Panel) Wait() { <-p.done }

func (p *Panel) consumeLoop() {
	for {
		select {
		case msg := <-p.queue:
			p.mu.Lock()
			h := p.handler
			disposed := p.state == Disposed
			p.mu.Unlock()
			if disposed {
				return
			}
			if h != nil {
				h(msg)
			}
		case <-p.done:
			return
		}
	}
}
