package panel

import (
	"encoding/json"
	"fmt"
)

// Message is an inbound user-interaction message from a panel surface. The
// set of kinds is closed per view: surfaces construct values of these types
// only, and pipelines dispatch through a typed handler table, so an
// unhandled kind is a compile-time hole rather than a silent no-op.
type Message interface {
	isPanelMessage()
}

// Debug panel messages.

type CopyToClipboard struct{ ResultID string }

type ApplySolution struct{ ResultID string }

type ApplySuggestion struct {
	ResultID string
	Index    int
}

// Review panel messages.

type SelectFile struct{ File string }

type GotoLocation struct {
	File string
	Line int
}

type ApplyFix struct{ CommentID string }

func (CopyToClipboard) isPanelMessage() {}
func (ApplySolution) isPanelMessage()   {}
func (ApplySuggestion) isPanelMessage() {}
func (SelectFile) isPanelMessage()      {}
func (GotoLocation) isPanelMessage()    {}
func (ApplyFix) isPanelMessage()        {}

// DebugHandler dispatches the debug panel's message kinds. Every field must
// be set; Dispatch panics on a nil entry so a missing handler shows up in
// the first test instead of being swallowed.
type DebugHandler struct {
	CopyToClipboard func(CopyToClipboard)
	ApplySolution   func(ApplySolution)
	ApplySuggestion func(ApplySuggestion)
}

// Dispatch routes msg to the matching handler. Review-panel kinds are not
// valid on a debug panel and report an error.
func (h DebugHandler) Dispatch(msg Message) error {
	switch m := msg.(type) {
	case CopyToClipboard:
		h.CopyToClipboard(m)
	case ApplySolution:
		h.ApplySolution(m)
	case ApplySuggestion:
		h.ApplySuggestion(m)
	default:
		return fmt.Errorf("debug panel: unsupported message %T", msg)
	}
	return nil
}

// ReviewHandler dispatches the review panel's message kinds.
type ReviewHandler struct {
	SelectFile      func(SelectFile)
	GotoLocation    func(GotoLocation)
	ApplyFix        func(ApplyFix)
	CopyToClipboard func(CopyToClipboard)
}

func (h ReviewHandler) Dispatch(msg Message) error {
	switch m := msg.(type) {
	case SelectFile:
		h.SelectFile(m)
	case GotoLocation:
		h.GotoLocation(m)
	case ApplyFix:
		h.ApplyFix(m)
	case CopyToClipboard:
		h.CopyToClipboard(m)
	default:
		return fmt.Errorf("review panel: unsupported message %T", msg)
	}
	return nil
}

// Notice is the outbound message a pipeline posts back to a panel after
// handling an interaction. Surfaces show it in their status area.
type Notice struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error,omitempty"`
}

// wireMessage is the JSON envelope used by remote surfaces (the browser
// surface sends these over its websocket). Command is the discriminator.
type wireMessage struct {
	Command   string `json:"command"`
	ResultID  string `json:"result_id,omitempty"`
	Index     int    `json:"index,omitempty"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	CommentID string `json:"comment_id,omitempty"`
}

// Per-view decode tables: command string -> message constructor.
var debugCommands = map[string]func(wireMessage) Message{
	"copyToClipboard": func(w wireMessage) Message { return CopyToClipboard{ResultID: w.ResultID} },
	"applySolution":   func(w wireMessage) Message { return ApplySolution{ResultID: w.ResultID} },
	"applySuggestion": func(w wireMessage) Message { return ApplySuggestion{ResultID: w.ResultID, Index: w.Index} },
}

var reviewCommands = map[string]func(wireMessage) Message{
	"selectFile":      func(w wireMessage) Message { return SelectFile{File: w.File} },
	"gotoLocation":    func(w wireMessage) Message { return GotoLocation{File: w.File, Line: w.Line} },
	"applyFix":        func(w wireMessage) Message { return ApplyFix{CommentID: w.CommentID} },
	"copyToClipboard": func(w wireMessage) Message { return CopyToClipboard{ResultID: w.ResultID} },
}

// DecodeMessage parses a wire-format message for the given view kind.
func DecodeMessage(kind ViewKind, raw []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("parsing panel message: %w", err)
	}
	var table map[string]func(wireMessage) Message
	switch kind {
	case ViewDebug:
		table = debugCommands
	case ViewReview:
		table = reviewCommands
	default:
		return nil, fmt.Errorf("view %q accepts no messages", kind)
	}
	ctor, ok := table[w.Command]
	if !ok {
		return nil, fmt.Errorf("view %q: unknown command %q", kind, w.Command)
	}
	return ctor(w), nil
}
