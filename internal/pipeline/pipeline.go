// Package pipeline implements the end-to-end command flows: gather local
// context, call the inference service, render the result in a panel, and
// execute the side effects the panel requests. Each invocation owns its
// context and panel; the only shared state is the injected services.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/jarvis-nvidia/dm/internal/editor"
	"github.com/jarvis-nvidia/dm/internal/model"
	"github.com/jarvis-nvidia/dm/internal/notify"
	"github.com/jarvis-nvidia/dm/internal/panel"
	"github.com/jarvis-nvidia/dm/internal/settings"
	"github.com/jarvis-nvidia/dm/internal/telemetry"
	"github.com/jarvis-nvidia/dm/internal/transport"
)

// ContextError means the local repository state cannot feed the command:
// nothing staged, nothing changed. It short-circuits before any transport
// call and is surfaced as information, not an error.
type ContextError struct {
	Message string
}

func (e *ContextError) Error() string { return e.Message }

// SessionGate is the pipelines' view of the auth state machine: check the
// session, and hand control to the sign-in flow when there is none.
type SessionGate interface {
	Authenticated() bool
	// Demand triggers the sign-in flow. The current invocation aborts;
	// the user re-invokes once signed in.
	Demand()
}

// Inference is the slice of the transport client the pipelines call.
type Inference interface {
	Debug(ctx context.Context, cc model.CommandContext, problem string) (*model.DebugResult, error)
	Review(ctx context.Context, cc model.CommandContext) (*model.ReviewResult, error)
	GenerateCommitMessage(ctx context.Context, cc model.CommandContext) (*model.CommitResult, error)
}

// Repo is the local version-control collaborator. All queries except the
// diffs are best-effort.
type Repo interface {
	Root() string
	StagedDiff() (string, error)
	UnstagedDiff() (string, error)
	RepositoryID() string
	CommitTemplate() string
	Commit(message string) error
}

// Applier applies a fix edit to a document.
type Applier interface {
	Apply(edit model.FixEdit) error
}

// Deps are the injected services every pipeline composes. Constructed once
// at process start and shared across invocations.
type Deps struct {
	Settings  *settings.Store
	Auth      SessionGate
	Client    Inference
	Repo      Repo
	Panels    *panel.Manager
	Applier   Applier
	Opener    editor.Opener
	Clipboard editor.Clipboard
	Notifier  notify.Notifier
	Telemetry *telemetry.Store // nil when telemetry is disabled or unavailable
}

// gate aborts the invocation when there is no authenticated session.
func (d *Deps) gate() bool {
	if d.Auth.Authenticated() {
		return true
	}
	d.Auth.Demand()
	return false
}

// surface converts a collaborator failure into the error taxonomy and shows
// it to the user. ContextErrors are informational; everything else is a
// dismissible error.
func (d *Deps) surface(err error) {
	var ce *ContextError
	if errors.As(err, &ce) {
		d.Notifier.Info("%s", ce.Message)
		return
	}
	var ae *transport.AuthError
	if errors.As(err, &ae) {
		d.Notifier.Error("authentication failed: %s", ae.Message)
		return
	}
	var te *transport.TransportError
	if errors.As(err, &te) {
		d.Notifier.Error("%s", te.Error())
		return
	}
	d.Notifier.Error("%s", err.Error())
}

// record logs the invocation when telemetry is enabled. Failures to record
// are ignored.
func (d *Deps) record(ctx context.Context, command string, start time.Time, err error) {
	if d.Telemetry == nil || !d.Settings.Get().TelemetryEnabled {
		return
	}
	repo := ""
	if d.Repo != nil {
		repo = d.Repo.RepositoryID()
	}
	_ = d.Telemetry.Record(ctx, telemetry.Invocation{
		Command:    command,
		Repository: repo,
		OK:         err == nil,
		Duration:   time.Since(start),
	})
}

// notice posts a status update back to the panel that requested an action.
func notice(p *panel.Panel, text string) {
	p.PostMessage(panel.Notice{Text: text})
}

func noticeError(p *panel.Panel, text string) {
	p.PostMessage(panel.Notice{Text: text, IsError: true})
}
