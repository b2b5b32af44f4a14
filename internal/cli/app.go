package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jarvis-nvidia/dm/internal/auth"
	"github.com/jarvis-nvidia/dm/internal/editor"
	"github.com/jarvis-nvidia/dm/internal/notify"
	"github.com/jarvis-nvidia/dm/internal/panel"
	"github.com/jarvis-nvidia/dm/internal/pipeline"
	"github.com/jarvis-nvidia/dm/internal/settings"
	"github.com/jarvis-nvidia/dm/internal/telemetry"
	"github.com/jarvis-nvidia/dm/internal/transport"
	"github.com/jarvis-nvidia/dm/internal/tui"
	"github.com/jarvis-nvidia/dm/internal/vcs"
)

// app holds the process-wide services. Built once, on first use.
type app struct {
	store     *settings.Store
	client    *transport.Client
	auth      *auth.Manager
	notifier  notify.Notifier
	panels    *panel.Manager
	telemetry *telemetry.Store
}

var current *app

// webPanels switches panel surfaces from the terminal UI to a browser tab.
var webPanels bool

func getApp() (*app, error) {
	if current != nil {
		return current, nil
	}

	path := settingsPath
	if path == "" {
		path = settings.DefaultPath()
	}
	store, err := settings.Load(path)
	if err != nil {
		return nil, err
	}

	client := transport.New(store)
	manager := auth.New(store, client)
	client.OnUnauthorized(manager.HandleUnauthorized)

	notifier := notify.NewTerminal()

	// Status indicator: reflect every auth transition immediately.
	manager.OnChange(func(s auth.Session) {
		if s.Principal != "" {
			notifier.Info("auth: %s as %s", s.State, s.Principal)
		} else {
			notifier.Info("auth: %s", s.State)
		}
	})

	var tstore *telemetry.Store
	if store.Get().TelemetryEnabled {
		tstore, err = telemetry.Open(context.Background(), telemetry.DefaultPath())
		if err != nil {
			// Telemetry is best-effort.
			log.Printf("telemetry unavailable: %v", err)
			tstore = nil
		}
	}

	current = &app{
		store:     store,
		client:    client,
		auth:      manager,
		notifier:  notifier,
		panels:    panel.NewManager(surfaceFactory),
		telemetry: tstore,
	}
	return current, nil
}

func closeApp() {
	if current != nil && current.telemetry != nil {
		current.telemetry.Close()
	}
}

/// surfaceFactory builds a panel surface: the terminal UI by default, a
// browser tab with --web.
func surfaceFactory(p *panel.Panel) panel.Surface {
	if webPanels {
		ws, err := panel.NewWebSurface(p)
		if err == nil {
			if err := auth.OpenBrowser(ws.URL()); err != nil {
				fmt.Fprintf(os.Stderr, "Open %s to view the panel\n", ws.URL())
			}
			return ws
		}
		log.Printf("web surface unavailable, falling back to terminal: %v", err)
	}
	return tui.NewSurface(p)
}

// pipelineDeps assembles the dependency set for one command invocation.
// Restore is attempted once so a persisted credential signs the session in
// without prompting.
func (a *app) pipelineDeps(ctx context.Context) (*pipeline.Deps, error) {
	if !a.auth.Authenticated() {
		_ = a.auth.Restore(ctx)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	repo, err := vcs.Open(wd)
	if err != nil {
		return nil, err
	}

	return &pipeline.Deps{
		Settings:  a.store,
		Auth:      &signInGate{auth: a.auth, notifier: a.notifier},
		Client:    a.client,
		Repo:      repo,
		Panels:    a.panels,
		Applier:   &editor.Applier{},
		Opener:    editor.EditorOpener{},
		Clipboard: editor.SystemClipboard{},
		Notifier:  a.notifier,
		Telemetry: a.telemetry,
	}, nil
}

// signInGate adapts the auth manager to the pipelines' session gate. Demand
// points the user at the sign-in flow; the invocation aborts and the user
// re-invokes after signing in.
type signInGate struct {
	auth     *auth.Manager
	notifier notify.Notifier
}

func (g *signInGate) Authenticated() bool { return g.auth.Authenticated() }

func (g *signInGate) Demand() {
	g.notifier.Error("not signed in: run 'dm auth login' first")
}
