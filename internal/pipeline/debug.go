package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jarvis-nvidia/dm/internal/editor"
	"github.com/jarvis-nvidia/dm/internal/model"
	"github.com/jarvis-nvidia/dm/internal/panel"
)

// DebugOptions select what the debug pipeline analyzes. A zero line range
// means the whole file.
type DebugOptions struct {
	Path      string
	StartLine int
	EndLine   int
	// Problem is the user's description of what is wrong. Optional; a
	// default is supplied when empty.
	Problem string
}

// Debug analyzes the given document (or selection) and opens a panel with
// the findings. The returned panel is owned by this invocation; callers
// wait on it if they need the interaction to finish.
func (d *Deps) Debug(ctx context.Context, opts DebugOptions) (*panel.Panel, error) {
	start := time.Now()
	var err error
	defer func() { d.record(ctx, "debug", start, err) }()

	if !d.gate() {
		return nil, nil
	}

	doc, derr := editor.OpenDocument(opts.Path)
	if derr != nil {
		err = derr
		d.surface(err)
		return nil, err
	}
	code, derr := doc.Selection(opts.StartLine, opts.EndLine)
	if derr != nil {
		err = derr
		d.surface(err)
		return nil, err
	}

	problem := opts.Problem
	if problem == "" {
		problem = "Find bugs and potential issues in this code."
	}

	cc := model.CommandContext{
		Code:         code,
		FilePath:     opts.Path,
		Language:     doc.Language(),
		RepositoryID: d.Repo.RepositoryID(),
	}

	result, rerr := d.Client.Debug(ctx, cc, problem)
	if rerr != nil {
		err = rerr
		d.surface(err)
		return nil, err
	}

	cfg := d.Settings.Get().Debug
	result.Items = filterItems(result.Items, model.ParseSeverity(cfg.MinSeverity))
	if !cfg.AutoSuggest {
		// Alternative fixes are only offered when auto-suggest is on;
		// the primary solution always stays.
		for i := range result.Items {
			result.Items[i].Suggestions = nil
		}
	}
	result.Language = cc.Language

	p := d.Panels.Create(panel.ViewDebug, fmt.Sprintf("Debug: %s", opts.Path))
	handler := panel.DebugHandler{
		CopyToClipboard: func(m panel.CopyToClipboard) {
			item := result.Item(m.ResultID)
			if item == nil {
				return
			}
			text := item.Solution
			if text == "" {
				text = item.Description
			}
			if cerr := d.Clipboard.Write(text); cerr != nil {
				noticeError(p, "clipboard write failed")
				return
			}
			notice(p, "Copied to clipboard")
		},
		ApplySolution: func(m panel.ApplySolution) {
			item := result.Item(m.ResultID)
			if item == nil {
				return
			}
			d.applyDebugFix(p, opts.Path, item.Code, item.Solution)
		},
		ApplySuggestion: func(m panel.ApplySuggestion) {
			item := result.Item(m.ResultID)
			if item == nil || m.Index < 0 || m.Index >= len(item.Suggestions) {
				return
			}
			d.applyDebugFix(p, opts.Path, item.Code, item.Suggestions[m.Index].Code)
		},
	}
	p.OnMessage(func(msg panel.Message) { _ = handler.Dispatch(msg) })
	p.Render(result)
	return p, nil
}

// applyDebugFix replaces the item's problem code with the replacement. The
// item's code block is the anchor; without one the fix cannot be located.
func (d *Deps) applyDebugFix(p *panel.Panel, path, anchor, replacement string) {
	if anchor == "" || replacement == "" {
		noticeError(p, "fix has no code anchor; apply it manually")
		return
	}
	edit := model.FixEdit{File: path, AnchorText: anchor, ReplacementText: replacement}
	if err := d.Applier.Apply(edit); err != nil {
		noticeError(p, err.Error())
		return
	}
	notice(p, "Fix applied")
}

func filterItems(items []model.DebugItem, min model.Severity) []model.DebugItem {
	var out []model.DebugItem
	for _, it := range items {
		if model.ParseSeverity(it.Severity) >= min {
			out = append(out, it)
		}
	}
	return out
}
