package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/jarvis-nvidia/dm/internal/model"
	"github.com/jarvis-nvidia/dm/internal/panel"
	"github.com/jarvis-nvidia/dm/internal/vcs"
)

// Review gathers the repository's pending changes, sends them for review,
// and opens a panel with the comments. Staged changes are preferred; when
// only unstaged changes exist the user explicitly chooses between reviewing
// those and aborting.
func (d *Deps) Review(ctx context.Context) (*panel.Panel, error) {
	start := time.Now()
	var err error
	defer func() { d.record(ctx, "review", start, err) }()

	if !d.gate() {
		return nil, nil
	}

	cc, cerr := d.reviewContext()
	if cerr != nil {
		err = cerr
		d.surface(err)
		return nil, err
	}
	if cc == nil {
		// User chose to abort; not an error.
		return nil, nil
	}

	result, rerr := d.Client.Review(ctx, *cc)
	if rerr != nil {
		err = rerr
		d.surface(err)
		return nil, err
	}

	p := d.Panels.Create(panel.ViewReview, "Code Review")
	handler := panel.ReviewHandler{
		SelectFile: func(panel.SelectFile) {
			// File filtering is surface-local state; nothing to do here.
		},
		GotoLocation: func(m panel.GotoLocation) {
			path := m.File
			if !filepath.IsAbs(path) {
				path = filepath.Join(d.Repo.Root(), path)
			}
			if oerr := d.Opener.Reveal(path, m.Line); oerr != nil {
				noticeError(p, oerr.Error())
			}
		},
		ApplyFix: func(m panel.ApplyFix) {
			comment := result.Comment(m.CommentID)
			if comment == nil || comment.Fix == nil {
				return
			}
			d.applyReviewFix(p, comment)
		},
		CopyToClipboard: func(m panel.CopyToClipboard) {
			comment := result.Comment(m.ResultID)
			if comment == nil {
				return
			}
			text := comment.Message
			if comment.Fix != nil {
				text = comment.Fix.Code
			}
			if cerr := d.Clipboard.Write(text); cerr != nil {
				noticeError(p, "clipboard write failed")
				return
			}
			notice(p, "Copied to clipboard")
		},
	}
	p.OnMessage(func(msg panel.Message) { _ = handler.Dispatch(msg) })
	p.Render(result)
	return p, nil
}

// reviewContext builds the CommandContext from VCS state. A nil context
// with nil error means the user aborted.
func (d *Deps) reviewContext() (*model.CommandContext, error) {
	diff, err := d.Repo.StagedDiff()
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(diff) == "" {
		unstaged, err := d.Repo.UnstagedDiff()
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(unstaged) == "" {
			return nil, &ContextError{Message: "No changes to review."}
		}
		// Never silently fall back to unstaged changes: the user
		// decides.
		choice := d.Notifier.Choose("No staged changes found.",
			"Review unstaged changes", "Abort")
		if choice != 0 {
			return nil, nil
		}
		diff = unstaged
	}

	// The file list comes from the diff itself rather than a second
	// repository query, so the paths always match the text sent out.
	files, _, err := vcs.ParseDiff(diff)
	if err != nil {
		return nil, err
	}

	cc := model.CommandContext{
		DiffText:     diff,
		FilePaths:    files,
		RepositoryID: d.Repo.RepositoryID(),
		Categories:   d.Settings.Get().Review.Categories,
	}
	// The configured template stands in when the repository has none.
	tmpl := d.Repo.CommitTemplate()
	if strings.TrimSpace(tmpl) == "" {
		tmpl = d.Settings.Get().Commit.Template
	}
	cc.PRTitle, cc.PRDescription = splitTemplate(tmpl)
	return &cc, nil
}

func (d *Deps) applyReviewFix(p *panel.Panel, comment *model.ReviewComment) {
	path := comment.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(d.Repo.Root(), path)
	}
	edit := model.FixEdit{
		File:            path,
		AnchorText:      comment.Fix.Anchor,
		ReplacementText: comment.Fix.Code,
	}
	if edit.AnchorText == "" {
		// No anchor to search for: fall back to the comment's line.
		edit.Line = comment.Line
	}
	if err := d.Applier.Apply(edit); err != nil {
		noticeError(p, err.Error())
		return
	}
	notice(p, "Fix applied")
}

// splitTemplate derives a best-effort PR title and description from a
// commit template: first non-comment line is the title, the rest the
// description.
func splitTemplate(tmpl string) (title, description string) {
	var body []string
	for _, line := range strings.Split(tmpl, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		body = append(body, line)
	}
	text := strings.TrimSpace(strings.Join(body, "\n"))
	if text == "" {
		return "", ""
	}
	parts := strings.SplitN(text, "\n", 2)
	title = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		description = strings.TrimSpace(parts[1])
	}
	return title, description
}
