package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jarvis-nvidia/dm/internal/model"
	"github.com/jarvis-nvidia/dm/internal/vcs"
)

// Commit generates a commit message from the staged diff, copies it to the
// clipboard, and offers to view it or commit with it. No panel is opened;
// this pipeline is transport plus side effects.
func (d *Deps) Commit(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { d.record(ctx, "commit", start, err) }()

	if !d.gate() {
		return nil
	}

	diff, derr := d.Repo.StagedDiff()
	if derr != nil {
		err = derr
		d.surface(err)
		return err
	}
	if strings.TrimSpace(diff) == "" {
		d.surface(&ContextError{Message: "No staged changes found."})
		return nil
	}

	files, stats, perr := vcs.ParseDiff(diff)
	if perr != nil {
		err = perr
		d.surface(err)
		return err
	}
	d.Notifier.Info("Staged: %d files, +%d/-%d lines.", stats.Files, stats.Added, stats.Deleted)

	cc := model.CommandContext{
		DiffText:     diff,
		FilePaths:    files,
		RepositoryID: d.Repo.RepositoryID(),
	}

	result, rerr := d.Client.GenerateCommitMessage(ctx, cc)
	if rerr != nil {
		err = rerr
		d.surface(err)
		return err
	}

	if cerr := d.Clipboard.Write(result.Message); cerr != nil {
		d.Notifier.Error("clipboard write failed: %v", cerr)
	} else {
		d.Notifier.Info("Commit message copied to clipboard.")
	}

	switch d.Notifier.Choose("Generated commit message:\n\n"+indent(result.Message),
		"View as document", "Commit with this message") {
	case 0:
		err = d.viewMessage(result.Message)
	case 1:
		if err = d.Repo.Commit(result.Message); err == nil {
			d.Notifier.Info("Changes committed.")
		}
	}
	if err != nil {
		d.surface(err)
	}
	return err
}

// viewMessage writes the message to a scratch file and reveals it.
func (d *Deps) viewMessage(message string) error {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("dm-commit-%d.txt", time.Now().UnixNano()))
	if err := os.WriteFile(path, []byte(message+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing message document: %w", err)
	}
	return d.Opener.Reveal(path, 0)
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
