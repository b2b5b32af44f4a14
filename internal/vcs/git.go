// Package vcs queries the local git repository for the context the command
// pipelines send to the inference service. Every query is best-effort:
// absence of a repo, remote, or template is reported as an empty value, not
// an error, except where a diff is the pipeline's required input.
package vcs

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// Git queries a single repository working tree.
type Git struct {
	repoDir string
}

// Open locates the repository root containing dir.
func Open(dir string) (*Git, error) {
	out, err := runGit(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("not in a git repository (or git not installed): %w", err)
	}
	return &Git{repoDir: strings.TrimSpace(out)}, nil
}

// Root returns the repository root directory.
func (g *Git) Root() string { return g.repoDir }

// StagedDiff returns the diff of the index against HEAD.
func (g *Git) StagedDiff() (string, error) {
	return runGit(g.repoDir, "diff", "--cached")
}

// UnstagedDiff returns the diff of the working tree against the index.
func (g *Git) UnstagedDiff() (string, error) {
	return runGit(g.repoDir, "diff")
}

// RemoteURL returns the origin remote URL, or "" when there is none.
func (g *Git) RemoteURL() string {
	out, err := runGit(g.repoDir, "remote", "get-url", "origin")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// RepositoryID derives an "owner/name" identifier from the origin remote,
// or "" when it cannot be derived.
func (g *Git) RepositoryID() string {
	return RepositoryIDFromURL(g.RemoteURL())
}

// RepositoryIDFromURL normalizes a git remote URL to "owner/name".
func RepositoryIDFromURL(remote string) string {
	remote = strings.TrimSpace(remote)
	if remote == "" {
		return ""
	}
	remote = strings.TrimSuffix(remote, ".git")
	// ssh form: git@host:owner/name
	if at := strings.Index(remote, "@"); at >= 0 && !strings.Contains(remote, "://") {
		if colon := strings.Index(remote, ":"); colon > at {
			return strings.Trim(remote[colon+1:], "/")
		}
	}
	// url form: scheme://host/owner/name
	if i := strings.Index(remote, "://"); i >= 0 {
		rest := remote[i+3:]
		if slash := strings.Index(rest, "/"); slash >= 0 {
			return strings.Trim(rest[slash+1:], "/")
		}
	}
	return ""
}

// CommitTemplate returns the configured commit template contents, or "".
func (g *Git) CommitTemplate() string {
	out, err := runGit(g.repoDir, "config", "--get", "commit.template")
	if err != nil {
		return ""
	}
	path := strings.TrimSpace(out)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		path = filepath.Join(home, path[2:])
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(raw)
}

// Commit records the staged changes with the given message.
func (g *Git) Commit(message string) error {
	_, err := runGit(g.repoDir, "commit", "-m", message)
	if err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	return nil
}

// DiffStats summarizes a raw unified diff.
type DiffStats struct {
	Files   int
	Added   int
	Deleted int
}

// ParseDiff extracts the changed file paths and line counts from a raw
// unified diff.
func ParseDiff(raw string) ([]string, DiffStats, error) {
	parsed, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, DiffStats{}, fmt.Errorf("parsing diff: %w", err)
	}

	var paths []string
	stats := DiffStats{Files: len(parsed)}
	for _, f := range parsed {
		name := f.NewName
		if name == "" {
			name = f.OldName
		}
		if name != "" {
			paths = append(paths, name)
		}
		for _, frag := range f.TextFragments {
			stats.Added += int(frag.LinesAdded)
			stats.Deleted += int(frag.LinesDeleted)
		}
	}
	return paths, stats, nil
}

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}
