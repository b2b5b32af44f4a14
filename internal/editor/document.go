package editor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Document is an open file's content plus helpers for selections.
type Document struct {
	Path    string
	Content string
}

// OpenDocument reads the file at path.
func OpenDocument(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening document %s: %w", path, err)
	}
	return &Document{Path: path, Content: string(raw)}, nil
}

// Selection returns the text of the inclusive 1-based line range
// [start, end]. A zero range means the whole document.
func (d *Document) Selection(start, end int) (string, error) {
	if start == 0 && end == 0 {
		return d.Content, nil
	}
	lines := strings.Split(d.Content, "\n")
	if start < 1 || end < start || start > len(lines) {
		return "", fmt.Errorf("selection %d:%d out of range (document has %d lines)", start, end, len(lines))
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start-1:end], "\n"), nil
}

// Language guesses the programming language from the file extension.
func (d *Document) Language() string { return LanguageForPath(d.Path) }

// LanguageForPath maps a file extension to the language name the inference
// service expects.
func LanguageForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js", ".jsx":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".c", ".h":
		return "c"
	case ".cpp", ".cc", ".hpp":
		return "cpp"
	case ".rb":
		return "ruby"
	case ".sh", ".bash":
		return "shell"
	case ".sql":
		return "sql"
	case ".md":
		return "markdown"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

// Opener reveals a location to the user, normally via $EDITOR.
type Opener interface {
	Reveal(path string, line int) error
}

// EditorOpener launches $EDITOR (fallback vi) at the given location.
type EditorOpener struct{}

func (EditorOpener) Reveal(path string, line int) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	args := []string{path}
	if line > 0 {
		args = []string{fmt.Sprintf("+%d", line), path}
	}
	cmd := exec.Command(editor, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("opening %s in %s: %w", path, editor, err)
	}
	return nil
}
