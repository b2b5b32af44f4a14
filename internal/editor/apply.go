// Package editor applies suggested fixes back into documents and opens
// locations for the user.
package editor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jarvis-nvidia/dm/internal/model"
)

// Errors returned by Apply. Both leave the document untouched.
var (
	ErrAnchorNotFound  = fmt.Errorf("anchor text not found in document")
	ErrAnchorAmbiguous = fmt.Errorf("anchor text matches more than once; refusing to guess")
)

// Applier performs atomic textual edits on files. The zero value is ready to
// use.
type Applier struct{}

// Apply executes a FixEdit. Anchor mode requires the anchor text to occur
// exactly once; zero matches or multiple matches fail without modifying the
// document. The edit is written as a single atomic replacement of the file.
func (a *Applier) Apply(edit model.FixEdit) error {
	raw, err := os.ReadFile(edit.File)
	if err != nil {
		return fmt.Errorf("opening document %s: %w", edit.File, err)
	}
	content := string(raw)

	var next string
	if edit.AnchorText != "" {
		next, err = replaceAnchor(content, edit.AnchorText, edit.ReplacementText)
	} else {
		next, err = replaceLine(content, edit.Line, edit.ReplacementText)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", edit.File, err)
	}
	return writeAtomic(edit.File, []byte(next))
}

func replaceAnchor(content, anchor, replacement string) (string, error) {
	switch strings.Count(content, anchor) {
	case 0:
		return "", ErrAnchorNotFound
	case 1:
		return strings.Replace(content, anchor, replacement, 1), nil
	default:
		return "", ErrAnchorAmbiguous
	}
}

func replaceLine(content string, line int, replacement string) (string, error) {
	lines := strings.Split(content, "\n")
	if line < 1 || line > len(lines) {
		return "", fmt.Errorf("line %d out of range (document has %d lines)", line, len(lines))
	}
	lines[line-1] = replacement
	return strings.Join(lines, "\n"), nil
}

// writeAtomic replaces the file contents all-or-nothing via a temp file in
// the same directory.
func writeAtomic(path string, data []byte) error {
	info, err := os.Stat(path)
	mode := os.FileMode(0o644)
	if err == nil {
		mode = info.Mode()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dm-edit-*")
	if err != nil {
		return fmt.Errorf("writing edit: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing edit: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing edit: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing edit: %w", err)
	}
	return nil
}
