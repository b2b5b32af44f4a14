// Package notify is how pipelines talk to the user outside a panel:
// informational notices, dismissible errors, and the rare blocking prompt.
package notify

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Notifier surfaces messages and prompts. Pipelines depend on this
// interface so tests can observe what the user would have seen.
type Notifier interface {
	// Info surfaces an informational message (not an error).
	Info(format string, args ...any)
	// Error surfaces a dismissible error message.
	Error(format string, args ...any)
	// Confirm asks a yes/no question and reports the answer.
	Confirm(prompt string) bool
	// Choose presents options and returns the chosen index, or -1 when
	// the user aborts.
	Choose(prompt string, options ...string) int
}

// Terminal is the interactive stdin/stderr Notifier.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminal returns a Notifier on stdin/stderr.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stderr}
}

func (t *Terminal) Info(format string, args ...any) {
	fmt.Fprintf(t.Out, format+"\n", args...)
}

func (t *Terminal) Error(format string, args ...any) {
	fmt.Fprintf(t.Out, "Error: "+format+"\n", args...)
}

func (t *Terminal) Confirm(prompt string) bool {
	fmt.Fprintf(t.Out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(t.In).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (t *Terminal) Choose(prompt string, options ...string) int {
	fmt.Fprintln(t.Out, prompt)
	for i, opt := range options {
		fmt.Fprintf(t.Out, "  %d) %s\n", i+1, opt)
	}
	fmt.Fprintf(t.Out, "Choice [1-%d, empty to cancel]: ", len(options))
	line, err := bufio.NewReader(t.In).ReadString('\n')
	if err != nil {
		return -1
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return -1
	}
	var n int
	if _, err := fmt.Sscanf(line, "%d", &n); err != nil || n < 1 || n > len(options) {
		return -1
	}
	return n - 1
}
