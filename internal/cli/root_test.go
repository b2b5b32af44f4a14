package cli

import (
	"io"
	"os"
	"strings"
	"testing"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, want := range []string{"debug", "review", "commit", "auth", "health", "stats", "version"} {
		if !names[want] {
			t.Errorf("root command missing subcommand %q", want)
		}
	}
}

func TestAuthSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range authCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"login", "logout", "status"} {
		if !names[want] {
			t.Errorf("auth command missing subcommand %q", want)
		}
	}
}

func TestExecutePrintsErrors(t *testing.T) {
	rootCmd.SetArgs([]string{"no-such-command"})
	defer rootCmd.SetArgs(nil)

	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = w
	execErr := Execute()
	w.Close()
	os.Stderr = old
	out, _ := io.ReadAll(r)

	if execErr == nil {
		t.Fatal("expected error for unknown subcommand")
	}
	if !strings.Contains(string(out), "Error:") {
		t.Errorf("stderr = %q, want the error surfaced", out)
	}
}

func TestVersionOutput(t *testing.T) {
	// version vars are set via ldflags; in tests they have their defaults
	if version != "dev" {
		t.Errorf("expected default version %q, got %q", "dev", version)
	}
}

func TestParseLineRange(t *testing.T) {
	tests := []struct {
		in        string
		wantStart int
		wantEnd   int
		wantErr   bool
	}{
		{"1:10", 1, 10, false},
		{"5:5", 5, 5, false},
		{"10", 0, 0, true},
		{"0:5", 0, 0, true},
		{"5:1", 0, 0, true},
		{"a:b", 0, 0, true},
	}
	for _, tt := range tests {
		start, end, err := parseLineRange(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseLineRange(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseLineRange(%q): %v", tt.in, err)
			continue
		}
		if start != tt.wantStart || end != tt.wantEnd {
			t.Errorf("parseLineRange(%q) = (%d, %d), want (%d, %d)", tt.in, start, end, tt.wantStart, tt.wantEnd)
		}
	}
}
