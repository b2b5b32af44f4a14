package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jarvis-nvidia/dm/internal/pipeline"
)

var debugCmd = &cobra.Command{
	Use:   "debug <file>",
	Short: "Analyze a file (or selection) for bugs",
	Long: `Send a file, or a line range within it, to the inference service for
debug analysis. Findings open in an interactive panel where solutions can
be copied or applied directly to the file.

Examples:
  dm debug main.go                 # whole file
  dm debug main.go --lines 40:55   # just the selection
  dm debug main.go -p "panics on empty input"`,
	Args: cobra.ExactArgs(1),
	RunE: runDebug,
}

func init() {
	debugCmd.Flags().StringP("lines", "l", "", "line selection START:END (1-based, inclusive)")
	debugCmd.Flags().StringP("problem", "p", "", "description of the problem")
	debugCmd.Flags().BoolVar(&webPanels, "web", false, "render the result panel in a browser tab")
}

func runDebug(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	deps, err := a.pipelineDeps(cmd.Context())
	if err != nil {
		return err
	}

	opts := pipeline.DebugOptions{Path: args[0]}
	opts.Problem, _ = cmd.Flags().GetString("problem")

	lines, _ := cmd.Flags().GetString("lines")
	if lines != "" {
		opts.StartLine, opts.EndLine, err = parseLineRange(lines)
		if err != nil {
			return err
		}
	}

	p, err := deps.Debug(cmd.Context(), opts)
	if err != nil {
		return err
	}
	if p != nil {
		p.Wait()
	}
	return nil
}

func parseLineRange(s string) (start, end int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid line range %q (want START:END)", s)
	}
	if _, err := fmt.Sscanf(s, "%d:%d", &start, &end); err != nil {
		return 0, 0, fmt.Errorf("invalid line range %q (want START:END)", s)
	}
	if start < 1 || end < start {
		return 0, 0, fmt.Errorf("invalid line range %q (want 1 <= START <= END)", s)
	}
	return start, end, nil
}
