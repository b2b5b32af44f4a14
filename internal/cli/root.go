// Package cli wires the dm commands together. The services every pipeline
// shares (settings, auth, transport, panels) are constructed once per
// process and injected; nothing in the core packages reaches for globals.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dm",
	Short: "DevMind: AI-assisted debugging, review, and commit messages",
	Long: `dm connects your repository to the DevMind inference service.

Commands gather local context (open files, staged diffs), send it for
analysis, and render the results in an interactive panel where suggested
fixes can be applied back to your files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var settingsPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "path to the settings file (default: XDG config dir)")
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. Errors print here, once, rather than
// through cobra, so failures reach stderr even with SilenceErrors set.
func Execute() error {
	err := rootCmd.Execute()
	closeApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}
