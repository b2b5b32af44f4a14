package cli

import (
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review pending changes in the current repository",
	Long: `Send the repository's staged diff (falling back to unstaged changes
after confirmation) to the inference service for review. Comments open in
an interactive panel grouped by file, with fixes that can be applied
in place.`,
	Args: cobra.NoArgs,
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().BoolVar(&webPanels, "web", false, "render the result panel in a browser tab")
}

func runReview(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	deps, err := a.pipelineDeps(cmd.Context())
	if err != nil {
		return err
	}

	p, err := deps.Review(cmd.Context())
	if err != nil {
		return err
	}
	if p != nil {
		p.Wait()
	}
	return nil
}
