package cli

import (
	"github.com/spf13/cobra"
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Generate a commit message for staged changes",
	Long: `Generate a commit message from the staged diff. The message is copied
to the clipboard and can be viewed as a document or used to commit
directly.`,
	Args: cobra.NoArgs,
	RunE: runCommit,
}

func runCommit(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	deps, err := a.pipelineDeps(cmd.Context())
	if err != nil {
		return err
	}
	return deps.Commit(cmd.Context())
}
