package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check connectivity to the inference service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}
		if err := a.client.Health(cmd.Context()); err != nil {
			return fmt.Errorf("service unreachable: %w", err)
		}
		fmt.Printf("Service at %s is healthy.\n", a.store.Get().EndpointURL)
		return nil
	},
}
