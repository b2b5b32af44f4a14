package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show local usage statistics",
	Long:  `Show invocation counts, failures, and average durations per command from the local telemetry database.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}
		if a.telemetry == nil {
			fmt.Println("Telemetry is disabled.")
			return nil
		}

		rows, err := a.telemetry.Stats(cmd.Context())
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No invocations recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "COMMAND\tRUNS\tFAILURES\tAVG DURATION")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", r.Command, r.Total, r.Failures, r.AvgDuration.Round(time.Millisecond))
		}
		return w.Flush()
	},
}
