package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var activityLimit int64

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show the newest import activity records",
	Long: `Reads back the activity records pushed to Redis, newest first.
Requires activity.redis_addr to be configured.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := requirePipeline()
		if err != nil {
			return err
		}
		if p.History == nil {
			return errors.New("activity history requires activity.redis_addr")
		}

		records, err := p.History.Recent(cmd.Context(), activityLimit)
		if err != nil {
			return fmt.Errorf("failed to read activity: %w", err)
		}

		for _, r := range records {
			status := "ok"
			if !r.Success {
				status = "fail " + string(r.Code)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-20s %-10s %-14s %s\n",
				r.Timestamp.Format("2006-01-02 15:04:05"), r.Action, r.Platform, status, r.URL)
		}
		return nil
	},
}

func init() {
	activityCmd.Flags().Int64VarP(&activityLimit, "limit", "n", 20, "number of records to show")
	rootCmd.AddCommand(activityCmd)
}
