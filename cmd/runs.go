package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		wh, err := initWarehouse(ctx)
		if err != nil {
			return err
		}
		defer wh.Close() //nolint:errcheck
		if err := wh.Migrate(ctx); err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := wh.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tSTARTED\tRECORDS\tBREWERIES\tBEERS\tGEOCODED\tUNRESOLVED")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
				r.ID, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"),
				r.RawRecords, r.Breweries, r.Beers, r.Geocoded, r.Unresolved)
		}
		return tw.Flush()
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	rootCmd.AddCommand(runsCmd)
}
