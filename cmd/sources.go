package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources and their priority order",
	RunE: func(_ *cobra.Command, _ []string) error {
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tKIND\tPATH")
		for _, s := range cfg.Sources {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Kind, s.Path)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if len(cfg.Match.SourcePriority) > 0 {
			fmt.Printf("\npriority: %s\n", strings.Join(cfg.Match.SourcePriority, " > "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
