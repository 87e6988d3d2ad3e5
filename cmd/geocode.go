package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Backfill geocodes for committed breweries",
	Long:  "Re-runs the geocoding cascade over every brewery in the warehouse. Previously resolved tiers are only ever upgraded, never downgraded.",
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

		street, _ := cmd.Flags().GetBool("street")
		muniOnly, _ := cmd.Flags().GetBool("municipality-only")
		if street && muniOnly {
			return eris.New("--street and --municipality-only are mutually exclusive")
		}
		if muniOnly {
			cfg.Geocode.RequiredTier = "municipality"
		}

		p, err := initPipeline(wh, initMetrics(), street)
		if err != nil {
			return err
		}

		geocoded, unresolved, err := p.BackfillGeo(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("geocoded %d breweries, %d unresolved\n", geocoded, unresolved)
		return nil
	},
}

func init() {
	geocodeCmd.Flags().Bool("street", false, "Require street-level precision (consults the external resolver for every brewery)")
	geocodeCmd.Flags().Bool("municipality-only", false, "Settle for municipality centroids (default)")
	rootCmd.AddCommand(geocodeCmd)
}
