package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sam0per/belgian-brewery/internal/score"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Recompute scores from the current canonical state",
	Long:  "Re-runs the scoring stage over the entities already committed to the warehouse, optionally with overridden factor weights.",
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

		var weights *score.Weights
		if raw, _ := cmd.Flags().GetString("weights"); raw != "" {
			w, err := parseWeights(raw)
			if err != nil {
				return err
			}
			weights = &w
		}

		p, err := initPipeline(wh, initMetrics(), false)
		if err != nil {
			return err
		}

		regions, err := p.Rescore(ctx, weights)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "REGION\tBREWERIES\tBEERS\tSCORE")
		for _, r := range regions {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.3f\n", r.Region, r.BreweryCount, r.BeerCount, r.Score)
		}
		return tw.Flush()
	},
}

// parseWeights turns "diversity=0.4,quality=0.3,density=0.3" into Weights.
// The short factor names from the CLI map onto the canonical score factors.
func parseWeights(raw string) (score.Weights, error) {
	aliases := map[string]string{
		"diversity":           score.FactorDiversity,
		"quality":             score.FactorQuality,
		"density":             score.FactorDensity,
		score.FactorDiversity: score.FactorDiversity,
		score.FactorQuality:   score.FactorQuality,
		score.FactorDensity:   score.FactorDensity,
	}

	m := make(map[string]float64)
	for _, part := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return score.Weights{}, eris.Errorf("malformed weight %q, expected name=value", part)
		}
		canonical, ok := aliases[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			return score.Weights{}, eris.Errorf("unknown weight factor %q", key)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return score.Weights{}, eris.Wrapf(err, "weight %q", key)
		}
		m[canonical] = f
	}
	return score.NewWeightsFromMap(m)
}

func init() {
	scoreCmd.Flags().String("weights", "", "Override factor weights, e.g. diversity=0.4,quality=0.3,density=0.3 (must sum to 1.0)")
	rootCmd.AddCommand(scoreCmd)
}
