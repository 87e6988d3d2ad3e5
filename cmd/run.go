package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sam0per/belgian-brewery/internal/ingest"
	"github.com/sam0per/belgian-brewery/internal/model"
	"github.com/sam0per/belgian-brewery/internal/observability"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full batch pipeline",
	Long:  "Ingests the configured sources, reconciles entities, geocodes breweries, computes scores, and commits the batch to the warehouse.",
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

		metrics := initMetrics()
		srv := startMetricsServer()
		if srv != nil {
			defer func() {
				shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutCtx)
			}()
		}

		p, err := initPipeline(wh, metrics, false)
		if err != nil {
			return err
		}

		inputDir, _ := cmd.Flags().GetString("input")
		sources := cfg.Sources
		if inputDir != "" {
			sources = rebaseSources(sources, inputDir)
		}
		if len(sources) == 0 {
			return eris.New("no sources configured")
		}

		raw, err := ingest.NewReader().ReadSources(ctx, sources)
		if err != nil {
			return err
		}

		summary, err := p.RunRecords(ctx, raw)
		if summary != nil {
			printSummary(summary)
		}
		return err
	},
}

// rebaseSources points every relative source path into dir.
func rebaseSources(sources []ingest.Source, dir string) []ingest.Source {
	out := make([]ingest.Source, len(sources))
	for i, s := range sources {
		if s.Path != "" && s.Path[0] != '/' {
			s.Path = dir + "/" + s.Path
		}
		out[i] = s
	}
	return out
}

// startMetricsServer exposes /healthz and /metrics when an address is
// configured. Counters registered on the default registerer show up
// automatically.
func startMetricsServer() *observability.Server {
	if cfg.Metrics.Addr == "" {
		return nil
	}
	srv := observability.NewServer(cfg.Metrics.Addr)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			zap.L().Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}

func printSummary(s *model.RunSummary) {
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "summary: %+v\n", s)
		return
	}
	fmt.Println(string(out))
}

func init() {
	runCmd.Flags().String("input", "", "Directory holding the source files (rebases relative source paths)")
	rootCmd.AddCommand(runCmd)
}
