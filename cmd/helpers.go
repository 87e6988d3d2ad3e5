package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sam0per/belgian-brewery/internal/geocode"
	"github.com/sam0per/belgian-brewery/internal/ingest"
	"github.com/sam0per/belgian-brewery/internal/model"
	"github.com/sam0per/belgian-brewery/internal/observability"
	"github.com/sam0per/belgian-brewery/internal/pipeline"
	"github.com/sam0per/belgian-brewery/internal/warehouse"

	"github.com/prometheus/client_golang/prometheus"
)

func initWarehouse(ctx context.Context) (warehouse.Warehouse, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "brewery.db"
		}
		return warehouse.NewSQLite(dsn)
	case "postgres":
		return warehouse.NewPostgres(ctx, cfg.Store.DatabaseURL, &warehouse.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initGeocoder builds the cascade: embedded municipality table first,
// the external street resolver behind it when configured.
func initGeocoder(metrics *observability.Metrics, streetOnly bool) (*geocode.Cascade, *geocode.MunicipalityProvider, error) {
	municipal, err := geocode.NewMunicipalityProvider()
	if err != nil {
		return nil, nil, err
	}
	street := geocode.NewStreetProvider(geocode.StreetConfig{
		BaseURL:    cfg.Geocode.BaseURL,
		UserAgent:  cfg.Geocode.UserAgent,
		Timeout:    cfg.Geocode.Timeout(),
		RatePerSec: cfg.Geocode.RatePerSec,
	})

	requireTier := model.TierMunicipality
	if streetOnly || cfg.Geocode.RequiredTier == "street" {
		requireTier = model.TierStreet
	}

	opts := []geocode.CascadeOption{
		geocode.WithRequiredTier(requireTier),
		geocode.WithConcurrency(cfg.Geocode.Concurrency),
	}
	if metrics != nil {
		opts = append(opts, geocode.WithMetrics(metrics))
	}
	cascade := geocode.NewCascade(geocode.NewCache(), []geocode.Provider{municipal, street}, opts...)
	return cascade, municipal, nil
}

func initPipeline(wh warehouse.Warehouse, metrics *observability.Metrics, streetOnly bool) (*pipeline.Pipeline, error) {
	cascade, municipal, err := initGeocoder(metrics, streetOnly)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{pipeline.WithProvinceLookup(municipal)}
	if metrics != nil {
		opts = append(opts, pipeline.WithMetrics(metrics))
	}
	return pipeline.New(cfg, wh, ingest.NewReader(), cascade, opts...)
}

func initMetrics() *observability.Metrics {
	return observability.NewMetrics(prometheus.DefaultRegisterer)
}
