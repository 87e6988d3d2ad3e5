package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sam0per/belgian-brewery/internal/ingest"
	"github.com/sam0per/belgian-brewery/internal/model"
)

func ingestSource(id, path string) ingest.Source {
	return ingest.Source{ID: id, Kind: model.KindBeer, Path: path}
}

func chTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "brewery.db", cfg.Store.DatabaseURL)
	assert.InDelta(t, 0.85, cfg.Match.Threshold, 0.001)
	assert.InDelta(t, 0.03, cfg.Match.AmbiguityMargin, 0.001)
	assert.Equal(t, "municipality", cfg.Geocode.RequiredTier)
	assert.Equal(t, 4, cfg.Geocode.Concurrency)
	assert.InDelta(t, 1.0, cfg.Geocode.RatePerSec, 0.001)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	w, err := cfg.ScoreWeights()
	require.NoError(t, err)
	assert.InDelta(t, 0.4, w.Diversity, 0.001)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/brewery
match:
  threshold: 0.9
  source_priority: [registry, catalog]
geocode:
  required_tier: street
  base_url: https://nominatim.example.org
score:
  weights:
    beer_diversity: 0.5
    quality_signal: 0.25
    regional_density: 0.25
sources:
  - id: catalog
    kind: beer
    path: data/beers.csv
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.InDelta(t, 0.9, cfg.Match.Threshold, 0.001)
	assert.Equal(t, []string{"registry", "catalog"}, cfg.Match.SourcePriority)
	assert.Equal(t, "street", cfg.Geocode.RequiredTier)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "catalog", cfg.Sources[0].ID)

	w, err := cfg.ScoreWeights()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, w.Diversity, 0.001)
}

func TestLoadEnvOverride(t *testing.T) {
	chTempDir(t)
	t.Setenv("BREWERY_MATCH_THRESHOLD", "0.75")
	t.Setenv("BREWERY_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.75, cfg.Match.Threshold, 0.001)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	base := func() *Config {
		return &Config{
			Store:   StoreConfig{Driver: "sqlite"},
			Match:   MatchConfig{Threshold: 0.85},
			Geocode: GeocodeConfig{RequiredTier: "municipality"},
		}
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Store.Driver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Match.Threshold = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Match.Threshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Geocode.RequiredTier = "country"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Score.Weights = map[string]float64{"beer_diversity": 0.9}
	assert.Error(t, cfg.Validate(), "weights no longer sum to 1.0")

	cfg = base()
	cfg.Sources = append(cfg.Sources,
		ingestSource("a", "a.csv"),
		ingestSource("a", "b.csv"),
	)
	assert.Error(t, cfg.Validate(), "duplicate source id")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
}
