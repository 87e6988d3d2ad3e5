// Package warehouse persists the canonical and derived tables of one
// pipeline run. A batch is written inside a single transaction: until
// the commit succeeds nothing from the run is visible, and the stored
// canonical state is always the product of exactly one run.
package warehouse

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sam0per/belgian-brewery/internal/model"
)

// Batch is the full output of one pipeline run.
type Batch struct {
	Run      model.RunSummary
	Entities []model.CanonicalEntity
	Geo      []model.GeoResult
	Scores   []model.ScoreRecord
	Regions  []model.RegionScore
}

// Warehouse is the persistence collaborator of the pipeline.
type Warehouse interface {
	// Migrate creates the schema if it does not exist.
	Migrate(ctx context.Context) error

	// CommitBatch replaces the canonical and derived tables with the
	// batch contents and appends the run summary, atomically. A failed
	// commit leaves the previous state untouched.
	CommitBatch(ctx context.Context, batch Batch) error

	// ListEntities returns the committed canonical entities of one
	// kind, with their source links, ordered by name key.
	ListEntities(ctx context.Context, kind model.EntityKind) ([]model.CanonicalEntity, error)

	// ListGeo returns the committed brewery geocodes.
	ListGeo(ctx context.Context) ([]model.GeoResult, error)

	// PutGeo replaces the brewery geocode table, atomically. Used by
	// the geocode backfill path.
	PutGeo(ctx context.Context, geo []model.GeoResult) error

	// PutScores replaces the score and region score tables,
	// atomically. Used when scores are recomputed without a full run.
	PutScores(ctx context.Context, scores []model.ScoreRecord, regions []model.RegionScore) error

	// GetRun returns one run summary by identifier.
	GetRun(ctx context.Context, runID string) (*model.RunSummary, error)

	// ListRuns returns the most recent run summaries, newest first.
	ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error)

	Close() error
}

// mustJSON marshals values whose shape the caller controls; a failure
// here is a programming error, not an input error.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(eris.Wrap(err, "warehouse: marshal"))
	}
	return string(b)
}

func fromJSON[T any](raw []byte) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, eris.Wrap(err, "warehouse: unmarshal")
	}
	return v, nil
}
