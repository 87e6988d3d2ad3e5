package warehouse

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sam0per/belgian-brewery/internal/model"
)

// SQLiteWarehouse implements Warehouse on a local SQLite file, the
// default for development runs.
type SQLiteWarehouse struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures
// WAL mode.
func NewSQLite(dsn string) (*SQLiteWarehouse, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteWarehouse{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS canonical_entities (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	display_name TEXT NOT NULL,
	name_key     TEXT NOT NULL,
	abv          REAL,
	styles       TEXT,
	street       TEXT,
	municipality TEXT,
	postcode     TEXT,
	province     TEXT,
	rating       REAL,
	brewery_id   TEXT,
	brewery_name TEXT
);

CREATE TABLE IF NOT EXISTS entity_sources (
	entity_id TEXT NOT NULL REFERENCES canonical_entities(id),
	source_id TEXT NOT NULL,
	name      TEXT NOT NULL,
	name_key  TEXT NOT NULL,
	seq       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS brewery_geo (
	entity_id TEXT PRIMARY KEY REFERENCES canonical_entities(id),
	latitude  REAL NOT NULL,
	longitude REAL NOT NULL,
	tier      TEXT NOT NULL,
	strategy  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS scores (
	entity_id TEXT PRIMARY KEY REFERENCES canonical_entities(id),
	score     REAL NOT NULL,
	factors   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS region_scores (
	region        TEXT PRIMARY KEY,
	score         REAL NOT NULL,
	brewery_count INTEGER NOT NULL,
	beer_count    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_summaries (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	summary     TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entities_kind ON canonical_entities(kind);
CREATE INDEX IF NOT EXISTS idx_entities_province ON canonical_entities(province);
CREATE INDEX IF NOT EXISTS idx_sources_entity ON entity_sources(entity_id);
CREATE INDEX IF NOT EXISTS idx_runs_started ON run_summaries(started_at);
`

func (w *SQLiteWarehouse) Migrate(ctx context.Context) error {
	_, err := w.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (w *SQLiteWarehouse) Close() error {
	return w.db.Close()
}

func (w *SQLiteWarehouse) CommitBatch(ctx context.Context, batch Batch) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin batch")
	}
	defer func() { _ = tx.Rollback() }()

	// Canonical and derived state is fully replaced; the run summary
	// log is append-only.
	for _, table := range []string{"entity_sources", "brewery_geo", "scores", "region_scores", "canonical_entities"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s", table)
		}
	}

	for _, e := range batch.Entities {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO canonical_entities
			 (id, kind, display_name, name_key, abv, styles, street, municipality, postcode, province, rating, brewery_id, brewery_name)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, string(e.Kind), e.DisplayName, e.NameKey, e.ABV, mustJSON(e.Styles),
			e.Address.Street, e.Address.Municipality, e.Address.Postcode, e.Address.Province,
			e.Rating, e.BreweryID, e.BreweryName,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert entity %s", e.ID)
		}
		for _, src := range e.Sources {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO entity_sources (entity_id, source_id, name, name_key, seq) VALUES (?, ?, ?, ?, ?)`,
				e.ID, src.Source, src.Name, src.NameKey, src.Seq,
			)
			if err != nil {
				return eris.Wrapf(err, "sqlite: insert source link %s", e.ID)
			}
		}
	}

	for _, g := range batch.Geo {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO brewery_geo (entity_id, latitude, longitude, tier, strategy) VALUES (?, ?, ?, ?, ?)`,
			g.EntityID, g.Latitude, g.Longitude, string(g.Tier), g.Strategy,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert geo %s", g.EntityID)
		}
	}

	for _, s := range batch.Scores {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO scores (entity_id, score, factors) VALUES (?, ?, ?)`,
			s.EntityID, s.Score, mustJSON(s.Factors),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert score %s", s.EntityID)
		}
	}

	for _, r := range batch.Regions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO region_scores (region, score, brewery_count, beer_count) VALUES (?, ?, ?, ?)`,
			r.Region, r.Score, r.BreweryCount, r.BeerCount,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert region %s", r.Region)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO run_summaries (id, status, summary, started_at, finished_at) VALUES (?, ?, ?, ?, ?)`,
		batch.Run.ID, string(batch.Run.Status), mustJSON(batch.Run),
		batch.Run.StartedAt.UTC(), batch.Run.FinishedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", batch.Run.ID)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit batch")
}

func (w *SQLiteWarehouse) ListEntities(ctx context.Context, kind model.EntityKind) ([]model.CanonicalEntity, error) {
	rows, err := w.db.QueryContext(ctx,
		`SELECT id, kind, display_name, name_key, abv, styles, street, municipality, postcode, province, rating, brewery_id, brewery_name
		 FROM canonical_entities WHERE kind = ? ORDER BY name_key`, string(kind),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list entities")
	}
	defer rows.Close()

	var out []model.CanonicalEntity
	index := make(map[string]int)
	for rows.Next() {
		var (
			e         model.CanonicalEntity
			kindStr   string
			stylesRaw []byte
		)
		err := rows.Scan(&e.ID, &kindStr, &e.DisplayName, &e.NameKey, &e.ABV, &stylesRaw,
			&e.Address.Street, &e.Address.Municipality, &e.Address.Postcode, &e.Address.Province,
			&e.Rating, &e.BreweryID, &e.BreweryName)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan entity")
		}
		e.Kind = model.EntityKind(kindStr)
		if e.Styles, err = fromJSON[[]string](stylesRaw); err != nil {
			return nil, err
		}
		index[e.ID] = len(out)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate entities")
	}

	srcRows, err := w.db.QueryContext(ctx,
		`SELECT entity_id, source_id, name, name_key, seq FROM entity_sources ORDER BY entity_id, seq`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list source links")
	}
	defer srcRows.Close()
	for srcRows.Next() {
		var (
			entityID string
			link     model.SourceLink
		)
		if err := srcRows.Scan(&entityID, &link.Source, &link.Name, &link.NameKey, &link.Seq); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan source link")
		}
		if i, ok := index[entityID]; ok {
			out[i].Sources = append(out[i].Sources, link)
		}
	}
	return out, eris.Wrap(srcRows.Err(), "sqlite: iterate source links")
}

func (w *SQLiteWarehouse) ListGeo(ctx context.Context) ([]model.GeoResult, error) {
	rows, err := w.db.QueryContext(ctx,
		`SELECT entity_id, latitude, longitude, tier, strategy FROM brewery_geo ORDER BY entity_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list geo")
	}
	defer rows.Close()

	var out []model.GeoResult
	for rows.Next() {
		var (
			g    model.GeoResult
			tier string
		)
		if err := rows.Scan(&g.EntityID, &g.Latitude, &g.Longitude, &tier, &g.Strategy); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan geo")
		}
		g.Tier = model.GeoTier(tier)
		out = append(out, g)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate geo")
}

func (w *SQLiteWarehouse) PutGeo(ctx context.Context, geo []model.GeoResult) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin geo update")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM brewery_geo"); err != nil {
		return eris.Wrap(err, "sqlite: clear brewery_geo")
	}
	for _, g := range geo {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO brewery_geo (entity_id, latitude, longitude, tier, strategy) VALUES (?, ?, ?, ?, ?)`,
			g.EntityID, g.Latitude, g.Longitude, string(g.Tier), g.Strategy,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert geo %s", g.EntityID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit geo update")
}

func (w *SQLiteWarehouse) PutScores(ctx context.Context, scores []model.ScoreRecord, regions []model.RegionScore) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin score update")
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"scores", "region_scores"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s", table)
		}
	}
	for _, s := range scores {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO scores (entity_id, score, factors) VALUES (?, ?, ?)`,
			s.EntityID, s.Score, mustJSON(s.Factors),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert score %s", s.EntityID)
		}
	}
	for _, r := range regions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO region_scores (region, score, brewery_count, beer_count) VALUES (?, ?, ?, ?)`,
			r.Region, r.Score, r.BreweryCount, r.BeerCount,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert region %s", r.Region)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit score update")
}

func (w *SQLiteWarehouse) GetRun(ctx context.Context, runID string) (*model.RunSummary, error) {
	var raw []byte
	err := w.db.QueryRowContext(ctx,
		`SELECT summary FROM run_summaries WHERE id = ?`, runID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	summary, err := fromJSON[model.RunSummary](raw)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (w *SQLiteWarehouse) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := w.db.QueryContext(ctx,
		`SELECT summary FROM run_summaries ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		summary, err := fromJSON[model.RunSummary](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

// CountEntities reports rows in canonical_entities of one kind, used by
// the status command and tests.
func (w *SQLiteWarehouse) CountEntities(ctx context.Context, kind model.EntityKind) (int, error) {
	var n int
	err := w.db.QueryRowContext(ctx,
		`SELECT count(*) FROM canonical_entities WHERE kind = ?`, string(kind),
	).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count entities")
}
