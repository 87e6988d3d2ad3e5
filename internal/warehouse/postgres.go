package warehouse

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sam0per/belgian-brewery/internal/model"
)

// Pool is the subset of pgxpool.Pool the warehouse uses; pgxmock
// stands in for it in tests.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresWarehouse implements Warehouse on a pgx connection pool.
type PostgresWarehouse struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresWarehouse with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresWarehouse, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresWarehouse{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS canonical_entities (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	display_name TEXT NOT NULL,
	name_key     TEXT NOT NULL,
	abv          DOUBLE PRECISION,
	styles       JSONB,
	street       TEXT,
	municipality TEXT,
	postcode     TEXT,
	province     TEXT,
	rating       DOUBLE PRECISION,
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
	latitude  DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	tier      TEXT NOT NULL,
	strategy  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS scores (
	entity_id TEXT PRIMARY KEY REFERENCES canonical_entities(id),
	score     DOUBLE PRECISION NOT NULL,
	factors   JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS region_scores (
	region        TEXT PRIMARY KEY,
	score         DOUBLE PRECISION NOT NULL,
	brewery_count INTEGER NOT NULL,
	beer_count    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_summaries (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	summary     JSONB NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entities_kind ON canonical_entities(kind);
CREATE INDEX IF NOT EXISTS idx_entities_province ON canonical_entities(province);
CREATE INDEX IF NOT EXISTS idx_sources_entity ON entity_sources(entity_id);
CREATE INDEX IF NOT EXISTS idx_runs_started ON run_summaries(started_at);
`

func (w *PostgresWarehouse) Migrate(ctx context.Context) error {
	_, err := w.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (w *PostgresWarehouse) Close() error {
	if w.closeFn != nil {
		w.closeFn()
	}
	return nil
}

func (w *PostgresWarehouse) CommitBatch(ctx context.Context, batch Batch) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin batch")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, table := range []string{"entity_sources", "brewery_geo", "scores", "region_scores", "canonical_entities"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return eris.Wrapf(err, "postgres: clear %s", table)
		}
	}

	for _, e := range batch.Entities {
		_, err := tx.Exec(ctx,
			`INSERT INTO canonical_entities
			 (id, kind, display_name, name_key, abv, styles, street, municipality, postcode, province, rating, brewery_id, brewery_name)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			e.ID, string(e.Kind), e.DisplayName, e.NameKey, e.ABV, mustJSON(e.Styles),
			e.Address.Street, e.Address.Municipality, e.Address.Postcode, e.Address.Province,
			e.Rating, e.BreweryID, e.BreweryName,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert entity %s", e.ID)
		}
		for _, src := range e.Sources {
			_, err := tx.Exec(ctx,
				`INSERT INTO entity_sources (entity_id, source_id, name, name_key, seq) VALUES ($1, $2, $3, $4, $5)`,
				e.ID, src.Source, src.Name, src.NameKey, src.Seq,
			)
			if err != nil {
				return eris.Wrapf(err, "postgres: insert source link %s", e.ID)
			}
		}
	}

	for _, g := range batch.Geo {
		_, err := tx.Exec(ctx,
			`INSERT INTO brewery_geo (entity_id, latitude, longitude, tier, strategy) VALUES ($1, $2, $3, $4, $5)`,
			g.EntityID, g.Latitude, g.Longitude, string(g.Tier), g.Strategy,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert geo %s", g.EntityID)
		}
	}

	for _, s := range batch.Scores {
		_, err := tx.Exec(ctx,
			`INSERT INTO scores (entity_id, score, factors) VALUES ($1, $2, $3)`,
			s.EntityID, s.Score, mustJSON(s.Factors),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert score %s", s.EntityID)
		}
	}

	for _, r := range batch.Regions {
		_, err := tx.Exec(ctx,
			`INSERT INTO region_scores (region, score, brewery_count, beer_count) VALUES ($1, $2, $3, $4)`,
			r.Region, r.Score, r.BreweryCount, r.BeerCount,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert region %s", r.Region)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO run_summaries (id, status, summary, started_at, finished_at) VALUES ($1, $2, $3, $4, $5)`,
		batch.Run.ID, string(batch.Run.Status), mustJSON(batch.Run),
		batch.Run.StartedAt.UTC(), batch.Run.FinishedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", batch.Run.ID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit batch")
}

func (w *PostgresWarehouse) ListEntities(ctx context.Context, kind model.EntityKind) ([]model.CanonicalEntity, error) {
	rows, err := w.pool.Query(ctx,
		`SELECT id, kind, display_name, name_key, abv, styles, street, municipality, postcode, province, rating, brewery_id, brewery_name
		 FROM canonical_entities WHERE kind = $1 ORDER BY name_key`, string(kind),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list entities")
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
			return nil, eris.Wrap(err, "postgres: scan entity")
		}
		e.Kind = model.EntityKind(kindStr)
		if e.Styles, err = fromJSON[[]string](stylesRaw); err != nil {
			return nil, err
		}
		index[e.ID] = len(out)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate entities")
	}

	srcRows, err := w.pool.Query(ctx,
		`SELECT entity_id, source_id, name, name_key, seq FROM entity_sources ORDER BY entity_id, seq`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list source links")
	}
	defer srcRows.Close()
	for srcRows.Next() {
		var (
			entityID string
			link     model.SourceLink
		)
		if err := srcRows.Scan(&entityID, &link.Source, &link.Name, &link.NameKey, &link.Seq); err != nil {
			return nil, eris.Wrap(err, "postgres: scan source link")
		}
		if i, ok := index[entityID]; ok {
			out[i].Sources = append(out[i].Sources, link)
		}
	}
	return out, eris.Wrap(srcRows.Err(), "postgres: iterate source links")
}

func (w *PostgresWarehouse) ListGeo(ctx context.Context) ([]model.GeoResult, error) {
	rows, err := w.pool.Query(ctx,
		`SELECT entity_id, latitude, longitude, tier, strategy FROM brewery_geo ORDER BY entity_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list geo")
	}
	defer rows.Close()

	var out []model.GeoResult
	for rows.Next() {
		var (
			g    model.GeoResult
			tier string
		)
		if err := rows.Scan(&g.EntityID, &g.Latitude, &g.Longitude, &tier, &g.Strategy); err != nil {
			return nil, eris.Wrap(err, "postgres: scan geo")
		}
		g.Tier = model.GeoTier(tier)
		out = append(out, g)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate geo")
}

func (w *PostgresWarehouse) PutGeo(ctx context.Context, geo []model.GeoResult) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin geo update")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM brewery_geo"); err != nil {
		return eris.Wrap(err, "postgres: clear brewery_geo")
	}
	for _, g := range geo {
		_, err := tx.Exec(ctx,
			`INSERT INTO brewery_geo (entity_id, latitude, longitude, tier, strategy) VALUES ($1, $2, $3, $4, $5)`,
			g.EntityID, g.Latitude, g.Longitude, string(g.Tier), g.Strategy,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert geo %s", g.EntityID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit geo update")
}

func (w *PostgresWarehouse) PutScores(ctx context.Context, scores []model.ScoreRecord, regions []model.RegionScore) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin score update")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, table := range []string{"scores", "region_scores"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return eris.Wrapf(err, "postgres: clear %s", table)
		}
	}
	for _, s := range scores {
		_, err := tx.Exec(ctx,
			`INSERT INTO scores (entity_id, score, factors) VALUES ($1, $2, $3)`,
			s.EntityID, s.Score, mustJSON(s.Factors),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert score %s", s.EntityID)
		}
	}
	for _, r := range regions {
		_, err := tx.Exec(ctx,
			`INSERT INTO region_scores (region, score, brewery_count, beer_count) VALUES ($1, $2, $3, $4)`,
			r.Region, r.Score, r.BreweryCount, r.BeerCount,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert region %s", r.Region)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit score update")
}

func (w *PostgresWarehouse) GetRun(ctx context.Context, runID string) (*model.RunSummary, error) {
	var raw []byte
	err := w.pool.QueryRow(ctx,
		`SELECT summary FROM run_summaries WHERE id = $1`, runID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	summary, err := fromJSON[model.RunSummary](raw)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (w *PostgresWarehouse) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := w.pool.Query(ctx,
		`SELECT summary FROM run_summaries ORDER BY started_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		summary, err := fromJSON[model.RunSummary](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
