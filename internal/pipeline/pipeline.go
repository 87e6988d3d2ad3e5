// Package pipeline orchestrates one batch run: Normalize, Match,
// Geocode, Score, then a single write-then-commit into the warehouse.
package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sam0per/belgian-brewery/internal/config"
	"github.com/sam0per/belgian-brewery/internal/geocode"
	"github.com/sam0per/belgian-brewery/internal/ingest"
	"github.com/sam0per/belgian-brewery/internal/match"
	"github.com/sam0per/belgian-brewery/internal/model"
	"github.com/sam0per/belgian-brewery/internal/normalize"
	"github.com/sam0per/belgian-brewery/internal/observability"
	"github.com/sam0per/belgian-brewery/internal/score"
	"github.com/sam0per/belgian-brewery/internal/warehouse"
)

// Geocoder is the geocoding collaborator of the pipeline; the cascade
// implements it, tests substitute fakes.
type Geocoder interface {
	BatchGeocode(ctx context.Context, addrs []model.Address) []*geocode.Result
}

// ProvinceLookup backfills a region for breweries whose sources never
// declared one but did declare a known municipality.
type ProvinceLookup interface {
	Province(municipalityName string) string
}

// Pipeline runs the reconciliation, enrichment, and scoring stages
// over one batch of raw records.
type Pipeline struct {
	cfg        *config.Config
	wh         warehouse.Warehouse
	reader     *ingest.Reader
	normalizer *normalize.Normalizer
	matcher    *match.Matcher
	geocoder   Geocoder
	provinces  ProvinceLookup
	scorer     *score.Scorer
	metrics    *observability.Metrics
	clock      clockwork.Clock
	log        *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock injects the time source.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithMetrics attaches pipeline counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithProvinceLookup attaches a municipality-to-province table.
func WithProvinceLookup(l ProvinceLookup) Option {
	return func(p *Pipeline) { p.provinces = l }
}

// New creates a Pipeline. The matcher and scorer are built from the
// run configuration, which must already be validated.
func New(cfg *config.Config, wh warehouse.Warehouse, reader *ingest.Reader, geocoder Geocoder, opts ...Option) (*Pipeline, error) {
	weights, err := cfg.ScoreWeights()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:    cfg,
		wh:     wh,
		reader: reader,
		normalizer: normalize.New(),
		matcher: match.New(match.Options{
			Threshold:       cfg.Match.Threshold,
			AmbiguityMargin: cfg.Match.AmbiguityMargin,
			SourcePriority:  cfg.Match.SourcePriority,
		}),
		geocoder: geocoder,
		scorer:   score.New(weights),
		clock:    clockwork.NewRealClock(),
		log:      zap.L().With(zap.String("component", "pipeline")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run ingests the configured sources and processes them as one batch.
func (p *Pipeline) Run(ctx context.Context) (*model.RunSummary, error) {
	raw, err := p.reader.ReadSources(ctx, p.cfg.Sources)
	if err != nil {
		return nil, err
	}
	return p.RunRecords(ctx, raw)
}

// RunRecords processes one batch of raw records through all stages and
// commits the result. The batch is all-or-nothing at the warehouse:
// nothing is visible until the final commit succeeds. Entity-level
// problems (rejected records, unresolved geocodes) degrade the run to
// partial, they never abort it.
func (p *Pipeline) RunRecords(ctx context.Context, raw []model.RawRecord) (*model.RunSummary, error) {
	started := p.clock.Now().UTC()
	summary := &model.RunSummary{
		ID:         uuid.New().String(),
		StartedAt:  started,
		RawRecords: len(raw),
	}
	log := p.log.With(zap.String("run", summary.ID))
	log.Info("run starting", zap.Int("raw_records", len(raw)))

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: run aborted")
	}

	// Normalize.
	norm := p.normalizer.Batch(raw)
	summary.Rejected = norm.Rejected
	p.count(func(m *observability.Metrics) {
		m.RecordsNormalized.Add(float64(len(norm.Records)))
		m.RecordsRejected.Add(float64(len(norm.Rejected)))
	})

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: run aborted after normalize")
	}

	// Match, breweries first so beers can link against them.
	var beerRecs, breweryRecs []model.NormalizedRecord
	for _, r := range norm.Records {
		if r.Kind == model.KindBeer {
			beerRecs = append(beerRecs, r)
		} else {
			breweryRecs = append(breweryRecs, r)
		}
	}
	breweryRes := p.matcher.Partition(breweryRecs)
	beerRes := p.matcher.Partition(beerRecs)
	beers, breweries := p.matcher.LinkBeers(beerRes.Entities, breweryRes.Entities)
	summary.Ambiguous = breweryRes.Ambiguous + beerRes.Ambiguous
	summary.Breweries = len(breweries)
	summary.Beers = len(beers)
	p.count(func(m *observability.Metrics) {
		merged := (len(breweryRecs) - len(breweryRes.Entities)) + (len(beerRecs) - len(beerRes.Entities))
		m.EntitiesMerged.Add(float64(merged))
	})

	p.backfillProvinces(breweries)

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: run aborted after match")
	}

	// Geocode. Failures surface as unresolved results, never as a
	// batch error.
	geo := p.geocodeBreweries(ctx, breweries, summary)

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: run aborted after geocode")
	}

	// Score.
	scores, regions := p.scorer.Score(breweries, beers)

	// Commit.
	summary.FinishedAt = p.clock.Now().UTC()
	summary.Status = runStatus(summary)

	batch := warehouse.Batch{
		Run:      *summary,
		Entities: append(breweries, beers...),
		Geo:      geo,
		Scores:   scores,
		Regions:  regions,
	}
	if err := p.wh.CommitBatch(ctx, batch); err != nil {
		summary.Status = model.RunFatal
		summary.Error = err.Error()
		p.countRun(summary.Status)
		return summary, eris.Wrap(err, "pipeline: commit batch")
	}

	p.countRun(summary.Status)
	log.Info("run committed",
		zap.String("status", string(summary.Status)),
		zap.Int("breweries", summary.Breweries),
		zap.Int("beers", summary.Beers),
		zap.Int("geocoded", summary.Geocoded),
		zap.Int("unresolved", summary.Unresolved),
		zap.Int("rejected", len(summary.Rejected)),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

// geocodeBreweries resolves every brewery address with bounded
// concurrency and merges against previously committed geocodes so a
// rerun can only hold or upgrade a brewery's tier, never downgrade it.
func (p *Pipeline) geocodeBreweries(ctx context.Context, breweries []model.CanonicalEntity, summary *model.RunSummary) []model.GeoResult {
	prior := make(map[string]*model.GeoResult)
	if committed, err := p.wh.ListGeo(ctx); err != nil {
		p.log.Warn("previous geocodes unavailable", zap.Error(err))
	} else {
		for i := range committed {
			prior[committed[i].EntityID] = &committed[i]
		}
	}

	addrs := make([]model.Address, len(breweries))
	for i, b := range breweries {
		addrs[i] = b.Address
	}
	results := p.geocoder.BatchGeocode(ctx, addrs)

	var out []model.GeoResult
	for i, r := range results {
		var fresh *model.GeoResult
		if r.Resolved() {
			fresh = &model.GeoResult{
				EntityID:  breweries[i].ID,
				Latitude:  r.Latitude,
				Longitude: r.Longitude,
				Tier:      r.Tier,
				Strategy:  r.Strategy,
			}
		}
		best := model.Upgrade(prior[breweries[i].ID], fresh)
		if best == nil {
			summary.Unresolved++
			continue
		}
		summary.Geocoded++
		out = append(out, *best)
	}
	return out
}

// backfillProvinces fills a missing declared region from the
// municipality table so regional density and rollups cover breweries
// whose sources only gave a city.
func (p *Pipeline) backfillProvinces(breweries []model.CanonicalEntity) {
	if p.provinces == nil {
		return
	}
	for i := range breweries {
		if breweries[i].Address.Province == "" && breweries[i].Address.Municipality != "" {
			breweries[i].Address.Province = p.provinces.Province(breweries[i].Address.Municipality)
		}
	}
}

func runStatus(s *model.RunSummary) model.RunStatus {
	if len(s.Rejected) > 0 || s.Unresolved > 0 {
		return model.RunPartial
	}
	return model.RunSuccess
}

func (p *Pipeline) count(fn func(*observability.Metrics)) {
	if p.metrics != nil {
		fn(p.metrics)
	}
}

func (p *Pipeline) countRun(status model.RunStatus) {
	p.count(func(m *observability.Metrics) {
		m.RunsTotal.WithLabelValues(string(status)).Inc()
	})
}
