package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sam0per/belgian-brewery/internal/model"
	"github.com/sam0per/belgian-brewery/internal/score"
)

// BackfillGeo re-geocodes the committed breweries without a full run,
// the path used to upgrade municipality-tier coordinates to street
// precision once the external resolver is configured. Existing tiers
// are never downgraded.
func (p *Pipeline) BackfillGeo(ctx context.Context) (geocoded, unresolved int, err error) {
	breweries, err := p.wh.ListEntities(ctx, model.KindBrewery)
	if err != nil {
		return 0, 0, err
	}
	if len(breweries) == 0 {
		return 0, 0, nil
	}

	summary := &model.RunSummary{}
	geo := p.geocodeBreweries(ctx, breweries, summary)
	if err := p.wh.PutGeo(ctx, geo); err != nil {
		return 0, 0, eris.Wrap(err, "pipeline: store geocodes")
	}

	p.log.Info("geocode backfill complete",
		zap.Int("geocoded", summary.Geocoded),
		zap.Int("unresolved", summary.Unresolved),
	)
	return summary.Geocoded, summary.Unresolved, nil
}

// Rescore recomputes scores from the committed canonical state,
// optionally with overridden weights, without touching entities or
// geocodes.
func (p *Pipeline) Rescore(ctx context.Context, weights *score.Weights) ([]model.RegionScore, error) {
	breweries, err := p.wh.ListEntities(ctx, model.KindBrewery)
	if err != nil {
		return nil, err
	}
	beers, err := p.wh.ListEntities(ctx, model.KindBeer)
	if err != nil {
		return nil, err
	}

	scorer := p.scorer
	if weights != nil {
		scorer = score.New(*weights)
	}
	scores, regions := scorer.Score(breweries, beers)

	if err := p.wh.PutScores(ctx, scores, regions); err != nil {
		return nil, eris.Wrap(err, "pipeline: store scores")
	}
	p.log.Info("rescore complete",
		zap.Int("breweries", len(scores)),
		zap.Int("regions", len(regions)),
	)
	return regions, nil
}
