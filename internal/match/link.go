package match

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sam0per/belgian-brewery/internal/model"
)

// LinkBeers resolves each beer's brewery reference against the
// canonical brewery set. A reference is matched by exact key first,
// then by the best fuzzy score at or above the threshold. A beer whose
// declared brewery matches nothing gets a stub brewery created from its
// own record, so a set BreweryID always points at an existing canonical
// brewery. Returns the updated beers and breweries (stubs appended).
func (m *Matcher) LinkBeers(beers, breweries []model.CanonicalEntity) ([]model.CanonicalEntity, []model.CanonicalEntity) {
	byKey := make(map[string]string, len(breweries)) // name key -> canonical ID
	sorted := make([]model.CanonicalEntity, len(breweries))
	copy(sorted, breweries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].NameKey < sorted[j].NameKey })
	for _, b := range sorted {
		if _, ok := byKey[b.NameKey]; !ok {
			byKey[b.NameKey] = b.ID
		}
	}

	stubs := make(map[string]int) // brewery key -> index into breweries
	linked := 0

	for i := range beers {
		key := beers[i].BreweryKey
		if key == "" {
			continue
		}

		if id, ok := byKey[key]; ok {
			beers[i].BreweryID = id
			linked++
			continue
		}

		// Fuzzy pass over the sorted brewery set.
		bestID := ""
		bestScore := 0.0
		for _, b := range sorted {
			if s := m.sim.Score(key, b.NameKey); s > bestScore {
				bestScore = s
				bestID = b.ID
			}
		}
		if bestScore >= m.opts.Threshold {
			beers[i].BreweryID = bestID
			byKey[key] = bestID // short-circuit repeats of the same variant
			linked++
			continue
		}

		// No canonical brewery matched: create (or reuse) a stub so the
		// reference never dangles.
		if idx, ok := stubs[key]; ok {
			beers[i].BreweryID = breweries[idx].ID
			continue
		}
		anchor := beers[i].Sources[0]
		stub := model.CanonicalEntity{
			ID:          model.EntityID(model.KindBrewery, anchor.Source, key),
			Kind:        model.KindBrewery,
			DisplayName: beers[i].BreweryName,
			NameKey:     key,
			Sources: []model.SourceLink{{
				Source:  anchor.Source,
				Name:    beers[i].BreweryName,
				NameKey: key,
				Seq:     anchor.Seq,
			}},
		}
		breweries = append(breweries, stub)
		stubs[key] = len(breweries) - 1
		byKey[key] = stub.ID
		beers[i].BreweryID = stub.ID

		m.log.Debug("created stub brewery for unmatched reference",
			zap.String("brewery", beers[i].BreweryName),
			zap.String("beer", beers[i].DisplayName),
		)
	}

	m.log.Info("beer-brewery linking complete",
		zap.Int("beers", len(beers)),
		zap.Int("linked", linked),
		zap.Int("stubs", len(stubs)),
	)
	return beers, breweries
}
