package match

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sam0per/belgian-brewery/internal/model"
)

// Options configures the matcher for one entity kind.
type Options struct {
	// Threshold is the combined similarity at or above which a pair is
	// merged. Must sit in (0, 1].
	Threshold float64

	// AmbiguityMargin flags pairs whose score falls within ±margin of
	// the threshold for audit. The threshold rule still decides them.
	AmbiguityMargin float64

	// SourcePriority orders sources for conflict resolution; the
	// first-listed source wins ties. Unlisted sources rank last.
	SourcePriority []string

	// Similarity is the pluggable name-similarity function. Defaults
	// to TokenSimilarity.
	Similarity Similarity
}

// Result is the canonical partition of one entity kind plus its lineage
// table and audit counters.
type Result struct {
	Entities  []model.CanonicalEntity
	Lineage   map[string][]int // canonical ID -> contributing record seqs
	Ambiguous int
}

// Matcher resolves normalized records into canonical entities.
type Matcher struct {
	opts Options
	sim  Similarity
	prio map[string]int
	log  *zap.Logger
}

// nameWeight and attrWeight combine name similarity with secondary
// attribute agreement when both records declare the attribute.
const (
	nameWeight = 0.85
	attrWeight = 0.15
)

// New creates a Matcher.
func New(opts Options) *Matcher {
	sim := opts.Similarity
	if sim == nil {
		sim = TokenSimilarity{}
	}
	prio := make(map[string]int, len(opts.SourcePriority))
	for i, s := range opts.SourcePriority {
		prio[s] = i
	}
	return &Matcher{
		opts: opts,
		sim:  sim,
		prio: prio,
		log:  zap.L().With(zap.String("component", "matcher")),
	}
}

// Partition groups records of one kind into canonical entities. The
// merge pass is single-threaded and iterates sorted containers only, so
// the same input always yields the same partition and display names.
func (m *Matcher) Partition(records []model.NormalizedRecord) Result {
	recs := make([]model.NormalizedRecord, len(records))
	copy(recs, records)
	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })

	uf := newUnionFind(len(recs))
	ambiguous := 0

	for _, pair := range m.candidatePairs(recs) {
		a, b := recs[pair[0]], recs[pair[1]]
		score := m.pairScore(a, b)

		if m.opts.AmbiguityMargin > 0 &&
			score >= m.opts.Threshold-m.opts.AmbiguityMargin &&
			score <= m.opts.Threshold+m.opts.AmbiguityMargin {
			ambiguous++
			m.log.Info("ambiguous match near threshold",
				zap.String("a", a.Name),
				zap.String("b", b.Name),
				zap.Float64("score", score),
				zap.Float64("threshold", m.opts.Threshold),
			)
		}

		if score >= m.opts.Threshold {
			uf.Union(pair[0], pair[1])
		}
	}

	res := Result{Lineage: make(map[string][]int), Ambiguous: ambiguous}

	// Collect groups keyed by root, members already in seq order.
	groups := make(map[int][]int)
	roots := make([]int, 0)
	for i := range recs {
		r := uf.Find(i)
		if _, seen := groups[r]; !seen {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], i)
	}
	sort.Ints(roots)

	for _, root := range roots {
		members := make([]model.NormalizedRecord, 0, len(groups[root]))
		for _, i := range groups[root] {
			members = append(members, recs[i])
		}
		entity := m.merge(members)
		res.Entities = append(res.Entities, entity)
		for _, rec := range members {
			res.Lineage[entity.ID] = append(res.Lineage[entity.ID], rec.Seq)
		}
	}

	m.log.Info("partition complete",
		zap.Int("records", len(recs)),
		zap.Int("entities", len(res.Entities)),
		zap.Int("ambiguous", ambiguous),
	)
	return res
}

// candidatePairs generates the index pairs to score, bounded by
// blocking: only records sharing a blocking key are compared. Pairs are
// returned sorted and deduplicated.
func (m *Matcher) candidatePairs(recs []model.NormalizedRecord) [][2]int {
	blocks := make(map[string][]int)
	for i, rec := range recs {
		for _, key := range blockKeys(rec) {
			blocks[key] = append(blocks[key], i)
		}
	}

	keys := make([]string, 0, len(blocks))
	for k := range blocks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[[2]int]bool)
	var pairs [][2]int
	for _, k := range keys {
		idx := blocks[k]
		for i := 0; i < len(idx); i++ {
			for j := i + 1; j < len(idx); j++ {
				p := [2]int{idx[i], idx[j]}
				if p[0] > p[1] {
					p[0], p[1] = p[1], p[0]
				}
				if !seen[p] {
					seen[p] = true
					pairs = append(pairs, p)
				}
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}

// blockKeys returns the coarse keys a record is filed under: the first
// token of its name key, and for breweries the declared province.
func blockKeys(rec model.NormalizedRecord) []string {
	var keys []string
	if tok := firstToken(rec.NameKey); tok != "" {
		keys = append(keys, "n:"+tok)
	}
	if rec.Kind == model.KindBrewery && rec.Address.Province != "" {
		keys = append(keys, "p:"+strings.ToLower(rec.Address.Province))
	}
	return keys
}

func firstToken(key string) string {
	if i := strings.IndexByte(key, ' '); i >= 0 {
		return key[:i]
	}
	return key
}

// pairScore combines name similarity with secondary attribute
// agreement. The attribute term only participates when both records
// declare the attribute; otherwise the name similarity stands alone.
func (m *Matcher) pairScore(a, b model.NormalizedRecord) float64 {
	name := m.sim.Score(a.NameKey, b.NameKey)

	var attr float64
	hasAttr := false
	switch a.Kind {
	case model.KindBrewery:
		if a.Address.Province != "" && b.Address.Province != "" {
			hasAttr = true
			if strings.EqualFold(a.Address.Province, b.Address.Province) {
				attr = 1
			}
		}
	case model.KindBeer:
		if a.BreweryKey != "" && b.BreweryKey != "" {
			hasAttr = true
			attr = m.sim.Score(a.BreweryKey, b.BreweryKey)
		}
	}

	if !hasAttr {
		return name
	}
	return nameWeight*name + attrWeight*attr
}

// merge folds a group of records into one canonical entity. Members
// arrive in ingestion order; the entity ID is anchored on the first.
// Attribute conflicts resolve by source priority, ties by ingestion
// order.
func (m *Matcher) merge(members []model.NormalizedRecord) model.CanonicalEntity {
	anchor := members[0]

	// byPriority orders members for conflict resolution without
	// disturbing the ingestion order of the input slice.
	byPriority := make([]model.NormalizedRecord, len(members))
	copy(byPriority, members)
	sort.SliceStable(byPriority, func(i, j int) bool {
		return m.priority(byPriority[i].Source) < m.priority(byPriority[j].Source)
	})

	entity := model.CanonicalEntity{
		ID:      model.EntityID(anchor.Kind, anchor.Source, anchor.NameKey),
		Kind:    anchor.Kind,
		NameKey: anchor.NameKey,
	}

	for _, rec := range byPriority {
		if entity.DisplayName == "" && rec.Name != "" {
			entity.DisplayName = rec.Name
		}
		if entity.ABV == nil && rec.ABV != nil {
			entity.ABV = rec.ABV
		}
		if entity.Rating == nil && rec.Rating != nil {
			entity.Rating = rec.Rating
		}
		if entity.BreweryName == "" && rec.Brewery != "" {
			entity.BreweryName = rec.Brewery
			entity.BreweryKey = rec.BreweryKey
		}
		if entity.Address.Street == "" {
			entity.Address.Street = rec.Address.Street
		}
		if entity.Address.Municipality == "" {
			entity.Address.Municipality = rec.Address.Municipality
		}
		if entity.Address.Postcode == "" {
			entity.Address.Postcode = rec.Address.Postcode
		}
		if entity.Address.Province == "" {
			entity.Address.Province = rec.Address.Province
		}
		entity.Styles = unionList(entity.Styles, rec.Styles)
	}

	for _, rec := range members {
		entity.Sources = append(entity.Sources, model.SourceLink{
			Source:  rec.Source,
			Name:    rec.Name,
			NameKey: rec.NameKey,
			Seq:     rec.Seq,
		})
	}

	return entity
}

// priority ranks a source for conflict resolution; unlisted sources
// sort after every listed one.
func (m *Matcher) priority(source string) int {
	if p, ok := m.prio[source]; ok {
		return p
	}
	return len(m.prio)
}

// unionList appends the elements of add not already present in base,
// preserving order and using case-insensitive comparison.
func unionList(base, add []string) []string {
	for _, s := range add {
		dup := false
		for _, existing := range base {
			if strings.EqualFold(existing, s) {
				dup = true
				break
			}
		}
		if !dup {
			base = append(base, s)
		}
	}
	return base
}
