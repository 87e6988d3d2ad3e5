package normalize

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sam0per/belgian-brewery/internal/model"
)

// Well-known field keys of the uniform RawRecord contract. Sources map
// their own column layouts onto these before delivery.
const (
	FieldName         = "name"
	FieldBrewery      = "brewery_name"
	FieldABV          = "abv_pct"
	FieldStyle        = "style_name"
	FieldRating       = "rating"
	FieldStreet       = "street"
	FieldMunicipality = "municipality"
	FieldPostcode     = "postcode"
	FieldProvince     = "province"
)

// Result holds the outcome of normalizing one batch of raw records.
type Result struct {
	Records  []model.NormalizedRecord
	Rejected []model.Rejection
}

// Normalizer canonicalizes raw field values into the common schema.
type Normalizer struct {
	log *zap.Logger
}

// New creates a Normalizer.
func New() *Normalizer {
	return &Normalizer{log: zap.L().With(zap.String("component", "normalizer"))}
}

// Batch normalizes a slice of raw records in order. Rejections are
// collected and logged, never fatal. Seq on each output record is its
// index in the accepted stream and fixes the ingestion order used for
// canonical ID assignment downstream.
func (n *Normalizer) Batch(raws []model.RawRecord) Result {
	var res Result
	for _, raw := range raws {
		rec, reason := n.one(raw)
		if reason != "" {
			res.Rejected = append(res.Rejected, model.Rejection{Source: raw.Source, Kind: raw.Kind, Reason: reason})
			n.log.Debug("record rejected",
				zap.String("source", raw.Source),
				zap.String("kind", string(raw.Kind)),
				zap.String("reason", reason),
			)
			continue
		}
		rec.Seq = len(res.Records)
		res.Records = append(res.Records, *rec)
	}
	n.log.Info("normalization complete",
		zap.Int("accepted", len(res.Records)),
		zap.Int("rejected", len(res.Rejected)),
	)
	return res
}

// one normalizes a single raw record, returning a non-empty rejection
// reason when a mandatory field is missing or invalid.
func (n *Normalizer) one(raw model.RawRecord) (*model.NormalizedRecord, string) {
	if raw.Kind != model.KindBeer && raw.Kind != model.KindBrewery {
		return nil, "unknown entity kind " + string(raw.Kind)
	}

	var name string
	if raw.Kind == model.KindBrewery {
		name = CleanBreweryName(raw.Fields[FieldName])
	} else {
		name = CleanName(raw.Fields[FieldName])
	}
	if name == "" {
		return nil, "missing name"
	}

	rec := &model.NormalizedRecord{
		Source:  raw.Source,
		Kind:    raw.Kind,
		Name:    name,
		NameKey: Key(name),
		Styles:  SplitList(raw.Fields[FieldStyle]),
		Address: model.Address{
			Street:       CleanName(raw.Fields[FieldStreet]),
			Municipality: CleanName(raw.Fields[FieldMunicipality]),
			Postcode:     CleanName(raw.Fields[FieldPostcode]),
			Province:     CleanName(raw.Fields[FieldProvince]),
		},
	}

	if b := CleanBreweryName(raw.Fields[FieldBrewery]); b != "" {
		rec.Brewery = b
		rec.BreweryKey = Key(b)
	}

	if raw.Fields[FieldABV] != "" {
		abv, ok := ParseNumeric(raw.Fields[FieldABV], 0, 100)
		if !ok {
			return nil, "invalid abv " + strconv.Quote(raw.Fields[FieldABV])
		}
		rec.ABV = &abv
	}

	if raw.Fields[FieldRating] != "" {
		// Ratings outside range are dropped, not fatal: the record is
		// still identifiable without its quality signal.
		if r, ok := ParseNumeric(raw.Fields[FieldRating], 0, 5); ok {
			rec.Rating = &r
		}
	}

	// A record needs one identifying attribute beyond the name.
	switch raw.Kind {
	case model.KindBeer:
		if rec.Brewery == "" && rec.ABV == nil && len(rec.Styles) == 0 {
			return nil, "no identifying attribute"
		}
	case model.KindBrewery:
		if rec.Address.Empty() {
			return nil, "no identifying attribute"
		}
	}

	return rec, ""
}

// ParseNumeric parses a numeric field that may use a comma decimal
// separator or carry a trailing percent sign. Values outside [min, max]
// are invalid.
func ParseNumeric(raw string, min, max float64) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if v < min || v > max {
		return 0, false
	}
	return v, true
}
