package model

import "time"

// Factor is one contributing sub-score of an opportunity score. Weight
// is the effective weight after redistribution, so the factors list
// fully explains the final number.
type Factor struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Value  float64 `json:"value"`
}

// ScoreRecord is the opportunity score of one brewery. Recomputed from
// scratch on every run, never mutated incrementally.
type ScoreRecord struct {
	EntityID string   `json:"entity_id"`
	Score    float64  `json:"score"`
	Factors  []Factor `json:"factors"`
}

// RegionScore aggregates member brewery scores per province.
type RegionScore struct {
	Region       string  `json:"region"`
	Score        float64 `json:"score"`
	BreweryCount int     `json:"brewery_count"`
	BeerCount    int     `json:"beer_count"`
}

// RunStatus is the batch exit status.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFatal   RunStatus = "fatal"
)

// RunSummary is the user-visible accounting of one pipeline run.
type RunSummary struct {
	ID           string      `json:"id"`
	Status       RunStatus   `json:"status"`
	StartedAt    time.Time   `json:"started_at"`
	FinishedAt   time.Time   `json:"finished_at"`
	RawRecords   int         `json:"raw_records"`
	Rejected     []Rejection `json:"rejected,omitempty"`
	Breweries    int         `json:"breweries"`
	Beers        int         `json:"beers"`
	Geocoded     int         `json:"geocoded"`
	Unresolved   int         `json:"unresolved"`
	Ambiguous    int         `json:"ambiguous_matches"`
	Error        string      `json:"error,omitempty"`
}
