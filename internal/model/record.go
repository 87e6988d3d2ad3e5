// Package model defines the data shapes that flow through the pipeline:
// raw source records, normalized records, canonical entities, geocode
// results, and scores.
package model

import "time"

// EntityKind distinguishes beer and brewery records.
type EntityKind string

const (
	KindBeer    EntityKind = "beer"
	KindBrewery EntityKind = "brewery"
)

// RawRecord is one row as delivered by a source collaborator. Fields is
// the source's raw column mapping; values are kept as strings until
// normalization.
type RawRecord struct {
	Source    string            `json:"source_id"`
	Kind      EntityKind        `json:"entity_kind"`
	Fields    map[string]string `json:"fields"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// Address holds the normalized address components of a brewery record.
// Any component may be empty; Municipality alone is enough for tier-1
// geocoding.
type Address struct {
	Street       string `json:"street,omitempty"`
	Municipality string `json:"municipality,omitempty"`
	Postcode     string `json:"postcode,omitempty"`
	Province     string `json:"province,omitempty"`
}

// Text renders the address as free-form lookup text for the external
// resolver, most specific component first.
func (a Address) Text() string {
	out := ""
	for _, part := range []string{a.Street, a.Municipality, a.Postcode, a.Province} {
		if part == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += part
	}
	return out
}

// Empty reports whether no address component is set.
func (a Address) Empty() bool {
	return a.Street == "" && a.Municipality == "" && a.Postcode == "" && a.Province == ""
}

// NormalizedRecord is a RawRecord after canonical-form normalization.
// Name keeps the display form; NameKey is the diacritic-stripped,
// case/space-folded comparison key used for matching. Seq is the
// ingestion order within the batch and drives deterministic canonical
// ID assignment.
type NormalizedRecord struct {
	Source    string     `json:"source_id"`
	Kind      EntityKind `json:"entity_kind"`
	Name      string     `json:"name"`
	NameKey   string     `json:"name_key"`
	ABV       *float64   `json:"abv,omitempty"`
	Styles    []string   `json:"styles,omitempty"`
	Address   Address    `json:"address"`
	Brewery   string     `json:"brewery,omitempty"`     // display name of the brewery a beer belongs to
	BreweryKey string    `json:"brewery_key,omitempty"` // comparison key of Brewery
	Rating    *float64   `json:"rating,omitempty"`
	Seq       int        `json:"seq"`
}

// Rejection records a RawRecord dropped during normalization.
type Rejection struct {
	Source string `json:"source_id"`
	Kind   EntityKind `json:"entity_kind"`
	Reason string `json:"reason"`
}
