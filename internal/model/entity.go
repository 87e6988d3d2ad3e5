package model

import (
	"fmt"

	"github.com/google/uuid"
)

// entityNamespace is the fixed UUIDv5 namespace for canonical entity
// identifiers. Changing it would invalidate every previously committed
// identifier, so it never changes.
var entityNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// EntityID derives the stable canonical identifier for the entity
// anchored by the given record. The anchor is always the contributing
// record with the lowest ingestion order, so reruns over the same input
// reproduce the same identifier.
func EntityID(kind EntityKind, source, nameKey string) string {
	return uuid.NewSHA1(entityNamespace, []byte(fmt.Sprintf("%s|%s|%s", kind, source, nameKey))).String()
}

// SourceLink ties a canonical entity back to one contributing
// normalized record for auditability.
type SourceLink struct {
	Source  string `json:"source_id"`
	Name    string `json:"name"`
	NameKey string `json:"name_key"`
	Seq     int    `json:"seq"`
}

// CanonicalEntity is a deduplicated brewery or beer. The identifier is
// assigned at first creation and survives merges: merging keeps the ID
// of the entity anchored by the earliest record.
type CanonicalEntity struct {
	ID          string       `json:"id"`
	Kind        EntityKind   `json:"kind"`
	DisplayName string       `json:"display_name"`
	NameKey     string       `json:"name_key"`
	ABV         *float64     `json:"abv,omitempty"`
	Styles      []string     `json:"styles,omitempty"`
	Address     Address      `json:"address"`
	Rating      *float64     `json:"rating,omitempty"`
	BreweryID   string       `json:"brewery_id,omitempty"`   // beers only, never dangling
	BreweryName string       `json:"brewery_name,omitempty"` // beers only, display form
	BreweryKey  string       `json:"-"`                      // beers only, comparison key
	Sources     []SourceLink `json:"sources"`
}

// Province returns the declared region of the entity, empty when no
// contributing source supplied one.
func (e *CanonicalEntity) Province() string { return e.Address.Province }

// GeoTier is the precision level of a resolved coordinate. Tiers are
// ordered: street beats municipality beats unresolved.
type GeoTier string

const (
	TierStreet       GeoTier = "street"
	TierMunicipality GeoTier = "municipality"
	TierUnresolved   GeoTier = "unresolved"
)

// rank returns the ordering of a tier for upgrade comparisons.
func (t GeoTier) rank() int {
	switch t {
	case TierStreet:
		return 2
	case TierMunicipality:
		return 1
	default:
		return 0
	}
}

// Better reports whether t is a strictly higher-precision tier than o.
func (t GeoTier) Better(o GeoTier) bool { return t.rank() > o.rank() }

// GeoResult is a resolved coordinate attached to a canonical brewery.
type GeoResult struct {
	EntityID  string  `json:"entity_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Tier      GeoTier `json:"tier"`
	Strategy  string  `json:"strategy"`
}

// Upgrade returns the result that should be kept when a brewery already
// has a geocode and a new one arrives: higher tiers win, equal or lower
// tiers never overwrite.
func Upgrade(old, new *GeoResult) *GeoResult {
	if old == nil {
		return new
	}
	if new == nil {
		return old
	}
	if new.Tier.Better(old.Tier) {
		return new
	}
	return old
}
