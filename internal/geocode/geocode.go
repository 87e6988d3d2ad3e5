// Package geocode resolves brewery address text to coordinates using a
// layered strategy: an embedded municipality centroid table first, an
// external street-level resolver as fallback, with an in-run cache in
// front of both.
package geocode

import (
	"context"
	"errors"

	"github.com/sam0per/belgian-brewery/internal/model"
)

// Failure reasons of the external address-resolution collaborator.
var (
	ErrNotFound    = errors.New("geocode: address not found")
	ErrRateLimited = errors.New("geocode: rate limited")
	ErrTimeout     = errors.New("geocode: lookup timed out")
)

// Result is one resolved coordinate with its precision tier and the
// strategy that produced it.
type Result struct {
	Latitude  float64
	Longitude float64
	Tier      model.GeoTier
	Strategy  string
}

// Resolved reports whether the result carries usable coordinates.
func (r *Result) Resolved() bool {
	return r != nil && r.Tier != model.TierUnresolved
}

// Provider is a single geocoding backend.
type Provider interface {
	// Name identifies the strategy in results and logs.
	Name() string
	// Geocode resolves an address. A nil Result with nil error means
	// the provider had nothing to offer (treated as not found).
	Geocode(ctx context.Context, addr model.Address) (*Result, error)
	// Available reports whether the provider can currently serve
	// lookups (e.g. the external resolver is configured).
	Available() bool
}
