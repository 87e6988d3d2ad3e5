package geocode

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sam0per/belgian-brewery/internal/model"
	"github.com/sam0per/belgian-brewery/internal/observability"
	"github.com/sam0per/belgian-brewery/internal/resilience"
)

// Cascade tries providers in order, first success wins. The street
// provider is only consulted when the municipality table misses, unless
// the run explicitly requires street precision.
type Cascade struct {
	providers   []Provider
	cache       *Cache
	requireTier model.GeoTier
	retry       resilience.RetryConfig
	concurrency int
	metrics     *observability.Metrics
	log         *zap.Logger
}

// CascadeOption configures the Cascade.
type CascadeOption func(*Cascade)

// WithRequiredTier makes the cascade keep trying providers until it
// reaches the given precision, upgrading lower-tier hits along the way.
func WithRequiredTier(tier model.GeoTier) CascadeOption {
	return func(c *Cascade) { c.requireTier = tier }
}

// WithRetry overrides the retry configuration for transient provider
// failures.
func WithRetry(cfg resilience.RetryConfig) CascadeOption {
	return func(c *Cascade) { c.retry = cfg }
}

// WithConcurrency bounds the parallel lookups of BatchGeocode.
func WithConcurrency(n int) CascadeOption {
	return func(c *Cascade) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithMetrics attaches pipeline metrics counters.
func WithMetrics(m *observability.Metrics) CascadeOption {
	return func(c *Cascade) { c.metrics = m }
}

// NewCascade creates a Cascade over the given providers with an
// injected in-run cache.
func NewCascade(cache *Cache, providers []Provider, opts ...CascadeOption) *Cascade {
	c := &Cascade{
		providers:   providers,
		cache:       cache,
		requireTier: model.TierMunicipality,
		retry:       resilience.DefaultRetryConfig(),
		concurrency: 4,
		log:         zap.L().With(zap.String("component", "geocode.cascade")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode resolves one address. The returned result always has a tier;
// TierUnresolved means every strategy failed (non-fatal for callers).
func (c *Cascade) Geocode(ctx context.Context, addr model.Address) *Result {
	if addr.Empty() {
		return &Result{Tier: model.TierUnresolved, Strategy: "none"}
	}

	if cached, ok := c.cache.Get(addr); ok {
		c.countCache(true)
		return cached
	}
	c.countCache(false)

	var best *Result
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		// Stop once the required precision is reached; higher-precision
		// providers are only consulted on demand.
		if best.Resolved() && !c.requireTier.Better(best.Tier) {
			break
		}

		retryCfg := c.retry
		retryCfg.ShouldRetry = resilience.RetryLogger("geocode", p.Name(), c.retry.ShouldRetry)
		result, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*Result, error) {
			return p.Geocode(ctx, addr)
		})
		c.countLookup(p.Name(), err)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				c.log.Warn("geocode strategy failed",
					zap.String("strategy", p.Name()),
					zap.String("address", addr.Text()),
					zap.Error(err),
				)
			}
			continue
		}
		if result == nil {
			continue
		}
		if best == nil || result.Tier.Better(best.Tier) {
			best = result
		}
	}

	if best == nil {
		best = &Result{Tier: model.TierUnresolved, Strategy: "unresolved"}
	}
	c.cache.Put(addr, best)
	return best
}

// BatchGeocode resolves addresses in parallel with bounded
// concurrency. Individual failures never fail the batch; unresolved
// entries carry TierUnresolved.
func (c *Cascade) BatchGeocode(ctx context.Context, addrs []model.Address) []*Result {
	results := make([]*Result, len(addrs))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.concurrency)
	for i, addr := range addrs {
		eg.Go(func() error {
			results[i] = c.Geocode(gCtx, addr)
			return nil
		})
	}
	_ = eg.Wait()

	for i := range results {
		if results[i] == nil {
			results[i] = &Result{Tier: model.TierUnresolved, Strategy: "unresolved"}
		}
	}
	return results
}

func (c *Cascade) countCache(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.GeocodeCacheHits.Inc()
	} else {
		c.metrics.GeocodeCacheMisses.Inc()
	}
}

func (c *Cascade) countLookup(strategy string, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "success"
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	c.metrics.GeocodeLookups.WithLabelValues(strategy, outcome).Inc()
}
