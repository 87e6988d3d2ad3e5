package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sam0per/belgian-brewery/internal/model"
	"github.com/sam0per/belgian-brewery/internal/resilience"
)

// StreetConfig configures the external address-resolution client.
type StreetConfig struct {
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// RatePerSec bounds outgoing lookups; the public resolver's usage
	// policy allows one request per second.
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// StreetProvider calls the external address-resolution collaborator
// (a Nominatim-style JSON API) for street-level precision.
type StreetProvider struct {
	cfg        StreetConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
}

// NewStreetProvider creates the external resolver client.
func NewStreetProvider(cfg StreetConfig) *StreetProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	return &StreetProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		log:        zap.L().With(zap.String("component", "geocode.street")),
	}
}

// Name implements Provider.
func (p *StreetProvider) Name() string { return "street_lookup" }

// Available implements Provider.
func (p *StreetProvider) Available() bool { return p.cfg.BaseURL != "" }

// Geocode implements Provider. Transient failures (rate limit,
// timeout) are marked for retry; not-found is permanent.
func (p *StreetProvider) Geocode(ctx context.Context, addr model.Address) (*Result, error) {
	query := addr.Text()
	if query == "" {
		return nil, ErrNotFound
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limiter wait")
	}

	u := fmt.Sprintf("%s/search?%s", p.cfg.BaseURL, url.Values{
		"q":              {query + ", Belgium"},
		"format":         {"jsonv2"},
		"limit":          {"1"},
		"addressdetails": {"1"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, resilience.MarkTransient(ErrTimeout)
		}
		return nil, eris.Wrap(err, "geocode: street lookup")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, resilience.MarkTransient(ErrRateLimited)
	case resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, resilience.MarkTransient(eris.Errorf("geocode: resolver status %d: %s", resp.StatusCode, body))
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("geocode: resolver status %d", resp.StatusCode)
	}

	var places []struct {
		Lat     string `json:"lat"`
		Lon     string `json:"lon"`
		Address struct {
			Road string `json:"road"`
		} `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, eris.Wrap(err, "geocode: decode response")
	}
	if len(places) == 0 {
		return nil, ErrNotFound
	}

	lat, latErr := strconv.ParseFloat(places[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(places[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return nil, eris.New("geocode: malformed coordinates in response")
	}

	// A hit without a road component resolved the locality, not the
	// street; report it at municipality precision.
	tier := model.TierStreet
	if places[0].Address.Road == "" || addr.Street == "" {
		tier = model.TierMunicipality
	}

	p.log.Debug("street lookup resolved",
		zap.String("query", query),
		zap.String("tier", string(tier)),
	)
	return &Result{Latitude: lat, Longitude: lon, Tier: tier, Strategy: p.Name()}, nil
}
