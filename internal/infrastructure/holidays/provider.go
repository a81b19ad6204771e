package holidays

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/saludplena/claims-engine/internal/domain/calendar"
	"github.com/saludplena/claims-engine/internal/infrastructure/database/redis"
	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/logging"
	"github.com/saludplena/claims-engine/pkg/errors"
)

// Config holds settings for the public-holiday feed.
type Config struct {
	BaseURL      string        `mapstructure:"base_url"`
	CountryCode  string        `mapstructure:"country_code"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// publicHoliday is the wire shape of one holiday entry in the feed.
type publicHoliday struct {
	Date        string `json:"date"`
	LocalName   string `json:"localName"`
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
}

// Provider fetches public holidays per calendar year and caches successful
// answers for the life of the process. A fetch failure yields an empty set
// and is not cached, so the next caller retries.
//
// Provider implements calendar.HolidaySource.
type Provider struct {
	config     Config
	httpClient *http.Client
	logger     logging.Logger
	cache      redis.Cache // optional second level, shared across processes

	mu    sync.RWMutex
	years map[int]calendar.DateSet

	group singleflight.Group
}

// Option configures the Provider.
type Option func(*Provider)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.httpClient = client }
}

// WithCache adds a shared cache consulted before the network.
func WithCache(cache redis.Cache) Option {
	return func(p *Provider) { p.cache = cache }
}

// NewProvider builds a Provider against the configured feed.
func NewProvider(cfg Config, logger logging.Logger, opts ...Option) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.InvalidParam("holiday feed base URL cannot be empty")
	}
	if cfg.CountryCode == "" {
		return nil, errors.InvalidParam("holiday country code cannot be empty")
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 30 * 24 * time.Hour
	}

	p := &Provider{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		logger: logger,
		years:  make(map[int]calendar.DateSet),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Holidays implements calendar.HolidaySource. It never returns an error:
// when the feed cannot be reached the year degrades to an empty set, which
// stays uncached so a later call can recover.
func (p *Provider) Holidays(ctx context.Context, year int) (calendar.DateSet, error) {
	p.mu.RLock()
	set, ok := p.years[year]
	p.mu.RUnlock()
	if ok {
		return set, nil
	}

	// Concurrent first calls for the same year collapse into one fetch.
	v, _, _ := p.group.Do(fmt.Sprintf("%d", year), func() (interface{}, error) {
		return p.load(ctx, year), nil
	})
	return v.(calendar.DateSet), nil
}

func (p *Provider) load(ctx context.Context, year int) calendar.DateSet {
	p.mu.RLock()
	set, ok := p.years[year]
	p.mu.RUnlock()
	if ok {
		return set
	}

	dates, err := p.lookupShared(ctx, year)
	if err != nil {
		dates, err = p.fetch(ctx, year)
		if err != nil {
			p.logger.Warn("Holiday fetch failed, degrading to empty set",
				logging.Int("year", year),
				logging.Err(err),
			)
			return calendar.DateSet{}
		}
		p.storeShared(ctx, year, dates)
	}

	set, err = calendar.NewDateSet(dates...)
	if err != nil {
		p.logger.Warn("Holiday feed returned malformed dates, degrading to empty set",
			logging.Int("year", year),
			logging.Err(err),
		)
		return calendar.DateSet{}
	}

	p.mu.Lock()
	p.years[year] = set
	p.mu.Unlock()

	p.logger.Info("Holiday calendar cached",
		logging.Int("year", year),
		logging.Int("holidays", set.Len()),
	)
	return set
}

func (p *Provider) fetch(ctx context.Context, year int) ([]string, error) {
	url := fmt.Sprintf("%s/api/v3/PublicHolidays/%d/%s",
		strings.TrimRight(p.config.BaseURL, "/"), year, p.config.CountryCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeHolidayFetchFailed, "failed to build holiday request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeHolidayFetchFailed, "holiday feed unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodeHolidayFetchFailed,
			"holiday feed returned status %d", resp.StatusCode)
	}

	var raw []publicHoliday
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeHolidayFetchFailed, "failed to decode holiday feed")
	}

	dates := make([]string, 0, len(raw))
	for _, h := range raw {
		dates = append(dates, h.Date)
	}
	return dates, nil
}

func (p *Provider) sharedKey(year int) string {
	return fmt.Sprintf("holidays:%s:%d", p.config.CountryCode, year)
}

func (p *Provider) lookupShared(ctx context.Context, year int) ([]string, error) {
	if p.cache == nil {
		return nil, redis.ErrCacheMiss
	}
	var dates []string
	if err := p.cache.Get(ctx, p.sharedKey(year), &dates); err != nil {
		return nil, err
	}
	return dates, nil
}

func (p *Provider) storeShared(ctx context.Context, year int, dates []string) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, p.sharedKey(year), dates, p.config.CacheTTL); err != nil {
		p.logger.Warn("Failed to store holidays in shared cache",
			logging.Int("year", year),
			logging.Err(err),
		)
	}
}
