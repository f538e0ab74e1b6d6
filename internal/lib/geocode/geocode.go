// Package geocode resolves postal addresses to coordinates through a
// Google-Geocoding-compatible HTTP API, caching answers in Redis.
package geocode

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deppfellow/aquaservice/internal/config"
	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when the provider has no result for an address.
var ErrNotFound = errors.New("address not found")

const (
	cachePrefix    = "geocode:"
	requestTimeout = 10 * time.Second
)

// Result is a resolved address.
type Result struct {
	model.Coordinates
	FormattedAddress string `json:"formatted_address"`
}

// Cache is the subset of redis.Cmdable the client needs.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Client calls the geocoding API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	cache   Cache
	ttl     time.Duration
	logger  *zerolog.Logger
}

// NewClient builds a Client from the integration config. cache may be nil.
func NewClient(cfg *config.IntegrationConfig, cache Cache, logger *zerolog.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: requestTimeout},
		baseURL: strings.TrimRight(cfg.GeocodingBaseURL, "/"),
		apiKey:  cfg.GeocodingAPIKey,
		cache:   cache,
		ttl:     time.Duration(cfg.GeocodingCacheTTLMinutes) * time.Minute,
		logger:  logger,
	}
}

type apiResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves address. Cache failures are logged and the API is called.
func (c *Client) Geocode(ctx context.Context, address string) (*Result, error) {
	normalized := normalize(address)
	if normalized == "" {
		return nil, ErrNotFound
	}

	key := cacheKey(normalized)
	if cached, ok := c.fromCache(ctx, key); ok {
		return cached, nil
	}

	result, err := c.fetch(ctx, address)
	if err != nil {
		return nil, err
	}

	c.toCache(ctx, key, result)
	return result, nil
}

func (c *Client) fetch(ctx context.Context, address string) (*Result, error) {
	q := url.Values{}
	q.Set("address", address)
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/geocode/json?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build geocode request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode request: unexpected status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("geocode status %s: %s", body.Status, body.ErrorMessage)
	}

	if len(body.Results) == 0 {
		return nil, ErrNotFound
	}

	first := body.Results[0]
	return &Result{
		Coordinates: model.Coordinates{
			Lat: first.Geometry.Location.Lat,
			Lng: first.Geometry.Location.Lng,
		},
		FormattedAddress: first.FormattedAddress,
	}, nil
}

func (c *Client) fromCache(ctx context.Context, key string) (*Result, bool) {
	if c.cache == nil {
		return nil, false
	}

	raw, err := c.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("geocode cache read failed")
		}
		return nil, false
	}

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding malformed geocode cache entry")
		return nil, false
	}
	return &result, true
}

func (c *Client) toCache(ctx context.Context, key string, result *Result) {
	if c.cache == nil || c.ttl <= 0 {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("geocode cache write failed")
	}
}

// normalize collapses whitespace and case so equivalent spellings share a cache entry.
func normalize(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

func cacheKey(normalized string) string {
	sum := sha1.Sum([]byte(normalized))
	return cachePrefix + hex.EncodeToString(sum[:])
}
