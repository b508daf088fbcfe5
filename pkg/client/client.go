// Package client provides the MediaWiki Action API transport used by the
// Commons and Wikidata adapters: mandatory User-Agent, per-call timeout,
// request pacing, a shared throttle gate, Redis response caching, retries and
// error classification.
package client

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

	"github.com/Sternrassler/commons-depicts/pkg/cache"
	"github.com/Sternrassler/commons-depicts/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	uberratelimit "go.uber.org/ratelimit"
)

// Well-known Action API endpoints.
const (
	CommonsAPIURL  = "https://commons.wikimedia.org/w/api.php"
	WikidataAPIURL = "https://www.wikidata.org/w/api.php"
)

// maxBodySize bounds a single API response.
const maxBodySize = 32 << 20

// Prometheus metrics for API client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediawiki_requests_total",
		Help: "Total MediaWiki API requests by api host and status",
	}, []string{"api", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediawiki_request_duration_seconds",
		Help:    "MediaWiki API request duration in seconds by api host",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"api"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediawiki_errors_total",
		Help: "Total MediaWiki API errors by class",
	}, []string{"class"})
)

// Client talks to one MediaWiki Action API endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   *url.URL
	api        string
	pacer      uberratelimit.Limiter
	throttle   *ratelimit.Tracker
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the api.php endpoint (REQUIRED).
	BaseURL string

	// Redis client for caching and shared throttle state. Optional: without
	// it responses are not cached and throttle state is per process.
	Redis *redis.Client

	// User-Agent header (REQUIRED by Wikimedia policy)
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// RateLimit paces outgoing requests (requests per second, 0 = unpaced).
	RateLimit int

	// RequestTimeout bounds each attempt.
	RequestTimeout time.Duration

	// Retry
	MaxRetries     int // attempts including the first
	InitialBackoff time.Duration

	// CacheTTL applies when the response carries no usable max-age.
	CacheTTL time.Duration

	// MaxThrottleWait is the longest a request waits for a throttle block to end.
	MaxThrottleWait time.Duration

	// MaxLag is sent as the maxlag parameter (seconds, 0 = not sent).
	MaxLag int
}

// DefaultConfig returns a safe default configuration. BaseURL must still be set.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	return Config{
		Redis:           redis,
		UserAgent:       userAgent,
		RateLimit:       10,
		RequestTimeout:  10 * time.Second,
		MaxRetries:      3,
		InitialBackoff:  500 * time.Millisecond,
		CacheTTL:        cache.DefaultTTL,
		MaxThrottleWait: ratelimit.DefaultMaxWait,
		MaxLag:          5,
	}
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	endpoint, err := url.Parse(cfg.BaseURL)
	if err != nil || endpoint.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request_timeout must be > 0 (got %s)", cfg.RequestTimeout)
	}

	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}

	logger := log.With().
		Str("component", "mediawiki-client").
		Str("api", endpoint.Host).
		Logger()

	pacer := uberratelimit.NewUnlimited()
	if cfg.RateLimit > 0 {
		pacer = uberratelimit.New(cfg.RateLimit)
	}

	c := &Client{
		httpClient: &http.Client{},
		endpoint:   endpoint,
		api:        endpoint.Host,
		pacer:      pacer,
		throttle:   ratelimit.NewTracker(cfg.Redis, logger, cfg.MaxThrottleWait),
		config:     cfg,
		logger:     logger,
	}

	if cfg.Redis != nil && cfg.CacheTTL > 0 {
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// API returns the host this client talks to.
func (c *Client) API() string {
	return c.api
}

// GetJSON performs a GET with params and decodes the response into out.
// format=json and formatversion=2 are always sent. Cached responses are
// served without a network call.
func (c *Client) GetJSON(ctx context.Context, params url.Values, out any) error {
	query := make(url.Values, len(params)+3)
	for k, v := range params {
		query[k] = append([]string(nil), v...)
	}
	query.Set("format", "json")
	query.Set("formatversion", "2")
	if c.config.MaxLag > 0 {
		query.Set("maxlag", strconv.Itoa(c.config.MaxLag))
	}

	key := cache.CacheKey{API: c.api, Params: query}

	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			c.logger.Debug().Str("action", query.Get("action")).Msg("Cache hit")
			return decodeBody(entry.Data, out)
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Msg("Cache get error")
		}
	}

	body, headers, err := c.do(ctx, query)
	if err != nil {
		return err
	}

	if c.cache != nil {
		entry := cache.NewEntry(body, http.StatusOK, headers, c.config.CacheTTL)
		if err := c.cache.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return decodeBody(body, out)
}

// do executes the request with throttle gating, pacing and retries. It
// returns the body of a successful, envelope-free response.
func (c *Client) do(ctx context.Context, query url.Values) ([]byte, http.Header, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(c.api).Observe(time.Since(startTime).Seconds())
	}()

	retryCfg := DefaultRetryConfig()
	retryCfg.MaxAttempts = c.config.MaxRetries
	if c.config.InitialBackoff > 0 {
		retryCfg.InitialBackoff = c.config.InitialBackoff
	}

	var (
		body    []byte
		headers http.Header
	)

	err := retryWithBackoff(ctx, retryCfg, c.logger, func() (ErrorClass, error) {
		allowed, err := c.throttle.ShouldAllowRequest(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return "", err
			}
			// Unreadable shared state must not stop traffic.
			c.logger.Warn().Err(err).Msg("Throttle check failed")
		} else if !allowed {
			requestsTotal.WithLabelValues(c.api, "throttled").Inc()
			return "", ErrThrottled
		}

		c.pacer.Take()

		var errorClass ErrorClass
		body, headers, errorClass, err = c.attempt(ctx, query)
		if errorClass != "" {
			errorsTotal.WithLabelValues(string(errorClass)).Inc()
		}
		return errorClass, err
	})
	if err != nil {
		return nil, nil, err
	}

	return body, headers, nil
}

// attempt performs one HTTP round trip bounded by RequestTimeout.
func (c *Client) attempt(ctx context.Context, query url.Values) ([]byte, http.Header, ErrorClass, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	u := *c.endpoint
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("action", query.Get("action")).
		Msg("Executing API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// The caller gave up; do not retry.
			return nil, nil, "", ctx.Err()
		}
		requestsTotal.WithLabelValues(c.api, "network_error").Inc()
		return nil, nil, ErrorClassNetwork, &APIError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	if err := c.throttle.UpdateFromHeaders(ctx, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update throttle state from headers")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, "", ctx.Err()
		}
		requestsTotal.WithLabelValues(c.api, "network_error").Inc()
		return nil, nil, ErrorClassNetwork, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	requestsTotal.WithLabelValues(c.api, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		errorClass := classifyStatus(resp.StatusCode)
		apiErr := decodeEnvelope(resp.StatusCode, body)
		if apiErr == nil {
			apiErr = &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		}
		apiErr.ErrorClass = errorClass

		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(errorClass)).
			Msg("API request error")
		return nil, nil, errorClass, apiErr
	}

	if apiErr := decodeEnvelope(resp.StatusCode, body); apiErr != nil {
		if apiErr.ErrorClass == ErrorClassRateLimit && resp.Header.Get("Retry-After") == "" {
			if err := c.throttle.Block(ctx, ratelimit.DefaultRetryAfter, 0); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to record throttle block")
			}
		}

		c.logger.Warn().
			Str("code", apiErr.Code).
			Str("error_class", string(apiErr.ErrorClass)).
			Msg("API returned error envelope")
		return nil, nil, apiErr.ErrorClass, apiErr
	}

	return body, resp.Header, "", nil
}

// decodeBody unmarshals a response body into out.
func decodeBody(body []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil when caching is disabled.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
