package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for throttle tracking.
var (
	replicationLag = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediawiki_replication_lag_seconds",
		Help: "Last database replication lag reported by a maxlag response",
	})

	throttleWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediawiki_throttle_waits_total",
		Help: "Total number of requests delayed until a throttle block ended",
	})

	throttleBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediawiki_throttle_blocks_total",
		Help: "Total number of requests rejected because a throttle block was too long to wait out",
	})
)

// Tracker records server back-pressure and gates requests.
// With a nil Redis client the state is kept in process memory.
type Tracker struct {
	redis   *redis.Client
	logger  zerolog.Logger
	maxWait time.Duration

	mu    sync.Mutex
	local ThrottleState
}

// NewTracker creates a new throttle tracker. A non-positive maxWait selects
// DefaultMaxWait.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger, maxWait time.Duration) *Tracker {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Tracker{
		redis:   redisClient,
		logger:  logger,
		maxWait: maxWait,
	}
}

// GetState returns the current throttle state. Missing state is an unblocked
// zero state.
func (t *Tracker) GetState(ctx context.Context) (*ThrottleState, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		state := t.local
		return &state, nil
	}

	fields, err := t.redis.HGetAll(ctx, RedisKeyThrottle).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get throttle state: %w", err)
	}

	state := &ThrottleState{}
	if len(fields) == 0 {
		return state, nil
	}

	if v := fields[fieldBlockedUntil]; v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", fieldBlockedUntil, err)
		}
		state.BlockedUntil = time.UnixMilli(ms)
	}
	if v := fields[fieldLag]; v != "" {
		lag, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", fieldLag, err)
		}
		state.Lag = lag
	}
	if v := fields[fieldLastUpdate]; v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", fieldLastUpdate, err)
		}
		state.LastUpdate = time.UnixMilli(ms)
	}

	return state, nil
}

// Block holds back requests for d. An existing longer block is kept.
func (t *Tracker) Block(ctx context.Context, d time.Duration, lag float64) error {
	if d <= 0 {
		return nil
	}
	if d > MaxRetryAfter {
		d = MaxRetryAfter
	}

	now := time.Now()
	until := now.Add(d)

	current, err := t.GetState(ctx)
	if err != nil {
		return err
	}
	if current.BlockedUntil.After(until) {
		until = current.BlockedUntil
	}

	state := ThrottleState{BlockedUntil: until, Lag: lag, LastUpdate: now}

	if t.redis == nil {
		t.mu.Lock()
		t.local = state
		t.mu.Unlock()
	} else {
		pipe := t.redis.TxPipeline()
		pipe.HSet(ctx, RedisKeyThrottle,
			fieldBlockedUntil, state.BlockedUntil.UnixMilli(),
			fieldLag, strconv.FormatFloat(lag, 'f', -1, 64),
			fieldLastUpdate, state.LastUpdate.UnixMilli(),
		)
		pipe.PExpire(ctx, RedisKeyThrottle, time.Until(until)+time.Minute)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("store throttle state in redis: %w", err)
		}
	}

	if lag > 0 {
		replicationLag.Set(lag)
	}

	t.logger.Warn().
		Dur("block", time.Until(until)).
		Float64("lag", lag).
		Msg("MediaWiki API throttling - holding back requests")

	return nil
}

// UpdateFromHeaders records a block from Retry-After and X-Database-Lag.
// Responses without Retry-After leave the state untouched.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	raw := headers.Get("Retry-After")
	if raw == "" {
		return nil
	}

	var lag float64
	if v := headers.Get("X-Database-Lag"); v != "" {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("parse X-Database-Lag header: %w", err)
		}
		lag = parsed
	}

	return t.Block(ctx, ParseRetryAfter(raw), lag)
}

// ParseRetryAfter accepts delta-seconds or an HTTP date. Unparseable or
// non-positive values yield DefaultRetryAfter.
func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return DefaultRetryAfter
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return DefaultRetryAfter
}

// ShouldAllowRequest checks the throttle state. A block that ends within the
// tracker's max wait is slept out (respecting ctx); a longer one rejects the
// request.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get throttle state: %w", err)
	}

	if !state.IsBlocked() {
		return true, nil
	}

	wait := state.TimeUntilUnblock()
	if wait > t.maxWait {
		t.logger.Error().
			Dur("wait_duration", wait).
			Dur("max_wait", t.maxWait).
			Msg("MediaWiki API throttled - rejecting request")
		throttleBlocksTotal.Inc()
		return false, nil
	}

	t.logger.Debug().Dur("wait_duration", wait).Msg("Waiting for throttle block to end")
	throttleWaitsTotal.Inc()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
		return true, nil
	}
}
