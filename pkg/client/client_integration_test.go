//go:build integration

package client

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/Sternrassler/commons-depicts/internal/testutil"
)

func TestIntegration_SharedCacheAndThrottle(t *testing.T) {
	redisClient := testutil.StartRedis(t)

	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetSequence(testutil.RouteSearchEntities,
		testutil.NewMaxlagResponse(1, 3),
		testutil.NewOKResponse(`{"search":[{"id":"Q146","label":"house cat"}]}`),
	)

	newClient := func() *Client {
		cfg := DefaultConfig(redisClient, "DepictsIntegration/1.0 (test@example.com)")
		cfg.BaseURL = mock.URL()
		cfg.InitialBackoff = 10 * time.Millisecond
		cfg.MaxThrottleWait = 3 * time.Second
		c, err := New(cfg)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		return c
	}

	first, second := newClient(), newClient()
	params := url.Values{"action": {"wbsearchentities"}, "search": {"cat"}, "language": {"en"}}
	ctx := context.Background()

	if err := first.GetJSON(ctx, params, nil); err != nil {
		t.Fatalf("first.GetJSON() error = %v", err)
	}
	if got := mock.GetRequestCount(); got != 2 {
		t.Errorf("requests after first client = %d, want 2 (maxlag + retry)", got)
	}

	// The second instance shares the Redis cache.
	if err := second.GetJSON(ctx, params, nil); err != nil {
		t.Fatalf("second.GetJSON() error = %v", err)
	}
	if got := mock.GetRequestCount(); got != 2 {
		t.Errorf("requests after second client = %d, want 2 (cache hit)", got)
	}
}
