//go:build integration

package cache

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/Sternrassler/commons-depicts/internal/testutil"
)

func TestManager_Integration_RoundTripAndExpiry(t *testing.T) {
	manager := NewManager(testutil.StartRedis(t))
	ctx := context.Background()

	key := CacheKey{
		API:    "www.wikidata.org",
		Params: url.Values{"action": {"wbgetentities"}, "ids": {"Q146"}},
	}
	entry := &CacheEntry{
		Data:       []byte(`{"entities":{}}`),
		StatusCode: 200,
		Expires:    time.Now().Add(2 * time.Second),
		CachedAt:   time.Now(),
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Data) != `{"entities":{}}` {
		t.Errorf("Data = %q", got.Data)
	}

	// Redis evicts the key on its own once the TTL passes.
	time.Sleep(3 * time.Second)

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after expiry error = %v, want ErrCacheMiss", err)
	}
}
