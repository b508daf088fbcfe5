//go:build integration

package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/commons-depicts/internal/testutil"
	"github.com/rs/zerolog"
)

func TestTracker_Integration_MaxlagBlockShared(t *testing.T) {
	rdb := testutil.StartRedis(t)
	ctx := context.Background()

	// Two trackers stand in for two service instances.
	writer := NewTracker(rdb, zerolog.Nop(), 3*time.Second)
	reader := NewTracker(rdb, zerolog.Nop(), 3*time.Second)

	headers := http.Header{}
	headers.Set("Retry-After", "2")
	headers.Set("X-Database-Lag", "6")
	if err := writer.UpdateFromHeaders(ctx, headers); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	state, err := reader.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.IsBlocked() {
		t.Fatal("block written by one tracker should be visible to the other")
	}
	if state.Lag != 6 {
		t.Errorf("Lag = %v, want 6", state.Lag)
	}

	start := time.Now()
	allowed, err := reader.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if !allowed {
		t.Error("short block should be waited out")
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("waited %v, want >= 1s", elapsed)
	}
}
