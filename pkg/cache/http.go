package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTTL is the fallback TTL when the response carries no usable max-age
	DefaultTTL = 5 * time.Minute
)

// ResponseToEntry converts an HTTP response to a CacheEntry.
// The response body is restored after reading.
func ResponseToEntry(resp *http.Response, fallbackTTL time.Duration) (*CacheEntry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()

	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return NewEntry(body, resp.StatusCode, resp.Header, fallbackTTL), nil
}

// NewEntry builds a CacheEntry for an already-read body.
func NewEntry(body []byte, statusCode int, headers http.Header, fallbackTTL time.Duration) *CacheEntry {
	now := time.Now()
	return &CacheEntry{
		Data:       body,
		StatusCode: statusCode,
		Expires:    now.Add(entryTTL(headers, fallbackTTL)),
		CachedAt:   now,
	}
}

// entryTTL reads s-maxage or max-age from Cache-Control. A missing or zero
// value yields fallback; "no-store" yields 0.
func entryTTL(headers http.Header, fallback time.Duration) time.Duration {
	if fallback <= 0 {
		fallback = DefaultTTL
	}

	cc := headers.Get("Cache-Control")
	if cc == "" {
		return fallback
	}

	var maxAge, sMaxAge int
	for _, directive := range strings.Split(cc, ",") {
		directive = strings.TrimSpace(strings.ToLower(directive))
		switch {
		case directive == "no-store":
			return 0
		case strings.HasPrefix(directive, "s-maxage="):
			sMaxAge, _ = strconv.Atoi(strings.TrimPrefix(directive, "s-maxage="))
		case strings.HasPrefix(directive, "max-age="):
			maxAge, _ = strconv.Atoi(strings.TrimPrefix(directive, "max-age="))
		}
	}

	switch {
	case sMaxAge > 0:
		return time.Duration(sMaxAge) * time.Second
	case maxAge > 0:
		return time.Duration(maxAge) * time.Second
	default:
		return fallback
	}
}
