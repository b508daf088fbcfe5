// Package testutil provides test doubles: in-memory fakes of the consumed
// services and an httptest mock of the MediaWiki Action API.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Routes understood by MockAPI, derived from the request's query parameters.
const (
	RouteCategoryMembers = "query/list=categorymembers"
	RouteImageInfo       = "query/prop=imageinfo"
	RouteGetEntities     = "wbgetentities"
	RouteSearchEntities  = "wbsearchentities"
)

// APIPath is the path the mock serves the Action API on.
const APIPath = "/w/api.php"

// MockResponse defines the behavior for a mock API response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock of a MediaWiki api.php endpoint.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount      int
	Queries           []url.Values
	LastRequestHeader http.Header
}

// RouteKey derives the route of an Action API query.
func RouteKey(q url.Values) string {
	action := q.Get("action")
	if action != "query" {
		return action
	}
	if list := q.Get("list"); list != "" {
		return "query/list=" + list
	}
	if prop := q.Get("prop"); prop != "" {
		return "query/prop=" + prop
	}
	return action
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != APIPath {
			http.NotFound(w, r)
			return
		}

		query := r.URL.Query()

		mock.mu.Lock()
		mock.RequestCount++
		mock.Queries = append(mock.Queries, query)
		mock.LastRequestHeader = r.Header.Clone()
		handler, exists := mock.handlers[RouteKey(query)]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the api.php URL of the mock server.
func (m *MockAPI) URL() string {
	return m.server.URL + APIPath
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking state.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Queries = nil
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a route.
func (m *MockAPI) SetHandler(route string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[route] = handler
}

// SetResponse configures a fixed response for a route.
func (m *MockAPI) SetResponse(route string, resp MockResponse) {
	m.SetHandler(route, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetSequence serves the responses in order; the last one repeats.
func (m *MockAPI) SetSequence(route string, responses ...MockResponse) {
	var (
		mu   sync.Mutex
		next int
	)
	m.SetHandler(route, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[next]
		if next < len(responses)-1 {
			next++
		}
		mu.Unlock()
		writeResponse(w, resp)
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// RouteCount returns the number of requests made to a route.
func (m *MockAPI) RouteCount(route string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, q := range m.Queries {
		if RouteKey(q) == route {
			n++
		}
	}
	return n
}

// QueriesFor returns the queries sent to a route, in arrival order.
func (m *MockAPI) QueriesFor(route string) []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []url.Values
	for _, q := range m.Queries {
		if RouteKey(q) == route {
			out = append(out, q)
		}
	}
	return out
}

// defaultHandler answers any unconfigured route with an empty result.
func (m *MockAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, NewOKResponse(`{"batchcomplete":true}`))
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewOKResponse creates a standard 200 OK JSON response.
func NewOKResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type":  "application/json; charset=utf-8",
			"Cache-Control": "private, must-revalidate, max-age=0",
		},
	}
}

// NewErrorEnvelopeResponse creates the HTTP 200 error envelope the Action
// API returns for request-level failures.
func NewErrorEnvelopeResponse(code, info string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"error":{"code":"` + code + `","info":"` + info + `"}}`,
		Headers: map[string]string{
			"Content-Type":        "application/json; charset=utf-8",
			"MediaWiki-API-Error": code,
		},
	}
}

// NewMaxlagResponse creates a maxlag error envelope with Retry-After.
func NewMaxlagResponse(retryAfter int, lag float64) MockResponse {
	resp := NewErrorEnvelopeResponse("maxlag", "Waiting for a database server")
	resp.Headers["Retry-After"] = strconv.Itoa(retryAfter)
	resp.Headers["X-Database-Lag"] = strconv.FormatFloat(lag, 'f', -1, 64)
	return resp
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":{"code":"ratelimited","info":"Too many requests"}}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
			"Retry-After":  strconv.Itoa(retryAfter),
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `Internal Server Error`,
		Headers: map[string]string{
			"Content-Type": "text/plain; charset=utf-8",
		},
	}
}
