package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Sternrassler/commons-depicts/internal/testutil"
	"github.com/Sternrassler/commons-depicts/pkg/depicts"
	"github.com/Sternrassler/commons-depicts/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*Server, *testutil.FakeDirectory, *testutil.FakeLabels) {
	t.Helper()

	dir := testutil.NewFakeDirectory()
	ids := make([]string, 0, 12)
	for i := 1; i <= 12; i++ {
		ids = append(ids, fmt.Sprintf("%d", i))
	}
	dir.Categories["Cats"] = testutil.Items(ids...)
	dir.Claims["M1"] = []string{"Q146"}

	labels := testutil.NewFakeLabels(
		depicts.EntityLabel{EntityID: "Q146", Label: "house cat"},
		depicts.EntityLabel{EntityID: "Q7", Label: "Cats"},
	)

	svc := search.New(dir, labels, search.DefaultConfig())
	return New(svc, nil, 5*time.Second), dir, labels
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv, _, _ := newServer(t)

	w := get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestHealth_Unhealthy(t *testing.T) {
	srv := New(nil, func(context.Context) error { return errors.New("redis down") }, 0)

	w := get(t, srv, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis down")
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newServer(t)

	w := get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# TYPE")
}

func TestSearch(t *testing.T) {
	srv, _, _ := newServer(t)

	w := get(t, srv, "/api/search?q=Cats&page=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var res search.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Cats", res.Query)
	assert.Len(t, res.Items, depicts.PageSize)
	assert.True(t, res.HasNext)
	require.NotNil(t, res.ResolvedEntity)
	assert.Equal(t, "Q7", res.ResolvedEntity.EntityID)
	assert.Equal(t, []depicts.Depiction{{EntityID: "Q146", Label: "house cat"}}, res.Items[0].Depicts)
}

func TestSearch_DefaultPage(t *testing.T) {
	srv, _, _ := newServer(t)

	w := get(t, srv, "/api/search?q=Cats")
	require.Equal(t, http.StatusOK, w.Code)

	var res search.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Page)
}

func TestSearch_BadRequest(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing query", "/api/search"},
		{"page not a number", "/api/search?q=Cats&page=two"},
		{"page zero", "/api/search?q=Cats&page=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, dir, _ := newServer(t)

			w := get(t, srv, tt.target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, dir.ListCalls)
		})
	}
}

func TestSearch_Upstream(t *testing.T) {
	srv, dir, _ := newServer(t)
	dir.FailList["Cats"] = testutil.ErrInjected

	w := get(t, srv, "/api/search?q=Cats")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "media directory unavailable")
	assert.NotEmpty(t, body.RequestID)
}

func TestDetail(t *testing.T) {
	srv, _, _ := newServer(t)

	w := get(t, srv, "/api/file/1")
	require.Equal(t, http.StatusOK, w.Code)

	var item depicts.EnrichedItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.Equal(t, "1", item.Identifier)
	assert.Equal(t, "M1", item.SubjectID)
	assert.Equal(t, depicts.DepictsResolved, item.Status)
}

func TestDetail_Errors(t *testing.T) {
	srv, _, _ := newServer(t)

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/file/abc").Code)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/file/999").Code)
}

func TestSuggest(t *testing.T) {
	srv, _, labels := newServer(t)

	w := get(t, srv, "/api/wikidata_search?q=house")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[{"id":"Q146","label":"house cat","description":""}]}`, w.Body.String())
	assert.Equal(t, []string{"house"}, labels.SearchCalls)
}

func TestSuggest_Empty(t *testing.T) {
	srv, _, labels := newServer(t)

	w := get(t, srv, "/api/wikidata_search?q=")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[]}`, w.Body.String())
	assert.Empty(t, labels.SearchCalls)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := newServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/search?q=Cats", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRequestID(t *testing.T) {
	srv, _, _ := newServer(t)

	w := get(t, srv, "/health")
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{depicts.Wrap("x", depicts.ErrInvalidArgument, errors.New("bad")), http.StatusBadRequest},
		{depicts.Wrap("x", depicts.ErrNotFound, errors.New("gone")), http.StatusNotFound},
		{depicts.Wrap("x", depicts.ErrDirectoryUnavailable, errors.New("down")), http.StatusBadGateway},
		{depicts.Wrap("x", depicts.ErrEnrichmentUnavailable, errors.New("down")), http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}
