package commons

import (
	"context"
	"strings"
	"testing"

	"github.com/Sternrassler/commons-depicts/internal/testutil"
	"github.com/Sternrassler/commons-depicts/pkg/depicts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const claimsFixture = `{"entities":{
  "M1":{"type":"mediainfo","id":"M1","statements":{
    "P180":[
      {"mainsnak":{"snaktype":"value","property":"P180","datavalue":{"type":"wikibase-entityid","value":{"entity-type":"item","numeric-id":1,"id":"Q1"}}}},
      {"mainsnak":{"snaktype":"value","property":"P180","datavalue":{"type":"wikibase-entityid","value":{"entity-type":"item","numeric-id":2,"id":"Q2"}}}},
      {"mainsnak":{"snaktype":"value","property":"P180","datavalue":{"type":"wikibase-entityid","value":{"entity-type":"item","numeric-id":1,"id":"Q1"}}}},
      {"mainsnak":{"snaktype":"somevalue","property":"P180"}},
      {"mainsnak":{"snaktype":"value","property":"P180","datavalue":{"type":"string","value":"cat"}}}
    ],
    "P170":[
      {"mainsnak":{"snaktype":"value","property":"P170","datavalue":{"type":"wikibase-entityid","value":{"id":"Q99"}}}}
    ]}},
  "M2":{"type":"mediainfo","id":"M2","labels":{},"statements":[]},
  "M4":{"type":"mediainfo","id":"M4","claims":{
    "P180":[{"mainsnak":{"snaktype":"value","datavalue":{"type":"wikibase-entityid","value":{"numeric-id":5}}}}]}}
}}`

func TestGetClaims(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse(testutil.RouteGetEntities, testutil.NewOKResponse(claimsFixture))

	dir := newDirectory(t, mock, nil)

	claims, err := dir.GetClaims(context.Background(), []string{"M1", "M2", "M3", "M4", "M1"})
	require.NoError(t, err)

	assert.Equal(t, depicts.ClaimSet{
		"M1": {"Q1", "Q2"},
		"M2": {},
		"M3": {},
		"M4": {"Q5"},
	}, claims)

	queries := mock.QueriesFor(testutil.RouteGetEntities)
	require.Len(t, queries, 1)
	assert.Equal(t, "M1|M2|M3|M4", queries[0].Get("ids"))
	assert.Equal(t, "claims", queries[0].Get("props"))
}

func TestGetClaims_Chunked(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse(testutil.RouteGetEntities, testutil.NewOKResponse(`{"entities":{}}`))

	dir := newDirectory(t, mock, nil)

	subjects := make([]string, 75)
	for i := range subjects {
		subjects[i] = "M" + strings.Repeat("1", i+1)
	}

	claims, err := dir.GetClaims(context.Background(), subjects)
	require.NoError(t, err)
	assert.Len(t, claims, 75)
	assert.Equal(t, 2, mock.RouteCount(testutil.RouteGetEntities))
}

func TestGetClaims_Empty(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	dir := newDirectory(t, mock, nil)

	claims, err := dir.GetClaims(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, claims)
	assert.Equal(t, 0, mock.GetRequestCount())
}

func TestGetClaims_Failure(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse(testutil.RouteGetEntities, testutil.NewServerErrorResponse())

	dir := newDirectory(t, mock, nil)

	_, err := dir.GetClaims(context.Background(), []string{"M1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get claims")
}

func TestDepictedEntities_EmptyStatements(t *testing.T) {
	for _, raw := range []string{``, `[]`, `{}`, `{"P170":[]}`} {
		ids, err := depictedEntities([]byte(raw))
		require.NoError(t, err, raw)
		assert.Empty(t, ids, raw)
	}
}
