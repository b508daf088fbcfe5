// Package wikidata adapts the Wikidata Action API to the entity label
// contract: batched label lookup and prefix search.
package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/commons-depicts/pkg/batch"
	"github.com/Sternrassler/commons-depicts/pkg/client"
	"github.com/Sternrassler/commons-depicts/pkg/depicts"
	"github.com/Sternrassler/commons-depicts/pkg/logging"
)

// maxSearchLimit is the largest limit wbsearchentities accepts.
const maxSearchLimit = 50

// API is the Action API transport.
type API interface {
	GetJSON(ctx context.Context, params url.Values, out any) error
}

// Config holds adapter configuration.
type Config struct {
	// Language of labels and descriptions.
	Language string

	// Batch controls chunking of multi-id requests.
	Batch batch.Config
}

// DefaultConfig returns the adapter defaults.
func DefaultConfig() Config {
	return Config{
		Language: "en",
		Batch:    batch.DefaultConfig(),
	}
}

// Labels resolves Wikidata item labels.
type Labels struct {
	api API
	cfg Config
}

var _ depicts.EntityLabels = (*Labels)(nil)

// New creates a Labels adapter over api.
func New(api API, cfg Config) *Labels {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return &Labels{api: api, cfg: cfg}
}

type termValue struct {
	Value string `json:"value"`
}

type entitiesResponse struct {
	Entities map[string]struct {
		ID           string          `json:"id"`
		Labels       json.RawMessage `json:"labels"`
		Descriptions json.RawMessage `json:"descriptions"`
	} `json:"entities"`
}

type searchResponse struct {
	Search []struct {
		ID          string `json:"id"`
		Label       string `json:"label"`
		Description string `json:"description"`
	} `json:"search"`
}

// ResolveLabels looks up labels and descriptions in the configured language.
// Ids without a label in that language are omitted.
func (l *Labels) ResolveLabels(ctx context.Context, entityIDs []string) (map[string]depicts.EntityLabel, error) {
	ids := make([]string, 0, len(entityIDs))
	seen := make(map[string]struct{}, len(entityIDs))
	for _, id := range entityIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	labels, err := batch.Fetch(ctx, l.cfg.Batch, ids, func(ctx context.Context, chunk []string) (map[string]depicts.EntityLabel, error) {
		params := url.Values{
			"action":    {"wbgetentities"},
			"ids":       {strings.Join(chunk, "|")},
			"props":     {"labels|descriptions"},
			"languages": {l.cfg.Language},
		}

		var resp entitiesResponse
		if err := l.api.GetJSON(ctx, params, &resp); err != nil {
			return nil, err
		}

		out := make(map[string]depicts.EntityLabel, len(chunk))
		for id, entity := range resp.Entities {
			label, err := l.term(entity.Labels)
			if err != nil {
				return nil, fmt.Errorf("decode labels of %s: %w", id, err)
			}
			if label == "" {
				continue
			}
			desc, err := l.term(entity.Descriptions)
			if err != nil {
				return nil, fmt.Errorf("decode descriptions of %s: %w", id, err)
			}
			out[id] = depicts.EntityLabel{EntityID: id, Label: label, Description: desc}
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolve labels: %w", err)
	}

	logger := logging.Component(ctx, "wikidata")
	logger.Debug().
		Int("entity_ids", len(ids)).
		Int("resolved", len(labels)).
		Msg("Resolved labels")

	return labels, nil
}

// term picks the configured language from a labels or descriptions map.
func (l *Labels) term(raw json.RawMessage) (string, error) {
	var terms map[string]termValue
	if err := client.DecodeObject(raw, &terms); err != nil {
		return "", err
	}
	return terms[l.cfg.Language].Value, nil
}

// SearchEntities returns up to limit items whose label or alias starts with
// prefix, in the API's relevance order.
func (l *Labels) SearchEntities(ctx context.Context, prefix string, limit int) ([]depicts.EntityLabel, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || limit <= 0 {
		return []depicts.EntityLabel{}, nil
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	params := url.Values{
		"action":   {"wbsearchentities"},
		"search":   {prefix},
		"language": {l.cfg.Language},
		"uselang":  {l.cfg.Language},
		"type":     {"item"},
		"limit":    {strconv.Itoa(limit)},
	}

	var resp searchResponse
	if err := l.api.GetJSON(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("search entities %q: %w", prefix, err)
	}

	results := make([]depicts.EntityLabel, 0, len(resp.Search))
	for _, hit := range resp.Search {
		label := hit.Label
		if label == "" {
			label = hit.ID
		}
		results = append(results, depicts.EntityLabel{
			EntityID:    hit.ID,
			Label:       label,
			Description: hit.Description,
		})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}
