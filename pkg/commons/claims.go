package commons

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

// DepictsProperty is the Wikidata property for "depicts".
const DepictsProperty = "P180"

type entitiesResponse struct {
	Entities map[string]struct {
		ID         string          `json:"id"`
		Statements json.RawMessage `json:"statements"`
		Claims     json.RawMessage `json:"claims"`
	} `json:"entities"`
}

type statement struct {
	MainSnak struct {
		SnakType  string `json:"snaktype"`
		DataValue struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		} `json:"datavalue"`
	} `json:"mainsnak"`
}

type entityIDValue struct {
	ID        string `json:"id"`
	NumericID int64  `json:"numeric-id"`
}

// GetClaims fetches the depicts statements of MediaInfo entities. Every
// requested subject is present in the result; subjects without statements
// map to an empty list.
func (d *Directory) GetClaims(ctx context.Context, subjectIDs []string) (depicts.ClaimSet, error) {
	subjects := make([]string, 0, len(subjectIDs))
	seen := make(map[string]struct{}, len(subjectIDs))
	for _, id := range subjectIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		subjects = append(subjects, id)
	}

	fetched, err := batch.Fetch(ctx, d.cfg.Batch, subjects, func(ctx context.Context, chunk []string) (map[string][]string, error) {
		params := url.Values{
			"action": {"wbgetentities"},
			"ids":    {strings.Join(chunk, "|")},
			"props":  {"claims"},
		}

		var resp entitiesResponse
		if err := d.api.GetJSON(ctx, params, &resp); err != nil {
			return nil, err
		}

		out := make(map[string][]string, len(chunk))
		for _, id := range chunk {
			entity, ok := resp.Entities[id]
			if !ok {
				continue
			}
			raw := entity.Statements
			if len(raw) == 0 {
				raw = entity.Claims
			}
			ids, err := depictedEntities(raw)
			if err != nil {
				return nil, fmt.Errorf("decode statements of %s: %w", id, err)
			}
			out[id] = ids
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get claims: %w", err)
	}

	claims := make(depicts.ClaimSet, len(subjects))
	for _, id := range subjects {
		ids := fetched[id]
		if ids == nil {
			ids = []string{}
		}
		claims[id] = ids
	}

	logger := logging.Component(ctx, "commons")
	logger.Debug().
		Int("subject_ids", len(subjects)).
		Msg("Fetched depicts claims")

	return claims, nil
}

// depictedEntities returns the distinct item ids of value-type P180
// statements in claim order.
func depictedEntities(raw json.RawMessage) ([]string, error) {
	var statements map[string][]statement
	if err := client.DecodeObject(raw, &statements); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(statements[DepictsProperty]))
	seen := make(map[string]struct{})
	for _, st := range statements[DepictsProperty] {
		if st.MainSnak.SnakType != "value" || st.MainSnak.DataValue.Type != "wikibase-entityid" {
			continue
		}

		var v entityIDValue
		if err := json.Unmarshal(st.MainSnak.DataValue.Value, &v); err != nil {
			continue
		}
		id := v.ID
		if id == "" && v.NumericID > 0 {
			id = "Q" + strconv.FormatInt(v.NumericID, 10)
		}
		if id == "" {
			continue
		}

		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
