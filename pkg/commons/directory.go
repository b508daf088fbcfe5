// Package commons adapts the Wikimedia Commons Action API to the media
// directory contract: category listings, file metadata and the depicts (P180)
// statements of Structured Data on Commons.
package commons

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/commons-depicts/pkg/batch"
	"github.com/Sternrassler/commons-depicts/pkg/depicts"
	"github.com/Sternrassler/commons-depicts/pkg/logging"
)

// maxListLimit is the largest cmlimit the API accepts for anonymous clients.
const maxListLimit = 500

// API is the Action API transport.
type API interface {
	GetJSON(ctx context.Context, params url.Values, out any) error
}

// Config holds adapter configuration.
type Config struct {
	// Language selects the extmetadata language of descriptions.
	Language string

	// ThumbWidth is the requested thumbnail width in pixels.
	ThumbWidth int

	// MaxSubcategories caps how many subcategories are listed.
	MaxSubcategories int

	// Batch controls chunking of multi-id requests.
	Batch batch.Config
}

// DefaultConfig returns the adapter defaults.
func DefaultConfig() Config {
	return Config{
		Language:         "en",
		ThumbWidth:       320,
		MaxSubcategories: 50,
		Batch:            batch.DefaultConfig(),
	}
}

// Directory is the Commons media directory.
type Directory struct {
	api API
	cfg Config
}

var _ depicts.MediaDirectory = (*Directory)(nil)

// New creates a Directory over api.
func New(api API, cfg Config) *Directory {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.ThumbWidth <= 0 {
		cfg.ThumbWidth = 320
	}
	if cfg.MaxSubcategories <= 0 {
		cfg.MaxSubcategories = 50
	}
	return &Directory{api: api, cfg: cfg}
}

type categoryMembersResponse struct {
	Continue map[string]string `json:"continue"`
	Query    struct {
		Members []struct {
			PageID int64  `json:"pageid"`
			Title  string `json:"title"`
		} `json:"categorymembers"`
	} `json:"query"`
}

type imageInfoResponse struct {
	Query struct {
		Pages []struct {
			PageID    int64  `json:"pageid"`
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			ImageInfo []struct {
				URL         string          `json:"url"`
				ThumbURL    string          `json:"thumburl"`
				ExtMetadata json.RawMessage `json:"extmetadata"`
			} `json:"imageinfo"`
		} `json:"pages"`
	} `json:"query"`
}

type metadataField struct {
	Value json.RawMessage `json:"value"`
}

func categoryTitle(name string) string {
	return depicts.CategoryPrefix + depicts.NormalizeCategory(name)
}

// ListCategoryItems lists up to limit files directly in the category, in
// listing order, following continuation past the per-request cap. Items carry
// identifier and title only; ResolveItems fills in URLs and descriptions.
func (d *Directory) ListCategoryItems(ctx context.Context, node depicts.CategoryNode, limit int) ([]depicts.ItemRef, error) {
	items := make([]depicts.ItemRef, 0, min(max(limit, 0), maxListLimit))
	if limit <= 0 {
		return items, nil
	}

	params := url.Values{
		"action":  {"query"},
		"list":    {"categorymembers"},
		"cmtitle": {categoryTitle(node.Name)},
		"cmtype":  {"file"},
		"cmprop":  {"ids|title"},
	}

	requests := 0
	for len(items) < limit {
		params.Set("cmlimit", strconv.Itoa(min(limit-len(items), maxListLimit)))

		var resp categoryMembersResponse
		if err := d.api.GetJSON(ctx, params, &resp); err != nil {
			return nil, fmt.Errorf("list category %q: %w", node.Name, err)
		}
		requests++

		for _, m := range resp.Query.Members {
			items = append(items, depicts.ItemRef{
				Identifier: strconv.FormatInt(m.PageID, 10),
				Title:      m.Title,
			})
		}

		next := resp.Continue["cmcontinue"]
		if next == "" {
			break
		}
		params.Set("cmcontinue", next)
	}
	if len(items) > limit {
		items = items[:limit]
	}

	logger := logging.Component(ctx, "commons")
	logger.Debug().
		Str("category", node.Name).
		Int("depth", node.Depth).
		Int("items", len(items)).
		Int("requests", requests).
		Msg("Listed category")

	return items, nil
}

// ListSubcategories lists the direct subcategories of category, following
// continuation up to the configured cap.
func (d *Directory) ListSubcategories(ctx context.Context, category string) ([]depicts.CategoryNode, error) {
	limit := d.cfg.MaxSubcategories
	params := url.Values{
		"action":  {"query"},
		"list":    {"categorymembers"},
		"cmtitle": {categoryTitle(category)},
		"cmtype":  {"subcat"},
		"cmprop":  {"title"},
		"cmlimit": {strconv.Itoa(min(limit, maxListLimit))},
	}

	nodes := make([]depicts.CategoryNode, 0)
	for {
		var resp categoryMembersResponse
		if err := d.api.GetJSON(ctx, params, &resp); err != nil {
			return nil, fmt.Errorf("list subcategories of %q: %w", category, err)
		}

		for _, m := range resp.Query.Members {
			nodes = append(nodes, depicts.CategoryNode{
				Name:  depicts.NormalizeCategory(m.Title),
				Depth: 1,
			})
			if len(nodes) >= limit {
				return nodes, nil
			}
		}

		next := resp.Continue["cmcontinue"]
		if next == "" {
			return nodes, nil
		}
		params.Set("cmcontinue", next)
	}
}

// ResolveItems looks up files by page id, in the order given. Unknown ids,
// non-numeric ids and pages that are not files are omitted.
func (d *Directory) ResolveItems(ctx context.Context, identifiers []string) ([]depicts.ItemRef, error) {
	ids := make([]string, 0, len(identifiers))
	seen := make(map[string]struct{}, len(identifiers))
	for _, id := range identifiers {
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	items := make([]depicts.ItemRef, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	infos, err := d.imageInfo(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve items: %w", err)
	}

	for _, id := range ids {
		if info, ok := infos[id]; ok {
			items = append(items, info)
		}
	}
	return items, nil
}

// imageInfo fetches URLs and descriptions for page ids, keyed by id.
// Pages without image info are absent from the result.
func (d *Directory) imageInfo(ctx context.Context, ids []string) (map[string]depicts.ItemRef, error) {
	return batch.Fetch(ctx, d.cfg.Batch, ids, func(ctx context.Context, chunk []string) (map[string]depicts.ItemRef, error) {
		params := url.Values{
			"action":                {"query"},
			"prop":                  {"imageinfo"},
			"pageids":               {strings.Join(chunk, "|")},
			"iiprop":                {"url|extmetadata"},
			"iiurlwidth":            {strconv.Itoa(d.cfg.ThumbWidth)},
			"iiextmetadatafilter":   {"ImageDescription"},
			"iiextmetadatalanguage": {d.cfg.Language},
		}

		var resp imageInfoResponse
		if err := d.api.GetJSON(ctx, params, &resp); err != nil {
			return nil, err
		}

		out := make(map[string]depicts.ItemRef, len(resp.Query.Pages))
		for _, page := range resp.Query.Pages {
			if page.Missing || len(page.ImageInfo) == 0 {
				continue
			}
			info := page.ImageInfo[0]
			thumb := info.ThumbURL
			if thumb == "" {
				thumb = info.URL
			}
			id := strconv.FormatInt(page.PageID, 10)
			out[id] = depicts.ItemRef{
				Identifier:  id,
				Title:       page.Title,
				ThumbURL:    thumb,
				FullURL:     info.URL,
				Description: description(info.ExtMetadata),
			}
		}
		return out, nil
	})
}

// description extracts ImageDescription from extmetadata as plain text.
func description(raw json.RawMessage) string {
	var fields map[string]metadataField
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}
	field, ok := fields["ImageDescription"]
	if !ok {
		return ""
	}
	var html string
	if err := json.Unmarshal(field.Value, &html); err != nil {
		return ""
	}
	return PlainText(html)
}
