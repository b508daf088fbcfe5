// Package search assembles the public results of the depicts core: paginated
// category search with enrichment, the single-item detail view and entity
// autocomplete. It owns the policy for serving pages when enrichment fails.
package search

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/commons-depicts/pkg/depicts"
	"github.com/Sternrassler/commons-depicts/pkg/enrich"
	"github.com/Sternrassler/commons-depicts/pkg/logging"
	"github.com/Sternrassler/commons-depicts/pkg/pagination"
	"github.com/Sternrassler/commons-depicts/pkg/traversal"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SuggestLimit is the number of autocomplete suggestions returned.
const SuggestLimit = 10

// Config holds service configuration.
type Config struct {
	// DegradeEnrichment serves a page without depicts data when the claims
	// lookup fails, instead of failing the page.
	DegradeEnrichment bool
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	return Config{DegradeEnrichment: true}
}

// Result is one page of search results.
type Result struct {
	Query          string                 `json:"query"`
	Page           int                    `json:"page"`
	Items          []depicts.EnrichedItem `json:"items"`
	HasNext        bool                   `json:"has_next"`
	ResolvedEntity *depicts.EntityLabel   `json:"resolved_entity"`

	// Partial is true when subcategory items were dropped or any item
	// carries degraded depicts data.
	Partial bool `json:"partial"`
}

// Service is the core's exposed contract.
type Service struct {
	dir       depicts.MediaDirectory
	labels    depicts.EntityLabels
	paginator *pagination.Paginator
	pipeline  *enrich.Pipeline
	cfg       Config
}

// New wires a Service over the two external services.
func New(dir depicts.MediaDirectory, labels depicts.EntityLabels, cfg Config) *Service {
	return &Service{
		dir:       dir,
		labels:    labels,
		paginator: pagination.New(traversal.New(dir)),
		pipeline:  enrich.New(dir, labels),
		cfg:       cfg,
	}
}

// Search returns page pageNumber of the category named by query, enriched
// with depicts labels. The query is also resolved to a knowledge-base entity
// concurrently; that lookup never fails the page.
func (s *Service) Search(ctx context.Context, query string, pageNumber int) (*Result, error) {
	logger := logging.Component(ctx, "search")
	start := time.Now()
	defer func() { Duration.WithLabelValues("search").Observe(time.Since(start).Seconds()) }()

	category := depicts.NormalizeCategory(query)
	if category == "" {
		RequestsTotal.WithLabelValues("search", "invalid").Inc()
		return nil, depicts.Errorf("search", depicts.ErrInvalidArgument, "query is empty")
	}
	if _, err := depicts.NewPageWindow(pageNumber); err != nil {
		RequestsTotal.WithLabelValues("search", "invalid").Inc()
		return nil, err
	}

	var (
		page     *pagination.Page
		items    []depicts.EnrichedItem
		resolved *depicts.EntityLabel
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resolved = s.resolveEntity(gctx, logger, category)
		return nil
	})
	g.Go(func() error {
		var err error
		page, err = s.paginator.Paginate(gctx, category, pageNumber)
		if err != nil {
			return err
		}
		refs, err := s.describe(gctx, page.Items)
		if err != nil {
			return err
		}
		items, err = s.enrichPage(gctx, logger, refs)
		return err
	})

	if err := g.Wait(); err != nil {
		RequestsTotal.WithLabelValues("search", outcome(err)).Inc()
		logger.Error().
			Err(err).
			Str("category", category).
			Int("page", pageNumber).
			Msg("Search failed")
		return nil, err
	}

	res := &Result{
		Query:          category,
		Page:           pageNumber,
		Items:          items,
		HasNext:        page.HasNext,
		ResolvedEntity: resolved,
		Partial:        page.Degraded || anyPartial(items),
	}

	if res.Partial {
		RequestsTotal.WithLabelValues("search", "partial").Inc()
	} else {
		RequestsTotal.WithLabelValues("search", "ok").Inc()
	}

	logger.Info().
		Str("category", category).
		Int("page", pageNumber).
		Int("items", len(items)).
		Bool("has_next", res.HasNext).
		Bool("partial", res.Partial).
		Dur("duration", time.Since(start)).
		Msg("Search complete")

	return res, nil
}

// enrichPage applies the degradation policy to a failed claims lookup.
func (s *Service) enrichPage(ctx context.Context, logger zerolog.Logger, items []depicts.ItemRef) ([]depicts.EnrichedItem, error) {
	enriched, err := s.pipeline.Enrich(ctx, items)
	if err == nil {
		return enriched, nil
	}
	if !s.cfg.DegradeEnrichment || ctx.Err() != nil || !errors.Is(err, depicts.ErrEnrichmentUnavailable) {
		return nil, err
	}

	logger.Warn().
		Err(err).
		Int("items", len(items)).
		Msg("Enrichment unavailable, serving page without depicts")
	return enrich.Unenriched(items), nil
}

// describe fills in URLs and descriptions for the items of one page with a
// single lookup. Items the directory no longer resolves keep their listed
// fields.
func (s *Service) describe(ctx context.Context, items []depicts.ItemRef) ([]depicts.ItemRef, error) {
	if len(items) == 0 {
		return items, nil
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.Identifier
	}
	resolved, err := s.dir.ResolveItems(ctx, ids)
	if err != nil {
		return nil, depicts.Wrap("search", depicts.ErrDirectoryUnavailable, err)
	}

	byID := make(map[string]depicts.ItemRef, len(resolved))
	for _, ref := range resolved {
		byID[ref.Identifier] = ref
	}

	out := make([]depicts.ItemRef, len(items))
	for i, item := range items {
		out[i] = item
		ref, ok := byID[item.Identifier]
		if !ok {
			continue
		}
		out[i].ThumbURL = ref.ThumbURL
		out[i].FullURL = ref.FullURL
		out[i].Description = ref.Description
		if out[i].Title == "" {
			out[i].Title = ref.Title
		}
	}
	return out, nil
}

// resolveEntity returns the best entity match for query, or nil.
func (s *Service) resolveEntity(ctx context.Context, logger zerolog.Logger, query string) *depicts.EntityLabel {
	matches, err := s.labels.SearchEntities(ctx, query, 1)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn().Err(err).Str("query", query).Msg("Entity resolution failed")
		}
		return nil
	}
	if len(matches) == 0 {
		return nil
	}
	entity := matches[0]
	return &entity
}

// GetDetail returns one item by identifier with its depicts claims.
func (s *Service) GetDetail(ctx context.Context, identifier string) (*depicts.EnrichedItem, error) {
	start := time.Now()
	defer func() { Duration.WithLabelValues("detail").Observe(time.Since(start).Seconds()) }()

	identifier = strings.TrimSpace(identifier)
	if _, err := strconv.ParseUint(identifier, 10, 64); err != nil {
		RequestsTotal.WithLabelValues("detail", "invalid").Inc()
		return nil, depicts.Errorf("detail", depicts.ErrInvalidArgument, "item identifier %q is not a page id", identifier)
	}

	items, err := s.dir.ResolveItems(ctx, []string{identifier})
	if err != nil {
		RequestsTotal.WithLabelValues("detail", "error").Inc()
		return nil, depicts.Wrap("detail", depicts.ErrDirectoryUnavailable, err)
	}
	if len(items) == 0 {
		RequestsTotal.WithLabelValues("detail", "not_found").Inc()
		return nil, depicts.Errorf("detail", depicts.ErrNotFound, "item %s not found", identifier)
	}

	enriched, err := s.pipeline.Enrich(ctx, items[:1])
	if err != nil {
		RequestsTotal.WithLabelValues("detail", "error").Inc()
		return nil, err
	}

	item := enriched[0]
	if item.Partial() {
		RequestsTotal.WithLabelValues("detail", "partial").Inc()
	} else {
		RequestsTotal.WithLabelValues("detail", "ok").Inc()
	}
	return &item, nil
}

// Suggest returns up to SuggestLimit entities matching prefix. An empty
// prefix yields no suggestions and no external call.
func (s *Service) Suggest(ctx context.Context, prefix string) ([]depicts.EntityLabel, error) {
	start := time.Now()
	defer func() { Duration.WithLabelValues("suggest").Observe(time.Since(start).Seconds()) }()

	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		RequestsTotal.WithLabelValues("suggest", "ok").Inc()
		return []depicts.EntityLabel{}, nil
	}

	matches, err := s.labels.SearchEntities(ctx, prefix, SuggestLimit)
	if err != nil {
		RequestsTotal.WithLabelValues("suggest", "error").Inc()
		return nil, depicts.Wrap("suggest", depicts.ErrEnrichmentUnavailable, err)
	}

	RequestsTotal.WithLabelValues("suggest", "ok").Inc()
	return matches, nil
}

func anyPartial(items []depicts.EnrichedItem) bool {
	for _, item := range items {
		if item.Partial() {
			return true
		}
	}
	return false
}

func outcome(err error) string {
	switch {
	case errors.Is(err, depicts.ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, depicts.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
