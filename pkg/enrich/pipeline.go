// Package enrich attaches depicts labels to a page of items with two batched
// lookups: one for the claims of every item, one for the labels of every
// entity those claims reference.
package enrich

import (
	"context"

	"github.com/Sternrassler/commons-depicts/pkg/depicts"
	"github.com/Sternrassler/commons-depicts/pkg/logging"
	"github.com/rs/zerolog"
)

// SubjectPrefix turns an item identifier into its structured-data subject id.
const SubjectPrefix = "M"

// ClaimsFetcher fetches the depicts claims of many subjects at once.
type ClaimsFetcher interface {
	GetClaims(ctx context.Context, subjectIDs []string) (depicts.ClaimSet, error)
}

// LabelResolver resolves many entity ids at once.
type LabelResolver interface {
	ResolveLabels(ctx context.Context, entityIDs []string) (map[string]depicts.EntityLabel, error)
}

// SubjectID returns the structured-data subject id of item.
func SubjectID(item depicts.ItemRef) string {
	return SubjectPrefix + item.Identifier
}

// Pipeline enriches pages of items.
type Pipeline struct {
	claims ClaimsFetcher
	labels LabelResolver
}

// New creates a Pipeline.
func New(claims ClaimsFetcher, labels LabelResolver) *Pipeline {
	return &Pipeline{claims: claims, labels: labels}
}

// Enrich returns one EnrichedItem per input item, in input order.
//
// It issues exactly one claims call and at most one label call. A failed
// claims call fails the whole enrichment with depicts.ErrEnrichmentUnavailable;
// a failed label call degrades every label to its raw entity id. An item is
// DepictsRawIDs whenever any of its depictions carries the raw id instead of
// a label, whether the label call failed or the entity has no label.
func (p *Pipeline) Enrich(ctx context.Context, items []depicts.ItemRef) ([]depicts.EnrichedItem, error) {
	if len(items) == 0 {
		return []depicts.EnrichedItem{}, nil
	}

	logger := logging.Component(ctx, "enrich")
	subjects := subjectIDs(items)
	batch := distinct(subjects)

	BatchCalls.WithLabelValues("claims").Inc()
	BatchSize.WithLabelValues("claims").Observe(float64(len(batch)))
	claims, err := p.claims.GetClaims(ctx, batch)
	if err != nil {
		Degraded.WithLabelValues("claims").Inc()
		logger.Error().Err(err).Int("subject_ids", len(batch)).Msg("Claims lookup failed")
		return nil, depicts.Wrap("enrich", depicts.ErrEnrichmentUnavailable, err)
	}

	entityIDs := claims.EntityIDs(batch)
	labels, ok := p.resolve(ctx, logger, entityIDs)

	out := make([]depicts.EnrichedItem, 0, len(items))
	for i, item := range items {
		subject := subjects[i]
		refs := claims[subject]
		depiction := make([]depicts.Depiction, 0, len(refs))
		status := depicts.DepictsResolved
		for _, id := range refs {
			label := id
			if l, found := labels[id]; found && l.Label != "" {
				label = l.Label
			} else {
				status = depicts.DepictsRawIDs
			}
			depiction = append(depiction, depicts.Depiction{EntityID: id, Label: label})
		}
		out = append(out, depicts.EnrichedItem{
			ItemRef:   item,
			SubjectID: subject,
			Depicts:   depiction,
			Status:    status,
		})
	}

	logger.Debug().
		Int("items", len(items)).
		Int("entity_ids", len(entityIDs)).
		Bool("labels", ok).
		Msg("Enrichment complete")

	return out, nil
}

// resolve looks up all entity ids in one call. Missing labels are left out of
// the map; the caller falls back to the raw id. ok is false when the call failed.
func (p *Pipeline) resolve(ctx context.Context, logger zerolog.Logger, entityIDs []string) (map[string]depicts.EntityLabel, bool) {
	if len(entityIDs) == 0 {
		return nil, true
	}

	BatchCalls.WithLabelValues("labels").Inc()
	BatchSize.WithLabelValues("labels").Observe(float64(len(entityIDs)))
	labels, err := p.labels.ResolveLabels(ctx, entityIDs)
	if err != nil {
		Degraded.WithLabelValues("labels").Inc()
		logger.Warn().
			Err(err).
			Int("entity_ids", len(entityIDs)).
			Msg("Label lookup failed, falling back to entity ids")
		return nil, false
	}
	return labels, true
}

// Unenriched wraps items without depicts data, for callers that choose to
// serve a page when enrichment is unavailable.
func Unenriched(items []depicts.ItemRef) []depicts.EnrichedItem {
	out := make([]depicts.EnrichedItem, 0, len(items))
	for _, item := range items {
		out = append(out, depicts.EnrichedItem{
			ItemRef:   item,
			SubjectID: SubjectID(item),
			Depicts:   []depicts.Depiction{},
			Status:    depicts.DepictsUnavailable,
		})
	}
	return out
}

func subjectIDs(items []depicts.ItemRef) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, SubjectID(item))
	}
	return out
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
