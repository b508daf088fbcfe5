// Package depicts defines the request-scoped data model shared by the
// traversal, pagination, enrichment and search packages, together with the
// two external service contracts they consume.
package depicts

import (
	"context"
	"strings"
)

// PageSize is the fixed number of items in one result page.
const PageSize = 10

// CategoryPrefix is the namespace prefix of category titles on Commons.
const CategoryPrefix = "Category:"

// ItemRef is a single media item as listed by the Media Directory Service.
// Identity is Identifier; two refs with the same Identifier are the same item.
type ItemRef struct {
	Identifier  string `json:"pageid"`
	Title       string `json:"title"`
	ThumbURL    string `json:"thumb_url"`
	FullURL     string `json:"url"`
	Description string `json:"description,omitempty"`
}

// CategoryNode is a category visited during traversal.
// Depth 0 is the queried category, depth 1 one of its direct subcategories.
type CategoryNode struct {
	Name  string `json:"name"`
	Depth int    `json:"depth"`
}

// NormalizeCategory strips surrounding whitespace and the "Category:" prefix.
func NormalizeCategory(name string) string {
	name = strings.TrimSpace(name)
	if len(name) >= len(CategoryPrefix) && strings.EqualFold(name[:len(CategoryPrefix)], CategoryPrefix) {
		name = strings.TrimSpace(name[len(CategoryPrefix):])
	}
	return name
}

// PageWindow addresses one page of the deduplicated sequence.
type PageWindow struct {
	PageNumber int
	PageSize   int
}

// NewPageWindow validates pageNumber and returns a window of PageSize items.
func NewPageWindow(pageNumber int) (PageWindow, error) {
	if pageNumber < 1 {
		return PageWindow{}, Errorf("paginate", ErrInvalidArgument, "page number must be >= 1 (got %d)", pageNumber)
	}
	return PageWindow{PageNumber: pageNumber, PageSize: PageSize}, nil
}

// Offset is the index of the first item on the page.
func (w PageWindow) Offset() int {
	return (w.PageNumber - 1) * w.PageSize
}

// End is the exclusive index of the last item on the page.
func (w PageWindow) End() int {
	return w.Offset() + w.PageSize
}

// Slice returns the window's part of items and whether items extend past it.
func (w PageWindow) Slice(items []ItemRef) ([]ItemRef, bool) {
	offset, end := w.Offset(), w.End()
	if offset >= len(items) {
		return []ItemRef{}, false
	}
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], len(items) > w.End()
}

// ClaimSet maps a subject identifier to the entity ids its depicts claims reference, in claim order.
type ClaimSet map[string][]string

// EntityIDs returns the distinct entity ids referenced anywhere in the set,
// ordered by the given subject order and then claim order.
func (c ClaimSet) EntityIDs(subjectOrder []string) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, subject := range subjectOrder {
		for _, id := range c[subject] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// EntityLabel is a knowledge-base entity with its display label.
type EntityLabel struct {
	EntityID    string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Depiction is one resolved depicts claim of an item.
type Depiction struct {
	EntityID string `json:"id"`
	Label    string `json:"label"`
}

// DepictsStatus tells how complete an item's depicts list is.
type DepictsStatus string

const (
	// DepictsResolved means claims and labels were both fetched.
	DepictsResolved DepictsStatus = "resolved"

	// DepictsRawIDs means claims were fetched but at least one label fell back to its entity id.
	DepictsRawIDs DepictsStatus = "raw_ids"

	// DepictsUnavailable means claims could not be fetched; Depicts is empty.
	DepictsUnavailable DepictsStatus = "unavailable"
)

// EnrichedItem is an ItemRef plus its resolved depicts claims.
type EnrichedItem struct {
	ItemRef
	SubjectID string        `json:"mid"`
	Depicts   []Depiction   `json:"depicts"`
	Status    DepictsStatus `json:"depicts_status"`
}

// Partial reports whether the item carries degraded depicts data.
func (e EnrichedItem) Partial() bool {
	return e.Status != DepictsResolved
}

// MediaDirectory is the Media Directory Service consumed by the core.
type MediaDirectory interface {
	// ListCategoryItems lists up to limit items directly in the category, in native listing order.
	// Items need only carry Identifier and Title.
	ListCategoryItems(ctx context.Context, node CategoryNode, limit int) ([]ItemRef, error)

	// ListSubcategories lists the direct subcategories of a category as depth-1 nodes.
	ListSubcategories(ctx context.Context, category string) ([]CategoryNode, error)

	// ResolveItems looks up items by identifier with URLs and description filled in.
	// Unknown identifiers are omitted.
	ResolveItems(ctx context.Context, identifiers []string) ([]ItemRef, error)

	// GetClaims fetches the depicts claims of all subjects in one batched call.
	GetClaims(ctx context.Context, subjectIDs []string) (ClaimSet, error)
}

// EntityLabels is the Entity Label Service consumed by the core.
type EntityLabels interface {
	// ResolveLabels resolves all ids in one batched call. Ids without a label may be omitted.
	ResolveLabels(ctx context.Context, entityIDs []string) (map[string]EntityLabel, error)

	// SearchEntities returns up to limit entities whose label matches prefix.
	SearchEntities(ctx context.Context, prefix string, limit int) ([]EntityLabel, error)
}
