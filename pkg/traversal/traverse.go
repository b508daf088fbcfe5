// Package traversal walks a category and, when it is sparse, one level of
// its subcategories, producing the raw item sequence the paginator slices.
package traversal

import (
	"context"

	"github.com/Sternrassler/commons-depicts/pkg/depicts"
	"github.com/Sternrassler/commons-depicts/pkg/logging"
	"github.com/rs/zerolog"
)

// MaxDepth is the deepest category level ever visited.
const MaxDepth = 1

// Result is the outcome of one traversal.
type Result struct {
	// Items is the raw sequence in traversal order. It may contain
	// identifiers listed in more than one category.
	Items []depicts.ItemRef

	// Unique is the number of distinct identifiers in Items.
	Unique int

	// Truncated is true when the walk stopped at the limit before the
	// category tree was exhausted.
	Truncated bool

	// VisitedSubcategories is true when depth 1 was walked.
	VisitedSubcategories bool

	// Degraded is true when depth 1 failed and only depth-0 items are returned.
	Degraded bool
}

// Traverser walks categories of a MediaDirectory.
type Traverser struct {
	dir depicts.MediaDirectory
}

// New creates a Traverser over dir.
func New(dir depicts.MediaDirectory) *Traverser {
	return &Traverser{dir: dir}
}

// Traverse lists the items of category, stopping once limit distinct items
// have been produced. Subcategories are visited only when the category
// itself holds fewer than depicts.PageSize items.
func (t *Traverser) Traverse(ctx context.Context, category string, limit int) (*Result, error) {
	category = depicts.NormalizeCategory(category)
	if category == "" {
		return nil, depicts.Errorf("traverse", depicts.ErrInvalidArgument, "category is empty")
	}
	if limit < 1 {
		return nil, depicts.Errorf("traverse", depicts.ErrInvalidArgument, "limit must be >= 1 (got %d)", limit)
	}

	logger := logging.Component(ctx, "traversal")

	root := depicts.CategoryNode{Name: category, Depth: 0}
	direct, err := t.dir.ListCategoryItems(ctx, root, limit)
	if err != nil {
		logger.Error().Err(err).Str("category", category).Msg("Category listing failed")
		return nil, depicts.Wrap("traverse", depicts.ErrDirectoryUnavailable, err)
	}

	res := &Result{}
	seen := make(Seen)
	res.Unique = appendUntil(res, seen, direct, limit)
	if len(direct) >= limit {
		res.Truncated = true
	}

	if len(direct) >= depicts.PageSize || res.Unique >= limit {
		TraversalsTotal.WithLabelValues("false").Inc()
		logger.Debug().
			Str("category", category).
			Int("items", len(res.Items)).
			Bool("truncated", res.Truncated).
			Msg("Traversal complete (depth 0)")
		return res, nil
	}

	res.VisitedSubcategories = true
	TraversalsTotal.WithLabelValues("true").Inc()

	depth1, unique, truncated, err := t.walkSubcategories(ctx, logger, category, seen, res.Unique, limit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, depicts.Wrap("traverse", depicts.ErrDirectoryUnavailable, ctx.Err())
		}
		TraversalsDegraded.Inc()
		logger.Warn().
			Err(err).
			Str("category", category).
			Int("items", len(res.Items)).
			Msg("Subcategory traversal failed, returning direct items only")
		res.Degraded = true
		return res, nil
	}

	res.Items = append(res.Items, depth1...)
	res.Unique = unique
	res.Truncated = truncated

	logger.Debug().
		Str("category", category).
		Int("items", len(res.Items)).
		Int("unique", res.Unique).
		Bool("truncated", res.Truncated).
		Msg("Traversal complete (depth 1)")

	return res, nil
}

// walkSubcategories lists the depth-1 items. On any failure the whole depth-1
// contribution is discarded so the caller can fall back to depth 0 alone.
func (t *Traverser) walkSubcategories(ctx context.Context, logger zerolog.Logger, category string, parentSeen Seen, unique, limit int) ([]depicts.ItemRef, int, bool, error) {
	subcats, err := t.dir.ListSubcategories(ctx, category)
	if err != nil {
		return nil, 0, false, err
	}

	// Work on a copy so a failure leaves the depth-0 state untouched.
	seen := make(Seen, len(parentSeen))
	for id := range parentSeen {
		seen[id] = struct{}{}
	}

	acc := &Result{Unique: unique}
	for i, sub := range subcats {
		node := depicts.CategoryNode{Name: depicts.NormalizeCategory(sub.Name), Depth: MaxDepth}

		// Each subcategory is asked for the full limit: at most Unique of its
		// items can be duplicates, so limit items always cover what is missing.
		items, err := t.dir.ListCategoryItems(ctx, node, limit)
		if err != nil {
			return nil, 0, false, err
		}

		acc.Unique = appendUntil(acc, seen, items, limit)
		logger.Debug().
			Str("subcategory", node.Name).
			Int("index", i).
			Int("listed", len(items)).
			Int("unique", acc.Unique).
			Msg("Subcategory listed")

		if acc.Unique >= limit {
			return acc.Items, acc.Unique, true, nil
		}
	}

	return acc.Items, acc.Unique, false, nil
}

// appendUntil appends items to res.Items until limit distinct identifiers are
// reached and returns the new distinct count. Duplicates before that point are
// kept in the raw sequence.
func appendUntil(res *Result, seen Seen, items []depicts.ItemRef, limit int) int {
	unique := res.Unique
	for _, item := range items {
		if unique >= limit {
			break
		}
		if seen.Add(item.Identifier) {
			unique++
		}
		res.Items = append(res.Items, item)
	}
	return unique
}
