package pagination

import (
	"context"

	"github.com/Sternrassler/commons-depicts/pkg/depicts"
	"github.com/Sternrassler/commons-depicts/pkg/logging"
	"github.com/Sternrassler/commons-depicts/pkg/traversal"
)

// Traverser produces the raw item sequence of a category.
type Traverser interface {
	Traverse(ctx context.Context, category string, limit int) (*traversal.Result, error)
}

// Page is one window of the deduplicated traversal.
type Page struct {
	Window  depicts.PageWindow
	Items   []depicts.ItemRef
	HasNext bool

	// Degraded is true when subcategory items were dropped after a failure.
	Degraded bool
}

// Paginator slices traversals into pages.
type Paginator struct {
	traverser Traverser
}

// New creates a Paginator.
func New(traverser Traverser) *Paginator {
	return &Paginator{traverser: traverser}
}

// Paginate returns page pageNumber (1-based) of category.
func (p *Paginator) Paginate(ctx context.Context, category string, pageNumber int) (*Page, error) {
	window, err := depicts.NewPageWindow(pageNumber)
	if err != nil {
		return nil, err
	}
	if depicts.NormalizeCategory(category) == "" {
		return nil, depicts.Errorf("paginate", depicts.ErrInvalidArgument, "category is empty")
	}

	res, err := p.traverser.Traverse(ctx, category, window.End()+1)
	if err != nil {
		return nil, err
	}

	deduped := traversal.Dedupe(res.Items)
	items, hasNext := window.Slice(deduped)

	logger := logging.Component(ctx, "pagination")
	logger.Debug().
		Str("category", category).
		Int("page", pageNumber).
		Int("listed", len(res.Items)).
		Int("unique", len(deduped)).
		Int("items", len(items)).
		Bool("has_next", hasNext).
		Msg("Page derived")

	return &Page{
		Window:   window,
		Items:    items,
		HasNext:  hasNext,
		Degraded: res.Degraded,
	}, nil
}
