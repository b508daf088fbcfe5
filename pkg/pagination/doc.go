// Package pagination derives result pages from a category traversal without
// keeping continuation state between calls.
//
// Every call re-runs the traversal from the start and deduplicates it, asking
// for one item more than the end of the requested page:
//
//	target  = pageNumber*PageSize + 1
//	items   = Dedupe(Traverse(category, target))
//	page    = items[offset : offset+PageSize]
//	hasNext = len(items) > offset+PageSize
//
// The extra item makes hasNext exact: it is true only when an item past the
// page was actually listed. Because a traversal asked for N items always
// yields a prefix of one asked for more, consecutive pages neither overlap
// nor leave gaps.
//
// Example usage:
//
//	p := pagination.New(traversal.New(directory))
//	page, err := p.Paginate(ctx, "Cats", 2)
//
// The cost is O(pageNumber * PageSize) listed items per call.
package pagination
