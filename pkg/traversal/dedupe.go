package traversal

import "github.com/Sternrassler/commons-depicts/pkg/depicts"

// Seen is a request-scoped set of item identifiers. It must not be shared
// between requests.
type Seen map[string]struct{}

// Add records id and reports whether it was new.
func (s Seen) Add(id string) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Dedupe keeps the first occurrence of every identifier, in input order.
func Dedupe(items []depicts.ItemRef) []depicts.ItemRef {
	seen := make(Seen, len(items))
	out := make([]depicts.ItemRef, 0, len(items))
	for _, item := range items {
		if seen.Add(item.Identifier) {
			out = append(out, item)
		}
	}
	return out
}
