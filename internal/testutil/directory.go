package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Sternrassler/commons-depicts/pkg/depicts"
)

// ErrInjected is the default error returned by failing fakes.
var ErrInjected = errors.New("injected failure")

// FakeDirectory is an in-memory depicts.MediaDirectory with call recording.
type FakeDirectory struct {
	mu sync.Mutex

	// Categories maps a category name to its direct items in listing order.
	Categories map[string][]depicts.ItemRef
	// Subcategories maps a category name to its direct subcategory names.
	Subcategories map[string][]string
	// Claims maps a subject id to its depicts entity ids.
	Claims depicts.ClaimSet

	// FailList fails ListCategoryItems for the named categories.
	FailList map[string]error
	// FailSubcategories fails ListSubcategories when set.
	FailSubcategories error
	// FailClaims fails GetClaims when set.
	FailClaims error
	// FailResolve fails ResolveItems when set.
	FailResolve error

	ListCalls        []string
	SubcategoryCalls []string
	ClaimCalls       [][]string
	ResolveCalls     [][]string
}

// NewFakeDirectory returns an empty FakeDirectory.
func NewFakeDirectory() *FakeDirectory {
	return &FakeDirectory{
		Categories:    make(map[string][]depicts.ItemRef),
		Subcategories: make(map[string][]string),
		Claims:        make(depicts.ClaimSet),
		FailList:      make(map[string]error),
	}
}

// ListCategoryItems implements depicts.MediaDirectory.
func (f *FakeDirectory) ListCategoryItems(ctx context.Context, node depicts.CategoryNode, limit int) ([]depicts.ItemRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls = append(f.ListCalls, node.Name)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.FailList[node.Name]; err != nil {
		return nil, err
	}
	items := f.Categories[node.Name]
	if limit < len(items) {
		items = items[:limit]
	}
	return append([]depicts.ItemRef(nil), items...), nil
}

// ListSubcategories implements depicts.MediaDirectory.
func (f *FakeDirectory) ListSubcategories(ctx context.Context, category string) ([]depicts.CategoryNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SubcategoryCalls = append(f.SubcategoryCalls, category)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.FailSubcategories != nil {
		return nil, f.FailSubcategories
	}
	nodes := make([]depicts.CategoryNode, 0, len(f.Subcategories[category]))
	for _, name := range f.Subcategories[category] {
		nodes = append(nodes, depicts.CategoryNode{Name: name, Depth: 1})
	}
	return nodes, nil
}

// ResolveItems implements depicts.MediaDirectory.
func (f *FakeDirectory) ResolveItems(ctx context.Context, identifiers []string) ([]depicts.ItemRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ResolveCalls = append(f.ResolveCalls, append([]string(nil), identifiers...))

	if f.FailResolve != nil {
		return nil, f.FailResolve
	}
	out := make([]depicts.ItemRef, 0, len(identifiers))
	for _, id := range identifiers {
		if item, ok := f.find(id); ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// GetClaims implements depicts.MediaDirectory.
func (f *FakeDirectory) GetClaims(ctx context.Context, subjectIDs []string) (depicts.ClaimSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ClaimCalls = append(f.ClaimCalls, append([]string(nil), subjectIDs...))

	if f.FailClaims != nil {
		return nil, f.FailClaims
	}
	out := make(depicts.ClaimSet, len(subjectIDs))
	for _, id := range subjectIDs {
		out[id] = append([]string(nil), f.Claims[id]...)
	}
	return out, nil
}

// ClaimCallCount returns the number of GetClaims calls.
func (f *FakeDirectory) ClaimCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ClaimCalls)
}

func (f *FakeDirectory) find(id string) (depicts.ItemRef, bool) {
	for _, items := range f.Categories {
		for _, item := range items {
			if item.Identifier == id {
				return item, true
			}
		}
	}
	return depicts.ItemRef{}, false
}

// FakeLabels is an in-memory depicts.EntityLabels with call recording.
type FakeLabels struct {
	mu sync.Mutex

	Labels map[string]depicts.EntityLabel
	// Omit lists ids the service silently leaves out of its answer.
	Omit map[string]bool

	FailResolve error
	FailSearch  error

	ResolveCalls [][]string
	SearchCalls  []string
}

// NewFakeLabels returns a FakeLabels holding the given labels.
func NewFakeLabels(labels ...depicts.EntityLabel) *FakeLabels {
	f := &FakeLabels{
		Labels: make(map[string]depicts.EntityLabel),
		Omit:   make(map[string]bool),
	}
	for _, l := range labels {
		f.Labels[l.EntityID] = l
	}
	return f
}

// ResolveLabels implements depicts.EntityLabels.
func (f *FakeLabels) ResolveLabels(ctx context.Context, entityIDs []string) (map[string]depicts.EntityLabel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ResolveCalls = append(f.ResolveCalls, append([]string(nil), entityIDs...))

	if f.FailResolve != nil {
		return nil, f.FailResolve
	}
	out := make(map[string]depicts.EntityLabel, len(entityIDs))
	for _, id := range entityIDs {
		if f.Omit[id] {
			continue
		}
		if l, ok := f.Labels[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

// SearchEntities implements depicts.EntityLabels, matching label prefixes in id order.
func (f *FakeLabels) SearchEntities(ctx context.Context, prefix string, limit int) ([]depicts.EntityLabel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SearchCalls = append(f.SearchCalls, prefix)

	if f.FailSearch != nil {
		return nil, f.FailSearch
	}
	out := make([]depicts.EntityLabel, 0)
	for _, id := range sortedKeys(f.Labels) {
		l := f.Labels[id]
		if len(l.Label) >= len(prefix) && l.Label[:len(prefix)] == prefix {
			out = append(out, l)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// ResolveCallCount returns the number of ResolveLabels calls.
func (f *FakeLabels) ResolveCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ResolveCalls)
}

func sortedKeys(m map[string]depicts.EntityLabel) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Items builds ItemRefs for the given identifiers.
func Items(ids ...string) []depicts.ItemRef {
	out := make([]depicts.ItemRef, 0, len(ids))
	for _, id := range ids {
		out = append(out, depicts.ItemRef{
			Identifier: id,
			Title:      "File:" + id + ".jpg",
			ThumbURL:   "https://upload.example.org/thumb/" + id + ".jpg",
			FullURL:    "https://upload.example.org/" + id + ".jpg",
		})
	}
	return out
}
