package depicts

import (
	"errors"
	"fmt"
	"testing"
)

func refs(ids ...string) []ItemRef {
	out := make([]ItemRef, 0, len(ids))
	for _, id := range ids {
		out = append(out, ItemRef{Identifier: id, Title: "File:" + id + ".jpg"})
	}
	return out
}

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Cats", "Cats"},
		{"Category:Cats", "Cats"},
		{"category:Cats", "Cats"},
		{"  Category: Cats ", "Cats"},
		{"Cat", "Cat"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeCategory(tt.in); got != tt.want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewPageWindow(t *testing.T) {
	for _, n := range []int{0, -1, -100} {
		_, err := NewPageWindow(n)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("NewPageWindow(%d) error = %v, want ErrInvalidArgument", n, err)
		}
	}

	w, err := NewPageWindow(3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if w.Offset() != 20 || w.End() != 30 {
		t.Errorf("window = [%d,%d), want [20,30)", w.Offset(), w.End())
	}
}

func TestPageWindow_Slice(t *testing.T) {
	items := refs("1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12")

	tests := []struct {
		name     string
		page     int
		items    []ItemRef
		wantLen  int
		wantNext bool
	}{
		{"first page with more", 1, items, 10, true},
		{"second page partial", 2, items, 2, false},
		{"beyond end", 3, items, 0, false},
		{"exact page", 1, items[:10], 10, false},
		{"empty", 1, nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := NewPageWindow(tt.page)
			got, next := w.Slice(tt.items)
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
			if next != tt.wantNext {
				t.Errorf("hasNext = %v, want %v", next, tt.wantNext)
			}
			if got == nil {
				t.Error("Slice should never return nil")
			}
		})
	}
}

func TestClaimSet_EntityIDs(t *testing.T) {
	claims := ClaimSet{
		"M1": {"Q1", "Q2"},
		"M2": {"Q1"},
		"M3": {"Q3", "Q2"},
	}

	got := claims.EntityIDs([]string{"M1", "M2", "M3", "M4"})
	want := []string{"Q1", "Q2", "Q3"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("EntityIDs = %v, want %v", got, want)
	}

	if ids := (ClaimSet{}).EntityIDs([]string{"M1"}); len(ids) != 0 {
		t.Errorf("empty claim set should yield no ids, got %v", ids)
	}
}

func TestError_IsAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap("traverse", ErrDirectoryUnavailable, cause)

	if !errors.Is(err, ErrDirectoryUnavailable) {
		t.Error("errors.Is should match the kind")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should match the cause")
	}
	if errors.Is(err, ErrEnrichmentUnavailable) {
		t.Error("errors.Is should not match another kind")
	}

	var de *Error
	if !errors.As(err, &de) || de.Op != "traverse" {
		t.Errorf("errors.As = %+v", de)
	}

	want := "traverse: media directory unavailable: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	if Wrap("op", ErrNotFound, nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestEnrichedItem_Partial(t *testing.T) {
	if (EnrichedItem{Status: DepictsResolved}).Partial() {
		t.Error("resolved item should not be partial")
	}
	if !(EnrichedItem{Status: DepictsRawIDs}).Partial() {
		t.Error("raw id item should be partial")
	}
	if !(EnrichedItem{Status: DepictsUnavailable}).Partial() {
		t.Error("unavailable item should be partial")
	}
}
