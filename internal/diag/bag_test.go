package diag

import (
	"testing"

	"ember/internal/source"
)

func span(start uint32) source.Span {
	return source.Span{File: 1, Start: start, End: start + 1}
}

func TestSortedOrdersByPrimarySpan(t *testing.T) {
	b := NewBag()
	b.Add(NewError(TypeMismatch, span(30), "third"))
	b.Add(NewError(ResolveUndefinedName, span(10), "first"))
	b.Add(NewError(BorrowMultipleMut, span(20), "second"))

	got := b.Sorted()
	if got[0].Message != "first" || got[1].Message != "second" || got[2].Message != "third" {
		t.Fatalf("diagnostics must sort by ascending span, got %+v", got)
	}
	if b.Items()[0].Message != "third" {
		t.Fatalf("Sorted must not mutate insertion order")
	}
}

func TestAllowListFiltersAtEmit(t *testing.T) {
	b := NewBag()
	b.SetAllowList([]Code{PerfAllocInLoop})
	b.Add(NewWarning(PerfAllocInLoop, span(1), "suppressed"))
	b.Add(NewError(TypeMismatch, span(2), "kept"))

	if b.Len() != 1 || b.Items()[0].Code != TypeMismatch {
		t.Fatalf("allow-listed codes must be dropped, got %+v", b.Items())
	}
}

func TestCodeRendersAndCategorizes(t *testing.T) {
	cases := []struct {
		code     Code
		str      string
		category string
	}{
		{ResolveUndefinedName, "P2901", "resolve"},
		{TypeMismatch, "P3001", "type"},
		{TraitAmbiguousMethod, "P4001", "trait"},
		{BorrowMultipleMut, "P0499", "borrow"},
		{BorrowMutWhileShared, "P0502", "borrow"},
		{BorrowOfMoved, "P0382", "borrow"},
		{PerfAllocInLoop, "P10001", "performance"},
		{InternalInvariant, "P9999", "internal"},
	}
	for _, tc := range cases {
		if got := tc.code.String(); got != tc.str {
			t.Errorf("%d renders %q, want %q", tc.code, got, tc.str)
		}
		if got := tc.code.Category(); got != tc.category {
			t.Errorf("%d categorizes %q, want %q", tc.code, got, tc.category)
		}
	}
}

func TestHasErrorsIgnoresWarnings(t *testing.T) {
	b := NewBag()
	b.Add(NewWarning(PerfImplicitCopy, span(1), "advice"))
	if b.HasErrors() {
		t.Fatalf("a warning is not an error")
	}
	b.Add(NewError(TypeMismatch, span(2), "bad"))
	if !b.HasErrors() {
		t.Fatalf("expected HasErrors after an error")
	}
}
