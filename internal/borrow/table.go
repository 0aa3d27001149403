// Package borrow provides live-borrow tracking per lexical
// region with shared-XOR-exclusive enforcement, owner-access checks while
// borrows are outstanding, and input-lifetime validation for returned
// references.
package borrow

import (
	"ember/internal/source"
	"ember/internal/symbols"
)

// Kind differentiates shared and exclusive borrows.
type Kind uint8

const (
	// Shared is a `&` borrow; any number may coexist.
	Shared Kind = iota
	// Exclusive is a `&mut` borrow; it is a singleton over its place.
	Exclusive
)

func (k Kind) String() string {
	if k == Exclusive {
		return "mutable"
	}
	return "immutable"
}

// Place identifies a borrowable location: a binding, optionally narrowed
// to one top-level field.
type Place struct {
	Base  symbols.SymbolID
	Field source.StringID // NoStringID borrows the whole binding
}

// Overlaps reports whether two places may alias: same base and one is a
// prefix of the other.
func (p Place) Overlaps(q Place) bool {
	if p.Base != q.Base {
		return false
	}
	return p.Field == source.NoStringID || q.Field == source.NoStringID || p.Field == q.Field
}

// Record is one outstanding borrow.
type Record struct {
	ID       uint32
	Kind     Kind
	Place    Place
	Lifetime source.StringID // symbolic label, NoStringID when unlabeled
	Span     source.Span
	// Depth is the block-nesting level the borrow is valid to: it dies
	// when that block exits.
	Depth int
	// Temp marks a borrow synthesized for a call argument or receiver,
	// dead at the end of its statement.
	Temp bool
	// Holder is the reference binding keeping the borrow alive, when the
	// borrow came from `let r = &x`.
	Holder symbols.SymbolID
}

// EventKind tags borrow-timeline entries.
type EventKind uint8

const (
	EventBorrowShared EventKind = iota
	EventBorrowExclusive
	EventRelease
)

// Event is one feature-gated timeline entry.
type Event struct {
	Kind  EventKind
	Span  source.Span
	Place Place
}
