// Package unit defines the per-translation-unit Compilation Context shared
// by every pipeline stage: one symbol table, one diagnostic sink, one
// interned-type pool.
package unit

import (
	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/mono"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// Flags are the host-settable feature flags.
type Flags struct {
	TrackTimeline bool
	TrackCosts    bool
	WarnCosts     bool
	Language      string
}

// Unit is one translation unit's mutable Compilation Context: the fixed
// pipeline runs its stages over exactly one Unit, in sequence, never
// touching it from more than one goroutine at a time.
// internal/pipeline may run many Units concurrently, each with its own.
type Unit struct {
	File    source.FileID
	Builder *ast.Builder
	Files   *source.FileSet
	Strings *source.Interner
	Types   *types.Interner
	Symbols *symbols.Table
	Diags   *diag.Bag
	Mono    *mono.InstantiationMap
	Flags   Flags
}

// New wires a Unit around a builder/file-set pair that already share one
// string interner. A fresh type interner, symbol table, diagnostic bag,
// and monomorphization map are created per unit; a coordinator above the
// core merges per-unit outputs afterward.
func New(file source.FileID, builder *ast.Builder, files *source.FileSet, flags Flags) *Unit {
	strings := builder.Strings
	return &Unit{
		File:    file,
		Builder: builder,
		Files:   files,
		Strings: strings,
		Types:   types.NewInterner(),
		Symbols: symbols.NewTable(symbols.Hints{}, strings),
		Diags:   diag.NewBag(),
		Mono:    mono.NewInstantiationMap(),
		Flags:   flags,
	}
}
