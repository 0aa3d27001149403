// Package resolver implements the two-pass name resolution
// that builds per-scope symbol tables, resolves identifiers to bindings,
// and links impl blocks to their target types and traits.
package resolver

import (
	"ember/internal/ast"
	"ember/internal/source"
	"ember/internal/symbols"
)

// ImplLink records the name-level outcome of linking one impl block to its
// target and (optional) trait — the declaration-level half of the
// linking pass. Type-level elaboration (turning the target/trait
// into types.TypeID and registering a symbols.ImplRecord for trait-method
// dispatch) happens in internal/typeck once nominal types exist.
type ImplLink struct {
	Item       ast.ItemID
	Target     symbols.SymbolID // struct/enum/opaque symbol the impl is for
	Trait      symbols.SymbolID // NoSymbolID for an inherent impl
	Methods    map[source.StringID]ast.ItemID
	AssocTypes map[source.StringID]ast.TypeExprID
}

// Result is the resolver's output: the populated symbol table plus side
// tables annotating the AST with resolved symbols or taint markers.
type Result struct {
	Table     *symbols.Table
	FileScope symbols.ScopeID

	// ExprSymbol maps every ExprIdent (and the callee position of method
	// calls resolved to a free function) to its resolved value/function
	// symbol. Absence means tainted.
	ExprSymbol map[ast.ExprID]symbols.SymbolID

	// PatternSymbol maps every binding-introducing pattern (let, match
	// arm, for-loop variable, `with` binding) to the symbol it declared.
	// Function and closure parameters are declared by name, not through a
	// pattern, and have no entry here.
	PatternSymbol map[ast.PatternID]symbols.SymbolID

	// ItemSymbol maps every top-level (and impl/trait-member) item to the
	// symbol its declaration pass created.
	ItemSymbol map[ast.ItemID]symbols.SymbolID

	// ScopeOfStmt/ScopeOfExpr record which scope a block statement or a
	// closure body executes in, so later stages (ownership, borrow) can
	// walk the same lexical structure without re-deriving it.
	ScopeOfStmt map[ast.StmtID]symbols.ScopeID
	ScopeOfExpr map[ast.ExprID]symbols.ScopeID
	ScopeOfItem map[ast.ItemID]symbols.ScopeID

	// Impls lists every impl block in source order with its name-level
	// linking outcome (an entry whose Target is NoSymbolID means target
	// linking failed and a diagnostic was already emitted).
	Impls []ImplLink

	// Tainted marks expression nodes whose symbol could not be resolved,
	// so downstream stages suppress cascades.
	Tainted map[ast.ExprID]bool
}

func newResult(table *symbols.Table, fileScope symbols.ScopeID) *Result {
	return &Result{
		Table:         table,
		FileScope:     fileScope,
		ExprSymbol:    make(map[ast.ExprID]symbols.SymbolID),
		PatternSymbol: make(map[ast.PatternID]symbols.SymbolID),
		ItemSymbol:    make(map[ast.ItemID]symbols.SymbolID),
		ScopeOfStmt:   make(map[ast.StmtID]symbols.ScopeID),
		ScopeOfExpr:   make(map[ast.ExprID]symbols.ScopeID),
		ScopeOfItem:   make(map[ast.ItemID]symbols.ScopeID),
		Tainted:       make(map[ast.ExprID]bool),
	}
}

// IsTainted reports whether expr's identifier failed to resolve.
func (r *Result) IsTainted(expr ast.ExprID) bool {
	return r != nil && r.Tainted[expr]
}

// SymbolOf returns the symbol resolved for an ExprIdent, or (0, false).
func (r *Result) SymbolOf(expr ast.ExprID) (symbols.SymbolID, bool) {
	if r == nil {
		return symbols.NoSymbolID, false
	}
	id, ok := r.ExprSymbol[expr]
	return id, ok
}

func (r *Result) markTainted(expr ast.ExprID) {
	if !expr.IsValid() {
		return
	}
	r.Tainted[expr] = true
}
