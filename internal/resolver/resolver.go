package resolver

import (
	"fmt"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/symbols"
)

// ImportCallback resolves a module import path to the already-resolved
// scope of that module: given an import path, it returns either that
// scope or an error; the resolver never receives the imported module's
// syntax tree. internal/pipeline supplies
// the concrete implementation; the resolver itself does no I/O.
//
// Circular reports a circular-import condition the callback itself
// detected; the resolver turns it into a ResolveCircularImport diagnostic
// rather than recursing.
type ImportCallback func(path []string, span source.Span) (scope symbols.ScopeID, circular bool, err error)

type resolver struct {
	b       *ast.Builder
	table   *symbols.Table
	bag     *diag.Bag
	imports ImportCallback
	result  *Result

	scopeStack   []symbols.ScopeID
	pendingImpls []pendingImpl

	// moduleScopes records the scope a SymbolModule alias refers to, so a
	// later `A::B` path lookup can descend into an imported module.
	moduleScopes map[symbols.SymbolID]symbols.ScopeID
}

type pendingImpl struct {
	item ast.ItemID
	decl *ast.ImplDecl
}

// Run executes the two-pass resolver over one already-built
// file and returns the populated symbol table plus AST annotation side
// tables. imports may be nil when the host does not support cross-file
// modules (every import then fails to resolve and is reported,
// non-fatally).
func Run(b *ast.Builder, table *symbols.Table, bag *diag.Bag, fileID ast.FileID, imports ImportCallback) *Result {
	astFile := b.Files.Get(fileID)
	if astFile == nil {
		return newResult(table, symbols.NoScopeID)
	}

	fileScope := table.FileRoot(astFile.ID, astFile.Span)
	moduleScope := table.Scopes.New(symbols.ScopeModule, fileScope, symbols.ScopeOwner{Kind: symbols.ScopeOwnerFile, SourceFile: astFile.ID}, astFile.Span)

	r := &resolver{
		b:            b,
		table:        table,
		bag:          bag,
		imports:      imports,
		result:       newResult(table, moduleScope),
		scopeStack:   []symbols.ScopeID{moduleScope},
		moduleScopes: make(map[symbols.SymbolID]symbols.ScopeID),
	}

	r.declarationPass(astFile.Items)
	r.linkingPass()
	r.walkBodies(astFile.Items)
	return r.result
}

func (r *resolver) currentScope() symbols.ScopeID {
	if len(r.scopeStack) == 0 {
		return symbols.NoScopeID
	}
	return r.scopeStack[len(r.scopeStack)-1]
}

func (r *resolver) pushScope(kind symbols.ScopeKind, owner symbols.ScopeOwner, span source.Span) symbols.ScopeID {
	id := r.table.Scopes.New(kind, r.currentScope(), owner, span)
	r.scopeStack = append(r.scopeStack, id)
	return id
}

func (r *resolver) popScope() {
	if len(r.scopeStack) == 0 {
		return
	}
	r.scopeStack = r.scopeStack[:len(r.scopeStack)-1]
}

func (r *resolver) declare(name source.StringID, span source.Span, kind symbols.SymbolKind, decl symbols.SymbolDecl, allowShadow bool) symbols.SymbolID {
	res := r.table.Declare(r.currentScope(), symbols.Symbol{
		Name: name,
		Kind: kind,
		Span: span,
		Decl: decl,
	}, allowShadow)
	if res.Duplicate {
		r.reportDuplicate(name, span, res.Symbol)
		return symbols.NoSymbolID
	}
	return res.Symbol
}

func (r *resolver) reportDuplicate(name source.StringID, span source.Span, prev symbols.SymbolID) {
	if r.bag == nil {
		return
	}
	nameStr := r.table.Strings.MustLookup(name)
	d := diag.NewError(diag.ResolveDuplicateDef, span, fmt.Sprintf("duplicate definition of %q", nameStr))
	if sym := r.table.Symbols.Get(prev); sym != nil && sym.Span != (source.Span{}) {
		d = d.WithNote(sym.Span, "previous definition here")
	}
	r.bag.Add(d)
}

func (r *resolver) reportUndefined(name source.StringID, span source.Span) {
	if r.bag == nil {
		return
	}
	nameStr := r.table.Strings.MustLookup(name)
	r.bag.Add(diag.NewError(diag.ResolveUndefinedName, span, fmt.Sprintf("undefined name %q", nameStr)).
		WithVariable(nameStr))
}
