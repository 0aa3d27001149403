package resolver

import (
	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/symbols"
)

// declarationPass is resolution pass 1: visit top-level items in
// source order and create a symbol for each; impl blocks are only queued.
func (r *resolver) declarationPass(items []ast.ItemID) {
	for _, id := range items {
		r.declareItem(id)
	}
}

func (r *resolver) declareItem(id ast.ItemID) {
	item := r.b.Items.Get(id)
	if item == nil {
		return
	}
	switch item.Kind {
	case ast.ItemFn:
		fn, _ := r.b.Items.Fn(id)
		if fn == nil {
			return
		}
		sym := r.declare(fn.Name, fn.Span, symbols.SymbolFunction, symbols.SymbolDecl{Item: id}, false)
		r.result.ItemSymbol[id] = sym

	case ast.ItemStruct:
		decl, _ := r.b.Items.Struct(id)
		if decl == nil {
			return
		}
		sym := r.declare(decl.Name, decl.Span, symbols.SymbolStruct, symbols.SymbolDecl{Item: id}, false)
		r.result.ItemSymbol[id] = sym

	case ast.ItemEnum:
		decl, _ := r.b.Items.Enum(id)
		if decl == nil {
			return
		}
		sym := r.declare(decl.Name, decl.Span, symbols.SymbolEnum, symbols.SymbolDecl{Item: id}, false)
		r.result.ItemSymbol[id] = sym

	case ast.ItemTrait:
		decl, _ := r.b.Items.Trait(id)
		if decl == nil {
			return
		}
		sym := r.declare(decl.Name, decl.Span, symbols.SymbolTrait, symbols.SymbolDecl{Item: id}, false)
		r.result.ItemSymbol[id] = sym

	case ast.ItemConst:
		decl, _ := r.b.Items.Const(id)
		if decl == nil {
			return
		}
		sym := r.declare(decl.Name, decl.Span, symbols.SymbolConst, symbols.SymbolDecl{Item: id}, false)
		r.result.ItemSymbol[id] = sym

	case ast.ItemTypeAlias:
		decl, _ := r.b.Items.TypeAlias(id)
		if decl == nil {
			return
		}
		sym := r.declare(decl.Name, decl.Span, symbols.SymbolTypeAlias, symbols.SymbolDecl{Item: id}, false)
		r.result.ItemSymbol[id] = sym

	case ast.ItemOpaque:
		decl, _ := r.b.Items.Opaque(id)
		if decl == nil {
			return
		}
		sym := r.declare(decl.Name, decl.Span, symbols.SymbolOpaque, symbols.SymbolDecl{Item: id}, false)
		r.result.ItemSymbol[id] = sym

	case ast.ItemExtern:
		decl, _ := r.b.Items.Extern(id)
		if decl == nil {
			return
		}
		for _, member := range decl.Members {
			r.declare(member.Name, member.Span, symbols.SymbolExtern, symbols.SymbolDecl{Item: id}, false)
		}

	case ast.ItemImport:
		r.declareImport(id)

	case ast.ItemImpl:
		decl, _ := r.b.Items.Impl(id)
		if decl == nil {
			return
		}
		r.pendingImpls = append(r.pendingImpls, pendingImpl{item: id, decl: decl})
	}
}

func (r *resolver) declareImport(id ast.ItemID) {
	decl, _ := r.b.Items.Import(id)
	if decl == nil || len(decl.Path) == 0 {
		return
	}
	bindingName := decl.Alias
	if bindingName == 0 {
		bindingName = decl.Path[len(decl.Path)-1]
	}
	sym := r.declare(bindingName, decl.Span, symbols.SymbolModule, symbols.SymbolDecl{Item: id}, false)
	r.result.ItemSymbol[id] = sym
	if !sym.IsValid() {
		return
	}
	if r.imports == nil {
		r.bag.Add(diag.NewError(diag.ResolveUndefinedName, decl.Span, "cannot resolve import: no module resolution callback"))
		return
	}

	pathStrs := make([]string, len(decl.Path))
	for i, seg := range decl.Path {
		pathStrs[i] = r.table.Strings.MustLookup(seg)
	}
	scope, circular, err := r.imports(pathStrs, decl.Span)
	switch {
	case circular:
		r.bag.Add(diag.NewError(diag.ResolveCircularImport, decl.Span, "circular import"))
	case err != nil:
		r.bag.Add(diag.NewError(diag.ResolveUndefinedName, decl.Span, "cannot resolve import: "+err.Error()))
	default:
		r.moduleScopes[sym] = scope
	}
}
