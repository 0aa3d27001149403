package resolver

import (
	"fmt"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/symbols"
)

// linkingPass is resolution pass 2: resolve each impl's target type
// and optional trait, then verify every trait method/associated-type
// requirement is satisfied. Every impl gets an ImplLink entry (so
// downstream stages can see it was attempted): one whose target does not
// resolve has Target/Trait/Methods/AssocTypes left at zero values, one
// whose trait does not resolve keeps its Target/Methods/AssocTypes with a
// zero Trait, and one with missing trait items is recorded in full.
func (r *resolver) linkingPass() {
	for _, pending := range r.pendingImpls {
		r.linkImpl(pending)
	}
}

func (r *resolver) linkImpl(p pendingImpl) {
	link := ImplLink{Item: p.item}

	targetSym, ok := r.resolveTypePath(p.decl.TargetType)
	if !ok {
		r.bag.Add(diag.NewError(diag.ResolveImplTargetNotType, p.decl.Span, "impl target is not a declared type"))
		r.result.Impls = append(r.result.Impls, link)
		return
	}
	link.Target = targetSym

	link.Methods = make(map[source.StringID]ast.ItemID, len(p.decl.Methods))
	for _, m := range p.decl.Methods {
		fn, okFn := r.b.Items.Fn(m)
		if !okFn {
			continue
		}
		link.Methods[fn.Name] = m
	}
	link.AssocTypes = make(map[source.StringID]ast.TypeExprID, len(p.decl.AssocTypes))
	for _, a := range p.decl.AssocTypes {
		link.AssocTypes[a.Name] = a.Target
	}

	if !p.decl.IsTraitImpl() {
		r.result.Impls = append(r.result.Impls, link)
		return
	}

	traitSym, ok := r.resolveTraitPath(p.decl.TraitPath, p.decl.Span)
	if !ok {
		r.result.Impls = append(r.result.Impls, link)
		return
	}
	link.Trait = traitSym
	r.checkTraitSatisfaction(p, traitSym, link)
	r.result.Impls = append(r.result.Impls, link)
}

// resolveTypePath resolves a single-segment named TypeExpr to its
// declaring symbol. Generic/compound type expressions (arrays, tuples,
// references, Self) are never valid impl targets.
func (r *resolver) resolveTypePath(id ast.TypeExprID) (symbols.SymbolID, bool) {
	te := r.b.Types.Get(id)
	if te == nil || te.Kind != ast.TypeExprNamed || len(te.Path) == 0 {
		return symbols.NoSymbolID, false
	}
	return r.lookupPath(te.Path, symbols.NamespaceType, r.currentScope())
}

func (r *resolver) resolveTraitPath(path []source.StringID, span source.Span) (symbols.SymbolID, bool) {
	if len(path) == 0 {
		return symbols.NoSymbolID, false
	}
	sym, ok := r.lookupPath(path, symbols.NamespaceTrait, r.currentScope())
	if !ok {
		r.reportUndefined(path[len(path)-1], span)
		return symbols.NoSymbolID, false
	}
	return sym, true
}

// lookupPath resolves a (possibly multi-segment) path in namespace ns
// starting from scope. A single segment is a plain scope-chain lookup; a
// multi-segment path resolves its first segment as a module alias and
// descends into that module's scope for the remaining segments.
func (r *resolver) lookupPath(path []source.StringID, ns symbols.Namespace, scope symbols.ScopeID) (symbols.SymbolID, bool) {
	if len(path) == 1 {
		return r.table.Lookup(scope, ns, path[0])
	}
	modSym, ok := r.table.Lookup(scope, symbols.NamespaceModule, path[0])
	if !ok {
		return symbols.NoSymbolID, false
	}
	modScope, ok := r.moduleScopes[modSym]
	if !ok {
		return symbols.NoSymbolID, false
	}
	return r.lookupPath(path[1:], ns, modScope)
}

func (r *resolver) checkTraitSatisfaction(p pendingImpl, traitSym symbols.SymbolID, link ImplLink) {
	sym := r.table.Symbols.Get(traitSym)
	if sym == nil {
		return
	}
	decl, ok := r.b.Items.Trait(sym.Decl.Item)
	if !ok {
		return
	}
	for _, itemID := range decl.Items {
		item := r.b.Items.TraitItem(itemID)
		if item == nil {
			continue
		}
		switch item.Kind {
		case ast.TraitItemFn:
			req := r.b.Items.TraitFnReq(item)
			if req == nil || req.Body.IsValid() {
				continue // has a default body; override is optional
			}
			if _, has := link.Methods[req.Name]; !has {
				name := r.table.Strings.MustLookup(req.Name)
				r.bag.Add(diag.NewError(diag.ResolveTraitMethodMissing, p.decl.Span,
					fmt.Sprintf("missing implementation of required method %q", name)))
			}
		case ast.TraitItemAssocType:
			req := r.b.Items.TraitAssocTypeReq(item)
			if req == nil {
				continue
			}
			if _, has := link.AssocTypes[req.Name]; !has {
				name := r.table.Strings.MustLookup(req.Name)
				r.bag.Add(diag.NewError(diag.TraitAssocTypeMissing, p.decl.Span,
					fmt.Sprintf("missing associated type %q required by trait", name)))
			}
		}
	}

	declaredAssoc := make(map[source.StringID]bool, len(decl.Items))
	for _, itemID := range decl.Items {
		item := r.b.Items.TraitItem(itemID)
		if item != nil && item.Kind == ast.TraitItemAssocType {
			if req := r.b.Items.TraitAssocTypeReq(item); req != nil {
				declaredAssoc[req.Name] = true
			}
		}
	}
	for _, a := range p.decl.AssocTypes {
		if !declaredAssoc[a.Name] {
			name := r.table.Strings.MustLookup(a.Name)
			r.bag.Add(diag.NewError(diag.ResolveAssocTypeUndeclared, a.Span,
				fmt.Sprintf("associated type %q is not declared by the trait", name)))
		}
	}
}
