package resolver

import (
	"ember/internal/ast"
	"ember/internal/symbols"
)

// selfName is the interned spelling of the implicit `Self` type available
// inside an impl or trait body.
const selfName = "Self"

// walkBodies is the body-resolution half of the resolver: having declared
// every top-level name and linked every impl in passes 1-2, walk each
// item's executable contents resolving identifiers against the scope
// chain built along the way.
func (r *resolver) walkBodies(items []ast.ItemID) {
	for _, id := range items {
		r.walkItemBody(id)
	}
}

func (r *resolver) walkItemBody(id ast.ItemID) {
	item := r.b.Items.Get(id)
	if item == nil {
		return
	}
	switch item.Kind {
	case ast.ItemFn:
		r.walkFnItem(id)
	case ast.ItemConst:
		decl, ok := r.b.Items.Const(id)
		if ok && decl.Init.IsValid() {
			r.walkExpr(decl.Init)
		}
	case ast.ItemImpl:
		r.walkImplBody(id)
	case ast.ItemTrait:
		r.walkTraitBody(id)
	}
}

func (r *resolver) walkImplBody(id ast.ItemID) {
	decl, ok := r.b.Items.Impl(id)
	if !ok {
		return
	}
	implScope := r.pushScope(symbols.ScopeImpl, symbols.ScopeOwner{Kind: symbols.ScopeOwnerItem, Item: id}, decl.Span)
	r.result.ScopeOfItem[id] = implScope

	r.declare(r.table.Strings.Intern(selfName), decl.Span, symbols.SymbolTypeAlias, symbols.SymbolDecl{Item: id}, false)
	for _, tp := range decl.TypeParams {
		r.declare(tp.Name, tp.Span, symbols.SymbolTypeAlias, symbols.SymbolDecl{Item: id}, false)
	}
	for _, m := range decl.Methods {
		r.walkFnItem(m)
	}
	r.popScope()
}

func (r *resolver) walkTraitBody(id ast.ItemID) {
	decl, ok := r.b.Items.Trait(id)
	if !ok {
		return
	}
	traitScope := r.pushScope(symbols.ScopeTrait, symbols.ScopeOwner{Kind: symbols.ScopeOwnerItem, Item: id}, decl.Span)
	r.result.ScopeOfItem[id] = traitScope
	r.declare(r.table.Strings.Intern(selfName), decl.Span, symbols.SymbolTypeAlias, symbols.SymbolDecl{Item: id}, false)
	for _, tp := range decl.TypeParams {
		r.declare(tp.Name, tp.Span, symbols.SymbolTypeAlias, symbols.SymbolDecl{Item: id}, false)
	}
	for _, itemID := range decl.Items {
		ti := r.b.Items.TraitItem(itemID)
		if ti == nil || ti.Kind != ast.TraitItemFn {
			continue
		}
		req := r.b.Items.TraitFnReq(ti)
		if req == nil || !req.Body.IsValid() {
			continue
		}
		r.walkFnLike(req.TypeParams, req.Params, req.Body)
	}
	r.popScope()
}

func (r *resolver) walkFnItem(id ast.ItemID) {
	fn, ok := r.b.Items.Fn(id)
	if !ok {
		return
	}
	scope := r.walkFnLike(fn.TypeParams, fn.Params, fn.Body)
	r.result.ScopeOfItem[id] = scope
}

// walkFnLike resolves one function-shaped body (free function, method, or
// trait default) shared by walkFnItem/walkTraitBody: push a function
// scope, declare type/const parameters and value parameters, then walk the
// body block. Returns the pushed scope, already popped by the time it
// returns, solely so the caller can still record it.
func (r *resolver) walkFnLike(typeParams []ast.TypeParam, params []ast.FnParamID, body ast.StmtID) symbols.ScopeID {
	var span ast.Stmt
	if s := r.b.Stmts.Get(body); s != nil {
		span = *s
	}
	scope := r.pushScope(symbols.ScopeFunction, symbols.ScopeOwner{Kind: symbols.ScopeOwnerStmt, Stmt: body}, span.Span)

	for _, tp := range typeParams {
		r.declare(tp.Name, tp.Span, symbols.SymbolTypeAlias, symbols.SymbolDecl{}, false)
	}
	for _, pid := range params {
		p := r.b.Items.FnParam(pid)
		if p == nil {
			continue
		}
		if p.Default.IsValid() {
			r.walkExpr(p.Default)
		}
		if p.Name != 0 {
			r.declare(p.Name, p.Span, symbols.SymbolParam, symbols.SymbolDecl{}, false)
		}
	}
	if body.IsValid() {
		r.walkStmt(body)
	}
	r.popScope()
	return scope
}

func (r *resolver) walkStmt(id ast.StmtID) {
	stmt := r.b.Stmts.Get(id)
	if stmt == nil {
		return
	}
	r.result.ScopeOfStmt[id] = r.currentScope()

	switch stmt.Kind {
	case ast.StmtLet, ast.StmtConst:
		if stmt.Init.IsValid() {
			r.walkExpr(stmt.Init)
		}
		r.declarePattern(stmt.Pattern)

	case ast.StmtExpr, ast.StmtDefer:
		if stmt.Expr.IsValid() {
			r.walkExpr(stmt.Expr)
		}

	case ast.StmtReturn, ast.StmtBreak, ast.StmtContinue:
		if stmt.Expr.IsValid() {
			r.walkExpr(stmt.Expr)
		}

	case ast.StmtIf:
		if stmt.Cond.IsValid() {
			r.walkExpr(stmt.Cond)
		}
		if stmt.ThenBlock.IsValid() {
			r.walkStmt(stmt.ThenBlock)
		}
		if stmt.ElseBlock.IsValid() {
			r.walkStmt(stmt.ElseBlock)
		}

	case ast.StmtMatch:
		if stmt.Scrutinee.IsValid() {
			r.walkExpr(stmt.Scrutinee)
		}
		for _, armID := range stmt.Arms {
			r.walkMatchArm(armID)
		}

	case ast.StmtWhile:
		if stmt.Cond.IsValid() {
			r.walkExpr(stmt.Cond)
		}
		if stmt.Body.IsValid() {
			r.walkStmt(stmt.Body)
		}

	case ast.StmtForIn:
		if stmt.ForIter.IsValid() {
			r.walkExpr(stmt.ForIter)
		}
		r.pushScope(symbols.ScopeBlock, symbols.ScopeOwner{Kind: symbols.ScopeOwnerStmt, Stmt: id}, stmt.Span)
		r.declarePattern(stmt.ForVar)
		if stmt.Body.IsValid() {
			r.walkStmt(stmt.Body)
		}
		r.popScope()

	case ast.StmtLoop:
		if stmt.Body.IsValid() {
			r.walkStmt(stmt.Body)
		}

	case ast.StmtBlock:
		blockScope := r.pushScope(symbols.ScopeBlock, symbols.ScopeOwner{Kind: symbols.ScopeOwnerStmt, Stmt: id}, stmt.Span)
		r.result.ScopeOfStmt[id] = blockScope
		for _, sub := range stmt.Stmts {
			r.walkStmt(sub)
		}
		if stmt.Tail.IsValid() {
			r.walkExpr(stmt.Tail)
		}
		r.popScope()
	}
}

func (r *resolver) walkMatchArm(id ast.MatchArmID) {
	arm := r.b.MatchArms.Get(id)
	if arm == nil {
		return
	}
	r.pushScope(symbols.ScopeBlock, symbols.ScopeOwner{Kind: symbols.ScopeOwnerStmt, Stmt: arm.Body}, arm.Span)
	r.declarePattern(arm.Pattern)
	if arm.Guard.IsValid() {
		r.walkExpr(arm.Guard)
	}
	if arm.Body.IsValid() {
		r.walkStmt(arm.Body)
	}
	r.popScope()
}

// declarePattern introduces every binding a pattern carries, recording
// each one in Result.PatternSymbol. PatternLiteral/PatternWildcard carry
// no new names; PatternEnumVariant/PatternStruct's type path is resolved
// against already-declared nominal types rather than freshly declared.
func (r *resolver) declarePattern(id ast.PatternID) {
	if !id.IsValid() {
		return
	}
	pat := r.b.Patterns.Get(id)
	if pat == nil {
		return
	}
	switch pat.Kind {
	case ast.PatternBinding:
		sym := r.declare(pat.Name, pat.Span, symbols.SymbolLet, symbols.SymbolDecl{}, true)
		r.result.PatternSymbol[id] = sym

	case ast.PatternStruct:
		if len(pat.TypeName) > 0 {
			if _, ok := r.lookupPath(pat.TypeName, symbols.NamespaceType, r.currentScope()); !ok {
				r.reportUndefined(pat.TypeName[len(pat.TypeName)-1], pat.Span)
			}
		}
		for _, f := range pat.Fields {
			if f.Pattern.IsValid() {
				r.declarePattern(f.Pattern)
			} else {
				r.declare(f.Name, pat.Span, symbols.SymbolLet, symbols.SymbolDecl{}, true)
			}
		}

	case ast.PatternTuple:
		for _, el := range pat.Elements {
			r.declarePattern(el)
		}

	case ast.PatternEnumVariant:
		if len(pat.TypeName) > 0 {
			if _, ok := r.lookupPath(pat.TypeName, symbols.NamespaceType, r.currentScope()); !ok {
				r.reportUndefined(pat.TypeName[len(pat.TypeName)-1], pat.Span)
			}
		}
		for _, el := range pat.Elements {
			r.declarePattern(el)
		}

	case ast.PatternLiteral:
		if pat.Literal.IsValid() {
			r.walkExpr(pat.Literal)
		}
	}
}

func (r *resolver) walkExpr(id ast.ExprID) {
	if !id.IsValid() {
		return
	}
	e := r.b.Exprs.Get(id)
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprIdent:
		r.resolveIdent(id, e)

	case ast.ExprLitInt, ast.ExprLitFloat, ast.ExprLitBool, ast.ExprLitString, ast.ExprLitChar, ast.ExprUnit:
		// no sub-expressions

	case ast.ExprBinary:
		r.walkExpr(e.Lhs)
		r.walkExpr(e.Rhs)

	case ast.ExprUnary:
		r.walkExpr(e.Operand)

	case ast.ExprCall:
		r.walkExpr(e.Callee)
		for _, a := range e.Args {
			r.walkExpr(a)
		}

	case ast.ExprMember:
		r.walkExpr(e.Operand)

	case ast.ExprIndex:
		r.walkExpr(e.Lhs)
		r.walkExpr(e.Rhs)

	case ast.ExprCast:
		r.walkExpr(e.Operand)

	case ast.ExprGroup:
		r.walkExpr(e.Operand)

	case ast.ExprTuple, ast.ExprArrayLit:
		for _, el := range e.Elements {
			r.walkExpr(el)
		}

	case ast.ExprStructLit:
		if len(e.Path) > 0 {
			if _, ok := r.lookupPath(e.Path, symbols.NamespaceType, r.currentScope()); !ok {
				r.reportUndefined(e.Path[len(e.Path)-1], e.Span)
			}
		}
		for _, f := range e.Fields {
			r.walkExpr(f.Value)
		}

	case ast.ExprEnumConstruct:
		if len(e.Path) > 0 {
			if _, ok := r.lookupPath(e.Path, symbols.NamespaceType, r.currentScope()); !ok {
				r.reportUndefined(e.Path[len(e.Path)-1], e.Span)
			}
		}
		for _, a := range e.Args {
			r.walkExpr(a)
		}

	case ast.ExprReference, ast.ExprDeref, ast.ExprTry:
		r.walkExpr(e.Operand)

	case ast.ExprAssign:
		r.walkExpr(e.Lhs)
		r.walkExpr(e.Rhs)

	case ast.ExprWith:
		r.walkExpr(e.WithInit)
		scope := r.pushScope(symbols.ScopeBlock, symbols.ScopeOwner{Kind: symbols.ScopeOwnerExpr, Expr: id}, e.Span)
		r.result.ScopeOfExpr[id] = scope
		r.declarePattern(e.WithPattern)
		if e.WithBody.IsValid() {
			r.walkStmt(e.WithBody)
		}
		r.popScope()

	case ast.ExprClosureParam, ast.ExprClosureRuntime:
		scope := r.pushScope(symbols.ScopeFunction, symbols.ScopeOwner{Kind: symbols.ScopeOwnerExpr, Expr: id}, e.Span)
		r.result.ScopeOfExpr[id] = scope
		for _, pid := range e.ClosureParams {
			p := r.b.Items.FnParam(pid)
			if p == nil {
				continue
			}
			if p.Default.IsValid() {
				r.walkExpr(p.Default)
			}
			if p.Name != 0 {
				r.declare(p.Name, p.Span, symbols.SymbolParam, symbols.SymbolDecl{}, false)
			}
		}
		if e.ClosureBody.IsValid() {
			r.walkStmt(e.ClosureBody)
		}
		r.popScope()
	}
}

// resolveIdent resolves a (possibly path-qualified) identifier expression
// against whichever namespace its first-matching declaration occupies:
// values and functions are both callable from bare-name position, and a
// unit struct/const-like enum variant can appear where a value is
// expected, so a plain name tries Value, then Function, then Type before
// giving up.
func (r *resolver) resolveIdent(id ast.ExprID, e *ast.Expr) {
	if len(e.Path) == 0 {
		r.result.markTainted(id)
		return
	}
	scope := r.currentScope()
	if len(e.Path) > 1 {
		modSym, ok := r.table.Lookup(scope, symbols.NamespaceModule, e.Path[0])
		if !ok {
			r.reportUndefined(e.Path[0], e.Span)
			r.result.markTainted(id)
			return
		}
		modScope, ok := r.moduleScopes[modSym]
		if !ok {
			r.result.markTainted(id)
			return
		}
		scope = modScope
	}
	last := e.Path[len(e.Path)-1]
	for _, ns := range [...]symbols.Namespace{symbols.NamespaceValue, symbols.NamespaceFunction, symbols.NamespaceType} {
		if sym, ok := r.table.Lookup(scope, ns, last); ok {
			r.result.ExprSymbol[id] = sym
			return
		}
	}
	r.reportUndefined(last, e.Span)
	r.result.markTainted(id)
}
