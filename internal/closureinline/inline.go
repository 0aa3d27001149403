package closureinline

import (
	"ember/internal/ast"
	"ember/internal/source"
	"ember/internal/symbols"
)

// maybeInlineCall expands a call that passes parameter closures: the
// callee body is cloned with fresh binding ids, non-closure arguments are
// bound by prelude lets, and every invocation of a closure parameter is
// beta-reduced with the argument closure's body.
func (p *pass) maybeInlineCall(id ast.ExprID, e *ast.Expr) {
	callee := p.u.Builder.Exprs.Get(e.Callee)
	if callee == nil || callee.Kind != ast.ExprIdent {
		return
	}
	sym, ok := p.res.SymbolOf(e.Callee)
	if !ok {
		return
	}
	rec := p.u.Symbols.Symbols.Get(sym)
	if rec == nil || rec.Kind != symbols.SymbolFunction || !rec.Decl.Item.IsValid() {
		return
	}
	fn, okFn := p.u.Builder.Items.Fn(rec.Decl.Item)
	if !okFn || !fn.Body.IsValid() || len(fn.Params) != len(e.Args) {
		return
	}
	fnScope := p.res.ScopeOfItem[rec.Decl.Item]

	cl := &cloner{
		p:          p,
		symMap:     make(map[symbols.SymbolID]symbols.SymbolID),
		closureArg: make(map[symbols.SymbolID]ast.ExprID),
		exprSub:    make(map[symbols.SymbolID]ast.ExprID),
	}
	var removed []int
	var prelude []ast.StmtID
	for i, pid := range fn.Params {
		param := p.u.Builder.Items.FnParam(pid)
		if param == nil {
			continue
		}
		psym := p.findScopeSymbol(fnScope, symbols.SymbolParam, param.Name)
		argE := p.u.Builder.Exprs.Get(e.Args[i])
		if argE != nil && argE.Kind == ast.ExprClosureParam {
			// compile-time parameter: no runtime slot, substituted below
			removed = append(removed, i)
			if psym.IsValid() {
				cl.closureArg[psym] = e.Args[i]
			}
			continue
		}
		if !psym.IsValid() {
			continue
		}
		fresh := p.freshBinding(psym)
		cl.symMap[psym] = fresh
		pat := p.u.Builder.NewPattern(ast.Pattern{Kind: ast.PatternBinding, Name: param.Name, Span: param.Span})
		p.res.PatternSymbol[pat] = fresh
		p.tck.PatternType[pat] = p.tck.TypeOf(e.Args[i])
		prelude = append(prelude, p.u.Builder.NewStmt(ast.Stmt{
			Kind:    ast.StmtLet,
			Span:    e.Span,
			Pattern: pat,
			Init:    e.Args[i],
		}))
	}
	if len(removed) == 0 {
		return
	}

	body := cl.cloneStmt(fn.Body)
	stmts := append(prelude, body)
	block := p.u.Builder.NewStmt(ast.Stmt{Kind: ast.StmtBlock, Span: e.Span, Stmts: stmts})
	p.out.Inlines = append(p.out.Inlines, Inlined{
		Call:          id,
		Callee:        sym,
		Block:         block,
		RemovedParams: removed,
	})
}

func (p *pass) findScopeSymbol(scope symbols.ScopeID, kind symbols.SymbolKind, name source.StringID) symbols.SymbolID {
	sc := p.u.Symbols.Scopes.Get(scope)
	if sc == nil {
		return symbols.NoSymbolID
	}
	for _, id := range sc.Symbols {
		if sym := p.u.Symbols.Symbols.Get(id); sym != nil && sym.Kind == kind && sym.Name == name {
			return id
		}
	}
	return symbols.NoSymbolID
}

// freshBinding allocates a new binding id carrying the original's name and
// type, so the expansion collides with nothing at the call site.
func (p *pass) freshBinding(old symbols.SymbolID) symbols.SymbolID {
	rec := p.u.Symbols.Symbols.Get(old)
	p.nextFresh++
	fresh := symbols.Symbol{Kind: symbols.SymbolLet}
	if rec != nil {
		fresh.Name = rec.Name
		fresh.Type = rec.Type
		fresh.Span = rec.Span
		fresh.Scope = rec.Scope
	}
	return p.u.Symbols.Symbols.New(fresh)
}

// cloner rewrites one callee body: symMap renames callee bindings to fresh
// ids, closureArg maps a closure parameter to the argument closure
// literal, and exprSub carries beta-reduction substitutions while a
// closure body is being expanded.
type cloner struct {
	p          *pass
	symMap     map[symbols.SymbolID]symbols.SymbolID
	closureArg map[symbols.SymbolID]ast.ExprID
	exprSub    map[symbols.SymbolID]ast.ExprID
}

func (cl *cloner) cloneStmt(id ast.StmtID) ast.StmtID {
	if !id.IsValid() {
		return ast.NoStmtID
	}
	old := cl.p.u.Builder.Stmts.Get(id)
	if old == nil {
		return ast.NoStmtID
	}
	n := *old
	n.Pattern = cl.clonePattern(old.Pattern)
	n.Init = cl.cloneExpr(old.Init)
	n.Expr = cl.cloneExpr(old.Expr)
	n.Cond = cl.cloneExpr(old.Cond)
	n.ThenBlock = cl.cloneStmt(old.ThenBlock)
	n.ElseBlock = cl.cloneStmt(old.ElseBlock)
	n.ForVar = cl.clonePattern(old.ForVar)
	n.ForIter = cl.cloneExpr(old.ForIter)
	n.Body = cl.cloneStmt(old.Body)
	n.Scrutinee = cl.cloneExpr(old.Scrutinee)
	n.Tail = cl.cloneExpr(old.Tail)
	if len(old.Arms) > 0 {
		n.Arms = make([]ast.MatchArmID, len(old.Arms))
		for i, armID := range old.Arms {
			arm := cl.p.u.Builder.MatchArms.Get(armID)
			if arm == nil {
				continue
			}
			n.Arms[i] = cl.p.u.Builder.NewMatchArm(ast.MatchArm{
				Pattern: cl.clonePattern(arm.Pattern),
				Guard:   cl.cloneExpr(arm.Guard),
				Body:    cl.cloneStmt(arm.Body),
				Span:    arm.Span,
			})
		}
	}
	if len(old.Stmts) > 0 {
		n.Stmts = make([]ast.StmtID, len(old.Stmts))
		for i, sub := range old.Stmts {
			n.Stmts[i] = cl.cloneStmt(sub)
		}
	}
	return cl.p.u.Builder.NewStmt(n)
}

func (cl *cloner) clonePattern(id ast.PatternID) ast.PatternID {
	if !id.IsValid() {
		return ast.NoPatternID
	}
	old := cl.p.u.Builder.Patterns.Get(id)
	if old == nil {
		return ast.NoPatternID
	}
	n := *old
	if len(old.Elements) > 0 {
		n.Elements = make([]ast.PatternID, len(old.Elements))
		for i, el := range old.Elements {
			n.Elements[i] = cl.clonePattern(el)
		}
	}
	if len(old.Fields) > 0 {
		n.Fields = make([]ast.FieldPattern, len(old.Fields))
		for i, f := range old.Fields {
			n.Fields[i] = ast.FieldPattern{Name: f.Name, Pattern: cl.clonePattern(f.Pattern)}
		}
	}
	n.Literal = cl.cloneExpr(old.Literal)
	newID := cl.p.u.Builder.NewPattern(n)

	if oldSym, ok := cl.p.res.PatternSymbol[id]; ok && oldSym.IsValid() {
		fresh := cl.p.freshBinding(oldSym)
		cl.symMap[oldSym] = fresh
		cl.p.res.PatternSymbol[newID] = fresh
		if t, okT := cl.p.tck.PatternType[id]; okT {
			cl.p.tck.PatternType[newID] = t
		}
	}
	return newID
}

func (cl *cloner) cloneExpr(id ast.ExprID) ast.ExprID {
	if !id.IsValid() {
		return ast.NoExprID
	}
	old := cl.p.u.Builder.Exprs.Get(id)
	if old == nil {
		return ast.NoExprID
	}

	if old.Kind == ast.ExprIdent {
		if sym, ok := cl.p.res.SymbolOf(id); ok {
			if repl, okSub := cl.exprSub[sym]; okSub {
				// lexical substitution of a closure parameter use
				return cl.cloneExpr(repl)
			}
		}
	}
	if old.Kind == ast.ExprCall {
		if inlined, ok := cl.tryBetaReduce(old); ok {
			return inlined
		}
	}

	n := *old
	n.Lhs = cl.cloneExpr(old.Lhs)
	n.Rhs = cl.cloneExpr(old.Rhs)
	n.Operand = cl.cloneExpr(old.Operand)
	n.Callee = cl.cloneExpr(old.Callee)
	n.WithPattern = cl.clonePattern(old.WithPattern)
	n.WithInit = cl.cloneExpr(old.WithInit)
	n.WithBody = cl.cloneStmt(old.WithBody)
	n.ClosureBody = cl.cloneStmt(old.ClosureBody)
	if len(old.Args) > 0 {
		n.Args = make([]ast.ExprID, len(old.Args))
		for i, a := range old.Args {
			n.Args[i] = cl.cloneExpr(a)
		}
	}
	if len(old.Elements) > 0 {
		n.Elements = make([]ast.ExprID, len(old.Elements))
		for i, el := range old.Elements {
			n.Elements[i] = cl.cloneExpr(el)
		}
	}
	if len(old.Fields) > 0 {
		n.Fields = make([]ast.FieldInit, len(old.Fields))
		for i, f := range old.Fields {
			n.Fields[i] = ast.FieldInit{Name: f.Name, Value: cl.cloneExpr(f.Value)}
		}
	}
	newID := cl.p.u.Builder.NewExpr(n)

	if old.Kind == ast.ExprIdent {
		if sym, ok := cl.p.res.SymbolOf(id); ok {
			if fresh, okM := cl.symMap[sym]; okM {
				cl.p.res.ExprSymbol[newID] = fresh
			} else {
				cl.p.res.ExprSymbol[newID] = sym
			}
		}
	}
	if t, ok := cl.p.tck.ExprType[id]; ok {
		cl.p.tck.ExprType[newID] = t
	}
	if cl.p.tck.IsTainted(id) || cl.p.res.IsTainted(id) {
		cl.p.tck.Tainted[newID] = true
	}
	if msym, ok := cl.p.tck.MethodSymbol[old.Callee]; ok && n.Callee.IsValid() {
		cl.p.tck.MethodSymbol[n.Callee] = msym
	}
	return newID
}

// tryBetaReduce expands `p(args...)` where p is a closure parameter whose
// argument body is a single expression (a tail-expression block or one
// return). Complex bodies keep the call form; codegen falls back to a
// specialized call for those.
func (cl *cloner) tryBetaReduce(call *ast.Expr) (ast.ExprID, bool) {
	calleeE := cl.p.u.Builder.Exprs.Get(call.Callee)
	if calleeE == nil || calleeE.Kind != ast.ExprIdent {
		return ast.NoExprID, false
	}
	sym, ok := cl.p.res.SymbolOf(call.Callee)
	if !ok {
		return ast.NoExprID, false
	}
	closureID, isClosureParam := cl.closureArg[sym]
	if !isClosureParam {
		return ast.NoExprID, false
	}
	closure := cl.p.u.Builder.Exprs.Get(closureID)
	if closure == nil {
		return ast.NoExprID, false
	}
	bodyExpr, simple := cl.singleExprBody(closure.ClosureBody)
	if !simple {
		return ast.NoExprID, false
	}

	// bind the closure's parameters to the call's cloned arguments
	scope := cl.p.res.ScopeOfExpr[closureID]
	saved := make(map[symbols.SymbolID]ast.ExprID, len(closure.ClosureParams))
	for i, pid := range closure.ClosureParams {
		param := cl.p.u.Builder.Items.FnParam(pid)
		if param == nil || i >= len(call.Args) {
			continue
		}
		psym := cl.p.findScopeSymbol(scope, symbols.SymbolParam, param.Name)
		if !psym.IsValid() {
			continue
		}
		if prev, had := cl.exprSub[psym]; had {
			saved[psym] = prev
		} else {
			saved[psym] = ast.NoExprID
		}
		cl.exprSub[psym] = cl.cloneExpr(call.Args[i])
	}
	result := cl.cloneExpr(bodyExpr)
	for psym, prev := range saved {
		if prev.IsValid() {
			cl.exprSub[psym] = prev
		} else {
			delete(cl.exprSub, psym)
		}
	}
	return result, true
}

// singleExprBody recognizes a closure body that is one expression: a block
// whose only content is a tail expression or a single return statement.
func (cl *cloner) singleExprBody(body ast.StmtID) (ast.ExprID, bool) {
	block := cl.p.u.Builder.Stmts.Get(body)
	if block == nil || block.Kind != ast.StmtBlock {
		return ast.NoExprID, false
	}
	if len(block.Stmts) == 0 && block.Tail.IsValid() {
		return block.Tail, true
	}
	if len(block.Stmts) == 1 && !block.Tail.IsValid() {
		if ret := cl.p.u.Builder.Stmts.Get(block.Stmts[0]); ret != nil && ret.Kind == ast.StmtReturn && ret.Expr.IsValid() {
			return ret.Expr, true
		}
	}
	return ast.NoExprID, false
}
