// Package desugar performs the three mandatory early
// rewrites that remove `with`, keep `try` intact for the type checker, and
// assign LIFO ordering indexes to `defer` statements. The rewrite is
// AST→AST over the same arenas (nodes are patched through their arena
// pointers) and preserves the source spans of the original constructs, so
// post-desugar diagnostics still point at user-written syntax.
package desugar

import (
	"ember/internal/ast"
	"ember/internal/resolver"
	"ember/internal/source"
)

// closeMethodName is the method the initializer of a `with` binding must
// provide through a Closeable-shaped trait (a single close(&mut self)).
const closeMethodName = "close"

// CloseObligation records one `with` binding whose initializer type must
// implement close(&mut self). The check needs types, so the type checker
// validates each obligation and attaches any error to Span — the original
// `with` form, not the expanded code.
type CloseObligation struct {
	Binding ast.PatternID
	Init    ast.ExprID
	Span    source.Span
}

// Result is the desugar pass output.
type Result struct {
	// DeferIndex tags every defer statement with its monotonically
	// increasing index within its lexical scope; code generation executes
	// them in reverse on every exit path.
	DeferIndex map[ast.StmtID]int

	// CloseObligations lists every rewritten `with` for the type checker.
	CloseObligations []CloseObligation

	// Rewrites counts how many `with` forms were expanded. Zero on an
	// already-desugared tree (the pass is idempotent).
	Rewrites int
}

type rewriter struct {
	b   *ast.Builder
	res *resolver.Result
	out *Result
}

// Run desugars one file in place and returns the pass output. res supplies
// the scope/symbol annotations the rewrite extends for synthesized nodes;
// it may be nil in span-only tests.
func Run(b *ast.Builder, res *resolver.Result, fileID ast.FileID) *Result {
	out := &Result{DeferIndex: make(map[ast.StmtID]int)}
	file := b.Files.Get(fileID)
	if file == nil {
		return out
	}
	r := &rewriter{b: b, res: res, out: out}
	for _, itemID := range file.Items {
		r.rewriteItem(itemID)
	}
	return out
}

func (r *rewriter) rewriteItem(id ast.ItemID) {
	item := r.b.Items.Get(id)
	if item == nil {
		return
	}
	switch item.Kind {
	case ast.ItemFn:
		if fn, ok := r.b.Items.Fn(id); ok && fn.Body.IsValid() {
			r.rewriteStmt(fn.Body)
		}
	case ast.ItemImpl:
		decl, ok := r.b.Items.Impl(id)
		if !ok {
			return
		}
		for _, m := range decl.Methods {
			r.rewriteItem(m)
		}
	case ast.ItemTrait:
		decl, ok := r.b.Items.Trait(id)
		if !ok {
			return
		}
		for _, tiID := range decl.Items {
			ti := r.b.Items.TraitItem(tiID)
			if ti == nil || ti.Kind != ast.TraitItemFn {
				continue
			}
			if req := r.b.Items.TraitFnReq(ti); req != nil && req.Body.IsValid() {
				r.rewriteStmt(req.Body)
			}
		}
	}
}

func (r *rewriter) rewriteStmt(id ast.StmtID) {
	stmt := r.b.Stmts.Get(id)
	if stmt == nil {
		return
	}
	switch stmt.Kind {
	case ast.StmtExpr:
		if e := r.b.Exprs.Get(stmt.Expr); e != nil && e.Kind == ast.ExprWith {
			r.expandWith(id, stmt.Expr, e)
			return
		}
		r.rewriteExpr(stmt.Expr)

	case ast.StmtLet, ast.StmtConst:
		r.rewriteExpr(stmt.Init)

	case ast.StmtReturn, ast.StmtBreak, ast.StmtContinue, ast.StmtDefer:
		r.rewriteExpr(stmt.Expr)

	case ast.StmtIf:
		r.rewriteExpr(stmt.Cond)
		r.rewriteStmt(stmt.ThenBlock)
		r.rewriteStmt(stmt.ElseBlock)

	case ast.StmtMatch:
		r.rewriteExpr(stmt.Scrutinee)
		for _, armID := range stmt.Arms {
			if arm := r.b.MatchArms.Get(armID); arm != nil {
				r.rewriteExpr(arm.Guard)
				r.rewriteStmt(arm.Body)
			}
		}

	case ast.StmtWhile:
		r.rewriteExpr(stmt.Cond)
		r.rewriteStmt(stmt.Body)

	case ast.StmtForIn:
		r.rewriteExpr(stmt.ForIter)
		r.rewriteStmt(stmt.Body)

	case ast.StmtLoop:
		r.rewriteStmt(stmt.Body)

	case ast.StmtBlock:
		for _, sub := range stmt.Stmts {
			r.rewriteStmt(sub)
		}
		r.rewriteExpr(stmt.Tail)
		r.indexDefers(stmt)
	}
}

func (r *rewriter) rewriteExpr(id ast.ExprID) {
	if !id.IsValid() {
		return
	}
	e := r.b.Exprs.Get(id)
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprBinary, ast.ExprIndex, ast.ExprAssign:
		r.rewriteExpr(e.Lhs)
		r.rewriteExpr(e.Rhs)
	case ast.ExprUnary, ast.ExprMember, ast.ExprCast, ast.ExprGroup,
		ast.ExprReference, ast.ExprDeref, ast.ExprTry:
		r.rewriteExpr(e.Operand)
	case ast.ExprCall:
		r.rewriteExpr(e.Callee)
		for _, a := range e.Args {
			r.rewriteExpr(a)
		}
	case ast.ExprTuple, ast.ExprArrayLit:
		for _, el := range e.Elements {
			r.rewriteExpr(el)
		}
	case ast.ExprStructLit:
		for _, f := range e.Fields {
			r.rewriteExpr(f.Value)
		}
	case ast.ExprEnumConstruct:
		for _, a := range e.Args {
			r.rewriteExpr(a)
		}
	case ast.ExprClosureParam, ast.ExprClosureRuntime:
		r.rewriteStmt(e.ClosureBody)
	}
}

// expandWith rewrites `with x = init: body` into
// `{ let x = init; defer x.close(); body }` in place, replacing the
// carrier statement's node. The `try` inside the initializer, if any, is
// left intact for the type checker.
func (r *rewriter) expandWith(stmtID ast.StmtID, exprID ast.ExprID, e *ast.Expr) {
	r.rewriteExpr(e.WithInit)
	r.rewriteStmt(e.WithBody)

	letStmt := r.b.NewStmt(ast.Stmt{
		Kind:    ast.StmtLet,
		Span:    e.Span,
		Pattern: e.WithPattern,
		TypeAnn: e.WithType,
		Init:    e.WithInit,
		IsMut:   true, // close(&mut self) needs an exclusive borrow
	})

	stmts := []ast.StmtID{letStmt}
	if closeStmt, ok := r.synthesizeClose(e); ok {
		stmts = append(stmts, closeStmt)
	}
	if e.WithBody.IsValid() {
		stmts = append(stmts, e.WithBody)
	}

	stmt := r.b.Stmts.Get(stmtID)
	*stmt = ast.Stmt{Kind: ast.StmtBlock, Span: e.Span, Stmts: stmts}

	if r.res != nil {
		scope := r.res.ScopeOfExpr[exprID]
		r.res.ScopeOfStmt[stmtID] = scope
		r.res.ScopeOfStmt[letStmt] = scope
	}

	r.out.CloseObligations = append(r.out.CloseObligations, CloseObligation{
		Binding: e.WithPattern,
		Init:    e.WithInit,
		Span:    e.Span,
	})
	r.out.Rewrites++
	r.indexDefers(r.b.Stmts.Get(stmtID))
}

// synthesizeClose builds `defer x.close()` for a plain binding pattern,
// annotating the fresh identifier with the binding's resolved symbol so the
// later stages see it as an ordinary use. Destructuring patterns carry no
// single closable binding; the obligation still records them for the type
// checker to reject.
func (r *rewriter) synthesizeClose(e *ast.Expr) (ast.StmtID, bool) {
	pat := r.b.Patterns.Get(e.WithPattern)
	if pat == nil || pat.Kind != ast.PatternBinding {
		return ast.NoStmtID, false
	}
	ident := r.b.NewExpr(ast.Expr{
		Kind: ast.ExprIdent,
		Span: e.Span,
		Path: []source.StringID{pat.Name},
	})
	call := r.b.NewExpr(ast.Expr{
		Kind: ast.ExprCall,
		Span: e.Span,
		Callee: r.b.NewExpr(ast.Expr{
			Kind:    ast.ExprMember,
			Span:    e.Span,
			Operand: ident,
			Field:   r.b.Intern(closeMethodName),
		}),
	})
	deferStmt := r.b.NewStmt(ast.Stmt{Kind: ast.StmtDefer, Span: e.Span, Expr: call})

	if r.res != nil {
		if sym, ok := r.res.PatternSymbol[e.WithPattern]; ok && sym.IsValid() {
			r.res.ExprSymbol[ident] = sym
		}
	}
	return deferStmt, true
}

// indexDefers assigns each defer in one lexical block its creation index.
// Indexes restart per block; reverse order at scope exit is the code
// generator's obligation.
func (r *rewriter) indexDefers(block *ast.Stmt) {
	if block == nil || block.Kind != ast.StmtBlock {
		return
	}
	next := 0
	for _, sub := range block.Stmts {
		if s := r.b.Stmts.Get(sub); s != nil && s.Kind == ast.StmtDefer {
			r.out.DeferIndex[sub] = next
			next++
		}
	}
}
