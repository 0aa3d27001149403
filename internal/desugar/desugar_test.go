package desugar

import (
	"testing"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/resolver"
	"ember/internal/source"
	"ember/internal/symbols"
)

type fixture struct {
	t       *testing.T
	strings *source.Interner
	b       *ast.Builder
	table   *symbols.Table
	bag     *diag.Bag
	file    ast.FileID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	strings := source.NewInterner()
	b := ast.NewBuilder(ast.Hints{}, strings)
	return &fixture{
		t:       t,
		strings: strings,
		b:       b,
		table:   symbols.NewTable(symbols.Hints{}, strings),
		bag:     diag.NewBag(),
		file:    b.NewFile(source.FileID(1), source.Span{}),
	}
}

func (f *fixture) intern(s string) source.StringID { return f.strings.Intern(s) }

func (f *fixture) block(stmts ...ast.StmtID) ast.StmtID {
	return f.b.NewStmt(ast.Stmt{Kind: ast.StmtBlock, Stmts: stmts})
}

func (f *fixture) fn(name string, body ast.StmtID) ast.ItemID {
	item := f.b.Items.NewFn(ast.FnItem{Name: f.intern(name), Body: body})
	f.b.PushItem(f.file, item)
	return item
}

// withStmt builds `with <name> = <init>: <body>` in statement position.
func (f *fixture) withStmt(name string, init ast.ExprID, body ast.StmtID, span source.Span) ast.StmtID {
	pat := f.b.Patterns.New(ast.Pattern{Kind: ast.PatternBinding, Name: f.intern(name), Span: span})
	withExpr := f.b.NewExpr(ast.Expr{
		Kind:        ast.ExprWith,
		Span:        span,
		WithPattern: pat,
		WithInit:    init,
		WithBody:    body,
	})
	return f.b.NewStmt(ast.Stmt{Kind: ast.StmtExpr, Span: span, Expr: withExpr})
}

func (f *fixture) resolve() *resolver.Result {
	return resolver.Run(f.b, f.table, f.bag, f.file, nil)
}

func TestExpandWithRewritesToLetDeferBody(t *testing.T) {
	f := newFixture(t)
	span := source.Span{File: 1, Start: 10, End: 40}
	init := f.b.NewExpr(ast.Expr{Kind: ast.ExprLitInt, LitInt: 1, Span: span})
	body := f.block()
	ws := f.withStmt("file", init, body, span)
	f.fn("run", f.block(ws))

	res := f.resolve()
	out := Run(f.b, res, f.file)

	if out.Rewrites != 1 {
		t.Fatalf("expected 1 rewrite, got %d", out.Rewrites)
	}
	rewritten := f.b.Stmts.Get(ws)
	if rewritten.Kind != ast.StmtBlock {
		t.Fatalf("expected the with statement to become a block, got kind %d", rewritten.Kind)
	}
	if len(rewritten.Stmts) != 3 {
		t.Fatalf("expected let+defer+body, got %d statements", len(rewritten.Stmts))
	}
	if s := f.b.Stmts.Get(rewritten.Stmts[0]); s.Kind != ast.StmtLet {
		t.Fatalf("first expansion statement should be a let")
	}
	deferStmt := f.b.Stmts.Get(rewritten.Stmts[1])
	if deferStmt.Kind != ast.StmtDefer {
		t.Fatalf("second expansion statement should be a defer")
	}
	if rewritten.Span != span {
		t.Fatalf("expansion must preserve the original with span")
	}
	if deferStmt.Span != span {
		t.Fatalf("synthesized defer must carry the with span")
	}
	if len(out.CloseObligations) != 1 || out.CloseObligations[0].Span != span {
		t.Fatalf("expected one close obligation at the with span, got %+v", out.CloseObligations)
	}
}

func TestExpandWithAnnotatesSynthesizedClose(t *testing.T) {
	f := newFixture(t)
	init := f.b.NewExpr(ast.Expr{Kind: ast.ExprLitInt, LitInt: 1})
	ws := f.withStmt("res", init, f.block(), source.Span{File: 1, Start: 1, End: 2})
	f.fn("run", f.block(ws))

	res := f.resolve()
	Run(f.b, res, f.file)

	rewritten := f.b.Stmts.Get(ws)
	deferStmt := f.b.Stmts.Get(rewritten.Stmts[1])
	call := f.b.Exprs.Get(deferStmt.Expr)
	if call.Kind != ast.ExprCall {
		t.Fatalf("defer body should be a call")
	}
	member := f.b.Exprs.Get(call.Callee)
	if member.Kind != ast.ExprMember || f.strings.MustLookup(member.Field) != "close" {
		t.Fatalf("defer should call close()")
	}
	ident := member.Operand
	if sym, ok := res.ExprSymbol[ident]; !ok || !sym.IsValid() {
		t.Fatalf("synthesized receiver should resolve to the with binding")
	}
}

func TestDeferIndexesAreLIFOTagged(t *testing.T) {
	f := newFixture(t)
	d1 := f.b.NewStmt(ast.Stmt{Kind: ast.StmtDefer, Expr: f.b.NewExpr(ast.Expr{Kind: ast.ExprLitInt, LitInt: 1})})
	d2 := f.b.NewStmt(ast.Stmt{Kind: ast.StmtDefer, Expr: f.b.NewExpr(ast.Expr{Kind: ast.ExprLitInt, LitInt: 2})})
	d3 := f.b.NewStmt(ast.Stmt{Kind: ast.StmtDefer, Expr: f.b.NewExpr(ast.Expr{Kind: ast.ExprLitInt, LitInt: 3})})
	f.fn("run", f.block(d1, d2, d3))

	res := f.resolve()
	out := Run(f.b, res, f.file)

	for i, id := range []ast.StmtID{d1, d2, d3} {
		if out.DeferIndex[id] != i {
			t.Fatalf("defer %d should carry index %d, got %d", i, i, out.DeferIndex[id])
		}
	}
}

func TestDesugarIsIdempotent(t *testing.T) {
	f := newFixture(t)
	init := f.b.NewExpr(ast.Expr{Kind: ast.ExprLitInt, LitInt: 1})
	ws := f.withStmt("x", init, f.block(), source.Span{File: 1, Start: 5, End: 9})
	f.fn("run", f.block(ws))

	res := f.resolve()
	first := Run(f.b, res, f.file)
	if first.Rewrites != 1 {
		t.Fatalf("first run should rewrite once, got %d", first.Rewrites)
	}
	second := Run(f.b, res, f.file)
	if second.Rewrites != 0 {
		t.Fatalf("desugaring an already-desugared tree must be a no-op, got %d rewrites", second.Rewrites)
	}
	if len(second.DeferIndex) != len(first.DeferIndex) {
		t.Fatalf("defer indexes must be stable across runs")
	}
}
