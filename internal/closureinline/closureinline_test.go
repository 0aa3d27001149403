package closureinline

import (
	"testing"

	"ember/internal/ast"
	"ember/internal/desugar"
	"ember/internal/mono"
	"ember/internal/ownership"
	"ember/internal/resolver"
	"ember/internal/source"
	"ember/internal/typeck"
	"ember/internal/unit"
)

type fixture struct {
	t    *testing.T
	u    *unit.Unit
	b    *ast.Builder
	file ast.FileID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	strings := source.NewInterner()
	b := ast.NewBuilder(ast.Hints{}, strings)
	u := unit.New(source.FileID(1), b, source.NewFileSet(), unit.Flags{})
	return &fixture{t: t, u: u, b: b, file: b.NewFile(source.FileID(1), source.Span{})}
}

func (f *fixture) intern(s string) source.StringID { return f.u.Strings.Intern(s) }

func (f *fixture) run() *Result {
	res := resolver.Run(f.b, f.u.Symbols, f.u.Diags, f.file, nil)
	dsg := desugar.Run(f.b, res, f.file)
	rec := mono.NewInstantiationMapRecorder(f.u.Mono)
	tck := typeck.Run(f.u, res, dsg, f.file, rec)
	own := ownership.Run(f.u, res, tck, f.file)
	return Run(f.u, res, tck, own, f.file)
}

func (f *fixture) namedT(name string) ast.TypeExprID {
	return f.b.NewType(ast.TypeExpr{Kind: ast.TypeExprNamed, Path: []source.StringID{f.intern(name)}})
}

func (f *fixture) fnT(params []ast.TypeExprID, ret ast.TypeExprID) ast.TypeExprID {
	return f.b.NewType(ast.TypeExpr{Kind: ast.TypeExprFunction, Params: params, Return: ret})
}

func (f *fixture) ident(name string) ast.ExprID {
	return f.b.NewExpr(ast.Expr{Kind: ast.ExprIdent, Path: []source.StringID{f.intern(name)}})
}

func (f *fixture) litInt(v int64) ast.ExprID {
	return f.b.NewExpr(ast.Expr{Kind: ast.ExprLitInt, LitInt: v})
}

func (f *fixture) block(stmts ...ast.StmtID) ast.StmtID {
	return f.b.NewStmt(ast.Stmt{Kind: ast.StmtBlock, Stmts: stmts})
}

func (f *fixture) tailBlock(tail ast.ExprID) ast.StmtID {
	return f.b.NewStmt(ast.Stmt{Kind: ast.StmtBlock, Tail: tail})
}

type param struct {
	name string
	typ  ast.TypeExprID
}

func (f *fixture) fn(name string, params []param, ret ast.TypeExprID, body ast.StmtID) ast.ItemID {
	ids := make([]ast.FnParamID, len(params))
	for i, p := range params {
		ids[i] = f.b.Items.NewFnParam(ast.FnParam{Name: f.intern(p.name), Type: p.typ})
	}
	item := f.b.Items.NewFn(ast.FnItem{Name: f.intern(name), Params: ids, ReturnType: ret, Body: body})
	f.b.PushItem(f.file, item)
	return item
}

func (f *fixture) let(name string, init ast.ExprID) ast.StmtID {
	pat := f.b.Patterns.New(ast.Pattern{Kind: ast.PatternBinding, Name: f.intern(name)})
	return f.b.NewStmt(ast.Stmt{Kind: ast.StmtLet, Pattern: pat, Init: init})
}

func TestRuntimeClosureLayoutFollowsCaptureOrder(t *testing.T) {
	f := newFixture(t)
	f.fn("sink", []param{{name: "v", typ: f.namedT("i32")}}, ast.NoTypeExprID, f.block())
	body := f.block(
		f.b.NewStmt(ast.Stmt{Kind: ast.StmtExpr, Expr: f.b.NewExpr(ast.Expr{
			Kind: ast.ExprCall, Callee: f.ident("sink"), Args: []ast.ExprID{f.ident("b")},
		})}),
		f.b.NewStmt(ast.Stmt{Kind: ast.StmtExpr, Expr: f.b.NewExpr(ast.Expr{
			Kind: ast.ExprCall, Callee: f.ident("sink"), Args: []ast.ExprID{f.ident("a")},
		})}),
	)
	closure := f.b.NewExpr(ast.Expr{Kind: ast.ExprClosureRuntime, ClosureBody: body})
	f.fn("run", []param{
		{name: "a", typ: f.namedT("i32")},
		{name: "b", typ: f.namedT("i32")},
	}, ast.NoTypeExprID, f.block(f.let("c", closure)))

	out := f.run()
	if len(out.Layouts) != 1 {
		t.Fatalf("expected one layout, got %d", len(out.Layouts))
	}
	layout := out.Layouts[0]
	if layout.DirectFn {
		t.Fatalf("a capturing closure must carry an environment")
	}
	if len(layout.Fields) != 2 {
		t.Fatalf("expected two environment slots, got %d", len(layout.Fields))
	}
	if f.u.Strings.MustLookup(layout.Fields[0].Name) != "b" {
		t.Fatalf("environment order must be capture appearance order, got %q first",
			f.u.Strings.MustLookup(layout.Fields[0].Name))
	}
	if layout.Name != "__closure_0" {
		t.Fatalf("expected deterministic synthetic name, got %q", layout.Name)
	}
}

func TestZeroCaptureClosureDegeneratesToFnPointer(t *testing.T) {
	f := newFixture(t)
	closure := f.b.NewExpr(ast.Expr{Kind: ast.ExprClosureRuntime, ClosureBody: f.block()})
	f.fn("run", nil, ast.NoTypeExprID, f.block(f.let("c", closure)))

	out := f.run()
	if len(out.Layouts) != 1 || !out.Layouts[0].DirectFn {
		t.Fatalf("a zero-capture closure should degenerate to the function pointer, got %+v", out.Layouts)
	}
}

func TestParameterClosureCallSiteInlined(t *testing.T) {
	f := newFixture(t)
	// fn apply(x: i32, op: fn(i32) -> i32) -> i32: return op(x)
	opCall := f.b.NewExpr(ast.Expr{Kind: ast.ExprCall, Callee: f.ident("op"), Args: []ast.ExprID{f.ident("x")}})
	f.fn("apply", []param{
		{name: "x", typ: f.namedT("i32")},
		{name: "op", typ: f.fnT([]ast.TypeExprID{f.namedT("i32")}, f.namedT("i32"))},
	}, f.namedT("i32"),
		f.block(f.b.NewStmt(ast.Stmt{Kind: ast.StmtReturn, Expr: opCall})))

	// apply(5, |y| y + 1) with a compile-time parameter closure
	yParam := f.b.Items.NewFnParam(ast.FnParam{Name: f.intern("y"), Type: f.namedT("i32")})
	add := f.b.NewExpr(ast.Expr{Kind: ast.ExprBinary, BinOp: ast.BinAdd, Lhs: f.ident("y"), Rhs: f.litInt(1)})
	closure := f.b.NewExpr(ast.Expr{
		Kind:          ast.ExprClosureParam,
		ClosureParams: []ast.FnParamID{yParam},
		ClosureBody:   f.tailBlock(add),
	})
	call := f.b.NewExpr(ast.Expr{Kind: ast.ExprCall, Callee: f.ident("apply"), Args: []ast.ExprID{f.litInt(5), closure}})
	f.fn("main", nil, ast.NoTypeExprID, f.block(f.let("r", call)))

	out := f.run()
	if len(out.Inlines) != 1 {
		t.Fatalf("expected one inlined call site, got %d", len(out.Inlines))
	}
	inl := out.Inlines[0]
	if len(inl.RemovedParams) != 1 || inl.RemovedParams[0] != 1 {
		t.Fatalf("the closure parameter should be removed from the specialized signature, got %v", inl.RemovedParams)
	}
	block := f.b.Stmts.Get(inl.Block)
	if block == nil || block.Kind != ast.StmtBlock || len(block.Stmts) != 2 {
		t.Fatalf("expected a prelude let plus the cloned body, got %+v", block)
	}
	// the cloned body's return must now hold the beta-reduced closure body
	cloned := f.b.Stmts.Get(block.Stmts[1])
	ret := f.b.Stmts.Get(cloned.Stmts[0])
	if ret.Kind != ast.StmtReturn {
		t.Fatalf("cloned body should still return")
	}
	retExpr := f.b.Exprs.Get(ret.Expr)
	if retExpr.Kind != ast.ExprBinary || retExpr.BinOp != ast.BinAdd {
		t.Fatalf("the op(x) call should have been beta-reduced to y+1's body, got kind %d", retExpr.Kind)
	}
}
