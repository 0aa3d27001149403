package borrow

import (
	"testing"

	"ember/internal/ast"
	"ember/internal/desugar"
	"ember/internal/diag"
	"ember/internal/mono"
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
	return Run(f.u, res, tck, f.file)
}

func (f *fixture) hasCode(code diag.Code) bool {
	for _, d := range f.u.Diags.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func (f *fixture) noErrors() {
	f.t.Helper()
	if f.u.Diags.HasErrors() {
		f.t.Fatalf("unexpected diagnostics: %+v", f.u.Diags.Items())
	}
}

func (f *fixture) namedT(name string) ast.TypeExprID {
	return f.b.NewType(ast.TypeExpr{Kind: ast.TypeExprNamed, Path: []source.StringID{f.intern(name)}})
}

func (f *fixture) refT(elem ast.TypeExprID, mutable bool) ast.TypeExprID {
	return f.b.NewType(ast.TypeExpr{Kind: ast.TypeExprReference, Elem: elem, Mutable: mutable})
}

func (f *fixture) ident(name string) ast.ExprID {
	return f.b.NewExpr(ast.Expr{Kind: ast.ExprIdent, Path: []source.StringID{f.intern(name)}})
}

func (f *fixture) refOf(name string, mutable bool) ast.ExprID {
	return f.b.NewExpr(ast.Expr{Kind: ast.ExprReference, Operand: f.ident(name), Mutable: mutable})
}

func (f *fixture) block(stmts ...ast.StmtID) ast.StmtID {
	return f.b.NewStmt(ast.Stmt{Kind: ast.StmtBlock, Stmts: stmts})
}

func (f *fixture) let(name string, init ast.ExprID) ast.StmtID {
	pat := f.b.Patterns.New(ast.Pattern{Kind: ast.PatternBinding, Name: f.intern(name)})
	return f.b.NewStmt(ast.Stmt{Kind: ast.StmtLet, Pattern: pat, Init: init})
}

func (f *fixture) exprStmt(e ast.ExprID) ast.StmtID {
	return f.b.NewStmt(ast.Stmt{Kind: ast.StmtExpr, Expr: e})
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

func (f *fixture) declUse() {
	f.fn("use_ref", []param{{name: "r", typ: f.refT(f.namedT("string"), false)}}, ast.NoTypeExprID, f.block())
}

func TestExclusiveWhileSharedLiveRejected(t *testing.T) {
	f := newFixture(t)
	f.declUse()
	f.fn("run", []param{{name: "v", typ: f.namedT("string")}}, ast.NoTypeExprID, f.block(
		f.let("r1", f.refOf("v", false)),
		f.let("r2", f.refOf("v", true)),
		f.exprStmt(f.b.NewExpr(ast.Expr{Kind: ast.ExprCall, Callee: f.ident("use_ref"), Args: []ast.ExprID{f.ident("r1")}})),
	))

	f.run()
	if !f.hasCode(diag.BorrowMutWhileShared) {
		t.Fatalf("expected BorrowMutWhileShared (P0502), got %+v", f.u.Diags.Items())
	}
}

func TestTwoExclusiveBorrowsRejected(t *testing.T) {
	f := newFixture(t)
	f.fn("run", []param{{name: "v", typ: f.namedT("string")}}, ast.NoTypeExprID, f.block(
		f.let("r1", f.refOf("v", true)),
		f.let("r2", f.refOf("v", true)),
	))

	f.run()
	if !f.hasCode(diag.BorrowMultipleMut) {
		t.Fatalf("expected BorrowMultipleMut (P0499), got %+v", f.u.Diags.Items())
	}
}

func TestSharedBorrowsCoexist(t *testing.T) {
	f := newFixture(t)
	f.fn("run", []param{{name: "v", typ: f.namedT("string")}}, ast.NoTypeExprID, f.block(
		f.let("r1", f.refOf("v", false)),
		f.let("r2", f.refOf("v", false)),
	))

	f.run()
	f.noErrors()
}

func TestBorrowDiesAtBlockExit(t *testing.T) {
	f := newFixture(t)
	inner := f.block(f.let("r1", f.refOf("v", true)))
	f.fn("run", []param{{name: "v", typ: f.namedT("string")}}, ast.NoTypeExprID, f.block(
		inner,
		f.let("r2", f.refOf("v", true)),
	))

	f.run()
	f.noErrors()
}

func TestDisjointFieldBorrowsCoexist(t *testing.T) {
	f := newFixture(t)
	f.b.PushItem(f.file, f.b.Items.NewStruct(ast.StructDecl{
		Name: f.intern("Pair"),
		Fields: []ast.StructFieldDecl{
			{Name: f.intern("a"), Type: f.namedT("string")},
			{Name: f.intern("b"), Type: f.namedT("string")},
		},
	}))
	refField := func(field string) ast.ExprID {
		member := f.b.NewExpr(ast.Expr{Kind: ast.ExprMember, Operand: f.ident("p"), Field: f.intern(field)})
		return f.b.NewExpr(ast.Expr{Kind: ast.ExprReference, Operand: member, Mutable: true})
	}
	f.fn("run", []param{{name: "p", typ: f.namedT("Pair")}}, ast.NoTypeExprID, f.block(
		f.let("ra", refField("a")),
		f.let("rb", refField("b")),
	))

	f.run()
	f.noErrors()
}

func TestWholeThenFieldBorrowOverlaps(t *testing.T) {
	f := newFixture(t)
	f.b.PushItem(f.file, f.b.Items.NewStruct(ast.StructDecl{
		Name:   f.intern("Pair"),
		Fields: []ast.StructFieldDecl{{Name: f.intern("a"), Type: f.namedT("string")}},
	}))
	member := f.b.NewExpr(ast.Expr{Kind: ast.ExprMember, Operand: f.ident("p"), Field: f.intern("a")})
	f.fn("run", []param{{name: "p", typ: f.namedT("Pair")}}, ast.NoTypeExprID, f.block(
		f.let("rw", f.refOf("p", true)),
		f.let("ra", f.b.NewExpr(ast.Expr{Kind: ast.ExprReference, Operand: member, Mutable: true})),
	))

	f.run()
	if !f.hasCode(diag.BorrowMultipleMut) {
		t.Fatalf("expected overlap of p and p.a to be rejected, got %+v", f.u.Diags.Items())
	}
}

func TestOwnerReadWhileExclusiveBorrowRejected(t *testing.T) {
	f := newFixture(t)
	f.fn("take_string", []param{{name: "s", typ: f.namedT("string")}}, ast.NoTypeExprID, f.block())
	f.fn("run", []param{{name: "v", typ: f.namedT("string")}}, ast.NoTypeExprID, f.block(
		f.let("r", f.refOf("v", true)),
		f.exprStmt(f.b.NewExpr(ast.Expr{Kind: ast.ExprCall, Callee: f.ident("take_string"), Args: []ast.ExprID{f.ident("v")}})),
	))

	f.run()
	if !f.hasCode(diag.BorrowSharedWhileMut) {
		t.Fatalf("expected BorrowSharedWhileMut (P0503) for owner use, got %+v", f.u.Diags.Items())
	}
}

func TestBorrowOfMovedRejected(t *testing.T) {
	f := newFixture(t)
	f.fn("run", []param{{name: "s", typ: f.namedT("string")}}, ast.NoTypeExprID, f.block(
		f.let("a", f.ident("s")),
		f.let("r", f.refOf("s", false)),
	))

	f.run()
	if !f.hasCode(diag.BorrowOfMoved) {
		t.Fatalf("expected BorrowOfMoved (P0382), got %+v", f.u.Diags.Items())
	}
}

func TestReturnBorrowOfLocalRejected(t *testing.T) {
	f := newFixture(t)
	lit := f.b.NewExpr(ast.Expr{Kind: ast.ExprLitString, LitString: "tmp"})
	f.fn("run", nil, f.refT(f.namedT("string"), false), f.block(
		f.let("s", lit),
		f.b.NewStmt(ast.Stmt{Kind: ast.StmtReturn, Expr: f.refOf("s", false)}),
	))

	f.run()
	if !f.hasCode(diag.BorrowNotLongEnough) {
		t.Fatalf("expected BorrowNotLongEnough (P0505), got %+v", f.u.Diags.Items())
	}
}

func TestReturnParamBorrowAccepted(t *testing.T) {
	f := newFixture(t)
	f.fn("first", []param{{name: "s", typ: f.refT(f.namedT("string"), false)}},
		f.refT(f.namedT("string"), false),
		f.block(f.b.NewStmt(ast.Stmt{Kind: ast.StmtReturn, Expr: f.ident("s")})))

	f.run()
	f.noErrors()
}

func TestMultiInputUnlabeledReturnFlagged(t *testing.T) {
	f := newFixture(t)
	f.fn("choose", []param{
		{name: "s1", typ: f.refT(f.namedT("string"), false)},
		{name: "s2", typ: f.refT(f.namedT("string"), false)},
	},
		f.refT(f.namedT("string"), false),
		f.block(f.b.NewStmt(ast.Stmt{Kind: ast.StmtReturn, Expr: f.ident("s1")})))

	f.run()
	if !f.hasCode(diag.BorrowReturnUnlabeled) {
		t.Fatalf("expected BorrowReturnUnlabeled for the unlabeled multi-input return, got %+v", f.u.Diags.Items())
	}
}

func TestTimelineRecordedWhenEnabled(t *testing.T) {
	f := newFixture(t)
	f.u.Flags.TrackTimeline = true
	f.fn("run", []param{{name: "v", typ: f.namedT("string")}}, ast.NoTypeExprID, f.block(
		f.let("r", f.refOf("v", true)),
	))

	out := f.run()
	if len(out.Timeline) == 0 {
		t.Fatalf("expected borrow timeline events when track_timeline is set")
	}
}
