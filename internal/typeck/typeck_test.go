package typeck

import (
	"testing"

	"ember/internal/ast"
	"ember/internal/desugar"
	"ember/internal/diag"
	"ember/internal/mono"
	"ember/internal/resolver"
	"ember/internal/source"
	"ember/internal/types"
	"ember/internal/unit"
)

// fixture hand-assembles small ASTs through ast.Builder: the syntax tree
// is externally supplied in production, so tests build it directly.
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
	file := b.NewFile(source.FileID(1), source.Span{})
	u := unit.New(source.FileID(1), b, source.NewFileSet(), unit.Flags{})
	return &fixture{t: t, u: u, b: b, file: file}
}

func (f *fixture) intern(s string) source.StringID { return f.u.Strings.Intern(s) }

func (f *fixture) run() (*resolver.Result, *Result) {
	res := resolver.Run(f.b, f.u.Symbols, f.u.Diags, f.file, nil)
	dsg := desugar.Run(f.b, res, f.file)
	rec := mono.NewInstantiationMapRecorder(f.u.Mono)
	tck := Run(f.u, res, dsg, f.file, rec)
	return res, tck
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

func (f *fixture) namedT(name string, args ...ast.TypeExprID) ast.TypeExprID {
	return f.b.NewType(ast.TypeExpr{Kind: ast.TypeExprNamed, Path: []source.StringID{f.intern(name)}, Args: args})
}

func (f *fixture) refT(elem ast.TypeExprID, mutable bool) ast.TypeExprID {
	return f.b.NewType(ast.TypeExpr{Kind: ast.TypeExprReference, Elem: elem, Mutable: mutable})
}

func (f *fixture) selfT() ast.TypeExprID {
	return f.b.NewType(ast.TypeExpr{Kind: ast.TypeExprSelf})
}

func (f *fixture) litInt(v int64) ast.ExprID {
	return f.b.NewExpr(ast.Expr{Kind: ast.ExprLitInt, LitInt: v})
}

func (f *fixture) ident(name string) ast.ExprID {
	return f.b.NewExpr(ast.Expr{Kind: ast.ExprIdent, Path: []source.StringID{f.intern(name)}})
}

func (f *fixture) call(callee ast.ExprID, args ...ast.ExprID) ast.ExprID {
	return f.b.NewExpr(ast.Expr{Kind: ast.ExprCall, Callee: callee, Args: args})
}

func (f *fixture) block(stmts ...ast.StmtID) ast.StmtID {
	return f.b.NewStmt(ast.Stmt{Kind: ast.StmtBlock, Stmts: stmts})
}

func (f *fixture) ret(e ast.ExprID) ast.StmtID {
	return f.b.NewStmt(ast.Stmt{Kind: ast.StmtReturn, Expr: e})
}

func (f *fixture) exprStmt(e ast.ExprID) ast.StmtID {
	return f.b.NewStmt(ast.Stmt{Kind: ast.StmtExpr, Expr: e})
}

type param struct {
	name string
	typ  ast.TypeExprID
}

func (f *fixture) fn(name string, params []param, ret ast.TypeExprID, body ast.StmtID, typeParams ...ast.TypeParam) ast.ItemID {
	ids := make([]ast.FnParamID, len(params))
	for i, p := range params {
		ids[i] = f.b.Items.NewFnParam(ast.FnParam{Name: f.intern(p.name), Type: p.typ})
	}
	item := f.b.Items.NewFn(ast.FnItem{
		Name:       f.intern(name),
		TypeParams: typeParams,
		Params:     ids,
		ReturnType: ret,
		Body:       body,
	})
	f.b.PushItem(f.file, item)
	return item
}

// letPat builds `let <name> [: ann] = init` and returns (stmt, pattern).
func (f *fixture) letPat(name string, ann ast.TypeExprID, init ast.ExprID) (ast.StmtID, ast.PatternID) {
	pat := f.b.Patterns.New(ast.Pattern{Kind: ast.PatternBinding, Name: f.intern(name)})
	return f.b.NewStmt(ast.Stmt{Kind: ast.StmtLet, Pattern: pat, TypeAnn: ann, Init: init}), pat
}

// declResult declares `enum Result[T, E] { Ok(T), Err(E) }`.
func (f *fixture) declResult() {
	item := f.b.Items.NewEnum(ast.EnumDecl{
		Name: f.intern("Result"),
		TypeParams: []ast.TypeParam{
			{Name: f.intern("T")},
			{Name: f.intern("E")},
		},
		Variants: []ast.EnumVariantDecl{
			{Name: f.intern("Ok"), PayloadFields: []ast.StructFieldDecl{{Name: f.intern("value"), Type: f.namedT("T")}}},
			{Name: f.intern("Err"), PayloadFields: []ast.StructFieldDecl{{Name: f.intern("error"), Type: f.namedT("E")}}},
		},
	})
	f.b.PushItem(f.file, item)
}

func (f *fixture) resultOk(arg ast.ExprID) ast.ExprID {
	return f.b.NewExpr(ast.Expr{
		Kind:    ast.ExprEnumConstruct,
		Path:    []source.StringID{f.intern("Result")},
		Variant: f.intern("Ok"),
		Args:    []ast.ExprID{arg},
	})
}

func TestIntLiteralDefaultsToI32(t *testing.T) {
	f := newFixture(t)
	let, pat := f.letPat("x", ast.NoTypeExprID, f.litInt(1))
	f.fn("run", nil, ast.NoTypeExprID, f.block(let))

	_, tck := f.run()
	f.noErrors()
	if got := tck.PatternType[pat]; got != f.u.Types.Builtins().I32 {
		t.Fatalf("unsuffixed integer literal should default to i32, got %v", got)
	}
}

func TestLiteralAdoptsAnnotatedWidth(t *testing.T) {
	f := newFixture(t)
	let, pat := f.letPat("x", f.namedT("u8"), f.litInt(7))
	f.fn("run", nil, ast.NoTypeExprID, f.block(let))

	_, tck := f.run()
	f.noErrors()
	if got := tck.PatternType[pat]; got != f.u.Types.Builtins().U8 {
		t.Fatalf("literal should adopt the annotated u8, got %v", got)
	}
}

func TestTypeMismatchReported(t *testing.T) {
	f := newFixture(t)
	let, _ := f.letPat("x", f.namedT("bool"), f.litInt(1))
	f.fn("run", nil, ast.NoTypeExprID, f.block(let))

	f.run()
	if !f.hasCode(diag.TypeMismatch) {
		t.Fatalf("expected TypeMismatch, got %+v", f.u.Diags.Items())
	}
}

func TestTryOperatorAccepted(t *testing.T) {
	f := newFixture(t)
	f.declResult()
	f.fn("get", nil, f.namedT("Result", f.namedT("i32"), f.namedT("string")),
		f.block(f.ret(f.resultOk(f.litInt(42)))))

	tryExpr := f.b.NewExpr(ast.Expr{Kind: ast.ExprTry, Operand: f.call(f.ident("get"))})
	let, pat := f.letPat("x", ast.NoTypeExprID, tryExpr)
	f.fn("main", nil, ast.NoTypeExprID, f.block(let))

	_, tck := f.run()
	f.noErrors()
	if got := tck.PatternType[pat]; got != f.u.Types.Builtins().I32 {
		t.Fatalf("try get() should produce i32, got %v", got)
	}
}

func TestTryOnNonResultRejected(t *testing.T) {
	f := newFixture(t)
	tryExpr := f.b.NewExpr(ast.Expr{Kind: ast.ExprTry, Operand: f.litInt(42)})
	let, _ := f.letPat("x", ast.NoTypeExprID, tryExpr)
	f.fn("main", nil, ast.NoTypeExprID, f.block(let))

	f.run()
	if !f.hasCode(diag.TryOnNonResult) {
		t.Fatalf("expected TryOnNonResult, got %+v", f.u.Diags.Items())
	}
}

func TestTryErrorTypeMustMatchEnclosing(t *testing.T) {
	f := newFixture(t)
	f.declResult()
	f.fn("get", nil, f.namedT("Result", f.namedT("i32"), f.namedT("string")),
		f.block(f.ret(f.resultOk(f.litInt(1)))))

	tryExpr := f.b.NewExpr(ast.Expr{Kind: ast.ExprTry, Operand: f.call(f.ident("get"))})
	let, _ := f.letPat("x", ast.NoTypeExprID, tryExpr)
	f.fn("caller", nil, f.namedT("Result", f.namedT("i32"), f.namedT("i32")),
		f.block(let, f.ret(f.resultOk(f.litInt(0)))))

	f.run()
	if !f.hasCode(diag.TryIncompatibleFn) {
		t.Fatalf("expected TryIncompatibleFn for mismatched error types, got %+v", f.u.Diags.Items())
	}
}

func TestLifetimeElisionSingleInput(t *testing.T) {
	f := newFixture(t)
	item := f.fn("first",
		[]param{{name: "s", typ: f.refT(f.namedT("string"), false)}},
		f.refT(f.namedT("string"), false),
		f.block(f.ret(f.ident("s"))))

	_, tck := f.run()
	info, ok := tck.Lifetimes[item]
	if !ok {
		t.Fatalf("expected lifetime info for first")
	}
	if !info.Elided || info.Return == source.NoStringID {
		t.Fatalf("single input reference should propagate its label to the return, got %+v", info)
	}
	if len(info.Inputs) != 1 || info.Inputs[0] != info.Return {
		t.Fatalf("return label should equal the input label, got %+v", info)
	}
}

func TestLifetimeElisionNotAppliedForTwoInputs(t *testing.T) {
	f := newFixture(t)
	item := f.fn("choose",
		[]param{
			{name: "s1", typ: f.refT(f.namedT("string"), false)},
			{name: "s2", typ: f.refT(f.namedT("string"), false)},
		},
		f.refT(f.namedT("string"), false),
		f.block(f.ret(f.ident("s1"))))

	_, tck := f.run()
	info := tck.Lifetimes[item]
	if info.Elided || info.Return != source.NoStringID {
		t.Fatalf("two input references must leave the return unlabeled, got %+v", info)
	}
	if len(info.Inputs) != 2 {
		t.Fatalf("expected two materialized input labels, got %+v", info.Inputs)
	}
}

func TestMonoRequestsDeduplicate(t *testing.T) {
	f := newFixture(t)
	f.fn("f",
		[]param{{name: "x", typ: f.namedT("T")}},
		f.namedT("T"),
		f.block(f.ret(f.ident("x"))),
		ast.TypeParam{Name: f.intern("T")})

	letA, _ := f.letPat("a", f.namedT("i64"), f.litInt(5))
	f.fn("main", nil, ast.NoTypeExprID, f.block(
		f.exprStmt(f.call(f.ident("f"), f.litInt(1))),
		f.exprStmt(f.call(f.ident("f"), f.litInt(2))),
		letA,
		f.exprStmt(f.call(f.ident("f"), f.ident("a"))),
	))

	f.run()
	f.noErrors()
	if got := f.u.Mono.Len(); got != 2 {
		t.Fatalf("f[i32] twice and f[i64] once should yield 2 requests, got %d", got)
	}
}

func TestConstEvalDivisionByZero(t *testing.T) {
	f := newFixture(t)
	div := f.b.NewExpr(ast.Expr{Kind: ast.ExprBinary, BinOp: ast.BinDiv, Lhs: f.litInt(1), Rhs: f.litInt(0)})
	item := f.b.Items.NewConst(ast.ConstItem{Name: f.intern("C"), TypeAnn: f.namedT("i32"), Init: div})
	f.b.PushItem(f.file, item)

	f.run()
	if !f.hasCode(diag.ConstEvalDivByZero) {
		t.Fatalf("expected ConstEvalDivByZero, got %+v", f.u.Diags.Items())
	}
}

func TestConstEvalOverflowOnNarrowWidth(t *testing.T) {
	f := newFixture(t)
	item := f.b.Items.NewConst(ast.ConstItem{Name: f.intern("C"), TypeAnn: f.namedT("i8"), Init: f.litInt(1000)})
	f.b.PushItem(f.file, item)

	f.run()
	if !f.hasCode(diag.ConstEvalOverflow) {
		t.Fatalf("expected ConstEvalOverflow, got %+v", f.u.Diags.Items())
	}
}

func TestNegativeArraySizeRejected(t *testing.T) {
	f := newFixture(t)
	neg := f.b.NewExpr(ast.Expr{Kind: ast.ExprUnary, UnOp: ast.UnaryNeg, Operand: f.litInt(1)})
	arr := f.b.NewType(ast.TypeExpr{Kind: ast.TypeExprArray, Elem: f.namedT("i32"), Size: neg})
	item := f.b.Items.NewStruct(ast.StructDecl{
		Name:   f.intern("Buf"),
		Fields: []ast.StructFieldDecl{{Name: f.intern("data"), Type: arr}},
	})
	f.b.PushItem(f.file, item)

	f.run()
	if !f.hasCode(diag.ConstEvalNegSize) {
		t.Fatalf("expected ConstEvalNegSize, got %+v", f.u.Diags.Items())
	}
}

func TestUnsatisfiedBoundRejected(t *testing.T) {
	f := newFixture(t)
	f.b.PushItem(f.file, f.b.Items.NewTrait(ast.TraitDecl{Name: f.intern("Show")}))
	f.b.PushItem(f.file, f.b.Items.NewStruct(ast.StructDecl{Name: f.intern("Foo")}))
	f.fn("show",
		[]param{{name: "x", typ: f.namedT("T")}},
		ast.NoTypeExprID,
		f.block(),
		ast.TypeParam{Name: f.intern("T"), Bounds: []ast.TypeExprID{f.namedT("Show")}})

	lit := f.b.NewExpr(ast.Expr{Kind: ast.ExprStructLit, Path: []source.StringID{f.intern("Foo")}})
	f.fn("main", nil, ast.NoTypeExprID, f.block(f.exprStmt(f.call(f.ident("show"), lit))))

	f.run()
	if !f.hasCode(diag.TraitUnsatisfiedBound) {
		t.Fatalf("expected TraitUnsatisfiedBound, got %+v", f.u.Diags.Items())
	}
}

func (f *fixture) implMethod(name string, params []param, ret ast.TypeExprID, body ast.StmtID) ast.ItemID {
	ids := make([]ast.FnParamID, len(params))
	for i, p := range params {
		ids[i] = f.b.Items.NewFnParam(ast.FnParam{Name: f.intern(p.name), Type: p.typ})
	}
	return f.b.Items.NewFn(ast.FnItem{Name: f.intern(name), Params: ids, ReturnType: ret, Body: body})
}

func TestInherentMethodCall(t *testing.T) {
	f := newFixture(t)
	f.b.PushItem(f.file, f.b.Items.NewStruct(ast.StructDecl{Name: f.intern("Counter")}))
	get := f.implMethod("get",
		[]param{{name: "self", typ: f.refT(f.selfT(), false)}},
		f.namedT("i32"),
		f.block(f.ret(f.litInt(0))))
	f.b.PushItem(f.file, f.b.Items.NewImpl(ast.ImplDecl{
		TargetType: f.namedT("Counter"),
		Methods:    []ast.ItemID{get},
	}))

	member := f.b.NewExpr(ast.Expr{Kind: ast.ExprMember, Operand: f.ident("c"), Field: f.intern("get")})
	let, pat := f.letPat("x", ast.NoTypeExprID, f.b.NewExpr(ast.Expr{Kind: ast.ExprCall, Callee: member}))
	f.fn("use_counter", []param{{name: "c", typ: f.namedT("Counter")}}, ast.NoTypeExprID, f.block(let))

	_, tck := f.run()
	f.noErrors()
	if got := tck.PatternType[pat]; got != f.u.Types.Builtins().I32 {
		t.Fatalf("method call should produce i32, got %v", got)
	}
}

func TestAmbiguousTraitMethodRejected(t *testing.T) {
	f := newFixture(t)
	for _, traitName := range []string{"A", "B"} {
		req := f.b.Items.NewTraitFnReq(ast.TraitFnReq{Name: f.intern("m"), Body: ast.NoStmtID})
		f.b.PushItem(f.file, f.b.Items.NewTrait(ast.TraitDecl{
			Name:  f.intern(traitName),
			Items: []ast.TraitItemID{req},
		}))
	}
	f.b.PushItem(f.file, f.b.Items.NewStruct(ast.StructDecl{Name: f.intern("Foo")}))
	for _, traitName := range []string{"A", "B"} {
		m := f.implMethod("m", []param{{name: "self", typ: f.refT(f.selfT(), false)}}, ast.NoTypeExprID, f.block())
		f.b.PushItem(f.file, f.b.Items.NewImpl(ast.ImplDecl{
			TraitPath:  []source.StringID{f.intern(traitName)},
			TargetType: f.namedT("Foo"),
			Methods:    []ast.ItemID{m},
		}))
	}

	member := f.b.NewExpr(ast.Expr{Kind: ast.ExprMember, Operand: f.ident("x"), Field: f.intern("m")})
	f.fn("use_foo", []param{{name: "x", typ: f.namedT("Foo")}}, ast.NoTypeExprID,
		f.block(f.exprStmt(f.b.NewExpr(ast.Expr{Kind: ast.ExprCall, Callee: member}))))

	f.run()
	if !f.hasCode(diag.TraitAmbiguousMethod) {
		t.Fatalf("expected TraitAmbiguousMethod, got %+v", f.u.Diags.Items())
	}
}

func TestAssociatedTypeSubstitutedThroughImpl(t *testing.T) {
	f := newFixture(t)
	assoc := f.b.Items.NewTraitAssocTypeReq(ast.TraitAssocTypeReq{Name: f.intern("Item")})
	firstReq := f.b.Items.NewTraitFnReq(ast.TraitFnReq{Name: f.intern("first"), Body: ast.NoStmtID})
	f.b.PushItem(f.file, f.b.Items.NewTrait(ast.TraitDecl{
		Name:  f.intern("Container"),
		Items: []ast.TraitItemID{assoc, firstReq},
	}))
	f.b.PushItem(f.file, f.b.Items.NewStruct(ast.StructDecl{Name: f.intern("Pack")}))

	selfItem := f.b.NewType(ast.TypeExpr{
		Kind: ast.TypeExprNamed,
		Path: []source.StringID{f.intern("Self"), f.intern("Item")},
	})
	first := f.implMethod("first",
		[]param{{name: "self", typ: f.refT(f.selfT(), false)}},
		selfItem,
		f.block(f.ret(f.litInt(0))))
	f.b.PushItem(f.file, f.b.Items.NewImpl(ast.ImplDecl{
		TraitPath:  []source.StringID{f.intern("Container")},
		TargetType: f.namedT("Pack"),
		AssocTypes: []ast.AssocTypeBinding{{Name: f.intern("Item"), Target: f.namedT("i32")}},
		Methods:    []ast.ItemID{first},
	}))

	member := f.b.NewExpr(ast.Expr{Kind: ast.ExprMember, Operand: f.ident("p"), Field: f.intern("first")})
	let, pat := f.letPat("x", ast.NoTypeExprID, f.b.NewExpr(ast.Expr{Kind: ast.ExprCall, Callee: member}))
	f.fn("use_pack", []param{{name: "p", typ: f.namedT("Pack")}}, ast.NoTypeExprID, f.block(let))

	_, tck := f.run()
	f.noErrors()
	if got := tck.PatternType[pat]; got != f.u.Types.Builtins().I32 {
		t.Fatalf("Self::Item should substitute to i32, got %v", got)
	}
}

func TestWithInitializerMustBeCloseable(t *testing.T) {
	f := newFixture(t)
	span := source.Span{File: 1, Start: 3, End: 9}
	pat := f.b.Patterns.New(ast.Pattern{Kind: ast.PatternBinding, Name: f.intern("x"), Span: span})
	withExpr := f.b.NewExpr(ast.Expr{
		Kind:        ast.ExprWith,
		Span:        span,
		WithPattern: pat,
		WithInit:    f.litInt(42),
		WithBody:    f.block(),
	})
	f.fn("run", nil, ast.NoTypeExprID,
		f.block(f.b.NewStmt(ast.Stmt{Kind: ast.StmtExpr, Span: span, Expr: withExpr})))

	f.run()
	if !f.hasCode(diag.TypeUnknownMethod) {
		t.Fatalf("expected TypeUnknownMethod for non-closeable with initializer, got %+v", f.u.Diags.Items())
	}
}

func TestWithCloseableInitializerAccepted(t *testing.T) {
	f := newFixture(t)
	f.b.PushItem(f.file, f.b.Items.NewStruct(ast.StructDecl{Name: f.intern("FileRes")}))
	closeM := f.implMethod("close",
		[]param{{name: "self", typ: f.refT(f.selfT(), true)}},
		ast.NoTypeExprID, f.block())
	f.b.PushItem(f.file, f.b.Items.NewImpl(ast.ImplDecl{
		TargetType: f.namedT("FileRes"),
		Methods:    []ast.ItemID{closeM},
	}))
	mk := f.b.NewExpr(ast.Expr{Kind: ast.ExprStructLit, Path: []source.StringID{f.intern("FileRes")}})

	pat := f.b.Patterns.New(ast.Pattern{Kind: ast.PatternBinding, Name: f.intern("x")})
	withExpr := f.b.NewExpr(ast.Expr{
		Kind:        ast.ExprWith,
		WithPattern: pat,
		WithInit:    mk,
		WithBody:    f.block(),
	})
	f.fn("run", nil, ast.NoTypeExprID,
		f.block(f.b.NewStmt(ast.Stmt{Kind: ast.StmtExpr, Expr: withExpr})))

	f.run()
	f.noErrors()
}

func TestInterningCollapsesEquality(t *testing.T) {
	f := newFixture(t)
	letA, patA := f.letPat("a", f.namedT("i64"), f.litInt(1))
	letB, patB := f.letPat("b", f.namedT("i64"), f.litInt(2))
	f.fn("run", nil, ast.NoTypeExprID, f.block(letA, letB))

	_, tck := f.run()
	f.noErrors()
	if tck.PatternType[patA] != tck.PatternType[patB] {
		t.Fatalf("structurally equal types must share one interned id")
	}
	if tck.PatternType[patA] == types.NoTypeID {
		t.Fatalf("expected a concrete interned type")
	}
}
