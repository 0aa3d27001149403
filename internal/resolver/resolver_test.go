package resolver

import (
	"testing"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/symbols"
)

// fixture bundles the plumbing every test needs to hand-assemble a small
// AST: there is no lexer/parser in this package's scope, so tests build trees directly
// through ast.Builder.
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
	file := b.NewFile(source.FileID(1), source.Span{})
	return &fixture{
		t:       t,
		strings: strings,
		b:       b,
		table:   symbols.NewTable(symbols.Hints{}, strings),
		bag:     diag.NewBag(),
		file:    file,
	}
}

func (f *fixture) intern(s string) source.StringID { return f.strings.Intern(s) }

func (f *fixture) addItem(item ast.ItemID) {
	f.b.PushItem(f.file, item)
}

func (f *fixture) run() *Result {
	return Run(f.b, f.table, f.bag, f.file, nil)
}

func (f *fixture) ident(name string) ast.ExprID {
	return f.b.NewExpr(ast.Expr{Kind: ast.ExprIdent, Path: []source.StringID{f.intern(name)}})
}

func (f *fixture) block(stmts ...ast.StmtID) ast.StmtID {
	return f.b.NewStmt(ast.Stmt{Kind: ast.StmtBlock, Stmts: stmts})
}

func (f *fixture) retStmt(e ast.ExprID) ast.StmtID {
	return f.b.NewStmt(ast.Stmt{Kind: ast.StmtReturn, Expr: e})
}

func (f *fixture) fn(name string, paramNames []string, body ast.StmtID) ast.ItemID {
	params := make([]ast.FnParamID, len(paramNames))
	for i, n := range paramNames {
		params[i] = f.b.Items.NewFnParam(ast.FnParam{Name: f.intern(n)})
	}
	return f.b.Items.NewFn(ast.FnItem{Name: f.intern(name), Params: params, Body: body})
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestRunDeclaresTopLevelSymbols(t *testing.T) {
	f := newFixture(t)
	f.addItem(f.b.Items.NewStruct(ast.StructDecl{Name: f.intern("Point")}))
	f.addItem(f.fn("compute", nil, f.block()))

	res := f.run()
	if f.bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", f.bag.Items())
	}
	if _, ok := f.table.Lookup(res.FileScope, symbols.NamespaceType, f.intern("Point")); !ok {
		t.Fatalf("expected Point to be declared in type namespace")
	}
	if _, ok := f.table.Lookup(res.FileScope, symbols.NamespaceFunction, f.intern("compute")); !ok {
		t.Fatalf("expected compute to be declared in function namespace")
	}
}

func TestRunDuplicateStructReported(t *testing.T) {
	f := newFixture(t)
	f.addItem(f.b.Items.NewStruct(ast.StructDecl{Name: f.intern("Point")}))
	f.addItem(f.b.Items.NewStruct(ast.StructDecl{Name: f.intern("Point")}))

	f.run()
	if !hasCode(f.bag, diag.ResolveDuplicateDef) {
		t.Fatalf("expected ResolveDuplicateDef, got %+v", f.bag.Items())
	}
}

func TestRunResolvesParamInReturnExpr(t *testing.T) {
	f := newFixture(t)
	retExpr := f.ident("a")
	body := f.block(f.retStmt(retExpr))
	f.addItem(f.fn("identity", []string{"a"}, body))

	res := f.run()
	if f.bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", f.bag.Items())
	}
	sym, ok := res.SymbolOf(retExpr)
	if !ok || !sym.IsValid() {
		t.Fatalf("expected the identifier to resolve to the parameter")
	}
	if res.IsTainted(retExpr) {
		t.Fatalf("resolved identifier should not be tainted")
	}
}

func TestRunReportsUndefinedIdentifier(t *testing.T) {
	f := newFixture(t)
	missing := f.ident("missing")
	body := f.block(f.retStmt(missing))
	f.addItem(f.fn("run", nil, body))

	res := f.run()
	if !hasCode(f.bag, diag.ResolveUndefinedName) {
		t.Fatalf("expected ResolveUndefinedName, got %+v", f.bag.Items())
	}
	if !res.IsTainted(missing) {
		t.Fatalf("expected the unresolved identifier to be tainted")
	}
}

func TestRunLetShadowsParamWithoutDuplicate(t *testing.T) {
	f := newFixture(t)
	letStmt := f.b.NewStmt(ast.Stmt{
		Kind:    ast.StmtLet,
		Pattern: f.b.Patterns.New(ast.Pattern{Kind: ast.PatternBinding, Name: f.intern("a")}),
		Init:    f.b.NewExpr(ast.Expr{Kind: ast.ExprLitInt, LitInt: 1}),
	})
	body := f.block(letStmt, f.retStmt(f.ident("a")))
	f.addItem(f.fn("run", []string{"a"}, body))

	f.run()
	if f.bag.HasErrors() {
		t.Fatalf("shadowing a param with let should not error, got %+v", f.bag.Items())
	}
}

func TestRunInherentImplLinksTargetAndMethod(t *testing.T) {
	f := newFixture(t)
	f.addItem(f.b.Items.NewStruct(ast.StructDecl{Name: f.intern("Foo")}))
	method := f.fn("bar", nil, f.block())
	targetType := f.b.NewType(ast.TypeExpr{Kind: ast.TypeExprNamed, Path: []source.StringID{f.intern("Foo")}})
	implItem := f.b.Items.NewImpl(ast.ImplDecl{TargetType: targetType, Methods: []ast.ItemID{method}})
	f.addItem(implItem)

	res := f.run()
	if f.bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", f.bag.Items())
	}
	if len(res.Impls) != 1 {
		t.Fatalf("expected 1 impl link, got %d", len(res.Impls))
	}
	link := res.Impls[0]
	if !link.Target.IsValid() {
		t.Fatalf("expected impl target to resolve")
	}
	if _, ok := link.Methods[f.intern("bar")]; !ok {
		t.Fatalf("expected method bar to be recorded on the impl link")
	}
}

func TestRunImplUndeclaredTargetReported(t *testing.T) {
	f := newFixture(t)
	targetType := f.b.NewType(ast.TypeExpr{Kind: ast.TypeExprNamed, Path: []source.StringID{f.intern("Ghost")}})
	f.addItem(f.b.Items.NewImpl(ast.ImplDecl{TargetType: targetType}))

	f.run()
	if !hasCode(f.bag, diag.ResolveImplTargetNotType) {
		t.Fatalf("expected ResolveImplTargetNotType, got %+v", f.bag.Items())
	}
}

func TestRunTraitImplMissingMethodReported(t *testing.T) {
	f := newFixture(t)
	f.addItem(f.b.Items.NewStruct(ast.StructDecl{Name: f.intern("Foo")}))
	reqID := f.b.Items.NewTraitFnReq(ast.TraitFnReq{Name: f.intern("required"), Body: ast.NoStmtID})
	f.addItem(f.b.Items.NewTrait(ast.TraitDecl{Name: f.intern("Doable"), Items: []ast.TraitItemID{reqID}}))

	targetType := f.b.NewType(ast.TypeExpr{Kind: ast.TypeExprNamed, Path: []source.StringID{f.intern("Foo")}})
	f.addItem(f.b.Items.NewImpl(ast.ImplDecl{
		TraitPath:  []source.StringID{f.intern("Doable")},
		TargetType: targetType,
	}))

	f.run()
	if !hasCode(f.bag, diag.ResolveTraitMethodMissing) {
		t.Fatalf("expected ResolveTraitMethodMissing, got %+v", f.bag.Items())
	}
}

func TestRunTraitImplSatisfiedProducesNoDiagnostics(t *testing.T) {
	f := newFixture(t)
	f.addItem(f.b.Items.NewStruct(ast.StructDecl{Name: f.intern("Foo")}))
	reqID := f.b.Items.NewTraitFnReq(ast.TraitFnReq{Name: f.intern("required"), Body: ast.NoStmtID})
	f.addItem(f.b.Items.NewTrait(ast.TraitDecl{Name: f.intern("Doable"), Items: []ast.TraitItemID{reqID}}))

	method := f.fn("required", nil, f.block())
	targetType := f.b.NewType(ast.TypeExpr{Kind: ast.TypeExprNamed, Path: []source.StringID{f.intern("Foo")}})
	f.addItem(f.b.Items.NewImpl(ast.ImplDecl{
		TraitPath:  []source.StringID{f.intern("Doable")},
		TargetType: targetType,
		Methods:    []ast.ItemID{method},
	}))

	f.run()
	if f.bag.HasErrors() {
		t.Fatalf("expected no diagnostics, got %+v", f.bag.Items())
	}
}

func TestRunForLoopBindsLoopVariable(t *testing.T) {
	f := newFixture(t)
	loopVar := f.b.Patterns.New(ast.Pattern{Kind: ast.PatternBinding, Name: f.intern("item")})
	useItem := f.ident("item")
	loopBody := f.block(f.b.NewStmt(ast.Stmt{Kind: ast.StmtExpr, Expr: useItem}))
	forStmt := f.b.NewStmt(ast.Stmt{
		Kind:    ast.StmtForIn,
		ForVar:  loopVar,
		ForIter: f.ident("items"),
		Body:    loopBody,
	})
	f.addItem(f.fn("run", []string{"items"}, f.block(forStmt)))

	res := f.run()
	if f.bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", f.bag.Items())
	}
	if res.IsTainted(useItem) {
		t.Fatalf("expected the loop variable use to resolve")
	}
}

func TestRunImportUnresolvedReported(t *testing.T) {
	f := newFixture(t)
	f.addItem(f.b.Items.NewImport(ast.ImportItem{Path: []source.StringID{f.intern("somewhere")}}))

	f.run()
	if !hasCode(f.bag, diag.ResolveUndefinedName) {
		t.Fatalf("expected an import without a callback to report ResolveUndefinedName, got %+v", f.bag.Items())
	}
}
