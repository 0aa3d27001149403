package pipeline

import (
	"context"
	"testing"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/unit"
)

// buildUnit assembles one small translation unit: a string-taking function
// and a caller that moves the same binding twice.
func buildUnit(t *testing.T, strings *source.Interner) (*unit.Unit, ast.FileID) {
	t.Helper()
	b := ast.NewBuilder(ast.Hints{}, strings)
	file := b.NewFile(source.FileID(1), source.Span{})

	stringT := b.NewType(ast.TypeExpr{Kind: ast.TypeExprNamed, Path: []source.StringID{b.Intern("string")}})
	sink := b.Items.NewFn(ast.FnItem{
		Name:   b.Intern("sink"),
		Params: []ast.FnParamID{b.Items.NewFnParam(ast.FnParam{Name: b.Intern("s"), Type: stringT})},
		Body:   b.NewStmt(ast.Stmt{Kind: ast.StmtBlock}),
	})
	b.PushItem(file, sink)

	mkIdent := func(name string, start uint32) ast.ExprID {
		return b.NewExpr(ast.Expr{
			Kind: ast.ExprIdent,
			Path: []source.StringID{b.Intern(name)},
			Span: source.Span{File: 1, Start: start, End: start + 1},
		})
	}
	pat := b.Patterns.New(ast.Pattern{Kind: ast.PatternBinding, Name: b.Intern("a")})
	letStmt := b.NewStmt(ast.Stmt{Kind: ast.StmtLet, Pattern: pat, Init: mkIdent("s", 10)})
	use := b.NewStmt(ast.Stmt{Kind: ast.StmtExpr, Expr: b.NewExpr(ast.Expr{
		Kind:   ast.ExprCall,
		Callee: mkIdent("sink", 20),
		Args:   []ast.ExprID{mkIdent("s", 25)},
		Span:   source.Span{File: 1, Start: 20, End: 30},
	})})
	run := b.Items.NewFn(ast.FnItem{
		Name:   b.Intern("run"),
		Params: []ast.FnParamID{b.Items.NewFnParam(ast.FnParam{Name: b.Intern("s"), Type: stringT})},
		Body:   b.NewStmt(ast.Stmt{Kind: ast.StmtBlock, Stmts: []ast.StmtID{letStmt, use}}),
	})
	b.PushItem(file, run)

	return unit.New(source.FileID(1), b, source.NewFileSet(), unit.Flags{}), file
}

func TestCheckRunsAllStages(t *testing.T) {
	u, file := buildUnit(t, source.NewInterner())
	out := Check(u, file, Options{Timings: true})

	if out.Resolution == nil || out.Desugar == nil || out.Types == nil ||
		out.Ownership == nil || out.Borrows == nil || out.Closures == nil {
		t.Fatalf("every stage must produce a result, got %+v", out)
	}
	if out.Timing == nil || len(out.Timing.Phases) == 0 {
		t.Fatalf("expected phase timings when enabled")
	}
	if !u.Diags.HasErrors() {
		t.Fatalf("the double-move program should produce an ownership error")
	}
}

func TestDiagnosticsSortedBySpan(t *testing.T) {
	u, file := buildUnit(t, source.NewInterner())
	out := Check(u, file, Options{})

	diags := out.Diagnostics()
	for i := 1; i < len(diags); i++ {
		if diags[i-1].Primary.File == diags[i].Primary.File &&
			diags[i-1].Primary.Start > diags[i].Primary.Start {
			t.Fatalf("diagnostics must be in ascending span order: %+v", diags)
		}
	}
}

func TestAllowListSuppressesCodes(t *testing.T) {
	u, file := buildUnit(t, source.NewInterner())
	Check(u, file, Options{AllowList: []diag.Code{
		diag.OwnershipUseOfMoved, diag.OwnershipDoubleMove, diag.OwnershipConditionalMove,
	}})
	for _, d := range u.Diags.Items() {
		if d.Code == diag.OwnershipUseOfMoved || d.Code == diag.OwnershipDoubleMove {
			t.Fatalf("allow-listed codes must be filtered at emit, got %+v", d)
		}
	}
}

func TestRunFilesChecksUnitsIndependently(t *testing.T) {
	strings := source.NewInterner()
	u1, f1 := buildUnit(t, strings)
	u2, f2 := buildUnit(t, strings)

	outputs, err := RunFiles(context.Background(), []FileJob{
		{Path: "a.em", FileID: f1, Unit: u1},
		{Path: "b.em", FileID: f2, Unit: u2},
	}, Options{}, 2)
	if err != nil {
		t.Fatalf("RunFiles: %v", err)
	}
	if len(outputs) != 2 || outputs[0] == nil || outputs[1] == nil {
		t.Fatalf("expected two outputs, got %+v", outputs)
	}
	for _, out := range outputs {
		if !out.Unit.Diags.HasErrors() {
			t.Fatalf("each unit should reproduce the same error independently")
		}
	}
}

func TestDeterministicDiagnosticsAcrossRuns(t *testing.T) {
	u1, f1 := buildUnit(t, source.NewInterner())
	u2, f2 := buildUnit(t, source.NewInterner())
	d1 := Check(u1, f1, Options{}).Diagnostics()
	d2 := Check(u2, f2, Options{}).Diagnostics()

	if len(d1) != len(d2) {
		t.Fatalf("identical inputs must yield identical diagnostic counts: %d vs %d", len(d1), len(d2))
	}
	for i := range d1 {
		if d1[i].Code != d2[i].Code || d1[i].Primary != d2[i].Primary || d1[i].Message != d2[i].Message {
			t.Fatalf("diagnostic %d differs across identical runs:\n%+v\n%+v", i, d1[i], d2[i])
		}
	}
}
