// Package closureinline performs call-site inlining of
// compile-time parameter closures and environment-layout assignment for
// runtime closures.
package closureinline

import (
	"fmt"

	"ember/internal/ast"
	"ember/internal/ownership"
	"ember/internal/resolver"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/typeck"
	"ember/internal/types"
	"ember/internal/unit"
)

// EnvField is one slot of a runtime closure's environment record.
type EnvField struct {
	Name    source.StringID
	Type    types.TypeID
	Capture symbols.SymbolID
}

// Layout is the environment assignment for one runtime closure: field
// order is capture appearance order in source; a closure with zero
// captures degenerates to a bare function pointer.
type Layout struct {
	Closure  ast.ExprID
	FnSymbol symbols.SymbolID // synthetic __closure_<n> symbol
	Name     string
	Fields   []EnvField
	DirectFn bool
}

// Inlined is one specialized expansion of a call that passed parameter
// closures: Block is the callee's body with arguments bound and every
// parameter-closure invocation substituted.
type Inlined struct {
	Call   ast.ExprID
	Callee symbols.SymbolID
	Block  ast.StmtID
	// RemovedParams lists the positions of parameter-closure parameters
	// dropped from the specialized signature.
	RemovedParams []int
}

// Result is the pass output.
type Result struct {
	Layouts []Layout
	Inlines []Inlined
}

// Run assigns runtime closure layouts and inlines parameter-closure call
// sites for one file. The inlined regions re-enter the ownership check;
// the clone is type-preserving so expression types carry over by
// construction.
func Run(u *unit.Unit, res *resolver.Result, tck *typeck.Result, own *ownership.Result, fileID ast.FileID) *Result {
	out := &Result{}
	file := u.Builder.Files.Get(fileID)
	if file == nil {
		return out
	}
	p := &pass{u: u, res: res, tck: tck, own: own, out: out}
	for _, itemID := range file.Items {
		item := u.Builder.Items.Get(itemID)
		if item == nil {
			continue
		}
		switch item.Kind {
		case ast.ItemFn:
			p.visitFn(itemID)
		case ast.ItemImpl:
			if decl, ok := u.Builder.Items.Impl(itemID); ok {
				for _, m := range decl.Methods {
					p.visitFn(m)
				}
			}
		}
	}
	for _, inl := range out.Inlines {
		ownership.CheckBlock(u, res, tck, inl.Block)
	}
	return out
}

type pass struct {
	u   *unit.Unit
	res *resolver.Result
	tck *typeck.Result
	own *ownership.Result
	out *Result

	nextClosure int
	nextFresh   int
}

func (p *pass) visitFn(item ast.ItemID) {
	fn, ok := p.u.Builder.Items.Fn(item)
	if !ok || !fn.Body.IsValid() {
		return
	}
	p.visitStmt(fn.Body)
}

func (p *pass) visitStmt(id ast.StmtID) {
	stmt := p.u.Builder.Stmts.Get(id)
	if stmt == nil {
		return
	}
	for _, sub := range []ast.ExprID{stmt.Init, stmt.Expr, stmt.Cond, stmt.ForIter, stmt.Scrutinee, stmt.Tail} {
		p.visitExpr(sub)
	}
	for _, armID := range stmt.Arms {
		if arm := p.u.Builder.MatchArms.Get(armID); arm != nil {
			p.visitExpr(arm.Guard)
			p.visitStmt(arm.Body)
		}
	}
	for _, sub := range []ast.StmtID{stmt.ThenBlock, stmt.ElseBlock, stmt.Body} {
		if sub.IsValid() {
			p.visitStmt(sub)
		}
	}
	for _, sub := range stmt.Stmts {
		p.visitStmt(sub)
	}
}

func (p *pass) visitExpr(id ast.ExprID) {
	if !id.IsValid() {
		return
	}
	e := p.u.Builder.Exprs.Get(id)
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprClosureRuntime:
		p.assignLayout(id, e)
		p.visitStmt(e.ClosureBody)
		return
	case ast.ExprClosureParam:
		p.visitStmt(e.ClosureBody)
		return
	case ast.ExprCall:
		p.maybeInlineCall(id, e)
	}
	for _, sub := range []ast.ExprID{e.Lhs, e.Rhs, e.Operand, e.Callee} {
		p.visitExpr(sub)
	}
	for _, sub := range e.Args {
		p.visitExpr(sub)
	}
	for _, sub := range e.Elements {
		p.visitExpr(sub)
	}
	for _, f := range e.Fields {
		p.visitExpr(f.Value)
	}
}

// assignLayout gives one runtime closure its environment record and
// synthetic function symbol.
func (p *pass) assignLayout(id ast.ExprID, e *ast.Expr) {
	captures := p.own.Captures[id]
	name := fmt.Sprintf("__closure_%d", p.nextClosure)
	p.nextClosure++

	fnSym := p.u.Symbols.Symbols.New(symbols.Symbol{
		Name: p.u.Strings.Intern(name),
		Kind: symbols.SymbolFunction,
		Span: e.Span,
		Type: p.tck.TypeOf(id),
	})

	layout := Layout{
		Closure:  id,
		FnSymbol: fnSym,
		Name:     name,
		DirectFn: len(captures) == 0,
	}
	for _, captured := range captures {
		rec := p.u.Symbols.Symbols.Get(captured)
		if rec == nil {
			continue
		}
		layout.Fields = append(layout.Fields, EnvField{Name: rec.Name, Type: rec.Type, Capture: captured})
	}
	p.out.Layouts = append(p.out.Layouts, layout)
}
