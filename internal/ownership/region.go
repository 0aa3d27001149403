package ownership

import (
	"ember/internal/ast"
	"ember/internal/resolver"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/typeck"
	"ember/internal/unit"
)

// CheckBlock re-runs the ownership analysis over one synthesized region —
// the closure-inline pass feeds its expansions back through here so a
// substitution that introduced a move error is caught.
func CheckBlock(u *unit.Unit, res *resolver.Result, tck *typeck.Result, body ast.StmtID) {
	a := &analyzer{
		u:          u,
		res:        res,
		tck:        tck,
		out:        &Result{Captures: make(map[ast.ExprID][]symbols.SymbolID)},
		reported:   make(map[reportKey]bool),
		deferNeeds: make(map[symbols.SymbolID][]source.Span),
		state:      make(flowState),
	}
	a.walkStmt(body)
}
