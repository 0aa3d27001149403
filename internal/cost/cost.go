// Package cost produces allocation and implicit-copy records, gated by
// the track_costs/warn_costs feature flags. Records are a side channel
// next to diagnostics and never affect accept/reject decisions; with
// warn_costs the P10xx performance advisories are emitted too
// (allocation inside a loop, implicit large copy).
package cost

import (
	"fmt"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/resolver"
	"ember/internal/source"
	"ember/internal/typeck"
	"ember/internal/types"
	"ember/internal/unit"
)

// RecordKind classifies one cost record.
type RecordKind uint8

const (
	// KindAlloc marks an allocation site (aggregate literal, closure
	// environment, string literal).
	KindAlloc RecordKind = iota
	// KindCopy marks an implicit copy of a Copy-semantics value.
	KindCopy
)

func (k RecordKind) String() string {
	if k == KindCopy {
		return "copy"
	}
	return "alloc"
}

// Record is one per-statement cost entry: {function, span, estimated
// bytes, kind}.
type Record struct {
	Function string
	Span     source.Span
	Bytes    uint64
	Kind     RecordKind
	InLoop   bool
}

// largeCopyBytes is the advisory threshold for PerfImplicitCopy.
const largeCopyBytes = 64

type walker struct {
	u   *unit.Unit
	res *resolver.Result
	tck *typeck.Result

	fnName    string
	loopDepth int
	warn      bool
	out       []Record
}

// Run collects cost records for one file. Returns nil unless track_costs
// is set; advisories additionally require warn_costs.
func Run(u *unit.Unit, res *resolver.Result, tck *typeck.Result, fileID ast.FileID) []Record {
	if !u.Flags.TrackCosts {
		return nil
	}
	file := u.Builder.Files.Get(fileID)
	if file == nil {
		return nil
	}
	w := &walker{u: u, res: res, tck: tck, warn: u.Flags.WarnCosts}
	for _, itemID := range file.Items {
		item := u.Builder.Items.Get(itemID)
		if item == nil {
			continue
		}
		switch item.Kind {
		case ast.ItemFn:
			w.visitFn(itemID)
		case ast.ItemImpl:
			if decl, ok := u.Builder.Items.Impl(itemID); ok {
				for _, m := range decl.Methods {
					w.visitFn(m)
				}
			}
		}
	}
	return w.out
}

func (w *walker) visitFn(item ast.ItemID) {
	fn, ok := w.u.Builder.Items.Fn(item)
	if !ok || !fn.Body.IsValid() {
		return
	}
	w.fnName = w.u.Strings.MustLookup(fn.Name)
	w.loopDepth = 0
	w.visitStmt(fn.Body)
}

func (w *walker) visitStmt(id ast.StmtID) {
	stmt := w.u.Builder.Stmts.Get(id)
	if stmt == nil {
		return
	}
	for _, sub := range []ast.ExprID{stmt.Init, stmt.Expr, stmt.Cond, stmt.ForIter, stmt.Scrutinee, stmt.Tail} {
		w.visitExpr(sub)
	}
	for _, armID := range stmt.Arms {
		if arm := w.u.Builder.MatchArms.Get(armID); arm != nil {
			w.visitExpr(arm.Guard)
			w.visitStmt(arm.Body)
		}
	}
	inLoop := stmt.Kind == ast.StmtWhile || stmt.Kind == ast.StmtForIn || stmt.Kind == ast.StmtLoop
	if inLoop {
		w.loopDepth++
	}
	for _, sub := range []ast.StmtID{stmt.ThenBlock, stmt.ElseBlock, stmt.Body} {
		if sub.IsValid() {
			w.visitStmt(sub)
		}
	}
	for _, sub := range stmt.Stmts {
		w.visitStmt(sub)
	}
	if inLoop {
		w.loopDepth--
	}
}

func (w *walker) visitExpr(id ast.ExprID) {
	if !id.IsValid() {
		return
	}
	e := w.u.Builder.Exprs.Get(id)
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprStructLit, ast.ExprArrayLit, ast.ExprLitString, ast.ExprClosureRuntime:
		w.alloc(id, e)
	case ast.ExprCall:
		w.copyArgs(e)
	}
	for _, sub := range []ast.ExprID{e.Lhs, e.Rhs, e.Operand, e.Callee} {
		w.visitExpr(sub)
	}
	for _, sub := range e.Args {
		w.visitExpr(sub)
	}
	for _, sub := range e.Elements {
		w.visitExpr(sub)
	}
	for _, f := range e.Fields {
		w.visitExpr(f.Value)
	}
	if e.ClosureBody.IsValid() {
		w.visitStmt(e.ClosureBody)
	}
}

func (w *walker) alloc(id ast.ExprID, e *ast.Expr) {
	bytes := w.sizeOf(w.tck.TypeOf(id))
	w.out = append(w.out, Record{
		Function: w.fnName,
		Span:     e.Span,
		Bytes:    bytes,
		Kind:     KindAlloc,
		InLoop:   w.loopDepth > 0,
	})
	if w.warn && w.loopDepth > 0 {
		w.u.Diags.Add(diag.NewWarning(diag.PerfAllocInLoop, e.Span,
			fmt.Sprintf("allocation of ~%d bytes inside a loop in %q", bytes, w.fnName)))
	}
}

// copyArgs flags by-value arguments of Copy types whose estimated size
// crosses the advisory threshold.
func (w *walker) copyArgs(e *ast.Expr) {
	for _, arg := range e.Args {
		t := w.tck.TypeOf(arg)
		if t == types.NoTypeID || !w.u.Types.IsCopy(t) {
			continue
		}
		bytes := w.sizeOf(t)
		if bytes < largeCopyBytes {
			continue
		}
		span := source.Span{}
		if ae := w.u.Builder.Exprs.Get(arg); ae != nil {
			span = ae.Span
		}
		w.out = append(w.out, Record{
			Function: w.fnName,
			Span:     span,
			Bytes:    bytes,
			Kind:     KindCopy,
			InLoop:   w.loopDepth > 0,
		})
		if w.warn {
			w.u.Diags.Add(diag.NewWarning(diag.PerfImplicitCopy, span,
				fmt.Sprintf("implicit copy of ~%d bytes in %q", bytes, w.fnName)))
		}
	}
}

// sizeOf is a rough layout estimate: primitives by width, pointers and
// references one word, struct/tuple aggregates summed with a floor of one
// byte.
func (w *walker) sizeOf(t types.TypeID) uint64 {
	return w.sizeOfDepth(t, 0)
}

func (w *walker) sizeOfDepth(t types.TypeID, depth int) uint64 {
	if depth > 8 || t == types.NoTypeID {
		return 8
	}
	tt, ok := w.u.Types.Lookup(t)
	if !ok {
		return 8
	}
	switch tt.Kind {
	case types.KindBool, types.KindChar:
		return 1
	case types.KindInt, types.KindUint, types.KindFloat:
		if tt.Width == types.WidthAny {
			return 4
		}
		return uint64(tt.Width) / 8
	case types.KindString, types.KindSlice:
		return 16 // pointer + length
	case types.KindReference, types.KindPointer, types.KindFunction:
		return 8
	case types.KindArray:
		return uint64(tt.Count) * w.sizeOfDepth(tt.Elem, depth+1)
	case types.KindTuple:
		info, _ := w.u.Types.TupleInfo(t)
		var sum uint64
		for _, el := range info.Elements {
			sum += w.sizeOfDepth(el, depth+1)
		}
		return max(sum, 1)
	case types.KindStruct:
		info, _ := w.u.Types.StructInfo(t)
		var sum uint64
		for _, f := range info.Fields {
			sum += w.sizeOfDepth(f.Type, depth+1)
		}
		return max(sum, 1)
	case types.KindEnum:
		info, _ := w.u.Types.EnumInfo(t)
		var biggest uint64
		for _, v := range info.Variants {
			var sum uint64
			for _, f := range v.Fields {
				sum += w.sizeOfDepth(f, depth+1)
			}
			biggest = max(biggest, sum)
		}
		return biggest + 4 // tag
	case types.KindGenericInst:
		info, _ := w.u.Types.GenericInstInfo(t)
		return w.sizeOfDepth(info.Base, depth+1)
	default:
		return 8
	}
}
