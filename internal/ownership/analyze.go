package ownership

import (
	"fmt"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/resolver"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/typeck"
	"ember/internal/types"
	"ember/internal/unit"
)

// Result is the ownership analysis output.
type Result struct {
	// Captures lists each closure's captured bindings in source appearance
	// order, the order the environment layout uses.
	Captures map[ast.ExprID][]symbols.SymbolID

	// Timeline records per-binding ownership events when the
	// track_timeline feature flag is set.
	Timeline map[symbols.SymbolID][]Event
}

type reportKey struct {
	code diag.Code
	span source.Span
	sym  symbols.SymbolID
}

type analyzer struct {
	u   *unit.Unit
	res *resolver.Result
	tck *typeck.Result
	out *Result

	state flowState

	// deferNeeds maps each binding a recorded defer body reads to the
	// defer statements' spans; a later move of such a binding is an error
	// at the move site.
	deferNeeds map[symbols.SymbolID][]source.Span

	// reported deduplicates diagnostics across loop-fixpoint re-walks.
	reported map[reportKey]bool

	track bool
}

// Run analyzes every function body of one desugared, type-checked file.
func Run(u *unit.Unit, res *resolver.Result, tck *typeck.Result, fileID ast.FileID) *Result {
	out := &Result{Captures: make(map[ast.ExprID][]symbols.SymbolID)}
	file := u.Builder.Files.Get(fileID)
	if file == nil {
		return out
	}
	a := &analyzer{
		u:        u,
		res:      res,
		tck:      tck,
		out:      out,
		reported: make(map[reportKey]bool),
		track:    u.Flags.TrackTimeline,
	}
	if a.track {
		out.Timeline = make(map[symbols.SymbolID][]Event)
	}
	for _, itemID := range file.Items {
		item := u.Builder.Items.Get(itemID)
		if item == nil {
			continue
		}
		switch item.Kind {
		case ast.ItemFn:
			a.analyzeFn(itemID)
		case ast.ItemImpl:
			if decl, ok := u.Builder.Items.Impl(itemID); ok {
				for _, m := range decl.Methods {
					a.analyzeFn(m)
				}
			}
		}
	}
	return out
}

func (a *analyzer) analyzeFn(item ast.ItemID) {
	fn, ok := a.u.Builder.Items.Fn(item)
	if !ok || !fn.Body.IsValid() {
		return
	}
	a.state = make(flowState)
	a.deferNeeds = make(map[symbols.SymbolID][]source.Span)
	a.walkStmt(fn.Body)
}

// stateOf treats unseen bindings as Owned; only transitions are stored.
func (a *analyzer) stateOf(sym symbols.SymbolID) VarState {
	if v, ok := a.state[sym]; ok {
		return v
	}
	return VarState{Status: StatusOwned}
}

func (a *analyzer) report(code diag.Code, span source.Span, sym symbols.SymbolID, msg string) diag.Diagnostic {
	key := reportKey{code: code, span: span, sym: sym}
	if a.reported[key] {
		return diag.Diagnostic{}
	}
	a.reported[key] = true
	d := diag.NewError(code, span, msg)
	if name := a.symName(sym); name != "" {
		d = d.WithVariable(name)
	}
	return d
}

func (a *analyzer) emit(d diag.Diagnostic) {
	if d.Code != diag.UnknownCode {
		a.u.Diags.Add(d)
	}
}

func (a *analyzer) symName(sym symbols.SymbolID) string {
	rec := a.u.Symbols.Symbols.Get(sym)
	if rec == nil {
		return ""
	}
	return a.u.Strings.MustLookup(rec.Name)
}

// isCopy reports whether the type may be duplicated rather than moved.
// Tainted types count as Copy so earlier errors don't cascade here.
func (a *analyzer) isCopy(t types.TypeID) bool {
	if t == types.NoTypeID {
		return true
	}
	return a.u.Types.IsCopy(t)
}

func (a *analyzer) exprType(id ast.ExprID) types.TypeID {
	return a.tck.TypeOf(id)
}

func (a *analyzer) record(sym symbols.SymbolID, ev Event) {
	if a.track && sym.IsValid() {
		a.out.Timeline[sym] = append(a.out.Timeline[sym], ev)
	}
}

// ---- statements ----

func (a *analyzer) walkStmt(id ast.StmtID) {
	stmt := a.u.Builder.Stmts.Get(id)
	if stmt == nil {
		return
	}
	switch stmt.Kind {
	case ast.StmtLet, ast.StmtConst:
		if stmt.Init.IsValid() {
			a.consume(stmt.Init, a.bindingOf(stmt.Pattern))
		}
		a.initializePattern(stmt.Pattern, stmt.Span)

	case ast.StmtExpr:
		a.use(stmt.Expr)

	case ast.StmtReturn, ast.StmtBreak, ast.StmtContinue:
		if stmt.Expr.IsValid() {
			a.consume(stmt.Expr, symbols.NoSymbolID)
		}

	case ast.StmtDefer:
		a.walkDefer(stmt)

	case ast.StmtIf:
		a.use(stmt.Cond)
		before := a.state.clone()
		a.walkStmt(stmt.ThenBlock)
		thenState := a.state
		a.state = before.clone()
		if stmt.ElseBlock.IsValid() {
			a.walkStmt(stmt.ElseBlock)
		}
		a.state = join(thenState, a.state)

	case ast.StmtMatch:
		a.use(stmt.Scrutinee)
		before := a.state.clone()
		var merged flowState
		for _, armID := range stmt.Arms {
			arm := a.u.Builder.MatchArms.Get(armID)
			if arm == nil {
				continue
			}
			a.state = before.clone()
			if arm.Guard.IsValid() {
				a.use(arm.Guard)
			}
			a.walkStmt(arm.Body)
			if merged == nil {
				merged = a.state
			} else {
				merged = join(merged, a.state)
			}
		}
		if merged != nil {
			a.state = merged
		} else {
			a.state = before
		}

	case ast.StmtWhile:
		a.use(stmt.Cond)
		a.loopToFixpoint(stmt.Body)

	case ast.StmtForIn:
		a.use(stmt.ForIter)
		a.initializePattern(stmt.ForVar, stmt.Span)
		a.loopToFixpoint(stmt.Body)

	case ast.StmtLoop:
		a.loopToFixpoint(stmt.Body)

	case ast.StmtBlock:
		for _, sub := range stmt.Stmts {
			a.walkStmt(sub)
		}
		if stmt.Tail.IsValid() {
			a.use(stmt.Tail)
		}
	}
}

// loopToFixpoint iterates a loop body until the state lattice stabilizes.
// Diagnostics deduplicate across re-walks, so a move flagged on the first
// pass is not flagged again.
func (a *analyzer) loopToFixpoint(body ast.StmtID) {
	if !body.IsValid() {
		return
	}
	merged := a.state.clone()
	for {
		a.state = merged.clone()
		a.walkStmt(body)
		next := join(merged, a.state)
		if equalStates(next, merged) {
			break
		}
		merged = next
	}
	a.state = merged
}

func (a *analyzer) walkDefer(stmt *ast.Stmt) {
	if !stmt.Expr.IsValid() {
		return
	}
	// the body is checked under the ownership state at the defer itself
	a.use(stmt.Expr)
	for _, sym := range a.freeVars(stmt.Expr) {
		a.deferNeeds[sym] = append(a.deferNeeds[sym], stmt.Span)
	}
}

// bindingOf returns a plain binding pattern's symbol, for Moved(to=...).
func (a *analyzer) bindingOf(pat ast.PatternID) symbols.SymbolID {
	p := a.u.Builder.Patterns.Get(pat)
	if p == nil || p.Kind != ast.PatternBinding {
		return symbols.NoSymbolID
	}
	return a.res.PatternSymbol[pat]
}

func (a *analyzer) initializePattern(pat ast.PatternID, span source.Span) {
	if !pat.IsValid() {
		return
	}
	p := a.u.Builder.Patterns.Get(pat)
	if p == nil {
		return
	}
	switch p.Kind {
	case ast.PatternBinding:
		if sym, ok := a.res.PatternSymbol[pat]; ok && sym.IsValid() {
			a.state[sym] = VarState{Status: StatusOwned}
			a.record(sym, Event{Kind: EventAllocate, Span: span})
		}
	case ast.PatternTuple, ast.PatternEnumVariant:
		for _, el := range p.Elements {
			a.initializePattern(el, span)
		}
	case ast.PatternStruct:
		for _, f := range p.Fields {
			if f.Pattern.IsValid() {
				a.initializePattern(f.Pattern, span)
			}
		}
	}
}

// ---- expressions ----

// use walks an expression in read position: values are observed, moves
// happen only in sub-positions with value semantics (call args, aggregate
// elements, assignments nested inside).
func (a *analyzer) use(id ast.ExprID) {
	a.walkExpr(id, false)
}

// consume walks an expression in value position: a place expression of a
// non-Copy type transitions to Moved; everything else is
// an ordinary read.
func (a *analyzer) consume(id ast.ExprID, dest symbols.SymbolID) {
	if !id.IsValid() {
		return
	}
	e := a.u.Builder.Exprs.Get(id)
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprIdent:
		if a.isCopy(a.exprType(id)) {
			a.walkExpr(id, false)
			return
		}
		if sym, ok := a.res.SymbolOf(id); ok && a.movableSym(sym) {
			a.moveWhole(sym, e.Span, dest)
			return
		}
		a.walkExpr(id, false)
	case ast.ExprMember:
		if a.isCopy(a.exprType(id)) {
			a.walkExpr(id, false)
			return
		}
		if base, field, ok := a.fieldPlace(e); ok {
			a.moveField(base, field, e.Span)
			return
		}
		a.walkExpr(id, false)
	case ast.ExprGroup:
		a.consume(e.Operand, dest)
	default:
		a.walkExpr(id, false)
	}
}

// consumeQuiet applies the move transition to an already-read place; a
// binding the read check just flagged as moved stays silent here so one
// site yields one diagnostic.
func (a *analyzer) consumeQuiet(id ast.ExprID) {
	e := a.u.Builder.Exprs.Get(id)
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprIdent:
		if a.isCopy(a.exprType(id)) {
			return
		}
		sym, ok := a.res.SymbolOf(id)
		if !ok || !a.movableSym(sym) {
			return
		}
		if a.stateOf(sym).Status == StatusOwned {
			a.moveWhole(sym, e.Span, symbols.NoSymbolID)
		}
	case ast.ExprMember:
		if a.isCopy(a.exprType(id)) {
			return
		}
		if base, field, ok := a.fieldPlace(e); ok {
			if a.stateOf(base).Status != StatusMoved {
				a.moveField(base, field, e.Span)
			}
		}
	}
}

// movableSym filters symbols the tracker owns: let bindings and parameters
// (consts, functions, types have no ownership state).
func (a *analyzer) movableSym(sym symbols.SymbolID) bool {
	rec := a.u.Symbols.Symbols.Get(sym)
	if rec == nil {
		return false
	}
	return rec.Kind == symbols.SymbolLet || rec.Kind == symbols.SymbolParam
}

// fieldPlace decomposes `base.field(...)` into its root binding plus the
// top-level field name, the granularity MovedFields tracks.
func (a *analyzer) fieldPlace(e *ast.Expr) (symbols.SymbolID, source.StringID, bool) {
	cur := e
	field := e.Field
	for {
		op := a.u.Builder.Exprs.Get(cur.Operand)
		if op == nil {
			return symbols.NoSymbolID, source.NoStringID, false
		}
		switch op.Kind {
		case ast.ExprIdent:
			sym, ok := a.res.SymbolOf(cur.Operand)
			if !ok || !a.movableSym(sym) {
				return symbols.NoSymbolID, source.NoStringID, false
			}
			return sym, field, true
		case ast.ExprMember:
			field = op.Field
			cur = op
		default:
			return symbols.NoSymbolID, source.NoStringID, false
		}
	}
}

func (a *analyzer) moveWhole(sym symbols.SymbolID, span source.Span, dest symbols.SymbolID) {
	st := a.stateOf(sym)
	name := a.symName(sym)
	switch st.Status {
	case StatusMoved:
		code := diag.OwnershipDoubleMove
		msg := fmt.Sprintf("value %q moved again after a previous move", name)
		if st.Conditional {
			code = diag.OwnershipConditionalMove
			msg = fmt.Sprintf("value %q may have been moved on a previous path", name)
		}
		d := a.report(code, span, sym, msg)
		if d.Code != diag.UnknownCode && st.MoveSpan != (source.Span{}) {
			d = d.WithNote(st.MoveSpan, "value moved here")
		}
		a.emit(d)
		return
	case StatusPartiallyMoved:
		d := a.report(diag.OwnershipPartialThenWhole, span, sym,
			fmt.Sprintf("cannot move %q as a whole: %s", name, a.movedFieldList(st)))
		a.emit(d)
		return
	}
	a.checkDeferNeeds(sym, span)
	a.state[sym] = VarState{Status: StatusMoved, MovedTo: dest, MoveSpan: span}
	a.record(sym, Event{Kind: EventMove, Span: span, To: dest})
}

func (a *analyzer) moveField(sym symbols.SymbolID, field source.StringID, span source.Span) {
	st := a.stateOf(sym)
	name := a.symName(sym)
	switch st.Status {
	case StatusMoved:
		a.emit(a.report(diag.OwnershipUseOfMoved, span, sym,
			fmt.Sprintf("use of moved value %q", name)))
		return
	case StatusPartiallyMoved:
		if fsSpan, moved := st.MovedFields[field]; moved {
			d := a.report(diag.OwnershipDoubleMove, span, sym,
				fmt.Sprintf("field %q of %q moved again after a previous move", a.u.Strings.MustLookup(field), name))
			if d.Code != diag.UnknownCode {
				d = d.WithNote(fsSpan, "first moved here")
			}
			a.emit(d)
			return
		}
	}
	a.checkDeferNeeds(sym, span)
	fields := st.MovedFields
	if fields == nil {
		fields = make(map[source.StringID]source.Span, 2)
	}
	fields[field] = span
	a.state[sym] = VarState{Status: StatusPartiallyMoved, MovedFields: fields, MoveSpan: span}
	a.record(sym, Event{Kind: EventMove, Span: span})
}

func (a *analyzer) checkDeferNeeds(sym symbols.SymbolID, span source.Span) {
	spans, needed := a.deferNeeds[sym]
	if !needed || len(spans) == 0 {
		return
	}
	d := a.report(diag.OwnershipDeferReadsMoved, span, sym,
		fmt.Sprintf("cannot move %q: a recorded defer still reads it", a.symName(sym)))
	if d.Code != diag.UnknownCode {
		d = d.WithNote(spans[0], "defer recorded here")
	}
	a.emit(d)
}

func (a *analyzer) movedFieldList(st VarState) string {
	out := "field(s) "
	first := true
	for f := range st.MovedFields {
		if !first {
			out += ", "
		}
		out += fmt.Sprintf("%q", a.u.Strings.MustLookup(f))
		first = false
	}
	return out + " already moved"
}

// checkRead reports a read of a moved binding (or moved field).
func (a *analyzer) checkRead(id ast.ExprID, sym symbols.SymbolID, span source.Span) {
	if !a.movableSym(sym) || a.res.IsTainted(id) {
		return
	}
	st := a.stateOf(sym)
	if st.Status != StatusMoved {
		a.record(sym, Event{Kind: EventUse, Span: span})
		return
	}
	name := a.symName(sym)
	code := diag.OwnershipUseOfMoved
	msg := fmt.Sprintf("use of moved value %q", name)
	if st.Conditional {
		code = diag.OwnershipConditionalMove
		msg = fmt.Sprintf("use of conditionally moved value %q", name)
	}
	d := a.report(code, span, sym, msg)
	if d.Code != diag.UnknownCode {
		if st.MoveSpan != (source.Span{}) {
			d = d.WithNote(st.MoveSpan, "value moved here")
		}
		d = d.WithFix(fmt.Sprintf("bind a fresh value to %q before this use", name), diag.ConfidenceMedium)
	}
	a.emit(d)
}

func (a *analyzer) walkExpr(id ast.ExprID, _ bool) {
	if !id.IsValid() {
		return
	}
	e := a.u.Builder.Exprs.Get(id)
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprIdent:
		if sym, ok := a.res.SymbolOf(id); ok {
			a.checkRead(id, sym, e.Span)
		}

	case ast.ExprMember:
		a.walkExpr(e.Operand, false)
		if base, field, ok := a.fieldPlace(e); ok {
			st := a.stateOf(base)
			if st.Status == StatusPartiallyMoved {
				if fsSpan, moved := st.MovedFields[field]; moved {
					d := a.report(diag.OwnershipUseOfMoved, e.Span, base,
						fmt.Sprintf("use of moved field %q of %q", a.u.Strings.MustLookup(field), a.symName(base)))
					if d.Code != diag.UnknownCode {
						d = d.WithNote(fsSpan, "field moved here")
					}
					a.emit(d)
				}
			}
		}

	case ast.ExprCall:
		a.walkCall(e)

	case ast.ExprReference:
		// ownership is unchanged by a borrow; the borrow checker owns
		// conflict and borrow-of-moved reporting for this node
		a.walkExprChildrenOnly(e.Operand)

	case ast.ExprDeref, ast.ExprCast, ast.ExprGroup, ast.ExprUnary:
		a.walkExpr(e.Operand, false)

	case ast.ExprBinary, ast.ExprIndex:
		a.walkExpr(e.Lhs, false)
		a.walkExpr(e.Rhs, false)

	case ast.ExprTuple, ast.ExprArrayLit:
		for _, el := range e.Elements {
			a.consume(el, symbols.NoSymbolID)
		}

	case ast.ExprStructLit:
		for _, f := range e.Fields {
			a.consume(f.Value, symbols.NoSymbolID)
		}

	case ast.ExprEnumConstruct:
		// variant construction consumes its args; the produced value is a
		// fresh ownership, never a move-from
		for _, arg := range e.Args {
			a.consume(arg, symbols.NoSymbolID)
		}

	case ast.ExprAssign:
		a.walkAssign(e)

	case ast.ExprTry:
		a.consume(e.Operand, symbols.NoSymbolID)

	case ast.ExprClosureParam, ast.ExprClosureRuntime:
		a.walkClosure(id, e)
	}
}

// walkExprChildrenOnly skips the moved-read check on a borrowed root
// binding but still visits nested expressions (an index operand, a nested
// call) normally.
func (a *analyzer) walkExprChildrenOnly(id ast.ExprID) {
	e := a.u.Builder.Exprs.Get(id)
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprIdent:
		// root of the borrow: liveness is the borrow checker's concern
	case ast.ExprMember:
		a.walkExprChildrenOnly(e.Operand)
	default:
		a.walkExpr(id, false)
	}
}

func (a *analyzer) walkCall(e *ast.Expr) {
	callee := a.u.Builder.Exprs.Get(e.Callee)

	// explicit drop requires Owned or fully-moved
	if callee != nil && callee.Kind == ast.ExprIdent && len(callee.Path) == 1 &&
		a.u.Strings.MustLookup(callee.Path[len(callee.Path)-1]) == "drop" && len(e.Args) == 1 {
		a.walkDrop(e.Args[0])
		return
	}

	if callee != nil && callee.Kind == ast.ExprMember {
		a.walkReceiver(e.Callee, callee)
	} else {
		a.walkExpr(e.Callee, false)
	}

	for _, arg := range e.Args {
		ae := a.u.Builder.Exprs.Get(arg)
		if ae != nil && ae.Kind == ast.ExprReference {
			// by-reference argument: a borrow, ownership unchanged
			a.walkExpr(arg, false)
			continue
		}
		a.consume(arg, symbols.NoSymbolID)
	}
}

// walkReceiver moves or borrows the receiver according to the resolved
// method's self parameter.
func (a *analyzer) walkReceiver(calleeID ast.ExprID, callee *ast.Expr) {
	a.walkExpr(callee.Operand, false)
	msym := a.tck.MethodSymbol[calleeID]
	rec := a.u.Symbols.Symbols.Get(msym)
	if rec == nil || rec.Signature == nil {
		return
	}
	recv, ok := a.u.Types.Lookup(rec.Signature.Receiver)
	byValue := !ok || recv.Kind != types.KindReference
	if byValue && !a.isCopy(a.exprType(callee.Operand)) {
		a.consumeQuiet(callee.Operand)
	}
}

func (a *analyzer) walkDrop(arg ast.ExprID) {
	e := a.u.Builder.Exprs.Get(arg)
	if e == nil || e.Kind != ast.ExprIdent {
		a.consume(arg, symbols.NoSymbolID)
		return
	}
	sym, ok := a.res.SymbolOf(arg)
	if !ok || !a.movableSym(sym) {
		return
	}
	st := a.stateOf(sym)
	switch st.Status {
	case StatusPartiallyMoved:
		a.emit(a.report(diag.OwnershipPartialThenWhole, e.Span, sym,
			fmt.Sprintf("cannot drop %q: %s", a.symName(sym), a.movedFieldList(st))))
	case StatusOwned:
		a.checkDeferNeeds(sym, e.Span)
		a.state[sym] = VarState{Status: StatusMoved, MoveSpan: e.Span}
		a.record(sym, Event{Kind: EventDrop, Span: e.Span})
	}
}

func (a *analyzer) walkAssign(e *ast.Expr) {
	a.consume(e.Rhs, symbols.NoSymbolID)
	lhs := a.u.Builder.Exprs.Get(e.Lhs)
	if lhs == nil {
		return
	}
	switch lhs.Kind {
	case ast.ExprIdent:
		// reassignment restores Owned, even from Moved
		if sym, ok := a.res.SymbolOf(e.Lhs); ok && a.movableSym(sym) {
			a.state[sym] = VarState{Status: StatusOwned}
			a.record(sym, Event{Kind: EventAllocate, Span: e.Span})
		}
	case ast.ExprMember:
		base, field, ok := a.fieldPlace(lhs)
		if !ok {
			a.walkExpr(e.Lhs, false)
			return
		}
		st := a.stateOf(base)
		switch st.Status {
		case StatusMoved:
			a.emit(a.report(diag.OwnershipUseOfMoved, lhs.Span, base,
				fmt.Sprintf("cannot assign into field of moved value %q", a.symName(base))))
		case StatusPartiallyMoved:
			// writing the moved field back restores it
			delete(st.MovedFields, field)
			if len(st.MovedFields) == 0 {
				a.state[base] = VarState{Status: StatusOwned}
			} else {
				a.state[base] = st
			}
		}
	default:
		a.walkExpr(e.Lhs, false)
	}
}

// walkClosure computes the capture set (the body's free variables) and
// applies capture semantics: `move` closures transfer each
// capture's ownership at construction; borrowing closures require each
// capture to still be live.
func (a *analyzer) walkClosure(id ast.ExprID, e *ast.Expr) {
	captures := a.captureSet(id, e)
	a.out.Captures[id] = captures

	for _, sym := range captures {
		st := a.stateOf(sym)
		if st.Status == StatusMoved {
			d := a.report(diag.OwnershipCaptureOfMoved, e.Span, sym,
				fmt.Sprintf("closure captures moved value %q", a.symName(sym)))
			if d.Code != diag.UnknownCode && st.MoveSpan != (source.Span{}) {
				d = d.WithNote(st.MoveSpan, "value moved here")
			}
			a.emit(d)
			continue
		}
		if e.Kind == ast.ExprClosureRuntime && e.ClosureIsMove {
			a.moveWhole(sym, e.Span, symbols.NoSymbolID)
		}
	}

	// the body runs later; check it under a scratch state so its own
	// moves don't leak into the enclosing flow
	saved := a.state
	a.state = saved.clone()
	if e.Kind == ast.ExprClosureRuntime && e.ClosureIsMove {
		for _, sym := range captures {
			a.state[sym] = VarState{Status: StatusOwned}
		}
	}
	a.walkStmt(e.ClosureBody)
	a.state = saved
}

// captureSet is the syntactic free-variable computation:
// identifiers resolving to let/param bindings declared outside the closure
// scope, in first-appearance order.
func (a *analyzer) captureSet(id ast.ExprID, e *ast.Expr) []symbols.SymbolID {
	boundary := a.res.ScopeOfExpr[id]
	seen := make(map[symbols.SymbolID]bool)
	var out []symbols.SymbolID
	a.collectFree(e.ClosureBody, boundary, seen, &out)
	return out
}

func (a *analyzer) scopeWithin(scope, boundary symbols.ScopeID) bool {
	for cur := scope; cur.IsValid(); {
		if cur == boundary {
			return true
		}
		sc := a.u.Symbols.Scopes.Get(cur)
		if sc == nil {
			return false
		}
		cur = sc.Parent
	}
	return false
}

func (a *analyzer) collectFree(id ast.StmtID, boundary symbols.ScopeID, seen map[symbols.SymbolID]bool, out *[]symbols.SymbolID) {
	stmt := a.u.Builder.Stmts.Get(id)
	if stmt == nil {
		return
	}
	a.collectFreeExpr(stmt.Init, boundary, seen, out)
	a.collectFreeExpr(stmt.Expr, boundary, seen, out)
	a.collectFreeExpr(stmt.Cond, boundary, seen, out)
	a.collectFreeExpr(stmt.ForIter, boundary, seen, out)
	a.collectFreeExpr(stmt.Scrutinee, boundary, seen, out)
	a.collectFreeExpr(stmt.Tail, boundary, seen, out)
	for _, armID := range stmt.Arms {
		if arm := a.u.Builder.MatchArms.Get(armID); arm != nil {
			a.collectFreeExpr(arm.Guard, boundary, seen, out)
			a.collectFree(arm.Body, boundary, seen, out)
		}
	}
	for _, sub := range []ast.StmtID{stmt.ThenBlock, stmt.ElseBlock, stmt.Body} {
		if sub.IsValid() {
			a.collectFree(sub, boundary, seen, out)
		}
	}
	for _, sub := range stmt.Stmts {
		a.collectFree(sub, boundary, seen, out)
	}
}

func (a *analyzer) collectFreeExpr(id ast.ExprID, boundary symbols.ScopeID, seen map[symbols.SymbolID]bool, out *[]symbols.SymbolID) {
	if !id.IsValid() {
		return
	}
	e := a.u.Builder.Exprs.Get(id)
	if e == nil {
		return
	}
	if e.Kind == ast.ExprIdent {
		sym, ok := a.res.SymbolOf(id)
		if !ok || seen[sym] || !a.movableSym(sym) {
			return
		}
		rec := a.u.Symbols.Symbols.Get(sym)
		if rec == nil {
			return
		}
		if boundary.IsValid() && a.scopeWithin(rec.Scope, boundary) {
			return // local to the closure
		}
		seen[sym] = true
		*out = append(*out, sym)
		return
	}
	for _, sub := range []ast.ExprID{e.Lhs, e.Rhs, e.Operand, e.Callee, e.WithInit} {
		a.collectFreeExpr(sub, boundary, seen, out)
	}
	for _, sub := range e.Args {
		a.collectFreeExpr(sub, boundary, seen, out)
	}
	for _, sub := range e.Elements {
		a.collectFreeExpr(sub, boundary, seen, out)
	}
	for _, f := range e.Fields {
		a.collectFreeExpr(f.Value, boundary, seen, out)
	}
	if e.ClosureBody.IsValid() {
		a.collectFree(e.ClosureBody, boundary, seen, out)
	}
}

// freeVars collects the let/param bindings an expression references, for
// defer-liveness bookkeeping.
func (a *analyzer) freeVars(id ast.ExprID) []symbols.SymbolID {
	seen := make(map[symbols.SymbolID]bool)
	var out []symbols.SymbolID
	a.collectFreeExpr(id, symbols.NoScopeID, seen, &out)
	return out
}
