package borrow

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

// Result is the borrow checker's output.
type Result struct {
	// Borrows lists every borrow created, in creation order.
	Borrows []Record

	// Timeline holds per-binding borrow events when track_timeline is on.
	Timeline map[symbols.SymbolID][]Event
}

type checker struct {
	u   *unit.Unit
	res *resolver.Result
	tck *typeck.Result
	out *Result

	live   []Record
	nextID uint32
	depth  int

	// movedAt approximates the ownership pass's verdicts linearly, only to
	// catch borrow-of-moved (P0382); the ownership analyzer remains the
	// authority on move errors themselves.
	movedAt map[symbols.SymbolID]source.Span

	fnItem ast.ItemID
	track  bool
}

// Run borrow-checks every function body of one desugared, type-checked
// file.
func Run(u *unit.Unit, res *resolver.Result, tck *typeck.Result, fileID ast.FileID) *Result {
	out := &Result{}
	file := u.Builder.Files.Get(fileID)
	if file == nil {
		return out
	}
	c := &checker{u: u, res: res, tck: tck, out: out, track: u.Flags.TrackTimeline}
	if c.track {
		out.Timeline = make(map[symbols.SymbolID][]Event)
	}
	for _, itemID := range file.Items {
		item := u.Builder.Items.Get(itemID)
		if item == nil {
			continue
		}
		switch item.Kind {
		case ast.ItemFn:
			c.checkFn(itemID)
		case ast.ItemImpl:
			if decl, ok := u.Builder.Items.Impl(itemID); ok {
				for _, m := range decl.Methods {
					c.checkFn(m)
				}
			}
		}
	}
	return out
}

func (c *checker) checkFn(item ast.ItemID) {
	fn, ok := c.u.Builder.Items.Fn(item)
	if !ok || !fn.Body.IsValid() {
		return
	}
	c.live = c.live[:0]
	c.movedAt = make(map[symbols.SymbolID]source.Span)
	c.depth = 0
	c.fnItem = item
	c.walkStmt(fn.Body)
}

func (c *checker) symName(sym symbols.SymbolID) string {
	rec := c.u.Symbols.Symbols.Get(sym)
	if rec == nil {
		return "_"
	}
	return c.u.Strings.MustLookup(rec.Name)
}

func (c *checker) placeName(p Place) string {
	name := c.symName(p.Base)
	if p.Field != source.NoStringID {
		name += "." + c.u.Strings.MustLookup(p.Field)
	}
	return name
}

// newBorrow enforces shared-XOR-exclusive at the creation site
// and registers the borrow.
func (c *checker) newBorrow(kind Kind, place Place, span source.Span, lifetime source.StringID, temp bool, holder symbols.SymbolID) {
	if !place.Base.IsValid() {
		return
	}
	if moveSpan, moved := c.movedAt[place.Base]; moved {
		d := diag.NewError(diag.BorrowOfMoved, span,
			fmt.Sprintf("cannot borrow %q: value was moved", c.placeName(place))).
			WithVariable(c.symName(place.Base)).
			WithNote(moveSpan, "value moved here").
			WithFix("borrow before the move, or restructure so the move happens later", diag.ConfidenceMedium)
		c.u.Diags.Add(d)
	}
	for i := range c.live {
		b := &c.live[i]
		if !b.Place.Overlaps(place) {
			continue
		}
		switch {
		case kind == Exclusive && b.Kind == Exclusive:
			c.u.Diags.Add(diag.NewError(diag.BorrowMultipleMut, span,
				fmt.Sprintf("cannot borrow %q as mutable more than once", c.placeName(place))).
				WithVariable(c.symName(place.Base)).
				WithNote(b.Span, "first mutable borrow here").
				WithFix("end the first mutable borrow before creating the second", diag.ConfidenceHigh))
		case kind == Exclusive && b.Kind == Shared:
			c.u.Diags.Add(diag.NewError(diag.BorrowMutWhileShared, span,
				fmt.Sprintf("cannot borrow %q as mutable: an immutable borrow is live", c.placeName(place))).
				WithVariable(c.symName(place.Base)).
				WithNote(b.Span, "immutable borrow created here").
				WithFix("narrow the immutable borrow's scope so it ends before this point", diag.ConfidenceHigh))
		case kind == Shared && b.Kind == Exclusive:
			c.u.Diags.Add(diag.NewError(diag.BorrowSharedWhileMut, span,
				fmt.Sprintf("cannot borrow %q as immutable: a mutable borrow is live", c.placeName(place))).
				WithVariable(c.symName(place.Base)).
				WithNote(b.Span, "mutable borrow created here"))
		}
	}
	c.nextID++
	rec := Record{
		ID:       c.nextID,
		Kind:     kind,
		Place:    place,
		Lifetime: lifetime,
		Span:     span,
		Depth:    c.depth,
		Temp:     temp,
		Holder:   holder,
	}
	c.live = append(c.live, rec)
	c.out.Borrows = append(c.out.Borrows, rec)
	if c.track {
		ev := Event{Kind: EventBorrowShared, Span: span, Place: place}
		if kind == Exclusive {
			ev.Kind = EventBorrowExclusive
		}
		c.out.Timeline[place.Base] = append(c.out.Timeline[place.Base], ev)
	}
}

func (c *checker) killWhere(pred func(*Record) bool) {
	kept := c.live[:0]
	for i := range c.live {
		b := c.live[i]
		if pred(&b) {
			if c.track {
				c.out.Timeline[b.Place.Base] = append(c.out.Timeline[b.Place.Base],
					Event{Kind: EventRelease, Span: b.Span, Place: b.Place})
			}
			continue
		}
		kept = append(kept, b)
	}
	c.live = kept
}

// checkOwnerRead rejects reading a place whose exclusive borrow is
// outstanding.
func (c *checker) checkOwnerRead(place Place, span source.Span) {
	for i := range c.live {
		b := &c.live[i]
		if b.Kind == Exclusive && b.Place.Overlaps(place) {
			c.u.Diags.Add(diag.NewError(diag.BorrowSharedWhileMut, span,
				fmt.Sprintf("cannot use %q while it is mutably borrowed", c.placeName(place))).
				WithVariable(c.symName(place.Base)).
				WithNote(b.Span, "mutable borrow created here"))
			return
		}
	}
}

// checkOwnerWrite rejects assigning through the owner while any borrow of
// the place is live.
func (c *checker) checkOwnerWrite(place Place, span source.Span) {
	for i := range c.live {
		b := &c.live[i]
		if !b.Place.Overlaps(place) {
			continue
		}
		code := diag.BorrowMutWhileShared
		msg := fmt.Sprintf("cannot assign to %q: an immutable borrow is live", c.placeName(place))
		if b.Kind == Exclusive {
			code = diag.BorrowSharedWhileMut
			msg = fmt.Sprintf("cannot assign to %q while it is mutably borrowed", c.placeName(place))
		}
		c.u.Diags.Add(diag.NewError(code, span, msg).
			WithVariable(c.symName(place.Base)).
			WithNote(b.Span, "borrow created here"))
		return
	}
}

// checkMove rejects moving a place out while a borrow of it is live, then
// records the move for borrow-of-moved detection.
func (c *checker) checkMove(place Place, span source.Span) {
	for i := range c.live {
		b := &c.live[i]
		if b.Place.Overlaps(place) {
			c.u.Diags.Add(diag.NewError(diag.BorrowNotLongEnough, span,
				fmt.Sprintf("cannot move %q: it is borrowed", c.placeName(place))).
				WithVariable(c.symName(place.Base)).
				WithNote(b.Span, "borrow created here"))
			break
		}
	}
	if place.Field == source.NoStringID {
		c.movedAt[place.Base] = span
	}
}

// ---- traversal ----

func (c *checker) walkStmt(id ast.StmtID) {
	stmt := c.u.Builder.Stmts.Get(id)
	if stmt == nil {
		return
	}
	switch stmt.Kind {
	case ast.StmtLet, ast.StmtConst:
		c.walkLet(stmt)
		c.killTemps()

	case ast.StmtExpr, ast.StmtDefer:
		c.walkExpr(stmt.Expr, false)
		c.killTemps()

	case ast.StmtReturn:
		c.walkReturn(stmt)
		c.killTemps()

	case ast.StmtBreak, ast.StmtContinue:
		c.walkExpr(stmt.Expr, false)
		c.killTemps()

	case ast.StmtIf:
		c.walkExpr(stmt.Cond, false)
		c.killTemps()
		c.walkStmt(stmt.ThenBlock)
		c.walkStmt(stmt.ElseBlock)

	case ast.StmtMatch:
		c.walkExpr(stmt.Scrutinee, false)
		c.killTemps()
		for _, armID := range stmt.Arms {
			if arm := c.u.Builder.MatchArms.Get(armID); arm != nil {
				c.walkExpr(arm.Guard, false)
				c.walkStmt(arm.Body)
			}
		}

	case ast.StmtWhile:
		c.walkExpr(stmt.Cond, false)
		c.killTemps()
		c.walkStmt(stmt.Body)

	case ast.StmtForIn:
		c.walkExpr(stmt.ForIter, false)
		c.killTemps()
		c.walkStmt(stmt.Body)

	case ast.StmtLoop:
		c.walkStmt(stmt.Body)

	case ast.StmtBlock:
		c.depth++
		entered := c.depth
		for _, sub := range stmt.Stmts {
			c.walkStmt(sub)
		}
		if stmt.Tail.IsValid() {
			c.walkExpr(stmt.Tail, false)
		}
		c.killWhere(func(b *Record) bool { return b.Depth >= entered })
		c.depth--
	}
}

func (c *checker) killTemps() {
	c.killWhere(func(b *Record) bool { return b.Temp })
}

// walkLet handles the binding forms that matter to borrows: a reference
// initializer creates a binding-held borrow; a non-Copy place initializer
// is a move.
func (c *checker) walkLet(stmt *ast.Stmt) {
	if !stmt.Init.IsValid() {
		return
	}
	init := c.u.Builder.Exprs.Get(stmt.Init)
	holder := symbols.NoSymbolID
	if p := c.u.Builder.Patterns.Get(stmt.Pattern); p != nil && p.Kind == ast.PatternBinding {
		holder = c.res.PatternSymbol[stmt.Pattern]
	}
	if init != nil && init.Kind == ast.ExprReference {
		c.walkExpr(init.Operand, true)
		if place, ok := c.placeOf(init.Operand); ok {
			kind := Shared
			if init.Mutable {
				kind = Exclusive
			}
			c.newBorrow(kind, place, init.Span, c.refLifetime(stmt.Init), false, holder)
		}
		return
	}
	c.walkExpr(stmt.Init, false)
	if c.isMovingRead(stmt.Init) {
		if place, ok := c.placeOf(stmt.Init); ok {
			c.checkMove(place, exprSpan(c.u, stmt.Init))
		}
	}
}

// refLifetime extracts the symbolic label of a reference-typed expression.
func (c *checker) refLifetime(id ast.ExprID) source.StringID {
	t, ok := c.u.Types.Lookup(c.tck.TypeOf(id))
	if !ok || t.Kind != types.KindReference {
		return source.NoStringID
	}
	return t.Lifetime
}

// isMovingRead reports whether an initializer is a place read of a
// non-Copy type (a move, not a copy).
func (c *checker) isMovingRead(id ast.ExprID) bool {
	e := c.u.Builder.Exprs.Get(id)
	if e == nil || (e.Kind != ast.ExprIdent && e.Kind != ast.ExprMember) {
		return false
	}
	t := c.tck.TypeOf(id)
	return t != types.NoTypeID && !c.u.Types.IsCopy(t)
}

// walkReturn validates returned references: a returned borrow must name an
// input lifetime; borrowing a local in return position cannot outlive the
// call.
func (c *checker) walkReturn(stmt *ast.Stmt) {
	if !stmt.Expr.IsValid() {
		return
	}
	c.walkExpr(stmt.Expr, false)

	retE := c.u.Builder.Exprs.Get(stmt.Expr)
	retT, ok := c.u.Types.Lookup(c.tck.TypeOf(stmt.Expr))
	isRefReturn := ok && retT.Kind == types.KindReference
	if retE != nil && retE.Kind == ast.ExprReference {
		if place, okP := c.placeOf(retE.Operand); okP {
			if c.isLocalBinding(place.Base) {
				c.u.Diags.Add(diag.NewError(diag.BorrowNotLongEnough, retE.Span,
					fmt.Sprintf("%q does not live long enough: it is dropped when the function returns", c.placeName(place))).
					WithVariable(c.symName(place.Base)).
					WithFix("return the value by move instead of by reference", diag.ConfidenceHigh))
				return
			}
		}
		isRefReturn = true
	}
	if !isRefReturn {
		return
	}

	info, okInfo := c.tck.Lifetimes[c.fnItem]
	if !okInfo {
		return
	}
	if info.Return == source.NoStringID {
		if len(info.Inputs) > 1 {
			c.u.Diags.Add(diag.NewError(diag.BorrowReturnUnlabeled, exprSpan(c.u, stmt.Expr),
				"returned reference does not name an input lifetime; annotate the signature"))
		}
		return
	}
	for _, in := range info.Inputs {
		if in == info.Return {
			return
		}
	}
	c.u.Diags.Add(diag.NewError(diag.BorrowReturnUnlabeled, exprSpan(c.u, stmt.Expr),
		fmt.Sprintf("returned reference lifetime %s is not an input lifetime", c.u.Strings.MustLookup(info.Return))))
}

// isLocalBinding reports whether sym is a let binding (whose storage dies
// with the function), as opposed to a parameter.
func (c *checker) isLocalBinding(sym symbols.SymbolID) bool {
	rec := c.u.Symbols.Symbols.Get(sym)
	return rec != nil && rec.Kind == symbols.SymbolLet
}

// walkExpr visits an expression; inBorrow suppresses the owner-read check
// for the place being borrowed (the borrow itself is the access).
func (c *checker) walkExpr(id ast.ExprID, inBorrow bool) {
	if !id.IsValid() {
		return
	}
	e := c.u.Builder.Exprs.Get(id)
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprIdent:
		if inBorrow {
			return
		}
		if place, ok := c.placeOf(id); ok {
			c.checkOwnerRead(place, e.Span)
		}

	case ast.ExprMember:
		c.walkExpr(e.Operand, inBorrow)

	case ast.ExprReference:
		c.walkExpr(e.Operand, true)
		if place, ok := c.placeOf(e.Operand); ok {
			kind := Shared
			if e.Mutable {
				kind = Exclusive
			}
			c.newBorrow(kind, place, e.Span, source.NoStringID, true, symbols.NoSymbolID)
		}

	case ast.ExprCall:
		c.walkCall(e)

	case ast.ExprAssign:
		c.walkExpr(e.Rhs, false)
		if place, ok := c.placeOf(e.Lhs); ok {
			c.checkOwnerWrite(place, e.Span)
			if place.Field == source.NoStringID {
				delete(c.movedAt, place.Base)
			}
		} else {
			c.walkExpr(e.Lhs, false)
		}

	case ast.ExprUnary, ast.ExprDeref, ast.ExprCast, ast.ExprGroup, ast.ExprTry:
		c.walkExpr(e.Operand, inBorrow)

	case ast.ExprBinary, ast.ExprIndex:
		c.walkExpr(e.Lhs, false)
		c.walkExpr(e.Rhs, false)

	case ast.ExprTuple, ast.ExprArrayLit:
		for _, el := range e.Elements {
			c.walkExpr(el, false)
		}

	case ast.ExprStructLit:
		for _, f := range e.Fields {
			c.walkExpr(f.Value, false)
		}

	case ast.ExprEnumConstruct:
		for _, arg := range e.Args {
			c.walkExpr(arg, false)
		}

	case ast.ExprClosureParam, ast.ExprClosureRuntime:
		c.walkStmt(e.ClosureBody)
	}
}

// walkCall synthesizes temp borrows for reference arguments and the auto-
// referenced method receiver.
func (c *checker) walkCall(e *ast.Expr) {
	callee := c.u.Builder.Exprs.Get(e.Callee)
	if callee != nil && callee.Kind == ast.ExprMember {
		c.walkExpr(callee.Operand, true)
		if msym := c.tck.MethodSymbol[e.Callee]; msym.IsValid() {
			if rec := c.u.Symbols.Symbols.Get(msym); rec != nil && rec.Signature != nil {
				if recv, ok := c.u.Types.Lookup(rec.Signature.Receiver); ok && recv.Kind == types.KindReference {
					if place, okP := c.placeOf(callee.Operand); okP {
						kind := Shared
						if recv.Mutable {
							kind = Exclusive
						}
						c.newBorrow(kind, place, callee.Span, source.NoStringID, true, symbols.NoSymbolID)
					}
				}
			}
		}
	} else {
		c.walkExpr(e.Callee, false)
	}
	for _, arg := range e.Args {
		c.walkExpr(arg, false)
	}
}

// placeOf maps a place expression (`x` or `x.field...`) to its Place.
func (c *checker) placeOf(id ast.ExprID) (Place, bool) {
	e := c.u.Builder.Exprs.Get(id)
	if e == nil {
		return Place{}, false
	}
	switch e.Kind {
	case ast.ExprIdent:
		sym, ok := c.res.SymbolOf(id)
		if !ok || !sym.IsValid() {
			return Place{}, false
		}
		rec := c.u.Symbols.Symbols.Get(sym)
		if rec == nil || (rec.Kind != symbols.SymbolLet && rec.Kind != symbols.SymbolParam) {
			return Place{}, false
		}
		return Place{Base: sym}, true
	case ast.ExprMember:
		cur := e
		field := e.Field
		for {
			op := c.u.Builder.Exprs.Get(cur.Operand)
			if op == nil {
				return Place{}, false
			}
			switch op.Kind {
			case ast.ExprIdent:
				base, ok := c.placeOf(cur.Operand)
				if !ok {
					return Place{}, false
				}
				base.Field = field
				return base, true
			case ast.ExprMember:
				field = op.Field
				cur = op
			default:
				return Place{}, false
			}
		}
	case ast.ExprGroup:
		return c.placeOf(e.Operand)
	default:
		return Place{}, false
	}
}

func exprSpan(u *unit.Unit, id ast.ExprID) source.Span {
	if e := u.Builder.Exprs.Get(id); e != nil {
		return e.Span
	}
	return source.Span{}
}
