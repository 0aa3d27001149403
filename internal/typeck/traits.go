package typeck

import (
	"fmt"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// pendingInst is a generic instantiation whose arguments may still gain
// bindings from later inference; it is resolved, bound-checked, and
// reported to the recorder in finalize.
type pendingInst struct {
	sym    symbols.SymbolID
	args   []types.TypeID
	span   source.Span
	caller symbols.SymbolID
}

func (c *checker) checkCall(_ ast.ExprID, e *ast.Expr) types.TypeID {
	callee := c.u.Builder.Exprs.Get(e.Callee)
	if callee == nil {
		return types.NoTypeID
	}
	if callee.Kind == ast.ExprMember {
		return c.checkMethodCall(e, callee)
	}

	if callee.Kind == ast.ExprIdent {
		if sym, ok := c.res.SymbolOf(e.Callee); ok {
			rec := c.u.Symbols.Symbols.Get(sym)
			if rec != nil && rec.Signature != nil &&
				(rec.Kind == symbols.SymbolFunction || rec.Kind == symbols.SymbolExtern) {
				c.out.ExprType[e.Callee] = rec.Type
				return c.checkCallToFn(e, sym, rec)
			}
		}
	}

	// calling through a function-typed value
	t := c.checkExpr(e.Callee, types.NoTypeID)
	info, ok := c.u.Types.FnInfo(c.resolve(t))
	if !ok {
		if t != types.NoTypeID && !c.exprTainted(e.Callee) {
			c.u.Diags.Add(diag.NewError(diag.TypeMismatch, e.Span,
				fmt.Sprintf("value of type %s is not callable", c.typeString(t))))
		}
		for _, a := range e.Args {
			c.checkExpr(a, types.NoTypeID)
		}
		return types.NoTypeID
	}
	c.checkArgs(e, info.Params, nil, nil, 0)
	return info.Return
}

func (c *checker) checkCallToFn(e *ast.Expr, sym symbols.SymbolID, rec *symbols.Symbol) types.TypeID {
	sig := rec.Signature
	declVars := c.paramVars[sym]
	var mapping map[types.TypeID]types.TypeID
	var fresh []types.TypeID
	if len(declVars) > 0 {
		mapping = make(map[types.TypeID]types.TypeID, len(declVars))
		fresh = make([]types.TypeID, len(declVars))
		for i, v := range declVars {
			fresh[i] = c.freshVar()
			mapping[v] = fresh[i]
		}
	}

	c.checkArgs(e, sig.ParamTypes, mapping, nil, 0)

	if len(fresh) > 0 {
		var caller symbols.SymbolID
		if c.fn != nil {
			caller = c.fn.sym
		}
		c.pendingFnInsts = append(c.pendingFnInsts, pendingInst{sym: sym, args: fresh, span: e.Span, caller: caller})
	}
	return c.substWith(sig.Return, mapping, nil)
}

// checkMethodCall implements method lookup order: inherent impl
// methods first, then exactly one trait-supplied method, with one step of
// automatic referencing/dereferencing on the receiver.
func (c *checker) checkMethodCall(e *ast.Expr, callee *ast.Expr) types.TypeID {
	recvT := c.checkExpr(callee.Operand, types.NoTypeID)
	if recvT == types.NoTypeID || c.exprTainted(callee.Operand) {
		for _, a := range e.Args {
			c.checkExpr(a, types.NoTypeID)
		}
		return types.NoTypeID
	}
	lookupBase, _ := c.nominalParts(c.stripRefs(recvT))

	implRec, msym, found, ambiguous := c.findMethod(lookupBase, callee.Field)
	name := c.u.Strings.MustLookup(callee.Field)
	if ambiguous {
		c.u.Diags.Add(diag.NewError(diag.TraitAmbiguousMethod, callee.Span,
			fmt.Sprintf("multiple traits supply method %q for %s", name, c.typeString(lookupBase))).
			WithFix(fmt.Sprintf("qualify the call as <%s as Trait>::%s", c.typeString(lookupBase), name), diag.ConfidenceMedium))
		return types.NoTypeID
	}
	if !found {
		c.u.Diags.Add(diag.NewError(diag.TypeUnknownMethod, callee.Span,
			fmt.Sprintf("no method %q on type %s", name, c.typeString(lookupBase))))
		return types.NoTypeID
	}

	c.out.MethodSymbol[e.Callee] = msym
	mrec := c.u.Symbols.Symbols.Get(msym)
	if mrec == nil || mrec.Signature == nil {
		return types.NoTypeID
	}
	c.out.ExprType[e.Callee] = mrec.Type
	sig := mrec.Signature

	var instVars []types.TypeID
	instVars = append(instVars, c.implVars[c.methodImpl[msym]]...)
	instVars = append(instVars, c.paramVars[msym]...)
	var mapping map[types.TypeID]types.TypeID
	var fresh []types.TypeID
	if len(instVars) > 0 {
		mapping = make(map[types.TypeID]types.TypeID, len(instVars))
		fresh = make([]types.TypeID, len(instVars))
		for i, v := range instVars {
			fresh[i] = c.freshVar()
			mapping[v] = fresh[i]
		}
	}
	var assoc map[source.StringID]types.TypeID
	if implRec != nil {
		assoc = implRec.AssocTypes
	}

	argOffset := 0
	if sig.Receiver != types.NoTypeID && len(sig.ParamTypes) > 0 {
		argOffset = 1
		c.unifyReceiver(callee, c.substWith(sig.ParamTypes[0], mapping, assoc), recvT)
	}
	c.checkArgs(e, sig.ParamTypes, mapping, assoc, argOffset)

	if len(fresh) > 0 {
		var caller symbols.SymbolID
		if c.fn != nil {
			caller = c.fn.sym
		}
		c.pendingFnInsts = append(c.pendingFnInsts, pendingInst{sym: msym, args: fresh, span: e.Span, caller: caller})
	}
	return c.substWith(sig.Return, mapping, assoc)
}

// unifyReceiver applies up-to-one-step auto-referencing: a method
// expecting &self accepts a by-value receiver (a borrow is synthesized),
// and a by-value receiver type accepts a reference (one auto-deref).
func (c *checker) unifyReceiver(callee *ast.Expr, expected, actual types.TypeID) {
	er, ar := c.resolve(expected), c.resolve(actual)
	te, okE := c.u.Types.Lookup(er)
	ta, okA := c.u.Types.Lookup(ar)
	if okE && okA {
		if te.Kind == types.KindReference && ta.Kind != types.KindReference {
			if c.unify(te.Elem, ar) {
				return
			}
		}
		if te.Kind != types.KindReference && ta.Kind == types.KindReference {
			if c.unify(er, ta.Elem) {
				return
			}
		}
	}
	if !c.unifyCoerce(er, ar) {
		c.reportMismatch(callee.Span, expected, actual)
	}
}

func (c *checker) checkArgs(e *ast.Expr, params []types.TypeID, mapping map[types.TypeID]types.TypeID, assoc map[source.StringID]types.TypeID, offset int) {
	want := len(params) - offset
	if len(e.Args) != want {
		c.u.Diags.Add(diag.NewError(diag.TypeMismatch, e.Span,
			fmt.Sprintf("wrong number of arguments: expected %d, got %d", want, len(e.Args))))
	}
	for i, a := range e.Args {
		pi := i + offset
		if pi >= len(params) {
			c.checkExpr(a, types.NoTypeID)
			continue
		}
		expected := c.substWith(params[pi], mapping, assoc)
		got := c.checkExpr(a, expected)
		c.expectAt(a, expected, got)
	}
}

// findMethod searches inherent impls, then trait impls, for a method on
// base. The bool pair is (found, ambiguous).
func (c *checker) findMethod(base types.TypeID, name source.StringID) (*symbols.ImplRecord, symbols.SymbolID, bool, bool) {
	impls := c.u.Symbols.Impls.ForTarget(base)
	for _, rec := range impls {
		if rec.Trait.IsValid() {
			continue
		}
		if m, ok := rec.Methods[name]; ok {
			return rec, m, true, false
		}
	}
	var foundRec *symbols.ImplRecord
	var foundSym symbols.SymbolID
	count := 0
	for _, rec := range impls {
		if !rec.Trait.IsValid() {
			continue
		}
		if m, ok := rec.Methods[name]; ok {
			foundRec, foundSym = rec, m
			count++
		}
	}
	switch count {
	case 0:
		return nil, symbols.NoSymbolID, false, false
	case 1:
		return foundRec, foundSym, true, false
	default:
		return nil, symbols.NoSymbolID, false, true
	}
}

// substWith rewrites t replacing declaration variables per mapping and
// abstract associated-type references per assoc, re-interning composites.
func (c *checker) substWith(t types.TypeID, mapping map[types.TypeID]types.TypeID, assoc map[source.StringID]types.TypeID) types.TypeID {
	if t == types.NoTypeID || (mapping == nil && assoc == nil) {
		return t
	}
	t = c.resolve(t)
	if mapping != nil {
		if repl, ok := mapping[t]; ok {
			return repl
		}
	}
	tt, ok := c.u.Types.Lookup(t)
	if !ok {
		return t
	}
	in := c.u.Types
	switch tt.Kind {
	case types.KindAssocTypeRef:
		if assoc != nil {
			if info, okA := in.AssocTypeRefInfo(t); okA {
				if bound, okB := assoc[info.Name]; okB {
					return bound
				}
			}
		}
		return t
	case types.KindArray:
		return in.Intern(types.MakeArray(c.substWith(tt.Elem, mapping, assoc), tt.Count))
	case types.KindSlice:
		return in.Intern(types.MakeSlice(c.substWith(tt.Elem, mapping, assoc)))
	case types.KindReference:
		return in.Intern(types.MakeReference(c.substWith(tt.Elem, mapping, assoc), tt.Mutable, tt.Lifetime))
	case types.KindPointer:
		return in.Intern(types.MakePointer(c.substWith(tt.Elem, mapping, assoc), tt.Mutable, tt.IsConst))
	case types.KindTuple:
		info, okT := in.TupleInfo(t)
		if !okT {
			return t
		}
		elems := make([]types.TypeID, len(info.Elements))
		for i, el := range info.Elements {
			elems[i] = c.substWith(el, mapping, assoc)
		}
		return in.InternTuple(elems)
	case types.KindFunction:
		info, okF := in.FnInfo(t)
		if !okF {
			return t
		}
		params := make([]types.TypeID, len(info.Params))
		for i, p := range info.Params {
			params[i] = c.substWith(p, mapping, assoc)
		}
		return in.InternFunction(params, c.substWith(info.Return, mapping, assoc), info.ExternABI, info.IsVariadic)
	case types.KindGenericInst:
		info, okG := in.GenericInstInfo(t)
		if !okG {
			return t
		}
		args := make([]types.TypeID, len(info.TypeArgs))
		for i, a := range info.TypeArgs {
			args[i] = c.substWith(a, mapping, assoc)
		}
		return in.InternGeneric(c.substWith(info.Base, mapping, assoc), args, info.ConstArgs)
	default:
		return t
	}
}

// checkTry types the try operator: `try E` requires E: Result[T, E'] in
// a function returning Result[_, E'] or void, evaluating to T.
func (c *checker) checkTry(_ ast.ExprID, e *ast.Expr) types.TypeID {
	opT := c.checkExpr(e.Operand, types.NoTypeID)
	if opT == types.NoTypeID || c.exprTainted(e.Operand) {
		return types.NoTypeID
	}
	okT, errT, isResult := c.resultParts(c.deepResolve(opT))
	if !isResult {
		c.u.Diags.Add(diag.NewError(diag.TryOnNonResult, e.Span,
			fmt.Sprintf("`try` operand must be a Result, found %s", c.typeString(opT))))
		return types.NoTypeID
	}
	if c.fn == nil {
		return okT
	}
	fnRet := c.deepResolve(c.fn.ret)
	if rt, okR := c.u.Types.Lookup(fnRet); okR && rt.Kind == types.KindUnit {
		// a void function propagates the error by aborting; nothing to
		// match against
		return okT
	}
	_, fnErr, fnIsResult := c.resultParts(fnRet)
	if !fnIsResult {
		c.u.Diags.Add(diag.NewError(diag.TryIncompatibleFn, e.Span,
			fmt.Sprintf("`try` requires the enclosing function to return a Result, it returns %s", c.typeString(c.fn.ret))))
		return okT
	}
	if !c.unify(errT, fnErr) {
		c.u.Diags.Add(diag.NewError(diag.TryIncompatibleFn, e.Span,
			fmt.Sprintf("`try` error type %s does not match the function's error type %s",
				c.typeString(errT), c.typeString(fnErr))))
	}
	return okT
}

// resultParts recognizes an instantiated `Result[T, E]` by its enum name
// and two type arguments, returning (T, E, true).
func (c *checker) resultParts(t types.TypeID) (types.TypeID, types.TypeID, bool) {
	info, ok := c.u.Types.GenericInstInfo(c.resolve(t))
	if !ok || len(info.TypeArgs) != 2 {
		return types.NoTypeID, types.NoTypeID, false
	}
	enumInfo, okE := c.u.Types.EnumInfo(c.resolve(info.Base))
	if !okE || c.u.Strings.MustLookup(enumInfo.Name) != "Result" {
		return types.NoTypeID, types.NoTypeID, false
	}
	return info.TypeArgs[0], info.TypeArgs[1], true
}

// flushPendingInsts resolves every deferred generic instantiation now that
// inference is complete: bound obligations are checked and fully concrete
// instantiations become monomorphization requests.
func (c *checker) flushPendingInsts() {
	for _, p := range c.pendingFnInsts {
		rec := c.u.Symbols.Symbols.Get(p.sym)
		args := make([]types.TypeID, len(p.args))
		for i, a := range p.args {
			args[i] = c.deepResolve(a)
		}
		if rec != nil {
			c.checkBounds(rec, args, p.span)
		}
		if c.rec != nil && c.allConcrete(args) {
			c.rec.RecordFnInstantiation(p.sym, args, nil, p.span, p.caller, "")
		}
	}
	for _, p := range c.pendingTypeInsts {
		args := make([]types.TypeID, len(p.args))
		for i, a := range p.args {
			args[i] = c.deepResolve(a)
		}
		if c.rec != nil && c.allConcrete(args) {
			c.rec.RecordTypeInstantiation(p.sym, args, nil, p.span, p.caller, "")
		}
	}
}

// checkBounds verifies each concrete argument satisfies its parameter's
// `where T: Trait` obligations via a registered impl.
func (c *checker) checkBounds(rec *symbols.Symbol, args []types.TypeID, span source.Span) {
	ai := 0
	for _, tp := range rec.TypeParams {
		if tp.IsConst {
			continue
		}
		if ai >= len(args) {
			return
		}
		arg := args[ai]
		ai++
		tt, ok := c.u.Types.Lookup(c.resolve(arg))
		if !ok || tt.Kind == types.KindTypeVar {
			continue
		}
		base, _ := c.nominalParts(arg)
		for _, bound := range tp.Bounds {
			if _, has := c.u.Symbols.Impls.ForTraitTarget(base, bound.Trait); !has {
				traitName := "?"
				if tsym := c.u.Symbols.Symbols.Get(bound.Trait); tsym != nil {
					traitName = c.u.Strings.MustLookup(tsym.Name)
				}
				c.u.Diags.Add(diag.NewError(diag.TraitUnsatisfiedBound, span,
					fmt.Sprintf("type %s does not satisfy the bound %s: %s",
						c.typeString(arg), c.u.Strings.MustLookup(tp.Name), traitName)))
			}
		}
	}
}
