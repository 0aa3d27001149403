package typeck

import (
	"fmt"

	"ember/internal/ast"
	"ember/internal/desugar"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// checkBodies walks every function body (free functions and impl methods)
// elaborating expression types. Trait default bodies are not checked,
// neither abstractly nor through an impl that inherits them.
func (c *checker) checkBodies(items []ast.ItemID) {
	for _, id := range items {
		item := c.u.Builder.Items.Get(id)
		if item == nil {
			continue
		}
		switch item.Kind {
		case ast.ItemFn:
			c.checkFn(id, c.res.ItemSymbol[id], lowerEnv{scope: c.res.FileScope})
		case ast.ItemImpl:
			decl, ok := c.u.Builder.Items.Impl(id)
			if !ok {
				continue
			}
			env := lowerEnv{
				scope: c.res.FileScope,
				self:  c.implTargetByItem[id],
				assoc: c.implAssocByItem[id],
			}
			if len(decl.TypeParams) > 0 {
				env.typeParams = make(map[source.StringID]types.TypeID)
				env.constParams = make(map[source.StringID]bool)
				vars := c.implVars[id]
				vi := 0
				for _, tp := range decl.TypeParams {
					if tp.IsConst {
						env.constParams[tp.Name] = true
						continue
					}
					if vi < len(vars) {
						env.typeParams[tp.Name] = vars[vi]
						vi++
					}
				}
			}
			for _, m := range decl.Methods {
				c.checkFn(m, c.methodSyms[m], env)
			}
		}
	}
}

func (c *checker) checkFn(item ast.ItemID, sym symbols.SymbolID, outer lowerEnv) {
	fn, ok := c.u.Builder.Items.Fn(item)
	if !ok || !fn.Body.IsValid() {
		return
	}
	symRec := c.u.Symbols.Symbols.Get(sym)
	if symRec == nil || symRec.Signature == nil {
		return
	}
	sig := symRec.Signature

	env := outer
	if scope, ok := c.res.ScopeOfItem[item]; ok && scope.IsValid() {
		env.scope = scope
	}
	if len(fn.TypeParams) > 0 {
		merged := make(map[source.StringID]types.TypeID)
		for k, v := range outer.typeParams {
			merged[k] = v
		}
		vars := c.paramVars[sym]
		vi := 0
		for _, tp := range fn.TypeParams {
			if tp.IsConst {
				continue
			}
			if vi < len(vars) {
				merged[tp.Name] = vars[vi]
				vi++
			}
		}
		env.typeParams = merged
	}

	// parameter symbols pick up their signature types
	if scope, ok := c.res.ScopeOfItem[item]; ok {
		for i, name := range sig.ParamNames {
			if name == source.NoStringID || i >= len(sig.ParamTypes) {
				continue
			}
			if psym := c.findScopeSymbol(scope, symbols.SymbolParam, name); psym.IsValid() {
				if rec := c.u.Symbols.Symbols.Get(psym); rec != nil {
					rec.Type = sig.ParamTypes[i]
				}
			}
		}
	}

	prevFn, prevEnv := c.fn, c.env
	c.fn = &fnCtx{sym: sym, item: item, ret: sig.Return, retSpan: fn.Span}
	c.env = env
	c.checkStmt(fn.Body)
	c.fn, c.env = prevFn, prevEnv
}

func (c *checker) checkStmt(id ast.StmtID) {
	stmt := c.u.Builder.Stmts.Get(id)
	if stmt == nil {
		return
	}
	b := c.u.Types.Builtins()
	switch stmt.Kind {
	case ast.StmtLet, ast.StmtConst:
		declared := c.lowerType(stmt.TypeAnn, c.env)
		var initT types.TypeID
		if stmt.Init.IsValid() {
			initT = c.checkExpr(stmt.Init, declared)
			if declared != types.NoTypeID {
				c.expectAt(stmt.Init, declared, initT)
			}
		}
		final := declared
		if final == types.NoTypeID {
			final = initT
		}
		c.bindPattern(stmt.Pattern, final)
		if stmt.Kind == ast.StmtConst && stmt.Init.IsValid() {
			if sym, ok := c.res.PatternSymbol[stmt.Pattern]; ok && sym.IsValid() {
				if v, okV := c.evalConst(stmt.Init, c.widthOf(final), c.env); okV {
					c.out.ConstValues[sym] = v
				}
			}
		}

	case ast.StmtExpr, ast.StmtDefer:
		c.checkExpr(stmt.Expr, types.NoTypeID)

	case ast.StmtReturn:
		if c.fn == nil {
			return
		}
		if stmt.Expr.IsValid() {
			t := c.checkExpr(stmt.Expr, c.fn.ret)
			c.expectAt(stmt.Expr, c.fn.ret, t)
		} else {
			c.expectSpan(stmt.Span, c.fn.ret, b.Unit)
		}

	case ast.StmtBreak, ast.StmtContinue:
		if stmt.Expr.IsValid() {
			c.checkExpr(stmt.Expr, types.NoTypeID)
		}

	case ast.StmtIf:
		t := c.checkExpr(stmt.Cond, b.Bool)
		c.expectAt(stmt.Cond, b.Bool, t)
		c.checkStmt(stmt.ThenBlock)
		if stmt.ElseBlock.IsValid() {
			c.checkStmt(stmt.ElseBlock)
		}

	case ast.StmtMatch:
		st := c.checkExpr(stmt.Scrutinee, types.NoTypeID)
		for _, armID := range stmt.Arms {
			arm := c.u.Builder.MatchArms.Get(armID)
			if arm == nil {
				continue
			}
			c.bindPattern(arm.Pattern, st)
			if arm.Guard.IsValid() {
				g := c.checkExpr(arm.Guard, b.Bool)
				c.expectAt(arm.Guard, b.Bool, g)
			}
			c.checkStmt(arm.Body)
		}

	case ast.StmtWhile:
		t := c.checkExpr(stmt.Cond, b.Bool)
		c.expectAt(stmt.Cond, b.Bool, t)
		c.checkStmt(stmt.Body)

	case ast.StmtForIn:
		iterT := c.checkExpr(stmt.ForIter, types.NoTypeID)
		c.bindPattern(stmt.ForVar, c.elementOf(iterT))
		c.checkStmt(stmt.Body)

	case ast.StmtLoop:
		c.checkStmt(stmt.Body)

	case ast.StmtBlock:
		for _, sub := range stmt.Stmts {
			c.checkStmt(sub)
		}
		if stmt.Tail.IsValid() {
			c.checkExpr(stmt.Tail, types.NoTypeID)
		}
	}
}

// elementOf reports the iteration element type of an array/slice (seen
// through at most one reference), or a fresh variable when the iterable's
// shape is unknown.
func (c *checker) elementOf(t types.TypeID) types.TypeID {
	t = c.resolve(t)
	tt, ok := c.u.Types.Lookup(t)
	if ok && tt.Kind == types.KindReference {
		t = c.resolve(tt.Elem)
		tt, ok = c.u.Types.Lookup(t)
	}
	if ok && (tt.Kind == types.KindArray || tt.Kind == types.KindSlice) {
		return tt.Elem
	}
	return c.freshVar()
}

// bindPattern assigns a type to every binding a pattern introduces,
// destructuring composites against the scrutinee's shape.
func (c *checker) bindPattern(id ast.PatternID, t types.TypeID) {
	if !id.IsValid() {
		return
	}
	pat := c.u.Builder.Patterns.Get(id)
	if pat == nil {
		return
	}
	c.out.PatternType[id] = t
	switch pat.Kind {
	case ast.PatternBinding:
		if sym, ok := c.res.PatternSymbol[id]; ok && sym.IsValid() {
			if rec := c.u.Symbols.Symbols.Get(sym); rec != nil {
				rec.Type = t
			}
		}

	case ast.PatternTuple:
		rt := c.resolve(t)
		info, ok := c.u.Types.TupleInfo(rt)
		for i, el := range pat.Elements {
			if ok && i < len(info.Elements) {
				c.bindPattern(el, info.Elements[i])
			} else {
				c.bindPattern(el, c.freshVar())
			}
		}

	case ast.PatternStruct:
		base, args := c.nominalParts(t)
		info, ok := c.u.Types.StructInfo(base)
		for _, f := range pat.Fields {
			var ft types.TypeID
			if ok {
				for _, sf := range info.Fields {
					if sf.Name == f.Name {
						ft = c.substGenericArgs(sf.Type, info.Sym, args)
						break
					}
				}
			}
			if ft == types.NoTypeID {
				ft = c.freshVar()
			}
			if f.Pattern.IsValid() {
				c.bindPattern(f.Pattern, ft)
			}
		}

	case ast.PatternEnumVariant:
		base, args := c.nominalParts(t)
		info, ok := c.u.Types.EnumInfo(base)
		var fields []types.TypeID
		if ok {
			for _, v := range info.Variants {
				if v.Name == variantName(pat) {
					fields = v.Fields
					break
				}
			}
		}
		for i, el := range pat.Elements {
			if i < len(fields) {
				c.bindPattern(el, c.substGenericArgs(fields[i], info.Sym, args))
			} else {
				c.bindPattern(el, c.freshVar())
			}
		}

	case ast.PatternLiteral:
		if pat.Literal.IsValid() {
			lt := c.checkExpr(pat.Literal, t)
			c.expectAt(pat.Literal, t, lt)
		}
	}
}

// variantName extracts the variant segment of an enum-variant pattern's
// type path (`Enum.Variant` parses with the variant as the final segment).
func variantName(pat *ast.Pattern) source.StringID {
	if len(pat.TypeName) == 0 {
		return source.NoStringID
	}
	return pat.TypeName[len(pat.TypeName)-1]
}

// nominalParts splits a possibly-instantiated nominal into its base and
// concrete type arguments.
func (c *checker) nominalParts(t types.TypeID) (types.TypeID, []types.TypeID) {
	t = c.resolve(t)
	if info, ok := c.u.Types.GenericInstInfo(t); ok {
		return c.resolve(info.Base), info.TypeArgs
	}
	return t, nil
}

// substGenericArgs rewrites a declaration-side field type, replacing the
// nominal's declaration variables with the instantiation's arguments.
func (c *checker) substGenericArgs(field types.TypeID, declSym types.RawSymbolID, args []types.TypeID) types.TypeID {
	if len(args) == 0 {
		return field
	}
	declVars := c.paramVars[symbols.SymbolID(declSym)]
	if len(declVars) == 0 {
		return field
	}
	mapping := make(map[types.TypeID]types.TypeID, len(declVars))
	for i, v := range declVars {
		if i < len(args) {
			mapping[v] = args[i]
		}
	}
	return c.substWith(field, mapping, nil)
}

// expectAt unifies expected with the actual type of expr, reporting a
// TypeMismatch anchored at expr on failure. Tainted inputs stay silent.
func (c *checker) expectAt(expr ast.ExprID, expected, actual types.TypeID) {
	if expected == types.NoTypeID || actual == types.NoTypeID || c.exprTainted(expr) {
		return
	}
	if c.unifyCoerce(expected, actual) {
		return
	}
	span := source.Span{}
	if e := c.u.Builder.Exprs.Get(expr); e != nil {
		span = e.Span
	}
	c.reportMismatch(span, expected, actual)
	c.taint(expr)
}

func (c *checker) expectSpan(span source.Span, expected, actual types.TypeID) {
	if expected == types.NoTypeID || actual == types.NoTypeID {
		return
	}
	if !c.unifyCoerce(expected, actual) {
		c.reportMismatch(span, expected, actual)
	}
}

func (c *checker) reportMismatch(span source.Span, expected, actual types.TypeID) {
	c.u.Diags.Add(diag.NewError(diag.TypeMismatch, span,
		fmt.Sprintf("type mismatch: expected %s, found %s", c.typeString(expected), c.typeString(actual))).
		WithFix("change the expression to produce the expected type", diag.ConfidenceLow))
}

// checkCloseObligations validates the `with` contract the desugar pass
// queued: each initializer's type must provide close(&mut self), with the
// error anchored at the original `with` form.
func (c *checker) checkCloseObligations(obs []desugar.CloseObligation) {
	closeName := c.u.Strings.Intern("close")
	for _, ob := range obs {
		t := c.deepResolve(c.out.PatternType[ob.Binding])
		if t == types.NoTypeID {
			continue
		}
		base, _ := c.nominalParts(t)
		if _, _, found, _ := c.findMethod(base, closeName); !found {
			c.u.Diags.Add(diag.NewError(diag.TypeUnknownMethod, ob.Span,
				fmt.Sprintf("type %s does not provide close(&mut self) required by `with`", c.typeString(t))))
		}
	}
}
