package typeck

import (
	"fmt"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// checkExpr elaborates one expression against an optional expected type
// and records the result (or a taint marker) in the output side table.
func (c *checker) checkExpr(id ast.ExprID, expected types.TypeID) types.TypeID {
	if !id.IsValid() {
		return types.NoTypeID
	}
	e := c.u.Builder.Exprs.Get(id)
	if e == nil {
		return types.NoTypeID
	}
	t := c.checkExprInner(id, e, expected)
	c.out.ExprType[id] = t
	if t == types.NoTypeID {
		c.taint(id)
	}
	return t
}

func (c *checker) checkExprInner(id ast.ExprID, e *ast.Expr, expected types.TypeID) types.TypeID {
	b := c.u.Types.Builtins()
	switch e.Kind {
	case ast.ExprIdent:
		sym, ok := c.res.SymbolOf(id)
		if !ok || !sym.IsValid() {
			return types.NoTypeID
		}
		rec := c.u.Symbols.Symbols.Get(sym)
		if rec == nil {
			return types.NoTypeID
		}
		return rec.Type

	case ast.ExprLitInt:
		if t, ok := c.numericExpected(expected, true); ok {
			return t
		}
		return c.freshLitVar(litInt)

	case ast.ExprLitFloat:
		if t, ok := c.numericExpected(expected, false); ok {
			return t
		}
		return c.freshLitVar(litFloat)

	case ast.ExprLitBool:
		return b.Bool
	case ast.ExprLitString:
		return b.String
	case ast.ExprLitChar:
		return b.Char
	case ast.ExprUnit:
		return b.Unit

	case ast.ExprBinary:
		return c.checkBinary(e)

	case ast.ExprUnary:
		switch e.UnOp {
		case ast.UnaryNot:
			t := c.checkExpr(e.Operand, b.Bool)
			c.expectAt(e.Operand, b.Bool, t)
			return b.Bool
		default:
			return c.checkExpr(e.Operand, expected)
		}

	case ast.ExprCall:
		return c.checkCall(id, e)

	case ast.ExprMember:
		return c.checkField(e)

	case ast.ExprIndex:
		t := c.checkExpr(e.Lhs, types.NoTypeID)
		idx := c.checkExpr(e.Rhs, b.I32)
		if !c.isIntegerType(idx) {
			c.expectAt(e.Rhs, b.I32, idx)
		}
		elem := c.elementOf(t)
		return elem

	case ast.ExprCast:
		c.checkExpr(e.Operand, types.NoTypeID)
		return c.lowerType(e.Target, c.env)

	case ast.ExprGroup:
		return c.checkExpr(e.Operand, expected)

	case ast.ExprTuple:
		elems := make([]types.TypeID, len(e.Elements))
		for i, el := range e.Elements {
			elems[i] = c.checkExpr(el, types.NoTypeID)
		}
		return c.u.Types.InternTuple(elems)

	case ast.ExprArrayLit:
		var elem types.TypeID
		for _, el := range e.Elements {
			t := c.checkExpr(el, elem)
			if elem == types.NoTypeID {
				elem = t
			} else {
				c.expectAt(el, elem, t)
			}
		}
		if elem == types.NoTypeID {
			elem = c.freshVar()
		}
		return c.u.Types.Intern(types.MakeArray(elem, uint32(len(e.Elements)))) // #nosec G115 -- literal length

	case ast.ExprStructLit:
		return c.checkStructLit(e)

	case ast.ExprEnumConstruct:
		return c.checkEnumConstruct(e)

	case ast.ExprReference:
		t := c.checkExpr(e.Operand, types.NoTypeID)
		if t == types.NoTypeID {
			return types.NoTypeID
		}
		return c.u.Types.Intern(types.MakeReference(t, e.Mutable, source.NoStringID))

	case ast.ExprDeref:
		t := c.resolve(c.checkExpr(e.Operand, types.NoTypeID))
		tt, ok := c.u.Types.Lookup(t)
		if ok && (tt.Kind == types.KindReference || tt.Kind == types.KindPointer) {
			return tt.Elem
		}
		if t != types.NoTypeID && !c.exprTainted(e.Operand) {
			c.u.Diags.Add(diag.NewError(diag.TypeMismatch, e.Span,
				fmt.Sprintf("cannot dereference a value of type %s", c.typeString(t))))
		}
		return types.NoTypeID

	case ast.ExprAssign:
		l := c.checkExpr(e.Lhs, types.NoTypeID)
		r := c.checkExpr(e.Rhs, l)
		c.expectAt(e.Rhs, l, r)
		return b.Unit

	case ast.ExprTry:
		return c.checkTry(id, e)

	case ast.ExprClosureParam, ast.ExprClosureRuntime:
		return c.checkClosure(id, e)

	default:
		// ExprWith never survives desugaring; anything else is malformed.
		return types.NoTypeID
	}
}

// numericExpected adopts a resolved numeric expected type for a literal,
// so `let x: u8 = 1` types the literal u8 without a variable.
func (c *checker) numericExpected(expected types.TypeID, integer bool) (types.TypeID, bool) {
	if expected == types.NoTypeID {
		return types.NoTypeID, false
	}
	t := c.resolve(expected)
	tt, ok := c.u.Types.Lookup(t)
	if !ok {
		return types.NoTypeID, false
	}
	if integer && (tt.Kind == types.KindInt || tt.Kind == types.KindUint) {
		return t, true
	}
	if !integer && tt.Kind == types.KindFloat {
		return t, true
	}
	return types.NoTypeID, false
}

func (c *checker) isIntegerType(t types.TypeID) bool {
	tt, ok := c.u.Types.Lookup(c.resolve(t))
	if !ok {
		return false
	}
	return tt.Kind == types.KindInt || tt.Kind == types.KindUint || tt.Kind == types.KindTypeVar
}

func (c *checker) checkBinary(e *ast.Expr) types.TypeID {
	b := c.u.Types.Builtins()
	switch e.BinOp {
	case ast.BinLogicalAnd, ast.BinLogicalOr:
		l := c.checkExpr(e.Lhs, b.Bool)
		r := c.checkExpr(e.Rhs, b.Bool)
		c.expectAt(e.Lhs, b.Bool, l)
		c.expectAt(e.Rhs, b.Bool, r)
		return b.Bool

	case ast.BinEq, ast.BinNotEq, ast.BinLt, ast.BinLtEq, ast.BinGt, ast.BinGtEq:
		l := c.checkExpr(e.Lhs, types.NoTypeID)
		r := c.checkExpr(e.Rhs, l)
		c.expectAt(e.Rhs, l, r)
		return b.Bool

	default:
		l := c.checkExpr(e.Lhs, types.NoTypeID)
		r := c.checkExpr(e.Rhs, l)
		c.expectAt(e.Rhs, l, r)
		return l
	}
}

// checkField types a non-call member access `a.b`, auto-dereferencing
// through references.
func (c *checker) checkField(e *ast.Expr) types.TypeID {
	t := c.checkExpr(e.Operand, types.NoTypeID)
	if t == types.NoTypeID {
		return types.NoTypeID
	}
	t = c.stripRefs(t)
	base, args := c.nominalParts(t)
	info, ok := c.u.Types.StructInfo(base)
	if !ok {
		if !c.exprTainted(e.Operand) {
			c.u.Diags.Add(diag.NewError(diag.TypeMismatch, e.Span,
				fmt.Sprintf("type %s has no field %q", c.typeString(t), c.u.Strings.MustLookup(e.Field))))
		}
		return types.NoTypeID
	}
	for _, f := range info.Fields {
		if f.Name == e.Field {
			return c.substGenericArgs(f.Type, info.Sym, args)
		}
	}
	c.u.Diags.Add(diag.NewError(diag.TypeMismatch, e.Span,
		fmt.Sprintf("struct %s has no field %q", c.typeString(base), c.u.Strings.MustLookup(e.Field))))
	return types.NoTypeID
}

func (c *checker) stripRefs(t types.TypeID) types.TypeID {
	for {
		t = c.resolve(t)
		tt, ok := c.u.Types.Lookup(t)
		if !ok || tt.Kind != types.KindReference {
			return t
		}
		t = tt.Elem
	}
}

func (c *checker) checkStructLit(e *ast.Expr) types.TypeID {
	if len(e.Path) == 0 {
		return types.NoTypeID
	}
	sym, ok := c.u.Symbols.Lookup(c.env.scope, symbols.NamespaceType, e.Path[len(e.Path)-1])
	if !ok {
		return types.NoTypeID
	}
	rec := c.u.Symbols.Symbols.Get(sym)
	if rec == nil || rec.Type == types.NoTypeID {
		return types.NoTypeID
	}
	info, isStruct := c.u.Types.StructInfo(rec.Type)
	if !isStruct {
		c.u.Diags.Add(diag.NewError(diag.TypeMismatch, e.Span, "struct literal target is not a struct"))
		return types.NoTypeID
	}

	mapping, freshArgs := c.instantiationMapping(sym)
	seen := make(map[source.StringID]bool, len(e.Fields))
	for _, f := range e.Fields {
		seen[f.Name] = true
		var want types.TypeID
		for _, sf := range info.Fields {
			if sf.Name == f.Name {
				want = c.substWith(sf.Type, mapping, nil)
				break
			}
		}
		if want == types.NoTypeID {
			c.u.Diags.Add(diag.NewError(diag.TypeMismatch, e.Span,
				fmt.Sprintf("struct %s has no field %q", c.u.Strings.MustLookup(info.Name), c.u.Strings.MustLookup(f.Name))))
			c.checkExpr(f.Value, types.NoTypeID)
			continue
		}
		got := c.checkExpr(f.Value, want)
		c.expectAt(f.Value, want, got)
	}
	for _, sf := range info.Fields {
		if !seen[sf.Name] {
			c.u.Diags.Add(diag.NewError(diag.TypeMismatch, e.Span,
				fmt.Sprintf("missing field %q in struct literal", c.u.Strings.MustLookup(sf.Name))))
		}
	}

	if len(freshArgs) == 0 {
		return rec.Type
	}
	c.recordTypeInst(sym, freshArgs, e.Span)
	return c.u.Types.InternGeneric(rec.Type, freshArgs, nil)
}

func (c *checker) checkEnumConstruct(e *ast.Expr) types.TypeID {
	if len(e.Path) == 0 {
		return types.NoTypeID
	}
	sym, ok := c.u.Symbols.Lookup(c.env.scope, symbols.NamespaceType, e.Path[len(e.Path)-1])
	if !ok {
		return types.NoTypeID
	}
	rec := c.u.Symbols.Symbols.Get(sym)
	if rec == nil || rec.Type == types.NoTypeID {
		return types.NoTypeID
	}
	info, isEnum := c.u.Types.EnumInfo(rec.Type)
	if !isEnum {
		c.u.Diags.Add(diag.NewError(diag.TypeMismatch, e.Span, "variant construction target is not an enum"))
		return types.NoTypeID
	}

	var fields []types.TypeID
	found := false
	for _, v := range info.Variants {
		if v.Name == e.Variant {
			fields = v.Fields
			found = true
			break
		}
	}
	if !found {
		c.u.Diags.Add(diag.NewError(diag.TypeMismatch, e.Span,
			fmt.Sprintf("enum %s has no variant %q", c.u.Strings.MustLookup(info.Name), c.u.Strings.MustLookup(e.Variant))))
		return types.NoTypeID
	}

	mapping, freshArgs := c.instantiationMapping(sym)
	if len(e.Args) != len(fields) {
		c.u.Diags.Add(diag.NewError(diag.TypeMismatch, e.Span,
			fmt.Sprintf("variant %q expects %d arguments, got %d", c.u.Strings.MustLookup(e.Variant), len(fields), len(e.Args))))
	}
	for i, a := range e.Args {
		if i >= len(fields) {
			c.checkExpr(a, types.NoTypeID)
			continue
		}
		want := c.substWith(fields[i], mapping, nil)
		got := c.checkExpr(a, want)
		c.expectAt(a, want, got)
	}

	if len(freshArgs) == 0 {
		return rec.Type
	}
	c.recordTypeInst(sym, freshArgs, e.Span)
	return c.u.Types.InternGeneric(rec.Type, freshArgs, nil)
}

// instantiationMapping creates one fresh variable per generic parameter of
// a nominal, returning the decl-var→fresh-var substitution and the fresh
// argument list the instantiated type will carry.
func (c *checker) instantiationMapping(sym symbols.SymbolID) (map[types.TypeID]types.TypeID, []types.TypeID) {
	declVars := c.paramVars[sym]
	if len(declVars) == 0 {
		return nil, nil
	}
	mapping := make(map[types.TypeID]types.TypeID, len(declVars))
	fresh := make([]types.TypeID, len(declVars))
	for i, v := range declVars {
		fresh[i] = c.freshVar()
		mapping[v] = fresh[i]
	}
	return mapping, fresh
}

// recordTypeInst defers the monomorphization request until finalize so the
// arguments reflect everything inference learned later in the body.
func (c *checker) recordTypeInst(sym symbols.SymbolID, args []types.TypeID, span source.Span) {
	var caller symbols.SymbolID
	if c.fn != nil {
		caller = c.fn.sym
	}
	c.pendingTypeInsts = append(c.pendingTypeInsts, pendingInst{sym: sym, args: args, span: span, caller: caller})
}

func (c *checker) checkClosure(id ast.ExprID, e *ast.Expr) types.TypeID {
	scope := c.res.ScopeOfExpr[id]
	params := make([]types.TypeID, 0, len(e.ClosureParams))
	for _, pid := range e.ClosureParams {
		p := c.u.Builder.Items.FnParam(pid)
		if p == nil {
			continue
		}
		t := c.lowerType(p.Type, c.env)
		if t == types.NoTypeID {
			t = c.freshVar()
		}
		params = append(params, t)
		if p.Name != source.NoStringID && scope.IsValid() {
			if psym := c.findScopeSymbol(scope, symbols.SymbolParam, p.Name); psym.IsValid() {
				if rec := c.u.Symbols.Symbols.Get(psym); rec != nil {
					rec.Type = t
				}
			}
		}
	}

	ret := c.lowerType(e.ClosureRet, c.env)
	c.checkStmt(e.ClosureBody)
	if ret == types.NoTypeID {
		ret = c.u.Types.Builtins().Unit
		if body := c.u.Builder.Stmts.Get(e.ClosureBody); body != nil && body.Tail.IsValid() {
			if t, ok := c.out.ExprType[body.Tail]; ok && t != types.NoTypeID {
				ret = t
			}
		}
	}
	return c.u.Types.InternFunction(params, ret, source.NoStringID, false)
}
