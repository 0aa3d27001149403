package typeck

import (
	"ember/internal/source"
	"ember/internal/types"
)

// resolve follows a type variable's binding chain to its representative.
// Non-variables resolve to themselves.
func (c *checker) resolve(id types.TypeID) types.TypeID {
	for {
		t, ok := c.u.Types.Lookup(id)
		if !ok || t.Kind != types.KindTypeVar {
			return id
		}
		info, ok := c.u.Types.TypeVarInfo(id)
		if !ok || info.BoundTo == types.NoTypeID {
			return id
		}
		id = info.BoundTo
	}
}

// deepResolve rebuilds a type with every bound variable replaced by its
// binding, re-interning composites so structural identity holds after
// inference has progressed.
func (c *checker) deepResolve(id types.TypeID) types.TypeID {
	id = c.resolve(id)
	t, ok := c.u.Types.Lookup(id)
	if !ok {
		return id
	}
	in := c.u.Types
	switch t.Kind {
	case types.KindArray:
		return in.Intern(types.MakeArray(c.deepResolve(t.Elem), t.Count))
	case types.KindSlice:
		return in.Intern(types.MakeSlice(c.deepResolve(t.Elem)))
	case types.KindReference:
		return in.Intern(types.MakeReference(c.deepResolve(t.Elem), t.Mutable, t.Lifetime))
	case types.KindPointer:
		return in.Intern(types.MakePointer(c.deepResolve(t.Elem), t.Mutable, t.IsConst))
	case types.KindTuple:
		info, ok := in.TupleInfo(id)
		if !ok {
			return id
		}
		elems := make([]types.TypeID, len(info.Elements))
		for i, el := range info.Elements {
			elems[i] = c.deepResolve(el)
		}
		return in.InternTuple(elems)
	case types.KindFunction:
		info, ok := in.FnInfo(id)
		if !ok {
			return id
		}
		params := make([]types.TypeID, len(info.Params))
		for i, p := range info.Params {
			params[i] = c.deepResolve(p)
		}
		return in.InternFunction(params, c.deepResolve(info.Return), info.ExternABI, info.IsVariadic)
	case types.KindGenericInst:
		info, ok := in.GenericInstInfo(id)
		if !ok {
			return id
		}
		args := make([]types.TypeID, len(info.TypeArgs))
		for i, a := range info.TypeArgs {
			args[i] = c.deepResolve(a)
		}
		return in.InternGeneric(c.deepResolve(info.Base), args, info.ConstArgs)
	default:
		return id
	}
}

// occurs reports whether v appears inside t, preventing infinite types.
func (c *checker) occurs(v, t types.TypeID) bool {
	t = c.resolve(t)
	if v == t {
		return true
	}
	tt, ok := c.u.Types.Lookup(t)
	if !ok {
		return false
	}
	switch tt.Kind {
	case types.KindArray, types.KindSlice, types.KindReference, types.KindPointer:
		return c.occurs(v, tt.Elem)
	case types.KindTuple:
		info, _ := c.u.Types.TupleInfo(t)
		for _, el := range info.Elements {
			if c.occurs(v, el) {
				return true
			}
		}
	case types.KindFunction:
		info, _ := c.u.Types.FnInfo(t)
		for _, p := range info.Params {
			if c.occurs(v, p) {
				return true
			}
		}
		return c.occurs(v, info.Return)
	case types.KindGenericInst:
		info, _ := c.u.Types.GenericInstInfo(t)
		for _, a := range info.TypeArgs {
			if c.occurs(v, a) {
				return true
			}
		}
		return c.occurs(v, info.Base)
	}
	return false
}

func (c *checker) bindVar(v, t types.TypeID) bool {
	info, ok := c.u.Types.TypeVarInfo(v)
	if !ok {
		return false
	}
	if c.occurs(v, t) {
		return false
	}
	info.BoundTo = t
	return true
}

// unify makes a and b equal, binding free variables as needed. Returns
// false on a structural mismatch; diagnostics are the caller's job so the
// span can point at the offending expression.
func (c *checker) unify(a, b types.TypeID) bool {
	a, b = c.resolve(a), c.resolve(b)
	if a == b {
		return true
	}
	if a == types.NoTypeID || b == types.NoTypeID {
		// tainted inputs unify silently to suppress cascades
		return true
	}
	ta, okA := c.u.Types.Lookup(a)
	tb, okB := c.u.Types.Lookup(b)
	if !okA || !okB {
		return false
	}
	if ta.Kind == types.KindTypeVar {
		return c.bindLiteralAware(a, b, tb)
	}
	if tb.Kind == types.KindTypeVar {
		return c.bindLiteralAware(b, a, ta)
	}
	if ta.Kind != tb.Kind {
		return false
	}
	switch ta.Kind {
	case types.KindInt, types.KindUint, types.KindFloat:
		return ta.Width == tb.Width
	case types.KindArray:
		return ta.Count == tb.Count && c.unify(ta.Elem, tb.Elem)
	case types.KindSlice:
		return c.unify(ta.Elem, tb.Elem)
	case types.KindReference:
		return ta.Mutable == tb.Mutable && lifetimesUnify(ta.Lifetime, tb.Lifetime) && c.unify(ta.Elem, tb.Elem)
	case types.KindPointer:
		return ta.Mutable == tb.Mutable && ta.IsConst == tb.IsConst && c.unify(ta.Elem, tb.Elem)
	case types.KindTuple:
		ia, _ := c.u.Types.TupleInfo(a)
		ib, _ := c.u.Types.TupleInfo(b)
		if len(ia.Elements) != len(ib.Elements) {
			return false
		}
		for i := range ia.Elements {
			if !c.unify(ia.Elements[i], ib.Elements[i]) {
				return false
			}
		}
		return true
	case types.KindFunction:
		ia, _ := c.u.Types.FnInfo(a)
		ib, _ := c.u.Types.FnInfo(b)
		if len(ia.Params) != len(ib.Params) || ia.IsVariadic != ib.IsVariadic {
			return false
		}
		for i := range ia.Params {
			if !c.unify(ia.Params[i], ib.Params[i]) {
				return false
			}
		}
		return c.unify(ia.Return, ib.Return)
	case types.KindGenericInst:
		ia, _ := c.u.Types.GenericInstInfo(a)
		ib, _ := c.u.Types.GenericInstInfo(b)
		if !c.unify(ia.Base, ib.Base) {
			return false
		}
		if len(ia.TypeArgs) != len(ib.TypeArgs) || len(ia.ConstArgs) != len(ib.ConstArgs) {
			return false
		}
		for i := range ia.ConstArgs {
			if ia.ConstArgs[i] != ib.ConstArgs[i] {
				return false
			}
		}
		for i := range ia.TypeArgs {
			if !c.unify(ia.TypeArgs[i], ib.TypeArgs[i]) {
				return false
			}
		}
		return true
	default:
		// nominal kinds compare by identity, already handled by a == b
		return false
	}
}

// bindLiteralAware binds variable v to target, keeping the literal tag
// coherent: an integer-literal variable refuses a non-numeric binding so a
// later defaulting never contradicts an established constraint.
func (c *checker) bindLiteralAware(v, target types.TypeID, tt types.Type) bool {
	switch c.litVars[v] {
	case litInt:
		if tt.Kind != types.KindInt && tt.Kind != types.KindUint && tt.Kind != types.KindTypeVar {
			return false
		}
	case litFloat:
		if tt.Kind != types.KindFloat && tt.Kind != types.KindTypeVar {
			return false
		}
	}
	return c.bindVar(v, target)
}

// unifyCoerce is unify plus one asymmetric rule: a
// shared-borrow expectation accepts an exclusive borrow. Used where an
// expected type meets an actual one (arguments, assignments, returns).
func (c *checker) unifyCoerce(expected, actual types.TypeID) bool {
	e, a := c.resolve(expected), c.resolve(actual)
	te, okE := c.u.Types.Lookup(e)
	ta, okA := c.u.Types.Lookup(a)
	if okE && okA &&
		te.Kind == types.KindReference && ta.Kind == types.KindReference &&
		!te.Mutable && ta.Mutable {
		return c.unify(te.Elem, ta.Elem)
	}
	return c.unify(e, a)
}

// lifetimesUnify treats an unlabeled reference as compatible with any
// label; two explicit labels must match.
func lifetimesUnify(a, b source.StringID) bool {
	return a == source.NoStringID || b == source.NoStringID || a == b
}

func (c *checker) freshVar() types.TypeID {
	return c.u.Types.FreshTypeVar(0)
}

func (c *checker) freshLitVar(tag uint8) types.TypeID {
	v := c.u.Types.FreshTypeVar(0)
	c.litVars[v] = tag
	return v
}
