package typeck

import (
	"fmt"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/resolver"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// lowerEnv carries the context a type expression is lowered in: the scope
// to resolve names against, the in-flight generic parameter substitution,
// the const-parameter names (whose values are unknown until
// monomorphization), the current Self, and the current impl's
// associated-type bindings.
type lowerEnv struct {
	scope       symbols.ScopeID
	typeParams  map[source.StringID]types.TypeID
	constParams map[source.StringID]bool
	self        types.TypeID
	assoc       map[source.StringID]types.TypeID
}

// declareNominals is phase one of nominal lowering: allocate a TypeID for
// every struct/enum/trait/opaque so forward references resolve, leaving
// bodies empty.
func (c *checker) declareNominals(items []ast.ItemID) {
	for _, id := range items {
		item := c.u.Builder.Items.Get(id)
		if item == nil {
			continue
		}
		sym := c.res.ItemSymbol[id]
		symRec := c.u.Symbols.Symbols.Get(sym)
		if symRec == nil {
			continue
		}
		switch item.Kind {
		case ast.ItemStruct:
			decl, _ := c.u.Builder.Items.Struct(id)
			symRec.Type = c.u.Types.DeclareStruct(types.StructInfo{Name: decl.Name, Sym: types.RawSymbolID(sym)})
		case ast.ItemEnum:
			decl, _ := c.u.Builder.Items.Enum(id)
			symRec.Type = c.u.Types.DeclareEnum(types.EnumInfo{Name: decl.Name, Sym: types.RawSymbolID(sym)})
		case ast.ItemTrait:
			decl, _ := c.u.Builder.Items.Trait(id)
			symRec.Type = c.u.Types.DeclareTrait(types.TraitInfo{Name: decl.Name, Sym: types.RawSymbolID(sym)})
		case ast.ItemOpaque:
			decl, _ := c.u.Builder.Items.Opaque(id)
			symRec.Type = c.u.Types.DeclareOpaque(decl.Name)
		}
	}
}

// nominalEnv builds the lowering environment for a declaration's own body:
// one fresh inference variable per generic parameter, recorded in
// paramVars so instantiation sites can substitute them.
func (c *checker) nominalEnv(sym symbols.SymbolID, params []ast.TypeParam) lowerEnv {
	env := lowerEnv{scope: c.res.FileScope}
	if len(params) == 0 {
		return env
	}
	env.typeParams = make(map[source.StringID]types.TypeID, len(params))
	env.constParams = make(map[source.StringID]bool)
	vars := make([]types.TypeID, 0, len(params))
	for _, p := range params {
		if p.IsConst {
			env.constParams[p.Name] = true
			continue
		}
		v := c.freshVar()
		env.typeParams[p.Name] = v
		vars = append(vars, v)
	}
	if sym.IsValid() {
		c.paramVars[sym] = vars
	}
	return env
}

// fillNominalBodies is phase two: lower every field/variant/method-sig now
// that each nominal has an identity.
func (c *checker) fillNominalBodies(items []ast.ItemID) {
	for _, id := range items {
		item := c.u.Builder.Items.Get(id)
		if item == nil {
			continue
		}
		sym := c.res.ItemSymbol[id]
		symRec := c.u.Symbols.Symbols.Get(sym)
		if symRec == nil {
			continue
		}
		switch item.Kind {
		case ast.ItemStruct:
			decl, _ := c.u.Builder.Items.Struct(id)
			env := c.nominalEnv(sym, decl.TypeParams)
			info, _ := c.u.Types.StructInfo(symRec.Type)
			for _, f := range decl.Fields {
				info.Fields = append(info.Fields, types.StructField{Name: f.Name, Type: c.lowerType(f.Type, env)})
			}
			for _, p := range decl.TypeParams {
				if p.IsConst {
					info.ConstParams = append(info.ConstParams, types.ConstParam{Name: p.Name, Type: c.lowerType(p.ConstType, env)})
				} else {
					info.GenericParams = append(info.GenericParams, p.Name)
				}
			}
			c.u.Types.SetStructInfo(symRec.Type, info)

		case ast.ItemEnum:
			decl, _ := c.u.Builder.Items.Enum(id)
			env := c.nominalEnv(sym, decl.TypeParams)
			info, _ := c.u.Types.EnumInfo(symRec.Type)
			for _, v := range decl.Variants {
				variant := types.EnumVariant{Name: v.Name}
				for _, f := range v.PayloadFields {
					variant.Fields = append(variant.Fields, c.lowerType(f.Type, env))
				}
				info.Variants = append(info.Variants, variant)
			}
			for _, p := range decl.TypeParams {
				if p.IsConst {
					info.ConstParams = append(info.ConstParams, types.ConstParam{Name: p.Name, Type: c.lowerType(p.ConstType, env)})
				} else {
					info.GenericParams = append(info.GenericParams, p.Name)
				}
			}
			c.u.Types.SetEnumInfo(symRec.Type, info)

		case ast.ItemTrait:
			decl, _ := c.u.Builder.Items.Trait(id)
			env := c.nominalEnv(sym, decl.TypeParams)
			env.self = c.u.Types.Intern(types.Type{Kind: types.KindSelfType})
			info, _ := c.u.Types.TraitInfo(symRec.Type)
			for _, tiID := range decl.Items {
				ti := c.u.Builder.Items.TraitItem(tiID)
				if ti == nil {
					continue
				}
				switch ti.Kind {
				case ast.TraitItemFn:
					req := c.u.Builder.Items.TraitFnReq(ti)
					if req == nil {
						continue
					}
					sig := types.TraitMethodSig{Name: req.Name, Return: c.lowerType(req.ReturnType, env)}
					for i, pid := range req.Params {
						p := c.u.Builder.Items.FnParam(pid)
						if p == nil {
							continue
						}
						if i == 0 && c.isSelfName(p.Name) {
							sig.HasSelf = true
							continue
						}
						sig.Params = append(sig.Params, c.lowerType(p.Type, env))
					}
					info.Methods = append(info.Methods, sig)
				case ast.TraitItemAssocType:
					if req := c.u.Builder.Items.TraitAssocTypeReq(ti); req != nil {
						info.AssociatedTypes = append(info.AssociatedTypes, req.Name)
					}
				}
			}
			for _, p := range decl.TypeParams {
				if !p.IsConst {
					info.GenericParams = append(info.GenericParams, p.Name)
				}
			}
			c.u.Types.SetTraitInfo(symRec.Type, info)

		case ast.ItemTypeAlias:
			decl, _ := c.u.Builder.Items.TypeAlias(id)
			env := c.nominalEnv(sym, decl.TypeParams)
			symRec.Type = c.lowerType(decl.Target, env)
		}
	}
}

// lowerType elaborates a surface type expression into an interned TypeID.
// Failures lower to NoTypeID (tainted); the resolver already reported
// undefined names, so only type-level problems are diagnosed here.
func (c *checker) lowerType(id ast.TypeExprID, env lowerEnv) types.TypeID {
	if !id.IsValid() {
		return types.NoTypeID
	}
	te := c.u.Builder.Types.Get(id)
	if te == nil {
		return types.NoTypeID
	}
	switch te.Kind {
	case ast.TypeExprNamed:
		return c.lowerNamed(te, env)
	case ast.TypeExprArray:
		elem := c.lowerType(te.Elem, env)
		size, ok := c.evalArraySize(te.Size, env)
		if !ok {
			return types.NoTypeID
		}
		return c.u.Types.Intern(types.MakeArray(elem, size))
	case ast.TypeExprSlice:
		return c.u.Types.Intern(types.MakeSlice(c.lowerType(te.Elem, env)))
	case ast.TypeExprTuple:
		elems := make([]types.TypeID, len(te.Elements))
		for i, el := range te.Elements {
			elems[i] = c.lowerType(el, env)
		}
		return c.u.Types.InternTuple(elems)
	case ast.TypeExprReference:
		return c.u.Types.Intern(types.MakeReference(c.lowerType(te.Elem, env), te.Mutable, te.Lifetime))
	case ast.TypeExprPointer:
		return c.u.Types.Intern(types.MakePointer(c.lowerType(te.Elem, env), te.Mutable, te.IsConst))
	case ast.TypeExprFunction:
		params := make([]types.TypeID, len(te.Params))
		for i, p := range te.Params {
			params[i] = c.lowerType(p, env)
		}
		return c.u.Types.InternFunction(params, c.lowerType(te.Return, env), te.ExternABI, false)
	case ast.TypeExprSelf:
		return env.self
	case ast.TypeExprInferred:
		return c.freshVar()
	default:
		return types.NoTypeID
	}
}

func (c *checker) lowerNamed(te *ast.TypeExpr, env lowerEnv) types.TypeID {
	if len(te.Path) == 0 {
		return types.NoTypeID
	}
	last := te.Path[len(te.Path)-1]

	// `Self::Item` / `Trait::Item` associated-type positions
	if len(te.Path) == 2 {
		if t, ok := c.lowerAssocPath(te.Path[0], last, env); ok {
			return t
		}
	}

	if len(te.Path) == 1 {
		if env.typeParams != nil {
			if v, ok := env.typeParams[last]; ok {
				return v
			}
		}
		name := c.u.Strings.MustLookup(last)
		if name == "Self" {
			return env.self
		}
		if bt, ok := c.builtinNamed(name); ok {
			return bt
		}
	}

	sym, ok := c.u.Symbols.Lookup(env.scope, symbols.NamespaceType, last)
	if !ok {
		sym, ok = c.u.Symbols.Lookup(env.scope, symbols.NamespaceTrait, last)
	}
	if !ok {
		return types.NoTypeID
	}
	symRec := c.u.Symbols.Symbols.Get(sym)
	if symRec == nil {
		return types.NoTypeID
	}
	base := symRec.Type
	if base == types.NoTypeID {
		return types.NoTypeID
	}

	if len(te.Args) == 0 && len(te.ConstArgs) == 0 {
		return base
	}

	args := make([]types.TypeID, len(te.Args))
	for i, a := range te.Args {
		args[i] = c.lowerType(a, env)
	}
	constArgs := make([]int64, 0, len(te.ConstArgs))
	for _, ce := range te.ConstArgs {
		v, ok := c.evalConst(ce, types.Width64, env)
		if !ok {
			return types.NoTypeID
		}
		constArgs = append(constArgs, v)
	}
	inst := c.u.Types.InternGeneric(base, args, constArgs)
	if c.rec != nil && c.allConcrete(args) {
		var caller symbols.SymbolID
		if c.fn != nil {
			caller = c.fn.sym
		}
		c.rec.RecordTypeInstantiation(sym, args, constArgs, te.Span, caller, "")
	}
	return inst
}

// lowerAssocPath handles `Self::Name` (resolved through the current impl's
// bindings when available) and `Trait::Name` (an abstract reference).
func (c *checker) lowerAssocPath(first, name source.StringID, env lowerEnv) (types.TypeID, bool) {
	firstStr := c.u.Strings.MustLookup(first)
	if firstStr == "Self" {
		if env.assoc != nil {
			if t, ok := env.assoc[name]; ok {
				return t, true
			}
		}
		return c.u.Types.InternAssocTypeRef(0, name), true
	}
	if traitSym, ok := c.u.Symbols.Lookup(env.scope, symbols.NamespaceTrait, first); ok {
		return c.u.Types.InternAssocTypeRef(types.RawSymbolID(traitSym), name), true
	}
	return types.NoTypeID, false
}

func (c *checker) builtinNamed(name string) (types.TypeID, bool) {
	b := c.u.Types.Builtins()
	switch name {
	case "i8":
		return b.I8, true
	case "i16":
		return b.I16, true
	case "i32":
		return b.I32, true
	case "i64":
		return b.I64, true
	case "u8":
		return b.U8, true
	case "u16":
		return b.U16, true
	case "u32":
		return b.U32, true
	case "u64":
		return b.U64, true
	case "int":
		return b.I32, true
	case "uint":
		return b.U32, true
	case "f32":
		return b.F32, true
	case "f64":
		return b.F64, true
	case "bool":
		return b.Bool, true
	case "char":
		return b.Char, true
	case "string":
		return b.String, true
	case "void":
		return b.Unit, true
	case "none":
		return b.Never, true
	}
	return types.NoTypeID, false
}

func (c *checker) allConcrete(args []types.TypeID) bool {
	for _, a := range args {
		t, ok := c.u.Types.Lookup(c.resolve(a))
		if !ok || t.Kind == types.KindTypeVar {
			return false
		}
	}
	return true
}

func (c *checker) isSelfName(name source.StringID) bool {
	return name != source.NoStringID && c.u.Strings.MustLookup(name) == "self"
}

// declareSignatures lowers every function-shaped signature: free functions,
// extern members, and impl methods (whose symbols are created here — impl
// members live on the impl, not in the module scope).
func (c *checker) declareSignatures(items []ast.ItemID) {
	implLinks := make(map[ast.ItemID]*resolver.ImplLink, len(c.res.Impls))
	for i := range c.res.Impls {
		implLinks[c.res.Impls[i].Item] = &c.res.Impls[i]
	}

	for _, id := range items {
		item := c.u.Builder.Items.Get(id)
		if item == nil {
			continue
		}
		switch item.Kind {
		case ast.ItemFn:
			c.lowerFnSignature(id, c.res.ItemSymbol[id], lowerEnv{scope: c.res.FileScope})

		case ast.ItemExtern:
			decl, _ := c.u.Builder.Items.Extern(id)
			if decl == nil {
				continue
			}
			for _, m := range decl.Members {
				c.lowerExternMember(m)
			}

		case ast.ItemImpl:
			link := implLinks[id]
			decl, _ := c.u.Builder.Items.Impl(id)
			if link == nil || decl == nil || !link.Target.IsValid() {
				continue
			}
			targetRec := c.u.Symbols.Symbols.Get(link.Target)
			if targetRec == nil || targetRec.Type == types.NoTypeID {
				continue
			}
			env := c.nominalEnv(symbols.NoSymbolID, decl.TypeParams)
			env.self = targetRec.Type
			env.assoc = c.lowerImplAssocTypes(link, env)
			c.implAssocByItem[id] = env.assoc
			c.implTargetByItem[id] = targetRec.Type
			for _, tp := range decl.TypeParams {
				if !tp.IsConst {
					c.implVars[id] = append(c.implVars[id], env.typeParams[tp.Name])
				}
			}
			for _, m := range decl.Methods {
				fn, ok := c.u.Builder.Items.Fn(m)
				if !ok {
					continue
				}
				msym := c.u.Symbols.Symbols.New(symbols.Symbol{
					Name: fn.Name,
					Kind: symbols.SymbolFunction,
					Span: fn.Span,
					Decl: symbols.SymbolDecl{Item: m},
				})
				c.methodSyms[m] = msym
				c.methodImpl[msym] = id
				c.lowerFnSignature(m, msym, env)
			}
		}
	}
}

func (c *checker) lowerImplAssocTypes(link *resolver.ImplLink, env lowerEnv) map[source.StringID]types.TypeID {
	if len(link.AssocTypes) == 0 {
		return nil
	}
	out := make(map[source.StringID]types.TypeID, len(link.AssocTypes))
	for name, te := range link.AssocTypes {
		out[name] = c.lowerType(te, env)
	}
	return out
}

func (c *checker) lowerExternMember(m ast.ExternMember) {
	sym := c.findScopeSymbol(c.res.FileScope, symbols.SymbolExtern, m.Name)
	symRec := c.u.Symbols.Symbols.Get(sym)
	if symRec == nil {
		return
	}
	env := lowerEnv{scope: c.res.FileScope}
	sig := &symbols.FunctionSignature{Return: c.lowerType(m.ReturnType, env)}
	if sig.Return == types.NoTypeID {
		sig.Return = c.u.Types.Builtins().Unit
	}
	for _, pid := range m.Params {
		p := c.u.Builder.Items.FnParam(pid)
		if p == nil {
			continue
		}
		sig.ParamNames = append(sig.ParamNames, p.Name)
		sig.ParamTypes = append(sig.ParamTypes, c.lowerType(p.Type, env))
	}
	symRec.Signature = sig
	symRec.Type = c.u.Types.InternFunction(sig.ParamTypes, sig.Return, m.ABI, false)
}

// lowerFnSignature lowers one function's declared types, materializes
// elided lifetimes, and stores the signature on its symbol.
func (c *checker) lowerFnSignature(item ast.ItemID, sym symbols.SymbolID, outer lowerEnv) {
	fn, ok := c.u.Builder.Items.Fn(item)
	if !ok {
		return
	}
	symRec := c.u.Symbols.Symbols.Get(sym)
	if symRec == nil {
		return
	}

	env := outer
	if len(fn.TypeParams) > 0 {
		env.typeParams = make(map[source.StringID]types.TypeID, len(fn.TypeParams))
		if outer.typeParams != nil {
			for k, v := range outer.typeParams {
				env.typeParams[k] = v
			}
		}
		env.constParams = make(map[source.StringID]bool)
		vars := make([]types.TypeID, 0, len(fn.TypeParams))
		for _, tp := range fn.TypeParams {
			tps := symbols.TypeParamSymbol{Name: tp.Name, Span: tp.Span, IsConst: tp.IsConst}
			if tp.IsConst {
				env.constParams[tp.Name] = true
				tps.ConstType = c.lowerType(tp.ConstType, env)
			} else {
				v := c.freshVar()
				env.typeParams[tp.Name] = v
				vars = append(vars, v)
				for _, bound := range tp.Bounds {
					if bi, ok := c.resolveBound(bound, env); ok {
						tps.Bounds = append(tps.Bounds, bi)
					}
				}
			}
			symRec.TypeParams = append(symRec.TypeParams, tps)
		}
		c.collectWhereBounds(fn.Where, env, symRec)
		c.paramVars[sym] = vars
	}

	c.nextLifetime = 0
	sig := &symbols.FunctionSignature{}
	var inputLabels []source.StringID
	for i, pid := range fn.Params {
		p := c.u.Builder.Items.FnParam(pid)
		if p == nil {
			continue
		}
		t := c.lowerType(p.Type, env)
		if i == 0 && c.isSelfName(p.Name) {
			sig.Receiver = t
			if sig.Receiver == types.NoTypeID {
				sig.Receiver = env.self
			}
		}
		t, label := c.materializeLifetime(t)
		if label != source.NoStringID {
			inputLabels = append(inputLabels, label)
		}
		sig.ParamNames = append(sig.ParamNames, p.Name)
		sig.ParamTypes = append(sig.ParamTypes, t)
	}

	ret := c.lowerType(fn.ReturnType, env)
	if !fn.ReturnType.IsValid() {
		ret = c.u.Types.Builtins().Unit
	}
	info := FnLifetimeInfo{Inputs: inputLabels}
	ret, info.Return, info.Elided = c.elideReturn(ret, inputLabels)
	sig.Return = ret
	c.out.Lifetimes[item] = info

	symRec.Signature = sig
	symRec.Type = c.u.Types.InternFunction(sig.ParamTypes, sig.Return, source.NoStringID, false)
}

func (c *checker) collectWhereBounds(where []ast.WhereClauseItem, env lowerEnv, symRec *symbols.Symbol) {
	for _, w := range where {
		subject := c.u.Builder.Types.Get(w.Subject)
		if subject == nil || subject.Kind != ast.TypeExprNamed || len(subject.Path) != 1 {
			continue
		}
		name := subject.Path[0]
		for i := range symRec.TypeParams {
			if symRec.TypeParams[i].Name != name {
				continue
			}
			for _, bound := range w.Bounds {
				if bi, ok := c.resolveBound(bound, env); ok {
					symRec.TypeParams[i].Bounds = append(symRec.TypeParams[i].Bounds, bi)
				}
			}
		}
	}
}

func (c *checker) resolveBound(bound ast.TypeExprID, env lowerEnv) (symbols.BoundInstance, bool) {
	te := c.u.Builder.Types.Get(bound)
	if te == nil || te.Kind != ast.TypeExprNamed || len(te.Path) == 0 {
		return symbols.BoundInstance{}, false
	}
	traitSym, ok := c.u.Symbols.Lookup(env.scope, symbols.NamespaceTrait, te.Path[len(te.Path)-1])
	if !ok {
		return symbols.BoundInstance{}, false
	}
	bi := symbols.BoundInstance{Trait: traitSym, Span: te.Span}
	for _, a := range te.Args {
		bi.Args = append(bi.Args, c.lowerType(a, env))
	}
	return bi, true
}

// materializeLifetime gives an unlabeled reference parameter a fresh
// symbolic label ('a, 'b, ...), returning the relabeled
// type and the label (NoStringID for non-references).
func (c *checker) materializeLifetime(t types.TypeID) (types.TypeID, source.StringID) {
	tt, ok := c.u.Types.Lookup(t)
	if !ok || tt.Kind != types.KindReference {
		return t, source.NoStringID
	}
	if tt.Lifetime != source.NoStringID {
		return t, tt.Lifetime
	}
	label := c.freshLifetimeLabel()
	return c.u.Types.Intern(types.MakeReference(tt.Elem, tt.Mutable, label)), label
}

// elideReturn applies the single-input elision rule: exactly one input
// reference propagates its label to an unlabeled reference return;
// otherwise the return keeps its declared label or stays unlabeled (an
// Open Question decision recorded in DESIGN.md — no signature-time
// rejection).
func (c *checker) elideReturn(ret types.TypeID, inputs []source.StringID) (types.TypeID, source.StringID, bool) {
	tt, ok := c.u.Types.Lookup(ret)
	if !ok || tt.Kind != types.KindReference {
		return ret, source.NoStringID, false
	}
	if tt.Lifetime != source.NoStringID {
		return ret, tt.Lifetime, false
	}
	if len(inputs) == 1 {
		relabeled := c.u.Types.Intern(types.MakeReference(tt.Elem, tt.Mutable, inputs[0]))
		return relabeled, inputs[0], true
	}
	return ret, source.NoStringID, false
}

func (c *checker) freshLifetimeLabel() source.StringID {
	n := c.nextLifetime
	c.nextLifetime++
	if n < 26 {
		return c.u.Strings.Intern("'" + string(rune('a'+n)))
	}
	return c.u.Strings.Intern(fmt.Sprintf("'l%d", n))
}

// registerImpls installs one symbols.ImplRecord per linked impl so method
// dispatch can query by target type.
func (c *checker) registerImpls() {
	for i := range c.res.Impls {
		link := &c.res.Impls[i]
		if !link.Target.IsValid() {
			continue
		}
		target := c.implTargetByItem[link.Item]
		if target == types.NoTypeID {
			continue
		}
		rec := symbols.ImplRecord{
			Target:     target,
			Trait:      link.Trait,
			Methods:    make(map[source.StringID]symbols.SymbolID, len(link.Methods)),
			AssocTypes: c.implAssocByItem[link.Item],
		}
		if item := c.u.Builder.Items.Get(link.Item); item != nil {
			rec.Span = item.Span
		}
		for name, methodItem := range link.Methods {
			if msym, ok := c.methodSyms[methodItem]; ok {
				rec.Methods[name] = msym
			}
		}
		c.u.Symbols.Impls.Add(rec)
	}
}

// evalTopLevelConsts evaluates every named const in source order so later
// consts (and array sizes) can reference earlier ones.
func (c *checker) evalTopLevelConsts(items []ast.ItemID) {
	env := lowerEnv{scope: c.res.FileScope}
	for _, id := range items {
		decl, ok := c.u.Builder.Items.Const(id)
		if !ok {
			continue
		}
		sym := c.res.ItemSymbol[id]
		symRec := c.u.Symbols.Symbols.Get(sym)
		if symRec == nil {
			continue
		}
		declared := c.lowerType(decl.TypeAnn, env)
		if declared == types.NoTypeID {
			declared = c.u.Types.Builtins().I32
		}
		symRec.Type = declared
		if v, ok := c.evalConst(decl.Init, c.widthOf(declared), env); ok {
			c.out.ConstValues[sym] = v
		}
	}
}

func (c *checker) widthOf(t types.TypeID) types.Width {
	tt, ok := c.u.Types.Lookup(t)
	if !ok {
		return types.Width32
	}
	switch tt.Kind {
	case types.KindInt, types.KindUint:
		if tt.Width == types.WidthAny {
			return types.Width32
		}
		return tt.Width
	default:
		return types.Width32
	}
}

// findScopeSymbol scans one scope's declarations for a kind/name pair,
// bypassing shadowing (Lookup would return the newest binding).
func (c *checker) findScopeSymbol(scope symbols.ScopeID, kind symbols.SymbolKind, name source.StringID) symbols.SymbolID {
	sc := c.u.Symbols.Scopes.Get(scope)
	if sc == nil {
		return symbols.NoSymbolID
	}
	for _, id := range sc.Symbols {
		if sym := c.u.Symbols.Symbols.Get(id); sym != nil && sym.Kind == kind && sym.Name == name {
			return id
		}
	}
	return symbols.NoSymbolID
}

// evalArraySize evaluates an array-length const expression, rejecting
// negative sizes. A size naming a const generic parameter
// is legal and unknown until monomorphization; zero stands in for it.
func (c *checker) evalArraySize(size ast.ExprID, env lowerEnv) (uint32, bool) {
	if !size.IsValid() {
		return 0, false
	}
	if env.constParams != nil {
		if e := c.u.Builder.Exprs.Get(size); e != nil && e.Kind == ast.ExprIdent && len(e.Path) == 1 && env.constParams[e.Path[0]] {
			return 0, true
		}
	}
	v, ok := c.evalConst(size, types.Width32, env)
	if !ok {
		return 0, false
	}
	if v < 0 {
		span := source.Span{}
		if e := c.u.Builder.Exprs.Get(size); e != nil {
			span = e.Span
		}
		c.u.Diags.Add(diag.NewError(diag.ConstEvalNegSize, span, fmt.Sprintf("array size must be non-negative, got %d", v)))
		return 0, false
	}
	return uint32(v), true // #nosec G115 -- bounded by the width check in evalConst
}
