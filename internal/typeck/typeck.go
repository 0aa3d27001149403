// Package typeck assigns every expression and pattern an interned type:
// unification over inference variables, lifetime elision,
// trait-obligation checking, associated-type coherence, constant
// evaluation in type positions, and `try` typing. It also emits a
// monomorphization request for every fully concrete generic
// instantiation; an instantiation that fails a bound is diagnosed and
// still recorded.
package typeck

import (
	"ember/internal/ast"
	"ember/internal/desugar"
	"ember/internal/resolver"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
	"ember/internal/unit"
)

// Recorder receives monomorphization requests. mono.InstantiationMapRecorder
// is the production implementation; tests may substitute their own.
type Recorder interface {
	RecordFnInstantiation(fn symbols.SymbolID, typeArgs []types.TypeID, constArgs []int64, site source.Span, caller symbols.SymbolID, note string)
	RecordTypeInstantiation(typeSym symbols.SymbolID, typeArgs []types.TypeID, constArgs []int64, site source.Span, caller symbols.SymbolID, note string)
	RecordTraitImplInstantiation(implSym symbols.SymbolID, typeArgs []types.TypeID, constArgs []int64, site source.Span, caller symbols.SymbolID, note string)
}

// FnLifetimeInfo is the per-function outcome of lifetime elision: the
// materialized input labels and the label the return type carries,
// NoStringID when it stayed unlabeled.
type FnLifetimeInfo struct {
	Inputs []source.StringID
	Return source.StringID
	// Elided is true when the single-input rule propagated the input label
	// to the return position.
	Elided bool
}

// Result is the type checker's output: type annotations for every
// expression and pattern (or taint markers), resolved method targets, and
// lifetime info per function for the borrow checker.
type Result struct {
	ExprType    map[ast.ExprID]types.TypeID
	PatternType map[ast.PatternID]types.TypeID
	Tainted     map[ast.ExprID]bool

	// MethodSymbol maps a call's ExprMember callee to the method symbol
	// trait/inherent resolution selected.
	MethodSymbol map[ast.ExprID]symbols.SymbolID

	// Lifetimes records elision outcomes keyed by function item.
	Lifetimes map[ast.ItemID]FnLifetimeInfo

	// ConstValues holds every named const's evaluated value.
	ConstValues map[symbols.SymbolID]int64
}

// TypeOf returns the resolved type of an expression, or NoTypeID when the
// node is tainted or was never checked.
func (r *Result) TypeOf(id ast.ExprID) types.TypeID {
	if r == nil {
		return types.NoTypeID
	}
	return r.ExprType[id]
}

// IsTainted reports whether an expression's type could not be established.
func (r *Result) IsTainted(id ast.ExprID) bool {
	return r != nil && r.Tainted[id]
}

type fnCtx struct {
	sym     symbols.SymbolID
	item    ast.ItemID
	ret     types.TypeID
	retSpan source.Span
}

type checker struct {
	u   *unit.Unit
	res *resolver.Result
	out *Result
	rec Recorder

	// paramVars maps a generic function/nominal symbol to the inference
	// variables standing in for its type parameters, parallel to
	// Symbol.TypeParams order.
	paramVars map[symbols.SymbolID][]types.TypeID

	// litVars tags inference variables created for unsuffixed literals so
	// the defaulting pass can pick i32/f64.
	litVars map[types.TypeID]uint8

	// methodSyms maps impl-method items to the symbols declareSignatures
	// created for them (impl members live on the impl, not in any scope).
	methodSyms map[ast.ItemID]symbols.SymbolID

	// implAssocByItem / implTargetByItem record each impl's lowered
	// associated-type bindings and target type for Self::Name substitution
	// while checking its method bodies.
	implAssocByItem  map[ast.ItemID]map[source.StringID]types.TypeID
	implTargetByItem map[ast.ItemID]types.TypeID

	// implVars lists a generic impl's parameter variables; methodImpl maps
	// each method symbol back to its impl item so call sites can
	// instantiate the impl's parameters per call.
	implVars   map[ast.ItemID][]types.TypeID
	methodImpl map[symbols.SymbolID]ast.ItemID

	fn  *fnCtx
	env lowerEnv

	// pendingFnInsts / pendingTypeInsts hold generic instantiations until
	// finalize, when inference has bound everything it ever will.
	pendingFnInsts   []pendingInst
	pendingTypeInsts []pendingInst

	nextLifetime int
}

const (
	litInt uint8 = iota + 1
	litFloat
)

// Run type-checks one desugared file. res is the resolver output for the
// same file; dsg supplies the `with` close-obligations to validate; rec
// receives monomorphization requests and may be nil.
func Run(u *unit.Unit, res *resolver.Result, dsg *desugar.Result, fileID ast.FileID, rec Recorder) *Result {
	out := &Result{
		ExprType:     make(map[ast.ExprID]types.TypeID),
		PatternType:  make(map[ast.PatternID]types.TypeID),
		Tainted:      make(map[ast.ExprID]bool),
		MethodSymbol: make(map[ast.ExprID]symbols.SymbolID),
		Lifetimes:    make(map[ast.ItemID]FnLifetimeInfo),
		ConstValues:  make(map[symbols.SymbolID]int64),
	}
	file := u.Builder.Files.Get(fileID)
	if file == nil {
		return out
	}
	c := &checker{
		u:                u,
		res:              res,
		out:              out,
		rec:              rec,
		paramVars:        make(map[symbols.SymbolID][]types.TypeID),
		litVars:          make(map[types.TypeID]uint8),
		methodSyms:       make(map[ast.ItemID]symbols.SymbolID),
		implAssocByItem:  make(map[ast.ItemID]map[source.StringID]types.TypeID),
		implTargetByItem: make(map[ast.ItemID]types.TypeID),
		implVars:         make(map[ast.ItemID][]types.TypeID),
		methodImpl:       make(map[symbols.SymbolID]ast.ItemID),
	}

	c.declareNominals(file.Items)
	c.evalTopLevelConsts(file.Items)
	c.fillNominalBodies(file.Items)
	c.declareSignatures(file.Items)
	c.registerImpls()
	c.checkBodies(file.Items)
	if dsg != nil {
		c.checkCloseObligations(dsg.CloseObligations)
	}
	c.finalize()
	return out
}

// finalize resolves every recorded annotation through the substitution and
// defaults any still-free literal variable.
func (c *checker) finalize() {
	for id, t := range c.out.ExprType {
		c.out.ExprType[id] = c.defaulted(t)
	}
	for id, t := range c.out.PatternType {
		c.out.PatternType[id] = c.defaulted(t)
	}
	for i := 1; i <= c.u.Symbols.Symbols.Len(); i++ {
		sym := c.u.Symbols.Symbols.Get(symbols.SymbolID(i))
		if sym != nil && sym.Type != types.NoTypeID {
			sym.Type = c.defaulted(sym.Type)
		}
	}
	c.flushPendingInsts()
}

func (c *checker) defaulted(t types.TypeID) types.TypeID {
	r := c.resolve(t)
	tt, ok := c.u.Types.Lookup(r)
	if !ok || tt.Kind != types.KindTypeVar {
		return r
	}
	b := c.u.Types.Builtins()
	switch c.litVars[r] {
	case litInt:
		c.bindVar(r, b.I32)
		return b.I32
	case litFloat:
		c.bindVar(r, b.F64)
		return b.F64
	}
	return r
}

func (c *checker) taint(id ast.ExprID) {
	if id.IsValid() {
		c.out.Tainted[id] = true
	}
}

// exprTainted reports whether the node was tainted by this stage or by the
// resolver, so cascades stay silent.
func (c *checker) exprTainted(id ast.ExprID) bool {
	if c.out.Tainted[id] {
		return true
	}
	return c.res != nil && c.res.IsTainted(id)
}
