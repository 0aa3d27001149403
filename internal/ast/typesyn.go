package ast

import "ember/internal/source"

// TypeExprKind enumerates the surface syntax for type positions. This is
// the unchecked counterpart of types.Kind: the type checker elaborates
// each TypeExpr into an interned types.TypeID.
type TypeExprKind uint8

const (
	TypeExprInvalid TypeExprKind = iota
	TypeExprNamed                // `Foo`, `std::collections::List` (path), possibly generic
	TypeExprArray                // `[T; N]`
	TypeExprSlice                // `[T]`
	TypeExprTuple                // `(T, U, ...)`
	TypeExprReference             // `&T` / `&mut T`, optional lifetime label
	TypeExprPointer               // `*T` / `*mut T`
	TypeExprFunction               // `fn(T, U) -> R`
	TypeExprSelf                  // `Self`
	TypeExprInferred               // `_`
)

// TypeExpr is the tagged-variant node for a type position. Not every field
// is meaningful for every Kind; see the comment on each Kind above.
type TypeExpr struct {
	Kind TypeExprKind
	Span source.Span

	// TypeExprNamed
	Path      []source.StringID // module path segments, last is the name
	Args      []TypeExprID      // generic type arguments
	ConstArgs []ExprID          // compile-time const arguments (array size, N)

	// TypeExprArray / TypeExprSlice / TypeExprReference / TypeExprPointer
	Elem TypeExprID

	// TypeExprArray
	Size ExprID // const-expression array length

	// TypeExprTuple
	Elements []TypeExprID

	// TypeExprReference / TypeExprPointer
	Mutable  bool
	IsConst  bool            // pointer const qualifier
	Lifetime source.StringID // NoStringID when elided

	// TypeExprFunction
	Params    []TypeExprID
	Return    TypeExprID
	ExternABI source.StringID
}

// TypeExprs owns the arena of all type-expression nodes in a file.
type TypeExprs struct {
	arena *Arena[TypeExpr]
}

// NewTypeExprs creates an empty TypeExprs arena.
func NewTypeExprs(capHint uint) *TypeExprs {
	return &TypeExprs{arena: NewArena[TypeExpr](capHint)}
}

// New allocates a type expression node and returns its ID.
func (t *TypeExprs) New(n TypeExpr) TypeExprID {
	return TypeExprID(t.arena.Allocate(n))
}

// Get returns the node for id, or nil.
func (t *TypeExprs) Get(id TypeExprID) *TypeExpr {
	return t.arena.Get(uint32(id))
}
