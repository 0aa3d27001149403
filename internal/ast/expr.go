package ast

import "ember/internal/source"

// ExprKind enumerates every expression shape the checker elaborates.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprIdent            // possibly a multi-segment path `a::b::c`
	ExprLitInt
	ExprLitFloat
	ExprLitBool
	ExprLitString
	ExprLitChar
	ExprUnit // `()`
	ExprBinary
	ExprUnary
	ExprCall
	ExprMember // `a.b`
	ExprIndex  // `a[b]`
	ExprCast   // `a as T`
	ExprGroup  // `(a)`
	ExprTuple
	ExprArrayLit
	ExprStructLit
	ExprEnumConstruct // `Enum.Variant(args)`
	ExprReference     // `&a` / `&mut a`
	ExprDeref         // `*a`
	ExprAssign
	ExprTry            // `try E`
	ExprWith           // `with x = init: body`
	ExprClosureParam   // compile-time parameter closure literal
	ExprClosureRuntime // runtime (heap-capable) closure literal
)

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinBitAnd
	BinBitOr
	BinBitXor
	BinShl
	BinShr
	BinLogicalAnd
	BinLogicalOr
	BinEq
	BinNotEq
	BinLt
	BinLtEq
	BinGt
	BinGtEq
)

// UnaryOp enumerates unary operators.
type UnaryOp uint8

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
	UnaryBitNot
)

// AssignOp enumerates plain and compound assignment operators.
type AssignOp uint8

const (
	AssignPlain AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
)

// FieldInit is one `name: value` entry of a struct literal.
type FieldInit struct {
	Name  source.StringID
	Value ExprID
}

// Expr is the tagged-variant node for every expression. Only the fields
// relevant to Kind are meaningful; see the ExprKind constant comments.
type Expr struct {
	Kind ExprKind
	Span source.Span

	Path []source.StringID // ExprIdent / ExprStructLit / ExprEnumConstruct type path

	LitInt    int64
	LitFloat  float64
	LitBool   bool
	LitString string
	LitChar   rune

	BinOp BinaryOp
	Lhs   ExprID
	Rhs   ExprID

	UnOp    UnaryOp
	Operand ExprID

	Callee ExprID
	Args   []ExprID

	Field  source.StringID // ExprMember
	Target TypeExprID      // ExprCast

	Elements []ExprID // ExprTuple / ExprArrayLit

	Fields []FieldInit // ExprStructLit

	Variant source.StringID // ExprEnumConstruct

	Mutable bool // ExprReference / AssignOp context / closure `move`

	AssignOp AssignOp // ExprAssign

	// ExprWith (pre-desugar only)
	WithPattern PatternID
	WithType    TypeExprID
	WithInit    ExprID
	WithBody    StmtID

	// ExprClosureParam / ExprClosureRuntime
	ClosureParams []FnParamID
	ClosureRet    TypeExprID
	ClosureBody   StmtID // a StmtBlock
	ClosureIsMove bool
}

// Exprs owns the arena of all expression nodes in a file.
type Exprs struct {
	arena *Arena[Expr]
}

// NewExprs creates an empty Exprs arena.
func NewExprs(capHint uint) *Exprs {
	return &Exprs{arena: NewArena[Expr](capHint)}
}

// New allocates an expression node and returns its ID.
func (e *Exprs) New(n Expr) ExprID {
	return ExprID(e.arena.Allocate(n))
}

// Get returns the node for id, or nil.
func (e *Exprs) Get(id ExprID) *Expr {
	return e.arena.Get(uint32(id))
}
