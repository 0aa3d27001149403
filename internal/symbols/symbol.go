package symbols

import (
	"ember/internal/ast"
	"ember/internal/source"
	"ember/internal/types"
)

// SymbolKind classifies what a declared name denotes.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolModule
	SymbolFunction
	SymbolLet
	SymbolConst
	SymbolParam
	SymbolStruct
	SymbolEnum
	SymbolTrait
	SymbolOpaque
	SymbolExtern
	SymbolTypeAlias
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolModule:
		return "module"
	case SymbolFunction:
		return "function"
	case SymbolLet:
		return "let"
	case SymbolConst:
		return "const"
	case SymbolParam:
		return "param"
	case SymbolStruct:
		return "struct"
	case SymbolEnum:
		return "enum"
	case SymbolTrait:
		return "trait"
	case SymbolOpaque:
		return "opaque"
	case SymbolExtern:
		return "extern"
	case SymbolTypeAlias:
		return "type alias"
	default:
		return "invalid"
	}
}

// Namespace reports which lookup namespace a symbol kind occupies.
func (k SymbolKind) Namespace() Namespace {
	switch k {
	case SymbolLet, SymbolConst, SymbolParam, SymbolExtern:
		return NamespaceValue
	case SymbolStruct, SymbolEnum, SymbolOpaque, SymbolTypeAlias:
		return NamespaceType
	case SymbolTrait:
		return NamespaceTrait
	case SymbolFunction:
		return NamespaceFunction
	case SymbolModule:
		return NamespaceModule
	default:
		return NamespaceValue
	}
}

// SymbolFlags are miscellaneous per-symbol attributes.
type SymbolFlags uint16

const (
	SymbolFlagPublic SymbolFlags = 1 << iota
	SymbolFlagMutable
	SymbolFlagBuiltin
	SymbolFlagShadowsValue // explicitly permitted same-scope value rebinding
)

// SymbolDecl points back at the AST node that introduced a symbol, for
// diagnostics.
type SymbolDecl struct {
	SourceFile source.FileID
	Item       ast.ItemID
	Stmt       ast.StmtID
	Expr       ast.ExprID
}

// TypeParamSymbol describes one generic or compile-time parameter bound to
// a function/struct/enum/trait/impl.
type TypeParamSymbol struct {
	Name      source.StringID
	Span      source.Span
	IsConst   bool             // integer/bool compile-time parameter
	ConstType types.TypeID     // only meaningful when IsConst
	Bounds    []BoundInstance  // `where T: Trait + Trait` obligations
}

// BoundInstance is one resolved `T: Trait[Args]` obligation.
type BoundInstance struct {
	Trait SymbolID
	Args  []types.TypeID
	Span  source.Span
}

// FunctionSignature records a function's resolved parameter/return types,
// independent of the generic TypeID the checker assigns to the whole
// function value (symbols.Type holds that).
type FunctionSignature struct {
	ParamNames []source.StringID
	ParamTypes []types.TypeID
	Return     types.TypeID
	Receiver   types.TypeID // NoTypeID for free functions
}

// Symbol describes one named entity visible in some scope.
type Symbol struct {
	Name       source.StringID
	Kind       SymbolKind
	Scope      ScopeID
	Span       source.Span
	Flags      SymbolFlags
	Decl       SymbolDecl
	Type       types.TypeID
	TypeParams []TypeParamSymbol
	Signature  *FunctionSignature
}
