package symbols

import (
	"ember/internal/ast"
	"ember/internal/source"
)

// ScopeKind enumerates the lexical scope shapes the resolver creates.
type ScopeKind uint8

const (
	ScopeInvalid ScopeKind = iota
	ScopeFile              // artificial root scope per parsed translation unit
	ScopeModule            // top-level declarations
	ScopeFunction          // a function body, including its parameters
	ScopeBlock             // any nested block (if/match arm, loop body, ...)
	ScopeImpl              // an impl block (hosts `Self`)
	ScopeTrait             // a trait declaration body
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeFile:
		return "file"
	case ScopeModule:
		return "module"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	case ScopeImpl:
		return "impl"
	case ScopeTrait:
		return "trait"
	default:
		return "invalid"
	}
}

// ScopeOwnerKind distinguishes what AST construct owns a scope.
type ScopeOwnerKind uint8

const (
	ScopeOwnerUnknown ScopeOwnerKind = iota
	ScopeOwnerFile
	ScopeOwnerItem
	ScopeOwnerStmt
	ScopeOwnerExpr
)

// ScopeOwner references the AST construct a scope was created for.
type ScopeOwner struct {
	Kind       ScopeOwnerKind
	SourceFile source.FileID
	Item       ast.ItemID
	Stmt       ast.StmtID
	Expr       ast.ExprID
}

// Scope models one lexical scope in the parent-chain hierarchy. Name
// lookup is namespace-aware: the same identifier may simultaneously name a
// value and a type.
type Scope struct {
	Kind      ScopeKind
	Parent    ScopeID
	Owner     ScopeOwner
	Span      source.Span
	NameIndex map[namespaceKey][]SymbolID
	Symbols   []SymbolID
	Children  []ScopeID
}

// Namespace partitions identifier lookups: identifiers resolve in the
// value namespace, types in the type namespace.
type Namespace uint8

const (
	NamespaceValue Namespace = iota
	NamespaceType
	NamespaceTrait
	NamespaceFunction
	NamespaceModule
)

type namespaceKey struct {
	NS   Namespace
	Name source.StringID
}
