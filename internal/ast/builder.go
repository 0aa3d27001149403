package ast

import "ember/internal/source"

// Hints provides capacity hints for a Builder's arenas.
type Hints struct{ Files, Items, Stmts, Exprs, Types, Patterns uint }

// Builder owns every arena needed to construct an AST and is the single
// entry point resolver/typeck/ownership/borrow consume as the external
// input contract.
type Builder struct {
	Files     *Files
	Items     *Items
	Stmts     *Stmts
	Exprs     *Exprs
	Types     *TypeExprs
	Patterns  *Patterns
	MatchArms *MatchArms

	Strings *source.Interner
}

// NewBuilder creates a Builder with capacity hints and a shared string
// interner. Zero-valued hint fields fall back to defaults tuned for a
// small-to-medium file.
func NewBuilder(hints Hints, strings *source.Interner) *Builder {
	if hints.Files == 0 {
		hints.Files = 1 << 6
	}
	if hints.Items == 0 {
		hints.Items = 1 << 7
	}
	if hints.Stmts == 0 {
		hints.Stmts = 1 << 8
	}
	if hints.Exprs == 0 {
		hints.Exprs = 1 << 8
	}
	if hints.Types == 0 {
		hints.Types = 1 << 7
	}
	if hints.Patterns == 0 {
		hints.Patterns = 1 << 6
	}
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Builder{
		Files:     NewFiles(hints.Files),
		Items:     NewItems(hints.Items),
		Stmts:     NewStmts(hints.Stmts),
		Exprs:     NewExprs(hints.Exprs),
		Types:     NewTypeExprs(hints.Types),
		Patterns:  NewPatterns(hints.Patterns),
		MatchArms: NewMatchArms(hints.Patterns),
		Strings:   strings,
	}
}

// NewFile allocates a File node and returns its ID.
func (b *Builder) NewFile(id source.FileID, span source.Span) FileID {
	return b.Files.New(id, span)
}

// PushItem appends item to file's item list.
func (b *Builder) PushItem(file FileID, item ItemID) {
	f := b.Files.Get(file)
	if f == nil {
		return
	}
	f.Items = append(f.Items, item)
}

// NewExpr allocates an expression node and returns its ID.
func (b *Builder) NewExpr(n Expr) ExprID { return b.Exprs.New(n) }

// NewStmt allocates a statement node and returns its ID.
func (b *Builder) NewStmt(n Stmt) StmtID { return b.Stmts.New(n) }

// NewType allocates a type-expression node and returns its ID.
func (b *Builder) NewType(n TypeExpr) TypeExprID { return b.Types.New(n) }

// NewPattern allocates a pattern node and returns its ID.
func (b *Builder) NewPattern(n Pattern) PatternID { return b.Patterns.New(n) }

// NewMatchArm allocates a match-arm node and returns its ID.
func (b *Builder) NewMatchArm(n MatchArm) MatchArmID { return b.MatchArms.New(n) }

// NewFn allocates a function item and returns its ID.
func (b *Builder) NewFn(fn FnItem) ItemID { return b.Items.NewFn(fn) }

// NewFnParam allocates a function parameter and returns its ID.
func (b *Builder) NewFnParam(p FnParam) FnParamID { return b.Items.NewFnParam(p) }

// NewStruct allocates a struct declaration and returns its item ID.
func (b *Builder) NewStruct(d StructDecl) ItemID { return b.Items.NewStruct(d) }

// NewEnum allocates an enum declaration and returns its item ID.
func (b *Builder) NewEnum(d EnumDecl) ItemID { return b.Items.NewEnum(d) }

// NewTrait allocates a trait declaration and returns its item ID.
func (b *Builder) NewTrait(d TraitDecl) ItemID { return b.Items.NewTrait(d) }

// NewImpl allocates an impl block and returns its item ID.
func (b *Builder) NewImpl(d ImplDecl) ItemID { return b.Items.NewImpl(d) }

// NewConst allocates a top-level const item and returns its item ID.
func (b *Builder) NewConst(d ConstItem) ItemID { return b.Items.NewConst(d) }

// NewTypeAlias allocates a type-alias item and returns its item ID.
func (b *Builder) NewTypeAlias(d TypeAliasDecl) ItemID { return b.Items.NewTypeAlias(d) }

// NewOpaque allocates an opaque-type item and returns its item ID.
func (b *Builder) NewOpaque(d OpaqueDecl) ItemID { return b.Items.NewOpaque(d) }

// NewExtern allocates an extern block and returns its item ID.
func (b *Builder) NewExtern(d ExternBlock) ItemID { return b.Items.NewExtern(d) }

// NewImport allocates an import item and returns its item ID.
func (b *Builder) NewImport(d ImportItem) ItemID { return b.Items.NewImport(d) }

// Intern interns s in the builder's shared string table.
func (b *Builder) Intern(s string) source.StringID { return b.Strings.Intern(s) }
