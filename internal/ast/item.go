package ast

import (
	"fmt"

	"fortio.org/safecast"

	"ember/internal/source"
)

// ItemKind enumerates top-level and trait/impl-member item shapes.
type ItemKind uint8

const (
	ItemInvalid ItemKind = iota
	ItemFn
	ItemStruct
	ItemEnum
	ItemTrait
	ItemImpl
	ItemConst
	ItemTypeAlias
	ItemOpaque
	ItemExtern
	ItemImport
)

// Item is a top-level (or impl/trait-member) declaration. Payload indexes
// into the per-kind arena named by Kind; see Items for the arena layout.
type Item struct {
	Kind    ItemKind
	Span    source.Span
	Payload uint32
}

// TypeParam is one generic parameter: a type parameter (optionally bounded
// by trait paths) or a const parameter.
type TypeParam struct {
	Name      source.StringID
	IsConst   bool
	ConstType TypeExprID // meaningful when IsConst
	Bounds    []TypeExprID
	Span      source.Span
}

// WhereClauseItem is one `T: Bound1 + Bound2` entry of a `where` clause.
type WhereClauseItem struct {
	Subject TypeExprID
	Bounds  []TypeExprID
}

// StructFieldDecl is one field of a struct declaration.
type StructFieldDecl struct {
	Name source.StringID
	Type TypeExprID
	Span source.Span
}

// StructDecl is a `struct` item.
type StructDecl struct {
	Name       source.StringID
	TypeParams []TypeParam
	Where      []WhereClauseItem
	Fields     []StructFieldDecl
	Span       source.Span
}

// EnumVariantDecl is one variant of an enum declaration.
type EnumVariantDecl struct {
	Name       source.StringID
	PayloadFields []StructFieldDecl // positional/named payload, empty for a unit variant
	Span       source.Span
}

// EnumDecl is an `enum` item.
type EnumDecl struct {
	Name       source.StringID
	TypeParams []TypeParam
	Where      []WhereClauseItem
	Variants   []EnumVariantDecl
	Span       source.Span
}

// ConstItem is a top-level `const` declaration.
type ConstItem struct {
	Name    source.StringID
	TypeAnn TypeExprID
	Init    ExprID
	Span    source.Span
}

// TypeAliasDecl is a `type Name = T` item.
type TypeAliasDecl struct {
	Name       source.StringID
	TypeParams []TypeParam
	Target     TypeExprID
	Span       source.Span
}

// OpaqueDecl is a nominal type with no structural body, used to model
// library/extern-provided types that still participate in trait dispatch.
type OpaqueDecl struct {
	Name       source.StringID
	TypeParams []TypeParam
	Span       source.Span
}

// ExternMember is one function signature inside an `extern` block.
type ExternMember struct {
	Name       source.StringID
	Params     []FnParamID
	ReturnType TypeExprID
	ABI        source.StringID
	Span       source.Span
}

// ExternBlock is an `extern "ABI" { ... }` item.
type ExternBlock struct {
	ABI     source.StringID
	Members []ExternMember
	Span    source.Span
}

// ImportItem is a module import.
type ImportItem struct {
	Path  []source.StringID
	Alias source.StringID // NoStringID when unaliased
	Span  source.Span
}

// Items owns the per-kind arenas backing every declaration in a file set.
type Items struct {
	arena *Arena[Item]

	Fns      *Arena[FnItem]
	FnParams *Arena[FnParam]

	Structs *Arena[StructDecl]
	Enums   *Arena[EnumDecl]

	Traits     *Arena[TraitDecl]
	TraitItems *Arena[TraitItem]

	// Lazily created by traitFieldReqs/traitFnReqs/traitAssocTypeReqs in
	// traitdecl.go since most files declare no traits at all.
	traitFieldReqsArena     *Arena[TraitFieldReq]
	traitFnReqsArena        *Arena[TraitFnReq]
	traitAssocTypeReqsArena *Arena[TraitAssocTypeReq]

	Impls *Arena[ImplDecl]

	Consts      *Arena[ConstItem]
	TypeAliases *Arena[TypeAliasDecl]
	Opaques     *Arena[OpaqueDecl]
	Externs     *Arena[ExternBlock]
	Imports     *Arena[ImportItem]
}

// NewItems creates an Items with per-kind arenas sized to capHint (default
// 1<<7 when 0).
func NewItems(capHint uint) *Items {
	if capHint == 0 {
		capHint = 1 << 7
	}
	return &Items{
		arena:       NewArena[Item](capHint),
		Fns:         NewArena[FnItem](capHint),
		FnParams:    NewArena[FnParam](capHint),
		Structs:     NewArena[StructDecl](capHint),
		Enums:       NewArena[EnumDecl](capHint),
		Traits:      NewArena[TraitDecl](capHint),
		TraitItems:  NewArena[TraitItem](capHint),
		Impls:       NewArena[ImplDecl](capHint),
		Consts:      NewArena[ConstItem](capHint),
		TypeAliases: NewArena[TypeAliasDecl](capHint),
		Opaques:     NewArena[OpaqueDecl](capHint),
		Externs:     NewArena[ExternBlock](capHint),
		Imports:     NewArena[ImportItem](capHint),
	}
}

func mustU32Items(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("ast: item payload overflow: %w", err))
	}
	return v
}

// new allocates an Item wrapper pointing at a payload already stored in one
// of the per-kind arenas.
func (i *Items) new(kind ItemKind, span source.Span, payload uint32) ItemID {
	return ItemID(i.arena.Allocate(Item{Kind: kind, Span: span, Payload: payload}))
}

// Get returns the item wrapper for id, or nil.
func (i *Items) Get(id ItemID) *Item {
	return i.arena.Get(uint32(id))
}

// NewStruct interns a struct declaration and returns its item ID.
func (i *Items) NewStruct(d StructDecl) ItemID {
	idx := i.Structs.Allocate(d)
	return i.new(ItemStruct, d.Span, idx)
}

// Struct returns the StructDecl for id, or (nil,false) if id is not a struct.
func (i *Items) Struct(id ItemID) (*StructDecl, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemStruct {
		return nil, false
	}
	return i.Structs.Get(item.Payload), true
}

// NewEnum interns an enum declaration and returns its item ID.
func (i *Items) NewEnum(d EnumDecl) ItemID {
	idx := i.Enums.Allocate(d)
	return i.new(ItemEnum, d.Span, idx)
}

// Enum returns the EnumDecl for id, or (nil,false) if id is not an enum.
func (i *Items) Enum(id ItemID) (*EnumDecl, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemEnum {
		return nil, false
	}
	return i.Enums.Get(item.Payload), true
}

// NewConst interns a top-level const item and returns its item ID.
func (i *Items) NewConst(d ConstItem) ItemID {
	idx := i.Consts.Allocate(d)
	return i.new(ItemConst, d.Span, idx)
}

// Const returns the ConstItem for id, or (nil,false) if id is not a const.
func (i *Items) Const(id ItemID) (*ConstItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemConst {
		return nil, false
	}
	return i.Consts.Get(item.Payload), true
}

// NewTypeAlias interns a type-alias item and returns its item ID.
func (i *Items) NewTypeAlias(d TypeAliasDecl) ItemID {
	idx := i.TypeAliases.Allocate(d)
	return i.new(ItemTypeAlias, d.Span, idx)
}

// TypeAlias returns the TypeAliasDecl for id, or (nil,false).
func (i *Items) TypeAlias(id ItemID) (*TypeAliasDecl, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemTypeAlias {
		return nil, false
	}
	return i.TypeAliases.Get(item.Payload), true
}

// NewOpaque interns an opaque-type item and returns its item ID.
func (i *Items) NewOpaque(d OpaqueDecl) ItemID {
	idx := i.Opaques.Allocate(d)
	return i.new(ItemOpaque, d.Span, idx)
}

// Opaque returns the OpaqueDecl for id, or (nil,false).
func (i *Items) Opaque(id ItemID) (*OpaqueDecl, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemOpaque {
		return nil, false
	}
	return i.Opaques.Get(item.Payload), true
}

// NewExtern interns an extern block and returns its item ID.
func (i *Items) NewExtern(d ExternBlock) ItemID {
	idx := i.Externs.Allocate(d)
	return i.new(ItemExtern, d.Span, idx)
}

// Extern returns the ExternBlock for id, or (nil,false).
func (i *Items) Extern(id ItemID) (*ExternBlock, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemExtern {
		return nil, false
	}
	return i.Externs.Get(item.Payload), true
}

// NewImport interns an import item and returns its item ID.
func (i *Items) NewImport(d ImportItem) ItemID {
	idx := i.Imports.Allocate(d)
	return i.new(ItemImport, d.Span, idx)
}

// Import returns the ImportItem for id, or (nil,false).
func (i *Items) Import(id ItemID) (*ImportItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemImport {
		return nil, false
	}
	return i.Imports.Get(item.Payload), true
}
