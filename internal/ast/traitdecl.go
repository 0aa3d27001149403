package ast

import "ember/internal/source"

// TraitItemKind enumerates the kinds of member a trait body can require.
type TraitItemKind uint8

const (
	TraitItemField TraitItemKind = iota
	TraitItemFn
	TraitItemAssocType
)

// TraitFieldReq is a required field, for trait bodies that constrain
// struct-like shapes rather than only behavior.
type TraitFieldReq struct {
	Name source.StringID
	Type TypeExprID
	Span source.Span
}

// TraitFnReq is a required (or, with a Body, default-implemented) method.
type TraitFnReq struct {
	Name       source.StringID
	TypeParams []TypeParam
	Params     []FnParamID
	ReturnType TypeExprID
	Body       StmtID // NoStmtID when there is no default body
	Span       source.Span
}

// TraitAssocTypeReq is a required associated type, optionally bounded.
type TraitAssocTypeReq struct {
	Name   source.StringID
	Bounds []TypeExprID
	Span   source.Span
}

// TraitItem is one member of a trait body; Payload indexes the arena
// named by Kind.
type TraitItem struct {
	Kind    TraitItemKind
	Payload uint32
	Span    source.Span
}

// TraitDecl is a `trait` declaration.
type TraitDecl struct {
	Name        source.StringID
	TypeParams  []TypeParam
	SuperTraits []TypeExprID // traits this trait requires as supertraits
	Items       []TraitItemID
	Span        source.Span
}

// TraitItemID is a 1-based index into Items.TraitItems.
type TraitItemID uint32

// NoTraitItemID is the zero value meaning "no trait item".
const NoTraitItemID TraitItemID = 0

// IsValid reports whether id refers to an allocated trait item.
func (id TraitItemID) IsValid() bool { return id != NoTraitItemID }

func (i *Items) newTraitItem(kind TraitItemKind, payload uint32, span source.Span) TraitItemID {
	return TraitItemID(i.TraitItems.Allocate(TraitItem{Kind: kind, Payload: payload, Span: span}))
}

// NewTraitFieldReq interns a required-field trait member.
func (i *Items) NewTraitFieldReq(r TraitFieldReq) TraitItemID {
	idx := i.traitFieldReqs().Allocate(r)
	return i.newTraitItem(TraitItemField, idx, r.Span)
}

// NewTraitFnReq interns a required/defaulted-method trait member.
func (i *Items) NewTraitFnReq(r TraitFnReq) TraitItemID {
	idx := i.traitFnReqs().Allocate(r)
	return i.newTraitItem(TraitItemFn, idx, r.Span)
}

// NewTraitAssocTypeReq interns a required associated-type trait member.
func (i *Items) NewTraitAssocTypeReq(r TraitAssocTypeReq) TraitItemID {
	idx := i.traitAssocTypeReqs().Allocate(r)
	return i.newTraitItem(TraitItemAssocType, idx, r.Span)
}

// TraitItem returns the wrapper for id, or nil.
func (i *Items) TraitItem(id TraitItemID) *TraitItem {
	return i.TraitItems.Get(uint32(id))
}

// TraitFieldReq returns the field requirement for a TraitItemField item.
func (i *Items) TraitFieldReq(item *TraitItem) *TraitFieldReq {
	if item == nil || item.Kind != TraitItemField {
		return nil
	}
	return i.traitFieldReqs().Get(item.Payload)
}

// TraitFnReq returns the method requirement for a TraitItemFn item.
func (i *Items) TraitFnReq(item *TraitItem) *TraitFnReq {
	if item == nil || item.Kind != TraitItemFn {
		return nil
	}
	return i.traitFnReqs().Get(item.Payload)
}

// TraitAssocTypeReq returns the associated-type requirement for a
// TraitItemAssocType item.
func (i *Items) TraitAssocTypeReq(item *TraitItem) *TraitAssocTypeReq {
	if item == nil || item.Kind != TraitItemAssocType {
		return nil
	}
	return i.traitAssocTypeReqs().Get(item.Payload)
}

// NewTrait interns a trait declaration and returns its item ID.
func (i *Items) NewTrait(d TraitDecl) ItemID {
	idx := i.Traits.Allocate(d)
	return i.new(ItemTrait, d.Span, idx)
}

// Trait returns the TraitDecl for id, or (nil,false) if id is not a trait.
func (i *Items) Trait(id ItemID) (*TraitDecl, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemTrait {
		return nil, false
	}
	return i.Traits.Get(item.Payload), true
}

// The trait-member payload arenas are lazily created on first use so that
// NewItems need not predict whether a file declares any traits at all.
func (i *Items) traitFieldReqs() *Arena[TraitFieldReq] {
	if i.traitFieldReqsArena == nil {
		i.traitFieldReqsArena = NewArena[TraitFieldReq](1 << 5)
	}
	return i.traitFieldReqsArena
}

func (i *Items) traitFnReqs() *Arena[TraitFnReq] {
	if i.traitFnReqsArena == nil {
		i.traitFnReqsArena = NewArena[TraitFnReq](1 << 5)
	}
	return i.traitFnReqsArena
}

func (i *Items) traitAssocTypeReqs() *Arena[TraitAssocTypeReq] {
	if i.traitAssocTypeReqsArena == nil {
		i.traitAssocTypeReqsArena = NewArena[TraitAssocTypeReq](1 << 5)
	}
	return i.traitAssocTypeReqsArena
}
