package ast

import "ember/internal/source"

// FnAttr is a bitset of function modifiers.
type FnAttr uint8

const (
	FnAttrExtern FnAttr = 1 << iota
	FnAttrAsync
	FnAttrUnsafe
	FnAttrPure
	FnAttrOverride
	FnAttrInline
)

// FnParam is one function parameter.
type FnParam struct {
	Name    source.StringID // NoStringID for `_`
	Type    TypeExprID
	Default ExprID // NoExprID when absent
	IsMut   bool
	Span    source.Span
}

// FnItem is a function or method declaration.
type FnItem struct {
	Name       source.StringID
	TypeParams []TypeParam
	Where      []WhereClauseItem
	Params     []FnParamID
	ReturnType TypeExprID
	Body       StmtID // NoStmtID for an extern/trait-required signature
	Attr       FnAttr
	Span       source.Span
}

// NewFnParam interns a function parameter and returns its ID.
func (i *Items) NewFnParam(p FnParam) FnParamID {
	return FnParamID(i.FnParams.Allocate(p))
}

// FnParam returns the parameter for id, or nil.
func (i *Items) FnParam(id FnParamID) *FnParam {
	return i.FnParams.Get(uint32(id))
}

// NewFn interns a function declaration and returns its item ID.
func (i *Items) NewFn(fn FnItem) ItemID {
	idx := i.Fns.Allocate(fn)
	return i.new(ItemFn, fn.Span, idx)
}

// Fn returns the FnItem for id, or (nil,false) if id is not a function.
func (i *Items) Fn(id ItemID) (*FnItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemFn {
		return nil, false
	}
	return i.Fns.Get(item.Payload), true
}
