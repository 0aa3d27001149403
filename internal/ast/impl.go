package ast

import "ember/internal/source"

// AssocTypeBinding is one `type Item = T` entry inside an impl body,
// satisfying a trait's associated-type requirement.
type AssocTypeBinding struct {
	Name   source.StringID
	Target TypeExprID
	Span   source.Span
}

// ImplDecl is an `impl [Trait for] Target` block. TraitPath is empty for
// an inherent impl.
type ImplDecl struct {
	TypeParams  []TypeParam
	TraitPath   []source.StringID
	TraitArgs   []TypeExprID
	TargetType  TypeExprID
	Where       []WhereClauseItem
	AssocTypes  []AssocTypeBinding
	Methods     []ItemID // ItemFn entries
	Span        source.Span
}

// NewImpl interns an impl block and returns its item ID.
func (i *Items) NewImpl(d ImplDecl) ItemID {
	idx := i.Impls.Allocate(d)
	return i.new(ItemImpl, d.Span, idx)
}

// Impl returns the ImplDecl for id, or (nil,false) if id is not an impl.
func (i *Items) Impl(id ItemID) (*ImplDecl, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemImpl {
		return nil, false
	}
	return i.Impls.Get(item.Payload), true
}

// IsTraitImpl reports whether d implements a named trait rather than being
// an inherent impl block.
func (d *ImplDecl) IsTraitImpl() bool {
	return len(d.TraitPath) > 0
}
