package types

import "ember/internal/source"

// StructField is one ordered name -> type entry of a struct's layout.
type StructField struct {
	Name source.StringID
	Type TypeID
}

// StructInfo backs KindStruct types. Generic/compile-time params are
// recorded by name here; concrete instantiations are separate
// KindGenericInst types (a Generic(base, type-args,
// compile-time-args) for instantiated nominals").
type StructInfo struct {
	Name          source.StringID
	Sym           RawSymbolID
	Fields        []StructField
	GenericParams []source.StringID
	ConstParams   []ConstParam
	Attributes    []source.StringID
}

// ConstParam is a compile-time integer/bool parameter to a generic
// nominal or function.
type ConstParam struct {
	Name source.StringID
	Type TypeID // must be an integer or bool type
}

// EnumVariant is one name -> optional field-list entry of an enum.
type EnumVariant struct {
	Name   source.StringID
	Fields []TypeID // nil for a unit variant
}

// EnumInfo backs KindEnum types.
type EnumInfo struct {
	Name          source.StringID
	Sym           RawSymbolID
	Variants      []EnumVariant
	GenericParams []source.StringID
	ConstParams   []ConstParam
}

// TraitMethodSig is one method signature a trait declares.
type TraitMethodSig struct {
	Name    source.StringID
	Params  []TypeID
	Return  TypeID
	HasSelf bool
}

// WhereClause constrains a generic parameter to implement a trait.
type WhereClause struct {
	Param source.StringID
	Trait RawSymbolID
}

// TraitInfo backs KindTrait types.
type TraitInfo struct {
	Name               source.StringID
	Sym                RawSymbolID
	Methods            []TraitMethodSig
	AssociatedTypes    []source.StringID
	GenericParams      []source.StringID
	Where              []WhereClause
}

// TupleInfo backs KindTuple types.
type TupleInfo struct {
	Elements []TypeID
}

// FnInfo backs KindFunction types.
type FnInfo struct {
	Params     []TypeID
	Return     TypeID
	ExternABI  source.StringID // NoStringID when not an extern signature
	IsVariadic bool
}

// TypeVarInfo backs KindTypeVar types: an optional trait bound and a
// mutable binding slot the unifier fills in as inference proceeds.
type TypeVarInfo struct {
	Bound  RawSymbolID // trait the variable must implement, or 0
	BoundTo TypeID     // NoTypeID until unification binds this variable
}

// AssocTypeRefInfo backs KindAssocTypeRef types: `Trait::Name` or
// `Self::Name`, resolved against an impl's associated-type bindings once
// the concrete implementing type is known.
type AssocTypeRefInfo struct {
	Trait RawSymbolID
	Name  source.StringID
}

// OpaqueInfo backs KindOpaque types: FFI handles with no visible layout.
type OpaqueInfo struct {
	Name source.StringID
}

// GenericInstInfo backs KindGenericInst types: a nominal (struct/enum/
// trait) instantiated with concrete type and const arguments. Two
// instantiations differing only in const args are distinct types.
type GenericInstInfo struct {
	Base      TypeID
	TypeArgs  []TypeID
	ConstArgs []int64
}
