package types

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"ember/internal/source"
)

// Builtins holds the TypeIDs of every primitive, interned once up front so
// call sites never re-intern `bool`/`i32`/etc.
type Builtins struct {
	Invalid TypeID
	Unit    TypeID
	Never   TypeID
	Bool    TypeID
	Char    TypeID
	String  TypeID
	Int     TypeID
	I8      TypeID
	I16     TypeID
	I32     TypeID
	I64     TypeID
	Uint    TypeID
	U8      TypeID
	U16     TypeID
	U32     TypeID
	U64     TypeID
	Float   TypeID
	F32     TypeID
	F64     TypeID
}

// Interner provides stable TypeIDs for structural descriptors, plus side
// tables for the data too large to inline in a Type.
type Interner struct {
	types    []Type
	index    map[Type]TypeID
	builtins Builtins

	structs  []StructInfo
	enums    []EnumInfo
	traits   []TraitInfo
	tuples   []TupleInfo
	fns      []FnInfo
	typeVars []TypeVarInfo
	assocs   []AssocTypeRefInfo
	opaques  []OpaqueInfo
	generics []GenericInstInfo

	tupleIndex   map[string]uint32
	fnIndex      map[string]uint32
	assocIndex   map[string]uint32
	genericIndex map[string]uint32

	copyTypes map[TypeID]struct{}
	nextVar   uint32
}

// NewInterner builds an interner seeded with every primitive type.
func NewInterner() *Interner {
	in := &Interner{
		index:        make(map[Type]TypeID, 64),
		tupleIndex:   make(map[string]uint32),
		fnIndex:      make(map[string]uint32),
		assocIndex:   make(map[string]uint32),
		genericIndex: make(map[string]uint32),
	}
	in.structs = append(in.structs, StructInfo{})
	in.enums = append(in.enums, EnumInfo{})
	in.traits = append(in.traits, TraitInfo{})
	in.tuples = append(in.tuples, TupleInfo{})
	in.fns = append(in.fns, FnInfo{})
	in.typeVars = append(in.typeVars, TypeVarInfo{})
	in.assocs = append(in.assocs, AssocTypeRefInfo{})
	in.opaques = append(in.opaques, OpaqueInfo{})
	in.generics = append(in.generics, GenericInstInfo{})

	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Never = in.Intern(Type{Kind: KindNever})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Char = in.Intern(Type{Kind: KindChar})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	in.builtins.Int = in.Intern(MakeInt(WidthAny))
	in.builtins.I8 = in.Intern(MakeInt(Width8))
	in.builtins.I16 = in.Intern(MakeInt(Width16))
	in.builtins.I32 = in.Intern(MakeInt(Width32))
	in.builtins.I64 = in.Intern(MakeInt(Width64))
	in.builtins.Uint = in.Intern(MakeUint(WidthAny))
	in.builtins.U8 = in.Intern(MakeUint(Width8))
	in.builtins.U16 = in.Intern(MakeUint(Width16))
	in.builtins.U32 = in.Intern(MakeUint(Width32))
	in.builtins.U64 = in.Intern(MakeUint(Width64))
	in.builtins.Float = in.Intern(MakeFloat(WidthAny))
	in.builtins.F32 = in.Intern(MakeFloat(Width32))
	in.builtins.F64 = in.Intern(MakeFloat(Width64))
	return in
}

// Builtins returns the TypeIDs of every primitive.
func (in *Interner) Builtins() Builtins { return in.builtins }

// Intern ensures descriptor t has a stable TypeID and returns it. Intended
// for structurally self-contained kinds (primitives, array, slice,
// reference, pointer) whose Type value alone determines identity.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

func (in *Interner) internRaw(t Type) TypeID {
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("types: type count overflow: %w", err))
	}
	id := TypeID(n)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for id, or false if unknown.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics on an invalid id; used once a caller already verified
// the id is not tainted.
func (in *Interner) MustLookup(id TypeID) Type {
	t, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return t
}

// InternTuple dedups a tuple by its element TypeIDs.
func (in *Interner) InternTuple(elements []TypeID) TypeID {
	key := idsKey(elements)
	payload, ok := in.tupleIndex[key]
	if !ok {
		payload = mustU32(len(in.tuples))
		in.tuples = append(in.tuples, TupleInfo{Elements: append([]TypeID(nil), elements...)})
		in.tupleIndex[key] = payload
	}
	return in.Intern(Type{Kind: KindTuple, Payload: payload})
}

// TupleInfo returns the element list for a KindTuple type.
func (in *Interner) TupleInfo(id TypeID) (TupleInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindTuple || int(t.Payload) >= len(in.tuples) {
		return TupleInfo{}, false
	}
	return in.tuples[t.Payload], true
}

// InternFunction dedups a function signature by params/return/abi/variadic.
func (in *Interner) InternFunction(params []TypeID, ret TypeID, abi source.StringID, variadic bool) TypeID {
	key := idsKey(params) + "|" + strconv.FormatUint(uint64(ret), 10) + "|" +
		strconv.FormatUint(uint64(abi), 10) + "|" + strconv.FormatBool(variadic)
	payload, ok := in.fnIndex[key]
	if !ok {
		payload = mustU32(len(in.fns))
		in.fns = append(in.fns, FnInfo{
			Params:     append([]TypeID(nil), params...),
			Return:     ret,
			ExternABI:  abi,
			IsVariadic: variadic,
		})
		in.fnIndex[key] = payload
	}
	return in.Intern(Type{Kind: KindFunction, Payload: payload})
}

// FnInfo returns the signature for a KindFunction type.
func (in *Interner) FnInfo(id TypeID) (FnInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindFunction || int(t.Payload) >= len(in.fns) {
		return FnInfo{}, false
	}
	return in.fns[t.Payload], true
}

// DeclareStruct allocates a fresh, uniquely-identified struct type. Struct
// identity is declaration identity, not structural content, so this never
// dedups against an existing entry.
func (in *Interner) DeclareStruct(info StructInfo) TypeID {
	payload := mustU32(len(in.structs))
	in.structs = append(in.structs, info)
	return in.internRaw(Type{Kind: KindStruct, Payload: payload})
}

// StructInfo returns the declaration for a KindStruct type.
func (in *Interner) StructInfo(id TypeID) (StructInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindStruct || int(t.Payload) >= len(in.structs) {
		return StructInfo{}, false
	}
	return in.structs[t.Payload], true
}

// DeclareEnum allocates a fresh enum type.
func (in *Interner) DeclareEnum(info EnumInfo) TypeID {
	payload := mustU32(len(in.enums))
	in.enums = append(in.enums, info)
	return in.internRaw(Type{Kind: KindEnum, Payload: payload})
}

// EnumInfo returns the declaration for a KindEnum type.
func (in *Interner) EnumInfo(id TypeID) (EnumInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindEnum || int(t.Payload) >= len(in.enums) {
		return EnumInfo{}, false
	}
	return in.enums[t.Payload], true
}

// DeclareTrait allocates a fresh trait type.
func (in *Interner) DeclareTrait(info TraitInfo) TypeID {
	payload := mustU32(len(in.traits))
	in.traits = append(in.traits, info)
	return in.internRaw(Type{Kind: KindTrait, Payload: payload})
}

// TraitInfo returns the declaration for a KindTrait type.
func (in *Interner) TraitInfo(id TypeID) (TraitInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindTrait || int(t.Payload) >= len(in.traits) {
		return TraitInfo{}, false
	}
	return in.traits[t.Payload], true
}

// DeclareOpaque allocates a fresh FFI opaque handle type.
func (in *Interner) DeclareOpaque(name source.StringID) TypeID {
	payload := mustU32(len(in.opaques))
	in.opaques = append(in.opaques, OpaqueInfo{Name: name})
	return in.internRaw(Type{Kind: KindOpaque, Payload: payload})
}

// OpaqueInfo returns the declaration for a KindOpaque type.
func (in *Interner) OpaqueInfo(id TypeID) (OpaqueInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindOpaque || int(t.Payload) >= len(in.opaques) {
		return OpaqueInfo{}, false
	}
	return in.opaques[t.Payload], true
}

// FreshTypeVar allocates a brand-new, never-deduped inference variable.
func (in *Interner) FreshTypeVar(bound RawSymbolID) TypeID {
	in.nextVar++
	payload := mustU32(len(in.typeVars))
	in.typeVars = append(in.typeVars, TypeVarInfo{Bound: bound})
	return in.internRaw(Type{Kind: KindTypeVar, Payload: payload, Count: in.nextVar})
}

// TypeVarInfo returns the mutable binding slot for a KindTypeVar type.
func (in *Interner) TypeVarInfo(id TypeID) (*TypeVarInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindTypeVar || int(t.Payload) >= len(in.typeVars) {
		return nil, false
	}
	return &in.typeVars[t.Payload], true
}

// InternAssocTypeRef dedups `trait::name` associated-type references.
func (in *Interner) InternAssocTypeRef(trait RawSymbolID, name source.StringID) TypeID {
	key := strconv.FormatUint(uint64(trait), 10) + "::" + strconv.FormatUint(uint64(name), 10)
	payload, ok := in.assocIndex[key]
	if !ok {
		payload = mustU32(len(in.assocs))
		in.assocs = append(in.assocs, AssocTypeRefInfo{Trait: trait, Name: name})
		in.assocIndex[key] = payload
	}
	return in.Intern(Type{Kind: KindAssocTypeRef, Payload: payload})
}

// AssocTypeRefInfo returns the (trait, name) pair for a KindAssocTypeRef type.
func (in *Interner) AssocTypeRefInfo(id TypeID) (AssocTypeRefInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindAssocTypeRef || int(t.Payload) >= len(in.assocs) {
		return AssocTypeRefInfo{}, false
	}
	return in.assocs[t.Payload], true
}

// InternGeneric dedups a nominal instantiated with concrete type and const
// arguments. Two instantiations differing only in const args intern to
// distinct TypeIDs.
func (in *Interner) InternGeneric(base TypeID, typeArgs []TypeID, constArgs []int64) TypeID {
	key := strconv.FormatUint(uint64(base), 10) + "<" + idsKey(typeArgs) + ";" + int64sKey(constArgs) + ">"
	payload, ok := in.genericIndex[key]
	if !ok {
		payload = mustU32(len(in.generics))
		in.generics = append(in.generics, GenericInstInfo{
			Base:      base,
			TypeArgs:  append([]TypeID(nil), typeArgs...),
			ConstArgs: append([]int64(nil), constArgs...),
		})
		in.genericIndex[key] = payload
	}
	return in.Intern(Type{Kind: KindGenericInst, Payload: payload})
}

// GenericInstInfo returns the base/args for a KindGenericInst type.
func (in *Interner) GenericInstInfo(id TypeID) (GenericInstInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindGenericInst || int(t.Payload) >= len(in.generics) {
		return GenericInstInfo{}, false
	}
	return in.generics[t.Payload], true
}

// IsCopy reports whether values of type id may be implicitly duplicated
// instead of moved. Primitives, raw pointers, shared
// references, function types, and enum tags are Copy; mutable references,
// strings, structs, arrays/slices, and tuples are not.
func (in *Interner) IsCopy(id TypeID) bool {
	if id == NoTypeID {
		return false
	}
	if in.copyTypes != nil {
		if _, ok := in.copyTypes[id]; ok {
			return true
		}
	}
	t, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch t.Kind {
	case KindBool, KindChar, KindInt, KindUint, KindFloat, KindUnit, KindNever:
		return true
	case KindPointer:
		return true
	case KindReference:
		return !t.Mutable
	case KindFunction:
		return true
	case KindEnum:
		return true
	default:
		return false
	}
}

// MarkCopyType records a nominal (e.g. a `@copy`-attributed struct) as
// Copy-capable even though its Kind wouldn't otherwise qualify.
func (in *Interner) MarkCopyType(id TypeID) {
	if id == NoTypeID {
		return
	}
	if in.copyTypes == nil {
		in.copyTypes = make(map[TypeID]struct{}, 16)
	}
	in.copyTypes[id] = struct{}{}
}

func idsKey(ids []TypeID) string {
	if len(ids) == 0 {
		return ""
	}
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	return b.String()
}

func int64sKey(vals []int64) string {
	if len(vals) == 0 {
		return ""
	}
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(v, 10))
	}
	return b.String()
}

func mustU32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("types: count overflow: %w", err))
	}
	return v
}
