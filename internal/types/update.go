package types

// Nominal declarations are necessarily two-phase: a struct's fields may
// reference another nominal that appears later in the file, so the checker
// first allocates every nominal's TypeID and only then fills the bodies in.
// These setters back that second phase; they never change a type's identity,
// only the side-table payload behind it.

// SetStructInfo replaces the side-table payload of a KindStruct type.
func (in *Interner) SetStructInfo(id TypeID, info StructInfo) bool {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindStruct || int(t.Payload) >= len(in.structs) {
		return false
	}
	in.structs[t.Payload] = info
	return true
}

// SetEnumInfo replaces the side-table payload of a KindEnum type.
func (in *Interner) SetEnumInfo(id TypeID, info EnumInfo) bool {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindEnum || int(t.Payload) >= len(in.enums) {
		return false
	}
	in.enums[t.Payload] = info
	return true
}

// SetTraitInfo replaces the side-table payload of a KindTrait type.
func (in *Interner) SetTraitInfo(id TypeID, info TraitInfo) bool {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindTrait || int(t.Payload) >= len(in.traits) {
		return false
	}
	in.traits[t.Payload] = info
	return true
}
