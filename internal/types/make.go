package types

import "ember/internal/source"

// MakeInt describes a signed integer of the given width (WidthAny = "int").
func MakeInt(width Width) Type { return Type{Kind: KindInt, Width: width} }

// MakeUint describes an unsigned integer of the given width.
func MakeUint(width Width) Type { return Type{Kind: KindUint, Width: width} }

// MakeFloat describes a floating-point type of the given width.
func MakeFloat(width Width) Type { return Type{Kind: KindFloat, Width: width} }

// MakeArray describes a fixed-size array [T; N].
func MakeArray(elem TypeID, count uint32) Type {
	return Type{Kind: KindArray, Elem: elem, Count: count}
}

// MakeSlice describes a dynamically sized slice [T].
func MakeSlice(elem TypeID) Type {
	return Type{Kind: KindSlice, Elem: elem, Count: ArrayDynamicLength}
}

// MakeReference describes &T or &mut T, optionally labeled with a lifetime.
// An unlabeled reference (lifetime == source.NoStringID) is materialized
// with a fresh label before borrow-check.
func MakeReference(elem TypeID, mutable bool, lifetime source.StringID) Type {
	return Type{Kind: KindReference, Elem: elem, Mutable: mutable, Lifetime: lifetime}
}

// MakePointer describes *T or *mut T, with a const/non-const qualifier.
func MakePointer(elem TypeID, mutable, isConst bool) Type {
	return Type{Kind: KindPointer, Elem: elem, Mutable: mutable, IsConst: isConst}
}

// MakeTypeVar describes a free inference variable; bound info, when
// present, lives in the interner's typeVars side table (TypeVarInfo) via
// Payload.
func MakeTypeVar(id uint32) Type {
	return Type{Kind: KindTypeVar, Payload: id}
}
