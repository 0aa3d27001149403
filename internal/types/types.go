package types

import (
	"fmt"

	"ember/internal/source"
)

// TypeID uniquely identifies an interned type.
type TypeID uint32

// NoTypeID marks the absence of a type, or a tainted annotation.
const NoTypeID TypeID = 0

// RawSymbolID is a type-package-local numeric alias for symbols.SymbolID,
// kept untyped here so this package never imports internal/symbols (which
// itself imports internal/types for Symbol.Type). Callers convert with a
// plain numeric cast at the boundary.
type RawSymbolID uint32

// Kind enumerates every supported type shape.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit          // void: the empty-value return type
	KindNever         // none: the bottom/diverging type
	KindBool
	KindChar
	KindString
	KindInt  // signed integer, width in Width
	KindUint // unsigned integer, width in Width
	KindFloat
	KindArray     // fixed-size [T; N]
	KindSlice     // dynamically sized [T]
	KindReference // &T / &mut T, optionally lifetime-labeled
	KindPointer   // *T / *mut T, raw/const pointer
	KindTuple
	KindFunction
	KindStruct
	KindEnum
	KindTrait
	KindTypeVar       // unresolved inference variable
	KindSelfType      // `Self` inside an impl/trait body
	KindAssocTypeRef  // `Trait::Name` or `Self::Name`
	KindOpaque        // FFI handle with no visible layout
	KindGenericInst   // base nominal instantiated with concrete args
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnit:
		return "void"
	case KindNever:
		return "none"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindArray:
		return "array"
	case KindSlice:
		return "slice"
	case KindReference:
		return "reference"
	case KindPointer:
		return "pointer"
	case KindTuple:
		return "tuple"
	case KindFunction:
		return "function"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindTrait:
		return "trait"
	case KindTypeVar:
		return "typevar"
	case KindSelfType:
		return "Self"
	case KindAssocTypeRef:
		return "assoc-type-ref"
	case KindOpaque:
		return "opaque"
	case KindGenericInst:
		return "generic-instance"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures integer/float precision. WidthAny means "platform int".
type Width uint8

const (
	WidthAny Width = 0
	Width8   Width = 8
	Width16  Width = 16
	Width32  Width = 32
	Width64  Width = 64
)

// ArrayDynamicLength marks a slice (no compile-time-known element count).
const ArrayDynamicLength = ^uint32(0)

// Type is the compact, structurally-compared descriptor every TypeID
// resolves to. Side tables (Interner.structs, .enums, ...) hold the data
// too large to fit inline; Payload indexes into the relevant side table.
type Type struct {
	Kind     Kind
	Elem     TypeID          // array/slice element, reference/pointer pointee
	Count    uint32          // array element count (ArrayDynamicLength for slices)
	Width    Width           // numeric precision
	Mutable  bool            // reference/pointer mutability
	IsConst  bool            // pointer const/non-const qualifier
	Lifetime source.StringID // reference lifetime label; NoStringID if elided/unlabeled
	Payload  uint32          // index into the relevant side table (see sidetables.go)
}
