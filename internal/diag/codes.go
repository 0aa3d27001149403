package diag

import "fmt"

// Code is a stable, externally visible diagnostic identifier. Once assigned
// a code is permanent; only its rendered message may be localized.
type Code uint16

const (
	UnknownCode Code = 0

	// Lexical/syntactic (1xxx and 20xx-28xx, rendered P1000/P2000).
	// Produced upstream of the core; reserved here only so diagnostics
	// arriving from the parser can round-trip through the same Bag without
	// a foreign code space.
	LexReserved Code = 1000
	SynReserved Code = 2000

	// Resolve / use-of-moved: the 29xx band, rendered P29xx (not P02xx).
	ResolveInfo               Code = 2900
	ResolveUndefinedName      Code = 2901
	ResolveDuplicateDef       Code = 2902
	ResolveImplTargetNotType  Code = 2903
	ResolveTraitMethodMissing Code = 2904
	ResolveAssocTypeUndeclared Code = 2905
	ResolveCircularImport     Code = 2906
	OwnershipUseOfMoved       Code = 2920
	OwnershipDoubleMove       Code = 2921
	OwnershipPartialThenWhole Code = 2922
	OwnershipConditionalMove  Code = 2923
	OwnershipCaptureOfMoved   Code = 2924
	OwnershipDeferReadsMoved  Code = 2925

	// BorrowOfMoved is the stable literal P0382; like the P0499..P0505
	// group below it keeps its externally visible number rather than a
	// slot in this file's band layout.
	BorrowOfMoved Code = 382

	// Type check / const-eval: the 30xx band, rendered P30xx (not P03xx).
	TypeInfo            Code = 3000
	TypeMismatch        Code = 3001
	TypeOccursCheck     Code = 3002
	TypeUnknownMethod   Code = 3003
	ConstEvalDivByZero  Code = 3010
	ConstEvalNegSize    Code = 3011
	ConstEvalOverflow   Code = 3012
	TryOnNonResult      Code = 3020
	TryIncompatibleFn   Code = 3021

	// Trait resolution / ambiguity: the 40xx band, rendered P40xx (not P04xx).
	TraitAmbiguousMethod   Code = 4001
	TraitUnsatisfiedBound  Code = 4002
	TraitAssocTypeMissing  Code = 4003
	TraitAssocTypeUnknown  Code = 4004

	// Borrow rules, stable literal codes P0499/P0502/P0503/P0505.
	BorrowMultipleMut    Code = 499
	BorrowMutWhileShared Code = 502
	BorrowSharedWhileMut Code = 503
	BorrowNotLongEnough  Code = 505

	BorrowReturnUnlabeled Code = 5120

	// Performance advisories (warnings only): the 10000 band, rendered
	// with five digits as P10001/P10002 (not P10xx).
	PerfAllocInLoop   Code = 10001
	PerfImplicitCopy  Code = 10002

	// Reserved for internal invariant violations (hard bugs, terminate the
	// unit rather than produce a recoverable diagnostic).
	InternalInvariant Code = 9999
)

// Category reports the coarse-grained family a code belongs to. The
// stable literal borrow codes (P0382, P0499..P0505) sit below the band
// layout and are matched explicitly.
func (c Code) Category() string {
	switch {
	case c == BorrowOfMoved:
		return "borrow"
	case c >= 400 && c < 600:
		return "borrow"
	case c >= 1000 && c < 2000:
		return "lex"
	case c >= 2000 && c < 2900:
		return "syntax"
	case c >= 2900 && c < 3000:
		return "resolve"
	case c >= 3000 && c < 4000:
		return "type"
	case c >= 4000 && c < 5000:
		return "trait"
	case c >= 5000 && c < 6000:
		return "borrow"
	case c >= 10000 && c < 11000:
		return "performance"
	case c == InternalInvariant:
		return "internal"
	default:
		return "unknown"
	}
}

func (c Code) String() string {
	return fmt.Sprintf("P%04d", uint16(c))
}
