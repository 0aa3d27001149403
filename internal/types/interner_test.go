package types

import (
	"testing"

	"ember/internal/source"
)

func TestInternCollapsesStructuralEquality(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()

	r1 := in.Intern(MakeReference(b.I32, false, source.NoStringID))
	r2 := in.Intern(MakeReference(b.I32, false, source.NoStringID))
	if r1 != r2 {
		t.Fatalf("structurally equal references must intern to one id")
	}
	rm := in.Intern(MakeReference(b.I32, true, source.NoStringID))
	if rm == r1 {
		t.Fatalf("mutability is part of a reference's identity")
	}
}

func TestGenericInstancesDifferByConstArgs(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	base := in.DeclareStruct(StructInfo{Name: source.StringID(1)})

	n4 := in.InternGeneric(base, []TypeID{b.I32}, []int64{4})
	n8 := in.InternGeneric(base, []TypeID{b.I32}, []int64{8})
	again := in.InternGeneric(base, []TypeID{b.I32}, []int64{4})
	if n4 == n8 {
		t.Fatalf("Array[T, 4] and Array[T, 8] must differ (const args are identity)")
	}
	if n4 != again {
		t.Fatalf("identical instantiations must share one id")
	}
}

func TestNominalDeclarationsNeverDedup(t *testing.T) {
	in := NewInterner()
	a := in.DeclareStruct(StructInfo{Name: source.StringID(1)})
	b := in.DeclareStruct(StructInfo{Name: source.StringID(1)})
	if a == b {
		t.Fatalf("struct identity is declaration identity, not structure")
	}
}

func TestIsCopyClassification(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()

	sharedRef := in.Intern(MakeReference(b.String, false, source.NoStringID))
	mutRef := in.Intern(MakeReference(b.String, true, source.NoStringID))
	strukt := in.DeclareStruct(StructInfo{Name: source.StringID(2)})

	cases := []struct {
		name string
		id   TypeID
		want bool
	}{
		{"i32", b.I32, true},
		{"bool", b.Bool, true},
		{"string", b.String, false},
		{"shared ref", sharedRef, true},
		{"mut ref", mutRef, false},
		{"struct", strukt, false},
	}
	for _, tc := range cases {
		if got := in.IsCopy(tc.id); got != tc.want {
			t.Errorf("IsCopy(%s) = %v, want %v", tc.name, got, tc.want)
		}
	}

	in.MarkCopyType(strukt)
	if !in.IsCopy(strukt) {
		t.Errorf("a @copy-marked struct must classify as Copy")
	}
}

func TestSetStructInfoFillsBodyInPlace(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	id := in.DeclareStruct(StructInfo{Name: source.StringID(1)})

	info, _ := in.StructInfo(id)
	info.Fields = append(info.Fields, StructField{Name: source.StringID(2), Type: b.I32})
	if !in.SetStructInfo(id, info) {
		t.Fatalf("SetStructInfo should accept a declared struct id")
	}
	got, ok := in.StructInfo(id)
	if !ok || len(got.Fields) != 1 {
		t.Fatalf("the second declaration phase must be visible through the same id")
	}
}
