package mono

import (
	"testing"

	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

func TestRecordDeduplicatesByArgs(t *testing.T) {
	m := NewInstantiationMap()
	fn := symbols.SymbolID(7)
	i32 := types.TypeID(3)
	i64 := types.TypeID(4)

	m.Record(InstFn, fn, []types.TypeID{i32}, nil, source.Span{File: 1, Start: 1, End: 2}, 0, "")
	m.Record(InstFn, fn, []types.TypeID{i32}, nil, source.Span{File: 1, Start: 9, End: 10}, 0, "")
	m.Record(InstFn, fn, []types.TypeID{i64}, nil, source.Span{File: 1, Start: 20, End: 21}, 0, "")

	if m.Len() != 2 {
		t.Fatalf("f[i32] twice and f[i64] once should yield 2 entries, got %d", m.Len())
	}
	key := InstantiationKey{Sym: fn, ArgsKey: argsKey([]types.TypeID{i32}, nil)}
	entry := m.Entries[key]
	if entry == nil || len(entry.UseSites) != 2 {
		t.Fatalf("both call sites should be recorded on the deduplicated entry, got %+v", entry)
	}
}

func TestRecordKeysOnConstArgs(t *testing.T) {
	m := NewInstantiationMap()
	sym := symbols.SymbolID(1)
	i32 := types.TypeID(3)

	m.Record(InstType, sym, []types.TypeID{i32}, []int64{4}, source.Span{File: 1, Start: 1, End: 2}, 0, "")
	m.Record(InstType, sym, []types.TypeID{i32}, []int64{8}, source.Span{File: 1, Start: 3, End: 4}, 0, "")

	if m.Len() != 2 {
		t.Fatalf("Array[T,4] and Array[T,8] must be distinct requests, got %d", m.Len())
	}
}

func TestRecordIgnoresNonGenericAndInvalid(t *testing.T) {
	m := NewInstantiationMap()
	m.Record(InstFn, symbols.NoSymbolID, []types.TypeID{3}, nil, source.Span{}, 0, "")
	m.Record(InstFn, symbols.SymbolID(2), nil, nil, source.Span{}, 0, "")
	if m.Len() != 0 {
		t.Fatalf("invalid symbols and empty arg lists must not be recorded, got %d", m.Len())
	}
}
