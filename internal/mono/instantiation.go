// Package mono tracks concrete generic instantiations discovered during
// type checking so a later code-generation stage can decide what to
// monomorphize, without mono itself deciding codegen policy.
package mono

import (
	"slices"
	"strconv"
	"strings"

	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// InstantiationKind identifies the kind of entity being instantiated.
type InstantiationKind uint8

const (
	// InstFn is a generic function or method instantiation.
	InstFn InstantiationKind = iota
	// InstType is a generic struct/enum/opaque instantiation.
	InstType
	// InstTraitImpl is a generic trait-impl instantiation.
	InstTraitImpl
)

// InstantiationKey is a comparable key for instantiations. Go maps cannot
// use slices as keys, so type args and const args are folded into a
// stable ArgsKey string; the normalized values themselves live on InstEntry.
type InstantiationKey struct {
	Sym     symbols.SymbolID
	ArgsKey string
}

// UseSite records a location where an instantiation occurs.
type UseSite struct {
	Span   source.Span
	Caller symbols.SymbolID
	Note   string
}

// InstEntry captures every instantiation of a particular generic symbol
// with one particular (type args, const args) combination.
type InstEntry struct {
	Kind InstantiationKind
	Key  InstantiationKey

	TypeArgs  []types.TypeID
	ConstArgs []int64 // const generics, normalized alongside TypeArgs

	UseSites []UseSite
}

// InstantiationMap is a content-addressed deduplication table: the same
// (symbol, type args, const args) triple collapses to one InstEntry no
// matter how many call sites request it.
type InstantiationMap struct {
	Entries map[InstantiationKey]*InstEntry
}

// NewInstantiationMap creates an empty InstantiationMap.
func NewInstantiationMap() *InstantiationMap {
	return &InstantiationMap{Entries: make(map[InstantiationKey]*InstEntry)}
}

// NormalizeTypeArgs produces a deterministic, independently-owned slice
// used for instantiation keys. Nominal identity is preserved: a type
// alias stays distinct from its target in the key.
func NormalizeTypeArgs(args []types.TypeID) []types.TypeID {
	if len(args) == 0 {
		return nil
	}
	return slices.Clone(args)
}

// NormalizeConstArgs produces a deterministic, independently-owned slice
// of const-generic argument values used for instantiation keys.
func NormalizeConstArgs(args []int64) []int64 {
	if len(args) == 0 {
		return nil
	}
	return slices.Clone(args)
}

// Record registers a generic instantiation at a specific use site,
// deduplicating against any prior request with the same symbol and args.
func (m *InstantiationMap) Record(
	kind InstantiationKind,
	sym symbols.SymbolID,
	typeArgs []types.TypeID,
	constArgs []int64,
	site source.Span,
	caller symbols.SymbolID,
	note string,
) {
	if m == nil || !sym.IsValid() {
		return
	}
	if len(typeArgs) == 0 && len(constArgs) == 0 {
		return
	}
	if m.Entries == nil {
		m.Entries = make(map[InstantiationKey]*InstEntry)
	}

	normTypes := NormalizeTypeArgs(typeArgs)
	normConsts := NormalizeConstArgs(constArgs)
	key := InstantiationKey{Sym: sym, ArgsKey: argsKey(normTypes, normConsts)}

	entry := m.Entries[key]
	if entry == nil {
		entry = &InstEntry{
			Kind:      kind,
			Key:       key,
			TypeArgs:  normTypes,
			ConstArgs: normConsts,
		}
		m.Entries[key] = entry
	}

	if site == (source.Span{}) {
		return
	}
	us := UseSite{Span: site, Caller: caller, Note: note}
	if slices.Contains(entry.UseSites, us) {
		return
	}
	entry.UseSites = append(entry.UseSites, us)
}

// Len reports how many distinct instantiations have been recorded.
func (m *InstantiationMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Entries)
}

func argsKey(typeArgs []types.TypeID, constArgs []int64) string {
	if len(typeArgs) == 0 && len(constArgs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, arg := range typeArgs {
		if i > 0 {
			b.WriteByte('#')
		}
		b.WriteString(strconv.FormatUint(uint64(arg), 10))
	}
	b.WriteByte('|')
	for i, arg := range constArgs {
		if i > 0 {
			b.WriteByte('#')
		}
		b.WriteString(strconv.FormatInt(arg, 10))
	}
	return b.String()
}
