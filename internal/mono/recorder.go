package mono

import (
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// InstantiationMapRecorder adapts an InstantiationMap to the recorder
// interface typeck depends on, keeping mono free of any import on typeck.
type InstantiationMapRecorder struct {
	Map *InstantiationMap
}

// NewInstantiationMapRecorder creates a recorder bound to m.
func NewInstantiationMapRecorder(m *InstantiationMap) *InstantiationMapRecorder {
	return &InstantiationMapRecorder{Map: m}
}

// RecordFnInstantiation records a call to a generic function or method.
func (r *InstantiationMapRecorder) RecordFnInstantiation(
	fn symbols.SymbolID, typeArgs []types.TypeID, constArgs []int64,
	site source.Span, caller symbols.SymbolID, note string,
) {
	if r == nil || r.Map == nil {
		return
	}
	r.Map.Record(InstFn, fn, typeArgs, constArgs, site, caller, note)
}

// RecordTypeInstantiation records use of a generic struct/enum/opaque type.
func (r *InstantiationMapRecorder) RecordTypeInstantiation(
	typeSym symbols.SymbolID, typeArgs []types.TypeID, constArgs []int64,
	site source.Span, caller symbols.SymbolID, note string,
) {
	if r == nil || r.Map == nil {
		return
	}
	r.Map.Record(InstType, typeSym, typeArgs, constArgs, site, caller, note)
}

// RecordTraitImplInstantiation records use of a generic trait impl.
func (r *InstantiationMapRecorder) RecordTraitImplInstantiation(
	implSym symbols.SymbolID, typeArgs []types.TypeID, constArgs []int64,
	site source.Span, caller symbols.SymbolID, note string,
) {
	if r == nil || r.Map == nil {
		return
	}
	r.Map.Record(InstTraitImpl, implSym, typeArgs, constArgs, site, caller, note)
}
