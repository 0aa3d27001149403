package symbols

import (
	"ember/internal/source"
	"ember/internal/types"
)

// Table aggregates the scope/symbol arenas, the shared string interner,
// and pending impl-linking state for one translation unit's Compilation
// Context.
type Table struct {
	Scopes  *Scopes
	Symbols *Symbols
	Strings *source.Interner
	Impls   *ImplTable

	fileRoot map[source.FileID]ScopeID
}

// Hints suggest initial arena capacities to avoid repeated growth.
type Hints struct{ Scopes, Symbols uint }

// NewTable builds an empty table. If strings is nil a fresh interner is
// allocated.
func NewTable(h Hints, strings *source.Interner) *Table {
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Table{
		Scopes:   NewScopes(uint32(h.Scopes)),
		Symbols:  NewSymbols(uint32(h.Symbols)),
		Strings:  strings,
		Impls:    newImplTable(),
		fileRoot: make(map[source.FileID]ScopeID),
	}
}

// FileRoot returns (creating if needed) the root scope for a file.
func (t *Table) FileRoot(file source.FileID, span source.Span) ScopeID {
	if id, ok := t.fileRoot[file]; ok {
		return id
	}
	id := t.Scopes.New(ScopeFile, NoScopeID, ScopeOwner{Kind: ScopeOwnerFile, SourceFile: file}, span)
	t.fileRoot[file] = id
	return id
}

// DeclareResult reports what Declare did.
type DeclareResult struct {
	Symbol    SymbolID
	Shadowed  SymbolID // previous same-scope value binding, if shadowing was allowed
	Duplicate bool     // true when Declare refused to add a conflicting symbol
}

// Declare adds sym to scope's namespace. Declarations fail on same-scope
// redefinition unless explicitly shadowing Value bindings; Declare returns Duplicate=true (and does not mutate the scope) for any
// non-value-namespace collision, or for a value collision when allowShadow
// is false.
func (t *Table) Declare(scope ScopeID, sym Symbol, allowShadow bool) DeclareResult {
	sc := t.Scopes.Get(scope)
	if sc == nil {
		return DeclareResult{Duplicate: true}
	}
	key := namespaceKey{NS: sym.Kind.Namespace(), Name: sym.Name}
	existing := sc.NameIndex[key]
	if len(existing) > 0 {
		if key.NS != NamespaceValue || !allowShadow {
			return DeclareResult{Duplicate: true, Symbol: existing[len(existing)-1]}
		}
	}
	sym.Scope = scope
	id := t.Symbols.New(sym)
	if sc.NameIndex == nil {
		sc.NameIndex = make(map[namespaceKey][]SymbolID)
	}
	var shadowed SymbolID
	if len(existing) > 0 {
		shadowed = existing[len(existing)-1]
	}
	sc.NameIndex[key] = append(sc.NameIndex[key], id)
	sc.Symbols = append(sc.Symbols, id)
	return DeclareResult{Symbol: id, Shadowed: shadowed}
}

// Lookup walks the parent chain starting at scope, returning the nearest
// symbol named name in namespace ns.
func (t *Table) Lookup(scope ScopeID, ns Namespace, name source.StringID) (SymbolID, bool) {
	key := namespaceKey{NS: ns, Name: name}
	for cur := scope; cur.IsValid(); {
		sc := t.Scopes.Get(cur)
		if sc == nil {
			break
		}
		if ids := sc.NameIndex[key]; len(ids) > 0 {
			return ids[len(ids)-1], true
		}
		cur = sc.Parent
	}
	return NoSymbolID, false
}

// ImplRecord links an impl block's methods and associated-type bindings to
// a target type, optionally under a trait.
type ImplRecord struct {
	Target     types.TypeID
	Trait      SymbolID // NoSymbolID for an inherent impl
	Methods    map[source.StringID]SymbolID
	AssocTypes map[source.StringID]types.TypeID
	Span       source.Span
}

// ImplTable indexes every ImplRecord by target type, and by (target,
// trait) for trait-method dispatch.
type ImplTable struct {
	records   []ImplRecord
	byTarget  map[types.TypeID][]int
	byTrait   map[traitKey]int
}

type traitKey struct {
	Target types.TypeID
	Trait  SymbolID
}

func newImplTable() *ImplTable {
	return &ImplTable{
		byTarget: make(map[types.TypeID][]int),
		byTrait:  make(map[traitKey]int),
	}
}

// Add registers rec and indexes it for later lookup.
func (it *ImplTable) Add(rec ImplRecord) int {
	idx := len(it.records)
	it.records = append(it.records, rec)
	it.byTarget[rec.Target] = append(it.byTarget[rec.Target], idx)
	if rec.Trait.IsValid() {
		it.byTrait[traitKey{Target: rec.Target, Trait: rec.Trait}] = idx
	}
	return idx
}

// Get returns the record at idx.
func (it *ImplTable) Get(idx int) *ImplRecord {
	if idx < 0 || idx >= len(it.records) {
		return nil
	}
	return &it.records[idx]
}

// ForTarget returns every impl (inherent and trait) registered for target.
func (it *ImplTable) ForTarget(target types.TypeID) []*ImplRecord {
	idxs := it.byTarget[target]
	out := make([]*ImplRecord, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, &it.records[i])
	}
	return out
}

// ForTraitTarget returns the impl of trait for target, if any.
func (it *ImplTable) ForTraitTarget(target types.TypeID, trait SymbolID) (*ImplRecord, bool) {
	idx, ok := it.byTrait[traitKey{Target: target, Trait: trait}]
	if !ok {
		return nil, false
	}
	return &it.records[idx], true
}
