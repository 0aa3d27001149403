package diag

import "sort"

// Bag accumulates diagnostics produced across every pipeline stage for one
// translation unit. Stages never abort on a single error; they keep
// appending to the same bag.
type Bag struct {
	items   []Diagnostic
	allowed map[Code]bool // suppression allow-list; nil means nothing suppressed
}

// NewBag creates an empty diagnostic bag.
func NewBag() *Bag {
	return &Bag{}
}

// SetAllowList installs a host-supplied suppression list. Any
// diagnostic whose code matches an entry is dropped at Add time.
func (b *Bag) SetAllowList(codes []Code) {
	if len(codes) == 0 {
		b.allowed = nil
		return
	}
	b.allowed = make(map[Code]bool, len(codes))
	for _, c := range codes {
		b.allowed[c] = true
	}
}

// Add appends d unless its code is suppressed.
func (b *Bag) Add(d Diagnostic) {
	if b == nil {
		return
	}
	if b.allowed != nil && b.allowed[d.Code] {
		return
	}
	b.items = append(b.items, d)
}

// Items returns all accumulated diagnostics in insertion order.
func (b *Bag) Items() []Diagnostic {
	if b == nil {
		return nil
	}
	return b.items
}

// HasErrors reports whether any SevError diagnostic was recorded.
func (b *Bag) HasErrors() bool {
	if b == nil {
		return false
	}
	for _, d := range b.items {
		if d.Severity == SevError {
			return true
		}
	}
	return false
}

// Len reports the number of accumulated diagnostics.
func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}

// Sorted returns diagnostics ordered by ascending primary-span start, the
// ordering guarantee within one translation unit.
func (b *Bag) Sorted() []Diagnostic {
	out := append([]Diagnostic(nil), b.Items()...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Primary.File != out[j].Primary.File {
			return out[i].Primary.File < out[j].Primary.File
		}
		return out[i].Primary.Start < out[j].Primary.Start
	})
	return out
}

// Merge appends every diagnostic from other into b.
func (b *Bag) Merge(other *Bag) {
	if b == nil || other == nil {
		return
	}
	for _, d := range other.Items() {
		b.Add(d)
	}
}
