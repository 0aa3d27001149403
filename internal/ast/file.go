package ast

import "ember/internal/source"

// File is a single parsed source file: a flat list of top-level items.
type File struct {
	ID    source.FileID
	Items []ItemID
	Span  source.Span
}

// Files owns the arena of File nodes for a build (one per source.FileID).
type Files struct {
	arena *Arena[File]
}

// NewFiles creates an empty Files arena.
func NewFiles(capHint uint) *Files {
	return &Files{arena: NewArena[File](capHint)}
}

// New allocates a File node and returns its AST-local FileID.
func (f *Files) New(id source.FileID, span source.Span) FileID {
	return FileID(f.arena.Allocate(File{ID: id, Items: nil, Span: span}))
}

// Get returns the node for id, or nil.
func (f *Files) Get(id FileID) *File {
	return f.arena.Get(uint32(id))
}
