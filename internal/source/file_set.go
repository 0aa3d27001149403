package source

import (
	"crypto/sha256"
	"fmt"
	"os"

	"fortio.org/safecast"
)

// FileSet manages the collection of files that a compilation context spans
// and resolves global byte offsets to (file, line, column) positions.
type FileSet struct {
	files []File
	index map[string]FileID
}

// NewFileSet creates an empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{files: make([]File, 1), index: make(map[string]FileID)} // index 0 = NoFileID
}

// Add registers file content under path and returns its FileID. Always
// allocates a fresh ID, even for a path seen before — callers that want
// content-hash-based reuse go through internal/project.ModuleCache instead.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	hash := sha256.Sum256(content)
	lineIdx := buildLineIndex(content)

	n, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("source: file count overflow: %w", err))
	}
	id := FileID(n)
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    path,
		Content: content,
		LineIdx: lineIdx,
		Hash:    hash,
		Flags:   flags,
	})
	fs.index[path] = id
	return id
}

// Load reads path from disk and adds it to the set.
func (fs *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is supplied by the CLI caller, not untrusted input
	content, err := os.ReadFile(path)
	if err != nil {
		return NoFileID, fmt.Errorf("source: read %s: %w", path, err)
	}
	return fs.Add(path, content, 0), nil
}

// Get returns the file record for id, or nil if unknown.
func (fs *FileSet) Get(id FileID) *File {
	if id == NoFileID || int(id) >= len(fs.files) {
		return nil
	}
	return &fs.files[id]
}

// Lookup resolves a path to its most recently added FileID.
func (fs *FileSet) Lookup(path string) (FileID, bool) {
	id, ok := fs.index[path]
	return id, ok
}

// Position converts a byte offset within file into a 1-based line/column.
func (fs *FileSet) Position(file FileID, offset uint32) LineCol {
	f := fs.Get(file)
	if f == nil {
		return LineCol{}
	}
	lo, hi := 0, len(f.LineIdx)
	for lo < hi {
		mid := (lo + hi) / 2
		if f.LineIdx[mid] <= offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	line := uint32(lo) // #nosec G115 -- lo bounded by len(LineIdx)
	lineStart := uint32(0)
	if line > 0 {
		lineStart = f.LineIdx[line-1]
	}
	return LineCol{Line: line, Col: offset - lineStart + 1}
}

// buildLineIndex records the byte offset immediately after every '\n',
// so line N starts at LineIdx[N-1] (LineIdx[-1] implicitly being 0).
func buildLineIndex(content []byte) []uint32 {
	idx := make([]uint32, 0, 16)
	for i, b := range content {
		if b == '\n' {
			idx = append(idx, uint32(i)+1) // #nosec G115 -- i bounded by len(content)
		}
	}
	return idx
}
