package source

// FileID uniquely identifies a source file within a FileSet.
type FileID uint32

// NoFileID marks the absence of a file.
const NoFileID FileID = 0

// FileFlags encodes metadata about a source file.
type FileFlags uint8

const (
	// FileVirtual marks a file added from memory (test fixture, LSP buffer).
	FileVirtual FileFlags = 1 << iota
)

// File captures metadata and content for a single source file.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol is a human-readable 1-based position in a source file.
type LineCol struct {
	Line uint32
	Col  uint32
}
