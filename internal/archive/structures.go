package archive

import "fmt"

// Header sizes, ported from archive_structures.h: base_metadata_size for
// Folder (33 bytes) and File (43 bytes), excluding the variable-length
// name that follows the leading name_length byte.
const (
	folderBaseSize = 33
	fileBaseSize   = 43

	// flagEncrypted is bit 6 of a File's flags_value (archive_structures.cpp,
	// File::parse: "checking if the file is encrypted").
	flagEncrypted uint16 = 1 << 6
)

// FolderNode is one directory entry in the archive's in-memory tree,
// mirroring struct Folder from archive_structures.h. Offsets (location,
// parent/childDir/sibling/childFile) become absolute byte positions in the
// container file once the node has been written; zero means "not yet
// written" or "no such link", exactly as the original treats offset 0 as
// "null" (byte 0 always belongs to the container's own common header, so
// no real node can legitimately sit there).
type FolderNode struct {
	Name     string
	LookupID int64

	parent    *FolderNode
	childDir  *FolderNode
	sibling   *FolderNode
	childFile *FileNode

	location  uint64
	tombstone bool // marked for deletion by RemoveNodes; skipped by copy_to

	// alreadySaved is the original's Folder::alreadySaved: true once this
	// node has actually been written to some backing file. write.go skips
	// rewriting (and re-back-patching) a node for which this is already
	// true, but still recurses through it to reach newly added,
	// not-yet-written descendants -- this is what lets Archive.Append add
	// new nodes to a live archive without rewriting the whole tree.
	alreadySaved bool
}

// Parent returns the containing folder, or nil for the root.
func (f *FolderNode) Parent() *FolderNode { return f.parent }

// ChildDir returns the first subfolder, or nil.
func (f *FolderNode) ChildDir() *FolderNode { return f.childDir }

// Sibling returns the next sibling folder, or nil.
func (f *FolderNode) Sibling() *FolderNode { return f.sibling }

// ChildFile returns the first file in this folder, or nil.
func (f *FolderNode) ChildFile() *FileNode { return f.childFile }

// FileNode is one file entry, mirroring struct File from
// archive_structures.h.
type FileNode struct {
	Name     string
	LookupID int64

	parent  *FolderNode
	sibling *FileNode

	location       uint64
	flags          uint16
	dataLocation   uint64
	compressedSize uint64 // byte length of the encoded block stream, excluding the checksum trailer
	originalSize   uint64

	locked       bool // mirrors Flags()&flagEncrypted != 0; this module never unlocks it
	tombstone    bool // marked for deletion by RemoveNodes; skipped by copy_to
	alreadySaved bool // see FolderNode.alreadySaved

	// pendingPayload holds the already-encoded block stream (including any
	// checksum trailer) for a node not yet written to the archive stream.
	// write.go writes these bytes right after the header and back-patches
	// dataLocation/compressedSize from their placement; it is cleared once
	// written since the bytes now live in the backing file.
	pendingPayload []byte
}

// Parent returns the containing folder.
func (f *FileNode) Parent() *FolderNode { return f.parent }

// Sibling returns the next sibling file, or nil.
func (f *FileNode) Sibling() *FileNode { return f.sibling }

// Flags returns the 16-bit transform/checksum/encryption flag word.
func (f *FileNode) Flags() uint16 { return f.flags }

// OriginalSize returns the pre-compression size in bytes.
func (f *FileNode) OriginalSize() uint64 { return f.originalSize }

// CompressedSize returns the on-disk encoded size in bytes.
func (f *FileNode) CompressedSize() uint64 { return f.compressedSize }

// Encrypted reports whether flag bit 6 is set (archive_structures.h's
// File::is_encrypted).
func (f *FileNode) Encrypted() bool { return f.flags&flagEncrypted != 0 }

// Locked reports whether the file is encrypted (File::is_locked); this
// module never implements the cipher, so a locked file can never be
// decoded through unpackFile/VerifyChecksum.
func (f *FileNode) Locked() bool { return f.Encrypted() && f.locked }

// sizeString renders n bytes as a scaled human-readable string, grounded on
// File::get_compressed_filesize_str/get_uncompressed_filesize_str.
func sizeString(n uint64) string {
	const unit = 1024.0
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := float64(unit), 0
	for v := float64(n) / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	suffixes := []string{"KiB", "MiB", "GiB", "TiB", "PiB"}
	return fmt.Sprintf("%.1f %s", float64(n)/div, suffixes[exp])
}

// CompressedSizeString renders CompressedSize as a scaled string ("12.3 MiB").
func (f *FileNode) CompressedSizeString() string { return sizeString(f.compressedSize) }

// OriginalSizeString renders OriginalSize as a scaled string.
func (f *FileNode) OriginalSizeString() string { return sizeString(f.originalSize) }
