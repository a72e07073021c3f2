package archive

import "golang.org/x/xerrors"

// The six sentinel error kinds from spec.md §7, grounded on
// misc/project_exceptions.h's distinct C++ exception types. Call sites
// wrap these with context via xerrors.Errorf("...: %w", ..., ErrXxx), so
// callers can still match the kind with errors.Is.
var (
	// ErrIO wraps an underlying filesystem/stream failure.
	ErrIO = xerrors.New("archive: io error")
	// ErrFormat signals a container that doesn't parse as a valid tk2k
	// container (a zero link where a node must be, a non-root node with
	// parent_offset 0, a name longer than 255 bytes).
	ErrFormat = xerrors.New("archive: format error")
	// ErrChecksumMismatch signals that a decoded file's checksum trailer
	// doesn't match the recomputed checksum.
	ErrChecksumMismatch = xerrors.New("archive: checksum mismatch")
	// ErrCancelled signals that an operation was aborted via context
	// cancellation (internal/progress.Aborted).
	ErrCancelled = xerrors.New("archive: cancelled")
	// ErrAlgorithm signals an internal invariant violation in one of the
	// block transforms (a malformed trailer byte, an out-of-range index).
	ErrAlgorithm = xerrors.New("archive: algorithm error")
	// ErrEncryptionRequired signals that a file has flag bit 6 set: this
	// module tracks and surfaces the bit (FileNode.Encrypted/Locked) but
	// never implements the AES-CTR/PBKDF2 cipher, so such a file can never
	// be decoded through unpackFile/VerifyChecksum.
	ErrEncryptionRequired = xerrors.New("archive: encryption required")
)

// NotFoundError reports that a lookup_id or a path component could not be
// resolved to a node in the tree.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return "archive: not found: " + e.What
}

// DuplicateNameError reports a name collision under duplicate-name policy
// (spec.md's data model section): two siblings sharing the same name
// shadow by lookup but are not merged.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return "archive: duplicate name: " + e.Name
}
