// Package archive implements the tk2k container format: a pointer-rich
// on-disk tree of folder and file headers linked by absolute byte offsets
// (see parse.go, write.go), the repack-on-delete streaming copy (copy.go),
// and the Archive facade below that ties them to the block codec pipeline
// in internal/codec. Grounded throughout on archive.h/archive.cpp and
// archive_structures.h/.cpp from the original tk2k_lib.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/tk2k-project/tk2k/internal/codec"
	"github.com/tk2k-project/tk2k/internal/hashsum"
	"github.com/tk2k-project/tk2k/internal/progress"
)

// lookupEntry is either a *FolderNode or a *FileNode, mirroring the
// original's jniLookup map of weak_ptr<ArchiveStructure>.
type lookupEntry struct {
	folder *FolderNode
	file   *FileNode
}

// Archive is an in-memory tree plus (optionally) a backing file, mirroring
// the original's Archive class. It is an explicit, instantiable value --
// never a package-level singleton (spec.md §9 flags the original's global
// mutable archive as a refactor artifact to avoid).
type Archive struct {
	root *FolderNode

	lookup       map[int64]lookupEntry
	nextLookupID int64

	path string
	f    *os.File

	Counters progress.Counters
}

// Create builds a new, empty archive named name (the root folder's name;
// conventionally "<stem>.tk2k"), not yet backed by any file on disk,
// mirroring Archive::build_empty_archive.
func Create(name string) *Archive {
	a := &Archive{
		lookup:       make(map[int64]lookupEntry),
		nextLookupID: 1,
	}
	a.root = &FolderNode{Name: name, location: 1}
	a.assign(a.root, nil)
	return a
}

// assign gives folder or file (exactly one non-nil) the next lookup_id and
// registers it, mirroring Archive::AssignJniLookupId (currentLookupId
// starts at 1; 0 is reserved, spec.md's data model section).
func (a *Archive) assign(folder *FolderNode, file *FileNode) int64 {
	id := a.nextLookupID
	a.nextLookupID++
	if folder != nil {
		folder.LookupID = id
		a.lookup[id] = lookupEntry{folder: folder}
	} else {
		file.LookupID = id
		a.lookup[id] = lookupEntry{file: file}
	}
	return id
}

// Root returns the archive's root folder.
func (a *Archive) Root() *FolderNode { return a.root }

// Save opens path exclusively and writes the whole tree: the reserved
// 0x00 byte at offset 0, then the root subtree recursively (write.go),
// mirroring Archive::save. The exclusive open (O_EXCL) matches the
// "never silently overwrite an existing archive" behavior of the
// original's std::ios::out-only open combined with this module's use of
// golang.org/x/sys/unix for syscall-level file creation, following the
// teacher's own use of x/sys/unix for low-level file/process control.
func (a *Archive) Save(path string) error {
	a.Counters.Reset()
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_TRUNC, 0o644)
	if err != nil {
		return xerrors.Errorf("%w: opening %s for save: %v", ErrIO, path, err)
	}
	f := os.NewFile(uintptr(fd), path)

	if _, err := f.Write([]byte{0x00}); err != nil {
		f.Close()
		return xerrors.Errorf("%w: writing reserved byte: %v", ErrIO, err)
	}

	tw := &treeWriter{w: f}
	if err := tw.writeFolder(a.root); err != nil {
		f.Close()
		return xerrors.Errorf("saving %s: %w", path, err)
	}

	a.path = path
	a.f = f
	return nil
}

// Append writes every not-yet-saved node in the tree to the end of the
// already-open backing file, back-patching only the links that point to
// those new nodes, without touching or rewriting anything already on disk.
// Mirrors the original's incremental File::append_to_archive ("seek to end,
// write the new node, patch the single link that points to it") rather than
// Save's from-scratch full-tree write; it requires the archive to have been
// Load-ed (or just Saved) so that every existing node already carries
// alreadySaved==true and a.f is positioned on the real backing file.
func (a *Archive) Append() error {
	a.Counters.Reset()
	if a.f == nil {
		return xerrors.Errorf("%w: archive has no backing file open", ErrIO)
	}
	if _, err := a.f.Seek(0, io.SeekEnd); err != nil {
		return xerrors.Errorf("%w: seeking to end of %s: %v", ErrIO, a.path, err)
	}
	tw := &treeWriter{w: a.f}
	if err := tw.writeFolder(a.root); err != nil {
		return xerrors.Errorf("appending to %s: %w", a.path, err)
	}
	return nil
}

// Load opens an existing archive read-write, parses the root folder from
// offset 1, assigns fresh lookup_ids across the whole tree, then rebinds
// the root's name to the archive's own filename, mirroring Archive::load.
func Load(path string) (*Archive, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, xerrors.Errorf("%w: opening %s: %v", ErrIO, path, err)
	}

	p := &parser{r: f}
	root, err := p.parseFolder(1, nil)
	if err != nil {
		f.Close()
		return nil, xerrors.Errorf("loading %s: %w", path, err)
	}

	a := &Archive{
		root:         root,
		lookup:       make(map[int64]lookupEntry),
		nextLookupID: 1,
		path:         path,
		f:            f,
	}
	a.registerTree(root)

	root.Name = filepath.Base(path)
	return a, nil
}

// registerTree walks the freshly parsed tree (each folder, then its child
// files, then its child folder, then its next sibling) and registers every node in the lookup map with a fresh
// id, mirroring Archive::recursiveAddFolderToLookup/recursiveAddFileToLookup.
func (a *Archive) registerTree(root *FolderNode) {
	var walkFile func(file *FileNode)
	var walkFolder func(f *FolderNode)

	walkFile = func(file *FileNode) {
		if file == nil {
			return
		}
		a.assign(nil, file)
		walkFile(file.sibling)
	}
	walkFolder = func(f *FolderNode) {
		if f == nil {
			return
		}
		a.assign(f, nil)
		walkFile(f.childFile)
		walkFolder(f.childDir)
		walkFolder(f.sibling)
	}
	walkFolder(root)
}

// Close flushes and closes the backing stream; the in-memory tree remains
// queryable afterward, mirroring Archive::close.
func (a *Archive) Close() error {
	if a.f == nil {
		return nil
	}
	err := a.f.Close()
	a.f = nil
	if err != nil {
		return xerrors.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// AddFolder inserts a new, empty folder at the tail of parent's child
// folder chain, mirroring Archive::add_folder_to_model.
func (a *Archive) AddFolder(parentID int64, name string) (*FolderNode, error) {
	parent, err := a.folderByID(parentID)
	if err != nil {
		return nil, err
	}
	f := &FolderNode{Name: name, parent: parent}
	if parent.childDir == nil {
		parent.childDir = f
	} else {
		last := parent.childDir
		for last.sibling != nil {
			last = last.sibling
		}
		last.sibling = f
	}
	a.assign(f, nil)
	return f, nil
}

// AddFile reads srcPath in full, runs it through the codec pipeline under
// flags, and inserts the resulting node at the tail of parent's child file
// chain, applying the duplicate-name policy, mirroring
// Archive::add_file_to_archive_model. The encoded payload is staged on the
// node (pendingPayload) and actually written to the backing stream the
// next time Save or Append is called.
func (a *Archive) AddFile(ctx context.Context, parentID int64, srcPath string, flags uint16) (*FileNode, error) {
	a.Counters.Reset()
	parent, err := a.folderByID(parentID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, xerrors.Errorf("%w: reading %s: %v", ErrIO, srcPath, err)
	}
	if len(filepath.Base(srcPath)) > 255 {
		return nil, xerrors.Errorf("%w: name %q exceeds 255 bytes", ErrFormat, filepath.Base(srcPath))
	}

	encoded, err := codec.EncodePayload(ctx, data, flags, &a.Counters)
	if err != nil {
		return nil, xerrors.Errorf("encoding %s: %w", srcPath, err)
	}

	file := &FileNode{
		Name:           filepath.Base(srcPath),
		parent:         parent,
		flags:          flags,
		originalSize:   uint64(len(data)),
		pendingPayload: encoded,
		locked:         flags&flagEncrypted != 0,
	}

	if parent.childFile == nil {
		parent.childFile = file
	} else {
		last := parent.childFile
		for last.sibling != nil {
			last = last.sibling
		}
		last.sibling = file
	}
	a.correctDuplicateName(file, parent)

	a.assign(nil, file)
	return file, nil
}

// correctDuplicateName renames file if its name collides with an existing
// sibling, to "<stem> (k)<ext>" for the smallest k giving uniqueness,
// mirroring Archive::correct_duplicate_names. file is assumed already
// linked into parent's child-file chain.
func (a *Archive) correctDuplicateName(file *FileNode, parent *FolderNode) {
	existing := make(map[string]bool)
	for cur := parent.childFile; cur != nil; cur = cur.sibling {
		if cur == file {
			continue
		}
		existing[cur.Name] = true
	}
	if !existing[file.Name] {
		return
	}

	ext := filepath.Ext(file.Name)
	stem := strings.TrimSuffix(file.Name, ext)
	for k := 1; ; k++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, k, ext)
		if !existing[candidate] {
			file.Name = candidate
			return
		}
	}
}

// RemoveNodes marks every node named by ids, and their entire subtrees,
// as tombstoned, then repacks the live archive into a temp file via
// copy.go, atomically replaces the original with it (github.com/google/
// renameio), and evicts the removed ids from the lookup map. Mirrors
// Archive::removeArchiveObjects, but (per spec.md §4.2's "marks every
// node in ids and their entire subtrees") marks the *complete* subtree
// under each target, including every sibling folder beneath it -- the
// original's get_ptrs only walks the first child folder's chain, which
// spec.md's wording treats as a bug to not reproduce.
func (a *Archive) RemoveNodes(ctx context.Context, ids []int64) error {
	a.Counters.Reset()
	if a.f == nil {
		return xerrors.Errorf("%w: archive has no backing file open", ErrIO)
	}
	if progress.Aborted(ctx) {
		return ErrCancelled
	}

	removed := make(map[int64]bool)
	for _, id := range ids {
		entry, ok := a.lookup[id]
		if !ok {
			return xerrors.Errorf("%w", &NotFoundError{What: fmt.Sprintf("lookup id %d", id)})
		}
		if entry.folder != nil {
			if entry.folder.parent == nil {
				return xerrors.Errorf("%w: cannot remove the root folder", ErrFormat)
			}
			a.markTombstone(entry.folder, removed)
		} else {
			a.markTombstoneFile(entry.file, removed)
		}
	}

	// Repack into a sibling temp file, then atomically replace the original
	// (github.com/google/renameio), mirroring Archive::removeArchiveObjects'
	// "copy to temp, then std::filesystem::copy_file + remove" as a single
	// atomic rename instead of copy-then-delete.
	pending, err := renameio.TempFile("", a.path)
	if err != nil {
		return xerrors.Errorf("%w: creating repack temp file: %v", ErrIO, err)
	}
	defer pending.Cleanup()

	if _, err := pending.Write([]byte{0x00}); err != nil {
		return xerrors.Errorf("%w: %v", ErrIO, err)
	}

	rp := &repacker{src: a.f, dst: pending}
	if err := rp.copyRoot(a.root); err != nil {
		return xerrors.Errorf("repacking %s: %w", a.path, err)
	}

	if err := a.f.Close(); err != nil {
		return xerrors.Errorf("%w: %v", ErrIO, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return xerrors.Errorf("%w: replacing %s with repacked temp file: %v", ErrIO, a.path, err)
	}

	f, err := os.OpenFile(a.path, os.O_RDWR, 0)
	if err != nil {
		return xerrors.Errorf("%w: reopening %s after repack: %v", ErrIO, a.path, err)
	}
	a.f = f

	for id := range removed {
		delete(a.lookup, id)
	}

	// The repack wrote every surviving node into the brand-new backing
	// file regardless of its prior alreadySaved state (copy.go always
	// does a full rewrite), so every survivor is now saved relative to
	// the reopened a.f; a later Append must not re-write any of them.
	markTreeSaved(a.root)
	return nil
}

// markTreeSaved sets alreadySaved on every live (non-tombstoned) node
// reachable from f, used after a repack has rewritten the whole surviving
// tree into a fresh backing file.
func markTreeSaved(f *FolderNode) {
	if f == nil || f.tombstone {
		return
	}
	f.alreadySaved = true
	for file := f.childFile; file != nil; file = file.sibling {
		if !file.tombstone {
			file.alreadySaved = true
		}
	}
	markTreeSaved(f.childDir)
	markTreeSaved(f.sibling)
}

// markTombstone marks f and its entire subtree (child folders, their
// subtrees, and every child file) as removed.
func (a *Archive) markTombstone(f *FolderNode, removed map[int64]bool) {
	if f == nil || f.tombstone {
		return
	}
	f.tombstone = true
	removed[f.LookupID] = true
	for file := f.childFile; file != nil; file = file.sibling {
		a.markTombstoneFile(file, removed)
	}
	for child := f.childDir; child != nil; child = child.sibling {
		a.markTombstone(child, removed)
	}
}

func (a *Archive) markTombstoneFile(file *FileNode, removed map[int64]bool) {
	if file == nil || file.tombstone {
		return
	}
	file.tombstone = true
	removed[file.LookupID] = true
}

// UnpackAll recursively recreates the tree under outDir: one directory per
// folder (the root's own directory is named after the archive's filename
// stem, matching Folder::set_path's root-is-special-cased behavior), and
// one decoded file per file node, mirroring Archive::unpack_whole_archive.
func (a *Archive) UnpackAll(ctx context.Context, outDir string) error {
	a.Counters.Reset()
	if a.f == nil {
		return xerrors.Errorf("%w: archive has no backing file open", ErrIO)
	}
	stem := strings.TrimSuffix(a.root.Name, filepath.Ext(a.root.Name))
	rootDir := filepath.Join(outDir, stem)
	return a.unpackFolder(ctx, a.root, rootDir)
}

func (a *Archive) unpackFolder(ctx context.Context, f *FolderNode, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return xerrors.Errorf("%w: creating %s: %v", ErrIO, dir, err)
	}
	for file := f.childFile; file != nil; file = file.sibling {
		if err := a.unpackFile(ctx, file, filepath.Join(dir, file.Name)); err != nil {
			return err
		}
	}
	for child := f.childDir; child != nil; child = child.sibling {
		if err := a.unpackFolder(ctx, child, filepath.Join(dir, child.Name)); err != nil {
			return err
		}
	}
	return nil
}

func (a *Archive) unpackFile(ctx context.Context, file *FileNode, destPath string) error {
	if file.Locked() {
		return xerrors.Errorf("%w: %s", ErrEncryptionRequired, file.Name)
	}
	if file.dataLocation == 0 && file.compressedSize > 0 {
		return xerrors.Errorf("%w: %s has no data_offset", ErrFormat, file.Name)
	}

	trailerLen := hashsum.FromFlags(file.flags).TrailerLength()
	total := file.compressedSize + uint64(trailerLen)
	encoded := make([]byte, total)
	if total > 0 {
		if _, err := a.f.ReadAt(encoded, int64(file.dataLocation)); err != nil {
			return xerrors.Errorf("%w: reading %s payload: %v", ErrIO, file.Name, err)
		}
	}

	decoded, err := codec.DecodePayload(ctx, encoded, file.originalSize, file.flags, &a.Counters)
	if err != nil {
		return xerrors.Errorf("decoding %s: %w", file.Name, err)
	}
	if err := os.WriteFile(destPath, decoded, 0o644); err != nil {
		return xerrors.Errorf("%w: writing %s: %v", ErrIO, destPath, err)
	}
	return nil
}

// VerifyChecksum decodes file's payload and discards the result, returning
// an error if decoding fails or the trailer checksum does not match --
// useful for a "check" verb that wants to validate an archive without
// writing anything to disk. Shares unpackFile's read-and-decode path.
func (a *Archive) VerifyChecksum(ctx context.Context, file *FileNode) error {
	if file.Locked() {
		return xerrors.Errorf("%w: %s", ErrEncryptionRequired, file.Name)
	}
	if file.dataLocation == 0 && file.compressedSize > 0 {
		return xerrors.Errorf("%w: %s has no data_offset", ErrFormat, file.Name)
	}

	trailerLen := hashsum.FromFlags(file.flags).TrailerLength()
	total := file.compressedSize + uint64(trailerLen)
	encoded := make([]byte, total)
	if total > 0 {
		if _, err := a.f.ReadAt(encoded, int64(file.dataLocation)); err != nil {
			return xerrors.Errorf("%w: reading %s payload: %v", ErrIO, file.Name, err)
		}
	}

	_, err := codec.DecodePayload(ctx, encoded, file.originalSize, file.flags, &a.Counters)
	if err != nil {
		return xerrors.Errorf("decoding %s: %w", file.Name, err)
	}
	return nil
}

func (a *Archive) folderByID(id int64) (*FolderNode, error) {
	entry, ok := a.lookup[id]
	if !ok || entry.folder == nil {
		return nil, xerrors.Errorf("%w", &NotFoundError{What: fmt.Sprintf("folder id %d", id)})
	}
	return entry.folder, nil
}
