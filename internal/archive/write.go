package archive

import (
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"

	"github.com/tk2k-project/tk2k/internal/hashsum"
)

// treeWriter places nodes at the current append position of an
// io.WriteSeeker and back-patches the offset fields that point to them,
// mirroring Folder::write_to_archive/File::write_to_archive in
// archive_structures.cpp. The original has each node seek backward to patch
// whichever field points to it (the parent's first-child field, or the
// previous sibling's next-sibling field); here the *caller* performs that
// patch immediately after the callee returns its new location, since Go's
// tree holds forward links only (no "previous sibling" pointer is stored in
// the node itself). Both orderings produce the identical on-disk result:
// one absolute-offset field gets overwritten once, after the node it points
// to has been fully written.
type treeWriter struct {
	w io.WriteSeeker
}

// patchUint64 overwrites the 8-byte little-endian field at absolute offset
// with value, then restores the stream's append position.
func (t *treeWriter) patchUint64(offset uint64, value uint64) error {
	cur, err := t.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return xerrors.Errorf("%w: saving append position: %v", ErrIO, err)
	}
	if _, err := t.w.Seek(int64(offset), io.SeekStart); err != nil {
		return xerrors.Errorf("%w: seeking to patch offset %d: %v", ErrIO, offset, err)
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	if _, err := t.w.Write(buf[:]); err != nil {
		return xerrors.Errorf("%w: writing patch at %d: %v", ErrIO, offset, err)
	}
	if _, err := t.w.Seek(cur, io.SeekStart); err != nil {
		return xerrors.Errorf("%w: restoring append position: %v", ErrIO, err)
	}
	return nil
}

// writeFolder places f at the current append position (unless it has
// already been written once -- see FolderNode.alreadySaved) and recurses,
// in order, into sibling, child file, then child folder -- the same order
// Folder::write_to_archive uses. An already-saved node is never rewritten
// or re-seeked to, but its chains are still walked so that nodes linked in
// after its own last write (Archive.Append's whole purpose) are found and
// written; only the single link that actually changed -- from "absent" to
// a newly written node's location -- gets back-patched, since every other
// on-disk field of an already-saved node is still correct as it stands.
func (t *treeWriter) writeFolder(f *FolderNode) error {
	if f == nil {
		return nil
	}

	base := 1 + len(f.Name)

	if !f.alreadySaved {
		offset, err := t.w.Seek(0, io.SeekCurrent)
		if err != nil {
			return xerrors.Errorf("%w: %v", ErrIO, err)
		}
		f.location = uint64(offset)

		var parentOffset uint64
		if f.parent != nil {
			parentOffset = f.parent.location
		}

		header := make([]byte, 1+len(f.Name)+32)
		header[0] = byte(len(f.Name))
		copy(header[1:], f.Name)
		binary.LittleEndian.PutUint64(header[base:base+8], parentOffset)
		// child_dir, sibling, child_file all start at 0; back-patched below
		// once each is actually written.
		if _, err := t.w.Write(header); err != nil {
			return xerrors.Errorf("%w: writing folder header: %v", ErrIO, err)
		}
		f.alreadySaved = true
	}

	siblingFieldOffset := f.location + uint64(base) + 16
	childFileFieldOffset := f.location + uint64(base) + 24
	childDirFieldOffset := f.location + uint64(base) + 8

	if f.sibling != nil {
		wasSaved := f.sibling.alreadySaved
		if err := t.writeFolder(f.sibling); err != nil {
			return err
		}
		if !wasSaved {
			if err := t.patchUint64(siblingFieldOffset, f.sibling.location); err != nil {
				return err
			}
		}
	}
	if f.childFile != nil {
		wasSaved := f.childFile.alreadySaved
		if err := t.writeFile(f.childFile); err != nil {
			return err
		}
		if !wasSaved {
			if err := t.patchUint64(childFileFieldOffset, f.childFile.location); err != nil {
				return err
			}
		}
	}
	if f.childDir != nil {
		wasSaved := f.childDir.alreadySaved
		if err := t.writeFolder(f.childDir); err != nil {
			return err
		}
		if !wasSaved {
			if err := t.patchUint64(childDirFieldOffset, f.childDir.location); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeFile places file at the current append position (unless already
// saved, in which case only its sibling chain is walked -- see writeFolder)
// then its already-encoded payload (set by Archive.AddFile via the codec
// pipeline) right after the header, back-patching data_offset and
// compressed_size once the payload's length is known, then recurses into
// the sibling chain.
func (t *treeWriter) writeFile(file *FileNode) error {
	if file == nil {
		return nil
	}

	base := 1 + len(file.Name)

	if !file.alreadySaved {
		offset, err := t.w.Seek(0, io.SeekCurrent)
		if err != nil {
			return xerrors.Errorf("%w: %v", ErrIO, err)
		}
		file.location = uint64(offset)

		var parentOffset uint64
		if file.parent != nil {
			parentOffset = file.parent.location
		}

		header := make([]byte, 1+len(file.Name)+42)
		header[0] = byte(len(file.Name))
		copy(header[1:], file.Name)
		binary.LittleEndian.PutUint64(header[base:base+8], parentOffset)
		// sibling (base+8..16) left 0, back-patched below.
		binary.LittleEndian.PutUint16(header[base+16:base+18], file.flags)
		// data_offset, compressed_size (base+18..42) left 0, patched after payload.
		binary.LittleEndian.PutUint64(header[base+34:base+42], file.originalSize)
		if _, err := t.w.Write(header); err != nil {
			return xerrors.Errorf("%w: writing file header: %v", ErrIO, err)
		}

		dataOffset, err := t.w.Seek(0, io.SeekCurrent)
		if err != nil {
			return xerrors.Errorf("%w: %v", ErrIO, err)
		}
		if _, err := t.w.Write(file.pendingPayload); err != nil {
			return xerrors.Errorf("%w: writing file payload: %v", ErrIO, err)
		}
		file.dataLocation = uint64(dataOffset)
		// compressed_size covers the encoded blocks only; the checksum
		// trailer at the end of pendingPayload is not counted.
		trailerLen := hashsum.FromFlags(file.flags).TrailerLength()
		file.compressedSize = uint64(len(file.pendingPayload) - trailerLen)
		file.pendingPayload = nil

		dataFieldOffset := file.location + uint64(base) + 18
		compressedSizeFieldOffset := file.location + uint64(base) + 26
		if err := t.patchUint64(dataFieldOffset, file.dataLocation); err != nil {
			return err
		}
		if err := t.patchUint64(compressedSizeFieldOffset, file.compressedSize); err != nil {
			return err
		}
		file.alreadySaved = true
	}

	siblingFieldOffset := file.location + uint64(base) + 8
	if file.sibling != nil {
		wasSaved := file.sibling.alreadySaved
		if err := t.writeFile(file.sibling); err != nil {
			return err
		}
		if !wasSaved {
			if err := t.patchUint64(siblingFieldOffset, file.sibling.location); err != nil {
				return err
			}
		}
	}
	return nil
}
