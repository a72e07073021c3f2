package archive

import (
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"

	"github.com/tk2k-project/tk2k/internal/hashsum"
)

// repackChunkSize is the buffer size used to stream a file's encoded
// payload across during a repack, matching archive_structures.cpp's
// File::copy_to_another_archive ("output_buffer_size = 4*8*1024" = 32 KiB).
const repackChunkSize = 32 * 1024

// repacker streams the surviving subtree of an archive into a new backing
// file, mirroring Folder::copy_to_another_archive/File::copy_to_another_archive:
// a node marked tombstone (the original's ptr_already_gotten) is dropped
// along with its entire subtree, and the next surviving sibling in its
// chain is back-patched to the last surviving node's sibling field instead
// -- exactly as the original forwards previous_sibling_location across a
// skipped node rather than updating it.
type repacker struct {
	src io.ReaderAt
	dst io.WriteSeeker
}

func (rp *repacker) patchUint64(offset uint64, value uint64) error {
	cur, err := rp.dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return xerrors.Errorf("%w: %v", ErrIO, err)
	}
	if _, err := rp.dst.Seek(int64(offset), io.SeekStart); err != nil {
		return xerrors.Errorf("%w: %v", ErrIO, err)
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	if _, err := rp.dst.Write(buf[:]); err != nil {
		return xerrors.Errorf("%w: %v", ErrIO, err)
	}
	_, err = rp.dst.Seek(cur, io.SeekStart)
	return err
}

// copyRoot copies the whole tree starting from root, which can never be
// tombstoned (Archive.RemoveNodes refuses to mark the root). parentOffset
// is 0, matching Archive::remove's "copy_to_another_archive(archive_file,
// dst, 0, 0)" call.
func (rp *repacker) copyRoot(root *FolderNode) error {
	_, err := rp.copyFolder(root, 0)
	return err
}

// copyFolderChain writes every surviving node in the sibling chain starting
// at head, back-patching each node's next_sibling_folder_offset to the next
// surviving node (skipping over tombstoned ones), and returns the new
// location of the first surviving node, or 0 if none survived.
func (rp *repacker) copyFolderChain(head *FolderNode, parentOffset uint64) (uint64, error) {
	var firstLoc, prevLoc uint64
	var prevNameLen int
	for cur := head; cur != nil; cur = cur.sibling {
		if cur.tombstone {
			continue
		}
		loc, err := rp.copyFolder(cur, parentOffset)
		if err != nil {
			return 0, err
		}
		if prevLoc == 0 {
			firstLoc = loc
		} else if err := rp.patchUint64(prevLoc+uint64(1+prevNameLen)+16, loc); err != nil {
			return 0, err
		}
		prevLoc, prevNameLen = loc, len(cur.Name)
	}
	return firstLoc, nil
}

// copyFileChain is copyFolderChain's file-sibling counterpart; the sibling
// field for a File header sits at base+8 rather than base+16.
func (rp *repacker) copyFileChain(head *FileNode, parentOffset uint64) (uint64, error) {
	var firstLoc, prevLoc uint64
	var prevNameLen int
	for cur := head; cur != nil; cur = cur.sibling {
		if cur.tombstone {
			continue
		}
		loc, err := rp.copyFile(cur, parentOffset)
		if err != nil {
			return 0, err
		}
		if prevLoc == 0 {
			firstLoc = loc
		} else if err := rp.patchUint64(prevLoc+uint64(1+prevNameLen)+8, loc); err != nil {
			return 0, err
		}
		prevLoc, prevNameLen = loc, len(cur.Name)
	}
	return firstLoc, nil
}

// copyFolder writes f's header (children initially 0), then its child file
// chain and child folder chain, patching f's own child-field offsets once
// each chain's first surviving location is known. Returns f's new location
// so the caller (copyFolderChain, or RemoveNodes for the root) can
// back-patch the link that points to f.
func (rp *repacker) copyFolder(f *FolderNode, parentOffset uint64) (uint64, error) {
	loc, err := rp.dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, xerrors.Errorf("%w: %v", ErrIO, err)
	}

	header := make([]byte, 1+len(f.Name)+32)
	header[0] = byte(len(f.Name))
	copy(header[1:], f.Name)
	base := 1 + len(f.Name)
	binary.LittleEndian.PutUint64(header[base:base+8], parentOffset)
	if _, err := rp.dst.Write(header); err != nil {
		return 0, xerrors.Errorf("%w: writing folder header: %v", ErrIO, err)
	}
	f.location = uint64(loc)

	childFileLoc, err := rp.copyFileChain(f.childFile, uint64(loc))
	if err != nil {
		return 0, err
	}
	if childFileLoc != 0 {
		if err := rp.patchUint64(uint64(loc)+uint64(base)+24, childFileLoc); err != nil {
			return 0, err
		}
	}

	childDirLoc, err := rp.copyFolderChain(f.childDir, uint64(loc))
	if err != nil {
		return 0, err
	}
	if childDirLoc != 0 {
		if err := rp.patchUint64(uint64(loc)+uint64(base)+8, childDirLoc); err != nil {
			return 0, err
		}
	}

	return uint64(loc), nil
}

// copyFile writes file's header (sibling initially 0) and streams its
// encoded payload plus checksum trailer across from src in repackChunkSize
// chunks, without re-encoding, exactly as spec.md §4.6 requires.
func (rp *repacker) copyFile(file *FileNode, parentOffset uint64) (uint64, error) {
	loc, err := rp.dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, xerrors.Errorf("%w: %v", ErrIO, err)
	}

	header := make([]byte, 1+len(file.Name)+42)
	header[0] = byte(len(file.Name))
	copy(header[1:], file.Name)
	base := 1 + len(file.Name)
	binary.LittleEndian.PutUint64(header[base:base+8], parentOffset)
	binary.LittleEndian.PutUint16(header[base+16:base+18], file.flags)
	binary.LittleEndian.PutUint64(header[base+26:base+34], file.compressedSize)
	binary.LittleEndian.PutUint64(header[base+34:base+42], file.originalSize)
	if _, err := rp.dst.Write(header); err != nil {
		return 0, xerrors.Errorf("%w: writing file header: %v", ErrIO, err)
	}

	dataLoc, err := rp.dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, xerrors.Errorf("%w: %v", ErrIO, err)
	}

	trailerLen := hashsum.FromFlags(file.flags).TrailerLength()
	total := file.compressedSize + uint64(trailerLen)
	if file.dataLocation == 0 && total > 0 {
		return 0, xerrors.Errorf("%w: file %q has no data_offset but compressed_size %d", ErrFormat, file.Name, file.compressedSize)
	}
	if err := rp.streamPayload(file.dataLocation, total); err != nil {
		return 0, xerrors.Errorf("copying payload for %q: %w", file.Name, err)
	}

	if err := rp.patchUint64(uint64(loc)+uint64(base)+18, uint64(dataLoc)); err != nil {
		return 0, err
	}
	file.location = uint64(loc)
	file.dataLocation = uint64(dataLoc)
	return uint64(loc), nil
}

func (rp *repacker) streamPayload(srcOffset uint64, total uint64) error {
	buf := make([]byte, repackChunkSize)
	r := io.NewSectionReader(rp.src, int64(srcOffset), int64(total))
	if _, err := io.CopyBuffer(rp.dst, r, buf); err != nil {
		return xerrors.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}
