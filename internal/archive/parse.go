package archive

import (
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"
)

// parser reads node headers from an archive stream at absolute offsets,
// mirroring Folder::parse/File::parse in archive_structures.cpp: read the
// header at offset, then recursively follow each non-zero child/sibling
// link, restoring the read position around each recursion. Go's io.ReaderAt
// makes the restore implicit -- each recursive call gets its own offset,
// there is no shared cursor to save and rewind.
type parser struct {
	r io.ReaderAt
}

// parseFolder reads the folder header at offset and recursively parses its
// children and siblings. parent is nil only for the root.
func (p *parser) parseFolder(offset uint64, parent *FolderNode) (*FolderNode, error) {
	if offset == 0 {
		return nil, xerrors.Errorf("%w: folder offset is 0", ErrFormat)
	}

	name, rest, err := p.readNameAndRest(offset, folderBaseSize)
	if err != nil {
		return nil, xerrors.Errorf("parsing folder at %d: %w", offset, err)
	}

	f := &FolderNode{
		Name:         name,
		parent:       parent,
		location:     offset,
		alreadySaved: true,
	}

	parentOffset := binary.LittleEndian.Uint64(rest[0:8])
	childDirOffset := binary.LittleEndian.Uint64(rest[8:16])
	siblingOffset := binary.LittleEndian.Uint64(rest[16:24])
	childFileOffset := binary.LittleEndian.Uint64(rest[24:32])

	if parentOffset == 0 && parent != nil {
		return nil, xerrors.Errorf("%w: non-root folder at %d has parent_offset 0", ErrFormat, offset)
	}

	if childDirOffset != 0 {
		f.childDir, err = p.parseFolder(childDirOffset, f)
		if err != nil {
			return nil, err
		}
	}
	if siblingOffset != 0 {
		f.sibling, err = p.parseFolder(siblingOffset, parent)
		if err != nil {
			return nil, err
		}
	}
	if childFileOffset != 0 {
		f.childFile, err = p.parseFile(childFileOffset, f)
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

// parseFile reads the file header at offset and recursively parses its
// sibling chain, mirroring File::parse.
func (p *parser) parseFile(offset uint64, parent *FolderNode) (*FileNode, error) {
	if offset == 0 {
		return nil, xerrors.Errorf("%w: file offset is 0", ErrFormat)
	}

	name, rest, err := p.readNameAndRest(offset, fileBaseSize)
	if err != nil {
		return nil, xerrors.Errorf("parsing file at %d: %w", offset, err)
	}

	parentOffset := binary.LittleEndian.Uint64(rest[0:8])
	siblingOffset := binary.LittleEndian.Uint64(rest[8:16])
	flags := binary.LittleEndian.Uint16(rest[16:18])
	dataLocation := binary.LittleEndian.Uint64(rest[18:26])
	compressedSize := binary.LittleEndian.Uint64(rest[26:34])
	originalSize := binary.LittleEndian.Uint64(rest[34:42])

	if parentOffset == 0 && parent != nil {
		return nil, xerrors.Errorf("%w: file at %d has parent_offset 0 under non-root parent", ErrFormat, offset)
	}

	file := &FileNode{
		Name:           name,
		parent:         parent,
		location:       offset,
		flags:          flags,
		dataLocation:   dataLocation,
		compressedSize: compressedSize,
		originalSize:   originalSize,
		locked:         flags&flagEncrypted != 0,
		alreadySaved:   true,
	}

	if siblingOffset != 0 {
		file.sibling, err = p.parseFile(siblingOffset, parent)
		if err != nil {
			return nil, err
		}
	}
	return file, nil
}

// readNameAndRest reads the common header's name_length+name at offset,
// then the following baseSize-1 bytes of fixed fields (baseSize already
// includes the one name_length byte; it excludes the name itself).
func (p *parser) readNameAndRest(offset uint64, baseSize int) (name string, rest []byte, err error) {
	var nameLen [1]byte
	if _, err := p.r.ReadAt(nameLen[:], int64(offset)); err != nil {
		return "", nil, xerrors.Errorf("%w: reading name_length: %v", ErrIO, err)
	}
	n := int(nameLen[0])

	buf := make([]byte, n+(baseSize-1))
	if _, err := p.r.ReadAt(buf, int64(offset)+1); err != nil {
		return "", nil, xerrors.Errorf("%w: reading header body: %v", ErrIO, err)
	}
	return string(buf[:n]), buf[n:], nil
}
