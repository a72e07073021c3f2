package archive

import (
	"testing"

	"github.com/orcaman/writerseeker"
)

func TestWriteFolderEmptyArchiveSize(t *testing.T) {
	// spec.md §8: an empty archive named "a.tk2k" is exactly 40 bytes
	// (1 reserved byte + a 33-byte folder base + the 6-byte name).
	ws := &writerseeker.WriterSeeker{}
	if _, err := ws.Write([]byte{0x00}); err != nil {
		t.Fatal(err)
	}

	root := &FolderNode{Name: "a.tk2k"}
	tw := &treeWriter{w: ws}
	if err := tw.writeFolder(root); err != nil {
		t.Fatalf("writeFolder: %v", err)
	}

	r, err := ws.BytesReader()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := r.Len(), 40; got != want {
		t.Fatalf("empty archive size = %d bytes, want %d", got, want)
	}
	if !root.alreadySaved {
		t.Fatal("writeFolder did not mark the root as alreadySaved")
	}
	if root.location != 1 {
		t.Fatalf("root.location = %d, want 1", root.location)
	}
}

func TestWriteFolderThenAppendSkipsAlreadySavedNodes(t *testing.T) {
	ws := &writerseeker.WriterSeeker{}
	ws.Write([]byte{0x00})

	root := &FolderNode{Name: "root"}
	tw := &treeWriter{w: ws}
	if err := tw.writeFolder(root); err != nil {
		t.Fatalf("first writeFolder: %v", err)
	}
	firstSize, err := ws.BytesReader()
	if err != nil {
		t.Fatal(err)
	}
	sizeAfterFirstSave := firstSize.Len()

	// Simulate Archive.AddFolder: link a new, not-yet-saved child under the
	// already-saved root, then call writeFolder again (what Archive.Append
	// does). Only the new node's bytes should be appended, and only the
	// root's child_dir field should be patched.
	child := &FolderNode{Name: "child", parent: root}
	root.childDir = child

	if err := tw.writeFolder(root); err != nil {
		t.Fatalf("second writeFolder (append): %v", err)
	}

	r, err := ws.BytesReader()
	if err != nil {
		t.Fatal(err)
	}
	totalSize := r.Len()
	wantChildBytes := 1 + len(child.Name) + 32
	if totalSize != sizeAfterFirstSave+wantChildBytes {
		t.Fatalf("total size after append = %d, want %d", totalSize, sizeAfterFirstSave+wantChildBytes)
	}
	if !child.alreadySaved {
		t.Fatal("appended child was not marked alreadySaved")
	}
	if child.location != uint64(sizeAfterFirstSave) {
		t.Fatalf("child.location = %d, want %d", child.location, sizeAfterFirstSave)
	}

	// Re-parsing from the buffer must now find the child under the root.
	p := &parser{r: r}
	reparsedRoot, err := p.parseFolder(1, nil)
	if err != nil {
		t.Fatalf("parseFolder after append: %v", err)
	}
	if reparsedRoot.ChildDir() == nil {
		t.Fatal("reparsed root has no child folder after append")
	}
	if reparsedRoot.ChildDir().Name != "child" {
		t.Fatalf("reparsed child name = %q, want %q", reparsedRoot.ChildDir().Name, "child")
	}
}
