package archive

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTempSrc(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCreateSaveLoadEmptyArchive(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "a.tk2k")

	a := Create("a.tk2k")
	if err := a.Save(archivePath); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	// spec.md §8: an empty archive is exactly 40 bytes.
	if info.Size() != 40 {
		t.Fatalf("empty archive size = %d bytes, want 40", info.Size())
	}

	loaded, err := Load(archivePath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer loaded.Close()
	if loaded.Root().ChildDir() != nil || loaded.Root().ChildFile() != nil {
		t.Fatal("loaded empty archive has unexpected children")
	}
}

func TestAddFileSaveLoadUnpackRoundTrip(t *testing.T) {
	dir := t.TempDir()
	srcPath := writeTempSrc(t, dir, "note.txt", []byte("hello, tk2k"))
	archivePath := filepath.Join(dir, "backup.tk2k")

	a := Create("backup.tk2k")
	flags := uint16(0) // no transforms, no checksum: exercises the identity path
	if _, err := a.AddFile(context.Background(), a.Root().LookupID, srcPath, flags); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if err := a.Save(archivePath); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(archivePath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer loaded.Close()

	outDir := filepath.Join(dir, "out")
	if err := loaded.UnpackAll(context.Background(), outDir); err != nil {
		t.Fatalf("UnpackAll: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(outDir, "backup", "note.txt"))
	if err != nil {
		t.Fatalf("reading unpacked file: %v", err)
	}
	if !bytes.Equal(got, []byte("hello, tk2k")) {
		t.Fatalf("unpacked content = %q, want %q", got, "hello, tk2k")
	}
}

func TestDuplicateNamePolicy(t *testing.T) {
	dir := t.TempDir()
	a := Create("archive.tk2k")

	f1 := writeTempSrc(t, dir, "f", []byte("one"))
	f2dir := filepath.Join(dir, "sub")
	if err := os.Mkdir(f2dir, 0o755); err != nil {
		t.Fatal(err)
	}
	f2 := writeTempSrc(t, f2dir, "f", []byte("two"))
	f3 := writeTempSrc(t, dir, "f.txt", []byte("three"))

	root := a.Root().LookupID
	n1, err := a.AddFile(context.Background(), root, f1, 0)
	if err != nil {
		t.Fatal(err)
	}
	n2, err := a.AddFile(context.Background(), root, f2, 0)
	if err != nil {
		t.Fatal(err)
	}
	n3, err := a.AddFile(context.Background(), root, f3, 0)
	if err != nil {
		t.Fatal(err)
	}

	// spec.md §8: adding "f", "f", "f.txt" in sequence under the same
	// folder yields names "f", "f (1)", "f.txt" -- the first instance is
	// never renamed, and "f.txt" doesn't collide with "f" at all.
	if n1.Name != "f" {
		t.Errorf("first file name = %q, want %q", n1.Name, "f")
	}
	if n2.Name != "f (1)" {
		t.Errorf("second file name = %q, want %q", n2.Name, "f (1)")
	}
	if n3.Name != "f.txt" {
		t.Errorf("third file name = %q, want %q", n3.Name, "f.txt")
	}
}

func TestAppendAddsWithoutRewritingExistingNodes(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "a.tk2k")
	src1 := writeTempSrc(t, dir, "one.txt", []byte("first file"))

	a := Create("a.tk2k")
	if _, err := a.AddFile(context.Background(), a.Root().LookupID, src1, 0); err != nil {
		t.Fatal(err)
	}
	if err := a.Save(archivePath); err != nil {
		t.Fatal(err)
	}
	beforeInfo, err := os.Stat(archivePath)
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	defer loaded.Close()

	src2 := writeTempSrc(t, dir, "two.txt", []byte("second file, appended"))
	if _, err := loaded.AddFile(context.Background(), loaded.Root().LookupID, src2, 0); err != nil {
		t.Fatal(err)
	}
	if err := loaded.Append(); err != nil {
		t.Fatalf("Append: %v", err)
	}

	afterInfo, err := os.Stat(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	if afterInfo.Size() <= beforeInfo.Size() {
		t.Fatalf("archive did not grow after Append: before=%d after=%d", beforeInfo.Size(), afterInfo.Size())
	}

	reloaded, err := Load(archivePath)
	if err != nil {
		t.Fatalf("reloading after append: %v", err)
	}
	defer reloaded.Close()

	var names []string
	for f := reloaded.Root().ChildFile(); f != nil; f = f.Sibling() {
		names = append(names, f.Name)
	}
	if len(names) != 2 || names[0] != "one.txt" || names[1] != "two.txt" {
		t.Fatalf("files after append = %v, want [one.txt two.txt]", names)
	}
}

func TestRemoveNodesRepacksAndDropsSubtree(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "a.tk2k")
	srcA := writeTempSrc(t, dir, "a.txt", []byte("keep me"))
	srcB := writeTempSrc(t, dir, "b.txt", []byte("remove me"))
	srcC := writeTempSrc(t, dir, "c.txt", []byte("keep me too"))

	a := Create("a.tk2k")
	root := a.Root().LookupID
	if _, err := a.AddFile(context.Background(), root, srcA, 0); err != nil {
		t.Fatal(err)
	}
	nb, err := a.AddFile(context.Background(), root, srcB, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.AddFile(context.Background(), root, srcC, 0); err != nil {
		t.Fatal(err)
	}
	if err := a.Save(archivePath); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	defer loaded.Close()

	// Re-resolve b.txt's lookup id in the freshly loaded tree: Load
	// reassigns fresh ids, so nb.LookupID from the pre-save tree doesn't
	// carry over.
	var bID int64
	for f := loaded.Root().ChildFile(); f != nil; f = f.Sibling() {
		if f.Name == "b.txt" {
			bID = f.LookupID
		}
	}
	if bID == 0 {
		t.Fatal("could not find b.txt in the loaded tree")
	}
	_ = nb

	if err := loaded.RemoveNodes(context.Background(), []int64{bID}); err != nil {
		t.Fatalf("RemoveNodes: %v", err)
	}

	reloaded, err := Load(archivePath)
	if err != nil {
		t.Fatalf("reloading after remove: %v", err)
	}
	defer reloaded.Close()

	var names []string
	for f := reloaded.Root().ChildFile(); f != nil; f = f.Sibling() {
		names = append(names, f.Name)
	}
	if len(names) != 2 || names[0] != "a.txt" || names[1] != "c.txt" {
		t.Fatalf("files after remove = %v, want [a.txt c.txt]", names)
	}
}
