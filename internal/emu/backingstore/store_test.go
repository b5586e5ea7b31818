package backingstore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.txt")

	s, serr := Open(path, 4)
	if serr != nil {
		t.Fatalf("Open: %v", serr)
	}

	page := []byte{1, 2, 3, 4}
	if serr := s.WritePage(7, 2, page); serr != nil {
		t.Fatalf("WritePage: %v", serr)
	}

	got, ok := s.ReadPage(7, 2)
	if !ok {
		t.Fatal("ReadPage: expected page to exist")
	}
	if string(got) != string(page) {
		t.Fatalf("ReadPage: got %v, want %v", got, page)
	}

	if !s.HasPage(7, 2) {
		t.Fatal("HasPage: expected true")
	}
	if s.HasPage(7, 3) {
		t.Fatal("HasPage: expected false for unwritten page")
	}
}

func TestPersistSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.txt")

	s, serr := Open(path, 2)
	if serr != nil {
		t.Fatalf("Open: %v", serr)
	}
	if serr := s.WritePage(1, 0, []byte{9, 8}); serr != nil {
		t.Fatalf("WritePage: %v", serr)
	}
	if serr := s.WritePage(1, 1, []byte{7, 6}); serr != nil {
		t.Fatalf("WritePage: %v", serr)
	}
	// Overwrite the first page to confirm in-place replace, not append.
	if serr := s.WritePage(1, 0, []byte{1, 1}); serr != nil {
		t.Fatalf("WritePage overwrite: %v", serr)
	}

	s2, serr := Open(path, 2)
	if serr != nil {
		t.Fatalf("reopen: %v", serr)
	}
	got, ok := s2.ReadPage(1, 0)
	if !ok || got[0] != 1 || got[1] != 1 {
		t.Fatalf("reopen ReadPage(1,0) = %v, %v", got, ok)
	}
	got, ok = s2.ReadPage(1, 1)
	if !ok || got[0] != 7 || got[1] != 6 {
		t.Fatalf("reopen ReadPage(1,1) = %v, %v", got, ok)
	}
}

func TestPreservesUnknownLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.txt")
	raw := "# a stray comment line the store doesn't understand\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	s, serr := Open(path, 1)
	if serr != nil {
		t.Fatalf("Open: %v", serr)
	}
	if serr := s.WritePage(1, 0, []byte{5}); serr != nil {
		t.Fatalf("WritePage: %v", serr)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !contains(string(contents), "stray comment") {
		t.Fatalf("expected unknown line preserved, got:\n%s", contents)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}
