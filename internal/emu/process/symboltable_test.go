package process

import "testing"

func TestSymbolTableCapDropsNewVariablesSilently(t *testing.T) {
	s := newSymbolTable(true)
	for i := 0; i < symbolTableCap; i++ {
		s.Set(string(rune('a'+i%26))+string(rune('0'+i/26)), uint16(i))
	}
	if s.Len() != symbolTableCap {
		t.Fatalf("Len() = %d, want %d", s.Len(), symbolTableCap)
	}
	s.Set("overflow", 999)
	if s.Len() != symbolTableCap {
		t.Fatalf("Len() after overflow attempt = %d, want %d (drop silently)", s.Len(), symbolTableCap)
	}
	if v := s.Get("overflow"); v != 0 {
		t.Fatalf("overflow variable should read back as 0, got %d", v)
	}
	if s.Len() != symbolTableCap {
		t.Fatalf("Len() after reading an undeclared variable at capacity = %d, want %d", s.Len(), symbolTableCap)
	}
}

func TestSymbolTableGetAutoDeclares(t *testing.T) {
	s := newSymbolTable(true)
	if v := s.Get("never_set"); v != 0 {
		t.Fatalf("Get on unset variable = %d, want 0", v)
	}
	if s.Len() != 1 {
		t.Fatalf("Get should auto-declare: Len() = %d, want 1", s.Len())
	}
}

func TestSymbolTableInactiveIsNoop(t *testing.T) {
	s := newSymbolTable(false)
	s.Set("x", 10)
	if s.Get("x") != 0 {
		t.Fatal("inactive symbol table must ignore Set/Get")
	}
	if s.Len() != 0 {
		t.Fatalf("inactive symbol table Len() = %d, want 0", s.Len())
	}
}

func TestSymbolTableUpdateExistingDoesNotCountAgainstCap(t *testing.T) {
	s := newSymbolTable(true)
	s.Set("x", 1)
	s.Set("x", 2)
	if s.Len() != 1 {
		t.Fatalf("updating an existing var should not grow Len(): got %d", s.Len())
	}
	if s.Get("x") != 2 {
		t.Fatalf("Get(x) = %d, want 2", s.Get("x"))
	}
}
