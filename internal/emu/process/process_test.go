package process

import "testing"

func TestNewSizesPageCountByCeilingDivision(t *testing.T) {
	p := New(1, "p1", nil, 100, 16)
	if p.PageCount != 7 { // ceil(100/16) = 7
		t.Fatalf("PageCount = %d, want 7", p.PageCount)
	}
}

func TestNewActivatesSymbolTableAtThreshold(t *testing.T) {
	small := New(1, "small", nil, 32, 16)
	small.Symbols.Set("x", 5)
	if small.Symbols.Get("x") != 0 {
		t.Fatal("symbol table should be inactive below 64 bytes of memory")
	}

	big := New(2, "big", nil, 64, 16)
	big.Symbols.Set("x", 5)
	if big.Symbols.Get("x") != 5 {
		t.Fatal("symbol table should be active at 64 bytes of memory")
	}
}

func TestSaturatingAddClampsAtMax(t *testing.T) {
	if got := saturatingAdd(0xFFFF, 10); got != 0xFFFF {
		t.Fatalf("saturatingAdd overflow = %#x, want 0xFFFF", got)
	}
}

func TestSaturatingSubClampsAtZero(t *testing.T) {
	if got := saturatingSub(5, 10); got != 0 {
		t.Fatalf("saturatingSub underflow = %d, want 0", got)
	}
}

func TestIsDone(t *testing.T) {
	p := New(1, "p", nil, 64, 16)
	if p.IsDone() {
		t.Fatal("fresh process should not be done")
	}
	p.State = Finished
	if !p.IsDone() {
		t.Fatal("Finished process should be done")
	}
	p.State = Terminated
	if !p.IsDone() {
		t.Fatal("Terminated process should be done")
	}
}

func TestResolveOperand(t *testing.T) {
	p := New(1, "p", nil, 64, 16)
	p.Symbols.Set("x", 42)
	if got := p.resolve(Var("x")); got != 42 {
		t.Fatalf("resolve(Var) = %d, want 42", got)
	}
	if got := p.resolve(Imm(7)); got != 7 {
		t.Fatalf("resolve(Imm) = %d, want 7", got)
	}
}
