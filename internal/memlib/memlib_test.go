package memlib

import "testing"

func TestSbrkGrowsMonotonically(t *testing.T) {
	a, err := NewMmap(1 << 20)
	if err != nil {
		t.Fatalf("NewMmap: %v", err)
	}

	first, err := a.Sbrk(64)
	if err != nil {
		t.Fatalf("Sbrk: %v", err)
	}

	second, err := a.Sbrk(64)
	if err != nil {
		t.Fatalf("Sbrk: %v", err)
	}

	if uintptr(second) != uintptr(first)+64 {
		t.Fatalf("second grant not contiguous with first: %p vs %p+64", second, first)
	}

	if a.Len() != 128 {
		t.Fatalf("Len() = %d, want 128", a.Len())
	}

	if a.HeapLo() != first {
		t.Fatalf("HeapLo() = %p, want %p", a.HeapLo(), first)
	}
}

func TestSbrkExhaustion(t *testing.T) {
	a, err := NewMmap(64)
	if err != nil {
		t.Fatalf("NewMmap: %v", err)
	}

	if _, err := a.Sbrk(64); err != nil {
		t.Fatalf("Sbrk(64): %v", err)
	}

	if _, err := a.Sbrk(1); err == nil {
		t.Fatal("expected exhaustion error once capacity is used up")
	}
}

func TestResetReclaimsCapacity(t *testing.T) {
	a, err := NewMmap(128)
	if err != nil {
		t.Fatalf("NewMmap: %v", err)
	}

	if _, err := a.Sbrk(128); err != nil {
		t.Fatalf("Sbrk: %v", err)
	}

	a.Reset()

	if a.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", a.Len())
	}

	if _, err := a.Sbrk(128); err != nil {
		t.Fatalf("Sbrk after Reset: %v", err)
	}
}

func TestInvalidCapacity(t *testing.T) {
	if _, err := NewMmap(0); err == nil {
		t.Fatal("expected error for zero capacity")
	}
}
