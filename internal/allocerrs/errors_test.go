package allocerrs

import "testing"

func TestExhaustedCarriesCategoryAndContext(t *testing.T) {
	err := Exhausted(128)

	if err.Category != CategoryExhaustion {
		t.Fatalf("Category = %s, want %s", err.Category, CategoryExhaustion)
	}

	if err.Context["requested"] != uintptr(128) {
		t.Fatalf("Context[requested] = %v, want 128", err.Context["requested"])
	}

	want := "[EXHAUSTION:HEAP_EXHAUSTED] memory primitive refused to grant 128 bytes"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestInvalidArenaCarriesCategory(t *testing.T) {
	err := InvalidArena("capacity must be positive")

	if err.Category != CategoryInvalid {
		t.Fatalf("Category = %s, want %s", err.Category, CategoryInvalid)
	}

	if err.Message != "capacity must be positive" {
		t.Fatalf("Message = %q, want %q", err.Message, "capacity must be positive")
	}
}
