package checksum

import "testing"

func TestSum_Deterministic(t *testing.T) {
	a := Sum([]byte("# Hello"))
	b := Sum([]byte("# Hello"))
	if a != b {
		t.Fatalf("same input gave %q and %q", a, b)
	}
	if len(a) != 16 {
		t.Errorf("len = %d, want 16", len(a))
	}
}

func TestSum_DiffersOnContent(t *testing.T) {
	if Sum([]byte("a")) == Sum([]byte("b")) {
		t.Error("different inputs share a digest")
	}
}

func TestSum_Empty(t *testing.T) {
	// xxhash64 of the empty input.
	if got := Sum(nil); got != "ef46db3751d8e999" {
		t.Errorf("Sum(nil) = %q", got)
	}
}
