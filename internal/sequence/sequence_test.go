package sequence

import "testing"

func TestSequence(t *testing.T) {
	s := New()
	if s.Len() != 0 || s.Last() != "" || s.String() != "" {
		t.Fatalf("new sequence not empty: %q", s.String())
	}
	if _, ok := s.RemoveLast(); ok {
		t.Error("RemoveLast on empty sequence reported ok")
	}

	s.Append("അ")
	s.Append("മ")
	s.Append("മ")

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	if s.String() != "അ + മ + മ" {
		t.Errorf("String() = %q", s.String())
	}
	if s.Last() != "മ" {
		t.Errorf("Last() = %q", s.Last())
	}

	syms := s.Symbols()
	syms[0] = "x"
	if s.Symbols()[0] != "അ" {
		t.Error("Symbols() aliases internal storage")
	}

	got, ok := s.RemoveLast()
	if !ok || got != "മ" || s.Len() != 2 {
		t.Errorf("RemoveLast() = %q, %v; len %d", got, ok, s.Len())
	}

	if n := s.Clear(); n != 2 {
		t.Errorf("Clear() = %d, want 2", n)
	}
	if s.Len() != 0 {
		t.Errorf("Len() after clear = %d", s.Len())
	}
}
