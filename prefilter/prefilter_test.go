package prefilter

import "testing"

func TestNewRejectsUnusableSets(t *testing.T) {
	tests := []struct {
		name     string
		literals []string
	}{
		{"empty set", nil},
		{"empty literal", []string{"foo", ""}},
		{"single byte literal", []string{"foo", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if p := New(tt.literals); p != nil {
				t.Errorf("New(%q) = %v, want nil", tt.literals, p)
			}
		})
	}
}

func TestNext(t *testing.T) {
	p := New([]string{"foo", "bar"})
	if p == nil {
		t.Fatal("New returned nil for a usable literal set")
	}

	haystack := []byte("xx bar yy foo zz")

	c, ok := p.Next(haystack, 0)
	if !ok || c.Start != 3 || c.End != 6 {
		t.Errorf("first candidate = %+v (%v), want {3 6}", c, ok)
	}

	c, ok = p.Next(haystack, c.Start+1)
	if !ok || c.Start != 10 || c.End != 13 {
		t.Errorf("second candidate = %+v (%v), want {10 13}", c, ok)
	}

	if _, ok = p.Next(haystack, c.Start+1); ok {
		t.Error("expected no candidate past the last literal")
	}
}

func TestPossible(t *testing.T) {
	p := New([]string{"needle"})
	if p == nil {
		t.Fatal("New returned nil for a usable literal set")
	}
	if !p.Possible([]byte("hay needle hay")) {
		t.Error("Possible = false with the literal present")
	}
	if p.Possible([]byte("hay hay hay")) {
		t.Error("Possible = true with the literal absent")
	}
}

func TestLiterals(t *testing.T) {
	lits := []string{"foo", "bar"}
	p := New(lits)
	if p == nil {
		t.Fatal("New returned nil for a usable literal set")
	}
	got := p.Literals()
	if len(got) != 2 || got[0] != "foo" || got[1] != "bar" {
		t.Errorf("Literals() = %q, want %q", got, lits)
	}
}
