// Package prefilter accelerates match-start discovery with a
// multi-literal scan. When the optimizer proves that every match must
// begin with one of a small set of literals, the matcher can ask the
// prefilter for the next candidate position instead of attempting the
// VM at every offset.
package prefilter

import "github.com/coregx/ahocorasick"

// Candidate is one position where a required literal occurs. Matches
// can only start at Start; End is the first position after the literal.
type Candidate struct {
	Start int
	End   int
}

// Prefilter scans for a set of required starting literals.
type Prefilter struct {
	auto     *ahocorasick.Automaton
	literals []string
}

// New builds a prefilter over the given literals. Returns nil when the
// set is empty, contains an empty or single-byte literal, or the
// automaton cannot be built; a nil Prefilter simply means "scan
// nothing, try every position".
func New(literals []string) *Prefilter {
	if len(literals) == 0 {
		return nil
	}
	builder := ahocorasick.NewBuilder()
	for _, lit := range literals {
		if len(lit) < 2 {
			return nil
		}
		builder.AddPattern([]byte(lit))
	}
	auto, err := builder.Build()
	if err != nil {
		return nil
	}
	return &Prefilter{auto: auto, literals: literals}
}

// Literals returns the literal set the prefilter scans for.
func (p *Prefilter) Literals() []string {
	return p.literals
}

// Next returns the first candidate at or after position at. The second
// return value is false when no literal occurs in the rest of the
// haystack, meaning no match can start there either.
func (p *Prefilter) Next(haystack []byte, at int) (Candidate, bool) {
	m := p.auto.Find(haystack, at)
	if m == nil {
		return Candidate{}, false
	}
	return Candidate{Start: m.Start, End: m.End}, true
}

// Possible reports whether any required literal occurs in haystack.
func (p *Prefilter) Possible(haystack []byte) bool {
	return p.auto.IsMatch(haystack)
}
