// Package optimize rewrites a compiled bytecode program into a
// semantically equivalent, faster program. It contains the fixed
// pipeline of peephole passes run after code generation, plus the
// alternation and character-class compilers the code generator calls
// while building bytecode.
//
// Every rewrite must preserve the matched language for all inputs; a
// pass that cannot prove this leaves the program unchanged. Expected
// "cannot optimize this" outcomes are not errors. Internal-consistency
// violations (a jump into the middle of an instruction, malformed edit
// lists) are upstream bugs and panic with the offending program's
// disassembly attached.
package optimize

import (
	"sort"

	"github.com/coregx/regexvm/bytecode"
	"github.com/coregx/regexvm/internal/uniprop"
)

// rangeSet is an ordered set of code point intervals, kept sorted by
// interval start. Entries may overlap; queries account for that.
type rangeSet []bytecode.CharRange

func (s *rangeSet) insert(from, to rune) {
	set := *s
	i := sort.Search(len(set), func(i int) bool { return set[i].From >= from })
	set = append(set, bytecode.CharRange{})
	copy(set[i+1:], set[i:])
	set[i] = bytecode.CharRange{From: from, To: to}
	*s = set
}

// intersects reports whether any interval in the set overlaps
// [from, to].
func (s rangeSet) intersects(from, to rune) bool {
	// An overlapping interval must start at or before the probe's end.
	// Interval ends are not ordered, so every earlier candidate has to
	// be checked; the sets involved stay small in practice.
	i := sort.Search(len(s), func(i int) bool { return s[i].From > to })
	for j := i - 1; j >= 0; j-- {
		if s[j].To >= from {
			return true
		}
	}
	return false
}

// interpretedCompares is the normalized form of a statically
// interpreted compare sequence: matched and negated range sets, matched
// and negated character classes, and the Unicode predicate sets.
type interpretedCompares struct {
	ranges        rangeSet
	negatedRanges rangeSet

	classes        map[bytecode.CharClass]struct{}
	negatedClasses map[bytecode.CharClass]struct{}

	hasUnicodeProperty bool

	categories        map[uniprop.GeneralCategory]struct{}
	properties        map[uniprop.Property]struct{}
	scripts           map[uniprop.Script]struct{}
	scriptExtensions  map[uniprop.Script]struct{}
	negatedCategories map[uniprop.GeneralCategory]struct{}
	negatedProperties map[uniprop.Property]struct{}
	negatedScripts    map[uniprop.Script]struct{}
	negatedScriptExts map[uniprop.Script]struct{}
}

func newInterpretedCompares() *interpretedCompares {
	return &interpretedCompares{
		classes:           make(map[bytecode.CharClass]struct{}),
		negatedClasses:    make(map[bytecode.CharClass]struct{}),
		categories:        make(map[uniprop.GeneralCategory]struct{}),
		properties:        make(map[uniprop.Property]struct{}),
		scripts:           make(map[uniprop.Script]struct{}),
		scriptExtensions:  make(map[uniprop.Script]struct{}),
		negatedCategories: make(map[uniprop.GeneralCategory]struct{}),
		negatedProperties: make(map[uniprop.Property]struct{}),
		negatedScripts:    make(map[uniprop.Script]struct{}),
		negatedScriptExts: make(map[uniprop.Script]struct{}),
	}
}

func (c *interpretedCompares) hasClasses() bool {
	return len(c.classes) > 0 || len(c.negatedClasses) > 0
}

func (c *interpretedCompares) hasUnicodeSets() bool {
	return len(c.categories) > 0 || len(c.properties) > 0 ||
		len(c.scripts) > 0 || len(c.scriptExtensions) > 0 ||
		len(c.negatedCategories) > 0 || len(c.negatedProperties) > 0 ||
		len(c.negatedScripts) > 0 || len(c.negatedScriptExts) > 0
}

// interpretCompares files each concrete operand of pairs into the
// matched or negated bucket of out, tracking the Inverse and
// TemporaryInverse flags. Returns false when the sequence contains a
// construct that cannot be reasoned about statically: an uninverted
// AnyChar, a string (unless asFollow allows reading its first code
// point), a string set, a pre-flattened lookup table, or And/Subtract
// set algebra. Reference operands are ignored; callers resolve them
// before interpretation.
func interpretCompares(p *bytecode.Program, pairs []bytecode.ComparePair, out *interpretedCompares, asFollow bool) bool {
	inverse := false
	temporaryInverse := false
	resetTemporaryInverse := false

	inverted := func() bool { return inverse != temporaryInverse }

	for _, pair := range pairs {
		if resetTemporaryInverse {
			resetTemporaryInverse = false
			temporaryInverse = false
		} else {
			resetTemporaryInverse = true
		}

		switch pair.Type {
		case bytecode.CompareInverse:
			inverse = !inverse
		case bytecode.CompareTemporaryInverse:
			temporaryInverse = true
			resetTemporaryInverse = false
		case bytecode.CompareAnyChar:
			// Uninverted AnyChar swallows everything; nothing useful
			// can be derived past it.
			if !inverted() {
				return false
			}
		case bytecode.CompareChar:
			ch := rune(uint32(pair.Value))
			if !inverted() {
				out.ranges.insert(ch, ch)
			} else {
				out.negatedRanges.insert(ch, ch)
			}
		case bytecode.CompareString:
			if !asFollow {
				return false
			}
			ch := p.FirstCodePoint(int(pair.Value))
			if !inverted() {
				out.ranges.insert(ch, ch)
			} else {
				out.negatedRanges.insert(ch, ch)
			}
		case bytecode.CompareStringSet:
			return false
		case bytecode.CompareCharClass:
			if !inverted() {
				out.classes[bytecode.CharClass(pair.Value)] = struct{}{}
			} else {
				out.negatedClasses[bytecode.CharClass(pair.Value)] = struct{}{}
			}
		case bytecode.CompareCharRange:
			r := bytecode.UnpackRange(pair.Value)
			if !inverted() {
				out.ranges.insert(r.From, r.To)
			} else {
				out.negatedRanges.insert(r.From, r.To)
			}
		case bytecode.CompareLookupTable:
			// FlatPairs expands tables into ranges; a surviving one
			// means the caller handed us raw operands.
			return false
		case bytecode.CompareReference, bytecode.CompareNamedReference:
			// Handled by the caller before interpretation.
		case bytecode.CompareProperty:
			out.hasUnicodeProperty = true
			if !inverted() {
				out.properties[uniprop.Property(pair.Value)] = struct{}{}
			} else {
				out.negatedProperties[uniprop.Property(pair.Value)] = struct{}{}
			}
		case bytecode.CompareGeneralCategory:
			out.hasUnicodeProperty = true
			if !inverted() {
				out.categories[uniprop.GeneralCategory(pair.Value)] = struct{}{}
			} else {
				out.negatedCategories[uniprop.GeneralCategory(pair.Value)] = struct{}{}
			}
		case bytecode.CompareScript:
			out.hasUnicodeProperty = true
			if !inverted() {
				out.scripts[uniprop.Script(pair.Value)] = struct{}{}
			} else {
				out.negatedScripts[uniprop.Script(pair.Value)] = struct{}{}
			}
		case bytecode.CompareScriptExtension:
			out.hasUnicodeProperty = true
			if !inverted() {
				out.scriptExtensions[uniprop.Script(pair.Value)] = struct{}{}
			} else {
				out.negatedScriptExts[uniprop.Script(pair.Value)] = struct{}{}
			}
		case bytecode.CompareOr, bytecode.CompareEndAndOr:
			// Disjunction is the default combining rule for a compare
			// list, so these carry no information here.
		case bytecode.CompareAnd, bytecode.CompareSubtract:
			// Unsupported set algebra.
			return false
		default:
			panic("optimize: invalid compare operand " + pair.Type.String() + "\n" + bytecode.Dump(p))
		}
	}

	return true
}

// anyUnicodePredicateMatches reports whether cp satisfies the
// interpreted Unicode predicate sets: rejected by any negated set, then
// accepted by any positive set.
func (c *interpretedCompares) anyUnicodePredicateMatches(cp rune) bool {
	for gc := range c.negatedCategories {
		if uniprop.CategoryContains(gc, cp) {
			return false
		}
	}
	for prop := range c.negatedProperties {
		if uniprop.PropertyContains(prop, cp) {
			return false
		}
	}
	for s := range c.negatedScripts {
		if uniprop.ScriptContains(s, cp) {
			return false
		}
	}
	for s := range c.negatedScriptExts {
		if uniprop.ScriptExtensionContains(s, cp) {
			return false
		}
	}

	for gc := range c.categories {
		if uniprop.CategoryContains(gc, cp) {
			return true
		}
	}
	for prop := range c.properties {
		if uniprop.PropertyContains(prop, cp) {
			return true
		}
	}
	for s := range c.scripts {
		if uniprop.ScriptContains(s, cp) {
			return true
		}
	}
	for s := range c.scriptExtensions {
		if uniprop.ScriptExtensionContains(s, cp) {
			return true
		}
	}
	return false
}

// rangeOverlaps reports whether [from, to] can match against the
// interpreted left-hand sets.
func (c *interpretedCompares) rangeOverlaps(from, to rune) bool {
	if c.ranges.intersects(from, to) {
		return true
	}
	if c.hasUnicodeProperty {
		// Checking every code point of a real range against property
		// tables is not worth it; assume a match.
		return from != to || c.anyUnicodePredicateMatches(from)
	}
	return false
}

// maxClassProbeSpan bounds how many code points of the left-hand ranges
// a class membership probe will walk before giving up.
const maxClassProbeSpan = 1024

// classOverlaps reports whether members of class can match against the
// interpreted left-hand sets. The second return is false when
// membership cannot be decided; the caller must then assume overlap. A
// fabricated membership answer is not an option here: under an
// inversion flag it would flip into "no overlap".
func (c *interpretedCompares) classOverlaps(class bytecode.CharClass) (contains, ok bool) {
	if _, hit := c.classes[class]; hit {
		return true, true
	}
	if _, hit := c.negatedClasses[class]; hit {
		return false, true
	}
	if c.hasUnicodeProperty || len(c.negatedRanges) > 0 {
		return false, false
	}

	span := 0
	for _, r := range c.ranges {
		span += int(r.To-r.From) + 1
		if span > maxClassProbeSpan {
			return false, false
		}
		for cp := r.From; cp <= r.To; cp++ {
			if uniprop.ClassContains(class, cp) {
				return true, true
			}
		}
	}
	return false, true
}

// disjunctionState accumulates match evidence inside one Or...EndAndOr
// region; its contribution is only resolved at the matching EndAndOr.
type disjunctionState struct {
	inOr             bool
	matchedInOr      bool
	inverseMatchedIn bool
}

// hasOverlap reports whether the rhs compare sequence can ever match a
// code point the lhs sequence matches. The conservative default on any
// construct that cannot be reasoned about is true ("definitely
// overlaps").
func hasOverlap(p *bytecode.Program, lhs, rhs []bytecode.ComparePair) bool {
	compares := newInterpretedCompares()
	if !interpretCompares(p, lhs, compares, false) {
		return true
	}

	inverse := false
	temporaryInverse := false
	resetTemporaryInverse := false
	inverted := func() bool { return inverse != temporaryInverse }

	stack := []disjunctionState{{}}
	top := func() *disjunctionState { return &stack[len(stack)-1] }

	for _, pair := range rhs {
		if resetTemporaryInverse {
			resetTemporaryInverse = false
			temporaryInverse = false
		} else {
			resetTemporaryInverse = true
		}

		switch pair.Type {
		case bytecode.CompareInverse:
			inverse = !inverse
		case bytecode.CompareTemporaryInverse:
			temporaryInverse = true
			resetTemporaryInverse = false
		case bytecode.CompareAnyChar:
			if !top().inOr && !inverted() {
				return true
			}
			if top().inOr {
				top().matchedInOr = true
				top().inverseMatchedIn = false
			}
		case bytecode.CompareChar:
			ch := rune(uint32(pair.Value))
			matched := compares.rangeOverlaps(ch, ch)
			if !top().inOr && (inverted() != matched) {
				return true
			}
			if top().inOr {
				top().matchedInOr = top().matchedInOr || matched
				top().inverseMatchedIn = top().inverseMatchedIn || !matched
			}
		case bytecode.CompareString, bytecode.CompareStringSet:
			// Only the first code point is known here; bail out to
			// avoid false negatives.
			return true
		case bytecode.CompareCharClass:
			contains, decided := compares.classOverlaps(bytecode.CharClass(pair.Value))
			if !decided {
				return true
			}
			if !top().inOr && (inverted() != contains) {
				return true
			}
			if top().inOr {
				top().matchedInOr = top().matchedInOr || contains
				top().inverseMatchedIn = top().inverseMatchedIn || !contains
			}
		case bytecode.CompareCharRange:
			r := bytecode.UnpackRange(pair.Value)
			contains := compares.rangeOverlaps(r.From, r.To)
			if !top().inOr && (inverted() != contains) {
				return true
			}
			if top().inOr {
				top().matchedInOr = top().matchedInOr || contains
				top().inverseMatchedIn = top().inverseMatchedIn || !contains
			}
		case bytecode.CompareLookupTable:
			return true
		case bytecode.CompareReference, bytecode.CompareNamedReference:
			// Handled by the caller before interpretation.
		case bytecode.CompareProperty:
			if len(compares.ranges) > 0 || len(compares.negatedRanges) > 0 || compares.hasClasses() {
				return true
			}
			if compares.hasUnicodeProperty && len(compares.properties) > 0 && len(compares.negatedProperties) > 0 {
				_, contains := compares.properties[uniprop.Property(pair.Value)]
				if !top().inOr && (inverted() != contains) {
					return true
				}
				_, inverseContains := compares.negatedProperties[uniprop.Property(pair.Value)]
				if !top().inOr && (inverted() == inverseContains) {
					return true
				}
				if top().inOr {
					top().matchedInOr = top().matchedInOr || contains
					top().inverseMatchedIn = top().inverseMatchedIn || inverseContains
				}
			}
		case bytecode.CompareGeneralCategory:
			if len(compares.ranges) > 0 || len(compares.negatedRanges) > 0 || compares.hasClasses() {
				return true
			}
			if compares.hasUnicodeProperty && len(compares.categories) > 0 && len(compares.negatedCategories) > 0 {
				_, contains := compares.categories[uniprop.GeneralCategory(pair.Value)]
				if !top().inOr && (inverted() != contains) {
					return true
				}
				_, inverseContains := compares.negatedCategories[uniprop.GeneralCategory(pair.Value)]
				if !top().inOr && (inverted() == inverseContains) {
					return true
				}
				if top().inOr {
					top().matchedInOr = top().matchedInOr || contains
					top().inverseMatchedIn = top().inverseMatchedIn || inverseContains
				}
			}
		case bytecode.CompareScript:
			if len(compares.ranges) > 0 || len(compares.negatedRanges) > 0 || compares.hasClasses() {
				return true
			}
			if compares.hasUnicodeProperty && len(compares.scripts) > 0 && len(compares.negatedScripts) > 0 {
				_, contains := compares.scripts[uniprop.Script(pair.Value)]
				if !top().inOr && (inverted() != contains) {
					return true
				}
				_, inverseContains := compares.negatedScripts[uniprop.Script(pair.Value)]
				if !top().inOr && (inverted() == inverseContains) {
					return true
				}
				if top().inOr {
					top().matchedInOr = top().matchedInOr || contains
					top().inverseMatchedIn = top().inverseMatchedIn || inverseContains
				}
			}
		case bytecode.CompareScriptExtension:
			if len(compares.ranges) > 0 || len(compares.negatedRanges) > 0 || compares.hasClasses() {
				return true
			}
			if compares.hasUnicodeProperty && len(compares.scriptExtensions) > 0 && len(compares.negatedScriptExts) > 0 {
				_, contains := compares.scriptExtensions[uniprop.Script(pair.Value)]
				if !top().inOr && (inverted() != contains) {
					return true
				}
				_, inverseContains := compares.negatedScriptExts[uniprop.Script(pair.Value)]
				if !top().inOr && (inverted() == inverseContains) {
					return true
				}
				if top().inOr {
					top().matchedInOr = top().matchedInOr || contains
					top().inverseMatchedIn = top().inverseMatchedIn || inverseContains
				}
			}
		case bytecode.CompareOr:
			stack = append(stack, disjunctionState{inOr: true})
		case bytecode.CompareEndAndOr:
			if !top().inOr {
				panic("optimize: EndAndOr without matching Or\n" + bytecode.Dump(p))
			}
			state := *top()
			stack = stack[:len(stack)-1]
			if inverted() {
				if !state.inverseMatchedIn {
					return true
				}
			} else if state.matchedInOr {
				return true
			}
		case bytecode.CompareAnd, bytecode.CompareSubtract:
			return true
		default:
			panic("optimize: invalid compare operand " + pair.Type.String() + "\n" + bytecode.Dump(p))
		}
	}

	// An inverse flag left on at the end would match everything.
	return inverted()
}

// hasOverlapSets is a cheap overlap test on two already interpreted
// sequences, used by the alternation trie's order legality check. Any
// negation or Unicode predicate content forces the conservative answer.
func hasOverlapSets(lhs, rhs *interpretedCompares) bool {
	if lhs.hasUnicodeProperty || rhs.hasUnicodeProperty ||
		len(lhs.negatedRanges) > 0 || len(rhs.negatedRanges) > 0 ||
		len(lhs.negatedClasses) > 0 || len(rhs.negatedClasses) > 0 {
		return true
	}

	for _, r := range rhs.ranges {
		if lhs.ranges.intersects(r.From, r.To) {
			return true
		}
	}
	for class := range lhs.classes {
		if _, ok := rhs.classes[class]; ok {
			return true
		}
	}
	return false
}
