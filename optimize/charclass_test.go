package optimize

import (
	"testing"

	"github.com/coregx/regexvm/bytecode"
)

func classPairs(t *testing.T, pairs []bytecode.ComparePair) (*bytecode.Program, []bytecode.ComparePair) {
	t.Helper()
	p := bytecode.New(0)
	AppendCharacterClass(p, pairs)
	in := p.InstAt(0)
	if in.Op != bytecode.OpCompare || in.Size != p.Len() {
		t.Fatalf("expected a single Compare instruction\n%s", bytecode.Dump(p))
	}
	return p, p.FlatPairs(in)
}

func TestAppendCharacterClassSingleOperand(t *testing.T) {
	_, got := classPairs(t, []bytecode.ComparePair{charPair('a')})
	if len(got) != 1 || got[0] != charPair('a') {
		t.Errorf("single operand not emitted verbatim: %v", got)
	}
}

func TestAppendCharacterClassSingleOperandKeepsValueWord(t *testing.T) {
	// Only the pure control operators are valueless; any other type,
	// including ones the front end never emits here, carries its value
	// word through the single-operand path untouched.
	p := bytecode.New(0)
	AppendCharacterClass(p, []bytecode.ComparePair{
		pair(bytecode.CompareRangeExpressionDummy, 42),
	})
	want := []bytecode.Word{
		bytecode.Word(bytecode.OpCompare), 1, 2,
		bytecode.Word(bytecode.CompareRangeExpressionDummy), 42,
	}
	sameWords(t, p, want)
}

func TestAppendCharacterClassBuildsLookupTable(t *testing.T) {
	// [C3-9AB]: the chars coalesce into A-C and everything lands in one
	// sorted lookup table.
	p, got := classPairs(t, []bytecode.ComparePair{
		charPair('C'),
		rangePair('3', '9'),
		charPair('A'),
		charPair('B'),
	})

	want := []bytecode.ComparePair{rangePair('3', '9'), rangePair('A', 'C')}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("flattened pairs = %v, want %v", got, want)
	}

	// Uppercase bounds shift under ASCII lowering, so the table carries
	// an insensitive shadow.
	if p.Word(3) != bytecode.Word(bytecode.CompareLookupTable) {
		t.Fatalf("expected a lookup table operand\n%s", bytecode.Dump(p))
	}
	if p.Word(4) != 2 || p.Word(5) != 2 {
		t.Errorf("table counts = %d sensitive, %d insensitive, want 2 and 2\n%s",
			p.Word(4), p.Word(5), bytecode.Dump(p))
	}
}

func TestAppendCharacterClassNoShadowWhenAlreadyLower(t *testing.T) {
	p, got := classPairs(t, []bytecode.ComparePair{
		rangePair('a', 'c'),
		rangePair('3', '9'),
	})
	if len(got) != 2 {
		t.Fatalf("flattened pairs = %v", got)
	}
	if p.Word(5) != 0 {
		t.Errorf("insensitive count = %d, want 0: lowering moves no bound\n%s",
			p.Word(5), bytecode.Dump(p))
	}
}

func TestAppendCharacterClassTemporaryInverse(t *testing.T) {
	// [^a]b in operand form: the inverted char goes to its own table
	// behind a TemporaryInverse, the plain char to the regular one.
	_, got := classPairs(t, []bytecode.ComparePair{
		pair(bytecode.CompareTemporaryInverse, 0),
		charPair('a'),
		charPair('b'),
	})
	want := []bytecode.ComparePair{
		rangePair('b', 'b'),
		pair(bytecode.CompareTemporaryInverse, 0),
		rangePair('a', 'a'),
	}
	if len(got) != len(want) {
		t.Fatalf("flattened pairs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pair %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAppendCharacterClassPermanentInverseFlushes(t *testing.T) {
	_, got := classPairs(t, []bytecode.ComparePair{
		charPair('a'),
		pair(bytecode.CompareInverse, 0),
		charPair('b'),
	})
	want := []bytecode.ComparePair{
		rangePair('a', 'a'),
		pair(bytecode.CompareInverse, 0),
		rangePair('b', 'b'),
	}
	if len(got) != len(want) {
		t.Fatalf("flattened pairs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pair %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAppendCharacterClassAnyCharDropsTables(t *testing.T) {
	_, got := classPairs(t, []bytecode.ComparePair{
		charPair('a'),
		pair(bytecode.CompareAnyChar, 0),
	})
	if len(got) != 1 || got[0].Type != bytecode.CompareAnyChar {
		t.Errorf("flattened pairs = %v, want just AnyChar", got)
	}
}

func TestAppendCharacterClassKeepsClassOperands(t *testing.T) {
	_, got := classPairs(t, []bytecode.ComparePair{
		pair(bytecode.CompareCharClass, bytecode.Word(bytecode.ClassDigit)),
		charPair('a'),
	})
	want := []bytecode.ComparePair{
		pair(bytecode.CompareCharClass, bytecode.Word(bytecode.ClassDigit)),
		rangePair('a', 'a'),
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("flattened pairs = %v, want %v", got, want)
	}
}
