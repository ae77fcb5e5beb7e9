package bytecode

import (
	"strings"
	"testing"
)

func TestInstAtWidths(t *testing.T) {
	p := New(0)
	p.AppendCompareChar('a')                     // 5 words
	p.AppendJump(OpForkStay, 3)                  // 2 words
	p.Append(Word(OpJumpNonEmpty), 2, 0, Word(OpForkJump)) // 4 words
	p.Append(Word(OpCompareSimple), 2, Word(CompareChar), 'b')
	p.Append(Word(OpCheckBegin))

	want := []struct {
		ip   int
		op   OpCode
		size int
	}{
		{0, OpCompare, 5},
		{5, OpForkStay, 2},
		{7, OpJumpNonEmpty, 4},
		{11, OpCompareSimple, 4},
		{15, OpCheckBegin, 1},
	}
	for _, w := range want {
		in := p.InstAt(w.ip)
		if in.Op != w.op || in.Size != w.size {
			t.Errorf("InstAt(%d) = %v size %d, want %v size %d", w.ip, in.Op, in.Size, w.op, w.size)
		}
	}

	// Past the end decodes as Exit.
	if in := p.InstAt(p.Len()); in.Op != OpExit || in.Size != 1 {
		t.Errorf("InstAt(end) = %v size %d, want Exit size 1", in.Op, in.Size)
	}
}

func TestJumpTargets(t *testing.T) {
	p := New(0)
	p.AppendJump(OpJump, 3)    // 0: target 2+3 = 5
	p.AppendJump(OpForkJump, -2) // 2: target 4-2 = 2
	p.Append(Word(OpRepeat), 4, 1, 0) // 4: backward, target 4-4 = 0

	if got := p.JumpTarget(p.InstAt(0)); got != 5 {
		t.Errorf("forward jump target = %d, want 5", got)
	}
	if got := p.JumpTarget(p.InstAt(2)); got != 2 {
		t.Errorf("negative forward jump target = %d, want 2", got)
	}
	if got := p.JumpTarget(p.InstAt(4)); got != 0 {
		t.Errorf("repeat target = %d, want 0", got)
	}
}

func TestFlatPairsLookupTable(t *testing.T) {
	// Compare with one LookupTable operand: two sensitive ranges and
	// one insensitive shadow range that must be skipped.
	p := New(0)
	p.AppendComparePairs(1, []Word{
		Word(CompareLookupTable), 2, 1,
		PackRange(CharRange{From: 'A', To: 'C'}),
		PackRange(CharRange{From: '3', To: '9'}),
		PackRange(CharRange{From: 'a', To: 'c'}),
	})

	pairs := p.FlatPairs(p.InstAt(0))
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs, want 2: %v", len(pairs), pairs)
	}
	for i, want := range []CharRange{{'A', 'C'}, {'3', '9'}} {
		if pairs[i].Type != CompareCharRange {
			t.Errorf("pair %d type = %v, want CharRange", i, pairs[i].Type)
		}
		if got := UnpackRange(pairs[i].Value); got != want {
			t.Errorf("pair %d = %q-%q, want %q-%q", i, got.From, got.To, want.From, want.To)
		}
	}
}

func TestFlatPairsMixedOperands(t *testing.T) {
	p := New(0)
	p.AppendComparePairs(3, []Word{
		Word(CompareInverse),
		Word(CompareChar), 'x',
		Word(CompareCharClass), Word(ClassDigit),
	})

	pairs := p.FlatPairs(p.InstAt(0))
	want := []ComparePair{
		{CompareInverse, 0},
		{CompareChar, 'x'},
		{CompareCharClass, Word(ClassDigit)},
	}
	if len(pairs) != len(want) {
		t.Fatalf("got %d pairs, want %d", len(pairs), len(want))
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pair %d = %v, want %v", i, pairs[i], want[i])
		}
	}
}

func TestAppendProgramRemapsStrings(t *testing.T) {
	a := New(0)
	a.AppendCompareString("left")

	b := New(0)
	b.AppendCompareString("middle")
	b.AppendCompareString("left") // dedup against a's table

	a.AppendProgram(b)

	var got []string
	for ip := 0; ip < a.Len(); {
		in := a.InstAt(ip)
		pairs := a.FlatPairs(in)
		if len(pairs) != 1 || pairs[0].Type != CompareString {
			t.Fatalf("unexpected instruction at %d: %s", ip, Dump(a))
		}
		got = append(got, a.StringAt(int(pairs[0].Value)))
		ip += in.Size
	}

	want := []string{"left", "middle", "left"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("string %d = %q, want %q", i, got[i], want[i])
		}
	}
	if len(a.Strings()) != 2 {
		t.Errorf("string table has %d entries, want 2 (deduplicated)", len(a.Strings()))
	}
}

func TestMergeStringsFrom(t *testing.T) {
	dst := New(0)
	dst.AppendCompareString("one")

	src := New(0)
	src.AppendCompareString("two")
	src.AppendCompareString("one")

	dst.MergeStringsFrom(src)

	// src's operands now index dst's table and can be appended raw.
	dst.Append(src.Words()...)

	in := dst.InstAt(5) // first instruction copied from src
	pairs := dst.FlatPairs(in)
	if got := dst.StringAt(int(pairs[0].Value)); got != "two" {
		t.Errorf("remapped operand resolves to %q, want %q", got, "two")
	}
	in = dst.InstAt(10)
	pairs = dst.FlatPairs(in)
	if got := dst.StringAt(int(pairs[0].Value)); got != "one" {
		t.Errorf("remapped operand resolves to %q, want %q", got, "one")
	}
}

func TestDumpSmoke(t *testing.T) {
	p := New(0)
	p.AppendCompareChar('a')
	p.AppendJump(OpForkStay, -7)
	p.Append(Word(OpCheckEnd))

	dump := Dump(p)
	for _, want := range []string{"Compare", "ForkStay", "CheckEnd"} {
		if !strings.Contains(dump, want) {
			t.Errorf("dump missing %q:\n%s", want, dump)
		}
	}
}
