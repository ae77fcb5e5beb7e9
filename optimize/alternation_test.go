package optimize

import (
	"testing"

	"github.com/coregx/regexvm/bytecode"
)

// walkProgram decodes every instruction and checks that each jump lands
// on a decoded boundary inside the program (or its end).
func walkProgram(t *testing.T, p *bytecode.Program) {
	t.Helper()
	boundaries := map[int]bool{p.Len(): true}
	for ip := 0; ip < p.Len(); {
		in := p.InstAt(ip)
		if !in.Op.Valid() {
			t.Fatalf("invalid opcode at %d\n%s", ip, bytecode.Dump(p))
		}
		boundaries[ip] = true
		ip += in.Size
	}
	for ip := 0; ip < p.Len(); {
		in := p.InstAt(ip)
		if in.Op.HasJump() {
			target := p.JumpTarget(in)
			if !boundaries[target] {
				t.Fatalf("jump at %d targets %d, not an instruction boundary\n%s",
					ip, target, bytecode.Dump(p))
			}
		}
		ip += in.Size
	}
}

// countCharCompares counts the compares matching exactly ch.
func countCharCompares(p *bytecode.Program, ch rune) int {
	n := 0
	for ip := 0; ip < p.Len(); {
		in := p.InstAt(ip)
		if in.Op == bytecode.OpCompare || in.Op == bytecode.OpCompareSimple {
			pairs := p.FlatPairs(in)
			if len(pairs) == 1 && pairs[0].Type == bytecode.CompareChar && rune(uint32(pairs[0].Value)) == ch {
				n++
			}
		}
		ip += in.Size
	}
	return n
}

func charProgram(chars ...rune) *bytecode.Program {
	p := bytecode.New(0)
	for _, ch := range chars {
		p.AppendCompareChar(ch)
	}
	return p
}

func TestAppendAlternationSingle(t *testing.T) {
	target := bytecode.New(0)
	AppendAlternation(target, charProgram('a'))

	in := target.InstAt(0)
	if in.Op != bytecode.OpCompare || target.Len() != in.Size {
		t.Errorf("single alternative not appended verbatim\n%s", bytecode.Dump(target))
	}
}

func TestAppendAlternationAllEmpty(t *testing.T) {
	target := bytecode.New(0)
	AppendAlternation(target, bytecode.New(0), bytecode.New(0))
	if target.Len() != 0 {
		t.Errorf("empty alternation emitted %d words\n%s", target.Len(), bytecode.Dump(target))
	}
}

func TestAppendAlternationChain(t *testing.T) {
	target := bytecode.New(0)
	AppendAlternation(target, charProgram('a'), charProgram('b'))
	walkProgram(t, target)

	// No shared prefix, so the chain layout wins: one fork trying the
	// first alternative, the second as fallthrough.
	fork := target.InstAt(0)
	if fork.Op != bytecode.OpForkJump {
		t.Fatalf("chain does not start with ForkJump\n%s", bytecode.Dump(target))
	}
	forked := target.InstAt(target.JumpTarget(fork))
	if pairs := target.FlatPairs(forked); len(pairs) != 1 || pairs[0].Value != 'a' {
		t.Errorf("fork does not target the first alternative\n%s", bytecode.Dump(target))
	}
	fallthru := target.InstAt(fork.Size)
	if pairs := target.FlatPairs(fallthru); len(pairs) != 1 || pairs[0].Value != 'b' {
		t.Errorf("fallthrough is not the second alternative\n%s", bytecode.Dump(target))
	}
}

func TestAppendAlternationTrieSharesPrefix(t *testing.T) {
	target := bytecode.New(0)
	AppendAlternation(target, charProgram('a', 'b'), charProgram('a', 'c'))
	walkProgram(t, target)

	if n := countCharCompares(target, 'a'); n != 1 {
		t.Errorf("shared prefix emitted %d times, want 1\n%s", n, bytecode.Dump(target))
	}
	if countCharCompares(target, 'b') != 1 || countCharCompares(target, 'c') != 1 {
		t.Errorf("alternative tails lost\n%s", bytecode.Dump(target))
	}
}

func TestAppendAlternationKeepsDeclaredOrder(t *testing.T) {
	// Collapsing the shared "a" of the first and third alternatives
	// would try "ac" before the [a-z] alternative declared between
	// them, and both can match at the same position, so the chain
	// layout must be chosen even though a prefix is shared.
	lower := bytecode.New(0)
	lower.AppendComparePairs(1, []bytecode.Word{
		bytecode.Word(bytecode.CompareCharRange),
		bytecode.PackRange(bytecode.CharRange{From: 'a', To: 'z'}),
	})

	target := bytecode.New(0)
	AppendAlternation(target,
		charProgram('a', 'b'),
		lower,
		charProgram('a', 'c'))
	walkProgram(t, target)

	if n := countCharCompares(target, 'a'); n != 2 {
		t.Errorf("compare 'a' emitted %d times, want 2 (chain layout)\n%s", n, bytecode.Dump(target))
	}
}

func TestAppendAlternationAnchoredForkIf(t *testing.T) {
	anchored := bytecode.New(0)
	anchored.Append(bytecode.Word(bytecode.OpCheckBegin))
	anchored.AppendCompareChar('a')

	target := bytecode.New(0)
	AppendAlternation(target, anchored, charProgram('b'))
	walkProgram(t, target)

	fork := target.InstAt(0)
	if fork.Op != bytecode.OpForkIf {
		t.Fatalf("anchored alternative forked with %v, want ForkIf\n%s", fork.Op, bytecode.Dump(target))
	}
	if target.Word(3) != bytecode.Word(bytecode.ForkIfAtStartOfLine) {
		t.Errorf("ForkIf condition = %d, want AtStartOfLine", target.Word(3))
	}
}

func TestAppendAlternationMergesStrings(t *testing.T) {
	alt0 := bytecode.New(0)
	alt0.AppendCompareString("foo")
	alt1 := bytecode.New(0)
	alt1.AppendCompareString("bar")

	target := bytecode.New(0)
	AppendAlternation(target, alt0, alt1)
	walkProgram(t, target)

	var got []string
	for ip := 0; ip < target.Len(); {
		in := target.InstAt(ip)
		if in.Op == bytecode.OpCompare {
			for _, pair := range target.FlatPairs(in) {
				if pair.Type == bytecode.CompareString {
					got = append(got, target.StringAt(int(uint32(pair.Value))))
				}
			}
		}
		ip += in.Size
	}
	if len(got) != 2 || got[0] == got[1] {
		t.Fatalf("string operands = %q, want foo and bar", got)
	}
	for _, s := range got {
		if s != "foo" && s != "bar" {
			t.Errorf("unexpected string operand %q", s)
		}
	}
}
