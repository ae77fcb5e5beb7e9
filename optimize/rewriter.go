package optimize

import (
	"fmt"
	"sort"

	"github.com/coregx/regexvm/bytecode"
	"github.com/coregx/regexvm/internal/conv"
)

// Edit replaces the instructions in [Start, End) with Repl. Start and
// End must fall on instruction boundaries. Repl is emitted verbatim:
// any jump inside it must already be encoded relative to its position
// in the rewritten program.
type Edit struct {
	Start int
	End   int
	Repl  []bytecode.Word
}

// rewriter rebuilds a program around a set of edits, rebasing every
// surviving jump onto the new addresses. A jump whose source or target
// lands inside a replaced region (other than at its start) has no
// defined destination anymore; that is a bug in the pass that produced
// the edits, and the rewriter panics with a disassembly.
type rewriter struct {
	src   *bytecode.Program
	insts []bytecode.Inst
}

func newRewriter(p *bytecode.Program) *rewriter {
	r := &rewriter{src: p}
	for ip := 0; ip < p.Len(); {
		in := p.InstAt(ip)
		r.insts = append(r.insts, in)
		ip += in.Size
	}
	return r
}

// rewrite applies the edits and returns the rebuilt program. Edits must
// not overlap; they are applied in address order. An empty edit list
// returns an identical copy.
func (r *rewriter) rewrite(edits []Edit) *bytecode.Program {
	sort.Slice(edits, func(i, j int) bool { return edits[i].Start < edits[j].Start })
	for i := 1; i < len(edits); i++ {
		if edits[i].Start < edits[i-1].End {
			panic(fmt.Sprintf("optimize: overlapping edits at %d and %d\n%s",
				edits[i-1].Start, edits[i].Start, bytecode.Dump(r.src)))
		}
	}

	newIP := make(map[int]int, len(r.insts)+1)
	replaced := make(map[int]bool)
	out := make([]bytecode.Word, 0, r.src.Len())

	next := 0
	for _, in := range r.insts {
		if next < len(edits) && in.IP == edits[next].Start {
			// The replaced region keeps a single address: jumps to its
			// start land on the replacement, jumps into its interior
			// are invalid.
			newIP[in.IP] = len(out)
			out = append(out, edits[next].Repl...)
			next++
		}
		if next > 0 && in.IP >= edits[next-1].Start && in.IP < edits[next-1].End {
			replaced[in.IP] = true
			continue
		}
		newIP[in.IP] = len(out)
		out = append(out, r.src.Words()[in.IP:in.IP+in.Size]...)
	}
	if next < len(edits) {
		panic(fmt.Sprintf("optimize: edit start %d is not an instruction boundary\n%s",
			edits[next].Start, bytecode.Dump(r.src)))
	}
	newIP[r.src.Len()] = len(out)

	r.relocate(out, newIP, replaced)
	return r.rebuilt(out)
}

// rewriteEach rebuilds the program one instruction at a time. For every
// instruction, repl either appends a replacement to out and returns
// true, or returns false to keep the instruction unchanged. Returning
// true with nothing appended deletes the instruction.
func (r *rewriter) rewriteEach(repl func(in bytecode.Inst, out *[]bytecode.Word) bool) *bytecode.Program {
	newIP := make(map[int]int, len(r.insts)+1)
	replaced := make(map[int]bool)
	out := make([]bytecode.Word, 0, r.src.Len())

	for _, in := range r.insts {
		newIP[in.IP] = len(out)
		if repl(in, &out) {
			replaced[in.IP] = true
		} else {
			out = append(out, r.src.Words()[in.IP:in.IP+in.Size]...)
		}
	}
	newIP[r.src.Len()] = len(out)

	r.relocate(out, newIP, replaced)
	return r.rebuilt(out)
}

// relocate rewrites the jump operand of every surviving instruction.
// Replaced instructions are skipped; replacement contents were emitted
// in final-address form.
func (r *rewriter) relocate(out []bytecode.Word, newIP map[int]int, replaced map[int]bool) {
	for _, in := range r.insts {
		if !in.Op.HasJump() || replaced[in.IP] {
			continue
		}
		oldTarget := r.src.JumpTarget(in)
		newSource := newIP[in.IP]
		newTarget, ok := newIP[oldTarget]
		if !ok {
			panic(fmt.Sprintf("optimize: jump at %d targets removed address %d\n%s",
				in.IP, oldTarget, bytecode.Dump(r.src)))
		}
		if in.Op.JumpIsBackward() {
			out[newSource+1] = bytecode.Word(conv.IntToWord(newSource - newTarget))
		} else {
			out[newSource+1] = bytecode.Word(conv.OffsetToWord(newTarget - (newSource + in.Size)))
		}
	}
}

func (r *rewriter) rebuilt(words []bytecode.Word) *bytecode.Program {
	p := bytecode.NewFromWords(words, r.src.Strings())
	p.SetCaptureCount(r.src.CaptureCount())
	return p
}
