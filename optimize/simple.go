package optimize

import "github.com/coregx/regexvm/bytecode"

// demoteToSimpleCompares rewrites every Compare that flattens to exactly
// one self-contained operand into a CompareSimple, which the VM
// dispatches without the operand-list loop. Operands that only make
// sense as modifiers of a list (inversion flags, set algebra,
// disjunction markers) stay in full Compare form.
func demoteToSimpleCompares(p *bytecode.Program, blocks []block) *bytecode.Program {
	eligible := func(in bytecode.Inst) bool {
		if in.Op != bytecode.OpCompare {
			return false
		}
		pairs := p.FlatPairs(in)
		if len(pairs) != 1 {
			return false
		}
		switch pairs[0].Type {
		case bytecode.CompareAnd, bytecode.CompareOr,
			bytecode.CompareInverse, bytecode.CompareTemporaryInverse,
			bytecode.CompareSubtract, bytecode.CompareUndefined:
			return false
		}
		return true
	}

	any := false
	for _, b := range blocks {
		for ip := b.Start; ip <= b.End; {
			in := p.InstAt(ip)
			if eligible(in) {
				any = true
			}
			ip += in.Size
		}
	}
	if !any {
		return p
	}

	return newRewriter(p).rewriteEach(func(in bytecode.Inst, out *[]bytecode.Word) bool {
		if !eligible(in) {
			return false
		}
		// Keep the raw operand words; only the header shrinks from
		// [Compare, argc, size] to [CompareSimple, size].
		*out = append(*out, bytecode.Word(bytecode.OpCompareSimple))
		*out = append(*out, p.Words()[in.IP+2:in.IP+in.Size]...)
		return true
	})
}
