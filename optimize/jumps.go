package optimize

import "github.com/coregx/regexvm/bytecode"

// removeUselessJumps deletes jump and fork instructions whose offset is
// zero. Such instructions transfer control to the instruction that
// follows them anyway; forks additionally save a thread at the same
// position, which the scheduler deduplicates. The code generator emits
// them for empty alternatives and empty group bodies.
func removeUselessJumps(p *bytecode.Program) *bytecode.Program {
	return newRewriter(p).rewriteEach(func(in bytecode.Inst, _ *[]bytecode.Word) bool {
		switch in.Op {
		case bytecode.OpJump, bytecode.OpJumpNonEmpty,
			bytecode.OpForkJump, bytecode.OpForkStay,
			bytecode.OpForkReplaceJump, bytecode.OpForkReplaceStay,
			bytecode.OpForkIf:
			return p.Offset(in) == 0
		}
		return false
	})
}
