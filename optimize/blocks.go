package optimize

import (
	"sort"

	"github.com/coregx/regexvm/bytecode"
)

// block is a straight-line run of instructions. The two builders encode
// its bounds differently: basicBlocks sets End to the address of the
// last instruction inside the block, while atomicGroupBlocks sets End
// to the address of the control transfer terminating the block (one
// past the block's interior).
type block struct {
	Start int
	End   int
}

// basicBlocks splits the program at every jump target and every
// instruction following a control transfer. An empty program yields a
// single empty block at address zero.
func basicBlocks(p *bytecode.Program) []block {
	starts := map[int]struct{}{0: {}}

	for ip := 0; ip < p.Len(); {
		in := p.InstAt(ip)
		next := ip + in.Size
		switch in.Op {
		case bytecode.OpJump, bytecode.OpJumpNonEmpty,
			bytecode.OpForkJump, bytecode.OpForkStay,
			bytecode.OpForkReplaceJump, bytecode.OpForkReplaceStay,
			bytecode.OpForkIf, bytecode.OpRepeat:
			starts[p.JumpTarget(in)] = struct{}{}
			if next < p.Len() {
				starts[next] = struct{}{}
			}
		case bytecode.OpFailForks:
			if next < p.Len() {
				starts[next] = struct{}{}
			}
		}
		ip = next
	}

	sorted := make([]int, 0, len(starts))
	for s := range starts {
		sorted = append(sorted, s)
	}
	sort.Ints(sorted)

	blocks := make([]block, 0, len(sorted))
	for i, start := range sorted {
		limit := p.Len()
		if i+1 < len(sorted) {
			limit = sorted[i+1]
		}
		last := start
		for ip := start; ip < limit; {
			last = ip
			ip += p.InstAt(ip).Size
		}
		blocks = append(blocks, block{Start: start, End: last})
	}
	return blocks
}

// atomicGroupBlocks splits the program around its loop structure: every
// backward jump closes a block over the loop body it re-enters, and
// forward jumps and FailForks end the block in front of them. The
// result is ordered by start address.
func atomicGroupBlocks(p *bytecode.Program) []block {
	var blocks []block
	endOfLast := 0

	for ip := 0; ip < p.Len(); {
		in := p.InstAt(ip)
		switch in.Op {
		case bytecode.OpJump, bytecode.OpJumpNonEmpty,
			bytecode.OpForkJump, bytecode.OpForkStay,
			bytecode.OpForkReplaceJump, bytecode.OpForkReplaceStay,
			bytecode.OpForkIf:
			target := p.JumpTarget(in)
			if target >= ip {
				blocks = append(blocks, block{Start: endOfLast, End: ip})
			} else if target > endOfLast {
				// A backward jump into the current block splits it at
				// the loop entry.
				blocks = append(blocks,
					block{Start: endOfLast, End: target},
					block{Start: target, End: ip})
			} else {
				blocks = append(blocks, block{Start: endOfLast, End: ip})
			}
			endOfLast = ip + in.Size
		case bytecode.OpRepeat:
			target := p.JumpTarget(in)
			if target > endOfLast {
				blocks = append(blocks, block{Start: endOfLast, End: target})
			}
			blocks = append(blocks, block{Start: target, End: ip})
			endOfLast = ip + in.Size
		case bytecode.OpFailForks:
			blocks = append(blocks, block{Start: endOfLast, End: ip})
			endOfLast = ip + in.Size
		}
		ip += in.Size
	}

	if endOfLast < p.Len() {
		blocks = append(blocks, block{Start: endOfLast, End: p.Len()})
	}
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Start < blocks[j].Start })
	return blocks
}
