package optimize

import "github.com/coregx/regexvm/bytecode"

// This pass upgrades backtracking loops to possessive ones. A pattern
// such as
//
//	bb0 | RE0
//	    | ForkX bb0
//	    -------------
//	bb1 | RE1
//
// becomes
//
//	bb0 | RE0
//	    | ForkReplaceX bb0
//	    -------------
//	bb1 | RE1
//
// provided first(RE1) shares no code point with anything RE0 can match.
// When that holds, a failed attempt past the loop can never be saved by
// giving back loop iterations, so each new iteration may discard the
// previous iteration's saved fork.
//
// A second shape puts the fork in a header block in front of the loop
// body:
//
//	bb0 | *
//	    | ForkX bb2
//	bb1 | RE0
//	    | Jump bb0
//	bb2 | RE1
//
// and gets the same ForkReplaceX upgrade in bb0.

type atomicPrecondition int

const (
	preconditionNotSatisfied atomicPrecondition = iota
	preconditionProperHeader
	preconditionEmptyHeader
)

type atomicLoopForm int

const (
	directLoopWithoutHeader atomicLoopForm = iota
	directLoopWithoutHeaderAndEmptyFollow
	directLoopWithHeader
)

type atomicCandidate struct {
	forking block
	form    atomicLoopForm
}

// rewriteLoopsAsAtomicGroups patches at most one loop per run. The
// rewrite changes which loop shapes exist in the program, so the caller
// is expected to rebuild blocks and call again if it wants more; one
// patched loop already covers the hot pattern and keeps the analysis
// simple.
func rewriteLoopsAsAtomicGroups(p *bytecode.Program, blocks []block) {
	candidate, ok := findAtomicCandidate(p, blocks)
	if !ok {
		return
	}

	in := p.InstAt(candidate.forking.End)
	switch in.Op {
	case bytecode.OpForkStay:
		p.SetWord(in.IP, bytecode.Word(bytecode.OpForkReplaceStay))
	case bytecode.OpForkJump:
		p.SetWord(in.IP, bytecode.Word(bytecode.OpForkReplaceJump))
	case bytecode.OpJumpNonEmpty:
		switch p.JumpNonEmptyForm(in) {
		case bytecode.OpForkStay:
			p.SetWord(in.IP+3, bytecode.Word(bytecode.OpForkReplaceStay))
		case bytecode.OpForkJump:
			p.SetWord(in.IP+3, bytecode.Word(bytecode.OpForkReplaceJump))
		default:
			panic("optimize: atomic candidate JumpNonEmpty has non-fork form\n" + bytecode.Dump(p))
		}
	default:
		panic("optimize: atomic candidate block does not end in a fork\n" + bytecode.Dump(p))
	}
}

func findAtomicCandidate(p *bytecode.Program, blocks []block) (atomicCandidate, bool) {
	for i, forking := range blocks {
		var fallback *block
		if i+1 < len(blocks) {
			fallback = &blocks[i+1]
		}

		// First shape: the block's own terminator loops back to its
		// start.
		in := p.InstAt(forking.End)
		if eligibleLoopJump(p, in, forking.Start, directLoopWithoutHeader) {
			if fallback == nil ||
				(fallback.Start == fallback.End &&
					atomicRewritePrecondition(p, forking, *fallback, blocks) != preconditionNotSatisfied) {
				return atomicCandidate{forking, directLoopWithoutHeader}, true
			}
			switch atomicRewritePrecondition(p, forking, *fallback, blocks) {
			case preconditionProperHeader:
				return atomicCandidate{forking, directLoopWithoutHeader}, true
			case preconditionEmptyHeader:
				return atomicCandidate{forking, directLoopWithoutHeaderAndEmptyFollow}, true
			}
		}

		if fallback == nil {
			continue
		}

		// Second shape: the next block jumps back to this block's
		// start, and this block's terminator forks past the loop.
		tail := p.InstAt(fallback.End)
		if eligibleLoopJump(p, tail, forking.Start, directLoopWithHeader) &&
			headerForkUpgradable(p, forking, i, blocks) {
			return atomicCandidate{forking, directLoopWithHeader}, true
		}

		// Degenerate shape: the next block jumps back to the fork
		// itself instead of the block start.
		if eligibleLoopJump(p, tail, forking.End, directLoopWithHeader) &&
			headerForkUpgradable(p, forking, i, blocks) {
			return atomicCandidate{forking, directLoopWithoutHeader}, true
		}
	}
	return atomicCandidate{}, false
}

// headerForkUpgradable checks the bb0 side of the second loop shape:
// bb0 must end in a plain fork, and the loop body (bb1) must satisfy the
// rewrite precondition against whatever follows the loop (bb2).
func headerForkUpgradable(p *bytecode.Program, forking block, i int, blocks []block) bool {
	in := p.InstAt(forking.End)
	if in.Op != bytecode.OpForkJump && in.Op != bytecode.OpForkStay {
		return false
	}
	if i+2 >= len(blocks) {
		return true
	}
	return atomicRewritePrecondition(p, blocks[i+1], blocks[i+2], blocks) != preconditionNotSatisfied
}

// eligibleLoopJump reports whether in is a loop-closing jump from ip
// back to target for the given loop shape. Unconditional Jump closes
// only headered loops; plain forks and fork-formed JumpNonEmpty close
// only headerless ones.
func eligibleLoopJump(p *bytecode.Program, in bytecode.Inst, target int, form atomicLoopForm) bool {
	switch in.Op {
	case bytecode.OpJumpNonEmpty:
		jumpForm := p.JumpNonEmptyForm(in)
		if jumpForm != bytecode.OpJump && form == directLoopWithHeader {
			return false
		}
		if jumpForm != bytecode.OpForkJump && jumpForm != bytecode.OpForkStay && form == directLoopWithoutHeader {
			return false
		}
		return p.JumpTarget(in) == target
	case bytecode.OpForkJump, bytecode.OpForkStay:
		if form == directLoopWithHeader {
			return false
		}
		return p.JumpTarget(in) == target
	case bytecode.OpJump:
		if form != directLoopWithHeader {
			return false
		}
		return p.JumpTarget(in) == target
	default:
		return false
	}
}

// atomicRewritePrecondition interprets everything the repeated block
// can match, then checks the first compare of the following block
// against it. No overlap means no amount of giving back iterations can
// rescue a failed follow, which is exactly when the loop's forks may be
// replaced.
func atomicRewritePrecondition(p *bytecode.Program, repeated, following block, all []block) atomicPrecondition {
	var repeatedValues [][]bytecode.ComparePair
	seenActionable := false

	for ip := repeated.Start; ip < repeated.End; {
		in := p.InstAt(ip)
		switch in.Op {
		case bytecode.OpCompare:
			seenActionable = true
			pairs := p.FlatPairs(in)
			if len(repeatedValues) == 0 {
				for _, pair := range pairs {
					if pair.Type == bytecode.CompareAnyChar {
						return preconditionNotSatisfied
					}
				}
			}
			repeatedValues = append(repeatedValues, pairs)
		case bytecode.OpCheckBegin, bytecode.OpCheckEnd:
			seenActionable = true
			if len(repeatedValues) == 0 {
				return preconditionProperHeader
			}
		case bytecode.OpCheckBoundary:
			return preconditionNotSatisfied
		case bytecode.OpRestore, bytecode.OpGoBack:
			return preconditionNotSatisfied
		case bytecode.OpForkJump, bytecode.OpForkReplaceJump,
			bytecode.OpForkIf, bytecode.OpJumpNonEmpty:
			// Resolving the follow set through a conditional branch is
			// possible but not worth the cost.
			if !seenActionable {
				return preconditionNotSatisfied
			}
		case bytecode.OpJump:
			next, ok := blockStartingAt(all, p.JumpTarget(in))
			if !ok {
				return preconditionNotSatisfied
			}
			repeated = next
			ip = repeated.Start
			continue
		}
		ip += in.Size
	}

	// Skip through empty follow blocks reached by unconditional jumps.
	for following.Start == following.End {
		in := p.InstAt(following.Start)
		switch in.Op {
		case bytecode.OpJump:
			target := p.JumpTarget(in)
			if target < in.IP {
				return preconditionNotSatisfied
			}
			next, ok := blockStartingAt(all, target)
			if !ok {
				return preconditionNotSatisfied
			}
			following = next
		case bytecode.OpForkJump, bytecode.OpForkIf,
			bytecode.OpForkReplaceJump, bytecode.OpJumpNonEmpty:
			return preconditionNotSatisfied
		default:
			goto followResolved
		}
	}
followResolved:

	followHasCompare := false
	finalInstruction := following.Start
	for ip := following.Start; ip < following.End; {
		in := p.InstAt(ip)
		finalInstruction = ip
		switch in.Op {
		case bytecode.OpCompare:
			followHasCompare = true
			pairs := p.FlatPairs(in)
			if len(pairs) == 0 {
				break
			}
			for _, pair := range pairs {
				switch pair.Type {
				case bytecode.CompareAnyChar, bytecode.CompareReference, bytecode.CompareNamedReference:
					return preconditionNotSatisfied
				}
			}
			for _, rv := range repeatedValues {
				if hasOverlap(p, pairs, rv) {
					return preconditionNotSatisfied
				}
			}
			return preconditionProperHeader
		case bytecode.OpCheckBegin, bytecode.OpCheckEnd:
			// Nothing can match past the anchor.
			return preconditionProperHeader
		case bytecode.OpCheckBoundary:
			return preconditionNotSatisfied
		case bytecode.OpForkJump, bytecode.OpForkIf,
			bytecode.OpForkReplaceJump, bytecode.OpJumpNonEmpty:
			if !followHasCompare {
				return preconditionNotSatisfied
			}
		}
		ip += in.Size
	}

	// A follow block that falls through cannot be reasoned about.
	switch p.InstAt(finalInstruction).Op {
	case bytecode.OpJump, bytecode.OpJumpNonEmpty,
		bytecode.OpForkJump, bytecode.OpForkReplaceJump, bytecode.OpForkIf:
	default:
		return preconditionNotSatisfied
	}

	if followHasCompare {
		return preconditionProperHeader
	}
	return preconditionEmptyHeader
}

func blockStartingAt(blocks []block, start int) (block, bool) {
	for _, b := range blocks {
		if b.Start == start {
			return b, true
		}
	}
	return block{}, false
}
