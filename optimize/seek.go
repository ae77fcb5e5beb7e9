package optimize

import (
	"github.com/coregx/regexvm/bytecode"
	"github.com/coregx/regexvm/internal/conv"
)

// rewriteDotStarAsSeek replaces a leading unanchored .* loop with a
// direct scan for the code point that must follow it:
//
//	ForkStay follow
//	Checkpoint p
//	Compare AnyChar
//	FailIfEmpty            (optional)
//	JumpNonEmpty fork, p
//
// becomes
//
//	SeekTo c
//	ForkStay back-to-SeekTo
//
// where c is the single code point the follow block's first compare can
// match. SeekTo fails the thread when c does not occur again, and the
// trailing ForkStay keeps a retry position for each occurrence, so the
// set of attempted positions is unchanged; positions where AnyChar
// would have matched a non-c character could never have satisfied the
// follow compare anyway.
func rewriteDotStarAsSeek(p *bytecode.Program, blocks []block) *bytecode.Program {
	type candidate struct {
		forkIP, jumpIP int
		seek           rune
	}
	var candidates []candidate

	for _, b := range blocks {
		ip, ok := skipNonMatching(p, b.Start, b.End)
		if !ok {
			continue
		}

		fork := p.InstAt(ip)
		if fork.Op != bytecode.OpForkStay {
			continue
		}
		forkIP := ip

		follow, ok := blockStartingAt(blocks, p.JumpTarget(fork))
		if !ok || follow.Start > follow.End {
			continue
		}
		ip += fork.Size

		checkpoint := p.InstAt(ip)
		if checkpoint.Op != bytecode.OpCheckpoint {
			continue
		}
		checkpointID := p.CheckpointID(checkpoint)
		ip += checkpoint.Size

		compare := p.InstAt(ip)
		if compare.Op != bytecode.OpCompare {
			continue
		}
		pairs := p.FlatPairs(compare)
		if len(pairs) != 1 || pairs[0].Type != bytecode.CompareAnyChar {
			continue
		}
		ip += compare.Size

		if fail := p.InstAt(ip); fail.Op == bytecode.OpFailIfEmpty {
			ip += fail.Size
		}

		jump := p.InstAt(ip)
		if jump.Op != bytecode.OpJumpNonEmpty ||
			p.JumpTarget(jump) != forkIP ||
			p.CheckpointID(jump) != checkpointID {
			continue
		}

		if cp, ok := singleFollowCodePoint(p, follow); ok {
			candidates = append(candidates, candidate{forkIP, jump.IP, cp})
		}
	}

	if len(candidates) == 0 {
		return p
	}

	edits := make([]Edit, 0, len(candidates))
	for _, c := range candidates {
		edits = append(edits, Edit{
			Start: c.forkIP,
			End:   c.jumpIP + 4,
			Repl: []bytecode.Word{
				bytecode.Word(bytecode.OpSeekTo), bytecode.Word(uint32(c.seek)),
				// ForkStay back to the SeekTo, two words behind the
				// next instruction plus its own size.
				bytecode.Word(bytecode.OpForkStay), bytecode.Word(conv.OffsetToWord(-4)),
			},
		})
	}
	return newRewriter(p).rewrite(edits)
}

// skipNonMatching advances past bookkeeping instructions that consume
// no input, stopping at the first instruction that can affect matching.
func skipNonMatching(p *bytecode.Program, ip, end int) (int, bool) {
	for ip <= end {
		in := p.InstAt(ip)
		switch in.Op {
		case bytecode.OpCheckpoint, bytecode.OpSave,
			bytecode.OpSaveLeftCaptureGroup, bytecode.OpSaveRightCaptureGroup,
			bytecode.OpSaveRightNamedCaptureGroup, bytecode.OpClearCaptureGroup:
			ip += in.Size
		default:
			return ip, true
		}
	}
	return ip, ip < p.Len()
}

// singleFollowCodePoint finds the first compare of the follow block,
// allowing only bookkeeping instructions in front of it, and returns
// the one code point it matches. Anything wider than a single-point
// range disqualifies the rewrite.
func singleFollowCodePoint(p *bytecode.Program, follow block) (rune, bool) {
	ip := follow.Start
	for ip <= follow.End {
		in := p.InstAt(ip)
		switch in.Op {
		case bytecode.OpCheckpoint, bytecode.OpSave,
			bytecode.OpSaveLeftCaptureGroup, bytecode.OpSaveRightCaptureGroup,
			bytecode.OpSaveRightNamedCaptureGroup, bytecode.OpClearCaptureGroup:
			ip += in.Size
		case bytecode.OpCompare:
			compares := newInterpretedCompares()
			if !interpretCompares(p, p.FlatPairs(in), compares, true) {
				return 0, false
			}
			if len(compares.ranges) != 1 || len(compares.negatedRanges) != 0 ||
				compares.hasClasses() || compares.hasUnicodeProperty || compares.hasUnicodeSets() {
				return 0, false
			}
			r := compares.ranges[0]
			if r.From != r.To {
				return 0, false
			}
			return r.From, true
		default:
			return 0, false
		}
	}
	return 0, false
}
