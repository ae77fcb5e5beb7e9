package optimize

import (
	"github.com/coregx/regexvm/bytecode"
	"github.com/coregx/regexvm/prefilter"
)

// SubstringSearch records that the whole program is equivalent to
// searching for one literal string, letting the matcher bypass the VM
// entirely.
type SubstringSearch struct {
	Literal string
}

// Data is what the optimizer learned about the program beyond the
// rewritten bytecode. All fields are conservative: absent facts mean
// "unknown", never "impossible".
type Data struct {
	// OnlyStartOfLine is set when every match must begin at a line
	// start.
	OnlyStartOfLine bool

	// StartingRanges are the code point ranges a match can start with,
	// ordered by range start. StartingRangesInsensitive is the same set
	// ASCII-lowercased and sorted by range start, for case-insensitive
	// matching. Empty means unknown.
	StartingRanges            []bytecode.CharRange
	StartingRangesInsensitive []bytecode.CharRange

	// Substring is set when the program is a pure literal search.
	Substring *SubstringSearch

	// Prefilter scans for literals every match must contain, used to
	// skip ahead before starting the VM. Nil when no such literals
	// could be extracted.
	Prefilter *prefilter.Prefilter
}

// Run applies the optimization pipeline to p and returns the rewritten
// program together with the analysis data. The input program is
// consumed; pass order is fixed, as later passes depend on the shapes
// earlier ones produce (the string join feeds the simple-compare
// demotion, the useless-jump removal normalizes the loop shapes the
// atomic rewrite looks for). Block structure is recomputed before every
// pass since each rewrite moves addresses.
func Run(p *bytecode.Program) (*bytecode.Program, *Data) {
	data := &Data{}

	p = removeUselessJumps(p)

	if literal, ok := pureSubstringSearch(p, basicBlocks(p)); ok {
		data.Substring = &SubstringSearch{Literal: literal}
		data.Prefilter = prefilter.New([]string{literal})
		return p, data
	}

	rewriteLoopsAsAtomicGroups(p, atomicGroupBlocks(p))
	p = joinAdjacentChars(p, basicBlocks(p))
	p = rewriteDotStarAsSeek(p, basicBlocks(p))
	p = demoteToSimpleCompares(p, basicBlocks(p))

	blocks := basicBlocks(p)
	fillAnalysisData(p, blocks, data)
	data.Prefilter = prefilter.New(startingLiterals(p, blocks))

	return p, data
}

// startingLiterals extracts one required literal per alternative from
// the front of the program: either the single literal the first
// effectful compare matches, or one literal per branch of a leading
// fork chain. Every match must start with one of the returned strings.
// Returns nil when any branch fails to produce a usable literal.
func startingLiterals(p *bytecode.Program, blocks []block) []string {
	if len(blocks) == 0 {
		return nil
	}

	ip, ok := skipNonMatching(p, blocks[0].Start, blocks[0].End)
	if !ok {
		return nil
	}

	var starts []int
	for {
		in := p.InstAt(ip)
		if in.Op != bytecode.OpForkJump {
			break
		}
		starts = append(starts, p.JumpTarget(in))
		ip += in.Size
	}
	starts = append(starts, ip)

	var literals []string
	for _, start := range starts {
		lit, ok := leadingLiteral(p, start)
		if !ok {
			return nil
		}
		literals = append(literals, lit)
	}
	return literals
}

// leadingLiteral returns the literal matched by the first effectful
// compare at ip, skipping bookkeeping instructions in front of it.
// Single-character literals are rejected; scanning for them costs more
// than it saves.
func leadingLiteral(p *bytecode.Program, ip int) (string, bool) {
	ip, ok := skipNonMatching(p, ip, p.Len()-1)
	if !ok {
		return "", false
	}

	in := p.InstAt(ip)
	if in.Op != bytecode.OpCompare && in.Op != bytecode.OpCompareSimple {
		return "", false
	}
	pairs := p.FlatPairs(in)
	if len(pairs) == 1 && pairs[0].Type == bytecode.CompareString {
		s := p.StringAt(int(uint32(pairs[0].Value)))
		return s, len(s) >= 2
	}
	return "", false
}
