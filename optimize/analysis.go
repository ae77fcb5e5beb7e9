package optimize

import (
	"sort"

	"github.com/coregx/regexvm/bytecode"
	"github.com/coregx/regexvm/internal/uniprop"
)

// fillAnalysisData derives match-start facts from the first basic
// block, walking through bookkeeping instructions to the first
// instruction with an observable effect. A leading CheckBegin pins all
// matches to line starts; a leading plain-range compare yields the set
// of code point ranges a match can start with. Anything harder to
// reason about leaves the data empty, which callers must treat as
// "could start anywhere".
func fillAnalysisData(p *bytecode.Program, blocks []block, data *Data) {
	if len(blocks) == 0 {
		return
	}

	first := blocks[0]
	for ip := first.Start; ip <= first.End; {
		in := p.InstAt(ip)
		switch in.Op {
		case bytecode.OpCompare, bytecode.OpCompareSimple:
			if p.CompareArgCount(in) == 0 {
				// Matches nothing at all.
				return
			}
			compares := newInterpretedCompares()
			if !interpretCompares(p, p.FlatPairs(in), compares, false) {
				return
			}
			if compares.hasUnicodeProperty {
				// Running the bytecode is cheaper than probing
				// property tables per candidate position.
				return
			}
			if compares.hasClasses() || len(compares.negatedRanges) > 0 {
				return
			}

			for _, r := range compares.ranges {
				data.StartingRanges = append(data.StartingRanges, r)
				data.StartingRangesInsensitive = append(data.StartingRangesInsensitive, bytecode.CharRange{
					From: uniprop.ToASCIILower(r.From),
					To:   uniprop.ToASCIILower(r.To),
				})
			}
			sort.Slice(data.StartingRangesInsensitive, func(i, j int) bool {
				return data.StartingRangesInsensitive[i].From < data.StartingRangesInsensitive[j].From
			})
			return
		case bytecode.OpCheckBegin:
			data.OnlyStartOfLine = true
			return
		case bytecode.OpCheckpoint, bytecode.OpSave,
			bytecode.OpClearCaptureGroup, bytecode.OpSaveLeftCaptureGroup:
			ip += in.Size
		default:
			return
		}
	}
}
