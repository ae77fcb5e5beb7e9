package optimize

import (
	"strings"

	"github.com/coregx/regexvm/bytecode"
)

// joinAdjacentChars merges runs of two or more adjacent single-character
// compares within a basic block into one Compare{String}. The VM
// matches a string operand with a single memcmp-style loop instead of
// one dispatch per character.
func joinAdjacentChars(p *bytecode.Program, blocks []block) *bytecode.Program {
	type sequence struct {
		start, end int
		chars      []rune
	}
	var sequences []sequence

	for _, b := range blocks {
		var chars []rune
		start := 0
		inSequence := false

		ip := b.Start
		for ip <= b.End {
			in := p.InstAt(ip)

			var ch rune
			isSingleChar := false
			if in.Op == bytecode.OpCompare {
				pairs := p.FlatPairs(in)
				if len(pairs) == 1 && pairs[0].Type == bytecode.CompareChar {
					isSingleChar = true
					ch = rune(uint32(pairs[0].Value))
				}
			}

			if isSingleChar {
				if !inSequence {
					start = ip
					chars = nil
					inSequence = true
				}
				chars = append(chars, ch)
			} else {
				if inSequence && len(chars) >= 2 {
					sequences = append(sequences, sequence{start, ip, chars})
					chars = nil
				}
				inSequence = false
			}
			ip += in.Size
		}

		if inSequence && len(chars) >= 2 {
			sequences = append(sequences, sequence{start, ip, chars})
		}
	}

	if len(sequences) == 0 {
		return p
	}

	edits := make([]Edit, 0, len(sequences))
	for _, seq := range sequences {
		var sb strings.Builder
		for _, ch := range seq.chars {
			sb.WriteRune(ch)
		}
		idx := p.AddString(sb.String())
		edits = append(edits, Edit{
			Start: seq.start,
			End:   seq.end,
			Repl: []bytecode.Word{
				bytecode.Word(bytecode.OpCompare), 1, 2,
				bytecode.Word(bytecode.CompareString), bytecode.Word(uint32(idx)),
			},
		})
	}
	return newRewriter(p).rewrite(edits)
}
