package optimize

import (
	"strings"

	"github.com/coregx/regexvm/bytecode"
)

// pureSubstringSearch reports whether the whole program is equivalent
// to matching one literal string, and returns that string. This holds
// when the program is a single basic block made of character compares
// only. An empty program trivially searches for the empty string.
func pureSubstringSearch(p *bytecode.Program, blocks []block) (string, bool) {
	if len(blocks) > 1 {
		return "", false
	}
	if p.Len() == 0 {
		return "", true
	}

	var sb strings.Builder
	for ip := 0; ip < p.Len(); {
		in := p.InstAt(ip)
		if in.Op != bytecode.OpCompare {
			return "", false
		}
		if p.CompareArgCount(in) == 0 {
			// Matches nothing, not the empty string.
			return "", false
		}
		for _, pair := range p.FlatPairs(in) {
			if pair.Type != bytecode.CompareChar {
				return "", false
			}
			sb.WriteRune(rune(uint32(pair.Value)))
		}
		ip += in.Size
	}
	return sb.String(), true
}
