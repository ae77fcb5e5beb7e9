// Package bytecode defines the flat instruction encoding shared by the
// code generator, the optimizer and the matching VM.
//
// A program is an ordered sequence of instructions encoded as 64-bit
// words, plus a side table of literal strings referenced by index from
// String and StringSet operands. Forward jump offsets are relative to
// the next instruction; the counted-repeat offset is measured backward
// from the current instruction.
package bytecode

import (
	"fmt"
	"unicode/utf8"

	"github.com/coregx/regexvm/internal/conv"
)

// Program is a flat bytecode program together with its string side
// table and capture-group count. The zero value is an empty program.
type Program struct {
	words        []Word
	strings      []string
	captureCount int
}

// New returns an empty program with room for n words.
func New(n int) *Program {
	return &Program{words: make([]Word, 0, n)}
}

// NewFromWords wraps an existing word stream and string side table in a
// program. The slices are taken over, not copied.
func NewFromWords(words []Word, strings []string) *Program {
	return &Program{words: words, strings: strings}
}

// Len returns the program length in words.
func (p *Program) Len() int {
	return len(p.words)
}

// Words returns the raw word stream. The slice aliases the program;
// callers must not grow it.
func (p *Program) Words() []Word {
	return p.words
}

// Word returns the word at address i.
func (p *Program) Word(i int) Word {
	return p.words[i]
}

// SetWord overwrites the word at address i in place. Used for
// width-preserving patches only; anything that moves addresses must go
// through the rewriter.
func (p *Program) SetWord(i int, w Word) {
	p.words[i] = w
}

// CaptureCount returns the number of capture groups, including the
// implicit whole-match group.
func (p *Program) CaptureCount() int {
	return p.captureCount
}

// SetCaptureCount records the capture-group count produced by the
// front end.
func (p *Program) SetCaptureCount(n int) {
	p.captureCount = n
}

// AddString interns s in the side table and returns its index.
func (p *Program) AddString(s string) int {
	for i, existing := range p.strings {
		if existing == s {
			return i
		}
	}
	p.strings = append(p.strings, s)
	return len(p.strings) - 1
}

// StringAt returns the side-table entry at index i.
func (p *Program) StringAt(i int) string {
	return p.strings[i]
}

// Strings returns the string side table.
func (p *Program) Strings() []string {
	return p.strings
}

// Append appends raw words to the program.
func (p *Program) Append(words ...Word) {
	p.words = append(p.words, words...)
}

// AppendProgram appends the instructions of src, merging its string
// side table and remapping String/StringSet operand indices.
func (p *Program) AppendProgram(src *Program) {
	remap := make(map[Word]Word, len(src.strings))
	for i, s := range src.strings {
		remap[Word(i)] = Word(conv.IntToWord(p.AddString(s)))
	}

	base := len(p.words)
	p.words = append(p.words, src.words...)
	for ip := 0; ip < src.Len(); {
		in := src.InstAt(ip)
		switch in.Op {
		case OpCompare, OpCompareSimple:
			for _, ref := range src.stringOperandOffsets(in) {
				p.words[base+ref] = remap[src.words[ref]]
			}
		}
		ip += in.Size
	}
}

// MergeStringsFrom interns src's string table into p and rewrites src's
// String/StringSet operands to use p's indices, so that src's raw words
// can be appended to p without further remapping.
func (p *Program) MergeStringsFrom(src *Program) {
	if len(src.strings) == 0 {
		return
	}
	remap := make(map[Word]Word, len(src.strings))
	for i, s := range src.strings {
		remap[Word(i)] = Word(conv.IntToWord(p.AddString(s)))
	}
	for ip := 0; ip < src.Len(); {
		in := src.InstAt(ip)
		for _, ref := range src.stringOperandOffsets(in) {
			src.words[ref] = remap[src.words[ref]]
		}
		ip += in.Size
	}
	src.strings = append([]string(nil), p.strings...)
}

// stringOperandOffsets returns the absolute word addresses of String and
// StringSet operand values inside a compare instruction.
func (p *Program) stringOperandOffsets(in Inst) []int {
	var argc, off int
	switch in.Op {
	case OpCompare:
		argc = conv.WordToInt(uint64(p.words[in.IP+1]))
		off = in.IP + 3
	case OpCompareSimple:
		argc = 1
		off = in.IP + 2
	default:
		return nil
	}

	var refs []int
	for i := 0; i < argc; i++ {
		t := CompareType(p.words[off])
		off++
		switch {
		case t == CompareString || t == CompareStringSet:
			refs = append(refs, off)
			off++
		case t == CompareLookupTable:
			n := conv.WordToInt(uint64(p.words[off])) + conv.WordToInt(uint64(p.words[off+1]))
			off += 2 + n
		case t.HasValue():
			off++
		}
	}
	return refs
}

// AppendJump appends a forward-style jump instruction with the given
// relative offset.
func (p *Program) AppendJump(op OpCode, offset int) {
	switch op {
	case OpJump, OpForkJump, OpForkStay, OpForkReplaceJump, OpForkReplaceStay:
		p.Append(Word(op), Word(conv.OffsetToWord(offset)))
	default:
		panic(fmt.Sprintf("bytecode: AppendJump with %v", op))
	}
}

// AppendCompareChar appends a Compare instruction matching exactly one
// code point.
func (p *Program) AppendCompareChar(ch rune) {
	p.Append(Word(OpCompare), 1, 2, Word(CompareChar), Word(uint32(ch)))
}

// AppendCompareString appends a Compare instruction matching a literal
// string, interning it in the side table.
func (p *Program) AppendCompareString(s string) {
	idx := p.AddString(s)
	p.Append(Word(OpCompare), 1, 2, Word(CompareString), Word(conv.IntToWord(idx)))
}

// AppendComparePairs appends a Compare instruction with an arbitrary
// pre-encoded operand list. argc is the operand count (a lookup table
// counts as one operand regardless of payload size).
func (p *Program) AppendComparePairs(argc int, args []Word) {
	p.Append(Word(OpCompare), Word(conv.IntToWord(argc)), Word(conv.IntToWord(len(args))))
	p.Append(args...)
}

// FirstCodePoint returns the first code point of the side-table string
// at index i. Used when a single-codepoint string operand stands in for
// a character compare.
func (p *Program) FirstCodePoint(i int) rune {
	r, _ := utf8.DecodeRuneInString(p.strings[i])
	return r
}

// IsSingleCodePointString reports whether side-table entry i holds
// exactly one code point.
func (p *Program) IsSingleCodePointString(i int) bool {
	s := p.strings[i]
	_, size := utf8.DecodeRuneInString(s)
	return size > 0 && size == len(s)
}

// Clone returns a deep copy of the program.
func (p *Program) Clone() *Program {
	out := &Program{
		words:        append([]Word(nil), p.words...),
		strings:      append([]string(nil), p.strings...),
		captureCount: p.captureCount,
	}
	return out
}
