package bytecode

import (
	"fmt"

	"github.com/coregx/regexvm/internal/conv"
)

// CompareType identifies one operand of a Compare instruction. The
// operand list forms a tiny stack-machine mini-language: Inverse,
// TemporaryInverse, Or, EndAndOr, And and Subtract are control operators
// over the flat list, the rest are concrete character tests.
type CompareType Word

const (
	CompareUndefined CompareType = iota
	CompareInverse
	CompareTemporaryInverse
	CompareAnyChar
	CompareChar
	CompareString
	CompareCharClass
	CompareCharRange
	CompareReference
	CompareNamedReference
	CompareProperty
	CompareGeneralCategory
	CompareScript
	CompareScriptExtension
	CompareRangeExpressionDummy
	CompareLookupTable
	CompareAnd
	CompareOr
	CompareEndAndOr
	CompareSubtract
	CompareStringSet

	compareTypeCount
)

var compareTypeNames = [compareTypeCount]string{
	"Undefined", "Inverse", "TemporaryInverse", "AnyChar", "Char",
	"String", "CharClass", "CharRange", "Reference", "NamedReference",
	"Property", "GeneralCategory", "Script", "ScriptExtension",
	"RangeExpressionDummy", "LookupTable", "And", "Or", "EndAndOr",
	"Subtract", "StringSet",
}

// String returns the operand type name.
func (t CompareType) String() string {
	if t >= compareTypeCount {
		return fmt.Sprintf("CompareType(%d)", Word(t))
	}
	return compareTypeNames[t]
}

// HasValue reports whether the operand carries a value word after its
// type word in the encoded stream. LookupTable is special-cased by the
// decoder (it carries two counts and a variable payload).
func (t CompareType) HasValue() bool {
	switch t {
	case CompareChar, CompareString, CompareCharClass, CompareCharRange,
		CompareReference, CompareNamedReference, CompareProperty,
		CompareGeneralCategory, CompareScript, CompareScriptExtension,
		CompareStringSet:
		return true
	}
	return false
}

// CharClass identifies a POSIX-style character class operand value.
type CharClass Word

const (
	ClassAlnum CharClass = iota
	ClassCntrl
	ClassLower
	ClassSpace
	ClassAlpha
	ClassDigit
	ClassPrint
	ClassUpper
	ClassBlank
	ClassGraph
	ClassPunct
	ClassWord
	ClassXdigit

	charClassCount
)

var charClassNames = [charClassCount]string{
	"alnum", "cntrl", "lower", "space", "alpha", "digit", "print",
	"upper", "blank", "graph", "punct", "word", "xdigit",
}

// String returns the class name.
func (c CharClass) String() string {
	if c >= charClassCount {
		return fmt.Sprintf("CharClass(%d)", Word(c))
	}
	return charClassNames[c]
}

// CharRange is an inclusive code point interval.
type CharRange struct {
	From rune
	To   rune
}

// PackRange encodes a code point range into a single operand word.
func PackRange(r CharRange) Word {
	return Word(uint32(r.From))<<32 | Word(uint32(r.To))
}

// UnpackRange decodes a range operand word.
func UnpackRange(w Word) CharRange {
	return CharRange{From: rune(uint32(w >> 32)), To: rune(uint32(w))}
}

// ComparePair is one decoded compare operand: its type and value word.
// Control operators carry a zero value.
type ComparePair struct {
	Type  CompareType
	Value Word
}

// FlatPairs decodes the operand list of a Compare or CompareSimple
// instruction into (type, value) pairs. Lookup tables are expanded into
// their case-sensitive CharRange entries; the case-insensitive shadow
// ranges are skipped, matching how the VM consumes them.
//
// Panics on an operand stream that runs past the instruction, which can
// only be produced by a code generation bug.
func (p *Program) FlatPairs(in Inst) []ComparePair {
	var argc int
	var off int
	switch in.Op {
	case OpCompare:
		argc = conv.WordToInt(uint64(p.words[in.IP+1]))
		off = in.IP + 3
	case OpCompareSimple:
		argc = 1
		off = in.IP + 2
	default:
		panic(fmt.Sprintf("bytecode: FlatPairs on %v at %d", in.Op, in.IP))
	}

	result := make([]ComparePair, 0, argc)
	for i := 0; i < argc; i++ {
		t := CompareType(p.words[off])
		off++
		switch {
		case t == CompareLookupTable:
			nSensitive := conv.WordToInt(uint64(p.words[off]))
			nInsensitive := conv.WordToInt(uint64(p.words[off+1]))
			off += 2
			for j := 0; j < nSensitive; j++ {
				result = append(result, ComparePair{CompareCharRange, p.words[off]})
				off++
			}
			off += nInsensitive
		case t.HasValue():
			result = append(result, ComparePair{t, p.words[off]})
			off++
		default:
			result = append(result, ComparePair{t, 0})
		}
	}
	return result
}
