package optimize

import (
	"sort"

	"github.com/coregx/regexvm/bytecode"
	"github.com/coregx/regexvm/internal/conv"
	"github.com/coregx/regexvm/internal/uniprop"
)

// tableOutcome classifies one operand against the range-table builder.
type tableOutcome int

const (
	tablePlaced tableOutcome = iota
	tableReplaceWithAnyChar
	tableTemporaryInversion
	tablePermanentInversion
	tableFlushOnInsertion
	tableFinishFlushOnInsertion
	tableCannotPlace
)

func classifyForTable(table *rangeSet, pair bytecode.ComparePair) tableOutcome {
	switch pair.Type {
	case bytecode.CompareInverse:
		return tablePermanentInversion
	case bytecode.CompareTemporaryInverse:
		return tableTemporaryInversion
	case bytecode.CompareAnyChar:
		return tableReplaceWithAnyChar
	case bytecode.CompareCharClass:
		return tableCannotPlace
	case bytecode.CompareChar:
		ch := rune(uint32(pair.Value))
		table.insert(ch, ch)
		return tablePlaced
	case bytecode.CompareCharRange:
		r := bytecode.UnpackRange(pair.Value)
		table.insert(r.From, r.To)
		return tablePlaced
	case bytecode.CompareEndAndOr:
		return tableFinishFlushOnInsertion
	case bytecode.CompareAnd, bytecode.CompareSubtract:
		return tableFlushOnInsertion
	case bytecode.CompareReference, bytecode.CompareNamedReference,
		bytecode.CompareProperty, bytecode.CompareGeneralCategory,
		bytecode.CompareScript, bytecode.CompareScriptExtension,
		bytecode.CompareStringSet, bytecode.CompareOr:
		return tableCannotPlace
	default:
		// Undefined, String, RangeExpressionDummy and pre-built
		// LookupTable operands never reach the table builder.
		panic("optimize: unexpected compare operand " + pair.Type.String())
	}
}

// AppendCharacterClass compiles a character-class operand list into a
// single Compare instruction appended to target. Runs of plain
// characters and ranges are packed into sorted LookupTable operands so
// the VM can binary-search them instead of testing every operand;
// everything else is emitted verbatim in input order, with the tables
// flushed whenever ordering matters (inversion, set algebra). Lists of
// at most one operand are emitted as-is.
func AppendCharacterClass(target *bytecode.Program, pairs []bytecode.ComparePair) {
	var args []bytecode.Word
	argc := 0

	appendOperand := func(pair bytecode.ComparePair) {
		args = append(args, bytecode.Word(pair.Type))
		// Everything except the pure control operators carries its
		// value word through, even types the front end never emits
		// here.
		switch pair.Type {
		case bytecode.CompareAnyChar, bytecode.CompareTemporaryInverse,
			bytecode.CompareInverse, bytecode.CompareAnd, bytecode.CompareOr,
			bytecode.CompareSubtract, bytecode.CompareEndAndOr:
		default:
			args = append(args, pair.Value)
		}
		argc++
	}

	if len(pairs) <= 1 {
		for _, pair := range pairs {
			appendOperand(pair)
		}
	} else {
		var table, invertedTable rangeSet
		current, currentInverted := &table, &invertedTable
		invertForNext := false
		currentlyInverted := false

		appendTable := func(t rangeSet) {
			argc++
			args = append(args, bytecode.Word(bytecode.CompareLookupTable))
			sensitiveAt := len(args)
			args = append(args, 0, 0)

			// Coalesce touching and overlapping ranges; the set is
			// already sorted by start.
			var merged []bytecode.CharRange
			for _, r := range t {
				if len(merged) > 0 && r.From <= merged[len(merged)-1].To+1 {
					if r.To > merged[len(merged)-1].To {
						merged[len(merged)-1].To = r.To
					}
					continue
				}
				merged = append(merged, r)
			}
			for _, r := range merged {
				args = append(args, bytecode.PackRange(r))
			}
			args[sensitiveAt] = bytecode.Word(conv.IntToWord(len(merged)))

			// A case-insensitive shadow is only worth storing when
			// ASCII lowering actually moves a bound.
			changed := false
			for _, r := range merged {
				if uniprop.ToASCIILower(r.From) != r.From || uniprop.ToASCIILower(r.To) != r.To {
					changed = true
					break
				}
			}
			if changed {
				insensitive := make([]bytecode.CharRange, len(merged))
				for i, r := range merged {
					insensitive[i] = bytecode.CharRange{
						From: uniprop.ToASCIILower(r.From),
						To:   uniprop.ToASCIILower(r.To),
					}
				}
				sort.Slice(insensitive, func(i, j int) bool { return insensitive[i].From < insensitive[j].From })
				for _, r := range insensitive {
					args = append(args, bytecode.PackRange(r))
				}
				args[sensitiveAt+1] = bytecode.Word(conv.IntToWord(len(insensitive)))
			}
		}

		flushTables := func() {
			if len(table) > 0 {
				appendTable(table)
			}
			if len(invertedTable) > 0 {
				argc++
				args = append(args, bytecode.Word(bytecode.CompareTemporaryInverse))
				appendTable(invertedTable)
			}
			table = nil
			invertedTable = nil
		}

		flushOnEveryInsertion := false
		for _, pair := range pairs {
			invertAfter := invertForNext
			invertForNext = false

			switch classifyForTable(current, pair) {
			case tablePlaced:
				if flushOnEveryInsertion {
					flushTables()
				}
			case tableReplaceWithAnyChar:
				table = nil
				invertedTable = nil
				appendOperand(bytecode.ComparePair{Type: bytecode.CompareAnyChar})
			case tableTemporaryInversion:
				current, currentInverted = currentInverted, current
				invertForNext = true
				currentlyInverted = !currentlyInverted
			case tablePermanentInversion:
				flushTables()
				appendOperand(bytecode.ComparePair{Type: bytecode.CompareInverse})
			case tableFlushOnInsertion, tableFinishFlushOnInsertion:
				flushTables()
				flushOnEveryInsertion = pair.Type == bytecode.CompareAnd || pair.Type == bytecode.CompareSubtract
				fallthrough
			case tableCannotPlace:
				if currentlyInverted {
					appendOperand(bytecode.ComparePair{Type: bytecode.CompareTemporaryInverse})
				}
				appendOperand(pair)
			}

			if invertAfter {
				current, currentInverted = currentInverted, current
				currentlyInverted = !currentlyInverted
			}
		}

		flushTables()
	}

	target.AppendComparePairs(argc, args)
}
