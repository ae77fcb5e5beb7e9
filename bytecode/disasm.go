package bytecode

import (
	"fmt"
	"io"
	"strings"
)

// Disassemble writes an assembly-style dump of the program to w.
// Intended for diagnostics; internal-consistency faults include this
// dump so a broken rewrite can be inspected.
func Disassemble(w io.Writer, p *Program) {
	for ip := 0; ip < p.Len(); {
		in := p.InstAt(ip)
		fmt.Fprintf(w, "%4d: %s\n", ip, formatInst(p, in))
		ip += in.Size
	}
	for i, s := range p.strings {
		fmt.Fprintf(w, "str %d: %q\n", i, s)
	}
}

// Dump returns the disassembly as a string.
func Dump(p *Program) string {
	var b strings.Builder
	Disassemble(&b, p)
	return b.String()
}

func formatInst(p *Program, in Inst) string {
	switch in.Op {
	case OpJump, OpForkJump, OpForkStay, OpForkReplaceJump, OpForkReplaceStay:
		return fmt.Sprintf("%v offset=%d [&%d]", in.Op, p.Offset(in), p.JumpTarget(in))
	case OpJumpNonEmpty:
		return fmt.Sprintf("%v %v offset=%d [&%d], cp=%d",
			in.Op, p.JumpNonEmptyForm(in), p.Offset(in), p.JumpTarget(in), p.CheckpointID(in))
	case OpForkIf:
		return fmt.Sprintf("%v cond=%d offset=%d [&%d]",
			in.Op, p.Word(in.IP+3), p.Offset(in), p.JumpTarget(in))
	case OpRepeat:
		return fmt.Sprintf("%v offset=%d [&%d] count=%d id=%d",
			in.Op, p.Offset(in), p.JumpTarget(in), p.Word(in.IP+2), p.Word(in.IP+3))
	case OpCompare, OpCompareSimple:
		return fmt.Sprintf("%v %s", in.Op, formatPairs(p, in))
	case OpCheckpoint:
		return fmt.Sprintf("%v id=%d", in.Op, p.Word(in.IP+1))
	case OpSeekTo:
		return fmt.Sprintf("%v %q", in.Op, rune(uint32(p.Word(in.IP+1))))
	default:
		if in.Size == 1 {
			return in.Op.String()
		}
		args := make([]string, 0, in.Size-1)
		for i := in.IP + 1; i < in.IP+in.Size; i++ {
			args = append(args, fmt.Sprintf("%d", p.Word(i)))
		}
		return fmt.Sprintf("%v %s", in.Op, strings.Join(args, ", "))
	}
}

func formatPairs(p *Program, in Inst) string {
	pairs := p.FlatPairs(in)
	parts := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		switch pair.Type {
		case CompareChar:
			parts = append(parts, fmt.Sprintf("Char %q", rune(uint32(pair.Value))))
		case CompareCharRange:
			r := UnpackRange(pair.Value)
			parts = append(parts, fmt.Sprintf("CharRange %q-%q", r.From, r.To))
		case CompareString, CompareStringSet:
			parts = append(parts, fmt.Sprintf("%v %q", pair.Type, p.StringAt(int(pair.Value))))
		case CompareCharClass:
			parts = append(parts, fmt.Sprintf("CharClass %v", CharClass(pair.Value)))
		default:
			if pair.Type.HasValue() {
				parts = append(parts, fmt.Sprintf("%v %d", pair.Type, pair.Value))
			} else {
				parts = append(parts, pair.Type.String())
			}
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
