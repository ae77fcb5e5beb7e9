package bytecode

import (
	"fmt"

	"github.com/coregx/regexvm/internal/conv"
)

// Inst is one decoded instruction: its address, opcode and width in
// words. Operands are read through the owning program.
type Inst struct {
	IP   int
	Op   OpCode
	Size int
}

// InstAt decodes the instruction at address ip. Addresses past the end
// of the program decode as Exit, matching the VM's behavior. Panics on
// an unknown opcode word, which can only come from a code generation
// bug.
func (p *Program) InstAt(ip int) Inst {
	if ip >= len(p.words) {
		return Inst{IP: ip, Op: OpExit, Size: 1}
	}
	op := OpCode(p.words[ip])
	if !op.Valid() {
		panic(fmt.Sprintf("bytecode: unknown opcode %d at %d", Word(op), ip))
	}

	size := opMetaTable[op].width
	switch op {
	case OpCompare:
		size = 3 + conv.WordToInt(uint64(p.words[ip+2]))
	case OpCompareSimple:
		size = 2 + conv.WordToInt(uint64(p.words[ip+1]))
	}
	return Inst{IP: ip, Op: op, Size: size}
}

// Offset returns the signed relative jump offset of a jump-bearing
// instruction.
func (p *Program) Offset(in Inst) int {
	if !in.Op.HasJump() {
		panic(fmt.Sprintf("bytecode: Offset on %v at %d", in.Op, in.IP))
	}
	return conv.WordToOffset(uint64(p.words[in.IP+1]))
}

// JumpTarget resolves a jump-bearing instruction to its absolute target
// address: next-ip plus offset for forward-style jumps, current-ip minus
// offset for counted repeats.
func (p *Program) JumpTarget(in Inst) int {
	off := p.Offset(in)
	if in.Op.JumpIsBackward() {
		return in.IP - off
	}
	return in.IP + in.Size + off
}

// CheckpointID returns the checkpoint operand of a Checkpoint or
// JumpNonEmpty instruction.
func (p *Program) CheckpointID(in Inst) Word {
	switch in.Op {
	case OpCheckpoint:
		return p.words[in.IP+1]
	case OpJumpNonEmpty:
		return p.words[in.IP+2]
	}
	panic(fmt.Sprintf("bytecode: CheckpointID on %v at %d", in.Op, in.IP))
}

// JumpNonEmptyForm returns the jump flavor a JumpNonEmpty performs when
// its checkpoint check passes (Jump, ForkJump or ForkStay, or one of
// the ForkReplace variants after the atomic-group rewrite).
func (p *Program) JumpNonEmptyForm(in Inst) OpCode {
	if in.Op != OpJumpNonEmpty {
		panic(fmt.Sprintf("bytecode: JumpNonEmptyForm on %v at %d", in.Op, in.IP))
	}
	return OpCode(p.words[in.IP+3])
}

// CompareArgCount returns the operand count of a Compare instruction
// (always 1 for CompareSimple).
func (p *Program) CompareArgCount(in Inst) int {
	switch in.Op {
	case OpCompare:
		return conv.WordToInt(uint64(p.words[in.IP+1]))
	case OpCompareSimple:
		return 1
	}
	panic(fmt.Sprintf("bytecode: CompareArgCount on %v at %d", in.Op, in.IP))
}
