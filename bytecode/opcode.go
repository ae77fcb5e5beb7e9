package bytecode

import "fmt"

// Word is a single bytecode value. Instructions and their operands are
// encoded as a flat sequence of words; signed jump offsets are stored in
// two's complement form.
type Word uint64

// OpCode identifies a single VM instruction.
type OpCode Word

// The full opcode set executed by the matching VM. The optimizer never
// adds to this set; it only rewrites programs built from it.
const (
	OpCompare OpCode = iota
	OpJump
	OpJumpNonEmpty
	OpForkJump
	OpForkStay
	OpForkReplaceJump
	OpForkReplaceStay
	OpForkIf
	OpFailForks
	OpPopSaved
	OpSaveLeftCaptureGroup
	OpSaveRightCaptureGroup
	OpSaveRightNamedCaptureGroup
	OpSeekTo
	OpCheckBegin
	OpCheckEnd
	OpCheckBoundary
	OpSave
	OpRestore
	OpGoBack
	OpClearCaptureGroup
	OpRepeat
	OpResetRepeat
	OpCheckpoint
	OpFailIfEmpty
	OpCompareSimple
	OpExit

	opCount
)

// ForkIfCondition is the condition operand of a ForkIf instruction.
type ForkIfCondition Word

const (
	// ForkIfAtStartOfLine takes the fork only at a line start.
	ForkIfAtStartOfLine ForkIfCondition = iota

	// ForkIfInvalid marks an absent condition. Must remain last.
	ForkIfInvalid
)

// opMeta describes the fixed decode shape of one opcode.
type opMeta struct {
	name string

	// width is the fixed instruction width in words, or 0 when the width
	// depends on the operands (Compare and CompareSimple).
	width int

	// hasJump marks opcodes whose operand word 1 is a relative jump
	// offset. backward marks the counted-repeat convention where the
	// offset is measured backward from the current instruction rather
	// than forward from the next one.
	hasJump  bool
	backward bool
}

var opMetaTable = [opCount]opMeta{
	OpCompare:                    {name: "Compare"},
	OpJump:                       {name: "Jump", width: 2, hasJump: true},
	OpJumpNonEmpty:               {name: "JumpNonEmpty", width: 4, hasJump: true},
	OpForkJump:                   {name: "ForkJump", width: 2, hasJump: true},
	OpForkStay:                   {name: "ForkStay", width: 2, hasJump: true},
	OpForkReplaceJump:            {name: "ForkReplaceJump", width: 2, hasJump: true},
	OpForkReplaceStay:            {name: "ForkReplaceStay", width: 2, hasJump: true},
	OpForkIf:                     {name: "ForkIf", width: 4, hasJump: true},
	OpFailForks:                  {name: "FailForks", width: 1},
	OpPopSaved:                   {name: "PopSaved", width: 1},
	OpSaveLeftCaptureGroup:       {name: "SaveLeftCaptureGroup", width: 2},
	OpSaveRightCaptureGroup:      {name: "SaveRightCaptureGroup", width: 2},
	OpSaveRightNamedCaptureGroup: {name: "SaveRightNamedCaptureGroup", width: 3},
	OpSeekTo:                     {name: "SeekTo", width: 2},
	OpCheckBegin:                 {name: "CheckBegin", width: 1},
	OpCheckEnd:                   {name: "CheckEnd", width: 1},
	OpCheckBoundary:              {name: "CheckBoundary", width: 2},
	OpSave:                       {name: "Save", width: 1},
	OpRestore:                    {name: "Restore", width: 1},
	OpGoBack:                     {name: "GoBack", width: 2},
	OpClearCaptureGroup:          {name: "ClearCaptureGroup", width: 2},
	OpRepeat:                     {name: "Repeat", width: 4, hasJump: true, backward: true},
	OpResetRepeat:                {name: "ResetRepeat", width: 2},
	OpCheckpoint:                 {name: "Checkpoint", width: 2},
	OpFailIfEmpty:                {name: "FailIfEmpty", width: 1},
	OpCompareSimple:              {name: "CompareSimple"},
	OpExit:                       {name: "Exit", width: 1},
}

// Valid reports whether op is a known opcode.
func (op OpCode) Valid() bool {
	return op < opCount
}

// String returns the opcode mnemonic.
func (op OpCode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("OpCode(%d)", Word(op))
	}
	return opMetaTable[op].name
}

// HasJump reports whether the instruction carries a relative jump offset
// in its first operand word.
func (op OpCode) HasJump() bool {
	return op.Valid() && opMetaTable[op].hasJump
}

// JumpIsBackward reports whether the jump offset uses the counted-repeat
// convention: measured backward from the current instruction address
// instead of forward from the next instruction.
func (op OpCode) JumpIsBackward() bool {
	return op.Valid() && opMetaTable[op].backward
}

// IsFork reports whether the instruction creates a backtracking
// alternative.
func (op OpCode) IsFork() bool {
	switch op {
	case OpForkJump, OpForkStay, OpForkReplaceJump, OpForkReplaceStay, OpForkIf:
		return true
	}
	return false
}
