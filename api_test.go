package regexvm_test

import (
	"testing"

	"github.com/coregx/regexvm"
	"github.com/coregx/regexvm/bytecode"
)

func TestOptimizeLiteralProgram(t *testing.T) {
	prog := bytecode.New(0)
	prog.AppendCompareChar('h')
	prog.AppendCompareChar('i')

	optimized, data := regexvm.Optimize(prog)
	if optimized == nil || data == nil {
		t.Fatal("Optimize returned nil")
	}
	if data.Substring == nil || data.Substring.Literal != "hi" {
		t.Errorf("substring = %+v, want literal \"hi\"", data.Substring)
	}
	if data.Prefilter == nil {
		t.Error("expected a prefilter for the literal program")
	}
}

func TestOptimizePreservesShape(t *testing.T) {
	// a|b as a fork over two compares; nothing here is optimizable, so
	// the program must come back structurally intact.
	prog := bytecode.New(0)
	prog.AppendJump(bytecode.OpForkJump, 5)
	prog.AppendCompareChar('a')
	prog.AppendCompareChar('b')

	optimized, data := regexvm.Optimize(prog)
	if data.Substring != nil {
		t.Errorf("forked program reported as substring search: %+v", data.Substring)
	}
	if optimized.Len() == 0 {
		t.Fatal("optimized program is empty")
	}
	for ip := 0; ip < optimized.Len(); {
		in := optimized.InstAt(ip)
		if !in.Op.Valid() {
			t.Fatalf("invalid opcode at %d\n%s", ip, bytecode.Dump(optimized))
		}
		ip += in.Size
	}
}
