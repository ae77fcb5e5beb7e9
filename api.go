// Package regexvm houses the bytecode toolchain of a backtracking
// regular-expression engine: the flat instruction encoding, the
// code-generation helpers for alternations and character classes, and
// the optimization pipeline that rewrites compiled programs before the
// VM runs them.
//
// The typical flow is:
//
//	var prog bytecode.Program
//	// ... front end emits instructions, using optimize.AppendAlternation
//	// and optimize.AppendCharacterClass for its composite constructs ...
//	optimized, data := regexvm.Optimize(&prog)
//
// Optimize never changes the language a program matches; it only makes
// matching cheaper. The returned analysis data carries the facts the
// matcher can use to skip work: required starting ranges, a line-start
// anchor, a pure literal equivalent, and a literal prefilter.
package regexvm

import (
	"github.com/coregx/regexvm/bytecode"
	"github.com/coregx/regexvm/optimize"
)

// Optimize runs the full optimization pipeline on prog and returns the
// rewritten program with its analysis data. The input program is
// consumed and must not be used afterwards.
func Optimize(prog *bytecode.Program) (*bytecode.Program, *optimize.Data) {
	return optimize.Run(prog)
}
