package uniprop

import (
	"unicode"

	"github.com/coregx/regexvm/bytecode"
)

func isASCIIDigit(cp rune) bool  { return cp >= '0' && cp <= '9' }
func isASCIIUpper(cp rune) bool  { return cp >= 'A' && cp <= 'Z' }
func isASCIILower(cp rune) bool  { return cp >= 'a' && cp <= 'z' }
func isASCIIAlpha(cp rune) bool  { return isASCIIUpper(cp) || isASCIILower(cp) }
func isASCIIAlnum(cp rune) bool  { return isASCIIAlpha(cp) || isASCIIDigit(cp) }
func isASCIIXdigit(cp rune) bool {
	return isASCIIDigit(cp) || (cp >= 'a' && cp <= 'f') || (cp >= 'A' && cp <= 'F')
}
func isASCIIPrintable(cp rune) bool { return cp >= 0x20 && cp <= 0x7e }

// isSpaceOrLineTerminator matches the VM's [[:space:]] semantics:
// ASCII whitespace, the Unicode line/paragraph separators, the BOM and
// the Zs category.
func isSpaceOrLineTerminator(cp rune) bool {
	switch cp {
	case 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x2028, 0x2029, 0xfeff:
		return true
	}
	return unicode.Is(unicode.Zs, cp)
}

// ClassContains reports whether cp is a member of the POSIX-style
// character class, using the same membership rules as the matching VM.
func ClassContains(class bytecode.CharClass, cp rune) bool {
	switch class {
	case bytecode.ClassAlnum:
		return isASCIIAlnum(cp)
	case bytecode.ClassAlpha:
		return isASCIIAlpha(cp)
	case bytecode.ClassBlank:
		return cp == ' ' || cp == '\t'
	case bytecode.ClassCntrl:
		return (cp >= 0 && cp <= 0x1f) || cp == 0x7f
	case bytecode.ClassDigit:
		return isASCIIDigit(cp)
	case bytecode.ClassGraph:
		return isASCIIPrintable(cp) && cp != ' '
	case bytecode.ClassLower:
		return isASCIILower(cp)
	case bytecode.ClassPrint:
		return isASCIIPrintable(cp)
	case bytecode.ClassPunct:
		return isASCIIPrintable(cp) && cp != ' ' && !isASCIIAlnum(cp)
	case bytecode.ClassSpace:
		return isSpaceOrLineTerminator(cp)
	case bytecode.ClassUpper:
		return isASCIIUpper(cp)
	case bytecode.ClassWord:
		return isASCIIAlnum(cp) || cp == '_'
	case bytecode.ClassXdigit:
		return isASCIIXdigit(cp)
	}
	return false
}
