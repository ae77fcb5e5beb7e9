// Package uniprop is the character-data layer consumed by the
// optimizer: ASCII case folding, POSIX class membership and Unicode
// general-category/property/script membership tests for single code
// points. The data itself comes from the standard library's unicode
// tables; nothing here computes Unicode data.
package uniprop

import "unicode"

// ToASCIILower maps A-Z to a-z and leaves everything else unchanged.
func ToASCIILower(cp rune) rune {
	if cp >= 'A' && cp <= 'Z' {
		return cp + ('a' - 'A')
	}
	return cp
}

// GeneralCategory identifies a Unicode general category operand value.
type GeneralCategory uint32

const (
	CategoryL GeneralCategory = iota
	CategoryLu
	CategoryLl
	CategoryLt
	CategoryLm
	CategoryLo
	CategoryM
	CategoryN
	CategoryNd
	CategoryNl
	CategoryNo
	CategoryP
	CategoryS
	CategoryZ
	CategoryZs
	CategoryC
	CategoryCc
	CategoryCf
)

var categoryTables = map[GeneralCategory]*unicode.RangeTable{
	CategoryL:  unicode.L,
	CategoryLu: unicode.Lu,
	CategoryLl: unicode.Ll,
	CategoryLt: unicode.Lt,
	CategoryLm: unicode.Lm,
	CategoryLo: unicode.Lo,
	CategoryM:  unicode.M,
	CategoryN:  unicode.N,
	CategoryNd: unicode.Nd,
	CategoryNl: unicode.Nl,
	CategoryNo: unicode.No,
	CategoryP:  unicode.P,
	CategoryS:  unicode.S,
	CategoryZ:  unicode.Z,
	CategoryZs: unicode.Zs,
	CategoryC:  unicode.C,
	CategoryCc: unicode.Cc,
	CategoryCf: unicode.Cf,
}

// CategoryContains reports whether cp has the given general category.
// Unknown category IDs report false.
func CategoryContains(gc GeneralCategory, cp rune) bool {
	t, ok := categoryTables[gc]
	return ok && unicode.Is(t, cp)
}

// Property identifies a binary Unicode property operand value.
type Property uint32

const (
	PropWhiteSpace Property = iota
	PropDash
	PropQuotationMark
	PropTerminalPunctuation
	PropHexDigit
	PropASCIIHexDigit
	PropIdeographic
	PropDiacritic
	PropPatternWhiteSpace
	PropPatternSyntax
)

var propertyTables = map[Property]*unicode.RangeTable{
	PropWhiteSpace:          unicode.White_Space,
	PropDash:                unicode.Dash,
	PropQuotationMark:       unicode.Quotation_Mark,
	PropTerminalPunctuation: unicode.Terminal_Punctuation,
	PropHexDigit:            unicode.Hex_Digit,
	PropASCIIHexDigit:       unicode.ASCII_Hex_Digit,
	PropIdeographic:         unicode.Ideographic,
	PropDiacritic:           unicode.Diacritic,
	PropPatternWhiteSpace:   unicode.Pattern_White_Space,
	PropPatternSyntax:       unicode.Pattern_Syntax,
}

// PropertyContains reports whether cp has the given binary property.
// Unknown property IDs report false.
func PropertyContains(p Property, cp rune) bool {
	t, ok := propertyTables[p]
	return ok && unicode.Is(t, cp)
}

// Script identifies a Unicode script operand value.
type Script uint32

const (
	ScriptCommon Script = iota
	ScriptLatin
	ScriptGreek
	ScriptCyrillic
	ScriptArabic
	ScriptHebrew
	ScriptHan
	ScriptHiragana
	ScriptKatakana
	ScriptHangul
	ScriptThai
	ScriptDevanagari
)

var scriptTables = map[Script]*unicode.RangeTable{
	ScriptCommon:     unicode.Common,
	ScriptLatin:      unicode.Latin,
	ScriptGreek:      unicode.Greek,
	ScriptCyrillic:   unicode.Cyrillic,
	ScriptArabic:     unicode.Arabic,
	ScriptHebrew:     unicode.Hebrew,
	ScriptHan:        unicode.Han,
	ScriptHiragana:   unicode.Hiragana,
	ScriptKatakana:   unicode.Katakana,
	ScriptHangul:     unicode.Hangul,
	ScriptThai:       unicode.Thai,
	ScriptDevanagari: unicode.Devanagari,
}

// ScriptContains reports whether cp belongs to the given script.
// Unknown script IDs report false.
func ScriptContains(s Script, cp rune) bool {
	t, ok := scriptTables[s]
	return ok && unicode.Is(t, cp)
}

// ScriptExtensionContains reports whether cp's script extensions include
// the given script. The stdlib tables carry no extension data, so this
// answers with plain script membership; callers treat a positive answer
// as "may overlap", so widening here stays conservative.
func ScriptExtensionContains(s Script, cp rune) bool {
	return ScriptContains(s, cp)
}
