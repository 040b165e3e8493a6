package parse

// tokKind is the closed set of lexical token kinds produced by the
// lexer, grounded on the teacher's base_parser.go rune-classification
// idiom, generalized from a PEG grammar's terminal set to a Python-style
// indentation-sensitive token stream.
type tokKind uint8

const (
	tokEOF tokKind = iota
	tokNewline
	tokIndent
	tokDedent

	tokName
	tokInt
	tokFloat
	tokString
	tokBytes
	tokFString

	tokKeyword

	// Punctuation/operators.
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokLBrace
	tokRBrace
	tokComma
	tokColon
	tokDot
	tokSemicolonMarker

	tokAssign // =
	tokPlusEq
	tokMinusEq
	tokStarEq
	tokSlashEq
	tokSlashSlashEq
	tokPercentEq

	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokSlashSlash
	tokPercent

	tokEq // ==
	tokNe
	tokLt
	tokLe
	tokGt
	tokGe
)

var keywords = map[string]bool{
	"def": true, "return": true, "if": true, "elif": true, "else": true,
	"while": true, "for": true, "in": true, "not": true, "and": true,
	"or": true, "is": true, "break": true, "continue": true, "pass": true,
	"try": true, "except": true, "finally": true, "raise": true,
	"True": true, "False": true, "None": true, "as": true,
}

// token is one lexical unit. Str/kind carry the interpreted payload for
// literals (Str holds decoded text for tokString/tokBytes, the undecoded
// body for tokFString,
// the identifier/keyword spelling for tokName/tokKeyword).
type token struct {
	kind tokKind
	str  string
	ival int64
	fval float64
	pos  int // byte offset of the token's first byte
	end  int
}
