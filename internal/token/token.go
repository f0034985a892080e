// Package token defines the lexical token kinds produced by the Tenuto
// lexer, along with their source spans.
package token

import "fmt"

// Kind tags the variant of a Token.
type Kind int

const (
	Invalid Kind = iota
	EOF

	// Keywords (case-insensitive in source).
	KwTenuto
	KwMeta
	KwDef
	KwMeasure
	KwGroup
	KwImport
	KwMacro
	KwVar
	KwIf
	KwElse

	// Punctuation.
	LBrace
	RBrace
	LBracket
	RBracket
	LParen
	RParen
	Colon
	Pipe
	Tilde
	Equals
	Comma
	Dot
	Dollar
	Star
	Plus
	Minus
	Slash

	// Compound structure tokens.
	RepeatStart  // |:
	RepeatEnd    // :|
	RepeatDouble // :|:
	DoubleBar    // ||
	FinalBar     // |]

	// Literals.
	Integer
	Float
	StringLit

	// Music primitives.
	DurationLit
	TabLit
	PitchLit

	// Fallback and sentinels.
	Identifier
	InvalidComment
)

var kindNames = map[Kind]string{
	Invalid:        "Invalid",
	EOF:            "EOF",
	KwTenuto:       "KwTenuto",
	KwMeta:         "KwMeta",
	KwDef:          "KwDef",
	KwMeasure:      "KwMeasure",
	KwGroup:        "KwGroup",
	KwImport:       "KwImport",
	KwMacro:        "KwMacro",
	KwVar:          "KwVar",
	KwIf:           "KwIf",
	KwElse:         "KwElse",
	LBrace:         "LBrace",
	RBrace:         "RBrace",
	LBracket:       "LBracket",
	RBracket:       "RBracket",
	LParen:         "LParen",
	RParen:         "RParen",
	Colon:          "Colon",
	Pipe:           "Pipe",
	Tilde:          "Tilde",
	Equals:         "Equals",
	Comma:          "Comma",
	Dot:            "Dot",
	Dollar:         "Dollar",
	Star:           "Star",
	Plus:           "Plus",
	Minus:          "Minus",
	Slash:          "Slash",
	RepeatStart:    "RepeatStart",
	RepeatEnd:      "RepeatEnd",
	RepeatDouble:   "RepeatDouble",
	DoubleBar:      "DoubleBar",
	FinalBar:       "FinalBar",
	Integer:        "Integer",
	Float:          "Float",
	StringLit:      "StringLit",
	DurationLit:    "DurationLit",
	TabLit:         "TabLit",
	PitchLit:       "PitchLit",
	Identifier:     "Identifier",
	InvalidComment: "InvalidComment",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Keywords maps lower-cased keyword text to its Kind. Matching against
// this table must happen case-insensitively and before identifiers are
// considered.
var Keywords = map[string]Kind{
	"tenuto":  KwTenuto,
	"meta":    KwMeta,
	"def":     KwDef,
	"measure": KwMeasure,
	"group":   KwGroup,
	"import":  KwImport,
	"macro":   KwMacro,
	"var":     KwVar,
	"if":      KwIf,
	"else":    KwElse,
}

// Span identifies a half-open byte range [Start, End) in the source text.
type Span struct {
	Start int
	End   int
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// Token is a tagged variant carrying its source span and, for literal and
// music-primitive kinds, its raw textual payload.
type Token struct {
	Kind Kind
	Text string // raw source text; holds literal payloads verbatim
	Int  int64  // populated when Kind == Integer
	Span Span
}

func (t Token) String() string {
	if t.Text != "" {
		return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Text, t.Span)
	}
	return fmt.Sprintf("%s@%s", t.Kind, t.Span)
}
