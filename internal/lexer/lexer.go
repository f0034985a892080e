// Package lexer tokenizes Tenuto source text. It is a hand-rolled,
// single-pass scanner with ordered-priority disambiguation: compound
// punctuation before single characters, keywords before identifiers,
// and music primitives (PitchLit, DurationLit, TabLit) before the
// generic Identifier fallback.
package lexer

import (
	"strconv"
	"strings"

	"github.com/alec-borman/tenutoc/internal/diag"
	"github.com/alec-borman/tenutoc/internal/token"
)

// pitchAccidentals lists accidental suffixes in longest-first order so the
// scanner greedily consumes "tqs"/"tqf"/"bb"/"qs"/"qf" before falling back
// to the single-character "#"/"b"/"n"/"x" forms.
var pitchAccidentals = []string{"tqs", "tqf", "bb", "qs", "qf", "#", "b", "n", "x"}

// Lex tokenizes src in a single pass. The returned stream still carries
// the InvalidComment and Invalid sentinels for C-style comments and
// unrecognized character sequences; parsing consumers must strip them
// first (StripSentinels), reporting the accompanying diagnostics, which
// are returned alongside in source order. Diagnostics are fatal under
// strict mode.
func Lex(src string) ([]token.Token, []diag.Diagnostic) {
	l := &lexer{src: src}
	var toks []token.Token
	var diags []diag.Diagnostic

	for {
		l.skipWhitespaceAndComments()
		if l.pos >= len(l.src) {
			break
		}
		tok, d := l.next()
		if d != nil {
			diags = append(diags, *d)
		}
		toks = append(toks, tok)
	}
	return toks, diags
}

// StripSentinels returns toks without the InvalidComment and Invalid
// occurrences the lexer leaves in place for downstream flagging. The
// driver calls this between lexing and parsing.
func StripSentinels(toks []token.Token) []token.Token {
	out := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind == token.Invalid || t.Kind == token.InvalidComment {
			continue
		}
		out = append(out, t)
	}
	return out
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case ' ', '\t', '\r', '\n', '\f':
			l.pos++
			continue
		}
		if strings.HasPrefix(l.src[l.pos:], "%%") {
			l.pos += 2
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		break
	}
}

// next scans exactly one token starting at l.pos, which must not be
// whitespace or the start of a line comment. Anomalies (C-style
// comments, unrecognized characters, unterminated strings) produce a
// sentinel token left in the stream alongside a diagnostic describing
// the problem.
func (l *lexer) next() (token.Token, *diag.Diagnostic) {
	start := l.pos
	rest := l.src[l.pos:]
	c := rest[0]

	// C-style comments are an explicit rejection, not a silent skip.
	if strings.HasPrefix(rest, "//") {
		end := strings.IndexByte(rest, '\n')
		var text string
		if end < 0 {
			text = rest
		} else {
			text = rest[:end]
		}
		l.pos += len(text)
		span := token.Span{Start: start, End: l.pos}
		tok := token.Token{Kind: token.InvalidComment, Text: text, Span: span}
		return tok, &diag.Diagnostic{
			Code: "E1001", Span: span,
			Message: "C-style comment is not accepted by Tenuto source",
		}
	}

	// Compound punctuation before single-character punctuation.
	if c == ':' {
		if strings.HasPrefix(rest, ":|:") {
			return l.emit(token.RepeatDouble, start, 3), nil
		}
		if strings.HasPrefix(rest, ":|") {
			return l.emit(token.RepeatEnd, start, 2), nil
		}
		if n := matchDuration(rest); n > 0 {
			return l.emitText(token.DurationLit, start, n), nil
		}
		return l.emit(token.Colon, start, 1), nil
	}
	if c == '|' {
		if strings.HasPrefix(rest, "|:") {
			return l.emit(token.RepeatStart, start, 2), nil
		}
		if strings.HasPrefix(rest, "|]") {
			return l.emit(token.FinalBar, start, 2), nil
		}
		if strings.HasPrefix(rest, "||") {
			return l.emit(token.DoubleBar, start, 2), nil
		}
		return l.emit(token.Pipe, start, 1), nil
	}

	switch c {
	case '{':
		return l.emit(token.LBrace, start, 1), nil
	case '}':
		return l.emit(token.RBrace, start, 1), nil
	case '[':
		return l.emit(token.LBracket, start, 1), nil
	case ']':
		return l.emit(token.RBracket, start, 1), nil
	case '(':
		return l.emit(token.LParen, start, 1), nil
	case ')':
		return l.emit(token.RParen, start, 1), nil
	case '~':
		return l.emit(token.Tilde, start, 1), nil
	case '=':
		return l.emit(token.Equals, start, 1), nil
	case ',':
		return l.emit(token.Comma, start, 1), nil
	case '.':
		return l.emit(token.Dot, start, 1), nil
	case '$':
		return l.emit(token.Dollar, start, 1), nil
	case '*':
		return l.emit(token.Star, start, 1), nil
	case '+':
		return l.emit(token.Plus, start, 1), nil
	case '-':
		return l.emit(token.Minus, start, 1), nil
	case '/':
		return l.emit(token.Slash, start, 1), nil
	case '"':
		return l.scanString(start)
	}

	if isDigit(c) {
		return l.scanNumberOrTab(start)
	}

	if isIdentStart(c) {
		return l.scanWordOrPitch(start)
	}

	// Unrecognized character sequence.
	l.pos++
	span := token.Span{Start: start, End: l.pos}
	tok := token.Token{Kind: token.Invalid, Text: l.src[start:l.pos], Span: span}
	return tok, &diag.Diagnostic{
		Code: "E1001", Span: span,
		Message: "unrecognized character",
	}
}

func (l *lexer) emit(kind token.Kind, start, n int) token.Token {
	l.pos = start + n
	return token.Token{Kind: kind, Span: token.Span{Start: start, End: l.pos}}
}

func (l *lexer) emitText(kind token.Kind, start, n int) token.Token {
	tok := l.emit(kind, start, n)
	tok.Text = l.src[start:l.pos]
	return tok
}

func (l *lexer) scanString(start int) (token.Token, *diag.Diagnostic) {
	i := start + 1
	for i < len(l.src) {
		switch l.src[i] {
		case '\\':
			if i+1 < len(l.src) {
				i += 2
				continue
			}
			i++
		case '"':
			text := l.src[start+1 : i]
			l.pos = i + 1
			tok := token.Token{Kind: token.StringLit, Text: text, Span: token.Span{Start: start, End: l.pos}}
			return tok, nil
		default:
			i++
		}
	}
	l.pos = len(l.src)
	span := token.Span{Start: start, End: l.pos}
	tok := token.Token{Kind: token.Invalid, Text: l.src[start:], Span: span}
	return tok, &diag.Diagnostic{
		Code: "E1001", Span: span,
		Message: "unterminated string literal",
	}
}

// scanNumberOrTab handles the three patterns that begin with a digit:
// TabLit ("N-N"), Float ("N.N"), and plain Integer, in that priority
// order since a successful Tab or Float match always consumes strictly
// more input than the bare integer run.
func (l *lexer) scanNumberOrTab(start int) (token.Token, *diag.Diagnostic) {
	rest := l.src[start:]
	if n := matchTab(rest); n > 0 {
		return l.emitText(token.TabLit, start, n), nil
	}
	if n := matchFloat(rest); n > 0 {
		return l.emitText(token.Float, start, n), nil
	}
	n := digitRun(rest)
	tok := l.emitText(token.Integer, start, n)
	v, _ := strconv.ParseInt(tok.Text, 10, 64)
	tok.Int = v
	return tok, nil
}

// scanWordOrPitch resolves the keyword/pitch/identifier ambiguity by
// maximal munch: the token boundary is the longer of the identifier run
// and the pitch-literal match, with keywords checked first (exact,
// case-insensitive) and PitchLit preferred over Identifier on a tie.
func (l *lexer) scanWordOrPitch(start int) (token.Token, *diag.Diagnostic) {
	rest := l.src[start:]
	identLen := identRun(rest)
	pitchLen := matchPitch(rest)

	boundary := identLen
	if pitchLen > boundary {
		boundary = pitchLen
	}

	text := rest[:boundary]
	if boundary == identLen {
		if kind, ok := token.Keywords[strings.ToLower(text)]; ok {
			return l.emit(kind, start, boundary), nil
		}
	}
	if pitchLen == boundary {
		return l.emitText(token.PitchLit, start, boundary), nil
	}
	return l.emitText(token.Identifier, start, boundary), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func digitRun(s string) int {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return i
}

func identRun(s string) int {
	if len(s) == 0 || !isIdentStart(s[0]) {
		return 0
	}
	i := 1
	for i < len(s) && isIdentCont(s[i]) {
		i++
	}
	return i
}

// matchTab matches "[0-9]+-[0-9]+" and returns the matched length, or 0.
func matchTab(s string) int {
	n := digitRun(s)
	if n == 0 || n >= len(s) || s[n] != '-' {
		return 0
	}
	m := digitRun(s[n+1:])
	if m == 0 {
		return 0
	}
	return n + 1 + m
}

// matchFloat matches "[0-9]+\.[0-9]+" and returns the matched length, or 0.
func matchFloat(s string) int {
	n := digitRun(s)
	if n == 0 || n >= len(s) || s[n] != '.' {
		return 0
	}
	m := digitRun(s[n+1:])
	if m == 0 {
		return 0
	}
	return n + 1 + m
}

// matchPitch matches "[a-g](accidental)?[0-9]?" (case-insensitive on the
// step letter) and returns the matched length, or 0 if s does not begin
// with a step letter.
func matchPitch(s string) int {
	if len(s) == 0 {
		return 0
	}
	lead := lower(s[0])
	if lead < 'a' || lead > 'g' {
		return 0
	}
	n := 1
	for _, acc := range pitchAccidentals {
		if hasPrefixFold(s[n:], acc) {
			n += len(acc)
			break
		}
	}
	if n < len(s) && isDigit(s[n]) {
		n++
	}
	return n
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if lower(s[i]) != lower(prefix[i]) {
			return false
		}
	}
	return true
}

// matchDuration matches ":[0-9]+(\.)*" and returns the matched length
// (including the leading colon), or 0.
func matchDuration(s string) int {
	if len(s) == 0 || s[0] != ':' {
		return 0
	}
	n := 1 + digitRun(s[1:])
	if n == 1 {
		return 0
	}
	for n < len(s) && s[n] == '.' {
		n++
	}
	return n
}
