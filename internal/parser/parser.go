// Package parser implements a hand-rolled recursive-descent parser over
// the Tenuto token stream, producing an ast.Score. It accumulates
// errors rather than failing outright: Parse returns a partial AST
// alongside the collected diagnostics, resynchronizing at block
// boundaries after a malformed construct.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alec-borman/tenutoc/internal/ast"
	"github.com/alec-borman/tenutoc/internal/diag"
	"github.com/alec-borman/tenutoc/internal/token"
)

// Parse consumes tok, a token stream already filtered of InvalidComment
// and lexical-error sentinels, and returns the parsed Score together
// with every parse error encountered. A missing `tenuto { ... }` wrapper
// is a fatal structural error: Parse returns a nil Score in that case,
// with the diagnostic describing why.
func Parse(tok []token.Token) (*ast.Score, []diag.Diagnostic) {
	p := &parser{toks: tok}
	return p.parseScore()
}

type parser struct {
	toks []token.Token
	pos  int
	diag []diag.Diagnostic
}

func (p *parser) errorf(span token.Span, format string, args ...interface{}) {
	p.diag = append(p.diag, diag.Diagnostic{
		Code: "E2001", Span: span, Message: fmt.Sprintf(format, args...),
	})
}

func (p *parser) peek() token.Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	end := 0
	if len(p.toks) > 0 {
		end = p.toks[len(p.toks)-1].Span.End
	}
	return token.Token{Kind: token.EOF, Span: token.Span{Start: end, End: end}}
}

func (p *parser) peekAt(offset int) token.Token {
	if p.pos+offset < len(p.toks) {
		return p.toks[p.pos+offset]
	}
	return token.Token{Kind: token.EOF}
}

func (p *parser) at(k token.Kind) bool { return p.peek().Kind == k }

func (p *parser) advance() token.Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

// expect consumes the current token if it matches k, recording a
// diagnostic and leaving the cursor unmoved otherwise.
func (p *parser) expect(k token.Kind, context string) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	got := p.peek()
	p.errorf(got.Span, "expected %s in %s, found %s", k, context, got.Kind)
	return got, false
}

func (p *parser) parseScore() (*ast.Score, []diag.Diagnostic) {
	if !p.at(token.KwTenuto) {
		got := p.peek()
		p.errorf(got.Span, "source must begin with 'tenuto { ... }', found %s", got.Kind)
		return nil, p.diag
	}
	p.advance()
	if _, ok := p.expect(token.LBrace, "score"); !ok {
		return nil, p.diag
	}

	score := &ast.Score{}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		item, ok := p.parseTopLevel()
		if ok {
			score.Items = append(score.Items, item)
		} else {
			p.recoverTo(token.KwMeta, token.KwDef, token.KwMeasure, token.KwImport, token.RBrace)
		}
	}
	p.expect(token.RBrace, "score")
	return score, p.diag
}

// recoverTo advances past the current token until one of the given
// kinds (or EOF) is reached, so a single malformed top-level item does
// not stall the whole parse.
func (p *parser) recoverTo(kinds ...token.Kind) {
	if p.at(token.EOF) {
		return
	}
	p.advance()
	for !p.at(token.EOF) {
		for _, k := range kinds {
			if p.at(k) {
				return
			}
		}
		p.advance()
	}
}

func (p *parser) parseTopLevel() (ast.TopLevel, bool) {
	switch p.peek().Kind {
	case token.KwMeta:
		return p.parseMeta()
	case token.KwDef:
		return p.parseDef()
	case token.KwMeasure:
		return p.parseMeasure()
	case token.KwImport:
		return p.parseImport()
	default:
		got := p.peek()
		p.errorf(got.Span, "expected meta/def/measure/import, found %s", got.Kind)
		return nil, false
	}
}

func (p *parser) parseMeta() (ast.Meta, bool) {
	p.advance() // 'meta'
	if _, ok := p.expect(token.LBrace, "meta block"); !ok {
		return ast.Meta{}, false
	}
	var entries []ast.KeyValue
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		kv, ok := p.parseKeyValue()
		if !ok {
			p.recoverTo(token.Comma, token.RBrace)
			if p.at(token.Comma) {
				p.advance()
			}
			continue
		}
		entries = append(entries, kv)
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RBrace, "meta block")
	return ast.Meta{Entries: entries}, true
}

func (p *parser) parseKeyValue() (ast.KeyValue, bool) {
	key, ok := p.expect(token.Identifier, "key/value entry")
	if !ok {
		return ast.KeyValue{}, false
	}
	// "tempo:150" glues the colon onto the number as a DurationLit;
	// unglue it back into the integer value the grammar means.
	if p.at(token.DurationLit) {
		lit := p.peek()
		if n, err := strconv.ParseInt(strings.TrimPrefix(lit.Text, ":"), 10, 64); err == nil {
			p.advance()
			return ast.KeyValue{Key: key.Text, Value: ast.Num(n)}, true
		}
	}
	if _, ok := p.expect(token.Colon, "key/value entry"); !ok {
		return ast.KeyValue{}, false
	}
	val, ok := p.parseValue()
	if !ok {
		return ast.KeyValue{}, false
	}
	return ast.KeyValue{Key: key.Text, Value: val}, true
}

func (p *parser) parseValue() (ast.Value, bool) {
	t := p.peek()
	switch t.Kind {
	case token.StringLit:
		p.advance()
		return ast.Str(t.Text), true
	case token.Integer:
		p.advance()
		return ast.Num(t.Int), true
	case token.Float:
		f, _ := strconv.ParseFloat(t.Text, 64)
		p.advance()
		return ast.Flt(f), true
	case token.Identifier:
		p.advance()
		return ast.Id(t.Text), true
	default:
		p.errorf(t.Span, "expected string/float/integer/identifier value, found %s", t.Kind)
		return nil, false
	}
}

func (p *parser) parseDef() (ast.Def, bool) {
	p.advance() // 'def'
	id, ok := p.expect(token.Identifier, "def")
	if !ok {
		return ast.Def{}, false
	}
	d := ast.Def{ID: id.Text}
	if p.at(token.StringLit) {
		d.Label = p.advance().Text
	}
	for p.at(token.Identifier) && p.peekAt(1).Kind == token.Equals {
		name := p.advance().Text
		p.advance() // '='
		val, ok := p.parseValue()
		if !ok {
			break
		}
		d.Attributes = append(d.Attributes, ast.Attribute{Name: name, Args: []ast.Value{val}})
	}
	return d, true
}

func (p *parser) parseImport() (ast.Import, bool) {
	p.advance() // 'import'
	lit, ok := p.expect(token.StringLit, "import")
	if !ok {
		return ast.Import{}, false
	}
	return ast.Import{Path: lit.Text}, true
}

func (p *parser) parseMeasure() (ast.Measure, bool) {
	p.advance() // 'measure'
	m := ast.Measure{}
	if p.at(token.Integer) {
		m.Number = int(p.advance().Int)
		m.HasNumber = true
	}
	if _, ok := p.expect(token.LBrace, "measure block"); !ok {
		return m, false
	}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		stmt, ok := p.parseStatement()
		if !ok {
			p.recoverTo(token.KwMeta, token.Identifier, token.RBrace)
			continue
		}
		m.Statements = append(m.Statements, stmt)
	}
	p.expect(token.RBrace, "measure block")
	return m, true
}

func (p *parser) parseStatement() (ast.Statement, bool) {
	switch {
	case p.at(token.KwMeta):
		meta, ok := p.parseMeta()
		if !ok {
			return nil, false
		}
		return ast.LocalMeta{Entries: meta.Entries}, true
	case p.at(token.Identifier) && p.peekAt(1).Kind == token.Colon:
		return p.parseAssignment()
	default:
		got := p.peek()
		p.errorf(got.Span, "expected assignment or meta block, found %s", got.Kind)
		return nil, false
	}
}

func (p *parser) parseAssignment() (ast.Assignment, bool) {
	staff := p.advance() // identifier
	p.advance()          // ':'
	a := ast.Assignment{StaffID: staff.Text}

	voice, ok := p.parseVoice()
	if !ok {
		return a, false
	}
	a.Voices = append(a.Voices, voice)

	for p.at(token.Pipe) {
		if !p.startsEventAt(1) {
			p.advance() // consume the trailing '|' and stop: assignment := ... '|'?
			break
		}
		p.advance() // '|'
		voice, ok := p.parseVoice()
		if !ok {
			break
		}
		a.Voices = append(a.Voices, voice)
	}
	return a, true
}

// startsEventAt reports whether the token at the given offset from the
// cursor begins another event in the current voice. An Identifier
// followed by ':' is the staff id of the next statement, not a
// percussion event; anything else that isn't an event-opening token
// (including '}', ')', EOF, or a 'meta' keyword starting the next
// statement) ends the voice instead.
func (p *parser) startsEventAt(offset int) bool {
	switch p.peekAt(offset).Kind {
	case token.LParen, token.LBracket, token.PitchLit, token.TabLit:
		return true
	case token.Identifier:
		return p.peekAt(offset+1).Kind != token.Colon
	default:
		return false
	}
}

func (p *parser) startsEvent() bool { return p.startsEventAt(0) }

func (p *parser) parseVoice() (ast.Voice, bool) {
	var v ast.Voice
	for p.startsEvent() {
		ev, ok := p.parseEvent()
		if !ok {
			return v, false
		}
		v.Events = append(v.Events, ev)
	}
	return v, true
}

// parseEvent tries alternatives in fixed order:
// tuplet -> rest -> chord -> note -> tab -> percussion.
func (p *parser) parseEvent() (ast.Event, bool) {
	switch p.peek().Kind {
	case token.LParen:
		return p.parseTuplet()
	case token.LBracket:
		return p.parseChord()
	case token.PitchLit:
		return p.parseNote()
	case token.TabLit:
		return p.parseTab()
	case token.Identifier:
		if p.peek().Text == "r" {
			return p.parseRest()
		}
		return p.parsePercussion()
	default:
		got := p.peek()
		p.errorf(got.Span, "expected an event, found %s", got.Kind)
		return nil, false
	}
}

func (p *parser) parseTuplet() (ast.Tuplet, bool) {
	p.advance() // '('
	content, ok := p.parseVoice()
	if !ok {
		return ast.Tuplet{}, false
	}
	if _, ok := p.expect(token.RParen, "tuplet"); !ok {
		return ast.Tuplet{}, false
	}
	// The ratio's ":p" arrives as a DurationLit when the colon abuts the
	// numerator (the lexer matches ":3" before a bare ':'), and as
	// Colon + Integer when the source spaces them out. Accept both.
	var numerator int64
	switch {
	case p.at(token.DurationLit):
		lit := p.advance()
		n, err := strconv.ParseInt(strings.TrimPrefix(lit.Text, ":"), 10, 64)
		if err != nil {
			p.errorf(lit.Span, "tuplet ratio numerator must be an integer, found %q", lit.Text)
			return ast.Tuplet{}, false
		}
		numerator = n
	case p.at(token.Colon):
		p.advance()
		pTok, ok := p.expect(token.Integer, "tuplet ratio numerator")
		if !ok {
			return ast.Tuplet{}, false
		}
		numerator = pTok.Int
	default:
		got := p.peek()
		p.errorf(got.Span, "expected ':' starting a tuplet ratio, found %s", got.Kind)
		return ast.Tuplet{}, false
	}
	if _, ok := p.expect(token.Slash, "tuplet ratio"); !ok {
		return ast.Tuplet{}, false
	}
	qTok, ok := p.expect(token.Integer, "tuplet ratio denominator")
	if !ok {
		return ast.Tuplet{}, false
	}
	return ast.Tuplet{Content: content, P: numerator, Q: qTok.Int}, true
}

func (p *parser) parseChord() (ast.Chord, bool) {
	p.advance() // '['
	var notes []string
	for p.at(token.PitchLit) {
		notes = append(notes, p.advance().Text)
	}
	if len(notes) == 0 {
		got := p.peek()
		p.errorf(got.Span, "chord requires at least one pitch, found %s", got.Kind)
		return ast.Chord{}, false
	}
	if _, ok := p.expect(token.RBracket, "chord"); !ok {
		return ast.Chord{}, false
	}
	c := ast.Chord{Notes: notes}
	if p.at(token.DurationLit) {
		c.Duration = p.advance().Text
	}
	c.Attributes = p.parseAttributes()
	return c, true
}

func (p *parser) parseNote() (ast.Note, bool) {
	pitch := p.advance()
	n := ast.Note{Pitch: pitch.Text}
	if p.at(token.DurationLit) {
		n.Duration = p.advance().Text
	}
	n.Attributes = p.parseAttributes()
	return n, true
}

func (p *parser) parseRest() (ast.Rest, bool) {
	p.advance() // identifier "r"
	r := ast.Rest{}
	if p.at(token.DurationLit) {
		r.Duration = p.advance().Text
	}
	return r, true
}

func (p *parser) parseTab() (ast.Tab, bool) {
	lit := p.advance()
	fret, str := splitTab(lit.Text)
	tab := ast.Tab{Fret: fret, String: str}
	if p.at(token.DurationLit) {
		tab.Duration = p.advance().Text
	}
	tab.Attributes = p.parseAttributes()
	return tab, true
}

func (p *parser) parsePercussion() (ast.Percussion, bool) {
	id := p.advance()
	perc := ast.Percussion{Key: id.Text}
	if p.at(token.DurationLit) {
		perc.Duration = p.advance().Text
	}
	perc.Attributes = p.parseAttributes()
	return perc, true
}

func (p *parser) parseAttributes() []ast.Attribute {
	var attrs []ast.Attribute
	for p.at(token.Dot) {
		p.advance()
		name, ok := p.expect(token.Identifier, "attribute")
		if !ok {
			break
		}
		attr := ast.Attribute{Name: name.Text}
		if p.at(token.LParen) {
			p.advance()
			for !p.at(token.RParen) && !p.at(token.EOF) {
				val, ok := p.parseValue()
				if !ok {
					break
				}
				attr.Args = append(attr.Args, val)
				if p.at(token.Comma) {
					p.advance()
					continue
				}
				break
			}
			p.expect(token.RParen, "attribute arguments")
		}
		attrs = append(attrs, attr)
	}
	return attrs
}

// splitTab parses a "N-N" TabLit payload into its fret/string pair.
func splitTab(text string) (fret, str int64) {
	for i := 0; i < len(text); i++ {
		if text[i] == '-' {
			f, _ := strconv.ParseInt(text[:i], 10, 64)
			s, _ := strconv.ParseInt(text[i+1:], 10, 64)
			return f, s
		}
	}
	return 0, 0
}
