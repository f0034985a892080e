// Package compiler wires the lexer, parser, inference engine, and MIDI
// encoder into the two entry points the driver needs: Compile turns
// source text into a Timeline, Export turns a Timeline into Standard
// MIDI File bytes.
package compiler

import (
	"fmt"

	"github.com/alec-borman/tenutoc/internal/diag"
	"github.com/alec-borman/tenutoc/internal/lexer"
	"github.com/alec-borman/tenutoc/internal/linearize"
	"github.com/alec-borman/tenutoc/internal/midiexport"
	"github.com/alec-borman/tenutoc/internal/parser"
	"github.com/alec-borman/tenutoc/internal/timeline"
)

// Options controls how diagnostics are treated during Compile.
type Options struct {
	// Strict promotes recoverable (E-prefixed) diagnostics to fatal:
	// any lexer or parser diagnostic aborts the compile instead of
	// being collected and carried through.
	Strict bool
}

// Result bundles the outcome of a Compile call: the linearized timeline
// (nil if compilation did not reach that stage) and every diagnostic
// accumulated across the stages that ran, in stage order.
type Result struct {
	Timeline    *timeline.Timeline
	Diagnostics []diag.Diagnostic
}

// Compile runs the lex -> parse -> linearize pipeline over source. It
// never returns a non-nil error for recoverable diagnostics; those are
// attached to Result.Diagnostics. A non-nil error indicates a fatal
// condition: a missing `tenuto { ... }` wrapper, an internal
// linearizer bug, or (in strict mode) any lexer or parser diagnostic.
// Recoverable linearizer diagnostics (E3002, E3003) are collected in
// both modes.
func Compile(source string, opts Options) (Result, error) {
	var res Result

	toks, lexDiags := lexer.Lex(source)
	res.Diagnostics = append(res.Diagnostics, lexDiags...)
	if opts.Strict && len(lexDiags) > 0 {
		return res, fmt.Errorf("compiler: %d lexical diagnostic(s) in strict mode", len(lexDiags))
	}

	score, parseDiags := parser.Parse(lexer.StripSentinels(toks))
	res.Diagnostics = append(res.Diagnostics, parseDiags...)
	if score == nil {
		return res, fmt.Errorf("compiler: fatal parse failure: %s", firstMessage(parseDiags))
	}
	if opts.Strict && len(parseDiags) > 0 {
		return res, fmt.Errorf("compiler: %d parse diagnostic(s) in strict mode", len(parseDiags))
	}

	tl, linDiags := linearize.Linearize(score)
	res.Diagnostics = append(res.Diagnostics, linDiags...)
	if tl == nil {
		return res, fmt.Errorf("compiler: fatal linearization failure: %s", firstMessage(linDiags))
	}
	res.Timeline = tl
	return res, nil
}

// Export renders tl as Standard MIDI File bytes. A write/encoding
// failure here is always fatal (F9001-class), per the encoder stage's
// error handling design.
func Export(tl *timeline.Timeline) ([]byte, error) {
	data, err := midiexport.Export(tl)
	if err != nil {
		return nil, fmt.Errorf("compiler: %w", err)
	}
	return data, nil
}

func firstMessage(diags []diag.Diagnostic) string {
	if len(diags) == 0 {
		return "no diagnostic detail available"
	}
	return diags[0].String()
}
