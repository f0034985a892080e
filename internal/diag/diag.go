// Package diag defines the diagnostic record shared by the lexer, parser,
// and pipeline driver, per the error taxonomy in the compiler's design:
// a stable code string ("E"-prefixed recoverable, "F"-prefixed fatal)
// paired with a source span and a human-readable message.
package diag

import (
	"fmt"

	"github.com/alec-borman/tenutoc/internal/token"
)

// Diagnostic is a single recoverable or fatal compiler message.
type Diagnostic struct {
	Code    string
	Span    token.Span
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s at %s: %s", d.Code, d.Span, d.Message)
}

func (d Diagnostic) Error() string { return d.String() }
