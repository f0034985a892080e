// Package ast defines the structural description of a parsed Tenuto
// score: the tree the parser builds and the inference engine walks.
package ast

import "github.com/alec-borman/tenutoc/internal/token"

// Score is the root of a parsed source file.
type Score struct {
	Items []TopLevel
}

// TopLevel is one of Meta, Def, Measure, or Import.
type TopLevel interface{ topLevel() }

// Meta is a `meta { key: value, ... }` block.
type Meta struct {
	Entries []KeyValue
}

// Def is a `def id "label"? attr*` staff declaration.
type Def struct {
	ID         string
	Label      string // empty if absent
	Attributes []Attribute
}

// Measure is a `measure N? { statement* }` block. Number is 0 if absent.
type Measure struct {
	Number     int
	HasNumber  bool
	Statements []Statement
}

// Import is an `import "path"` directive. Parsed but never resolved; the
// linearizer ignores it.
type Import struct {
	Path string
}

func (Meta) topLevel()    {}
func (Def) topLevel()     {}
func (Measure) topLevel() {}
func (Import) topLevel()  {}

// Statement is one of Assignment or LocalMeta, found inside a Measure.
type Statement interface{ statement() }

// Assignment binds one or more parallel Voices to a staff id:
// `staff_id: v1 | v2 | ... |?`.
type Assignment struct {
	StaffID string
	Voices  []Voice
}

// LocalMeta is a `meta { ... }` block nested inside a measure.
type LocalMeta struct {
	Entries []KeyValue
}

func (Assignment) statement() {}
func (LocalMeta) statement()  {}

// Voice is a sequence of events within one `|`-delimited lane.
type Voice struct {
	Events []Event
}

// Event is one of Note, Chord, Rest, Tab, Percussion, or Tuplet.
type Event interface{ event() }

// Note is a single pitched event.
type Note struct {
	Pitch      string
	Duration   string // raw DurationLit text, empty if absent
	Attributes []Attribute
}

// Chord is a simultaneous group of pitches sharing one duration.
type Chord struct {
	Notes      []string
	Duration   string
	Attributes []Attribute
}

// Rest advances the cursor without emitting a timeline event.
type Rest struct {
	Duration string
}

// Tab is a fretted-instrument coordinate event. Parsed but not resolved
// to MIDI by the linearizer.
type Tab struct {
	Fret, String int64
	Duration     string
	Attributes   []Attribute
}

// Percussion is a non-"r" identifier event, resolved by the linearizer
// against the General MIDI drum key map when the name is recognized.
type Percussion struct {
	Key        string
	Duration   string
	Attributes []Attribute
}

// Tuplet scales the effective duration of its contained Voice by q/p:
// "play p notes in the time of q".
type Tuplet struct {
	Content Voice
	P, Q    int64
}

func (Note) event()       {}
func (Chord) event()      {}
func (Rest) event()       {}
func (Tab) event()        {}
func (Percussion) event() {}
func (Tuplet) event()     {}

// Value is a literal argument to an Attribute or the right-hand side of
// a KeyValue.
type Value interface{ value() }

type (
	Str   string
	Num   int64
	Flt   float64
	Id    string
	Array []Value
)

func (Str) value()   {}
func (Num) value()   {}
func (Flt) value()   {}
func (Id) value()    {}
func (Array) value() {}

// Attribute is a `.name(args...)` suffix on an event.
type Attribute struct {
	Name string
	Args []Value
}

// KeyValue is one `key: value` entry of a Meta block.
type KeyValue struct {
	Key   string
	Value Value
}

// Span is attached to parse errors; kept here rather than on every node
// to keep the AST itself a plain structural description, per the
// linearizer's read-only contract on prior-stage output.
type Span = token.Span
