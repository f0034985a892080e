package parser

import (
	"testing"

	"github.com/alec-borman/tenutoc/internal/ast"
	"github.com/alec-borman/tenutoc/internal/lexer"
)

func parseSrc(t *testing.T, src string) *ast.Score {
	t.Helper()
	toks, lexDiags := lexer.Lex(src)
	if len(lexDiags) != 0 {
		t.Fatalf("unexpected lexer diagnostics: %v", lexDiags)
	}
	score, diags := Parse(toks)
	if len(diags) != 0 {
		t.Fatalf("unexpected parse diagnostics: %v", diags)
	}
	if score == nil {
		t.Fatal("got nil score")
	}
	return score
}

func TestTopLevelOrdering(t *testing.T) {
	score := parseSrc(t, `tenuto { meta{title:"T"} def vln "Violin" measure 1 { vln: c4 | } }`)
	if len(score.Items) != 3 {
		t.Fatalf("got %d top-level items, want 3: %+v", len(score.Items), score.Items)
	}
	if _, ok := score.Items[0].(ast.Meta); !ok {
		t.Errorf("item 0 = %T, want ast.Meta", score.Items[0])
	}
	if _, ok := score.Items[1].(ast.Def); !ok {
		t.Errorf("item 1 = %T, want ast.Def", score.Items[1])
	}
	if _, ok := score.Items[2].(ast.Measure); !ok {
		t.Errorf("item 2 = %T, want ast.Measure", score.Items[2])
	}
}

func TestMeasureNumberOptional(t *testing.T) {
	score := parseSrc(t, `tenuto { measure { } }`)
	m := score.Items[0].(ast.Measure)
	if m.HasNumber {
		t.Errorf("HasNumber = true, want false for a number-less measure")
	}
}

func TestAttributeParsing(t *testing.T) {
	score := parseSrc(t, `tenuto { def vln "Violin" measure 1 { vln: c4.stacc.vol(80) | } }`)
	m := score.Items[1].(ast.Measure)
	asg := m.Statements[0].(ast.Assignment)
	note := asg.Voices[0].Events[0].(ast.Note)
	if len(note.Attributes) != 2 {
		t.Fatalf("got %d attributes, want 2: %+v", len(note.Attributes), note.Attributes)
	}
	if note.Attributes[0].Name != "stacc" || len(note.Attributes[0].Args) != 0 {
		t.Errorf("attribute 0 = %+v, want {stacc []}", note.Attributes[0])
	}
	if note.Attributes[1].Name != "vol" || len(note.Attributes[1].Args) != 1 {
		t.Fatalf("attribute 1 = %+v, want {vol [80]}", note.Attributes[1])
	}
	if n, ok := note.Attributes[1].Args[0].(ast.Num); !ok || int64(n) != 80 {
		t.Errorf("attribute 1 arg = %+v, want Num(80)", note.Attributes[1].Args[0])
	}
}

func TestMultiVoiceAssignment(t *testing.T) {
	score := parseSrc(t, `tenuto { def vln "Violin" measure 1 { vln: c4 | d4 | e4 } }`)
	m := score.Items[1].(ast.Measure)
	asg := m.Statements[0].(ast.Assignment)
	if len(asg.Voices) != 3 {
		t.Fatalf("got %d voices, want 3: %+v", len(asg.Voices), asg.Voices)
	}
	for i, want := range []string{"c4", "d4", "e4"} {
		note := asg.Voices[i].Events[0].(ast.Note)
		if note.Pitch != want {
			t.Errorf("voice %d pitch = %q, want %q", i, note.Pitch, want)
		}
	}
}

func TestTrailingPipeDoesNotStartAnotherAssignment(t *testing.T) {
	score := parseSrc(t, `tenuto { def vln "Violin" def pno "Piano" measure 1 { vln: c4 | pno: d4 } }`)
	m := score.Items[2].(ast.Measure)
	if len(m.Statements) != 2 {
		t.Fatalf("got %d statements, want 2: %+v", len(m.Statements), m.Statements)
	}
	first := m.Statements[0].(ast.Assignment)
	if first.StaffID != "vln" {
		t.Errorf("first assignment staff = %q, want vln", first.StaffID)
	}
	if len(first.Voices) != 1 {
		t.Errorf("got %d voices for vln, want 1 (no spurious empty voice from the trailing '|')", len(first.Voices))
	}
	second := m.Statements[1].(ast.Assignment)
	if second.StaffID != "pno" {
		t.Errorf("second assignment staff = %q, want pno", second.StaffID)
	}
}

func TestTrailingPipeBeforeMeasureCloseDoesNotAddEmptyVoice(t *testing.T) {
	score := parseSrc(t, `tenuto { def vln "Violin" measure 1 { vln: c4 | } }`)
	m := score.Items[1].(ast.Measure)
	asg := m.Statements[0].(ast.Assignment)
	if len(asg.Voices) != 1 {
		t.Fatalf("got %d voices, want 1 (trailing '|' before '}' is the optional marker, not a separator): %+v", len(asg.Voices), asg.Voices)
	}
}

func TestTrailingPipeBeforeLocalMetaDoesNotAddEmptyVoice(t *testing.T) {
	score := parseSrc(t, `tenuto { def vln "Violin" measure 1 { vln: c4 | meta { title: "T" } } }`)
	m := score.Items[1].(ast.Measure)
	if len(m.Statements) != 2 {
		t.Fatalf("got %d statements, want 2: %+v", len(m.Statements), m.Statements)
	}
	asg := m.Statements[0].(ast.Assignment)
	if len(asg.Voices) != 1 {
		t.Fatalf("got %d voices, want 1 (trailing '|' before 'meta' is the optional marker, not a separator): %+v", len(asg.Voices), asg.Voices)
	}
	if _, ok := m.Statements[1].(ast.LocalMeta); !ok {
		t.Errorf("statement 1 = %T, want ast.LocalMeta", m.Statements[1])
	}
}

func TestRestVersusPercussion(t *testing.T) {
	score := parseSrc(t, `tenuto { def vln "Violin" measure 1 { vln: r:4 snare:4 } }`)
	m := score.Items[1].(ast.Measure)
	asg := m.Statements[0].(ast.Assignment)
	if _, ok := asg.Voices[0].Events[0].(ast.Rest); !ok {
		t.Errorf("event 0 = %T, want ast.Rest", asg.Voices[0].Events[0])
	}
	perc, ok := asg.Voices[0].Events[1].(ast.Percussion)
	if !ok {
		t.Fatalf("event 1 = %T, want ast.Percussion", asg.Voices[0].Events[1])
	}
	if perc.Key != "snare" {
		t.Errorf("percussion key = %q, want snare", perc.Key)
	}
}

func TestTupletRatio(t *testing.T) {
	score := parseSrc(t, `tenuto { def vln "Violin" measure 1 { vln: (c4 d e):3/2 } }`)
	m := score.Items[1].(ast.Measure)
	asg := m.Statements[0].(ast.Assignment)
	tuplet, ok := asg.Voices[0].Events[0].(ast.Tuplet)
	if !ok {
		t.Fatalf("event 0 = %T, want ast.Tuplet", asg.Voices[0].Events[0])
	}
	if tuplet.P != 3 || tuplet.Q != 2 {
		t.Errorf("ratio = %d/%d, want 3/2", tuplet.P, tuplet.Q)
	}
	if len(tuplet.Content.Events) != 3 {
		t.Errorf("got %d tuplet events, want 3", len(tuplet.Content.Events))
	}
}

func TestTupletRatioWithSpacedColon(t *testing.T) {
	score := parseSrc(t, `tenuto { def vln "Violin" measure 1 { vln: (c4 d e) : 3 / 2 } }`)
	m := score.Items[1].(ast.Measure)
	asg := m.Statements[0].(ast.Assignment)
	tuplet := asg.Voices[0].Events[0].(ast.Tuplet)
	if tuplet.P != 3 || tuplet.Q != 2 {
		t.Errorf("ratio = %d/%d, want 3/2", tuplet.P, tuplet.Q)
	}
}

func TestGluedIntegerMetaValue(t *testing.T) {
	score := parseSrc(t, `tenuto { meta { tempo:150 } }`)
	meta := score.Items[0].(ast.Meta)
	if len(meta.Entries) != 1 {
		t.Fatalf("got %d entries, want 1: %+v", len(meta.Entries), meta.Entries)
	}
	if n, ok := meta.Entries[0].Value.(ast.Num); !ok || int64(n) != 150 {
		t.Errorf("tempo value = %+v, want Num(150)", meta.Entries[0].Value)
	}
}

func TestMissingWrapperIsFatal(t *testing.T) {
	toks, _ := lexer.Lex(`def vln "Violin"`)
	score, diags := Parse(toks)
	if score != nil {
		t.Fatalf("got non-nil score for missing wrapper: %+v", score)
	}
	if len(diags) == 0 {
		t.Fatal("want at least one diagnostic for missing wrapper")
	}
}
