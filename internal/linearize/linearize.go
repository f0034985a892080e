// Package linearize implements the inference engine: it walks a parsed
// Score while tracking per-voice sticky cursor state (last duration,
// last octave, tuplet time scaling) and flattens every voice into a
// tick-absolute, per-track Timeline. The cursor is never reset at
// measure boundaries; measures are purely organizational.
package linearize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/alec-borman/tenutoc/internal/ast"
	"github.com/alec-borman/tenutoc/internal/diag"
	"github.com/alec-borman/tenutoc/internal/gm"
	"github.com/alec-borman/tenutoc/internal/rational"
	"github.com/alec-borman/tenutoc/internal/timeline"
)

// defaultPatch is assigned to every Def'd track that does not otherwise
// resolve a patch name; there is no instrument attribute in the grammar
// yet, so every track currently takes this default.
const defaultPatch = "Grand Piano"

var pitchSemitone = map[byte]int{
	'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11,
}

// cursor is the per-(track, voice) sticky state the inference engine
// threads through a voice's events. current_tick is never reset across
// measures: measures are purely organizational.
type cursor struct {
	currentTick  uint64
	lastDuration rational.Rational
	lastOctave   uint8
	timeScalar   rational.Rational
}

func newCursor() *cursor {
	return &cursor{
		lastDuration: rational.New(1, 4),
		lastOctave:   4,
		timeScalar:   rational.New(1, 1),
	}
}

// Linearize walks score and returns the flattened per-track timeline
// along with any diagnostics raised along the way. A malformed duration
// literal that would construct a zero-denominator Rational is an
// internal compiler error (F2001): it indicates the parser let invalid
// text through, not a user mistake, so Linearize recovers and reports
// it rather than crashing the whole pipeline.
//
// An Assignment naming a staff id with no matching Def is never turned
// into a track: Timeline.tracks must be exactly the set Def declared, so
// such an assignment's voices are skipped and a recoverable E3003
// diagnostic is raised instead of fabricating a track.
func Linearize(score *ast.Score) (tl *timeline.Timeline, diags []diag.Diagnostic) {
	tl = timeline.NewTimeline()
	defer func() {
		if r := recover(); r != nil {
			diags = append(diags, diag.Diagnostic{
				Code:    "F2001",
				Message: fmt.Sprintf("internal error during linearization: %v", r),
			})
			tl = nil
		}
	}()

	for _, item := range score.Items {
		switch v := item.(type) {
		case ast.Meta:
			applyMeta(tl, v)
		case ast.Def:
			tl.Tracks[v.ID] = newTrack(v)
		}
	}

	cursors := make(map[string][]*cursor)
	for _, item := range score.Items {
		m, ok := item.(ast.Measure)
		if !ok {
			continue
		}
		for _, stmt := range m.Statements {
			switch s := stmt.(type) {
			case ast.Assignment:
				track, ok := tl.Tracks[s.StaffID]
				if !ok {
					diags = append(diags, diag.Diagnostic{
						Code:    "E3003",
						Message: fmt.Sprintf("assignment to undeclared staff id %q (no matching def); voices skipped", s.StaffID),
					})
					continue
				}
				vc := cursors[s.StaffID]
				for len(vc) < len(s.Voices) {
					vc = append(vc, newCursor())
				}
				cursors[s.StaffID] = vc
				for i, voice := range s.Voices {
					processVoice(track, vc[i], voice, &diags)
				}
			case ast.LocalMeta:
				applyMeta(tl, ast.Meta{Entries: s.Entries})
			}
		}
	}

	for _, track := range tl.Tracks {
		sort.SliceStable(track.Events, func(i, j int) bool {
			return track.Events[i].Tick < track.Events[j].Tick
		})
	}
	return tl, diags
}

func newTrack(d ast.Def) *timeline.Track {
	label := d.Label
	if label == "" {
		label = d.ID
	}
	return &timeline.Track{Label: label, PatchName: defaultPatch}
}

func applyMeta(tl *timeline.Timeline, m ast.Meta) {
	for _, kv := range m.Entries {
		switch kv.Key {
		case "title":
			if s, ok := kv.Value.(ast.Str); ok {
				tl.Title = string(s)
			}
		case "tempo":
			switch v := kv.Value.(type) {
			case ast.Num:
				tl.TempoBPM = int(v)
			case ast.Flt:
				tl.TempoBPM = int(v)
			}
		}
	}
}

func processVoice(track *timeline.Track, cur *cursor, voice ast.Voice, diags *[]diag.Diagnostic) {
	for _, ev := range voice.Events {
		processEvent(track, cur, ev, diags)
	}
}

func processEvent(track *timeline.Track, cur *cursor, ev ast.Event, diags *[]diag.Diagnostic) {
	switch e := ev.(type) {
	case ast.Note:
		ticks := effectiveTicks(cur, e.Duration)
		pitch, err := resolvePitch(cur, e.Pitch)
		if err != nil {
			*diags = append(*diags, diag.Diagnostic{Code: "E3001", Message: err.Error()})
		} else {
			track.Events = append(track.Events, timeline.AtomicEvent{
				Tick: cur.currentTick, DurationTicks: ticks, Pitch: pitch, Velocity: 100,
			})
		}
		cur.currentTick += ticks

	case ast.Chord:
		ticks := effectiveTicks(cur, e.Duration)
		for _, p := range e.Notes {
			pitch, err := resolvePitch(cur, p)
			if err != nil {
				*diags = append(*diags, diag.Diagnostic{Code: "E3001", Message: err.Error()})
				continue
			}
			track.Events = append(track.Events, timeline.AtomicEvent{
				Tick: cur.currentTick, DurationTicks: ticks, Pitch: pitch, Velocity: 100,
			})
		}
		cur.currentTick += ticks

	case ast.Rest:
		cur.currentTick += effectiveTicks(cur, e.Duration)

	case ast.Tuplet:
		old := cur.timeScalar
		cur.timeScalar = old.Mul(rational.New(uint64(e.Q), uint64(e.P)))
		processVoice(track, cur, e.Content, diags)
		cur.timeScalar = old

	case ast.Percussion:
		ticks := effectiveTicks(cur, e.Duration)
		if key, ok := gm.Lookup(e.Key); ok {
			track.Events = append(track.Events, timeline.AtomicEvent{
				Tick: cur.currentTick, DurationTicks: ticks, Pitch: key, Velocity: 100, Percussion: true,
			})
		} else {
			*diags = append(*diags, diag.Diagnostic{
				Code: "E3002", Message: fmt.Sprintf("unrecognized percussion name %q", e.Key),
			})
		}
		cur.currentTick += ticks

	case ast.Tab:
		// Not resolved to MIDI; fret/string coordinates have no pitch
		// mapping without tuning information.
	}
}

// effectiveTicks resolves a duration literal (or, if absent, the
// cursor's sticky last_duration) against the cursor's time_scalar and
// converts the result to ticks at the fixed PPQ.
func effectiveTicks(cur *cursor, durationText string) uint64 {
	base := resolveDuration(cur, durationText)
	return base.Mul(cur.timeScalar).ToTicks(timeline.PPQ)
}

// resolveDuration implements parse_duration: ":N[.]*" with N as the
// denominator and trailing dots lengthening the base by the usual
// dotted-rhythm factors. An absent literal inherits last_duration
// unchanged; a present one updates it.
func resolveDuration(cur *cursor, text string) rational.Rational {
	if text == "" {
		return cur.lastDuration
	}
	body := strings.TrimPrefix(text, ":")
	dots := 0
	for len(body) > 0 && body[len(body)-1] == '.' {
		dots++
		body = body[:len(body)-1]
	}
	n, _ := strconv.ParseUint(body, 10, 64)

	var base rational.Rational
	switch dots {
	case 0:
		base = rational.New(1, n)
	case 1:
		base = rational.New(3, 2*n)
	default:
		base = rational.New(7, 4*n)
	}
	cur.lastDuration = base
	return base
}

// resolvePitch implements parse_pitch: step letter to semitone offset,
// '#' raises and 'b' lowers by a semitone each, and the first digit
// encountered sets an explicit octave. An absent octave inherits
// last_octave.
func resolvePitch(cur *cursor, text string) (uint8, error) {
	if text == "" {
		return 0, fmt.Errorf("empty pitch literal")
	}
	lead := text[0]
	if lead >= 'A' && lead <= 'Z' {
		lead += 'a' - 'A'
	}
	semitone, ok := pitchSemitone[lead]
	if !ok {
		return 0, fmt.Errorf("invalid pitch step %q", text)
	}

	octave := cur.lastOctave
	explicitOctave := false
	for i := 1; i < len(text); i++ {
		switch c := text[i]; {
		case c == '#':
			semitone++
		case c == 'b':
			semitone--
		case c >= '0' && c <= '9':
			if !explicitOctave {
				o, _ := strconv.Atoi(string(c))
				octave = uint8(o)
				explicitOctave = true
			}
		}
	}
	if explicitOctave {
		cur.lastOctave = octave
	}

	midi := (int(octave)+1)*12 + semitone
	if midi < 0 {
		midi = 0
	}
	if midi > 127 {
		midi = 127
	}
	return uint8(midi), nil
}
