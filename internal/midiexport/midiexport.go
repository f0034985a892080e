// Package midiexport serializes a linearized Timeline to Standard MIDI
// File bytes: a Format 1 file with a conductor track followed by one
// instrument track per staff. Events are accumulated at absolute ticks,
// stable-sorted, then converted to relative deltas before writing.
package midiexport

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/alec-borman/tenutoc/internal/gm"
	"github.com/alec-borman/tenutoc/internal/timeline"
)

// programTable maps a case-insensitive substring of a patch name to its
// General MIDI program number. Entries are tried in order; the first
// substring match wins, and an unmatched patch name falls back to 0
// (Acoustic Grand Piano).
var programTable = []struct {
	substr  string
	program uint8
}{
	{"piano", 0},
	{"violin", 40},
	{"viola", 41},
	{"cello", 42},
	{"guitar", 24},
	{"bass", 32},
	{"flute", 73},
	{"drum", 0},
	{"kit", 0},
}

func programFor(patchName string) uint8 {
	lower := strings.ToLower(patchName)
	for _, entry := range programTable {
		if strings.Contains(lower, entry.substr) {
			return entry.program
		}
	}
	return 0
}

// timedEvent pairs an absolute tick with the MIDI message it carries,
// before delta conversion.
type timedEvent struct {
	tick uint64
	msg  smf.Message
}

// Export renders tl as Format 1 Standard MIDI File bytes at the fixed
// 1920 PPQ resolution: a conductor track (title + tempo) followed by
// one instrument track per Def'd staff, in sorted key order so output
// is byte-identical across runs for the same input.
func Export(tl *timeline.Timeline) ([]byte, error) {
	s := smf.NewSMF1()
	s.TimeFormat = smf.MetricTicks(timeline.PPQ)

	s.Add(conductorTrack(tl))

	ids := make([]string, 0, len(tl.Tracks))
	for id := range tl.Tracks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for i, id := range ids {
		channel := uint8(i % 16)
		s.Add(instrumentTrack(tl.Tracks[id], channel))
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("midiexport: write SMF: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteTo renders tl and writes the resulting bytes to w directly, for
// callers that already hold an io.Writer (e.g. an open output file).
func WriteTo(tl *timeline.Timeline, w io.Writer) error {
	data, err := Export(tl)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// percussionOnly reports whether every event on the track resolved as
// percussion, so the whole track plays on the GM drum channel.
func percussionOnly(t *timeline.Track) bool {
	if len(t.Events) == 0 {
		return false
	}
	for _, ev := range t.Events {
		if !ev.Percussion {
			return false
		}
	}
	return true
}

func conductorTrack(tl *timeline.Timeline) smf.Track {
	track := smf.Track{}
	track = append(track, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTrackSequenceName(tl.Title))})

	bpm := tl.TempoBPM
	if bpm <= 0 {
		bpm = 120
	}
	track = append(track, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTempo(float64(bpm)))})
	track = append(track, smf.Event{Delta: 0, Message: smf.EOT})
	return track
}

func instrumentTrack(t *timeline.Track, channel uint8) smf.Track {
	track := smf.Track{}
	track = append(track, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTrackSequenceName(t.Label))})

	// Channel 9 is GM drums: no program change is required or sent there.
	// A track whose events all resolved as percussion sounds only on the
	// drum channel, so a program change on its own channel would select a
	// patch nothing plays.
	if channel != gm.DrumChannel && !percussionOnly(t) {
		track = append(track, smf.Event{Delta: 0, Message: smf.Message(midi.ProgramChange(channel, programFor(t.PatchName)))})
	}

	var events []timedEvent
	for _, ev := range t.Events {
		ch := channel
		if ev.Percussion {
			ch = gm.DrumChannel
		}
		events = append(events,
			timedEvent{tick: ev.Tick, msg: smf.Message(midi.NoteOn(ch, ev.Pitch, ev.Velocity))},
			timedEvent{tick: ev.Tick + ev.DurationTicks, msg: smf.Message(midi.NoteOff(ch, ev.Pitch))},
		)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].tick < events[j].tick })

	var lastTick uint64
	for _, ev := range events {
		delta := ev.tick - lastTick
		track = append(track, smf.Event{Delta: uint32(delta), Message: ev.msg})
		lastTick = ev.tick
	}
	track = append(track, smf.Event{Delta: 0, Message: smf.EOT})
	return track
}
