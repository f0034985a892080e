package midiexport

import (
	"bytes"
	"testing"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/alec-borman/tenutoc/internal/timeline"
)

func sampleTimeline() *timeline.Timeline {
	tl := timeline.NewTimeline()
	tl.Title = "Heroic"
	tl.TempoBPM = 150
	tl.Tracks["vln"] = &timeline.Track{
		Label:     "Violin",
		PatchName: "Violin",
		Events: []timeline.AtomicEvent{
			{Tick: 0, DurationTicks: 1920, Pitch: 60, Velocity: 100},
			{Tick: 1920, DurationTicks: 1920, Pitch: 62, Velocity: 100},
		},
	}
	tl.Tracks["pno"] = &timeline.Track{
		Label:     "Piano",
		PatchName: "Grand Piano",
		Events: []timeline.AtomicEvent{
			{Tick: 0, DurationTicks: 960, Pitch: 48, Velocity: 100},
		},
	}
	return tl
}

func TestExportRoundTripsThroughSMF(t *testing.T) {
	data, err := Export(sampleTimeline())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	parsed, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("smf.ReadFrom: %v", err)
	}

	// Conductor track + two instrument tracks, sorted: pno before vln.
	if len(parsed.Tracks) != 3 {
		t.Fatalf("got %d tracks, want 3", len(parsed.Tracks))
	}

	ticks, ok := parsed.TimeFormat.(smf.MetricTicks)
	if !ok {
		t.Fatalf("TimeFormat = %T, want smf.MetricTicks", parsed.TimeFormat)
	}
	if ticks.Resolution() != timeline.PPQ {
		t.Errorf("PPQ = %d, want %d", ticks.Resolution(), timeline.PPQ)
	}
}

func TestExportIsDeterministicAcrossRuns(t *testing.T) {
	tl := sampleTimeline()
	first, err := Export(tl)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	var second bytes.Buffer
	if err := WriteTo(tl, &second); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if !bytes.Equal(first, second.Bytes()) {
		t.Fatal("Export produced different bytes for identical input across two calls")
	}
}

func TestProgramForMatchesKnownPatches(t *testing.T) {
	cases := []struct {
		patch string
		want  uint8
	}{
		{"Grand Piano", 0},
		{"Violin", 40},
		{"Viola", 41},
		{"Cello", 42},
		{"Electric Guitar", 24},
		{"Fretless Bass", 32},
		{"Flute", 73},
		{"Drum Kit", 0},
		{"Unknown Synth", 0},
	}
	for _, c := range cases {
		if got := programFor(c.patch); got != c.want {
			t.Errorf("programFor(%q) = %d, want %d", c.patch, got, c.want)
		}
	}
}

func hasProgramChange(track smf.Track) bool {
	for _, ev := range track {
		var ch, prog uint8
		if ev.Message.GetProgramChange(&ch, &prog) {
			return true
		}
	}
	return false
}

func TestPercussionEventsRouteToDrumChannel(t *testing.T) {
	tl := timeline.NewTimeline()
	tl.Tracks["drm"] = &timeline.Track{
		Label:     "Drums",
		PatchName: "Drum Kit",
		Events: []timeline.AtomicEvent{
			{Tick: 0, DurationTicks: 960, Pitch: 36, Velocity: 100, Percussion: true},
		},
	}
	data, err := Export(tl)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	parsed, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("smf.ReadFrom: %v", err)
	}
	found := false
	for _, ev := range parsed.Tracks[1] {
		var ch, key, vel uint8
		if ev.Message.GetNoteOn(&ch, &key, &vel) {
			found = true
			if ch != 9 {
				t.Errorf("percussion note-on channel = %d, want 9", ch)
			}
		}
	}
	if !found {
		t.Fatal("no note-on message found in the drum track")
	}
	if hasProgramChange(parsed.Tracks[1]) {
		t.Error("percussion-only track carries a program change; its notes sound only on the drum channel")
	}
}

func TestNoProgramChangeWhenTrackLandsOnDrumChannel(t *testing.T) {
	// With ten tracks, the tenth sorted key is assigned channel index 9,
	// the GM drum channel: it must not receive a program change even
	// though its events are ordinary pitched notes.
	tl := timeline.NewTimeline()
	for _, id := range []string{"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8", "t9"} {
		tl.Tracks[id] = &timeline.Track{
			Label:     id,
			PatchName: "Piano",
			Events: []timeline.AtomicEvent{
				{Tick: 0, DurationTicks: 960, Pitch: 60, Velocity: 100},
			},
		}
	}
	data, err := Export(tl)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	parsed, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("smf.ReadFrom: %v", err)
	}
	if len(parsed.Tracks) != 11 {
		t.Fatalf("got %d tracks, want 11", len(parsed.Tracks))
	}
	// Track 10 is "t9", sorted last, channel 9.
	if hasProgramChange(parsed.Tracks[10]) {
		t.Error("track assigned to channel 9 carries a program change")
	}
	for i := 1; i < 10; i++ {
		if !hasProgramChange(parsed.Tracks[i]) {
			t.Errorf("track %d (channel %d) is missing its program change", i, i-1)
		}
	}
}

// TestExportGoldenBytes locks in the exact byte-for-byte header/track-chunk
// framing for a minimal one-note timeline, rather than round-tripping
// through smf.ReadFrom. The expected bytes are hand-derived from the
// Standard MIDI File format: MThd/MTrk chunk framing, FF 03 track-name /
// FF 51 03 tempo / FF 2F 00 end-of-track meta events, and 0x9n/0x8n
// note-on/note-off status bytes.
func TestExportGoldenBytes(t *testing.T) {
	tl := timeline.NewTimeline()
	tl.Title = "T"
	tl.TempoBPM = 120
	tl.Tracks["a"] = &timeline.Track{
		Label:     "A",
		PatchName: "Piano",
		Events: []timeline.AtomicEvent{
			{Tick: 0, DurationTicks: 10, Pitch: 60, Velocity: 100},
		},
	}

	got, err := Export(tl)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	want := []byte{
		// Header chunk: MThd, length 6, format 1, 2 tracks, 1920 ticks/quarter
		0x4D, 0x54, 0x68, 0x64,
		0x00, 0x00, 0x00, 0x06,
		0x00, 0x01,
		0x00, 0x02,
		0x07, 0x80,

		// Track 0 (conductor): MTrk, length 16
		0x4D, 0x54, 0x72, 0x6B,
		0x00, 0x00, 0x00, 0x10,
		0x00, 0xFF, 0x03, 0x01, 0x54, // track name: "T"
		0x00, 0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20, // tempo: 500000us/quarter (120 BPM)
		0x00, 0xFF, 0x2F, 0x00, // end of track

		// Track 1 ("a"): MTrk, length 20
		0x4D, 0x54, 0x72, 0x6B,
		0x00, 0x00, 0x00, 0x14,
		0x00, 0xFF, 0x03, 0x01, 0x41, // track name: "A"
		0x00, 0xC0, 0x00, // program change: channel 0, program 0 (Piano)
		0x00, 0x90, 0x3C, 0x64, // note on: channel 0, note 60, velocity 100
		0x0A, 0x80, 0x3C, 0x00, // note off (10 ticks later): channel 0, note 60, velocity 0
		0x00, 0xFF, 0x2F, 0x00, // end of track
	}

	if !bytes.Equal(got, want) {
		t.Fatalf("Export produced unexpected bytes:\ngot:  % X\nwant: % X", got, want)
	}
}

func TestEmptyTimelineStillProducesConductorTrack(t *testing.T) {
	tl := timeline.NewTimeline()
	tl.Title = "Empty"
	data, err := Export(tl)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	parsed, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("smf.ReadFrom: %v", err)
	}
	if len(parsed.Tracks) != 1 {
		t.Fatalf("got %d tracks, want 1 (conductor only)", len(parsed.Tracks))
	}
}
