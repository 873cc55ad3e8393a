package replay

import (
	"reflect"
	"testing"
)

// raceFixture is a small two-runner race over the window [0, 100]:
// runner 1 starts, clears one stage, and finishes; runner 2 starts late
// and never finishes.
func raceFixture() Config {
	return Config{
		Frames: []Frame{
			{T: 0, Positions: []FramePosition{{Entity: 1, Lat: 0, Lon: 0}}},
			{T: 10, Positions: []FramePosition{{Entity: 1, Lat: 10, Lon: 10}, {Entity: 2, Lat: 1, Lon: 1}}},
			{T: 40, Positions: []FramePosition{{Entity: 1, Lat: 40, Lon: 40}, {Entity: 2, Lat: 4, Lon: 4}}},
			{T: 100, Positions: []FramePosition{{Entity: 1, Lat: 100, Lon: 100}, {Entity: 2, Lat: 10, Lon: 10}}},
		},
		Records: []ScoringRecord{
			{
				Entity:      1,
				ExitedStart: fp(5),
				EnterFinish: fp(60),
				TotalRun:    fp(45),
				TotalStages: 1,
				Stages:      map[int]StageWindow{1: {Enter: fp(20), Exit: fp(30)}},
			},
			{Entity: 2, ExitedStart: fp(15), TotalStages: 1},
		},
		Start:       0,
		End:         100,
		TotalStages: 1,
	}
}

func newTestEngine(t *testing.T) (*Engine, *[]Notification) {
	t.Helper()
	var notes []Notification
	cfg := raceFixture()
	cfg.Sink = func(n Notification) { notes = append(notes, n) }
	return NewEngine(cfg), &notes
}

func kinds(notes []Notification) []NotificationKind {
	out := make([]NotificationKind, len(notes))
	for i, n := range notes {
		out[i] = n.Kind
	}
	return out
}

func TestSeekDeterminism(t *testing.T) {
	// Seeking t1 then t2 must land on the same state as a fresh engine
	// seeking straight to t2, forward or backward.
	pairs := [][2]float64{{10, 50}, {80, 25}, {100, 0}, {33, 33}}
	for _, pair := range pairs {
		hopped, _ := newTestEngine(t)
		hopped.SeekTime(pair[0])
		hopped.SeekTime(pair[1])

		fresh, _ := newTestEngine(t)
		fresh.SeekTime(pair[1])

		if !reflect.DeepEqual(hopped.Snapshot(), fresh.Snapshot()) {
			t.Errorf("seek %v then %v: snapshot diverged from direct seek\nhopped: %+v\nfresh:  %+v",
				pair[0], pair[1], hopped.Snapshot(), fresh.Snapshot())
		}
	}
}

func TestTickSequenceMatchesSeek(t *testing.T) {
	ticked, _ := newTestEngine(t)
	ticked.Play()
	for i := 0; i < 50; i++ {
		ticked.Tick(0.5) // reaches exactly t=25
	}
	ticked.Pause()

	seeked, _ := newTestEngine(t)
	seeked.SeekTime(25)

	if ticked.Now() != 25 {
		t.Fatalf("ticked clock = %v, want 25", ticked.Now())
	}
	if !reflect.DeepEqual(ticked.Snapshot(), seeked.Snapshot()) {
		t.Errorf("ticked and seeked state diverged\nticked: %+v\nseeked: %+v",
			ticked.Snapshot(), seeked.Snapshot())
	}
}

func TestSeekClampIdempotence(t *testing.T) {
	over, _ := newTestEngine(t)
	over.SeekPercent(1.5)
	atEnd, _ := newTestEngine(t)
	atEnd.SeekPercent(1.0)
	if !reflect.DeepEqual(over.Snapshot(), atEnd.Snapshot()) {
		t.Error("SeekPercent(1.5) differs from SeekPercent(1.0)")
	}

	under, _ := newTestEngine(t)
	under.SeekPercent(-0.2)
	atStart, _ := newTestEngine(t)
	atStart.SeekPercent(0)
	if !reflect.DeepEqual(under.Snapshot(), atStart.Snapshot()) {
		t.Error("SeekPercent(-0.2) differs from SeekPercent(0)")
	}
}

func TestSpeedMultiplier(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Play()
	e.SetSpeed(4)
	e.Tick(1)

	if e.Now() != 4 {
		t.Errorf("clock = %v after 1s tick at 4x, want 4", e.Now())
	}

	// Changing speed scales subsequent ticks only.
	e.SetSpeed(1)
	e.Tick(1)
	if e.Now() != 5 {
		t.Errorf("clock = %v, want 5", e.Now())
	}

	e.SetSpeed(0) // ignored
	e.Tick(1)
	if e.Now() != 6 {
		t.Errorf("clock = %v after ignored zero speed, want 6", e.Now())
	}
}

func TestPlaybackTermination(t *testing.T) {
	e, notes := newTestEngine(t)
	e.Play()
	e.SetSpeed(60)
	e.Tick(1) // t=60
	e.Tick(1) // would be 120; clamps to 100 and pauses

	if e.Now() != 100 {
		t.Errorf("clock = %v, want clamped to 100", e.Now())
	}
	if e.IsPlaying() {
		t.Error("expected paused after crossing the end")
	}

	ended := 0
	for _, n := range *notes {
		if n.Kind == NoteClock && !n.Playing {
			ended++
		}
	}
	if ended != 1 {
		t.Errorf("got %d ended clock signals, want exactly 1", ended)
	}

	// Paused engine must ignore further ticks entirely.
	before := len(*notes)
	e.Tick(1)
	if len(*notes) != before {
		t.Error("tick while paused emitted notifications")
	}
}

func TestNotificationOrder(t *testing.T) {
	e, notes := newTestEngine(t)
	e.Play()
	e.Tick(10) // crosses exit_start(5) and both frames at t<=10

	got := kinds(*notes)
	want := []NotificationKind{NotePositions, NoteEvent, NoteScores, NoteClock}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("notification order = %v, want %v", got, want)
	}

	ev := (*notes)[1].Event
	if ev == nil || ev.Kind != EventExitStart || ev.Entity != 1 {
		t.Errorf("event notification = %+v, want runner 1 exit_start", ev)
	}
}

func TestSeekReplaysEventsFromStart(t *testing.T) {
	e, notes := newTestEngine(t)
	e.SeekTime(35)

	var got []EventKind
	for _, n := range *notes {
		if n.Kind == NoteEvent {
			got = append(got, n.Event.Kind)
		}
	}
	// exit_start(1)@5, exit_start(2)@15, enter_stage@20, exit_stage@30.
	want := []EventKind{EventExitStart, EventExitStart, EventEnterStage, EventExitStage}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("seek event replay = %v, want %v", got, want)
	}
}

func TestToggle(t *testing.T) {
	e, _ := newTestEngine(t)

	if !e.Toggle() {
		t.Error("first toggle should start playback")
	}
	if e.Toggle() {
		t.Error("second toggle should pause")
	}
}

func TestPlayPauseIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)

	if !e.Play() {
		t.Error("Play from paused should report a transition")
	}
	if e.Play() {
		t.Error("Play while playing should be a no-op")
	}
	if !e.Pause() {
		t.Error("Pause while playing should report a transition")
	}
	if e.Pause() {
		t.Error("Pause while paused should be a no-op")
	}
}

func TestPositionsBecomeVisibleAtFirstSample(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SeekTime(5)

	snap := e.Snapshot()
	if len(snap.Positions) != 1 || snap.Positions[0].Entity != 1 {
		t.Fatalf("positions at t=5 = %+v, want only runner 1", snap.Positions)
	}
	// Runner 1 halfway between its samples at t=0 and t=10.
	if snap.Positions[0].Lat != 5 || snap.Positions[0].Lon != 5 {
		t.Errorf("runner 1 at (%v, %v), want (5, 5)", snap.Positions[0].Lat, snap.Positions[0].Lon)
	}

	e.SeekTime(10)
	snap = e.Snapshot()
	if len(snap.Positions) != 2 {
		t.Errorf("positions at t=10 = %+v, want both runners", snap.Positions)
	}
}

func TestScoresCoverAllEntitiesEveryUpdate(t *testing.T) {
	e, notes := newTestEngine(t)
	e.SeekTime(1) // no events crossed for runner 2 yet

	var scores []ScoreSnapshot
	for _, n := range *notes {
		if n.Kind == NoteScores {
			scores = n.Scores
		}
	}
	if len(scores) != 2 {
		t.Fatalf("got %d score snapshots, want one per entity", len(scores))
	}
}
