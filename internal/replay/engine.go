package replay

import "sort"

// NotificationKind discriminates engine notifications.
type NotificationKind string

const (
	NotePositions NotificationKind = "positions"
	NoteEvent     NotificationKind = "event"
	NoteScores    NotificationKind = "scores"
	NoteClock     NotificationKind = "clock"
)

// EntityPosition pairs an entity with its interpolated position.
type EntityPosition struct {
	Entity int     `json:"entity"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// Notification is the single ordered outward channel of the engine. Exactly
// one payload field is set, per Kind. Within one update the engine emits
// positions, then each newly crossed event in timeline order, then scores,
// then the clock.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Time      float64          `json:"time"`
	Positions []EntityPosition `json:"positions,omitempty"`
	Event     *Event           `json:"event,omitempty"`
	Scores    []ScoreSnapshot  `json:"scores,omitempty"`
	Progress  float64          `json:"progress,omitempty"`
	Playing   bool             `json:"playing,omitempty"`
}

// Snapshot is the full engine state for a point-in-time query.
type Snapshot struct {
	Time      float64          `json:"time"`
	Progress  float64          `json:"progress"`
	Speed     float64          `json:"speed"`
	Playing   bool             `json:"playing"`
	Positions []EntityPosition `json:"positions"`
	Scores    []ScoreSnapshot  `json:"scores"`
}

// progressState records which discrete events have been surfaced for one
// entity. It exists for observers (what has been shown so far), not for
// score computation, and is rebuilt from scratch on every seek.
type progressState struct {
	started       bool
	finished      bool
	stagesEntered map[int]bool
	stagesExited  map[int]bool
}

func newProgressState() *progressState {
	return &progressState{stagesEntered: make(map[int]bool), stagesExited: make(map[int]bool)}
}

// Config assembles an engine from loaded race data.
type Config struct {
	Frames      []Frame
	Records     []ScoringRecord
	Entities    []int // entity IDs to score; defaults to entities with samples
	Start       float64
	End         float64
	TotalStages int
	Sink        func(Notification)
}

// Engine owns the virtual clock and the cursors into the position and event
// sequences. It is passive: the host calls Tick at its own cadence and the
// engine never schedules anything itself. All methods must be called from a
// single goroutine (or under the caller's lock); the engine is the sole
// mutator of its state and assumes strict serialization.
type Engine struct {
	frames  []Frame
	store   *Store
	events  []Event
	records map[int]*ScoringRecord

	entities    []int
	totalStages int
	start, end  float64

	now     float64
	speed   float64
	playing bool

	frameCursor int
	eventCursor int
	visible     map[int]bool
	state       map[int]*progressState

	sink func(Notification)
}

// NewEngine builds the engine and derives the event timeline. The clock
// starts paused at cfg.Start with speed 1.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		frames:      cfg.Frames,
		store:       NewStore(cfg.Frames),
		events:      BuildTimeline(cfg.Records),
		records:     make(map[int]*ScoringRecord, len(cfg.Records)),
		entities:    cfg.Entities,
		totalStages: cfg.TotalStages,
		start:       cfg.Start,
		end:         cfg.End,
		now:         cfg.Start,
		speed:       1,
		visible:     make(map[int]bool),
		state:       make(map[int]*progressState),
		sink:        cfg.Sink,
	}
	for i := range cfg.Records {
		rec := cfg.Records[i]
		e.records[rec.Entity] = &rec
	}
	if len(e.entities) == 0 {
		e.entities = e.store.Entities()
	}
	sort.Ints(e.entities)
	if e.sink == nil {
		e.sink = func(Notification) {}
	}
	return e
}

// Events returns the full derived timeline (for catalog-style queries; the
// slice must not be mutated).
func (e *Engine) Events() []Event { return e.events }

func (e *Engine) Now() float64      { return e.now }
func (e *Engine) Speed() float64    { return e.speed }
func (e *Engine) IsPlaying() bool   { return e.playing }
func (e *Engine) Duration() float64 { return e.end - e.start }

// Progress reports playback position as a fraction of the race window.
func (e *Engine) Progress() float64 {
	if e.end <= e.start {
		return 1
	}
	return (e.now - e.start) / (e.end - e.start)
}

// Play transitions to playing. Returns false if already playing (no-op).
func (e *Engine) Play() bool {
	if e.playing {
		return false
	}
	e.playing = true
	return true
}

// Pause transitions to paused. Safe to call at any time, including from a
// notification sink. Returns false if already paused.
func (e *Engine) Pause() bool {
	if !e.playing {
		return false
	}
	e.playing = false
	return true
}

// Toggle flips between playing and paused and reports the new state.
func (e *Engine) Toggle() bool {
	if e.playing {
		e.Pause()
	} else {
		e.Play()
	}
	return e.playing
}

// SetSpeed changes the speed multiplier for subsequent ticks only; time
// already advanced is never rescaled. Non-positive multipliers are ignored.
func (e *Engine) SetSpeed(mult float64) {
	if mult > 0 {
		e.speed = mult
	}
}

// Tick advances the clock by dt wall seconds scaled by the speed
// multiplier, applies every newly crossed sample and event, and notifies.
// Reaching the end clamps the clock, pauses, and signals a clock
// notification with Playing=false, the "playback ended" signal. A manual
// pause emits nothing.
func (e *Engine) Tick(dt float64) {
	if !e.playing {
		return
	}
	e.now += dt * e.speed
	if e.now >= e.end {
		e.now = e.end
		e.playing = false
	}
	e.advance()
	e.emitClock()
}

// SeekTime jumps the clock to t (clamped to the race window) and rebuilds
// all derived state by replaying both sequences from index zero. Cursors
// and per-entity progress are monotonic accumulators that cannot be safely
// decremented, so a backward jump is a full rebuild rather than a delta;
// the result is identical to having ticked forward to exactly t.
func (e *Engine) SeekTime(t float64) {
	if t < e.start {
		t = e.start
	}
	if t > e.end {
		t = e.end
	}
	e.now = t
	e.frameCursor = 0
	e.eventCursor = 0
	e.visible = make(map[int]bool)
	e.state = make(map[int]*progressState)
	e.advance()
	e.emitClock()
}

// SeekPercent seeks to a fraction of the race window; out-of-range values
// are clamped to [0, 1].
func (e *Engine) SeekPercent(p float64) {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	e.SeekTime(e.start + p*(e.end-e.start))
}

// advance applies every sample and event at or before the current clock,
// then recomputes all scores. Scores are recomputed for every entity on
// every update; elapsed time moves continuously even when no discrete
// event was crossed.
func (e *Engine) advance() {
	for e.frameCursor < len(e.frames) && e.frames[e.frameCursor].T <= e.now {
		for _, p := range e.frames[e.frameCursor].Positions {
			e.visible[p.Entity] = true
		}
		e.frameCursor++
	}
	e.sink(Notification{Kind: NotePositions, Time: e.now, Positions: e.positionsAt(e.now)})

	for e.eventCursor < len(e.events) && e.events[e.eventCursor].T <= e.now {
		ev := e.events[e.eventCursor]
		e.apply(ev)
		e.sink(Notification{Kind: NoteEvent, Time: e.now, Event: &ev})
		e.eventCursor++
	}

	e.sink(Notification{Kind: NoteScores, Time: e.now, Scores: e.scoresAt(e.now)})
}

func (e *Engine) emitClock() {
	e.sink(Notification{Kind: NoteClock, Time: e.now, Progress: e.Progress(), Playing: e.playing})
}

func (e *Engine) apply(ev Event) {
	st, ok := e.state[ev.Entity]
	if !ok {
		st = newProgressState()
		e.state[ev.Entity] = st
	}
	switch ev.Kind {
	case EventExitStart:
		st.started = true
	case EventEnterStage:
		st.stagesEntered[ev.Stage] = true
	case EventExitStage:
		st.stagesExited[ev.Stage] = true
	case EventEnterFinish:
		st.finished = true
	}
}

// positionsAt interpolates every visible entity at time t. Entities whose
// first sample is still in the future are omitted.
func (e *Engine) positionsAt(t float64) []EntityPosition {
	ids := make([]int, 0, len(e.visible))
	for id := range e.visible {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	positions := make([]EntityPosition, 0, len(ids))
	for _, id := range ids {
		if pos, ok := e.store.At(id, t); ok {
			positions = append(positions, EntityPosition{Entity: id, Lat: pos.Lat, Lon: pos.Lon})
		}
	}
	return positions
}

func (e *Engine) scoresAt(t float64) []ScoreSnapshot {
	scores := make([]ScoreSnapshot, 0, len(e.entities))
	for _, id := range e.entities {
		scores = append(scores, Score(t, e.records[id], e.totalStages, id))
	}
	return scores
}

// Snapshot returns the current full state without advancing anything.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Time:      e.now,
		Progress:  e.Progress(),
		Speed:     e.speed,
		Playing:   e.playing,
		Positions: e.positionsAt(e.now),
		Scores:    e.scoresAt(e.now),
	}
}
