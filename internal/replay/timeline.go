package replay

import (
	"fmt"
	"sort"
)

// EventKind identifies a discrete timeline event.
type EventKind string

const (
	EventExitStart   EventKind = "exit_start"
	EventEnterStage  EventKind = "enter_stage"
	EventExitStage   EventKind = "exit_stage"
	EventEnterFinish EventKind = "enter_finish"
)

// Event is one discrete scoring crossing, derived from a scoring record.
type Event struct {
	T      float64   `json:"t"`
	Entity int       `json:"entity"`
	Kind   EventKind `json:"kind"`
	Stage  int       `json:"stage,omitempty"`
	Label  string    `json:"label"`
}

// BuildTimeline derives the global event timeline from scoring records.
// Pure function, called once after load. Each present scoring field yields
// one event; a stage window with only an enter (or only an exit) time still
// yields its one event, so partial stage data is valid. The result is sorted
// ascending by time with a stable sort, so events at identical timestamps
// keep their per-record emission order.
func BuildTimeline(records []ScoringRecord) []Event {
	var events []Event
	for _, rec := range records {
		if rec.ExitedStart != nil {
			events = append(events, Event{
				T: *rec.ExitedStart, Entity: rec.Entity, Kind: EventExitStart,
				Label: fmt.Sprintf("Runner %d left the start", rec.Entity),
			})
		}
		for _, n := range rec.StageNumbers() {
			w := rec.Stages[n]
			if w.Enter != nil {
				events = append(events, Event{
					T: *w.Enter, Entity: rec.Entity, Kind: EventEnterStage, Stage: n,
					Label: fmt.Sprintf("Runner %d entered stage %d", rec.Entity, n),
				})
			}
			if w.Exit != nil {
				events = append(events, Event{
					T: *w.Exit, Entity: rec.Entity, Kind: EventExitStage, Stage: n,
					Label: fmt.Sprintf("Runner %d cleared stage %d", rec.Entity, n),
				})
			}
		}
		if rec.EnterFinish != nil {
			events = append(events, Event{
				T: *rec.EnterFinish, Entity: rec.Entity, Kind: EventEnterFinish,
				Label: fmt.Sprintf("Runner %d finished", rec.Entity),
			})
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].T < events[j].T })
	return events
}
