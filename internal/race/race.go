// Package race defines the exported race bundle model and its SQLite
// storage. Bundles are produced by the upstream export tooling; this
// service stores them verbatim and hands them to the replay engine.
package race

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/stadtaev/racereplay/internal/replay"
)

var ErrNotFound = errors.New("race not found")

// Metadata mirrors the exporter's metadata.json.
type Metadata struct {
	Name           string  `json:"name"`
	StartTime      float64 `json:"startTime"`
	EndTime        float64 `json:"endTime"`
	RunnerCount    int     `json:"runnerCount"`
	PositionFrames int     `json:"positionFrames"`
	TotalStages    int     `json:"totalStages,omitempty"`
	ExportedAt     string  `json:"exportedAt,omitempty"`
}

// Geofence is passed through to rendering clients unmodified; the replay
// engine never evaluates containment.
type Geofence struct {
	ID        int64   `json:"id"`
	Type      string  `json:"type"` // start, finish, stage, alarm
	Sequence  *int    `json:"sequence,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
}

// Runner mirrors the exporter's runners.json.
type Runner struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	NodeID string `json:"node_id"`
	Color  string `json:"color"`
}

// Scoring is the wire form of one runner's precomputed scoring record.
// Stage numbers arrive as JSON object keys, hence the string map.
type Scoring struct {
	Runner          int                           `json:"runner"`
	ExitedStartTime *float64                      `json:"exitedStartTime,omitempty"`
	EnterFinishTime *float64                      `json:"enterFinishTime,omitempty"`
	TotalRunTime    *float64                      `json:"totalRunTime,omitempty"`
	TotalStages     int                           `json:"totalStages"`
	Stages          map[string]replay.StageWindow `json:"stages"`
}

// Bundle is one complete exported race: the atomic unit of import and of
// engine construction. Scoring may be empty; everything else is required.
type Bundle struct {
	ID        string         `json:"id"`
	Metadata  Metadata       `json:"metadata"`
	Geofences []Geofence     `json:"geofences"`
	Runners   []Runner       `json:"runners"`
	Positions []replay.Frame `json:"positions"`
	Scoring   []Scoring      `json:"scoring,omitempty"`
}

// Summary is a catalog row.
type Summary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	StartTime   float64 `json:"startTime"`
	EndTime     float64 `json:"endTime"`
	RunnerCount int     `json:"runnerCount"`
	TotalStages int     `json:"totalStages"`
}

// Detail is a race without its position frames, for catalog queries.
type Detail struct {
	ID        string     `json:"id"`
	Metadata  Metadata   `json:"metadata"`
	Runners   []Runner   `json:"runners"`
	Geofences []Geofence `json:"geofences"`
}

// Validate checks the invariants an imported bundle must satisfy.
func (b *Bundle) Validate() error {
	if b.Metadata.EndTime <= b.Metadata.StartTime {
		return fmt.Errorf("metadata window [%v, %v] is empty or inverted",
			b.Metadata.StartTime, b.Metadata.EndTime)
	}
	if len(b.Runners) == 0 {
		return errors.New("bundle has no runners")
	}
	if len(b.Positions) == 0 {
		return errors.New("bundle has no position frames")
	}
	return nil
}

// ScoringRecords converts the wire scoring into engine records, parsing
// stage-number keys. Unparseable keys are skipped rather than failing the
// load; partial scoring degrades gracefully.
func (b *Bundle) ScoringRecords() []replay.ScoringRecord {
	records := make([]replay.ScoringRecord, 0, len(b.Scoring))
	for _, s := range b.Scoring {
		rec := replay.ScoringRecord{
			Entity:      s.Runner,
			ExitedStart: s.ExitedStartTime,
			EnterFinish: s.EnterFinishTime,
			TotalRun:    s.TotalRunTime,
			TotalStages: s.TotalStages,
			Stages:      make(map[int]replay.StageWindow, len(s.Stages)),
		}
		for key, w := range s.Stages {
			n, err := strconv.Atoi(key)
			if err != nil {
				continue
			}
			rec.Stages[n] = w
		}
		records = append(records, rec)
	}
	return records
}

// EntityIDs returns the runner IDs in ascending order.
func (b *Bundle) EntityIDs() []int {
	ids := make([]int, 0, len(b.Runners))
	for _, r := range b.Runners {
		ids = append(ids, r.ID)
	}
	sort.Ints(ids)
	return ids
}
