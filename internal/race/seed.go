package race

import (
	"context"
	"log/slog"

	"github.com/stadtaev/racereplay/internal/replay"
)

// SeedDemo imports a small synthetic race if the catalog is empty.
// Idempotent: does nothing when any race exists.
func SeedDemo(ctx context.Context, logger *slog.Logger, store Store) error {
	existing, err := store.ListRaces(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	if err := store.ImportBundle(ctx, DemoBundle()); err != nil {
		return err
	}
	logger.Info("demo race imported", "race", "demo")
	return nil
}

// DemoBundle builds a 30-minute three-runner race around a small course:
// runners leave the start at staggered times, dwell in two stage
// checkpoints, and two of them reach the finish.
func DemoBundle() *Bundle {
	const (
		base     = float64(1764945900) // race window start
		duration = float64(1800)
		baseLat  = 30.0521
		baseLon  = -99.3100
	)

	runners := []Runner{
		{ID: 1, Name: "Kevin", NodeID: "node-a1", Color: "#e41a1c"},
		{ID: 2, Name: "Dan", NodeID: "node-b2", Color: "#377eb8"},
		{ID: 3, Name: "Carter", NodeID: "node-c3", Color: "#4daf4a"},
	}

	// One frame every 15 seconds; each runner advances north-east at its
	// own pace, joining the course at a staggered offset.
	var frames []replay.Frame
	offsets := map[int]float64{1: 0, 2: 60, 3: 150}
	paces := map[int]float64{1: 1.0, 2: 0.85, 3: 0.7}
	for t := 0.0; t <= duration; t += 15 {
		var positions []replay.FramePosition
		for _, r := range runners {
			if t < offsets[r.ID] {
				continue
			}
			progress := (t - offsets[r.ID]) * paces[r.ID] / duration
			positions = append(positions, replay.FramePosition{
				Entity: r.ID,
				Lat:    baseLat + progress*0.02,
				Lon:    baseLon + progress*0.025,
			})
		}
		if len(positions) > 0 {
			frames = append(frames, replay.Frame{T: base + t, Positions: positions})
		}
	}

	seq := func(n int) *int { return &n }
	geofences := []Geofence{
		{ID: 1, Type: "start", Latitude: baseLat, Longitude: baseLon, Radius: 40},
		{ID: 2, Type: "stage", Sequence: seq(1), Latitude: baseLat + 0.006, Longitude: baseLon + 0.008, Radius: 30},
		{ID: 3, Type: "stage", Sequence: seq(2), Latitude: baseLat + 0.013, Longitude: baseLon + 0.016, Radius: 30},
		{ID: 4, Type: "finish", Latitude: baseLat + 0.02, Longitude: baseLon + 0.025, Radius: 40},
	}

	at := func(offset float64) *float64 { v := base + offset; return &v }
	run := func(v float64) *float64 { return &v }
	scoring := []Scoring{
		{
			Runner:          1,
			ExitedStartTime: at(30),
			EnterFinishTime: at(1500),
			TotalRunTime:    run(1290),
			TotalStages:     2,
			Stages: map[string]replay.StageWindow{
				"1": {Enter: at(400), Exit: at(490)},
				"2": {Enter: at(900), Exit: at(990)},
			},
		},
		{
			Runner:          2,
			ExitedStartTime: at(90),
			EnterFinishTime: at(1740),
			TotalRunTime:    run(1470),
			TotalStages:     2,
			Stages: map[string]replay.StageWindow{
				"1": {Enter: at(560), Exit: at(650)},
				"2": {Enter: at(1150), Exit: at(1240)},
			},
		},
		{
			// Still out on course when the recording ends: entered stage 2
			// but never exited, never finished.
			Runner:          3,
			ExitedStartTime: at(180),
			TotalStages:     2,
			Stages: map[string]replay.StageWindow{
				"1": {Enter: at(760), Exit: at(860)},
				"2": {Enter: at(1500)},
			},
		},
	}

	return &Bundle{
		ID: "demo",
		Metadata: Metadata{
			Name:           "Demo Trial",
			StartTime:      base,
			EndTime:        base + duration,
			RunnerCount:    len(runners),
			PositionFrames: len(frames),
			TotalStages:    2,
		},
		Geofences: geofences,
		Runners:   runners,
		Positions: frames,
		Scoring:   scoring,
	}
}
