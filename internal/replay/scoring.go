package replay

import "sort"

// StageWindow is the recorded enter/exit times for one stage checkpoint.
// Either side may be missing independently.
type StageWindow struct {
	Enter *float64 `json:"enterTime,omitempty"`
	Exit  *float64 `json:"exitTime,omitempty"`
}

// ScoringRecord is the precomputed scoring data for one entity. Records are
// produced upstream and loaded as-is; the engine never derives scoring from
// raw GPS.
type ScoringRecord struct {
	Entity      int
	ExitedStart *float64
	EnterFinish *float64
	TotalRun    *float64
	TotalStages int
	Stages      map[int]StageWindow
}

// StageNumbers returns the record's stage numbers in ascending order, so
// derived output is deterministic regardless of map iteration.
func (r *ScoringRecord) StageNumbers() []int {
	nums := make([]int, 0, len(r.Stages))
	for n := range r.Stages {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// ScoreSnapshot is one entity's derived score at a point in time.
type ScoreSnapshot struct {
	Entity          int      `json:"entity"`
	StagesCompleted int      `json:"stagesCompleted"`
	TotalStages     int      `json:"totalStages"`
	HasStarted      bool     `json:"hasStarted"`
	HasFinished     bool     `json:"hasFinished"`
	Elapsed         *float64 `json:"elapsed,omitempty"`
}

// Score computes the entity's derived state at time now. It is a pure
// function of (now, record): no accumulation, so it gives the same answer
// after any sequence of seeks. rec may be nil (entity tracked but unscored),
// in which case a zeroed snapshot with the fallback stage count is returned.
//
// Elapsed is the race clock minus time spent dwelling inside stage
// checkpoints. A stage the entity is still inside (exit missing or in the
// future) accrues dwell as now-enter with no upper bound.
func Score(now float64, rec *ScoringRecord, fallbackStages int, entity int) ScoreSnapshot {
	if rec == nil {
		return ScoreSnapshot{Entity: entity, TotalStages: fallbackStages}
	}

	snap := ScoreSnapshot{Entity: rec.Entity, TotalStages: rec.TotalStages}
	if snap.TotalStages == 0 {
		snap.TotalStages = fallbackStages
	}
	snap.HasStarted = rec.ExitedStart != nil && now >= *rec.ExitedStart
	snap.HasFinished = rec.EnterFinish != nil && now >= *rec.EnterFinish

	var dwell float64
	for _, n := range rec.StageNumbers() {
		w := rec.Stages[n]
		switch {
		case w.Enter != nil && w.Exit != nil && now >= *w.Exit:
			snap.StagesCompleted++
			dwell += *w.Exit - *w.Enter
		case w.Enter != nil && now >= *w.Enter:
			dwell += now - *w.Enter
		}
	}

	if !snap.HasStarted {
		return snap
	}
	if snap.HasFinished && rec.TotalRun != nil {
		// Authoritative: finished entities report a stable number no
		// matter how far the clock advances afterwards.
		elapsed := *rec.TotalRun
		snap.Elapsed = &elapsed
		return snap
	}
	elapsed := (now - *rec.ExitedStart) - dwell
	snap.Elapsed = &elapsed
	return snap
}
