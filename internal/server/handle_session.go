package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stadtaev/racereplay/internal/race"
	"github.com/stadtaev/racereplay/internal/replay"
)

// SessionResponse describes a created replay session.
type SessionResponse struct {
	SessionID   string  `json:"sessionId"`
	RaceID      string  `json:"raceId"`
	RaceName    string  `json:"raceName"`
	StartTime   float64 `json:"startTime"`
	EndTime     float64 `json:"endTime"`
	Duration    float64 `json:"duration"`
	TotalStages int     `json:"totalStages"`
	RunnerCount int     `json:"runnerCount"`
}

func handleCreateSession(store race.Store, sessions *SessionRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "raceID")

		// All resources load as one batch before the engine exists; a
		// failed load constructs nothing.
		bundle, err := store.LoadBundle(r.Context(), id)
		if errors.Is(err, race.ErrNotFound) {
			writeError(w, http.StatusNotFound, "race not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		s := sessions.Create(bundle)
		writeJSON(w, http.StatusCreated, SessionResponse{
			SessionID:   s.ID,
			RaceID:      bundle.ID,
			RaceName:    bundle.Metadata.Name,
			StartTime:   bundle.Metadata.StartTime,
			EndTime:     bundle.Metadata.EndTime,
			Duration:    bundle.Metadata.EndTime - bundle.Metadata.StartTime,
			TotalStages: bundle.Metadata.TotalStages,
			RunnerCount: len(bundle.Runners),
		})
	}
}

// SessionStateResponse is the full point-in-time state of a session.
type SessionStateResponse struct {
	SessionID string          `json:"sessionId"`
	RaceID    string          `json:"raceId"`
	State     replay.Snapshot `json:"state"`
}

func handleSessionState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)
		writeJSON(w, http.StatusOK, SessionStateResponse{
			SessionID: s.ID,
			RaceID:    s.RaceID,
			State:     s.Snapshot(),
		})
	}
}

func handleSessionTimeline() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)
		events := s.Timeline()
		if events == nil {
			events = []replay.Event{}
		}
		writeJSON(w, http.StatusOK, TimelineResponse{RaceID: s.RaceID, Events: events})
	}
}

func handleDeleteSession(sessions *SessionRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)
		sessions.Delete(s.ID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
	}
}
