package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stadtaev/racereplay/internal/race"
	"github.com/stadtaev/racereplay/internal/replay"
)

func handleListRaces(store race.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		races, err := store.ListRaces(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if races == nil {
			races = []race.Summary{}
		}
		writeJSON(w, http.StatusOK, races)
	}
}

func handleGetRace(store race.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := store.GetRace(r.Context(), chi.URLParam(r, "raceID"))
		if errors.Is(err, race.ErrNotFound) {
			writeError(w, http.StatusNotFound, "race not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if detail.Runners == nil {
			detail.Runners = []race.Runner{}
		}
		if detail.Geofences == nil {
			detail.Geofences = []race.Geofence{}
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

// TimelineResponse is the race's full derived event timeline.
type TimelineResponse struct {
	RaceID string         `json:"raceId"`
	Events []replay.Event `json:"events"`
}

func handleRaceTimeline(store race.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "raceID")
		bundle, err := store.LoadBundle(r.Context(), id)
		if errors.Is(err, race.ErrNotFound) {
			writeError(w, http.StatusNotFound, "race not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		events := replay.BuildTimeline(bundle.ScoringRecords())
		if events == nil {
			events = []replay.Event{}
		}
		writeJSON(w, http.StatusOK, TimelineResponse{RaceID: id, Events: events})
	}
}
