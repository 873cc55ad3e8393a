package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stadtaev/racereplay/internal/database"
	"github.com/stadtaev/racereplay/internal/migrations"
	"github.com/stadtaev/racereplay/internal/race"
)

func testRouter(t *testing.T) *chi.Mux {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	store := race.NewSQLiteStore(db)
	if err := store.ImportBundle(ctx, race.DemoBundle()); err != nil {
		t.Fatalf("import demo race: %v", err)
	}

	sessions := NewSessionRegistry(logger, 50*time.Millisecond)
	t.Cleanup(sessions.Close)

	admin, err := NewAdminAuth("test-password")
	if err != nil {
		t.Fatalf("init admin auth: %v", err)
	}

	r := chi.NewRouter()
	addRoutes(r, logger, db, store, sessions, admin)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, r http.Handler) SessionResponse {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/races/demo/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp SessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	return resp
}

func TestListRaces(t *testing.T) {
	r := testRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/races", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var races []race.Summary
	json.NewDecoder(w.Body).Decode(&races)
	if len(races) != 1 || races[0].ID != "demo" {
		t.Errorf("races = %+v, want one demo race", races)
	}
}

func TestGetRace(t *testing.T) {
	r := testRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/races/demo", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var detail race.Detail
	json.NewDecoder(w.Body).Decode(&detail)
	if len(detail.Runners) != 3 {
		t.Errorf("runners = %d, want 3", len(detail.Runners))
	}
	if len(detail.Geofences) != 4 {
		t.Errorf("geofences = %d, want 4 (passed through unmodified)", len(detail.Geofences))
	}
}

func TestGetRaceNotFound(t *testing.T) {
	r := testRouter(t)

	if w := doJSON(t, r, http.MethodGet, "/api/races/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestRaceTimeline(t *testing.T) {
	r := testRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/races/demo/timeline", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp TimelineResponse
	json.NewDecoder(w.Body).Decode(&resp)
	// Demo scoring: runners 1 and 2 emit 6 events each, runner 3 emits 4
	// (open stage 2, no finish).
	if len(resp.Events) != 16 {
		t.Errorf("events = %d, want 16", len(resp.Events))
	}
	for i := 1; i < len(resp.Events); i++ {
		if resp.Events[i].T < resp.Events[i-1].T {
			t.Fatalf("timeline out of order at %d", i)
		}
	}
}

func TestCreateSessionAndState(t *testing.T) {
	r := testRouter(t)
	sess := createSession(t, r)

	if sess.Duration != 1800 {
		t.Errorf("duration = %v, want 1800", sess.Duration)
	}
	if sess.RunnerCount != 3 || sess.TotalStages != 2 {
		t.Errorf("runnerCount/totalStages = %d/%d, want 3/2", sess.RunnerCount, sess.TotalStages)
	}

	w := doJSON(t, r, http.MethodGet, "/api/sessions/"+sess.SessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("state: expected 200, got %d", w.Code)
	}

	var state SessionStateResponse
	json.NewDecoder(w.Body).Decode(&state)
	if state.State.Time != sess.StartTime {
		t.Errorf("initial clock = %v, want race start %v", state.State.Time, sess.StartTime)
	}
	if state.State.Playing {
		t.Error("new session should start paused")
	}
	if len(state.State.Scores) != 3 {
		t.Errorf("scores = %d, want one per runner", len(state.State.Scores))
	}
	if len(state.State.Positions) != 1 {
		t.Errorf("positions at start = %d, want 1 (only runner 1 has a sample)", len(state.State.Positions))
	}
}

func TestCreateSessionUnknownRace(t *testing.T) {
	r := testRouter(t)

	if w := doJSON(t, r, http.MethodPost, "/api/races/nope/sessions", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestSessionNotFound(t *testing.T) {
	r := testRouter(t)

	if w := doJSON(t, r, http.MethodGet, "/api/sessions/deadbeef", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestSessionControlFlow(t *testing.T) {
	r := testRouter(t)
	sess := createSession(t, r)
	base := "/api/sessions/" + sess.SessionID

	// Seek to the middle.
	w := doJSON(t, r, http.MethodPost, base+"/seek", SeekRequest{Percent: fp(0.5)})
	if w.Code != http.StatusOK {
		t.Fatalf("seek: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var pb PlaybackResponse
	json.NewDecoder(w.Body).Decode(&pb)
	if pb.Progress != 0.5 {
		t.Errorf("progress after seek = %v, want 0.5", pb.Progress)
	}

	// Invalid speed is rejected; valid speed sticks.
	if w := doJSON(t, r, http.MethodPut, base+"/speed", SpeedRequest{Multiplier: 0}); w.Code != http.StatusBadRequest {
		t.Errorf("zero speed: expected 400, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPut, base+"/speed", SpeedRequest{Multiplier: 2.5})
	if w.Code != http.StatusOK {
		t.Fatalf("speed: expected 200, got %d", w.Code)
	}
	json.NewDecoder(w.Body).Decode(&pb)
	if pb.Speed != 2.5 {
		t.Errorf("speed = %v, want 2.5", pb.Speed)
	}

	// Toggle on, then pause.
	w = doJSON(t, r, http.MethodPost, base+"/toggle", nil)
	json.NewDecoder(w.Body).Decode(&pb)
	if !pb.Playing {
		t.Error("toggle should start playback")
	}
	w = doJSON(t, r, http.MethodPost, base+"/pause", nil)
	json.NewDecoder(w.Body).Decode(&pb)
	if pb.Playing {
		t.Error("pause should stop playback")
	}
}

func TestSeekClampOverEnd(t *testing.T) {
	r := testRouter(t)
	sess := createSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/sessions/"+sess.SessionID+"/seek", SeekRequest{Percent: fp(1.5)})
	var pb PlaybackResponse
	json.NewDecoder(w.Body).Decode(&pb)
	if pb.Progress != 1 || pb.Time != sess.EndTime {
		t.Errorf("seek 1.5: progress=%v time=%v, want clamped to end", pb.Progress, pb.Time)
	}
}

func TestSeekRequiresTarget(t *testing.T) {
	r := testRouter(t)
	sess := createSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/sessions/"+sess.SessionID+"/seek", SeekRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty seek, got %d", w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	r := testRouter(t)
	sess := createSession(t, r)
	base := "/api/sessions/" + sess.SessionID

	if w := doJSON(t, r, http.MethodDelete, base, nil); w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, base, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func fp(v float64) *float64 { return &v }
