package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/stadtaev/racereplay/internal/race"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Race Replay API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Replay recorded GPS races: interpolated positions, event timeline, and live scores over a controllable virtual clock.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/races
	listRaces, _ := r.NewOperationContext(http.MethodGet, "/api/races")
	listRaces.SetSummary("List races")
	listRaces.SetDescription("Returns the catalog of imported races.")
	listRaces.AddRespStructure([]race.Summary{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listRaces)

	// GET /api/races/{raceID}
	getRace, _ := r.NewOperationContext(http.MethodGet, "/api/races/{raceID}")
	getRace.SetSummary("Get race")
	getRace.SetDescription("Returns race metadata, runners, and geofences (geofences are passed through for map rendering).")
	getRace.AddRespStructure(race.Detail{}, openapi.WithHTTPStatus(http.StatusOK))
	getRace.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getRace)

	// GET /api/races/{raceID}/timeline
	getTimeline, _ := r.NewOperationContext(http.MethodGet, "/api/races/{raceID}/timeline")
	getTimeline.SetSummary("Race event timeline")
	getTimeline.SetDescription("Returns the discrete event timeline derived from the race's scoring records.")
	getTimeline.AddRespStructure(TimelineResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getTimeline.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getTimeline)

	// POST /api/races/{raceID}/sessions
	createSession, _ := r.NewOperationContext(http.MethodPost, "/api/races/{raceID}/sessions")
	createSession.SetSummary("Create replay session")
	createSession.SetDescription("Loads the race bundle atomically and starts a paused replay session at the window start.")
	createSession.AddRespStructure(SessionResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(createSession)

	// GET /api/sessions/{sessionID}
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}")
	getState.SetSummary("Get session state")
	getState.SetDescription("Returns the full point-in-time state: clock, interpolated positions, and score snapshots.")
	getState.AddRespStructure(SessionStateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getState)

	// DELETE /api/sessions/{sessionID}
	deleteSession, _ := r.NewOperationContext(http.MethodDelete, "/api/sessions/{sessionID}")
	deleteSession.SetSummary("Close session")
	deleteSession.SetDescription("Stops the session's playback and releases it.")
	deleteSession.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deleteSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteSession)

	// POST /api/sessions/{sessionID}/play
	postPlay, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{sessionID}/play")
	postPlay.SetSummary("Start playback")
	postPlay.SetDescription("Starts the virtual clock. No-op if already playing.")
	postPlay.AddRespStructure(PlaybackResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postPlay.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postPlay)

	// POST /api/sessions/{sessionID}/pause
	postPause, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{sessionID}/pause")
	postPause.SetSummary("Pause playback")
	postPause.AddRespStructure(PlaybackResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postPause.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postPause)

	// POST /api/sessions/{sessionID}/toggle
	postToggle, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{sessionID}/toggle")
	postToggle.SetSummary("Toggle playback")
	postToggle.AddRespStructure(PlaybackResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postToggle.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postToggle)

	// PUT /api/sessions/{sessionID}/speed
	putSpeed, _ := r.NewOperationContext(http.MethodPut, "/api/sessions/{sessionID}/speed")
	putSpeed.SetSummary("Set speed multiplier")
	putSpeed.SetDescription("Scales subsequent ticks only; already-elapsed virtual time is never rescaled.")
	putSpeed.AddReqStructure(SpeedRequest{})
	putSpeed.AddRespStructure(PlaybackResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	putSpeed.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	putSpeed.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(putSpeed)

	// POST /api/sessions/{sessionID}/seek
	postSeek, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{sessionID}/seek")
	postSeek.SetSummary("Seek")
	postSeek.SetDescription("Jumps to an absolute time or a fraction of the race window; out-of-range values are clamped.")
	postSeek.AddReqStructure(SeekRequest{})
	postSeek.AddRespStructure(PlaybackResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postSeek.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postSeek.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postSeek)

	// GET /api/sessions/{sessionID}/progress
	getProgress, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}/progress")
	getProgress.SetSummary("Playback progress")
	getProgress.AddRespStructure(ProgressResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getProgress.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getProgress)

	// GET /api/sessions/{sessionID}/timeline
	getSessionTimeline, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}/timeline")
	getSessionTimeline.SetSummary("Session event timeline")
	getSessionTimeline.AddRespStructure(TimelineResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getSessionTimeline.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSessionTimeline)

	// GET /api/sessions/{sessionID}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}/events")
	getEvents.SetSummary("SSE notification stream")
	getEvents.SetDescription("Server-Sent Events stream of engine notifications. Event names: positions, event, scores, clock.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/sessions/{sessionID}/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}/ws")
	getWS.SetSummary("Websocket notification stream")
	getWS.SetDescription("Websocket stream of engine notifications, one JSON text frame per notification. Same payloads as the SSE endpoint.")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols))
	_ = r.AddOperation(getWS)

	// POST /api/admin/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/admin/login")
	postLogin.SetSummary("Admin login")
	postLogin.SetDescription("Authenticate with the admin password. Sets admin_session cookie.")
	postLogin.AddReqStructure(AdminLoginRequest{})
	postLogin.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/admin/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/admin/logout")
	postLogout.SetSummary("Admin logout")
	postLogout.SetDescription("Clears admin session and cookie.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/admin/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/admin/me")
	getMe.SetSummary("Current admin")
	getMe.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// PUT /api/admin/races/{raceID}
	importRace, _ := r.NewOperationContext(http.MethodPut, "/api/admin/races/{raceID}")
	importRace.SetSummary("Import race bundle")
	importRace.SetDescription("Imports an exported race bundle under the given ID, replacing any existing race. Requires admin_session cookie.")
	importRace.AddReqStructure(race.Bundle{})
	importRace.AddRespStructure(race.Summary{}, openapi.WithHTTPStatus(http.StatusCreated))
	importRace.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	importRace.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(importRace)

	// DELETE /api/admin/races/{raceID}
	deleteRace, _ := r.NewOperationContext(http.MethodDelete, "/api/admin/races/{raceID}")
	deleteRace.SetSummary("Delete race")
	deleteRace.SetDescription("Removes a race and all its stored resources. Requires admin_session cookie.")
	deleteRace.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deleteRace.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	deleteRace.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(deleteRace)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
