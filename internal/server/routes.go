package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/stadtaev/racereplay/internal/race"
)

func addRoutes(r chi.Router, logger *slog.Logger, db *sql.DB, store race.Store, sessions *SessionRegistry, admin *AdminAuth) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Race Replay API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db))

	// Race catalog.
	r.Route("/api/races", func(r chi.Router) {
		r.Get("/", handleListRaces(store))
		r.Get("/{raceID}", handleGetRace(store))
		r.Get("/{raceID}/timeline", handleRaceTimeline(store))
		r.Post("/{raceID}/sessions", handleCreateSession(store, sessions))
	})

	// Replay sessions. {sessionID} is resolved by sessionMiddleware.
	r.Route("/api/sessions/{sessionID}", func(r chi.Router) {
		r.Use(sessionMiddleware(sessions))
		r.Get("/", handleSessionState())
		r.Delete("/", handleDeleteSession(sessions))
		r.Get("/timeline", handleSessionTimeline())
		r.Get("/progress", handleProgress())
		r.Get("/events", handleEvents(sessions.Broker()))
		r.Get("/ws", handleWS(logger, sessions.Broker()))
		r.Post("/play", handlePlay())
		r.Post("/pause", handlePause())
		r.Post("/toggle", handleToggle())
		r.Post("/seek", handleSeek())
		r.Put("/speed", handleSpeed())
	})

	// Admin auth.
	r.Post("/api/admin/login", handleAdminLogin(admin))
	r.Post("/api/admin/logout", handleAdminLogout(admin))
	r.Get("/api/admin/me", handleAdminMe(admin))

	// Admin race management, behind admin auth.
	r.Route("/api/admin/races", func(r chi.Router) {
		r.Use(adminAuthMiddleware(admin))
		r.Put("/{raceID}", handleImportRace(store))
		r.Delete("/{raceID}", handleAdminDeleteRace(store))
	})
}
