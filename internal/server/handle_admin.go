package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stadtaev/racereplay/internal/race"
)

// AdminLoginRequest is the request body for POST /api/admin/login.
type AdminLoginRequest struct {
	Password string `json:"password"`
}

// AdminMeResponse identifies an authenticated admin session.
type AdminMeResponse struct {
	Role string `json:"role"`
}

func handleAdminLogin(admin *AdminAuth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminLoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Password == "" {
			writeError(w, http.StatusBadRequest, "password is required")
			return
		}

		id, err := admin.Login(req.Password)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     adminCookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(adminSessionTTL / time.Second),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, http.StatusOK, AdminMeResponse{Role: "admin"})
	}
}

func handleAdminLogout(admin *AdminAuth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(adminCookieName); err == nil {
			admin.Logout(cookie.Value)
		}
		http.SetCookie(w, &http.Cookie{
			Name:     adminCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleAdminMe(admin *AdminAuth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(adminCookieName)
		if err != nil || !admin.Valid(cookie.Value) {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		writeJSON(w, http.StatusOK, AdminMeResponse{Role: "admin"})
	}
}

// handleImportRace ingests an exported bundle under the race ID in the
// path. Re-importing an existing ID replaces it.
func handleImportRace(store race.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var bundle race.Bundle
		if err := readJSON(r, &bundle); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		bundle.ID = chi.URLParam(r, "raceID")

		if err := bundle.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := store.ImportBundle(r.Context(), &bundle); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, race.Summary{
			ID:          bundle.ID,
			Name:        bundle.Metadata.Name,
			StartTime:   bundle.Metadata.StartTime,
			EndTime:     bundle.Metadata.EndTime,
			RunnerCount: len(bundle.Runners),
			TotalStages: bundle.Metadata.TotalStages,
		})
	}
}

func handleAdminDeleteRace(store race.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := store.DeleteRace(r.Context(), chi.URLParam(r, "raceID"))
		if errors.Is(err, race.ErrNotFound) {
			writeError(w, http.StatusNotFound, "race not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
