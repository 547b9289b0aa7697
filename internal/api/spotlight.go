package api

import (
	"net/http"

	"tenf/portal/internal/auth"

	"github.com/go-chi/chi/v5"
)

type startSpotlightRequest struct {
	Streamer  string `json:"streamer"`
	Moderator string `json:"moderator"`
}

type presenceRequest struct {
	Login   string `json:"login"`
	Present bool   `json:"present"`
}

type criteriaRequest struct {
	Scores map[string]int `json:"scores"`
}

type endSpotlightRequest struct {
	Notes string `json:"notes"`
}

// ActiveSpotlight handles GET /api/spotlight/active
func (h *Handlers) ActiveSpotlight() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sp, err := h.deps.Services.Spotlights.Active(r.Context())
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, sp)
	}
}

// ListSpotlights handles GET /api/admin/spotlights?month=YYYY-MM
func (h *Handlers) ListSpotlights() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.deps.Services.Spotlights.ListMonth(r.Context(), r.URL.Query().Get("month"))
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &list)
	}
}

func (h *Handlers) GetSpotlight() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sp, err := h.deps.Services.Spotlights.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, sp)
	}
}

// StartSpotlight handles POST /api/admin/spotlights. The moderator defaults
// to the caller.
func (h *Handlers) StartSpotlight() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		var req startSpotlightRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, r, err)
			return
		}
		moderator := req.Moderator
		if moderator == "" {
			moderator = p.TwitchLogin
		}
		sp, err := h.deps.Services.Spotlights.Start(r.Context(), p.ActorID(), req.Streamer, moderator)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusCreated, sp)
	}
}

func (h *Handlers) SetSpotlightPresence() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req presenceRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, r, err)
			return
		}
		sp, err := h.deps.Services.Spotlights.SetPresence(r.Context(), chi.URLParam(r, "id"), req.Login, req.Present)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, sp)
	}
}

func (h *Handlers) SetSpotlightCriteria() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		var req criteriaRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, r, err)
			return
		}
		sp, err := h.deps.Services.Spotlights.SetCriteria(r.Context(), p.ActorID(), chi.URLParam(r, "id"), req.Scores)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, sp)
	}
}

// EndSpotlight handles POST /api/admin/spotlights/{id}/complete and
// /cancel. Completing one refreshes the month's spotlight sub-scores.
func (h *Handlers) EndSpotlight(complete bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		var req endSpotlightRequest
		if r.ContentLength > 0 {
			if err := decodeJSON(r, &req); err != nil {
				respondWithError(w, r, err)
				return
			}
		}
		end := h.deps.Services.Spotlights.Cancel
		if complete {
			end = h.deps.Services.Spotlights.Complete
		}
		sp, err := end(r.Context(), p.ActorID(), chi.URLParam(r, "id"), req.Notes)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, sp)
	}
}
