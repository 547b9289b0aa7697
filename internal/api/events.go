package api

import (
	"net/http"

	"tenf/portal/internal/auth"
	"tenf/portal/internal/services"

	"github.com/go-chi/chi/v5"
)

type registerEventRequest struct {
	Notes string `json:"notes"`
}

// ListEvents handles GET /api/events?kind=event|integration&limit=&offset=.
// Staff routes pass includeDrafts.
func (h *Handlers) ListEvents(includeDrafts bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit", 0)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		offset, err := queryInt(r, "offset", 0)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		events, err := h.deps.Services.Events.List(r.Context(), r.URL.Query().Get("kind"), includeDrafts, limit, offset)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &events)
	}
}

// GetEvent handles GET /api/events/{id}
func (h *Handlers) GetEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := h.deps.Services.Events.Get(r.Context(), chi.URLParam(r, "id"), false)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, e)
	}
}

func (h *Handlers) CreateEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		var in services.EventInput
		if err := decodeJSON(r, &in); err != nil {
			respondWithError(w, r, err)
			return
		}
		e, err := h.deps.Services.Events.Create(r.Context(), p.ActorID(), in)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusCreated, e)
	}
}

func (h *Handlers) UpdateEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		var in services.EventInput
		if err := decodeJSON(r, &in); err != nil {
			respondWithError(w, r, err)
			return
		}
		e, err := h.deps.Services.Events.Update(r.Context(), p.ActorID(), chi.URLParam(r, "id"), in)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, e)
	}
}

func (h *Handlers) DeleteEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		if err := h.deps.Services.Events.Delete(r.Context(), p.ActorID(), chi.URLParam(r, "id")); err != nil {
			respondWithError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// EventRegistrations handles GET /api/admin/events/{id}/registrations
func (h *Handlers) EventRegistrations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regs, err := h.deps.Services.Events.Registrations(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &regs)
	}
}

// RegisterForEvent handles POST /api/events/{id}/register
//
// @Summary      Register the caller for an event or integration
// @Tags         Events
// @Accept       json
// @Param        id     path  string                true   "Event id"
// @Param        input  body  registerEventRequest  false  "Optional notes"
// @Success      201  {object}  responses.APIResponse[gormModels.EventRegistration]
// @Failure      409  {object}  responses.APIResponse[any]  "Already registered"
// @Router       /api/events/{id}/register [post]
func (h *Handlers) RegisterForEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.memberCaller(w, r)
		if !ok {
			return
		}
		var req registerEventRequest
		if r.ContentLength > 0 {
			if err := decodeJSON(r, &req); err != nil {
				respondWithError(w, r, err)
				return
			}
		}
		reg, err := h.deps.Services.Events.Register(r.Context(), chi.URLParam(r, "id"), services.Registrant{
			TwitchLogin: p.TwitchLogin,
			DiscordID:   p.DiscordID,
			DisplayName: p.Username,
		}, req.Notes)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusCreated, reg)
	}
}

// UnregisterFromEvent handles DELETE /api/events/{id}/register
func (h *Handlers) UnregisterFromEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.memberCaller(w, r)
		if !ok {
			return
		}
		if err := h.deps.Services.Events.Unregister(r.Context(), chi.URLParam(r, "id"), p.TwitchLogin); err != nil {
			respondWithError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
