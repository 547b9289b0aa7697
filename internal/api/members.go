package api

import (
	"net/http"

	"tenf/portal/internal/auth"
	"tenf/portal/internal/services"

	"github.com/go-chi/chi/v5"
)

// ListMembers handles GET /api/members (active roster) and
// GET /api/admin/members?all=true (every member, staff only).
func (h *Handlers) ListMembers(includeInactive bool) http.HandlerFunc {
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
		activeOnly := !includeInactive || r.URL.Query().Get("all") != "true"

		members, err := h.deps.Services.Members.List(r.Context(), limit, offset, activeOnly)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &members)
	}
}

// GetMember handles GET /api/members/{login}
func (h *Handlers) GetMember() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := h.deps.Services.Members.Get(r.Context(), chi.URLParam(r, "login"))
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, m)
	}
}

// CreateMember handles POST /api/admin/members
func (h *Handlers) CreateMember() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		var in services.MemberInput
		if err := decodeJSON(r, &in); err != nil {
			respondWithError(w, r, err)
			return
		}
		m, err := h.deps.Services.Members.Create(r.Context(), p.ActorID(), in)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusCreated, m)
	}
}

// UpdateMember handles PATCH /api/admin/members/{login}
func (h *Handlers) UpdateMember() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		var upd services.MemberUpdate
		if err := decodeJSON(r, &upd); err != nil {
			respondWithError(w, r, err)
			return
		}
		m, err := h.deps.Services.Members.Update(r.Context(), p.ActorID(), chi.URLParam(r, "login"), upd)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, m)
	}
}

// DeactivateMember handles DELETE /api/admin/members/{login}. Members are
// never hard-deleted.
func (h *Handlers) DeactivateMember() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		if err := h.deps.Services.Members.Deactivate(r.Context(), p.ActorID(), chi.URLParam(r, "login")); err != nil {
			respondWithError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SyncMembers handles POST /api/admin/members/sync
//
// @Summary      Sync the roster from the Discord guild
// @Description  Manual overrides win per field; the Discord username always follows the guild.
// @Tags         Members
// @Success      200  {object}  responses.APIResponse[services.SyncReport]
// @Router       /api/admin/members/sync [post]
func (h *Handlers) SyncMembers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		report, err := h.deps.Services.Members.SyncDiscord(r.Context(), p.ActorID())
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, report)
	}
}

// ImportMembers handles POST /api/admin/members/import (multipart "file",
// TSV/CSV/XLSX).
func (h *Handlers) ImportMembers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		name, data, err := readUpload(r)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		report, err := h.deps.Services.Members.Import(r.Context(), p.ActorID(), name, data)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, report)
	}
}
