package api

import (
	"net/http"

	"tenf/portal/internal/auth"

	"github.com/go-chi/chi/v5"
)

type safeModeRequest struct {
	Enabled bool `json:"enabled"`
}

// SafeModeState handles GET /api/admin/safe-mode
func (h *Handlers) SafeModeState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := h.deps.Services.SafeMode.State(r.Context())
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, st)
	}
}

// ToggleSafeMode handles PUT /api/admin/safe-mode
//
// @Summary      Enable or disable safe mode
// @Description  Founders only. While enabled, every write by a non-founder is refused with 403.
// @Tags         Admin
// @Param        input  body  safeModeRequest  true  "Desired state"
// @Success      200  {object}  responses.APIResponse[gormModels.SafeModeState]
// @Failure      403  {object}  responses.APIResponse[any]
// @Router       /api/admin/safe-mode [put]
func (h *Handlers) ToggleSafeMode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req safeModeRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, r, err)
			return
		}
		st, err := h.deps.Services.SafeMode.Toggle(r.Context(), auth.GetPrincipal(r.Context()), req.Enabled)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, st)
	}
}

// CheckSync handles GET /api/admin/sync/check?entity=members
func (h *Handlers) CheckSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entities []string
		if e := r.URL.Query().Get("entity"); e != "" {
			entities = append(entities, e)
		}
		report, err := h.deps.Services.Consistency.Check(r.Context(), entities...)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, report)
	}
}

// ImportMissing handles POST /api/admin/sync/import/{entity}
func (h *Handlers) ImportMissing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		result, err := h.deps.Services.Consistency.ImportMissing(r.Context(), p.ActorID(), chi.URLParam(r, "entity"))
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, result)
	}
}

// AuditLogs handles GET /api/admin/logs?action=&limit=
func (h *Handlers) AuditLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit", 100)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		logs, err := h.deps.Repo.Audit.List(r.Context(), r.URL.Query().Get("action"), limit)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &logs)
	}
}
