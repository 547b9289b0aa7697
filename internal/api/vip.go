package api

import (
	"net/http"

	"tenf/portal/internal/auth"

	"github.com/go-chi/chi/v5"
)

type vipRequest struct {
	Logins []string `json:"logins"`
}

// GetVip handles GET /api/vip and GET /api/vip/{month}
func (h *Handlers) GetVip() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vm, err := h.deps.Services.Vip.Get(r.Context(), chi.URLParam(r, "month"))
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, vm)
	}
}

// SetVip handles PUT /api/admin/vip/{month}[?force=true]
func (h *Handlers) SetVip() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		force, err := forceRequested(r)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		var req vipRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, r, err)
			return
		}
		vm, err := h.deps.Services.Vip.Set(r.Context(), p.ActorID(), chi.URLParam(r, "month"), req.Logins, force)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, vm)
	}
}
