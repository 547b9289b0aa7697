package api

import (
	"net/http"

	"tenf/portal/internal/auth"
	"tenf/portal/internal/common"
)

type Handlers struct {
	deps *Dependencies
}

// NewHandlers creates a new handlers instance with injected dependencies
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		deps: deps,
	}
}

// caller returns the principal or writes 401.
func (h *Handlers) caller(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p, err := auth.RequireAuth(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return nil, false
	}
	return p, true
}

// memberCaller is caller for routes that need the caller's roster entry.
func (h *Handlers) memberCaller(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p, ok := h.caller(w, r)
	if !ok {
		return nil, false
	}
	if p.TwitchLogin == "" {
		respondWithError(w, r, common.Validationf("no member linked to this account"))
		return nil, false
	}
	return p, true
}
