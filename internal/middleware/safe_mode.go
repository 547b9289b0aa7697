package middleware

import (
	"context"
	"net/http"

	"tenf/portal/internal/auth"
	"tenf/portal/internal/common"
)

// WriteChecker is satisfied by *services.SafeModeService.
type WriteChecker interface {
	CheckWrite(ctx context.Context, p *auth.Principal) error
}

// SafeModeGuard blocks mutating requests while safe mode is on. Founders
// keep write access.
func SafeModeGuard(checker WriteChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if err := checker.CheckWrite(r.Context(), auth.GetPrincipal(r.Context())); err != nil {
				common.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
