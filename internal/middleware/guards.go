package middleware

import (
	"context"
	"net/http"

	"tenf/portal/internal/auth"
	"tenf/portal/internal/common"
)

func guard(check func(ctx context.Context) (*auth.Principal, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := check(r.Context()); err != nil {
				common.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() func(http.Handler) http.Handler {
	return guard(auth.RequireAuth)
}

// RequireAdmin lets any staff role through.
func RequireAdmin() func(http.Handler) http.Handler {
	return guard(auth.RequireAdmin)
}

func RequirePermission(action string) func(http.Handler) http.Handler {
	return guard(func(ctx context.Context) (*auth.Principal, error) {
		return auth.RequirePermission(ctx, action)
	})
}

// RequireSection gates a group of routes behind an admin panel section.
func RequireSection(section string) func(http.Handler) http.Handler {
	return guard(func(ctx context.Context) (*auth.Principal, error) {
		return auth.RequireSectionAccess(ctx, section)
	})
}
