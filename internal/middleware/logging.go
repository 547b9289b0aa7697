package middleware

import (
	"net/http"
	"runtime/debug"

	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/logging"
)

// Recoverer turns a handler panic into a logged 500.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.Error("Handler panic",
					"request_id", RequestID(r.Context()),
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				common.RespondMessage(w, http.StatusInternalServerError, constants.MsgInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
