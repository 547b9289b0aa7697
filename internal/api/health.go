package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"tenf/portal/internal/models/entities"
)

// HealthCheckHandler handles GET /healthCheck
//
// @Summary Health check
// @Description Pings Postgres and Redis and reports the blob backend.
// @Tags Misc
// @Success 200 {object} entities.HealthStatus
// @Failure 503 {object} entities.HealthStatus
// @Router /healthCheck [get]
func (h *Handlers) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := make(map[string]string, len(h.deps.Pingers))
		names := make([]string, 0, len(h.deps.Pingers))
		for name := range h.deps.Pingers {
			names = append(names, name)
		}
		sort.Strings(names)

		overallStatus := "ok"
		for _, name := range names {
			services[name] = "ok"
			if err := h.deps.Pingers[name](r.Context()); err != nil {
				services[name] = "down: " + err.Error()
				overallStatus = "down"
			}
		}

		resp := entities.HealthStatus{
			Status:   overallStatus,
			Services: services,
			Uptime:   time.Since(h.deps.UpSince).Round(time.Second).String(),
		}
		if h.deps.Blob != nil {
			resp.Blob = h.deps.Blob.Backend()
		}

		code := http.StatusOK
		if overallStatus != "ok" {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
