package api

import (
	"fmt"
	"net/http"

	"tenf/portal/internal/auth"
	"tenf/portal/internal/logging"
	"tenf/portal/internal/services"

	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type bonusRequest struct {
	TimezoneBonus   *bool    `json:"timezoneBonus"`
	ModerationBonus *float64 `json:"moderationBonus"`
}

type followRequest struct {
	Entries []services.FollowEntry `json:"entries"`
}

type closeMonthResponse struct {
	Month     string `json:"month"`
	Finalized int    `json:"finalized"`
}

type monthStatusResponse struct {
	Month  string `json:"month"`
	Closed bool   `json:"closed"`
}

// ListEvaluations handles GET /api/admin/evaluations/{month}
func (h *Handlers) ListEvaluations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		evals, err := h.deps.Services.Evaluations.ListMonth(r.Context(), chi.URLParam(r, "month"))
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &evals)
	}
}

// MonthStatus handles GET /api/admin/evaluations/{month}/status
func (h *Handlers) MonthStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		month := chi.URLParam(r, "month")
		closed, err := h.deps.Services.Evaluations.IsMonthClosed(r.Context(), month)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &monthStatusResponse{Month: month, Closed: closed})
	}
}

// MemberEvaluationHistory handles GET /api/admin/evaluations/member/{login}
func (h *Handlers) MemberEvaluationHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		evals, err := h.deps.Services.Evaluations.History(r.Context(), chi.URLParam(r, "login"))
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &evals)
	}
}

// MyEvaluations handles GET /api/me/evaluations
func (h *Handlers) MyEvaluations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.memberCaller(w, r)
		if !ok {
			return
		}
		evals, err := h.deps.Services.Evaluations.History(r.Context(), p.TwitchLogin)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &evals)
	}
}

// SetBonus handles PUT /api/admin/evaluations/{month}/{login}/bonus[?force=true]
func (h *Handlers) SetBonus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		force, err := forceRequested(r)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		var req bonusRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, r, err)
			return
		}
		e, err := h.deps.Services.Evaluations.SetBonus(r.Context(), p.ActorID(), chi.URLParam(r, "login"), chi.URLParam(r, "month"),
			services.BonusUpdate{TimezoneBonus: req.TimezoneBonus, ModerationBonus: req.ModerationBonus}, force)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, e)
	}
}

// ImportDiscordEngagement handles POST /api/admin/evaluations/{month}/discord
//
// @Summary      Feed the Discord engagement sub-score
// @Description  Multipart "file" (TSV/CSV/XLSX) with a name column, a message count and voice minutes.
// @Tags         Evaluations
// @Param        month  path   string  true   "YYYY-MM"
// @Param        force  query  bool    false  "Founders only: write into a closed month"
// @Success      200  {object}  responses.APIResponse[services.FeedReport]
// @Failure      409  {object}  responses.APIResponse[any]  "Month closed"
// @Router       /api/admin/evaluations/{month}/discord [post]
func (h *Handlers) ImportDiscordEngagement() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		force, err := forceRequested(r)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		name, data, err := readUpload(r)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		rows, err := services.ParseDiscordEngagement(name, data)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		report, err := h.deps.Services.Evaluations.SetDiscordEngagement(r.Context(), p.ActorID(), chi.URLParam(r, "month"), rows, force)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, report)
	}
}

// SetFollow handles POST /api/admin/evaluations/{month}/follow
func (h *Handlers) SetFollow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		force, err := forceRequested(r)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		var req followRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, r, err)
			return
		}
		report, err := h.deps.Services.Evaluations.SetFollow(r.Context(), p.ActorID(), chi.URLParam(r, "month"), req.Entries, force)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, report)
	}
}

// RecomputeEventScores handles POST /api/admin/evaluations/{month}/events
func (h *Handlers) RecomputeEventScores() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		force, err := forceRequested(r)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		report, err := h.deps.Services.Evaluations.RecomputeEvents(r.Context(), p.ActorID(), chi.URLParam(r, "month"), force)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, report)
	}
}

// CloseMonth handles POST /api/admin/evaluations/{month}/close
func (h *Handlers) CloseMonth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		month := chi.URLParam(r, "month")
		n, err := h.deps.Services.Evaluations.CloseMonth(r.Context(), p.ActorID(), month)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &closeMonthResponse{Month: month, Finalized: n})
	}
}

// ExportEvaluations handles GET /api/admin/evaluations/{month}/export
func (h *Handlers) ExportEvaluations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		month := chi.URLParam(r, "month")
		data, err := h.deps.Services.Evaluations.ExportMonth(r.Context(), month)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="evaluations-%s.xlsx"`, month))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			logging.Warn("Failed to write export", "month", month, "error", err)
		}
	}
}
