package api

import (
	"net/http"
	"time"

	"tenf/portal/internal/auth"

	"github.com/go-chi/chi/v5"
)

type addRaidRequest struct {
	Raider string    `json:"raider"`
	Target string    `json:"target"`
	Date   time.Time `json:"date"`
	Source string    `json:"source"`
}

type ignoreRaidRequest struct {
	Raider  string `json:"raider"`
	Target  string `json:"target"`
	Ignored bool   `json:"ignored"`
}

type dedupeResponse struct {
	Removed int `json:"removed"`
}

// ListRaids handles GET /api/admin/raids/{month}
func (h *Handlers) ListRaids() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := h.deps.Services.Raids.List(r.Context(), chi.URLParam(r, "month"))
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, doc)
	}
}

// RaidSummary handles GET /api/admin/raids/{month}/summary
//
// @Summary      Monthly raid aggregation
// @Description  Done/received counts per member, target histograms and alerts for pairs raided 3 times or more.
// @Tags         Raids
// @Param        month  path  string  true  "YYYY-MM"
// @Success      200  {object}  responses.APIResponse[services.RaidSummary]
// @Router       /api/admin/raids/{month}/summary [get]
func (h *Handlers) RaidSummary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := h.deps.Services.Raids.Aggregate(r.Context(), chi.URLParam(r, "month"))
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, summary)
	}
}

// AddRaid handles POST /api/admin/raids. The month follows the raid date.
func (h *Handlers) AddRaid() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		var req addRaidRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, r, err)
			return
		}
		rec, err := h.deps.Services.Raids.AddRaid(r.Context(), p.ActorID(), req.Raider, req.Target, req.Date, req.Source)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusCreated, rec)
	}
}

// ScanRaids handles POST /api/admin/raids/{month}/scan
func (h *Handlers) ScanRaids() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		report, err := h.deps.Services.Raids.ScanDiscord(r.Context(), p.ActorID(), chi.URLParam(r, "month"))
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, report)
	}
}

// DedupeRaids handles POST /api/admin/raids/{month}/dedupe
func (h *Handlers) DedupeRaids() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		removed, err := h.deps.Services.Raids.Dedupe(r.Context(), p.ActorID(), chi.URLParam(r, "month"))
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &dedupeResponse{Removed: removed})
	}
}

// IgnoreRaidPair handles POST /api/admin/raids/{month}/ignore
func (h *Handlers) IgnoreRaidPair() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		var req ignoreRaidRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, r, err)
			return
		}
		doc, err := h.deps.Services.Raids.SetIgnored(r.Context(), p.ActorID(), chi.URLParam(r, "month"), req.Raider, req.Target, req.Ignored)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, doc)
	}
}

// RecomputeRaidPoints handles POST /api/admin/raids/{month}/recompute
func (h *Handlers) RecomputeRaidPoints() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		month := chi.URLParam(r, "month")
		if err := h.deps.Services.Raids.RecomputePoints(r.Context(), month); err != nil {
			respondWithError(w, r, err)
			return
		}
		summary, err := h.deps.Services.Raids.Aggregate(r.Context(), month)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, summary)
	}
}
