package api

import (
	"net/http"

	"tenf/portal/internal/auth"
	"tenf/portal/internal/models/entities"
	"tenf/portal/internal/services"

	"github.com/go-chi/chi/v5"
)

type joinAcademyRequest struct {
	Password string `json:"password"`
}

type submitFormRequest struct {
	FormType string            `json:"formType"`
	Answers  map[string]string `json:"answers"`
	IsPublic bool              `json:"isPublic"`
}

func academyMember(p *auth.Principal) services.AcademyMember {
	return services.AcademyMember{DiscordID: p.DiscordID, TwitchLogin: p.TwitchLogin}
}

// AcademySettings handles GET /api/academy/settings
func (h *Handlers) AcademySettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondWithSuccess(w, http.StatusOK, h.deps.Services.Academy.Settings(r.Context()))
	}
}

// UpdateAcademySettings handles PUT /api/admin/academy/settings
func (h *Handlers) UpdateAcademySettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		var in entities.AcademySettings
		if err := decodeJSON(r, &in); err != nil {
			respondWithError(w, r, err)
			return
		}
		st, err := h.deps.Services.Academy.UpdateSettings(r.Context(), p.ActorID(), in)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, st)
	}
}

// ListPromos handles GET /api/academy/promos. Password hashes never leave
// the service.
func (h *Handlers) ListPromos() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		promos, err := h.deps.Services.Academy.ListPromos(r.Context())
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &promos)
	}
}

func (h *Handlers) CreatePromo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		var in services.PromoInput
		if err := decodeJSON(r, &in); err != nil {
			respondWithError(w, r, err)
			return
		}
		promo, err := h.deps.Services.Academy.CreatePromo(r.Context(), p.ActorID(), in)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusCreated, promo)
	}
}

func (h *Handlers) UpdatePromo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		var in services.PromoInput
		if err := decodeJSON(r, &in); err != nil {
			respondWithError(w, r, err)
			return
		}
		promo, err := h.deps.Services.Academy.UpdatePromo(r.Context(), p.ActorID(), chi.URLParam(r, "id"), in)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, promo)
	}
}

// JoinPromo handles POST /api/academy/promos/{id}/join
//
// @Summary      Join an Academy promo
// @Description  With a password the caller joins as participant. Without one, access comes from the caller's Discord roles; a failed Discord lookup denies access.
// @Tags         Academy
// @Param        id     path  string              true   "Promo id"
// @Param        input  body  joinAcademyRequest  false  "Promo password"
// @Success      200  {object}  responses.APIResponse[entities.AcademyAccess]
// @Failure      403  {object}  responses.APIResponse[any]
// @Router       /api/academy/promos/{id}/join [post]
func (h *Handlers) JoinPromo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.caller(w, r)
		if !ok {
			return
		}
		var req joinAcademyRequest
		if r.ContentLength > 0 {
			if err := decodeJSON(r, &req); err != nil {
				respondWithError(w, r, err)
				return
			}
		}
		access, err := h.deps.Services.Academy.Join(r.Context(), chi.URLParam(r, "id"), academyMember(p), req.Password)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, access)
	}
}

// MyPromoAccess handles GET /api/academy/promos/{id}/access
func (h *Handlers) MyPromoAccess() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.caller(w, r)
		if !ok {
			return
		}
		access, err := h.deps.Services.Academy.Access(r.Context(), chi.URLParam(r, "id"), p.DiscordID)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, access)
	}
}

// SubmitForm handles POST /api/academy/promos/{id}/forms
func (h *Handlers) SubmitForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.caller(w, r)
		if !ok {
			return
		}
		var req submitFormRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, r, err)
			return
		}
		resp, err := h.deps.Services.Academy.SubmitForm(r.Context(), chi.URLParam(r, "id"), academyMember(p), req.FormType, req.Answers, req.IsPublic)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, resp)
	}
}

// MyForms handles GET /api/academy/promos/{id}/forms?type=. Participants
// see their own responses; mentors and academy admins see the whole promo.
func (h *Handlers) MyForms() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.caller(w, r)
		if !ok {
			return
		}
		promoID := chi.URLParam(r, "id")
		access, err := h.deps.Services.Academy.Access(r.Context(), promoID, p.DiscordID)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		owner := p.DiscordID
		if access.Role != entities.AcademyRoleParticipant {
			owner = ""
		}
		forms, err := h.deps.Services.Academy.ListForms(r.Context(), promoID, r.URL.Query().Get("type"), owner)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &forms)
	}
}

// PublicForms handles GET /api/academy/promos/{id}/public-forms
func (h *Handlers) PublicForms() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		forms, err := h.deps.Services.Academy.PublicForms(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &forms)
	}
}

// AdminPromoForms handles GET /api/admin/academy/promos/{id}/forms
func (h *Handlers) AdminPromoForms() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		forms, err := h.deps.Services.Academy.ListForms(r.Context(), chi.URLParam(r, "id"), q.Get("type"), q.Get("discordId"))
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &forms)
	}
}

func (h *Handlers) ListPromoAccess() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.deps.Services.Academy.ListAccess(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &list)
	}
}

func (h *Handlers) GrantPromoAccess() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		var grant entities.AcademyAccess
		if err := decodeJSON(r, &grant); err != nil {
			respondWithError(w, r, err)
			return
		}
		grant.PromoID = chi.URLParam(r, "id")
		access, err := h.deps.Services.Academy.GrantAccess(r.Context(), p.ActorID(), grant)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, access)
	}
}

func (h *Handlers) RevokePromoAccess() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		err := h.deps.Services.Academy.RevokeAccess(r.Context(), p.ActorID(), chi.URLParam(r, "id"), chi.URLParam(r, "discordId"))
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
