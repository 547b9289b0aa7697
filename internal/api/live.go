package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const defaultMediaCount = 12

// LiveStreams handles GET /api/live: active members currently streaming.
func (h *Handlers) LiveStreams() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		streams, err := h.deps.Services.Live.LiveStreams(r.Context())
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &streams)
	}
}

// MemberClips handles GET /api/members/{login}/clips?first=
func (h *Handlers) MemberClips() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		first, err := queryInt(r, "first", defaultMediaCount)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		clips, err := h.deps.Services.Live.Clips(r.Context(), chi.URLParam(r, "login"), first)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &clips)
	}
}

// MemberVideos handles GET /api/members/{login}/videos?first=
func (h *Handlers) MemberVideos() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		first, err := queryInt(r, "first", defaultMediaCount)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		videos, err := h.deps.Services.Live.Videos(r.Context(), chi.URLParam(r, "login"), first)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &videos)
	}
}
