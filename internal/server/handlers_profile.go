package server

import (
	"net/http"

	"github.com/jonathan/resume-studio/internal/types"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requestUser(w, r)
	if !ok {
		return
	}

	profile, err := s.store.GetProfile(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if profile == nil {
		s.errorResponse(w, http.StatusNotFound, "profile not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, profile)
}

// handlePutProfile replaces the caller's profile.
func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requestUser(w, r)
	if !ok {
		return
	}

	var profile types.Profile
	if err := decodeJSON(w, r, &profile); err != nil {
		s.writeError(w, r, err)
		return
	}
	profile.Normalize()
	if err := profile.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.store.UpsertProfile(r.Context(), userID, &profile); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, &profile)
}
