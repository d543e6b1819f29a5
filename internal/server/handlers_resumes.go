package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/resume-studio/internal/compilation"
	"github.com/jonathan/resume-studio/internal/db"
	"github.com/jonathan/resume-studio/internal/generation"
	"github.com/jonathan/resume-studio/internal/types"
)

// ResumeResponse is a resume with its derived progress timeline.
type ResumeResponse struct {
	*types.Resume
	Timeline []generation.Stage `json:"timeline"`
}

func newResumeResponse(resume *types.Resume) ResumeResponse {
	return ResumeResponse{
		Resume:   resume,
		Timeline: generation.Timeline(resume.GenerationStatus, resume.StatusBeforeFailure, resume.Mode),
	}
}

// CompileResponse is returned by the compile endpoint when the toolchain rejects the source.
type CompileResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// handleStartResume creates a resume and starts generating it in the background.
func (s *Server) handleStartResume(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requestUser(w, r)
	if !ok {
		return
	}

	var req types.StartResumeRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	resume, err := s.generator.Start(r.Context(), userID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("resume generation started", "resume_id", resume.ID, "mode", resume.Mode)
	w.Header().Set("Location", "/resumes/"+resume.ID.String())
	s.jsonResponse(w, http.StatusAccepted, newResumeResponse(resume))
}

func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requestUser(w, r)
	if !ok {
		return
	}

	filters, err := resumeFilters(r, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resumes, err := s.store.ListResumes(r.Context(), filters)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if resumes == nil {
		resumes = []types.Resume{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"resumes": resumes})
}

func resumeFilters(r *http.Request, userID uuid.UUID) (db.ResumeFilters, error) {
	filters := db.ResumeFilters{UserID: userID}
	query := r.URL.Query()

	if raw := query.Get("status"); raw != "" {
		status := types.GenerationStatus(raw)
		if !status.Valid() {
			return filters, &ErrValidation{Field: "status", Message: "unknown generation status"}
		}
		filters.Status = status
	}
	if raw := query.Get("job_id"); raw != "" {
		jobID, err := uuid.Parse(raw)
		if err != nil {
			return filters, &ErrValidation{Field: "job_id", Message: "must be a UUID"}
		}
		filters.JobID = &jobID
	}

	limit, err := queryLimit(r)
	if err != nil {
		return filters, err
	}
	filters.Limit = limit
	return filters, nil
}

// loadResume fetches the resume named by the path for the caller, writing the error response on failure.
func (s *Server) loadResume(w http.ResponseWriter, r *http.Request) (*types.Resume, uuid.UUID, bool) {
	userID, ok := s.requestUser(w, r)
	if !ok {
		return nil, uuid.Nil, false
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return nil, uuid.Nil, false
	}

	resume, err := s.store.GetResume(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, err)
		return nil, uuid.Nil, false
	}
	if resume == nil {
		s.errorResponse(w, http.StatusNotFound, "resume not found")
		return nil, uuid.Nil, false
	}
	return resume, userID, true
}

func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	resume, _, ok := s.loadResume(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, newResumeResponse(resume))
}

func (s *Server) handleDeleteResume(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requestUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.store.DeleteResume(r.Context(), id, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRestartResume reruns generation for a finished resume, or one whose run went idle.
func (s *Server) handleRestartResume(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requestUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resume, err := s.generator.Restart(r.Context(), userID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("resume generation restarted", "resume_id", resume.ID, "attempt", resume.Attempt)
	s.jsonResponse(w, http.StatusAccepted, newResumeResponse(resume))
}

// handleUpdateLaTeX stores a user edit of the LaTeX source.
func (s *Server) handleUpdateLaTeX(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requestUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req types.UpdateLaTeXRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.store.UpdateLaTeX(r.Context(), id, userID, req.LaTeXContent); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondWithResume(w, r, id, userID)
}

// handleCompileResume compiles the resume's LaTeX and stores either the PDF or the error.
func (s *Server) handleCompileResume(w http.ResponseWriter, r *http.Request) {
	if s.compiler == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "LaTeX compilation is not configured")
		return
	}
	resume, userID, ok := s.loadResume(w, r)
	if !ok {
		return
	}
	if !resume.GenerationStatus.IsTerminal() {
		s.writeError(w, r, db.ErrInProgress)
		return
	}
	if resume.LaTeXContent == "" {
		s.errorResponse(w, http.StatusConflict, "resume has no LaTeX content to compile")
		return
	}

	pdf, err := s.compiler.Compile(r.Context(), resume.LaTeXContent)
	if err != nil {
		s.handleCompileFailure(w, r, resume, userID, err)
		return
	}

	if err := s.store.SetResumePDF(r.Context(), resume.ID, userID, pdf); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("resume compiled", "resume_id", resume.ID, "bytes", len(pdf))
	s.respondWithResume(w, r, resume.ID, userID)
}

// handleCompileFailure records failures caused by the source on the resume.
// Service failures leave the resume untouched.
func (s *Server) handleCompileFailure(w http.ResponseWriter, r *http.Request, resume *types.Resume, userID uuid.UUID, err error) {
	var (
		compileErr *compilation.CompilationError
		timeoutErr *compilation.TimeoutError
		inputErr   *compilation.InputError
		message    string
		details    string
	)
	switch {
	case errors.As(err, &compileErr):
		message, details = compileErr.Message, compileErr.LogOutput
		if message == "" {
			message = "LaTeX compilation failed"
		}
	case errors.As(err, &timeoutErr):
		message, details = timeoutErr.Error(), timeoutErr.LogOutput
	case errors.As(err, &inputErr):
		message = inputErr.Message
	default:
		s.writeError(w, r, err)
		return
	}

	if storeErr := s.store.SetCompilationError(r.Context(), resume.ID, userID, message); storeErr != nil {
		s.writeError(w, r, storeErr)
		return
	}
	s.logger.Warn("resume compilation failed", "resume_id", resume.ID, "error", message)
	s.jsonResponse(w, HTTPStatus(err), CompileResponse{Error: message, Details: details})
}

func (s *Server) respondWithResume(w http.ResponseWriter, r *http.Request, id, userID uuid.UUID) {
	resume, err := s.store.GetResume(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if resume == nil {
		s.errorResponse(w, http.StatusNotFound, "resume not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, newResumeResponse(resume))
}

func (s *Server) handleGetPDF(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requestUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	pdf, err := s.store.GetResumePDF(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if pdf == nil {
		s.errorResponse(w, http.StatusNotFound, "PDF not available")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="resume.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		s.logger.Warn("failed to write PDF", "resume_id", id, "error", err)
	}
}
