package server

import (
	"context"
	"net/http"
	"time"

	"github.com/jonathan/resume-studio/internal/events"
	"github.com/jonathan/resume-studio/internal/types"
)

// handleResumeEvents streams status events for one resume until its run ends.
// The first event is a snapshot of the stored resume, so clients that connect late
// still see the current status.
func (s *Server) handleResumeEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		s.errorResponse(w, http.StatusNotImplemented, "progress events are not enabled")
		return
	}
	resume, userID, ok := s.loadResume(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch, err := s.events.Subscribe(ctx, resume.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// Reload after subscribing so no transition falls between the snapshot and the stream.
	resume, err = s.store.GetResume(ctx, resume.ID, userID)
	if err != nil || resume == nil {
		s.errorResponse(w, http.StatusNotFound, "resume not found")
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)

	if err := sse.WriteEvent("status", snapshotEvent(resume)); err != nil {
		return
	}
	if resume.GenerationStatus.IsTerminal() {
		sse.WriteComplete(resume.ID.String(), string(resume.GenerationStatus))
		return
	}

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			if err := sse.WriteKeepAlive(); err != nil {
				return
			}
		case ev, open := <-ch:
			if !open {
				return
			}
			if ev.Attempt < resume.Attempt {
				continue
			}
			if err := sse.WriteEvent("status", ev); err != nil {
				return
			}
			if ev.Terminal() {
				sse.WriteComplete(resume.ID.String(), string(ev.Status))
				return
			}
		}
	}
}

func snapshotEvent(resume *types.Resume) events.Event {
	ev := events.Event{
		ResumeID:   resume.ID,
		Attempt:    resume.Attempt,
		Status:     resume.GenerationStatus,
		ChunkCount: resume.ChunkCount,
		At:         resume.UpdatedAt,
	}
	if resume.GenerationError != nil {
		ev.Error = *resume.GenerationError
	}
	return ev
}
