package db

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-studio/internal/types"
)

// MemoryStore implements the same storage operations as DB in process memory.
// It backs the generate CLI command and tests. Returned records are copies.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]types.Profile
	jobs     map[uuid.UUID]types.Job
	resumes  map[uuid.UUID]*memoryResume
	now      func() time.Time
}

type memoryResume struct {
	resume types.Resume
	pdf    []byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[uuid.UUID]types.Profile),
		jobs:     make(map[uuid.UUID]types.Job),
		resumes:  make(map[uuid.UUID]*memoryResume),
		now:      time.Now,
	}
}

// UpsertProfile stores the user's profile.
func (m *MemoryStore) UpsertProfile(_ context.Context, userID uuid.UUID, profile *types.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	var stored types.Profile
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[userID] = stored
	return nil
}

// GetProfile returns a copy of the user's profile, or nil.
func (m *MemoryStore) GetProfile(_ context.Context, userID uuid.UUID) (*types.Profile, error) {
	m.mu.RLock()
	p, ok := m.profiles[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var out types.Profile
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateJob stores a job posting.
func (m *MemoryStore) CreateJob(_ context.Context, userID uuid.UUID, req *types.CreateJobRequest) (*types.Job, error) {
	job := types.Job{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       req.Title,
		Company:     req.Company,
		Description: req.Description,
		URL:         req.URL,
		CreatedAt:   m.now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return &job, nil
}

// GetJob returns a job owned by userID, or nil.
func (m *MemoryStore) GetJob(_ context.Context, jobID, userID uuid.UUID) (*types.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok || job.UserID != userID {
		return nil, nil
	}
	return &job, nil
}

// ListJobs returns the user's jobs, newest first.
func (m *MemoryStore) ListJobs(_ context.Context, userID uuid.UUID, limit int) ([]types.Job, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	m.mu.RLock()
	jobs := []types.Job{}
	for _, job := range m.jobs {
		if job.UserID == userID {
			jobs = append(jobs, job)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// CreateResume creates a resume record at status started, attempt 1.
func (m *MemoryStore) CreateResume(_ context.Context, userID uuid.UUID, jobID *uuid.UUID, template, mode string) (*types.Resume, error) {
	now := m.now()
	r := types.Resume{
		ID:               uuid.New(),
		UserID:           userID,
		JobID:            jobID,
		Template:         template,
		Mode:             mode,
		Attempt:          1,
		GenerationStatus: types.StatusStarted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumes[r.ID] = &memoryResume{resume: r}
	return copyResume(&m.resumes[r.ID].resume), nil
}

// GetResume returns a copy of a resume owned by userID, or nil.
func (m *MemoryStore) GetResume(_ context.Context, id, userID uuid.UUID) (*types.Resume, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.resumes[id]
	if !ok || entry.resume.UserID != userID {
		return nil, nil
	}
	return m.view(entry), nil
}

// ListResumes retrieves a user's resumes with optional filters, newest first.
func (m *MemoryStore) ListResumes(_ context.Context, filters ResumeFilters) ([]types.Resume, error) {
	if filters.Limit <= 0 {
		filters.Limit = DefaultListLimit
	}

	m.mu.RLock()
	resumes := []types.Resume{}
	for _, entry := range m.resumes {
		r := entry.resume
		if r.UserID != filters.UserID {
			continue
		}
		if filters.Status != "" && r.GenerationStatus != filters.Status {
			continue
		}
		if filters.JobID != nil && (r.JobID == nil || *r.JobID != *filters.JobID) {
			continue
		}
		resumes = append(resumes, *m.view(entry))
	}
	m.mu.RUnlock()

	sort.SliceStable(resumes, func(i, j int) bool { return resumes[i].CreatedAt.After(resumes[j].CreatedAt) })
	if len(resumes) > filters.Limit {
		resumes = resumes[:filters.Limit]
	}
	return resumes, nil
}

// PatchResume applies a generation run's update if attempt is still current.
func (m *MemoryStore) PatchResume(_ context.Context, id uuid.UUID, attempt int, patch types.ResumePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.current(id, attempt)
	if err != nil {
		return err
	}
	r := &entry.resume

	if patch.Status != nil {
		r.GenerationStatus = *patch.Status
	}
	if patch.StatusBeforeFailure != nil {
		if *patch.StatusBeforeFailure == "" {
			r.StatusBeforeFailure = nil
		} else {
			s := *patch.StatusBeforeFailure
			r.StatusBeforeFailure = &s
		}
	}
	if patch.GenerationError != nil {
		if *patch.GenerationError == "" {
			r.GenerationError = nil
		} else {
			msg := *patch.GenerationError
			r.GenerationError = &msg
		}
	}
	if patch.LaTeXContent != nil {
		r.LaTeXContent = *patch.LaTeXContent
	}
	if patch.ChunkCount != nil {
		r.ChunkCount = *patch.ChunkCount
	}
	if patch.TailoredProfile != nil {
		r.TailoredProfile = append(json.RawMessage(nil), patch.TailoredProfile...)
	}
	if patch.Insights != nil {
		r.Insights = append([]types.Insight{}, patch.Insights...)
	}
	r.UpdatedAt = m.now()
	return nil
}

// AppendLaTeX appends a streamed delta if attempt is still current.
func (m *MemoryStore) AppendLaTeX(_ context.Context, id uuid.UUID, attempt int, delta string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.current(id, attempt)
	if err != nil {
		return err
	}
	entry.resume.LaTeXContent += delta
	entry.resume.UpdatedAt = m.now()
	return nil
}

// RestartResume resets a resume to started and bumps its attempt.
// A resume still generating is restartable only after staleAfter without any write.
func (m *MemoryStore) RestartResume(_ context.Context, id, userID uuid.UUID, staleAfter time.Duration) (*types.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.owned(id, userID)
	if err != nil {
		return nil, err
	}
	r := &entry.resume
	if !r.GenerationStatus.IsTerminal() && m.now().Sub(r.UpdatedAt) < staleAfter {
		return nil, ErrInProgress
	}

	r.Attempt++
	r.GenerationStatus = types.StatusStarted
	r.StatusBeforeFailure = nil
	r.GenerationError = nil
	r.LaTeXContent = ""
	r.ChunkCount = 0
	r.TailoredProfile = nil
	r.Insights = nil
	r.CompilationError = nil
	r.UpdatedAt = m.now()
	entry.pdf = nil
	return m.view(entry), nil
}

// UpdateLaTeX replaces the LaTeX source with a user edit and drops the stale PDF.
func (m *MemoryStore) UpdateLaTeX(_ context.Context, id, userID uuid.UUID, latex string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.owned(id, userID)
	if err != nil {
		return err
	}
	if !entry.resume.GenerationStatus.IsTerminal() {
		return ErrInProgress
	}
	entry.resume.LaTeXContent = latex
	entry.resume.CompilationError = nil
	entry.resume.UpdatedAt = m.now()
	entry.pdf = nil
	return nil
}

// SetResumePDF stores a compiled PDF and clears any compilation error.
func (m *MemoryStore) SetResumePDF(_ context.Context, id, userID uuid.UUID, pdf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.owned(id, userID)
	if err != nil {
		return err
	}
	entry.pdf = append([]byte(nil), pdf...)
	entry.resume.CompilationError = nil
	entry.resume.UpdatedAt = m.now()
	return nil
}

// SetCompilationError records a compilation failure.
func (m *MemoryStore) SetCompilationError(_ context.Context, id, userID uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.owned(id, userID)
	if err != nil {
		return err
	}
	entry.resume.CompilationError = &message
	entry.resume.UpdatedAt = m.now()
	entry.pdf = nil
	return nil
}

// GetResumePDF returns the compiled PDF, or nil.
func (m *MemoryStore) GetResumePDF(_ context.Context, id, userID uuid.UUID) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.resumes[id]
	if !ok || entry.resume.UserID != userID || entry.pdf == nil {
		return nil, nil
	}
	return append([]byte(nil), entry.pdf...), nil
}

// DeleteResume deletes a resume owned by userID.
func (m *MemoryStore) DeleteResume(_ context.Context, id, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.owned(id, userID); err != nil {
		return err
	}
	delete(m.resumes, id)
	return nil
}

func (m *MemoryStore) current(id uuid.UUID, attempt int) (*memoryResume, error) {
	entry, ok := m.resumes[id]
	if !ok {
		return nil, ErrNotFound
	}
	if entry.resume.Attempt != attempt {
		return nil, ErrStaleAttempt
	}
	return entry, nil
}

func (m *MemoryStore) owned(id, userID uuid.UUID) (*memoryResume, error) {
	entry, ok := m.resumes[id]
	if !ok || entry.resume.UserID != userID {
		return nil, ErrNotFound
	}
	return entry, nil
}

func (m *MemoryStore) view(entry *memoryResume) *types.Resume {
	r := copyResume(&entry.resume)
	if entry.pdf != nil {
		path := PDFPath(r.ID)
		r.PDFURL = &path
	}
	return r
}

func copyResume(src *types.Resume) *types.Resume {
	r := *src
	if src.JobID != nil {
		id := *src.JobID
		r.JobID = &id
	}
	if src.StatusBeforeFailure != nil {
		s := *src.StatusBeforeFailure
		r.StatusBeforeFailure = &s
	}
	if src.GenerationError != nil {
		msg := *src.GenerationError
		r.GenerationError = &msg
	}
	if src.CompilationError != nil {
		msg := *src.CompilationError
		r.CompilationError = &msg
	}
	r.TailoredProfile = append(json.RawMessage(nil), src.TailoredProfile...)
	r.Insights = append([]types.Insight(nil), src.Insights...)
	return &r
}
