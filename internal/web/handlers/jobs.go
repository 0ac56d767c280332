package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/photo-publisher/internal/constants"
	"github.com/kozaktomas/photo-publisher/internal/export"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// ExportJob represents an async export run. Mutable fields are guarded by
// the embedded broadcaster's mutex; serialize via Snapshot, not directly.
type ExportJob struct {
	EventBroadcaster

	ID          string
	Status      JobStatus
	Stage       string
	Progress    int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
	Options     ExportJobOptions
	Summary     *export.Summary

	// archive holds the finalized zip until downloaded; never serialized.
	archive []byte
}

// ExportJobOptions represents the selections of an export job.
type ExportJobOptions struct {
	ImageIDs []string `json:"image_ids"`
	Surfaces []string `json:"surfaces"`
}

// ExportJobView is a point-in-time copy of a job's marshalable state.
// Handlers serialize views, never live jobs, so JSON encoding cannot race
// with the background runner's updates.
type ExportJobView struct {
	ID          string           `json:"id"`
	Status      JobStatus        `json:"status"`
	Stage       string           `json:"stage,omitempty"`
	Progress    int              `json:"progress"`
	Error       string           `json:"error,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Options     ExportJobOptions `json:"options"`
	Summary     *export.Summary  `json:"summary,omitempty"`
}

// Snapshot returns a consistent copy of the job state.
func (j *ExportJob) Snapshot() ExportJobView {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return ExportJobView{
		ID:          j.ID,
		Status:      j.Status,
		Stage:       j.Stage,
		Progress:    j.Progress,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		Options:     j.Options,
		Summary:     j.Summary,
	}
}

// GetStatus returns the current job status (implements SSEJob).
func (j *ExportJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Archive returns the finalized archive bytes, or nil before completion.
func (j *ExportJob) Archive() []byte {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.archive
}

// Cancel cancels the export job.
func (j *ExportJob) Cancel() {
	j.EventBroadcaster.Cancel()
	j.mu.Lock()
	j.Status = JobStatusCancelled
	j.mu.Unlock()
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// setCancel installs the context cancel function for the running job.
func (b *EventBroadcaster) setCancel(cancel context.CancelFunc) {
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	b.mu.RLock()
	cancel := b.cancel
	b.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// JobManager manages async export jobs.
type JobManager struct {
	jobs map[string]*ExportJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*ExportJob),
	}
}

// CreateJob creates a new export job. Finished jobs past their TTL are
// dropped opportunistically so archives do not pile up in memory.
func (m *JobManager) CreateJob(id string, options ExportJobOptions) *ExportJob {
	job := &ExportJob{
		ID:        id,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		Options:   options,
	}

	m.mu.Lock()
	m.dropExpiredLocked()
	m.jobs[id] = job
	m.mu.Unlock()

	return job
}

// dropExpiredLocked removes terminal jobs whose TTL has passed.
// Caller must hold m.mu.
func (m *JobManager) dropExpiredLocked() {
	cutoff := time.Now().Add(-constants.CompletedJobTTLSeconds * time.Second)
	for id, job := range m.jobs {
		job.mu.RLock()
		completedAt := job.CompletedAt
		job.mu.RUnlock()
		if completedAt != nil && completedAt.Before(cutoff) {
			delete(m.jobs, id)
		}
	}
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *ExportJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// ListJobs returns all jobs.
func (m *JobManager) ListJobs() []*ExportJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*ExportJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}
