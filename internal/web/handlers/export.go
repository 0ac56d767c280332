package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/photo-publisher/internal/export"
	"github.com/kozaktomas/photo-publisher/internal/session"
	"github.com/kozaktomas/photo-publisher/internal/surface"
)

// ExportHandler handles export job endpoints.
type ExportHandler struct {
	session    *session.Session
	jobManager *JobManager
}

// NewExportHandler creates a new export handler.
func NewExportHandler(sess *session.Session, jm *JobManager) *ExportHandler {
	return &ExportHandler{session: sess, jobManager: jm}
}

// StartRequest selects the image and surface sets for an export run.
type StartRequest struct {
	ImageIDs []string `json:"image_ids"`
	Surfaces []string `json:"surfaces"`
}

// Start starts a new export job.
func (h *ExportHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if len(req.ImageIDs) == 0 {
		respondError(w, http.StatusBadRequest, "image_ids is required")
		return
	}
	surfaces, err := resolveSurfaces(req.Surfaces)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, id := range req.ImageIDs {
		if h.session.Image(id) == nil {
			respondError(w, http.StatusNotFound, "image not found: "+id)
			return
		}
	}

	jobID := uuid.New().String()
	keys := make([]string, len(surfaces))
	for i, s := range surfaces {
		keys[i] = s.Key()
	}
	job := h.jobManager.CreateJob(jobID, ExportJobOptions{
		ImageIDs: req.ImageIDs,
		Surfaces: keys,
	})

	go h.runExportJob(job, surfaces)

	respondJSON(w, http.StatusAccepted, map[string]any{
		"job_id":         jobID,
		"status":         string(JobStatusPending),
		"expected_files": len(req.ImageIDs) * len(surfaces),
	})
}

// Status returns the status of an export job.
func (h *ExportHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	respondJSON(w, http.StatusOK, job.Snapshot())
}

// Events streams job events via SSE.
func (h *ExportHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			job := h.jobManager.GetJob(id)
			if job == nil {
				return nil
			}
			return job
		},
		func(job SSEJob) any {
			return job.(*ExportJob).Snapshot()
		},
	)
}

// Cancel cancels an export job.
func (h *ExportHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// Download serves the finalized archive of a completed export job.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.GetStatus() != JobStatusCompleted {
		respondError(w, http.StatusConflict, "export not finalized")
		return
	}

	archive := job.Archive()
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=photo-export-%s.zip", time.Now().Format("2006-01-02")))
	w.WriteHeader(http.StatusOK)
	w.Write(archive)
}

// runExportJob runs the export in the background, relaying orchestrator
// progress to SSE listeners.
func (h *ExportHandler) runExportJob(job *ExportJob, surfaces []surface.Surface) {
	ctx, cancel := context.WithCancel(context.Background())
	job.setCancel(cancel)
	defer cancel()

	job.mu.Lock()
	job.Status = JobStatusRunning
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "started", Message: "Export started"})

	result, err := export.Run(ctx, h.session, job.Options.ImageIDs, surfaces, export.Options{
		OnProgress: func(info export.ProgressInfo) {
			job.mu.Lock()
			job.Stage = string(info.Stage)
			job.Progress = info.Percent
			job.mu.Unlock()
			job.SendEvent(JobEvent{Type: "progress", Data: info})
		},
	})

	now := time.Now()
	if err != nil {
		job.mu.Lock()
		// A user cancel already set the terminal status; keep it.
		if job.Status != JobStatusCancelled {
			job.Status = JobStatusFailed
		}
		job.Error = err.Error()
		job.CompletedAt = &now
		job.mu.Unlock()

		event := JobEvent{Type: "failed", Message: err.Error()}
		var missing *export.MissingMetadataError
		if errors.As(err, &missing) {
			event.Data = map[string]any{"missing_pairs": missing.Pairs}
		}
		var mismatch *export.SelfTestMismatchError
		if errors.As(err, &mismatch) {
			event.Data = map[string]any{
				"expected": mismatch.Expected,
				"archived": mismatch.Archived,
				"rows":     mismatch.Rows,
				"failed":   mismatch.Failed,
			}
		}
		job.SendEvent(event)
		return
	}

	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.Progress = 100
	job.Summary = &result.Summary
	job.archive = result.Archive
	job.CompletedAt = &now
	job.mu.Unlock()

	job.SendEvent(JobEvent{Type: "completed", Data: result.Summary})
}
