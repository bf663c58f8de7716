package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
)

// DrainState reports whether the worker is currently draining the queue
type DrainState interface {
	IsDraining() bool
}

// QueueHandler exposes the job queue and the worker timer
type QueueHandler struct {
	jobStorage interfaces.JobStorage
	scheduler  interfaces.SchedulerService
	worker     DrainState
	logger     arbor.ILogger
}

// NewQueueHandler creates a new QueueHandler
func NewQueueHandler(jobStorage interfaces.JobStorage, scheduler interfaces.SchedulerService, worker DrainState, logger arbor.ILogger) *QueueHandler {
	return &QueueHandler{
		jobStorage: jobStorage,
		scheduler:  scheduler,
		worker:     worker,
		logger:     logger,
	}
}

// jobView omits page content from listings
type jobView struct {
	ID             uint64                `json:"id"`
	SourceKey      string                `json:"source_key"`
	Title          string                `json:"title"`
	Status         models.JobStatus      `json:"status"`
	Attempts       int                   `json:"attempts"`
	ProcessingKind models.ProcessingKind `json:"processing_kind"`
	ContentLength  int                   `json:"content_length"`
	CreatedAt      string                `json:"created_at"`
	UpdatedAt      string                `json:"updated_at"`
}

func newJobView(job *models.Job) jobView {
	return jobView{
		ID:             job.ID,
		SourceKey:      job.SourceKey,
		Title:          job.Title,
		Status:         job.Status,
		Attempts:       job.Attempts,
		ProcessingKind: job.ProcessingKind,
		ContentLength:  len(job.Content),
		CreatedAt:      job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      job.UpdatedAt.Format(time.RFC3339),
	}
}

// QueueStatusHandler handles GET /api/queue?status=pending&limit=50
func (h *QueueHandler) QueueStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ctx := r.Context()

	status := models.JobStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		WriteError(w, http.StatusBadRequest, "Unknown job status: "+string(status))
		return
	}

	stats, err := h.jobStorage.CountByStatus(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to count jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to read queue")
		return
	}

	jobs, err := h.jobStorage.ListJobs(ctx, status, GetLimitParam(r, 50, 500))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to read queue")
		return
	}

	views := make([]jobView, len(jobs))
	for i, job := range jobs {
		views[i] = newJobView(job)
	}

	response := map[string]interface{}{
		"stats":    stats,
		"jobs":     views,
		"draining": h.worker != nil && h.worker.IsDraining(),
	}
	if h.scheduler != nil {
		response["scheduler"] = h.scheduler.Status()
	}

	WriteJSON(w, http.StatusOK, response)
}

// DrainHandler handles POST /api/queue/drain, firing a worker tick now
func (h *QueueHandler) DrainHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if h.scheduler == nil || !h.scheduler.IsRunning() {
		WriteError(w, http.StatusServiceUnavailable, "Scheduler is not running")
		return
	}

	if h.worker != nil && h.worker.IsDraining() {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "busy",
			"message": "A drain is already in progress",
		})
		return
	}

	h.scheduler.TriggerNow()
	h.logger.Debug().Msg("Queue drain triggered via API")
	WriteStarted(w, "Queue drain started")
}
