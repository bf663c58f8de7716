package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/models"
	"github.com/ternarybob/contextlog/internal/services/capture"
)

// CaptureHandler accepts pages from producers and controls the capture session
type CaptureHandler struct {
	captureService *capture.Service
	logger         arbor.ILogger
}

// NewCaptureHandler creates a new CaptureHandler
func NewCaptureHandler(captureService *capture.Service, logger arbor.ILogger) *CaptureHandler {
	return &CaptureHandler{
		captureService: captureService,
		logger:         logger,
	}
}

// CreatePageHandler handles POST /api/pages
func (h *CaptureHandler) CreatePageHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var page models.PageCapture
	if err := DecodeJSON(w, r, &page); err != nil {
		h.logger.Debug().Err(err).Msg("Rejected page capture")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.captureService.Capture(r.Context(), page)
	if err != nil {
		switch {
		case errors.Is(err, capture.ErrSessionInactive):
			WriteError(w, http.StatusConflict, "No active session. Start a session before capturing pages.")
		case errors.Is(err, capture.ErrEmptyContent):
			WriteError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Str("url", page.URL).Msg("Failed to capture page")
			WriteError(w, http.StatusInternalServerError, "Failed to capture page")
		}
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":     job.ID,
		"source_key": job.SourceKey,
		"status":     job.Status,
	})
}

// SessionStatusHandler handles GET /api/session
func (h *CaptureHandler) SessionStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	active, err := h.captureService.SessionActive(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read session state")
		WriteError(w, http.StatusInternalServerError, "Failed to read session state")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"active": active})
}

// StartSessionHandler handles POST /api/session/start
func (h *CaptureHandler) StartSessionHandler(w http.ResponseWriter, r *http.Request) {
	h.setSession(w, r, true)
}

// StopSessionHandler handles POST /api/session/stop
func (h *CaptureHandler) StopSessionHandler(w http.ResponseWriter, r *http.Request) {
	h.setSession(w, r, false)
}

func (h *CaptureHandler) setSession(w http.ResponseWriter, r *http.Request, active bool) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.captureService.SetSession(r.Context(), active); err != nil {
		h.logger.Error().Err(err).Bool("active", active).Msg("Failed to change session state")
		WriteError(w, http.StatusInternalServerError, "Failed to change session state")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"active": active})
}
