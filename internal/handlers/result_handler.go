package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/services/report"
)

const (
	defaultResultLimit = 50
	maxResultLimit     = 500
)

// ResultHandler serves the result log and session reports
type ResultHandler struct {
	results       interfaces.ResultStorage
	reportService *report.Service
	logger        arbor.ILogger
}

// NewResultHandler creates a new ResultHandler
func NewResultHandler(results interfaces.ResultStorage, reportService *report.Service, logger arbor.ILogger) *ResultHandler {
	return &ResultHandler{
		results:       results,
		reportService: reportService,
		logger:        logger,
	}
}

// ListResultsHandler handles GET /api/results?limit=50
func (h *ResultHandler) ListResultsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ctx := r.Context()
	limit := GetLimitParam(r, defaultResultLimit, maxResultLimit)

	results, err := h.results.List(ctx, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list results")
		WriteError(w, http.StatusInternalServerError, "Failed to list results")
		return
	}

	total, err := h.results.Count(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count results")
		total = len(results)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
		"total":   total,
	})
}

// ExportResultsHandler handles GET /api/results/export, a JSON download of the full log
func (h *ResultHandler) ExportResultsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	results, err := h.results.List(r.Context(), 0)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to export results")
		WriteError(w, http.StatusInternalServerError, "Failed to export results")
		return
	}

	filename := fmt.Sprintf("contextlog-export-%s.json", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	h.logger.Info().Int("count", len(results)).Msg("Result log exported")
	WriteJSON(w, http.StatusOK, results)
}

// ReportHandler handles GET /api/report?format=markdown|html|pdf&limit=N
func (h *ResultHandler) ReportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "markdown"
	}
	if format != "markdown" && format != "html" && format != "pdf" {
		WriteError(w, http.StatusBadRequest, "format must be one of markdown, html, pdf")
		return
	}

	rep, err := h.reportService.Generate(r.Context(), GetLimitParam(r, 0, 0))
	if err != nil {
		if errors.Is(err, report.ErrEmptyLog) {
			WriteError(w, http.StatusNotFound, "No results to summarize yet")
			return
		}
		h.logger.Error().Err(err).Msg("Failed to generate session report")
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	switch format {
	case "html":
		html, err := h.reportService.RenderHTML(rep.Markdown)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to render report HTML")
			WriteError(w, http.StatusInternalServerError, "Failed to render report")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(html))

	case "pdf":
		data, err := h.reportService.RenderPDF(rep.Markdown, "Session Summary")
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to render report")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q",
			fmt.Sprintf("session-summary-%s.pdf", rep.GeneratedAt.Format("20060102-150405"))))
		w.WriteHeader(http.StatusOK)
		w.Write(data)

	default:
		WriteJSON(w, http.StatusOK, rep)
	}
}
