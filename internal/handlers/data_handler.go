package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/interfaces"
)

// DataHandler handles bulk user data operations
type DataHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewDataHandler creates a new DataHandler
func NewDataHandler(storage interfaces.StorageManager, logger arbor.ILogger) *DataHandler {
	return &DataHandler{
		storage: storage,
		logger:  logger,
	}
}

// ClearDataHandler handles DELETE /api/data. Results, rules and settings are
// removed; queued jobs and the result cache are kept.
func (h *DataHandler) ClearDataHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	if err := h.storage.ClearUserData(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Failed to clear user data")
		WriteError(w, http.StatusInternalServerError, "Failed to clear data")
		return
	}

	h.logger.Warn().Msg("User data cleared via API")
	WriteSuccess(w, "All results, rules and settings cleared")
}
