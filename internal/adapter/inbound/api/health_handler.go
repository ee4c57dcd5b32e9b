package api

import (
	"fmt"
	"net/http"
	"time"

	"signalscore/internal/application/dto"
	"signalscore/internal/port/inbound"
)

// HealthHandler handles HTTP requests for health check operations.
type HealthHandler struct {
	healthService inbound.HealthService
	errorHandler  ErrorHandler
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(healthService inbound.HealthService, errorHandler ErrorHandler) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
		errorHandler:  errorHandler,
	}
}

// GetHealth handles GET /health. An unhealthy service answers 503.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	response, err := h.healthService.GetHealth(r.Context())
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}

	w.Header().Set("X-Health-Check-Duration", fmt.Sprintf("%.2fms", float64(time.Since(start).Microseconds())/1000))

	statusCode := http.StatusOK
	if response.Status == dto.HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	_ = WriteJSON(w, statusCode, response)
}
