package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"signalscore/internal/application/dto"
	"signalscore/internal/domain/valueobject"
	"signalscore/internal/port/inbound"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const maxRequestBodyBytes = 1 << 20

// ScoreHandler handles the /api/v1/scores endpoints.
type ScoreHandler struct {
	scoringService inbound.ScoringService
	errorHandler   ErrorHandler
	validate       *validator.Validate
}

// NewScoreHandler creates a new ScoreHandler.
func NewScoreHandler(scoringService inbound.ScoringService, errorHandler ErrorHandler) *ScoreHandler {
	return &ScoreHandler{
		scoringService: scoringService,
		errorHandler:   errorHandler,
		validate:       validator.New(),
	}
}

// CreateScore handles POST /api/v1/scores.
// A cached company answers 200 with its score; a new or running job answers 202.
func (h *ScoreHandler) CreateScore(w http.ResponseWriter, r *http.Request) {
	var request dto.ScoreRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(&request); err != nil {
		h.errorHandler.HandleValidationError(w, r, fmt.Errorf("invalid JSON body: %w", err))
		return
	}
	if err := h.validate.Struct(request); err != nil {
		h.errorHandler.HandleValidationError(w, r, err)
		return
	}

	result, err := h.scoringService.CreateJob(r.Context(), request.URL)
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}

	statusCode := http.StatusOK
	if result.Status == valueobject.JobStatusProcessing {
		statusCode = http.StatusAccepted
	}
	writeJobResult(w, statusCode, result)
}

// GetScore handles GET /api/v1/scores/{company_name}.
func (h *ScoreHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	companyName, err := url.PathUnescape(chi.URLParam(r, companyNameParam))
	if err != nil || strings.TrimSpace(companyName) == "" {
		h.errorHandler.HandleValidationError(w, r, errors.New("company name is required"))
		return
	}

	result, err := h.scoringService.GetJobStatus(r.Context(), companyName)
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	writeJobResult(w, http.StatusOK, result)
}

// ListScores handles GET /api/v1/scores.
func (h *ScoreHandler) ListScores(w http.ResponseWriter, r *http.Request) {
	list, err := h.scoringService.ListScores(r.Context())
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, list)
}

// writeJobResult renders a completed job as its score document and anything else as a
// status document.
func writeJobResult(w http.ResponseWriter, statusCode int, result *dto.JobResult) {
	if result.Status == valueobject.JobStatusCompleted && result.Score != nil {
		score := *result.Score
		score.Status = valueobject.JobStatusCompleted.String()
		_ = WriteJSON(w, statusCode, score)
		return
	}

	_ = WriteJSON(w, statusCode, dto.ScoringStatusResponse{
		Status:      result.Status.String(),
		Message:     result.Message,
		JobID:       result.JobID,
		CompanyName: result.CompanyName,
		CareersURL:  result.CareersURL,
		Error:       result.Reason,
	})
}
