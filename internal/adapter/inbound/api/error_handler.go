package api

import (
	"errors"
	"net/http"
	"strings"

	"signalscore/internal/application/common/slogger"
	"signalscore/internal/application/service"
	"signalscore/internal/domain/normalization"
	"signalscore/internal/port/outbound"

	"github.com/go-playground/validator/v10"
)

// ErrorHandler defines methods for handling HTTP errors.
type ErrorHandler interface {
	HandleValidationError(w http.ResponseWriter, r *http.Request, err error)
	HandleServiceError(w http.ResponseWriter, r *http.Request, err error)
}

// errorMapping describes how one sentinel error is rendered.
type errorMapping struct {
	sentinel   error
	logMessage string
	httpStatus int
	// detail overrides the response detail; empty means the error's own message
	// with the sentinel prefix stripped.
	detail string
}

// DefaultErrorHandler implements ErrorHandler with the API's {"detail": ...} error bodies.
type DefaultErrorHandler struct {
	mappings []errorMapping
}

// NewDefaultErrorHandler creates a DefaultErrorHandler with the scoring API's error mappings.
func NewDefaultErrorHandler() ErrorHandler {
	return &DefaultErrorHandler{
		mappings: []errorMapping{
			{
				sentinel:   normalization.ErrInvalidSubmissionURL,
				logMessage: "Invalid submission URL",
				httpStatus: http.StatusUnprocessableEntity,
			},
			{
				sentinel:   outbound.ErrJobNotFound,
				logMessage: "Company not found",
				httpStatus: http.StatusNotFound,
			},
			{
				sentinel:   service.ErrServiceClosed,
				logMessage: "Scoring service unavailable",
				httpStatus: http.StatusServiceUnavailable,
				detail:     "Scoring service is shutting down",
			},
		},
	}
}

// HandleValidationError renders malformed or invalid request bodies as 422.
func (h *DefaultErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	slogger.Warn(r.Context(), "Request validation failed", slogger.Fields{
		"error":  err.Error(),
		"path":   r.URL.Path,
		"method": r.Method,
	})

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		WriteError(w, http.StatusUnprocessableEntity, "field "+strings.ToLower(fe.Field())+" is "+fe.Tag())
		return
	}
	WriteError(w, http.StatusUnprocessableEntity, err.Error())
}

// HandleServiceError maps service errors to HTTP responses.
func (h *DefaultErrorHandler) HandleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range h.mappings {
		if !errors.Is(err, m.sentinel) {
			continue
		}
		slogger.Info(r.Context(), m.logMessage, slogger.Fields{
			"error":  err.Error(),
			"path":   r.URL.Path,
			"method": r.Method,
		})
		detail := m.detail
		if detail == "" {
			detail = stripSentinelPrefix(err, m.sentinel)
		}
		WriteError(w, m.httpStatus, detail)
		return
	}

	slogger.Error(r.Context(), "Unhandled service error", slogger.Fields{
		"error":  err.Error(),
		"path":   r.URL.Path,
		"method": r.Method,
	})
	WriteError(w, http.StatusInternalServerError, "Internal server error")
}

// stripSentinelPrefix turns "invalid URL: domain parts cannot be empty" into
// "domain parts cannot be empty".
func stripSentinelPrefix(err, sentinel error) string {
	msg := err.Error()
	if idx := strings.Index(msg, sentinel.Error()+": "); idx >= 0 {
		return msg[idx+len(sentinel.Error())+2:]
	}
	return msg
}
