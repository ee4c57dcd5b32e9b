// Package client talks to the SignalScore API and formats CLI output as a structured
// JSON envelope.
package client

import (
	"encoding/json"
	"io"
	"time"
)

// Response is the JSON envelope for all CLI command outputs.
// Data and Error are mutually exclusive. Warning carries advisories such as a stripped
// subdomain or a slow analysis and may accompany either.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *Error      `json:"error,omitempty"`
	Warning   string      `json:"warning,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Error represents structured error information in a CLI response.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// WriteSuccess writes a success response to the provided writer in JSON format.
func WriteSuccess(w io.Writer, data interface{}) error {
	return WriteSuccessWithWarning(w, data, "")
}

// WriteSuccessWithWarning writes a success response that also carries a warning.
func WriteSuccessWithWarning(w io.Writer, data interface{}, warning string) error {
	response := Response{
		Success:   true,
		Data:      data,
		Warning:   warning,
		Timestamp: time.Now(),
	}
	return json.NewEncoder(w).Encode(response)
}

// WriteError writes an error response to the provided writer in JSON format.
// The code parameter should be a machine-readable error code (e.g., "NOT_FOUND") and
// details may carry additional context as a string, map, or array.
func WriteError(w io.Writer, code, message string, details interface{}) error {
	response := Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now(),
	}
	return json.NewEncoder(w).Encode(response)
}
