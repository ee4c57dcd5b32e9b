package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"signalscore/internal/port/outbound"
	"strings"
)

// APIError is returned for any non-2xx API response.
type APIError struct {
	StatusCode int
	Status     string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("API request failed: %d %s: %s", e.StatusCode, e.Status, e.Detail)
	}
	return fmt.Sprintf("API request failed: %d %s", e.StatusCode, e.Status)
}

// IsNotFound reports whether the API answered 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Is lets a 404 match outbound.ErrJobNotFound.
func (e *APIError) Is(target error) bool {
	return target == outbound.ErrJobNotFound && e.IsNotFound()
}

// IsNotFound reports whether err is, or wraps, a 404 APIError.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}

// newAPIError builds an APIError from a failed response, extracting the detail field
// when the body is a JSON error document.
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		apiErr.Detail = strings.TrimSpace(string(data))
		return apiErr
	}

	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err == nil {
		apiErr.Detail = detail
		return apiErr
	}
	apiErr.Detail = string(body.Detail)
	return apiErr
}
