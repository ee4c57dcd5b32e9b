package dto

// ErrorResponse is the error body returned by the scoring API.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
