package dto

// ErrorResponse is the error envelope of every non-2xx answer.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func NewErrorResponse(message string, details ...string) *ErrorResponse {
	return &ErrorResponse{
		Error:   message,
		Details: details,
	}
}

type HealthResponse struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime"`
}
