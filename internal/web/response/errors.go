package response

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error       string   `json:"error"`
	Message     string   `json:"message"`
	Code        string   `json:"code,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// RenderError renders a standard error response
func RenderError(w http.ResponseWriter, statusCode int, err error) {
	writeError(w, statusCode, &ErrorResponse{
		Error:   "error",
		Message: err.Error(),
		Code:    errorCodeFromStatus(statusCode),
	})
}

// RenderBadRequest renders a 400 Bad Request error
func RenderBadRequest(w http.ResponseWriter, message string) {
	RenderError(w, http.StatusBadRequest, fmt.Errorf("%s", message))
}

// RenderNotFound renders a 404 Not Found error. Suggestions list near
// matches for the missing name.
func RenderNotFound(w http.ResponseWriter, message string, suggestions ...string) {
	if message == "" {
		message = "Resource not found"
	}
	writeError(w, http.StatusNotFound, &ErrorResponse{
		Error:       "error",
		Message:     message,
		Code:        errorCodeFromStatus(http.StatusNotFound),
		Suggestions: suggestions,
	})
}

// RenderInternalError renders a 500 Internal Server Error
func RenderInternalError(w http.ResponseWriter, err error) {
	message := "Internal server error"
	if err != nil {
		message = err.Error()
	}
	RenderError(w, http.StatusInternalServerError, fmt.Errorf("%s", message))
}

// RenderServiceUnavailable renders a 503 Service Unavailable error
func RenderServiceUnavailable(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	RenderError(w, http.StatusServiceUnavailable, fmt.Errorf("%s", message))
}

// RenderTooManyRequests renders a 429 with a Retry-After header in whole
// seconds
func RenderTooManyRequests(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	RenderError(w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded, retry in %ds", secs))
}

// RenderJSON writes v as a JSON body with the given status
func RenderJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, body *ErrorResponse) {
	RenderJSON(w, statusCode, body)
}

// errorCodeFromStatus maps HTTP status codes to error codes
func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		return "error"
	}
}
