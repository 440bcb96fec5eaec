// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ErrorResponse is the JSON envelope returned for every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Message string `json:"message,omitempty"`
	Path    string `json:"path,omitempty"`
}

// ErrorHandler turns errors into HTTP responses with standardized bodies
type ErrorHandler struct {
	logger        Logger
	exposeDetails bool
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NewErrorHandler creates a handler. With exposeDetails set, 5xx bodies carry the underlying message.
func NewErrorHandler(logger Logger, exposeDetails bool) *ErrorHandler {
	return &ErrorHandler{logger: logger, exposeDetails: exposeDetails}
}

// Normalize ensures we always have a StandardError
func (h *ErrorHandler) Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	if IsUpstreamConnectivity(err) {
		return NewUpstreamUnavailableError(err)
	}
	return NewInternalError(err)
}

// BuildResponse renders the body for stdErr.
func (h *ErrorHandler) BuildResponse(stdErr *StandardError) ErrorResponse {
	resp := ErrorResponse{
		Success: false,
		Error:   stdErr.Message,
		Code:    string(stdErr.Code),
	}

	status := stdErr.HTTPStatus()
	switch {
	case status == http.StatusNotFound:
		if path, ok := stdErr.Metadata["path"].(string); ok {
			resp.Path = path
		}
	case status == http.StatusServiceUnavailable:
		resp.Details = stdErr.Details
	case status < http.StatusInternalServerError:
		resp.Details = stdErr.Details
	case h.exposeDetails:
		resp.Message = stdErr.Details
	case stdErr.Code == ErrCodeInternal:
		resp.Message = "Something went wrong"
	}

	return resp
}

// WriteError logs err and writes the matching status and body.
func (h *ErrorHandler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := h.Normalize(err)
	status := stdErr.HTTPStatus()

	h.logError(r, stdErr, err, status)

	if stdErr.Code == ErrCodeRateLimited {
		if secs, ok := stdErr.Metadata["retryAfterSeconds"].(int); ok && secs > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
	}

	WriteJSON(w, status, h.BuildResponse(stdErr))
}

func (h *ErrorHandler) logError(r *http.Request, stdErr *StandardError, cause error, status int) {
	if h.logger == nil {
		return
	}

	fields := map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"errorCategory": GetErrorCategory(stdErr.Code),
		"status":        status,
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
	}
	if cause != nil {
		fields["error"] = cause.Error()
	}
	if r != nil {
		fields["method"] = r.Method
		fields["path"] = r.URL.Path
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields)
		return
	}
	h.logger.Warn("request rejected", fields)
}

// WriteJSON writes payload as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
