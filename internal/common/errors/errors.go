// Package errors provides the standardized error taxonomy shared by the API and its upstream adapters.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Client errors
const (
	ErrCodeAudioRequired    ErrorCode = "AUDIO_REQUIRED"
	ErrCodeInvalidFileType  ErrorCode = "INVALID_FILE_TYPE"
	ErrCodeFileUpload       ErrorCode = "FILE_UPLOAD_ERROR"
	ErrCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrCodeNoSpeechDetected ErrorCode = "NO_SPEECH_DETECTED"
	ErrCodeRouteNotFound    ErrorCode = "ROUTE_NOT_FOUND"
	ErrCodeRateLimited      ErrorCode = "RATE_LIMITED"
)

// Upstream and server errors
const (
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeTranscriptionFailed ErrorCode = "TRANSCRIPTION_FAILED"
	ErrCodeAnalysisParseFailed ErrorCode = "ANALYSIS_PARSE_FAILED"
	ErrCodeAnalysisFailed      ErrorCode = "ANALYSIS_FAILED"
	ErrCodeGenerationFailed    ErrorCode = "GENERATION_FAILED"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithCause attaches the underlying error so errors.Is/As can reach it.
func (e *StandardError) WithCause(err error) *StandardError {
	e.cause = err
	return e
}

// HTTPStatus maps the error code to the status the API responds with.
func (e *StandardError) HTTPStatus() int {
	return HTTPStatus(e.Code)
}

// ==========================
// 2. Error Constructors
// ==========================

func NewAudioRequiredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeAudioRequired,
		Message:   "Audio file is required.",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidFileTypeError(mimeType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidFileType,
		Message:   "Invalid file type",
		Details:   fmt.Sprintf("Invalid file type: %s. Only audio files are allowed.", mimeType),
		Retryable: false,
		Metadata:  map[string]interface{}{"mimeType": mimeType},
		Timestamp: time.Now().UTC(),
	}
}

func NewFileUploadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileUpload,
		Message:   "File upload error",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewNoSpeechDetectedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeNoSpeechDetected,
		Message:   "Could not detect any speech in the audio.",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewRouteNotFoundError(path string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRouteNotFound,
		Message:   "Route not found",
		Retryable: false,
		Metadata:  map[string]interface{}{"path": path},
		Timestamp: time.Now().UTC(),
	}
}

func NewRateLimitedError(message string, retryAfter time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   message,
		Retryable: true,
		Metadata:  map[string]interface{}{"retryAfterSeconds": int(retryAfter.Seconds())},
		Timestamp: time.Now().UTC(),
	}
}

func NewUpstreamUnavailableError(err error) *StandardError {
	return (&StandardError{
		Code:      ErrCodeUpstreamUnavailable,
		Message:   "Google Cloud API unavailable",
		Details:   "Unable to connect to Google Cloud services",
		Retryable: false,
		Metadata:  map[string]interface{}{"cause": errString(err)},
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

func NewTranscriptionFailedError(err error) *StandardError {
	return (&StandardError{
		Code:      ErrCodeTranscriptionFailed,
		Message:   "An error occurred during AI analysis.",
		Details:   errString(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

func NewAnalysisParseFailedError(err error) *StandardError {
	return (&StandardError{
		Code:      ErrCodeAnalysisParseFailed,
		Message:   "An error occurred during AI analysis.",
		Details:   errString(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

func NewAnalysisFailedError(err error) *StandardError {
	return (&StandardError{
		Code:      ErrCodeAnalysisFailed,
		Message:   "An error occurred during AI analysis.",
		Details:   errString(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

func NewGenerationFailedError(err error) *StandardError {
	return (&StandardError{
		Code:      ErrCodeGenerationFailed,
		Message:   "Failed to generate message.",
		Details:   errString(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

func NewInternalError(err error) *StandardError {
	return (&StandardError{
		Code:      ErrCodeInternal,
		Message:   "Internal server error",
		Details:   errString(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 3. Classification
// ==========================

// HTTPStatus returns the response status for an error code.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeAudioRequired,
		ErrCodeInvalidFileType,
		ErrCodeFileUpload,
		ErrCodeInvalidRequest,
		ErrCodeNoSpeechDetected:
		return http.StatusBadRequest
	case ErrCodeRouteNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory groups codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeAudioRequired, ErrCodeInvalidFileType, ErrCodeFileUpload,
		ErrCodeInvalidRequest, ErrCodeNoSpeechDetected, ErrCodeRouteNotFound:
		return "CLIENT"
	case ErrCodeRateLimited:
		return "THROTTLING"
	case ErrCodeUpstreamUnavailable:
		return "CONNECTIVITY"
	case ErrCodeTranscriptionFailed, ErrCodeAnalysisFailed, ErrCodeGenerationFailed:
		return "UPSTREAM"
	case ErrCodeAnalysisParseFailed:
		return "PARSE"
	default:
		return "INTERNAL"
	}
}

// IsUpstreamConnectivity reports whether err means the cloud provider could not be reached:
// name resolution failures, refused connections or a gRPC Unavailable status.
func IsUpstreamConnectivity(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return true
	}
	if stderrors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if s, ok := status.FromError(e); ok && s.Code() == codes.Unavailable {
			return true
		}
	}

	msg := err.Error()
	return strings.Contains(msg, "ENOTFOUND") ||
		strings.Contains(msg, "ECONNREFUSED") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host")
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.DeadlineExceeded {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// AsStandardError returns the StandardError in err's chain, if any.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}
