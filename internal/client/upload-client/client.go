// Package uploadclient talks to the CraftConnect API on behalf of the command-line client.
package uploadclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	audiocapture "craftconnect/internal/client/audio-capture"
	"craftconnect/internal/common/config"
	apperrors "craftconnect/internal/common/errors"
	commonhttp "craftconnect/internal/common/http"
	"craftconnect/internal/common/logger"
	"craftconnect/internal/models"
)

const (
	uploadField    = "audio"
	uploadFilename = "recording.webm"
)

var ErrRequestTimeout = errors.New("REQUEST_TIMEOUT")

// ServerError is a non-2xx answer from the API.
type ServerError struct {
	StatusCode int
	Code       string
	Message    string
	Details    string
}

func (e *ServerError) Error() string {
	msg := fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MinDuration time.Duration
}

func ConfigFrom(cfg *config.Config) *Config {
	return &Config{
		BaseURL:     cfg.Client.APIURL,
		Timeout:     config.GetDuration(cfg.Client.Timeout),
		MinDuration: config.GetDuration(cfg.Client.MinDuration),
	}
}

type Client struct {
	config *Config
	http   *commonhttp.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		config: config,
		http:   commonhttp.NewClient(timeout),
		logger: log.With(map[string]interface{}{"component": "upload-client"}),
	}
}

// SubmitRecording uploads rec for transcription and analysis.
// Recordings shorter than the minimum duration never leave the machine.
func (c *Client) SubmitRecording(ctx context.Context, rec *models.AudioRecording) (*models.AnalyzeResponse, error) {
	minimum := c.config.MinDuration
	if minimum <= 0 {
		minimum = 10 * time.Second
	}
	if err := audiocapture.CheckDuration(rec, minimum); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, uploadField, uploadFilename))
	header.Set("Content-Type", rec.MimeType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(rec.Data); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	c.logger.Info("submitting recording", map[string]interface{}{
		"bytes":    rec.Size(),
		"mimeType": rec.MimeType,
		"duration": rec.DurationSeconds,
	})

	var resp models.AnalyzeResponse
	if err := c.do(ctx, http.MethodPost, "/api/analyze-business", mw.FormDataContentType(), &body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ComposeMessage(ctx context.Context, req models.MessageRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	var resp models.MessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/generate-whatsapp-message", "application/json", bytes.NewReader(payload), &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	var resp models.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UsageStats(ctx context.Context) (*models.UsageStatsResponse, error) {
	var resp models.UsageStatsResponse
	if err := c.do(ctx, http.MethodGet, "/api/usage-stats", "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.config.BaseURL, "/")+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if apperrors.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s %s after %s", ErrRequestTimeout, method, path, time.Since(start).Round(time.Millisecond))
		}
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if apperrors.IsTimeout(err) {
			return fmt.Errorf("%w: reading %s", ErrRequestTimeout, path)
		}
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("api response", map[string]interface{}{
		"path":       path,
		"status":     resp.StatusCode,
		"durationMs": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeServerError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid response from %s: %w", path, err)
	}
	return nil
}

func decodeServerError(status int, raw []byte) error {
	serverErr := &ServerError{StatusCode: status}

	var body apperrors.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		serverErr.Code = body.Code
		serverErr.Message = body.Error
		serverErr.Details = body.Details
		if serverErr.Details == "" {
			serverErr.Details = body.Message
		}
		return serverErr
	}

	serverErr.Message = http.StatusText(status)
	if text := strings.TrimSpace(string(raw)); text != "" && len(text) < 512 {
		serverErr.Details = text
	}
	return serverErr
}
