package uploadclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audiocapture "craftconnect/internal/client/audio-capture"
	"craftconnect/internal/common/logger"
	"craftconnect/internal/models"
)

func createTestConfig(baseURL string) *Config {
	return &Config{
		BaseURL:     baseURL,
		Timeout:     2 * time.Second,
		MinDuration: 10 * time.Second,
	}
}

func recording(seconds float64) *models.AudioRecording {
	return &models.AudioRecording{
		Data:            []byte("opus-frames"),
		MimeType:        "audio/webm;codecs=opus",
		DurationSeconds: seconds,
	}
}

func TestSubmitRecording_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/analyze-business", r.URL.Path)
		assert.Equal(t, "craftconnect-cli", r.Header.Get("User-Agent"))

		file, header, err := r.FormFile("audio")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)

		assert.Equal(t, "recording.webm", header.Filename)
		assert.Equal(t, "audio/webm;codecs=opus", header.Header.Get("Content-Type"))
		assert.Equal(t, "opus-frames", string(data))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.AnalyzeResponse{
			Success:    true,
			Transcript: "I make pottery in Jaipur",
			Analysis: models.BusinessAnalysis{
				BusinessType: "Pottery & Ceramics",
				RecommendedSolutions: models.RecommendedSolutions{
					Primary:   models.Recommendation{ID: "whatsapp"},
					Secondary: models.Recommendation{ID: "website"},
				},
				Confidence: 90,
			},
		})
	}))
	defer server.Close()

	client := NewClient(createTestConfig(server.URL), logger.NewTestLogger(t))

	resp, err := client.SubmitRecording(context.Background(), recording(12))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "I make pottery in Jaipur", resp.Transcript)
	assert.Equal(t, "whatsapp", resp.Analysis.RecommendedSolutions.Primary.ID)
}

func TestSubmitRecording_ShortRecordingNeverSent(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := NewClient(createTestConfig(server.URL), logger.NewNoOpLogger())

	for _, seconds := range []float64{0, 3, 9.99} {
		_, err := client.SubmitRecording(context.Background(), recording(seconds))
		assert.ErrorIs(t, err, audiocapture.ErrRecordingTooShort)
	}
	_, err := client.SubmitRecording(context.Background(), nil)
	assert.Error(t, err)
	assert.Zero(t, calls)
}

func TestSubmitRecording_ServerErrors(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		body            string
		expectedMessage string
		expectedDetails string
	}{
		{"invalid type", http.StatusBadRequest, `{"success":false,"error":"Invalid file type","code":"INVALID_FILE_TYPE","details":"Invalid file type: image/png. Only audio files are allowed."}`, "Invalid file type", "Invalid file type: image/png. Only audio files are allowed."},
		{"upstream down", http.StatusServiceUnavailable, `{"success":false,"error":"Google Cloud API unavailable","details":"Unable to connect to Google Cloud services"}`, "Google Cloud API unavailable", "Unable to connect to Google Cloud services"},
		{"internal with message", http.StatusInternalServerError, `{"success":false,"error":"Internal server error","message":"boom"}`, "Internal server error", "boom"},
		{"non JSON body", http.StatusBadGateway, `upstream connect error`, "Bad Gateway", "upstream connect error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(createTestConfig(server.URL), logger.NewNoOpLogger())
			_, err := client.SubmitRecording(context.Background(), recording(11))

			var serverErr *ServerError
			require.True(t, errors.As(err, &serverErr))
			assert.Equal(t, tt.status, serverErr.StatusCode)
			assert.Equal(t, tt.expectedMessage, serverErr.Message)
			assert.Equal(t, tt.expectedDetails, serverErr.Details)
			assert.NotErrorIs(t, err, ErrRequestTimeout)
		})
	}
}

func TestSubmitRecording_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := createTestConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	client := NewClient(cfg, logger.NewNoOpLogger())

	_, err := client.SubmitRecording(context.Background(), recording(12))
	assert.ErrorIs(t, err, ErrRequestTimeout)

	var serverErr *ServerError
	assert.False(t, errors.As(err, &serverErr))
}

func TestComposeMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate-whatsapp-message", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req models.MessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Pottery & Ceramics", req.BusinessType)

		_ = json.NewEncoder(w).Encode(models.MessageResponse{Success: true, Message: "Namaste! 🏺"})
	}))
	defer server.Close()

	client := NewClient(createTestConfig(server.URL), logger.NewNoOpLogger())

	msg, err := client.ComposeMessage(context.Background(), models.MessageRequest{BusinessType: "Pottery & Ceramics"})
	require.NoError(t, err)
	assert.Equal(t, "Namaste! 🏺", msg)
}

func TestHealthAndUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/health":
			_ = json.NewEncoder(w).Encode(models.HealthResponse{
				Status:   "OK",
				Services: models.ServiceFlags{Speech: true, VertexAI: true},
			})
		case "/api/usage-stats":
			_ = json.NewEncoder(w).Encode(models.UsageStatsResponse{Success: true, RequestsToday: 3, BudgetLimit: 100})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(createTestConfig(server.URL+"/"), logger.NewNoOpLogger())

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OK", health.Status)
	assert.True(t, health.Services.VertexAI)

	stats, err := client.UsageStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.RequestsToday)
}
