package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "craftconnect/internal/common/errors"
	"craftconnect/internal/common/logger"
	"craftconnect/internal/common/metrics"
	"craftconnect/internal/common/observability"
	"craftconnect/internal/models"
	analyzebusiness "craftconnect/internal/services/ai/analyze-business"
	composemessage "craftconnect/internal/services/ai/compose-message"
	transcribeaudio "craftconnect/internal/services/ai/transcribe-audio"
)

const maxJSONBody = 1 << 20

// runStage wraps one upstream call with a span, the stage metrics and the upstream counters.
func (s *Server) runStage(ctx context.Context, stage string, fn func(context.Context) error) error {
	ctx, span := s.deps.Observability.StartSpan(ctx, stage, attribute.String("stage", stage))
	start := time.Now()

	err := fn(ctx)

	elapsed := time.Since(start)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	observability.EndSpan(span, err)
	s.deps.Observability.RecordStage(ctx, stage, elapsed, outcome)
	metrics.UpstreamCallsTotal.WithLabelValues(stage, outcome).Inc()
	metrics.UpstreamCallDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	return err
}

func (s *Server) recordUsage(ctx context.Context) {
	if s.deps.Usage == nil {
		return
	}
	if err := s.deps.Usage.Record(ctx); err != nil {
		logger.FromContext(ctx, s.logger).Warn("failed to record usage", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *Server) handleAnalyzeBusiness(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.logger)

	upload, err := s.readAudioUpload(w, r)
	if err != nil {
		s.errHandler.WriteError(w, r, err)
		return
	}
	metrics.UploadBytes.Observe(float64(len(upload.Data)))

	log.Info("audio received", map[string]interface{}{
		"size":     len(upload.Data),
		"mimeType": upload.MimeType,
		"filename": upload.Filename,
	})

	// Upstream calls run to completion even if the client goes away.
	ctx := context.WithoutCancel(r.Context())

	var transcript *transcribeaudio.Output
	err = s.runStage(ctx, "transcribe", func(ctx context.Context) error {
		var err error
		transcript, err = s.deps.Transcriber.Execute(ctx, &transcribeaudio.Input{
			Audio:    upload.Data,
			MimeType: upload.MimeType,
		})
		return err
	})
	if err != nil {
		s.errHandler.WriteError(w, r, classifyTranscriptionError(err))
		return
	}
	if transcript.Empty() {
		s.errHandler.WriteError(w, r, apperrors.NewNoSpeechDetectedError())
		return
	}

	log.Info("transcription complete", map[string]interface{}{
		"segments":   transcript.Segments,
		"characters": len(transcript.Transcript),
	})

	var analysis *analyzebusiness.Output
	err = s.runStage(ctx, "analyze", func(ctx context.Context) error {
		var err error
		analysis, err = s.deps.Analyzer.Execute(ctx, &analyzebusiness.Input{Transcript: transcript.Transcript})
		return err
	})
	if err != nil {
		s.errHandler.WriteError(w, r, classifyAnalysisError(err))
		return
	}
	s.recordUsage(ctx)

	log.Info("analysis complete", map[string]interface{}{
		"businessType": analysis.Analysis.BusinessType,
		"primary":      analysis.Analysis.RecommendedSolutions.Primary.ID,
		"secondary":    analysis.Analysis.RecommendedSolutions.Secondary.ID,
		"confidence":   analysis.Analysis.Confidence,
	})

	apperrors.WriteJSON(w, http.StatusOK, models.AnalyzeResponse{
		Success:    true,
		Transcript: transcript.Transcript,
		Analysis:   analysis.Analysis,
	})
}

func (s *Server) handleGenerateMessage(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeMessageRequest(w, r)
	if err != nil {
		s.errHandler.WriteError(w, r, err)
		return
	}

	ctx := context.WithoutCancel(r.Context())

	var out *composemessage.Output
	err = s.runStage(ctx, "compose", func(ctx context.Context) error {
		var err error
		out, err = s.deps.Composer.Execute(ctx, &composemessage.Input{
			BusinessType:  req.BusinessType,
			DetectedFocus: req.DetectedFocus,
			Transcript:    req.Transcript,
		})
		return err
	})
	if err != nil {
		s.errHandler.WriteError(w, r, classifyGenerationError(err))
		return
	}
	s.recordUsage(ctx)

	apperrors.WriteJSON(w, http.StatusOK, models.MessageResponse{Success: true, Message: out.Message})
}

// decodeMessageRequest accepts JSON, multipart or urlencoded bodies. Any image part is dropped.
func (s *Server) decodeMessageRequest(w http.ResponseWriter, r *http.Request) (*models.MessageRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, s.uploadLimit()+multipartOverhead)
		if err := r.ParseMultipartForm(maxJSONBody); err != nil {
			return nil, uploadReadError(err, s.uploadLimit())
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()
		return formMessageRequest(r), nil

	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := r.ParseForm(); err != nil {
			return nil, apperrors.NewInvalidRequestError(err.Error())
		}
		return formMessageRequest(r), nil

	default:
		var req models.MessageRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return nil, apperrors.NewInvalidRequestError("Request body must be a JSON object.").WithCause(err)
		}
		return &req, nil
	}
}

func formMessageRequest(r *http.Request) *models.MessageRequest {
	return &models.MessageRequest{
		BusinessType:  r.FormValue("businessType"),
		DetectedFocus: r.FormValue("detectedFocus"),
		Transcript:    r.FormValue("transcript"),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	google := s.cfg.Google
	env := s.cfg.App.Environment
	if env == "" {
		env = "development"
	}

	apperrors.WriteJSON(w, http.StatusOK, models.HealthResponse{
		Status:      "OK",
		Timestamp:   s.now().UTC().Format(time.RFC3339Nano),
		Uptime:      s.now().Sub(s.started).Seconds(),
		Environment: env,
		Version:     s.cfg.App.Version,
		Services: models.ServiceFlags{
			Speech:   google.HasCredentials(),
			VertexAI: google.HasProject(),
			Vision:   google.HasCredentials(),
		},
	})
}

func (s *Server) handleUsageStats(w http.ResponseWriter, r *http.Request) {
	resp := models.UsageStatsResponse{
		Success:                 true,
		BudgetLimit:             s.cfg.Usage.BudgetLimit,
		EstimatedCostPerRequest: s.cfg.Usage.EstimatedCostPerRequest,
	}

	if s.deps.Usage != nil {
		stats, err := s.deps.Usage.Stats(r.Context())
		if err != nil {
			s.errHandler.WriteError(w, r, apperrors.NewInternalError(err))
			return
		}
		resp.TotalCost = stats.TotalCost
		resp.BudgetLimit = stats.BudgetLimit
		resp.RequestsToday = stats.RequestsToday
		resp.EstimatedCostPerRequest = stats.EstimatedCostPerRequest
	}

	apperrors.WriteJSON(w, http.StatusOK, resp)
}

func classifyTranscriptionError(err error) error {
	switch {
	case errors.Is(err, transcribeaudio.ErrEmptyAudio):
		return apperrors.NewAudioRequiredError()
	case apperrors.IsUpstreamConnectivity(err):
		return apperrors.NewUpstreamUnavailableError(err)
	default:
		return apperrors.NewTranscriptionFailedError(err)
	}
}

func classifyAnalysisError(err error) error {
	switch {
	case errors.Is(err, analyzebusiness.ErrEmptyTranscript):
		return apperrors.NewNoSpeechDetectedError()
	case errors.Is(err, analyzebusiness.ErrAnalysisParseFailed):
		return apperrors.NewAnalysisParseFailedError(err)
	case apperrors.IsUpstreamConnectivity(err):
		return apperrors.NewUpstreamUnavailableError(err)
	default:
		return apperrors.NewAnalysisFailedError(err)
	}
}

func classifyGenerationError(err error) error {
	switch {
	case errors.Is(err, composemessage.ErrInvalidInput):
		return apperrors.NewInvalidRequestError(strings.TrimPrefix(err.Error(), composemessage.ErrInvalidInput.Error()+": ")).WithCause(err)
	case apperrors.IsUpstreamConnectivity(err):
		return apperrors.NewUpstreamUnavailableError(err)
	default:
		return apperrors.NewGenerationFailedError(err)
	}
}
