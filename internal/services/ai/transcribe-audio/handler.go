package transcribeaudio

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"

	"craftconnect/internal/common/logger"
)

const (
	TaskType = "transcribe-audio"
)

var (
	ErrTranscriptionFailed  = errors.New("TRANSCRIPTION_FAILED")
	ErrTranscriptionTimeout = errors.New("TRANSCRIPTION_TIMEOUT")
	ErrEmptyAudio           = errors.New("EMPTY_AUDIO")
)

// Recognizer is the slice of the Speech-to-Text client the handler needs.
type Recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
}

type Handler struct {
	config     *Config
	recognizer Recognizer
	logger     logger.Logger
}

func NewHandler(config *Config, recognizer Recognizer, log logger.Logger) *Handler {
	return &Handler{
		config:     config,
		recognizer: recognizer,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || len(input.Audio) == 0 {
		return nil, ErrEmptyAudio
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	req := h.buildRequest(input)
	start := time.Now()

	resp, err := h.recognizer.Recognize(ctx, req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrTranscriptionTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}

	output := assembleTranscript(resp)

	h.logger.Info("audio transcribed", map[string]interface{}{
		"mimeType":   input.MimeType,
		"encoding":   req.Config.Encoding.String(),
		"audioBytes": len(input.Audio),
		"segments":   output.Segments,
		"chars":      len(output.Transcript),
		"durationMs": time.Since(start).Milliseconds(),
	})

	return output, nil
}

func (h *Handler) buildRequest(input *Input) *speechpb.RecognizeRequest {
	encoding, withRate := encodingFor(input.MimeType)

	cfg := &speechpb.RecognitionConfig{
		Encoding:                   encoding,
		LanguageCode:               h.config.LanguageCode,
		EnableAutomaticPunctuation: h.config.EnablePunctuation,
		Model:                      h.config.Model,
	}
	if withRate {
		cfg.SampleRateHertz = h.config.SampleRateHertz
	}

	return &speechpb.RecognizeRequest{
		Config: cfg,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: input.Audio},
		},
	}
}

// encodingFor maps an upload MIME type to the recognizer encoding. WAV carries its own
// header so no sample rate is sent for it.
func encodingFor(mimeType string) (speechpb.RecognitionConfig_AudioEncoding, bool) {
	switch baseMimeType(mimeType) {
	case "audio/webm", "video/webm":
		return speechpb.RecognitionConfig_WEBM_OPUS, true
	case "audio/ogg":
		return speechpb.RecognitionConfig_OGG_OPUS, true
	case "audio/mp3", "audio/mpeg":
		return speechpb.RecognitionConfig_MP3, true
	case "audio/wav", "audio/x-wav", "audio/wave":
		return speechpb.RecognitionConfig_LINEAR16, false
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, true
	}
}

func baseMimeType(mimeType string) string {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return strings.ToLower(mt)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// assembleTranscript joins the top alternative of each result, in service order.
func assembleTranscript(resp *speechpb.RecognizeResponse) *Output {
	var parts []string
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		parts = append(parts, alts[0].GetTranscript())
	}
	return &Output{
		Transcript: strings.Join(parts, "\n"),
		Segments:   len(parts),
	}
}
