package composemessage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"craftconnect/internal/common/logger"
)

const (
	TaskType = "compose-message"
)

var (
	ErrGenerationFailed  = errors.New("GENERATION_FAILED")
	ErrGenerationTimeout = errors.New("GENERATION_TIMEOUT")
	ErrEmptyMessage      = errors.New("EMPTY_MESSAGE")
	ErrInvalidInput      = errors.New("INVALID_INPUT")
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Handler struct {
	config    *Config
	generator Generator
	logger    logger.Logger
}

func NewHandler(config *Config, generator Generator, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		generator: generator,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || (strings.TrimSpace(input.BusinessType) == "" && strings.TrimSpace(input.Transcript) == "") {
		return nil, fmt.Errorf("%w: businessType or transcript is required", ErrInvalidInput)
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := h.generator.Generate(ctx, buildPrompt(input))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrGenerationTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	message := strings.TrimSpace(text)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	h.logger.Info("message composed", map[string]interface{}{
		"businessType": input.BusinessType,
		"chars":        len(message),
		"durationMs":   time.Since(start).Milliseconds(),
	})

	return &Output{Message: message}, nil
}

func buildPrompt(input *Input) string {
	var parts []string
	parts = append(parts,
		"You write short promotional WhatsApp messages for small craft businesses.",
		"Use the details below to write one message the artisan can send to customers today.",
		"",
		fmt.Sprintf("Business type: %s", valueOr(input.BusinessType, "craft business")),
		fmt.Sprintf("Products or focus: %s", valueOr(input.DetectedFocus, "handmade goods")),
	)
	if t := strings.TrimSpace(input.Transcript); t != "" {
		parts = append(parts, "What the artisan said about their business:", fmt.Sprintf("\"\"\"\n%s\n\"\"\"", t))
	}
	parts = append(parts,
		"",
		"Guidelines:",
		"- Open with a warm greeting and a couple of fitting emojis.",
		"- Introduce the business in one sentence, in the artisan's voice.",
		"- List two or three highlights as short bullet points.",
		"- Close with a clear call to action such as replying to order or visiting the stall.",
		"- Keep it concise enough to read on a phone screen.",
		"- Return only the message text.",
	)
	return strings.Join(parts, "\n")
}

func valueOr(v, fallback string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return fallback
}
