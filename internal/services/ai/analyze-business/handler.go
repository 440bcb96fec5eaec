package analyzebusiness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"craftconnect/internal/common/logger"
	"craftconnect/internal/common/validation"
	"craftconnect/internal/models"
	"craftconnect/pkg/registry"
)

const (
	TaskType = "analyze-business"
)

var (
	ErrAnalysisFailed      = errors.New("ANALYSIS_FAILED")
	ErrAnalysisTimeout     = errors.New("ANALYSIS_TIMEOUT")
	ErrAnalysisParseFailed = errors.New("ANALYSIS_PARSE_FAILED")
	ErrEmptyTranscript     = errors.New("EMPTY_TRANSCRIPT")
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Handler struct {
	config    *Config
	generator Generator
	catalog   *registry.Catalog
	validator *validation.Validator
	logger    logger.Logger
}

func NewHandler(config *Config, generator Generator, catalog *registry.Catalog, log logger.Logger) (*Handler, error) {
	validator, err := validation.NewValidator(analysisSchema(catalog.IDs(), config.MinConfidence, config.MaxConfidence))
	if err != nil {
		return nil, fmt.Errorf("build analysis schema: %w", err)
	}

	return &Handler{
		config:    config,
		generator: generator,
		catalog:   catalog,
		validator: validator,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || strings.TrimSpace(input.Transcript) == "" {
		return nil, ErrEmptyTranscript
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	prompt := buildPrompt(input.Transcript, h.catalog.IDs(), h.config.MinConfidence, h.config.MaxConfidence)
	start := time.Now()

	text, err := h.generator.Generate(ctx, prompt)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrAnalysisTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	analysis, err := h.parse(text)
	if err != nil {
		h.logger.Warn("model output rejected", map[string]interface{}{
			"error":       err.Error(),
			"outputChars": len(text),
		})
		return nil, err
	}

	h.logger.Info("business analyzed", map[string]interface{}{
		"businessType": analysis.BusinessType,
		"primary":      analysis.RecommendedSolutions.Primary.ID,
		"secondary":    analysis.RecommendedSolutions.Secondary.ID,
		"confidence":   analysis.Confidence,
		"problemCount": len(analysis.TopProblems),
		"durationMs":   time.Since(start).Milliseconds(),
	})

	return &Output{Analysis: *analysis}, nil
}

// parse strips fences, checks the document against the schema and decodes it.
// Anything that does not conform is a ParseError; nothing is repaired.
func (h *Handler) parse(text string) (*models.BusinessAnalysis, error) {
	cleaned := stripCodeFences(text)
	if cleaned == "" {
		return nil, &ParseError{Reason: "model returned no content", Raw: text}
	}

	var document interface{}
	if err := validation.DecodeStrict([]byte(cleaned), &document); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("model output is not valid JSON: %v", err), Raw: text}
	}

	result, err := h.validator.Validate(document)
	if err != nil {
		return nil, &ParseError{Reason: err.Error(), Raw: text}
	}
	if !result.Valid {
		return nil, &ParseError{
			Reason:     "model output does not match the analysis schema",
			Violations: result.GetErrorMessages(),
			Raw:        text,
		}
	}

	var analysis models.BusinessAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("decode analysis: %v", err), Raw: text}
	}

	if analysis.RecommendedSolutions.Primary.ID == analysis.RecommendedSolutions.Secondary.ID {
		return nil, &ParseError{
			Reason:     "model output does not match the analysis schema",
			Violations: []string{fmt.Sprintf("recommendedSolutions: primary and secondary are both %q", analysis.RecommendedSolutions.Primary.ID)},
			Raw:        text,
		}
	}
	if analysis.TopProblems == nil {
		analysis.TopProblems = []string{}
	}

	return &analysis, nil
}
