// cmd/craftconnect-api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"craftconnect/internal/api"
	"craftconnect/internal/common/config"
	"craftconnect/internal/common/database"
	"craftconnect/internal/common/gcp"
	"craftconnect/internal/common/logger"
	"craftconnect/internal/common/observability"
	"craftconnect/internal/common/ratelimit"
	"craftconnect/internal/common/usage"
	"craftconnect/pkg/registry"

	ab "craftconnect/internal/services/ai/analyze-business"
	cm "craftconnect/internal/services/ai/compose-message"
	ta "craftconnect/internal/services/ai/transcribe-audio"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{"service": cfg.App.Name})

	zapLog.Info("Starting CraftConnect API",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Counters: Redis when configured, in-process otherwise ---
	window := config.GetDuration(cfg.RateLimit.Window)
	limit := config.EffectiveRateLimit(cfg)

	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(limit, window)
	var tracker usage.Tracker = usage.NewMemoryTracker(cfg.Usage.EstimatedCostPerRequest, cfg.Usage.BudgetLimit)

	if cfg.Database.Redis.Enabled() {
		redisClient, err := database.ConnectRedis(ctx, cfg.Database.Redis, 20*time.Second, log)
		if err != nil {
			zapLog.Warn("redis unavailable, using in-memory counters", zap.Error(err))
		} else {
			defer redisClient.Close()
			limiter = ratelimit.NewRedisLimiter(redisClient.GetClient(), cfg.RateLimit.KeyPrefix, limit, window)
			tracker = usage.NewRedisTracker(redisClient.GetClient(), cfg.Usage.KeyPrefix,
				cfg.Usage.EstimatedCostPerRequest, cfg.Usage.BudgetLimit)
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Google Cloud clients ---
	var recognizer ta.Recognizer = gcp.UnavailableSpeech{Reason: "speech client not configured"}
	if config.IsServiceEnabled(cfg, ta.TaskType) {
		speechClient, err := gcp.NewSpeechClient(ctx, cfg.Google)
		if err != nil {
			zapLog.Warn("speech client unavailable", zap.Error(err))
			recognizer = gcp.UnavailableSpeech{Reason: err.Error()}
		} else {
			defer speechClient.Close()
			recognizer = speechClient
		}
	}

	var generator interface {
		Generate(ctx context.Context, prompt string) (string, error)
	} = gcp.UnavailableGenAI{Reason: "generative model not configured"}
	genaiClient, err := gcp.NewGenAIClient(ctx, cfg.Google)
	if err != nil {
		zapLog.Warn("generative model unavailable", zap.Error(err))
		generator = gcp.UnavailableGenAI{Reason: err.Error()}
	} else {
		generator = genaiClient
		zapLog.Info("Vertex AI client ready", zap.String("model", genaiClient.Model()))
	}

	// --- Adapters ---
	transcriber := ta.NewHandler(ta.ConfigFrom(cfg), recognizer, log)

	var analyzeGen ab.Generator = generator
	if !config.IsServiceEnabled(cfg, ab.TaskType) {
		analyzeGen = gcp.UnavailableGenAI{Reason: "analysis disabled"}
	}
	analyzer, err := ab.NewHandler(ab.ConfigFrom(cfg), analyzeGen, registry.Default(), log)
	if err != nil {
		zapLog.Fatal("analysis adapter init failed", zap.Error(err))
	}

	var composeGen cm.Generator = generator
	if !config.IsServiceEnabled(cfg, cm.TaskType) {
		composeGen = gcp.UnavailableGenAI{Reason: "message composition disabled"}
	}
	composer := cm.NewHandler(cm.ConfigFrom(cfg), composeGen, log)

	server := api.NewServer(cfg, api.Dependencies{
		Transcriber:   transcriber,
		Analyzer:      analyzer,
		Composer:      composer,
		Limiter:       limiter,
		Usage:         tracker,
		Observability: obs,
		Logger:        log,
	})

	if err := server.Run(ctx); err != nil {
		zapLog.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	zapLog.Info("CraftConnect API stopped gracefully")
}
