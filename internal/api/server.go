// Package api exposes the analysis pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"craftconnect/internal/common/config"
	apperrors "craftconnect/internal/common/errors"
	"craftconnect/internal/common/logger"
	"craftconnect/internal/common/observability"
	"craftconnect/internal/common/ratelimit"
	"craftconnect/internal/common/usage"
	analyzebusiness "craftconnect/internal/services/ai/analyze-business"
	composemessage "craftconnect/internal/services/ai/compose-message"
	transcribeaudio "craftconnect/internal/services/ai/transcribe-audio"
)

type Transcriber interface {
	Execute(ctx context.Context, input *transcribeaudio.Input) (*transcribeaudio.Output, error)
}

type Analyzer interface {
	Execute(ctx context.Context, input *analyzebusiness.Input) (*analyzebusiness.Output, error)
}

type Composer interface {
	Execute(ctx context.Context, input *composemessage.Input) (*composemessage.Output, error)
}

// Dependencies are the collaborators a Server needs. Limiter, Usage and Observability may be nil.
type Dependencies struct {
	Transcriber   Transcriber
	Analyzer      Analyzer
	Composer      Composer
	Limiter       ratelimit.Limiter
	Usage         usage.Tracker
	Observability *observability.Observability
	Logger        logger.Logger
}

type Server struct {
	cfg        *config.Config
	deps       Dependencies
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
	router     *mux.Router
	allowed    map[string]struct{}
	started    time.Time
	now        func() time.Time
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	allowed := make(map[string]struct{}, len(cfg.Upload.AllowedMimeTypes))
	for _, mt := range cfg.Upload.AllowedMimeTypes {
		allowed[baseMimeType(mt)] = struct{}{}
	}

	s := &Server{
		cfg:        cfg,
		deps:       deps,
		logger:     log.With(map[string]interface{}{"component": "api"}),
		errHandler: apperrors.NewErrorHandler(log, !cfg.App.IsProduction()),
		router:     mux.NewRouter(),
		allowed:    allowed,
		started:    time.Now(),
		now:        time.Now,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       config.GetDuration(s.cfg.Server.ReadTimeout),
		WriteTimeout:      config.GetDuration(s.cfg.Server.WriteTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", map[string]interface{}{
			"addr":        srv.Addr,
			"environment": s.cfg.App.Environment,
			"clientUrl":   s.cfg.Server.ClientURL,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(s.cfg.Server.ShutdownTimeout))
	defer cancel()

	s.logger.Info("shutting down http server", nil)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
