package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/hookguard/internal/delivery"
	"github.com/mattjoyce/hookguard/internal/metrics"
	"github.com/mattjoyce/hookguard/internal/signature"
)

// Server represents the webhook HTTP server.
type Server struct {
	config   Config
	recorder Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
	server   *http.Server

	// endpoints maps URL paths to their configurations
	endpoints map[string]*endpoint
}

type endpoint struct {
	EndpointConfig
	validator *signature.Validator
}

// New creates a new webhook server instance. m may be nil to disable metrics.
func New(config Config, recorder Recorder, m *metrics.Metrics, logger *slog.Logger) *Server {
	if config.MetricsPath == "" {
		config.MetricsPath = DefaultMetricsPath
	}

	endpoints := make(map[string]*endpoint, len(config.Endpoints))
	for i := range config.Endpoints {
		ep := &config.Endpoints[i]

		if ep.MaxBodySize == 0 {
			ep.MaxBodySize = DefaultMaxBodySize
		}
		if ep.SignatureHeader == "" {
			ep.SignatureHeader = DefaultSignatureHeader
		}
		if ep.Name == "" {
			ep.Name = ep.Path
		}

		endpoints[ep.Path] = &endpoint{
			EndpointConfig: *ep,
			validator:      signature.NewValidator([]byte(ep.Secret)),
		}
	}

	return &Server{
		config:    config,
		recorder:  recorder,
		metrics:   m,
		logger:    logger,
		endpoints: endpoints,
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen, "endpoints", len(s.endpoints))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, s.config.MetricsPath, s.metrics.Handler())
	}

	for path := range s.endpoints {
		r.Post(path, s.handleWebhook)
	}

	return r
}

// loggingMiddleware logs HTTP requests (excludes sensitive payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"endpoints": len(s.endpoints),
	})
}

// handleWebhook handles incoming webhook POST requests.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ep, ok := s.endpoints[r.URL.Path]
	if !ok {
		s.respondError(w, http.StatusNotFound, "endpoint not found")
		return
	}
	if s.metrics != nil {
		defer func() { s.metrics.ObserveDuration(ep.Name, time.Since(start)) }()
	}
	logger := s.logger.With("endpoint", ep.Name, "request_id", middleware.GetReqID(ctx))

	limitedReader := io.LimitReader(r.Body, ep.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}
	if int64(len(body)) > ep.MaxBodySize {
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	rawURL := signedURL(r, ep.PublicURL)
	result := ep.validator.Validate(r.Header.Get(ep.SignatureHeader), rawURL, body)
	if s.metrics != nil {
		s.metrics.ObserveVerification(ep.Name, result)
	}

	status := delivery.StatusFor(result)
	deliveryID, recErr := s.recorder.Record(ctx, delivery.RecordRequest{
		Endpoint:   ep.Name,
		URL:        rawURL,
		Result:     result,
		Body:       body,
		RemoteAddr: r.RemoteAddr,
		RequestID:  middleware.GetReqID(ctx),
	})
	if s.metrics != nil {
		s.metrics.ObserveRecord(string(status), recErr)
	}

	if !result.Valid {
		// The reason stays in the log; the caller only ever sees a generic 403.
		logger.Warn("webhook signature rejected",
			"reason", result.Reason.String(),
			"payload", result.Payload.String(),
			"delivery_id", deliveryID,
		)
		if recErr != nil {
			logger.Error("failed to record rejected delivery", "error", recErr)
		}
		s.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	if recErr != nil {
		logger.Error("failed to record delivery", "error", recErr)
		s.respondError(w, http.StatusInternalServerError, "failed to record delivery")
		return
	}

	logger.Info("webhook delivery accepted",
		"delivery_id", deliveryID,
		"payload", result.Payload.String(),
		"variant", result.Variant.String(),
	)

	s.respondJSON(w, http.StatusAccepted, TriggerResponse{DeliveryID: deliveryID})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
