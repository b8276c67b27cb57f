// Package server exposes the agent over a small JSON API. One agent instance
// backs all requests, so chat and reset are serialized behind a mutex.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/chayanin-t/payagent/agent/contract"
	"github.com/chayanin-t/payagent/pkg/logbuf"
)

type Config struct {
	Addr            string        `default:":8000"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"5s"`
}

// Agent is the conversational surface the server fronts.
type Agent interface {
	ProcessMessage(ctx context.Context, userText string) contract.AgentResponse
	Reset()
}

type Server struct {
	mu       sync.Mutex
	agent    Agent
	provider contract.PaymentProvider
	logs     *logbuf.Buffer
	http     *http.Server
	shutdown time.Duration
}

func New(cfg Config, agent Agent, provider contract.PaymentProvider, logs *logbuf.Buffer) *Server {
	s := &Server{
		agent:    agent,
		provider: provider,
		logs:     logs,
		shutdown: cfg.ShutdownTimeout,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/api/chat", s.handleChat)
	r.Post("/api/reset", s.handleReset)
	r.Post("/api/authenticate", s.handleAuthenticate)
	r.Get("/api/logs", s.handleLogs)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the routed handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.http.Addr).Msg("starting server")
		serverErrors <- s.http.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown did not complete")
			return s.http.Close()
		}
		log.Info().Msg("server stopped")
		return nil
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

type statusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, statusMessage{
			Status:  contract.StatusError,
			Message: "invalid request body",
		})
		return
	}
	if body.Message == "" {
		writeJSON(w, http.StatusBadRequest, statusMessage{
			Status:  contract.StatusError,
			Message: "message is required",
		})
		return
	}

	s.mu.Lock()
	resp := s.agent.ProcessMessage(r.Context(), body.Message)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.agent.Reset()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, statusMessage{
		Status:  contract.StatusSuccess,
		Message: "Conversation history cleared",
	})
}

// handleAuthenticate verifies sandbox credentials without exposing the token.
func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	if _, err := s.provider.Authenticate(r.Context()); err != nil {
		log.Error().Err(err).Msg("authentication check failed")
		writeJSON(w, http.StatusBadGateway, statusMessage{
			Status:  contract.StatusError,
			Message: "Failed to authenticate with PayPal sandbox",
		})
		return
	}
	writeJSON(w, http.StatusOK, statusMessage{
		Status:  contract.StatusSuccess,
		Message: "Successfully authenticated with PayPal sandbox",
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, _ *http.Request) {
	entries := []string{}
	if s.logs != nil {
		entries = s.logs.Drain()
	}
	writeJSON(w, http.StatusOK, map[string][]string{"logs": entries})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}
