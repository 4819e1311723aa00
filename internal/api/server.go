// Package api exposes the chat, calculator and direct query endpoints over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"zus_chatbot/internal/core"
	"zus_chatbot/internal/services"
	"zus_chatbot/src/conversation"
	"zus_chatbot/src/logger"
	"zus_chatbot/src/model"
)

const maxBodyBytes = 1 << 20

// ChatProcessor runs one chat turn
type ChatProcessor interface {
	Execute(ctx context.Context, input core.ProcessorInput) (*core.ProcessorOutput, error)
}

// Querier is a domain dispatcher
type Querier interface {
	Query(ctx context.Context, text string, topK int) (*services.QueryResult, error)
}

// Deps are the components served over HTTP
type Deps struct {
	Processor ChatProcessor
	Memory    *conversation.Service
	Products  Querier
	Outlets   Querier
}

// Server is the HTTP transport
type Server struct {
	deps   Deps
	config model.ServerConfig
	log    zerolog.Logger
}

func NewServer(deps Deps, config model.ServerConfig) *Server {
	return &Server{deps: deps, config: config, log: logger.Component("api")}
}

// Handler returns the routed handler wrapped in CORS and request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return s.withLogging(s.withCORS(mux))
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/sessions/{id}/history", s.handleHistory)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleResetSession)
	mux.HandleFunc("GET /calc", s.handleCalcQuery)
	mux.HandleFunc("POST /calc", s.handleCalcBody)
	mux.HandleFunc("GET /products/query", s.handleDomainQuery(s.deps.Products))
	mux.HandleFunc("GET /outlets/query", s.handleDomainQuery(s.deps.Outlets))
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.config.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				s.log.Error().Str("path", r.URL.Path).Msgf("Handler panicked: %v", p)
				s.writeError(rec, http.StatusInternalServerError, "internal server error")
			}
			s.log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		}()

		next.ServeHTTP(rec, r)
	})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(s.config.AllowedOrigins))
	for _, origin := range s.config.AllowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
