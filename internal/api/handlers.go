package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"zus_chatbot/internal/calc"
	"zus_chatbot/internal/core"
	"zus_chatbot/pkg"
)

type historyResponse struct {
	SessionID string                 `json:"session_id"`
	Turns     []pkg.ConversationTurn `json:"turns"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Memory != nil {
		if err := s.deps.Memory.Ping(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("Health check failed")
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "detail": err.Error()})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req pkg.ChatRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.deps.Processor.Execute(r.Context(), core.ProcessorInput{
		Message:   req.Message,
		SessionID: req.SessionID,
	})
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, pkg.ChatResponse{Reply: out.Reply, Info: out.Info()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	maxTurns, err := intParam(r, "max_turns")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	turns, err := s.deps.Memory.GetHistory(r.Context(), sessionID, maxTurns)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, historyResponse{SessionID: sessionID, Turns: turns})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Memory.Reset(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCalcQuery(w http.ResponseWriter, r *http.Request) {
	s.evaluate(w, r.URL.Query().Get("expr"))
}

func (s *Server) handleCalcBody(w http.ResponseWriter, r *http.Request) {
	var req pkg.CalcRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.evaluate(w, req.Expr)
}

func (s *Server) evaluate(w http.ResponseWriter, expr string) {
	result, err := calc.Evaluate(strings.TrimSpace(expr))
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, pkg.CalcResponse{Result: result})
}

func (s *Server) handleDomainQuery(q Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if q == nil {
			s.writeError(w, http.StatusServiceUnavailable, "query service is not configured")
			return
		}
		topK, err := intParam(r, "top_k")
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, err := q.Query(r.Context(), r.URL.Query().Get("query"), topK)
		if err != nil {
			s.writeError(w, statusFor(err), err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	}
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case pkg.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, pkg.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

func (s *Server) decode(r *http.Request, dst any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if err := sonic.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := sonic.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, pkg.ErrorResponse{Detail: detail})
}
