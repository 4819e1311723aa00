package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"zus_chatbot/pkg"
)

// DefaultMaxTurns is the history window used when a caller passes maxTurns <= 0
const DefaultMaxTurns = 10

// Service is the per-session conversation memory
type Service struct {
	repo     Repository
	maxTurns int
	now      func() time.Time
}

func NewService(repo Repository, maxTurns int) *Service {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Service{repo: repo, maxTurns: maxTurns, now: time.Now}
}

// AddTurn appends a turn stamped with the current time
func (s *Service) AddTurn(ctx context.Context, sessionID string, role pkg.Role, text string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session ID cannot be empty", pkg.ErrInvalidRequest)
	}
	if role != pkg.RoleUser && role != pkg.RoleBot {
		return fmt.Errorf("%w: unknown role %q", pkg.ErrInvalidRequest, role)
	}

	turn := pkg.ConversationTurn{Role: role, Text: text, Timestamp: s.now()}
	if err := s.repo.Append(ctx, sessionID, turn); err != nil {
		return fmt.Errorf("failed to append %s turn: %w", role, err)
	}
	return nil
}

// GetHistory returns the most recent turns oldest first; maxTurns <= 0 uses the default window
func (s *Service) GetHistory(ctx context.Context, sessionID string, maxTurns int) ([]pkg.ConversationTurn, error) {
	if maxTurns <= 0 {
		maxTurns = s.maxTurns
	}
	turns, err := s.repo.Recent(ctx, sessionID, maxTurns)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return turns, nil
}

// Reset clears a session's history
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	if err := s.repo.Reset(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	return nil
}

// Messages returns recent history shaped for a chat model
func (s *Service) Messages(ctx context.Context, sessionID string, strategy ContextStrategy) ([]*schema.Message, error) {
	turns, err := s.GetHistory(ctx, sessionID, strategy.GetMaxTurns())
	if err != nil {
		return nil, err
	}
	return strategy.BuildMessages(turns), nil
}

// Ping checks the backing store when it holds a connection
func (s *Service) Ping(ctx context.Context) error {
	pinger, ok := s.repo.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	if err := pinger.Ping(ctx); err != nil {
		return pkg.NewServiceError("conversation store", "ping", err)
	}
	return nil
}

// MaxTurns returns the default history window
func (s *Service) MaxTurns() int {
	return s.maxTurns
}
