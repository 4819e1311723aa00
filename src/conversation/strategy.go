package conversation

import (
	"github.com/cloudwego/eino/schema"

	"zus_chatbot/pkg"
)

// ContextStrategy decides how much history a consumer sees and how it is shaped
type ContextStrategy interface {
	BuildMessages(turns []pkg.ConversationTurn) []*schema.Message
	GetMaxTurns() int
}

// ====================== Chat ======================
// ChatContextStrategy - completion context from the last N turns
type ChatContextStrategy struct {
	maxTurns int
}

func NewChatContextStrategy(maxTurns int) *ChatContextStrategy {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &ChatContextStrategy{maxTurns: maxTurns}
}

func (s *ChatContextStrategy) GetMaxTurns() int {
	return s.maxTurns
}

func (s *ChatContextStrategy) BuildMessages(turns []pkg.ConversationTurn) []*schema.Message {
	// Trim to last N turns
	recent := trimTail(turns, s.maxTurns)

	messages := make([]*schema.Message, 0, len(recent))
	for _, turn := range recent {
		switch turn.Role {
		case pkg.RoleUser:
			messages = append(messages, schema.UserMessage(turn.Text))
		case pkg.RoleBot:
			messages = append(messages, schema.AssistantMessage(turn.Text, nil))
		}
	}
	return messages
}

// Helper function
func trimTail(turns []pkg.ConversationTurn, maxTurns int) []pkg.ConversationTurn {
	if maxTurns <= 0 {
		return turns[:0]
	}
	if len(turns) <= maxTurns {
		return turns
	}
	return turns[len(turns)-maxTurns:]
}
