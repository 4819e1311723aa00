package nodes

import (
	"context"

	"zus_chatbot/internal/core"
	"zus_chatbot/internal/llm"
)

// ChatNode answers with a general conversational completion
type ChatNode struct {
	completer llm.Completer
}

// NewChatNode creates a new chat node
func NewChatNode(completer llm.Completer) *ChatNode {
	return &ChatNode{completer: completer}
}

// Execute sends the prior turns and the new message to the completer
func (r *ChatNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	reply, err := r.completer.Complete(ctx, input.History, input.UserMessage)
	if err != nil {
		return core.NodeOutput{}, err
	}
	return core.NodeOutput{Reply: reply}, nil
}

// GetName returns the node name
func (r *ChatNode) GetName() string {
	return "chat"
}

// GetType returns the node type
func (r *ChatNode) GetType() core.NodeType {
	return core.NodeTypeResponse
}
