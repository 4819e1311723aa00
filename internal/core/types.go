package core

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"zus_chatbot/pkg"
)

// Node represents a single capability that can answer a message
type Node interface {
	Execute(ctx context.Context, input NodeInput) (NodeOutput, error)
	GetName() string
	GetType() NodeType
}

// NodeType defines the different types of nodes
type NodeType string

const (
	NodeTypeTools    NodeType = "tools"
	NodeTypeResponse NodeType = "response"
)

// NodeInput contains the input data for a node
type NodeInput struct {
	UserMessage    string             `json:"user_message"`
	SessionID      string             `json:"session_id"`
	Classification pkg.Classification `json:"classification"`

	// History holds the turns before UserMessage, shaped for a chat model
	History []*schema.Message `json:"-"`
}

// NodeOutput contains the output data from a node
type NodeOutput struct {
	Reply string         `json:"reply"`
	Data  map[string]any `json:"data,omitempty"`
}

// Classifier decides intent and query type for a message
type Classifier interface {
	Classify(ctx context.Context, text string) (pkg.Classification, error)
}

// ProcessorInput is the main input for the processor
type ProcessorInput struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ProcessorOutput is the main output from the processor
type ProcessorOutput struct {
	Reply          string        `json:"reply"`
	Intent         pkg.Intent    `json:"intent"`
	QueryType      pkg.QueryType `json:"query_type"`
	SessionID      string        `json:"session_id"`
	Error          string        `json:"error,omitempty"`
	ProcessingTime int64         `json:"processing_time_ms"`
}

// Info converts the output into the chat response metadata
func (o *ProcessorOutput) Info() pkg.ChatInfo {
	return pkg.ChatInfo{
		Intent:    o.Intent,
		QueryType: o.QueryType,
		SessionID: o.SessionID,
		Error:     o.Error,
	}
}
