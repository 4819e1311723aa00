package pkg

import (
	"time"
)

// Core types shared by the classifier, dispatchers and the orchestrator

// Intent is the coarse category of a user message that drives dispatch
type Intent string

const (
	IntentCalc     Intent = "calc"
	IntentProducts Intent = "products"
	IntentOutlets  Intent = "outlets"
	IntentChat     Intent = "chat"
)

// Intents lists every intent in its fixed enumeration order (used for tie-breaking)
var Intents = []Intent{IntentCalc, IntentProducts, IntentOutlets, IntentChat}

// QueryType refines how a dispatcher's result is formatted
type QueryType string

const (
	QueryTypeCount     QueryType = "count"
	QueryTypeTime      QueryType = "time"
	QueryTypeAttribute QueryType = "attribute"
	QueryTypeGeneral   QueryType = "general"
)

// QueryTypes lists every query type in its fixed enumeration order
var QueryTypes = []QueryType{QueryTypeCount, QueryTypeTime, QueryTypeAttribute, QueryTypeGeneral}

// Classification is the per-request result of intent detection. Not persisted.
// Expression is set only for the calc intent.
type Classification struct {
	Intent     Intent    `json:"intent"`
	QueryType  QueryType `json:"query_type"`
	Expression string    `json:"expression,omitempty"`
}

// Role identifies who produced a conversation turn
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// ConversationTurn is one immutable entry in a session's history
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRequest is the body accepted by the chat endpoint
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatInfo carries routing metadata alongside a reply
type ChatInfo struct {
	Intent    Intent    `json:"intent,omitempty"`
	QueryType QueryType `json:"query_type,omitempty"`
	SessionID string    `json:"session_id"`
	Error     string    `json:"error,omitempty"`
}

// ChatResponse is the body returned by the chat endpoint
type ChatResponse struct {
	Reply string   `json:"reply"`
	Info  ChatInfo `json:"info"`
}

// CalcRequest is the body accepted by POST /calc
type CalcRequest struct {
	Expr string `json:"expr"`
}

// CalcResponse is returned by the calculator endpoints
type CalcResponse struct {
	Result float64 `json:"result"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Detail string `json:"detail"`
}
