// Package core runs one chat turn: classify, dispatch to a node, and record
// both sides of the exchange in conversation memory.
package core

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"zus_chatbot/pkg"
	"zus_chatbot/src/conversation"
	"zus_chatbot/src/logger"
)

// ApologyReply is returned when a turn fails for a reason the user cannot fix
const ApologyReply = "Oops, something went wrong. Please try again."

// Processor orchestrates a single chat turn
type Processor struct {
	classifier Classifier
	memory     *conversation.Service
	strategy   conversation.ContextStrategy
	nodes      map[pkg.Intent]Node
	log        zerolog.Logger
}

// NewProcessor creates a processor. Nodes are registered with AddNode; an
// intent without a node falls back to the chat node.
func NewProcessor(classifier Classifier, memory *conversation.Service) *Processor {
	return &Processor{
		classifier: classifier,
		memory:     memory,
		strategy:   conversation.NewChatContextStrategy(memory.MaxTurns()),
		nodes:      make(map[pkg.Intent]Node),
		log:        logger.Component("processor"),
	}
}

// AddNode registers the node answering intent
func (p *Processor) AddNode(intent pkg.Intent, node Node) error {
	if node == nil {
		return fmt.Errorf("node cannot be nil")
	}
	if node.GetName() == "" {
		return fmt.Errorf("node name cannot be empty")
	}

	p.nodes[intent] = node
	p.log.Debug().Str("intent", string(intent)).Str("node", node.GetName()).Str("type", string(node.GetType())).Msg("Added node")
	return nil
}

// Execute runs one turn. Only an empty message is returned as an error; every
// downstream failure becomes an apology reply with Error set.
func (p *Processor) Execute(ctx context.Context, input ProcessorInput) (*ProcessorOutput, error) {
	startTime := time.Now()

	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message cannot be empty", pkg.ErrInvalidRequest)
	}

	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	log := p.log.With().Str("session_id", sessionID).Logger()
	output := &ProcessorOutput{
		SessionID: sessionID,
		Intent:    pkg.IntentChat,
		QueryType: pkg.QueryTypeGeneral,
	}

	reply, err := p.run(ctx, sessionID, message, output, log)
	if err != nil {
		log.Error().Err(err).Str("intent", string(output.Intent)).Msg("Chat turn failed")
		reply = ApologyReply
		output.Error = err.Error()
	}
	output.Reply = reply

	if err := p.memory.AddTurn(ctx, sessionID, pkg.RoleBot, reply); err != nil {
		log.Error().Err(err).Msg("Failed to save bot turn")
		if output.Error == "" {
			output.Error = err.Error()
		}
	}

	output.ProcessingTime = time.Since(startTime).Milliseconds()
	log.Info().
		Str("intent", string(output.Intent)).
		Str("query_type", string(output.QueryType)).
		Int64("duration_ms", output.ProcessingTime).
		Msg("Chat turn completed")
	return output, nil
}

// run covers the steps whose failures are turned into an apology
func (p *Processor) run(ctx context.Context, sessionID, message string, output *ProcessorOutput, log zerolog.Logger) (string, error) {
	history, err := p.memory.Messages(ctx, sessionID, p.strategy)
	if err != nil {
		return "", err
	}
	if err := p.memory.AddTurn(ctx, sessionID, pkg.RoleUser, message); err != nil {
		return "", err
	}

	classification, err := p.classifier.Classify(ctx, message)
	if err != nil {
		if !errors.Is(err, pkg.ErrClassificationFailure) {
			return "", err
		}
		log.Warn().Err(err).Msg("Classification degraded to heuristic")
	}
	output.Intent = classification.Intent
	output.QueryType = classification.QueryType

	node := p.nodeFor(classification.Intent)
	if node == nil {
		return "", fmt.Errorf("no node registered for intent %s", classification.Intent)
	}
	result, err := p.safeExecute(ctx, node, NodeInput{
		UserMessage:    message,
		SessionID:      sessionID,
		Classification: classification,
		History:        history,
	})
	if err != nil {
		return "", fmt.Errorf("node %s: %w", node.GetName(), err)
	}
	return result.Reply, nil
}

func (p *Processor) nodeFor(intent pkg.Intent) Node {
	if node, ok := p.nodes[intent]; ok {
		return node
	}
	return p.nodes[pkg.IntentChat]
}

// safeExecute converts a node panic into an error
func (p *Processor) safeExecute(ctx context.Context, node Node, input NodeInput) (output NodeOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Str("node", node.GetName()).Bytes("stack", debug.Stack()).Msgf("Node panicked: %v", r)
			err = fmt.Errorf("node panicked: %v", r)
		}
	}()
	return node.Execute(ctx, input)
}
