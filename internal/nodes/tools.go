package nodes

import (
	"context"
	"fmt"
	"strings"

	"zus_chatbot/internal/calc"
	"zus_chatbot/internal/core"
)

// CalcNode evaluates the arithmetic expression extracted by the classifier
type CalcNode struct{}

// NewCalcNode creates a calculator node
func NewCalcNode() *CalcNode {
	return &CalcNode{}
}

// Execute never fails: evaluation errors become the reply. Without an
// extracted expression the whole message is evaluated.
func (c *CalcNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	expr := input.Classification.Expression
	if expr == "" {
		expr = strings.TrimSpace(input.UserMessage)
	}

	result, err := calc.Evaluate(expr)
	if err != nil {
		return core.NodeOutput{
			Reply: fmt.Sprintf("Sorry, I couldn't calculate that. (%v)", err),
			Data:  map[string]any{"expression": expr},
		}, nil
	}

	return core.NodeOutput{
		Reply: fmt.Sprintf("The answer is **%s**.", calc.Format(result)),
		Data:  map[string]any{"expression": expr, "result": result},
	}, nil
}

// GetName returns the node name
func (c *CalcNode) GetName() string {
	return "calc"
}

// GetType returns the node type
func (c *CalcNode) GetType() core.NodeType {
	return core.NodeTypeTools
}
