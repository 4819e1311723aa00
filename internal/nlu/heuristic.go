package nlu

import (
	"regexp"
	"strings"

	"zus_chatbot/internal/calc"
	"zus_chatbot/internal/config"
	"zus_chatbot/pkg"
)

// arithmeticPattern matches an operand followed by a binary operator
var arithmeticPattern = regexp.MustCompile(`[0-9)]\s*[-+*/%]`)

// Heuristics is the cheap keyword detector. It also owns calc trigger
// stripping, so the classifier and the calculator agree on the expression.
type Heuristics struct {
	calcTriggers    []string
	productKeywords []string
	outletKeywords  []string
}

// NewHeuristics builds the keyword lists from the corpus
func NewHeuristics(corpus *config.Corpus) *Heuristics {
	return &Heuristics{
		calcTriggers:    lowerAll(corpus.CalcTriggers),
		productKeywords: lowerAll(corpus.Heuristic.ProductKeywords),
		outletKeywords:  lowerAll(corpus.Heuristic.OutletKeywords),
	}
}

// Expression strips leading calc triggers and a trailing '?' or '='
func (h *Heuristics) Expression(text string) string {
	expr := strings.TrimSpace(text)
	for stripped := true; stripped; {
		stripped = false
		lower := strings.ToLower(expr)
		for _, t := range h.calcTriggers {
			if t != "" && strings.HasPrefix(lower, t) {
				expr = strings.TrimSpace(expr[len(t):])
				stripped = true
				break
			}
		}
	}
	return strings.TrimSpace(strings.TrimRight(expr, "?= "))
}

// Classify returns the heuristic intent. Calc is chosen only when the message,
// once its triggers are stripped, is an arithmetic expression that parses; the
// expression is returned with it. Other intents return an empty expression.
func (h *Heuristics) Classify(text string) (pkg.Intent, string) {
	if expr := h.Expression(text); isArithmetic(expr) {
		return pkg.IntentCalc, expr
	}

	lower := strings.ToLower(text)
	if containsAny(lower, h.productKeywords) || (strings.Contains(lower, "what is") && strings.Contains(lower, "zus")) {
		return pkg.IntentProducts, ""
	}
	if containsAny(lower, h.outletKeywords) {
		return pkg.IntentOutlets, ""
	}
	return pkg.IntentChat, ""
}

// isArithmetic reports whether expr uses an operator and is accepted by the
// calculator grammar. "24/7" in a sentence fails the parse and is not arithmetic.
func isArithmetic(expr string) bool {
	if !arithmeticPattern.MatchString(expr) {
		return false
	}
	_, err := calc.Parse(expr)
	return err == nil
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	return out
}
