// Package testutil provides deterministic stand-ins for the embedding and chat
// model services so packages can be tested offline.
package testutil

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// FakeEmbedder is a bag-of-words embedder. Every distinct word gets its own
// dimension, so texts sharing words are similar and texts sharing none score 0.
type FakeEmbedder struct {
	Dim int
	Err error

	mu    sync.Mutex
	vocab map[string]int
	calls int
}

func NewFakeEmbedder() *FakeEmbedder {
	return &FakeEmbedder{Dim: 512, vocab: make(map[string]int)}
}

func (f *FakeEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.Err != nil {
		return nil, f.Err
	}

	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, f.Dim)
		for _, word := range Words(text) {
			idx, ok := f.vocab[word]
			if !ok {
				idx = len(f.vocab) % f.Dim
				f.vocab[word] = idx
			}
			vec[idx]++
		}
		out[i] = vec
	}
	return out, nil
}

// Calls returns how many EmbedStrings calls were made
func (f *FakeEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Words splits text into lowercase alphanumeric words
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// FakeChatModel replies with a fixed text and records the last prompt
type FakeChatModel struct {
	Reply string
	Err   error

	mu   sync.Mutex
	last []*schema.Message
}

var _ model.BaseChatModel = (*FakeChatModel)(nil)

func (f *FakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	f.last = input
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	return schema.AssistantMessage(f.Reply, nil), nil
}

func (f *FakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// LastInput returns the messages of the most recent call
func (f *FakeChatModel) LastInput() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}
