package core_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zus_chatbot/internal/config"
	"zus_chatbot/internal/core"
	"zus_chatbot/internal/index"
	"zus_chatbot/internal/llm"
	"zus_chatbot/internal/nlu"
	"zus_chatbot/internal/nodes"
	"zus_chatbot/internal/services"
	"zus_chatbot/internal/storage"
	"zus_chatbot/internal/testutil"
	"zus_chatbot/pkg"
	"zus_chatbot/src/conversation"
)

type harness struct {
	processor *core.Processor
	memory    *conversation.Service
	embedder  *testutil.FakeEmbedder
	chat      *testutil.FakeChatModel
	index     *index.MemoryIndex
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	corpus := config.DefaultCorpus()

	embedder := testutil.NewFakeEmbedder()
	classifier, err := nlu.NewClassifier(ctx, embedder, corpus, 0)
	require.NoError(t, err)

	idx := index.NewMemoryIndex()
	for i, city := range []string{"Cheras", "Cheras", "Cheras", "Klang"} {
		text := fmt.Sprintf("Outlet: ZUS Coffee %s %d", city, i)
		emb, err := embedder.EmbedStrings(ctx, []string{text})
		require.NoError(t, err)
		require.NoError(t, idx.Upsert(ctx, []index.Vector{{
			ID:     uuid.NewString(),
			Values: emb[0],
			Metadata: map[string]any{
				"type": index.TypeOutlet, "name": fmt.Sprintf("ZUS Coffee %s %d", city, i),
				"city": city, "hours": "8am-10pm", "text": text,
			},
		}}))
	}

	chat := &testutil.FakeChatModel{Reply: "Hello! How can I help you today?"}
	completer, err := llm.NewCompleter(ctx, chat, "You are a ZUS Coffee assistant.", time.Second)
	require.NoError(t, err)

	cfg := services.Config{Timeout: time.Second}
	memory := conversation.NewService(storage.NewMemoryTurnStore(0), 10)

	processor := core.NewProcessor(classifier, memory)
	require.NoError(t, processor.AddNode(pkg.IntentCalc, nodes.NewCalcNode()))
	require.NoError(t, processor.AddNode(pkg.IntentProducts, nodes.NewProductsNode(services.NewProductService(embedder, idx, nil, cfg), 0)))
	require.NoError(t, processor.AddNode(pkg.IntentOutlets, nodes.NewOutletsNode(services.NewOutletService(embedder, idx, corpus.Cities, cfg), 0)))
	require.NoError(t, processor.AddNode(pkg.IntentChat, nodes.NewChatNode(completer)))

	return &harness{processor: processor, memory: memory, embedder: embedder, chat: chat, index: idx}
}

func TestProcessorCalc(t *testing.T) {
	h := newHarness(t)

	out, err := h.processor.Execute(context.Background(), core.ProcessorInput{Message: "calculate 7 * (3 + 2)"})
	require.NoError(t, err)
	assert.Contains(t, out.Reply, "35")
	assert.Equal(t, pkg.IntentCalc, out.Intent)
	assert.Empty(t, out.Error)

	_, err = uuid.Parse(out.SessionID)
	assert.NoError(t, err)
}

func TestProcessorArithmeticLookalikesSkipCalc(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		message string
		intent  pkg.Intent
	}{
		{"are your outlets in Cheras open 24/7?", pkg.IntentChat},
		{"outlet hours on Jalan SS2/24", pkg.IntentOutlets},
		{"2-in-1 drinkware", pkg.IntentChat},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			out, err := h.processor.Execute(context.Background(), core.ProcessorInput{Message: tt.message})
			require.NoError(t, err)
			assert.Equal(t, tt.intent, out.Intent)
			assert.NotContains(t, out.Reply, "The answer is")
			assert.NotContains(t, out.Reply, "couldn't calculate")
			assert.Empty(t, out.Error)
		})
	}
}

func TestProcessorOutletCount(t *testing.T) {
	h := newHarness(t)

	out, err := h.processor.Execute(context.Background(), core.ProcessorInput{Message: "how many outlets in Cheras", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "There are 3 outlets in Cheras.", out.Reply)
	assert.Equal(t, pkg.IntentOutlets, out.Intent)
	assert.Equal(t, pkg.QueryTypeCount, out.QueryType)
	assert.Equal(t, "s1", out.SessionID)
}

func TestProcessorChat(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out, err := h.processor.Execute(ctx, core.ProcessorInput{Message: "hello", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, pkg.IntentChat, out.Intent)
	assert.Equal(t, "Hello! How can I help you today?", out.Reply)
	// system + new message
	assert.Len(t, h.chat.LastInput(), 2)

	_, err = h.processor.Execute(ctx, core.ProcessorInput{Message: "hello", SessionID: "s1"})
	require.NoError(t, err)
	// system + previous user and bot turns + new message
	input := h.chat.LastInput()
	require.Len(t, input, 4)
	assert.Equal(t, "hello", input[1].Content)
	assert.Equal(t, "Hello! How can I help you today?", input[2].Content)
}

func TestProcessorRecordsTurns(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.processor.Execute(ctx, core.ProcessorInput{Message: "calculate 1+1", SessionID: "s1"})
	require.NoError(t, err)

	turns, err := h.memory.GetHistory(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, pkg.RoleUser, turns[0].Role)
	assert.Equal(t, "calculate 1+1", turns[0].Text)
	assert.Equal(t, pkg.RoleBot, turns[1].Role)
	assert.Equal(t, "The answer is **2**.", turns[1].Text)
}

func TestProcessorEmptyMessage(t *testing.T) {
	h := newHarness(t)

	_, err := h.processor.Execute(context.Background(), core.ProcessorInput{Message: "   "})
	assert.ErrorIs(t, err, pkg.ErrInvalidRequest)
}

func TestProcessorServiceFailureApologizes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.chat.Err = errors.New("quota exceeded")

	out, err := h.processor.Execute(ctx, core.ProcessorInput{Message: "hello", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, core.ApologyReply, out.Reply)
	assert.NotEmpty(t, out.Error)

	turns, err := h.memory.GetHistory(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, core.ApologyReply, turns[1].Text)
}

func TestProcessorClassificationFailureFallsBack(t *testing.T) {
	h := newHarness(t)
	h.embedder.Err = errors.New("embedding down")

	out, err := h.processor.Execute(context.Background(), core.ProcessorInput{Message: "good morning"})
	require.NoError(t, err)
	assert.Equal(t, pkg.IntentChat, out.Intent)
	assert.Equal(t, "Hello! How can I help you today?", out.Reply)
	assert.Empty(t, out.Error)
}

type panicNode struct{}

func (panicNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	panic("boom")
}
func (panicNode) GetName() string        { return "panic" }
func (panicNode) GetType() core.NodeType { return core.NodeTypeTools }

func TestProcessorRecoversNodePanic(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.processor.AddNode(pkg.IntentCalc, panicNode{}))

	out, err := h.processor.Execute(context.Background(), core.ProcessorInput{Message: "calculate 1+1"})
	require.NoError(t, err)
	assert.Equal(t, core.ApologyReply, out.Reply)
	assert.Contains(t, out.Error, "boom")
}

func TestProcessorAddNodeValidation(t *testing.T) {
	h := newHarness(t)
	assert.Error(t, h.processor.AddNode(pkg.IntentChat, nil))
}
