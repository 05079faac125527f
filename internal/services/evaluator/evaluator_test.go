package evaluator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/date-engine/internal/services"
	"github.com/jwebster45206/date-engine/pkg/chat"
	"github.com/jwebster45206/date-engine/pkg/meters"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRequest() Request {
	return Request{
		UserMessage:          "I brought you flowers",
		CharacterName:        "Mina",
		CharacterGender:      "female",
		CharacterPersonality: "playful, curious",
		CurrentMood:          "Cozy",
		ConversationContext:  "NPC said: Hi!",
		Location:             "Neon Cafe",
		Rating:               "PG-13",
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		ok    bool
		delta meters.Delta
		appr  bool
	}{
		{
			name:  "plain json",
			text:  `{"meterDelta":{"trust":1,"chemistry":2,"affection":0},"npcDialogue":"Oh wow!","visualPrompt":"Mina smiles","isAppropriate":true}`,
			ok:    true,
			delta: meters.Delta{Trust: 1, Chemistry: 2},
			appr:  true,
		},
		{
			name:  "wrapped in prose and fences",
			text:  "Sure! ```json\n{\"meterDelta\":{\"trust\":0,\"chemistry\":0,\"affection\":1},\"npcDialogue\":\"Hi\",\"visualPrompt\":\"waves\",\"isAppropriate\":false}\n```",
			ok:    true,
			delta: meters.Delta{Affection: 1},
			appr:  false,
		},
		{
			name:  "out of range values clamped",
			text:  `{"meterDelta":{"trust":9,"chemistry":-7,"affection":1e30},"npcDialogue":"!","visualPrompt":"?"}`,
			ok:    true,
			delta: meters.Delta{Trust: 3, Chemistry: -3, Affection: 3},
			appr:  true,
		},
		{
			name:  "fractional values rounded",
			text:  `{"meterDelta":{"trust":1.6,"chemistry":-0.4,"affection":0},"npcDialogue":"a","visualPrompt":"b"}`,
			ok:    true,
			delta: meters.Delta{Trust: 2},
			appr:  true,
		},
		{name: "no json", text: "I can't do that.", ok: false},
		{name: "malformed", text: `{"meterDelta": {`, ok: false},
		{name: "missing delta", text: `{"npcDialogue":"a","visualPrompt":"b"}`, ok: false},
		{name: "missing delta axis", text: `{"meterDelta":{"trust":1,"chemistry":1},"npcDialogue":"a","visualPrompt":"b"}`, ok: false},
		{name: "empty dialogue", text: `{"meterDelta":{"trust":1,"chemistry":1,"affection":1},"npcDialogue":"","visualPrompt":"b"}`, ok: false},
		{name: "blank dialogue", text: `{"meterDelta":{"trust":1,"chemistry":1,"affection":1},"npcDialogue":"   ","visualPrompt":"b"}`, ok: false},
		{name: "blank visual prompt", text: `{"meterDelta":{"trust":1,"chemistry":1,"affection":1},"npcDialogue":"a","visualPrompt":"\n\t"}`, ok: false},
		{name: "wrong types", text: `{"meterDelta":{"trust":"lots","chemistry":1,"affection":1},"npcDialogue":"a","visualPrompt":"b"}`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.text)
			assert.Equal(t, tt.ok, result.OK(), "err: %v", result.Err)
			if !tt.ok {
				assert.Equal(t, ParseFallback, result.ResponseOrFallback())
				return
			}
			assert.Equal(t, tt.delta, result.Response.MeterDelta)
			assert.Equal(t, tt.appr, result.Response.IsAppropriate)
		})
	}
}

func TestFallbackText(t *testing.T) {
	assert.Equal(t, "Sorry, I got a bit distracted. What were you saying?", ErrorFallback.NpcDialogue)
	assert.Equal(t, "Character looks momentarily distracted, then refocuses with a small apologetic smile.", ErrorFallback.VisualPrompt)
	assert.True(t, ErrorFallback.MeterDelta.IsZero())
	assert.True(t, ErrorFallback.IsAppropriate)

	assert.Equal(t, "Hmm, I'm not sure what to say to that...", ParseFallback.NpcDialogue)
	assert.Equal(t, "Character looks slightly confused, tilts head, uncertain expression.", ParseFallback.VisualPrompt)
	assert.True(t, ParseFallback.MeterDelta.IsZero())
	assert.True(t, ParseFallback.IsAppropriate)
}

func TestEvaluate_Success(t *testing.T) {
	llm := services.NewMockLLMAPI()
	ev := New(llm, testLogger())
	require.True(t, ev.Available())

	resp := ev.Evaluate(context.Background(), testRequest())
	assert.Equal(t, meters.Delta{Trust: 1, Chemistry: 1}, resp.MeterDelta)
	assert.Equal(t, "That's sweet of you to say.", resp.NpcDialogue)

	_, calls := llm.GetCalls()
	require.Len(t, calls, 1)
	msgs := calls[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.ChatRoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Content Rating: PG-13")
	assert.Contains(t, msgs[1].Content, `The player says/does: "I brought you flowers"`)
	assert.Contains(t, msgs[1].Content, "playful, curious")
}

func TestEvaluate_Fallbacks(t *testing.T) {
	t.Run("no llm", func(t *testing.T) {
		ev := New(nil, testLogger())
		assert.False(t, ev.Available())
		assert.Equal(t, ErrorFallback, ev.Evaluate(context.Background(), testRequest()))
	})

	t.Run("transport error", func(t *testing.T) {
		llm := services.NewMockLLMAPI()
		llm.SetChatError(errors.New("connection refused"))
		assert.Equal(t, ErrorFallback, New(llm, testLogger()).Evaluate(context.Background(), testRequest()))
	})

	t.Run("unparseable reply", func(t *testing.T) {
		llm := services.NewMockLLMAPI()
		llm.SetChatReply("As an AI I cannot rate dates.")
		assert.Equal(t, ParseFallback, New(llm, testLogger()).Evaluate(context.Background(), testRequest()))
	})

	t.Run("blank dialogue", func(t *testing.T) {
		llm := services.NewMockLLMAPI()
		llm.SetChatReply(`{"meterDelta":{"trust":2,"chemistry":0,"affection":0},"npcDialogue":"   ","visualPrompt":"smiles"}`)
		resp := New(llm, testLogger()).Evaluate(context.Background(), testRequest())
		assert.Equal(t, ParseFallback, resp)
		assert.True(t, resp.MeterDelta.IsZero())
	})

	t.Run("bad request", func(t *testing.T) {
		req := testRequest()
		req.UserMessage = "   "
		assert.Equal(t, ErrorFallback, New(services.NewMockLLMAPI(), testLogger()).Evaluate(context.Background(), req))
	})

	t.Run("timeout", func(t *testing.T) {
		llm := services.NewMockLLMAPI()
		llm.ChatFunc = func(ctx context.Context, _ []chat.ChatMessage) (*chat.ChatResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		ev := New(llm, testLogger()).WithTimeout(20 * time.Millisecond)

		start := time.Now()
		resp := ev.Evaluate(context.Background(), testRequest())
		assert.Equal(t, ErrorFallback, resp)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestEvaluate_ClampsModelDeltas(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.SetChatReply(strings.ReplaceAll(services.MockEvaluationReply, `"trust":1`, `"trust":12`))

	resp := New(llm, testLogger()).Evaluate(context.Background(), testRequest())
	assert.Equal(t, 3, resp.MeterDelta.Trust)
}
