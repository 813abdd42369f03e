package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/RichardoC/medichat/internal/llm/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

func TestGateway_Success(t *testing.T) {
	model := llmtest.New(llmtest.Text("**Rest** and fluids.\n\n* item"))
	g := NewGateway(model, GatewayOptions{MaxTokens: 1000, Temperature: 0.7}, zap.NewNop())

	c := g.Complete(context.Background(), "I have a fever")
	require.Equal(t, StatusOK, c.Status)
	assert.Equal(t, "**Rest** and fluids.\n\n* item", c.Text())

	calls := model.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, calls[0].Messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, calls[0].Messages[1].Role)
	assert.Contains(t, calls[0].Prompt(), "qualified healthcare professional")
	assert.Contains(t, calls[0].Prompt(), "I have a fever")
	assert.Equal(t, 1000, calls[0].Options.MaxTokens)
	assert.InDelta(t, 0.7, calls[0].Options.Temperature, 1e-9)
}

func TestGateway_Outcomes(t *testing.T) {
	tests := []struct {
		name   string
		reply  llmtest.Reply
		status Status
		text   string
	}{
		{"zero choices", llmtest.NoChoices(), StatusEmpty, MsgEmpty},
		{"empty sentinel", llmtest.Fail(fmt.Errorf("wrapped: %w", openai.ErrEmptyResponse)), StatusEmpty, MsgEmpty},
		{"blank choice", llmtest.Text("  \n"), StatusNoOutput, MsgNoOutput},
		{"provider error", llmtest.Fail(errors.New("502 bad gateway: upstream secret-id")), StatusFailed, MsgFailed},
		{"client panic", llmtest.Reply{Panic: "iterator exhausted: secret-id"}, StatusNoOutput, MsgNoOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGateway(llmtest.New(tt.reply), GatewayOptions{}, zap.NewNop())
			c := g.Complete(context.Background(), "question")
			assert.Equal(t, tt.status, c.Status)
			assert.Equal(t, tt.text, c.Text())
			assert.NotContains(t, c.Text(), "secret-id")
		})
	}
}

func TestGateway_Unavailable(t *testing.T) {
	g := NewGateway(nil, GatewayOptions{}, zap.NewNop())
	assert.False(t, g.Available())

	c := g.Complete(context.Background(), "question")
	assert.Equal(t, StatusUnavailable, c.Status)
	assert.Equal(t, MsgUnavailable, c.Text())
}

func TestGateway_DefaultsMaxTokens(t *testing.T) {
	model := llmtest.New(llmtest.Text("ok"))
	g := NewGateway(model, GatewayOptions{}, zap.NewNop())
	g.Complete(context.Background(), "question")
	assert.Equal(t, 1000, model.Calls()[0].Options.MaxTokens)
}

func TestGateway_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGateway(llmtest.New(llmtest.Text("late")), GatewayOptions{}, zap.NewNop())
	c := g.Complete(ctx, "question")
	assert.Equal(t, StatusFailed, c.Status)
	assert.ErrorIs(t, c.Err, context.Canceled)
}
