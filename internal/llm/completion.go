package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const SystemPrompt = "You are Dokter Arki, a helpful medical AI assistant. Provide accurate, educational information. " +
	"Structure your answer for clarity and readability. Use markdown formatting such as bullet points (`* item`), " +
	"numbered lists, and bold text (`**text**`) where it helps to explain complex information. " +
	"Always conclude your response by reminding the user to consult a qualified healthcare professional " +
	"for any medical advice, diagnosis, or treatment."

const (
	MsgUnavailable = "Error: AI client not initialized. Please check your API key configuration."
	MsgEmpty       = "The AI model returned an empty response. Please try rephrasing your question or try again later."
	MsgNoOutput    = "The AI model did not generate a response. This might be a temporary issue with the service. Please try again."
	MsgFailed      = "An error occurred while communicating with the AI. Please try again later."
)

type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusNoOutput
	StatusFailed
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusNoOutput:
		return "no_output"
	case StatusFailed:
		return "failed"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Completion is the outcome of a single gateway call. Err is kept for
// operator logging only and must never be shown to the user.
type Completion struct {
	Status  Status
	Content string
	Err     error
}

// Text returns what the user should see for this outcome.
func (c Completion) Text() string {
	switch c.Status {
	case StatusOK:
		return c.Content
	case StatusEmpty:
		return MsgEmpty
	case StatusNoOutput:
		return MsgNoOutput
	case StatusUnavailable:
		return MsgUnavailable
	default:
		return MsgFailed
	}
}

type GatewayOptions struct {
	MaxTokens   int
	Temperature float64
	CallTimeout time.Duration
}

// Gateway relays one user message to the medical chat model.
type Gateway struct {
	model  llms.Model
	opts   GatewayOptions
	logger *zap.Logger
}

// NewGateway accepts a nil model, which makes every call resolve to
// StatusUnavailable.
func NewGateway(model llms.Model, opts GatewayOptions, logger *zap.Logger) *Gateway {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1000
	}
	logger.Debug("completion gateway ready", zap.String("client", describe(model)))
	return &Gateway{model: model, opts: opts, logger: logger}
}

func (g *Gateway) Available() bool {
	return g.model != nil
}

func (g *Gateway) Complete(ctx context.Context, userMessage string) Completion {
	if g.model == nil {
		g.logger.Error("completion client not initialized")
		return Completion{Status: StatusUnavailable}
	}

	if g.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.CallTimeout)
		defer cancel()
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userMessage),
	}

	g.logger.Debug("sending completion request", zap.Int("messageLength", len(userMessage)))
	result := g.generate(ctx, messages)
	switch result.Status {
	case StatusOK:
		g.logger.Info("received completion", zap.Int("length", len(result.Content)))
	case StatusEmpty:
		g.logger.Warn("completion call succeeded but returned no choices")
	case StatusNoOutput:
		g.logger.Warn("completion returned a choice without content", zap.Error(result.Err))
	default:
		g.logger.Error("completion call failed", zap.Error(result.Err))
	}
	return result
}

// generate turns a panic inside the client library into a no-output result.
func (g *Gateway) generate(ctx context.Context, messages []llms.MessageContent) (result Completion) {
	defer func() {
		if r := recover(); r != nil {
			result = Completion{Status: StatusNoOutput, Err: fmt.Errorf("completion client panicked: %v", r)}
		}
	}()
	resp, err := g.model.GenerateContent(ctx, messages,
		llms.WithMaxTokens(g.opts.MaxTokens),
		llms.WithTemperature(g.opts.Temperature),
	)
	return classify(resp, err)
}

// classify folds the library's ways of signalling an empty answer (a nil
// response, zero choices or the openai empty-response sentinel) into one
// result.
func classify(resp *llms.ContentResponse, err error) Completion {
	if err != nil {
		if errors.Is(err, openai.ErrEmptyResponse) {
			return Completion{Status: StatusEmpty, Err: err}
		}
		return Completion{Status: StatusFailed, Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return Completion{Status: StatusEmpty}
	}
	content := resp.Choices[0].Content
	if strings.TrimSpace(content) == "" {
		return Completion{Status: StatusNoOutput}
	}
	return Completion{Status: StatusOK, Content: content}
}
