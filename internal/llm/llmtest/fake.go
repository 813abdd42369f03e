// Package llmtest provides a scripted llms.Model for tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// Reply is one scripted answer. A nil Response with a nil Err produces a
// response with zero choices.
type Reply struct {
	Response *llms.ContentResponse
	Err      error
	Panic    any
}

// Text builds a reply with a single choice.
func Text(content string) Reply {
	return Reply{Response: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}}
}

func Fail(err error) Reply {
	return Reply{Err: err}
}

func NoChoices() Reply {
	return Reply{Response: &llms.ContentResponse{}}
}

// Call records what a test model was asked.
type Call struct {
	Messages []llms.MessageContent
	Options  llms.CallOptions
}

// Prompt joins the text parts of every message.
func (c Call) Prompt() string {
	var b strings.Builder
	for _, m := range c.Messages {
		for _, part := range m.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				b.WriteString(tc.Text)
			}
		}
	}
	return b.String()
}

// Model answers with Respond when set, otherwise pops scripted replies in
// order and repeats the last one once the script runs out.
type Model struct {
	mu      sync.Mutex
	replies []Reply
	calls   []Call

	Respond func(call Call) Reply
}

var ErrNoScript = errors.New("llmtest: no scripted reply")

func New(replies ...Reply) *Model {
	return &Model{replies: replies}
}

func (m *Model) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}
	call := Call{Messages: messages, Options: opts}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	var reply Reply
	switch {
	case m.Respond != nil:
		m.mu.Unlock()
		reply = m.Respond(call)
		m.mu.Lock()
	case len(m.replies) == 0:
		reply = Reply{Err: ErrNoScript}
	case len(m.replies) == 1:
		reply = m.replies[0]
	default:
		reply = m.replies[0]
		m.replies = m.replies[1:]
	}
	m.mu.Unlock()

	if reply.Panic != nil {
		panic(reply.Panic)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	if reply.Response == nil {
		return &llms.ContentResponse{}, nil
	}
	return reply.Response, nil
}

func (m *Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func (m *Model) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}
