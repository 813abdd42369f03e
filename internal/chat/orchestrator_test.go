package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/RichardoC/medichat/internal/config"
	"github.com/RichardoC/medichat/internal/llm"
	"github.com/RichardoC/medichat/internal/llm/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

func newOrchestrator(completion, language *llmtest.Model) *Orchestrator {
	logger := zap.NewNop()
	return NewOrchestrator(
		llm.NewGateway(nilOr(completion), llm.GatewayOptions{MaxTokens: 1000, Temperature: 0.7}, logger),
		llm.NewLinguist(nilOr(language), 0, logger),
		logger,
	)
}

// nilOr keeps a nil *llmtest.Model from turning into a non-nil interface.
func nilOr(m *llmtest.Model) llms.Model {
	if m == nil {
		return nil
	}
	return m
}

// languageModel answers detection prompts with lang and translation prompts
// with a tagged copy of the text being translated.
func languageModel(lang string) *llmtest.Model {
	m := llmtest.New()
	m.Respond = func(call llmtest.Call) llmtest.Reply {
		prompt := call.Prompt()
		if strings.HasPrefix(prompt, "What language") {
			return llmtest.Text(lang)
		}
		_, text, _ := strings.Cut(prompt, "nothing else:\n\n")
		return llmtest.Text("[" + lang + "] " + text)
	}
	return m
}

func TestRespond_TranslatesAnswer(t *testing.T) {
	o := newOrchestrator(llmtest.New(llmtest.Text("Rest and drink fluids.")), languageModel("Indonesian"))

	got := o.Respond(context.Background(), "Saya demam")
	assert.Equal(t, "[Indonesian] Rest and drink fluids.", got)
}

func TestRespond_CompletionClientAbsent(t *testing.T) {
	language := languageModel("Indonesian")
	o := newOrchestrator(nil, language)

	got := o.Respond(context.Background(), "Saya demam")
	assert.Equal(t, "[Indonesian] "+llm.MsgUnavailable, got)
	assert.NotEqual(t, llm.MsgUnavailable, got)
	require.Len(t, language.Calls(), 2)
}

func TestRespond_EmptyCompletion(t *testing.T) {
	o := newOrchestrator(llmtest.New(llmtest.NoChoices()), languageModel("Spanish"))

	got := o.Respond(context.Background(), "Tengo fiebre")
	assert.Equal(t, "[Spanish] "+llm.MsgEmpty, got)
}

func TestRespond_DetectionFails(t *testing.T) {
	language := llmtest.New(llmtest.Fail(errors.New("detector down")))
	o := newOrchestrator(llmtest.New(llmtest.Text("Rest and drink fluids.")), language)

	got := o.Respond(context.Background(), "Saya demam")
	assert.Equal(t, "Rest and drink fluids.", got)
	assert.Len(t, language.Calls(), 1, "english target must not trigger a translation call")
}

func TestRespond_BothClientsAbsent(t *testing.T) {
	o := newOrchestrator(nil, nil)
	assert.Equal(t, llm.MsgUnavailable, o.Respond(context.Background(), "hello"))
}

func TestRespond_NeverEmpty(t *testing.T) {
	replies := []llmtest.Reply{
		llmtest.Text("answer"),
		llmtest.Text(" "),
		llmtest.NoChoices(),
		llmtest.Fail(errors.New("x")),
	}
	for _, reply := range replies {
		for _, language := range []*llmtest.Model{
			nil,
			languageModel("French"),
			llmtest.New(llmtest.Text("French"), llmtest.Fail(errors.New("translate down"))),
		} {
			o := newOrchestrator(llmtest.New(reply), language)
			assert.NotEmpty(t, o.Respond(context.Background(), "bonjour"))
		}
	}
}

func TestRespond_CompletionClientPanics(t *testing.T) {
	o := newOrchestrator(llmtest.New(llmtest.Reply{Panic: "stream closed"}), languageModel("Indonesian"))

	got := o.Respond(context.Background(), "Saya demam")
	assert.Equal(t, "[Indonesian] "+llm.MsgNoOutput, got)
}

func TestRespond_LanguageClientPanics(t *testing.T) {
	language := llmtest.New(llmtest.Reply{Panic: "stream closed"})
	o := newOrchestrator(llmtest.New(llmtest.Text("Rest and drink fluids.")), language)

	got := o.Respond(context.Background(), "Saya demam")
	assert.Equal(t, "Rest and drink fluids.", got)
}

func TestRespond_FailedTranslationKeepsOriginal(t *testing.T) {
	language := llmtest.New(llmtest.Text("French"), llmtest.Fail(errors.New("translate down")))
	o := newOrchestrator(llmtest.New(llmtest.Text("Rest.")), language)

	got := o.Respond(context.Background(), "J'ai de la fièvre")
	assert.Contains(t, got, "Rest.")
	assert.Contains(t, got, "Translation to French failed")
}

func TestReadiness(t *testing.T) {
	assert.Equal(t, Readiness{CompletionReady: true, LanguageReady: true},
		newOrchestrator(llmtest.New(), llmtest.New()).Readiness())

	r := newOrchestrator(nil, llmtest.New()).Readiness()
	assert.False(t, r.CompletionReady)
	assert.Equal(t, "Error: Medical AI client not initialized", r.StatusText())

	r = newOrchestrator(llmtest.New(), nil).Readiness()
	assert.Equal(t, "Error: Translation client not initialized", r.StatusText())
}

func TestNewFromConfig_NoCredentials(t *testing.T) {
	cfg := &config.Config{
		Completion: config.CompletionConfig{Model: "m", BaseURL: "http://localhost", MaxTokens: 1000, Temperature: 0.7},
		Language:   config.LanguageConfig{Model: "g"},
	}
	o := NewFromConfig(context.Background(), cfg, zap.NewNop())

	assert.Equal(t, Readiness{}, o.Readiness())
	assert.Equal(t, llm.MsgUnavailable, o.Respond(context.Background(), "Saya demam"))
}
