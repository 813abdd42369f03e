package chat

import (
	"context"

	"github.com/RichardoC/medichat/internal/config"
	"github.com/RichardoC/medichat/internal/llm"
	"go.uber.org/zap"
)

type Completer interface {
	Complete(ctx context.Context, userMessage string) llm.Completion
	Available() bool
}

type Translator interface {
	Detect(ctx context.Context, text string) string
	Translate(ctx context.Context, text, target string) string
	Available() bool
}

// Readiness reports which remote clients were configured at startup.
type Readiness struct {
	CompletionReady bool `json:"completion_ready"`
	LanguageReady   bool `json:"language_ready"`
}

// StatusText is the status line shown while no request is running.
func (r Readiness) StatusText() string {
	switch {
	case !r.CompletionReady:
		return "Error: Medical AI client not initialized"
	case !r.LanguageReady:
		return "Error: Translation client not initialized"
	default:
		return "Ready to help with medical questions"
	}
}

// Orchestrator runs detect, complete and translate for one user message.
// It holds no per-session state and is safe to share between sessions.
type Orchestrator struct {
	completer  Completer
	translator Translator
	logger     *zap.Logger
}

func NewOrchestrator(completer Completer, translator Translator, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		completer:  completer,
		translator: translator,
		logger:     logger,
	}
}

// Respond always returns displayable text. Fallback and error messages go
// through translation like a genuine answer does.
func (o *Orchestrator) Respond(ctx context.Context, userMessage string) string {
	o.logger.Info("getting AI response", zap.String("preview", preview(userMessage, 50)))

	lang := o.translator.Detect(ctx, userMessage)

	completion := o.completer.Complete(ctx, userMessage)
	if completion.Status != llm.StatusOK {
		o.logger.Warn("completion degraded to fallback text",
			zap.Stringer("status", completion.Status),
			zap.Error(completion.Err))
	}

	final := o.translator.Translate(ctx, completion.Text(), lang)

	o.logger.Info("response ready",
		zap.String("language", lang),
		zap.Stringer("status", completion.Status),
		zap.Int("length", len(final)))
	return final
}

// DetectLanguage exposes the first pipeline step on its own.
func (o *Orchestrator) DetectLanguage(ctx context.Context, text string) string {
	return o.translator.Detect(ctx, text)
}

func (o *Orchestrator) Readiness() Readiness {
	return Readiness{
		CompletionReady: o.completer.Available(),
		LanguageReady:   o.translator.Available(),
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// NewFromConfig builds both clients once and wires them into an
// orchestrator. Missing credentials leave the matching client absent.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) *Orchestrator {
	completionModel := llm.NewCompletionModel(cfg.Completion, logger)
	languageModel := llm.NewLanguageModel(ctx, cfg.Language, logger)

	return NewOrchestrator(
		llm.NewGateway(completionModel, llm.GatewayOptions{
			MaxTokens:   cfg.Completion.MaxTokens,
			Temperature: cfg.Completion.Temperature,
			CallTimeout: cfg.Completion.CallTimeout,
		}, logger),
		llm.NewLinguist(languageModel, cfg.Language.CallTimeout, logger),
		logger,
	)
}
