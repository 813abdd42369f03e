package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

const DefaultLanguage = "English"

// Linguist detects the language of user input and translates English replies
// back into it. Both operations always return displayable text.
type Linguist struct {
	model       llms.Model
	callTimeout time.Duration
	logger      *zap.Logger
}

func NewLinguist(model llms.Model, callTimeout time.Duration, logger *zap.Logger) *Linguist {
	logger.Debug("linguist ready", zap.String("client", describe(model)))
	return &Linguist{model: model, callTimeout: callTimeout, logger: logger}
}

func (l *Linguist) Available() bool {
	return l.model != nil
}

// Detect names the language text is written in, falling back to English.
func (l *Linguist) Detect(ctx context.Context, text string) string {
	if l.model == nil {
		l.logger.Warn("language detection skipped: client not initialized")
		return DefaultLanguage
	}

	prompt := fmt.Sprintf("What language is the following text written in? "+
		"Respond with only the language name (e.g., 'Indonesian', 'English', 'Spanish').\n\nText: \"%s\"", text)

	reply, err := l.generate(ctx, prompt)
	if err != nil {
		l.logger.Error("language detection failed, defaulting to English", zap.Error(err))
		return DefaultLanguage
	}

	lang := strings.TrimSpace(reply)
	if i := strings.IndexByte(lang, '\n'); i >= 0 {
		lang = strings.TrimSpace(lang[:i])
	}
	if lang == "" {
		l.logger.Warn("language detection returned nothing, defaulting to English")
		return DefaultLanguage
	}

	l.logger.Info("language detected", zap.String("language", lang))
	return lang
}

// Translate renders English text in target. On any failure the original text
// is returned behind a short annotation so it stays displayable.
func (l *Linguist) Translate(ctx context.Context, text, target string) string {
	if strings.EqualFold(strings.TrimSpace(target), DefaultLanguage) {
		l.logger.Debug("no translation needed", zap.String("target", target))
		return text
	}

	if l.model == nil {
		return "(Translation failed: Google AI client not initialized) " + text
	}

	prompt := fmt.Sprintf("Translate the following English text to %s. "+
		"Only provide the translation, nothing else:\n\n%s", target, text)

	reply, err := l.generate(ctx, prompt)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = fmt.Errorf("empty translation")
	}
	if err != nil {
		l.logger.Error("translation failed",
			zap.String("target", target),
			zap.Error(err))
		return fmt.Sprintf("(Translation to %s failed, showing original text) %s", target, text)
	}

	l.logger.Info("translation succeeded", zap.String("target", target))
	return reply
}

func (l *Linguist) generate(ctx context.Context, prompt string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			reply, err = "", fmt.Errorf("language client panicked: %v", r)
		}
	}()
	if l.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.callTimeout)
		defer cancel()
	}
	return llms.GenerateFromSinglePrompt(ctx, l.model, prompt)
}
