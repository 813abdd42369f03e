package llm

import (
	"context"
	"fmt"

	"github.com/RichardoC/medichat/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// NewCompletionModel builds the client for the medical chat model. It returns
// a nil model, not an error, when the credential is missing or the client
// cannot be built: the gateway degrades to its fallback text instead.
func NewCompletionModel(cfg config.CompletionConfig, logger *zap.Logger) llms.Model {
	if cfg.APIKey == "" {
		logger.Warn("completion client disabled", zap.String("reason", "HF_TOKEN not set"))
		return nil
	}

	llm, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		logger.Error("failed to initialize completion client", zap.Error(err))
		return nil
	}

	logger.Info("completion client initialized",
		zap.String("model", cfg.Model),
		zap.String("baseURL", cfg.BaseURL))
	return llm
}

// NewLanguageModel builds the client used for language detection and
// translation, with the same nil-on-absence contract as NewCompletionModel.
func NewLanguageModel(ctx context.Context, cfg config.LanguageConfig, logger *zap.Logger) llms.Model {
	if cfg.APIKey == "" {
		logger.Warn("language client disabled", zap.String("reason", "GOOGLE_API_KEY not set"))
		return nil
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultModel(cfg.Model),
	)
	if err != nil {
		logger.Error("failed to initialize language client", zap.Error(err))
		return nil
	}

	logger.Info("language client initialized", zap.String("model", cfg.Model))
	return llm
}

func describe(model llms.Model) string {
	if model == nil {
		return "absent"
	}
	return fmt.Sprintf("%T", model)
}
