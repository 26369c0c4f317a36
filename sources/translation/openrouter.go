package translation

import (
	"context"
	"fmt"
	"time"

	"babelgram/sources/metrics"
	"babelgram/sources/tracing"

	openrouter "github.com/revrost/go-openrouter"
	"github.com/shopspring/decimal"
)

func NewOpenRouterClient(config *TranslationConfig) *openrouter.Client {
	return openrouter.NewClient(config.OpenRouterToken)
}

type OpenRouterProvider struct {
	ai      *openrouter.Client
	config  *TranslationConfig
	metrics *metrics.MetricsService
}

func NewOpenRouterProvider(ai *openrouter.Client, config *TranslationConfig, metrics *metrics.MetricsService) *OpenRouterProvider {
	return &OpenRouterProvider{ai: ai, config: config, metrics: metrics}
}

func (x *OpenRouterProvider) Name() string {
	return "openrouter"
}

func (x *OpenRouterProvider) Translate(ctx context.Context, log *tracing.Logger, req Request) (*Result, error) {
	start := time.Now()

	response, err := x.ai.CreateChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Model:  x.config.OpenRouterModel,
		Models: x.config.OpenRouterFallbacks,
		Messages: []openrouter.ChatCompletionMessage{
			{Role: openrouter.ChatMessageRoleSystem, Content: openrouter.Content{Text: translateSystemPrompt}},
			{Role: openrouter.ChatMessageRoleUser, Content: openrouter.Content{Text: translateUserPrompt(req)}},
		},
		Usage: &openrouter.IncludeUsage{Include: true},
	})
	x.metrics.TranslationObserved(x.Name(), time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}

	cost := decimal.NewFromFloat(response.Usage.Cost)
	log.I("Translation completed", tracing.AiKind, x.Name(), tracing.AiModel, x.config.OpenRouterModel, tracing.AiTokens, response.Usage.TotalTokens, tracing.AiCost, cost.String())

	return parseTranslateResponse(response.Choices[0].Message.Content.Text)
}

func (x *OpenRouterProvider) DetectLanguage(ctx context.Context, text string) (string, float64, error) {
	response, err := x.ai.CreateChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Model:  x.config.OpenRouterModel,
		Models: x.config.OpenRouterFallbacks,
		Messages: []openrouter.ChatCompletionMessage{
			{Role: openrouter.ChatMessageRoleSystem, Content: openrouter.Content{Text: detectSystemPrompt}},
			{Role: openrouter.ChatMessageRoleUser, Content: openrouter.Content{Text: text}},
		},
	})
	if err != nil {
		return "", 0, err
	}
	if len(response.Choices) == 0 {
		return "", 0, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	return parseDetectResponse(response.Choices[0].Message.Content.Text)
}
