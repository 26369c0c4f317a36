package translation

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"babelgram/sources/metrics"
	"babelgram/sources/tracing"

	"github.com/sashabaranov/go-openai"
)

func NewOpenAIClient(client *http.Client, config *TranslationConfig) *openai.Client {
	openaiConfig := openai.DefaultConfig(config.OpenAIToken)
	openaiConfig.HTTPClient = client
	return openai.NewClientWithConfig(openaiConfig)
}

type OpenAIProvider struct {
	ai      *openai.Client
	config  *TranslationConfig
	metrics *metrics.MetricsService
}

func NewOpenAIProvider(ai *openai.Client, config *TranslationConfig, metrics *metrics.MetricsService) *OpenAIProvider {
	return &OpenAIProvider{ai: ai, config: config, metrics: metrics}
}

func (x *OpenAIProvider) Name() string {
	return "openai"
}

func (x *OpenAIProvider) Translate(ctx context.Context, log *tracing.Logger, req Request) (*Result, error) {
	start := time.Now()

	response, err := x.ai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: x.config.OpenAIModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: translateSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: translateUserPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	x.metrics.TranslationObserved(x.Name(), time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}

	log.I("Translation completed", tracing.AiKind, x.Name(), tracing.AiModel, x.config.OpenAIModel, tracing.AiTokens, response.Usage.TotalTokens)

	return parseTranslateResponse(response.Choices[0].Message.Content)
}

func (x *OpenAIProvider) DetectLanguage(ctx context.Context, text string) (string, float64, error) {
	response, err := x.ai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: x.config.OpenAIModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: detectSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return "", 0, err
	}
	if len(response.Choices) == 0 {
		return "", 0, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	return parseDetectResponse(response.Choices[0].Message.Content)
}
