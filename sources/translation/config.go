package translation

import (
	"time"

	"babelgram/sources/platform"

	"github.com/shopspring/decimal"
)

type TranslationConfig struct {
	OpenAIToken     string
	OpenRouterToken string

	OpenAIModel           string
	OpenRouterModel       string
	OpenRouterFallbacks   []string
	DefaultFormality      string
	DefaultTargetLanguage string

	EntryTTL        time.Duration
	ProactiveWindow int
	BulkWindow      int
	BatchSize       int
	BatchInterval   time.Duration

	MaxSourceTokens int

	DailyLimit   int
	MonthlyLimit int
	CostPerCall  decimal.Decimal
}

func NewTranslationConfig() *TranslationConfig {
	return &TranslationConfig{
		OpenAIToken:     platform.Get("OPENAI_API_KEY", ""),
		OpenRouterToken: platform.Get("OPENROUTER_API_KEY", ""),

		OpenAIModel:           platform.Get("TRANSLATION_OPENAI_MODEL", "gpt-4o-mini"),
		OpenRouterModel:       platform.Get("TRANSLATION_OPENROUTER_MODEL", "openai/gpt-4o-mini"),
		OpenRouterFallbacks:   platform.GetAsSlice("TRANSLATION_OPENROUTER_FALLBACKS", []string{"google/gemini-2.5-flash", "deepseek/deepseek-chat"}),
		DefaultFormality:      platform.Get("TRANSLATION_FORMALITY", "neutral"),
		DefaultTargetLanguage: platform.Get("TRANSLATION_TARGET_LANGUAGE", "en"),

		EntryTTL:        platform.GetAsDuration("TRANSLATION_ENTRY_TTL", "30m"),
		ProactiveWindow: platform.GetAsInt("TRANSLATION_PROACTIVE_WINDOW", 15),
		BulkWindow:      platform.GetAsInt("TRANSLATION_BULK_WINDOW", 25),
		BatchSize:       platform.GetAsInt("TRANSLATION_BATCH_SIZE", 3),
		BatchInterval:   platform.GetAsDuration("TRANSLATION_BATCH_INTERVAL", "500ms"),

		MaxSourceTokens: platform.GetAsInt("TRANSLATION_MAX_SOURCE_TOKENS", 2000),

		DailyLimit:   platform.GetAsInt("TRANSLATION_DAILY_LIMIT", 500),
		MonthlyLimit: platform.GetAsInt("TRANSLATION_MONTHLY_LIMIT", 5000),
		CostPerCall:  platform.GetDecimal("TRANSLATION_COST_PER_CALL", "0.0005"),
	}
}
