package tracing

import (
	"context"
	"log/slog"
	"os"
	"time"
)

const (
	ExecutionTime   = "exe_time"
	InnerError      = "inner_error"
	OutsiderKind    = "outsider_kind"
	ProxyUrl        = "proxy_url"
	ProxyRes        = "proxy_res"
	ConversationId  = "conversation_id"
	MessageId       = "message_id"
	FeedKey         = "feed_key"
	ListenerId      = "listener_id"
	ListenerCount   = "listener_count"
	RefCount        = "ref_count"
	SourceLanguage  = "source_language"
	TargetLanguage  = "target_language"
	Verdict         = "verdict"
	Confidence      = "confidence"
	CacheKey        = "cache_key"
	CacheTier       = "cache_tier"
	BatchIndex      = "batch_index"
	BatchSize       = "batch_size"
	AiKind          = "ai_kind"
	AiModel         = "ai_model"
	AiTokens        = "ai_tokens"
	AiCost          = "ai_cost"
	VaultBackend    = "vault_backend"
	VaultKey        = "vault_key"
	TranslateAll    = "translate_all"
)

type Logger struct {
	log *slog.Logger
	ctx context.Context
}

func NewConsoleLogger() *Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	logger.InfoContext(ctx, "Initializing logger")
	return &Logger{log: logger, ctx: ctx}
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{log: l.log.With(args...), ctx: l.ctx}
}

func (l *Logger) D(msg string, args ...any) {
	l.log.DebugContext(l.ctx, msg, args...)
}

func (l *Logger) I(msg string, args ...any) {
	l.log.InfoContext(l.ctx, msg, args...)
}

func (l *Logger) W(msg string, args ...any) {
	l.log.WarnContext(l.ctx, msg, args...)
}

func (l *Logger) E(msg string, args ...any) {
	l.log.ErrorContext(l.ctx, msg, args...)
}

func (l *Logger) F(msg string, args ...any) {
	l.log.ErrorContext(l.ctx, msg, args...)
	panic(msg)
}
