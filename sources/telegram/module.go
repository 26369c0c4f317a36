package telegram

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("telegram",
	fx.Provide(
		NewTelegramConfig,
		NewBotAPI,
		NewFeedSource,
		NewCompanion,
	),

	fx.Invoke(func(feeds *FeedSource, lc fx.Lifecycle) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go feeds.Poll()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				feeds.Stop()
				return nil
			},
		})
	}),
)
