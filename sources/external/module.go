package external

import (
	"context"

	"babelgram/sources/tracing"

	"go.uber.org/fx"
)

var Module = fx.Module("external",
	fx.Provide(
		NewOutsidersConfig,
		NewOutsiders,
	),

	fx.Invoke(func(outsiders *Outsiders, lc fx.Lifecycle) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				outsiders.log.I("Starting outsiders services")
				go outsiders.health()
				go outsiders.metrics()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				outsiders.log.I("Stopping outsiders services")
				if err := outsiders.hs.Shutdown(ctx); err != nil {
					outsiders.log.E("Failed to shutdown health server", tracing.OutsiderKind, "health", tracing.InnerError, err)
				}
				if err := outsiders.ms.Shutdown(ctx); err != nil {
					outsiders.log.E("Failed to shutdown metrics server", tracing.OutsiderKind, "metrics", tracing.InnerError, err)
				}
				return nil
			},
		})
	}),
)
