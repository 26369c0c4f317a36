package main

import (
	"babelgram/sources/balancer"
	"babelgram/sources/classifier"
	"babelgram/sources/external"
	"babelgram/sources/features"
	"babelgram/sources/metrics"
	"babelgram/sources/multiplexer"
	"babelgram/sources/network"
	"babelgram/sources/persistence"
	"babelgram/sources/telegram"
	"babelgram/sources/throttler"
	"babelgram/sources/tracing"
	"babelgram/sources/translation"
	"babelgram/sources/uistate"
	"context"

	"go.uber.org/fx"
)

var (
	version = "0.0.0"
	buildTime = "1970-01-01"
)

func main() {
	fx.New(
		tracing.Module,
		metrics.Module,
		features.Module,
		external.Module,
		network.Module,
		persistence.Module,
		throttler.Module,
		classifier.Module,
		balancer.Module,
		translation.Module,
		multiplexer.Module,
		uistate.Module,
		telegram.Module,

		fx.Invoke(func(lc fx.Lifecycle, log *tracing.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					log.I("Babelgram started successfully", "version", version, "build_time", buildTime)
					return nil
				},
				OnStop: func(ctx context.Context) error {
					log.I("Babelgram stopped", "version", version, "build_time", buildTime)
					return nil
				},
			})
		}),
	).Run()
}
