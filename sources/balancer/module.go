package balancer

import (
	"babelgram/sources/translation"

	"go.uber.org/fx"
)

var Module = fx.Module("balancer",
	fx.Provide(
		NewBalancerConfig,
		NewProviderBalancer,
		func(b *ProviderBalancer) translation.ProviderSource { return b },
	),
)
