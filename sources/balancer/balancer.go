package balancer

import (
	"babelgram/sources/translation"

	"github.com/mr-karan/balance"
)

// ProviderBalancer spreads translation traffic over the configured
// providers by weight. Weight 0 removes a provider from rotation.
type ProviderBalancer struct {
	balancer  *balance.Balance
	providers map[string]translation.Provider
}

func NewProviderBalancer(config *BalancerConfig, openai *translation.OpenAIProvider, openrouter *translation.OpenRouterProvider) *ProviderBalancer {
	providers := map[string]translation.Provider{
		openai.Name():     openai,
		openrouter.Name(): openrouter,
	}

	b := balance.NewBalance()
	for name, weight := range config.Weights {
		if _, known := providers[name]; known && weight > 0 {
			b.Add(name, weight)
		}
	}

	return &ProviderBalancer{balancer: b, providers: providers}
}

func (x *ProviderBalancer) Pick() translation.Provider {
	return x.providers[x.balancer.Get()]
}
