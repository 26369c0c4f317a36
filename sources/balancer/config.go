package balancer

import "babelgram/sources/platform"

type BalancerConfig struct {
	Weights map[string]int
}

func NewBalancerConfig() *BalancerConfig {
	return &BalancerConfig{Weights: map[string]int{
		"openai":     platform.GetAsInt("TRANSLATION_OPENAI_WEIGHT", 70),
		"openrouter": platform.GetAsInt("TRANSLATION_OPENROUTER_WEIGHT", 30),
	}}
}
