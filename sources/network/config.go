package network

import (
	"time"

	"babelgram/sources/platform"
)

type ProxyConfig struct {
	ProxyAddress string
	ProxyUser    string
	ProxyPass    string
	Timeout      time.Duration
}

func NewProxyConfig() *ProxyConfig {
	return &ProxyConfig{
		ProxyAddress: platform.Get("PROXY_ADDRESS", ""),
		ProxyUser:    platform.Get("PROXY_USER", ""),
		ProxyPass:    platform.Get("PROXY_PASS", ""),
		Timeout:      platform.GetAsDuration("HTTP_CLIENT_TIMEOUT", "120s"),
	}
}
