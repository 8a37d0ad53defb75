package notify

import (
	"time"

	"github.com/code-payments/gift-protocol/pkg/config"
	"github.com/code-payments/gift-protocol/pkg/config/env"
	"github.com/code-payments/gift-protocol/pkg/config/memory"
	"github.com/code-payments/gift-protocol/pkg/config/wrapper"
)

const (
	envConfigPrefix = "GIFTCARD_NOTIFY_"

	RelayUrlConfigEnvName = envConfigPrefix + "RELAY_URL"
	defaultRelayUrl       = ""

	SendTimeoutConfigEnvName = envConfigPrefix + "SEND_TIMEOUT"
	defaultSendTimeout       = 5 * time.Second

	RateLimitConfigEnvName = envConfigPrefix + "RATE_LIMIT"
	defaultRateLimit       = 1.0

	SenderNameConfigEnvName = envConfigPrefix + "DEFAULT_SENDER_NAME"
	defaultSenderName       = "Anonymous"
)

type conf struct {
	relayUrl    config.String
	sendTimeout config.Duration
	rateLimit   config.Float64
	senderName  config.String
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			relayUrl:    env.NewStringConfig(RelayUrlConfigEnvName, defaultRelayUrl),
			sendTimeout: env.NewDurationConfig(SendTimeoutConfigEnvName, defaultSendTimeout),
			rateLimit:   env.NewFloat64Config(RateLimitConfigEnvName, defaultRateLimit),
			senderName:  env.NewStringConfig(SenderNameConfigEnvName, defaultSenderName),
		}
	}
}

type testOverrides struct {
	relayUrl    string
	sendTimeout time.Duration
	rateLimit   float64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			relayUrl:    wrapper.NewStringConfig(memory.NewConfig(overrides.relayUrl), defaultRelayUrl),
			sendTimeout: wrapper.NewDurationConfig(memory.NewConfig(overrides.sendTimeout), defaultSendTimeout),
			rateLimit:   wrapper.NewFloat64Config(memory.NewConfig(overrides.rateLimit), defaultRateLimit),
			senderName:  wrapper.NewStringConfig(memory.NewConfig(defaultSenderName), defaultSenderName),
		}
	}
}
