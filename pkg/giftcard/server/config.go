package server

import (
	"time"

	"github.com/code-payments/gift-protocol/pkg/config"
	"github.com/code-payments/gift-protocol/pkg/config/env"
	"github.com/code-payments/gift-protocol/pkg/config/memory"
	"github.com/code-payments/gift-protocol/pkg/config/wrapper"
)

const (
	envConfigPrefix = "GIFTCARD_SERVER_"

	EnableDepositsConfigEnvName = envConfigPrefix + "ENABLE_DEPOSITS"
	defaultEnableDeposits       = false

	MaxClockSkewConfigEnvName = envConfigPrefix + "MAX_CLOCK_SKEW"
	defaultMaxClockSkew       = 5 * time.Minute

	MaxBodySizeConfigEnvName = envConfigPrefix + "MAX_BODY_SIZE"
	defaultMaxBodySize       = 64 * 1024

	MaxTrackedSignaturesConfigEnvName = envConfigPrefix + "MAX_TRACKED_SIGNATURES"
	defaultMaxTrackedSignatures       = 100_000
)

type conf struct {
	enableDeposits config.Bool
	maxClockSkew   config.Duration
	maxBodySize    config.Uint64

	// maxTrackedSignatures bounds the replay cache. It should cover the
	// mutations expected within one clock skew window.
	maxTrackedSignatures config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			enableDeposits: env.NewBoolConfig(EnableDepositsConfigEnvName, defaultEnableDeposits),
			maxClockSkew:   env.NewDurationConfig(MaxClockSkewConfigEnvName, defaultMaxClockSkew),
			maxBodySize:    env.NewUint64Config(MaxBodySizeConfigEnvName, defaultMaxBodySize),

			maxTrackedSignatures: env.NewUint64Config(MaxTrackedSignaturesConfigEnvName, defaultMaxTrackedSignatures),
		}
	}
}

type testOverrides struct {
	enableDeposits bool
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			enableDeposits: wrapper.NewBoolConfig(memory.NewConfig(overrides.enableDeposits), defaultEnableDeposits),
			maxClockSkew:   wrapper.NewDurationConfig(memory.NewConfig(defaultMaxClockSkew), defaultMaxClockSkew),
			maxBodySize:    wrapper.NewUint64Config(memory.NewConfig(uint64(defaultMaxBodySize)), defaultMaxBodySize),

			maxTrackedSignatures: wrapper.NewUint64Config(memory.NewConfig(uint64(defaultMaxTrackedSignatures)), defaultMaxTrackedSignatures),
		}
	}
}
