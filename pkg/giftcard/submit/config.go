package submit

import (
	"time"

	"github.com/code-payments/gift-protocol/pkg/config"
	"github.com/code-payments/gift-protocol/pkg/config/env"
	"github.com/code-payments/gift-protocol/pkg/config/memory"
	"github.com/code-payments/gift-protocol/pkg/config/wrapper"
	"github.com/code-payments/gift-protocol/pkg/solana"
)

const (
	envConfigPrefix = "GIFTCARD_SUBMIT_"

	ConfirmTimeoutConfigEnvName = envConfigPrefix + "CONFIRM_TIMEOUT"
	defaultConfirmTimeout       = 30 * time.Second

	ConfirmPollIntervalConfigEnvName = envConfigPrefix + "CONFIRM_POLL_INTERVAL"
	defaultConfirmPollInterval       = solana.PollRate

	StatusCheckLimitConfigEnvName = envConfigPrefix + "STATUS_CHECK_LIMIT"
	defaultStatusCheckLimit       = 10

	StatusCheckIntervalConfigEnvName = envConfigPrefix + "STATUS_CHECK_INTERVAL"
	defaultStatusCheckInterval       = 2 * time.Second
)

type conf struct {
	confirmTimeout      config.Duration
	confirmPollInterval config.Duration
	statusCheckLimit    config.Uint64
	statusCheckInterval config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			confirmTimeout:      env.NewDurationConfig(ConfirmTimeoutConfigEnvName, defaultConfirmTimeout),
			confirmPollInterval: env.NewDurationConfig(ConfirmPollIntervalConfigEnvName, defaultConfirmPollInterval),
			statusCheckLimit:    env.NewUint64Config(StatusCheckLimitConfigEnvName, defaultStatusCheckLimit),
			statusCheckInterval: env.NewDurationConfig(StatusCheckIntervalConfigEnvName, defaultStatusCheckInterval),
		}
	}
}

type testOverrides struct {
	confirmTimeout      time.Duration
	confirmPollInterval time.Duration
	statusCheckLimit    uint64
	statusCheckInterval time.Duration
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			confirmTimeout:      wrapper.NewDurationConfig(memory.NewConfig(overrides.confirmTimeout), defaultConfirmTimeout),
			confirmPollInterval: wrapper.NewDurationConfig(memory.NewConfig(overrides.confirmPollInterval), defaultConfirmPollInterval),
			statusCheckLimit:    wrapper.NewUint64Config(memory.NewConfig(overrides.statusCheckLimit), defaultStatusCheckLimit),
			statusCheckInterval: wrapper.NewDurationConfig(memory.NewConfig(overrides.statusCheckInterval), defaultStatusCheckInterval),
		}
	}
}
