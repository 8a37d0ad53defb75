package chain

import (
	"github.com/code-payments/gift-protocol/pkg/config"
	"github.com/code-payments/gift-protocol/pkg/config/env"
	"github.com/code-payments/gift-protocol/pkg/config/memory"
	"github.com/code-payments/gift-protocol/pkg/config/wrapper"
)

const (
	envConfigPrefix = "GIFTCARD_CHAIN_"

	NetworkFeeConfigEnvName = envConfigPrefix + "NETWORK_FEE"
	defaultNetworkFee       = 5000

	FeeReserveConfigEnvName = envConfigPrefix + "FEE_RESERVE"
	defaultFeeReserve       = 5000

	MaxMessageLengthConfigEnvName = envConfigPrefix + "MAX_MESSAGE_LENGTH"
	defaultMaxMessageLength       = 256

	MaxRedeemAttemptsConfigEnvName = envConfigPrefix + "MAX_REDEEM_ATTEMPTS"
	defaultMaxRedeemAttempts       = 2
)

type conf struct {
	networkFee        config.Uint64
	feeReserve        config.Uint64
	maxMessageLength  config.Uint64
	maxRedeemAttempts config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			networkFee:        env.NewUint64Config(NetworkFeeConfigEnvName, defaultNetworkFee),
			feeReserve:        env.NewUint64Config(FeeReserveConfigEnvName, defaultFeeReserve),
			maxMessageLength:  env.NewUint64Config(MaxMessageLengthConfigEnvName, defaultMaxMessageLength),
			maxRedeemAttempts: env.NewUint64Config(MaxRedeemAttemptsConfigEnvName, defaultMaxRedeemAttempts),
		}
	}
}

type testOverrides struct {
	maxRedeemAttempts uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			networkFee:        wrapper.NewUint64Config(memory.NewConfig(uint64(defaultNetworkFee)), defaultNetworkFee),
			feeReserve:        wrapper.NewUint64Config(memory.NewConfig(uint64(defaultFeeReserve)), defaultFeeReserve),
			maxMessageLength:  wrapper.NewUint64Config(memory.NewConfig(uint64(defaultMaxMessageLength)), defaultMaxMessageLength),
			maxRedeemAttempts: wrapper.NewUint64Config(memory.NewConfig(overrides.maxRedeemAttempts), defaultMaxRedeemAttempts),
		}
	}
}
