package engine

import (
	"github.com/code-payments/gift-protocol/pkg/config"
	"github.com/code-payments/gift-protocol/pkg/config/env"
	"github.com/code-payments/gift-protocol/pkg/config/memory"
	"github.com/code-payments/gift-protocol/pkg/config/wrapper"
)

const (
	envConfigPrefix = "GIFTCARD_ENGINE_"

	NetworkFeeConfigEnvName = envConfigPrefix + "NETWORK_FEE"
	defaultNetworkFee       = 5000

	FeeReserveConfigEnvName = envConfigPrefix + "FEE_RESERVE"
	defaultFeeReserve       = 5000

	MaxMessageLengthConfigEnvName = envConfigPrefix + "MAX_MESSAGE_LENGTH"
	defaultMaxMessageLength       = 256

	RequireExistingReferrerConfigEnvName = envConfigPrefix + "REQUIRE_EXISTING_REFERRER"
	defaultRequireExistingReferrer       = false

	FeeSinkConfigEnvName = envConfigPrefix + "FEE_SINK"
	defaultFeeSink       = "network_fees"

	MaxPageSizeConfigEnvName = envConfigPrefix + "MAX_PAGE_SIZE"
	defaultMaxPageSize       = 100
)

type conf struct {
	networkFee              config.Uint64
	feeReserve              config.Uint64
	maxMessageLength        config.Uint64
	requireExistingReferrer config.Bool
	feeSink                 config.String
	maxPageSize             config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			networkFee:              env.NewUint64Config(NetworkFeeConfigEnvName, defaultNetworkFee),
			feeReserve:              env.NewUint64Config(FeeReserveConfigEnvName, defaultFeeReserve),
			maxMessageLength:        env.NewUint64Config(MaxMessageLengthConfigEnvName, defaultMaxMessageLength),
			requireExistingReferrer: env.NewBoolConfig(RequireExistingReferrerConfigEnvName, defaultRequireExistingReferrer),
			feeSink:                 env.NewStringConfig(FeeSinkConfigEnvName, defaultFeeSink),
			maxPageSize:             env.NewUint64Config(MaxPageSizeConfigEnvName, defaultMaxPageSize),
		}
	}
}

type testOverrides struct {
	networkFee              uint64
	feeReserve              uint64
	requireExistingReferrer bool
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			networkFee:              wrapper.NewUint64Config(memory.NewConfig(overrides.networkFee), defaultNetworkFee),
			feeReserve:              wrapper.NewUint64Config(memory.NewConfig(overrides.feeReserve), defaultFeeReserve),
			maxMessageLength:        wrapper.NewUint64Config(memory.NewConfig(uint64(defaultMaxMessageLength)), defaultMaxMessageLength),
			requireExistingReferrer: wrapper.NewBoolConfig(memory.NewConfig(overrides.requireExistingReferrer), defaultRequireExistingReferrer),
			feeSink:                 wrapper.NewStringConfig(memory.NewConfig(defaultFeeSink), defaultFeeSink),
			maxPageSize:             wrapper.NewUint64Config(memory.NewConfig(uint64(defaultMaxPageSize)), defaultMaxPageSize),
		}
	}
}
