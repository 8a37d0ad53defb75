package reclaim

import (
	"github.com/code-payments/gift-protocol/pkg/config"
	"github.com/code-payments/gift-protocol/pkg/config/env"
	"github.com/code-payments/gift-protocol/pkg/config/memory"
	"github.com/code-payments/gift-protocol/pkg/config/wrapper"
)

const (
	envConfigPrefix = "GIFTCARD_RECLAIM_"

	BatchSizeConfigEnvName = envConfigPrefix + "BATCH_SIZE"
	defaultBatchSize       = 100

	LockNameConfigEnvName = envConfigPrefix + "LOCK_NAME"
	defaultLockName       = "giftcard-reclaim"

	PauseKeyConfigEnvName = envConfigPrefix + "PAUSE_KEY"
	defaultPauseKey       = "/giftcard/reclaim/paused"
)

type conf struct {
	batchSize config.Uint64
	lockName  config.String
	pauseKey  config.String
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			batchSize: env.NewUint64Config(BatchSizeConfigEnvName, defaultBatchSize),
			lockName:  env.NewStringConfig(LockNameConfigEnvName, defaultLockName),
			pauseKey:  env.NewStringConfig(PauseKeyConfigEnvName, defaultPauseKey),
		}
	}
}

type testOverrides struct {
	batchSize uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			batchSize: wrapper.NewUint64Config(memory.NewConfig(overrides.batchSize), defaultBatchSize),
			lockName:  wrapper.NewStringConfig(memory.NewConfig(defaultLockName), defaultLockName),
			pauseKey:  wrapper.NewStringConfig(memory.NewConfig(defaultPauseKey), defaultPauseKey),
		}
	}
}
