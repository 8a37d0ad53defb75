package app

import (
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/code-payments/gift-protocol/pkg/app"
)

const (
	databaseMemory   = "memory"
	databasePostgres = "postgres"
)

// Config is the app section of the process config
type Config struct {
	Database string `mapstructure:"database"`

	PostgresUser               string `mapstructure:"postgres_user"`
	PostgresPassword           string `mapstructure:"postgres_password"`
	PostgresHost               string `mapstructure:"postgres_host"`
	PostgresPort               int    `mapstructure:"postgres_port"`
	PostgresDbName             string `mapstructure:"postgres_db_name"`
	PostgresMaxOpenConnections int    `mapstructure:"postgres_max_open_connections"`
	PostgresMaxIdleConnections int    `mapstructure:"postgres_max_idle_connections"`
	PostgresUseAwsIam          bool   `mapstructure:"postgres_use_aws_iam"`

	EtcdEndpoints   []string      `mapstructure:"etcd_endpoints"`
	EtcdLockRootKey string        `mapstructure:"etcd_lock_root_key"`
	EtcdLockTTL     time.Duration `mapstructure:"etcd_lock_ttl"`

	ReclaimInterval     time.Duration `mapstructure:"reclaim_interval"`
	ReclaimCronSchedule string        `mapstructure:"reclaim_cron_schedule"`

	// NotifySigningKey is the base58 ed25519 key signing relay payloads.
	// Email notifications are disabled without one.
	NotifySigningKey string `mapstructure:"notify_signing_key"`
}

var defaultConfig = Config{
	Database: databaseMemory,

	PostgresPort: 5432,

	EtcdLockRootKey: "/giftcard/locks",
	EtcdLockTTL:     10 * time.Second,

	ReclaimInterval: time.Minute,
}

func decodeConfig(raw app.Config) (*Config, error) {
	config := defaultConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           &config,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]interface{}(raw)); err != nil {
		return nil, errors.Wrap(err, "error decoding app config")
	}

	switch config.Database {
	case databaseMemory:
	case databasePostgres:
		if len(config.PostgresHost) == 0 || len(config.PostgresDbName) == 0 {
			return nil, errors.New("postgres_host and postgres_db_name are required")
		}
	default:
		return nil, errors.Errorf("unsupported database %q", config.Database)
	}

	if len(config.ReclaimCronSchedule) > 0 {
		if _, err := cron.ParseStandard(config.ReclaimCronSchedule); err != nil {
			return nil, errors.Wrap(err, "invalid reclaim_cron_schedule")
		}
	} else if config.ReclaimInterval <= 0 {
		return nil, errors.New("one of reclaim_interval or reclaim_cron_schedule is required")
	}

	return &config, nil
}
