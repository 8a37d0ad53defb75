package app

import (
	"context"
	"crypto/ed25519"
	"database/sql"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/external"
	"github.com/mr-tron/base58/base58"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/code-payments/gift-protocol/pkg/app"
	pg "github.com/code-payments/gift-protocol/pkg/database/postgres"
	"github.com/code-payments/gift-protocol/pkg/giftcard/async/reclaim"
	"github.com/code-payments/gift-protocol/pkg/giftcard/engine"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
	memory_ledger "github.com/code-payments/gift-protocol/pkg/giftcard/ledger/memory"
	postgres_ledger "github.com/code-payments/gift-protocol/pkg/giftcard/ledger/postgres"
	"github.com/code-payments/gift-protocol/pkg/giftcard/notify"
	"github.com/code-payments/gift-protocol/pkg/giftcard/server"
	"github.com/code-payments/gift-protocol/pkg/lock"
	etcd_lock "github.com/code-payments/gift-protocol/pkg/lock/etcd"
	memory_lock "github.com/code-payments/gift-protocol/pkg/lock/memory"
	"github.com/code-payments/gift-protocol/pkg/metrics"
)

type giftCardApp struct {
	log *logrus.Entry

	handler  http.Handler
	notifier notify.Notifier

	db         *sql.DB
	etcdClient *clientv3.Client
	etcdLocks  *etcd_lock.Manager

	ctx        context.Context
	cancel     context.CancelFunc
	workers    sync.WaitGroup
	shutdownCh chan struct{}
	stopOnce   sync.Once
}

// New returns the gift card service run by app.Run
func New() app.App {
	ctx, cancel := context.WithCancel(context.Background())
	return &giftCardApp{
		log:        logrus.StandardLogger().WithField("type", "giftcard/app"),
		ctx:        ctx,
		cancel:     cancel,
		shutdownCh: make(chan struct{}),
	}
}

// Init implements app.App.Init
func (a *giftCardApp) Init(rawConfig app.Config, metricsProvider *newrelic.Application) error {
	config, err := decodeConfig(rawConfig)
	if err != nil {
		return err
	}

	if metricsProvider != nil {
		a.ctx = metrics.NewContext(a.ctx, metricsProvider)
	}

	store, err := a.openStore(config)
	if err != nil {
		return err
	}

	giftCardEngine, err := engine.New(store, nil, engine.WithEnvConfigs())
	if err != nil {
		return errors.Wrap(err, "error initializing engine")
	}

	a.notifier = notify.NoopNotifier{}
	if len(config.NotifySigningKey) > 0 {
		decoded, err := base58.Decode(config.NotifySigningKey)
		if err != nil || len(decoded) != ed25519.PrivateKeySize {
			return errors.New("notify_signing_key must be a base58 encoded ed25519 private key")
		}
		a.notifier = notify.NewRelayNotifier(ed25519.PrivateKey(decoded), notify.WithEnvConfigs())
	}

	locks, gate, err := a.openCoordination(config)
	if err != nil {
		return err
	}

	reclaimer := reclaim.New(giftCardEngine, locks, gate, nil, reclaim.WithEnvConfigs())
	a.workers.Add(1)
	go func() {
		defer a.workers.Done()

		var err error
		if len(config.ReclaimCronSchedule) > 0 {
			err = reclaimer.StartCron(a.ctx, config.ReclaimCronSchedule)
		} else {
			err = reclaimer.Start(a.ctx, config.ReclaimInterval)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.WithError(err).Warn("reclaim worker stopped")
		}
	}()

	a.handler = server.New(giftCardEngine, a.notifier, nil, server.WithEnvConfigs())

	a.log.WithFields(logrus.Fields{
		"database": config.Database,
		"etcd":     len(config.EtcdEndpoints) > 0,
	}).Info("gift card service initialized")
	return nil
}

func (a *giftCardApp) openStore(config *Config) (ledger.Store, error) {
	if config.Database == databaseMemory {
		return memory_ledger.New(), nil
	}

	var awsConfig aws.Config
	if config.PostgresUseAwsIam {
		var err error
		awsConfig, err = external.LoadDefaultAWSConfig()
		if err != nil {
			return nil, errors.Wrap(err, "error loading aws config")
		}
	}

	db, err := pg.Open(&pg.Config{
		User:               config.PostgresUser,
		Password:           config.PostgresPassword,
		Host:               config.PostgresHost,
		Port:               config.PostgresPort,
		DbName:             config.PostgresDbName,
		MaxOpenConnections: config.PostgresMaxOpenConnections,
		MaxIdleConnections: config.PostgresMaxIdleConnections,
		UseAwsIam:          config.PostgresUseAwsIam,
	}, awsConfig)
	if err != nil {
		return nil, errors.Wrap(err, "error opening postgres")
	}
	a.db = db

	return postgres_ledger.New(db), nil
}

// openCoordination returns the lock manager and pause gate for the reclaim
// worker. Without etcd, replicas are not coordinated and the worker is
// never paused.
func (a *giftCardApp) openCoordination(config *Config) (lock.Manager, reclaim.Gate, error) {
	if len(config.EtcdEndpoints) == 0 {
		a.log.Warn("no etcd endpoints configured, reclaim sweeps are not coordinated across replicas")
		return memory_lock.NewManager(), nil, nil
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   config.EtcdEndpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "error connecting to etcd")
	}
	a.etcdClient = client

	identity, _ := os.Hostname()
	manager, err := etcd_lock.NewManager(client, config.EtcdLockRootKey, config.EtcdLockTTL, identity)
	if err != nil {
		return nil, nil, err
	}
	a.etcdLocks = manager

	return manager, reclaim.NewEtcdPauseGate(client, reclaim.WithEnvConfigs()), nil
}

// HTTPHandler implements app.App.HTTPHandler
func (a *giftCardApp) HTTPHandler() http.Handler {
	return a.handler
}

// ShutdownChan implements app.App.ShutdownChan
func (a *giftCardApp) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

// Stop implements app.App.Stop
func (a *giftCardApp) Stop() {
	a.stopOnce.Do(func() {
		a.cancel()
		a.workers.Wait()

		if waiter, ok := a.notifier.(interface{ Wait() }); ok {
			waiter.Wait()
		}

		if a.etcdLocks != nil {
			a.etcdLocks.Close()
		}
		if a.etcdClient != nil {
			if err := a.etcdClient.Close(); err != nil {
				a.log.WithError(err).Warn("failure closing etcd client")
			}
		}
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				a.log.WithError(err).Warn("failure closing database")
			}
		}

		close(a.shutdownCh)
	})
}
