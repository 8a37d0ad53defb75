// Package etcd implements lock.Manager on etcd elections. All locks from one
// Manager share a single session lease, so closing the Manager or losing the
// lease releases every lock it handed out.
package etcd

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.etcd.io/etcd/api/v3/mvccpb"
	v3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/code-payments/gift-protocol/pkg/lock"
)

const (
	minLockTTL = time.Second
	maxLockTTL = time.Minute

	sessionRetryDelay = time.Second
)

var (
	ErrManagerClosed      = errors.New("lock manager is closed")
	ErrConcurrentAcquire  = errors.New("cannot call Acquire concurrently")
	ErrInvalidLockTTL     = errors.New("lock ttl must be within [1s, 60s]")
	ErrInvalidLockRootKey = errors.New("lock root key is required")
)

type Manager struct {
	log      *logrus.Entry
	client   *v3.Client
	rootKey  string
	ttl      int
	identity string

	closeOnce sync.Once
	closeCh   chan struct{}

	sessionMu sync.Mutex
	session   *concurrency.Session
}

// NewManager creates a Manager whose locks live under rootKey. identity is
// stored as the lock value, which makes the current holder visible to
// operators.
func NewManager(client *v3.Client, rootKey string, ttl time.Duration, identity string) (*Manager, error) {
	if len(rootKey) == 0 {
		return nil, ErrInvalidLockRootKey
	}
	if ttl < minLockTTL || ttl > maxLockTTL {
		return nil, ErrInvalidLockTTL
	}

	ttlSeconds := int(ttl.Round(time.Second).Seconds())

	session, err := newSession(client, ttlSeconds)
	if err != nil {
		return nil, errors.Wrap(err, "error creating etcd session")
	}

	m := &Manager{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"type": "lock/etcd",
			"root": rootKey,
		}),
		client:   client,
		rootKey:  rootKey,
		ttl:      ttlSeconds,
		identity: identity,
		closeCh:  make(chan struct{}),
		session:  session,
	}

	go m.keepSession()

	return m, nil
}

func newSession(client *v3.Client, ttlSeconds int) (*concurrency.Session, error) {
	return concurrency.NewSession(
		client,
		concurrency.WithTTL(ttlSeconds),
		concurrency.WithContext(v3.WithRequireLeader(context.Background())),
	)
}

// Create implements lock.Manager.Create
func (m *Manager) Create(_ context.Context, name string) (lock.DistributedLock, error) {
	if m.currentSession() == nil {
		return nil, ErrManagerClosed
	}

	key := path.Join(m.rootKey, name)
	return &Lock{
		log: m.log.WithField("key", key),
		m:   m,
		key: key,
	}, nil
}

// Close releases every lock held through this Manager.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.sessionMu.Lock()
		defer m.sessionMu.Unlock()

		close(m.closeCh)

		if err := m.session.Close(); err != nil {
			m.log.WithError(err).Warn("failure closing etcd session")
		}
		m.session = nil
	})
}

func (m *Manager) currentSession() *concurrency.Session {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()
	return m.session
}

// keepSession replaces the session whenever its lease ends, until Close.
func (m *Manager) keepSession() {
	for {
		session := m.currentSession()
		if session == nil {
			return
		}

		select {
		case <-m.closeCh:
			return
		case <-session.Done():
		}

		m.log.Info("lock session expired, recreating")

		for {
			select {
			case <-m.closeCh:
				return
			default:
			}

			replacement, err := newSession(m.client, m.ttl)
			if err == nil {
				m.sessionMu.Lock()
				if m.session == nil {
					m.sessionMu.Unlock()
					_ = replacement.Close()
					return
				}
				m.session = replacement
				m.sessionMu.Unlock()
				break
			}

			m.log.WithError(err).Warn("failure recreating lock session")
			time.Sleep(sessionRetryDelay)
		}
	}
}

type Lock struct {
	log *logrus.Entry
	m   *Manager
	key string

	electionMu sync.Mutex
	election   *concurrency.Election
}

// Acquire implements lock.DistributedLock.Acquire
func (l *Lock) Acquire(ctx context.Context) (<-chan struct{}, error) {
	l.electionMu.Lock()
	defer l.electionMu.Unlock()

	if l.election != nil {
		return nil, ErrConcurrentAcquire
	}

	session := l.m.currentSession()
	if session == nil {
		return nil, ErrManagerClosed
	}

	campaignCtx, cancelCampaign := context.WithCancel(ctx)
	election := concurrency.NewElection(session, l.key)
	if err := election.Campaign(campaignCtx, l.m.identity); err != nil {
		cancelCampaign()
		return nil, errors.Wrap(err, "error campaigning for lock")
	}

	l.log.Debug("lock acquired")
	l.election = election

	watchCh := session.Client().Watch(
		v3.WithRequireLeader(campaignCtx),
		election.Key(),
		v3.WithRev(election.Rev()),
	)

	lostCh := make(chan struct{})
	go func() {
		defer cancelCampaign()
		defer l.resign(ctx, election)

		// Closed before resigning, since resigning stalls while the cluster
		// has no leader.
		defer close(lostCh)

		l.watch(session, election, watchCh)
	}()

	return lostCh, nil
}

// watch returns once ownership of the election key can no longer be assumed.
func (l *Lock) watch(session *concurrency.Session, election *concurrency.Election, watchCh v3.WatchChan) {
	for {
		select {
		case <-session.Done():
			l.log.Warn("lock session ended")
			return

		case resp, ok := <-watchCh:
			if !ok {
				return
			}
			if err := resp.Err(); err != nil {
				l.log.WithError(err).Warn("failure watching lock key")
				return
			}

			for _, event := range resp.Events {
				switch event.Type {
				case mvccpb.PUT:
					if event.Kv.CreateRevision != election.Rev() {
						l.log.Warn("lock key recreated, releasing")
						return
					}
				case mvccpb.DELETE:
					l.log.Trace("lock key deleted")
					return
				}
			}
		}
	}
}

func (l *Lock) resign(ctx context.Context, election *concurrency.Election) {
	l.electionMu.Lock()
	defer l.electionMu.Unlock()

	if l.election != election {
		return
	}

	if err := election.Resign(ctx); err != nil {
		l.log.WithError(err).Warn("failure resigning lock")
	}
	l.election = nil
}

// Unlock implements lock.DistributedLock.Unlock
func (l *Lock) Unlock(ctx context.Context) error {
	l.electionMu.Lock()
	defer l.electionMu.Unlock()

	if l.election == nil {
		return nil
	}

	err := l.election.Resign(ctx)
	l.election = nil
	return err
}

// IsLocked implements lock.DistributedLock.IsLocked
func (l *Lock) IsLocked() bool {
	l.electionMu.Lock()
	defer l.electionMu.Unlock()

	return l.election != nil && l.election.Key() != ""
}
