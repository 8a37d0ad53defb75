// Package engine implements the gift card protocol operations on top of a
// ledger.Store. Every mutating operation is a single ledger transaction.
package engine

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
	"github.com/code-payments/gift-protocol/pkg/solana/giftprotocol"
)

type Engine struct {
	log   *logrus.Entry
	conf  *conf
	store ledger.Store
	clock clockwork.Clock

	treasury string
}

// New returns an Engine backed by store. A nil clock uses the real clock.
func New(store ledger.Store, clock clockwork.Clock, configProvider ConfigProvider) (*Engine, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	treasury, _, err := giftprotocol.GetTreasuryAddress()
	if err != nil {
		return nil, errors.Wrap(err, "error deriving treasury address")
	}

	return &Engine{
		log:      logrus.StandardLogger().WithField("type", "giftcard/engine"),
		conf:     configProvider(),
		store:    store,
		clock:    clock,
		treasury: base58.Encode(treasury),
	}, nil
}

// TreasuryAddress is the address the treasury record is created under
func (e *Engine) TreasuryAddress() string {
	return e.treasury
}

// FeeSink is the ledger account collecting network fees and fee reserves
func (e *Engine) FeeSink(ctx context.Context) string {
	return e.conf.feeSink.Get(ctx)
}

func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}

func (e *Engine) getConfig(ctx context.Context) (*ledger.Config, error) {
	config, err := e.store.GetConfig(ctx)
	if err == ledger.ErrConfigNotFound {
		return nil, giftcard.ErrNotInitialized
	}
	return config, err
}

func (e *Engine) getTreasury(ctx context.Context) (*ledger.Treasury, error) {
	treasury, err := e.store.GetTreasury(ctx)
	if err == ledger.ErrTreasuryNotFound {
		return nil, giftcard.ErrNotInitialized
	}
	return treasury, err
}

func (e *Engine) getCard(ctx context.Context, address string) (*ledger.Card, error) {
	card, err := e.store.GetCard(ctx, address)
	if err == ledger.ErrCardNotFound {
		return nil, giftcard.ErrCardNotFound
	}
	return card, err
}

// getAccount returns a zero balance account for owners that were never
// credited.
func (e *Engine) getAccount(ctx context.Context, owner string) (*ledger.Account, error) {
	account, err := e.store.GetAccount(ctx, owner)
	if err == ledger.ErrAccountNotFound {
		return &ledger.Account{Owner: owner}, nil
	}
	return account, err
}

func (e *Engine) credit(ctx context.Context, owner string, amount uint64) error {
	account, err := e.getAccount(ctx, owner)
	if err != nil {
		return err
	}

	account.Balance, err = giftcard.CheckedAdd(account.Balance, amount)
	if err != nil {
		return err
	}
	account.LastUpdatedAt = e.now()
	return e.store.SaveAccount(ctx, account)
}

func (e *Engine) debit(ctx context.Context, owner string, amount uint64) error {
	account, err := e.getAccount(ctx, owner)
	if err != nil {
		return err
	}

	account.Balance, err = giftcard.CheckedSub(account.Balance, amount)
	if err != nil {
		return err
	}
	account.LastUpdatedAt = e.now()
	return e.store.SaveAccount(ctx, account)
}

// finish is deferred by every operation to report failures consistently
func (e *Engine) finish(ctx context.Context, log *logrus.Entry, err error) {
	if err == nil {
		return
	}

	recordOperationFailure(ctx)
	if giftcard.KindOf(err) == giftcard.KindInternal {
		log.WithError(err).Warn("operation failed")
		return
	}
	log.WithError(err).WithField("reason", giftcard.ReasonCode(err)).Debug("operation rejected")
}
