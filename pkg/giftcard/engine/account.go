package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
	"github.com/code-payments/gift-protocol/pkg/metrics"
)

// Deposit funds an owner's ledger account from outside the protocol
func (e *Engine) Deposit(ctx context.Context, owner string, amount uint64) (account *ledger.Account, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Deposit")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method": "Deposit",
		"owner":  owner,
		"amount": amount,
	})
	defer func() {
		tracer.OnError(err)
		e.finish(ctx, log, err)
	}()

	if err := giftcard.ValidateAddress(owner); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, giftcard.ErrInvalidAmount
	}

	err = e.store.ExecuteInTx(ctx, func(ctx context.Context) error {
		if err := e.credit(ctx, owner, amount); err != nil {
			return err
		}

		account, err = e.store.GetAccount(ctx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Debug("deposit credited")
	return account, nil
}

// GetBalance returns the ledger balance of owner, zero if it was never
// credited
func (e *Engine) GetBalance(ctx context.Context, owner string) (uint64, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "GetBalance").End()

	if err := giftcard.ValidateAddress(owner); err != nil && owner != e.FeeSink(ctx) {
		return 0, err
	}

	account, err := e.getAccount(ctx, owner)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}
