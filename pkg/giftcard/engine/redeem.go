package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
	"github.com/code-payments/gift-protocol/pkg/giftcard/secret"
	"github.com/code-payments/gift-protocol/pkg/metrics"
	"github.com/code-payments/gift-protocol/pkg/pointer"
)

type RedeemGiftCardArgs struct {
	Card string

	// Secret is the bearer secret. Its public key must be the card address.
	Secret *secret.Secret

	// Destination receives the card balance less the fee reserve
	Destination string
}

type TerminalResult struct {
	Card *ledger.Card

	// Payout is what the destination or creator received
	Payout uint64

	// FeeReserve is what the fee sink retained
	FeeReserve uint64
}

// RedeemGiftCard drains a card to the destination chosen by whoever holds the
// bearer secret. The terminal flag and the transfer commit together, so of
// any number of concurrent redemptions exactly one succeeds.
func (e *Engine) RedeemGiftCard(ctx context.Context, args *RedeemGiftCardArgs) (result *TerminalResult, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "RedeemGiftCard")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method":      "RedeemGiftCard",
		"card":        args.Card,
		"destination": args.Destination,
	})
	defer func() {
		tracer.OnError(err)
		e.finish(ctx, log, err)
	}()

	if err := giftcard.ValidateAddress(args.Card); err != nil {
		return nil, err
	}
	if args.Secret == nil || args.Secret.Address() != args.Card {
		return nil, giftcard.ErrUnauthorized
	}
	if err := giftcard.ValidateAddress(args.Destination); err != nil {
		return nil, err
	}

	result, err = e.terminate(ctx, args.Card, ledger.ResolutionRedeemed, args.Destination)
	if err != nil {
		return nil, err
	}

	recordCardTerminalEvent(ctx, result.Card, result.Payout)
	log.WithField("payout", result.Payout).Info("gift card redeemed")
	return result, nil
}

// ReclaimGiftCard returns the balance of an expired, unredeemed card to its
// creator. Reclaiming sets the same terminal flag as redeeming, so a card
// pays out at most once across both paths. Anyone may trigger it.
func (e *Engine) ReclaimGiftCard(ctx context.Context, card string) (result *TerminalResult, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ReclaimGiftCard")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method": "ReclaimGiftCard",
		"card":   card,
	})
	defer func() {
		tracer.OnError(err)
		e.finish(ctx, log, err)
	}()

	if err := giftcard.ValidateAddress(card); err != nil {
		return nil, err
	}

	result, err = e.terminate(ctx, card, ledger.ResolutionReclaimed, "")
	if err != nil {
		return nil, err
	}

	recordCardTerminalEvent(ctx, result.Card, result.Payout)
	log.WithField("payout", result.Payout).Info("gift card reclaimed")
	return result, nil
}

// terminate runs the shared guard and payout of both exit paths. For
// reclaims the destination is always the creator.
func (e *Engine) terminate(ctx context.Context, address string, resolution ledger.Resolution, destination string) (*TerminalResult, error) {
	feeReserve := e.conf.feeReserve.Get(ctx)
	feeSink := e.conf.feeSink.Get(ctx)

	var result *TerminalResult
	err := e.store.ExecuteInTx(ctx, func(ctx context.Context) error {
		card, err := e.getCard(ctx, address)
		if err != nil {
			return err
		}

		if card.IsRedeemed {
			return giftcard.ErrAlreadyRedeemed
		}

		now := e.now()
		switch resolution {
		case ledger.ResolutionRedeemed:
			if card.IsExpired(now) {
				return giftcard.ErrCardExpired
			}
		case ledger.ResolutionReclaimed:
			if !card.IsExpired(now) {
				return giftcard.ErrNotExpiredYet
			}
			destination = card.Creator
		}

		if card.Balance <= feeReserve {
			return giftcard.ErrInsufficientCardBalance
		}
		payout := card.Balance - feeReserve

		if err := e.credit(ctx, destination, payout); err != nil {
			return err
		}
		if feeReserve > 0 {
			if err := e.credit(ctx, feeSink, feeReserve); err != nil {
				return err
			}
		}

		card.Balance = 0
		card.IsRedeemed = true
		card.Resolution = resolution
		card.RedeemedBy = destination
		card.RedeemedAt = pointer.Time(now)
		if err := e.store.UpdateCard(ctx, card); err != nil {
			return err
		}

		result = &TerminalResult{
			Card:       card,
			Payout:     payout,
			FeeReserve: feeReserve,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
