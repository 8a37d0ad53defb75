package chain

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/giftcard/secret"
	"github.com/code-payments/gift-protocol/pkg/giftcard/submit"
	"github.com/code-payments/gift-protocol/pkg/metrics"
	"github.com/code-payments/gift-protocol/pkg/solana/system"
)

type RedeemGiftCardArgs struct {
	Card ed25519.PublicKey

	// Secret is the bearer secret in any of the accepted formats
	Secret string

	Destination ed25519.PublicKey
}

type RedeemGiftCardResult struct {
	Payout     uint64
	Attempts   int
	Submission *submit.Result
}

// RedeemGiftCard sweeps a card's balance, less the fee reserve, to the
// destination. The card key pays the network fee out of the reserve.
//
// A rejected transfer is rebuilt against a fresh balance and blockhash up to
// the configured attempt limit. An ambiguous outcome is returned
// immediately with the result, since a second transfer could race the first.
func (c *Client) RedeemGiftCard(ctx context.Context, args *RedeemGiftCardArgs) (result *RedeemGiftCardResult, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "RedeemGiftCard")
	defer tracer.End()

	log := c.log.WithFields(logrus.Fields{
		"method":      "RedeemGiftCard",
		"card":        base58.Encode(args.Card),
		"destination": base58.Encode(args.Destination),
	})
	defer func() {
		tracer.OnError(err)
	}()

	if len(args.Card) != ed25519.PublicKeySize || len(args.Destination) != ed25519.PublicKeySize {
		return nil, giftcard.ErrInvalidAddress
	}

	parsed, err := secret.ParseForAddress(args.Secret, base58.Encode(args.Card))
	if err != nil {
		return nil, err
	}
	log = log.WithField("secret_format", parsed.Format.String())

	unlock := c.lockCard(args.Card)
	defer unlock()

	maxAttempts := int(c.conf.maxRedeemAttempts.Get(ctx))
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	feeReserve := c.conf.feeReserve.Get(ctx)

	result = &RedeemGiftCardResult{}
	for {
		result.Attempts++

		balance, err := c.getBalance(args.Card)
		if err != nil {
			return nil, err
		}
		if balance == 0 {
			return nil, giftcard.ErrAlreadyRedeemed
		}
		if balance <= feeReserve {
			return nil, giftcard.ErrInsufficientCardBalance
		}
		result.Payout = balance - feeReserve

		txn, err := c.newTransaction(args.Card, system.Transfer(args.Card, args.Destination, result.Payout))
		if err != nil {
			return nil, err
		}
		if err := txn.Sign(parsed.Key); err != nil {
			return nil, errors.Wrap(err, "error signing with card key")
		}

		result.Submission, err = c.submitter.Submit(ctx, txn)
		switch {
		case err == nil:
			log.WithFields(logrus.Fields{
				"payout":    result.Payout,
				"signature": result.Submission.Signature.String(),
			}).Info("gift card redeemed")
			return result, nil
		case giftcard.KindOf(err) == giftcard.KindAmbiguous:
			log.WithError(err).Warn("gift card redemption outcome unknown")
			return result, err
		case result.Attempts < maxAttempts:
			log.WithError(err).Info("gift card redemption rejected, retrying")
		default:
			log.WithError(err).Info("gift card redemption rejected")
			return nil, err
		}
	}
}
