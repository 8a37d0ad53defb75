package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
	"github.com/code-payments/gift-protocol/pkg/metrics"
	"github.com/code-payments/gift-protocol/pkg/pointer"
)

type CreateGiftCardArgs struct {
	Creator string

	// Card is the public key of the bearer keypair
	Card string

	// Recipient is informational, empty means anyone holding the secret
	Recipient string

	// Amount is the gross amount debited from the creator, before commission
	Amount uint64

	// ExpiryTime is a unix timestamp, 0 means the card never expires
	ExpiryTime int64

	Message   string
	Referrer  *string
	TokenMint *string
	ThemeId   uint32
}

type CreateGiftCardResult struct {
	Card  *ledger.Card
	Split giftcard.Split

	// ReferralCredited is false when a referrer was named without a referral
	// record and the referral share stayed with the treasury
	ReferralCredited bool
}

// CreateGiftCard escrows the net amount into a new card. The commission is
// split between the treasury and the referrer in the same transaction that
// debits the creator and bumps the protocol counters.
func (e *Engine) CreateGiftCard(ctx context.Context, args *CreateGiftCardArgs) (result *CreateGiftCardResult, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CreateGiftCard")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method":  "CreateGiftCard",
		"creator": args.Creator,
		"card":    args.Card,
		"amount":  args.Amount,
	})
	defer func() {
		tracer.OnError(err)
		e.finish(ctx, log, err)
	}()

	if err := e.validateCreateArgs(ctx, args); err != nil {
		return nil, err
	}

	networkFee := e.conf.networkFee.Get(ctx)
	feeSink := e.conf.feeSink.Get(ctx)
	requireReferrer := e.conf.requireExistingReferrer.Get(ctx)

	err = e.store.ExecuteInTx(ctx, func(ctx context.Context) error {
		config, err := e.getConfig(ctx)
		if err != nil {
			return err
		}

		_, err = e.store.GetCard(ctx, args.Card)
		if err == nil {
			return giftcard.ErrCardAlreadyExists
		} else if err != ledger.ErrCardNotFound {
			return err
		}

		var referral *ledger.Referral
		if args.Referrer != nil {
			referral, err = e.store.GetReferral(ctx, *args.Referrer)
			if err == ledger.ErrReferralNotFound {
				if requireReferrer {
					return giftcard.ErrReferralNotFound
				}
				referral = nil
			} else if err != nil {
				return err
			}
		}

		split, err := giftcard.ComputeSplit(args.Amount, uint64(config.CommissionRate), uint64(config.ReferralRate), referral != nil)
		if err != nil {
			return err
		}

		total, err := giftcard.CheckedAdd(args.Amount, networkFee)
		if err != nil {
			return err
		}
		if err := e.debit(ctx, args.Creator, total); err != nil {
			return err
		}
		if networkFee > 0 {
			if err := e.credit(ctx, feeSink, networkFee); err != nil {
				return err
			}
		}

		now := e.now()
		card := &ledger.Card{
			Address:          args.Card,
			Creator:          args.Creator,
			Recipient:        args.Recipient,
			Amount:           split.Net,
			Balance:          split.Net,
			CommissionAmount: split.Commission,
			ReferralAmount:   split.ReferralShare,
			ExpiryTime:       args.ExpiryTime,
			Message:          args.Message,
			TokenMint:        pointer.Copy(args.TokenMint),
			ThemeId:          args.ThemeId,
			CreatedAt:        now,
		}
		if referral != nil {
			card.Referrer = pointer.String(referral.Owner)
		}
		err = e.store.CreateCard(ctx, card)
		if err == ledger.ErrCardExists {
			return giftcard.ErrCardAlreadyExists
		} else if err != nil {
			return err
		}

		treasury, err := e.getTreasury(ctx)
		if err != nil {
			return err
		}
		treasury.Balance, err = giftcard.CheckedAdd(treasury.Balance, split.TreasuryShare)
		if err != nil {
			return err
		}
		treasury.LastUpdatedAt = now
		if err := e.store.SaveTreasury(ctx, treasury); err != nil {
			return err
		}

		if referral != nil {
			referral.TotalEarned, err = giftcard.CheckedAdd(referral.TotalEarned, split.ReferralShare)
			if err != nil {
				return err
			}
			referral.ReferralCount, err = giftcard.CheckedAdd(referral.ReferralCount, 1)
			if err != nil {
				return err
			}
			if err := e.store.UpdateReferral(ctx, referral); err != nil {
				return err
			}
			if split.ReferralShare > 0 {
				if err := e.credit(ctx, referral.Owner, split.ReferralShare); err != nil {
					return err
				}
			}
		}

		config.TotalGiftCards, err = giftcard.CheckedAdd(config.TotalGiftCards, 1)
		if err != nil {
			return err
		}
		config.TotalCommission, err = giftcard.CheckedAdd(config.TotalCommission, split.Commission)
		if err != nil {
			return err
		}
		config.TotalReferralPayouts, err = giftcard.CheckedAdd(config.TotalReferralPayouts, split.ReferralShare)
		if err != nil {
			return err
		}
		if err := e.store.UpdateConfig(ctx, config); err != nil {
			return err
		}

		result = &CreateGiftCardResult{
			Card:             card,
			Split:            split,
			ReferralCredited: referral != nil,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if args.Referrer != nil && !result.ReferralCredited {
		log.WithField("referrer", *args.Referrer).Debug("referrer has no referral record, commission retained by treasury")
	}

	recordCardCreatedEvent(ctx, result.Card, result.ReferralCredited)
	log.WithFields(logrus.Fields{
		"net_amount": result.Split.Net,
		"commission": result.Split.Commission,
	}).Info("gift card created")
	return result, nil
}

func (e *Engine) validateCreateArgs(ctx context.Context, args *CreateGiftCardArgs) error {
	if args.Amount == 0 {
		return giftcard.ErrInvalidAmount
	}

	if err := giftcard.ValidateAddress(args.Creator); err != nil {
		return err
	}
	if err := giftcard.ValidateAddress(args.Card); err != nil {
		return err
	}
	if len(args.Recipient) > 0 {
		if err := giftcard.ValidateAddress(args.Recipient); err != nil {
			return err
		}
	}

	if args.Referrer != nil {
		if err := giftcard.ValidateAddress(*args.Referrer); err != nil {
			return err
		}
		if *args.Referrer == args.Creator {
			return giftcard.ErrInvalidReferrer
		}
	}

	if args.TokenMint != nil {
		return giftcard.ErrUnsupportedMint
	}

	if err := giftcard.ValidateMessage(args.Message, int(e.conf.maxMessageLength.Get(ctx))); err != nil {
		return err
	}

	if args.ExpiryTime < 0 || (args.ExpiryTime != 0 && args.ExpiryTime <= e.now().Unix()) {
		return giftcard.ErrInvalidExpiry
	}

	return nil
}
