package chain

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/giftcard/secret"
	"github.com/code-payments/gift-protocol/pkg/giftcard/submit"
	"github.com/code-payments/gift-protocol/pkg/metrics"
	"github.com/code-payments/gift-protocol/pkg/solana"
	"github.com/code-payments/gift-protocol/pkg/solana/memo"
	"github.com/code-payments/gift-protocol/pkg/solana/system"
)

type CreateGiftCardArgs struct {
	Amount     uint64
	Recipient  ed25519.PublicKey
	Message    string
	ExpiryTime int64
	Referrer   ed25519.PublicKey
	ThemeId    uint32
}

type CreateGiftCardResult struct {
	Card ed25519.PublicKey

	// Secret is the base58 bearer secret to hand to the recipient
	Secret string

	Split            giftcard.Split
	ReferralCredited bool
	Submission       *submit.Result
}

// CreateGiftCard funds a new card from the wallet. The wallet pays the gross
// amount in one transaction: the net amount to the card, the treasury share
// to the protocol treasury and the referral share to the referrer, with the
// message attached as a memo.
//
// When the submission outcome is ambiguous the result is returned alongside
// the error, since the card may already be funded and its secret must not be
// lost.
func (c *Client) CreateGiftCard(ctx context.Context, wallet Signer, args *CreateGiftCardArgs) (result *CreateGiftCardResult, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CreateGiftCard")
	defer tracer.End()

	creator := wallet.PublicKey()
	log := c.log.WithFields(logrus.Fields{
		"method":  "CreateGiftCard",
		"creator": base58.Encode(creator),
		"amount":  args.Amount,
	})
	defer func() {
		tracer.OnError(err)
	}()

	if err := c.validateCreateArgs(ctx, creator, args); err != nil {
		return nil, err
	}

	config, err := c.GetProtocolConfig(ctx)
	if err != nil {
		return nil, err
	}

	var referralCredited bool
	if len(args.Referrer) > 0 {
		referralCredited, err = c.hasReferral(ctx, args.Referrer)
		if err != nil {
			return nil, err
		}
		if !referralCredited {
			log.WithField("referrer", base58.Encode(args.Referrer)).Debug("referrer has no referral account")
		}
	}

	split, err := giftcard.ComputeSplit(args.Amount, config.CommissionRate, config.ReferralRate, referralCredited)
	if err != nil {
		return nil, err
	}

	rentExempt, err := c.sc.GetMinimumBalanceForRentExemption(0)
	if err != nil {
		return nil, errors.Wrap(err, "error getting rent exemption minimum")
	}
	if split.Net < rentExempt {
		return nil, giftcard.ErrInvalidAmount
	}

	required, err := giftcard.CheckedAdd(args.Amount, c.conf.networkFee.Get(ctx))
	if err != nil {
		return nil, err
	}
	balance, err := c.getBalance(creator)
	if err != nil {
		return nil, err
	}
	if balance < required {
		return nil, giftcard.ErrInsufficientFunds
	}

	cardPub, cardKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Wrap(err, "error generating card keypair")
	}
	log = log.WithField("card", base58.Encode(cardPub))

	instructions := []solana.Instruction{
		system.Transfer(creator, cardPub, split.Net),
	}
	if split.TreasuryShare > 0 {
		instructions = append(instructions, system.Transfer(creator, config.Treasury, split.TreasuryShare))
	}
	if split.ReferralShare > 0 {
		instructions = append(instructions, system.Transfer(creator, args.Referrer, split.ReferralShare))
	}
	instructions = append(instructions, memo.Instruction(cardMemo(args)))

	txn, err := c.newTransaction(creator, instructions...)
	if err != nil {
		return nil, err
	}
	if err := sign(ctx, wallet, &txn); err != nil {
		log.WithError(err).Info("wallet declined to sign")
		return nil, err
	}

	result = &CreateGiftCardResult{
		Card:             cardPub,
		Secret:           secret.Encode(cardKey),
		Split:            split,
		ReferralCredited: referralCredited,
	}

	unlock := c.lockCard(cardPub)
	defer unlock()

	result.Submission, err = c.submitter.Submit(ctx, txn)
	if err != nil {
		if giftcard.KindOf(err) == giftcard.KindAmbiguous {
			log.WithError(err).Warn("gift card funding outcome unknown")
			return result, err
		}
		log.WithError(err).Info("gift card funding failed")
		return nil, err
	}

	log.WithField("signature", result.Submission.Signature.String()).Info("gift card created")
	return result, nil
}

func (c *Client) validateCreateArgs(ctx context.Context, creator ed25519.PublicKey, args *CreateGiftCardArgs) error {
	if args.Amount == 0 {
		return giftcard.ErrInvalidAmount
	}

	if err := giftcard.ValidateMessage(args.Message, int(c.conf.maxMessageLength.Get(ctx))); err != nil {
		return err
	}

	if args.ExpiryTime < 0 || (args.ExpiryTime != 0 && args.ExpiryTime <= c.clock.Now().Unix()) {
		return giftcard.ErrInvalidExpiry
	}

	if len(args.Recipient) > 0 && len(args.Recipient) != ed25519.PublicKeySize {
		return giftcard.ErrInvalidAddress
	}

	if len(args.Referrer) > 0 {
		if len(args.Referrer) != ed25519.PublicKeySize {
			return giftcard.ErrInvalidAddress
		}
		if bytes.Equal(args.Referrer, creator) {
			return giftcard.ErrInvalidReferrer
		}
	}

	return nil
}

// cardMemo is "gift:<theme>:<expiry>:<message>"
func cardMemo(args *CreateGiftCardArgs) string {
	return fmt.Sprintf("gift:%s:%d:%s", giftcard.ThemeName(args.ThemeId), args.ExpiryTime, args.Message)
}
