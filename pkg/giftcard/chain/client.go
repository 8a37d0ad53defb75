// Package chain runs the gift card flows directly against the network using
// keypair escrow: a card is a fresh system account whose secret key is the
// bearer secret, and protocol accounts are only read for rates and
// referrals.
package chain

import (
	"context"
	"crypto/ed25519"

	"github.com/jonboulle/clockwork"
	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/gift-protocol/pkg/cache"
	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/giftcard/submit"
	"github.com/code-payments/gift-protocol/pkg/metrics"
	"github.com/code-payments/gift-protocol/pkg/solana"
	"github.com/code-payments/gift-protocol/pkg/solana/giftprotocol"
	"github.com/code-payments/gift-protocol/pkg/sync"
)

const (
	metricsStructName = "giftcard.chain"

	cardLockStripes = 1024

	knownReferrersBudget = 10_000
)

type Client struct {
	log       *logrus.Entry
	conf      *conf
	sc        solana.Client
	submitter *submit.Submitter
	clock     clockwork.Clock

	// cardLocks serializes local submissions against the same card
	cardLocks *sync.StripedLock

	// Referral accounts are never closed, so a referrer seen once stays
	// valid
	knownReferrers cache.Cache
}

// NewClient returns a Client reading through sc and submitting through
// submitter. A nil clock uses the real clock.
func NewClient(sc solana.Client, submitter *submit.Submitter, clock clockwork.Clock, configProvider ConfigProvider) *Client {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Client{
		log:       logrus.StandardLogger().WithField("type", "giftcard/chain"),
		conf:      configProvider(),
		sc:        sc,
		submitter: submitter,
		clock:     clock,
		cardLocks: sync.NewStripedLock(cardLockStripes),

		knownReferrers: cache.NewCache("giftcard/chain/referrers", knownReferrersBudget),
	}
}

// GetProtocolConfig reads the on-chain config account
func (c *Client) GetProtocolConfig(ctx context.Context) (*giftprotocol.ConfigAccount, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "GetProtocolConfig").End()

	address, _, err := giftprotocol.GetConfigAddress()
	if err != nil {
		return nil, err
	}

	info, err := c.sc.GetAccountInfo(address, solana.CommitmentConfirmed)
	if err == solana.ErrNoAccountInfo {
		return nil, giftcard.ErrNotInitialized
	} else if err != nil {
		return nil, errors.Wrap(err, "error getting config account")
	}

	var config giftprotocol.ConfigAccount
	if err := config.Unmarshal(info.Data); err != nil {
		return nil, errors.Wrap(err, "error parsing config account")
	}
	return &config, nil
}

// GetReferral reads the referral account of owner
func (c *Client) GetReferral(ctx context.Context, owner ed25519.PublicKey) (*giftprotocol.ReferralAccount, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "GetReferral").End()

	address, _, err := giftprotocol.GetReferralAddress(&giftprotocol.GetReferralAddressArgs{
		Owner: owner,
	})
	if err != nil {
		return nil, err
	}

	info, err := c.sc.GetAccountInfo(address, solana.CommitmentConfirmed)
	if err == solana.ErrNoAccountInfo {
		return nil, giftcard.ErrReferralNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "error getting referral account")
	}

	var referral giftprotocol.ReferralAccount
	if err := referral.Unmarshal(info.Data); err != nil {
		return nil, errors.Wrap(err, "error parsing referral account")
	}
	return &referral, nil
}

// hasReferral reports whether owner has a referral account
func (c *Client) hasReferral(ctx context.Context, owner ed25519.PublicKey) (bool, error) {
	key := base58.Encode(owner)
	if _, ok := c.knownReferrers.Retrieve(key); ok {
		return true, nil
	}

	_, err := c.GetReferral(ctx, owner)
	switch err {
	case nil:
		_ = c.knownReferrers.Insert(key, struct{}{}, 1)
		return true, nil
	case giftcard.ErrReferralNotFound:
		return false, nil
	default:
		return false, err
	}
}

// GetCardBalance returns the lamports held in a card's escrow. A card that
// was never funded has a zero balance.
func (c *Client) GetCardBalance(ctx context.Context, card ed25519.PublicKey) (uint64, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "GetCardBalance").End()

	return c.getBalance(card)
}

func (c *Client) getBalance(account ed25519.PublicKey) (uint64, error) {
	balance, err := c.sc.GetBalance(account)
	if err == solana.ErrNoBalance {
		return 0, nil
	} else if err != nil {
		return 0, errors.Wrapf(err, "error getting balance of %s", base58.Encode(account))
	}
	return balance, nil
}

func (c *Client) newTransaction(payer ed25519.PublicKey, instructions ...solana.Instruction) (solana.Transaction, error) {
	blockhash, err := c.sc.GetLatestBlockhash()
	if err != nil {
		return solana.Transaction{}, errors.Wrap(err, "error getting latest blockhash")
	}

	txn := solana.NewTransaction(payer, instructions...)
	txn.SetBlockhash(blockhash)
	return txn, nil
}

func (c *Client) lockCard(card ed25519.PublicKey) func() {
	mu := c.cardLocks.Get(card)
	mu.Lock()
	return mu.Unlock
}
