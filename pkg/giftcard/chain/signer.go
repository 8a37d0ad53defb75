package chain

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/solana"
)

// Signer is a wallet able to sign transactions it pays for. Implementations
// return an error wrapping giftcard.ErrSigningRejected when the owner
// declines.
type Signer interface {
	PublicKey() ed25519.PublicKey
	Sign(ctx context.Context, txn *solana.Transaction) error
}

type keypairSigner struct {
	key ed25519.PrivateKey
}

// NewKeypairSigner returns a Signer that signs with key without prompting
func NewKeypairSigner(key ed25519.PrivateKey) Signer {
	return &keypairSigner{key: key}
}

func (s *keypairSigner) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

func (s *keypairSigner) Sign(_ context.Context, txn *solana.Transaction) error {
	if err := txn.Sign(s.key); err != nil {
		return errors.Wrap(giftcard.ErrSigningRejected, err.Error())
	}
	return nil
}

// sign runs the wallet and normalizes anything it returns to a signing
// rejection
func sign(ctx context.Context, wallet Signer, txn *solana.Transaction) error {
	err := wallet.Sign(ctx, txn)
	if err == nil {
		return nil
	}
	if errors.Is(err, giftcard.ErrSigningRejected) {
		return err
	}
	return errors.Wrap(giftcard.ErrSigningRejected, err.Error())
}
