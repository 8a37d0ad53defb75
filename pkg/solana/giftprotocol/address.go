package giftprotocol

import (
	"crypto/ed25519"

	"github.com/code-payments/gift-protocol/pkg/solana"
)

var (
	ConfigPrefix   = []byte("config")
	TreasuryPrefix = []byte("treasury")
	ReferralPrefix = []byte("referral")
	GiftCardPrefix = []byte("gift_card")
)

func GetConfigAddress() (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(PROGRAM_ID, ConfigPrefix)
}

func GetTreasuryAddress() (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(PROGRAM_ID, TreasuryPrefix)
}

type GetReferralAddressArgs struct {
	Owner ed25519.PublicKey
}

func GetReferralAddress(args *GetReferralAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		ReferralPrefix,
		args.Owner,
	)
}

type GetGiftCardAddressArgs struct {
	Card ed25519.PublicKey
}

// GetGiftCardAddress derives the metadata account of a card from the card's
// bearer public key.
func GetGiftCardAddress(args *GetGiftCardAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		GiftCardPrefix,
		args.Card,
	)
}
