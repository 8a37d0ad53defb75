package giftprotocol

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58/base58"

	"github.com/code-payments/gift-protocol/pkg/solana/binary"
)

const (
	MinConfigAccountSize = (discriminatorSize +
		32 + // authority
		8 + // commission_rate
		8 + // referral_rate
		32 + // treasury
		8 + // total_commission
		8 + // total_referral_payouts
		8 + // total_gift_cards
		8 + // total_staked
		1 + // governance_token_mint (none)
		1) // bump
)

var ConfigAccountDiscriminator = accountDiscriminator("Config")

type ConfigAccount struct {
	Authority            ed25519.PublicKey
	CommissionRate       uint64
	ReferralRate         uint64
	Treasury             ed25519.PublicKey
	TotalCommission      uint64
	TotalReferralPayouts uint64
	TotalGiftCards       uint64
	TotalStaked          uint64
	GovernanceTokenMint  ed25519.PublicKey
	Bump                 uint8
}

func (obj *ConfigAccount) Marshal() []byte {
	data := make([]byte, MinConfigAccountSize+len(obj.GovernanceTokenMint))

	var offset int
	putDiscriminator(data, ConfigAccountDiscriminator, &offset)
	binary.PutKey32(data[offset:], obj.Authority, &offset)
	binary.PutUint64(data[offset:], obj.CommissionRate, &offset)
	binary.PutUint64(data[offset:], obj.ReferralRate, &offset)
	binary.PutKey32(data[offset:], obj.Treasury, &offset)
	binary.PutUint64(data[offset:], obj.TotalCommission, &offset)
	binary.PutUint64(data[offset:], obj.TotalReferralPayouts, &offset)
	binary.PutUint64(data[offset:], obj.TotalGiftCards, &offset)
	binary.PutUint64(data[offset:], obj.TotalStaked, &offset)
	binary.PutOptionalKey32(data[offset:], obj.GovernanceTokenMint, &offset)
	binary.PutUint8(data[offset:], obj.Bump, &offset)

	return data[:offset]
}

func (obj *ConfigAccount) Unmarshal(data []byte) error {
	if len(data) < MinConfigAccountSize {
		return ErrInvalidAccountData
	}

	var offset int
	if err := checkDiscriminator(data, ConfigAccountDiscriminator, &offset); err != nil {
		return err
	}

	binary.GetKey32(data[offset:], &obj.Authority, &offset)
	binary.GetUint64(data[offset:], &obj.CommissionRate, &offset)
	binary.GetUint64(data[offset:], &obj.ReferralRate, &offset)
	binary.GetKey32(data[offset:], &obj.Treasury, &offset)
	binary.GetUint64(data[offset:], &obj.TotalCommission, &offset)
	binary.GetUint64(data[offset:], &obj.TotalReferralPayouts, &offset)
	binary.GetUint64(data[offset:], &obj.TotalGiftCards, &offset)
	binary.GetUint64(data[offset:], &obj.TotalStaked, &offset)
	if err := binary.GetOptionalKey32(data[offset:], &obj.GovernanceTokenMint, &offset); err != nil {
		return ErrInvalidAccountData
	}
	if offset >= len(data) {
		return ErrInvalidAccountData
	}
	binary.GetUint8(data[offset:], &obj.Bump, &offset)

	return nil
}

func (obj *ConfigAccount) String() string {
	return fmt.Sprintf(
		"ConfigAccount{authority=%s,commission_rate=%d,referral_rate=%d,treasury=%s,total_gift_cards=%d,total_commission=%d,total_referral_payouts=%d,total_staked=%d}",
		base58.Encode(obj.Authority),
		obj.CommissionRate,
		obj.ReferralRate,
		base58.Encode(obj.Treasury),
		obj.TotalGiftCards,
		obj.TotalCommission,
		obj.TotalReferralPayouts,
		obj.TotalStaked,
	)
}
