package giftprotocol

import (
	"crypto/ed25519"

	"github.com/code-payments/gift-protocol/pkg/solana/binary"
)

const (
	TreasuryAccountSize = (discriminatorSize +
		32 + // config
		8 + // balance
		8 + // staked_amount
		1) // bump
)

var TreasuryAccountDiscriminator = accountDiscriminator("Treasury")

type TreasuryAccount struct {
	Config       ed25519.PublicKey
	Balance      uint64
	StakedAmount uint64
	Bump         uint8
}

func (obj *TreasuryAccount) Marshal() []byte {
	data := make([]byte, TreasuryAccountSize)

	var offset int
	putDiscriminator(data, TreasuryAccountDiscriminator, &offset)
	binary.PutKey32(data[offset:], obj.Config, &offset)
	binary.PutUint64(data[offset:], obj.Balance, &offset)
	binary.PutUint64(data[offset:], obj.StakedAmount, &offset)
	binary.PutUint8(data[offset:], obj.Bump, &offset)

	return data
}

func (obj *TreasuryAccount) Unmarshal(data []byte) error {
	if len(data) < TreasuryAccountSize {
		return ErrInvalidAccountData
	}

	var offset int
	if err := checkDiscriminator(data, TreasuryAccountDiscriminator, &offset); err != nil {
		return err
	}

	binary.GetKey32(data[offset:], &obj.Config, &offset)
	binary.GetUint64(data[offset:], &obj.Balance, &offset)
	binary.GetUint64(data[offset:], &obj.StakedAmount, &offset)
	binary.GetUint8(data[offset:], &obj.Bump, &offset)

	return nil
}
