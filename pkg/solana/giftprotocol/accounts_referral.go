package giftprotocol

import (
	"crypto/ed25519"

	"github.com/code-payments/gift-protocol/pkg/solana/binary"
)

const (
	ReferralAccountSize = (discriminatorSize +
		32 + // owner
		8 + // total_earned
		8 + // referral_count
		8 + // created_at
		1) // bump
)

var ReferralAccountDiscriminator = accountDiscriminator("Referral")

type ReferralAccount struct {
	Owner         ed25519.PublicKey
	TotalEarned   uint64
	ReferralCount uint64
	CreatedAt     int64
	Bump          uint8
}

func (obj *ReferralAccount) Marshal() []byte {
	data := make([]byte, ReferralAccountSize)

	var offset int
	putDiscriminator(data, ReferralAccountDiscriminator, &offset)
	binary.PutKey32(data[offset:], obj.Owner, &offset)
	binary.PutUint64(data[offset:], obj.TotalEarned, &offset)
	binary.PutUint64(data[offset:], obj.ReferralCount, &offset)
	binary.PutInt64(data[offset:], obj.CreatedAt, &offset)
	binary.PutUint8(data[offset:], obj.Bump, &offset)

	return data
}

func (obj *ReferralAccount) Unmarshal(data []byte) error {
	if len(data) < ReferralAccountSize {
		return ErrInvalidAccountData
	}

	var offset int
	if err := checkDiscriminator(data, ReferralAccountDiscriminator, &offset); err != nil {
		return err
	}

	binary.GetKey32(data[offset:], &obj.Owner, &offset)
	binary.GetUint64(data[offset:], &obj.TotalEarned, &offset)
	binary.GetUint64(data[offset:], &obj.ReferralCount, &offset)
	binary.GetInt64(data[offset:], &obj.CreatedAt, &offset)
	binary.GetUint8(data[offset:], &obj.Bump, &offset)

	return nil
}
