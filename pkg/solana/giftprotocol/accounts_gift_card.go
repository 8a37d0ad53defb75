package giftprotocol

import (
	"crypto/ed25519"

	"github.com/code-payments/gift-protocol/pkg/solana/binary"
)

const (
	MinGiftCardAccountSize = (discriminatorSize +
		32 + // creator
		32 + // recipient
		8 + // amount
		1 + // is_redeemed
		8 + // expiry_time
		4 + // message length
		1 + // referrer (none)
		1) // bump
)

var GiftCardAccountDiscriminator = accountDiscriminator("GiftCard")

type GiftCardAccount struct {
	Creator    ed25519.PublicKey
	Recipient  ed25519.PublicKey
	Amount     uint64
	IsRedeemed bool
	ExpiryTime int64
	Message    string
	Referrer   ed25519.PublicKey
	Bump       uint8
}

func (obj *GiftCardAccount) Marshal() []byte {
	data := make([]byte, MinGiftCardAccountSize+len(obj.Message)+len(obj.Referrer))

	var offset int
	putDiscriminator(data, GiftCardAccountDiscriminator, &offset)
	binary.PutKey32(data[offset:], obj.Creator, &offset)
	binary.PutKey32(data[offset:], obj.Recipient, &offset)
	binary.PutUint64(data[offset:], obj.Amount, &offset)
	binary.PutBool(data[offset:], obj.IsRedeemed, &offset)
	binary.PutInt64(data[offset:], obj.ExpiryTime, &offset)
	binary.PutString(data[offset:], obj.Message, &offset)
	binary.PutOptionalKey32(data[offset:], obj.Referrer, &offset)
	binary.PutUint8(data[offset:], obj.Bump, &offset)

	return data[:offset]
}

func (obj *GiftCardAccount) Unmarshal(data []byte) error {
	if len(data) < MinGiftCardAccountSize {
		return ErrInvalidAccountData
	}

	var offset int
	if err := checkDiscriminator(data, GiftCardAccountDiscriminator, &offset); err != nil {
		return err
	}

	binary.GetKey32(data[offset:], &obj.Creator, &offset)
	binary.GetKey32(data[offset:], &obj.Recipient, &offset)
	binary.GetUint64(data[offset:], &obj.Amount, &offset)
	binary.GetBool(data[offset:], &obj.IsRedeemed, &offset)
	binary.GetInt64(data[offset:], &obj.ExpiryTime, &offset)
	if err := binary.GetString(data[offset:], &obj.Message, &offset); err != nil {
		return ErrInvalidAccountData
	}
	if err := binary.GetOptionalKey32(data[offset:], &obj.Referrer, &offset); err != nil {
		return ErrInvalidAccountData
	}
	if offset >= len(data) {
		return ErrInvalidAccountData
	}
	binary.GetUint8(data[offset:], &obj.Bump, &offset)

	return nil
}
