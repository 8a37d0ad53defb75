package giftcard

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
)

// ValidateAddress checks address is a base58 encoded 32-byte public key
func ValidateAddress(address string) error {
	decoded, err := base58.Decode(address)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return ErrInvalidAddress
	}
	return nil
}
