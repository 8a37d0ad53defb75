// Package giftprotocol holds the on-chain bindings of the gift protocol
// program: its address, derived account addresses, account layouts and
// instruction builders.
package giftprotocol

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
)

var (
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("GiFtpLZbmQcu4LPYoFg2ZX5he7qeXXdXiNVzQ5Lm24R1")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)

	SYSTEM_PROGRAM_ID   = ed25519.PublicKey(mustBase58Decode("11111111111111111111111111111111"))
	SYSVAR_CLOCK_PUBKEY = ed25519.PublicKey(mustBase58Decode("SysvarC1ock11111111111111111111111111111111"))
)

const discriminatorSize = 8

// accountDiscriminator is the Anchor account tag, the first eight bytes of
// sha256("account:<Name>").
func accountDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("account:" + name))
	return h[:discriminatorSize]
}

// instructionDiscriminator is the Anchor instruction tag, the first eight
// bytes of sha256("global:<name>").
func instructionDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:discriminatorSize]
}

func putDiscriminator(dst []byte, v []byte, offset *int) {
	copy(dst[*offset:], v)
	*offset += discriminatorSize
}

func checkDiscriminator(data, expected []byte, offset *int) error {
	if len(data) < discriminatorSize || !bytes.Equal(data[:discriminatorSize], expected) {
		return ErrInvalidAccountData
	}
	*offset += discriminatorSize
	return nil
}

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
