// Package secret parses the bearer secret that authorizes spending from a
// gift card's escrow.
package secret

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Format identifies the encoding a secret was parsed from.
type Format int

const (
	FormatUnknown Format = iota
	FormatBase58
	FormatJSON
	FormatByteList
)

func (f Format) String() string {
	switch f {
	case FormatBase58:
		return "base58"
	case FormatJSON:
		return "json"
	case FormatByteList:
		return "byte_list"
	default:
		return "unknown"
	}
}

// Secret is a parsed 64-byte ed25519 keypair secret.
type Secret struct {
	Key    ed25519.PrivateKey
	Format Format
}

// PublicKey is the public half of the keypair. It is the card address.
func (s *Secret) PublicKey() ed25519.PublicKey {
	return s.Key.Public().(ed25519.PublicKey)
}

// Address is the base58 card address.
func (s *Secret) Address() string {
	return base58.Encode(s.PublicKey())
}

// Encode returns the canonical base58 form of a keypair secret.
func Encode(key ed25519.PrivateKey) string {
	return base58.Encode(key)
}

// Parse accepts, in order: a base58 string of exactly 64 bytes; a JSON object
// whose secretKey is a base58 string or an array of 64 bytes; a list of 64
// integers in [0,255] separated by commas, whitespace or brackets.
func Parse(input string) (*Secret, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, errors.Wrap(giftcard.ErrMalformedSecret, "secret is empty")
	}

	if isBase58(trimmed) {
		key, err := decodeBase58Key(trimmed)
		if err != nil {
			return nil, err
		}
		return &Secret{Key: key, Format: FormatBase58}, nil
	}

	if strings.HasPrefix(trimmed, "{") {
		key, err := parseJSON(trimmed)
		if err != nil {
			return nil, err
		}
		return &Secret{Key: key, Format: FormatJSON}, nil
	}

	key, err := parseByteList(trimmed)
	if err != nil {
		return nil, err
	}
	return &Secret{Key: key, Format: FormatByteList}, nil
}

// ParseForAddress parses input and checks the derived public key is the
// given card address. A mismatch is giftcard.ErrUnauthorized.
func ParseForAddress(input, address string) (*Secret, error) {
	s, err := Parse(input)
	if err != nil {
		return nil, err
	}

	expected, err := base58.Decode(address)
	if err != nil || len(expected) != ed25519.PublicKeySize {
		return nil, giftcard.ErrInvalidAddress
	}

	if !bytes.Equal(s.PublicKey(), expected) {
		return nil, giftcard.ErrUnauthorized
	}
	return s, nil
}

func isBase58(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}

func decodeBase58Key(s string) (ed25519.PrivateKey, error) {
	if !isBase58(s) {
		return nil, errors.Wrap(giftcard.ErrMalformedSecret, "secret contains characters outside the base58 alphabet")
	}

	decoded, err := base58.Decode(s)
	if err != nil {
		return nil, errors.Wrap(giftcard.ErrMalformedSecret, "secret is not valid base58")
	}
	return toKey(decoded)
}

func parseJSON(s string) (ed25519.PrivateKey, error) {
	var doc struct {
		SecretKey json.RawMessage `json:"secretKey"`
	}
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, errors.Wrap(giftcard.ErrMalformedSecret, "secret is not a valid json object")
	}
	if len(doc.SecretKey) == 0 {
		return nil, errors.Wrap(giftcard.ErrMalformedSecret, "secretKey field is missing")
	}

	var encoded string
	if err := json.Unmarshal(doc.SecretKey, &encoded); err == nil {
		return decodeBase58Key(encoded)
	}

	var values []json.Number
	d := json.NewDecoder(bytes.NewReader(doc.SecretKey))
	d.UseNumber()
	if err := d.Decode(&values); err != nil {
		return nil, errors.Wrap(giftcard.ErrMalformedSecret, "secretKey must be a base58 string or byte array")
	}

	raw := make([]string, len(values))
	for i, v := range values {
		raw[i] = v.String()
	}
	return bytesFromIntegers(raw)
}

func parseByteList(s string) (ed25519.PrivateKey, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', '[', ']', ' ', '\t', '\n', '\r':
			return true
		}
		return false
	})
	return bytesFromIntegers(fields)
}

func bytesFromIntegers(values []string) (ed25519.PrivateKey, error) {
	if len(values) != ed25519.PrivateKeySize {
		return nil, errors.Wrapf(giftcard.ErrMalformedSecret, "expected %d bytes, got %d", ed25519.PrivateKeySize, len(values))
	}

	decoded := make([]byte, len(values))
	for i, v := range values {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return nil, errors.Wrapf(giftcard.ErrMalformedSecret, "element %d is not a byte: %q", i, v)
		}
		decoded[i] = byte(n)
	}
	return toKey(decoded)
}

// toKey checks the length and that the trailing public key matches the one
// derived from the seed.
func toKey(decoded []byte) (ed25519.PrivateKey, error) {
	if len(decoded) != ed25519.PrivateKeySize {
		return nil, errors.Wrapf(giftcard.ErrMalformedSecret, "secret decoded to %d bytes, expected %d", len(decoded), ed25519.PrivateKeySize)
	}

	key := ed25519.NewKeyFromSeed(decoded[:ed25519.SeedSize])
	if !bytes.Equal(key[ed25519.SeedSize:], decoded[ed25519.SeedSize:]) {
		return nil, errors.Wrap(giftcard.ErrMalformedSecret, "public key does not match secret")
	}
	return key, nil
}
