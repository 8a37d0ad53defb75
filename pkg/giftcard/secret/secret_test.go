package secret

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
)

func newKey(t *testing.T) ed25519.PrivateKey {
	_, key, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return key
}

func byteList(key []byte, sep string) string {
	parts := make([]string, len(key))
	for i, b := range key {
		parts[i] = fmt.Sprintf("%d", b)
	}
	return strings.Join(parts, sep)
}

func TestParse_Base58RoundTrip(t *testing.T) {
	for i := 0; i < 50; i++ {
		key := newKey(t)
		address := base58.Encode(key.Public().(ed25519.PublicKey))

		parsed, err := ParseForAddress("  "+Encode(key)+"\n", address)
		require.NoError(t, err)
		assert.Equal(t, FormatBase58, parsed.Format)
		assert.Equal(t, address, parsed.Address())
		assert.EqualValues(t, key, parsed.Key)
	}
}

func TestParse_JSON(t *testing.T) {
	key := newKey(t)

	parsed, err := Parse(fmt.Sprintf(`{"secretKey":%q}`, Encode(key)))
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, parsed.Format)
	assert.EqualValues(t, key, parsed.Key)

	asArray, err := json.Marshal(map[string]interface{}{"secretKey": byteSlice(key)})
	require.NoError(t, err)

	parsed, err = Parse(string(asArray))
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, parsed.Format)
	assert.EqualValues(t, key, parsed.Key)
}

func TestParse_ByteList(t *testing.T) {
	key := newKey(t)

	for _, input := range []string{
		"[" + byteList(key, ",") + "]",
		byteList(key, ", "),
		byteList(key, " "),
		"[ " + byteList(key, "\n") + " ]",
	} {
		parsed, err := Parse(input)
		require.NoError(t, err)
		assert.Equal(t, FormatByteList, parsed.Format)
		assert.EqualValues(t, key, parsed.Key)
	}
}

func TestParse_Rejects(t *testing.T) {
	key := newKey(t)

	shortKey := base58.Encode(key[:32])
	mismatched := append(append([]byte{}, key[:32]...), newKey(t)[32:]...)

	for name, input := range map[string]string{
		"empty":                 "   ",
		"base58 wrong length":   shortKey,
		"base58 mismatched pub": base58.Encode(mismatched),
		"non base58 characters": "0OIl" + Encode(key)[4:],
		"json without field":    `{"privateKey":"abc"}`,
		"json invalid":          `{"secretKey":`,
		"json wrong length":     fmt.Sprintf(`{"secretKey":[%s]}`, byteList(key[:63], ",")),
		"json out of range":     fmt.Sprintf(`{"secretKey":[256,%s]}`, byteList(key[1:], ",")),
		"json bad base58":       `{"secretKey":"0OIl"}`,
		"list too short":        byteList(key[:63], ","),
		"list too long":         byteList(append(append([]byte{}, key...), 1), ","),
		"list negative":         "-1," + byteList(key[1:], ","),
		"list not numeric":      "a," + byteList(key[1:], ","),
	} {
		_, err := Parse(input)
		assert.True(t, errors.Is(err, giftcard.ErrMalformedSecret), name)
		assert.Equal(t, giftcard.KindValidation, giftcard.KindOf(err), name)
	}
}

func TestParseForAddress(t *testing.T) {
	key := newKey(t)
	other := newKey(t)

	_, err := ParseForAddress(Encode(key), base58.Encode(other.Public().(ed25519.PublicKey)))
	assert.Equal(t, giftcard.ErrUnauthorized, err)

	_, err = ParseForAddress(Encode(key), "not-an-address")
	assert.Equal(t, giftcard.ErrInvalidAddress, err)

	_, err = ParseForAddress(base58.Encode(key[:40]), base58.Encode(key.Public().(ed25519.PublicKey)))
	assert.True(t, errors.Is(err, giftcard.ErrMalformedSecret))
}

func byteSlice(key []byte) []int {
	values := make([]int, len(key))
	for i, b := range key {
		values[i] = int(b)
	}
	return values
}
