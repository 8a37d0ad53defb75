// Package binary holds little-endian helpers for Borsh-style account and
// instruction layouts. Each helper advances offset by the bytes it consumed.
package binary

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrShortBuffer is returned when a variable-length read runs past the data.
var ErrShortBuffer = errors.New("buffer too short")

func PutKey32(dst []byte, src []byte, offset *int) {
	copy(dst, src)
	*offset += ed25519.PublicKeySize
}

// PutOptionalKey32 writes a one-byte option tag followed by the key when set.
// Only the tag is consumed for a missing key.
func PutOptionalKey32(dst []byte, src []byte, offset *int) int {
	if len(src) == 0 {
		dst[0] = 0
		*offset += 1
		return 1
	}

	dst[0] = 1
	copy(dst[1:], src)
	*offset += 1 + ed25519.PublicKeySize
	return 1 + ed25519.PublicKeySize
}

func PutUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst, v)
	*offset += 8
}

func PutInt64(dst []byte, v int64, offset *int) {
	PutUint64(dst, uint64(v), offset)
}

func PutUint32(dst []byte, v uint32, offset *int) {
	binary.LittleEndian.PutUint32(dst, v)
	*offset += 4
}

func PutUint16(dst []byte, v uint16, offset *int) {
	binary.LittleEndian.PutUint16(dst, v)
	*offset += 2
}

func PutUint8(dst []byte, v uint8, offset *int) {
	dst[0] = v
	*offset += 1
}

func PutBool(dst []byte, v bool, offset *int) {
	var b uint8
	if v {
		b = 1
	}
	PutUint8(dst, b, offset)
}

// PutString writes a u32 length prefix followed by the UTF-8 bytes.
func PutString(dst []byte, v string, offset *int) {
	binary.LittleEndian.PutUint32(dst, uint32(len(v)))
	copy(dst[4:], v)
	*offset += 4 + len(v)
}

// StringSize is the encoded size of v as written by PutString.
func StringSize(v string) int {
	return 4 + len(v)
}

func GetKey32(src []byte, dst *ed25519.PublicKey, offset *int) {
	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src)
	*offset += ed25519.PublicKeySize
}

func GetOptionalKey32(src []byte, dst *ed25519.PublicKey, offset *int) error {
	if len(src) < 1 {
		return ErrShortBuffer
	}
	if src[0] == 0 {
		*offset += 1
		return nil
	}
	if len(src) < 1+ed25519.PublicKeySize {
		return ErrShortBuffer
	}

	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src[1:])
	*offset += 1 + ed25519.PublicKeySize
	return nil
}

func GetUint64(src []byte, dst *uint64, offset *int) {
	*dst = binary.LittleEndian.Uint64(src)
	*offset += 8
}

func GetInt64(src []byte, dst *int64, offset *int) {
	*dst = int64(binary.LittleEndian.Uint64(src))
	*offset += 8
}

func GetUint32(src []byte, dst *uint32, offset *int) {
	*dst = binary.LittleEndian.Uint32(src)
	*offset += 4
}

func GetUint16(src []byte, dst *uint16, offset *int) {
	*dst = binary.LittleEndian.Uint16(src)
	*offset += 2
}

func GetUint8(src []byte, dst *uint8, offset *int) {
	*dst = src[0]
	*offset += 1
}

func GetBool(src []byte, dst *bool, offset *int) {
	*dst = src[0] != 0
	*offset += 1
}

func GetString(src []byte, dst *string, offset *int) error {
	if len(src) < 4 {
		return ErrShortBuffer
	}

	length := int(binary.LittleEndian.Uint32(src))
	if len(src) < 4+length {
		return ErrShortBuffer
	}

	*dst = string(src[4 : 4+length])
	*offset += 4 + length
	return nil
}
