// Package shortvec implements the compact-u16 length prefix used in Solana
// transaction encoding.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

const maxEncodedBytes = 3

// EncodeLen writes length to w, seven bits per byte. Lengths above
// math.MaxUint16 are rejected.
func EncodeLen(w io.Writer, length int) (int, error) {
	if length < 0 || length > math.MaxUint16 {
		return 0, errors.Errorf("length %d out of range", length)
	}

	var encoded []byte
	for {
		b := byte(length & 0x7f)
		length >>= 7
		if length == 0 {
			encoded = append(encoded, b)
			break
		}
		encoded = append(encoded, b|0x80)
	}

	return w.Write(encoded)
}

// DecodeLen reads a length written by EncodeLen.
func DecodeLen(r io.Reader) (int, error) {
	var (
		value int
		b     [1]byte
	)

	for i := 0; ; i++ {
		if i == maxEncodedBytes {
			return 0, errors.Errorf("encoded length exceeds %d bytes", maxEncodedBytes)
		}

		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}

		value |= int(b[0]&0x7f) << (7 * i)
		if b[0]&0x80 == 0 {
			return value, nil
		}
	}
}
