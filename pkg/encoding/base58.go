package encoding

import (
	"errors"

	"github.com/mr-tron/base58"
)

var ErrInvalidSize = errors.New("encoding: decoded base58 value has wrong length")

// EncodeBase58 encodes bytes in the base58 alphabet used for Solana keys and
// signatures.
func EncodeBase58(data []byte) string {
	return base58.Encode(data)
}

// DecodeBase58 decodes a base58 string back to bytes.
func DecodeBase58(s string) ([]byte, error) {
	return base58.Decode(s)
}

// DecodeBase58Sized decodes a base58 string and checks the decoded length.
func DecodeBase58Sized(s string, size int) ([]byte, error) {
	data, err := base58.Decode(s)
	if err != nil {
		return nil, err
	}
	if len(data) != size {
		return nil, ErrInvalidSize
	}
	return data, nil
}
