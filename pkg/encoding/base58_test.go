package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase58RoundTrip(t *testing.T) {
	data := []byte{0, 1, 2, 3, 254, 255}
	decoded, err := DecodeBase58(EncodeBase58(data))
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestDecodeBase58Rejects(t *testing.T) {
	_, err := DecodeBase58("0OIl") // characters outside the alphabet
	assert.Error(t, err)
}

func TestDecodeBase58Sized(t *testing.T) {
	data := make([]byte, 32)
	data[0] = 7
	s := EncodeBase58(data)

	decoded, err := DecodeBase58Sized(s, 32)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)

	_, err = DecodeBase58Sized(s, 64)
	assert.ErrorIs(t, err, ErrInvalidSize)
}
