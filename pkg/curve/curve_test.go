package curve

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarFromSeedMatchesStdlibPublicKey(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	s, err := ScalarFromSeed(priv.Seed())
	require.NoError(t, err)

	point := NewPoint().ScalarBaseMult(s)
	assert.Equal(t, []byte(pub), point.Bytes(),
		"clamped seed scalar times base point must reproduce the stdlib public key")
}

func TestVerifyAcceptsStdlibSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	msg := []byte("transfer 1 SOL to the treasury")
	sig := ed25519.Sign(priv, msg)

	point, err := DecodePublicKey(pub)
	require.NoError(t, err)

	assert.True(t, Verify(point, msg, sig))

	tampered := append([]byte(nil), sig...)
	tampered[5] ^= 0x01
	assert.False(t, Verify(point, msg, tampered))

	assert.False(t, Verify(point, append(msg, 'x'), sig))
}

func TestDecodePublicKeyRejectsGarbage(t *testing.T) {
	_, err := DecodePublicKey(make([]byte, 31))
	assert.ErrorIs(t, err, ErrDecoding)

	// Roughly half of all 32-byte strings are not valid point encodings;
	// scan for one and make sure it is rejected with a decoding error.
	found := false
	for i := 0; i < 256 && !found; i++ {
		bad := make([]byte, 32)
		bad[0] = byte(i)
		if _, err := NewPoint().SetBytes(bad); err != nil {
			assert.ErrorIs(t, err, ErrDecoding)
			found = true
		}
	}
	assert.True(t, found, "expected at least one invalid encoding in the scan")
}

func TestDecodePublicKeyRejectsIdentity(t *testing.T) {
	identity := NewPoint()
	_, err := DecodePublicKey(identity.Bytes())
	assert.ErrorIs(t, err, ErrIdentityPoint)
}

func TestSetCanonicalBytesRejectsUnreducedScalar(t *testing.T) {
	// The group order L itself is not a canonical encoding.
	unreduced := make([]byte, 32)
	for i := range unreduced {
		unreduced[i] = 0xff
	}
	_, err := NewScalar().SetCanonicalBytes(unreduced)
	assert.ErrorIs(t, err, ErrDecoding)
}

func TestHashToScalarDeterministic(t *testing.T) {
	a := HashToScalar([]byte("alpha"), []byte("beta"))
	b := HashToScalar([]byte("alpha"), []byte("beta"))
	c := HashToScalar([]byte("alpha"), []byte("gamma"))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestScalarArithmetic(t *testing.T) {
	a, err := RandomScalar()
	require.NoError(t, err)
	b, err := RandomScalar()
	require.NoError(t, err)

	// (a+b)*G == a*G + b*G
	sum := NewScalar().Add(a, b)
	left := NewPoint().ScalarBaseMult(sum)
	right := NewPoint().Add(NewPoint().ScalarBaseMult(a), NewPoint().ScalarBaseMult(b))
	assert.True(t, left.Equal(right))
}

func TestWipeZeroesScalar(t *testing.T) {
	s, err := RandomScalar()
	require.NoError(t, err)
	s.Wipe()
	assert.True(t, s.Equal(NewScalar()))
}
