package keyagg

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaiclabs/soltss/pkg/curve"
)

func newKey(t *testing.T) *curve.Point {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	p, err := curve.DecodePublicKey(pub)
	require.NoError(t, err)
	return p
}

func TestAggregateIsPermutationInvariant(t *testing.T) {
	a, b, c := newKey(t), newKey(t), newKey(t)

	abc, err := Aggregate([]*curve.Point{a, b, c})
	require.NoError(t, err)
	cba, err := Aggregate([]*curve.Point{c, b, a})
	require.NoError(t, err)
	bac, err := Aggregate([]*curve.Point{b, a, c})
	require.NoError(t, err)

	assert.True(t, abc.Equal(cba))
	assert.True(t, abc.Equal(bac))
}

func TestAggregateRejectsDuplicates(t *testing.T) {
	a, b := newKey(t), newKey(t)
	_, err := Aggregate([]*curve.Point{a, b, a})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestAggregateRejectsTooFewKeys(t *testing.T) {
	a := newKey(t)
	_, err := Aggregate([]*curve.Point{a})
	assert.ErrorIs(t, err, ErrInvalidKeySet)

	_, err = Aggregate(nil)
	assert.ErrorIs(t, err, ErrInvalidKeySet)
}

func TestCoefficientBindsFullKeySet(t *testing.T) {
	a, b, c := newKey(t), newKey(t), newKey(t)

	coeffAB, err := Coefficient([]*curve.Point{a, b}, a)
	require.NoError(t, err)
	coeffAC, err := Coefficient([]*curve.Point{a, c}, a)
	require.NoError(t, err)

	// The same key's coefficient must change when any other key in the set
	// changes; otherwise a participant could grind a rogue key against a
	// fixed coefficient.
	assert.False(t, coeffAB.Equal(coeffAC))
}

func TestCoefficientRequiresMembership(t *testing.T) {
	a, b, outsider := newKey(t), newKey(t), newKey(t)
	_, err := Coefficient([]*curve.Point{a, b}, outsider)
	assert.ErrorIs(t, err, ErrKeyNotInSet)
}

func TestAggregateMatchesCoefficientDecomposition(t *testing.T) {
	a, b := newKey(t), newKey(t)
	keys := []*curve.Point{a, b}

	agg, err := Aggregate(keys)
	require.NoError(t, err)

	coeffA, err := Coefficient(keys, a)
	require.NoError(t, err)
	coeffB, err := Coefficient(keys, b)
	require.NoError(t, err)

	manual := curve.NewPoint().Add(
		curve.NewPoint().ScalarMult(coeffA, a),
		curve.NewPoint().ScalarMult(coeffB, b),
	)
	assert.True(t, agg.Equal(manual))
}
