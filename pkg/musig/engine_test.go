package musig

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaiclabs/soltss/pkg/curve"
	"github.com/mosaiclabs/soltss/pkg/keyagg"
	"github.com/mosaiclabs/soltss/pkg/session"
)

type party struct {
	seed   []byte
	pub    *curve.Point
	engine *Engine
	store  *session.Store
}

func newParty(t *testing.T, ttl time.Duration) *party {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	point, err := curve.DecodePublicKey(pub)
	require.NoError(t, err)

	store := session.NewStore(ttl, 10*time.Millisecond, zerolog.Nop())
	t.Cleanup(store.Close)

	return &party{
		seed:   priv.Seed(),
		pub:    point,
		engine: NewEngine(store, zerolog.Nop()),
		store:  store,
	}
}

func TestTwoPartyHappyPath(t *testing.T) {
	a := newParty(t, time.Minute)
	b := newParty(t, time.Minute)
	keys := []*curve.Point{a.pub, b.pub}
	msg := []byte("send 2 SOL to 6A2GHg17A2YUbLp7qma1pbvnS7deav7Tq3tthQHa8zt5")

	oneA, err := a.engine.StepOne(msg, keys, a.pub)
	require.NoError(t, err)
	oneB, err := b.engine.StepOne(msg, keys, b.pub)
	require.NoError(t, err)

	twoA, err := a.engine.StepTwo(oneA.SessionID, []*curve.Point{oneB.LocalNoncePoint}, a.seed)
	require.NoError(t, err)
	twoB, err := b.engine.StepTwo(oneB.SessionID, []*curve.Point{oneA.LocalNoncePoint}, b.seed)
	require.NoError(t, err)

	// Both parties derive the same aggregate nonce independently.
	assert.True(t, twoA.AggregateNoncePoint.Equal(twoB.AggregateNoncePoint))

	res, err := a.engine.Aggregate(oneA.SessionID, []*curve.Scalar{twoA.PartialSignature, twoB.PartialSignature})
	require.NoError(t, err)

	aggKey, err := keyagg.Aggregate(keys)
	require.NoError(t, err)
	assert.True(t, res.AggregatedKey.Equal(aggKey))

	// The aggregation is transparent to a standard Ed25519 verifier.
	assert.True(t, ed25519.Verify(ed25519.PublicKey(aggKey.Bytes()), msg, res.Signature))
}

func TestThreePartyHappyPath(t *testing.T) {
	parties := []*party{newParty(t, time.Minute), newParty(t, time.Minute), newParty(t, time.Minute)}
	keys := make([]*curve.Point, len(parties))
	for i, p := range parties {
		keys[i] = p.pub
	}
	msg := []byte("three-of-three transfer")

	ones := make([]*StepOneResult, len(parties))
	for i, p := range parties {
		var err error
		ones[i], err = p.engine.StepOne(msg, keys, p.pub)
		require.NoError(t, err)
	}

	partials := make([]*curve.Scalar, len(parties))
	for i, p := range parties {
		var remotes []*curve.Point
		for j := range parties {
			if j != i {
				remotes = append(remotes, ones[j].LocalNoncePoint)
			}
		}
		two, err := p.engine.StepTwo(ones[i].SessionID, remotes, p.seed)
		require.NoError(t, err)
		partials[i] = two.PartialSignature
	}

	res, err := parties[0].engine.Aggregate(ones[0].SessionID, partials)
	require.NoError(t, err)

	aggKey, err := keyagg.Aggregate(keys)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(aggKey.Bytes()), msg, res.Signature))
}

func TestStepOneValidation(t *testing.T) {
	a := newParty(t, time.Minute)
	b := newParty(t, time.Minute)
	keys := []*curve.Point{a.pub, b.pub}

	_, err := a.engine.StepOne(nil, keys, a.pub)
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = a.engine.StepOne([]byte("m"), []*curve.Point{a.pub}, a.pub)
	assert.ErrorIs(t, err, ErrInvalidKeySet)

	_, err = a.engine.StepOne([]byte("m"), []*curve.Point{a.pub, a.pub}, a.pub)
	assert.ErrorIs(t, err, ErrInvalidKeySet)

	c := newParty(t, time.Minute)
	_, err = a.engine.StepOne([]byte("m"), keys, c.pub)
	assert.ErrorIs(t, err, ErrInvalidKeySet)
}

func TestNonceSingleUse(t *testing.T) {
	a := newParty(t, time.Minute)
	b := newParty(t, time.Minute)
	keys := []*curve.Point{a.pub, b.pub}
	msg := []byte("nonce reuse check")

	oneA, err := a.engine.StepOne(msg, keys, a.pub)
	require.NoError(t, err)
	oneB, err := b.engine.StepOne(msg, keys, b.pub)
	require.NoError(t, err)

	_, err = a.engine.StepTwo(oneA.SessionID, []*curve.Point{oneB.LocalNoncePoint}, a.seed)
	require.NoError(t, err)

	// Second invocation must fail unconditionally, never idempotently.
	_, err = a.engine.StepTwo(oneA.SessionID, []*curve.Point{oneB.LocalNoncePoint}, a.seed)
	assert.ErrorIs(t, err, session.ErrNonceConsumed)
}

func TestStepTwoValidation(t *testing.T) {
	a := newParty(t, time.Minute)
	b := newParty(t, time.Minute)
	keys := []*curve.Point{a.pub, b.pub}

	_, err := a.engine.StepTwo("unknown", nil, a.seed)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	oneA, err := a.engine.StepOne([]byte("m"), keys, a.pub)
	require.NoError(t, err)

	// Wrong number of remote nonce points.
	_, err = a.engine.StepTwo(oneA.SessionID, nil, a.seed)
	assert.ErrorIs(t, err, ErrNonceCountMismatch)

	// Wrong private key for the session's local public key.
	oneB, err := b.engine.StepOne([]byte("m"), keys, b.pub)
	require.NoError(t, err)
	_, err = a.engine.StepTwo(oneA.SessionID, []*curve.Point{oneB.LocalNoncePoint}, b.seed)
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestIncompleteSignatureSet(t *testing.T) {
	a := newParty(t, time.Minute)
	b := newParty(t, time.Minute)
	keys := []*curve.Point{a.pub, b.pub}
	msg := []byte("incomplete")

	oneA, err := a.engine.StepOne(msg, keys, a.pub)
	require.NoError(t, err)
	oneB, err := b.engine.StepOne(msg, keys, b.pub)
	require.NoError(t, err)

	twoA, err := a.engine.StepTwo(oneA.SessionID, []*curve.Point{oneB.LocalNoncePoint}, a.seed)
	require.NoError(t, err)

	_, err = a.engine.Aggregate(oneA.SessionID, []*curve.Scalar{twoA.PartialSignature})
	assert.ErrorIs(t, err, ErrIncompleteSignatureSet)
}

func TestAggregateBeforeStepTwo(t *testing.T) {
	a := newParty(t, time.Minute)
	b := newParty(t, time.Minute)
	keys := []*curve.Point{a.pub, b.pub}

	oneA, err := a.engine.StepOne([]byte("m"), keys, a.pub)
	require.NoError(t, err)

	s1, err := curve.RandomScalar()
	require.NoError(t, err)
	s2, err := curve.RandomScalar()
	require.NoError(t, err)
	_, err = a.engine.Aggregate(oneA.SessionID, []*curve.Scalar{s1, s2})
	assert.ErrorIs(t, err, ErrIncompleteSignatureSet)
}

func TestTamperedPartialDetected(t *testing.T) {
	a := newParty(t, time.Minute)
	b := newParty(t, time.Minute)
	keys := []*curve.Point{a.pub, b.pub}
	msg := []byte("tamper check")

	oneA, err := a.engine.StepOne(msg, keys, a.pub)
	require.NoError(t, err)
	oneB, err := b.engine.StepOne(msg, keys, b.pub)
	require.NoError(t, err)

	twoA, err := a.engine.StepTwo(oneA.SessionID, []*curve.Point{oneB.LocalNoncePoint}, a.seed)
	require.NoError(t, err)
	_, err = b.engine.StepTwo(oneB.SessionID, []*curve.Point{oneA.LocalNoncePoint}, b.seed)
	require.NoError(t, err)

	bogus, err := curve.RandomScalar()
	require.NoError(t, err)
	_, err = a.engine.Aggregate(oneA.SessionID, []*curve.Scalar{twoA.PartialSignature, bogus})
	assert.ErrorIs(t, err, ErrSignatureVerification)
}

func TestMismatchedMessagesDetected(t *testing.T) {
	a := newParty(t, time.Minute)
	b := newParty(t, time.Minute)
	keys := []*curve.Point{a.pub, b.pub}

	// B signs a message that differs by one bit from A's.
	msgA := []byte("pay 1 SOL")
	msgB := []byte("pay 9 SOL")

	oneA, err := a.engine.StepOne(msgA, keys, a.pub)
	require.NoError(t, err)
	oneB, err := b.engine.StepOne(msgB, keys, b.pub)
	require.NoError(t, err)

	twoA, err := a.engine.StepTwo(oneA.SessionID, []*curve.Point{oneB.LocalNoncePoint}, a.seed)
	require.NoError(t, err)
	twoB, err := b.engine.StepTwo(oneB.SessionID, []*curve.Point{oneA.LocalNoncePoint}, b.seed)
	require.NoError(t, err)

	_, err = a.engine.Aggregate(oneA.SessionID, []*curve.Scalar{twoA.PartialSignature, twoB.PartialSignature})
	assert.ErrorIs(t, err, ErrSignatureVerification)
}

func TestAggregatedSessionIsConsumed(t *testing.T) {
	a := newParty(t, time.Minute)
	b := newParty(t, time.Minute)
	keys := []*curve.Point{a.pub, b.pub}
	msg := []byte("finality")

	oneA, err := a.engine.StepOne(msg, keys, a.pub)
	require.NoError(t, err)
	oneB, err := b.engine.StepOne(msg, keys, b.pub)
	require.NoError(t, err)

	twoA, err := a.engine.StepTwo(oneA.SessionID, []*curve.Point{oneB.LocalNoncePoint}, a.seed)
	require.NoError(t, err)
	twoB, err := b.engine.StepTwo(oneB.SessionID, []*curve.Point{oneA.LocalNoncePoint}, b.seed)
	require.NoError(t, err)

	_, err = a.engine.Aggregate(oneA.SessionID, []*curve.Scalar{twoA.PartialSignature, twoB.PartialSignature})
	require.NoError(t, err)

	// The session is gone; further mutation attempts see not-found.
	_, err = a.engine.StepTwo(oneA.SessionID, []*curve.Point{oneB.LocalNoncePoint}, a.seed)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	_, err = a.engine.Aggregate(oneA.SessionID, []*curve.Scalar{twoA.PartialSignature, twoB.PartialSignature})
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestExpiredSessionRejected(t *testing.T) {
	a := newParty(t, 20*time.Millisecond)
	b := newParty(t, time.Minute)
	keys := []*curve.Point{a.pub, b.pub}

	oneA, err := a.engine.StepOne([]byte("m"), keys, a.pub)
	require.NoError(t, err)
	oneB, err := b.engine.StepOne([]byte("m"), keys, b.pub)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return a.store.Len() == 0
	}, time.Second, 5*time.Millisecond)

	_, err = a.engine.StepTwo(oneA.SessionID, []*curve.Point{oneB.LocalNoncePoint}, a.seed)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}
