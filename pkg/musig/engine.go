// Package musig implements the two-round aggregated-signature protocol over
// Ed25519. Step one commits a fresh nonce into a server-side session, step
// two consumes the nonce exactly once to produce this party's partial
// signature, and Aggregate sums the partial signatures into a standard
// Ed25519 signature verifiable against the aggregated public key.
package musig

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mosaiclabs/soltss/pkg/curve"
	"github.com/mosaiclabs/soltss/pkg/keyagg"
	"github.com/mosaiclabs/soltss/pkg/session"
)

var (
	ErrInvalidMessage         = errors.New("musig: message is empty")
	ErrInvalidKeySet          = errors.New("musig: key set must contain at least two distinct keys including the local key")
	ErrKeyMismatch            = errors.New("musig: private key does not correspond to the session's local public key")
	ErrNonceCountMismatch     = errors.New("musig: expected exactly one remote nonce point per counterparty")
	ErrIncompleteSignatureSet = errors.New("musig: fewer partial signatures than participants")
	ErrSignatureVerification  = errors.New("musig: aggregated signature failed verification")
)

// Engine drives signing sessions through commit, partial-sign and aggregate.
// All transitions validate the session's current state before acting; nothing
// blocks on I/O.
type Engine struct {
	store  *session.Store
	logger zerolog.Logger
}

func NewEngine(store *session.Store, logger zerolog.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

type StepOneResult struct {
	SessionID       string
	LocalNoncePoint *curve.Point
}

type StepTwoResult struct {
	AggregateNoncePoint *curve.Point
	PartialSignature    *curve.Scalar
}

type AggregateResult struct {
	Signature     []byte
	Message       []byte
	AggregatedKey *curve.Point
}

// StepOne opens a signing session for message under the given participant
// set. It generates a fresh random nonce, keeps the secret half in the
// session, and returns the public nonce point for the caller to relay to the
// counterparties out-of-band.
func (e *Engine) StepOne(message []byte, keys []*curve.Point, selfPub *curve.Point) (*StepOneResult, error) {
	if len(message) == 0 {
		return nil, ErrInvalidMessage
	}
	if err := validateKeySet(keys, selfPub); err != nil {
		return nil, err
	}

	nonce, err := curve.RandomScalar()
	if err != nil {
		return nil, err
	}
	noncePoint := curve.NewPoint().ScalarBaseMult(nonce)

	sess, err := e.store.Create(message, keys, selfPub, nonce, noncePoint)
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("sessionID", sess.ID).
		Int("participants", len(keys)).
		Msg("Signing session opened")

	return &StepOneResult{SessionID: sess.ID, LocalNoncePoint: noncePoint}, nil
}

// StepTwo consumes the session's nonce: it absorbs the counterparties' nonce
// points, computes the aggregate nonce and the Fiat-Shamir challenge, and
// produces this party's partial signature
//
//	s_self = nonce + e * a_self * x  (mod L)
//
// The nonce secret is erased before returning; invoking StepTwo again on the
// same session fails with ErrNonceConsumed, never idempotently.
func (e *Engine) StepTwo(sessionID string, remoteNoncePoints []*curve.Point, privateSeed []byte) (*StepTwoResult, error) {
	sess, err := e.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.TryLock() {
		return nil, session.ErrSessionBusy
	}
	defer sess.Unlock()

	switch sess.Status {
	case session.StatusAwaitingCommit:
		// Nonce still available.
	case session.StatusAggregated:
		return nil, session.ErrSessionImmutable
	case session.StatusExpired:
		return nil, session.ErrSessionNotFound
	default:
		return nil, session.ErrNonceConsumed
	}

	if len(remoteNoncePoints) != len(sess.ParticipantKeys)-1 {
		return nil, ErrNonceCountMismatch
	}

	priv, err := curve.ScalarFromSeed(privateSeed)
	if err != nil {
		return nil, err
	}
	defer priv.Wipe()

	if !curve.NewPoint().ScalarBaseMult(priv).Equal(sess.SelfKey) {
		return nil, ErrKeyMismatch
	}

	aggNonce := curve.NewPoint().Set(sess.LocalNoncePoint)
	for _, r := range remoteNoncePoints {
		aggNonce.Add(aggNonce, r)
	}

	aggKey, err := keyagg.Aggregate(sess.ParticipantKeys)
	if err != nil {
		return nil, err
	}
	coeff, err := keyagg.Coefficient(sess.ParticipantKeys, sess.SelfKey)
	if err != nil {
		return nil, err
	}

	challenge := curve.Challenge(aggNonce, aggKey, sess.Message)

	partial := curve.NewScalar().Multiply(challenge, coeff)
	partial.Multiply(partial, priv)
	partial.Add(partial, sess.NonceSecret())

	// The nonce has now contributed to a signature over this message and
	// must never sign anything else.
	sess.ConsumeNonce()
	sess.RemoteNoncePoints = remoteNoncePoints
	sess.AggregateNoncePoint = aggNonce
	sess.Status = session.StatusAwaitingPartial
	sess.Touch()

	e.logger.Info().Str("sessionID", sess.ID).Msg("Partial signature produced, nonce consumed")

	return &StepTwoResult{AggregateNoncePoint: aggNonce, PartialSignature: partial}, nil
}

// Aggregate sums the full set of partial signatures into the final signature
// (R || s) and verifies it against the aggregated key and the session message
// before returning it. On success the session becomes immutable and its
// remaining state is dropped from the store.
func (e *Engine) Aggregate(sessionID string, partials []*curve.Scalar) (*AggregateResult, error) {
	sess, err := e.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.TryLock() {
		return nil, session.ErrSessionBusy
	}
	defer sess.Unlock()

	switch sess.Status {
	case session.StatusAggregated:
		return nil, session.ErrSessionImmutable
	case session.StatusExpired:
		return nil, session.ErrSessionNotFound
	case session.StatusAwaitingPartial:
		// Ready to aggregate.
	default:
		// Step two has not run; the aggregate nonce is unknown.
		return nil, ErrIncompleteSignatureSet
	}

	if len(partials) != len(sess.ParticipantKeys) {
		return nil, ErrIncompleteSignatureSet
	}

	sum := curve.NewScalar()
	for _, p := range partials {
		sum.Add(sum, p)
	}

	sig := make([]byte, 0, curve.SignatureSize)
	sig = append(sig, sess.AggregateNoncePoint.Bytes()...)
	sig = append(sig, sum.Bytes()...)

	aggKey, err := keyagg.Aggregate(sess.ParticipantKeys)
	if err != nil {
		return nil, err
	}

	// A construction bug, a mismatched message or a tampered partial must
	// never surface as a valid signature.
	if !curve.Verify(aggKey, sess.Message, sig) {
		e.logger.Error().Str("sessionID", sess.ID).Msg("Aggregated signature failed verification")
		return nil, ErrSignatureVerification
	}

	sess.Status = session.StatusAggregated
	message := sess.Message
	e.store.Remove(sess.ID)

	e.logger.Info().Str("sessionID", sess.ID).Msg("Signature aggregated and verified")

	return &AggregateResult{Signature: sig, Message: message, AggregatedKey: aggKey}, nil
}

func validateKeySet(keys []*curve.Point, selfPub *curve.Point) error {
	if len(keys) < 2 {
		return ErrInvalidKeySet
	}
	member := false
	for i, k := range keys {
		for _, other := range keys[i+1:] {
			if k.Equal(other) {
				return fmt.Errorf("%w: %v", ErrInvalidKeySet, keyagg.ErrDuplicateKey)
			}
		}
		if k.Equal(selfPub) {
			member = true
		}
	}
	if !member {
		return ErrInvalidKeySet
	}
	return nil
}
