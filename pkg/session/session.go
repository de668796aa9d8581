package session

import (
	"sync"
	"time"

	"github.com/mosaiclabs/soltss/pkg/curve"
)

type Status string

const (
	StatusAwaitingCommit  Status = "awaiting_commit"
	StatusAwaitingPartial Status = "awaiting_partial"
	StatusAggregated      Status = "aggregated"
	StatusExpired         Status = "expired"
)

// Session holds the per-signing-attempt state between the commit round and
// aggregation. The nonce secret lives only here, in memory, and is wiped the
// moment it is consumed or the session expires.
type Session struct {
	ID              string
	Message         []byte
	ParticipantKeys []*curve.Point
	SelfKey         *curve.Point

	LocalNoncePoint     *curve.Point
	RemoteNoncePoints   []*curve.Point
	AggregateNoncePoint *curve.Point
	Status              Status

	nonceSecret *curve.Scalar
	createdAt   time.Time
	touchedAt   time.Time

	mu sync.Mutex
}

// TryLock attempts to take the session's exclusive lock without blocking.
// Step two, aggregation and the expiry sweep all run under this lock, so two
// interleaved calls can never both consume the nonce.
func (s *Session) TryLock() bool { return s.mu.TryLock() }

func (s *Session) Unlock() { s.mu.Unlock() }

// NonceSecret returns the local nonce scalar. Callers must hold the session
// lock and must never serialize or log the value.
func (s *Session) NonceSecret() *curve.Scalar { return s.nonceSecret }

// ConsumeNonce wipes and detaches the nonce secret. Once called, the secret
// is unrecoverable; a second step-two attempt has nothing left to sign with.
func (s *Session) ConsumeNonce() {
	if s.nonceSecret != nil {
		s.nonceSecret.Wipe()
		s.nonceSecret = nil
	}
}

// Touch resets the inactivity clock. Callers must hold the session lock.
func (s *Session) Touch() { s.touchedAt = time.Now() }

func (s *Session) expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.touchedAt) > ttl
}
