// Package session implements the in-memory nonce session store backing the
// signing protocol. Sessions are keyed by an opaque server-generated id, with
// at most one live session per (message, participant key set) identity, and
// are evicted after a bounded inactivity window so unused nonce secrets do
// not linger.
package session

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mosaiclabs/soltss/pkg/curve"
)

var (
	ErrSessionNotFound  = errors.New("session: unknown or expired session")
	ErrSessionBusy      = errors.New("session: another request is mutating this session")
	ErrSessionExists    = errors.New("session: a live session for this message and key set already exists")
	ErrNonceConsumed    = errors.New("session: nonce already consumed for this session")
	ErrSessionImmutable = errors.New("session: session already aggregated")
)

// Store keeps live signing sessions in memory. It is safe for concurrent use;
// cross-session operations take the store lock, per-session mutation takes
// the session lock.
type Store struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	byIdentity map[[32]byte]string

	ttl    time.Duration
	logger zerolog.Logger
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewStore creates a store whose sessions expire after ttl of inactivity.
// A background sweep runs every sweepEvery until Close is called.
func NewStore(ttl, sweepEvery time.Duration, logger zerolog.Logger) *Store {
	s := &Store{
		sessions:   make(map[string]*Session),
		byIdentity: make(map[[32]byte]string),
		ttl:        ttl,
		logger:     logger,
		done:       make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweep(sweepEvery)
	return s
}

// identity derives the dedupe key for a signing attempt. The key set is
// sorted first so the identity is stable under permutation, matching the
// aggregated key's permutation invariance.
func identity(message []byte, keys []*curve.Point) [32]byte {
	encoded := make([][]byte, len(keys))
	for i, k := range keys {
		encoded[i] = k.Bytes()
	}
	sort.Slice(encoded, func(i, j int) bool {
		return bytes.Compare(encoded[i], encoded[j]) < 0
	})
	h := sha256.New()
	h.Write(message)
	for _, e := range encoded {
		h.Write(e)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Create registers a new session in AwaitingCommit. The store takes ownership
// of the nonce secret and is responsible for erasing it.
func (s *Store) Create(message []byte, keys []*curve.Point, selfKey *curve.Point, nonceSecret *curve.Scalar, noncePoint *curve.Point) (*Session, error) {
	id := identity(message, keys)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byIdentity[id]; ok {
		if existing, ok := s.sessions[existingID]; ok {
			if !existing.expired(s.ttl, time.Now()) {
				return nil, ErrSessionExists
			}
			// Expired but not yet swept. Wipe it here; once evicted from
			// the maps no sweep would ever reach it.
			if !existing.TryLock() {
				return nil, ErrSessionExists
			}
			existing.ConsumeNonce()
			existing.Status = StatusExpired
			existing.Unlock()
		}
		s.evictLocked(existingID, id)
	}

	now := time.Now()
	sess := &Session{
		ID:              uuid.NewString(),
		Message:         append([]byte(nil), message...),
		ParticipantKeys: keys,
		SelfKey:         selfKey,
		LocalNoncePoint: noncePoint,
		Status:          StatusAwaitingCommit,
		nonceSecret:     nonceSecret,
		createdAt:       now,
		touchedAt:       now,
	}
	s.sessions[sess.ID] = sess
	s.byIdentity[id] = sess.ID

	s.logger.Debug().Str("sessionID", sess.ID).Int("participants", len(keys)).Msg("Created signing session")
	return sess, nil
}

// Get returns a live session by id. Expired sessions are treated as unknown
// and evicted lazily.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.expired(s.ttl, time.Now()) {
		if sess.TryLock() {
			sess.ConsumeNonce()
			sess.Status = StatusExpired
			sess.Unlock()
			s.evictLocked(id, identity(sess.Message, sess.ParticipantKeys))
		}
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Remove drops a session once it has been aggregated. Its secret material has
// already been wiped by that point.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		s.evictLocked(id, identity(sess.Message, sess.ParticipantKeys))
	}
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the background sweep.
func (s *Store) Close() {
	close(s.done)
	s.wg.Wait()
}

func (s *Store) evictLocked(id string, ident [32]byte) {
	delete(s.sessions, id)
	if s.byIdentity[ident] == id {
		delete(s.byIdentity, ident)
	}
}

func (s *Store) sweep(every time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *Store) sweepOnce() {
	now := time.Now()

	s.mu.Lock()
	expired := make([]*Session, 0)
	for _, sess := range s.sessions {
		if sess.expired(s.ttl, now) {
			expired = append(expired, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		// A session being actively mutated is skipped; the next sweep or a
		// lazy Get will catch it.
		if !sess.TryLock() {
			continue
		}
		sess.ConsumeNonce()
		sess.Status = StatusExpired
		sess.Unlock()

		s.mu.Lock()
		s.evictLocked(sess.ID, identity(sess.Message, sess.ParticipantKeys))
		s.mu.Unlock()

		s.logger.Debug().Str("sessionID", sess.ID).Msg("Expired signing session evicted")
	}
}
