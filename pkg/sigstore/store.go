// Package sigstore persists records of completed signing sessions so a
// finished signature can be looked up after the in-memory session is gone.
// Only public material is stored: the aggregated key, the message digest, the
// signature and the broadcast transaction id.
package sigstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("sigstore: no record for session")

// Record is one completed signing session.
type Record struct {
	SessionID     string    `cbor:"1,keyasint"`
	AggregatedKey []byte    `cbor:"2,keyasint"`
	MessageDigest []byte    `cbor:"3,keyasint"`
	Signature     []byte    `cbor:"4,keyasint"`
	TransactionID string    `cbor:"5,keyasint"`
	CompletedAt   time.Time `cbor:"6,keyasint"`
}

// Store is a badger-backed record store keyed by session id.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Open opens (or creates) the store under dir.
func Open(dir string, logger zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("sigstore: open %s: %w", dir, err)
	}
	return &Store{db: db, logger: logger}, nil
}

func key(sessionID string) []byte {
	return []byte("sig/" + sessionID)
}

// Put stores a completed record.
func (s *Store) Put(rec Record) error {
	data, err := cbor.Marshal(rec)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(rec.SessionID), data)
	})
	if err != nil {
		return err
	}
	s.logger.Debug().Str("sessionID", rec.SessionID).Msg("Stored signature record")
	return nil
}

// Get loads the record for a session id.
func (s *Store) Get(sessionID string) (Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(sessionID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &rec)
		})
	})
	return rec, err
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
