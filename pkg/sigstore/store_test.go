package sigstore

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutAndGet(t *testing.T) {
	s := newTestStore(t)

	rec := Record{
		SessionID:     "abc-123",
		AggregatedKey: []byte{1, 2, 3},
		MessageDigest: []byte{4, 5, 6},
		Signature:     []byte{7, 8, 9},
		TransactionID: "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
		CompletedAt:   time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.Put(rec))

	got, err := s.Get("abc-123")
	require.NoError(t, err)
	assert.Equal(t, rec.SessionID, got.SessionID)
	assert.Equal(t, rec.AggregatedKey, got.AggregatedKey)
	assert.Equal(t, rec.MessageDigest, got.MessageDigest)
	assert.Equal(t, rec.Signature, got.Signature)
	assert.Equal(t, rec.TransactionID, got.TransactionID)
	assert.True(t, rec.CompletedAt.Equal(got.CompletedAt))
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("never-created")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutOverwrites(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Put(Record{SessionID: "x", TransactionID: ""}))
	require.NoError(t, s.Put(Record{SessionID: "x", TransactionID: "tx1"}))

	got, err := s.Get("x")
	require.NoError(t, err)
	assert.Equal(t, "tx1", got.TransactionID)
}
