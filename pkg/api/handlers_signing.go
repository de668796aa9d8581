package api

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mosaiclabs/soltss/pkg/keyagg"
	"github.com/mosaiclabs/soltss/pkg/sigstore"
	"github.com/mosaiclabs/soltss/pkg/soltx"
)

func (s *Server) handleAggregateKeys(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keys []string `json:"keys"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	keys, err := parsePoints(req.Keys)
	if err != nil {
		fail(w, err)
		return
	}
	aggregated, err := keyagg.Aggregate(keys)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"aggregated_key": b58(aggregated.Bytes())})
}

func (s *Server) handleStepOne(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message     string   `json:"message"`
		Keys        []string `json:"keys"`
		PublicShare string   `json:"public_share"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	message, err := decodeMessageField(req.Message)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message encoding")
		return
	}
	keys, err := parsePoints(req.Keys)
	if err != nil {
		fail(w, err)
		return
	}
	self, err := parsePoint(req.PublicShare)
	if err != nil {
		fail(w, err)
		return
	}

	res, err := s.engine.StepOne(message, keys, self)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id":        res.SessionID,
		"local_nonce_point": b58(res.LocalNoncePoint.Bytes()),
	})
}

func (s *Server) handleStepTwo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID         string   `json:"session_id"`
		RemoteNoncePoints []string `json:"remote_nonce_points"`
		SecretSeed        string   `json:"secret_seed"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	remotes, err := parsePoints(req.RemoteNoncePoints)
	if err != nil {
		fail(w, err)
		return
	}
	seed, err := parseSeed(req.SecretSeed)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid secret seed")
		return
	}

	res, err := s.engine.StepTwo(req.SessionID, remotes, seed)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"aggregate_nonce_point": b58(res.AggregateNoncePoint.Bytes()),
		"partial_signature":     b58(res.PartialSignature.Bytes()),
	})
}

func (s *Server) handleAggregateSignatures(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID         string   `json:"session_id"`
		PartialSignatures []string `json:"partial_signatures"`
		Net               string   `json:"net"`
		Broadcast         bool     `json:"broadcast"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	partials, err := parseScalars(req.PartialSignatures)
	if err != nil {
		fail(w, err)
		return
	}

	res, err := s.engine.Aggregate(req.SessionID, partials)
	if err != nil {
		fail(w, err)
		return
	}

	tx, err := soltx.Attach(res.Message, res.AggregatedKey, res.Signature)
	if err != nil {
		fail(w, err)
		return
	}
	rawTx, err := tx.MarshalBinary()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "transaction encoding failed")
		return
	}

	// The session is gone from the store once aggregated, so the record must
	// be durable before broadcast can fail the request.
	digest := sha256.Sum256(res.Message)
	rec := sigstore.Record{
		SessionID:     req.SessionID,
		AggregatedKey: res.AggregatedKey.Bytes(),
		MessageDigest: digest[:],
		Signature:     res.Signature,
		CompletedAt:   time.Now().UTC(),
	}
	if err := s.sigs.Put(rec); err != nil {
		s.logger.Error().Err(err).Str("sessionID", req.SessionID).Msg("Failed to persist signature record")
	}

	txID := ""
	if req.Broadcast {
		client, ok := s.chainFor(w, req.Net)
		if !ok {
			return
		}
		sig, err := client.SendTransaction(r.Context(), tx)
		if err != nil {
			failRPC(w, err)
			return
		}
		txID = sig.String()

		rec.TransactionID = txID
		if err := s.sigs.Put(rec); err != nil {
			s.logger.Error().Err(err).Str("sessionID", req.SessionID).Msg("Failed to update signature record")
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"signature":          b58(res.Signature),
		"aggregated_key":     b58(res.AggregatedKey.Bytes()),
		"signed_transaction": b58(rawTx),
		"transaction_id":     txID,
	})
}

func (s *Server) handleGetSignature(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	rec, err := s.sigs.Get(sessionID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":     rec.SessionID,
		"aggregated_key": b58(rec.AggregatedKey),
		"message_digest": b58(rec.MessageDigest),
		"signature":      b58(rec.Signature),
		"transaction_id": rec.TransactionID,
		"completed_at":   rec.CompletedAt,
	})
}
