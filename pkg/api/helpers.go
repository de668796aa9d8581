package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gagliardetto/solana-go"

	"github.com/mosaiclabs/soltss/pkg/chain"
	"github.com/mosaiclabs/soltss/pkg/curve"
	"github.com/mosaiclabs/soltss/pkg/encoding"
	"github.com/mosaiclabs/soltss/pkg/keyagg"
	"github.com/mosaiclabs/soltss/pkg/musig"
	"github.com/mosaiclabs/soltss/pkg/session"
	"github.com/mosaiclabs/soltss/pkg/sigstore"
	"github.com/mosaiclabs/soltss/pkg/soltx"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// fail maps domain errors onto HTTP status codes. Anything unrecognized is an
// internal error; RPC failures go through failRPC instead.
func fail(w http.ResponseWriter, err error) {
	writeError(w, statusForErr(err), err.Error())
}

// failRPC reports an upstream cluster failure without leaking handler state.
func failRPC(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadGateway, "cluster rpc: "+err.Error())
}

func statusForErr(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, sigstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionBusy),
		errors.Is(err, session.ErrSessionExists),
		errors.Is(err, session.ErrNonceConsumed),
		errors.Is(err, session.ErrSessionImmutable):
		return http.StatusConflict
	case errors.Is(err, musig.ErrSignatureVerification),
		errors.Is(err, soltx.ErrSignatureVerification),
		errors.Is(err, soltx.ErrPayerMismatch),
		errors.Is(err, soltx.ErrMultipleSigners):
		return http.StatusUnprocessableEntity
	case errors.Is(err, musig.ErrInvalidMessage),
		errors.Is(err, musig.ErrInvalidKeySet),
		errors.Is(err, musig.ErrKeyMismatch),
		errors.Is(err, musig.ErrNonceCountMismatch),
		errors.Is(err, musig.ErrIncompleteSignatureSet),
		errors.Is(err, keyagg.ErrDuplicateKey),
		errors.Is(err, keyagg.ErrInvalidKeySet),
		errors.Is(err, keyagg.ErrKeyNotInSet),
		errors.Is(err, curve.ErrDecoding),
		errors.Is(err, curve.ErrIdentityPoint),
		errors.Is(err, encoding.ErrInvalidSize),
		errors.Is(err, soltx.ErrInvalidAmount),
		errors.Is(err, soltx.ErrInvalidSignature),
		errors.Is(err, chain.ErrUnsupportedNetwork):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// parsePoint decodes a base58 compressed curve point.
func parsePoint(s string) (*curve.Point, error) {
	raw, err := encoding.DecodeBase58Sized(s, curve.PointSize)
	if err != nil {
		return nil, err
	}
	return curve.DecodePublicKey(raw)
}

func parsePoints(ss []string) ([]*curve.Point, error) {
	points := make([]*curve.Point, len(ss))
	for i, s := range ss {
		p, err := parsePoint(s)
		if err != nil {
			return nil, err
		}
		points[i] = p
	}
	return points, nil
}

// parseScalar decodes a base58 canonical scalar, used for partial signatures
// on the wire.
func parseScalar(s string) (*curve.Scalar, error) {
	raw, err := encoding.DecodeBase58Sized(s, curve.ScalarSize)
	if err != nil {
		return nil, err
	}
	return curve.NewScalar().SetCanonicalBytes(raw)
}

func parseScalars(ss []string) ([]*curve.Scalar, error) {
	scalars := make([]*curve.Scalar, len(ss))
	for i, s := range ss {
		sc, err := parseScalar(s)
		if err != nil {
			return nil, err
		}
		scalars[i] = sc
	}
	return scalars, nil
}

// parseSeed decodes a base58 private key seed. The decoded bytes stay inside
// the handler and are never echoed back or logged.
func parseSeed(s string) ([]byte, error) {
	return encoding.DecodeBase58Sized(s, curve.SeedSize)
}

func parseSolanaKey(s string) (solana.PublicKey, error) {
	return solana.PublicKeyFromBase58(s)
}

func b58(data []byte) string { return encoding.EncodeBase58(data) }

// decodeMessageField decodes a base58 compiled transaction message.
func decodeMessageField(s string) ([]byte, error) {
	return encoding.DecodeBase58(s)
}
