// Package keyagg combines participant public keys into a single aggregated
// key with rogue-key-resistant coefficient binding: every coefficient depends
// on the whole key set, so no participant can choose its key as a function of
// the others' keys to control the aggregate.
package keyagg

import (
	"bytes"
	"crypto/sha512"
	"errors"
	"sort"

	"github.com/mosaiclabs/soltss/pkg/curve"
)

var (
	ErrInvalidKeySet = errors.New("keyagg: at least two distinct public keys required")
	ErrDuplicateKey  = errors.New("keyagg: duplicate public key in set")
	ErrKeyNotInSet   = errors.New("keyagg: public key is not part of the key set")
)

// binding returns L = SHA-512 over the sorted canonical encodings of all
// keys. Sorting makes the aggregate permutation-invariant.
func binding(keys []*curve.Point) ([]byte, error) {
	if len(keys) < 2 {
		return nil, ErrInvalidKeySet
	}
	encoded := make([][]byte, len(keys))
	for i, k := range keys {
		encoded[i] = k.Bytes()
	}
	sort.Slice(encoded, func(i, j int) bool {
		return bytes.Compare(encoded[i], encoded[j]) < 0
	})
	h := sha512.New()
	for i, e := range encoded {
		if i > 0 && bytes.Equal(e, encoded[i-1]) {
			return nil, ErrDuplicateKey
		}
		h.Write(e)
	}
	return h.Sum(nil), nil
}

// Coefficient returns a = H(L || P) for one participant key P against the
// full key set.
func Coefficient(keys []*curve.Point, pub *curve.Point) (*curve.Scalar, error) {
	l, err := binding(keys)
	if err != nil {
		return nil, err
	}
	member := false
	for _, k := range keys {
		if k.Equal(pub) {
			member = true
			break
		}
	}
	if !member {
		return nil, ErrKeyNotInSet
	}
	return curve.HashToScalar(l, pub.Bytes()), nil
}

// Aggregate computes A = sum a_i * P_i with a_i = H(L || P_i). The result is
// deterministic and independent of the order keys are supplied in; every
// party re-derives it from the raw key set and never trusts a transmitted
// aggregate.
func Aggregate(keys []*curve.Point) (*curve.Point, error) {
	l, err := binding(keys)
	if err != nil {
		return nil, err
	}
	agg := curve.NewPoint()
	for _, k := range keys {
		a := curve.HashToScalar(l, k.Bytes())
		agg.Add(agg, curve.NewPoint().ScalarMult(a, k))
	}
	return agg, nil
}
