// Package curve wraps the edwards25519 group operations used by the
// aggregated-signature protocol: scalar arithmetic modulo the group order,
// point addition and scalar multiplication, and deterministic hash-to-scalar.
// All decoders reject malformed or non-canonical encodings before any
// arithmetic happens.
package curve

import (
	"crypto/rand"
	"crypto/sha512"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	// ScalarSize is the canonical encoding length of a scalar.
	ScalarSize = 32
	// PointSize is the canonical encoding length of a compressed point.
	PointSize = 32
	// SignatureSize is the length of an Ed25519-compatible signature (R || s).
	SignatureSize = 64
	// SeedSize is the length of an Ed25519 private key seed.
	SeedSize = 32
)

var (
	ErrDecoding      = errors.New("curve: malformed or non-canonical encoding")
	ErrIdentityPoint = errors.New("curve: point is the identity element")
)

// Scalar is an integer modulo the edwards25519 group order. The zero value is
// the scalar zero and ready to use.
type Scalar struct {
	v edwards25519.Scalar
}

func NewScalar() *Scalar { return &Scalar{} }

// Add sets s = a + b (mod L) and returns s.
func (s *Scalar) Add(a, b *Scalar) *Scalar {
	s.v.Add(&a.v, &b.v)
	return s
}

// Multiply sets s = a * b (mod L) and returns s.
func (s *Scalar) Multiply(a, b *Scalar) *Scalar {
	s.v.Multiply(&a.v, &b.v)
	return s
}

// Set copies a into s and returns s.
func (s *Scalar) Set(a *Scalar) *Scalar {
	s.v.Set(&a.v)
	return s
}

// Bytes returns the canonical 32-byte little-endian encoding of s.
func (s *Scalar) Bytes() []byte { return s.v.Bytes() }

func (s *Scalar) Equal(b *Scalar) bool { return s.v.Equal(&b.v) == 1 }

// SetCanonicalBytes decodes a canonical 32-byte scalar encoding. Values that
// are not fully reduced are rejected, never silently reduced.
func (s *Scalar) SetCanonicalBytes(b []byte) (*Scalar, error) {
	if len(b) != ScalarSize {
		return nil, fmt.Errorf("%w: scalar must be %d bytes, got %d", ErrDecoding, ScalarSize, len(b))
	}
	if _, err := s.v.SetCanonicalBytes(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecoding, err)
	}
	return s, nil
}

// Wipe overwrites the scalar with zero. Callers use it to erase secret
// material as soon as it has been consumed.
func (s *Scalar) Wipe() {
	var zero edwards25519.Scalar
	s.v.Set(&zero)
}

// RandomScalar returns a uniformly random scalar from crypto/rand.
func RandomScalar() (*Scalar, error) {
	var buf [64]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("curve: reading randomness: %w", err)
	}
	s := NewScalar()
	if _, err := s.v.SetUniformBytes(buf[:]); err != nil {
		return nil, err
	}
	return s, nil
}

// ScalarFromSeed derives the RFC 8032 signing scalar from a 32-byte Ed25519
// seed: SHA-512 the seed and clamp the low half.
func ScalarFromSeed(seed []byte) (*Scalar, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes, got %d", ErrDecoding, SeedSize, len(seed))
	}
	h := sha512.Sum512(seed)
	s := NewScalar()
	if _, err := s.v.SetBytesWithClamping(h[:32]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecoding, err)
	}
	return s, nil
}

// HashToScalar hashes the concatenation of parts with SHA-512 and reduces the
// 64-byte digest modulo the group order. Used for the Fiat-Shamir challenge
// and the key-aggregation coefficients.
func HashToScalar(parts ...[]byte) *Scalar {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	digest := h.Sum(nil)
	s := NewScalar()
	// SetUniformBytes only fails on wrong input length.
	if _, err := s.v.SetUniformBytes(digest); err != nil {
		panic(err)
	}
	return s
}

// Point is an edwards25519 group element. The zero value is the identity
// element and ready to use.
type Point struct {
	v edwards25519.Point
}

func NewPoint() *Point {
	p := &Point{}
	p.v.Set(edwards25519.NewIdentityPoint())
	return p
}

// Add sets p = a + b and returns p.
func (p *Point) Add(a, b *Point) *Point {
	p.v.Add(&a.v, &b.v)
	return p
}

// ScalarBaseMult sets p = s * G and returns p.
func (p *Point) ScalarBaseMult(s *Scalar) *Point {
	p.v.ScalarBaseMult(&s.v)
	return p
}

// ScalarMult sets p = s * q and returns p.
func (p *Point) ScalarMult(s *Scalar, q *Point) *Point {
	p.v.ScalarMult(&s.v, &q.v)
	return p
}

// Set copies a into p and returns p.
func (p *Point) Set(a *Point) *Point {
	p.v.Set(&a.v)
	return p
}

// Bytes returns the canonical 32-byte compressed encoding of p.
func (p *Point) Bytes() []byte { return p.v.Bytes() }

func (p *Point) Equal(b *Point) bool { return p.v.Equal(&b.v) == 1 }

func (p *Point) IsIdentity() bool {
	return p.v.Equal(edwards25519.NewIdentityPoint()) == 1
}

// SetBytes decodes a compressed point encoding, rejecting anything that is
// not a curve point.
func (p *Point) SetBytes(b []byte) (*Point, error) {
	if len(b) != PointSize {
		return nil, fmt.Errorf("%w: point must be %d bytes, got %d", ErrDecoding, PointSize, len(b))
	}
	if _, err := p.v.SetBytes(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecoding, err)
	}
	return p, nil
}

// DecodePublicKey decodes a compressed point and additionally rejects the
// identity element, which is never a valid public key or nonce commitment.
func DecodePublicKey(b []byte) (*Point, error) {
	p := NewPoint()
	if _, err := p.SetBytes(b); err != nil {
		return nil, err
	}
	if p.IsIdentity() {
		return nil, ErrIdentityPoint
	}
	return p, nil
}

// Challenge computes the Ed25519 Fiat-Shamir challenge
// e = SHA-512(R || A || message) mod L. Using the standard layout keeps the
// aggregated signature verifiable by any single-signer Ed25519 verifier.
func Challenge(noncePoint, publicKey *Point, message []byte) *Scalar {
	return HashToScalar(noncePoint.Bytes(), publicKey.Bytes(), message)
}

// Verify checks an Ed25519-compatible signature (R || s) over message against
// a public key, using standard single-signer verification.
func Verify(publicKey *Point, message, sig []byte) bool {
	if len(sig) != SignatureSize {
		return false
	}
	var R edwards25519.Point
	if _, err := R.SetBytes(sig[:32]); err != nil {
		return false
	}
	var s edwards25519.Scalar
	if _, err := s.SetCanonicalBytes(sig[32:]); err != nil {
		return false
	}

	k := Challenge(&Point{v: R}, publicKey, message)
	k.v.Negate(&k.v)

	// R' = [-k]A + [s]B must equal R.
	var RPrime edwards25519.Point
	RPrime.VarTimeDoubleScalarBaseMult(&k.v, &publicKey.v, &s)
	return RPrime.Equal(&R) == 1
}
