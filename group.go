package opaque

// Group & primitive wrappers over Ristretto255: a prime-order group with
// a defined unique string representation of its elements, a generator
// g, and a hash function H' (Elligator2, via FromUniformBytes) mapping
// arbitrary strings into the group.
//
// All exported functions here are thin, constant-time wrappers; none of
// them branch on secret data.

import (
	"crypto/rand"

	"golang.org/x/crypto/sha3"

	ristretto "github.com/gtank/ristretto255"
)

// scalarByteLen and pointByteLen are the wire sizes of Ristretto255
// scalars and elements.
const (
	scalarByteLen = 32
	pointByteLen  = 32
	hashByteLen   = 32
)

// randomBytes returns n bytes read from the OS CSPRNG.
func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// scalarRandom samples a uniform, non-zero scalar in the group's scalar
// field. Ristretto255 scalars are derived from 64 bytes of uniform input
// and reduced mod the group order, so rejection on the reduced value
// (rather than the input bytes) is what guarantees uniformity.
func scalarRandom() (*ristretto.Scalar, error) {
	for {
		b, err := randomBytes(64)
		if err != nil {
			return nil, err
		}
		s := new(ristretto.Scalar).FromUniformBytes(b)
		if s.Equal(new(ristretto.Scalar)) != 1 {
			return s, nil
		}
	}
}

// scalarInvert returns s^-1. It fails with ErrInvalidScalar if s is zero,
// since zero has no multiplicative inverse in the scalar field.
func scalarInvert(s *ristretto.Scalar) (*ristretto.Scalar, error) {
	if s.Equal(new(ristretto.Scalar)) == 1 {
		return nil, ErrInvalidScalar
	}
	return new(ristretto.Scalar).Invert(s), nil
}

// isValidPoint reports whether the encoding of p is the canonical
// encoding of a non-identity Ristretto255 element. Point validity checks
// are mandatory on every point received from a peer; the ristretto255
// Decode step already rejects non-canonical encodings, so this only
// needs to additionally reject the identity.
func isValidPoint(p *ristretto.Element) bool {
	return p.Equal(new(ristretto.Element)) != 1
}

// decodePoint decodes and validates a peer-supplied point encoding.
func decodePoint(b []byte) (*ristretto.Element, error) {
	p := new(ristretto.Element)
	if err := p.Decode(b); err != nil {
		return nil, ErrInvalidPoint
	}
	if !isValidPoint(p) {
		return nil, ErrInvalidPoint
	}
	return p, nil
}

// pointMul computes s*P, failing with ErrInvalidPoint if P is invalid or
// the product collapses to the identity (which can only happen for a
// non-prime-order input or a zero scalar, both of which must abort the
// protocol).
func pointMul(s *ristretto.Scalar, p *ristretto.Element) (*ristretto.Element, error) {
	if !isValidPoint(p) {
		return nil, ErrInvalidPoint
	}
	out := new(ristretto.Element).ScalarMult(s, p)
	if !isValidPoint(out) {
		return nil, ErrInvalidPoint
	}
	return out, nil
}

// baseMul computes g^s.
func baseMul(s *ristretto.Scalar) *ristretto.Element {
	return new(ristretto.Element).ScalarBaseMult(s)
}

// hashToGroup maps an arbitrary byte string into the group via Elligator2.
// The input is first run through SHA3-512 to reach the 64 uniform bytes
// FromUniformBytes requires; H' itself is Elligator2.
func hashToGroup(data []byte) *ristretto.Element {
	h := sha3.Sum512(data)
	return new(ristretto.Element).FromUniformBytes(h[:])
}

// encodeScalar and encodePoint give the canonical 32-byte wire encodings
// used throughout the packed on-wire records.
func encodeScalar(s *ristretto.Scalar) []byte { return s.Encode(nil) }
func encodePoint(p *ristretto.Element) []byte { return p.Encode(nil) }

func decodeScalar(b []byte) (*ristretto.Scalar, error) {
	s := new(ristretto.Scalar)
	if err := s.Decode(b); err != nil {
		return nil, ErrInvalidScalar
	}
	return s, nil
}
