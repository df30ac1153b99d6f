package opaque

// Oblivious PRF evaluation on the Ristretto255 group, split into the
// three functions one would expect: one run by whichever party holds
// the OPRF key, one run by the blinding party to unblind, named
// Blind/Evaluate/Finalize.

import (
	"golang.org/x/crypto/blake2b"

	ristretto "github.com/gtank/ristretto255"
)

// blindResult is the client-held secret/public pair produced by Blind.
type blindResult struct {
	r     *ristretto.Scalar
	alpha *ristretto.Element
}

// oprfBlind samples a non-zero blinding scalar r and computes
// alpha = hash_to_group(pw) * r.
func oprfBlind(pw []byte) (*blindResult, error) {
	r, err := scalarRandom()
	if err != nil {
		return nil, err
	}
	hp := hashToGroup(pw)
	alpha, err := pointMul(r, hp)
	if err != nil {
		return nil, err
	}
	return &blindResult{r: r, alpha: alpha}, nil
}

// oprfEvaluate validates alpha and computes beta = alpha^ks. It is run by
// the server, which holds the OPRF secret ks, during login and private
// registration. Server-knows-all registration does not blind, and
// computes H'(pw)^ks directly in registerKnowsAllRW.
func oprfEvaluate(alpha *ristretto.Element, ks *ristretto.Scalar) (*ristretto.Element, error) {
	return pointMul(ks, alpha)
}

// oprfFinalize completes the OPRF: given the blinding scalar r and the
// server's beta, it unblinds to recover h = H'(pw)^ks, then derives rw:
//
//	rw0 = keyed_hash(key, pw || h, 32)
//	rw  = memory_hard_kdf(rw0, salt=zeros32, params, 32)
//
// key may be nil/empty (no pepper contributed).
func oprfFinalize(pw []byte, r *ristretto.Scalar, beta *ristretto.Element, key []byte, params KDFParams) ([]byte, error) {
	rInv, err := scalarInvert(r)
	if err != nil {
		return nil, err
	}
	h, err := pointMul(rInv, beta)
	if err != nil {
		return nil, err
	}

	prologue := append(append([]byte{}, pw...), encodePoint(h)...)
	rw0, err := keyedHash(key, prologue)
	if err != nil {
		return nil, ErrKdfFailure
	}
	zeroBytes(prologue)

	rw := deriveRW(rw0, params)
	zeroBytes(rw0)
	return rw, nil
}

// keyedHash is a "keyed generic hash": Blake2b-256 keyed with an
// optional pepper, applied here to the OPRF output during Finalize.
func keyedHash(key, data []byte) ([]byte, error) {
	var h []byte
	if len(key) == 0 {
		sum := blake2b.Sum256(data)
		h = sum[:]
		return h, nil
	}
	b, err := blake2b.New256(key)
	if err != nil {
		return nil, err
	}
	if _, err := b.Write(data); err != nil {
		return nil, err
	}
	return b.Sum(nil), nil
}
