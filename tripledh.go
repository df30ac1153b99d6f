package opaque

// Triple Diffie-Hellman key schedule. Three scalar-mult outputs are
// concatenated and run through HKDF into five positional sub-keys
// (session key plus two MAC keys plus two reserved keys), with the two
// peers' first two terms swapped rather than identical, so both sides
// land on the same byte string despite computing it from opposite
// roles.

import (
	"crypto/sha256"
	"io"

	ristretto "github.com/gtank/ristretto255"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// keyBundle is the derived key bundle: never leaves the 3-DH step as a
// whole.
type keyBundle struct {
	sk  []byte
	km2 []byte
	km3 []byte
	ke2 []byte
	ke3 []byte
}

func (k *keyBundle) release() {
	if k == nil {
		return
	}
	zeroBytes(k.sk)
	zeroBytes(k.km2)
	zeroBytes(k.km3)
	zeroBytes(k.ke2)
	zeroBytes(k.ke3)
}

// deriveInfo computes info = SHA-256(nonceU || nonceS || idU || idS).
// idU/idS may be empty.
func deriveInfo(nonceU, nonceS, idU, idS []byte) []byte {
	h := sha256.New()
	h.Write(nonceU)
	h.Write(nonceS)
	h.Write(idU)
	h.Write(idS)
	return h.Sum(nil)
}

// tripleDHServer computes the server-role shared secret:
// sec = (Ep·ix) || (Ip·ex) || (Ep·ex)
// where ix is the server's long-term scalar p_s, ex is the server's
// ephemeral scalar x_s, Ip is the client's long-term point P_u, and Ep is
// the client's ephemeral point X_u.
func tripleDHServer(ps, xs *ristretto.Scalar, Pu, Xu *ristretto.Element, info []byte) (*keyBundle, error) {
	t1, err := pointMul(ps, Xu)
	if err != nil {
		return nil, err
	}
	t2, err := pointMul(xs, Pu)
	if err != nil {
		return nil, err
	}
	t3, err := pointMul(xs, Xu)
	if err != nil {
		return nil, err
	}
	return deriveKeyBundle(t1, t2, t3, info)
}

// tripleDHClient computes the client-role shared secret:
// sec = (Ip·ex) || (Ep·ix) || (Ep·ex)
// where ix is the client's long-term scalar p_u, ex is the client's
// ephemeral scalar x_u, Ip is the server's long-term point P_s, and Ep is
// the server's ephemeral point X_s.
func tripleDHClient(pu, xu *ristretto.Scalar, Ps, Xs *ristretto.Element, info []byte) (*keyBundle, error) {
	t1, err := pointMul(xu, Ps)
	if err != nil {
		return nil, err
	}
	t2, err := pointMul(pu, Xs)
	if err != nil {
		return nil, err
	}
	t3, err := pointMul(xu, Xs)
	if err != nil {
		return nil, err
	}
	return deriveKeyBundle(t1, t2, t3, info)
}

// deriveKeyBundle concatenates the three DH terms into `sec`, holds it in
// locked memory, and HKDFs it into the five-key bundle.
func deriveKeyBundle(t1, t2, t3 *ristretto.Element, info []byte) (*keyBundle, error) {
	sec, err := newLockedSecret(3 * pointByteLen)
	if err != nil {
		return nil, err
	}
	defer sec.release()

	b := sec.bytes()
	copy(b[0:pointByteLen], encodePoint(t1))
	copy(b[pointByteLen:2*pointByteLen], encodePoint(t2))
	copy(b[2*pointByteLen:3*pointByteLen], encodePoint(t3))

	r := hkdf.New(sha3.New256, b, nil, info)
	kb := &keyBundle{
		sk:  make([]byte, hashByteLen),
		km2: make([]byte, hashByteLen),
		km3: make([]byte, hashByteLen),
		ke2: make([]byte, hashByteLen),
		ke3: make([]byte, hashByteLen),
	}
	for _, dst := range []([]byte){kb.sk, kb.km2, kb.km3, kb.ke2, kb.ke3} {
		if _, err := io.ReadFull(r, dst); err != nil {
			kb.release()
			return nil, ErrKdfFailure
		}
	}
	return kb, nil
}
