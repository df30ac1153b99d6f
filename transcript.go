package opaque

// Transcript & authenticator. A running SHA-256 hash over the canonical
// protocol transcript, used to produce HMAC tags for explicit mutual
// authentication: a keyed tag over session material, compared in
// constant time.
//
// Fields are appended with no separators or length prefixes; an
// optional field of length 0 is skipped entirely rather than written as
// an empty field, so two runs that differ only in "info2 was explicitly
// empty" vs. "info2 was never supplied" are indistinguishable.

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding"
	"hash"
)

// transcript wraps a running SHA-256 state. The underlying digest
// implements encoding.BinaryMarshaler/BinaryUnmarshaler (as the standard
// library's sha256 digest has since Go 1.11), which is what lets the
// server save its transcript state as an opaque byte blob between the
// login-step-2 and login-step-3b calls instead of replaying every field
// from scratch.
type transcript struct {
	h hash.Hash
}

func newTranscript() *transcript {
	return &transcript{h: sha256.New()}
}

// write appends a non-optional field.
func (t *transcript) write(b []byte) {
	t.h.Write(b)
}

// writeOptional appends an optional field, omitting it entirely when
// empty: all optional fields are absent by omission only when their
// length is 0.
func (t *transcript) writeOptional(b []byte) {
	if len(b) > 0 {
		t.h.Write(b)
	}
}

// sum returns the transcript hash at the current write position without
// disturbing further writes (crypto/sha256's Sum clones its internal
// state before finalizing).
func (t *transcript) sum() []byte {
	return t.h.Sum(nil)
}

// save serializes the running hash state for transport in an opaque
// per-session blob.
func (t *transcript) save() ([]byte, error) {
	m, ok := t.h.(encoding.BinaryMarshaler)
	if !ok {
		return nil, ErrKdfFailure
	}
	return m.MarshalBinary()
}

// restoreTranscript reconstructs a transcript from a blob produced by
// save.
func restoreTranscript(state []byte) (*transcript, error) {
	h := sha256.New()
	u, ok := h.(encoding.BinaryUnmarshaler)
	if !ok {
		return nil, ErrKdfFailure
	}
	if err := u.UnmarshalBinary(state); err != nil {
		return nil, ErrLengthError
	}
	return &transcript{h: h}, nil
}

// buildCredentialTranscript writes the fields in their fixed order up to
// and including einfo2 -- i.e. everything known once message 2 has been
// assembled. This is the point both the server authenticator `auth` and
// the saved transcript-state snapshot are taken at: auth covers the
// entirety of what msg2 asserts (including the server's own einfo2), but
// never the message-3-only fields info3/einfo3, which must be excluded
// so a second round of authentication can still be layered on top.
func buildCredentialTranscript(alpha, nonceU, info1, Xu, beta, envelope, nonceS, info2, Xs, einfo2 []byte) *transcript {
	t := newTranscript()
	t.write(alpha)
	t.write(nonceU)
	t.writeOptional(info1)
	t.write(Xu)
	t.write(beta)
	t.write(envelope)
	t.write(nonceS)
	t.writeOptional(info2)
	t.write(Xs)
	t.writeOptional(einfo2)
	return t
}

// serverAuthenticator computes the server's transcript authenticator.
func serverAuthenticator(km2 []byte, t *transcript) []byte {
	return hmacSum(km2, t.sum())
}

// verifyServerAuthenticator checks a received server authenticator in
// constant time.
func verifyServerAuthenticator(km2 []byte, t *transcript, auth []byte) bool {
	return hmac.Equal(serverAuthenticator(km2, t), auth)
}

// clientAuthenticator finalizes the transcript with info3/einfo3 and
// computes the client's transcript authenticator.
func clientAuthenticator(km3 []byte, t *transcript, info3, einfo3 []byte) []byte {
	t.writeOptional(info3)
	t.writeOptional(einfo3)
	return hmacSum(km3, t.sum())
}

// verifyClientAuthenticator is the server-side counterpart run against a
// restored transcript snapshot: it feeds info3/einfo3 and finalizes,
// letting the server verify auth_u without reconstructing the full
// transcript from scratch.
func verifyClientAuthenticator(km3 []byte, t *transcript, info3, einfo3, authU []byte) bool {
	return hmac.Equal(clientAuthenticator(km3, t, info3, einfo3), authU)
}

func hmacSum(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
