package opaque

import (
	ristretto "github.com/gtank/ristretto255"
	"golang.org/x/sys/unix"
)

// Secret-scoped resources (scalars, PRKs, the 3-DH `sec` buffer, key
// bundles) are explicitly zeroed on exit. A small scoped-secret type wraps
// locking, zeroing and unlocking; of these buffers only the 3-DH `sec`
// buffer is allocated through it. Scalars, rw, key bundles and envelope
// keys live in ordinary, unlocked memory and are only zeroed.

// lockedSecret is a byte buffer locked against swap (where the OS
// supports it) for the lifetime of one handshake step.
type lockedSecret struct {
	b []byte
}

// newLockedSecret allocates an n-byte buffer and attempts to lock it
// against swap. Failure to lock aborts the operation rather than
// proceeding with swappable secret material.
func newLockedSecret(n int) (*lockedSecret, error) {
	b := make([]byte, n)
	if err := unix.Mlock(b); err != nil {
		return nil, ErrLockFailure
	}
	return &lockedSecret{b: b}, nil
}

// bytes exposes the underlying buffer for read/write access within the
// owning stack frame. It must never be retained beyond release().
func (l *lockedSecret) bytes() []byte {
	if l == nil {
		return nil
	}
	return l.b
}

// release zeroes and unlocks the buffer. It is safe to call multiple
// times and on a nil receiver, so it can be deferred unconditionally
// right after a successful newLockedSecret.
func (l *lockedSecret) release() {
	if l == nil {
		return
	}
	zeroBytes(l.b)
	_ = unix.Munlock(l.b)
}

// zeroBytes overwrites b with zeros. Used both for locked secrets and for
// plain stack buffers (e.g. a decoded SecEnv) that hold secret material
// but are too short-lived to be worth locking individually.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// zeroScalar overwrites a Ristretto255 scalar with the additive identity.
// Secret scalars (p_s, p_u, k_s, r, x_s, x_u) must be wiped on every exit
// path, success or failure.
func zeroScalar(s *ristretto.Scalar) {
	if s != nil {
		s.Zero()
	}
}
