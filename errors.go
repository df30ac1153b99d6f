package opaque

import "errors"

// The error taxonomy is deliberately flat: failures the core detects itself
// are reported as one of these sentinels rather than a wrapped hierarchy.
// An error reading the OS random source is returned as is, and the
// Client/Server convenience layer adds its own errors for missing state.
// Callers should compare with errors.Is.
var (
	// ErrInvalidPoint is returned when a received group element is not a
	// valid, non-identity encoding.
	ErrInvalidPoint = errors.New("opaque: invalid group element")

	// ErrInvalidScalar is returned when inverting the zero scalar or
	// decoding a non-canonical scalar encoding. (Random scalar sampling
	// redraws on zero instead of failing.)
	ErrInvalidScalar = errors.New("opaque: invalid scalar")

	// ErrEnvelopeAuthFailed is returned when the envelope HMAC tag does not
	// verify (wrong password or a tampered record).
	ErrEnvelopeAuthFailed = errors.New("opaque: envelope authentication failed")

	// ErrServerAuthFailed is returned when the login message-2 HMAC does not
	// verify under Km2.
	ErrServerAuthFailed = errors.New("opaque: server authentication failed")

	// ErrClientAuthFailed is returned when the login message-3 HMAC does not
	// verify under Km3.
	ErrClientAuthFailed = errors.New("opaque: client authentication failed")

	// ErrKdfFailure is returned when a key-derivation step fails (the keyed
	// hash of OPRF.Finalize or an HKDF expansion), or when the transcript
	// hash state cannot be saved or restored.
	ErrKdfFailure = errors.New("opaque: kdf failure")

	// ErrLockFailure is returned when secret-bearing memory could not be
	// locked against swap.
	ErrLockFailure = errors.New("opaque: could not lock secret memory")

	// ErrLengthError is returned when supplied buffer lengths are
	// inconsistent, including overflow checks on extra_len.
	ErrLengthError = errors.New("opaque: inconsistent length")
)
