package opaque

import "golang.org/x/crypto/argon2"

// KDFParams names the memory-hard KDF's cost parameters as a struct
// rather than unexported constants, so callers needing a different cost
// class (e.g. for a batch re-derivation tool) can supply their own.
type KDFParams struct {
	// Time is the Argon2id number of passes.
	Time uint32
	// MemoryKiB is the Argon2id memory parameter, in kibibytes.
	MemoryKiB uint32
	// Threads is the Argon2id parallelism parameter.
	Threads uint8
}

// InteractiveKDFParams are cost parameters suitable for an interactive
// login: cheap enough to run during login, but materially more
// expensive than an unsalted hash for an offline attacker who has
// obtained a user record.
var InteractiveKDFParams = KDFParams{
	Time:      3,
	MemoryKiB: 1e5,
	Threads:   4,
}

// deriveRW runs the memory-hard step of OPRF.Finalize:
// rw = memory_hard_kdf(rw0, salt=zeros32, params, output=32).
func deriveRW(rw0 []byte, params KDFParams) []byte {
	salt := make([]byte, 32)
	return argon2.IDKey(rw0, salt, params.Time, params.MemoryKiB, params.Threads, 32)
}
