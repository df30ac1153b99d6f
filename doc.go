// Package opaque implements the cryptographic core of the OPAQUE
// asymmetric password-authenticated key exchange (aPAKE) protocol: an
// oblivious PRF evaluated on Ristretto255, an authenticated envelope
// sealing a client's long-term keys under a password-derived key, a
// triple Diffie-Hellman key exchange, and transcript-hash-driven
// explicit mutual authentication.
//
// The package is purely functional at the call boundary: every exported
// entry point takes all of its state as arguments and returns its
// outputs by value. There is no shared mutable state, so independent
// handshakes may run concurrently without any locking on the caller's
// part. Message framing, serialization over a transport, session
// routing, and the server's user-record database are all left to the
// caller; this package produces and consumes fixed-shape byte records
// only.
package opaque
