package opaque

// Envelope Seal/Open: the authenticated "seal under password-derived
// key" primitive protecting the client's long-term private key and
// public-key witnesses.
//
// Three values are derived from the password-derived secret via HKDF: a
// pad the length of the sealed plaintext, used as an HKDF-derived
// keystream rather than a block cipher, a separate MAC key, and the
// export key handed back to the caller.
// Encrypt-then-MAC, verified in constant time before decrypting.

import (
	"crypto/hmac"
	"crypto/subtle"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

const envelopeInfoLabel = "EnvU"

// envelopeShape returns the total packed length of an envelope holding
// SecEnv of length secLen and ClrEnv of length clrLen: nonce(32) ||
// ciphertext(secLen) || clrenv(clrLen) || tag(32).
func envelopeShape(secLen, clrLen int) int {
	return hashByteLen + secLen + clrLen + hashByteLen
}

// sealEnvelope encrypts secEnv under rw, binding clrEnv into the MAC
// without encrypting it, and returns the packed envelope and the
// derived export key.
func sealEnvelope(rw, secEnv, clrEnv []byte) (envelope, exportKey []byte, err error) {
	nonce, err := randomBytes(hashByteLen)
	if err != nil {
		return nil, nil, err
	}

	pad, hmacKey, exportKey, err := envelopeKeys(rw, nonce, len(secEnv))
	if err != nil {
		return nil, nil, err
	}
	defer zeroBytes(pad)
	defer zeroBytes(hmacKey)

	ct := xorBytes(secEnv, pad)

	mac := hmac.New(sha3.New256, hmacKey)
	mac.Write(nonce)
	mac.Write(ct)
	mac.Write(clrEnv)
	tag := mac.Sum(nil)

	envelope = make([]byte, 0, envelopeShape(len(secEnv), len(clrEnv)))
	envelope = append(envelope, nonce...)
	envelope = append(envelope, ct...)
	envelope = append(envelope, clrEnv...)
	envelope = append(envelope, tag...)
	return envelope, exportKey, nil
}

// openEnvelope verifies and decrypts an envelope sealed by sealEnvelope.
// secLen and clrLen pin down the expected shape of the envelope so the
// lengths of the embedded fields never need to be self-described on the
// wire.
func openEnvelope(rw, envelope []byte, secLen, clrLen int) (secEnv, clrEnv, exportKey []byte, err error) {
	want := envelopeShape(secLen, clrLen)
	if len(envelope) != want {
		return nil, nil, nil, ErrLengthError
	}

	nonce := envelope[:hashByteLen]
	ct := envelope[hashByteLen : hashByteLen+secLen]
	clr := envelope[hashByteLen+secLen : hashByteLen+secLen+clrLen]
	tag := envelope[hashByteLen+secLen+clrLen:]

	pad, hmacKey, exportKey, err := envelopeKeys(rw, nonce, secLen)
	if err != nil {
		return nil, nil, nil, err
	}
	defer zeroBytes(pad)
	defer zeroBytes(hmacKey)

	mac := hmac.New(sha3.New256, hmacKey)
	mac.Write(nonce)
	mac.Write(ct)
	mac.Write(clr)
	wantTag := mac.Sum(nil)

	if subtle.ConstantTimeCompare(wantTag, tag) != 1 {
		zeroBytes(exportKey)
		return nil, nil, nil, ErrEnvelopeAuthFailed
	}

	secEnv = xorBytes(ct, pad)
	clrEnv = append([]byte(nil), clr...)
	return secEnv, clrEnv, exportKey, nil
}

// envelopeKeys expands rw into the pad/hmac_key/export_key triple used
// to seal and open an envelope.
func envelopeKeys(rw, nonce []byte, secLen int) (pad, hmacKey, exportKey []byte, err error) {
	info := append(append([]byte{}, nonce...), []byte(envelopeInfoLabel)...)
	r := hkdf.Expand(sha3.New256, rw, info)

	pad = make([]byte, secLen)
	hmacKey = make([]byte, hashByteLen)
	exportKey = make([]byte, hashByteLen)
	if _, err = io.ReadFull(r, pad); err != nil {
		return nil, nil, nil, ErrKdfFailure
	}
	if _, err = io.ReadFull(r, hmacKey); err != nil {
		return nil, nil, nil, ErrKdfFailure
	}
	if _, err = io.ReadFull(r, exportKey); err != nil {
		return nil, nil, nil, ErrKdfFailure
	}
	return pad, hmacKey, exportKey, nil
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
