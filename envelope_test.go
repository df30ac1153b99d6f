package opaque

import (
	"bytes"
	"testing"

	"github.com/go-test/deep"
)

func TestEnvelopeSealOpenRoundTrip(t *testing.T) {
	rw, err := randomBytes(32)
	if err != nil {
		t.Fatal(err)
	}
	secEnv := []byte("a rather long secret payload padded to some length")
	clrEnv := []byte("ClrEnv\x00")

	envelope, exportKey, err := sealEnvelope(rw, secEnv, clrEnv)
	if err != nil {
		t.Fatalf("sealEnvelope: %v", err)
	}

	gotSec, gotClr, gotExportKey, err := openEnvelope(rw, envelope, len(secEnv), len(clrEnv))
	if err != nil {
		t.Fatalf("openEnvelope: %v", err)
	}
	if diff := deep.Equal(gotSec, secEnv); diff != nil {
		t.Fatalf("SecEnv mismatch: %v", diff)
	}
	if diff := deep.Equal(gotClr, clrEnv); diff != nil {
		t.Fatalf("ClrEnv mismatch: %v", diff)
	}
	if !bytes.Equal(gotExportKey, exportKey) {
		t.Fatal("export key from Open does not match export key from Seal")
	}
}

func TestEnvelopeOpenRejectsWrongKey(t *testing.T) {
	rw, err := randomBytes(32)
	if err != nil {
		t.Fatal(err)
	}
	wrongRW, err := randomBytes(32)
	if err != nil {
		t.Fatal(err)
	}
	secEnv := []byte("secret-key-material-000000000000")
	clrEnv := []byte("clr")

	envelope, _, err := sealEnvelope(rw, secEnv, clrEnv)
	if err != nil {
		t.Fatal(err)
	}

	_, _, _, err = openEnvelope(wrongRW, envelope, len(secEnv), len(clrEnv))
	if err != ErrEnvelopeAuthFailed {
		t.Fatalf("expected ErrEnvelopeAuthFailed, got %v", err)
	}
}

func TestEnvelopeOpenRejectsTamperedCiphertext(t *testing.T) {
	rw, err := randomBytes(32)
	if err != nil {
		t.Fatal(err)
	}
	secEnv := []byte("secret-key-material-000000000000")
	clrEnv := []byte("clr")

	envelope, _, err := sealEnvelope(rw, secEnv, clrEnv)
	if err != nil {
		t.Fatal(err)
	}
	envelope[hashByteLen] ^= 0xff // flip a ciphertext byte

	if _, _, _, err := openEnvelope(rw, envelope, len(secEnv), len(clrEnv)); err != ErrEnvelopeAuthFailed {
		t.Fatalf("expected ErrEnvelopeAuthFailed on tampered ciphertext, got %v", err)
	}
}

func TestEnvelopeOpenRejectsWrongShape(t *testing.T) {
	rw, err := randomBytes(32)
	if err != nil {
		t.Fatal(err)
	}
	secEnv := []byte("secret-key-material-000000000000")
	clrEnv := []byte("clr")
	envelope, _, err := sealEnvelope(rw, secEnv, clrEnv)
	if err != nil {
		t.Fatal(err)
	}

	if _, _, _, err := openEnvelope(rw, envelope, len(secEnv)+1, len(clrEnv)); err != ErrLengthError {
		t.Fatalf("expected ErrLengthError for mismatched secEnv length, got %v", err)
	}
}
