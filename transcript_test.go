package opaque

import "testing"

func TestTranscriptSaveRestoreMatchesLiveContinuation(t *testing.T) {
	km2 := []byte("km2-key-000000000000000000000000")
	km3 := []byte("km3-key-000000000000000000000000")
	info3 := []byte("info3")
	einfo3 := []byte("einfo3")

	build := func() *transcript {
		return buildCredentialTranscript(
			[]byte("alpha"), []byte("nonceU"), []byte("info1"), []byte("Xu"),
			[]byte("beta"), []byte("envelope-bytes"), []byte("nonceS"), []byte("info2"), []byte("Xs"), []byte("einfo2"),
		)
	}

	live := build()
	liveAuth := serverAuthenticator(km2, live)
	liveClientAuth := clientAuthenticator(km3, live, info3, einfo3)

	snap := build()
	snapAuth := serverAuthenticator(km2, snap)
	if string(snapAuth) != string(liveAuth) {
		t.Fatal("server authenticator differs between two identically-built transcripts")
	}
	state, err := snap.save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	restored, err := restoreTranscript(state)
	if err != nil {
		t.Fatalf("restoreTranscript: %v", err)
	}
	restoredClientAuth := clientAuthenticator(km3, restored, info3, einfo3)
	if string(restoredClientAuth) != string(liveClientAuth) {
		t.Fatal("client authenticator after save/restore diverged from the live continuation")
	}
}

func TestVerifyServerAuthenticatorRejectsWrongKey(t *testing.T) {
	t1 := buildCredentialTranscript([]byte("a"), []byte("n"), nil, []byte("x"), []byte("b"), []byte("e"), []byte("s"), nil, []byte("y"), nil)
	auth := serverAuthenticator([]byte("km2-correct-key-0000000000000000"), t1)

	t2 := buildCredentialTranscript([]byte("a"), []byte("n"), nil, []byte("x"), []byte("b"), []byte("e"), []byte("s"), nil, []byte("y"), nil)
	if verifyServerAuthenticator([]byte("km2-wrong-key-00000000000000000000"), t2, auth) {
		t.Fatal("verifyServerAuthenticator accepted a mismatched key")
	}
}

func TestOptionalFieldOmittedVsEmptyIndistinguishable(t *testing.T) {
	withNil := buildCredentialTranscript([]byte("a"), []byte("n"), nil, []byte("x"), []byte("b"), []byte("e"), []byte("s"), nil, []byte("y"), nil)
	withEmpty := buildCredentialTranscript([]byte("a"), []byte("n"), []byte{}, []byte("x"), []byte("b"), []byte("e"), []byte("s"), []byte{}, []byte("y"), []byte{})

	if string(withNil.sum()) != string(withEmpty.sum()) {
		t.Fatal("a nil optional field and an explicitly empty optional field produced different transcript hashes")
	}
}

func TestTranscriptDivergesOnFieldChange(t *testing.T) {
	a := buildCredentialTranscript([]byte("alpha1"), []byte("n"), nil, []byte("x"), []byte("b"), []byte("e"), []byte("s"), nil, []byte("y"), nil)
	b := buildCredentialTranscript([]byte("alpha2"), []byte("n"), nil, []byte("x"), []byte("b"), []byte("e"), []byte("s"), nil, []byte("y"), nil)
	if string(a.sum()) == string(b.sum()) {
		t.Fatal("changing alpha did not change the transcript hash")
	}
}
