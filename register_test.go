package opaque

import (
	"bytes"
	"testing"
)

func TestRegisterServerKnowsAllThenLogin(t *testing.T) {
	pw := []byte("hunter2")
	extra := []byte("profile-blob")
	clrEnv := []byte("ClrEnv\x00")

	record, regExportKey, err := RegisterServerKnowsAll(pw, extra, nil, clrEnv, InteractiveKDFParams)
	if err != nil {
		t.Fatalf("RegisterServerKnowsAll: %v", err)
	}

	loginSec, msg1, err := LoginInit(pw)
	if err != nil {
		t.Fatal(err)
	}
	ids := Ids{IDU: []byte("alice"), IDS: []byte("server")}
	state, msg2, serverSK, err := LoginServer(msg1, record, len(clrEnv), ids, Infos{})
	if err != nil {
		t.Fatalf("LoginServer: %v", err)
	}
	clientSK, clientExportKey, gotExtra, authU, err := LoginClientFinish(loginSec, msg2, pw, nil, len(clrEnv), ids, Infos{}, InteractiveKDFParams)
	if err != nil {
		t.Fatalf("LoginClientFinish: %v", err)
	}
	if !bytes.Equal(serverSK, clientSK) {
		t.Fatal("session keys disagree")
	}
	if !bytes.Equal(regExportKey, clientExportKey) {
		t.Fatal("export key at login does not match export key at registration")
	}
	if !bytes.Equal(gotExtra, extra) {
		t.Fatal("recovered extra payload does not match what was registered")
	}
	finalSK, err := LoginServerFinish(state, Infos{}, authU)
	if err != nil {
		t.Fatalf("LoginServerFinish: %v", err)
	}
	if !bytes.Equal(finalSK, serverSK) {
		t.Fatal("server's finished key does not match its own pre-finish key")
	}
}

func TestFourMessageRegistrationThenLogin(t *testing.T) {
	pw := []byte("correct horse battery staple")
	extra := []byte("metadata")
	clrEnv := []byte("ClrEnv\x00")

	clientSec, msg1, err := RegisterInit(pw)
	if err != nil {
		t.Fatal(err)
	}
	serverSec, msg2, err := RegisterServer1(msg1)
	if err != nil {
		t.Fatal(err)
	}
	msg3, regExportKey, _, err := RegisterClientFinish(clientSec, msg2, pw, extra, nil, clrEnv, InteractiveKDFParams)
	if err != nil {
		t.Fatal(err)
	}
	record, err := RegisterServerFinish(serverSec, msg2, msg3)
	if err != nil {
		t.Fatal(err)
	}

	loginSec, loginMsg1, err := LoginInit(pw)
	if err != nil {
		t.Fatal(err)
	}
	ids := Ids{IDU: []byte("bob"), IDS: []byte("server")}
	state, loginMsg2, serverSK, err := LoginServer(loginMsg1, record, len(clrEnv), ids, Infos{})
	if err != nil {
		t.Fatal(err)
	}
	clientSK, clientExportKey, gotExtra, authU, err := LoginClientFinish(loginSec, loginMsg2, pw, nil, len(clrEnv), ids, Infos{}, InteractiveKDFParams)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(serverSK, clientSK) {
		t.Fatal("session keys disagree")
	}
	if !bytes.Equal(regExportKey, clientExportKey) {
		t.Fatal("export key mismatch")
	}
	if !bytes.Equal(gotExtra, extra) {
		t.Fatal("extra mismatch")
	}
	if _, err := LoginServerFinish(state, Infos{}, authU); err != nil {
		t.Fatalf("LoginServerFinish: %v", err)
	}
}

func TestFourMessageRegistrationServerNeverSeesPassword(t *testing.T) {
	// The server side of the private flow never receives pw, rw, or p_u;
	// it only ever handles alpha/beta/Pu/envelope bytes. This test
	// documents that RegisterServer1/RegisterServerFinish never need the
	// password as an argument at all.
	pw := []byte("a secret the server never sees")
	clientSec, msg1, err := RegisterInit(pw)
	if err != nil {
		t.Fatal(err)
	}
	serverSec, msg2, err := RegisterServer1(msg1)
	if err != nil {
		t.Fatal(err)
	}
	msg3, _, _, err := RegisterClientFinish(clientSec, msg2, pw, nil, nil, []byte("clr"), InteractiveKDFParams)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := RegisterServerFinish(serverSec, msg2, msg3); err != nil {
		t.Fatal(err)
	}
}

func TestRegisterRejectsOversizedExtra(t *testing.T) {
	pw := []byte("pw")
	extra := make([]byte, MaxExtraLen+1)
	if _, _, err := RegisterServerKnowsAll(pw, extra, nil, []byte("c"), InteractiveKDFParams); err != ErrLengthError {
		t.Fatalf("expected ErrLengthError, got %v", err)
	}
}
