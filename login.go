package opaque

// Protocol state machines: login, a three-message exchange. This is the
// component that actually exercises every other piece of the core: the
// OPRF (to re-derive rw), the envelope (to recover p_u/P_u/P_s and the
// caller's extra payload), 3-DH (to derive the key bundle), and the
// transcript/authenticator (to explicitly authenticate both directions).
//
// Each side samples ephemeral key material, runs the OPRF, runs 3-DH,
// and derives a transcript-bound HMAC authenticator in each direction
// rather than a keyed hash of the session key alone, so both server and
// client explicitly authenticate the exchange before trusting it.

import (
	"encoding/binary"

	ristretto "github.com/gtank/ristretto255"
)

// Ids carries the caller-supplied client/server identity strings bound
// into the 3-DH `info`. Either may be empty.
type Ids struct {
	IDU []byte
	IDS []byte
}

// Infos carries the caller-supplied application-info byte strings bound
// into fixed transcript positions. Any may be empty.
type Infos struct {
	Info1  []byte
	Info2  []byte
	Info3  []byte
	EInfo2 []byte
	EInfo3 []byte
}

// LoginMsg1 is the client->server login message: alpha, X_u, nonceU.
type LoginMsg1 struct {
	Alpha  []byte
	Xu     []byte
	NonceU []byte
}

// LoginMsg2 is the server->client login message: beta, X_s, nonceS,
// auth, extra_len, envelope.
type LoginMsg2 struct {
	Beta     []byte
	Xs       []byte
	NonceS   []byte
	Auth     []byte
	ExtraLen uint64
	Envelope []byte
}

// LoginClientSecret is the client's ephemeral state between LoginInit and
// LoginClientFinish.
type LoginClientSecret struct {
	r      *ristretto.Scalar
	xu     *ristretto.Scalar
	nonceU []byte
	alpha  []byte // encoded alpha, not secret: kept for transcript reconstruction in step 3
}

// Release zeroes the client's ephemeral scalars.
func (s *LoginClientSecret) Release() {
	if s == nil {
		return
	}
	zeroScalar(s.r)
	zeroScalar(s.xu)
}

// LoginServerState is the server's opaque per-session state threaded
// between LoginServer and LoginServerFinish. It must be round-tripped by
// the caller exactly as returned; the core keeps no session state of
// its own between calls.
type LoginServerState struct {
	km3             []byte
	transcriptState []byte
	sk              []byte
}

// Marshal packs the server's saved session state as a single opaque blob.
func (s *LoginServerState) Marshal() []byte {
	out := make([]byte, 0, 8+len(s.km3)+8+len(s.transcriptState)+8+len(s.sk))
	out = appendLenPrefixed(out, s.km3)
	out = appendLenPrefixed(out, s.transcriptState)
	out = appendLenPrefixed(out, s.sk)
	return out
}

// UnmarshalLoginServerState reconstructs a LoginServerState from a blob
// produced by Marshal.
func UnmarshalLoginServerState(b []byte) (*LoginServerState, error) {
	km3, rest, err := readLenPrefixed(b)
	if err != nil {
		return nil, err
	}
	ts, rest, err := readLenPrefixed(rest)
	if err != nil {
		return nil, err
	}
	sk, rest, err := readLenPrefixed(rest)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, ErrLengthError
	}
	return &LoginServerState{km3: km3, transcriptState: ts, sk: sk}, nil
}

// Release zeroes the server's retained session secrets.
func (s *LoginServerState) Release() {
	if s == nil {
		return
	}
	zeroBytes(s.km3)
	zeroBytes(s.sk)
}

func appendLenPrefixed(out, b []byte) []byte {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(b)))
	out = append(out, lenBuf[:]...)
	return append(out, b...)
}

func readLenPrefixed(b []byte) (field, rest []byte, err error) {
	if len(b) < 8 {
		return nil, nil, ErrLengthError
	}
	n := binary.LittleEndian.Uint64(b[:8])
	b = b[8:]
	if uint64(len(b)) < n {
		return nil, nil, ErrLengthError
	}
	return b[:n], b[n:], nil
}

// LoginInit is login step 1, run by the client: sample r, x_u, nonceU;
// alpha = hash_to_group(pw)*r; X_u = g^x_u.
func LoginInit(pw []byte) (*LoginClientSecret, *LoginMsg1, error) {
	br, err := oprfBlind(pw)
	if err != nil {
		return nil, nil, err
	}
	xu, err := scalarRandom()
	if err != nil {
		zeroScalar(br.r)
		return nil, nil, err
	}
	nonceU, err := randomBytes(hashByteLen)
	if err != nil {
		zeroScalar(br.r)
		zeroScalar(xu)
		return nil, nil, err
	}
	Xu := baseMul(xu)

	alpha := encodePoint(br.alpha)
	sec := &LoginClientSecret{r: br.r, xu: xu, nonceU: nonceU, alpha: alpha}
	msg1 := &LoginMsg1{Alpha: alpha, Xu: encodePoint(Xu), NonceU: nonceU}
	return sec, msg1, nil
}

// LoginServer is login step 2, run by the server: validate alpha; sample
// x_s, nonceS; beta = alpha^k_s, X_s = g^x_s; run 3-DH; compute the
// server authenticator; save transcript state for step 3b.
func LoginServer(msg1 *LoginMsg1, record []byte, clrLen int, ids Ids, infos Infos) (*LoginServerState, *LoginMsg2, []byte, error) {
	pub, err := unmarshalUserSessionPublic(concatFields(msg1))
	if err != nil {
		return nil, nil, nil, err
	}
	rec, err := unmarshalUserRecord(record, clrLen)
	if err != nil {
		return nil, nil, nil, err
	}

	xs, err := scalarRandom()
	if err != nil {
		return nil, nil, nil, err
	}
	defer zeroScalar(xs)
	nonceS, err := randomBytes(hashByteLen)
	if err != nil {
		return nil, nil, nil, err
	}

	beta, err := oprfEvaluate(pub.alpha, rec.ks)
	if err != nil {
		return nil, nil, nil, err
	}
	Xs := baseMul(xs)

	info := deriveInfo(pub.nonceU, nonceS, ids.IDU, ids.IDS)
	kb, err := tripleDHServer(rec.ps, xs, rec.pu, pub.xu, info)
	if err != nil {
		return nil, nil, nil, err
	}
	defer kb.release()

	t := buildCredentialTranscript(
		encodePoint(pub.alpha), pub.nonceU, infos.Info1, encodePoint(pub.xu),
		encodePoint(beta), rec.envelope, nonceS, infos.Info2, encodePoint(Xs), infos.EInfo2,
	)
	auth := serverAuthenticator(kb.km2, t)

	savedState, err := t.save()
	if err != nil {
		return nil, nil, nil, err
	}

	msg2 := &LoginMsg2{
		Beta: encodePoint(beta), Xs: encodePoint(Xs), NonceS: nonceS, Auth: auth,
		ExtraLen: rec.extraLen, Envelope: rec.envelope,
	}
	state := &LoginServerState{
		km3:             append([]byte(nil), kb.km3...),
		transcriptState: savedState,
		sk:              append([]byte(nil), kb.sk...),
	}
	sk := append([]byte(nil), kb.sk...)
	return state, msg2, sk, nil
}

// LoginClientFinish is login step 3, run by the client: validate beta;
// re-derive rw; open the envelope; run 3-DH; verify the server
// authenticator; optionally produce the client authenticator.
func LoginClientFinish(sec *LoginClientSecret, msg2 *LoginMsg2, pw, key []byte, clrLen int, ids Ids, infos Infos, params KDFParams) (sk, exportKey, extra, authU []byte, err error) {
	beta, err := decodePoint(msg2.Beta)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	Xs, err := decodePoint(msg2.Xs)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if msg2.ExtraLen > MaxExtraLen {
		return nil, nil, nil, nil, ErrLengthError
	}

	rw, err := oprfFinalize(pw, sec.r, beta, key, params)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	defer zeroBytes(rw)

	secEnv, clrEnv, exportKey, err := openEnvelope(rw, msg2.Envelope, secEnvLen(int(msg2.ExtraLen)), clrLen)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	defer zeroBytes(secEnv)
	_ = clrEnv

	pu, Pu, Ps, extraOut, err := parseSecEnvFields(secEnv)
	if err != nil {
		zeroBytes(exportKey)
		return nil, nil, nil, nil, err
	}
	defer zeroScalar(pu)

	info := deriveInfo(sec.nonceU, msg2.NonceS, ids.IDU, ids.IDS)
	kb, err := tripleDHClient(pu, sec.xu, Ps, Xs, info)
	if err != nil {
		zeroBytes(exportKey)
		return nil, nil, nil, nil, err
	}
	defer kb.release()

	Xu := baseMul(sec.xu)
	t := buildCredentialTranscript(
		sec.alpha, sec.nonceU, infos.Info1, encodePoint(Xu),
		msg2.Beta, msg2.Envelope, msg2.NonceS, infos.Info2, msg2.Xs, infos.EInfo2,
	)

	if !verifyServerAuthenticator(kb.km2, t, msg2.Auth) {
		zeroBytes(exportKey)
		return nil, nil, nil, nil, ErrServerAuthFailed
	}

	authU = clientAuthenticator(kb.km3, t, infos.Info3, infos.EInfo3)

	sk = append([]byte(nil), kb.sk...)
	return sk, exportKey, extraOut, authU, nil
}

// LoginServerFinish is login step 3b, run by the server: feed
// info3/einfo3 into the saved transcript snapshot and verify the client
// authenticator, yielding the now-mutually-authenticated session key.
func LoginServerFinish(state *LoginServerState, infos Infos, authU []byte) ([]byte, error) {
	t, err := restoreTranscript(state.transcriptState)
	if err != nil {
		return nil, err
	}
	if !verifyClientAuthenticator(state.km3, t, infos.Info3, infos.EInfo3, authU) {
		zeroBytes(state.sk)
		return nil, ErrClientAuthFailed
	}
	sk := append([]byte(nil), state.sk...)
	return sk, nil
}

func concatFields(m *LoginMsg1) []byte {
	out := make([]byte, 0, len(m.Alpha)+len(m.Xu)+len(m.NonceU))
	out = append(out, m.Alpha...)
	out = append(out, m.Xu...)
	out = append(out, m.NonceU...)
	return out
}
