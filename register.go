package opaque

// Protocol state machines: registration. Two flows are supported: the
// server-knows-everything variant (a single call) and the
// server-never-sees-secrets variant (four messages, named RegMsg1/2/3
// after the round they're exchanged in).

import (
	ristretto "github.com/gtank/ristretto255"
)

// RegisterServerKnowsAll runs the server-knows-all registration flow in
// a single call: the caller plays both client and server roles at once
// (this is only safe when registration runs inside a single trust
// boundary -- e.g. an admin tool seeding accounts, not a network-facing
// client).
func RegisterServerKnowsAll(pw, extra, key, clrEnv []byte, params KDFParams) (record, exportKey []byte, err error) {
	if len(extra) > MaxExtraLen {
		return nil, nil, ErrLengthError
	}

	ks, err := scalarRandom()
	if err != nil {
		return nil, nil, err
	}
	defer zeroScalar(ks)

	rw, err := registerKnowsAllRW(pw, ks, key, params)
	if err != nil {
		return nil, nil, err
	}
	defer zeroBytes(rw)

	ps, err := scalarRandom()
	if err != nil {
		return nil, nil, err
	}
	defer zeroScalar(ps)
	pu, err := scalarRandom()
	if err != nil {
		return nil, nil, err
	}
	defer zeroScalar(pu)

	Ps := baseMul(ps)
	Pu := baseMul(pu)

	secEnv := secEnvFields(pu, Pu, Ps, extra)
	defer zeroBytes(secEnv)

	envelope, exportKey, err := sealEnvelope(rw, secEnv, clrEnv)
	if err != nil {
		return nil, nil, err
	}

	rec := &userRecord{
		ks: ks, ps: ps, pu: Pu, psPub: Ps,
		extraLen: uint64(len(extra)), envelope: envelope,
	}
	return rec.marshal(), exportKey, nil
}

// registerKnowsAllRW derives rw the same way OPRF.Finalize would, but
// with the blinding scalar r implicitly 1, equivalent to running the
// blinded protocol with the server acting as both sides, since there is
// no second party to blind alpha from.
func registerKnowsAllRW(pw []byte, ks *ristretto.Scalar, key []byte, params KDFParams) ([]byte, error) {
	h := hashToGroup(pw)
	beta, err := pointMul(ks, h)
	if err != nil {
		return nil, err
	}
	prologue := append(append([]byte{}, pw...), encodePoint(beta)...)
	rw0, err := keyedHash(key, prologue)
	if err != nil {
		return nil, ErrKdfFailure
	}
	zeroBytes(prologue)
	rw := deriveRW(rw0, params)
	zeroBytes(rw0)
	return rw, nil
}

// -- server-never-sees-secrets, four-message flow --

// RegClientSecret is the client's private state between RegisterInit and
// RegisterClientFinish.
type RegClientSecret struct {
	r *ristretto.Scalar
}

// Release zeroes the client's blinding scalar.
func (s *RegClientSecret) Release() {
	if s == nil {
		return
	}
	zeroScalar(s.r)
}

// RegServerSecret is the server's private state between
// RegisterServer1 and RegisterServerFinish.
type RegServerSecret struct {
	ks *ristretto.Scalar
	ps *ristretto.Scalar
}

// Release zeroes the server's OPRF and long-term key scalars.
func (s *RegServerSecret) Release() {
	if s == nil {
		return
	}
	zeroScalar(s.ks)
	zeroScalar(s.ps)
}

// RegMsg1 is the client's first message: the blinded password.
type RegMsg1 struct {
	Alpha []byte
}

// RegMsg2 is the server's response: the OPRF evaluation and its
// to-be-registered long-term public key.
type RegMsg2 struct {
	Beta []byte
	Ps   []byte
}

// RegMsg3 is the client's registration record, minus the server-held
// fields (k_s, p_s, P_s) the server fills in at RegisterServerFinish.
type RegMsg3 struct {
	Pu       []byte
	ExtraLen uint64
	Envelope []byte
}

// RegisterInit is step 1 of the four-message flow: the client blinds
// its password.
func RegisterInit(pw []byte) (*RegClientSecret, *RegMsg1, error) {
	br, err := oprfBlind(pw)
	if err != nil {
		return nil, nil, err
	}
	return &RegClientSecret{r: br.r}, &RegMsg1{Alpha: encodePoint(br.alpha)}, nil
}

// RegisterServer1 is step 2: the server validates alpha, samples its
// per-user OPRF secret and long-term key pair, and evaluates the OPRF.
func RegisterServer1(msg1 *RegMsg1) (*RegServerSecret, *RegMsg2, error) {
	alpha, err := decodePoint(msg1.Alpha)
	if err != nil {
		return nil, nil, err
	}
	ks, err := scalarRandom()
	if err != nil {
		return nil, nil, err
	}
	ps, err := scalarRandom()
	if err != nil {
		zeroScalar(ks)
		return nil, nil, err
	}
	beta, err := oprfEvaluate(alpha, ks)
	if err != nil {
		zeroScalar(ks)
		zeroScalar(ps)
		return nil, nil, err
	}
	Ps := baseMul(ps)
	return &RegServerSecret{ks: ks, ps: ps}, &RegMsg2{Beta: encodePoint(beta), Ps: encodePoint(Ps)}, nil
}

// RegisterClientFinish is step 3: the client derives rw via
// OPRF.Finalize, generates its own long-term key pair, and seals the
// envelope. rwDebug optionally exposes the derived rw itself -- safe to
// expose since the client already holds the password it was derived
// from; callers that don't need it should discard it immediately.
func RegisterClientFinish(sec *RegClientSecret, msg2 *RegMsg2, pw, extra, key, clrEnv []byte, params KDFParams) (msg3 *RegMsg3, exportKey, rwDebug []byte, err error) {
	if len(extra) > MaxExtraLen {
		return nil, nil, nil, ErrLengthError
	}
	beta, err := decodePoint(msg2.Beta)
	if err != nil {
		return nil, nil, nil, err
	}
	Ps, err := decodePoint(msg2.Ps)
	if err != nil {
		return nil, nil, nil, err
	}

	rw, err := oprfFinalize(pw, sec.r, beta, key, params)
	if err != nil {
		return nil, nil, nil, err
	}

	pu, err := scalarRandom()
	if err != nil {
		zeroBytes(rw)
		return nil, nil, nil, err
	}
	defer zeroScalar(pu)
	Pu := baseMul(pu)

	secEnv := secEnvFields(pu, Pu, Ps, extra)
	defer zeroBytes(secEnv)

	envelope, exportKey, err := sealEnvelope(rw, secEnv, clrEnv)
	if err != nil {
		zeroBytes(rw)
		return nil, nil, nil, err
	}

	return &RegMsg3{Pu: encodePoint(Pu), ExtraLen: uint64(len(extra)), Envelope: envelope}, exportKey, rw, nil
}

// RegisterServerFinish is step 4: the server fills in the fields it
// withheld from the client (k_s, p_s, P_s) to complete the persistable
// user record. The server never learns pw, rw, p_u, or the envelope key.
func RegisterServerFinish(sec *RegServerSecret, pub *RegMsg2, msg3 *RegMsg3) (record []byte, err error) {
	Pu, err := decodePoint(msg3.Pu)
	if err != nil {
		return nil, err
	}
	Ps, err := decodePoint(pub.Ps)
	if err != nil {
		return nil, err
	}
	rec := &userRecord{
		ks: sec.ks, ps: sec.ps, pu: Pu, psPub: Ps,
		extraLen: msg3.ExtraLen, envelope: msg3.Envelope,
	}
	return rec.marshal(), nil
}
