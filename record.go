package opaque

// Packed on-wire records. Because these cross the network and disk, the
// layout is fixed explicitly here rather than relying on host struct
// padding. All multi-byte records are concatenations with no padding;
// u64 length fields are little-endian.

import (
	"encoding/binary"

	ristretto "github.com/gtank/ristretto255"
)

// MaxExtraLen bounds the caller-supplied extra payload sealed in the
// envelope, to prevent integer overflow in envelope sizing.
const MaxExtraLen = 1024

// userRecord is the server-persisted entity: one per user. Invariants:
// PsPub = g^ps; Pu equals the public key sealed inside the envelope;
// ks != 0.
type userRecord struct {
	ks       *ristretto.Scalar
	ps       *ristretto.Scalar
	pu       *ristretto.Element
	psPub    *ristretto.Element
	extraLen uint64
	envelope []byte
}

// marshal packs the record as k_s(32) || p_s(32) || P_u(32) || P_s(32) ||
// extra_len(8) || envelope(...).
func (r *userRecord) marshal() []byte {
	out := make([]byte, 0, 4*scalarByteLen+8+len(r.envelope))
	out = append(out, encodeScalar(r.ks)...)
	out = append(out, encodeScalar(r.ps)...)
	out = append(out, encodePoint(r.pu)...)
	out = append(out, encodePoint(r.psPub)...)
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], r.extraLen)
	out = append(out, lenBuf[:]...)
	out = append(out, r.envelope...)
	return out
}

// unmarshalUserRecord parses a userRecord produced by marshal. The sealed
// envelope's shape follows from the record's extra_len field (for SecEnv)
// and clrLen (the record itself does not self-describe ClrEnv's length,
// since that is a protocol-wide constant chosen by the caller's
// registration options).
func unmarshalUserRecord(b []byte, clrLen int) (*userRecord, error) {
	const head = 4*scalarByteLen + 8
	if len(b) < head {
		return nil, ErrLengthError
	}
	ks, err := decodeScalar(b[0:scalarByteLen])
	if err != nil {
		return nil, err
	}
	ps, err := decodeScalar(b[scalarByteLen : 2*scalarByteLen])
	if err != nil {
		return nil, err
	}
	pu, err := decodePoint(b[2*scalarByteLen : 3*scalarByteLen])
	if err != nil {
		return nil, err
	}
	psPub, err := decodePoint(b[3*scalarByteLen : 4*scalarByteLen])
	if err != nil {
		return nil, err
	}
	extraLen := binary.LittleEndian.Uint64(b[4*scalarByteLen : head])
	if extraLen > MaxExtraLen {
		return nil, ErrLengthError
	}
	env := b[head:]
	wantEnvLen := envelopeShape(secEnvLen(int(extraLen)), clrLen)
	if len(env) != wantEnvLen {
		return nil, ErrLengthError
	}
	return &userRecord{
		ks:       ks,
		ps:       ps,
		pu:       pu,
		psPub:    psPub,
		extraLen: extraLen,
		envelope: env,
	}, nil
}

// secEnvLen is the length of SecEnv = p_u || P_u || P_s || extra:
// 32 + 32 + 32 + extra_len = 96 + extra_len.
func secEnvLen(extraLen int) int {
	return 3*scalarByteLen + extraLen
}

// userSessionPublic is the client->server login message 1:
// 96 B = alpha(32) || X_u(32) || nonceU(32).
type userSessionPublic struct {
	alpha  *ristretto.Element
	xu     *ristretto.Element
	nonceU []byte
}

func (p *userSessionPublic) marshal() []byte {
	out := make([]byte, 0, 3*pointByteLen)
	out = append(out, encodePoint(p.alpha)...)
	out = append(out, encodePoint(p.xu)...)
	out = append(out, p.nonceU...)
	return out
}

func unmarshalUserSessionPublic(b []byte) (*userSessionPublic, error) {
	if len(b) != 3*pointByteLen {
		return nil, ErrLengthError
	}
	alpha, err := decodePoint(b[0:pointByteLen])
	if err != nil {
		return nil, err
	}
	xu, err := decodePoint(b[pointByteLen : 2*pointByteLen])
	if err != nil {
		return nil, err
	}
	nonceU := append([]byte(nil), b[2*pointByteLen:3*pointByteLen]...)
	return &userSessionPublic{alpha: alpha, xu: xu, nonceU: nonceU}, nil
}

// serverSessionResponse is the server->client login message 2:
// beta(32) || X_s(32) || nonceS(32) || auth(32) || extra_len(8) ||
// envelope(...).
type serverSessionResponse struct {
	beta     *ristretto.Element
	xs       *ristretto.Element
	nonceS   []byte
	auth     []byte
	extraLen uint64
	envelope []byte
}

func (r *serverSessionResponse) marshal() []byte {
	out := make([]byte, 0, 4*pointByteLen+8+len(r.envelope))
	out = append(out, encodePoint(r.beta)...)
	out = append(out, encodePoint(r.xs)...)
	out = append(out, r.nonceS...)
	out = append(out, r.auth...)
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], r.extraLen)
	out = append(out, lenBuf[:]...)
	out = append(out, r.envelope...)
	return out
}

func unmarshalServerSessionResponse(b []byte, clrLen int) (*serverSessionResponse, error) {
	const head = 4*pointByteLen + 8
	if len(b) < head {
		return nil, ErrLengthError
	}
	beta, err := decodePoint(b[0:pointByteLen])
	if err != nil {
		return nil, err
	}
	xs, err := decodePoint(b[pointByteLen : 2*pointByteLen])
	if err != nil {
		return nil, err
	}
	nonceS := append([]byte(nil), b[2*pointByteLen:3*pointByteLen]...)
	auth := append([]byte(nil), b[3*pointByteLen:4*pointByteLen]...)
	extraLen := binary.LittleEndian.Uint64(b[4*pointByteLen : head])
	if extraLen > MaxExtraLen {
		return nil, ErrLengthError
	}
	env := b[head:]
	wantEnvLen := envelopeShape(secEnvLen(int(extraLen)), clrLen)
	if len(env) != wantEnvLen {
		return nil, ErrLengthError
	}
	return &serverSessionResponse{
		beta: beta, xs: xs, nonceS: nonceS, auth: auth,
		extraLen: extraLen, envelope: env,
	}, nil
}

// secEnvFields packs/unpacks SecEnv = p_u || P_u || P_s || extra.
func secEnvFields(pu *ristretto.Scalar, Pu, Ps *ristretto.Element, extra []byte) []byte {
	out := make([]byte, 0, secEnvLen(len(extra)))
	out = append(out, encodeScalar(pu)...)
	out = append(out, encodePoint(Pu)...)
	out = append(out, encodePoint(Ps)...)
	out = append(out, extra...)
	return out
}

func parseSecEnvFields(b []byte) (pu *ristretto.Scalar, Pu, Ps *ristretto.Element, extra []byte, err error) {
	if len(b) < 3*scalarByteLen {
		return nil, nil, nil, nil, ErrLengthError
	}
	pu, err = decodeScalar(b[0:scalarByteLen])
	if err != nil {
		return nil, nil, nil, nil, err
	}
	Pu, err = decodePoint(b[scalarByteLen : 2*scalarByteLen])
	if err != nil {
		return nil, nil, nil, nil, err
	}
	Ps, err = decodePoint(b[2*scalarByteLen : 3*scalarByteLen])
	if err != nil {
		return nil, nil, nil, nil, err
	}
	extra = append([]byte(nil), b[3*scalarByteLen:]...)
	return pu, Pu, Ps, extra, nil
}
