package opaque

// Client and Server are a thin convenience layer over the stateless
// entry points in register.go/login.go. This layer is not itself part
// of the protocol core: persistence of user records and session state
// is not its concern, so this is one caller's way of routing the opaque
// byte blobs the core hands back, not a requirement. A caller with its
// own database and session router can ignore this file entirely and
// call RegisterInit/LoginInit/etc. directly.
//
// Clients and sessions here are one-to-one: ID doubles as both the
// registered username and the in-flight session identifier. That keeps
// this layer simple -- it is a convenience wrapper, not a multi-tenant
// server.

import "fmt"

// Server holds server-side state across registration and login rounds:
// persisted user records, pending registrations awaiting their final
// message, and in-flight login sessions awaiting explicit client
// authentication. A production caller would back Records with a real
// database; this is an in-memory stand-in.
type Server struct {
	clrLen int

	records          map[string][]byte
	pendingRegSecret map[string]*RegServerSecret
	pendingRegPublic map[string]*RegMsg2
	loginStates      map[string]*LoginServerState
}

// NewServer creates a new OPAQUE server. clrLen is the fixed length of
// the ClrEnv associated data every registration on this server uses;
// the envelope shape must be agreed out of band.
func NewServer(clrLen int) *Server {
	return &Server{
		clrLen:           clrLen,
		records:          make(map[string][]byte),
		pendingRegSecret: make(map[string]*RegServerSecret),
		pendingRegPublic: make(map[string]*RegMsg2),
		loginStates:      make(map[string]*LoginServerState),
	}
}

// Client is the client side of the OPAQUE protocol.
type Client struct {
	ID        string
	kdfParams KDFParams

	regSecret   *RegClientSecret
	loginSecret *LoginClientSecret
}

// NewClient creates a new OPAQUE client identified by id.
func NewClient(id string) *Client {
	return &Client{ID: id, kdfParams: InteractiveKDFParams}
}

// BeginRegistration runs step 1 of the four-message registration flow
// on the client.
func (c *Client) BeginRegistration(password []byte) (*RegMsg1, error) {
	sec, msg1, err := RegisterInit(password)
	if err != nil {
		return nil, err
	}
	c.regSecret = sec
	return msg1, nil
}

// ServerRegister1 runs step 2 of the registration flow on the server,
// and remembers the pending registration under id until
// ServerFinishRegistration completes it.
func (s *Server) ServerRegister1(id string, msg1 *RegMsg1) (*RegMsg2, error) {
	sec, msg2, err := RegisterServer1(msg1)
	if err != nil {
		return nil, err
	}
	s.pendingRegSecret[id] = sec
	s.pendingRegPublic[id] = msg2
	return msg2, nil
}

// FinishRegistration runs step 3 of the registration flow on the client.
func (c *Client) FinishRegistration(password, extra, key, clrEnv []byte, msg2 *RegMsg2) (*RegMsg3, []byte, error) {
	if c.regSecret == nil {
		return nil, nil, fmt.Errorf("opaque: BeginRegistration was not called")
	}
	defer c.regSecret.Release()
	msg3, exportKey, _, err := RegisterClientFinish(c.regSecret, msg2, password, extra, key, clrEnv, c.kdfParams)
	c.regSecret = nil
	if err != nil {
		return nil, nil, err
	}
	return msg3, exportKey, nil
}

// ServerFinishRegistration runs step 4 of the registration flow on the
// server, persisting the completed user record under id.
func (s *Server) ServerFinishRegistration(id string, msg3 *RegMsg3) error {
	sec, ok := s.pendingRegSecret[id]
	if !ok {
		return fmt.Errorf("opaque: no pending registration for %q", id)
	}
	pub := s.pendingRegPublic[id]
	record, err := RegisterServerFinish(sec, pub, msg3)
	delete(s.pendingRegSecret, id)
	delete(s.pendingRegPublic, id)
	if err != nil {
		return err
	}
	s.records[id] = record
	return nil
}

// BeginLogin runs login step 1 on the client.
func (c *Client) BeginLogin(password []byte) (*LoginMsg1, error) {
	sec, msg1, err := LoginInit(password)
	if err != nil {
		return nil, err
	}
	c.loginSecret = sec
	return msg1, nil
}

// ServerLogin runs login step 2 on the server, looking up the persisted
// record for id and tracking the resulting session state for the later
// call to ServerFinishLogin.
func (s *Server) ServerLogin(id string, msg1 *LoginMsg1, ids Ids, infos Infos) (*LoginMsg2, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("opaque: no such user %q", id)
	}
	state, msg2, _, err := LoginServer(msg1, record, s.clrLen, ids, infos)
	if err != nil {
		return nil, err
	}
	s.loginStates[id] = state
	return msg2, nil
}

// FinishLogin runs login step 3 on the client, returning the session key
// and the client authenticator to send back to the server.
func (c *Client) FinishLogin(password, key []byte, clrLen int, ids Ids, infos Infos, msg2 *LoginMsg2) (sk, exportKey, extra, authU []byte, err error) {
	if c.loginSecret == nil {
		return nil, nil, nil, nil, fmt.Errorf("opaque: BeginLogin was not called")
	}
	defer c.loginSecret.Release()
	sk, exportKey, extra, authU, err = LoginClientFinish(c.loginSecret, msg2, password, key, clrLen, ids, infos, c.kdfParams)
	c.loginSecret = nil
	return sk, exportKey, extra, authU, err
}

// ServerFinishLogin runs login step 3b on the server, verifying the
// client's authenticator and yielding the mutually-authenticated session
// key.
func (s *Server) ServerFinishLogin(id string, infos Infos, authU []byte) ([]byte, error) {
	state, ok := s.loginStates[id]
	if !ok {
		return nil, fmt.Errorf("opaque: no in-flight login for %q", id)
	}
	delete(s.loginStates, id)
	defer state.Release()
	return LoginServerFinish(state, infos, authU)
}
