// Command opaque-server is a toy demonstration server exercising the
// opaque package's registration and login flows over a JSON-over-TCP
// line protocol. It is modeled directly on frekui-opaque/cmd/server's
// shape (flag-configured listen address, one goroutine per connection,
// a command dispatch loop) with the wire framing swapped for JSON lines
// instead of manually-delimited base64 blobs.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"

	"opaque"
	"opaque/internal/demowire"
)

// demoClrEnv is the fixed cleartext envelope associated data this demo
// agrees on out of band.
const demoClrEnv = "ClrEnv\x00"

func main() {
	addr := flag.String("l", ":9999", "address to listen on")
	flag.Parse()

	srv := opaque.NewServer(len(demoClrEnv))

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	log.Printf("opaque-server listening on %s", *addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("accept: %v", err)
			continue
		}
		go handleConn(srv, conn)
	}
}

func handleConn(srv *opaque.Server, conn net.Conn) {
	defer conn.Close()
	log.Printf("connection from %s", conn.RemoteAddr())
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	for {
		var env demowire.Envelope
		if err := demowire.Read(r, &env); err != nil {
			log.Printf("connection closed: %v", err)
			return
		}

		reply, err := dispatch(srv, env)
		if err != nil {
			log.Printf("%s: %v", env.Cmd, err)
			if werr := demowire.Write(w, demowire.Envelope{Cmd: env.Cmd, Err: err.Error()}); werr != nil {
				return
			}
			continue
		}
		if err := demowire.Write(w, reply); err != nil {
			return
		}
	}
}

func dispatch(srv *opaque.Server, env demowire.Envelope) (demowire.Envelope, error) {
	switch env.Cmd {
	case "register1":
		var msg1 opaque.RegMsg1
		if err := json.Unmarshal(env.Payload, &msg1); err != nil {
			return demowire.Envelope{}, err
		}
		msg2, err := srv.ServerRegister1(env.ID, &msg1)
		if err != nil {
			return demowire.Envelope{}, err
		}
		return envelopeFor("register2", env.ID, msg2)

	case "register3":
		var msg3 opaque.RegMsg3
		if err := json.Unmarshal(env.Payload, &msg3); err != nil {
			return demowire.Envelope{}, err
		}
		if err := srv.ServerFinishRegistration(env.ID, &msg3); err != nil {
			return demowire.Envelope{}, err
		}
		log.Printf("registered user %q", env.ID)
		return demowire.Envelope{Cmd: "register-ok", ID: env.ID}, nil

	case "login1":
		var msg1 opaque.LoginMsg1
		if err := json.Unmarshal(env.Payload, &msg1); err != nil {
			return demowire.Envelope{}, err
		}
		ids := opaque.Ids{IDU: []byte(env.ID), IDS: []byte("opaque-server")}
		msg2, err := srv.ServerLogin(env.ID, &msg1, ids, opaque.Infos{})
		if err != nil {
			return demowire.Envelope{}, err
		}
		return envelopeFor("login2", env.ID, msg2)

	case "login3":
		var authU []byte
		if err := json.Unmarshal(env.Payload, &authU); err != nil {
			return demowire.Envelope{}, err
		}
		sk, err := srv.ServerFinishLogin(env.ID, opaque.Infos{}, authU)
		if err != nil {
			return demowire.Envelope{}, err
		}
		log.Printf("login complete for %q, session key %x", env.ID, sk[:8])
		return demowire.Envelope{Cmd: "login-ok", ID: env.ID}, nil

	default:
		return demowire.Envelope{}, fmt.Errorf("unknown command %q", env.Cmd)
	}
}

func envelopeFor(cmd, id string, v interface{}) (demowire.Envelope, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return demowire.Envelope{}, err
	}
	return demowire.Envelope{Cmd: cmd, ID: id, Payload: payload}, nil
}
