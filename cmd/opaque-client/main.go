// Command opaque-client is the counterpart demo to cmd/opaque-server: it
// registers a username/password with the server and then logs in,
// printing the negotiated session key and logging both the export key
// produced at registration and the one recovered at login; it does not
// compare the two itself. Modeled
// on frekui-opaque/cmd/client's flag-driven, single-shot connection
// shape.
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

const demoClrEnv = "ClrEnv\x00"

func main() {
	addr := flag.String("addr", "localhost:9999", "server address")
	user := flag.String("user", "", "username")
	pass := flag.String("pass", "", "password")
	extra := flag.String("extra", "", "extra payload to seal in the envelope")
	flag.Parse()

	if *user == "" || *pass == "" {
		log.Fatal("both -user and -pass are required")
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	if err := register(r, w, *user, *pass, *extra); err != nil {
		log.Fatalf("register: %v", err)
	}
	log.Printf("registered %q", *user)

	if err := login(r, w, *user, *pass); err != nil {
		log.Fatalf("login: %v", err)
	}
}

func register(r *bufio.Reader, w *bufio.Writer, user, pass, extra string) error {
	client := opaque.NewClient(user)

	msg1, err := client.BeginRegistration([]byte(pass))
	if err != nil {
		return fmt.Errorf("BeginRegistration: %w", err)
	}
	reply, err := roundTrip(r, w, "register1", user, msg1)
	if err != nil {
		return err
	}
	var msg2 opaque.RegMsg2
	if err := json.Unmarshal(reply.Payload, &msg2); err != nil {
		return err
	}

	msg3, exportKey, err := client.FinishRegistration([]byte(pass), []byte(extra), nil, []byte(demoClrEnv), &msg2)
	if err != nil {
		return fmt.Errorf("FinishRegistration: %w", err)
	}
	log.Printf("registration export key: %x", exportKey)

	if _, err := roundTrip(r, w, "register3", user, msg3); err != nil {
		return err
	}
	return nil
}

func login(r *bufio.Reader, w *bufio.Writer, user, pass string) error {
	client := opaque.NewClient(user)

	msg1, err := client.BeginLogin([]byte(pass))
	if err != nil {
		return fmt.Errorf("BeginLogin: %w", err)
	}
	reply, err := roundTrip(r, w, "login1", user, msg1)
	if err != nil {
		return err
	}
	var msg2 opaque.LoginMsg2
	if err := json.Unmarshal(reply.Payload, &msg2); err != nil {
		return err
	}

	ids := opaque.Ids{IDU: []byte(user), IDS: []byte("opaque-server")}
	sk, exportKey, extraOut, authU, err := client.FinishLogin([]byte(pass), nil, len(demoClrEnv), ids, opaque.Infos{}, &msg2)
	if err != nil {
		return fmt.Errorf("FinishLogin: %w", err)
	}
	log.Printf("session key: %x", sk)
	log.Printf("login export key: %x", exportKey)
	log.Printf("recovered extra payload: %q", extraOut)

	if _, err := roundTrip(r, w, "login3", user, authU); err != nil {
		return err
	}
	return nil
}

func roundTrip(r *bufio.Reader, w *bufio.Writer, cmd, id string, v interface{}) (demowire.Envelope, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return demowire.Envelope{}, err
	}
	if err := demowire.Write(w, demowire.Envelope{Cmd: cmd, ID: id, Payload: payload}); err != nil {
		return demowire.Envelope{}, err
	}
	var reply demowire.Envelope
	if err := demowire.Read(r, &reply); err != nil {
		return demowire.Envelope{}, err
	}
	if reply.Err != "" {
		return demowire.Envelope{}, fmt.Errorf("server: %s", reply.Err)
	}
	return reply, nil
}
