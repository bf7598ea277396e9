package auth

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/terndb/tern-go/rpc/common"
	"github.com/xdg-go/scram"
)

var Logger = logger.GetLogger("auth")

// NewSCRAMSHA256 creates an authenticator running a SCRAM-SHA-256
// conversation during connect. This is the mechanism tern servers expect.
func NewSCRAMSHA256() IAuthenticator {
	return &scramAuthenticator{hash: scram.SHA256, name: "scram-sha-256"}
}

// NewSCRAMSHA1 creates an authenticator running a SCRAM-SHA-1 conversation,
// for older servers.
func NewSCRAMSHA1() IAuthenticator {
	return &scramAuthenticator{hash: scram.SHA1, name: "scram-sha-1"}
}

// scramAuthenticator exchanges newline-terminated SCRAM messages on the raw
// socket. The handshake runs before the first frame, so no framing applies.
type scramAuthenticator struct {
	hash scram.HashGeneratorFcn
	name string
}

// --------------------------------------------------------------------------
// Interface Methods (docu see auth.IAuthenticator)
// --------------------------------------------------------------------------

func (a *scramAuthenticator) GetName() string { return a.name }

func (a *scramAuthenticator) Authenticate(creds common.Credentials, rw io.ReadWriter) error {
	client, err := a.hash.NewClient(creds.Username, creds.Password, "")
	if err != nil {
		return fmt.Errorf("building %s client: %w", a.name, err)
	}

	conv := client.NewConversation()
	r := bufio.NewReader(rw)

	challenge := ""
	for !conv.Done() {
		msg, err := conv.Step(challenge)
		if err != nil {
			return fmt.Errorf("%s conversation: %w", a.name, err)
		}

		if msg != "" {
			if _, err := io.WriteString(rw, msg+"\n"); err != nil {
				return fmt.Errorf("sending %s message: %w", a.name, err)
			}
		}

		if conv.Done() {
			break
		}

		line, err := r.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading %s challenge: %w", a.name, err)
		}
		challenge = strings.TrimRight(line, "\r\n")
	}

	if !conv.Valid() {
		return fmt.Errorf("%s: server failed to prove itself", a.name)
	}

	Logger.Debugf("%s handshake completed for user %s", a.name, creds.Username)
	return nil
}
