package auth

import (
	"io"

	"github.com/terndb/tern-go/rpc/common"
)

// IAuthenticator performs the connect-time handshake on the raw connection,
// before the first frame is exchanged. The transport only cares whether the
// handshake succeeded; its cryptographic content is this package's business.
type IAuthenticator interface {
	// Authenticate runs the handshake over the given stream. A non-nil
	// error marks the connection unusable.
	Authenticate(creds common.Credentials, rw io.ReadWriter) error

	// GetName returns the name of the authentication mechanism
	GetName() string
}

// --------------------------------------------------------------------------
// No-op implementation
// --------------------------------------------------------------------------

// None returns an authenticator that performs no handshake at all,
// for servers running without authentication.
func None() IAuthenticator {
	return &noneAuthenticator{}
}

type noneAuthenticator struct{}

func (a *noneAuthenticator) GetName() string { return "none" }

func (a *noneAuthenticator) Authenticate(_ common.Credentials, _ io.ReadWriter) error {
	return nil
}
