// Package admin adapts the gateway's auth primitives to the capability
// set the privileged user-administration console expects.
package admin

import (
	"context"
	"net/http"

	"github.com/MO-RISE/crowsnest/internal/identity"
	"github.com/MO-RISE/crowsnest/internal/metrics"
)

// Admin check outcomes as recorded by metrics
const (
	resultAuthorized = "authorized"
	resultNotAdmin   = "not_admin"
	resultFailed     = "failed"
)

// Redirect instructs the console to navigate to a login destination.
// LogoutUser distinguishes "go log in again" from "drop local state".
type Redirect struct {
	To         string
	Message    string
	LogoutUser bool
}

// AuthProvider is the explicit contract the privileged console consumes.
// Six named capabilities, fixed input and output types; no duck typing.
type AuthProvider interface {
	// Login performs the credential exchange. Failures surface the
	// underlying detail to the caller.
	Login(ctx context.Context, creds identity.Credentials) (*identity.LoginResult, error)

	// Logout drops the server session best-effort and returns the admin
	// login destination unconditionally.
	Logout(ctx context.Context, cookie string) string

	// CheckAuth verifies the session and requires the administrator
	// flag. A verified non-admin session fails with a permission
	// failure so the console can say why.
	CheckAuth(ctx context.Context, cookie string) (*identity.Session, error)

	// CheckError classifies a failure the console ran into elsewhere:
	// 401 and 403 demand re-authentication (without dropping local
	// state), anything else is the console's to display.
	CheckError(failure *identity.Failure) *Redirect

	// GetIdentity projects the session into what the console shows in
	// its top bar.
	GetIdentity(ctx context.Context, cookie string) (*identity.Identity, error)

	// GetPermissions resolves with no claims; the administrator boolean
	// is the only permission axis and CheckAuth already enforces it.
	GetPermissions(ctx context.Context, cookie string) ([]string, error)
}

// AuthClient is the slice of the identity client the gate needs.
type AuthClient interface {
	Verify(ctx context.Context, cookie string) (*identity.Session, error)
	Login(ctx context.Context, creds identity.Credentials) (*identity.LoginResult, error)
	Logout(ctx context.Context, cookie string)
}

// Gate is the concrete AuthProvider backed by the identity client.
type Gate struct {
	client    AuthClient
	loginPath string
	recorder  metrics.Recorder
}

var _ AuthProvider = (*Gate)(nil)

// NewGate creates a Gate redirecting to loginPath (the admin console's
// login destination) when a check fails.
func NewGate(client AuthClient, loginPath string, recorder metrics.Recorder) *Gate {
	if recorder == nil {
		recorder = metrics.NewNoopMetrics()
	}
	return &Gate{
		client:    client,
		loginPath: loginPath,
		recorder:  recorder,
	}
}

// Login delegates to the identity client.
func (g *Gate) Login(ctx context.Context, creds identity.Credentials) (*identity.LoginResult, error) {
	return g.client.Login(ctx, creds)
}

// Logout delegates to the identity client and always resolves to the
// admin login destination, whatever the server said.
func (g *Gate) Logout(ctx context.Context, cookie string) string {
	g.client.Logout(ctx, cookie)
	return g.loginPath
}

// CheckAuth verifies the session and the administrator flag.
func (g *Gate) CheckAuth(ctx context.Context, cookie string) (*identity.Session, error) {
	session, err := g.client.Verify(ctx, cookie)
	if err != nil {
		g.recorder.RecordAdminCheck(resultFailed)
		return nil, err
	}

	if !session.Administrator {
		g.recorder.RecordAdminCheck(resultNotAdmin)
		return nil, &identity.Failure{
			Kind:   identity.KindPermission,
			Detail: "insufficient privileges",
			Status: http.StatusForbidden,
		}
	}

	g.recorder.RecordAdminCheck(resultAuthorized)
	return session, nil
}

// CheckError maps a failure's HTTP status to an action. 401 and 403 force
// re-authentication without a local logout; any other status (including
// server errors) resolves without action.
func (g *Gate) CheckError(failure *identity.Failure) *Redirect {
	if failure == nil {
		return nil
	}
	if failure.Status == http.StatusUnauthorized || failure.Status == http.StatusForbidden {
		return &Redirect{To: g.loginPath, LogoutUser: false}
	}
	return nil
}

// GetIdentity verifies the session and projects it for display.
func (g *Gate) GetIdentity(ctx context.Context, cookie string) (*identity.Identity, error) {
	session, err := g.client.Verify(ctx, cookie)
	if err != nil {
		return nil, err
	}
	return &identity.Identity{
		ID:       session.Username,
		FullName: session.FullName(),
	}, nil
}

// GetPermissions resolves with no claims.
func (g *Gate) GetPermissions(ctx context.Context, cookie string) ([]string, error) {
	return nil, nil
}
