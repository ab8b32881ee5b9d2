// Package guard gates navigations on a verified session.
//
// Every guarded request runs the same two-step check: a cheap local probe
// for the session cookie, then the authoritative remote identity check.
// The probe only ever short-circuits towards the login page; it never
// authorizes. A request that fails either step is redirected to the login
// route carrying the originally requested path so a later successful
// login can resume it.
package guard

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MO-RISE/crowsnest/internal/identity"
	"github.com/MO-RISE/crowsnest/internal/metrics"
	"github.com/MO-RISE/crowsnest/internal/token"
)

const sessionContextKey = "crowsnest_session"

// Guard check outcomes as recorded by metrics
const (
	resultAuthorized    = "authorized"
	resultNoCookie      = "no_cookie"
	resultAuthFailed    = "auth_failed"
	resultNetworkFailed = "network_failed"
)

// Verifier is the remote identity check. *identity.Client satisfies it.
type Verifier interface {
	Verify(ctx context.Context, cookie string) (*identity.Session, error)
}

// Guard decides, per navigation, whether a guarded route may render or
// must be redirected to login.
type Guard struct {
	verifier   Verifier
	cookieName string
	loginPath  string
	recorder   metrics.Recorder
}

// New creates a Guard redirecting to loginPath when the check fails.
func New(verifier Verifier, cookieName, loginPath string, recorder metrics.Recorder) *Guard {
	if recorder == nil {
		recorder = metrics.NewNoopMetrics()
	}
	return &Guard{
		verifier:   verifier,
		cookieName: cookieName,
		loginPath:  loginPath,
		recorder:   recorder,
	}
}

// Middleware returns the per-navigation gate. Each request evaluates its
// own probe/verify pair; nothing is cached or coalesced across requests.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		state := Reduce(NewState(), CheckStarted{})

		rawCookies := c.Request.Header.Get("Cookie")

		// Cheap check first: no cookie at all means no session can
		// possibly exist, skip the round trip to the auth service.
		if _, ok := token.Probe(rawCookies, g.cookieName); !ok {
			failure := &identity.Failure{Kind: identity.KindAuth, Detail: "no session cookie"}
			state = Reduce(state, CheckFailed{
				Failure:    failure,
				RedirectTo: g.loginURL(c.Request.URL.Path, ""),
			})
			g.recorder.RecordGuardCheck(resultNoCookie, time.Since(start))
			g.redirect(c, state)
			return
		}

		// The request context cancels the verification when the client
		// goes away; a superseded navigation never commits a result.
		session, err := g.verifier.Verify(c.Request.Context(), rawCookies)
		if err != nil {
			failure, ok := identity.AsFailure(err)
			if !ok {
				failure = &identity.Failure{Kind: identity.KindNetwork, Detail: err.Error()}
			}

			// An auth rejection carries the server's message to the
			// login page; a network failure redirects without one.
			message := ""
			result := resultNetworkFailed
			if failure.Kind == identity.KindAuth {
				message = failure.Detail
				result = resultAuthFailed
			}

			state = Reduce(state, CheckFailed{
				Failure:    failure,
				RedirectTo: g.loginURL(c.Request.URL.Path, message),
			})
			g.recorder.RecordGuardCheck(result, time.Since(start))
			g.redirect(c, state)
			return
		}

		state = Reduce(state, CheckSucceeded{Session: session})
		if state.Phase != PhaseAuthorized {
			// CheckSucceeded from Checking always lands in Authorized
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		g.recorder.RecordGuardCheck(resultAuthorized, time.Since(start))
		c.Set(sessionContextKey, state.Session)
		c.Next()
	}
}

// loginURL builds the redirect target carrying the originally requested
// path. The path is percent-encoded into the from parameter and decoded
// exactly on resume; an optional advisory message is carried alongside.
func (g *Guard) loginURL(fromPath, message string) string {
	params := url.Values{}
	params.Set("from", fromPath)
	if message != "" {
		params.Set("message", message)
	}
	return g.loginPath + "?" + params.Encode()
}

func (g *Guard) redirect(c *gin.Context, state State) {
	c.Redirect(http.StatusFound, state.RedirectTo)
	c.Abort()
}

// SessionFromContext returns the session the guard attached for this
// navigation. It exists only on requests that passed the guard.
func SessionFromContext(c *gin.Context) (*identity.Session, bool) {
	value, exists := c.Get(sessionContextKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*identity.Session)
	return session, ok
}
