package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MO-RISE/crowsnest/internal/identity"
)

const cookieName = "crowsnest-auth-access"

// fakeVerifier counts calls and returns a canned result.
type fakeVerifier struct {
	calls   int32
	session *identity.Session
	err     error
}

func (f *fakeVerifier) Verify(ctx context.Context, cookie string) (*identity.Session, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.session, f.err
}

func newTestRouter(verifier Verifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := New(verifier, cookieName, "/login", nil)

	r := gin.New()
	guarded := r.Group("/", g.Middleware())
	guarded.GET("/ecdis", func(c *gin.Context) {
		session, ok := SessionFromContext(c)
		if !ok {
			c.String(http.StatusInternalServerError, "no session in context")
			return
		}
		c.String(http.StatusOK, "hello "+session.Username)
	})
	guarded.GET("/reports/weekly", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	guarded.GET("/charts/area 51", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestGuard_NoCookieRedirectsWithoutVerifierCall(t *testing.T) {
	verifier := &fakeVerifier{}
	r := newTestRouter(verifier)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/reports/weekly", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?from=%2Freports%2Fweekly", w.Header().Get("Location"))
	assert.Equal(t, int32(0), atomic.LoadInt32(&verifier.calls), "verifier must not run without a cookie")
}

func TestGuard_UnrelatedCookieStillRedirects(t *testing.T) {
	verifier := &fakeVerifier{}
	r := newTestRouter(verifier)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ecdis", nil)
	req.Header.Set("Cookie", "theme=dark; lang=sv")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, int32(0), atomic.LoadInt32(&verifier.calls))
}

func TestGuard_FromParameterRoundTrips(t *testing.T) {
	verifier := &fakeVerifier{}
	r := newTestRouter(verifier)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/charts/area%2051", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login", location.Path)
	assert.Equal(t, "/charts/area 51", location.Query().Get("from"), "from must decode to the exact original path")
}

func TestGuard_ValidCookieAuthorizes(t *testing.T) {
	verifier := &fakeVerifier{
		session: &identity.Session{Username: "alice", Firstname: "Alice", Lastname: "Andersson"},
	}
	r := newTestRouter(verifier)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ecdis", nil)
	req.Header.Set("Cookie", cookieName+"=abc123")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello alice", w.Body.String())
	assert.Equal(t, int32(1), atomic.LoadInt32(&verifier.calls))
}

func TestGuard_NonAdminSessionStillAuthorizes(t *testing.T) {
	// Plain route authorization ignores the administrator flag; only the
	// admin console gate cares about it.
	verifier := &fakeVerifier{
		session: &identity.Session{Username: "bob", Administrator: false},
	}
	r := newTestRouter(verifier)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ecdis", nil)
	req.Header.Set("Cookie", cookieName+"=abc123")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuard_AuthFailureRedirectsWithMessage(t *testing.T) {
	verifier := &fakeVerifier{
		err: &identity.Failure{Kind: identity.KindAuth, Detail: "Not authenticated", Status: http.StatusUnauthorized},
	}
	r := newTestRouter(verifier)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ecdis", nil)
	req.Header.Set("Cookie", cookieName+"=expired")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/ecdis", location.Query().Get("from"))
	assert.Equal(t, "Not authenticated", location.Query().Get("message"))
}

func TestGuard_NetworkFailureRedirectsWithoutMessage(t *testing.T) {
	verifier := &fakeVerifier{
		err: &identity.Failure{Kind: identity.KindNetwork, Detail: "connection refused"},
	}
	r := newTestRouter(verifier)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ecdis", nil)
	req.Header.Set("Cookie", cookieName+"=abc123")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/ecdis", location.Query().Get("from"))
	assert.Empty(t, location.Query().Get("message"))
}

func TestGuard_EachNavigationVerifiesIndependently(t *testing.T) {
	verifier := &fakeVerifier{session: &identity.Session{Username: "alice"}}
	r := newTestRouter(verifier)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ecdis", nil)
		req.Header.Set("Cookie", cookieName+"=abc123")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&verifier.calls), "no coalescing across navigations")
}
