package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MO-RISE/crowsnest/internal/config"
)

// testConfig creates a config pointing at the mock auth service with
// retries disabled for predictable behaviour.
func testConfig(url string) *config.Config {
	return &config.Config{
		AuthAPIURL:     url,
		AuthAPITimeout: 10 * time.Second,
		AuthMaxRetries: 0,
		AuthRetryDelay: time.Millisecond,
		AuthMaxDelay:   time.Millisecond,
	}
}

func TestVerify_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "crowsnest-auth-access=abc123", r.Header.Get("Cookie"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"username":"alice","firstname":"Alice","lastname":"Andersson","admin":true}`)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	session, err := client.Verify(context.Background(), "crowsnest-auth-access=abc123")
	require.NoError(t, err)

	assert.Equal(t, "alice", session.Username)
	assert.Equal(t, "Alice Andersson", session.FullName())
	assert.True(t, session.Administrator)
}

func TestVerify_UnauthorizedCarriesDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"detail":"Not authenticated"}`)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	session, err := client.Verify(context.Background(), "")
	require.Error(t, err)
	assert.Nil(t, session)

	failure, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindAuth, failure.Kind)
	assert.Equal(t, "Not authenticated", failure.Detail)
	assert.Equal(t, http.StatusUnauthorized, failure.Status)
}

func TestVerify_MissingFieldIsContractViolation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// No admin flag in the body
		fmt.Fprint(w, `{"username":"alice","firstname":"Alice","lastname":"Andersson"}`)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Verify(context.Background(), "crowsnest-auth-access=abc")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork))
}

func TestVerify_MalformedErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "<html>bad gateway</html>")
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	client := NewClient(cfg)
	_, err := client.Verify(context.Background(), "crowsnest-auth-access=abc")
	require.Error(t, err)

	failure, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindNetwork, failure.Kind)
	assert.Equal(t, "malformed error response", failure.Detail)
}

func TestVerify_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listens anymore

	client := NewClient(testConfig(server.URL))
	_, err := client.Verify(context.Background(), "crowsnest-auth-access=abc")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork))
}

func TestVerify_ContextCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.Verify(ctx, "crowsnest-auth-access=abc")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork))
}

func TestLogin_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "alice", r.PostForm.Get("username"))
		assert.Equal(t, "correct", r.PostForm.Get("password"))
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))

		http.SetCookie(w, &http.Cookie{Name: "crowsnest-auth-access", Value: "fresh-token", Path: "/"})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	result, err := client.Login(context.Background(), Credentials{Username: "alice", Password: "correct"})
	require.NoError(t, err)
	require.Len(t, result.SetCookies, 1)
	assert.Contains(t, result.SetCookies[0], "crowsnest-auth-access=fresh-token")
}

func TestLogin_RejectedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid credentials"})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	result, err := client.Login(context.Background(), Credentials{Username: "alice", Password: "wrong"})
	require.Error(t, err)
	assert.Nil(t, result)

	failure, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindAuth, failure.Kind)
	assert.Equal(t, "Invalid credentials", failure.Detail)
}

func TestLogin_ValidationSkipsNetwork(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	for _, creds := range []Credentials{
		{Username: "", Password: "secret"},
		{Username: "alice", Password: ""},
		{Username: "   ", Password: "secret"},
		{Username: "alice", Password: "\t \n"},
		{Username: "", Password: ""},
	} {
		_, err := client.Login(context.Background(), creds)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindValidation), "credentials %+v", creds)
	}

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "validation failures must not reach the network")
}

func TestLogin_MalformedErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Login(context.Background(), Credentials{Username: "alice", Password: "pw"})
	require.Error(t, err)

	failure, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindNetwork, failure.Kind)
	assert.Equal(t, "malformed error response", failure.Detail)
	assert.Equal(t, http.StatusInternalServerError, failure.Status)
}

func TestLogout_IgnoresServerOutcome(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusUnauthorized, http.StatusInternalServerError} {
		status := status
		t.Run(fmt.Sprintf("status_%d", status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/logout", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)
				w.WriteHeader(status)
			}))
			defer server.Close()

			client := NewClient(testConfig(server.URL))
			// Must not panic and has no error to return
			client.Logout(context.Background(), "crowsnest-auth-access=abc")
		})
	}
}

func TestLogout_SurvivesUnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(testConfig(server.URL))
	client.Logout(context.Background(), "crowsnest-auth-access=abc")
}
