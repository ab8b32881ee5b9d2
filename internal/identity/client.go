package identity

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MO-RISE/crowsnest/internal/config"
	"github.com/MO-RISE/crowsnest/internal/metrics"
	"github.com/MO-RISE/crowsnest/internal/retry"
)

const malformedErrorDetail = "malformed error response"

// meResponse mirrors the identity endpoint's body. Pointer fields let a
// missing field be told apart from a zero value: the endpoint contract
// requires all four, and a 2xx body violating that is a network-class
// failure, not an auth one.
type meResponse struct {
	Username  *string `json:"username"`
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	Admin     *bool   `json:"admin"`
}

// errorResponse is the auth service's failure body.
type errorResponse struct {
	Detail string `json:"detail"`
}

// LoginResult carries the cookies the auth service set on a successful
// login so the gateway can relay them to the browser.
type LoginResult struct {
	SetCookies []string
}

// Client talks to the auth service. It implements session verification,
// the login exchange and best-effort logout; every rejection surfaces as
// exactly one *Failure.
type Client struct {
	baseURL  string
	http     *retry.Client
	recorder metrics.Recorder
}

// NewClient creates a Client for the auth service named by cfg. Extra
// options override the retry behaviour, mainly for tests.
func NewClient(cfg *config.Config, opts ...retry.Option) *Client {
	options := []retry.Option{
		retry.WithHTTPClient(&http.Client{Timeout: cfg.AuthAPITimeout}),
		retry.WithMaxRetries(cfg.AuthMaxRetries),
		retry.WithInitialRetryDelay(cfg.AuthRetryDelay),
		retry.WithMaxRetryDelay(cfg.AuthMaxDelay),
	}
	options = append(options, opts...)

	return &Client{
		baseURL:  strings.TrimSuffix(cfg.AuthAPIURL, "/"),
		http:     retry.NewClient(options...),
		recorder: metrics.NewNoopMetrics(),
	}
}

// WithRecorder instruments the client's auth service calls.
func (c *Client) WithRecorder(r metrics.Recorder) *Client {
	if r != nil {
		c.recorder = r
	}
	return c
}

// Verify issues a credentialed identity check. The caller's raw Cookie
// header travels with the request so the auth service sees the session
// cookie. A *Session is returned only on a well-formed 2xx response.
func (c *Client) Verify(ctx context.Context, cookie string) (*Session, error) {
	start := time.Now()
	defer func() { c.recorder.RecordAuthAPICall("me", time.Since(start)) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me", nil)
	if err != nil {
		return nil, &Failure{Kind: KindNetwork, Detail: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, &Failure{Kind: KindNetwork, Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Failure{Kind: KindNetwork, Detail: "failed to read identity response", Status: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, failureFromErrorBody(body, resp.StatusCode)
	}

	var me meResponse
	if err := json.Unmarshal(body, &me); err != nil {
		return nil, &Failure{Kind: KindNetwork, Detail: "malformed identity response", Status: resp.StatusCode}
	}
	if me.Username == nil || me.Firstname == nil || me.Lastname == nil || me.Admin == nil {
		return nil, &Failure{Kind: KindNetwork, Detail: "identity response missing required fields", Status: resp.StatusCode}
	}

	return &Session{
		Username:      *me.Username,
		Firstname:     *me.Firstname,
		Lastname:      *me.Lastname,
		Administrator: *me.Admin,
	}, nil
}

// Login validates the credentials locally, then performs the login
// exchange. Validation failures never reach the network.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { c.recorder.RecordAuthAPICall("login", time.Since(start)) }()

	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)
	form.Set("grant_type", "password")

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/login",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, &Failure{Kind: KindNetwork, Detail: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, &Failure{Kind: KindNetwork, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &Failure{Kind: KindNetwork, Detail: malformedErrorDetail, Status: resp.StatusCode}
		}
		return nil, failureFromErrorBody(body, resp.StatusCode)
	}

	return &LoginResult{SetCookies: resp.Header.Values("Set-Cookie")}, nil
}

// Logout tells the auth service to drop the session. The outcome is
// deliberately ignored: logout is advisory to the server and the caller
// treats itself as logged out regardless.
func (c *Client) Logout(ctx context.Context, cookie string) {
	start := time.Now()
	defer func() { c.recorder.RecordAuthAPICall("logout", time.Since(start)) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/logout", nil)
	if err != nil {
		return
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

// failureFromErrorBody maps a non-2xx body to a Failure: a JSON body with
// a detail message is an auth failure carrying that message, anything
// else is a malformed response.
func failureFromErrorBody(body []byte, status int) *Failure {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Detail == "" {
		return &Failure{Kind: KindNetwork, Detail: malformedErrorDetail, Status: status}
	}
	return &Failure{Kind: KindAuth, Detail: errResp.Detail, Status: status}
}
