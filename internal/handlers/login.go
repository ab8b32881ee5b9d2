// Package handlers serves the gateway's own login and logout surface.
package handlers

import (
	"context"
	"embed"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/MO-RISE/crowsnest/internal/identity"
	"github.com/MO-RISE/crowsnest/internal/metrics"
	"github.com/MO-RISE/crowsnest/internal/util"
)

//go:embed templates/login.html
var templatesFS embed.FS

var loginTemplate = template.Must(template.ParseFS(templatesFS, "templates/login.html"))

const flashMessageKey = "login_message"

// Login exchange outcomes as recorded by metrics
const (
	resultSuccess          = "success"
	resultValidationFailed = "validation_failed"
	resultAuthFailed       = "auth_failed"
	resultNetworkFailed    = "network_failed"
)

// AuthClient is the slice of the identity client the handlers use.
type AuthClient interface {
	Login(ctx context.Context, creds identity.Credentials) (*identity.LoginResult, error)
	Logout(ctx context.Context, cookie string)
}

// LoginHandler serves the login page and runs the login and logout
// exchanges against the auth service.
type LoginHandler struct {
	client            AuthClient
	baseURL           string
	sessionCookieName string
	recorder          metrics.Recorder
}

// NewLoginHandler creates the handler set for a login route.
func NewLoginHandler(client AuthClient, baseURL, sessionCookieName string, recorder metrics.Recorder) *LoginHandler {
	if recorder == nil {
		recorder = metrics.NewNoopMetrics()
	}
	return &LoginHandler{
		client:            client,
		baseURL:           baseURL,
		sessionCookieName: sessionCookieName,
		recorder:          recorder,
	}
}

type loginPageData struct {
	Title   string
	Action  string
	From    string
	URL     string
	Message string
}

// ShowLogin renders the login page. The from parameter (set by the route
// guard) and the legacy url and message parameters are honored; a flash
// message left by a failed exchange takes precedence over message.
func (h *LoginHandler) ShowLogin(title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		message := c.Query("message")

		session := sessions.Default(c)
		if flashes := session.Flashes(flashMessageKey); len(flashes) > 0 {
			if s, ok := flashes[0].(string); ok {
				message = s
			}
			if err := session.Save(); err != nil {
				log.Printf("failed to clear login flash: %v", err)
			}
		}

		redirectURL := c.Query("url")
		if !util.IsRedirectSafe(redirectURL, h.baseURL) {
			redirectURL = ""
		}

		data := loginPageData{
			Title:   title,
			Action:  c.Request.URL.Path,
			From:    c.Query("from"),
			URL:     redirectURL,
			Message: message,
		}

		c.Status(http.StatusOK)
		c.Header("Content-Type", "text/html; charset=utf-8")
		if err := loginTemplate.Execute(c.Writer, data); err != nil {
			log.Printf("failed to render login page: %v", err)
		}
	}
}

// Login handles the form submission. On success the auth service's
// Set-Cookie headers are relayed to the browser and navigation resumes at
// the from path (application root when none was captured). On failure the
// browser returns to the login page with the failure detail flashed.
func (h *LoginHandler) Login(c *gin.Context) {
	creds := identity.Credentials{
		Username: c.PostForm("username"),
		Password: c.PostForm("password"),
	}

	from := c.PostForm("from")
	if !util.IsRedirectSafe(from, h.baseURL) {
		from = ""
	}
	redirectURL := c.PostForm("url")
	if !util.IsRedirectSafe(redirectURL, h.baseURL) {
		redirectURL = ""
	}

	result, err := h.client.Login(c.Request.Context(), creds)
	if err != nil {
		h.recorder.RecordLogin(loginResultLabel(err))
		h.failLogin(c, from, redirectURL, err)
		return
	}

	h.recorder.RecordLogin(resultSuccess)

	// Relay the session cookie the auth service issued
	for _, cookie := range result.SetCookies {
		c.Writer.Header().Add("Set-Cookie", cookie)
	}

	switch {
	case redirectURL != "":
		// Legacy absolute target, already validated against the base URL
		c.Redirect(http.StatusFound, redirectURL)
	case from != "":
		c.Redirect(http.StatusFound, from)
	default:
		c.Redirect(http.StatusFound, "/")
	}
}

// Logout runs the best-effort logout exchange, expires the session cookie
// locally and always lands on destination. Failures are deliberately
// swallowed and never shown to the user.
func (h *LoginHandler) Logout(destination string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		h.client.Logout(ctx, c.Request.Header.Get("Cookie"))

		h.recorder.RecordLogout()

		// Whatever the server said, the browser is logged out locally
		http.SetCookie(c.Writer, &http.Cookie{
			Name:   h.sessionCookieName,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})

		c.Redirect(http.StatusFound, destination)
	}
}

// failLogin flashes the failure detail and sends the browser back to the
// login page, preserving the navigation intent for the next attempt.
func (h *LoginHandler) failLogin(c *gin.Context, from, redirectURL string, err error) {
	detail := "Login failed"
	if failure, ok := identity.AsFailure(err); ok {
		detail = failure.Detail
	}

	session := sessions.Default(c)
	session.AddFlash(detail, flashMessageKey)
	if err := session.Save(); err != nil {
		log.Printf("failed to save login flash: %v", err)
	}

	params := url.Values{}
	if from != "" {
		params.Set("from", from)
	}
	if redirectURL != "" {
		params.Set("url", redirectURL)
	}

	target := c.Request.URL.Path
	if encoded := params.Encode(); encoded != "" {
		target += "?" + encoded
	}
	c.Redirect(http.StatusFound, target)
}

func loginResultLabel(err error) string {
	failure, ok := identity.AsFailure(err)
	if !ok {
		return resultNetworkFailed
	}
	switch failure.Kind {
	case identity.KindValidation:
		return resultValidationFailed
	case identity.KindAuth:
		return resultAuthFailed
	default:
		return resultNetworkFailed
	}
}
