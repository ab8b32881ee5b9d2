// Package proxy forwards guarded navigations to the platform's upstream
// apps (map viewer, admin console) once the guard has let them through.
package proxy

import (
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
)

// Upstream is a reverse proxy to one of the platform's apps.
type Upstream struct {
	target *url.URL
	proxy  *httputil.ReverseProxy
}

// New creates an Upstream for rawURL.
func New(rawURL string) (*Upstream, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL %q: %w", rawURL, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("upstream URL %q must be absolute", rawURL)
	}

	p := httputil.NewSingleHostReverseProxy(target)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("upstream %s unreachable: %v", target.Host, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprintf(w, `{"detail":"upstream unavailable"}`)
	}

	return &Upstream{target: target, proxy: p}, nil
}

// Handler adapts the proxy to a gin route.
func (u *Upstream) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		u.proxy.ServeHTTP(c.Writer, c.Request)
	}
}

// StripPrefix serves like Handler but removes prefix from the request
// path first, for upstreams that expect to be mounted at their root.
func (u *Upstream) StripPrefix(prefix string) gin.HandlerFunc {
	h := http.StripPrefix(prefix, u.proxy)
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
