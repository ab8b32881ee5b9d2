package admin

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/MO-RISE/crowsnest/internal/identity"
)

const sessionContextKey = "crowsnest_admin_session"

// Middleware gates the admin console routes on CheckAuth. A failed check
// redirects to the admin login carrying the originally requested path;
// a verified non-admin user additionally gets told why.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := g.CheckAuth(c.Request.Context(), c.Request.Header.Get("Cookie"))
		if err != nil {
			params := url.Values{}
			params.Set("from", c.Request.URL.Path)
			if failure, ok := identity.AsFailure(err); ok && failure.Kind == identity.KindPermission {
				params.Set("message", failure.Detail)
			}
			c.Redirect(http.StatusFound, g.loginPath+"?"+params.Encode())
			c.Abort()
			return
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// SessionFromContext returns the admin session attached by Middleware.
func SessionFromContext(c *gin.Context) (*identity.Session, bool) {
	value, exists := c.Get(sessionContextKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*identity.Session)
	return session, ok
}

// IdentityHandler serves the console's identity projection.
func (g *Gate) IdentityHandler(c *gin.Context) {
	id, err := g.GetIdentity(c.Request.Context(), c.Request.Header.Get("Cookie"))
	if err != nil {
		status := http.StatusUnauthorized
		if failure, ok := identity.AsFailure(err); ok && failure.Status != 0 {
			status = failure.Status
		}
		c.JSON(status, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, id)
}

// PermissionsHandler serves the (empty) permission claims.
func (g *Gate) PermissionsHandler(c *gin.Context) {
	claims, _ := g.GetPermissions(c.Request.Context(), c.Request.Header.Get("Cookie"))
	if claims == nil {
		claims = []string{}
	}
	c.JSON(http.StatusOK, claims)
}
