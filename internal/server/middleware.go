package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/YuriFontella/strawberry-auth/internal/auth"
	"github.com/YuriFontella/strawberry-auth/internal/obs"
	userdomain "github.com/YuriFontella/strawberry-auth/internal/user/domain"
)

// identityKey is the gin context key the auth middleware stores the
// resolved profile under.
const identityKey = "currentUser"

// RequireAuth runs the gate for the request's credential cookies, applies
// the resulting cookie side effects, and aborts with 401 on denial.
func RequireAuth(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken, _ := c.Cookie(AccessCookie)
		refreshToken, _ := c.Cookie(RefreshCookie)

		res := gate.Authenticate(c.Request.Context(), accessToken, refreshToken)

		if res.NewAccessToken != "" {
			setRefreshedAccessCookie(c, res.NewAccessToken)
			obs.TokenRefreshes.WithLabelValues(obs.ResultSuccess).Inc()
		}
		if res.ClearCookies {
			clearAuthCookies(c)
			if res.State == auth.StateInvalid && refreshToken != "" {
				obs.TokenRefreshes.WithLabelValues(obs.ResultFailure).Inc()
			}
		}

		if !res.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": res.Reason})
			return
		}

		c.Set(identityKey, res.Identity)
		c.Next()
	}
}

// currentUser returns the profile the auth middleware resolved, or nil.
func currentUser(c *gin.Context) *userdomain.Profile {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	p, _ := v.(*userdomain.Profile)
	return p
}
