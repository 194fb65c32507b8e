package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Cookie names carrying the credential artifacts.
const (
	AccessCookie  = "x-access-token"
	RefreshCookie = "x-refresh-token"
)

// setLoginCookies writes both credential cookies as session cookies
// (no Max-Age): they last until the browser closes.
func setLoginCookies(c *gin.Context, accessToken, refreshToken string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, accessToken, 0, "/", "", false, true)
	c.SetCookie(RefreshCookie, refreshToken, 0, "/", "", false, true)
}

// setRefreshedAccessCookie replaces only the access cookie after a
// transparent refresh.
func setRefreshedAccessCookie(c *gin.Context, accessToken string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(AccessCookie, accessToken, 0, "/", "", false, true)
}

// clearAuthCookies drops both credential cookies.
func clearAuthCookies(c *gin.Context) {
	c.SetCookie(AccessCookie, "", -1, "/", "", false, true)
	c.SetCookie(RefreshCookie, "", -1, "/", "", false, true)
}

// clientIP prefers the reverse-proxy headers the deployment sets, falling
// back to the socket peer.
func clientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i >= 0 {
			ip = ip[:i]
		}
		return strings.TrimSpace(ip)
	}
	return c.ClientIP()
}
