package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	auditrepo "github.com/YuriFontella/strawberry-auth/internal/audit/repository"
	"github.com/YuriFontella/strawberry-auth/internal/auth"
	"github.com/YuriFontella/strawberry-auth/internal/obs"
	userdomain "github.com/YuriFontella/strawberry-auth/internal/user/domain"
)

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authHandler struct {
	svc    *auth.Service
	events auditrepo.Repository
}

func (h *authHandler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	var ve *userdomain.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
	default:
		obs.Registrations.Inc()
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	}
}

func (h *authHandler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password,
		c.GetHeader("User-Agent"), clientIP(c))
	switch {
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrWrongPassword):
		obs.Logins.WithLabelValues(obs.ResultFailure).Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
	case errors.Is(err, auth.ErrUserInactive):
		obs.Logins.WithLabelValues(obs.ResultFailure).Inc()
		c.JSON(http.StatusForbidden, gin.H{"error": "user is inactive"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
	default:
		obs.Logins.WithLabelValues(obs.ResultSuccess).Inc()
		setLoginCookies(c, pair.AccessToken, pair.RefreshToken)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// logout revokes the session behind the refresh cookie and clears both
// cookies. Always succeeds, even without a valid session.
func (h *authHandler) logout(c *gin.Context) {
	if refreshToken, err := c.Cookie(RefreshCookie); err == nil && refreshToken != "" {
		h.svc.Logout(c.Request.Context(), refreshToken)
	}
	clearAuthCookies(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// deactivate marks the current account inactive and clears the credential
// cookies. Sessions stop resolving immediately through the lookup filter.
func (h *authHandler) deactivate(c *gin.Context) {
	p := currentUser(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	if err := h.svc.Deactivate(c.Request.Context(), p.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "deactivation failed"})
		return
	}
	clearAuthCookies(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// listEvents returns the current user's audit trail, newest first.
func (h *authHandler) listEvents(c *gin.Context) {
	p := currentUser(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	limit := queryInt32(c, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt32(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	events, err := h.events.ListByUser(c.Request.Context(), p.ID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load events"})
		return
	}

	out := make([]gin.H, 0, len(events))
	for _, e := range events {
		out = append(out, gin.H{
			"uuid":       e.ID,
			"action":     e.Action,
			"ip":         e.IP,
			"user_agent": e.UserAgent,
			"metadata":   e.Metadata,
			"date":       e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

func queryInt32(c *gin.Context, name string, fallback int32) int32 {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return fallback
	}
	return int32(n)
}

func (h *authHandler) me(c *gin.Context) {
	p := currentUser(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"uuid":        p.ID,
		"name":        p.Name,
		"email":       p.Email,
		"role":        p.Role,
		"fingerprint": p.Fingerprint,
		"avatar":      p.Avatar,
		"status":      p.Active,
		"date":        p.CreatedAt,
	})
}
