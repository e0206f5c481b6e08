package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"

	"github.com/avolkov-dev/authguard/internal/token"
)

const claimsKey = "session_claims"

// sessionRequired validates the inbound access token and stores its claims in
// the request context. The token travels in the access cookie, with a bearer
// header as the fallback for non-browser clients.
func (h *handler) sessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := h.accessToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing access token"})
			return
		}
		claims, err := h.auth.Validate(c.Request.Context(), raw, c.Request.UserAgent())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// adminRequired runs after sessionRequired and gates on the is_admin claim.
func (h *handler) adminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := sessionClaims(c); claims == nil || !claims.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "admin only"})
			return
		}
		c.Next()
	}
}

func sessionClaims(c *gin.Context) *token.AccessClaims {
	v, _ := c.Get(claimsKey)
	claims, _ := v.(*token.AccessClaims)
	return claims
}

// sessionUserID parses the subject of the validated claims.
func sessionUserID(c *gin.Context) (uuid.UUID, bool) {
	claims := sessionClaims(c)
	if claims == nil {
		return uuid.Nil, false
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (h *handler) accessToken(c *gin.Context) string {
	if v, err := c.Cookie(h.cfg.AccessCookie); err == nil && v != "" {
		return v
	}
	if after, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}
