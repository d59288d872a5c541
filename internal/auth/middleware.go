package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fundlink/chat-service/internal/domain"
	"github.com/fundlink/chat-service/pkg/log"
	"github.com/fundlink/chat-service/pkg/response"
)

const (
	identityKey   = "identity"
	authHeaderKey = "Authorization"
	bearerPrefix  = "Bearer "
)

// RequireAuth returns a Gin middleware that validates bearer tokens on the
// pull-based HTTP surface with the same validator the WebSocket handshake
// uses.
func RequireAuth(v *Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(authHeaderKey)
		if authHeader == "" {
			response.AbortError(c, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "missing authorization header")
			return
		}

		if !strings.HasPrefix(authHeader, bearerPrefix) {
			response.AbortError(c, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "invalid authorization format")
			return
		}

		token := strings.TrimPrefix(authHeader, bearerPrefix)
		identity, err := v.Validate(c.Request.Context(), token)
		if err != nil {
			response.AbortError(c, http.StatusUnauthorized, domain.ErrCodeUnauthorized, err.Error())
			return
		}

		c.Set(identityKey, identity)
		c.Set(log.FieldUserID, identity.ID)

		c.Next()
	}
}

// IdentityFrom extracts the validated identity from the Gin context.
func IdentityFrom(c *gin.Context) (*domain.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*domain.Identity)
	return identity, ok
}
