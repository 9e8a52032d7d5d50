package delivery

import (
	"net/http"
	"strings"

	authdomain "fled-backend/internal/auth/domain"
	"fled-backend/internal/auth/guard"
	"fled-backend/internal/auth/usecase"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware
const (
	ContextIdentity = "identity"
	ContextUserID   = "userID"
)

// AuthMiddleware runs one guard.Session per request: missing or invalid
// bearer tokens get 401, a role mismatch gets 403.
func AuthMiddleware(authUsecase usecase.AuthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := guard.NewSession()

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			effect, _ := session.Fire(guard.Event{Kind: guard.EventTokenMissing})
			apply(c, session, effect, http.StatusUnauthorized, "authorization header required")
			return
		}
		if _, err := session.Fire(guard.Event{Kind: guard.EventTokenPresented}); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		identity, err := authUsecase.ValidateToken(c.Request.Context(), token)
		if err != nil {
			effect, _ := session.Fire(guard.Event{Kind: guard.EventVerificationFailed})
			apply(c, session, effect, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		if !authUsecase.Authorized(identity) {
			effect, _ := session.Fire(guard.Event{Kind: guard.EventRoleRejected})
			apply(c, session, effect, http.StatusForbidden, "insufficient role")
			return
		}

		effect, err := session.Fire(guard.Event{Kind: guard.EventVerified, Identity: identity})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		apply(c, session, effect, http.StatusUnauthorized, "unauthorized")
	}
}

func apply(c *gin.Context, session *guard.Session, effect guard.Effect, status int, message string) {
	switch effect {
	case guard.EffectAllow:
		identity := session.Identity()
		c.Set(ContextIdentity, identity)
		c.Set(ContextUserID, identity.UID)
		c.Next()
	case guard.EffectReject:
		c.AbortWithStatusJSON(status, gin.H{"error": message})
	default:
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}

func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// IdentityFrom returns the identity stored by AuthMiddleware
func IdentityFrom(c *gin.Context) *authdomain.Identity {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return nil
	}
	identity, _ := v.(*authdomain.Identity)
	return identity
}
