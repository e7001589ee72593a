package middleware

import (
	"errors"
	"net/http"
	"strings"

	"clinic_backend/internal/model"
	"clinic_backend/internal/utils"

	"github.com/gin-gonic/gin"
)

// Failure reasons reported to clients and metrics.
const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonInvalidToken    = "invalid_token"
	ReasonTokenExpired    = "token_expired"
	ReasonForbidden       = "forbidden"
)

// AuthFailureRecorder counts rejected requests by reason.
type AuthFailureRecorder interface {
	RecordAuthFailure(reason string)
}

// authenticate validates the bearer token and stores the identity on the
// request context. On failure it aborts with 401.
func authenticate(c *gin.Context, jwtUtil *utils.JWTUtil, rec AuthFailureRecorder) bool {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		abortAuth(c, rec, http.StatusUnauthorized, ReasonUnauthenticated, "Authorization header required")
		return false
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		abortAuth(c, rec, http.StatusUnauthorized, ReasonUnauthenticated, "Invalid authorization header format")
		return false
	}

	claims, err := jwtUtil.ValidateToken(parts[1])
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			abortAuth(c, rec, http.StatusUnauthorized, ReasonTokenExpired, "Token expired")
		} else {
			abortAuth(c, rec, http.StatusUnauthorized, ReasonInvalidToken, "Invalid token")
		}
		return false
	}

	identity, err := claims.Identity()
	if err != nil {
		abortAuth(c, rec, http.StatusUnauthorized, ReasonInvalidToken, "Invalid token")
		return false
	}

	c.Request = c.Request.WithContext(model.WithIdentity(c.Request.Context(), identity))
	return true
}

func abortAuth(c *gin.Context, rec AuthFailureRecorder, status int, reason, msg string) {
	if rec != nil {
		rec.RecordAuthFailure(reason)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": reason})
}

// IdentityFrom returns the identity of an authenticated request.
func IdentityFrom(c *gin.Context) (model.Identity, bool) {
	return model.IdentityFromContext(c.Request.Context())
}
