package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"game-library-server/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AdminEmailKey is the gin context key holding the authenticated admin email.
const AdminEmailKey = "adminEmail"

// ParseAdminToken validates a signed admin session token and returns its claims.
func ParseAdminToken(tokenString, secret string) (*models.AdminClaims, error) {
	claims := &models.AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, models.ErrTokenInvalid
	}
	if !token.Valid {
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}

// AdminAuth guards routes with the admin Bearer token. When enabled is
// false (ADMIN_EMAIL/ADMIN_PASSWORD unset) the check is bypassed entirely,
// which is the reverse-proxy deployment mode.
func AdminAuth(secret string, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			abortUnauthorized(c, "Missing bearer token")
			return
		}

		claims, err := ParseAdminToken(tokenString, secret)
		if err != nil {
			if errors.Is(err, models.ErrTokenExpired) {
				abortUnauthorized(c, "Token has expired")
			} else {
				abortUnauthorized(c, "Token is invalid")
			}
			return
		}

		c.Set(AdminEmailKey, claims.Email)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		models.NewAPIError(models.CodeUnauthorized, message, TraceID(c), nil))
}
