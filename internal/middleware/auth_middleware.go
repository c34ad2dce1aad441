package middleware

import (
	"context"
	"net/http"
	"strings"

	"lex-intake/internal/auth"
	"lex-intake/internal/transport/httpdto"
	"lex-intake/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware verifies the portal-issued bearer token and stores it in the
// request context so downstream calls to the case API can forward it.
func AuthMiddleware(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		claims, err := verifier.Parse(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		if claims.Subject == "" {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		ctx := auth.WithToken(c.Request.Context(), token, claims.Subject)
		ctx = context.WithValue(ctx, logger.UserIdKey, claims.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
