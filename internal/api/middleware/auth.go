package middleware

import (
	"net/http"
	"strings"

	"reconciliation-service/internal/api/responses"
	"reconciliation-service/internal/core/auth"

	"github.com/gin-gonic/gin"
)

// RequireToken rejects requests without a valid "Authorization: Bearer" token.
func RequireToken(service auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			responses.Error(c, http.StatusUnauthorized, "Token de acesso ausente")
			return
		}
		if err := service.Validate(strings.TrimSpace(token)); err != nil {
			responses.Error(c, http.StatusUnauthorized, "Sessão inválida ou expirada", err.Error())
			return
		}
		c.Next()
	}
}
