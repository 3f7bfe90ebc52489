// internal/api/handlers/auth_handler.go
package handlers

import (
	"errors"
	"net/http"

	"reconciliation-service/internal/api/responses"
	"reconciliation-service/internal/core/auth"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service auth.Service
}

func NewAuthHandler(service auth.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

type LoginRequest struct {
	PIN string `json:"pin" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, http.StatusBadRequest, "Requisição inválida")
		return
	}

	token, err := h.service.Login(c.Request.Context(), req.PIN)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPIN) {
			responses.Error(c, http.StatusUnauthorized, "PIN inválido")
			return
		}
		responses.Error(c, http.StatusInternalServerError, "Erro ao autenticar", err.Error())
		return
	}

	responses.Success(c, gin.H{"token": token}, "Login realizado com sucesso")
}
