package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cascadehq/flowdeck/internal/auth"
	"github.com/cascadehq/flowdeck/pkg/response"
)

// AuthHandler exposes the login endpoint.
type AuthHandler struct {
	login *auth.LoginService
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(login *auth.LoginService) *AuthHandler {
	return &AuthHandler{login: login}
}

type loginPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login verifies credentials and returns an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var payload loginPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	result, err := h.login.Login(requestContext(c), payload.Username, payload.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
