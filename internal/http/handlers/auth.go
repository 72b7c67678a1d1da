package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/josiahbryan/userhub/internal/config"
	"github.com/josiahbryan/userhub/internal/domain/user"
	"github.com/josiahbryan/userhub/internal/security"
)

type CredentialReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID, email, role string) (string, error)
}

type AuthHandler struct {
	users CredentialReader
	jwt   TokenIssuer
}

func NewAuthHandler(users CredentialReader, jwt TokenIssuer) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and issues the access token the rest of the API
// authenticates with.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for the store lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(foundUser.ID, foundUser.Email, foundUser.Role)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
	})
}
