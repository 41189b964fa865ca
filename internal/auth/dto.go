package auth

import (
	"time"

	"github.com/frahmantamala/marketplace/internal/principal"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"required,max=150"`
	Phone    string `json:"phone" validate:"max=30"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type Session struct {
	Token     string               `json:"token"`
	TokenType string               `json:"token_type"`
	ExpiresAt time.Time            `json:"expires_at"`
	Principal *principal.Principal `json:"principal"`
}
