package handlers

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/maitreyyi/SANA-Development-sub001/internal/api/middleware"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/user"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	users     *user.Store
	jwtSecret string
	jwtExpiry time.Duration
}

func NewAuthHandler(users *user.Store, jwtSecret string, jwtExpiry time.Duration) *AuthHandler {
	return &AuthHandler{
		users:     users,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

// --- Input types ---

type RegisterInput struct {
	Body struct {
		Username string `json:"username" minLength:"1" doc:"Username"`
		Password string `json:"password" minLength:"1" doc:"Password"`
		Email    string `json:"email" minLength:"1" format:"email" doc:"Email address"`
	}
}

type LoginInput struct {
	Body struct {
		Username string `json:"username" minLength:"1" doc:"Username"`
		Password string `json:"password" minLength:"1" doc:"Password"`
	}
}

type EmptyInput struct{}

// --- DTO types ---

type RegisterDTO struct {
	ID       string `json:"id" doc:"User ID"`
	Username string `json:"username" doc:"Username"`
}

type LoginUserDTO struct {
	ID       string `json:"id" doc:"User ID"`
	Username string `json:"username" doc:"Username"`
	Role     string `json:"role" doc:"User role"`
}

type LoginDTO struct {
	Token     string       `json:"token" doc:"JWT token"`
	ExpiresIn int          `json:"expires_in" doc:"Token lifetime in seconds"`
	User      LoginUserDTO `json:"user" doc:"User info"`
}

type MeDTO struct {
	ID       string `json:"id" doc:"User ID"`
	Username string `json:"username" doc:"Username"`
	Email    string `json:"email" doc:"Email"`
	Role     string `json:"role" doc:"User role"`
	APIKey   string `json:"api_key" doc:"API key"`
}

type APIKeyDTO struct {
	APIKey string `json:"api_key" doc:"New API key"`
}

// --- Handlers ---

func (h *AuthHandler) Register(ctx context.Context, input *RegisterInput) (*DataOutput[RegisterDTO], error) {
	if _, err := mail.ParseAddress(input.Body.Email); err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid email address")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Body.Password), 12)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to hash password")
	}

	u, err := h.users.Create(ctx, input.Body.Username, input.Body.Email, string(hash), "user")
	if err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			return nil, huma.Error409Conflict("username already taken")
		}
		return nil, huma.Error500InternalServerError("failed to create user")
	}

	return OK(RegisterDTO{
		ID:       u.ID,
		Username: u.Username,
	}), nil
}

func (h *AuthHandler) Login(ctx context.Context, input *LoginInput) (*DataOutput[LoginDTO], error) {
	u, err := h.users.GetByUsername(ctx, input.Body.Username)
	if err != nil {
		return nil, huma.Error401Unauthorized("invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(input.Body.Password)); err != nil {
		return nil, huma.Error401Unauthorized("invalid username or password")
	}

	if !u.IsActive {
		return nil, huma.Error403Forbidden("account is disabled")
	}

	token, err := middleware.GenerateJWT(u.ID, u.Role, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to generate token")
	}

	return OK(LoginDTO{
		Token:     token,
		ExpiresIn: int(h.jwtExpiry.Seconds()),
		User:      LoginUserDTO{ID: u.ID, Username: u.Username, Role: u.Role},
	}), nil
}

func (h *AuthHandler) Me(ctx context.Context, _ *EmptyInput) (*DataOutput[MeDTO], error) {
	userID := middleware.GetUserID(ctx)

	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return nil, huma.Error404NotFound("user not found")
	}

	return OK(MeDTO{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		APIKey:   u.APIKey,
	}), nil
}

func (h *AuthHandler) RegenerateAPIKey(ctx context.Context, _ *EmptyInput) (*DataOutput[APIKeyDTO], error) {
	userID := middleware.GetUserID(ctx)

	u, err := h.users.RegenerateAPIKey(ctx, userID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to regenerate API key")
	}

	return OK(APIKeyDTO{APIKey: u.APIKey}), nil
}
