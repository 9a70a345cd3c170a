package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/user"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
)

func GetUserID(ctx context.Context) string {
	v, _ := ctx.Value(UserIDKey).(string)
	return v
}

func GetUserRole(ctx context.Context) string {
	v, _ := ctx.Value(UserRoleKey).(string)
	return v
}

// GenerateJWT issues a signed token carrying the user id and role.
func GenerateJWT(userID, role, secret string, expiry time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(expiry).Unix(),
		"iat":  time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// authenticate resolves the request's credential (JWT bearer token or
// API key) to a user identity. A missing or unknown credential fails
// with user.ErrUnknownCredential before any job-related work happens.
func authenticate(r *http.Request, jwtSecret string, users *user.Store) (userID, role string, err error) {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		tokenStr := strings.TrimPrefix(auth, "Bearer ")
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			return "", "", user.ErrUnknownCredential
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return "", "", user.ErrUnknownCredential
		}
		userID, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)
		return userID, role, nil
	}

	apiKey := r.Header.Get("X-API-Key")
	if apiKey == "" {
		apiKey = r.URL.Query().Get("api_key")
	}
	if apiKey != "" {
		u, err := users.GetByAPIKey(r.Context(), apiKey)
		if err != nil {
			return "", "", user.ErrUnknownCredential
		}
		if !u.IsActive {
			return "", "", fmt.Errorf("account disabled")
		}
		return u.ID, u.Role, nil
	}

	return "", "", user.ErrUnknownCredential
}

// Auth is the huma middleware guarding the JSON API operations.
func Auth(jwtSecret string, users *user.Store) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		echoCtx := humaecho.Unwrap(ctx)
		r := echoCtx.Request()

		userID, role, err := authenticate(r, jwtSecret, users)
		if err != nil {
			log.Debug().Str("path", ctx.URL().Path).Msg("authentication failed")
			writeUnauthorized(ctx, "authentication required")
			return
		}

		newCtx := context.WithValue(r.Context(), UserIDKey, userID)
		newCtx = context.WithValue(newCtx, UserRoleKey, role)
		echoCtx.SetRequest(r.WithContext(newCtx))
		next(ctx)
	}
}

// AdminOnly restricts an operation to admin users; stack it after Auth.
func AdminOnly() func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		echoCtx := humaecho.Unwrap(ctx)
		if GetUserRole(echoCtx.Request().Context()) != "admin" {
			writeForbidden(ctx, "admin access required")
			return
		}
		next(ctx)
	}
}

// EchoAuth guards the raw echo routes (multipart upload) with the same
// credential resolution as the huma middleware.
func EchoAuth(jwtSecret string, users *user.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			userID, role, err := authenticate(r, jwtSecret, users)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]any{
					"success": false,
					"error":   "authentication required",
				})
			}
			newCtx := context.WithValue(r.Context(), UserIDKey, userID)
			newCtx = context.WithValue(newCtx, UserRoleKey, role)
			c.SetRequest(r.WithContext(newCtx))
			return next(c)
		}
	}
}

func writeUnauthorized(ctx huma.Context, msg string) {
	ctx.SetStatus(http.StatusUnauthorized)
	ctx.SetHeader("Content-Type", "application/json")
	_ = json.NewEncoder(ctx.BodyWriter()).Encode(huma.ErrorModel{
		Title:  http.StatusText(http.StatusUnauthorized),
		Status: http.StatusUnauthorized,
		Detail: msg,
	})
}

func writeForbidden(ctx huma.Context, msg string) {
	ctx.SetStatus(http.StatusForbidden)
	ctx.SetHeader("Content-Type", "application/json")
	_ = json.NewEncoder(ctx.BodyWriter()).Encode(huma.ErrorModel{
		Title:  http.StatusText(http.StatusForbidden),
		Status: http.StatusForbidden,
		Detail: msg,
	})
}
