package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/user"
)

type UsersHandler struct {
	users *user.Store
}

func NewUsersHandler(users *user.Store) *UsersHandler {
	return &UsersHandler{users: users}
}

type ListUsersInput struct {
	Limit  int `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Max results"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Offset"`
}

type UserDTO struct {
	ID        string    `json:"id" doc:"User ID"`
	Username  string    `json:"username" doc:"Username"`
	Email     string    `json:"email" doc:"Email"`
	Role      string    `json:"role" doc:"User role"`
	IsActive  bool      `json:"is_active" doc:"Whether the account is enabled"`
	CreatedAt time.Time `json:"created_at" doc:"Registration time"`
}

func (h *UsersHandler) List(ctx context.Context, input *ListUsersInput) (*DataOutput[[]UserDTO], error) {
	users, err := h.users.List(ctx, input.Limit, input.Offset)
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}

	out := make([]UserDTO, len(users))
	for i, u := range users {
		out[i] = UserDTO{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			Role:      u.Role,
			IsActive:  u.IsActive,
			CreatedAt: u.CreatedAt,
		}
	}
	return OK(out), nil
}
