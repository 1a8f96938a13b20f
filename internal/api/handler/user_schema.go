package handler

import (
	"time"

	"github.com/finaidhub/hub/internal/core/domain"
	"github.com/finaidhub/hub/internal/core/ports"
)

// --- Request types ---

type loginRequest struct {
	Username string `json:"username" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type inviteRequest struct {
	Email       string `json:"email"        validate:"required,email,max=254"`
	Username    string `json:"username"     validate:"required,min=3,max=64,excludes=@"`
	DisplayName string `json:"display_name" validate:"max=128"`
	Role        string `json:"role"         validate:"required,oneof=super_admin admin accounting_firm_owner accountant"`
	Password    string `json:"password"     validate:"required,min=8,max=128"`
}

type listUsersQuery struct {
	Role   string `query:"role"   validate:"omitempty,oneof=super_admin admin accounting_firm_owner accountant"`
	Status string `query:"status" validate:"omitempty,oneof=active inactive invited"`
	Search string `query:"search" validate:"max=128"`
	Page   int    `query:"page"   validate:"gte=0"`
	Limit  int    `query:"limit"  validate:"gte=0,lte=100"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=128,nefield=CurrentPassword"`
}

// --- Response types ---

type userResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name,omitempty"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// loginResponse keys match what the web client persists in local storage.
type loginResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	UserType    string       `json:"userType"`
	UserDetails userResponse `json:"userDetails"`
}

type paginationResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type listUsersResponse struct {
	Data       []userResponse     `json:"data"`
	Pagination paginationResponse `json:"pagination"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toUserResponse(i *domain.Identity) userResponse {
	return userResponse{
		ID:          i.ID,
		Email:       i.Email,
		Username:    i.Username,
		DisplayName: i.DisplayName,
		Role:        string(i.Role),
		Status:      string(i.Status),
		LastLoginAt: i.LastLoginAt,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

func toListUsersResponse(r *ports.ListUsersResult) listUsersResponse {
	data := make([]userResponse, 0, len(r.Items))
	for _, i := range r.Items {
		data = append(data, toUserResponse(i))
	}
	return listUsersResponse{
		Data: data,
		Pagination: paginationResponse{
			Total:      r.Total,
			Page:       r.Page,
			Limit:      r.Limit,
			TotalPages: r.TotalPages,
		},
	}
}
