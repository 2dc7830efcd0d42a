package dto

import (
	"time"

	userDomain "github.com/allisson/flexauth/internal/user/domain"
)

// UserResponse is one user in API responses. The stored credential is never
// included.
type UserResponse struct {
	UID                 string    `json:"uid"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	Role                string    `json:"role"`
	EmailVerified       bool      `json:"email_verified"`
	IsActive            bool      `json:"is_active"`
	FailedLoginAttempts int       `json:"failed_login_attempts"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// UserListResponse wraps a user listing.
type UserListResponse struct {
	Users []UserResponse `json:"users"`
}

// MapUserResponse converts a domain user to its API shape.
func MapUserResponse(user *userDomain.User) UserResponse {
	return UserResponse{
		UID:                 user.UID,
		Name:                user.Name,
		Email:               user.Email,
		Role:                user.Role,
		EmailVerified:       user.EmailVerified,
		IsActive:            user.IsActive,
		FailedLoginAttempts: user.FailedLoginAttempts,
		CreatedAt:           user.CreatedAt,
		UpdatedAt:           user.UpdatedAt,
	}
}

// MapUserListResponse converts domain users to their API shape.
func MapUserListResponse(users []userDomain.User) UserListResponse {
	out := UserListResponse{Users: make([]UserResponse, 0, len(users))}
	for i := range users {
		out.Users = append(out.Users, MapUserResponse(&users[i]))
	}
	return out
}
