package user

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	MembershipNone       = "none"
	MembershipSubscribed = "Subscribed"
)

var ErrNotFound = errors.New("user not found")

type User struct {
	ID         string    `json:"_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Photo      string    `json:"photo,omitempty"`
	Role       string    `json:"role"`
	Membership string    `json:"Membership"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// role is never taken from the registration body, new users are always "user"
type CreateUserRequest struct {
	Name  string `json:"name" binding:"omitempty,max=120"`
	Email string `json:"email" binding:"required,email"`
	Photo string `json:"photo" binding:"omitempty,max=2048"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

type UpdateMembershipRequest struct {
	Membership string `json:"Membership" binding:"required,oneof=none Subscribed"`
}

func NewFromCreateRequest(req CreateUserRequest) User {
	now := time.Now().UTC()

	return User{
		Name:       strings.TrimSpace(req.Name),
		Email:      NormalizeEmail(req.Email),
		Photo:      req.Photo,
		Role:       RoleUser,
		Membership: MembershipNone,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
