// Package users manages operator accounts and verifies their credentials.
package users

import (
	"strings"
	"time"

	"github.com/odyssey-erp/mnledger/internal/shared"
)

// Roles lists the assignable roles.
var Roles = []string{shared.RoleUser, shared.RoleSuper, shared.RoleAdministrator}

// User represents an operator account. The password hash never leaves the package.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	PasswordHash string    `json:"-"`
}

// CreateInput is the payload for a new account.
type CreateInput struct {
	Username string `json:"username" label:"Username" validate:"required,max=64"`
	Password string `json:"password" label:"Password" validate:"required,min=8,max=72"`
	Role     string `json:"role" label:"Role" validate:"required,oneof=user super administrator"`
}

func (in CreateInput) normalized() CreateInput {
	in.Username = strings.TrimSpace(in.Username)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	return in
}
