package models

import (
	"time"

	"github.com/uptrace/bun"
)

const RoleUser = "USER"

type User struct {
	bun.BaseModel `bun:"table:users"`

	Email        string    `bun:"email,pk" json:"email"`
	Username     string    `bun:"username,notnull" json:"username"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Role         string    `bun:"role,notnull" json:"role"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// Roles returns the role list embedded in issued tokens.
func (u *User) Roles() []string {
	if u.Role == "" {
		return []string{RoleUser}
	}
	return []string{u.Role}
}
