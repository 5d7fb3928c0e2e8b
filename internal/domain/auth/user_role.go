package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// ElevatedRoles may run privileged audit actions.
var ElevatedRoles = []string{RoleAdmin, RoleSuperAdmin}

type UserRole struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_user_role,priority:1" json:"user_id"`
	Role      string    `gorm:"column:role;not null;uniqueIndex:idx_user_role,priority:2" json:"role"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (UserRole) TableName() string { return "user_roles" }

func (r *UserRole) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
