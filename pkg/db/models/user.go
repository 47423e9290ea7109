package models

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors the host platform's account record. Accounts are owned by the
// host; this table is the local projection the enrollment subsystem joins
// against.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Username  string    `gorm:"column:username;type:text;not null;uniqueIndex"`
	Email     string    `gorm:"column:email;type:text;not null;uniqueIndex"`
	IsStaff   bool      `gorm:"column:is_staff;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
