package models

import (
	"time"

	"github.com/google/uuid"
)

// Group is a platform-wide user group used for bulk and automatic enrollment.
type Group struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// GroupMembership links a user to a group.
type GroupMembership struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID   uuid.UUID `gorm:"column:group_id;type:uuid;not null;uniqueIndex:idx_group_memberships_group_user"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_group_memberships_group_user"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
