package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/openlearnhq/learning-paths/pkg/enums"
)

// EnrollmentAudit is an append-only log entry documenting one enrollment
// state transition. Rows start out tied to either an enrollment or a
// pre-registration; when a pre-registration is promoted, its rows gain the
// enrollment id and keep the allowed id, so both are set on promoted history.
// Rows are never deleted.
type EnrollmentAudit struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EnrollmentID        *uuid.UUID            `gorm:"column:enrollment_id;type:uuid;index"`
	EnrollmentAllowedID *uuid.UUID            `gorm:"column:enrollment_allowed_id;type:uuid;index"`
	ActorID             *uuid.UUID            `gorm:"column:actor_id;type:uuid"`
	StateTransition     enums.StateTransition `gorm:"column:state_transition;type:text;not null;default:'N/A'"`
	Reason              string                `gorm:"column:reason;type:text;not null;default:''"`
	Org                 string                `gorm:"column:org;type:text;not null;default:'';index"`
	Role                string                `gorm:"column:role;type:text;not null;default:''"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
}
