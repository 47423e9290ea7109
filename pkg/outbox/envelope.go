package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
	Org    string    `json:"org,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// EnrollmentChangedPayload is the event body published when an enrollment
// row changes state.
type EnrollmentChangedPayload struct {
	UserID          uuid.UUID `json:"userId"`
	LearningPathKey string    `json:"learningPathKey"`
	Transition      string    `json:"transition"`
	IsActive        bool      `json:"isActive"`
	Reason          string    `json:"reason,omitempty"`
}

// BlockCompletedPayload is the event body published when a user completes a
// course block and the milestone check is deferred to the worker.
type BlockCompletedPayload struct {
	Username  string `json:"username"`
	CourseKey string `json:"courseKey"`
}

// CertificateRevokedPayload is the event body published when an
// unenrollment requires revoking issued credentials.
type CertificateRevokedPayload struct {
	Username        string `json:"username"`
	LearningPathKey string `json:"learningPathKey"`
	Reason          string `json:"reason,omitempty"`
}
