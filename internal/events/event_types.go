package events

import (
	"time"

	"github.com/spec-kit/maintenance-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered       EventType = "user_registered"
	EventUserRoleChanged      EventType = "user_role_changed"
	EventUserPasswordReset    EventType = "user_password_reset"
	EventRequestCreated       EventType = "request_created"
	EventRequestStatusChanged EventType = "request_status_changed"
	EventRequestEdited        EventType = "request_edited"
	EventRequestDeleted       EventType = "request_deleted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
// SubjectID is the request id for request events and the user id for user events.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// UserRoleChangedPayload payload.
type UserRoleChangedPayload struct {
	Email   string      `json:"email"`
	OldRole domain.Role `json:"old_role"`
	NewRole domain.Role `json:"new_role"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	OwnerID     string             `json:"owner_id"`
	RequestedBy string             `json:"requested_by"`
	Type        domain.RequestType `json:"type"`
	Title       string             `json:"title"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	RequestedBy string               `json:"requested_by"`
	Action      domain.RequestAction `json:"action"`
	OldStatus   domain.RequestStatus `json:"old_status"`
	NewStatus   domain.RequestStatus `json:"new_status"`
}

// RequestEditedPayload lists the fields that changed.
type RequestEditedPayload struct {
	Fields []string `json:"fields"`
}
