package dto

import (
	"time"

	"github.com/spec-kit/maintenance-tracker/internal/domain"
)

// CreateRequestRequest payload.
type CreateRequestRequest struct {
	Type        string `json:"type"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// EditRequestRequest payload. Absent fields are left unchanged.
type EditRequestRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// RequestResponse represents a maintenance request.
type RequestResponse struct {
	ID           string               `json:"request_id"`
	OwnerID      string               `json:"owner_id"`
	RequestedBy  string               `json:"requested_by"`
	Type         domain.RequestType   `json:"type"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Status       domain.RequestStatus `json:"status"`
	CreatedAt    time.Time            `json:"created_at"`
	LastModified *time.Time           `json:"last_modified"`
}

// NewRequestResponse maps a domain request.
func NewRequestResponse(r *domain.Request) RequestResponse {
	return RequestResponse{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		RequestedBy:  r.RequestedBy,
		Type:         r.Type,
		Title:        r.Title,
		Description:  r.Description,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
		LastModified: r.LastModified,
	}
}

// NewRequestResponses maps a list of requests.
func NewRequestResponses(requests []domain.Request) []RequestResponse {
	out := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		out = append(out, NewRequestResponse(&requests[i]))
	}
	return out
}

// HistoryEntryResponse is one audit trail entry.
type HistoryEntryResponse struct {
	ID          string                   `json:"id"`
	ChangeType  domain.RequestChangeType `json:"change_type"`
	Action      string                   `json:"action,omitempty"`
	ChangedByID string                   `json:"changed_by_id"`
	ChangedBy   domain.Role              `json:"changed_by_role"`
	OldValue    map[string]any           `json:"old_value,omitempty"`
	NewValue    map[string]any           `json:"new_value,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
}

// NewHistoryResponses maps audit entries.
func NewHistoryResponses(entries []domain.RequestHistory) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryResponse{
			ID:          e.ID,
			ChangeType:  e.ChangeType,
			Action:      e.Action,
			ChangedByID: e.ChangedByID,
			ChangedBy:   e.ChangedBy,
			OldValue:    e.OldValue,
			NewValue:    e.NewValue,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}
