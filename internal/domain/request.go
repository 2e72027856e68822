package domain

import (
	"fmt"
	"time"

	apperrors "github.com/spec-kit/maintenance-tracker/pkg/util"
)

// RequestType classifies the work being asked for.
type RequestType string

const (
	RequestTypeRepair      RequestType = "Repair"
	RequestTypeMaintenance RequestType = "Maintenance"
)

// ParseRequestType defaults an empty value to Repair.
func ParseRequestType(value string) (RequestType, error) {
	switch RequestType(value) {
	case "", RequestTypeRepair:
		return RequestTypeRepair, nil
	case RequestTypeMaintenance:
		return RequestTypeMaintenance, nil
	default:
		return "", apperrors.NewBadRequest(fmt.Sprintf("Cannot recognize the request type given: %s", value))
	}
}

// RequestStatus enumerates lifecycle states for requests.
type RequestStatus string

const (
	RequestStatusPendingApproval RequestStatus = "Pending Approval"
	RequestStatusApproved        RequestStatus = "Approved"
	RequestStatusRejected        RequestStatus = "Rejected"
	RequestStatusInProgress      RequestStatus = "In Progress"
	RequestStatusResolved        RequestStatus = "Resolved"
	RequestStatusCancelled       RequestStatus = "Cancelled"
)

var requestStatuses = []RequestStatus{
	RequestStatusPendingApproval,
	RequestStatusApproved,
	RequestStatusRejected,
	RequestStatusInProgress,
	RequestStatusResolved,
	RequestStatusCancelled,
}

// ParseRequestStatus matches the display value of a status.
func ParseRequestStatus(value string) (RequestStatus, error) {
	for _, s := range requestStatuses {
		if string(s) == value {
			return s, nil
		}
	}
	return "", apperrors.NewBadRequest(fmt.Sprintf("Cannot recognize the request status given: %s", value))
}

// IsTerminal reports whether no further transition is possible.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusResolved, RequestStatusRejected, RequestStatusCancelled:
		return true
	}
	return false
}

// Request is the aggregate for maintenance and repair tickets.
type Request struct {
	ID           string
	OwnerID      string
	RequestedBy  string
	Type         RequestType
	Title        string
	Description  string
	Status       RequestStatus
	CreatedAt    time.Time
	LastModified *time.Time
}

// NewRequest builds a request in its initial state.
func NewRequest(id string, owner *User, kind RequestType, title, description string, now time.Time) *Request {
	return &Request{
		ID:          id,
		OwnerID:     owner.ID,
		RequestedBy: owner.Email,
		Type:        kind,
		Title:       title,
		Description: description,
		Status:      RequestStatusPendingApproval,
		CreatedAt:   now,
	}
}

// IsActive is the complement of IsTerminal on the request's status.
func (r *Request) IsActive() bool {
	return !r.Status.IsTerminal()
}

// SimilarTo reports an exact title and description match.
func (r *Request) SimilarTo(title, description string) bool {
	return r.Title == title && r.Description == description
}

// RequestFilter narrows administrative listings.
type RequestFilter struct {
	Status *RequestStatus
}

// Matches reports whether the request passes the filter.
func (f RequestFilter) Matches(r *Request) bool {
	return f.Status == nil || r.Status == *f.Status
}
