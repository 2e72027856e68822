package domain

import (
	"fmt"
	"time"

	"github.com/spec-kit/maintenance-tracker/internal/validation"
	apperrors "github.com/spec-kit/maintenance-tracker/pkg/util"
)

// RequestAction drives a status transition.
type RequestAction string

const (
	RequestActionApprove    RequestAction = "approve"
	RequestActionReject     RequestAction = "reject"
	RequestActionDisapprove RequestAction = "disapprove"
	RequestActionInProgress RequestAction = "in_progress"
	RequestActionResolve    RequestAction = "resolve"
	RequestActionCancel     RequestAction = "cancel"
)

// ParseRequestAction keeps the caller's spelling; "disapprove" moves a request like reject.
func ParseRequestAction(value string) (RequestAction, error) {
	if _, ok := transitions[RequestAction(value)]; !ok {
		return "", apperrors.NewBadRequest("action given is not recognized")
	}
	return RequestAction(value), nil
}

type transition struct {
	from RequestStatus
	to   RequestStatus
	role Role
}

var transitions = map[RequestAction]transition{
	RequestActionApprove:    {from: RequestStatusPendingApproval, to: RequestStatusApproved, role: RoleAdministrator},
	RequestActionReject:     {from: RequestStatusPendingApproval, to: RequestStatusRejected, role: RoleAdministrator},
	RequestActionDisapprove: {from: RequestStatusPendingApproval, to: RequestStatusRejected, role: RoleAdministrator},
	RequestActionCancel:     {from: RequestStatusPendingApproval, to: RequestStatusCancelled, role: RoleConsumer},
	RequestActionInProgress: {from: RequestStatusApproved, to: RequestStatusInProgress, role: RoleAdministrator},
	RequestActionResolve:    {from: RequestStatusInProgress, to: RequestStatusResolved, role: RoleAdministrator},
}

// RequiredRole is the only role allowed to perform the action.
func (a RequestAction) RequiredRole() Role {
	return transitions[a].role
}

// Apply moves the request along the workflow. Role and ownership are checked by the caller.
func (r *Request) Apply(action RequestAction, now time.Time) (RequestStatus, error) {
	t, ok := transitions[action]
	if !ok {
		return "", apperrors.NewBadRequest("action given is not recognized")
	}
	if r.Status != t.from {
		return "", TransitionConflict(string(action), r.Status)
	}
	previous := r.Status
	r.Status = t.to
	r.touch(now)
	return previous, nil
}

// TransitionConflict reports that verb is not possible from status.
func TransitionConflict(verb string, status RequestStatus) error {
	return apperrors.NewInvalidTransition(
		fmt.Sprintf("cannot %s a request which is %s", verb, status),
		map[string]any{"action": verb, "status": string(status)},
	)
}

// CanEdit allows edits only before triage.
func (r *Request) CanEdit() error {
	if r.Status != RequestStatusPendingApproval {
		return TransitionConflict("edit", r.Status)
	}
	return nil
}

// CanDelete allows deletion only once the request is closed.
func (r *Request) CanDelete() error {
	if !r.Status.IsTerminal() {
		return TransitionConflict("delete", r.Status)
	}
	return nil
}

// Edit replaces the supplied fields. A nil field is left untouched.
func (r *Request) Edit(title, description *string, now time.Time) error {
	if title == nil && description == nil {
		return apperrors.NewBadRequest("could not edit request, please insert title or description")
	}
	if title != nil {
		if err := validation.Title(*title); err != nil {
			return err
		}
		if *title == r.Title {
			return apperrors.NewBadRequest("title given matches the previous title")
		}
	}
	if description != nil {
		if err := validation.Description(*description); err != nil {
			return err
		}
		if *description == r.Description {
			return apperrors.NewBadRequest("description given matches the previous description")
		}
	}

	if title != nil {
		r.Title = *title
	}
	if description != nil {
		r.Description = *description
	}
	r.touch(now)
	return nil
}

func (r *Request) touch(now time.Time) {
	t := now
	r.LastModified = &t
}
