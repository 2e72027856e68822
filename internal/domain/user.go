package domain

import (
	"fmt"
	"time"

	apperrors "github.com/spec-kit/maintenance-tracker/pkg/util"
)

// Role is the single axis of behaviour between users.
type Role string

const (
	RoleConsumer      Role = "Consumer"
	RoleAdministrator Role = "Administrator"
)

// ParseRole accepts an empty value as Consumer.
func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case "", RoleConsumer:
		return RoleConsumer, nil
	case RoleAdministrator:
		return RoleAdministrator, nil
	default:
		return "", apperrors.NewBadRequest("role specified does not exist")
	}
}

// User is the domain model for consumers and administrators.
type User struct {
	ID                 string
	Email              string
	PasswordHash       string
	SecurityQuestion   string
	SecurityAnswerHash string
	Role               Role
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsAdministrator reports whether the user drives the approval workflow.
func (u *User) IsAdministrator() bool {
	return u.Role == RoleAdministrator
}

// UserView is the representation of a user that may leave the service layer.
type UserView struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// SafeView strips credentials.
func (u *User) SafeView() UserView {
	return UserView{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// RoleAction changes a user's role.
type RoleAction string

const (
	RoleActionPromote RoleAction = "promote"
	RoleActionDemote  RoleAction = "demote"
)

func ParseRoleAction(value string) (RoleAction, error) {
	switch RoleAction(value) {
	case RoleActionPromote, RoleActionDemote:
		return RoleAction(value), nil
	default:
		return "", apperrors.NewBadRequest("action not recognized")
	}
}

// TargetRole is the role a user holds after the action.
func (a RoleAction) TargetRole() Role {
	if a == RoleActionPromote {
		return RoleAdministrator
	}
	return RoleConsumer
}

// AlreadyMessage is returned when the target already holds the role.
func (a RoleAction) AlreadyMessage(email string) string {
	return fmt.Sprintf("%s is already %s", email, a.TargetRole())
}

// DoneMessage is returned after a successful role change.
func (a RoleAction) DoneMessage(email string) string {
	return fmt.Sprintf("%s successfully %sd to %s", email, a, a.TargetRole())
}
