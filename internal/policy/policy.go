// Package policy decides who may do what to users and requests.
//
// Authorize is called once before a resource is loaded (role rules only) and
// again with the loaded resource's owner when ownership matters.
package policy

import (
	"fmt"

	"github.com/spec-kit/maintenance-tracker/internal/domain"
	apperrors "github.com/spec-kit/maintenance-tracker/pkg/util"
)

// Actor is the authenticated caller. A nil *Actor is unauthenticated.
type Actor struct {
	UserID string
	Role   domain.Role
}

// Action is an operation subject to authorization.
type Action string

const (
	ActionListUsers       Action = "list_users"
	ActionViewUser        Action = "view_user"
	ActionChangeRole      Action = "change_role"
	ActionCreateRequest   Action = "create_request"
	ActionListOwnRequests Action = "list_owner_requests"
	ActionViewOwnRequest  Action = "view_owner_request"
	ActionListAllRequests Action = "list_all_requests"
	ActionViewAnyRequest  Action = "view_any_request"
	ActionViewHistory     Action = "view_history"
	ActionChangeStatus    Action = "change_status"
	ActionCancelRequest   Action = "cancel_request"
	ActionEditRequest     Action = "edit_request"
	ActionDeleteRequest   Action = "delete_request"
)

// Resource identifies what the action targets. An empty OwnerID skips ownership rules.
type Resource struct {
	OwnerID string
}

type rule struct {
	roles map[domain.Role]bool
	// verb renders denial messages.
	verb string
	// request verbs phrase role denials as "... not allowed to {verb} request".
	requestVerb bool
	// owned means consumers may only act on their own resources.
	owned bool
}

func roles(rs ...domain.Role) map[domain.Role]bool {
	m := make(map[domain.Role]bool, len(rs))
	for _, r := range rs {
		m[r] = true
	}
	return m
}

var rules = map[Action]rule{
	ActionListUsers:       {roles: roles(domain.RoleAdministrator), verb: "list users"},
	ActionViewUser:        {roles: roles(domain.RoleAdministrator, domain.RoleConsumer), verb: "view", owned: true},
	ActionChangeRole:      {roles: roles(domain.RoleAdministrator), verb: "change user roles"},
	ActionCreateRequest:   {roles: roles(domain.RoleConsumer), verb: "create", requestVerb: true, owned: true},
	ActionListOwnRequests: {roles: roles(domain.RoleAdministrator, domain.RoleConsumer), verb: "view", owned: true},
	ActionViewOwnRequest:  {roles: roles(domain.RoleAdministrator, domain.RoleConsumer), verb: "view", owned: true},
	ActionListAllRequests: {roles: roles(domain.RoleAdministrator), verb: "view all requests"},
	ActionViewAnyRequest:  {roles: roles(domain.RoleAdministrator), verb: "view all requests"},
	ActionViewHistory:     {roles: roles(domain.RoleAdministrator, domain.RoleConsumer), verb: "view", owned: true},
	ActionChangeStatus:    {roles: roles(domain.RoleAdministrator), verb: "change status", requestVerb: true},
	ActionCancelRequest:   {roles: roles(domain.RoleConsumer), verb: "cancel", requestVerb: true, owned: true},
	ActionEditRequest:     {roles: roles(domain.RoleConsumer), verb: "edit", requestVerb: true, owned: true},
	ActionDeleteRequest:   {roles: roles(domain.RoleConsumer), verb: "delete", requestVerb: true, owned: true},
}

// Authorize returns nil when the actor may perform the action, else a 401 or 403 domain error.
func Authorize(actor *Actor, action Action, res Resource) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	r, ok := rules[action]
	if !ok {
		return apperrors.NewForbidden(fmt.Sprintf("%s not allowed to %s", actor.Role, action))
	}

	if !r.roles[actor.Role] {
		switch {
		case action == ActionCreateRequest && actor.Role == domain.RoleAdministrator:
			return apperrors.NewForbidden("Administrators cannot make requests!")
		case r.requestVerb:
			return apperrors.NewForbidden(fmt.Sprintf("%s not allowed to %s request", actor.Role, r.verb))
		default:
			return apperrors.NewForbidden(fmt.Sprintf("%s not allowed to %s", actor.Role, r.verb))
		}
	}

	if !r.owned || res.OwnerID == "" {
		return nil
	}
	if actor.Role == domain.RoleAdministrator {
		if action == ActionListOwnRequests && res.OwnerID == actor.UserID {
			return apperrors.NewForbidden("Administrators do not have requests")
		}
		return nil
	}
	if res.OwnerID != actor.UserID {
		if action == ActionViewUser {
			return apperrors.NewForbidden(fmt.Sprintf("%s not allowed to view another user", actor.Role))
		}
		return apperrors.NewForbidden(fmt.Sprintf("%s not allowed to %s another user's request", actor.Role, r.verb))
	}
	return nil
}

// FromIdentity builds the actor carried by an access token.
func FromIdentity(id *domain.Identity) *Actor {
	if id == nil {
		return nil
	}
	return &Actor{UserID: id.UserID, Role: id.Role}
}

// FromUser builds an actor from a stored user, whose role is authoritative.
func FromUser(u *domain.User) *Actor {
	if u == nil {
		return nil
	}
	return &Actor{UserID: u.ID, Role: u.Role}
}
