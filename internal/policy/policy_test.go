package policy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-tracker/internal/domain"
	apperrors "github.com/spec-kit/maintenance-tracker/pkg/util"
)

var (
	admin    = &Actor{UserID: "admin-1", Role: domain.RoleAdministrator}
	consumer = &Actor{UserID: "consumer-1", Role: domain.RoleConsumer}
	other    = "consumer-2"
)

func TestUnauthenticatedIsRejectedFirst(t *testing.T) {
	err := Authorize(nil, ActionCreateRequest, Resource{})
	require.Error(t, err)
	assert.True(t, apperrors.HasStatus(err, http.StatusUnauthorized))
}

func TestAuthorize(t *testing.T) {
	cases := []struct {
		name    string
		actor   *Actor
		action  Action
		res     Resource
		message string
	}{
		{"admin lists users", admin, ActionListUsers, Resource{}, ""},
		{"consumer lists users", consumer, ActionListUsers, Resource{}, "Consumer not allowed to list users"},
		{"consumer views self", consumer, ActionViewUser, Resource{OwnerID: consumer.UserID}, ""},
		{"consumer views other", consumer, ActionViewUser, Resource{OwnerID: other}, "Consumer not allowed to view another user"},
		{"admin views any user", admin, ActionViewUser, Resource{OwnerID: other}, ""},
		{"consumer changes roles", consumer, ActionChangeRole, Resource{}, "Consumer not allowed to change user roles"},

		{"admin creates", admin, ActionCreateRequest, Resource{OwnerID: admin.UserID}, "Administrators cannot make requests!"},
		{"consumer creates own", consumer, ActionCreateRequest, Resource{OwnerID: consumer.UserID}, ""},
		{"consumer creates for other", consumer, ActionCreateRequest, Resource{OwnerID: other}, "Consumer not allowed to create another user's request"},

		{"admin lists own", admin, ActionListOwnRequests, Resource{OwnerID: admin.UserID}, "Administrators do not have requests"},
		{"admin lists consumer", admin, ActionListOwnRequests, Resource{OwnerID: other}, ""},
		{"consumer lists other", consumer, ActionListOwnRequests, Resource{OwnerID: other}, "Consumer not allowed to view another user's request"},
		{"consumer lists all", consumer, ActionListAllRequests, Resource{}, "Consumer not allowed to view all requests"},
		{"consumer views any", consumer, ActionViewAnyRequest, Resource{}, "Consumer not allowed to view all requests"},

		{"consumer approves", consumer, ActionChangeStatus, Resource{}, "Consumer not allowed to change status request"},
		{"admin approves", admin, ActionChangeStatus, Resource{}, ""},
		{"admin cancels", admin, ActionCancelRequest, Resource{}, "Administrator not allowed to cancel request"},
		{"admin edits", admin, ActionEditRequest, Resource{OwnerID: other}, "Administrator not allowed to edit request"},
		{"admin deletes", admin, ActionDeleteRequest, Resource{}, "Administrator not allowed to delete request"},
		{"consumer cancels before load", consumer, ActionCancelRequest, Resource{}, ""},
		{"consumer cancels other", consumer, ActionCancelRequest, Resource{OwnerID: other}, "Consumer not allowed to cancel another user's request"},
		{"consumer edits other", consumer, ActionEditRequest, Resource{OwnerID: other}, "Consumer not allowed to edit another user's request"},
		{"consumer deletes other", consumer, ActionDeleteRequest, Resource{OwnerID: other}, "Consumer not allowed to delete another user's request"},
		{"consumer deletes own", consumer, ActionDeleteRequest, Resource{OwnerID: consumer.UserID}, ""},

		{"owner views history", consumer, ActionViewHistory, Resource{OwnerID: consumer.UserID}, ""},
		{"consumer views other history", consumer, ActionViewHistory, Resource{OwnerID: other}, "Consumer not allowed to view another user's request"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.actor, tc.action, tc.res)
			if tc.message == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.message, err.Error())
			assert.True(t, apperrors.HasStatus(err, http.StatusForbidden))
		})
	}
}

func TestFromIdentity(t *testing.T) {
	assert.Nil(t, FromIdentity(nil))
	actor := FromIdentity(&domain.Identity{UserID: "u", Role: domain.RoleConsumer})
	assert.Equal(t, &Actor{UserID: "u", Role: domain.RoleConsumer}, actor)
}
