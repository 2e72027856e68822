package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for input, want := range map[string]Role{
		"":              RoleConsumer,
		"Consumer":      RoleConsumer,
		"Administrator": RoleAdministrator,
	} {
		got, err := ParseRole(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseRole("Janitor")
	require.Error(t, err)
	assert.Equal(t, "role specified does not exist", err.Error())
}

func TestRoleAction(t *testing.T) {
	action, err := ParseRoleAction("promote")
	require.NoError(t, err)
	assert.Equal(t, RoleAdministrator, action.TargetRole())
	assert.Equal(t, "a@x.com successfully promoted to Administrator", action.DoneMessage("a@x.com"))
	assert.Equal(t, "a@x.com is already Administrator", action.AlreadyMessage("a@x.com"))

	action, err = ParseRoleAction("demote")
	require.NoError(t, err)
	assert.Equal(t, RoleConsumer, action.TargetRole())
	assert.Equal(t, "a@x.com successfully demoted to Consumer", action.DoneMessage("a@x.com"))

	_, err = ParseRoleAction("fire")
	require.Error(t, err)
	assert.Equal(t, "action not recognized", err.Error())
}

func TestSafeViewOmitsCredentials(t *testing.T) {
	u := &User{ID: "u-1", Email: "a@x.com", PasswordHash: "hash", SecurityAnswerHash: "hash", Role: RoleConsumer}
	assert.Equal(t, UserView{UserID: "u-1", Email: "a@x.com", Role: RoleConsumer}, u.SafeView())
}
