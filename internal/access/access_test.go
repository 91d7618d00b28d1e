package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestResolveRole(t *testing.T) {
	tests := []struct {
		name          string
		authenticated bool
		staff         bool
		superuser     bool
		groups        []string
		want          Role
	}{
		{"anonymous", false, true, true, []string{"moderators"}, Anonymous},
		{"plain user", true, false, false, nil, Regular},
		{"other group", true, false, false, []string{"authors"}, Regular},
		{"moderator", true, false, false, []string{"authors", "moderators"}, Moderator},
		{"staff", true, true, false, nil, Admin},
		{"superuser", true, false, true, nil, Admin},
		{"staff beats moderator", true, true, false, []string{"moderators"}, Admin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveRole(tt.authenticated, tt.staff, tt.superuser, tt.groups))
		})
	}
}

func TestDecide_Matrix(t *testing.T) {
	ownerID := uuid.New()
	owned := Resource{OwnerID: &ownerID}

	anonymous := Actor{}
	regular := Actor{ID: uuid.New(), Role: Regular}
	owner := Actor{ID: ownerID, Role: Regular}
	moderator := Actor{ID: uuid.New(), Role: Moderator}
	admin := Actor{ID: uuid.New(), Role: Admin}

	tests := []struct {
		actorName string
		actor     Actor
		action    Action
		want      error
	}{
		{"anonymous", anonymous, Read, nil},
		{"anonymous", anonymous, Create, ErrUnauthorized},
		{"anonymous", anonymous, Update, ErrUnauthorized},
		{"anonymous", anonymous, Delete, ErrUnauthorized},

		{"regular", regular, Read, nil},
		{"regular", regular, Create, nil},
		{"regular", regular, Update, ErrForbidden},
		{"regular", regular, Delete, ErrForbidden},

		{"owner", owner, Read, nil},
		{"owner", owner, Update, nil},
		{"owner", owner, Delete, nil},

		{"moderator", moderator, Read, nil},
		{"moderator", moderator, Create, ErrForbidden},
		{"moderator", moderator, Update, nil},
		{"moderator", moderator, Delete, ErrForbidden},

		{"admin", admin, Read, nil},
		{"admin", admin, Create, nil},
		{"admin", admin, Update, nil},
		{"admin", admin, Delete, nil},
	}

	for _, tt := range tests {
		t.Run(tt.actorName+"/"+string(tt.action), func(t *testing.T) {
			err := Decide(tt.actor, tt.action, owned)
			if tt.want == nil {
				assert.NoError(t, err)
				assert.True(t, Allowed(tt.actor, tt.action, owned))
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, Allowed(tt.actor, tt.action, owned))
		})
	}
}

func TestDecide_OwnerModeratorCanDeleteOwn(t *testing.T) {
	id := uuid.New()
	actor := Actor{ID: id, Role: Moderator}

	assert.NoError(t, Decide(actor, Delete, Resource{OwnerID: &id}))
	assert.ErrorIs(t, Decide(actor, Delete, Resource{}), ErrForbidden)
}

func TestDecide_NullOwnerNeverMatches(t *testing.T) {
	actor := Actor{ID: uuid.New(), Role: Regular}

	assert.False(t, Owns(actor, Resource{}))
	assert.ErrorIs(t, Decide(actor, Update, Resource{}), ErrForbidden)

	// A zero actor id must not match a zero owner id either.
	nilID := uuid.Nil
	assert.False(t, Owns(Actor{Role: Regular}, Resource{OwnerID: &nilID}))
}

func TestDecide_UnknownActionDenied(t *testing.T) {
	assert.ErrorIs(t, Decide(Actor{}, Action("publish"), Resource{}), ErrUnauthorized)
	assert.ErrorIs(t, Decide(Actor{ID: uuid.New(), Role: Admin}, Action("publish"), Resource{}), ErrForbidden)
}

func TestAccountRules(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	regular := Actor{ID: self, Role: Regular}
	moderator := Actor{ID: self, Role: Moderator}
	admin := Actor{ID: self, Role: Admin}
	superuser := Actor{ID: self, Role: Admin, Superuser: true}

	assert.ErrorIs(t, CanListAccounts(Actor{}), ErrUnauthorized)
	assert.ErrorIs(t, CanListAccounts(regular), ErrForbidden)
	assert.NoError(t, CanListAccounts(moderator))
	assert.NoError(t, CanListAccounts(admin))

	assert.NoError(t, CanViewAccount(regular, self))
	assert.ErrorIs(t, CanViewAccount(regular, other), ErrForbidden)
	assert.NoError(t, CanViewAccount(moderator, other))

	assert.NoError(t, CanEditAccount(regular, self))
	assert.ErrorIs(t, CanEditAccount(moderator, other), ErrForbidden)
	assert.NoError(t, CanEditAccount(admin, other))

	assert.NoError(t, CanEditAccountOf(admin, other, false))
	assert.ErrorIs(t, CanEditAccountOf(admin, other, true), ErrForbidden)
	assert.NoError(t, CanEditAccountOf(superuser, other, true))
	assert.NoError(t, CanEditAccountOf(superuser, self, true))
	assert.ErrorIs(t, CanEditAccountOf(moderator, other, false), ErrForbidden)

	assert.ErrorIs(t, CanDeleteAccount(Actor{}, other), ErrUnauthorized)
	assert.ErrorIs(t, CanDeleteAccount(admin, other), ErrForbidden)
	assert.ErrorIs(t, CanDeleteAccount(superuser, self), ErrForbidden)
	assert.NoError(t, CanDeleteAccount(superuser, other))
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "anonymous", Anonymous.String())
	assert.Equal(t, "regular", Regular.String())
	assert.Equal(t, "moderator", Moderator.String())
	assert.Equal(t, "admin", Admin.String())
}
