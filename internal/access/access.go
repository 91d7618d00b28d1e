// Package access decides what an actor may do with catalog resources and accounts.
// It is pure: callers load the actor and the resource owner fresh for every request.
package access

import (
	"github.com/google/uuid"

	"github.com/mo-amir99/course-platform-go/pkg/apperrors"
)

// Role is the single role an actor resolves to for one request.
type Role int

const (
	Anonymous Role = iota
	Regular
	Moderator
	Admin
)

// ModeratorsGroup is the group tag that grants the moderator role.
const ModeratorsGroup = "moderators"

func (r Role) String() string {
	switch r {
	case Regular:
		return "regular"
	case Moderator:
		return "moderator"
	case Admin:
		return "admin"
	default:
		return "anonymous"
	}
}

// Action is something done to a course or lesson.
type Action string

const (
	Read   Action = "read"
	Create Action = "create"
	Update Action = "update"
	Delete Action = "delete"
)

// Actor is the caller as seen by the evaluator. The zero value is anonymous.
type Actor struct {
	ID        uuid.UUID
	Role      Role
	Superuser bool
}

// Authenticated reports whether the actor is a signed-in user.
func (a Actor) Authenticated() bool {
	return a.Role != Anonymous && a.ID != uuid.Nil
}

// ResolveRole maps account flags to a role. Staff and superusers are admins
// regardless of group membership.
func ResolveRole(authenticated, staff, superuser bool, groups []string) Role {
	if !authenticated {
		return Anonymous
	}
	if staff || superuser {
		return Admin
	}
	for _, g := range groups {
		if g == ModeratorsGroup {
			return Moderator
		}
	}
	return Regular
}

type rule struct {
	public bool
	roles  map[Role]bool
	owner  bool
}

var policy = map[Action]rule{
	Read:   {public: true},
	Create: {roles: map[Role]bool{Regular: true, Admin: true}},
	Update: {roles: map[Role]bool{Moderator: true, Admin: true}, owner: true},
	Delete: {roles: map[Role]bool{Admin: true}, owner: true},
}

// Resource carries the ownership fact of a course or lesson. A nil owner never matches.
type Resource struct {
	OwnerID *uuid.UUID
}

// Owns reports whether actor owns res.
func Owns(actor Actor, res Resource) bool {
	return actor.Authenticated() && res.OwnerID != nil && *res.OwnerID == actor.ID
}

// Decide returns nil when actor may perform action on res, Unauthorized when an
// anonymous actor needs to sign in, and Forbidden otherwise.
func Decide(actor Actor, action Action, res Resource) error {
	r, ok := policy[action]
	if !ok {
		return deny(actor)
	}
	if r.public {
		return nil
	}
	if !actor.Authenticated() {
		return ErrUnauthorized
	}
	if r.roles[actor.Role] || (r.owner && Owns(actor, res)) {
		return nil
	}
	return ErrForbidden
}

// Allowed is Decide reduced to a boolean.
func Allowed(actor Actor, action Action, res Resource) bool {
	return Decide(actor, action, res) == nil
}

func deny(actor Actor) error {
	if !actor.Authenticated() {
		return ErrUnauthorized
	}
	return ErrForbidden
}

var (
	ErrUnauthorized = apperrors.Unauthorized("Authentication credentials were not provided")
	ErrForbidden    = apperrors.Forbidden("You do not have permission to perform this action")
)

// CanListAccounts allows moderators and admins to browse accounts.
func CanListAccounts(actor Actor) error {
	if !actor.Authenticated() {
		return ErrUnauthorized
	}
	if actor.Role == Moderator || actor.Role == Admin {
		return nil
	}
	return ErrForbidden
}

// CanViewAccount allows the account holder, moderators and admins.
func CanViewAccount(actor Actor, accountID uuid.UUID) error {
	if !actor.Authenticated() {
		return ErrUnauthorized
	}
	if actor.ID == accountID || actor.Role == Moderator || actor.Role == Admin {
		return nil
	}
	return ErrForbidden
}

// CanEditAccount allows the account holder and admins.
func CanEditAccount(actor Actor, accountID uuid.UUID) error {
	if !actor.Authenticated() {
		return ErrUnauthorized
	}
	if actor.ID == accountID || actor.Role == Admin {
		return nil
	}
	return ErrForbidden
}

// CanEditAccountOf is CanEditAccount knowing whether the target is a
// superuser. A superuser account is edited only by its holder or another
// superuser.
func CanEditAccountOf(actor Actor, accountID uuid.UUID, targetSuperuser bool) error {
	if err := CanEditAccount(actor, accountID); err != nil {
		return err
	}
	if targetSuperuser && actor.ID != accountID && !actor.Superuser {
		return ErrForbidden
	}
	return nil
}

// CanDeleteAccount allows only superusers, and never on their own account.
func CanDeleteAccount(actor Actor, accountID uuid.UUID) error {
	if !actor.Authenticated() {
		return ErrUnauthorized
	}
	if !actor.Superuser || actor.ID == accountID {
		return ErrForbidden
	}
	return nil
}
