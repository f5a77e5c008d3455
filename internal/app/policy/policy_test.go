package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/enerconnect/portal/internal/app/domain/application"
	"github.com/enerconnect/portal/internal/app/domain/user"
	"github.com/enerconnect/portal/internal/errors"
)

var (
	owner    = Identity{UserID: "u-1", Role: user.RoleCustomer}
	stranger = Identity{UserID: "u-2", Role: user.RoleCustomer}
	admin    = Identity{UserID: "adm", Role: user.RoleAdmin}
)

func TestCanAccessAdminBypassesEverything(t *testing.T) {
	rec := Record{OwnerID: "someone-else", Status: application.StatusApproved}
	for _, action := range []Action{ActionRead, ActionUpdate, ActionDelete} {
		assert.NoError(t, CanAccess(admin, rec, action), string(action))
	}
}

func TestCanAccessRead(t *testing.T) {
	rec := Record{OwnerID: owner.UserID, Status: application.StatusPending}

	assert.NoError(t, CanAccess(owner, rec, ActionRead))
	assert.True(t, errors.IsForbidden(CanAccess(stranger, rec, ActionRead)))
}

func TestCanAccessUpdateOnlyDuringNeedsInfo(t *testing.T) {
	assert.True(t, errors.IsForbidden(
		CanAccess(owner, Record{OwnerID: owner.UserID, Status: application.StatusPending}, ActionUpdate)))
	assert.NoError(t,
		CanAccess(owner, Record{OwnerID: owner.UserID, Status: application.StatusNeedsInfo}, ActionUpdate))
	assert.True(t, errors.IsForbidden(
		CanAccess(stranger, Record{OwnerID: owner.UserID, Status: application.StatusNeedsInfo}, ActionUpdate)))
}

func TestCanAccessDeleteEarlyStagesOnly(t *testing.T) {
	for _, status := range []string{application.StatusPending, application.StatusInReview} {
		assert.NoError(t, CanAccess(owner, Record{OwnerID: owner.UserID, Status: status}, ActionDelete), status)
	}
	for _, status := range []string{application.StatusNeedsInfo, application.StatusApproved, application.StatusRejected} {
		assert.True(t, errors.IsForbidden(
			CanAccess(owner, Record{OwnerID: owner.UserID, Status: status}, ActionDelete)), status)
	}
}

func TestAllowedMutableFields(t *testing.T) {
	spec := FieldSpec{
		Updatable:     []string{"status", "notes", "property_address"},
		OwnerEditable: []string{"notes", "property_address"},
	}

	adminFields := AllowedMutableFields(admin, Record{OwnerID: owner.UserID, Status: application.StatusPending}, spec)
	assert.Len(t, adminFields, 3)
	assert.True(t, adminFields["status"])

	ownerClosed := AllowedMutableFields(owner, Record{OwnerID: owner.UserID, Status: application.StatusPending}, spec)
	assert.Empty(t, ownerClosed)

	ownerOpen := AllowedMutableFields(owner, Record{OwnerID: owner.UserID, Status: application.StatusNeedsInfo}, spec)
	assert.Len(t, ownerOpen, 2)
	assert.False(t, ownerOpen["status"])

	strangerFields := AllowedMutableFields(stranger, Record{OwnerID: owner.UserID, Status: application.StatusNeedsInfo}, spec)
	assert.Empty(t, strangerFields)
}

func TestEffectiveOwner(t *testing.T) {
	assert.Equal(t, owner.UserID, EffectiveOwner(owner, "someone-else"))
	assert.Equal(t, "someone-else", EffectiveOwner(admin, "someone-else"))
	assert.Equal(t, admin.UserID, EffectiveOwner(admin, ""))
}

func TestCanDeleteUser(t *testing.T) {
	assert.True(t, errors.IsForbidden(CanDeleteUser(owner, stranger.UserID)))
	assert.True(t, errors.IsForbidden(CanDeleteUser(admin, admin.UserID)))
	assert.NoError(t, CanDeleteUser(admin, owner.UserID))
}
