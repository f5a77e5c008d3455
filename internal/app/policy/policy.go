// Package policy implements the single authorization decision point shared
// by every application family. Services never re-derive role rules; they
// describe the record and ask.
package policy

import (
	"github.com/enerconnect/portal/internal/app/domain/application"
	"github.com/enerconnect/portal/internal/app/domain/user"
	"github.com/enerconnect/portal/internal/errors"
)

// Identity is the verified requester extracted from a token.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == user.RoleAdmin }

// Record describes the ownership and lifecycle state of a target record.
type Record struct {
	OwnerID string
	Status  string
}

// Action names the operations the policy gates.
type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// FieldSpec declares, per application family, which stored columns may be
// patched at all and which of them the owner may edit during needs_info.
type FieldSpec struct {
	Updatable     []string
	OwnerEditable []string
}

// deletableStatuses are the states in which the owning user may still
// withdraw a record. Admins delete unconditionally.
var deletableStatuses = map[string]bool{
	application.StatusPending:  true,
	application.StatusInReview: true,
}

// CanAccess decides whether requester may perform action on the record.
// A nil return means allow; otherwise the error carries the reason.
func CanAccess(requester Identity, rec Record, action Action) error {
	if requester.IsAdmin() {
		return nil
	}

	switch action {
	case ActionRead:
		if rec.OwnerID == requester.UserID {
			return nil
		}
		return errors.Forbidden("You can only access your own applications.")

	case ActionUpdate:
		if rec.OwnerID != requester.UserID {
			return errors.Forbidden("You can only access your own applications.")
		}
		if rec.Status != application.StatusNeedsInfo {
			return errors.Forbidden("This application is not open for changes.")
		}
		return nil

	case ActionDelete:
		if rec.OwnerID != requester.UserID || !deletableStatuses[rec.Status] {
			return errors.Forbidden("Forbidden to delete this application.")
		}
		return nil
	}

	return errors.Forbidden("Forbidden")
}

// AllowedMutableFields returns the set of columns requester may patch on the
// record. Admins get every updatable column; owners get the declared
// owner-editable subset only while the record is in needs_info; everyone
// else gets nothing.
func AllowedMutableFields(requester Identity, rec Record, spec FieldSpec) map[string]bool {
	allowed := make(map[string]bool)

	if requester.IsAdmin() {
		for _, col := range spec.Updatable {
			allowed[col] = true
		}
		return allowed
	}

	if rec.OwnerID == requester.UserID && rec.Status == application.StatusNeedsInfo {
		for _, col := range spec.OwnerEditable {
			allowed[col] = true
		}
	}
	return allowed
}

// EffectiveOwner resolves the user a new record is created for. Only admins
// may create on behalf of another user; any requested owner supplied by a
// non-admin is overridden with the requester's own id.
func EffectiveOwner(requester Identity, requestedUserID string) string {
	if requester.IsAdmin() && requestedUserID != "" {
		return requestedUserID
	}
	return requester.UserID
}

// CanDeleteUser gates user record deletion: admin-only, and never the
// admin's own record.
func CanDeleteUser(requester Identity, targetUserID string) error {
	if !requester.IsAdmin() {
		return errors.Forbidden("Admin access required.")
	}
	if targetUserID == requester.UserID {
		return errors.Forbidden("Admins cannot delete themselves through this endpoint.")
	}
	return nil
}

// RequireAdmin denies non-admin identities.
func RequireAdmin(requester Identity) error {
	if !requester.IsAdmin() {
		return errors.Forbidden("Admin access required.")
	}
	return nil
}
