package applications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enerconnect/portal/internal/app/domain/application"
	"github.com/enerconnect/portal/internal/app/domain/user"
	"github.com/enerconnect/portal/internal/app/policy"
	"github.com/enerconnect/portal/internal/app/storage/memory"
	"github.com/enerconnect/portal/internal/errors"
)

var (
	customer      = policy.Identity{UserID: "cust-1", Role: user.RoleCustomer}
	otherCustomer = policy.Identity{UserID: "cust-2", Role: user.RoleCustomer}
	admin         = policy.Identity{UserID: "admin-1", Role: user.RoleAdmin}
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(memory.New(), nil)
}

func submit(t *testing.T, svc *Service, requester policy.Identity, req CreateRequest) application.Application {
	t.Helper()
	if req.ApplicationType == "" {
		req.ApplicationType = "new_installation"
	}
	if req.ApplicantName == "" {
		req.ApplicantName = "Test Applicant"
	}
	if req.PropertyAddress == "" {
		req.PropertyAddress = "1 Main St"
	}
	app, err := svc.Create(context.Background(), requester, req)
	require.NoError(t, err)
	return app
}

func TestCreateStartsPending(t *testing.T) {
	svc := newTestService(t)

	app := submit(t, svc, customer, CreateRequest{})
	assert.Equal(t, application.StatusPending, app.Status)
	assert.Equal(t, customer.UserID, app.UserID)
	assert.False(t, app.SubmittedAt.IsZero())
}

func TestCreateRequiredFields(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), customer, CreateRequest{Notes: "only notes"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	details := errors.GetServiceError(err).Details
	assert.Contains(t, details, "application_type")
	assert.Contains(t, details, "applicant_name")
	assert.Contains(t, details, "property_address")
}

func TestCreateIgnoresUserIDForCustomers(t *testing.T) {
	svc := newTestService(t)

	app := submit(t, svc, customer, CreateRequest{UserID: "someone-else"})
	assert.Equal(t, customer.UserID, app.UserID)

	app = submit(t, svc, admin, CreateRequest{UserID: "cust-9"})
	assert.Equal(t, "cust-9", app.UserID)
}

func TestCreateStoresDocuments(t *testing.T) {
	svc := newTestService(t)

	app := submit(t, svc, customer, CreateRequest{
		Documents: map[string][]byte{"old_bill": []byte("%PDF-bill")},
	})

	got, err := svc.Get(context.Background(), customer, app.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-bill"), got.OldBillFile)
}

func TestCreateRejectsUnknownDocumentType(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), customer, CreateRequest{
		ApplicationType: "new_installation",
		ApplicantName:   "A",
		PropertyAddress: "B",
		Documents:       map[string][]byte{"selfie": []byte("x")},
	})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestListScopesCustomersToOwnRecords(t *testing.T) {
	svc := newTestService(t)
	submit(t, svc, customer, CreateRequest{})
	submit(t, svc, otherCustomer, CreateRequest{})
	ctx := context.Background()

	// A customer asking for someone else's records still sees only their own.
	mine, err := svc.List(ctx, customer, ListFilter{UserID: otherCustomer.UserID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, customer.UserID, mine[0].UserID)

	all, err := svc.List(ctx, admin, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListFiltersCaseInsensitively(t *testing.T) {
	svc := newTestService(t)
	submit(t, svc, customer, CreateRequest{ApplicationType: "new_installation"})
	submit(t, svc, customer, CreateRequest{ApplicationType: "termination"})

	apps, err := svc.List(context.Background(), admin, ListFilter{Type: "NEW_INSTALLATION", Status: "PENDING"})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "new_installation", apps[0].ApplicationType)
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc := newTestService(t)
	app := submit(t, svc, customer, CreateRequest{})
	ctx := context.Background()

	_, err := svc.Get(ctx, otherCustomer, app.ID)
	assert.True(t, errors.IsForbidden(err))

	_, err = svc.Get(ctx, admin, app.ID)
	assert.NoError(t, err)
}

func TestUpdateOwnerOnlyDuringNeedsInfo(t *testing.T) {
	svc := newTestService(t)
	app := submit(t, svc, customer, CreateRequest{})
	ctx := context.Background()

	// Pending: the owner has no mutable fields.
	_, err := svc.Update(ctx, customer, app.ID, map[string]any{"property_address": "2 Side St"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = svc.Update(ctx, admin, app.ID, map[string]any{"status": application.StatusNeedsInfo})
	require.NoError(t, err)

	// Notes stay admin-only even while the record is open to the owner.
	_, err = svc.Update(ctx, customer, app.ID, map[string]any{"notes": "please"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	updated, err := svc.Update(ctx, customer, app.ID, map[string]any{
		"property_address": "2 Side St",
		"status":           application.StatusApproved, // silently dropped for owners
	})
	require.NoError(t, err)
	assert.Equal(t, "2 Side St", updated.PropertyAddress)
	assert.Equal(t, application.StatusNeedsInfo, updated.Status)
}

func TestUpdateProcessedTransitionStampsAudit(t *testing.T) {
	svc := newTestService(t)
	app := submit(t, svc, customer, CreateRequest{})
	ctx := context.Background()

	updated, err := svc.Update(ctx, admin, app.ID, map[string]any{"status": application.StatusApproved})
	require.NoError(t, err)
	require.NotNil(t, updated.ProcessedAt)
	assert.Equal(t, admin.UserID, updated.ProcessedByUserID)
}

func TestUpdateNeedsInfoDoesNotStampAudit(t *testing.T) {
	svc := newTestService(t)
	app := submit(t, svc, customer, CreateRequest{})

	updated, err := svc.Update(context.Background(), admin, app.ID, map[string]any{"status": application.StatusNeedsInfo})
	require.NoError(t, err)
	assert.Nil(t, updated.ProcessedAt)
	assert.Empty(t, updated.ProcessedByUserID)
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(t)
	app := submit(t, svc, customer, CreateRequest{})

	_, err := svc.Update(context.Background(), admin, app.ID, map[string]any{"status": "vanished"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestUpdateNeverTouchesIdentityColumns(t *testing.T) {
	svc := newTestService(t)
	app := submit(t, svc, customer, CreateRequest{})

	updated, err := svc.Update(context.Background(), admin, app.ID, map[string]any{
		"user_id": "hijacked",
		"notes":   "legit",
	})
	require.NoError(t, err)
	assert.Equal(t, customer.UserID, updated.UserID)
	assert.Equal(t, "legit", updated.Notes)
}

func TestDeleteLifecycleRules(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	app := submit(t, svc, customer, CreateRequest{})
	require.NoError(t, svc.Delete(ctx, customer, app.ID))

	app = submit(t, svc, customer, CreateRequest{})
	_, err := svc.Update(ctx, admin, app.ID, map[string]any{"status": application.StatusApproved})
	require.NoError(t, err)

	err = svc.Delete(ctx, customer, app.ID)
	assert.True(t, errors.IsForbidden(err))

	require.NoError(t, svc.Delete(ctx, admin, app.ID))
}

func TestDashboardScoping(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		submit(t, svc, customer, CreateRequest{})
	}
	app := submit(t, svc, customer, CreateRequest{})
	_, err := svc.Update(ctx, admin, app.ID, map[string]any{"status": application.StatusActive})
	require.NoError(t, err)
	submit(t, svc, otherCustomer, CreateRequest{})

	// Customers get a dashboard over their own records only.
	dash, err := svc.GetDashboard(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, 8, dash.Stats.Total)
	assert.Equal(t, 1, dash.Stats.Active)
	assert.Len(t, dash.Recent, 5)
	for _, recent := range dash.Recent {
		assert.Equal(t, customer.UserID, recent.UserID)
	}

	other, err := svc.GetDashboard(ctx, otherCustomer)
	require.NoError(t, err)
	assert.Equal(t, 1, other.Stats.Total)

	// Admins see everything.
	dash, err = svc.GetDashboard(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 9, dash.Stats.Total)
	assert.Equal(t, 1, dash.Stats.Active)
	assert.Equal(t, 0, dash.Stats.Inactive)
	assert.Len(t, dash.Recent, 5)
}

func TestDerivedSubscriptionViews(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	open := submit(t, svc, customer, CreateRequest{})
	decided := submit(t, svc, customer, CreateRequest{})
	_, err := svc.Update(ctx, admin, decided.ID, map[string]any{"status": application.StatusRejected})
	require.NoError(t, err)

	pending, err := svc.PendingSubscriptions(ctx, customer)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, open.ID, pending[0].ID)

	completed, err := svc.CompletedSubscriptions(ctx, customer)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, decided.ID, completed[0].ID)
}
