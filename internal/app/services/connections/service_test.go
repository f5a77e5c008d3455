package connections

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enerconnect/portal/internal/app/domain/connection"
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

func submit(t *testing.T, svc *Service, requester policy.Identity, req CreateRequest) connection.Application {
	t.Helper()
	if req.FullName == "" {
		req.FullName = "Test Applicant"
	}
	if req.TCKN == "" {
		req.TCKN = "12345678901"
	}
	app, err := svc.Create(context.Background(), requester, req)
	require.NoError(t, err)
	return app
}

func TestCreateValidatesRequiredFields(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), customer, CreateRequest{})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	details := errors.GetServiceError(err).Details
	assert.Contains(t, details, "fullName")
	assert.Contains(t, details, "tckn")
}

func TestCreateParsesRequiresLicense(t *testing.T) {
	svc := newTestService(t)

	app := submit(t, svc, customer, CreateRequest{RequiresLicense: "YES"})
	assert.True(t, app.RequiresLicense)

	app = submit(t, svc, customer, CreateRequest{RequiresLicense: "no"})
	assert.False(t, app.RequiresLicense)

	app = submit(t, svc, customer, CreateRequest{})
	assert.False(t, app.RequiresLicense)
}

func TestCreateStoresDocuments(t *testing.T) {
	svc := newTestService(t)

	app := submit(t, svc, customer, CreateRequest{
		Documents: map[string][]byte{
			"deed":    []byte("%PDF-deed"),
			"law6292": []byte("%PDF-law"),
		},
	})

	got, err := svc.Get(context.Background(), customer, app.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-deed"), got.DeedFile)
	assert.Equal(t, []byte("%PDF-law"), got.Law6292Document)
	assert.Nil(t, got.BuildingPermit)
}

func TestPendingAndCompletedScoping(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	mine := submit(t, svc, customer, CreateRequest{})
	submit(t, svc, otherCustomer, CreateRequest{})
	decided := submit(t, svc, customer, CreateRequest{})
	_, err := svc.UpdateStatus(ctx, admin, decided.ID, connection.StatusApproved)
	require.NoError(t, err)

	pending, err := svc.Pending(ctx, customer)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, mine.ID, pending[0].ID)

	completed, err := svc.Completed(ctx, customer)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, decided.ID, completed[0].ID)

	allPending, err := svc.Pending(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, allPending, 2)
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc := newTestService(t)
	app := submit(t, svc, customer, CreateRequest{})

	_, err := svc.Get(context.Background(), otherCustomer, app.ID)
	assert.True(t, errors.IsForbidden(err))
}

func TestUpdateStatusAdminOnly(t *testing.T) {
	svc := newTestService(t)
	app := submit(t, svc, customer, CreateRequest{})
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, customer, app.ID, connection.StatusApproved)
	assert.True(t, errors.IsForbidden(err))

	_, err = svc.UpdateStatus(ctx, admin, app.ID, "bogus")
	assert.True(t, errors.IsValidation(err))

	updated, err := svc.UpdateStatus(ctx, admin, app.ID, connection.StatusInReview)
	require.NoError(t, err)
	assert.Equal(t, connection.StatusInReview, updated.Status)
}

func TestDeleteLifecycleRules(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	app := submit(t, svc, customer, CreateRequest{})
	require.NoError(t, svc.Delete(ctx, customer, app.ID))

	app = submit(t, svc, customer, CreateRequest{})
	_, err := svc.UpdateStatus(ctx, admin, app.ID, connection.StatusApproved)
	require.NoError(t, err)

	err = svc.Delete(ctx, customer, app.ID)
	assert.True(t, errors.IsForbidden(err))

	require.NoError(t, svc.Delete(ctx, admin, app.ID))
}
