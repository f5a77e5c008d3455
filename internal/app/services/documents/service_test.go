package documents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enerconnect/portal/internal/app/domain/application"
	"github.com/enerconnect/portal/internal/app/domain/connection"
	"github.com/enerconnect/portal/internal/app/domain/evacuation"
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

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return New(store, store, store), store
}

func TestRetrieveGenericDocument(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	app, err := store.CreateApplication(ctx, application.Application{
		UserID:      customer.UserID,
		Status:      application.StatusPending,
		OldBillFile: []byte("%PDF-bill"),
	})
	require.NoError(t, err)

	doc, err := svc.Retrieve(ctx, customer, FamilyGeneric, app.ID, "old_bill")
	require.NoError(t, err)
	assert.Equal(t, "old_bill_"+app.ID+".pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, []byte("%PDF-bill"), doc.Data)
}

func TestRetrieveConnectionUsesTCKNInFilename(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	app, err := store.CreateConnection(ctx, connection.Application{
		UserID:   customer.UserID,
		TCKN:     "12345678901",
		Status:   connection.StatusPending,
		DeedFile: []byte("%PDF-deed"),
	})
	require.NoError(t, err)

	doc, err := svc.Retrieve(ctx, admin, FamilyConnection, app.ID, "deed")
	require.NoError(t, err)
	assert.Equal(t, "deed_12345678901.pdf", doc.Filename)
}

func TestRetrieveEvacuationSlots(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	app, err := store.CreateEvacuation(ctx, evacuation.Application{
		UserID:         customer.UserID,
		TCKN:           "98765432109",
		Status:         evacuation.StatusPending,
		NationalIDCard: []byte("%PDF-id"),
	})
	require.NoError(t, err)

	doc, err := svc.Retrieve(ctx, customer, FamilyEvacuation, app.ID, "nufusCuzdani")
	require.NoError(t, err)
	assert.Equal(t, "nufusCuzdani_98765432109.pdf", doc.Filename)

	// The connection family's tokens are not valid here.
	_, err = svc.Retrieve(ctx, customer, FamilyEvacuation, app.ID, "deed")
	assert.True(t, errors.IsValidation(err))
}

func TestRetrieveUnknownTokenVsEmptySlot(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	app, err := store.CreateApplication(ctx, application.Application{
		UserID: customer.UserID,
		Status: application.StatusPending,
	})
	require.NoError(t, err)

	_, err = svc.Retrieve(ctx, customer, FamilyGeneric, app.ID, "selfie")
	assert.True(t, errors.IsValidation(err))

	_, err = svc.Retrieve(ctx, customer, FamilyGeneric, app.ID, "old_bill")
	assert.True(t, errors.IsNotFound(err))
}

func TestRetrieveEnforcesOwnership(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	app, err := store.CreateApplication(ctx, application.Application{
		UserID:      customer.UserID,
		Status:      application.StatusPending,
		OldBillFile: []byte("%PDF-bill"),
	})
	require.NoError(t, err)

	_, err = svc.Retrieve(ctx, otherCustomer, FamilyGeneric, app.ID, "old_bill")
	assert.True(t, errors.IsForbidden(err))
}
