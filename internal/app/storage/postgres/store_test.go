package postgres

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enerconnect/portal/internal/app/domain/user"
	"github.com/enerconnect/portal/internal/app/storage"
	"github.com/enerconnect/portal/internal/errors"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.CreateUser(context.Background(), user.User{
		Email:        "dup@example.com",
		PasswordHash: "hash",
		FullName:     "Dup",
		Role:         user.RoleCustomer,
	})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	assert.Equal(t, "Email already exists.", errors.GetServiceError(err).Message)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .* FROM users WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetUser(context.Background(), "missing")
	assert.True(t, errors.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "created_at", "updated_at"}).
		AddRow("u-1", "a@example.com", "hash", "Ada", user.RoleAdmin, now, now)
	mock.ExpectQuery("SELECT .* FROM users WHERE LOWER\\(email\\)").
		WithArgs("A@Example.com").
		WillReturnRows(rows)

	u, err := store.GetUserByEmail(context.Background(), "A@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, user.RoleAdmin, u.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE users SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.UpdateUser(context.Background(), "missing", map[string]any{"full_name": "New"})
	assert.True(t, errors.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteApplication(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM applications WHERE id").
		WithArgs("app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.DeleteApplication(context.Background(), "app-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountApplications(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM applications").
		WithArgs("u-1", "active").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := store.CountApplications(context.Background(), "u-1", "Active")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserLeavesPatchUntouched(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE users SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	patch := map[string]any{"full_name": "New"}
	_, err := store.UpdateUser(context.Background(), "missing", patch)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, map[string]any{"full_name": "New"}, patch)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetClauseIsDeterministic(t *testing.T) {
	clause, args := setClause(map[string]any{
		"status":    "approved",
		"notes":     "ok",
		"full_name": "Ada",
	}, 2)
	assert.Equal(t, "full_name = $2, notes = $3, status = $4", clause)
	assert.Equal(t, []any{"Ada", "ok", "approved"}, args)
}

func TestListApplicationsFilterSQL(t *testing.T) {
	store, mock := newMockStore(t)

	cols := []string{
		"id", "user_id", "application_type", "applicant_name", "property_address",
		"installation_number", "dask_policy_number", "is_tenant",
		"landlord_full_name", "landlord_id_type", "landlord_id_number",
		"landlord_company_name", "landlord_representative_name",
		"power_of_attorney_provided", "signature_circular_provided",
		"termination_iban", "ownership_document_type", "notes",
		"status", "submitted_at", "updated_at", "processed_at", "processed_by_user_id",
		"old_bill_file_data", "proxy_document_data", "dask_policy_file_data", "ownership_document_data",
	}
	now := time.Now().UTC()
	rows := sqlmock.NewRows(cols).AddRow(
		"app-1", "u-1", "new_installation", "Ada", "1 Main St",
		"", "", false,
		"", "", "", "", "",
		false, false,
		"", "", "",
		"pending", now, now, nil, "",
		nil, nil, nil, nil)

	mock.ExpectQuery("FROM applications WHERE user_id = \\$1 AND LOWER\\(status\\) = \\$2 ORDER BY submitted_at DESC").
		WithArgs("u-1", "pending").
		WillReturnRows(rows)

	apps, err := store.ListApplications(context.Background(), storage.ApplicationFilter{
		UserID: "u-1",
		Status: "Pending",
	})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "app-1", apps[0].ID)
	assert.Nil(t, apps[0].ProcessedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}
