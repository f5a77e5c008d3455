// Package postgres implements the storage interfaces on PostgreSQL using
// database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/enerconnect/portal/internal/app/domain/application"
	"github.com/enerconnect/portal/internal/app/domain/connection"
	"github.com/enerconnect/portal/internal/app/domain/evacuation"
	"github.com/enerconnect/portal/internal/app/domain/user"
	"github.com/enerconnect/portal/internal/app/storage"
	"github.com/enerconnect/portal/internal/errors"
)

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

// Store wraps a live database handle.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.ApplicationStore = (*Store)(nil)
var _ storage.ConnectionStore = (*Store)(nil)
var _ storage.EvacuationStore = (*Store)(nil)

// New creates a store on top of db. The caller owns the handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

// withTimestamp copies the patch and adds the touch column, leaving the
// caller's map untouched.
func withTimestamp(patch map[string]any, col string) map[string]any {
	out := make(map[string]any, len(patch)+1)
	for k, v := range patch {
		out[k] = v
	}
	out[col] = time.Now().UTC()
	return out
}

// setClause renders the patch into a deterministic "col = $n" list and the
// matching argument slice. Keys are sorted so generated SQL is stable.
func setClause(patch map[string]any, startIdx int) (string, []any) {
	cols := make([]string, 0, len(patch))
	for col := range patch {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	parts := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for i, col := range cols {
		parts = append(parts, fmt.Sprintf("%s = $%d", col, startIdx+i))
		args = append(args, patch[col])
	}
	return strings.Join(parts, ", "), args
}

// Users -----------------------------------------------------------------------

const userColumns = "id, email, password_hash, full_name, role, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, full_name, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.PasswordHash, u.FullName, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, errors.Conflict("Email already exists.")
		}
		return user.User{}, errors.Internal("", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return user.User{}, errors.NotFound("User not found.")
		}
		return user.User{}, errors.Internal("", err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	u, err := scanUser(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return user.User{}, errors.NotFound("User not found.")
		}
		return user.User{}, errors.Internal("", err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, errors.Internal("", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Internal("", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("", err)
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, patch map[string]any) (user.User, error) {
	clause, args := setClause(withTimestamp(patch, "updated_at"), 2)
	args = append([]any{id}, args...)

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET `+clause+` WHERE id = $1`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, errors.Conflict("Email already exists.")
		}
		return user.User{}, errors.Internal("", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return user.User{}, errors.NotFound("User not found.")
	}
	return s.GetUser(ctx, id)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.Internal("", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errors.NotFound("User not found.")
	}
	return nil
}

// Generic applications ---------------------------------------------------------

const applicationColumns = `id, user_id, application_type, applicant_name, property_address,
	COALESCE(installation_number, ''), COALESCE(dask_policy_number, ''), is_tenant,
	COALESCE(landlord_full_name, ''), COALESCE(landlord_id_type, ''), COALESCE(landlord_id_number, ''),
	COALESCE(landlord_company_name, ''), COALESCE(landlord_representative_name, ''),
	power_of_attorney_provided, signature_circular_provided,
	COALESCE(termination_iban, ''), COALESCE(ownership_document_type, ''), COALESCE(notes, ''),
	status, submitted_at, updated_at, processed_at, COALESCE(processed_by_user_id, ''),
	old_bill_file_data, proxy_document_data, dask_policy_file_data, ownership_document_data`

func scanApplication(row interface{ Scan(...any) error }) (application.Application, error) {
	var app application.Application
	var processedAt sql.NullTime
	err := row.Scan(
		&app.ID, &app.UserID, &app.ApplicationType, &app.ApplicantName, &app.PropertyAddress,
		&app.InstallationNumber, &app.DaskPolicyNumber, &app.IsTenant,
		&app.LandlordFullName, &app.LandlordIDType, &app.LandlordIDNumber,
		&app.LandlordCompanyName, &app.LandlordRepresentativeName,
		&app.PowerOfAttorneyProvided, &app.SignatureCircularProvided,
		&app.TerminationIBAN, &app.OwnershipDocumentType, &app.Notes,
		&app.Status, &app.SubmittedAt, &app.UpdatedAt, &processedAt, &app.ProcessedByUserID,
		&app.OldBillFile, &app.ProxyDocument, &app.DaskPolicyFile, &app.OwnershipDocument)
	if processedAt.Valid {
		t := processedAt.Time
		app.ProcessedAt = &t
	}
	return app, err
}

func (s *Store) CreateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.SubmittedAt = now
	app.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (
			id, user_id, application_type, applicant_name, property_address,
			installation_number, dask_policy_number, is_tenant,
			landlord_full_name, landlord_id_type, landlord_id_number,
			landlord_company_name, landlord_representative_name,
			power_of_attorney_provided, signature_circular_provided,
			termination_iban, ownership_document_type, notes,
			status, submitted_at, updated_at,
			old_bill_file_data, proxy_document_data, dask_policy_file_data, ownership_document_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`,
		app.ID, app.UserID, app.ApplicationType, app.ApplicantName, app.PropertyAddress,
		app.InstallationNumber, app.DaskPolicyNumber, app.IsTenant,
		app.LandlordFullName, app.LandlordIDType, app.LandlordIDNumber,
		app.LandlordCompanyName, app.LandlordRepresentativeName,
		app.PowerOfAttorneyProvided, app.SignatureCircularProvided,
		app.TerminationIBAN, app.OwnershipDocumentType, app.Notes,
		app.Status, app.SubmittedAt, app.UpdatedAt,
		app.OldBillFile, app.ProxyDocument, app.DaskPolicyFile, app.OwnershipDocument)
	if err != nil {
		return application.Application{}, errors.Internal("", err)
	}
	return app, nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (application.Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return application.Application{}, errors.NotFound("Application not found.")
		}
		return application.Application{}, errors.Internal("", err)
	}
	return app, nil
}

func (s *Store) ListApplications(ctx context.Context, filter storage.ApplicationFilter) ([]application.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications`
	var conds []string
	var args []any

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(lowered(filter.Statuses)))
		conds = append(conds, fmt.Sprintf("LOWER(status) = ANY($%d)", len(args)))
	} else if filter.Status != "" {
		args = append(args, strings.ToLower(filter.Status))
		conds = append(conds, fmt.Sprintf("LOWER(status) = $%d", len(args)))
	}
	if filter.ApplicationType != "" {
		args = append(args, strings.ToLower(filter.ApplicationType))
		conds = append(conds, fmt.Sprintf("LOWER(application_type) = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY submitted_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Internal("", err)
	}
	defer rows.Close()

	var apps []application.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, errors.Internal("", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("", err)
	}
	return apps, nil
}

func (s *Store) UpdateApplication(ctx context.Context, id string, patch map[string]any) (application.Application, error) {
	clause, args := setClause(withTimestamp(patch, "updated_at"), 2)
	args = append([]any{id}, args...)

	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET `+clause+` WHERE id = $1`, args...)
	if err != nil {
		return application.Application{}, errors.Internal("", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return application.Application{}, errors.NotFound("Application not found.")
	}
	return s.GetApplication(ctx, id)
}

func (s *Store) DeleteApplication(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return errors.Internal("", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errors.NotFound("Application not found.")
	}
	return nil
}

func (s *Store) CountApplications(ctx context.Context, userID, status string) (int, error) {
	query := `SELECT COUNT(*) FROM applications`
	var conds []string
	var args []any

	if userID != "" {
		args = append(args, userID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if status != "" {
		args = append(args, strings.ToLower(status))
		conds = append(conds, fmt.Sprintf("LOWER(status) = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Internal("", err)
	}
	return count, nil
}

// Connection applications ------------------------------------------------------

const connectionColumns = `id, user_id, full_name, tckn, requires_license, status, created_at,
	deed_file_data, electrical_project_data, building_permit_data,
	permit_document_data, law_6292_data, law_3194_data`

func scanConnection(row interface{ Scan(...any) error }) (connection.Application, error) {
	var app connection.Application
	err := row.Scan(
		&app.ID, &app.UserID, &app.FullName, &app.TCKN, &app.RequiresLicense, &app.Status, &app.CreatedAt,
		&app.DeedFile, &app.ElectricalProject, &app.BuildingPermit,
		&app.PermitDocument, &app.Law6292Document, &app.Law3194Document)
	return app, err
}

func (s *Store) CreateConnection(ctx context.Context, app connection.Application) (connection.Application, error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	app.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO connection_applications (
			id, user_id, full_name, tckn, requires_license, status, created_at,
			deed_file_data, electrical_project_data, building_permit_data,
			permit_document_data, law_6292_data, law_3194_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		app.ID, app.UserID, app.FullName, app.TCKN, app.RequiresLicense, app.Status, app.CreatedAt,
		app.DeedFile, app.ElectricalProject, app.BuildingPermit,
		app.PermitDocument, app.Law6292Document, app.Law3194Document)
	if err != nil {
		return connection.Application{}, errors.Internal("", err)
	}
	return app, nil
}

func (s *Store) GetConnection(ctx context.Context, id string) (connection.Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM connection_applications WHERE id = $1`, id)
	app, err := scanConnection(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return connection.Application{}, errors.NotFound("Application not found.")
		}
		return connection.Application{}, errors.Internal("", err)
	}
	return app, nil
}

func (s *Store) ListConnections(ctx context.Context, filter storage.ConnectionFilter) ([]connection.Application, error) {
	query := `SELECT ` + connectionColumns + ` FROM connection_applications`
	var conds []string
	var args []any

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(lowered(filter.Statuses)))
		conds = append(conds, fmt.Sprintf("LOWER(status) = ANY($%d)", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Internal("", err)
	}
	defer rows.Close()

	var apps []connection.Application
	for rows.Next() {
		app, err := scanConnection(rows)
		if err != nil {
			return nil, errors.Internal("", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("", err)
	}
	return apps, nil
}

func (s *Store) UpdateConnection(ctx context.Context, id string, patch map[string]any) (connection.Application, error) {
	clause, args := setClause(patch, 2)
	args = append([]any{id}, args...)

	res, err := s.db.ExecContext(ctx,
		`UPDATE connection_applications SET `+clause+` WHERE id = $1`, args...)
	if err != nil {
		return connection.Application{}, errors.Internal("", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return connection.Application{}, errors.NotFound("Application not found.")
	}
	return s.GetConnection(ctx, id)
}

func (s *Store) DeleteConnection(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM connection_applications WHERE id = $1`, id)
	if err != nil {
		return errors.Internal("", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errors.NotFound("Application not found.")
	}
	return nil
}

// Evacuation applications ------------------------------------------------------

const evacuationColumns = `id, user_id, user_type, full_name, tckn, address, phone_number, email,
	evacuation_reason, evacuation_date,
	COALESCE(installation_number, ''), COALESCE(dask_policy_number, ''), COALESCE(earthquake_insurance, ''),
	COALESCE(iban, ''), COALESCE(landlord_type, ''), COALESCE(landlord_full_name, ''),
	COALESCE(tax_number, ''), COALESCE(corporate_first_name, ''), COALESCE(corporate_last_name, ''),
	COALESCE(corporate_title, ''), requires_license, status, created_at, updated_at,
	nufus_cuzdani_data, mulkiyet_belgesi_data`

func scanEvacuation(row interface{ Scan(...any) error }) (evacuation.Application, error) {
	var app evacuation.Application
	err := row.Scan(
		&app.ID, &app.UserID, &app.UserType, &app.FullName, &app.TCKN, &app.Address, &app.PhoneNumber, &app.Email,
		&app.EvacuationReason, &app.EvacuationDate,
		&app.InstallationNumber, &app.DaskPolicyNumber, &app.EarthquakeInsurance,
		&app.IBAN, &app.LandlordType, &app.LandlordFullName,
		&app.TaxNumber, &app.CorporateFirstName, &app.CorporateLastName,
		&app.CorporateTitle, &app.RequiresLicense, &app.Status, &app.CreatedAt, &app.UpdatedAt,
		&app.NationalIDCard, &app.OwnershipDocument)
	return app, err
}

func (s *Store) CreateEvacuation(ctx context.Context, app evacuation.Application) (evacuation.Application, error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evacuation_applications (
			id, user_id, user_type, full_name, tckn, address, phone_number, email,
			evacuation_reason, evacuation_date,
			installation_number, dask_policy_number, earthquake_insurance,
			iban, landlord_type, landlord_full_name,
			tax_number, corporate_first_name, corporate_last_name,
			corporate_title, requires_license, status, created_at, updated_at,
			nufus_cuzdani_data, mulkiyet_belgesi_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`,
		app.ID, app.UserID, app.UserType, app.FullName, app.TCKN, app.Address, app.PhoneNumber, app.Email,
		app.EvacuationReason, app.EvacuationDate,
		app.InstallationNumber, app.DaskPolicyNumber, app.EarthquakeInsurance,
		app.IBAN, app.LandlordType, app.LandlordFullName,
		app.TaxNumber, app.CorporateFirstName, app.CorporateLastName,
		app.CorporateTitle, app.RequiresLicense, app.Status, app.CreatedAt, app.UpdatedAt,
		app.NationalIDCard, app.OwnershipDocument)
	if err != nil {
		return evacuation.Application{}, errors.Internal("", err)
	}
	return app, nil
}

func (s *Store) GetEvacuation(ctx context.Context, id string) (evacuation.Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+evacuationColumns+` FROM evacuation_applications WHERE id = $1`, id)
	app, err := scanEvacuation(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return evacuation.Application{}, errors.NotFound("Application not found.")
		}
		return evacuation.Application{}, errors.Internal("", err)
	}
	return app, nil
}

func (s *Store) ListEvacuations(ctx context.Context, filter storage.EvacuationFilter) ([]evacuation.Application, error) {
	query := `SELECT ` + evacuationColumns + ` FROM evacuation_applications`
	var conds []string
	var args []any

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(lowered(filter.Statuses)))
		conds = append(conds, fmt.Sprintf("LOWER(status) = ANY($%d)", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Internal("", err)
	}
	defer rows.Close()

	var apps []evacuation.Application
	for rows.Next() {
		app, err := scanEvacuation(rows)
		if err != nil {
			return nil, errors.Internal("", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("", err)
	}
	return apps, nil
}

func (s *Store) UpdateEvacuation(ctx context.Context, id string, patch map[string]any) (evacuation.Application, error) {
	clause, args := setClause(withTimestamp(patch, "updated_at"), 2)
	args = append([]any{id}, args...)

	res, err := s.db.ExecContext(ctx,
		`UPDATE evacuation_applications SET `+clause+` WHERE id = $1`, args...)
	if err != nil {
		return evacuation.Application{}, errors.Internal("", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return evacuation.Application{}, errors.NotFound("Application not found.")
	}
	return s.GetEvacuation(ctx, id)
}

func (s *Store) DeleteEvacuation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM evacuation_applications WHERE id = $1`, id)
	if err != nil {
		return errors.Internal("", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errors.NotFound("Application not found.")
	}
	return nil
}

func lowered(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}
