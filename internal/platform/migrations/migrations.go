// Package migrations creates the portal schema on startup. Statements are
// idempotent so repeated application is safe.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'customer',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		application_type TEXT NOT NULL,
		applicant_name TEXT NOT NULL,
		property_address TEXT NOT NULL,
		installation_number TEXT,
		dask_policy_number TEXT,
		is_tenant BOOLEAN NOT NULL DEFAULT FALSE,
		landlord_full_name TEXT,
		landlord_id_type TEXT,
		landlord_id_number TEXT,
		landlord_company_name TEXT,
		landlord_representative_name TEXT,
		power_of_attorney_provided BOOLEAN NOT NULL DEFAULT FALSE,
		signature_circular_provided BOOLEAN NOT NULL DEFAULT FALSE,
		termination_iban TEXT,
		ownership_document_type TEXT,
		notes TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMPTZ,
		processed_by_user_id TEXT,
		old_bill_file_data BYTEA,
		proxy_document_data BYTEA,
		dask_policy_file_data BYTEA,
		ownership_document_data BYTEA
	)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_user_id ON applications(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status)`,
	`CREATE TABLE IF NOT EXISTS connection_applications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		full_name TEXT NOT NULL,
		tckn TEXT NOT NULL,
		requires_license BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deed_file_data BYTEA,
		electrical_project_data BYTEA,
		building_permit_data BYTEA,
		permit_document_data BYTEA,
		law_6292_data BYTEA,
		law_3194_data BYTEA
	)`,
	`CREATE INDEX IF NOT EXISTS idx_connection_applications_user_id ON connection_applications(user_id)`,
	`CREATE TABLE IF NOT EXISTS evacuation_applications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		user_type TEXT NOT NULL,
		full_name TEXT NOT NULL,
		tckn TEXT NOT NULL,
		address TEXT NOT NULL,
		phone_number TEXT NOT NULL,
		email TEXT NOT NULL,
		evacuation_reason TEXT NOT NULL,
		evacuation_date TEXT NOT NULL,
		installation_number TEXT,
		dask_policy_number TEXT,
		earthquake_insurance TEXT,
		iban TEXT,
		landlord_type TEXT,
		landlord_full_name TEXT,
		tax_number TEXT,
		corporate_first_name TEXT,
		corporate_last_name TEXT,
		corporate_title TEXT,
		requires_license BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		nufus_cuzdani_data BYTEA,
		mulkiyet_belgesi_data BYTEA
	)`,
	`CREATE INDEX IF NOT EXISTS idx_evacuation_applications_user_id ON evacuation_applications(user_id)`,
}

// Apply runs every schema statement in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
