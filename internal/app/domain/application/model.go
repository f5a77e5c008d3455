// Package application defines the generic subscription/installation
// application family.
package application

import "time"

// Statuses the generic family moves through. Only admins transition status;
// needs_info temporarily re-opens a limited set of fields to the owner.
const (
	StatusPending    = "pending"
	StatusInReview   = "in_review"
	StatusNeedsInfo  = "needs_info"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
	StatusProcessing = "processing"
	StatusActive     = "active"
	StatusInactive   = "inactive"
)

// Application is a utility subscription or installation request.
type Application struct {
	ID                         string     `json:"application_id"`
	UserID                     string     `json:"user_id"`
	ApplicationType            string     `json:"application_type"`
	ApplicantName              string     `json:"applicant_name"`
	PropertyAddress            string     `json:"property_address"`
	InstallationNumber         string     `json:"installation_number,omitempty"`
	DaskPolicyNumber           string     `json:"dask_policy_number,omitempty"`
	IsTenant                   bool       `json:"is_tenant"`
	LandlordFullName           string     `json:"landlord_full_name,omitempty"`
	LandlordIDType             string     `json:"landlord_id_type,omitempty"`
	LandlordIDNumber           string     `json:"landlord_id_number,omitempty"`
	LandlordCompanyName        string     `json:"landlord_company_name,omitempty"`
	LandlordRepresentativeName string     `json:"landlord_representative_name,omitempty"`
	PowerOfAttorneyProvided    bool       `json:"power_of_attorney_provided"`
	SignatureCircularProvided  bool       `json:"signature_circular_provided"`
	TerminationIBAN            string     `json:"termination_iban,omitempty"`
	OwnershipDocumentType      string     `json:"ownership_document_type,omitempty"`
	Notes                      string     `json:"notes,omitempty"`
	Status                     string     `json:"status"`
	SubmittedAt                time.Time  `json:"submitted_at"`
	UpdatedAt                  time.Time  `json:"updated_at"`
	ProcessedAt                *time.Time `json:"processed_at,omitempty"`
	ProcessedByUserID          string     `json:"processed_by_user_id,omitempty"`

	OldBillFile       []byte `json:"-"`
	ProxyDocument     []byte `json:"-"`
	DaskPolicyFile    []byte `json:"-"`
	OwnershipDocument []byte `json:"-"`
}

// Slot binds a file-type token to its storage column and accessors.
type Slot struct {
	Column string
	Get    func(*Application) []byte
	Set    func(*Application, []byte)
}

// DocumentSlots maps the public file-type token to the stored slot.
var DocumentSlots = map[string]Slot{
	"old_bill":    {Column: "old_bill_file_data", Get: func(a *Application) []byte { return a.OldBillFile }, Set: func(a *Application, b []byte) { a.OldBillFile = b }},
	"proxy":       {Column: "proxy_document_data", Get: func(a *Application) []byte { return a.ProxyDocument }, Set: func(a *Application, b []byte) { a.ProxyDocument = b }},
	"dask_policy": {Column: "dask_policy_file_data", Get: func(a *Application) []byte { return a.DaskPolicyFile }, Set: func(a *Application, b []byte) { a.DaskPolicyFile = b }},
	"ownership":   {Column: "ownership_document_data", Get: func(a *Application) []byte { return a.OwnershipDocument }, Set: func(a *Application, b []byte) { a.OwnershipDocument = b }},
}

// UpdatableColumns lists every stored column an admin may patch. Identity
// and audit columns are deliberately absent.
var UpdatableColumns = []string{
	"application_type",
	"applicant_name",
	"property_address",
	"installation_number",
	"dask_policy_number",
	"is_tenant",
	"landlord_full_name",
	"landlord_id_type",
	"landlord_id_number",
	"landlord_company_name",
	"landlord_representative_name",
	"power_of_attorney_provided",
	"signature_circular_provided",
	"termination_iban",
	"ownership_document_type",
	"notes",
	"status",
}

// OwnerEditableColumns lists the columns the owning user may patch while the
// record is in needs_info. Status and notes stay admin-only.
var OwnerEditableColumns = []string{
	"property_address",
	"installation_number",
	"dask_policy_number",
	"termination_iban",
}

// ProcessedStatuses are the transitions that stamp processed_at and
// processed_by_user_id.
var ProcessedStatuses = map[string]bool{
	StatusApproved:   true,
	StatusRejected:   true,
	StatusProcessing: true,
}

// ValidStatus reports whether status is a recognised lifecycle status.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusInReview, StatusNeedsInfo, StatusApproved,
		StatusRejected, StatusProcessing, StatusActive, StatusInactive:
		return true
	}
	return false
}
