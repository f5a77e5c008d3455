// Package evacuation defines the tenant evacuation application family.
package evacuation

import "time"

// Statuses for evacuation applications. Transitions are admin-only.
const (
	StatusPending  = "pending"
	StatusInReview = "in_review"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Applicant relationship to the property.
const (
	UserTypePropertyOwner = "property-owner"
	UserTypeTenant        = "tenant"
)

// Application is a tenant evacuation request. The landlord fields are only
// populated when the applicant is a tenant and a landlord type was declared.
type Application struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"user_id"`
	UserType            string    `json:"user_type"`
	FullName            string    `json:"full_name"`
	TCKN                string    `json:"tckn"`
	Address             string    `json:"address"`
	PhoneNumber         string    `json:"phone_number"`
	Email               string    `json:"email"`
	EvacuationReason    string    `json:"evacuation_reason"`
	EvacuationDate      string    `json:"evacuation_date"`
	InstallationNumber  string    `json:"tesisat_numarasi,omitempty"`
	DaskPolicyNumber    string    `json:"dask_police_numarasi,omitempty"`
	EarthquakeInsurance string    `json:"zorunlu_deprem_sigortasi,omitempty"`
	IBAN                string    `json:"iban,omitempty"`
	LandlordType        string    `json:"landlord_type,omitempty"`
	LandlordFullName    string    `json:"mulk_sahibi_ad_soyad,omitempty"`
	TaxNumber           string    `json:"vergi_numarasi,omitempty"`
	CorporateFirstName  string    `json:"tuzel_kisi_ad,omitempty"`
	CorporateLastName   string    `json:"tuzel_kisi_soyad,omitempty"`
	CorporateTitle      string    `json:"unvan,omitempty"`
	RequiresLicense     bool      `json:"requires_license"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	NationalIDCard    []byte `json:"-"`
	OwnershipDocument []byte `json:"-"`
}

// Slot binds a file-type token to its storage column and accessors.
type Slot struct {
	Column string
	Get    func(*Application) []byte
	Set    func(*Application, []byte)
}

// DocumentSlots maps the public file-type token to the stored slot. The
// tokens match the upload form field names.
var DocumentSlots = map[string]Slot{
	"nufusCuzdani":    {Column: "nufus_cuzdani_data", Get: func(a *Application) []byte { return a.NationalIDCard }, Set: func(a *Application, b []byte) { a.NationalIDCard = b }},
	"mulkiyetBelgesi": {Column: "mulkiyet_belgesi_data", Get: func(a *Application) []byte { return a.OwnershipDocument }, Set: func(a *Application, b []byte) { a.OwnershipDocument = b }},
}

// ValidStatus reports whether status is a recognised lifecycle status.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusInReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}
