// Package connection defines the grid connection application family.
package connection

import "time"

// Statuses for connection applications. Transitions are admin-only.
const (
	StatusPending  = "pending"
	StatusInReview = "in_review"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Application is a grid connection request with its supporting documents.
type Application struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	FullName        string    `json:"full_name"`
	TCKN            string    `json:"tckn"`
	RequiresLicense bool      `json:"requires_license"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`

	DeedFile          []byte `json:"-"`
	ElectricalProject []byte `json:"-"`
	BuildingPermit    []byte `json:"-"`
	PermitDocument    []byte `json:"-"`
	Law6292Document   []byte `json:"-"`
	Law3194Document   []byte `json:"-"`
}

// Slot binds a file-type token to its storage column and accessors.
type Slot struct {
	Column string
	Get    func(*Application) []byte
	Set    func(*Application, []byte)
}

// DocumentSlots maps the public file-type token to the stored slot.
var DocumentSlots = map[string]Slot{
	"deed":       {Column: "deed_file_data", Get: func(a *Application) []byte { return a.DeedFile }, Set: func(a *Application, b []byte) { a.DeedFile = b }},
	"electrical": {Column: "electrical_project_data", Get: func(a *Application) []byte { return a.ElectricalProject }, Set: func(a *Application, b []byte) { a.ElectricalProject = b }},
	"building":   {Column: "building_permit_data", Get: func(a *Application) []byte { return a.BuildingPermit }, Set: func(a *Application, b []byte) { a.BuildingPermit = b }},
	"permit":     {Column: "permit_document_data", Get: func(a *Application) []byte { return a.PermitDocument }, Set: func(a *Application, b []byte) { a.PermitDocument = b }},
	"law6292":    {Column: "law_6292_data", Get: func(a *Application) []byte { return a.Law6292Document }, Set: func(a *Application, b []byte) { a.Law6292Document = b }},
	"law3194":    {Column: "law_3194_data", Get: func(a *Application) []byte { return a.Law3194Document }, Set: func(a *Application, b []byte) { a.Law3194Document = b }},
}

// UpdatableColumns lists the columns an admin may patch.
var UpdatableColumns = []string{
	"full_name",
	"tckn",
	"requires_license",
	"status",
}

// ValidStatus reports whether status is a recognised lifecycle status.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusInReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}
