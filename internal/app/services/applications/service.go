// Package applications implements the generic subscription and installation
// application family, including the admin dashboard aggregates.
package applications

import (
	"context"
	"strings"
	"time"

	"github.com/enerconnect/portal/internal/app/domain/application"
	"github.com/enerconnect/portal/internal/app/policy"
	"github.com/enerconnect/portal/internal/app/storage"
	"github.com/enerconnect/portal/internal/errors"
	"github.com/enerconnect/portal/pkg/logger"
)

// recentLimit caps the dashboard's recent application list.
const recentLimit = 5

// Service owns the generic application lifecycle.
type Service struct {
	store storage.ApplicationStore
	log   *logger.Logger
}

// New creates the applications service.
func New(store storage.ApplicationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("applications")
	}
	return &Service{store: store, log: log}
}

// fieldSpec binds this family's columns to the shared policy.
var fieldSpec = policy.FieldSpec{
	Updatable:     application.UpdatableColumns,
	OwnerEditable: application.OwnerEditableColumns,
}

// CreateRequest carries the submission form. UserID is honoured for admins
// only; everyone else submits for themselves. Documents is keyed by the
// public file-type token.
type CreateRequest struct {
	UserID                     string `json:"user_id"`
	ApplicationType            string `json:"application_type"`
	ApplicantName              string `json:"applicant_name"`
	PropertyAddress            string `json:"property_address"`
	InstallationNumber         string `json:"installation_number"`
	DaskPolicyNumber           string `json:"dask_policy_number"`
	IsTenant                   bool   `json:"is_tenant"`
	LandlordFullName           string `json:"landlord_full_name"`
	LandlordIDType             string `json:"landlord_id_type"`
	LandlordIDNumber           string `json:"landlord_id_number"`
	LandlordCompanyName        string `json:"landlord_company_name"`
	LandlordRepresentativeName string `json:"landlord_representative_name"`
	PowerOfAttorneyProvided    bool   `json:"power_of_attorney_provided"`
	SignatureCircularProvided  bool   `json:"signature_circular_provided"`
	TerminationIBAN            string `json:"termination_iban"`
	OwnershipDocumentType      string `json:"ownership_document_type"`
	Notes                      string `json:"notes"`

	Documents map[string][]byte `json:"-"`
}

// Create validates and stores a new application in pending state.
func (s *Service) Create(ctx context.Context, requester policy.Identity, req CreateRequest) (application.Application, error) {
	fieldErrors := make(map[string]any)
	if strings.TrimSpace(req.ApplicationType) == "" {
		fieldErrors["application_type"] = "Application type is required."
	}
	if strings.TrimSpace(req.ApplicantName) == "" {
		fieldErrors["applicant_name"] = "Applicant name is required."
	}
	if strings.TrimSpace(req.PropertyAddress) == "" {
		fieldErrors["property_address"] = "Property address is required."
	}
	if len(fieldErrors) > 0 {
		svcErr := errors.Validation("Missing required fields.")
		for field, msg := range fieldErrors {
			svcErr.WithDetails(field, msg)
		}
		return application.Application{}, svcErr
	}

	app := application.Application{
		UserID:                     policy.EffectiveOwner(requester, req.UserID),
		ApplicationType:            req.ApplicationType,
		ApplicantName:              req.ApplicantName,
		PropertyAddress:            req.PropertyAddress,
		InstallationNumber:         req.InstallationNumber,
		DaskPolicyNumber:           req.DaskPolicyNumber,
		IsTenant:                   req.IsTenant,
		LandlordFullName:           req.LandlordFullName,
		LandlordIDType:             req.LandlordIDType,
		LandlordIDNumber:           req.LandlordIDNumber,
		LandlordCompanyName:        req.LandlordCompanyName,
		LandlordRepresentativeName: req.LandlordRepresentativeName,
		PowerOfAttorneyProvided:    req.PowerOfAttorneyProvided,
		SignatureCircularProvided:  req.SignatureCircularProvided,
		TerminationIBAN:            req.TerminationIBAN,
		OwnershipDocumentType:      req.OwnershipDocumentType,
		Notes:                      req.Notes,
		Status:                     application.StatusPending,
	}

	for token, data := range req.Documents {
		slot, ok := application.DocumentSlots[token]
		if !ok {
			return application.Application{}, errors.Validation("Unknown document type.").WithDetails("file_type", token)
		}
		slot.Set(&app, data)
	}

	created, err := s.store.CreateApplication(ctx, app)
	if err != nil {
		return application.Application{}, err
	}

	s.log.WithField("application_id", created.ID).Info("application submitted")
	return created, nil
}

// ListFilter narrows List. Status and Type match case-insensitively.
type ListFilter struct {
	UserID string
	Status string
	Type   string
}

// List returns applications visible to the requester. Customers are always
// scoped to their own records regardless of the requested user id.
func (s *Service) List(ctx context.Context, requester policy.Identity, filter ListFilter) ([]application.Application, error) {
	userID := filter.UserID
	if !requester.IsAdmin() {
		userID = requester.UserID
	}
	return s.store.ListApplications(ctx, storage.ApplicationFilter{
		UserID:          userID,
		Status:          filter.Status,
		ApplicationType: filter.Type,
	})
}

// Get returns one application after the read policy check.
func (s *Service) Get(ctx context.Context, requester policy.Identity, id string) (application.Application, error) {
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return application.Application{}, err
	}
	if err := policy.CanAccess(requester, policy.Record{OwnerID: app.UserID, Status: app.Status}, policy.ActionRead); err != nil {
		return application.Application{}, err
	}
	return app, nil
}

// Update patches an application. The incoming fields are filtered down to
// the columns the requester may touch; a terminal status transition stamps
// the processing audit columns.
func (s *Service) Update(ctx context.Context, requester policy.Identity, id string, fields map[string]any) (application.Application, error) {
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return application.Application{}, err
	}

	rec := policy.Record{OwnerID: app.UserID, Status: app.Status}
	allowed := policy.AllowedMutableFields(requester, rec, fieldSpec)

	patch := make(map[string]any)
	for col, val := range fields {
		if allowed[col] {
			patch[col] = val
		}
	}
	if len(patch) == 0 {
		return application.Application{}, errors.Validation("No valid fields to update or not authorized for this update.")
	}

	if raw, ok := patch["status"]; ok {
		status, _ := raw.(string)
		if !application.ValidStatus(status) {
			return application.Application{}, errors.Validation("Unknown application status.").WithDetails("status", raw)
		}
		if application.ProcessedStatuses[status] {
			patch["processed_at"] = time.Now().UTC()
			patch["processed_by_user_id"] = requester.UserID
		}
	}

	updated, err := s.store.UpdateApplication(ctx, id, patch)
	if err != nil {
		return application.Application{}, err
	}

	s.log.WithField("application_id", id).Info("application updated")
	return updated, nil
}

// Delete removes an application. Owners may withdraw early-stage records;
// admins delete unconditionally.
func (s *Service) Delete(ctx context.Context, requester policy.Identity, id string) error {
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.CanAccess(requester, policy.Record{OwnerID: app.UserID, Status: app.Status}, policy.ActionDelete); err != nil {
		return err
	}
	if err := s.store.DeleteApplication(ctx, id); err != nil {
		return err
	}
	s.log.WithField("application_id", id).Info("application deleted")
	return nil
}

// Dashboard aggregates the admin landing page counters and the most recent
// submissions.
type Dashboard struct {
	Stats  storage.DashboardStats    `json:"stats"`
	Recent []application.Application `json:"recentApplications"`
}

// GetDashboard builds the dashboard. Admins see unscoped totals; customers
// see counts and recent submissions over their own records only.
func (s *Service) GetDashboard(ctx context.Context, requester policy.Identity) (Dashboard, error) {
	scope := ""
	if !requester.IsAdmin() {
		scope = requester.UserID
	}

	total, err := s.store.CountApplications(ctx, scope, "")
	if err != nil {
		return Dashboard{}, err
	}
	active, err := s.store.CountApplications(ctx, scope, application.StatusActive)
	if err != nil {
		return Dashboard{}, err
	}
	inactive, err := s.store.CountApplications(ctx, scope, application.StatusInactive)
	if err != nil {
		return Dashboard{}, err
	}

	recent, err := s.store.ListApplications(ctx, storage.ApplicationFilter{UserID: scope, Limit: recentLimit})
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		Stats:  storage.DashboardStats{Total: total, Active: active, Inactive: inactive},
		Recent: recent,
	}, nil
}

// The derived subscription views cover the new_installation type only.
const subscriptionType = "new_installation"

var (
	pendingStatuses   = []string{application.StatusPending, application.StatusInReview}
	completedStatuses = []string{application.StatusApproved, application.StatusRejected}
)

// PendingSubscriptions lists still-open subscription applications, scoped
// like List.
func (s *Service) PendingSubscriptions(ctx context.Context, requester policy.Identity) ([]application.Application, error) {
	return s.byStatuses(ctx, requester, pendingStatuses)
}

// CompletedSubscriptions lists decided subscription applications, scoped
// like List.
func (s *Service) CompletedSubscriptions(ctx context.Context, requester policy.Identity) ([]application.Application, error) {
	return s.byStatuses(ctx, requester, completedStatuses)
}

func (s *Service) byStatuses(ctx context.Context, requester policy.Identity, statuses []string) ([]application.Application, error) {
	filter := storage.ApplicationFilter{Statuses: statuses, ApplicationType: subscriptionType}
	if !requester.IsAdmin() {
		filter.UserID = requester.UserID
	}
	return s.store.ListApplications(ctx, filter)
}
