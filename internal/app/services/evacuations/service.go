// Package evacuations implements the tenant evacuation application family.
package evacuations

import (
	"context"
	"strings"

	"github.com/enerconnect/portal/internal/app/domain/evacuation"
	"github.com/enerconnect/portal/internal/app/policy"
	"github.com/enerconnect/portal/internal/app/storage"
	"github.com/enerconnect/portal/internal/errors"
	"github.com/enerconnect/portal/pkg/logger"
)

// Service owns the evacuation application lifecycle.
type Service struct {
	store storage.EvacuationStore
	log   *logger.Logger
}

// New creates the evacuations service.
func New(store storage.EvacuationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("evacuations")
	}
	return &Service{store: store, log: log}
}

// CreateRequest carries the submission form. The field names mirror the
// upload form; Documents is keyed by the public file-type token.
type CreateRequest struct {
	UserType            string
	FullName            string
	TCKN                string
	Address             string
	PhoneNumber         string
	Email               string
	EvacuationReason    string
	EvacuationDate      string
	InstallationNumber  string
	DaskPolicyNumber    string
	EarthquakeInsurance string
	IBAN                string
	LandlordType        string
	LandlordFullName    string
	TaxNumber           string
	CorporateFirstName  string
	CorporateLastName   string
	CorporateTitle      string
	RequiresLicense     string
	Documents           map[string][]byte
}

// Create validates the full form, including both mandatory documents, and
// stores the application in pending state.
func (s *Service) Create(ctx context.Context, requester policy.Identity, req CreateRequest) (evacuation.Application, error) {
	fieldErrors := make(map[string]any)

	switch req.UserType {
	case evacuation.UserTypePropertyOwner, evacuation.UserTypeTenant:
	default:
		fieldErrors["userType"] = "User type must be property-owner or tenant."
	}
	required := map[string]string{
		"fullName":         req.FullName,
		"tckn":             req.TCKN,
		"address":          req.Address,
		"phoneNumber":      req.PhoneNumber,
		"email":            req.Email,
		"evacuationReason": req.EvacuationReason,
		"evacuationDate":   req.EvacuationDate,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			fieldErrors[field] = "This field is required."
		}
	}
	for token := range evacuation.DocumentSlots {
		if len(req.Documents[token]) == 0 {
			fieldErrors[token] = "This document is required."
		}
	}
	if len(fieldErrors) > 0 {
		svcErr := errors.Validation("Missing required fields.")
		for field, msg := range fieldErrors {
			svcErr.WithDetails(field, msg)
		}
		return evacuation.Application{}, svcErr
	}

	app := evacuation.Application{
		UserID:              requester.UserID,
		UserType:            req.UserType,
		FullName:            req.FullName,
		TCKN:                req.TCKN,
		Address:             req.Address,
		PhoneNumber:         req.PhoneNumber,
		Email:               req.Email,
		EvacuationReason:    req.EvacuationReason,
		EvacuationDate:      req.EvacuationDate,
		InstallationNumber:  req.InstallationNumber,
		DaskPolicyNumber:    req.DaskPolicyNumber,
		EarthquakeInsurance: req.EarthquakeInsurance,
		IBAN:                req.IBAN,
		LandlordType:        req.LandlordType,
		LandlordFullName:    req.LandlordFullName,
		TaxNumber:           req.TaxNumber,
		CorporateFirstName:  req.CorporateFirstName,
		CorporateLastName:   req.CorporateLastName,
		CorporateTitle:      req.CorporateTitle,
		RequiresLicense:     strings.EqualFold(req.RequiresLicense, "yes"),
		Status:              evacuation.StatusPending,
	}
	for token, data := range req.Documents {
		slot, ok := evacuation.DocumentSlots[token]
		if !ok {
			return evacuation.Application{}, errors.Validation("Unknown document type.").WithDetails("file_type", token)
		}
		slot.Set(&app, data)
	}

	created, err := s.store.CreateEvacuation(ctx, app)
	if err != nil {
		return evacuation.Application{}, err
	}

	s.log.WithField("application_id", created.ID).Info("evacuation application submitted")
	return created, nil
}

// MyApplications lists the requester's own applications, newest first.
func (s *Service) MyApplications(ctx context.Context, requester policy.Identity) ([]evacuation.Application, error) {
	return s.store.ListEvacuations(ctx, storage.EvacuationFilter{UserID: requester.UserID})
}

var (
	pendingStatuses   = []string{evacuation.StatusPending, evacuation.StatusInReview}
	completedStatuses = []string{evacuation.StatusApproved, evacuation.StatusRejected}
)

// Pending lists still-open evacuation applications. Customers see their own;
// admins see everyone's.
func (s *Service) Pending(ctx context.Context, requester policy.Identity) ([]evacuation.Application, error) {
	return s.byStatuses(ctx, requester, pendingStatuses)
}

// Completed lists decided evacuation applications, scoped like Pending.
func (s *Service) Completed(ctx context.Context, requester policy.Identity) ([]evacuation.Application, error) {
	return s.byStatuses(ctx, requester, completedStatuses)
}

func (s *Service) byStatuses(ctx context.Context, requester policy.Identity, statuses []string) ([]evacuation.Application, error) {
	filter := storage.EvacuationFilter{Statuses: statuses}
	if !requester.IsAdmin() {
		filter.UserID = requester.UserID
	}
	return s.store.ListEvacuations(ctx, filter)
}

// Get returns one evacuation application after the read policy check.
func (s *Service) Get(ctx context.Context, requester policy.Identity, id string) (evacuation.Application, error) {
	app, err := s.store.GetEvacuation(ctx, id)
	if err != nil {
		return evacuation.Application{}, err
	}
	if err := policy.CanAccess(requester, policy.Record{OwnerID: app.UserID, Status: app.Status}, policy.ActionRead); err != nil {
		return evacuation.Application{}, err
	}
	return app, nil
}

// UpdateStatus moves an application through its lifecycle. Admin only.
func (s *Service) UpdateStatus(ctx context.Context, requester policy.Identity, id, status string) (evacuation.Application, error) {
	if err := policy.RequireAdmin(requester); err != nil {
		return evacuation.Application{}, err
	}
	if !evacuation.ValidStatus(status) {
		return evacuation.Application{}, errors.Validation("Unknown application status.").WithDetails("status", status)
	}

	updated, err := s.store.UpdateEvacuation(ctx, id, map[string]any{"status": status})
	if err != nil {
		return evacuation.Application{}, err
	}

	s.log.WithField("application_id", id).WithField("status", status).Info("evacuation status updated")
	return updated, nil
}

// Delete removes an evacuation application. Owners may withdraw early-stage
// records; admins delete unconditionally.
func (s *Service) Delete(ctx context.Context, requester policy.Identity, id string) error {
	app, err := s.store.GetEvacuation(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.CanAccess(requester, policy.Record{OwnerID: app.UserID, Status: app.Status}, policy.ActionDelete); err != nil {
		return err
	}
	if err := s.store.DeleteEvacuation(ctx, id); err != nil {
		return err
	}
	s.log.WithField("application_id", id).Info("evacuation application deleted")
	return nil
}
