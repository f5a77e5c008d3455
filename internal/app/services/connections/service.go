// Package connections implements the grid connection application family.
package connections

import (
	"context"
	"strings"

	"github.com/enerconnect/portal/internal/app/domain/connection"
	"github.com/enerconnect/portal/internal/app/policy"
	"github.com/enerconnect/portal/internal/app/storage"
	"github.com/enerconnect/portal/internal/errors"
	"github.com/enerconnect/portal/pkg/logger"
)

// Service owns the connection application lifecycle.
type Service struct {
	store storage.ConnectionStore
	log   *logger.Logger
}

// New creates the connections service.
func New(store storage.ConnectionStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("connections")
	}
	return &Service{store: store, log: log}
}

// CreateRequest carries the submission form. RequiresLicense arrives as the
// form's literal "yes"/"no" value. Documents is keyed by the public
// file-type token.
type CreateRequest struct {
	FullName        string
	TCKN            string
	RequiresLicense string
	Documents       map[string][]byte
}

// Create validates and stores a new connection application in pending state.
func (s *Service) Create(ctx context.Context, requester policy.Identity, req CreateRequest) (connection.Application, error) {
	fieldErrors := make(map[string]any)
	if strings.TrimSpace(req.FullName) == "" {
		fieldErrors["fullName"] = "Full name is required."
	}
	if strings.TrimSpace(req.TCKN) == "" {
		fieldErrors["tckn"] = "National identity number is required."
	}
	if len(fieldErrors) > 0 {
		svcErr := errors.Validation("Missing required fields.")
		for field, msg := range fieldErrors {
			svcErr.WithDetails(field, msg)
		}
		return connection.Application{}, svcErr
	}

	app := connection.Application{
		UserID:          requester.UserID,
		FullName:        req.FullName,
		TCKN:            req.TCKN,
		RequiresLicense: strings.EqualFold(req.RequiresLicense, "yes"),
		Status:          connection.StatusPending,
	}

	for token, data := range req.Documents {
		slot, ok := connection.DocumentSlots[token]
		if !ok {
			return connection.Application{}, errors.Validation("Unknown document type.").WithDetails("file_type", token)
		}
		slot.Set(&app, data)
	}

	created, err := s.store.CreateConnection(ctx, app)
	if err != nil {
		return connection.Application{}, err
	}

	s.log.WithField("application_id", created.ID).Info("connection application submitted")
	return created, nil
}

var (
	pendingStatuses   = []string{connection.StatusPending, connection.StatusInReview}
	completedStatuses = []string{connection.StatusApproved, connection.StatusRejected}
)

// Pending lists still-open connection applications. Customers see their own;
// admins see everyone's.
func (s *Service) Pending(ctx context.Context, requester policy.Identity) ([]connection.Application, error) {
	return s.byStatuses(ctx, requester, pendingStatuses)
}

// Completed lists decided connection applications, scoped like Pending.
func (s *Service) Completed(ctx context.Context, requester policy.Identity) ([]connection.Application, error) {
	return s.byStatuses(ctx, requester, completedStatuses)
}

func (s *Service) byStatuses(ctx context.Context, requester policy.Identity, statuses []string) ([]connection.Application, error) {
	filter := storage.ConnectionFilter{Statuses: statuses}
	if !requester.IsAdmin() {
		filter.UserID = requester.UserID
	}
	return s.store.ListConnections(ctx, filter)
}

// Get returns one connection application after the read policy check.
func (s *Service) Get(ctx context.Context, requester policy.Identity, id string) (connection.Application, error) {
	app, err := s.store.GetConnection(ctx, id)
	if err != nil {
		return connection.Application{}, err
	}
	if err := policy.CanAccess(requester, policy.Record{OwnerID: app.UserID, Status: app.Status}, policy.ActionRead); err != nil {
		return connection.Application{}, err
	}
	return app, nil
}

// UpdateStatus moves an application through its lifecycle. Admin only.
func (s *Service) UpdateStatus(ctx context.Context, requester policy.Identity, id, status string) (connection.Application, error) {
	if err := policy.RequireAdmin(requester); err != nil {
		return connection.Application{}, err
	}
	if !connection.ValidStatus(status) {
		return connection.Application{}, errors.Validation("Unknown application status.").WithDetails("status", status)
	}

	updated, err := s.store.UpdateConnection(ctx, id, map[string]any{"status": status})
	if err != nil {
		return connection.Application{}, err
	}

	s.log.WithField("application_id", id).WithField("status", status).Info("connection status updated")
	return updated, nil
}

// Delete removes a connection application. Owners may withdraw early-stage
// records; admins delete unconditionally.
func (s *Service) Delete(ctx context.Context, requester policy.Identity, id string) error {
	app, err := s.store.GetConnection(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.CanAccess(requester, policy.Record{OwnerID: app.UserID, Status: app.Status}, policy.ActionDelete); err != nil {
		return err
	}
	if err := s.store.DeleteConnection(ctx, id); err != nil {
		return err
	}
	s.log.WithField("application_id", id).Info("connection application deleted")
	return nil
}
