// Package documents serves the PDF attachments stored on all three
// application families through one retrieval surface.
package documents

import (
	"context"
	"fmt"

	"github.com/enerconnect/portal/internal/app/domain/application"
	"github.com/enerconnect/portal/internal/app/domain/connection"
	"github.com/enerconnect/portal/internal/app/domain/evacuation"
	"github.com/enerconnect/portal/internal/app/policy"
	"github.com/enerconnect/portal/internal/app/storage"
	"github.com/enerconnect/portal/internal/errors"
)

// Family selects which application table a document lives on.
type Family string

const (
	FamilyGeneric    Family = "generic"
	FamilyConnection Family = "connection"
	FamilyEvacuation Family = "evacuation"
)

// Document is a retrievable attachment ready to stream to the client.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Service resolves document slots across the application families.
type Service struct {
	applications storage.ApplicationStore
	connections  storage.ConnectionStore
	evacuations  storage.EvacuationStore
}

// New creates the documents service.
func New(applications storage.ApplicationStore, connections storage.ConnectionStore, evacuations storage.EvacuationStore) *Service {
	return &Service{applications: applications, connections: connections, evacuations: evacuations}
}

// Retrieve fetches one attachment. An unknown file-type token is a caller
// error; a known token with no stored bytes is a missing document. The
// download name embeds the record's identifier so saved files sort usefully.
func (s *Service) Retrieve(ctx context.Context, requester policy.Identity, family Family, id, fileType string) (Document, error) {
	var (
		owner, status, identifier string
		data                      []byte
	)

	switch family {
	case FamilyGeneric:
		slot, ok := application.DocumentSlots[fileType]
		if !ok {
			return Document{}, errors.Validation("Unknown document type.").WithDetails("file_type", fileType)
		}
		app, err := s.applications.GetApplication(ctx, id)
		if err != nil {
			return Document{}, err
		}
		owner, status, identifier = app.UserID, app.Status, app.ID
		data = slot.Get(&app)

	case FamilyConnection:
		slot, ok := connection.DocumentSlots[fileType]
		if !ok {
			return Document{}, errors.Validation("Unknown document type.").WithDetails("file_type", fileType)
		}
		app, err := s.connections.GetConnection(ctx, id)
		if err != nil {
			return Document{}, err
		}
		owner, status, identifier = app.UserID, app.Status, app.TCKN
		data = slot.Get(&app)

	case FamilyEvacuation:
		slot, ok := evacuation.DocumentSlots[fileType]
		if !ok {
			return Document{}, errors.Validation("Unknown document type.").WithDetails("file_type", fileType)
		}
		app, err := s.evacuations.GetEvacuation(ctx, id)
		if err != nil {
			return Document{}, err
		}
		owner, status, identifier = app.UserID, app.Status, app.TCKN
		data = slot.Get(&app)

	default:
		return Document{}, errors.Validation("Unknown application family.")
	}

	if err := policy.CanAccess(requester, policy.Record{OwnerID: owner, Status: status}, policy.ActionRead); err != nil {
		return Document{}, err
	}
	if len(data) == 0 {
		return Document{}, errors.NotFound("Document not found.")
	}

	return Document{
		Filename:    fmt.Sprintf("%s_%s.pdf", fileType, identifier),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}
