// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/enerconnect/portal/internal/app/domain/application"
	"github.com/enerconnect/portal/internal/app/domain/connection"
	"github.com/enerconnect/portal/internal/app/domain/evacuation"
	"github.com/enerconnect/portal/internal/app/domain/user"
	"github.com/enerconnect/portal/internal/app/storage"
	"github.com/enerconnect/portal/internal/errors"
)

// Store keeps every record family in maps guarded by one mutex.
type Store struct {
	mu           sync.RWMutex
	users        map[string]user.User
	usersByEmail map[string]string
	applications map[string]application.Application
	connections  map[string]connection.Application
	evacuations  map[string]evacuation.Application
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.ApplicationStore = (*Store)(nil)
var _ storage.ConnectionStore = (*Store)(nil)
var _ storage.EvacuationStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:        make(map[string]user.User),
		usersByEmail: make(map[string]string),
		applications: make(map[string]application.Application),
		connections:  make(map[string]connection.Application),
		evacuations:  make(map[string]evacuation.Application),
	}
}

// UserStore implementation ---------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, exists := s.usersByEmail[key]; exists {
		return user.User{}, errors.Conflict("Email already exists.")
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = u
	s.usersByEmail[key] = u.ID
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, errors.NotFound("User not found.")
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return user.User{}, errors.NotFound("User not found.")
	}
	return s.users[id], nil
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) UpdateUser(_ context.Context, id string, patch map[string]any) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, errors.NotFound("User not found.")
	}

	for col, val := range patch {
		switch col {
		case "full_name":
			u.FullName, _ = val.(string)
		case "role":
			u.Role, _ = val.(string)
		}
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return u, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return errors.NotFound("User not found.")
	}
	delete(s.usersByEmail, strings.ToLower(u.Email))
	delete(s.users, id)
	return nil
}

// ApplicationStore implementation --------------------------------------------

func (s *Store) CreateApplication(_ context.Context, app application.Application) (application.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.SubmittedAt = now
	app.UpdatedAt = now

	s.applications[app.ID] = cloneApplication(app)
	return app, nil
}

func (s *Store) GetApplication(_ context.Context, id string) (application.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.applications[id]
	if !ok {
		return application.Application{}, errors.NotFound("Application not found.")
	}
	return cloneApplication(app), nil
}

func (s *Store) ListApplications(_ context.Context, filter storage.ApplicationFilter) ([]application.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []application.Application
	for _, app := range s.applications {
		if !matchesApplication(app, filter) {
			continue
		}
		result = append(result, cloneApplication(app))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SubmittedAt.After(result[j].SubmittedAt) })
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func matchesApplication(app application.Application, filter storage.ApplicationFilter) bool {
	if filter.UserID != "" && app.UserID != filter.UserID {
		return false
	}
	if filter.ApplicationType != "" && !strings.EqualFold(app.ApplicationType, filter.ApplicationType) {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if strings.EqualFold(app.Status, status) {
				found = true
				break
			}
		}
		return found
	}
	if filter.Status != "" && !strings.EqualFold(app.Status, filter.Status) {
		return false
	}
	return true
}

func (s *Store) UpdateApplication(_ context.Context, id string, patch map[string]any) (application.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[id]
	if !ok {
		return application.Application{}, errors.NotFound("Application not found.")
	}

	for col, val := range patch {
		switch col {
		case "application_type":
			app.ApplicationType, _ = val.(string)
		case "applicant_name":
			app.ApplicantName, _ = val.(string)
		case "property_address":
			app.PropertyAddress, _ = val.(string)
		case "installation_number":
			app.InstallationNumber, _ = val.(string)
		case "dask_policy_number":
			app.DaskPolicyNumber, _ = val.(string)
		case "is_tenant":
			app.IsTenant, _ = val.(bool)
		case "landlord_full_name":
			app.LandlordFullName, _ = val.(string)
		case "landlord_id_type":
			app.LandlordIDType, _ = val.(string)
		case "landlord_id_number":
			app.LandlordIDNumber, _ = val.(string)
		case "landlord_company_name":
			app.LandlordCompanyName, _ = val.(string)
		case "landlord_representative_name":
			app.LandlordRepresentativeName, _ = val.(string)
		case "power_of_attorney_provided":
			app.PowerOfAttorneyProvided, _ = val.(bool)
		case "signature_circular_provided":
			app.SignatureCircularProvided, _ = val.(bool)
		case "termination_iban":
			app.TerminationIBAN, _ = val.(string)
		case "ownership_document_type":
			app.OwnershipDocumentType, _ = val.(string)
		case "notes":
			app.Notes, _ = val.(string)
		case "status":
			app.Status, _ = val.(string)
		case "processed_at":
			if t, ok := val.(time.Time); ok {
				app.ProcessedAt = &t
			}
		case "processed_by_user_id":
			app.ProcessedByUserID, _ = val.(string)
		}
	}
	app.UpdatedAt = time.Now().UTC()
	s.applications[id] = cloneApplication(app)
	return app, nil
}

func (s *Store) DeleteApplication(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applications[id]; !ok {
		return errors.NotFound("Application not found.")
	}
	delete(s.applications, id)
	return nil
}

func (s *Store) CountApplications(_ context.Context, userID, status string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, app := range s.applications {
		if userID != "" && app.UserID != userID {
			continue
		}
		if status != "" && !strings.EqualFold(app.Status, status) {
			continue
		}
		count++
	}
	return count, nil
}

// ConnectionStore implementation ---------------------------------------------

func (s *Store) CreateConnection(_ context.Context, app connection.Application) (connection.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	app.CreatedAt = time.Now().UTC()

	s.connections[app.ID] = cloneConnection(app)
	return app, nil
}

func (s *Store) GetConnection(_ context.Context, id string) (connection.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.connections[id]
	if !ok {
		return connection.Application{}, errors.NotFound("Application not found.")
	}
	return cloneConnection(app), nil
}

func (s *Store) ListConnections(_ context.Context, filter storage.ConnectionFilter) ([]connection.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []connection.Application
	for _, app := range s.connections {
		if filter.UserID != "" && app.UserID != filter.UserID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsFold(filter.Statuses, app.Status) {
			continue
		}
		result = append(result, cloneConnection(app))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) UpdateConnection(_ context.Context, id string, patch map[string]any) (connection.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.connections[id]
	if !ok {
		return connection.Application{}, errors.NotFound("Application not found.")
	}

	for col, val := range patch {
		switch col {
		case "full_name":
			app.FullName, _ = val.(string)
		case "tckn":
			app.TCKN, _ = val.(string)
		case "requires_license":
			app.RequiresLicense, _ = val.(bool)
		case "status":
			app.Status, _ = val.(string)
		}
	}
	s.connections[id] = cloneConnection(app)
	return app, nil
}

func (s *Store) DeleteConnection(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.connections[id]; !ok {
		return errors.NotFound("Application not found.")
	}
	delete(s.connections, id)
	return nil
}

// EvacuationStore implementation ---------------------------------------------

func (s *Store) CreateEvacuation(_ context.Context, app evacuation.Application) (evacuation.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now

	s.evacuations[app.ID] = cloneEvacuation(app)
	return app, nil
}

func (s *Store) GetEvacuation(_ context.Context, id string) (evacuation.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.evacuations[id]
	if !ok {
		return evacuation.Application{}, errors.NotFound("Application not found.")
	}
	return cloneEvacuation(app), nil
}

func (s *Store) ListEvacuations(_ context.Context, filter storage.EvacuationFilter) ([]evacuation.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []evacuation.Application
	for _, app := range s.evacuations {
		if filter.UserID != "" && app.UserID != filter.UserID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsFold(filter.Statuses, app.Status) {
			continue
		}
		result = append(result, cloneEvacuation(app))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) UpdateEvacuation(_ context.Context, id string, patch map[string]any) (evacuation.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.evacuations[id]
	if !ok {
		return evacuation.Application{}, errors.NotFound("Application not found.")
	}

	for col, val := range patch {
		switch col {
		case "status":
			app.Status, _ = val.(string)
		case "address":
			app.Address, _ = val.(string)
		case "phone_number":
			app.PhoneNumber, _ = val.(string)
		case "email":
			app.Email, _ = val.(string)
		case "evacuation_reason":
			app.EvacuationReason, _ = val.(string)
		case "evacuation_date":
			app.EvacuationDate, _ = val.(string)
		case "iban":
			app.IBAN, _ = val.(string)
		}
	}
	app.UpdatedAt = time.Now().UTC()
	s.evacuations[id] = cloneEvacuation(app)
	return app, nil
}

func (s *Store) DeleteEvacuation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.evacuations[id]; !ok {
		return errors.NotFound("Application not found.")
	}
	delete(s.evacuations, id)
	return nil
}

// Helpers ---------------------------------------------------------------------

func containsFold(haystack []string, needle string) bool {
	for _, candidate := range haystack {
		if strings.EqualFold(candidate, needle) {
			return true
		}
	}
	return false
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneApplication(app application.Application) application.Application {
	app.OldBillFile = cloneBytes(app.OldBillFile)
	app.ProxyDocument = cloneBytes(app.ProxyDocument)
	app.DaskPolicyFile = cloneBytes(app.DaskPolicyFile)
	app.OwnershipDocument = cloneBytes(app.OwnershipDocument)
	if app.ProcessedAt != nil {
		t := *app.ProcessedAt
		app.ProcessedAt = &t
	}
	return app
}

func cloneConnection(app connection.Application) connection.Application {
	app.DeedFile = cloneBytes(app.DeedFile)
	app.ElectricalProject = cloneBytes(app.ElectricalProject)
	app.BuildingPermit = cloneBytes(app.BuildingPermit)
	app.PermitDocument = cloneBytes(app.PermitDocument)
	app.Law6292Document = cloneBytes(app.Law6292Document)
	app.Law3194Document = cloneBytes(app.Law3194Document)
	return app
}

func cloneEvacuation(app evacuation.Application) evacuation.Application {
	app.NationalIDCard = cloneBytes(app.NationalIDCard)
	app.OwnershipDocument = cloneBytes(app.OwnershipDocument)
	return app
}
