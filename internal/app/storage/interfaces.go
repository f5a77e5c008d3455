// Package storage declares the persistence interfaces consumed by the
// portal services.
package storage

import (
	"context"

	"github.com/enerconnect/portal/internal/app/domain/application"
	"github.com/enerconnect/portal/internal/app/domain/connection"
	"github.com/enerconnect/portal/internal/app/domain/evacuation"
	"github.com/enerconnect/portal/internal/app/domain/user"
)

// UserStore persists portal accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateUser(ctx context.Context, id string, patch map[string]any) (user.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// ApplicationFilter narrows application listings. Empty fields are ignored.
// Status and ApplicationType match case-insensitively; Statuses, when set,
// takes precedence over Status.
type ApplicationFilter struct {
	UserID          string
	Status          string
	Statuses        []string
	ApplicationType string
	Limit           int
}

// DashboardStats aggregates the counters shown on the portal dashboard.
type DashboardStats struct {
	Total    int `json:"totalCustomers"`
	Active   int `json:"activeCustomers"`
	Inactive int `json:"inactiveCustomers"`
}

// ApplicationStore persists the generic subscription family.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, app application.Application) (application.Application, error)
	GetApplication(ctx context.Context, id string) (application.Application, error)
	ListApplications(ctx context.Context, filter ApplicationFilter) ([]application.Application, error)
	UpdateApplication(ctx context.Context, id string, patch map[string]any) (application.Application, error)
	DeleteApplication(ctx context.Context, id string) error
	CountApplications(ctx context.Context, userID, status string) (int, error)
}

// ConnectionFilter narrows connection application listings.
type ConnectionFilter struct {
	UserID   string
	Statuses []string
}

// ConnectionStore persists the grid connection family.
type ConnectionStore interface {
	CreateConnection(ctx context.Context, app connection.Application) (connection.Application, error)
	GetConnection(ctx context.Context, id string) (connection.Application, error)
	ListConnections(ctx context.Context, filter ConnectionFilter) ([]connection.Application, error)
	UpdateConnection(ctx context.Context, id string, patch map[string]any) (connection.Application, error)
	DeleteConnection(ctx context.Context, id string) error
}

// EvacuationFilter narrows evacuation application listings.
type EvacuationFilter struct {
	UserID   string
	Statuses []string
}

// EvacuationStore persists the tenant evacuation family.
type EvacuationStore interface {
	CreateEvacuation(ctx context.Context, app evacuation.Application) (evacuation.Application, error)
	GetEvacuation(ctx context.Context, id string) (evacuation.Application, error)
	ListEvacuations(ctx context.Context, filter EvacuationFilter) ([]evacuation.Application, error)
	UpdateEvacuation(ctx context.Context, id string, patch map[string]any) (evacuation.Application, error)
	DeleteEvacuation(ctx context.Context, id string) error
}
