// Package app assembles the portal services over a set of stores.
package app

import (
	"net/http"

	"github.com/enerconnect/portal/internal/app/httpapi"
	"github.com/enerconnect/portal/internal/app/services/applications"
	"github.com/enerconnect/portal/internal/app/services/connections"
	"github.com/enerconnect/portal/internal/app/services/documents"
	"github.com/enerconnect/portal/internal/app/services/evacuations"
	"github.com/enerconnect/portal/internal/app/services/users"
	"github.com/enerconnect/portal/internal/app/storage"
	"github.com/enerconnect/portal/internal/app/storage/memory"
	"github.com/enerconnect/portal/internal/auth"
	"github.com/enerconnect/portal/pkg/logger"
)

// Stores collects the persistence backends. Nil fields default to a shared
// in-memory store, which keeps tests and local development setup-free.
type Stores struct {
	Users        storage.UserStore
	Applications storage.ApplicationStore
	Connections  storage.ConnectionStore
	Evacuations  storage.EvacuationStore
}

func (s *Stores) fillDefaults() {
	var fallback *memory.Store
	ensure := func() *memory.Store {
		if fallback == nil {
			fallback = memory.New()
		}
		return fallback
	}
	if s.Users == nil {
		s.Users = ensure()
	}
	if s.Applications == nil {
		s.Applications = ensure()
	}
	if s.Connections == nil {
		s.Connections = ensure()
	}
	if s.Evacuations == nil {
		s.Evacuations = ensure()
	}
}

// Config collects what the application needs beyond its stores.
type Config struct {
	Stores         Stores
	Tokens         *auth.Manager
	Logger         *logger.Logger
	MaxUploadBytes int64
}

// Application is the assembled portal.
type Application struct {
	Users        *users.Service
	Applications *applications.Service
	Connections  *connections.Service
	Evacuations  *evacuations.Service
	Documents    *documents.Service

	handler *httpapi.Handler
}

// New wires every service and the HTTP layer.
func New(cfg Config) *Application {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewDefault("portal")
	}
	cfg.Stores.fillDefaults()

	a := &Application{
		Users:        users.New(cfg.Stores.Users, cfg.Tokens, cfg.Logger),
		Applications: applications.New(cfg.Stores.Applications, cfg.Logger),
		Connections:  connections.New(cfg.Stores.Connections, cfg.Logger),
		Evacuations:  evacuations.New(cfg.Stores.Evacuations, cfg.Logger),
		Documents:    documents.New(cfg.Stores.Applications, cfg.Stores.Connections, cfg.Stores.Evacuations),
	}
	a.handler = httpapi.NewHandler(httpapi.Config{
		Users:          a.Users,
		Applications:   a.Applications,
		Connections:    a.Connections,
		Evacuations:    a.Evacuations,
		Documents:      a.Documents,
		Tokens:         cfg.Tokens,
		Logger:         cfg.Logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	return a
}

// Handler returns the portal's HTTP entry point.
func (a *Application) Handler() http.Handler {
	return a.handler.Router()
}
