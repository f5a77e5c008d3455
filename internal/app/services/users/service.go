// Package users implements account registration, login and user
// administration.
package users

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/enerconnect/portal/internal/app/domain/user"
	"github.com/enerconnect/portal/internal/app/policy"
	"github.com/enerconnect/portal/internal/app/storage"
	"github.com/enerconnect/portal/internal/auth"
	"github.com/enerconnect/portal/internal/errors"
	"github.com/enerconnect/portal/pkg/logger"
)

const minPasswordLength = 8

// Service owns the account lifecycle.
type Service struct {
	store  storage.UserStore
	tokens *auth.Manager
	log    *logger.Logger
}

// New creates the users service.
func New(store storage.UserStore, tokens *auth.Manager, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, tokens: tokens, log: log}
}

// RegisterRequest carries the sign-up form.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// Register creates a customer account. New accounts always start with the
// customer role; admin accounts are provisioned out of band.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (user.User, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return user.User{}, errors.Validation("A valid email address is required.")
	}
	if len(req.Password) < minPasswordLength {
		return user.User{}, errors.Validation("Password must be at least 8 characters long.")
	}
	if req.FullName == "" {
		return user.User{}, errors.Validation("Full name is required.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, errors.Internal("", err)
	}

	created, err := s.store.CreateUser(ctx, user.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         user.RoleCustomer,
	})
	if err != nil {
		return user.User{}, err
	}

	s.log.WithField("user_id", created.ID).Info("user registered")
	return created, nil
}

// LoginResponse carries the issued token alongside the account.
type LoginResponse struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

// Login verifies credentials and issues a token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return LoginResponse{}, errors.Validation("Email and password are required.")
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return LoginResponse{}, errors.Unauthorized("Invalid credentials.")
		}
		return LoginResponse{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return LoginResponse{}, errors.Unauthorized("Invalid credentials.")
	}

	token, err := s.tokens.Generate(u)
	if err != nil {
		return LoginResponse{}, err
	}

	s.log.WithField("user_id", u.ID).Info("user logged in")
	return LoginResponse{Token: token, User: u}, nil
}

// Profile returns the requester's own account.
func (s *Service) Profile(ctx context.Context, requester policy.Identity) (user.User, error) {
	return s.store.GetUser(ctx, requester.UserID)
}

// List returns every account. Admin only.
func (s *Service) List(ctx context.Context, requester policy.Identity) ([]user.User, error) {
	if err := policy.RequireAdmin(requester); err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx)
}

// Get returns one account. Admins may read anyone; customers only
// themselves.
func (s *Service) Get(ctx context.Context, requester policy.Identity, id string) (user.User, error) {
	if !requester.IsAdmin() && requester.UserID != id {
		return user.User{}, errors.Forbidden("You can only access your own account.")
	}
	return s.store.GetUser(ctx, id)
}

// UpdateRequest carries the mutable account fields. Role is honoured for
// admins only.
type UpdateRequest struct {
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
}

// Update patches an account. Customers may rename themselves; admins may
// additionally change roles.
func (s *Service) Update(ctx context.Context, requester policy.Identity, id string, req UpdateRequest) (user.User, error) {
	if !requester.IsAdmin() && requester.UserID != id {
		return user.User{}, errors.Forbidden("You can only access your own account.")
	}

	patch := make(map[string]any)
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return user.User{}, errors.Validation("Full name cannot be empty.")
		}
		patch["full_name"] = name
	}
	if req.Role != nil && requester.IsAdmin() {
		if !user.ValidRole(*req.Role) {
			return user.User{}, errors.Validation("Unknown role.")
		}
		patch["role"] = *req.Role
	}

	if len(patch) == 0 {
		return user.User{}, errors.Validation("No valid fields to update or unauthorized role change.")
	}
	return s.store.UpdateUser(ctx, id, patch)
}

// Delete removes an account. Admin only; self-deletion is blocked.
func (s *Service) Delete(ctx context.Context, requester policy.Identity, id string) error {
	if err := policy.CanDeleteUser(requester, id); err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.log.WithField("user_id", id).Info("user deleted")
	return nil
}
