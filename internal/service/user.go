// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, hashes, issues tokens, orchestrates
//	Repository (Data layer)  → reads/writes users
//
// UserService takes a repository.UserRepository (interface), not a *sqlite.DB.
// In production that interface is the Redis-caching decorator around SQLite;
// in tests it is an in-memory fake (see user_test.go). The service can't tell.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/sakif/user-service/internal/apperror"
	"github.com/sakif/user-service/internal/auth"
	"github.com/sakif/user-service/internal/model"
	"github.com/sakif/user-service/internal/repository"
	"github.com/sakif/user-service/internal/validate"
)

// Pagination defaults used when the config leaves them at zero.
const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// Pagination bounds the page size of List.
type Pagination struct {
	DefaultLimit int // used when the client omits limit or sends < 1
	MaxLimit     int // larger requested limits are clamped to this
}

// UserService handles registration, login and CRUD on user records.
type UserService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	validator *validate.Validator
	logger    *slog.Logger
	paging    Pagination
}

// NewUserService creates a UserService. Zero values in paging fall back to
// DefaultListLimit and MaxListLimit.
func NewUserService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	validator *validate.Validator,
	logger *slog.Logger,
	paging Pagination,
) *UserService {
	if paging.DefaultLimit <= 0 {
		paging.DefaultLimit = DefaultListLimit
	}
	if paging.MaxLimit <= 0 {
		paging.MaxLimit = MaxListLimit
	}
	if paging.DefaultLimit > paging.MaxLimit {
		paging.DefaultLimit = paging.MaxLimit
	}
	return &UserService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		validator: validator,
		logger:    logger,
		paging:    paging,
	}
}

// LoginResult bundles the authenticated user with the token issued for them.
type LoginResult struct {
	User  *model.User
	Token string
}

// ListQuery is what the client asked for; List resolves it to a page.
type ListQuery struct {
	Page  int
	Limit int
	Name  string
}

// Register validates a new user, hashes the password and stores the record.
// Used by both POST /register and POST /users.
func (s *UserService) Register(ctx context.Context, in validate.NewUser) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	if err := s.validator.Check(in); err != nil {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: creating user: %w", err)
	}

	s.logger.Info("user created",
		slog.Int64("userID", user.ID),
	)

	return user, nil
}

// Login checks credentials and issues an access token.
//
// An unknown email and a wrong password are both InvalidCredentials (400)
// with different messages.
func (s *UserService) Login(ctx context.Context, in validate.Credentials) (*LoginResult, error) {
	in.Email = strings.TrimSpace(in.Email)

	if err := s.validator.Check(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("login failed", slog.String("reason", "unknown email"))
			return nil, apperror.InvalidCredentials("user not found")
		}
		return nil, fmt.Errorf("service/user: looking up login email: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login failed",
				slog.String("reason", "wrong password"),
				slog.Int64("userID", user.ID),
			)
			return nil, apperror.InvalidCredentials("incorrect password")
		}
		return nil, fmt.Errorf("service/user: verifying password for user %d: %w", user.ID, err)
	}

	token, err := s.tokens.Issue(auth.Claims{UserID: user.ID, Email: user.Email})
	if err != nil {
		return nil, fmt.Errorf("service/user: issuing token for user %d: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))

	return &LoginResult{User: user, Token: token}, nil
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user %d: %w", id, err)
	}
	return user, nil
}

// List returns one page of users.
//
// Page and Limit below 1 fall back to 1 and the default limit; Limit above
// the configured maximum is clamped. offset = (page-1) * limit.
func (s *UserService) List(ctx context.Context, q ListQuery) ([]model.User, error) {
	opts := s.resolvePage(q)

	users, err := s.users.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing users: %w", err)
	}
	return users, nil
}

func (s *UserService) resolvePage(q ListQuery) repository.ListOptions {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = s.paging.DefaultLimit
	}
	limit = min(limit, s.paging.MaxLimit)

	// A page whose offset overflows int lies past every row.
	offset := math.MaxInt
	if page-1 <= math.MaxInt/limit {
		offset = (page - 1) * limit
	}

	return repository.ListOptions{
		Limit:  limit,
		Offset: offset,
		Name:   strings.TrimSpace(q.Name),
	}
}

// Update replaces name and email of an existing user (PUT). The password is
// not touched.
func (s *UserService) Update(ctx context.Context, id int64, in validate.Profile) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	if err := s.validator.Check(in); err != nil {
		return nil, err
	}

	user, err := s.current(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user %d: %w", id, err)
	}

	user.Name = in.Name
	user.Email = in.Email

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating user %d: %w", id, err)
	}

	s.logger.Info("user updated", slog.Int64("userID", id))
	return user, nil
}

// Patch applies only the supplied fields (PATCH). A new password is hashed
// before it is stored; fields left nil keep their current value.
func (s *UserService) Patch(ctx context.Context, id int64, in validate.Changes) (*model.User, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	if in.Email != nil {
		trimmed := strings.TrimSpace(*in.Email)
		in.Email = &trimmed
	}

	if err := s.validator.Check(in); err != nil {
		return nil, err
	}

	user, err := s.current(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user %d: %w", id, err)
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Password != nil {
		hash, err := s.hash(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: patching user %d: %w", id, err)
	}

	s.logger.Info("user patched",
		slog.Int64("userID", id),
		slog.Bool("passwordChanged", in.Password != nil),
	)
	return user, nil
}

// current loads the row an Update is built from. It bypasses any read cache:
// Update writes every column back, so a stale copy would undo earlier writes.
func (s *UserService) current(ctx context.Context, id int64) (*model.User, error) {
	if r, ok := s.users.(repository.UncachedReader); ok {
		return r.GetByIDUncached(ctx, id)
	}
	return s.users.GetByID(ctx, id)
}

// Delete removes a user.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/user: deleting user %d: %w", id, err)
	}

	s.logger.Info("user deleted", slog.Int64("userID", id))
	return nil
}

// Ping reports whether the user store (and its cache) is reachable.
func (s *UserService) Ping(ctx context.Context) error {
	return s.users.Ping(ctx)
}

// hash turns bcrypt's byte limit into a field error. The validator counts
// characters, so a 72-character password with multi-byte runes gets here.
func (s *UserService) hash(password string) (string, error) {
	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return "", apperror.ValidationFailed("password", "password must be at most 72 bytes")
		}
		return "", fmt.Errorf("service/user: hashing password: %w", err)
	}
	return hash, nil
}
