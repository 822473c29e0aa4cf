// Package repository defines the storage contracts the service layer depends on.
// Implementations live in sub-packages (sqlite, cache).
package repository

import (
	"context"

	"github.com/sakif/user-service/internal/model"
)

// ListOptions describes one page of a user scan.
//
// Limit and Offset are already resolved by the caller (the service turns
// page/limit query parameters into these). Name, when non-empty, keeps only
// users whose name contains it.
type ListOptions struct {
	Limit  int
	Offset int
	Name   string
}

// UserRepository is the User Store. Every implementation must keep two
// invariants: ids are assigned on Create and never change, and no two users
// share an email (violations surface as apperror.ErrConflict).
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, opts ListOptions) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

// UncachedReader is implemented by repositories that put a read cache in
// front of the store. GetByIDUncached always reads the store itself; writes
// that copy a whole row back must start from it.
type UncachedReader interface {
	GetByIDUncached(ctx context.Context, id int64) (*model.User, error)
}
