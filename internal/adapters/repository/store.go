// Package repository persists users and their append-only event logs.
package repository

import (
	"context"

	"github.com/okian/eduquest/internal/domain/model"
)

// Store provides read/write access to users and events.
type Store interface {
	// CreateUser registers u. Returns ErrUserExists when the id is taken.
	CreateUser(ctx context.Context, u model.User) error

	// GetUser returns ErrUserNotFound for unknown ids.
	GetUser(ctx context.Context, id string) (model.User, error)

	// ListUsers returns every user.
	ListUsers(ctx context.Context) ([]model.User, error)

	// GetUsers returns the users with the given ids; unknown ids are skipped.
	GetUsers(ctx context.Context, ids []string) ([]model.User, error)

	// UpdateUser runs fn on the current user and, when e is non-nil, appends e
	// to the user's event log, all in one atomic unit. A failing fn or a
	// duplicate event id (ErrDuplicateEvent) leaves the store untouched.
	UpdateUser(ctx context.Context, id string, e *model.Event, fn func(*model.User) error) (model.User, error)

	// ListEvents returns a user's events in append order.
	ListEvents(ctx context.Context, userID string) ([]model.Event, error)

	// CountUsers returns the number of registered users.
	CountUsers(ctx context.Context) (int, error)

	Close() error
}
