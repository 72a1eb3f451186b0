// Package index keeps users sorted by leaderboard standing so the top of the
// board can be read without scanning every user.
package index

import (
	"context"

	"github.com/okian/eduquest/internal/domain/model"
)

// Index is a sorted view of user standings.
type Index interface {
	// Upsert records the user's current points.
	Upsert(ctx context.Context, u model.User) error

	// Candidates returns the ids of the top limit users plus every user tied
	// with the last of them, so a full ordering can be applied afterwards.
	Candidates(ctx context.Context, limit int) ([]string, error)

	// Rebuild replaces the whole index with users.
	Rebuild(ctx context.Context, users []model.User) error

	// Len returns the number of indexed users.
	Len(ctx context.Context) (int, error)

	Close() error
}
