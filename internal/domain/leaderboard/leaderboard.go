// Package leaderboard ranks users by points.
package leaderboard

import (
	"sort"

	"github.com/okian/eduquest/internal/domain/model"
	"github.com/okian/eduquest/internal/domain/types"
)

// DefaultLimit is used when the requested limit is not positive.
const DefaultLimit = 10

// Less orders users by points desc, then registration time asc, then id asc.
func Less(a, b model.User) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Build returns the top limit users with 1-based ranks. Tied users get
// consecutive distinct ranks in registration order. users is not modified.
func Build(users []model.User, limit int) []types.Entry {
	if limit <= 0 {
		limit = DefaultLimit
	}
	sorted := make([]model.User, len(users))
	copy(sorted, users)
	sort.SliceStable(sorted, func(i, j int) bool { return Less(sorted[i], sorted[j]) })

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]types.Entry, len(sorted))
	for i, u := range sorted {
		out[i] = types.Entry{
			Rank:   i + 1,
			UserID: u.ID,
			Name:   u.Name,
			Points: u.Points,
			Level:  u.Level,
		}
	}
	return out
}
