package gamification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/eduquest/internal/domain/model"
	"github.com/okian/eduquest/pkg/logger"
	"github.com/okian/eduquest/pkg/metrics"
)

// Store is the persistence the manager needs. UpdateUser must run fn and, when
// e is non-nil, append e in one atomic unit; if fn fails nothing is written.
type Store interface {
	GetUser(ctx context.Context, id string) (model.User, error)
	UpdateUser(ctx context.Context, id string, e *model.Event, fn func(*model.User) error) (model.User, error)
}

// Index receives user standings after each committed mutation.
type Index interface {
	Upsert(ctx context.Context, u model.User) error
}

// Outcome is the result of applying a delta.
type Outcome struct {
	User         model.User
	LevelsGained int
}

// Manager serialises counter mutations per user and commits them to a Store.
// Mutations for different users run in parallel.
type Manager struct {
	store         Store
	index         Index
	bonusPerLevel int
	locks         *keyedMutex
	log           logger.Logger
	now           func() time.Time

	// rebuildMu serialises index rebuilds. While one runs, dirty collects
	// the ids whose standing was pushed so they can be pushed again after it.
	rebuildMu sync.Mutex
	dirtyMu   sync.Mutex
	dirty     map[string]struct{}
}

// NewManager creates a Manager over store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:         store,
		bonusPerLevel: DefaultLevelUpBonus,
		locks:         newKeyedMutex(),
		log:           logger.Named("gamification"),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ApplyDelta adds delta to the user's counters and appends e to their event
// log in the same unit of work. e may be nil.
func (m *Manager) ApplyDelta(ctx context.Context, userID string, delta model.Delta, e *model.Event) (Outcome, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	var gained int
	u, err := m.store.UpdateUser(ctx, userID, e, func(u *model.User) error {
		u.Counters, gained = Apply(u.Counters, delta, m.bonusPerLevel)
		u.UpdatedAt = m.now().UTC()
		return nil
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("apply delta for %s: %w", userID, err)
	}

	metrics.RecordRewards(delta.Credits+gained*m.bonusPerLevel, delta.Experience, delta.Points)
	metrics.RecordLevelUp(gained)
	if gained > 0 {
		m.log.Info(ctx, "level up",
			logger.String("user_id", userID),
			logger.Int("level", u.Level),
			logger.Int("levels_gained", gained))
	}
	m.pushStanding(ctx, u)
	return Outcome{User: u, LevelsGained: gained}, nil
}

// SpendCredits removes amount credits from the user. On ErrInsufficientCredits
// the stored counters are left untouched.
func (m *Manager) SpendCredits(ctx context.Context, userID string, amount int) (model.User, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	u, err := m.store.UpdateUser(ctx, userID, nil, func(u *model.User) error {
		c, err := Spend(u.Counters, amount)
		if err != nil {
			return err
		}
		u.Counters = c
		u.UpdatedAt = m.now().UTC()
		return nil
	})
	if err != nil {
		return model.User{}, fmt.Errorf("spend credits for %s: %w", userID, err)
	}
	metrics.RecordCreditsSpent(amount)
	m.pushStanding(ctx, u)
	return u, nil
}

// Sync pushes the stored standing of userID into the index under the
// user's lock, so it cannot overtake a newer standing.
func (m *Manager) Sync(ctx context.Context, userID string) error {
	if m.index == nil {
		return nil
	}
	unlock := m.locks.Lock(userID)
	defer unlock()

	u, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("sync standing for %s: %w", userID, err)
	}
	m.pushStanding(ctx, u)
	return nil
}

// RebuildIndex runs rebuild, which replaces the index from a store snapshot.
// Standings pushed while rebuild runs may be older in that snapshot, so each
// of those users is synced again once rebuild returns.
func (m *Manager) RebuildIndex(ctx context.Context, rebuild func(ctx context.Context) error) error {
	m.rebuildMu.Lock()
	defer m.rebuildMu.Unlock()

	m.dirtyMu.Lock()
	m.dirty = make(map[string]struct{})
	m.dirtyMu.Unlock()

	err := rebuild(ctx)

	m.dirtyMu.Lock()
	dirty := m.dirty
	m.dirty = nil
	m.dirtyMu.Unlock()

	errs := []error{err}
	for id := range dirty {
		errs = append(errs, m.Sync(ctx, id))
	}
	if len(dirty) > 0 {
		m.log.Debug(ctx, "standings resynced after rebuild", logger.Int("users", len(dirty)))
	}
	return errors.Join(errs...)
}

// pushStanding is best effort; the scheduled rebuild repairs a stale index.
func (m *Manager) pushStanding(ctx context.Context, u model.User) {
	if m.index == nil {
		return
	}
	m.dirtyMu.Lock()
	if m.dirty != nil {
		m.dirty[u.ID] = struct{}{}
	}
	m.dirtyMu.Unlock()

	if err := m.index.Upsert(ctx, u); err != nil {
		metrics.RecordIndexError()
		m.log.Warn(ctx, "leaderboard index update failed",
			logger.String("user_id", u.ID),
			logger.Error(err))
		return
	}
	metrics.RecordIndexUpdate()
}
