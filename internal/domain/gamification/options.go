package gamification

import "github.com/okian/eduquest/pkg/logger"

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithLevelUpBonus sets the credits granted per level gained.
func WithLevelUpBonus(bonus int) Option {
	return func(m *Manager) {
		if bonus >= 0 {
			m.bonusPerLevel = bonus
		}
	}
}

// WithIndex pushes every committed standing into a leaderboard index.
func WithIndex(idx Index) Option {
	return func(m *Manager) {
		m.index = idx
	}
}

// WithLogger overrides the manager's logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}
