package service

import (
	"time"

	"github.com/okian/eduquest/internal/adapters/index"
	"github.com/okian/eduquest/internal/adapters/repository"
	"github.com/okian/eduquest/internal/domain/catalog"
	"github.com/okian/eduquest/internal/domain/question"
	"github.com/okian/eduquest/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. The default is an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithIndex enables the sorted leaderboard index.
func WithIndex(idx index.Index) Option {
	return func(s *Service) {
		s.index = idx
	}
}

// WithWorkerCount sets the number of async event workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the async event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many event ids the fast dedupe path remembers.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithInitialCredits sets the balance of newly registered users.
func WithInitialCredits(credits int) Option {
	return func(s *Service) {
		if credits >= 0 {
			s.initialCredits = credits
		}
	}
}

// WithLevelUpBonus sets the credits granted per level gained.
func WithLevelUpBonus(bonus int) Option {
	return func(s *Service) {
		if bonus >= 0 {
			s.levelUpBonus = bonus
		}
	}
}

// WithChatCreditThreshold sets the balance needed to use the chat.
func WithChatCreditThreshold(credits int) Option {
	return func(s *Service) {
		if credits >= 0 {
			s.chatThreshold = credits
		}
	}
}

// WithLeaderboardLimits sets the default and maximum leaderboard sizes.
func WithLeaderboardLimits(def, maxLimit int) Option {
	return func(s *Service) {
		if def > 0 {
			s.defaultLimit = def
		}
		if maxLimit >= s.defaultLimit {
			s.maxLimit = maxLimit
		}
	}
}

// WithInsightWindow restricts insights to events newer than d. Zero uses the
// full history.
func WithInsightWindow(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.insightWindow = d
		}
	}
}

// WithRebuildSchedule sets the cron spec of the index rebuild job.
func WithRebuildSchedule(spec string) Option {
	return func(s *Service) {
		s.rebuildSchedule = spec
	}
}

// WithActivities replaces the built-in activity catalog.
func WithActivities(activities ...catalog.Activity) Option {
	return func(s *Service) {
		if len(activities) > 0 {
			s.activities = activities
		}
	}
}

// WithQuestions replaces the built-in question bank.
func WithQuestions(questions ...question.Question) Option {
	return func(s *Service) {
		if len(questions) > 0 {
			s.questionBank = questions
		}
	}
}

// WithSamplerSeed seeds the emotional variability sampler.
func WithSamplerSeed(seed int64) Option {
	return func(s *Service) {
		s.samplerSeed = seed
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
