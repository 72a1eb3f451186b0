// Package service wires the gamification core and exposes its public
// operations to the transport layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/eduquest/internal/adapters/index"
	"github.com/okian/eduquest/internal/adapters/mq/queue"
	"github.com/okian/eduquest/internal/adapters/mq/worker"
	"github.com/okian/eduquest/internal/adapters/repository"
	"github.com/okian/eduquest/internal/domain/achievement"
	"github.com/okian/eduquest/internal/domain/catalog"
	"github.com/okian/eduquest/internal/domain/dedupe"
	"github.com/okian/eduquest/internal/domain/gamification"
	"github.com/okian/eduquest/internal/domain/insight"
	"github.com/okian/eduquest/internal/domain/leaderboard"
	"github.com/okian/eduquest/internal/domain/model"
	"github.com/okian/eduquest/internal/domain/question"
	"github.com/okian/eduquest/internal/domain/scoring"
	"github.com/okian/eduquest/internal/domain/types"
	"github.com/okian/eduquest/internal/scheduler"
	"github.com/okian/eduquest/pkg/logger"
	"github.com/okian/eduquest/pkg/metrics"
)

const (
	defaultQueueSize     = 10_000
	defaultDedupeSize    = 100_000
	defaultMaxLimit      = 100
	defaultChatThreshold = 50
	defaultCredits       = 100
	rebuildJobName       = "index_rebuild"
)

// Service implements the API dependencies for the gamification core.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	index      index.Index
	catalog    *catalog.Catalog
	questions  *question.Bank
	engine     *scoring.Engine
	manager    *gamification.Manager
	sampler    *insight.Sampler
	deduper    dedupe.Deduper
	eventQueue *queue.InMemoryQueue
	workerPool *worker.Pool
	sched      *scheduler.Scheduler

	workerCount     int
	queueSize       int
	dedupeSize      int
	initialCredits  int
	levelUpBonus    int
	chatThreshold   int
	defaultLimit    int
	maxLimit        int
	insightWindow   time.Duration
	rebuildSchedule string
	activities      []catalog.Activity
	questionBank    []question.Question
	samplerSeed     int64

	started bool
	now     func() time.Time
	logger  logger.Logger
}

// New constructs a Service. Synchronous operations work immediately; the
// async queue and scheduled jobs need Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU() * 2,
		queueSize:      defaultQueueSize,
		dedupeSize:     defaultDedupeSize,
		initialCredits: defaultCredits,
		levelUpBonus:   gamification.DefaultLevelUpBonus,
		chatThreshold:  defaultChatThreshold,
		defaultLimit:   leaderboard.DefaultLimit,
		maxLimit:       defaultMaxLimit,
		activities:     catalog.Defaults(),
		questionBank:   question.Defaults(),
		samplerSeed:    time.Now().UnixNano(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}

	s.catalog = catalog.New(s.activities...)
	s.questions = question.New(s.questionBank...)
	s.engine = scoring.New()
	s.sampler = insight.NewSampler(s.samplerSeed)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	managerOpts := []gamification.Option{gamification.WithLevelUpBonus(s.levelUpBonus)}
	if s.index != nil {
		managerOpts = append(managerOpts, gamification.WithIndex(s.index))
	}
	s.manager = gamification.NewManager(s.store, managerOpts...)
	return s
}

// Start launches the async workers and, with an index, rebuilds it and
// schedules periodic rebuilds.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	if s.index != nil {
		if err := s.RebuildIndex(ctx); err != nil {
			s.logger.Warn(ctx, "initial index rebuild failed", logger.Error(err))
		}
		if s.rebuildSchedule != "" {
			s.sched = scheduler.New(scheduler.WithContext(context.WithoutCancel(ctx)))
			if err := s.sched.Add(rebuildJobName, s.rebuildSchedule, s.RebuildIndex); err != nil {
				return err
			}
			s.sched.Start()
		}
	}

	s.eventQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.workerPool = worker.NewPool(s.workerCount, s.eventQueue, worker.HandlerFunc(s.Handle))
	s.workerPool.Start(context.WithoutCancel(ctx))

	if n, err := s.store.CountUsers(ctx); err == nil {
		metrics.UpdateUsersTotal(n)
	}

	s.started = true
	s.logger.Info(ctx, "gamification service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Bool("index", s.index != nil))
	return nil
}

// Stop drains the async queue, stops scheduled jobs and closes the backends.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping gamification service")

	var errs []error
	if s.sched != nil {
		errs = append(errs, s.sched.Stop(ctx))
	}
	if s.workerPool != nil {
		errs = append(errs, s.workerPool.Shutdown(ctx))
	}
	if s.index != nil {
		errs = append(errs, s.index.Close())
	}
	errs = append(errs, s.store.Close())

	s.started = false
	s.logger.Info(ctx, "gamification service stopped")
	return errors.Join(errs...)
}

// RegisterUser creates a user holding the initial credits. An empty id is
// generated.
func (s *Service) RegisterUser(ctx context.Context, id, name string) (types.Profile, error) {
	if id == "" {
		id = uuid.NewString()
	}
	u := model.NewUser(id, name, s.initialCredits, s.now())
	if err := s.store.CreateUser(ctx, u); err != nil {
		return types.Profile{}, err
	}
	if err := s.manager.Sync(ctx, id); err != nil {
		s.logger.Warn(ctx, "leaderboard index update failed", logger.String("user_id", id), logger.Error(err))
	}
	if n, err := s.store.CountUsers(ctx); err == nil {
		metrics.UpdateUsersTotal(n)
	}
	s.logger.Info(ctx, "user registered", logger.String("user_id", id))
	return s.profile(u), nil
}

// GetUser returns a user's counters.
func (s *Service) GetUser(ctx context.Context, id string) (types.Profile, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return types.Profile{}, err
	}
	return s.profile(u), nil
}

func (s *Service) profile(u model.User) types.Profile {
	return types.Profile{User: u, CanChat: u.Credits >= s.chatThreshold}
}

// RecordEvent validates, scores and applies one event for userID. Replayed
// event ids are reported as duplicates and unknown kinds as ignored; neither
// changes any counter.
//
// The id is claimed before the event is applied. A replay racing the first
// attempt is reported as duplicate even if that attempt then fails; a retry
// made after the failure is accepted.
func (s *Service) RecordEvent(ctx context.Context, userID string, kind model.Kind, payload model.Payload, opts ...model.EventOption) (types.Result, error) {
	e, err := model.NewEvent(userID, kind, s.resolveQuestion(kind, payload), opts...)
	if err != nil {
		metrics.RecordEventRejected("invalid")
		return types.Result{}, err
	}
	if s.deduper.SeenAndRecord(ctx, e.ID) {
		return s.duplicate(ctx, e)
	}
	res, err := s.record(ctx, e)
	switch {
	case errors.Is(err, repository.ErrDuplicateEvent):
		return s.duplicate(ctx, e)
	case err != nil, res.Ignored:
		// Ignored events are not logged, so the id stays free.
		s.deduper.Unrecord(ctx, e.ID)
	}
	return res, err
}

// Submit validates an event and queues it for a worker. It reports duplicate
// when the id was already accepted, and wraps queue.ErrQueueFull under
// backpressure.
func (s *Service) Submit(ctx context.Context, userID string, kind model.Kind, payload model.Payload, opts ...model.EventOption) (eventID string, duplicate bool, err error) {
	s.mu.RLock()
	q := s.eventQueue
	s.mu.RUnlock()
	if q == nil {
		return "", false, ErrNotStarted
	}

	e, err := model.NewEvent(userID, kind, s.resolveQuestion(kind, payload), opts...)
	if err != nil {
		metrics.RecordEventRejected("invalid")
		return "", false, err
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return "", false, err
	}
	if s.deduper.SeenAndRecord(ctx, e.ID) {
		metrics.RecordEventDuplicate()
		return e.ID, true, nil
	}
	if err := q.Enqueue(ctx, e); err != nil {
		s.deduper.Unrecord(ctx, e.ID)
		return "", false, fmt.Errorf("submit event %s: %w", e.ID, err)
	}
	return e.ID, false, nil
}

// Handle records an event taken off the async queue. Failed events are
// forgotten by the deduper so a client retry is accepted.
func (s *Service) Handle(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: events travel by value
	res, err := s.record(ctx, e)
	if errors.Is(err, repository.ErrDuplicateEvent) {
		metrics.RecordEventDuplicate()
		return nil
	}
	if err != nil || res.Ignored {
		s.deduper.Unrecord(ctx, e.ID)
	}
	return err
}

func (s *Service) record(ctx context.Context, e model.Event) (types.Result, error) { //nolint:gocritic // hugeParam: events travel by value
	e = s.sampler.Attach(e)

	base := 0
	if e.Kind == model.KindActivityCompleted {
		a, err := s.catalog.Get(e.Payload.ActivityID)
		if err != nil {
			metrics.RecordEventRejected("activity")
			return types.Result{}, err
		}
		base = a.Points
	}

	delta, err := s.engine.Delta(e.Kind, base)
	if errors.Is(err, scoring.ErrUnknownEventKind) {
		metrics.RecordEventIgnored(string(e.Kind))
		s.logger.Warn(ctx, "ignoring event of unknown kind",
			logger.String("event_id", e.ID),
			logger.String("user_id", e.UserID),
			logger.String("kind", string(e.Kind)))
		u, gerr := s.store.GetUser(ctx, e.UserID)
		if gerr != nil {
			return types.Result{}, gerr
		}
		return types.Result{EventID: e.ID, UserID: e.UserID, Counters: u.Counters, Ignored: true}, nil
	}

	out, err := s.manager.ApplyDelta(ctx, e.UserID, delta, &e)
	if err != nil {
		return types.Result{}, err
	}
	metrics.RecordEventRecorded(string(e.Kind))
	s.logger.Debug(ctx, "event recorded",
		logger.String("event_id", e.ID),
		logger.String("user_id", e.UserID),
		logger.String("kind", string(e.Kind)))
	return types.Result{
		EventID:      e.ID,
		UserID:       e.UserID,
		Counters:     out.User.Counters,
		LevelsGained: out.LevelsGained,
	}, nil
}

func (s *Service) duplicate(ctx context.Context, e model.Event) (types.Result, error) { //nolint:gocritic // hugeParam: events travel by value
	metrics.RecordEventDuplicate()
	u, err := s.store.GetUser(ctx, e.UserID)
	if err != nil {
		return types.Result{}, err
	}
	return types.Result{EventID: e.ID, UserID: e.UserID, Counters: u.Counters, Duplicate: true}, nil
}

// SpendCredits removes amount credits from the user.
func (s *Service) SpendCredits(ctx context.Context, userID string, amount int) (types.Profile, error) {
	u, err := s.manager.SpendCredits(ctx, userID, amount)
	if errors.Is(err, gamification.ErrInsufficientCredits) {
		metrics.RecordSpendRejected()
	}
	if err != nil {
		return types.Profile{}, err
	}
	return s.profile(u), nil
}

// GetInsights derives the insight snapshot from the user's event log.
func (s *Service) GetInsights(ctx context.Context, userID string) (insight.Snapshot, error) {
	events, err := s.store.ListEvents(ctx, userID)
	if err != nil {
		return insight.Snapshot{}, err
	}
	start := time.Now()
	if s.insightWindow > 0 {
		events = insight.Window(events, s.now().Add(-s.insightWindow))
	}
	snap := insight.Derive(events)
	metrics.RecordInsightLatency(float64(time.Since(start).Microseconds()) / 1000)
	return snap, nil
}

// GetLeaderboard returns the top users. limit <= 0 uses the default and
// larger values are capped at the configured maximum.
func (s *Service) GetLeaderboard(ctx context.Context, limit int) ([]types.Entry, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	start := time.Now()

	if s.index != nil {
		ids, err := s.index.Candidates(ctx, limit)
		if err == nil {
			users, err := s.store.GetUsers(ctx, ids)
			if err != nil {
				return nil, err
			}
			entries := leaderboard.Build(users, limit)
			metrics.RecordLeaderboardBuild("index", float64(time.Since(start).Microseconds())/1000)
			return entries, nil
		}
		metrics.RecordIndexError()
		s.logger.Warn(ctx, "leaderboard index unavailable, scanning store", logger.Error(err))
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	entries := leaderboard.Build(users, limit)
	metrics.RecordLeaderboardBuild("scan", float64(time.Since(start).Microseconds())/1000)
	return entries, nil
}

// resolveQuestion fills in the category of an answer from the question bank
// when the client left it out.
func (s *Service) resolveQuestion(kind model.Kind, p model.Payload) model.Payload {
	if kind == model.KindQuestionAnswered && strings.TrimSpace(p.Category) == "" {
		p.Category = s.questions.Category(p.QuestionID)
	}
	return p
}

// Questions lists the question bank for level; an empty level lists it all.
func (s *Service) Questions(level string) ([]question.Question, error) {
	return s.questions.List(level)
}

// SuggestQuestions returns the next unanswered questions of level for the
// user.
func (s *Service) SuggestQuestions(ctx context.Context, userID, level string) ([]question.Question, error) {
	events, err := s.store.ListEvents(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.questions.Suggested(level, question.Answered(events))
}

// GetAchievements evaluates the user's achievements over their event log.
func (s *Service) GetAchievements(ctx context.Context, userID string) ([]achievement.Achievement, error) {
	events, err := s.store.ListEvents(ctx, userID)
	if err != nil {
		return nil, err
	}
	list := achievement.Evaluate(events)
	s.logger.Debug(ctx, "achievements evaluated",
		logger.String("user_id", userID),
		logger.Int("unlocked", len(achievement.Unlocked(list))))
	return list, nil
}

// Activities lists the activity catalog.
func (s *Service) Activities() []catalog.Activity {
	return s.catalog.List()
}

// RebuildIndex reloads every standing from the store into the index.
// Mutations committed while the snapshot is taken are re-applied afterwards.
func (s *Service) RebuildIndex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	return s.manager.RebuildIndex(ctx, func(ctx context.Context) error {
		users, err := s.store.ListUsers(ctx)
		if err != nil {
			return fmt.Errorf("rebuild index: %w", err)
		}
		if err := s.index.Rebuild(ctx, users); err != nil {
			metrics.RecordIndexError()
			return fmt.Errorf("rebuild index: %w", err)
		}
		metrics.UpdateUsersTotal(len(users))
		s.logger.Debug(ctx, "leaderboard index rebuilt", logger.Int("users", len(users)))
		return nil
	})
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"dedupeSeen":  s.deduper.Size(),
		"activities":  len(s.catalog.List()),
		"questions":   len(s.questionBank),
	}
	if n, err := s.store.CountUsers(ctx); err == nil {
		stats["totalUsers"] = n
		metrics.UpdateUsersTotal(n)
	}
	if s.eventQueue != nil {
		stats["queueLength"] = s.eventQueue.Len()
	}
	if s.index != nil {
		if n, err := s.index.Len(ctx); err == nil {
			stats["indexedUsers"] = n
			metrics.UpdateIndexSize(n)
		}
	}
	return stats
}
