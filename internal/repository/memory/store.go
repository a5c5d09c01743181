// Package memory is an in-process AggregateStore with optimistic concurrency. Transactions
// record the revision of every key they read and buffer their writes; commit validates the
// read set under the store mutex and re-runs the transaction body on conflict.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alcyxob/workout-engine/internal/domain"
	"alcyxob/workout-engine/internal/repository"
)

const defaultMaxAttempts = 5

const (
	workoutPrefix = "workout/"
	indexPrefix   = "index/"
	lockPrefix    = "lock/"
	idemPrefix    = "idem/"
	eventPrefix   = "event/"
	archivePrefix = "archive/"
)

type record struct {
	rev   uint64
	value any
}

// Store implements repository.AggregateStore in memory.
type Store struct {
	mu      sync.Mutex
	records map[string]record
	clock   uint64
	events  []domain.Event

	maxAttempts int
	commitHook  func(attempt int)
	logger      *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxAttempts bounds how many times a conflicting transaction body is re-run.
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithCommitHook registers a callback invoked after the body ran and before commit.
// Tests use it to inject concurrent writes deterministically.
func WithCommitHook(hook func(attempt int)) Option {
	return func(s *Store) { s.commitHook = hook }
}

// WithLogger sets the logger used for conflict diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		records:     make(map[string]record),
		maxAttempts: defaultMaxAttempts,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repository.AggregateStore = (*Store)(nil)

// NewWorkoutID returns a random workout id.
func (s *Store) NewWorkoutID() string {
	return uuid.NewString()
}

// RunTransaction runs fn against a fresh transaction view and commits its writes atomically.
// Errors returned by fn abort the transaction with no writes applied.
func (s *Store) RunTransaction(ctx context.Context, fn repository.TxFunc) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := newTx(s)
		if err := fn(ctx, t); err != nil {
			return err
		}
		if s.commitHook != nil {
			s.commitHook(attempt)
		}
		if s.commit(t) {
			return nil
		}
		s.logger.Debug("memory store: transaction conflict", zap.Int("attempt", attempt))
	}
	s.logger.Warn("memory store: transaction retry limit exceeded", zap.Int("maxAttempts", s.maxAttempts))
	return repository.ErrTransactionConflict
}

func (s *Store) load(key string) (record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return record{}, false
	}
	return record{rev: rec.rev, value: cloneValue(rec.value)}, true
}

// scanInProgress returns the in-progress workouts of a user and the revision of the user's
// workout index, read under one lock so the pair is consistent.
func (s *Store) scanInProgress(userID string) ([]*domain.ActiveWorkout, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found []*domain.ActiveWorkout
	for key, rec := range s.records {
		if !strings.HasPrefix(key, workoutPrefix) {
			continue
		}
		w := rec.value.(*domain.ActiveWorkout)
		if w.UserID == userID && w.Status == domain.WorkoutInProgress {
			found = append(found, w.Clone())
		}
	}
	return found, s.records[indexPrefix+userID].rev
}

func (s *Store) commit(t *tx) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, rev := range t.reads {
		if s.records[key].rev != rev {
			return false
		}
	}

	keys := make([]string, 0, len(t.writes))
	for key := range t.writes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		w := t.writes[key]
		if w.deleted {
			delete(s.records, key)
			continue
		}
		s.clock++
		s.records[key] = record{rev: s.clock, value: w.value}
		if ev, ok := w.value.(*domain.Event); ok {
			s.events = append(s.events, *cloneEvent(ev))
		}
	}
	return true
}

// --- Inspection helpers (tests, local runs) ---

// Events returns the committed events of a workout in commit order.
func (s *Store) Events(workoutID string) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for i := range s.events {
		if s.events[i].WorkoutID == workoutID {
			out = append(out, *cloneEvent(&s.events[i]))
		}
	}
	return out
}

// Workout returns the committed state of a workout, or nil.
func (s *Store) Workout(workoutID string) *domain.ActiveWorkout {
	rec, ok := s.load(workoutPrefix + workoutID)
	if !ok {
		return nil
	}
	return rec.value.(*domain.ActiveWorkout)
}

// Lock returns the committed lock record of a user, or nil.
func (s *Store) Lock(userID string) *domain.WorkoutLock {
	rec, ok := s.load(lockPrefix + userID)
	if !ok {
		return nil
	}
	return rec.value.(*domain.WorkoutLock)
}

// Archive returns the committed archive of a workout, or nil.
func (s *Store) Archive(workoutID string) *domain.WorkoutArchive {
	rec, ok := s.load(archivePrefix + workoutID)
	if !ok {
		return nil
	}
	return rec.value.(*domain.WorkoutArchive)
}

// CountInProgress counts the user's committed in-progress workouts.
func (s *Store) CountInProgress(userID string) int {
	found, _ := s.scanInProgress(userID)
	return len(found)
}

// Seed writes a workout directly, bypassing transactions. Intended for test setup.
func (s *Store) Seed(w *domain.ActiveWorkout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock++
	s.records[workoutPrefix+w.ID] = record{rev: s.clock, value: w.Clone()}
	s.clock++
	s.records[indexPrefix+w.UserID] = record{rev: s.clock, value: indexMarker{}}
}

type indexMarker struct{}

func cloneValue(v any) any {
	switch val := v.(type) {
	case *domain.ActiveWorkout:
		return val.Clone()
	case *domain.WorkoutLock:
		c := *val
		return &c
	case *domain.IdempotencyRecord:
		c := *val
		c.Response = append([]byte(nil), val.Response...)
		return &c
	case *domain.Event:
		return cloneEvent(val)
	case *domain.WorkoutArchive:
		c := *val
		c.Workout = *val.Workout.Clone()
		c.Summary.Exercises = append([]domain.ExerciseSummary(nil), val.Summary.Exercises...)
		return &c
	}
	return v
}

// cloneEvent copies the event envelope. Payload and diff values are treated as immutable
// once the event has been appended.
func cloneEvent(ev *domain.Event) *domain.Event {
	c := *ev
	c.DiffOps = append([]domain.DiffOp(nil), ev.DiffOps...)
	if ev.Payload != nil {
		c.Payload = make(map[string]any, len(ev.Payload))
		for k, v := range ev.Payload {
			c.Payload[k] = v
		}
	}
	return &c
}
