package repository

import (
	"context"

	"alcyxob/workout-engine/internal/domain"
)

// Error constants for the repository layer
var (
	ErrNotFound  = RepositoryError("not found")
	ErrDuplicate = RepositoryError("duplicate record")
	// ErrTransactionConflict is returned once a transaction keeps conflicting past the retry bound.
	ErrTransactionConflict = RepositoryError("transaction conflict: retry limit exceeded")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// TxFunc is the body of a transaction. It may run more than once when the store retries
// after a conflict, so it must not have side effects outside tx.
type TxFunc func(ctx context.Context, tx Tx) error

// AggregateStore owns the workout aggregate and its sibling records. Every read and write of a
// mutation goes through one RunTransaction call; the store detects write-write conflicts and
// re-runs fn transparently.
type AggregateStore interface {
	RunTransaction(ctx context.Context, fn TxFunc) error
	NewWorkoutID() string
}

// Tx is the transactional view handed to a TxFunc.
type Tx interface {
	// GetWorkout loads a workout owned by userID. Other users' workouts are ErrNotFound.
	GetWorkout(ctx context.Context, userID, workoutID string) (*domain.ActiveWorkout, error)
	// FindInProgress returns the most recently started in-progress workout of the user.
	FindInProgress(ctx context.Context, userID string) (*domain.ActiveWorkout, error)
	PutWorkout(ctx context.Context, w *domain.ActiveWorkout) error

	GetLock(ctx context.Context, userID string) (*domain.WorkoutLock, error)
	PutLock(ctx context.Context, lock *domain.WorkoutLock) error
	DeleteLock(ctx context.Context, userID string) error

	GetIdempotency(ctx context.Context, workoutID, key string) (*domain.IdempotencyRecord, error)
	PutIdempotency(ctx context.Context, rec *domain.IdempotencyRecord) error

	// AppendEvent and PutArchive are insert-only; an existing id yields ErrDuplicate.
	AppendEvent(ctx context.Context, ev *domain.Event) error
	PutArchive(ctx context.Context, a *domain.WorkoutArchive) error
}

// CatalogRepository is the read-only exercise catalog and the user's saved templates.
type CatalogRepository interface {
	GetExercise(ctx context.Context, exerciseID string) (*domain.Exercise, error)
	GetTemplate(ctx context.Context, userID, templateID string) (*domain.WorkoutTemplate, error)
}
