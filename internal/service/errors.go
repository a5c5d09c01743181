package service

import (
	"errors"

	"alcyxob/workout-engine/internal/domain"
	"alcyxob/workout-engine/internal/repository"
)

// --- Error Definitions ---
var (
	ErrIdempotencyKeyRequired = domain.InvalidArgument("idempotencyKey is required")
	ErrWorkoutIDRequired      = domain.InvalidArgument("workoutId is required")
	ErrUserIDRequired         = domain.NewError(domain.CodeUnauthenticated, "no authenticated user")
	ErrWorkoutNotFound        = domain.NotFound("workout not found")
	ErrStoreConflict          = domain.NewError(domain.CodeInternal, "the workout is busy, please retry")
)

// storeError maps repository sentinels onto caller-visible codes. Coded errors pass through.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.AsError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrWorkoutNotFound
	case errors.Is(err, repository.ErrTransactionConflict):
		return ErrStoreConflict
	}
	return err
}

func notInProgress(w *domain.ActiveWorkout) error {
	return domain.InvalidState("workout is %s", w.Status).
		With("workoutId", w.ID).With("status", w.Status)
}
