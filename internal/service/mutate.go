package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alcyxob/workout-engine/internal/domain"
	"alcyxob/workout-engine/internal/mutation"
	"alcyxob/workout-engine/internal/repository"
)

// mutationRequest identifies one aggregate mutation for the shared transaction pipeline.
type mutationRequest struct {
	operation string
	userID    string
	workoutID string
	key       string
	cause     domain.Cause
	// request is hashed into the idempotency fingerprint
	request any
}

// change is what a build step produces from the current aggregate.
type change struct {
	result    *mutation.Result
	eventType domain.EventType
	payload   map[string]any
	// extra carries operation specific output to the respond step
	extra any
}

// runMutation is the single write path of every non-lifecycle mutation. Inside one
// transaction it checks idempotency, loads and guards the workout, applies the change, bumps
// the version, appends the event, persists the aggregate and records the response.
// The closure may run several times; it touches nothing outside tx.
func runMutation[T any](ctx context.Context, s *workoutService, m mutationRequest, build func(w *domain.ActiveWorkout) (*change, error), respond func(w *domain.ActiveWorkout, eventID string, c *change) T) (T, error) {
	var resp T
	if m.userID == "" {
		return resp, ErrUserIDRequired
	}
	if m.workoutID == "" {
		return resp, ErrWorkoutIDRequired
	}
	fingerprint, err := s.guard.Fingerprint(m.operation, m.request)
	if err != nil {
		return resp, err
	}

	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		var zero T
		resp = zero

		dup, err := s.guard.EnsureIdempotent(ctx, tx, m.userID, m.workoutID, m.key, m.operation, fingerprint)
		if err != nil {
			return err
		}
		if dup.IsDuplicate {
			return s.guard.Replay(dup.Record, &resp)
		}

		current, err := tx.GetWorkout(ctx, m.userID, m.workoutID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrWorkoutNotFound
		}
		if err != nil {
			return err
		}
		if current.Status != domain.WorkoutInProgress {
			return notInProgress(current)
		}

		c, err := build(current)
		if err != nil {
			return err
		}

		now := s.now()
		next := c.result.Workout
		next.Version = current.Version + 1
		next.UpdatedAt = now
		next.Totals = mutation.ComputeTotals(next.Exercises)

		ev := &domain.Event{
			ID:        uuid.NewString(),
			WorkoutID: next.ID,
			UserID:    m.userID,
			Type:      c.eventType,
			Payload:   c.payload,
			DiffOps:   c.result.Diff,
			Cause:     m.cause,
			Version:   next.Version,
			CreatedAt: now,
		}
		if err := tx.AppendEvent(ctx, ev); err != nil {
			return err
		}
		if err := tx.PutWorkout(ctx, next); err != nil {
			return err
		}

		resp = respond(next, ev.ID, c)
		return s.guard.Remember(ctx, tx, m.userID, m.workoutID, m.key, m.operation, fingerprint, resp)
	})
	if err != nil {
		var zero T
		if _, coded := domain.AsError(err); !coded {
			s.logger.Error("mutation failed",
				zap.String("operation", m.operation),
				zap.String("workoutId", m.workoutID),
				zap.Error(err),
			)
		}
		return zero, storeError(err)
	}
	return resp, nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
