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

// Operation names recorded with idempotency records.
const (
	OpLogSet             = "logSet"
	OpCompleteCurrentSet = "completeCurrentSet"
	OpPatchWorkout       = "patchWorkout"
	OpAddExercise        = "addExercise"
	OpSwapExercise       = "swapExercise"
	OpAutofillExercise   = "autofillExercise"
)

// --- Requests and results ---

type LogSetRequest struct {
	WorkoutID          string                `json:"workoutId"`
	ExerciseInstanceID string                `json:"exerciseInstanceId"`
	SetID              string                `json:"setId"`
	Values             mutation.LoggedValues `json:"values"`
	IsFailure          bool                  `json:"isFailure"`
	IdempotencyKey     string                `json:"-"`
}

type PatchRequest struct {
	WorkoutID      string          `json:"workoutId"`
	Ops            []mutation.Op   `json:"ops"`
	Cause          domain.Cause    `json:"cause"`
	Scope          *mutation.Scope `json:"scope,omitempty"`
	IdempotencyKey string          `json:"-"`
}

type AddExerciseRequest struct {
	WorkoutID      string             `json:"workoutId"`
	InstanceID     string             `json:"instanceId"`
	ExerciseID     string             `json:"exerciseId"`
	Name           string             `json:"name,omitempty"`
	Notes          string             `json:"notes,omitempty"`
	RestSeconds    *int               `json:"restSeconds,omitempty"`
	Sets           []domain.SetRecord `json:"sets,omitempty"`
	IdempotencyKey string             `json:"-"`
}

type SwapExerciseRequest struct {
	WorkoutID string `json:"workoutId"`
	// InstanceID is the exercise instance being swapped (fromExerciseId on the wire).
	InstanceID     string `json:"fromExerciseId"`
	ToExerciseID   string `json:"toExerciseId"`
	Name           string `json:"name,omitempty"`
	IdempotencyKey string `json:"-"`
}

type AutofillRequest struct {
	WorkoutID          string                    `json:"workoutId"`
	ExerciseInstanceID string                    `json:"exerciseInstanceId"`
	Updates            []mutation.AutofillUpdate `json:"updates,omitempty"`
	Additions          []domain.SetRecord        `json:"additions,omitempty"`
	IdempotencyKey     string                    `json:"-"`
}

// MutationResult is returned by logSet, patchWorkout and autofillExercise.
type MutationResult struct {
	EventID string        `json:"eventId"`
	Totals  domain.Totals `json:"totals"`
	Version int           `json:"version"`
}

type CompleteCurrentSetResult struct {
	mutation.CurrentSet
	EventID string `json:"eventId"`
	Version int    `json:"version"`
}

type AddExerciseResult struct {
	ExerciseInstanceID string `json:"exerciseInstanceId"`
	EventID            string `json:"eventId"`
	Version            int    `json:"version"`
}

type SwapExerciseResult struct {
	EventID string `json:"eventId"`
	Version int    `json:"version"`
}

// --- Service Interface ---

// WorkoutService applies in-session edits to an in-progress workout.
type WorkoutService interface {
	LogSet(ctx context.Context, userID string, req LogSetRequest) (*MutationResult, error)
	CompleteCurrentSet(ctx context.Context, userID, workoutID, idempotencyKey string) (*CompleteCurrentSetResult, error)
	PatchWorkout(ctx context.Context, userID string, req PatchRequest) (*MutationResult, error)
	AddExercise(ctx context.Context, userID string, req AddExerciseRequest) (*AddExerciseResult, error)
	SwapExercise(ctx context.Context, userID string, req SwapExerciseRequest) (*SwapExerciseResult, error)
	AutofillExercise(ctx context.Context, userID string, req AutofillRequest) (*MutationResult, error)
}

// --- Service Implementation ---

type workoutService struct {
	store   repository.AggregateStore
	catalog repository.CatalogRepository
	guard   *IdempotencyGuard
	logger  *zap.Logger
	now     func() time.Time
}

// NewWorkoutService creates the mutation service.
func NewWorkoutService(store repository.AggregateStore, catalog repository.CatalogRepository, guard *IdempotencyGuard, logger *zap.Logger) WorkoutService {
	return &workoutService{
		store:   store,
		catalog: catalog,
		guard:   guard,
		logger:  logger,
		now:     utcNow,
	}
}

func mutationResponse(w *domain.ActiveWorkout, eventID string, _ *change) *MutationResult {
	return &MutationResult{EventID: eventID, Totals: w.Totals, Version: w.Version}
}

// LogSet records the performed values of a planned set and marks it done.
func (s *workoutService) LogSet(ctx context.Context, userID string, req LogSetRequest) (*MutationResult, error) {
	if req.IdempotencyKey == "" {
		return nil, ErrIdempotencyKeyRequired
	}
	if req.ExerciseInstanceID == "" || req.SetID == "" {
		return nil, domain.InvalidArgument("exerciseInstanceId and setId are required")
	}
	if err := mutation.CheckLoggedValues(req.Values.Weight, req.Values.Reps, req.Values.RIR); err != nil {
		return nil, err
	}
	ref := mutation.SetRef{ExerciseInstanceID: req.ExerciseInstanceID, SetID: req.SetID}

	m := mutationRequest{
		operation: OpLogSet,
		userID:    userID,
		workoutID: req.WorkoutID,
		key:       req.IdempotencyKey,
		cause:     domain.CauseUserEdit,
		request:   req,
	}
	return runMutation(ctx, s, m, func(w *domain.ActiveWorkout) (*change, error) {
		res, err := mutation.LogSet(w, ref, req.Values, req.IsFailure)
		if err != nil {
			return nil, err
		}
		return &change{
			result:    res,
			eventType: domain.EventSetDone,
			payload: map[string]any{
				"exerciseInstanceId": ref.ExerciseInstanceID,
				"setId":              ref.SetID,
				"weight":             req.Values.Weight,
				"reps":               req.Values.Reps,
				"rir":                req.Values.RIR,
				"isFailure":          req.IsFailure,
			},
		}, nil
	}, mutationResponse)
}

// CompleteCurrentSet marks the next planned working set done with its planned values.
func (s *workoutService) CompleteCurrentSet(ctx context.Context, userID, workoutID, idempotencyKey string) (*CompleteCurrentSetResult, error) {
	m := mutationRequest{
		operation: OpCompleteCurrentSet,
		userID:    userID,
		workoutID: workoutID,
		key:       idempotencyKey,
		cause:     domain.CauseUserEdit,
		request:   map[string]string{"workoutId": workoutID},
	}
	return runMutation(ctx, s, m, func(w *domain.ActiveWorkout) (*change, error) {
		res, current, err := mutation.CompleteCurrentSet(w)
		if err != nil {
			return nil, err
		}
		return &change{
			result:    res,
			eventType: domain.EventSetDone,
			payload: map[string]any{
				"exerciseInstanceId": current.ExerciseInstanceID,
				"setId":              current.SetID,
				"weight":             current.Weight,
				"reps":               current.Reps,
				"source":             OpCompleteCurrentSet,
			},
			extra: current,
		}, nil
	}, func(w *domain.ActiveWorkout, eventID string, c *change) *CompleteCurrentSetResult {
		return &CompleteCurrentSetResult{
			CurrentSet: *c.extra.(*mutation.CurrentSet),
			EventID:    eventID,
			Version:    w.Version,
		}
	})
}

// PatchWorkout applies a homogeneous batch of generic ops.
func (s *workoutService) PatchWorkout(ctx context.Context, userID string, req PatchRequest) (*MutationResult, error) {
	if req.IdempotencyKey == "" {
		return nil, ErrIdempotencyKeyRequired
	}
	cause := req.Cause
	if cause == "" {
		cause = domain.CauseUserEdit
	}
	if !cause.Valid() {
		return nil, domain.InvalidArgument("unknown cause %q", req.Cause)
	}
	if err := mutation.ValidateBatch(req.Ops); err != nil {
		return nil, err
	}

	m := mutationRequest{
		operation: OpPatchWorkout,
		userID:    userID,
		workoutID: req.WorkoutID,
		key:       req.IdempotencyKey,
		cause:     cause,
		request:   req,
	}
	return runMutation(ctx, s, m, func(w *domain.ActiveWorkout) (*change, error) {
		if err := mutation.CheckScope(w, req.Ops, cause, req.Scope); err != nil {
			return nil, err
		}
		res, err := mutation.Apply(w, req.Ops, mutation.Options{Cause: cause, NewID: uuid.NewString})
		if err != nil {
			return nil, err
		}
		eventType, payload := describePatch(req.Ops, res)
		return &change{result: res, eventType: eventType, payload: payload}, nil
	}, mutationResponse)
}

// describePatch derives the event type and payload of a validated batch.
func describePatch(ops []mutation.Op, res *mutation.Result) (domain.EventType, map[string]any) {
	payload := map[string]any{"opCount": len(ops)}
	switch o := ops[0].(type) {
	case mutation.SetFieldOp:
		fields := make([]string, 0, len(ops))
		for _, op := range ops {
			fields = append(fields, op.(mutation.SetFieldOp).FieldPath())
		}
		payload["exerciseInstanceId"] = o.Target.ExerciseInstanceID
		payload["setId"] = o.Target.SetID
		payload["fields"] = fields
		return domain.EventSetUpdated, payload
	case mutation.AddSetOp:
		payload["exerciseInstanceId"] = o.ExerciseInstanceID
		if ei := res.Workout.FindExercise(o.ExerciseInstanceID); ei >= 0 {
			sets := res.Workout.Exercises[ei].Sets
			payload["setId"] = sets[len(sets)-1].ID
		}
		return domain.EventSetAdded, payload
	case mutation.RemoveSetOp:
		payload["exerciseInstanceId"] = o.Target.ExerciseInstanceID
		payload["setId"] = o.Target.SetID
		return domain.EventSetRemoved, payload
	case mutation.ReorderExercisesOp:
		payload["order"] = o.Order
		return domain.EventExercisesReordered, payload
	case mutation.SetWorkoutFieldOp:
		payload["field"] = string(o.Field)
		return domain.EventWorkoutUpdated, payload
	case mutation.SetExerciseFieldOp:
		payload["exerciseInstanceId"] = o.ExerciseInstanceID
		payload["field"] = string(o.Field)
		return domain.EventExerciseUpdated, payload
	}
	return domain.EventWorkoutUpdated, payload
}

// AddExercise appends a catalog exercise to the workout.
func (s *workoutService) AddExercise(ctx context.Context, userID string, req AddExerciseRequest) (*AddExerciseResult, error) {
	if req.IdempotencyKey == "" {
		return nil, ErrIdempotencyKeyRequired
	}
	if req.InstanceID == "" || req.ExerciseID == "" {
		return nil, domain.InvalidArgument("instanceId and exerciseId are required")
	}
	name, err := s.resolveExerciseName(ctx, req.ExerciseID, req.Name)
	if err != nil {
		return nil, err
	}

	input := mutation.NewExercise{
		InstanceID:  req.InstanceID,
		ExerciseID:  req.ExerciseID,
		Name:        name,
		Notes:       req.Notes,
		RestSeconds: req.RestSeconds,
		Sets:        req.Sets,
	}
	m := mutationRequest{
		operation: OpAddExercise,
		userID:    userID,
		workoutID: req.WorkoutID,
		key:       req.IdempotencyKey,
		cause:     domain.CauseUserEdit,
		request:   req,
	}
	return runMutation(ctx, s, m, func(w *domain.ActiveWorkout) (*change, error) {
		res, err := mutation.AddExercise(w, input, mutation.Options{Cause: domain.CauseUserEdit, NewID: uuid.NewString})
		if err != nil {
			return nil, err
		}
		return &change{
			result:    res,
			eventType: domain.EventExerciseAdded,
			payload: map[string]any{
				"exerciseInstanceId": req.InstanceID,
				"exerciseId":         req.ExerciseID,
				"name":               name,
				"setCount":           len(req.Sets),
			},
		}, nil
	}, func(w *domain.ActiveWorkout, eventID string, _ *change) *AddExerciseResult {
		return &AddExerciseResult{ExerciseInstanceID: req.InstanceID, EventID: eventID, Version: w.Version}
	})
}

// SwapExercise replaces the catalog exercise behind an instance, keeping its sets.
func (s *workoutService) SwapExercise(ctx context.Context, userID string, req SwapExerciseRequest) (*SwapExerciseResult, error) {
	if req.InstanceID == "" || req.ToExerciseID == "" {
		return nil, domain.InvalidArgument("fromExerciseId and toExerciseId are required")
	}
	name, err := s.resolveExerciseName(ctx, req.ToExerciseID, req.Name)
	if err != nil {
		return nil, err
	}

	m := mutationRequest{
		operation: OpSwapExercise,
		userID:    userID,
		workoutID: req.WorkoutID,
		key:       req.IdempotencyKey,
		cause:     domain.CauseUserEdit,
		request:   req,
	}
	return runMutation(ctx, s, m, func(w *domain.ActiveWorkout) (*change, error) {
		var previous string
		if ei := w.FindExercise(req.InstanceID); ei >= 0 {
			previous = w.Exercises[ei].ExerciseID
		}
		res, err := mutation.SwapExercise(w, req.InstanceID, req.ToExerciseID, name)
		if err != nil {
			return nil, err
		}
		return &change{
			result:    res,
			eventType: domain.EventExerciseSwapped,
			payload: map[string]any{
				"exerciseInstanceId": req.InstanceID,
				"fromExerciseId":     previous,
				"toExerciseId":       req.ToExerciseID,
				"name":               name,
			},
		}, nil
	}, func(w *domain.ActiveWorkout, eventID string, _ *change) *SwapExerciseResult {
		return &SwapExerciseResult{EventID: eventID, Version: w.Version}
	})
}

// AutofillExercise applies an agent proposal for the planned sets of one exercise instance.
// It runs with agent cause and a scope pinned to that instance.
func (s *workoutService) AutofillExercise(ctx context.Context, userID string, req AutofillRequest) (*MutationResult, error) {
	if req.ExerciseInstanceID == "" {
		return nil, domain.InvalidArgument("exerciseInstanceId is required")
	}
	ops, err := mutation.AutofillOps(req.ExerciseInstanceID, req.Updates, req.Additions)
	if err != nil {
		return nil, err
	}
	scope := &mutation.Scope{ExerciseInstanceID: req.ExerciseInstanceID}

	m := mutationRequest{
		operation: OpAutofillExercise,
		userID:    userID,
		workoutID: req.WorkoutID,
		key:       req.IdempotencyKey,
		cause:     domain.CauseUserAIAction,
		request:   req,
	}
	return runMutation(ctx, s, m, func(w *domain.ActiveWorkout) (*change, error) {
		if err := mutation.CheckScope(w, ops, domain.CauseUserAIAction, scope); err != nil {
			return nil, err
		}
		res, err := mutation.Apply(w, ops, mutation.Options{Cause: domain.CauseUserAIAction, NewID: uuid.NewString})
		if err != nil {
			return nil, err
		}
		return &change{
			result:    res,
			eventType: domain.EventAutofillApplied,
			payload: map[string]any{
				"exerciseInstanceId": req.ExerciseInstanceID,
				"updated":            len(req.Updates),
				"added":              len(req.Additions),
			},
		}, nil
	}, mutationResponse)
}

// resolveExerciseName prefers the caller supplied name and falls back to the catalog.
func (s *workoutService) resolveExerciseName(ctx context.Context, exerciseID, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	ex, err := s.catalog.GetExercise(ctx, exerciseID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", domain.NotFound("exercise %q not found in catalog", exerciseID).With("exerciseId", exerciseID)
	}
	if err != nil {
		return "", err
	}
	return ex.Name, nil
}
