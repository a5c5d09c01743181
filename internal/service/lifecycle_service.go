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

// DefaultStaleAfter is how long an untouched in-progress workout may be resumed.
const DefaultStaleAfter = 6 * time.Hour

// --- Collaborators ---

// ArchiveExporter copies a completed workout archive to external storage.
type ArchiveExporter interface {
	ExportArchive(ctx context.Context, archive *domain.WorkoutArchive) (string, error)
}

// CompletionNotifier tells the downstream analytics consumer that a workout completed.
type CompletionNotifier interface {
	NotifyWorkoutCompleted(ctx context.Context, archive *domain.WorkoutArchive) error
}

// --- Requests and results ---

type StartRequest struct {
	TemplateID string              `json:"templateId,omitempty"`
	RoutineID  string              `json:"routineId,omitempty"`
	Plan       *domain.WorkoutPlan `json:"plan,omitempty"`
	ForceNew   bool                `json:"forceNew,omitempty"`
}

type StartResult struct {
	WorkoutID string                `json:"workoutId"`
	Workout   *domain.ActiveWorkout `json:"workout"`
	Resumed   bool                  `json:"resumed"`
}

type CancelResult struct {
	WorkoutID string               `json:"workoutId"`
	Status    domain.WorkoutStatus `json:"status"`
}

type CompleteResult struct {
	WorkoutID        string                 `json:"workoutId"`
	Archived         bool                   `json:"archived"`
	AlreadyCompleted bool                   `json:"alreadyCompleted,omitempty"`
	Summary          *domain.ArchiveSummary `json:"summary,omitempty"`
	ExportURL        string                 `json:"exportUrl,omitempty"`
}

// --- Service Interface ---

// LifecycleService drives a workout through in_progress to completed or cancelled and owns
// the per-user lock record.
type LifecycleService interface {
	Start(ctx context.Context, userID string, req StartRequest) (*StartResult, error)
	// GetActive returns nil without error when the user has no in-progress workout.
	GetActive(ctx context.Context, userID string) (*domain.ActiveWorkout, error)
	Cancel(ctx context.Context, userID, workoutID string) (*CancelResult, error)
	Complete(ctx context.Context, userID, workoutID string) (*CompleteResult, error)
}

// LifecycleConfig holds the tunables of the lifecycle controller.
type LifecycleConfig struct {
	StaleAfter time.Duration
}

// --- Service Implementation ---

type lifecycleService struct {
	store      repository.AggregateStore
	catalog    repository.CatalogRepository
	exporter   ArchiveExporter
	notifier   CompletionNotifier
	staleAfter time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewLifecycleService creates the lifecycle controller. exporter and notifier may be nil.
func NewLifecycleService(store repository.AggregateStore, catalog repository.CatalogRepository, cfg LifecycleConfig,
	exporter ArchiveExporter, notifier CompletionNotifier, logger *zap.Logger) LifecycleService {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	return &lifecycleService{
		store:      store,
		catalog:    catalog,
		exporter:   exporter,
		notifier:   notifier,
		staleAfter: cfg.StaleAfter,
		logger:     logger,
		now:        utcNow,
	}
}

// Start resumes the user's fresh in-progress workout or creates a new one. Lock repair,
// auto-cancel of stale workouts and creation happen in one transaction.
func (s *lifecycleService) Start(ctx context.Context, userID string, req StartRequest) (*StartResult, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	plan, err := s.resolvePlan(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	exercises, err := s.seedExercises(ctx, plan)
	if err != nil {
		return nil, err
	}

	var result *StartResult
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		result = nil
		now := s.now()

		lock, err := tx.GetLock(ctx, userID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		existing, err := s.currentInProgress(ctx, tx, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			if !req.ForceNew && now.Sub(existing.StartTime) < s.staleAfter {
				result = &StartResult{WorkoutID: existing.ID, Workout: existing, Resumed: true}
				if lock != nil && lock.WorkoutID == existing.ID {
					return nil
				}
				return tx.PutLock(ctx, &domain.WorkoutLock{UserID: userID, WorkoutID: existing.ID, UpdatedAt: now})
			}
			s.logger.Info("cancelling previous workout on start",
				zap.String("userId", userID),
				zap.String("workoutId", existing.ID),
				zap.Bool("forceNew", req.ForceNew),
			)
			if err := tx.PutWorkout(ctx, terminate(existing, domain.WorkoutCancelled, now)); err != nil {
				return err
			}
		}

		w := &domain.ActiveWorkout{
			ID:               s.store.NewWorkoutID(),
			UserID:           userID,
			Status:           domain.WorkoutInProgress,
			Name:             plan.Name,
			Exercises:        cloneExercises(exercises),
			Version:          1,
			SourceTemplateID: req.TemplateID,
			SourceRoutineID:  req.RoutineID,
			StartTime:        now,
			UpdatedAt:        now,
		}
		w.Totals = mutation.ComputeTotals(w.Exercises)
		if err := tx.PutWorkout(ctx, w); err != nil {
			return err
		}
		if err := tx.PutLock(ctx, &domain.WorkoutLock{UserID: userID, WorkoutID: w.ID, UpdatedAt: now}); err != nil {
			return err
		}
		result = &StartResult{WorkoutID: w.ID, Workout: w}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	return result, nil
}

// currentInProgress follows the lock and falls back to a scan for an orphaned in-progress
// workout. A lock naming a missing or finished workout is cleared.
func (s *lifecycleService) currentInProgress(ctx context.Context, tx repository.Tx, userID string) (*domain.ActiveWorkout, error) {
	lock, err := tx.GetLock(ctx, userID)
	switch {
	case err == nil:
		w, err := tx.GetWorkout(ctx, userID, lock.WorkoutID)
		if err == nil && w.Status == domain.WorkoutInProgress {
			return w, nil
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if err := tx.DeleteLock(ctx, userID); err != nil {
			return nil, err
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	w, err := tx.FindInProgress(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// GetActive returns the current in-progress workout, repairing the lock when it has drifted.
func (s *lifecycleService) GetActive(ctx context.Context, userID string) (*domain.ActiveWorkout, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	var active *domain.ActiveWorkout
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		active = nil
		lock, err := tx.GetLock(ctx, userID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		w, err := s.currentInProgress(ctx, tx, userID)
		if err != nil || w == nil {
			return err
		}
		active = w
		if lock != nil && lock.WorkoutID == w.ID {
			return nil
		}
		s.logger.Info("repairing workout lock", zap.String("userId", userID), zap.String("workoutId", w.ID))
		return tx.PutLock(ctx, &domain.WorkoutLock{UserID: userID, WorkoutID: w.ID, UpdatedAt: s.now()})
	})
	if err != nil {
		return nil, storeError(err)
	}
	return active, nil
}

// Cancel moves a workout to cancelled. Cancelling twice is a success.
func (s *lifecycleService) Cancel(ctx context.Context, userID, workoutID string) (*CancelResult, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	if workoutID == "" {
		return nil, ErrWorkoutIDRequired
	}
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		w, err := tx.GetWorkout(ctx, userID, workoutID)
		if err != nil {
			return err
		}
		switch w.Status {
		case domain.WorkoutCancelled:
			return nil
		case domain.WorkoutCompleted:
			return notInProgress(w)
		}
		if err := tx.PutWorkout(ctx, terminate(w, domain.WorkoutCancelled, s.now())); err != nil {
			return err
		}
		return releaseLock(ctx, tx, userID, workoutID)
	})
	if err != nil {
		return nil, storeError(err)
	}
	return &CancelResult{WorkoutID: workoutID, Status: domain.WorkoutCancelled}, nil
}

// Complete finishes a workout and writes its archive. Completing a workout that is no longer
// in progress reports alreadyCompleted instead of failing, so retries are safe.
func (s *lifecycleService) Complete(ctx context.Context, userID, workoutID string) (*CompleteResult, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	if workoutID == "" {
		return nil, ErrWorkoutIDRequired
	}
	var (
		result  *CompleteResult
		archive *domain.WorkoutArchive
	)
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		result, archive = nil, nil
		w, err := tx.GetWorkout(ctx, userID, workoutID)
		if err != nil {
			return err
		}
		if w.Status != domain.WorkoutInProgress {
			result = &CompleteResult{WorkoutID: workoutID, AlreadyCompleted: true}
			return nil
		}

		now := s.now()
		done := terminate(w, domain.WorkoutCompleted, now)
		summary := Summarize(done, now)
		archive = &domain.WorkoutArchive{
			WorkoutID:  done.ID,
			UserID:     userID,
			Workout:    *done.Clone(),
			Summary:    summary,
			ArchivedAt: now,
		}
		if err := tx.PutArchive(ctx, archive); err != nil {
			return err
		}
		if err := tx.PutWorkout(ctx, done); err != nil {
			return err
		}
		if err := releaseLock(ctx, tx, userID, workoutID); err != nil {
			return err
		}
		result = &CompleteResult{WorkoutID: workoutID, Archived: true, Summary: &summary}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	if archive != nil {
		result.ExportURL = s.afterComplete(ctx, archive)
	}
	return result, nil
}

// afterComplete runs the best-effort side effects of a committed completion.
func (s *lifecycleService) afterComplete(ctx context.Context, archive *domain.WorkoutArchive) string {
	var url string
	if s.exporter != nil {
		u, err := s.exporter.ExportArchive(ctx, archive)
		if err != nil {
			s.logger.Warn("archive export failed", zap.String("workoutId", archive.WorkoutID), zap.Error(err))
		} else {
			url = u
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyWorkoutCompleted(ctx, archive); err != nil {
			s.logger.Warn("analytics notification failed", zap.String("workoutId", archive.WorkoutID), zap.Error(err))
		}
	}
	return url
}

// resolvePlan picks the inline plan, then the template plan, then an empty workout.
func (s *lifecycleService) resolvePlan(ctx context.Context, userID string, req StartRequest) (domain.WorkoutPlan, error) {
	if req.Plan != nil {
		return *req.Plan, nil
	}
	if req.TemplateID == "" {
		return domain.WorkoutPlan{}, nil
	}
	tpl, err := s.catalog.GetTemplate(ctx, userID, req.TemplateID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.WorkoutPlan{}, domain.NotFound("template %q not found", req.TemplateID).With("templateId", req.TemplateID)
	}
	if err != nil {
		return domain.WorkoutPlan{}, err
	}
	return tpl.Plan, nil
}

// seedExercises validates a plan by applying it to an empty workout.
func (s *lifecycleService) seedExercises(ctx context.Context, plan domain.WorkoutPlan) ([]domain.ExerciseInstance, error) {
	w := &domain.ActiveWorkout{}
	opts := mutation.Options{Cause: domain.CauseUserEdit, NewID: uuid.NewString}
	for i, pe := range plan.Exercises {
		name := pe.Name
		if name == "" && pe.ExerciseID != "" {
			ex, err := s.catalog.GetExercise(ctx, pe.ExerciseID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			if ex != nil {
				name = ex.Name
			}
		}
		sets := make([]domain.SetRecord, 0, len(pe.Sets))
		for _, ps := range pe.Sets {
			sets = append(sets, domain.SetRecord{
				ID:      ps.ID,
				SetType: ps.SetType,
				Status:  domain.SetPlanned,
				Weight:  ps.Weight,
				Reps:    ps.Reps,
				RIR:     ps.RIR,
			})
		}
		res, err := mutation.AddExercise(w, mutation.NewExercise{
			InstanceID: pe.InstanceID,
			ExerciseID: pe.ExerciseID,
			Name:       name,
			Sets:       sets,
		}, opts)
		if err != nil {
			if coded, ok := domain.AsError(err); ok {
				return nil, coded.With("planExerciseIndex", i)
			}
			return nil, err
		}
		w = res.Workout
	}
	return w.Exercises, nil
}

// terminate returns a copy of w moved to a terminal status.
func terminate(w *domain.ActiveWorkout, status domain.WorkoutStatus, now time.Time) *domain.ActiveWorkout {
	out := w.Clone()
	out.Status = status
	end := now
	out.EndTime = &end
	out.Version = w.Version + 1
	out.UpdatedAt = now
	out.Totals = mutation.ComputeTotals(out.Exercises)
	return out
}

// releaseLock clears the user's lock only if it names workoutID.
func releaseLock(ctx context.Context, tx repository.Tx, userID, workoutID string) error {
	lock, err := tx.GetLock(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if lock.WorkoutID != workoutID {
		return nil
	}
	return tx.DeleteLock(ctx, userID)
}

func cloneExercises(in []domain.ExerciseInstance) []domain.ExerciseInstance {
	out := make([]domain.ExerciseInstance, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
