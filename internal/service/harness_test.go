package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alcyxob/workout-engine/internal/domain"
	"alcyxob/workout-engine/internal/repository/memory"
)

type recordingExporter struct {
	mu       sync.Mutex
	exported []string
	err      error
}

func (e *recordingExporter) ExportArchive(ctx context.Context, archive *domain.WorkoutArchive) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	e.exported = append(e.exported, archive.WorkoutID)
	return "https://archive.example/" + archive.WorkoutID, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	notified []string
}

func (n *recordingNotifier) NotifyWorkoutCompleted(ctx context.Context, archive *domain.WorkoutArchive) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, archive.WorkoutID)
	return nil
}

type harness struct {
	store     *memory.Store
	catalog   *memory.Catalog
	workouts  WorkoutService
	lifecycle LifecycleService
	exporter  *recordingExporter
	notifier  *recordingNotifier
	clock     time.Time
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithLogger(t, zap.NewNop())
}

func newHarnessWithLogger(t *testing.T, logger *zap.Logger) *harness {
	t.Helper()
	h := &harness{
		store: memory.NewStore(memory.WithMaxAttempts(100)),
		catalog: memory.NewCatalog(
			domain.Exercise{ID: "bench", Name: "Bench Press"},
			domain.Exercise{ID: "squat", Name: "Back Squat"},
			domain.Exercise{ID: "db-bench", Name: "Dumbbell Bench Press"},
		),
		exporter: &recordingExporter{},
		notifier: &recordingNotifier{},
		clock:    time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return h.clock }

	ws := NewWorkoutService(h.store, h.catalog, NewIdempotencyGuard(logger), logger).(*workoutService)
	ws.now = now
	h.workouts = ws

	lc := NewLifecycleService(h.store, h.catalog, LifecycleConfig{StaleAfter: 6 * time.Hour}, h.exporter, h.notifier, logger).(*lifecycleService)
	lc.now = now
	h.lifecycle = lc
	return h
}

// pushPlan holds bench press E1 with one planned working set S1 (50x10 @ rir 2) and a
// squat E2 with two planned sets.
func pushPlan() *domain.WorkoutPlan {
	return &domain.WorkoutPlan{
		Name: "Push",
		Exercises: []domain.PlannedExercise{
			{
				InstanceID: "E1",
				ExerciseID: "bench",
				Name:       "Bench Press",
				Sets: []domain.PlannedSet{
					{ID: "S1", SetType: domain.SetTypeWorking, Weight: domain.Float64(50), Reps: domain.Int(10), RIR: domain.Int(2)},
				},
			},
			{
				InstanceID: "E2",
				ExerciseID: "squat",
				Sets: []domain.PlannedSet{
					{ID: "T1", SetType: domain.SetTypeWarmup, Weight: domain.Float64(60), Reps: domain.Int(5)},
					{ID: "T2", Weight: domain.Float64(100), Reps: domain.Int(5)},
				},
			},
		},
	}
}

func (h *harness) start(t *testing.T, userID string) *domain.ActiveWorkout {
	t.Helper()
	res, err := h.lifecycle.Start(context.Background(), userID, StartRequest{Plan: pushPlan()})
	require.NoError(t, err)
	require.False(t, res.Resumed)
	return res.Workout
}

func assertCode(t *testing.T, want domain.ErrorCode, err error) {
	t.Helper()
	if assert.Error(t, err) {
		assert.Equal(t, want, domain.CodeOf(err), err.Error())
	}
}

var errExportDown = errors.New("export backend down")
