package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"alcyxob/workout-engine/internal/domain"
)

// sampleWorkout has a bench press with a warmup and two planned working sets, and a squat
// with one done and one planned set.
func sampleWorkout() *domain.ActiveWorkout {
	w := &domain.ActiveWorkout{
		ID:      "w1",
		UserID:  "u1",
		Status:  domain.WorkoutInProgress,
		Name:    "Push day",
		Version: 3,
		Exercises: []domain.ExerciseInstance{
			{
				InstanceID: "E1",
				ExerciseID: "bench",
				Name:       "Bench Press",
				Position:   0,
				Sets: []domain.SetRecord{
					{ID: "S0", SetType: domain.SetTypeWarmup, Status: domain.SetPlanned, Weight: domain.Float64(20), Reps: domain.Int(10)},
					{ID: "S1", SetType: domain.SetTypeWorking, Status: domain.SetPlanned, Weight: domain.Float64(50), Reps: domain.Int(10), RIR: domain.Int(2)},
					{ID: "S2", Status: domain.SetPlanned, Weight: domain.Float64(50), Reps: domain.Int(8)},
				},
			},
			{
				InstanceID: "E2",
				ExerciseID: "squat",
				Name:       "Back Squat",
				Position:   1,
				Sets: []domain.SetRecord{
					{ID: "T1", SetType: domain.SetTypeWorking, Status: domain.SetDone, Weight: domain.Float64(100), Reps: domain.Int(5)},
					{ID: "T2", SetType: domain.SetTypeWorking, Status: domain.SetPlanned, Weight: domain.Float64(100), Reps: domain.Int(5)},
				},
			},
		},
	}
	w.Totals = ComputeTotals(w.Exercises)
	return w
}

func assertCode(t *testing.T, want domain.ErrorCode, err error) {
	t.Helper()
	if assert.Error(t, err) {
		assert.Equal(t, want, domain.CodeOf(err), err.Error())
	}
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + string(rune('0'+n))
	}
}
