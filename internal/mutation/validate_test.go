package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"alcyxob/workout-engine/internal/domain"
)

func TestValidateBatch(t *testing.T) {
	s1 := SetRef{ExerciseInstanceID: "E1", SetID: "S1"}
	s2 := SetRef{ExerciseInstanceID: "E1", SetID: "S2"}

	tests := []struct {
		name string
		ops  []Op
		want domain.ErrorCode
	}{
		{name: "empty", ops: nil, want: domain.CodeInvalidArgument},
		{
			name: "setField mixed with addSet",
			ops: []Op{
				SetFieldOp{Target: s1, Field: SetFieldWeight, Value: 60.0},
				AddSetOp{ExerciseInstanceID: "E1"},
			},
			want: domain.CodeMixedOpTypes,
		},
		{
			name: "setField across two sets",
			ops: []Op{
				SetFieldOp{Target: s1, Field: SetFieldWeight, Value: 60.0},
				SetFieldOp{Target: s2, Field: SetFieldWeight, Value: 60.0},
			},
			want: domain.CodeMultiSetEdit,
		},
		{
			name: "two structural ops",
			ops: []Op{
				AddSetOp{ExerciseInstanceID: "E1"},
				AddSetOp{ExerciseInstanceID: "E1"},
			},
			want: domain.CodeMultipleStructuralOps,
		},
		{
			name: "two workout field ops",
			ops: []Op{
				SetWorkoutFieldOp{Field: WorkoutFieldName, Value: "a"},
				SetWorkoutFieldOp{Field: WorkoutFieldNotes, Value: "b"},
			},
			want: domain.CodeMultipleStructuralOps,
		},
		{
			name: "pointer set field op",
			ops:  []Op{&SetFieldOp{Target: s1, Field: SetFieldWeight, Value: 60.0}},
			want: domain.CodeInvalidArgument,
		},
		{
			name: "pointer op after value op",
			ops: []Op{
				SetFieldOp{Target: s1, Field: SetFieldWeight, Value: 60.0},
				&SetFieldOp{Target: s1, Field: SetFieldReps, Value: 8.0},
			},
			want: domain.CodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertCode(t, tt.want, ValidateBatch(tt.ops))
		})
	}
}

func TestValidateBatchAccepts(t *testing.T) {
	s1 := SetRef{ExerciseInstanceID: "E1", SetID: "S1"}

	assert.NoError(t, ValidateBatch([]Op{
		SetFieldOp{Target: s1, Field: SetFieldWeight, Value: 60.0},
		SetFieldOp{Target: s1, Field: SetFieldReps, Value: 8.0},
		SetFieldOp{Target: s1, Field: SetFieldRIR, Value: 1.0},
	}))
	assert.NoError(t, ValidateBatch([]Op{ReorderExercisesOp{Order: []string{"E2", "E1"}}}))
	assert.NoError(t, ValidateBatch([]Op{RemoveSetOp{Target: s1}}))
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from, to domain.SetStatus
		want     domain.ErrorCode
	}{
		{domain.SetPlanned, domain.SetDone, domain.CodeValidation},
		{domain.SetDone, domain.SetSkipped, domain.CodeInvalidState},
		{domain.SetSkipped, domain.SetDone, domain.CodeInvalidState},
		{domain.SetPlanned, domain.SetSkipped, ""},
		{domain.SetSkipped, domain.SetPlanned, ""},
		{domain.SetDone, domain.SetPlanned, domain.CodeInvalidState},
		{domain.SetDone, domain.SetDone, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := checkTransition(tt.from, tt.to)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assertCode(t, tt.want, err)
		})
	}
}

func TestCheckLoggedValues(t *testing.T) {
	assert.NoError(t, CheckLoggedValues(domain.Float64(50), domain.Int(10), domain.Int(1)))
	assert.NoError(t, CheckLoggedValues(nil, domain.Int(0), nil))

	assertCode(t, domain.CodeInvalidArgument, CheckLoggedValues(domain.Float64(50), nil, nil))
	assertCode(t, domain.CodeValidation, CheckLoggedValues(domain.Float64(-1), domain.Int(5), nil))
	assertCode(t, domain.CodeValidation, CheckLoggedValues(nil, domain.Int(-2), nil))
	assertCode(t, domain.CodeValidation, CheckLoggedValues(nil, domain.Int(5), domain.Int(11)))
}

func TestAsNullableInt(t *testing.T) {
	v, ok := asNullableInt(8.0)
	assert.True(t, ok)
	assert.Equal(t, 8, *v)

	_, ok = asNullableInt(8.5)
	assert.False(t, ok)

	_, ok = asNullableInt("8")
	assert.False(t, ok)

	v, ok = asNullableInt(nil)
	assert.True(t, ok)
	assert.Nil(t, v)
}
