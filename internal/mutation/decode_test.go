package mutation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/workout-engine/internal/domain"
)

func decodeJSON(t *testing.T, body string) ([]Op, error) {
	t.Helper()
	var raw []RawOp
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return DecodeOps(raw)
}

func TestDecodeOps(t *testing.T) {
	ops, err := decodeJSON(t, `[
		{"op":"setField","target":{"exerciseInstanceId":"E1","setId":"S1"},"field":"weight","value":62.5},
		{"op":"setField","target":{"exerciseInstanceId":"E1","setId":"S1"},"field":"tags.isFailure","value":true},
		{"op":"setField","target":{"exerciseInstanceId":"E1","setId":"S1"},"field":"rir","value":null}
	]`)
	require.NoError(t, err)
	require.Len(t, ops, 3)

	ref := SetRef{ExerciseInstanceID: "E1", SetID: "S1"}
	assert.Equal(t, SetFieldOp{Target: ref, Field: SetFieldWeight, Value: 62.5}, ops[0])
	assert.Equal(t, SetFieldOp{Target: ref, Field: SetFieldTag, Tag: domain.TagIsFailure, Value: true}, ops[1])
	assert.Equal(t, SetFieldOp{Target: ref, Field: SetFieldRIR, Value: nil}, ops[2])
	assert.Equal(t, "tags.isFailure", ops[1].(SetFieldOp).FieldPath())
}

func TestDecodeStructuralOps(t *testing.T) {
	ops, err := decodeJSON(t, `[{"op":"addSet","target":{"exerciseInstanceId":"E1"},"value":{"id":"S9","weight":40,"reps":12}}]`)
	require.NoError(t, err)
	add, ok := ops[0].(AddSetOp)
	require.True(t, ok)
	assert.Equal(t, "E1", add.ExerciseInstanceID)
	assert.Equal(t, "S9", add.Set.ID)
	assert.Equal(t, 40.0, *add.Set.Weight)
	assert.Equal(t, 12, *add.Set.Reps)

	ops, err = decodeJSON(t, `[{"op":"reorderExercises","order":["E2","E1"]}]`)
	require.NoError(t, err)
	assert.Equal(t, ReorderExercisesOp{Order: []string{"E2", "E1"}}, ops[0])

	ops, err = decodeJSON(t, `[{"op":"reorderExercises","value":["E2","E1"]}]`)
	require.NoError(t, err)
	assert.Equal(t, ReorderExercisesOp{Order: []string{"E2", "E1"}}, ops[0])

	ops, err = decodeJSON(t, `[{"op":"setExerciseField","target":{"exerciseInstanceId":"E2"},"field":"restSeconds","value":90}]`)
	require.NoError(t, err)
	assert.Equal(t, SetExerciseFieldOp{ExerciseInstanceID: "E2", Field: ExerciseFieldRestSeconds, Value: 90.0}, ops[0])

	ops, err = decodeJSON(t, `[{"op":"setWorkoutField","field":"notes","value":"felt strong"}]`)
	require.NoError(t, err)
	assert.Equal(t, SetWorkoutFieldOp{Field: WorkoutFieldNotes, Value: "felt strong"}, ops[0])
}

func TestDecodeOpsRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown op", `[{"op":"dropTable"}]`},
		{"missing set id", `[{"op":"setField","target":{"exerciseInstanceId":"E1"},"field":"weight","value":1}]`},
		{"unknown field", `[{"op":"setField","target":{"exerciseInstanceId":"E1","setId":"S1"},"field":"tempo","value":1}]`},
		{"empty tag key", `[{"op":"setField","target":{"exerciseInstanceId":"E1","setId":"S1"},"field":"tags.","value":1}]`},
		{"missing value", `[{"op":"setField","target":{"exerciseInstanceId":"E1","setId":"S1"},"field":"weight"}]`},
		{"object value", `[{"op":"setField","target":{"exerciseInstanceId":"E1","setId":"S1"},"field":"weight","value":{"kg":1}}]`},
		{"empty reorder", `[{"op":"reorderExercises"}]`},
		{"unknown workout field", `[{"op":"setWorkoutField","field":"status","value":"completed"}]`},
		{"addSet without target", `[{"op":"addSet","value":{}}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeJSON(t, tt.body)
			assertCode(t, domain.CodeInvalidArgument, err)
		})
	}
}

func TestDecodeOpsReportsIndex(t *testing.T) {
	_, err := decodeJSON(t, `[
		{"op":"setField","target":{"exerciseInstanceId":"E1","setId":"S1"},"field":"weight","value":1},
		{"op":"bogus"}
	]`)
	coded, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, 1, coded.Details["opIndex"])
}
