// Package mutation holds the command algebra of the active workout engine: the op kinds a
// patch request may carry, their validation, the agent capability scope and the pure
// transforms that apply them to a workout.
package mutation

import (
	"strings"

	"alcyxob/workout-engine/internal/domain"
)

// Kind names an op kind on the wire.
type Kind string

const (
	KindSetField         Kind = "setField"
	KindAddSet           Kind = "addSet"
	KindRemoveSet        Kind = "removeSet"
	KindReorderExercises Kind = "reorderExercises"
	KindSetWorkoutField  Kind = "setWorkoutField"
	KindSetExerciseField Kind = "setExerciseField"
)

// MaxSetsPerExercise bounds the set list of a single exercise instance.
const MaxSetsPerExercise = 8

// Manual edits of planned reps must stay within this range.
const (
	MinPlannedReps = 1
	MaxPlannedReps = 30
	MaxRIR         = 10
)

// Op is the sealed sum type over the six op kinds. The exhaustive switch lives in Apply.
type Op interface {
	Kind() Kind
	isOp()
}

// SetRef addresses one set of one exercise instance.
type SetRef struct {
	ExerciseInstanceID string `json:"exerciseInstanceId"`
	SetID              string `json:"setId"`
}

// SetField names a settable leaf of a SetRecord.
type SetField string

const (
	SetFieldWeight  SetField = "weight"
	SetFieldReps    SetField = "reps"
	SetFieldRIR     SetField = "rir"
	SetFieldStatus  SetField = "status"
	SetFieldSetType SetField = "setType"
	SetFieldTag     SetField = "tags"
)

// SetFieldOp replaces one leaf value of a set. For SetFieldTag, Tag names the key.
// Value holds the decoded JSON value: nil, float64, string or bool.
type SetFieldOp struct {
	Target SetRef
	Field  SetField
	Tag    string
	Value  any
}

// AddSetOp appends a new set to an exercise.
type AddSetOp struct {
	ExerciseInstanceID string
	Set                domain.SetRecord
}

// RemoveSetOp filters one set out of an exercise.
type RemoveSetOp struct {
	Target SetRef
}

// ReorderExercisesOp re-sorts the exercise list by instance id.
type ReorderExercisesOp struct {
	Order []string
}

// WorkoutField names a settable scalar of the workout root.
type WorkoutField string

const (
	WorkoutFieldName  WorkoutField = "name"
	WorkoutFieldNotes WorkoutField = "notes"
)

// SetWorkoutFieldOp sets a scalar on the workout root.
type SetWorkoutFieldOp struct {
	Field WorkoutField
	Value any
}

// ExerciseField names a settable scalar of an exercise instance.
type ExerciseField string

const (
	ExerciseFieldName        ExerciseField = "name"
	ExerciseFieldNotes       ExerciseField = "notes"
	ExerciseFieldRestSeconds ExerciseField = "restSeconds"
)

// SetExerciseFieldOp sets a scalar on one exercise instance.
type SetExerciseFieldOp struct {
	ExerciseInstanceID string
	Field              ExerciseField
	Value              any
}

func (SetFieldOp) Kind() Kind         { return KindSetField }
func (AddSetOp) Kind() Kind           { return KindAddSet }
func (RemoveSetOp) Kind() Kind        { return KindRemoveSet }
func (ReorderExercisesOp) Kind() Kind { return KindReorderExercises }
func (SetWorkoutFieldOp) Kind() Kind  { return KindSetWorkoutField }
func (SetExerciseFieldOp) Kind() Kind { return KindSetExerciseField }

func (SetFieldOp) isOp()         {}
func (AddSetOp) isOp()           {}
func (RemoveSetOp) isOp()        {}
func (ReorderExercisesOp) isOp() {}
func (SetWorkoutFieldOp) isOp()  {}
func (SetExerciseFieldOp) isOp() {}

// FieldPath renders the wire name of the field, e.g. "weight" or "tags.isFailure".
func (o SetFieldOp) FieldPath() string {
	if o.Field == SetFieldTag {
		return "tags." + o.Tag
	}
	return string(o.Field)
}

// parseSetField splits a wire field name into the field and, for tags, the tag key.
func parseSetField(raw string) (SetField, string, bool) {
	if tag, ok := strings.CutPrefix(raw, "tags."); ok {
		if tag == "" {
			return "", "", false
		}
		return SetFieldTag, tag, true
	}
	switch f := SetField(raw); f {
	case SetFieldWeight, SetFieldReps, SetFieldRIR, SetFieldStatus, SetFieldSetType:
		return f, "", true
	}
	return "", "", false
}

// exerciseTarget returns the exercise instance an op addresses, or "" for workout-level ops.
func exerciseTarget(op Op) string {
	switch o := op.(type) {
	case SetFieldOp:
		return o.Target.ExerciseInstanceID
	case AddSetOp:
		return o.ExerciseInstanceID
	case RemoveSetOp:
		return o.Target.ExerciseInstanceID
	case SetExerciseFieldOp:
		return o.ExerciseInstanceID
	}
	return ""
}
