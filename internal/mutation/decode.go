package mutation

import (
	"bytes"
	"encoding/json"

	"alcyxob/workout-engine/internal/domain"
)

// RawTarget is the wire form of an op target.
type RawTarget struct {
	ExerciseInstanceID string `json:"exerciseInstanceId"`
	SetID              string `json:"setId,omitempty"`
}

// RawOp is the wire form of a single op: {op, target, field, value, order}.
type RawOp struct {
	Op     string          `json:"op"`
	Target *RawTarget      `json:"target,omitempty"`
	Field  string          `json:"field,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
	Order  []string        `json:"order,omitempty"`
}

// DecodeOps converts wire ops into typed ops. Any malformed op fails the whole batch.
func DecodeOps(raw []RawOp) ([]Op, error) {
	ops := make([]Op, 0, len(raw))
	for i, r := range raw {
		op, err := decodeOp(r)
		if err != nil {
			if coded, ok := domain.AsError(err); ok {
				return nil, coded.With("opIndex", i)
			}
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func decodeOp(r RawOp) (Op, error) {
	switch Kind(r.Op) {
	case KindSetField:
		ref, err := requireSetRef(r)
		if err != nil {
			return nil, err
		}
		field, tag, ok := parseSetField(r.Field)
		if !ok {
			return nil, domain.InvalidArgument("unknown set field %q", r.Field)
		}
		value, err := decodeScalar(r.Value)
		if err != nil {
			return nil, err
		}
		return SetFieldOp{Target: ref, Field: field, Tag: tag, Value: value}, nil

	case KindAddSet:
		if r.Target == nil || r.Target.ExerciseInstanceID == "" {
			return nil, domain.InvalidArgument("addSet requires target.exerciseInstanceId")
		}
		var set domain.SetRecord
		if len(r.Value) > 0 && !isJSONNull(r.Value) {
			if err := json.Unmarshal(r.Value, &set); err != nil {
				return nil, domain.InvalidArgument("addSet value is not a valid set: %v", err)
			}
		}
		return AddSetOp{ExerciseInstanceID: r.Target.ExerciseInstanceID, Set: set}, nil

	case KindRemoveSet:
		ref, err := requireSetRef(r)
		if err != nil {
			return nil, err
		}
		return RemoveSetOp{Target: ref}, nil

	case KindReorderExercises:
		order := r.Order
		if len(order) == 0 && len(r.Value) > 0 {
			if err := json.Unmarshal(r.Value, &order); err != nil {
				return nil, domain.InvalidArgument("reorderExercises value must be a list of instance ids")
			}
		}
		if len(order) == 0 {
			return nil, domain.InvalidArgument("reorderExercises requires a non-empty order")
		}
		return ReorderExercisesOp{Order: order}, nil

	case KindSetWorkoutField:
		switch f := WorkoutField(r.Field); f {
		case WorkoutFieldName, WorkoutFieldNotes:
			value, err := decodeScalar(r.Value)
			if err != nil {
				return nil, err
			}
			return SetWorkoutFieldOp{Field: f, Value: value}, nil
		}
		return nil, domain.InvalidArgument("unknown workout field %q", r.Field)

	case KindSetExerciseField:
		if r.Target == nil || r.Target.ExerciseInstanceID == "" {
			return nil, domain.InvalidArgument("setExerciseField requires target.exerciseInstanceId")
		}
		switch f := ExerciseField(r.Field); f {
		case ExerciseFieldName, ExerciseFieldNotes, ExerciseFieldRestSeconds:
			value, err := decodeScalar(r.Value)
			if err != nil {
				return nil, err
			}
			return SetExerciseFieldOp{ExerciseInstanceID: r.Target.ExerciseInstanceID, Field: f, Value: value}, nil
		}
		return nil, domain.InvalidArgument("unknown exercise field %q", r.Field)
	}
	return nil, domain.InvalidArgument("unknown op %q", r.Op)
}

func requireSetRef(r RawOp) (SetRef, error) {
	if r.Target == nil || r.Target.ExerciseInstanceID == "" || r.Target.SetID == "" {
		return SetRef{}, domain.InvalidArgument("%s requires target.exerciseInstanceId and target.setId", r.Op)
	}
	return SetRef{ExerciseInstanceID: r.Target.ExerciseInstanceID, SetID: r.Target.SetID}, nil
}

// decodeScalar accepts null, numbers, strings and booleans. A missing value is an error.
func decodeScalar(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, domain.InvalidArgument("value is required")
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, domain.InvalidArgument("value is not valid JSON: %v", err)
	}
	switch v.(type) {
	case nil, float64, string, bool:
		return v, nil
	}
	return nil, domain.InvalidArgument("value must be a scalar")
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
