package mutation

import (
	"math"

	"alcyxob/workout-engine/internal/domain"
)

// ValidateBatch enforces the shape rules of a patch batch. It needs no workout data and runs
// before the transaction opens.
func ValidateBatch(ops []Op) error {
	if len(ops) == 0 {
		return domain.InvalidArgument("ops must not be empty")
	}

	kind := ops[0].Kind()
	for _, op := range ops[1:] {
		if op.Kind() != kind {
			return domain.NewError(domain.CodeMixedOpTypes, "a batch may only contain one op kind").
				With("kinds", []Kind{kind, op.Kind()})
		}
	}

	if kind == KindSetField {
		var first SetRef
		for i, op := range ops {
			o, ok := op.(SetFieldOp)
			if !ok {
				return domain.InvalidArgument("unsupported op value %T", op)
			}
			if i == 0 {
				first = o.Target
				continue
			}
			if o.Target != first {
				return domain.NewError(domain.CodeMultiSetEdit, "setField ops in one batch must target the same set")
			}
		}
		return nil
	}

	if len(ops) > 1 {
		return domain.NewError(domain.CodeMultipleStructuralOps, "%s allows exactly one op per batch", kind)
	}
	return nil
}

// checkTransition enforces the set status state machine for generic field patches.
// planned→done is only reachable through the log-set operation and a done set is final.
func checkTransition(from, to domain.SetStatus) error {
	if from == to {
		return nil
	}
	switch {
	case from == domain.SetPlanned && to == domain.SetDone:
		return domain.Validation("sets are completed through the log set operation, not a field patch").
			With("from", from).With("to", to)
	case from == domain.SetDone,
		from == domain.SetSkipped && to == domain.SetDone:
		return domain.InvalidState("set status cannot change from %s to %s", from, to).
			With("from", from).With("to", to)
	}
	return nil
}

// checkReps validates a reps value for a set in the given status.
func checkReps(reps *int, status domain.SetStatus, cause domain.Cause) error {
	if reps == nil {
		return nil
	}
	if *reps < 0 {
		return domain.Validation("reps must not be negative")
	}
	if status == domain.SetPlanned && cause == domain.CauseUserEdit &&
		(*reps < MinPlannedReps || *reps > MaxPlannedReps) {
		return domain.Validation("planned reps must be between %d and %d", MinPlannedReps, MaxPlannedReps).
			With("reps", *reps)
	}
	return nil
}

func checkWeight(weight *float64) error {
	if weight == nil {
		return nil
	}
	if *weight < 0 || math.IsNaN(*weight) || math.IsInf(*weight, 0) {
		return domain.Validation("weight must be a non-negative number")
	}
	return nil
}

func checkRIR(rir *int) error {
	if rir == nil {
		return nil
	}
	if *rir < 0 || *rir > MaxRIR {
		return domain.Validation("rir must be between 0 and %d", MaxRIR)
	}
	return nil
}

// CheckLoggedValues validates the values supplied to the log-set operation.
func CheckLoggedValues(weight *float64, reps *int, rir *int) error {
	if reps == nil {
		return domain.InvalidArgument("values.reps is required")
	}
	if err := checkReps(reps, domain.SetDone, domain.CauseUserEdit); err != nil {
		return err
	}
	if err := checkWeight(weight); err != nil {
		return err
	}
	return checkRIR(rir)
}

// asNullableFloat converts a decoded JSON scalar into a nullable float.
func asNullableFloat(v any) (*float64, bool) {
	switch n := v.(type) {
	case nil:
		return nil, true
	case float64:
		return &n, true
	case int:
		f := float64(n)
		return &f, true
	}
	return nil, false
}

// asNullableInt converts a decoded JSON scalar into a nullable integer. Fractions are rejected.
func asNullableInt(v any) (*int, bool) {
	switch n := v.(type) {
	case nil:
		return nil, true
	case int:
		return &n, true
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
			return nil, false
		}
		i := int(n)
		return &i, true
	}
	return nil, false
}
