package mutation

import (
	"alcyxob/workout-engine/internal/domain"
)

// Scope names the single exercise instance an agent-originated request may touch.
type Scope struct {
	ExerciseInstanceID string `json:"exerciseInstanceId"`
}

// CheckScope restricts agent-originated batches. It is a no-op for user edits.
//
// Within scope the agent may adjust weight, reps and rir of planned sets, add planned sets
// and edit exercise scalars. It may never touch performed sets, change status, set type or
// the failure tag, or remove a set. One violation rejects the whole batch.
func CheckScope(w *domain.ActiveWorkout, ops []Op, cause domain.Cause, scope *Scope) error {
	if cause != domain.CauseUserAIAction {
		return nil
	}
	if scope == nil || scope.ExerciseInstanceID == "" {
		return domain.PermissionDenied("agent requests must name an exercise instance scope")
	}

	for i, op := range ops {
		if err := checkOpInScope(w, op, scope.ExerciseInstanceID); err != nil {
			return err.With("opIndex", i)
		}
	}
	return nil
}

func checkOpInScope(w *domain.ActiveWorkout, op Op, scoped string) *domain.Error {
	if target := exerciseTarget(op); target == "" || target != scoped {
		return domain.PermissionDenied("op %s is outside the authorized exercise scope", op.Kind()).
			With("scope", scoped)
	}

	switch o := op.(type) {
	case SetFieldOp:
		switch {
		case o.Field == SetFieldStatus, o.Field == SetFieldSetType:
			return domain.PermissionDenied("agent may not modify %s", o.Field)
		case o.Field == SetFieldTag && o.Tag == domain.TagIsFailure:
			return domain.PermissionDenied("agent may not modify the %s tag", domain.TagIsFailure)
		}
		if set := lookupSet(w, o.Target); set != nil && set.Status != domain.SetPlanned {
			return domain.PermissionDenied("agent may not modify a %s set", set.Status).
				With("setId", o.Target.SetID)
		}
	case RemoveSetOp:
		return domain.PermissionDenied("agent may not remove sets")
	case AddSetOp:
		if o.Set.Status != "" && o.Set.Status != domain.SetPlanned {
			return domain.PermissionDenied("agent may only add planned sets")
		}
		if o.Set.IsFailure() {
			return domain.PermissionDenied("agent may not set the %s tag", domain.TagIsFailure)
		}
	}
	return nil
}

func lookupSet(w *domain.ActiveWorkout, ref SetRef) *domain.SetRecord {
	ei := w.FindExercise(ref.ExerciseInstanceID)
	if ei < 0 {
		return nil
	}
	si := w.Exercises[ei].FindSet(ref.SetID)
	if si < 0 {
		return nil
	}
	return &w.Exercises[ei].Sets[si]
}
