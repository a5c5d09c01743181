package mutation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"alcyxob/workout-engine/internal/domain"
)

const (
	maxNameLength  = 200
	maxNotesLength = 2000
	maxRestSeconds = 3600
)

// Options carries the request context an apply needs. NewID defaults to uuid.NewString.
type Options struct {
	Cause domain.Cause
	NewID func() string
}

func (o Options) newID() string {
	if o.NewID != nil {
		return o.NewID()
	}
	return uuid.NewString()
}

// Result is the outcome of a pure transform: the new aggregate and the structural diff.
type Result struct {
	Workout *domain.ActiveWorkout
	Diff    []domain.DiffOp
}

// Apply runs ops in order against a copy of w. The input is never modified; on error nothing
// is returned, so a rejected batch has no partial effect. Totals are recomputed at the end.
func Apply(w *domain.ActiveWorkout, ops []Op, opts Options) (*Result, error) {
	out := w.Clone()
	var diff []domain.DiffOp

	for i, op := range ops {
		var (
			d   []domain.DiffOp
			err error
		)
		switch o := op.(type) {
		case SetFieldOp:
			d, err = applySetField(out, o, opts)
		case AddSetOp:
			d, err = applyAddSet(out, o, opts)
		case RemoveSetOp:
			d, err = applyRemoveSet(out, o)
		case ReorderExercisesOp:
			d, err = applyReorder(out, o)
		case SetWorkoutFieldOp:
			d, err = applyWorkoutField(out, o)
		case SetExerciseFieldOp:
			d, err = applyExerciseField(out, o)
		default:
			return nil, fmt.Errorf("mutation: unhandled op type %T", op)
		}
		if err != nil {
			if coded, ok := domain.AsError(err); ok && len(ops) > 1 {
				return nil, coded.With("opIndex", i)
			}
			return nil, err
		}
		diff = append(diff, d...)
	}

	out.Totals = ComputeTotals(out.Exercises)
	return &Result{Workout: out, Diff: diff}, nil
}

func locateExercise(w *domain.ActiveWorkout, instanceID string) (int, error) {
	ei := w.FindExercise(instanceID)
	if ei < 0 {
		return -1, domain.TargetNotFound("exercise instance %q not found", instanceID).
			With("exerciseInstanceId", instanceID)
	}
	return ei, nil
}

func locateSet(w *domain.ActiveWorkout, ref SetRef) (int, int, error) {
	ei, err := locateExercise(w, ref.ExerciseInstanceID)
	if err != nil {
		return -1, -1, err
	}
	si := w.Exercises[ei].FindSet(ref.SetID)
	if si < 0 {
		return -1, -1, domain.TargetNotFound("set %q not found in exercise instance %q", ref.SetID, ref.ExerciseInstanceID).
			With("exerciseInstanceId", ref.ExerciseInstanceID).With("setId", ref.SetID)
	}
	return ei, si, nil
}

func applySetField(w *domain.ActiveWorkout, o SetFieldOp, opts Options) ([]domain.DiffOp, error) {
	ei, si, err := locateSet(w, o.Target)
	if err != nil {
		return nil, err
	}
	set := &w.Exercises[ei].Sets[si]
	path := domain.NewPath("exercises", ei, "sets", si, string(o.Field))

	switch o.Field {
	case SetFieldWeight:
		weight, ok := asNullableFloat(o.Value)
		if !ok {
			return nil, domain.InvalidArgument("weight must be a number or null")
		}
		if err := checkWeight(weight); err != nil {
			return nil, err
		}
		set.Weight = weight
		return replace(path, derefFloat(weight)), nil

	case SetFieldReps:
		reps, ok := asNullableInt(o.Value)
		if !ok {
			return nil, domain.InvalidArgument("reps must be an integer or null")
		}
		if err := checkReps(reps, set.Status, opts.Cause); err != nil {
			return nil, err
		}
		set.Reps = reps
		return replace(path, derefInt(reps)), nil

	case SetFieldRIR:
		rir, ok := asNullableInt(o.Value)
		if !ok {
			return nil, domain.InvalidArgument("rir must be an integer or null")
		}
		if err := checkRIR(rir); err != nil {
			return nil, err
		}
		set.RIR = rir
		return replace(path, derefInt(rir)), nil

	case SetFieldStatus:
		raw, _ := o.Value.(string)
		to := domain.SetStatus(raw)
		if !to.Valid() {
			return nil, domain.InvalidArgument("unknown set status %v", o.Value)
		}
		if err := checkTransition(set.Status, to); err != nil {
			return nil, err
		}
		set.Status = to
		return replace(path, string(to)), nil

	case SetFieldSetType:
		raw, _ := o.Value.(string)
		to := domain.SetType(raw)
		if !to.Valid() {
			return nil, domain.InvalidArgument("unknown set type %v", o.Value)
		}
		set.SetType = to
		return replace(path, string(to)), nil

	case SetFieldTag:
		return applyTag(set, domain.NewPath("exercises", ei, "sets", si, "tags", o.Tag), o.Tag, o.Value), nil
	}
	return nil, domain.InvalidArgument("unknown set field %q", o.Field)
}

func applyTag(set *domain.SetRecord, path domain.Path, tag string, value any) []domain.DiffOp {
	_, existed := set.Tags[tag]
	if value == nil {
		if !existed {
			return nil
		}
		delete(set.Tags, tag)
		return []domain.DiffOp{{Op: domain.DiffRemove, Path: path}}
	}
	if set.Tags == nil {
		set.Tags = make(map[string]any)
	}
	set.Tags[tag] = value
	if existed {
		return replace(path, value)
	}
	return []domain.DiffOp{{Op: domain.DiffAdd, Path: path, Value: value}}
}

func applyAddSet(w *domain.ActiveWorkout, o AddSetOp, opts Options) ([]domain.DiffOp, error) {
	ei, err := locateExercise(w, o.ExerciseInstanceID)
	if err != nil {
		return nil, err
	}
	ex := &w.Exercises[ei]
	set, err := prepareNewSet(ex, o.Set, opts)
	if err != nil {
		return nil, err
	}
	ex.Sets = append(ex.Sets, set)
	path := domain.NewPath("exercises", ei, "sets", len(ex.Sets)-1)
	return []domain.DiffOp{{Op: domain.DiffAdd, Path: path, Value: set.Clone()}}, nil
}

// prepareNewSet validates a set about to be appended to ex and fills server defaults.
func prepareNewSet(ex *domain.ExerciseInstance, in domain.SetRecord, opts Options) (domain.SetRecord, error) {
	if len(ex.Sets)+1 > MaxSetsPerExercise {
		return domain.SetRecord{}, domain.Validation("an exercise may hold at most %d sets", MaxSetsPerExercise).
			With("exerciseInstanceId", ex.InstanceID)
	}
	set := in.Clone()
	if set.ID == "" {
		set.ID = opts.newID()
	}
	if ex.FindSet(set.ID) >= 0 {
		return domain.SetRecord{}, domain.NewError(domain.CodeDuplicateSetID, "set id %q already exists in exercise instance %q", set.ID, ex.InstanceID).
			With("setId", set.ID)
	}
	if set.Status == "" {
		set.Status = domain.SetPlanned
	}
	if set.Status != domain.SetPlanned {
		return domain.SetRecord{}, domain.Validation("new sets must be planned; use the log set operation to complete them")
	}
	if set.SetType != "" && !set.SetType.Valid() {
		return domain.SetRecord{}, domain.InvalidArgument("unknown set type %q", set.SetType)
	}
	if err := checkWeight(set.Weight); err != nil {
		return domain.SetRecord{}, err
	}
	if err := checkReps(set.Reps, set.Status, opts.Cause); err != nil {
		return domain.SetRecord{}, err
	}
	if err := checkRIR(set.RIR); err != nil {
		return domain.SetRecord{}, err
	}
	for k, v := range set.Tags {
		switch v.(type) {
		case bool, float64, string:
		default:
			return domain.SetRecord{}, domain.InvalidArgument("tag %q must be a scalar", k)
		}
	}
	return set, nil
}

func applyRemoveSet(w *domain.ActiveWorkout, o RemoveSetOp) ([]domain.DiffOp, error) {
	ei, si, err := locateSet(w, o.Target)
	if err != nil {
		return nil, err
	}
	ex := &w.Exercises[ei]
	ex.Sets = append(ex.Sets[:si:si], ex.Sets[si+1:]...)
	return []domain.DiffOp{{Op: domain.DiffRemove, Path: domain.NewPath("exercises", ei, "sets", si)}}, nil
}

func applyReorder(w *domain.ActiveWorkout, o ReorderExercisesOp) ([]domain.DiffOp, error) {
	seen := make(map[string]bool, len(o.Order))
	reordered := make([]domain.ExerciseInstance, 0, len(o.Order))
	for _, id := range o.Order {
		if seen[id] {
			return nil, domain.Validation("exercise instance %q appears twice in the order", id)
		}
		seen[id] = true
		ei, err := locateExercise(w, id)
		if err != nil {
			return nil, err
		}
		reordered = append(reordered, w.Exercises[ei])
	}
	if len(reordered) != len(w.Exercises) {
		return nil, domain.Validation("order must list every exercise instance exactly once").
			With("expected", len(w.Exercises)).With("got", len(reordered))
	}
	for i := range reordered {
		reordered[i].Position = i
	}
	w.Exercises = reordered

	snapshot := make([]domain.ExerciseInstance, len(reordered))
	for i := range reordered {
		snapshot[i] = reordered[i].Clone()
	}
	return replace(domain.NewPath("exercises"), snapshot), nil
}

func applyWorkoutField(w *domain.ActiveWorkout, o SetWorkoutFieldOp) ([]domain.DiffOp, error) {
	text, err := textValue(string(o.Field), o.Value, o.Field == WorkoutFieldName)
	if err != nil {
		return nil, err
	}
	switch o.Field {
	case WorkoutFieldName:
		w.Name = text
	case WorkoutFieldNotes:
		w.Notes = text
	}
	return replace(domain.NewPath(string(o.Field)), text), nil
}

func applyExerciseField(w *domain.ActiveWorkout, o SetExerciseFieldOp) ([]domain.DiffOp, error) {
	ei, err := locateExercise(w, o.ExerciseInstanceID)
	if err != nil {
		return nil, err
	}
	ex := &w.Exercises[ei]
	path := domain.NewPath("exercises", ei, string(o.Field))

	switch o.Field {
	case ExerciseFieldName, ExerciseFieldNotes:
		text, err := textValue(string(o.Field), o.Value, o.Field == ExerciseFieldName)
		if err != nil {
			return nil, err
		}
		if o.Field == ExerciseFieldName {
			ex.Name = text
		} else {
			ex.Notes = text
		}
		return replace(path, text), nil

	case ExerciseFieldRestSeconds:
		rest, ok := asNullableInt(o.Value)
		if !ok {
			return nil, domain.InvalidArgument("restSeconds must be an integer or null")
		}
		if rest != nil && (*rest < 0 || *rest > maxRestSeconds) {
			return nil, domain.Validation("restSeconds must be between 0 and %d", maxRestSeconds)
		}
		ex.RestSeconds = rest
		return replace(path, derefInt(rest)), nil
	}
	return nil, domain.InvalidArgument("unknown exercise field %q", o.Field)
}

// textValue validates a string scalar. Null clears optional fields.
func textValue(field string, v any, required bool) (string, error) {
	if v == nil {
		if required {
			return "", domain.Validation("%s must not be empty", field)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", domain.InvalidArgument("%s must be a string", field)
	}
	s = strings.TrimSpace(s)
	limit := maxNotesLength
	if required {
		limit = maxNameLength
		if s == "" {
			return "", domain.Validation("%s must not be empty", field)
		}
	}
	if len(s) > limit {
		return "", domain.Validation("%s must be at most %d characters", field, limit)
	}
	return s, nil
}

func replace(path domain.Path, value any) []domain.DiffOp {
	return []domain.DiffOp{{Op: domain.DiffReplace, Path: path, Value: value}}
}

func derefFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
