package mutation

import (
	"alcyxob/workout-engine/internal/domain"
)

// LoggedValues are the performed values reported for one set.
type LoggedValues struct {
	Weight *float64 `json:"weight"`
	Reps   *int     `json:"reps"`
	RIR    *int     `json:"rir"`
}

// LogSet marks a planned set done with the performed values. It is the only transform that
// moves a set from planned to done with caller supplied values.
func LogSet(w *domain.ActiveWorkout, ref SetRef, values LoggedValues, isFailure bool) (*Result, error) {
	if err := CheckLoggedValues(values.Weight, values.Reps, values.RIR); err != nil {
		return nil, err
	}
	out := w.Clone()
	ei, si, err := locateSet(out, ref)
	if err != nil {
		return nil, err
	}
	set := &out.Exercises[ei].Sets[si]
	switch set.Status {
	case domain.SetDone:
		return nil, domain.NewError(domain.CodeAlreadyDone, "set %q is already done; use patch to edit it", ref.SetID).
			With("setId", ref.SetID)
	case domain.SetSkipped:
		return nil, domain.InvalidState("set %q was skipped", ref.SetID).With("setId", ref.SetID)
	}

	set.Status = domain.SetDone
	set.Weight = cloneFloat(values.Weight)
	set.Reps = cloneInt(values.Reps)
	set.RIR = cloneInt(values.RIR)

	base := []any{"exercises", ei, "sets", si}
	diff := []domain.DiffOp{
		{Op: domain.DiffReplace, Path: domain.NewPath(append(base, "status")...), Value: string(domain.SetDone)},
		{Op: domain.DiffReplace, Path: domain.NewPath(append(base, "weight")...), Value: derefFloat(set.Weight)},
		{Op: domain.DiffReplace, Path: domain.NewPath(append(base, "reps")...), Value: derefInt(set.Reps)},
		{Op: domain.DiffReplace, Path: domain.NewPath(append(base, "rir")...), Value: derefInt(set.RIR)},
	}
	// a retry logged without the flag clears a failure marked on an earlier attempt
	tagPath := domain.NewPath(append(base, "tags", domain.TagIsFailure)...)
	if isFailure {
		diff = append(diff, applyTag(set, tagPath, domain.TagIsFailure, true)...)
	} else {
		diff = append(diff, applyTag(set, tagPath, domain.TagIsFailure, nil)...)
	}

	out.Totals = ComputeTotals(out.Exercises)
	return &Result{Workout: out, Diff: diff}, nil
}

// CurrentSet describes the set picked by CompleteCurrentSet. SetNumber is 1-based.
type CurrentSet struct {
	ExerciseInstanceID string   `json:"exerciseInstanceId"`
	SetID              string   `json:"setId"`
	ExerciseName       string   `json:"exerciseName"`
	SetNumber          int      `json:"setNumber"`
	TotalSets          int      `json:"totalSets"`
	Weight             *float64 `json:"weight"`
	Reps               *int     `json:"reps"`
}

// CompleteCurrentSet marks the first planned working or dropset set, in exercise then set
// order, as done with its planned values.
func CompleteCurrentSet(w *domain.ActiveWorkout) (*Result, *CurrentSet, error) {
	out := w.Clone()
	for ei := range out.Exercises {
		ex := &out.Exercises[ei]
		for si := range ex.Sets {
			set := &ex.Sets[si]
			if set.Status != domain.SetPlanned || !set.SetType.CountsTowardTotals() {
				continue
			}
			set.Status = domain.SetDone
			out.Totals = ComputeTotals(out.Exercises)
			diff := []domain.DiffOp{{
				Op:    domain.DiffReplace,
				Path:  domain.NewPath("exercises", ei, "sets", si, "status"),
				Value: string(domain.SetDone),
			}}
			current := &CurrentSet{
				ExerciseInstanceID: ex.InstanceID,
				SetID:              set.ID,
				ExerciseName:       ex.Name,
				SetNumber:          si + 1,
				TotalSets:          len(ex.Sets),
				Weight:             cloneFloat(set.Weight),
				Reps:               cloneInt(set.Reps),
			}
			return &Result{Workout: out, Diff: diff}, current, nil
		}
	}
	return nil, nil, domain.TargetNotFound("no planned working set remains in this workout")
}

// NewExercise is the input of AddExercise. Name must already be resolved.
type NewExercise struct {
	InstanceID  string
	ExerciseID  string
	Name        string
	Notes       string
	RestSeconds *int
	Sets        []domain.SetRecord
}

// AddExercise appends a new exercise instance at the end of the workout.
func AddExercise(w *domain.ActiveWorkout, in NewExercise, opts Options) (*Result, error) {
	if in.ExerciseID == "" {
		return nil, domain.InvalidArgument("exerciseId is required")
	}
	name, err := textValue("name", in.Name, true)
	if err != nil {
		return nil, err
	}
	if in.RestSeconds != nil && (*in.RestSeconds < 0 || *in.RestSeconds > maxRestSeconds) {
		return nil, domain.Validation("restSeconds must be between 0 and %d", maxRestSeconds)
	}

	out := w.Clone()
	instanceID := in.InstanceID
	if instanceID == "" {
		instanceID = opts.newID()
	}
	if out.FindExercise(instanceID) >= 0 {
		return nil, domain.Validation("exercise instance %q already exists", instanceID).
			With("exerciseInstanceId", instanceID)
	}

	ex := domain.ExerciseInstance{
		InstanceID:  instanceID,
		ExerciseID:  in.ExerciseID,
		Name:        name,
		Position:    len(out.Exercises),
		Notes:       in.Notes,
		RestSeconds: cloneInt(in.RestSeconds),
		Sets:        make([]domain.SetRecord, 0, len(in.Sets)),
	}
	for i, s := range in.Sets {
		set, err := prepareNewSet(&ex, s, opts)
		if err != nil {
			if coded, ok := domain.AsError(err); ok {
				return nil, coded.With("setIndex", i)
			}
			return nil, err
		}
		ex.Sets = append(ex.Sets, set)
	}
	out.Exercises = append(out.Exercises, ex)
	out.Totals = ComputeTotals(out.Exercises)

	diff := []domain.DiffOp{{
		Op:    domain.DiffAdd,
		Path:  domain.NewPath("exercises", len(out.Exercises)-1),
		Value: ex.Clone(),
	}}
	return &Result{Workout: out, Diff: diff}, nil
}

// SwapExercise points an instance at a different catalog exercise. Sets are kept.
func SwapExercise(w *domain.ActiveWorkout, instanceID, exerciseID, name string) (*Result, error) {
	if exerciseID == "" {
		return nil, domain.InvalidArgument("toExerciseId is required")
	}
	resolved, err := textValue("name", name, true)
	if err != nil {
		return nil, err
	}
	out := w.Clone()
	ei, err := locateExercise(out, instanceID)
	if err != nil {
		return nil, err
	}
	ex := &out.Exercises[ei]
	ex.ExerciseID = exerciseID
	ex.Name = resolved

	diff := []domain.DiffOp{
		{Op: domain.DiffReplace, Path: domain.NewPath("exercises", ei, "exerciseId"), Value: exerciseID},
		{Op: domain.DiffReplace, Path: domain.NewPath("exercises", ei, "name"), Value: resolved},
	}
	return &Result{Workout: out, Diff: diff}, nil
}

// AutofillUpdate proposes new planned values for an existing set. Nil fields are untouched.
type AutofillUpdate struct {
	SetID  string   `json:"setId"`
	Weight *float64 `json:"weight"`
	Reps   *int     `json:"reps"`
	RIR    *int     `json:"rir"`
}

// AutofillOps expands an agent autofill proposal for one exercise instance into ops.
func AutofillOps(instanceID string, updates []AutofillUpdate, additions []domain.SetRecord) ([]Op, error) {
	var ops []Op
	for _, u := range updates {
		if u.SetID == "" {
			return nil, domain.InvalidArgument("updates[].setId is required")
		}
		ref := SetRef{ExerciseInstanceID: instanceID, SetID: u.SetID}
		if u.Weight != nil {
			ops = append(ops, SetFieldOp{Target: ref, Field: SetFieldWeight, Value: *u.Weight})
		}
		if u.Reps != nil {
			ops = append(ops, SetFieldOp{Target: ref, Field: SetFieldReps, Value: *u.Reps})
		}
		if u.RIR != nil {
			ops = append(ops, SetFieldOp{Target: ref, Field: SetFieldRIR, Value: *u.RIR})
		}
	}
	for _, set := range additions {
		ops = append(ops, AddSetOp{ExerciseInstanceID: instanceID, Set: set})
	}
	if len(ops) == 0 {
		return nil, domain.InvalidArgument("autofill requires at least one update or addition")
	}
	return ops, nil
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
