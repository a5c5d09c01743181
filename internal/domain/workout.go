package domain

import (
	"time"
)

// WorkoutStatus tracks the lifecycle of an active workout.
type WorkoutStatus string

const (
	WorkoutInProgress WorkoutStatus = "in_progress"
	WorkoutCompleted  WorkoutStatus = "completed"
	WorkoutCancelled  WorkoutStatus = "cancelled"
)

// SetType classifies a set. An empty SetType is treated as SetTypeWorking.
type SetType string

const (
	SetTypeWorking SetType = "working"
	SetTypeDropset SetType = "dropset"
	SetTypeWarmup  SetType = "warmup"
	SetTypeFailure SetType = "failure"
)

// Valid reports whether t is one of the known set types.
func (t SetType) Valid() bool {
	switch t {
	case SetTypeWorking, SetTypeDropset, SetTypeWarmup, SetTypeFailure:
		return true
	}
	return false
}

// Effective returns the set type with the empty value defaulted to working.
func (t SetType) Effective() SetType {
	if t == "" {
		return SetTypeWorking
	}
	return t
}

// CountsTowardTotals reports whether done sets of this type contribute to workout totals.
func (t SetType) CountsTowardTotals() bool {
	switch t.Effective() {
	case SetTypeWorking, SetTypeDropset:
		return true
	}
	return false
}

// SetStatus is the per-set state machine value.
type SetStatus string

const (
	SetPlanned SetStatus = "planned"
	SetDone    SetStatus = "done"
	SetSkipped SetStatus = "skipped"
)

// Valid reports whether s is one of the known set statuses.
func (s SetStatus) Valid() bool {
	switch s {
	case SetPlanned, SetDone, SetSkipped:
		return true
	}
	return false
}

// TagIsFailure marks a set that was taken to failure.
const TagIsFailure = "isFailure"

// SetRecord is a single planned or performed set inside an exercise instance.
type SetRecord struct {
	ID      string         `bson:"id" json:"id"`
	SetType SetType        `bson:"setType,omitempty" json:"setType,omitempty"`
	Status  SetStatus      `bson:"status" json:"status"`
	Weight  *float64       `bson:"weight" json:"weight"`
	Reps    *int           `bson:"reps" json:"reps"`
	RIR     *int           `bson:"rir" json:"rir"`
	Tags    map[string]any `bson:"tags,omitempty" json:"tags,omitempty"`
}

// ExerciseInstance is one exercise as performed in this workout. InstanceID is stable for the
// life of the workout while ExerciseID (the catalog reference) may change through a swap.
type ExerciseInstance struct {
	InstanceID  string      `bson:"instanceId" json:"instanceId"`
	ExerciseID  string      `bson:"exerciseId" json:"exerciseId"`
	Name        string      `bson:"name" json:"name"`
	Position    int         `bson:"position" json:"position"`
	Notes       string      `bson:"notes,omitempty" json:"notes,omitempty"`
	RestSeconds *int        `bson:"restSeconds,omitempty" json:"restSeconds,omitempty"`
	Sets        []SetRecord `bson:"sets" json:"sets"`
}

// Totals are derived counters; always recomputed from the exercise list.
type Totals struct {
	Sets   int     `bson:"sets" json:"sets"`
	Reps   int     `bson:"reps" json:"reps"`
	Volume float64 `bson:"volume" json:"volume"`
}

// ActiveWorkout is the aggregate root mutated by the engine. One per user while in progress.
type ActiveWorkout struct {
	ID               string             `bson:"_id" json:"id"`
	UserID           string             `bson:"userId" json:"userId"`
	Status           WorkoutStatus      `bson:"status" json:"status"`
	Name             string             `bson:"name,omitempty" json:"name,omitempty"`
	Notes            string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Exercises        []ExerciseInstance `bson:"exercises" json:"exercises"`
	Totals           Totals             `bson:"totals" json:"totals"`
	Version          int                `bson:"version" json:"version"`
	SourceTemplateID string             `bson:"sourceTemplateId,omitempty" json:"sourceTemplateId,omitempty"`
	SourceRoutineID  string             `bson:"sourceRoutineId,omitempty" json:"sourceRoutineId,omitempty"`
	StartTime        time.Time          `bson:"startTime" json:"startTime"`
	EndTime          *time.Time         `bson:"endTime,omitempty" json:"endTime"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// FindExercise returns the index of the exercise with the given instance id, or -1.
func (w *ActiveWorkout) FindExercise(instanceID string) int {
	for i := range w.Exercises {
		if w.Exercises[i].InstanceID == instanceID {
			return i
		}
	}
	return -1
}

// FindSet returns the index of the set with the given id, or -1.
func (e *ExerciseInstance) FindSet(setID string) int {
	for i := range e.Sets {
		if e.Sets[i].ID == setID {
			return i
		}
	}
	return -1
}

// IsFailure reports whether the set carries a truthy isFailure tag.
func (s *SetRecord) IsFailure() bool {
	v, ok := s.Tags[TagIsFailure].(bool)
	return ok && v
}

// Clone returns a deep copy of the set.
func (s SetRecord) Clone() SetRecord {
	out := s
	out.Weight = cloneFloat(s.Weight)
	out.Reps = cloneInt(s.Reps)
	out.RIR = cloneInt(s.RIR)
	if s.Tags != nil {
		out.Tags = make(map[string]any, len(s.Tags))
		for k, v := range s.Tags {
			out.Tags[k] = v
		}
	}
	return out
}

// Clone returns a deep copy of the exercise instance.
func (e ExerciseInstance) Clone() ExerciseInstance {
	out := e
	out.RestSeconds = cloneInt(e.RestSeconds)
	out.Sets = make([]SetRecord, len(e.Sets))
	for i := range e.Sets {
		out.Sets[i] = e.Sets[i].Clone()
	}
	return out
}

// Clone returns a deep copy of the workout so that transforms never alias stored state.
func (w *ActiveWorkout) Clone() *ActiveWorkout {
	if w == nil {
		return nil
	}
	out := *w
	out.Exercises = make([]ExerciseInstance, len(w.Exercises))
	for i := range w.Exercises {
		out.Exercises[i] = w.Exercises[i].Clone()
	}
	if w.EndTime != nil {
		end := *w.EndTime
		out.EndTime = &end
	}
	return &out
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

// Float64 and Int are small helpers for building nullable set values.
func Float64(v float64) *float64 { return &v }

func Int(v int) *int { return &v }
